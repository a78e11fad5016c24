package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/google/uuid"
	"github.com/phrazzld/qbank-api/internal/ledger"
	"github.com/phrazzld/qbank-api/internal/platform/logger"
	"github.com/phrazzld/qbank-api/internal/store"
	"github.com/phrazzld/qbank-api/internal/task"
)

// MaxIDLength bounds the length of a session ID.
const MaxIDLength = 128

// ErrInvalidID is returned for session IDs that are empty, too long, or
// contain characters other than letters, digits, '-' and '_'.
var ErrInvalidID = errors.New("invalid session id")

// Config controls session lifetimes.
type Config struct {
	// IdleTimeout is how long an unused ledger stays in memory.
	IdleTimeout time.Duration
	// Retention is how long an untouched local copy is kept.
	Retention time.Duration
	// JanitorInterval is how often the janitor runs.
	JanitorInterval time.Duration
}

// Deps holds the collaborators shared by every session ledger.
type Deps struct {
	Blobs  store.BlobStore
	Remote ledger.RemoteFactory
	// Tasks receives background remote writes. May be nil.
	Tasks  task.TaskQueueWriter
	Logger *slog.Logger
	// Clock defaults to time.Now.
	Clock func() time.Time
}

type entry struct {
	ledger   *ledger.Ledger
	lastUsed time.Time
}

// Registry maps session IDs to ledgers. It is safe for concurrent use.
type Registry struct {
	blobs  store.BlobStore
	remote ledger.RemoteFactory
	tasks  task.TaskQueueWriter
	logger *slog.Logger
	now    func() time.Time
	cfg    Config

	mu       sync.Mutex
	sessions map[string]*entry

	scheduler *gocron.Scheduler
}

// NewRegistry creates an empty registry.
func NewRegistry(deps Deps, cfg Config) *Registry {
	if deps.Blobs == nil {
		panic("blobs cannot be nil")
	}
	if deps.Remote == nil {
		panic("remote factory cannot be nil")
	}
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Registry{
		blobs:    deps.Blobs,
		remote:   deps.Remote,
		tasks:    deps.Tasks,
		logger:   log.With(slog.String("component", "session_registry")),
		now:      clock,
		cfg:      cfg,
		sessions: make(map[string]*entry),
	}
}

// Namespace returns the blob namespace that holds a session's local copy.
func Namespace(sessionID string) string {
	return "session:" + sessionID
}

// ValidateID checks the shape of a client supplied session ID.
func ValidateID(id string) error {
	if id == "" || len(id) > MaxIDLength {
		return ErrInvalidID
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			return ErrInvalidID
		}
	}
	return nil
}

// Resolve returns the ledger of sessionID, creating it on first use, and
// binds it to userID. uuid.Nil means the request is anonymous and logs the
// session out.
func (r *Registry) Resolve(ctx context.Context, sessionID string, userID uuid.UUID) (*ledger.Ledger, error) {
	if err := ValidateID(sessionID); err != nil {
		return nil, err
	}
	log := logger.FromContextOrDefault(ctx, r.logger)

	r.mu.Lock()
	e, ok := r.sessions[sessionID]
	if !ok {
		e = &entry{ledger: r.newLedger(sessionID)}
		r.sessions[sessionID] = e
		log.Debug("session created", slog.String("session_id", sessionID))
	}
	e.lastUsed = r.now()
	l := e.ledger
	r.mu.Unlock()

	if userID == uuid.Nil {
		l.Logout(ctx)
		return l, nil
	}

	res := l.Authenticate(ctx, userID)
	if res.Ran {
		attrs := []any{
			slog.String("session_id", sessionID),
			slog.String("user_id", userID.String()),
			slog.Int("uploaded", res.Uploaded),
		}
		if res.Err != nil {
			log.Warn("reconciliation finished with errors", append(attrs, slog.String("error", res.Err.Error()))...)
		} else {
			log.Info("reconciliation finished", attrs...)
		}
	}
	return l, nil
}

func (r *Registry) newLedger(sessionID string) *ledger.Ledger {
	return ledger.New(ledger.Deps{
		Local:  ledger.NewLocalRepository(r.blobs, Namespace(sessionID), r.logger),
		Remote: r.remote,
		Tasks:  r.tasks,
		Logger: r.logger.With(slog.String("session_id", sessionID)),
		Clock:  r.now,
	})
}

// Len returns the number of sessions held in memory.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// EvictIdle drops ledgers unused for longer than the idle timeout. Their
// local copies stay in the blob store, so a returning session picks up
// where it left off.
func (r *Registry) EvictIdle(ctx context.Context) int {
	cutoff := r.now().Add(-r.cfg.IdleTimeout)

	r.mu.Lock()
	var evicted []*ledger.Ledger
	for id, e := range r.sessions {
		if e.lastUsed.Before(cutoff) {
			evicted = append(evicted, e.ledger)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, l := range evicted {
		if err := l.Flush(ctx); err != nil {
			logger.FromContextOrDefault(ctx, r.logger).Warn("evicted session still had pending writes",
				slog.String("error", err.Error()))
		}
	}
	return len(evicted)
}

// PurgeExpired removes local copies not written within the retention window.
func (r *Registry) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := r.blobs.PurgeOlderThan(ctx, r.now().Add(-r.cfg.Retention))
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired local copies: %w", err)
	}
	return n, nil
}

// Sweep runs one janitor pass.
func (r *Registry) Sweep(ctx context.Context) {
	log := logger.FromContextOrDefault(ctx, r.logger)

	evicted := r.EvictIdle(ctx)
	purged, err := r.PurgeExpired(ctx)
	if err != nil {
		log.Error("session janitor failed", slog.String("error", err.Error()))
	}
	if evicted > 0 || purged > 0 {
		log.Info("session janitor pass",
			slog.Int("evicted", evicted),
			slog.Int64("purged", purged),
			slog.Int("active", r.Len()))
	}
}

// Start schedules the janitor. It first runs one interval after Start.
func (r *Registry) Start() error {
	if r.cfg.JanitorInterval <= 0 {
		return fmt.Errorf("janitor interval must be positive, got %s", r.cfg.JanitorInterval)
	}

	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	s.WaitForScheduleAll()
	if _, err := s.Every(r.cfg.JanitorInterval).Do(func() {
		r.Sweep(context.Background())
	}); err != nil {
		return fmt.Errorf("failed to schedule session janitor: %w", err)
	}
	s.StartAsync()

	r.mu.Lock()
	r.scheduler = s
	r.mu.Unlock()

	r.logger.Info("session janitor started", slog.Duration("interval", r.cfg.JanitorInterval))
	return nil
}

// Stop halts the janitor and waits for every ledger's pending writes.
func (r *Registry) Stop(ctx context.Context) error {
	r.mu.Lock()
	s := r.scheduler
	r.scheduler = nil
	ledgers := make([]*ledger.Ledger, 0, len(r.sessions))
	for _, e := range r.sessions {
		ledgers = append(ledgers, e.ledger)
	}
	r.mu.Unlock()

	if s != nil {
		s.Stop()
	}

	var errs []error
	for _, l := range ledgers {
		if err := l.Flush(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("session registry stopped with pending writes: %w", errors.Join(errs...))
	}
	return nil
}
