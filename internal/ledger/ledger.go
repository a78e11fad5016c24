package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/qbank-api/internal/domain"
	"github.com/phrazzld/qbank-api/internal/platform/logger"
	"github.com/phrazzld/qbank-api/internal/task"
)

// Source names the copy a read was served from.
type Source string

const (
	SourceLocal  Source = "local"
	SourceRemote Source = "remote"
)

// RecordInput carries one submitted answer.
type RecordInput struct {
	QuestionID     string
	SectionID      string
	SubsectionID   string
	SelectedAnswer string
	CorrectAnswer  string
}

// Stats summarizes one subsection. Total is the caller's question count.
type Stats struct {
	Total     int `json:"total"`
	Answered  int `json:"answered"`
	Correct   int `json:"correct"`
	Incorrect int `json:"incorrect"`
}

// SubsectionSummary holds answer counts for one (section, subsection) pair.
type SubsectionSummary struct {
	SectionID    string `json:"section_id"`
	SubsectionID string `json:"subsection_id"`
	Answered     int    `json:"answered"`
	Correct      int    `json:"correct"`
	Incorrect    int    `json:"incorrect"`
}

// ReconcileResult reports what one reconciliation pass did.
type ReconcileResult struct {
	Ran      bool
	Uploaded int
	Err      error
}

// Status is a snapshot of the session's identity and sync progress.
type Status struct {
	Authenticated bool      `json:"authenticated"`
	UserID        string    `json:"user_id,omitempty"`
	SyncState     SyncState `json:"sync_state"`
}

// Deps holds the collaborators of a Ledger.
type Deps struct {
	// Local is the session's local copy. Required.
	Local Repository
	// Remote opens the remote copy of an authenticated user. Required.
	Remote RemoteFactory
	// Tasks receives background remote writes. When nil, remote writes run inline.
	Tasks task.TaskQueueWriter
	// Logger defaults to slog.Default().
	Logger *slog.Logger
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// Ledger is the single view of a session's answers.
// It is safe for concurrent use.
type Ledger struct {
	local    Repository
	remoteOf RemoteFactory
	tasks    task.TaskQueueWriter
	logger   *slog.Logger
	now      func() time.Time
	writes   inflight

	mu            sync.Mutex
	authenticated bool
	userID        uuid.UUID
	remote        Repository
	state         SyncState
	// bumped on every identity change so a stale reconciliation cannot finish a newer one
	generation uint64
	// records written during this session, shown even when the remote write failed
	overlay map[string]*domain.QuestionResponse
}

// New creates an anonymous ledger.
func New(deps Deps) *Ledger {
	if deps.Local == nil {
		panic("local repository cannot be nil")
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
	return &Ledger{
		local:    deps.Local,
		remoteOf: deps.Remote,
		tasks:    deps.Tasks,
		logger:   log.With(slog.String("component", "ledger")),
		now:      clock,
		overlay:  make(map[string]*domain.QuestionResponse),
	}
}

func (l *Ledger) log(ctx context.Context) *slog.Logger {
	return logger.FromContextOrDefault(ctx, l.logger)
}

// Status returns the current identity and sync state.
func (l *Ledger) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	st := Status{Authenticated: l.authenticated, SyncState: l.state}
	if l.authenticated {
		st.UserID = l.userID.String()
	}
	return st
}

// SyncState returns the reconciliation state.
func (l *Ledger) SyncState() SyncState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Authenticate binds the session to userID and reconciles once.
// Repeating it for the same user does nothing. Binding a different user
// resets the sync state and clears the previous user's overlay and local copy
// first, so only anonymous answers are ever uploaded to a new identity.
func (l *Ledger) Authenticate(ctx context.Context, userID uuid.UUID) ReconcileResult {
	l.mu.Lock()
	if l.authenticated && l.userID == userID {
		l.mu.Unlock()
		return ReconcileResult{}
	}
	if l.authenticated {
		l.log(ctx).Info("session switched user",
			slog.String("previous_user_id", l.userID.String()),
			slog.String("user_id", userID.String()))
		l.forgetIdentityLocked(ctx)
	}
	l.authenticated = true
	l.userID = userID
	l.remote = l.remoteOf(userID)
	l.state = SyncNotStarted
	l.generation++
	l.mu.Unlock()

	return l.Reconcile(ctx)
}

// Logout returns the session to anonymous use, resets the sync state and
// clears the signed-in user's overlay and local copy.
func (l *Ledger) Logout(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.authenticated {
		return
	}
	l.log(ctx).Info("session logged out", slog.String("user_id", l.userID.String()))
	l.forgetIdentityLocked(ctx)
	l.authenticated = false
	l.userID = uuid.Nil
	l.remote = nil
	l.state = SyncNotStarted
	l.generation++
}

// forgetIdentityLocked drops everything the session holds on behalf of the
// signed-in user: the overlay and the local copy. Answers recorded while signed
// in belong to that user's remote copy and must not be reconciled into the next
// identity. l.mu must be held.
func (l *Ledger) forgetIdentityLocked(ctx context.Context) {
	l.overlay = make(map[string]*domain.QuestionResponse)
	if err := l.local.DeleteAll(ctx); err != nil {
		l.log(ctx).Warn("failed to clear local responses of previous user",
			slog.String("user_id", l.userID.String()),
			slog.String("error", err.Error()))
	}
}

// Reconcile uploads local answers the remote copy has never seen, exactly
// once per authenticated identity. Failures are logged and still end in
// SyncDone.
func (l *Ledger) Reconcile(ctx context.Context) ReconcileResult {
	l.mu.Lock()
	if !l.authenticated || l.state != SyncNotStarted {
		l.mu.Unlock()
		return ReconcileResult{}
	}
	l.state = SyncInProgress
	remote := l.remote
	userID := l.userID
	gen := l.generation
	l.mu.Unlock()

	uploaded, err := l.reconcile(ctx, remote)

	log := l.log(ctx).With(slog.String("user_id", userID.String()))
	if err != nil {
		log.Warn("reconciliation failed, continuing with available data",
			slog.String("error", err.Error()))
	} else {
		log.Info("reconciliation completed", slog.Int("uploaded", uploaded))
	}

	l.mu.Lock()
	if l.generation == gen {
		l.state = SyncDone
	}
	l.mu.Unlock()

	return ReconcileResult{Ran: true, Uploaded: uploaded, Err: err}
}

func (l *Ledger) reconcile(ctx context.Context, remote Repository) (int, error) {
	remoteSet, err := remote.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetch remote responses: %w", err)
	}
	localSet, err := l.local.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("read local responses: %w", err)
	}

	known := make(map[string]struct{}, len(remoteSet))
	for _, r := range remoteSet {
		known[r.QuestionID] = struct{}{}
	}
	var missing []*domain.QuestionResponse
	for _, r := range localSet {
		if _, ok := known[r.QuestionID]; !ok {
			missing = append(missing, r)
		}
	}
	if len(missing) == 0 {
		return 0, nil
	}
	if err := remote.PutBatch(ctx, missing); err != nil {
		return 0, fmt.Errorf("upload local responses: %w", err)
	}
	return len(missing), nil
}

// RecordResponse validates and stores an answer. IsCorrect is fixed here by a
// case-insensitive comparison and never recomputed. Only validation errors
// are returned; storage failures are logged and the record stays visible for
// the rest of the session.
func (l *Ledger) RecordResponse(ctx context.Context, in RecordInput) (*domain.QuestionResponse, error) {
	ref, err := domain.NewQuestionRef(in.QuestionID, in.SectionID, in.SubsectionID)
	if err != nil {
		return nil, err
	}
	resp, err := domain.NewQuestionResponse(ref, in.SelectedAnswer, in.CorrectAnswer, l.now())
	if err != nil {
		return nil, err
	}

	log := l.log(ctx).With(slog.String("question_id", resp.QuestionID))

	if err := l.local.Put(ctx, resp); err != nil {
		log.Warn("local write failed", slog.String("error", err.Error()))
	}

	l.mu.Lock()
	l.overlay[resp.QuestionID] = copyResponse(resp)
	authenticated := l.authenticated
	remote := l.remote
	userID := l.userID
	l.mu.Unlock()

	if authenticated {
		l.writeRemote(ctx, remote, userID, copyResponse(resp))
	}
	return resp, nil
}

// writeRemote hands the write to the task queue, or runs it inline without one.
func (l *Ledger) writeRemote(ctx context.Context, remote Repository, userID uuid.UUID, resp *domain.QuestionResponse) {
	log := l.log(ctx).With(
		slog.String("question_id", resp.QuestionID),
		slog.String("user_id", userID.String()))

	l.writes.add()
	write := func(taskCtx context.Context) error {
		defer l.writes.done()
		if err := remote.Put(taskCtx, resp); err != nil {
			log.Warn("remote write failed, answer kept locally", slog.String("error", err.Error()))
			return err
		}
		return nil
	}

	if l.tasks == nil {
		_ = write(context.WithoutCancel(ctx))
		return
	}
	if err := l.tasks.Enqueue(task.NewFuncTask(task.TaskTypeRemoteResponseWrite, write)); err != nil {
		l.writes.done()
		log.Warn("remote write dropped, answer kept locally", slog.String("error", err.Error()))
	}
}

// view returns the answers to serve: remote after reconciliation when
// non-empty, local otherwise, with this session's records on top.
func (l *Ledger) view(ctx context.Context) (map[string]*domain.QuestionResponse, Source) {
	l.mu.Lock()
	useRemote := l.authenticated && l.state == SyncDone
	remote := l.remote
	overlay := make([]*domain.QuestionResponse, 0, len(l.overlay))
	for _, r := range l.overlay {
		overlay = append(overlay, r)
	}
	l.mu.Unlock()

	var (
		base   []*domain.QuestionResponse
		source = SourceLocal
	)
	if useRemote {
		rs, err := remote.List(ctx)
		if err != nil {
			l.log(ctx).Warn("remote read failed, serving local responses", slog.String("error", err.Error()))
		} else if len(rs) > 0 {
			base, source = rs, SourceRemote
		}
	}
	if source == SourceLocal {
		rs, err := l.local.List(ctx)
		if err != nil {
			l.log(ctx).Warn("local read failed", slog.String("error", err.Error()))
		}
		base = rs
	}

	out := make(map[string]*domain.QuestionResponse, len(base)+len(overlay))
	for _, r := range base {
		out[r.QuestionID] = r
	}
	for _, r := range overlay {
		if cur, ok := out[r.QuestionID]; !ok || cur.Timestamp <= r.Timestamp {
			out[r.QuestionID] = copyResponse(r)
		}
	}
	return out, source
}

// GetResponse returns the current answer to a question.
func (l *Ledger) GetResponse(ctx context.Context, questionID string) (*domain.QuestionResponse, bool, error) {
	questionID = strings.TrimSpace(questionID)
	if questionID == "" {
		return nil, false, domain.ErrEmptyQuestionID
	}
	answers, _ := l.view(ctx)
	r, ok := answers[questionID]
	return r, ok, nil
}

// Responses returns every current answer ordered by question ID, and the
// copy they were read from.
func (l *Ledger) Responses(ctx context.Context) ([]*domain.QuestionResponse, Source) {
	answers, source := l.view(ctx)
	return sortedResponses(answers), source
}

// GetStats counts the answers of a subsection.
func (l *Ledger) GetStats(ctx context.Context, sectionID, subsectionID string, total int) (Stats, error) {
	sectionID, subsectionID, err := domain.NormalizeScope(sectionID, subsectionID)
	if err != nil {
		return Stats{}, err
	}
	if total < 0 {
		return Stats{}, domain.ErrNegativeTotal
	}

	answers, _ := l.view(ctx)
	st := Stats{Total: total}
	for _, r := range answers {
		if !r.InScope(sectionID, subsectionID) {
			continue
		}
		st.Answered++
		if r.IsCorrect {
			st.Correct++
		} else {
			st.Incorrect++
		}
	}
	return st, nil
}

// GetIncorrectIDs returns the questions of a subsection answered wrongly, sorted.
func (l *Ledger) GetIncorrectIDs(ctx context.Context, sectionID, subsectionID string) ([]string, error) {
	sectionID, subsectionID, err := domain.NormalizeScope(sectionID, subsectionID)
	if err != nil {
		return nil, err
	}
	answers, _ := l.view(ctx)
	ids := make([]string, 0)
	for _, r := range answers {
		if !r.IsCorrect && r.InScope(sectionID, subsectionID) {
			ids = append(ids, r.QuestionID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// AllIncorrectIDs returns every question answered wrongly, sorted.
func (l *Ledger) AllIncorrectIDs(ctx context.Context) ([]string, error) {
	answers, _ := l.view(ctx)
	ids := make([]string, 0)
	for _, r := range answers {
		if !r.IsCorrect {
			ids = append(ids, r.QuestionID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// GetUnansweredIDs returns allIDs minus the questions answered in the
// subsection, keeping the order of allIDs.
func (l *Ledger) GetUnansweredIDs(
	ctx context.Context,
	sectionID, subsectionID string,
	allIDs []string,
) ([]string, error) {
	sectionID, subsectionID, err := domain.NormalizeScope(sectionID, subsectionID)
	if err != nil {
		return nil, err
	}
	answers, _ := l.view(ctx)
	out := make([]string, 0, len(allIDs))
	for _, id := range allIDs {
		if r, ok := answers[id]; ok && r.InScope(sectionID, subsectionID) {
			continue
		}
		out = append(out, id)
	}
	return out, nil
}

// Summaries returns answer counts per subsection, ordered by section then subsection.
func (l *Ledger) Summaries(ctx context.Context) ([]SubsectionSummary, error) {
	answers, _ := l.view(ctx)

	type scope struct{ section, subsection string }
	byScope := make(map[scope]*SubsectionSummary)
	for _, r := range answers {
		k := scope{r.SectionID, r.SubsectionID}
		s, ok := byScope[k]
		if !ok {
			s = &SubsectionSummary{SectionID: r.SectionID, SubsectionID: r.SubsectionID}
			byScope[k] = s
		}
		s.Answered++
		if r.IsCorrect {
			s.Correct++
		} else {
			s.Incorrect++
		}
	}

	out := make([]SubsectionSummary, 0, len(byScope))
	for _, s := range byScope {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SectionID != out[j].SectionID {
			return out[i].SectionID < out[j].SectionID
		}
		return out[i].SubsectionID < out[j].SubsectionID
	})
	return out, nil
}

// ResetSubsection deletes the answers matching both identifiers, locally and
// remotely. Pending background writes finish first so none of them can bring
// a deleted answer back.
func (l *Ledger) ResetSubsection(ctx context.Context, sectionID, subsectionID string) error {
	sectionID, subsectionID, err := domain.NormalizeScope(sectionID, subsectionID)
	if err != nil {
		return err
	}
	return l.reset(ctx,
		func(r *domain.QuestionResponse) bool { return r.InScope(sectionID, subsectionID) },
		func(ctx context.Context, repo Repository) error {
			return repo.DeleteSubsection(ctx, sectionID, subsectionID)
		},
		slog.String("section_id", sectionID),
		slog.String("subsection_id", subsectionID))
}

// ResetAll deletes every answer of the session, locally and remotely.
func (l *Ledger) ResetAll(ctx context.Context) error {
	return l.reset(ctx,
		func(*domain.QuestionResponse) bool { return true },
		func(ctx context.Context, repo Repository) error { return repo.DeleteAll(ctx) })
}

func (l *Ledger) reset(
	ctx context.Context,
	match func(*domain.QuestionResponse) bool,
	del func(context.Context, Repository) error,
	attrs ...any,
) error {
	log := l.log(ctx).With(attrs...)

	if err := l.writes.wait(ctx); err != nil {
		return fmt.Errorf("waiting for pending writes: %w", err)
	}

	if err := del(ctx, l.local); err != nil {
		log.Warn("local reset failed", slog.String("error", err.Error()))
	}

	l.mu.Lock()
	for id, r := range l.overlay {
		if match(r) {
			delete(l.overlay, id)
		}
	}
	authenticated := l.authenticated
	remote := l.remote
	l.mu.Unlock()

	if authenticated {
		if err := del(ctx, remote); err != nil {
			log.Warn("remote reset failed", slog.String("error", err.Error()))
		}
	}
	log.Info("responses reset", slog.Bool("remote", authenticated))
	return nil
}

// Flush waits for this ledger's background writes to finish.
func (l *Ledger) Flush(ctx context.Context) error {
	return l.writes.wait(ctx)
}

// ErrNotAuthenticated is returned by operations that need a bound user.
var ErrNotAuthenticated = errors.New("session is not authenticated")

// UserID returns the bound user, or ErrNotAuthenticated.
func (l *Ledger) UserID() (uuid.UUID, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.authenticated {
		return uuid.Nil, ErrNotAuthenticated
	}
	return l.userID, nil
}

func copyResponse(r *domain.QuestionResponse) *domain.QuestionResponse {
	cp := *r
	return &cp
}

func sortedResponses(m map[string]*domain.QuestionResponse) []*domain.QuestionResponse {
	out := make([]*domain.QuestionResponse, 0, len(m))
	for _, r := range m {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuestionID < out[j].QuestionID })
	return out
}
