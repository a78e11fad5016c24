package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/phrazzld/qbank-api/internal/domain"
	"github.com/phrazzld/qbank-api/internal/platform/logger"
	"github.com/phrazzld/qbank-api/internal/store"
)

// ResponsesKey is the blob key the local copy is stored under.
const ResponsesKey = "question-responses"

// LocalRepository keeps responses as one JSON object, keyed by question ID,
// in a single blob of a session namespace.
type LocalRepository struct {
	blobs     store.BlobStore
	namespace string
	logger    *slog.Logger

	// serializes read-modify-write cycles on the blob
	mu sync.Mutex
}

var _ Repository = (*LocalRepository)(nil)

// NewLocalRepository returns the local copy for namespace.
func NewLocalRepository(blobs store.BlobStore, namespace string, log *slog.Logger) *LocalRepository {
	if blobs == nil {
		panic("blobs cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &LocalRepository{
		blobs:     blobs,
		namespace: namespace,
		logger:    log.With(slog.String("component", "local_responses")),
	}
}

// load reads and validates the blob. Malformed entries are dropped.
func (r *LocalRepository) load(ctx context.Context) (map[string]*domain.QuestionResponse, error) {
	raw, err := r.blobs.Get(ctx, r.namespace, ResponsesKey)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return map[string]*domain.QuestionResponse{}, nil
		}
		return nil, err
	}

	var decoded map[string]*domain.QuestionResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		logger.FromContextOrDefault(ctx, r.logger).Warn("discarding unreadable local responses",
			slog.String("namespace", r.namespace),
			slog.String("error", err.Error()))
		return map[string]*domain.QuestionResponse{}, nil
	}

	out := make(map[string]*domain.QuestionResponse, len(decoded))
	for key, resp := range decoded {
		if resp == nil || resp.QuestionID != key {
			continue
		}
		if err := resp.Validate(); err != nil {
			logger.FromContextOrDefault(ctx, r.logger).Warn("dropping invalid local response",
				slog.String("namespace", r.namespace),
				slog.String("question_id", key),
				slog.String("error", err.Error()))
			continue
		}
		out[key] = resp
	}
	return out, nil
}

func (r *LocalRepository) save(ctx context.Context, m map[string]*domain.QuestionResponse) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to encode local responses: %w", err)
	}
	return r.blobs.Set(ctx, r.namespace, ResponsesKey, raw)
}

// List implements Repository.
func (r *LocalRepository) List(ctx context.Context) ([]*domain.QuestionResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	return sortedResponses(m), nil
}

// Get implements Repository.
func (r *LocalRepository) Get(ctx context.Context, questionID string) (*domain.QuestionResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	resp, ok := m[questionID]
	if !ok {
		return nil, store.ErrResponseNotFound
	}
	return resp, nil
}

// Put implements Repository.
func (r *LocalRepository) Put(ctx context.Context, resp *domain.QuestionResponse) error {
	return r.PutBatch(ctx, []*domain.QuestionResponse{resp})
}

// PutBatch implements Repository.
func (r *LocalRepository) PutBatch(ctx context.Context, rs []*domain.QuestionResponse) error {
	if len(rs) == 0 {
		return nil
	}
	for _, resp := range rs {
		if resp == nil {
			return domain.ErrEmptyQuestionID
		}
		if err := resp.Validate(); err != nil {
			return err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	m, err := r.load(ctx)
	if err != nil {
		return err
	}
	for _, resp := range rs {
		cp := *resp
		m[resp.QuestionID] = &cp
	}
	return r.save(ctx, m)
}

// DeleteSubsection implements Repository.
func (r *LocalRepository) DeleteSubsection(ctx context.Context, sectionID, subsectionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, err := r.load(ctx)
	if err != nil {
		return err
	}
	removed := 0
	for id, resp := range m {
		if resp.InScope(sectionID, subsectionID) {
			delete(m, id)
			removed++
		}
	}
	if removed == 0 {
		return nil
	}
	return r.save(ctx, m)
}

// DeleteAll implements Repository.
func (r *LocalRepository) DeleteAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.blobs.DeleteNamespace(ctx, r.namespace)
}
