package ledger

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/qbank-api/internal/domain"
	"github.com/phrazzld/qbank-api/internal/platform/logger"
	"github.com/phrazzld/qbank-api/internal/store"
)

// RemoteFactory returns the remote repository of a user.
type RemoteFactory func(userID uuid.UUID) Repository

// RemoteRepository is the server-side copy of one user's responses.
type RemoteRepository struct {
	store  store.ResponseStore
	userID uuid.UUID
	logger *slog.Logger
}

var _ Repository = (*RemoteRepository)(nil)

// NewRemoteRepository binds responses to userID.
func NewRemoteRepository(responses store.ResponseStore, userID uuid.UUID, log *slog.Logger) *RemoteRepository {
	if responses == nil {
		panic("responses cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &RemoteRepository{
		store:  responses,
		userID: userID,
		logger: log.With(slog.String("component", "remote_responses")),
	}
}

// NewRemoteFactory returns a RemoteFactory backed by responses.
func NewRemoteFactory(responses store.ResponseStore, log *slog.Logger) RemoteFactory {
	return func(userID uuid.UUID) Repository {
		return NewRemoteRepository(responses, userID, log)
	}
}

// List implements Repository.
func (r *RemoteRepository) List(ctx context.Context) ([]*domain.QuestionResponse, error) {
	return r.store.ListByUser(ctx, r.userID)
}

// Get implements Repository.
func (r *RemoteRepository) Get(ctx context.Context, questionID string) (*domain.QuestionResponse, error) {
	return r.store.Get(ctx, r.userID, questionID)
}

// Put implements Repository.
func (r *RemoteRepository) Put(ctx context.Context, resp *domain.QuestionResponse) error {
	return r.store.Upsert(ctx, r.userID, resp)
}

// PutBatch implements Repository.
func (r *RemoteRepository) PutBatch(ctx context.Context, rs []*domain.QuestionResponse) error {
	if len(rs) == 0 {
		return nil
	}
	return r.store.UpsertBatch(ctx, r.userID, rs)
}

// DeleteSubsection implements Repository.
func (r *RemoteRepository) DeleteSubsection(ctx context.Context, sectionID, subsectionID string) error {
	n, err := r.store.DeleteBySubsection(ctx, r.userID, sectionID, subsectionID)
	if err != nil {
		return err
	}
	logger.FromContextOrDefault(ctx, r.logger).Debug("remote subsection reset",
		slog.String("user_id", r.userID.String()),
		slog.String("section_id", sectionID),
		slog.String("subsection_id", subsectionID),
		slog.Int64("deleted", n))
	return nil
}

// DeleteAll implements Repository.
func (r *RemoteRepository) DeleteAll(ctx context.Context) error {
	_, err := r.store.DeleteAllForUser(ctx, r.userID)
	return err
}
