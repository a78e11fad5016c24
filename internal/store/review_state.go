package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/qbank-api/internal/domain"
)

// ReviewStateStore defines persistence of spaced-repetition states.
// Records are keyed by the natural key (user ID, question ID) and are never deleted.
type ReviewStateStore interface {
	// Get retrieves the review state of a question for a user.
	// Returns ErrReviewStateNotFound if the question has never been reviewed.
	// NOTE: This method does NOT lock the row.
	Get(ctx context.Context, userID uuid.UUID, questionID string) (*domain.ReviewState, error)

	// GetForUpdate retrieves the review state with a row-level lock (SELECT ... FOR UPDATE).
	// It must be used inside a transaction when the caller intends to write the row back.
	// Returns ErrReviewStateNotFound if the question has never been reviewed.
	GetForUpdate(ctx context.Context, userID uuid.UUID, questionID string) (*domain.ReviewState, error)

	// Upsert inserts or replaces the review state for (user, question) in one statement.
	// Returns ErrInvalidEntity wrapping the validation error if the state is malformed.
	Upsert(ctx context.Context, userID uuid.UUID, state *domain.ReviewState) error

	// ListByUser returns every review state of the user, ordered by question ID.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.ReviewState, error)

	// ListDue returns the states whose next review is at or before now,
	// most overdue first.
	ListDue(ctx context.Context, userID uuid.UUID, now time.Time) ([]*domain.ReviewState, error)

	// WithTx returns a new ReviewStateStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) ReviewStateStore
}
