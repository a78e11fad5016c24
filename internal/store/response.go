package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/qbank-api/internal/domain"
)

// ResponseStore defines persistence of question responses for authenticated users.
// Records are keyed by the natural key (user ID, question ID).
type ResponseStore interface {
	// ListByUser returns every response of the user, ordered by question ID.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.QuestionResponse, error)

	// Get returns the user's response to a question.
	// Returns ErrResponseNotFound if the user has not answered it.
	Get(ctx context.Context, userID uuid.UUID, questionID string) (*domain.QuestionResponse, error)

	// Upsert inserts or replaces the response for (user, question) in one statement.
	// An existing row is only replaced when the incoming timestamp is not older,
	// so out-of-order writes keep the most recent answer.
	// Returns ErrInvalidEntity wrapping the validation error if the response is malformed.
	Upsert(ctx context.Context, userID uuid.UUID, response *domain.QuestionResponse) error

	// UpsertBatch upserts all responses in a single statement with the same
	// last-write-wins rule as Upsert. An empty batch is a no-op.
	UpsertBatch(ctx context.Context, userID uuid.UUID, responses []*domain.QuestionResponse) error

	// DeleteBySubsection removes the user's responses that match both identifiers
	// and returns how many were removed.
	DeleteBySubsection(ctx context.Context, userID uuid.UUID, sectionID, subsectionID string) (int64, error)

	// DeleteAllForUser removes every response of the user and returns how many were removed.
	DeleteAllForUser(ctx context.Context, userID uuid.UUID) (int64, error)

	// WithTx returns a new ResponseStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) ResponseStore
}
