package ledger

import (
	"context"

	"github.com/phrazzld/qbank-api/internal/domain"
)

// Repository is one backing copy of a user's responses, keyed by question ID.
type Repository interface {
	// List returns every stored response.
	List(ctx context.Context) ([]*domain.QuestionResponse, error)

	// Get returns the response for a question, or store.ErrResponseNotFound.
	Get(ctx context.Context, questionID string) (*domain.QuestionResponse, error)

	// Put stores r, replacing any response to the same question.
	Put(ctx context.Context, r *domain.QuestionResponse) error

	// PutBatch stores all responses in one call. An empty batch is a no-op.
	PutBatch(ctx context.Context, rs []*domain.QuestionResponse) error

	// DeleteSubsection removes the responses that match both identifiers.
	DeleteSubsection(ctx context.Context, sectionID, subsectionID string) error

	// DeleteAll removes every response.
	DeleteAll(ctx context.Context) error
}
