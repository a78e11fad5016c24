package review

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/phrazzld/qbank-api/internal/domain"
)

// UpdateInput is one quality rating for a question.
type UpdateInput struct {
	QuestionID   string
	SectionID    string
	SubsectionID string
	Quality      domain.Quality
}

// DueQuestions is the combined review view of a user.
type DueQuestions struct {
	// Due holds the states whose next review is at or before now, most overdue first.
	Due []*domain.ReviewState `json:"due"`
	// ReviewedQuestionIDs lists every question that has a review state.
	ReviewedQuestionIDs []string `json:"reviewed_question_ids"`
	// IncorrectQuestionIDs lists the questions last answered wrongly.
	IncorrectQuestionIDs []string `json:"incorrect_question_ids"`
}

// IncorrectSource supplies the incorrectly answered questions of a session.
type IncorrectSource interface {
	AllIncorrectIDs(ctx context.Context) ([]string, error)
}

// ReviewService schedules question reviews with the SM-2 algorithm.
type ReviewService interface {
	// UpdateSchedule records a quality rating and returns the new review state.
	// A question without prior state starts from the defaults.
	//
	// Returns:
	//   - ErrUnauthenticated when userID is uuid.Nil
	//   - a domain validation error for empty identifiers or a quality outside 0-5
	//   - a *ServiceError wrapping storage failures
	UpdateSchedule(ctx context.Context, userID uuid.UUID, in UpdateInput) (*domain.ReviewState, error)

	// GetDueQuestions returns the due states, every reviewed question, and the
	// incorrect questions reported by incorrect (which may be nil).
	GetDueQuestions(ctx context.Context, userID uuid.UUID, incorrect IncorrectSource) (*DueQuestions, error)
}

// ErrUnauthenticated is returned when scheduling is attempted without a user.
var ErrUnauthenticated = errors.New("scheduling requires an authenticated user")

// ServiceError wraps errors from the review service with additional context.
type ServiceError struct {
	// Operation is the operation that failed (e.g., "update_schedule")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s operation failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s operation failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

func newUpdateScheduleError(message string, err error) *ServiceError {
	return &ServiceError{Operation: "update_schedule", Message: message, Err: err}
}

func newGetDueError(message string, err error) *ServiceError {
	return &ServiceError{Operation: "get_due_questions", Message: message, Err: err}
}
