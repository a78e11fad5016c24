package srs

import (
	"errors"
	"time"

	"github.com/phrazzld/qbank-api/internal/domain"
)

// ErrNilState is returned when a review is applied to a nil state.
var ErrNilState = errors.New("review state cannot be nil")

// Service defines the interface for SRS algorithm operations
type Service interface {
	// InitialState returns the state used for a question that has never been reviewed.
	InitialState(ref domain.QuestionRef) *domain.ReviewState

	// CalculateNextReview computes the state that results from reviewing a question
	// with the given quality at now. It is deterministic: the same inputs always
	// produce the same output.
	CalculateNextReview(
		state *domain.ReviewState,
		quality domain.Quality,
		now time.Time,
	) (*domain.ReviewState, error)
}

// defaultService is the standard implementation of the Service interface
type defaultService struct {
	params *Params
}

// NewDefaultService creates a new SRS service with default parameters
func NewDefaultService() Service {
	return &defaultService{params: NewDefaultParams()}
}

// NewServiceWithParams creates a new SRS service with custom parameters
func NewServiceWithParams(params *Params) Service {
	if params == nil {
		params = NewDefaultParams()
	}
	return &defaultService{params: params}
}

// InitialState implements Service.
func (s *defaultService) InitialState(ref domain.QuestionRef) *domain.ReviewState {
	state := domain.NewReviewState(ref)
	state.EaseFactor = s.params.InitialEaseFactor
	return state
}

// CalculateNextReview implements Service.
func (s *defaultService) CalculateNextReview(
	state *domain.ReviewState,
	quality domain.Quality,
	now time.Time,
) (*domain.ReviewState, error) {
	if state == nil {
		return nil, ErrNilState
	}
	if !quality.Valid() {
		return nil, domain.ErrInvalidQuality
	}

	return calculateNextState(state, quality, now, s.params), nil
}
