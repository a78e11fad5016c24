package domain

import (
	"errors"
	"fmt"
)

// ErrValidation is the root of every domain validation failure.
// Callers test for it with errors.Is to distinguish bad input from I/O trouble.
var ErrValidation = errors.New("validation failed")

// Specific validation errors. Each wraps ErrValidation.
var (
	ErrEmptyQuestionID    = fmt.Errorf("%w: question ID cannot be empty", ErrValidation)
	ErrEmptySectionID     = fmt.Errorf("%w: section ID cannot be empty", ErrValidation)
	ErrEmptySubsectionID  = fmt.Errorf("%w: subsection ID cannot be empty", ErrValidation)
	ErrInvalidAnswer      = fmt.Errorf("%w: answer must be a single letter A-F", ErrValidation)
	ErrInvalidTimestamp   = fmt.Errorf("%w: timestamp must be positive", ErrValidation)
	ErrInvalidQuality     = fmt.Errorf("%w: quality must be between 0 and 5", ErrValidation)
	ErrInvalidInterval    = fmt.Errorf("%w: interval must be at least 1 day", ErrValidation)
	ErrInvalidEaseFactor  = fmt.Errorf("%w: ease factor below minimum", ErrValidation)
	ErrInvalidRepetitions = fmt.Errorf("%w: repetition count cannot be negative", ErrValidation)
	ErrInvalidReviewTimes = fmt.Errorf("%w: next review cannot precede last review", ErrValidation)
	ErrNegativeTotal      = fmt.Errorf("%w: total question count cannot be negative", ErrValidation)
)

// IsValidationError reports whether err is (or wraps) a domain validation error.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidation)
}
