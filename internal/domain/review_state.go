package domain

import "time"

// Quality is the 0-5 self-assessment a user gives when reviewing a question.
// 0-2 is a lapse at decreasing severity, 3-5 a successful recall at increasing ease.
type Quality int

// Quality values.
const (
	QualityBlackout          Quality = 0
	QualityIncorrect         Quality = 1
	QualityIncorrectFamiliar Quality = 2
	QualityCorrectDifficult  Quality = 3
	QualityCorrectHesitation Quality = 4
	QualityPerfect           Quality = 5
)

// Valid reports whether q is within 0-5.
func (q Quality) Valid() bool {
	return q >= QualityBlackout && q <= QualityPerfect
}

// Defaults for a question that has never been reviewed.
const (
	// DefaultEaseFactor is 2.5 in fixed point (hundredths).
	DefaultEaseFactor   = 250
	DefaultIntervalDays = 1

	// EaseFactorScale converts the fixed-point ease factor to a multiplier.
	EaseFactorScale = 100
)

// ReviewState is the spaced-repetition schedule of one question for one user.
// EaseFactor is stored multiplied by EaseFactorScale (250 means 2.5).
type ReviewState struct {
	QuestionRef
	RepetitionCount int       `json:"repetition_count"`
	EaseFactor      int       `json:"ease_factor"`
	IntervalDays    int       `json:"interval_days"`
	LastReviewedAt  time.Time `json:"last_reviewed_at"`
	NextReviewAt    time.Time `json:"next_review_at"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// NewReviewState returns the default state of a question that has not been reviewed yet.
// It is never persisted as is: the scheduler always applies a review first.
func NewReviewState(ref QuestionRef) *ReviewState {
	return &ReviewState{
		QuestionRef:     ref,
		RepetitionCount: 0,
		EaseFactor:      DefaultEaseFactor,
		IntervalDays:    DefaultIntervalDays,
	}
}

// Reviewed reports whether at least one review has been applied.
func (s *ReviewState) Reviewed() bool {
	return !s.LastReviewedAt.IsZero()
}

// EaseMultiplier returns the ease factor as a plain multiplier.
func (s *ReviewState) EaseMultiplier() float64 {
	return float64(s.EaseFactor) / EaseFactorScale
}

// IsDue reports whether the question should be presented for review at now.
func (s *ReviewState) IsDue(now time.Time) bool {
	return !s.NextReviewAt.After(now)
}

// Validate checks the invariants of a persisted review state.
func (s *ReviewState) Validate() error {
	if err := s.QuestionRef.Validate(); err != nil {
		return err
	}
	if s.RepetitionCount < 0 {
		return ErrInvalidRepetitions
	}
	if s.EaseFactor <= EaseFactorScale {
		return ErrInvalidEaseFactor
	}
	if s.IntervalDays < 1 {
		return ErrInvalidInterval
	}
	if s.NextReviewAt.Before(s.LastReviewedAt) {
		return ErrInvalidReviewTimes
	}
	return nil
}
