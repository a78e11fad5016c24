package domain

import (
	"strings"
	"time"
)

// Answer letters accepted for a question. Question-bank items carry at most six options.
const (
	MinAnswerLetter = 'A'
	MaxAnswerLetter = 'F'
)

// QuestionResponse is the current answer a user has given to a question.
// There is at most one per (user, question); a new answer replaces the old one.
//
// IsCorrect is fixed when the response is created and is never recomputed.
// Timestamp is the creation time in milliseconds since the Unix epoch.
type QuestionResponse struct {
	QuestionRef
	SelectedAnswer string `json:"selected_answer"`
	CorrectAnswer  string `json:"correct_answer"`
	IsCorrect      bool   `json:"is_correct"`
	Timestamp      int64  `json:"timestamp"`
}

// NormalizeAnswer trims and upper-cases an answer letter and checks it is in A-F.
func NormalizeAnswer(answer string) (string, error) {
	a := strings.ToUpper(strings.TrimSpace(answer))
	if len(a) != 1 || a[0] < MinAnswerLetter || a[0] > MaxAnswerLetter {
		return "", ErrInvalidAnswer
	}
	return a, nil
}

// NewQuestionResponse builds a validated response for a submission made at now.
// Answer letters are compared case-insensitively.
func NewQuestionResponse(
	ref QuestionRef,
	selectedAnswer, correctAnswer string,
	now time.Time,
) (*QuestionResponse, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	selected, err := NormalizeAnswer(selectedAnswer)
	if err != nil {
		return nil, err
	}
	correct, err := NormalizeAnswer(correctAnswer)
	if err != nil {
		return nil, err
	}

	return &QuestionResponse{
		QuestionRef:    ref,
		SelectedAnswer: selected,
		CorrectAnswer:  correct,
		IsCorrect:      selected == correct,
		Timestamp:      now.UnixMilli(),
	}, nil
}

// Validate checks that the response is well formed. It is called at every
// storage boundary (local blob, remote rows, HTTP input).
func (r *QuestionResponse) Validate() error {
	if err := r.QuestionRef.Validate(); err != nil {
		return err
	}
	if _, err := NormalizeAnswer(r.SelectedAnswer); err != nil {
		return err
	}
	if _, err := NormalizeAnswer(r.CorrectAnswer); err != nil {
		return err
	}
	if r.Timestamp <= 0 {
		return ErrInvalidTimestamp
	}
	return nil
}

// AnsweredAt returns the creation time of the response.
func (r *QuestionResponse) AnsweredAt() time.Time {
	return time.UnixMilli(r.Timestamp).UTC()
}
