package api

import (
	"time"

	"github.com/phrazzld/qbank-api/internal/domain"
	"github.com/phrazzld/qbank-api/internal/ledger"
)

// RecordResponseRequest is the payload of POST /api/responses.
// CorrectAnswer may be omitted for questions authored before answer keys
// existed; the letter is then taken from Explanation.
type RecordResponseRequest struct {
	QuestionID     string `json:"question_id"     validate:"required,max=256"`
	SectionID      string `json:"section_id"      validate:"required,max=256"`
	SubsectionID   string `json:"subsection_id"   validate:"required,max=256"`
	SelectedAnswer string `json:"selected_answer" validate:"required,len=1,alpha"`
	CorrectAnswer  string `json:"correct_answer"  validate:"omitempty,len=1,alpha"`
	Explanation    string `json:"explanation"     validate:"required_without=CorrectAnswer,max=20000"`
}

// UnansweredRequest is the payload of the unanswered question lookup.
type UnansweredRequest struct {
	QuestionIDs []string `json:"question_ids" validate:"required,max=10000,dive,required"`
}

// UpdateScheduleRequest is the payload of POST /api/reviews.
// Quality is a pointer so that a missing field is told apart from 0.
type UpdateScheduleRequest struct {
	QuestionID   string `json:"question_id"   validate:"required,max=256"`
	SectionID    string `json:"section_id"    validate:"required,max=256"`
	SubsectionID string `json:"subsection_id" validate:"required,max=256"`
	Quality      *int   `json:"quality"       validate:"required,min=0,max=5"`
}

// ResponseResponse is one recorded answer.
type ResponseResponse struct {
	QuestionID     string    `json:"question_id"`
	SectionID      string    `json:"section_id"`
	SubsectionID   string    `json:"subsection_id"`
	SelectedAnswer string    `json:"selected_answer"`
	CorrectAnswer  string    `json:"correct_answer"`
	IsCorrect      bool      `json:"is_correct"`
	Timestamp      int64     `json:"timestamp"`
	AnsweredAt     time.Time `json:"answered_at"`
}

// ResponseListResponse is every answer of the session.
type ResponseListResponse struct {
	Responses []ResponseResponse `json:"responses"`
	Source    ledger.Source      `json:"source"`
}

// QuestionIDsResponse is a list of question IDs.
type QuestionIDsResponse struct {
	QuestionIDs []string `json:"question_ids"`
}

// SummaryResponse lists per subsection counts.
type SummaryResponse struct {
	Subsections []ledger.SubsectionSummary `json:"subsections"`
}

// ReviewStateResponse is the schedule of one question.
type ReviewStateResponse struct {
	QuestionID      string    `json:"question_id"`
	SectionID       string    `json:"section_id"`
	SubsectionID    string    `json:"subsection_id"`
	RepetitionCount int       `json:"repetition_count"`
	EaseFactor      float64   `json:"ease_factor"`
	IntervalDays    int       `json:"interval_days"`
	LastReviewedAt  time.Time `json:"last_reviewed_at"`
	NextReviewAt    time.Time `json:"next_review_at"`
}

// DueQuestionsResponse is the payload of GET /api/reviews/due.
type DueQuestionsResponse struct {
	Due                  []ReviewStateResponse `json:"due"`
	ReviewedQuestionIDs  []string              `json:"reviewed_question_ids"`
	IncorrectQuestionIDs []string              `json:"incorrect_question_ids"`
}

func responseToResponse(r *domain.QuestionResponse) ResponseResponse {
	return ResponseResponse{
		QuestionID:     r.QuestionID,
		SectionID:      r.SectionID,
		SubsectionID:   r.SubsectionID,
		SelectedAnswer: r.SelectedAnswer,
		CorrectAnswer:  r.CorrectAnswer,
		IsCorrect:      r.IsCorrect,
		Timestamp:      r.Timestamp,
		AnsweredAt:     r.AnsweredAt().UTC(),
	}
}

func reviewStateToResponse(s *domain.ReviewState) ReviewStateResponse {
	return ReviewStateResponse{
		QuestionID:      s.QuestionID,
		SectionID:       s.SectionID,
		SubsectionID:    s.SubsectionID,
		RepetitionCount: s.RepetitionCount,
		EaseFactor:      s.EaseMultiplier(),
		IntervalDays:    s.IntervalDays,
		LastReviewedAt:  s.LastReviewedAt,
		NextReviewAt:    s.NextReviewAt,
	}
}
