package api

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/phrazzld/qbank-api/internal/api/shared"
	"github.com/phrazzld/qbank-api/internal/domain"
	"github.com/phrazzld/qbank-api/internal/platform/logger"
	"github.com/phrazzld/qbank-api/internal/service/review"
)

// ReviewHandler serves the spaced-repetition schedule of the caller.
type ReviewHandler struct {
	reviews review.ReviewService
	logger  *slog.Logger
}

// NewReviewHandler creates a new ReviewHandler.
func NewReviewHandler(reviews review.ReviewService, logger *slog.Logger) *ReviewHandler {
	if reviews == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("reviews cannot be nil for ReviewHandler")
	}
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for ReviewHandler")
	}
	return &ReviewHandler{
		reviews: reviews,
		logger:  logger.With(slog.String("component", "review_handler")),
	}
}

// UpdateSchedule handles POST /api/reviews. It requires an authenticated caller.
func (h *ReviewHandler) UpdateSchedule(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID := shared.GetUserID(r.Context())
	if userID == uuid.Nil {
		HandleAPIError(w, r, review.ErrUnauthenticated, "")
		return
	}

	var req UpdateScheduleRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	state, err := h.reviews.UpdateSchedule(r.Context(), userID, review.UpdateInput{
		QuestionID:   req.QuestionID,
		SectionID:    req.SectionID,
		SubsectionID: req.SubsectionID,
		Quality:      domain.Quality(*req.Quality),
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update review schedule")
		return
	}

	log.Debug("review schedule updated",
		slog.String("question_id", state.QuestionID),
		slog.Int("interval_days", state.IntervalDays))
	shared.RespondWithJSON(w, r, http.StatusOK, reviewStateToResponse(state))
}

// GetDueQuestions handles GET /api/reviews/due. It requires an authenticated caller.
func (h *ReviewHandler) GetDueQuestions(w http.ResponseWriter, r *http.Request) {
	userID := shared.GetUserID(r.Context())

	var incorrect review.IncorrectSource
	if l := shared.GetLedger(r.Context()); l != nil {
		incorrect = l
	}

	due, err := h.reviews.GetDueQuestions(r.Context(), userID, incorrect)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get due questions")
		return
	}

	out := DueQuestionsResponse{
		Due:                  make([]ReviewStateResponse, 0, len(due.Due)),
		ReviewedQuestionIDs:  due.ReviewedQuestionIDs,
		IncorrectQuestionIDs: due.IncorrectQuestionIDs,
	}
	for _, s := range due.Due {
		out.Due = append(out.Due, reviewStateToResponse(s))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, out)
}
