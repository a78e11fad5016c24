package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/qbank-api/internal/answerkey"
	"github.com/phrazzld/qbank-api/internal/api/shared"
	"github.com/phrazzld/qbank-api/internal/ledger"
	"github.com/phrazzld/qbank-api/internal/platform/logger"
	"github.com/phrazzld/qbank-api/internal/store"
)

// ResponseHandler serves the response ledger of the caller's session.
type ResponseHandler struct {
	logger *slog.Logger
}

// NewResponseHandler creates a new ResponseHandler.
func NewResponseHandler(logger *slog.Logger) *ResponseHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for ResponseHandler")
	}
	return &ResponseHandler{
		logger: logger.With(slog.String("component", "response_handler")),
	}
}

// RecordResponse handles POST /api/responses.
func (h *ResponseHandler) RecordResponse(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	l, ok := sessionLedger(w, r)
	if !ok {
		return
	}

	var req RecordResponseRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	correct, err := answerkey.Resolve(req.CorrectAnswer, req.Explanation)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if req.CorrectAnswer == "" {
		log.Debug("correct answer taken from explanation",
			slog.String("question_id", req.QuestionID),
			slog.String("correct_answer", correct))
	}

	resp, err := l.RecordResponse(r.Context(), ledger.RecordInput{
		QuestionID:     req.QuestionID,
		SectionID:      req.SectionID,
		SubsectionID:   req.SubsectionID,
		SelectedAnswer: req.SelectedAnswer,
		CorrectAnswer:  correct,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to record response")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, responseToResponse(resp))
}

// GetResponse handles GET /api/responses/{questionID}.
func (h *ResponseHandler) GetResponse(w http.ResponseWriter, r *http.Request) {
	l, ok := sessionLedger(w, r)
	if !ok {
		return
	}

	resp, found, err := l.GetResponse(r.Context(), chi.URLParam(r, "questionID"))
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get response")
		return
	}
	if !found {
		HandleAPIError(w, r, store.ErrResponseNotFound, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, responseToResponse(resp))
}

// ListResponses handles GET /api/responses.
func (h *ResponseHandler) ListResponses(w http.ResponseWriter, r *http.Request) {
	l, ok := sessionLedger(w, r)
	if !ok {
		return
	}

	responses, source := l.Responses(r.Context())
	out := ResponseListResponse{
		Responses: make([]ResponseResponse, 0, len(responses)),
		Source:    source,
	}
	for _, resp := range responses {
		out.Responses = append(out.Responses, responseToResponse(resp))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, out)
}

// ResetAll handles DELETE /api/responses.
func (h *ResponseHandler) ResetAll(w http.ResponseWriter, r *http.Request) {
	l, ok := sessionLedger(w, r)
	if !ok {
		return
	}
	if err := l.ResetAll(r.Context()); err != nil {
		HandleAPIError(w, r, err, "Failed to reset responses")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Summaries handles GET /api/responses/summary.
func (h *ResponseHandler) Summaries(w http.ResponseWriter, r *http.Request) {
	l, ok := sessionLedger(w, r)
	if !ok {
		return
	}
	summaries, err := l.Summaries(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to summarize responses")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, SummaryResponse{Subsections: summaries})
}

// GetStats handles GET /api/sections/{sectionID}/subsections/{subsectionID}/stats?total=N.
func (h *ResponseHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	l, ok := sessionLedger(w, r)
	if !ok {
		return
	}
	total, err := queryInt(r, "total")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	sectionID, subsectionID := scopeParams(r)
	stats, err := l.GetStats(r.Context(), sectionID, subsectionID, total)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get stats")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, stats)
}

// GetIncorrect handles GET /api/sections/{sectionID}/subsections/{subsectionID}/incorrect.
func (h *ResponseHandler) GetIncorrect(w http.ResponseWriter, r *http.Request) {
	l, ok := sessionLedger(w, r)
	if !ok {
		return
	}
	sectionID, subsectionID := scopeParams(r)
	ids, err := l.GetIncorrectIDs(r.Context(), sectionID, subsectionID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get incorrect questions")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, QuestionIDsResponse{QuestionIDs: ids})
}

// GetUnanswered handles POST /api/sections/{sectionID}/subsections/{subsectionID}/unanswered.
func (h *ResponseHandler) GetUnanswered(w http.ResponseWriter, r *http.Request) {
	l, ok := sessionLedger(w, r)
	if !ok {
		return
	}
	var req UnansweredRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	sectionID, subsectionID := scopeParams(r)
	ids, err := l.GetUnansweredIDs(r.Context(), sectionID, subsectionID, req.QuestionIDs)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get unanswered questions")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, QuestionIDsResponse{QuestionIDs: ids})
}

// ResetSubsection handles DELETE /api/sections/{sectionID}/subsections/{subsectionID}/responses.
func (h *ResponseHandler) ResetSubsection(w http.ResponseWriter, r *http.Request) {
	l, ok := sessionLedger(w, r)
	if !ok {
		return
	}
	sectionID, subsectionID := scopeParams(r)
	if err := l.ResetSubsection(r.Context(), sectionID, subsectionID); err != nil {
		HandleAPIError(w, r, err, "Failed to reset subsection")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SyncStatus handles GET /api/sync.
func (h *ResponseHandler) SyncStatus(w http.ResponseWriter, r *http.Request) {
	l, ok := sessionLedger(w, r)
	if !ok {
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, l.Status())
}
