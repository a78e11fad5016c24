package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/qbank-api/internal/answerkey"
	"github.com/phrazzld/qbank-api/internal/api/shared"
	"github.com/phrazzld/qbank-api/internal/auth"
	"github.com/phrazzld/qbank-api/internal/domain"
	"github.com/phrazzld/qbank-api/internal/ledger"
	"github.com/phrazzld/qbank-api/internal/service/review"
	"github.com/phrazzld/qbank-api/internal/session"
	"github.com/phrazzld/qbank-api/internal/store"
)

// errBadRequestBody marks a body that is not valid JSON for the endpoint.
var errBadRequestBody = errors.New("malformed request body")

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	var validationErrs validator.ValidationErrors
	switch {
	case err == nil:
		return http.StatusOK

	// Authentication errors
	case errors.Is(err, review.ErrUnauthenticated),
		errors.Is(err, ledger.ErrNotAuthenticated),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingSubject):
		return http.StatusUnauthorized

	// Bad request errors
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, session.ErrInvalidID),
		errors.Is(err, shared.ErrEmptyBody),
		errors.Is(err, errBadRequestBody),
		errors.As(err, &validationErrs):
		return http.StatusBadRequest

	// Not found errors
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// safeMessages pairs known errors with the text a client may see.
// More specific errors come before the errors they wrap.
var safeMessages = []struct {
	err     error
	message string
}{
	{review.ErrUnauthenticated, "Authentication required"},
	{ledger.ErrNotAuthenticated, "Authentication required"},
	{auth.ErrExpiredToken, "Token expired"},
	{auth.ErrInvalidToken, "Invalid token"},
	{auth.ErrTokenNotYetValid, "Invalid token"},
	{auth.ErrMissingSubject, "Invalid token"},
	{session.ErrInvalidID, "Invalid session ID"},
	{shared.ErrEmptyBody, "Request body is required"},
	{errBadRequestBody, "Invalid request format"},
	{answerkey.ErrAmbiguous, "Explanation names more than one correct answer"},
	{answerkey.ErrNoAnswer, "Explanation does not name a correct answer"},
	{domain.ErrEmptyQuestionID, "Question ID is required"},
	{domain.ErrEmptySectionID, "Section ID is required"},
	{domain.ErrEmptySubsectionID, "Subsection ID is required"},
	{domain.ErrInvalidAnswer, "Answers must be a single letter A-F"},
	{domain.ErrInvalidQuality, "Quality must be between 0 and 5"},
	{domain.ErrNegativeTotal, "Total must not be negative"},
	{store.ErrResponseNotFound, "Response not found"},
	{store.ErrReviewStateNotFound, "Review state not found"},
	{store.ErrInvalidEntity, "Invalid entity data"},
	{domain.ErrValidation, "Invalid request"},
	{store.ErrNotFound, "Not found"},
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		return SanitizeValidationError(validationErrs)
	}
	for _, m := range safeMessages {
		if errors.Is(err, m.err) {
			return m.message
		}
	}
	return "An unexpected error occurred"
}

// SanitizeValidationError turns the first failed field of a struct validation
// into a short message naming the JSON field.
func SanitizeValidationError(err error) string {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) || len(validationErrs) == 0 {
		return "Validation error"
	}
	fe := validationErrs[0]
	return fmt.Sprintf("Invalid %s: %s", fe.Field(), getValidationTagMessage(fe.Tag()))
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min", "gte":
		return "too small"
	case "max", "lte":
		return "too large"
	case "oneof", "len", "alpha":
		return "invalid value"
	case "dive":
		return "invalid element"
	default:
		return "validation failed"
	}
}

// HandleAPIError writes the status and safe message for err and logs the
// full error. fallback replaces the generic message of a 500.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := MapErrorToStatusCode(err)
	message := GetSafeErrorMessage(err)
	if status == http.StatusInternalServerError && fallback != "" {
		message = fallback
	}
	shared.RespondWithErrorAndLog(w, r, status, message, err)
}
