package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/qbank-api/internal/api/shared"
	"github.com/phrazzld/qbank-api/internal/ledger"
)

// errNoSession means the session middleware did not run for the route.
var errNoSession = errors.New("no session attached to request")

// sessionLedger returns the request's ledger, writing a 500 when the route
// was mounted without the session middleware.
func sessionLedger(w http.ResponseWriter, r *http.Request) (*ledger.Ledger, bool) {
	l := shared.GetLedger(r.Context())
	if l == nil {
		HandleAPIError(w, r, errNoSession, "Session unavailable")
		return nil, false
	}
	return l, true
}

// scopeParams returns the section and subsection path parameters.
func scopeParams(r *http.Request) (string, string) {
	return chi.URLParam(r, "sectionID"), chi.URLParam(r, "subsectionID")
}

// decodeAndValidate reads the JSON body into v and validates it, writing a
// 400 on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := shared.DecodeJSON(r, v); err != nil {
		if !errors.Is(err, shared.ErrEmptyBody) {
			err = fmt.Errorf("%w: %w", errBadRequestBody, err)
		}
		HandleAPIError(w, r, err, "")
		return false
	}
	if err := shared.ValidateRequest(v); err != nil {
		HandleAPIError(w, r, err, "")
		return false
	}
	return true
}

// queryInt parses a required non-negative integer query parameter.
func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, fmt.Errorf("%w: query parameter %q is required", errBadRequestBody, name)
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: query parameter %q must be an integer", errBadRequestBody, name)
	}
	return n, nil
}
