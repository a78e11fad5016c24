package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/phrazzld/qbank-api/internal/api/shared"
	"github.com/phrazzld/qbank-api/internal/ledger"
	"github.com/phrazzld/qbank-api/internal/platform/logger"
	"github.com/phrazzld/qbank-api/internal/session"
)

// SessionHeader carries the client session ID in both directions.
const SessionHeader = "X-Session-ID"

// SessionResolver returns the ledger of a session bound to a user.
type SessionResolver interface {
	Resolve(ctx context.Context, sessionID string, userID uuid.UUID) (*ledger.Ledger, error)
}

// SessionMiddleware attaches the session ledger to each request.
type SessionMiddleware struct {
	sessions SessionResolver
}

// NewSessionMiddleware creates a new SessionMiddleware.
func NewSessionMiddleware(sessions SessionResolver) *SessionMiddleware {
	if sessions == nil {
		panic("sessions cannot be nil")
	}
	return &SessionMiddleware{sessions: sessions}
}

// Attach reads X-Session-ID, generating one when absent, echoes it on the
// response, and resolves the session ledger under the caller's identity.
// It must run after AuthMiddleware.Authenticate.
func (m *SessionMiddleware) Attach(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.Header.Get(SessionHeader)
		if sessionID == "" {
			sessionID = uuid.NewString()
		}
		if err := session.ValidateID(sessionID); err != nil {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid session ID")
			return
		}
		w.Header().Set(SessionHeader, sessionID)

		ctx := shared.WithSessionID(r.Context(), sessionID)
		ctx = logger.WithLogger(ctx, logger.FromContext(ctx).With(slog.String("session_id", sessionID)))

		l, err := m.sessions.Resolve(ctx, sessionID, shared.GetUserID(ctx))
		if err != nil {
			status := http.StatusInternalServerError
			message := "Failed to open session"
			if errors.Is(err, session.ErrInvalidID) {
				status, message = http.StatusBadRequest, "Invalid session ID"
			}
			shared.RespondWithErrorAndLog(w, r.WithContext(ctx), status, message, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(shared.WithLedger(ctx, l)))
	})
}
