package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/phrazzld/qbank-api/internal/api/shared"
	"github.com/phrazzld/qbank-api/internal/auth"
	"github.com/phrazzld/qbank-api/internal/platform/logger"
)

// AuthMiddleware resolves the optional bearer token of a request.
type AuthMiddleware struct {
	validator auth.TokenValidator
}

// NewAuthMiddleware creates a new AuthMiddleware.
func NewAuthMiddleware(validator auth.TokenValidator) *AuthMiddleware {
	if validator == nil {
		panic("validator cannot be nil")
	}
	return &AuthMiddleware{validator: validator}
}

// Authenticate attaches the caller's user ID when a bearer token is present.
// Requests without an Authorization header continue anonymously; a header
// that is malformed or carries an invalid token is rejected with 401.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}

		scheme, token, ok := strings.Cut(header, " ")
		token = strings.TrimSpace(token)
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid authorization format")
			return
		}

		claims, err := m.validator.ValidateToken(r.Context(), token)
		if err != nil {
			message := "Invalid token"
			if errors.Is(err, auth.ErrExpiredToken) {
				message = "Token expired"
			}
			shared.RespondWithErrorAndLog(w, r, http.StatusUnauthorized, message, err, shared.WithElevatedLogLevel())
			return
		}

		ctx := shared.WithUserID(r.Context(), claims.UserID)
		log := logger.FromContext(ctx).With(slog.String("user_id", claims.UserID.String()))
		ctx = logger.WithLogger(ctx, log)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
