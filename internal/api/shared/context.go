package shared

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/qbank-api/internal/ledger"
)

// ContextKey is the type of the request context keys set by the middleware.
type ContextKey string

// Context keys for values attached to a request.
const (
	// UserIDContextKey holds the uuid.UUID of an authenticated caller.
	UserIDContextKey ContextKey = "userID"

	// TraceIDKey holds the request trace ID.
	TraceIDKey ContextKey = "traceID"

	// SessionIDKey holds the client session ID.
	SessionIDKey ContextKey = "sessionID"

	// LedgerKey holds the session's *ledger.Ledger.
	LedgerKey ContextKey = "ledger"
)

// TraceIDLength is the length of a generated trace ID in hex characters.
const TraceIDLength = 32

// NewTraceID returns a random 32 character hex trace ID.
func NewTraceID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// SetTraceID adds a new trace ID to the context.
func SetTraceID(ctx context.Context) context.Context {
	return context.WithValue(ctx, TraceIDKey, NewTraceID())
}

// GetTraceID returns the trace ID of the context, or "".
func GetTraceID(ctx context.Context) string {
	traceID, _ := ctx.Value(TraceIDKey).(string)
	return traceID
}

// WithUserID marks the context as authenticated as userID.
func WithUserID(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, UserIDContextKey, userID)
}

// GetUserID returns the authenticated user, or uuid.Nil for anonymous requests.
func GetUserID(ctx context.Context) uuid.UUID {
	userID, _ := ctx.Value(UserIDContextKey).(uuid.UUID)
	return userID
}

// WithSessionID attaches the client session ID.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, SessionIDKey, sessionID)
}

// GetSessionID returns the client session ID, or "".
func GetSessionID(ctx context.Context) string {
	id, _ := ctx.Value(SessionIDKey).(string)
	return id
}

// WithLedger attaches the session's ledger.
func WithLedger(ctx context.Context, l *ledger.Ledger) context.Context {
	return context.WithValue(ctx, LedgerKey, l)
}

// GetLedger returns the session's ledger, or nil when no session middleware ran.
func GetLedger(ctx context.Context) *ledger.Ledger {
	l, _ := ctx.Value(LedgerKey).(*ledger.Ledger)
	return l
}
