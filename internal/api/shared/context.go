package shared

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/learnwell/microlearn-api/internal/domain"
)

// ContextKey is the key type for request context values.
type ContextKey string

// Context keys for various values
const (
	// UserIDContextKey is the context key for the authenticated user ID (int64)
	UserIDContextKey ContextKey = "userID"

	// RoleContextKey is the context key for the authenticated user's role
	RoleContextKey ContextKey = "role"

	// TraceIDKey is the key for the trace ID in the request context
	TraceIDKey ContextKey = "traceID"
)

// SetTraceID adds a new trace ID to the context.
// This is useful for correlating logs and error responses.
func SetTraceID(ctx context.Context) context.Context {
	return context.WithValue(ctx, TraceIDKey, generateTraceID())
}

// GetTraceID retrieves the trace ID from the context.
// If no trace ID exists, it returns an empty string.
func GetTraceID(ctx context.Context) string {
	traceID, ok := ctx.Value(TraceIDKey).(string)
	if !ok {
		return ""
	}
	return traceID
}

// generateTraceID returns a 32-character hex string.
func generateTraceID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// WithPrincipal stores the authenticated user ID and role in the context.
func WithPrincipal(ctx context.Context, userID int64, role domain.Role) context.Context {
	ctx = context.WithValue(ctx, UserIDContextKey, userID)
	return context.WithValue(ctx, RoleContextKey, role)
}

// GetPrincipal extracts the authenticated user ID and role.
// The boolean is false when the request was not authenticated.
func GetPrincipal(ctx context.Context) (int64, domain.Role, bool) {
	userID, ok := ctx.Value(UserIDContextKey).(int64)
	if !ok || userID <= 0 {
		return 0, "", false
	}
	role, ok := ctx.Value(RoleContextKey).(domain.Role)
	if !ok {
		return 0, "", false
	}
	return userID, role, true
}
