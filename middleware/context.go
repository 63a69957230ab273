package middleware

import (
	"context"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/govoffice/docdesk/internal/guard"
	"github.com/govoffice/docdesk/services/audit"
)

// Context key type to avoid collisions
type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"

	// AuthStateKey is the context key for the resolved guard.AuthState
	AuthStateKey contextKey = "auth_state"
)

// GetRequestIDFromContext returns the request ID set by WithRequestID or,
// failing that, by chi's RequestID middleware.
func GetRequestIDFromContext(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return chimw.GetReqID(ctx)
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// WithAuthState stores the resolved auth state. The state is copied.
func WithAuthState(ctx context.Context, state guard.AuthState) context.Context {
	return context.WithValue(ctx, AuthStateKey, &state)
}

// GetAuthState returns the auth state of the request, or nil when it has not been resolved.
func GetAuthState(ctx context.Context) *guard.AuthState {
	state, _ := ctx.Value(AuthStateKey).(*guard.AuthState)
	return state
}

// ActorFromContext describes the current user for audit records.
func ActorFromContext(ctx context.Context) audit.Actor {
	state := GetAuthState(ctx)
	if state == nil {
		return audit.Actor{}
	}
	return audit.Actor{UserID: state.UserID, Username: state.Username}
}

// RequestMeta collects the request fields stored with audit records.
// RemoteAddr is expected to have been rewritten by chi's RealIP middleware.
func RequestMeta(r *http.Request) audit.RequestMeta {
	return audit.RequestMeta{
		RequestID: GetRequestIDFromContext(r.Context()),
		IPAddress: clientIP(r),
		UserAgent: r.UserAgent(),
	}
}
