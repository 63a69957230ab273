package middleware

import (
	"context"
	"net/http"

	"github.com/govoffice/docdesk/internal/guard"
	"go.uber.org/zap"
)

// SessionLoader returns the session of a request, or nil when the request carries none.
// Implementations must honour ctx cancellation.
type SessionLoader interface {
	Load(ctx context.Context, r *http.Request) guard.Session
}

// AuthMiddleware resolves the auth state of every request before any gate runs.
type AuthMiddleware struct {
	sessions SessionLoader
	resolver *guard.Resolver
	logger   *zap.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(sessions SessionLoader, resolver *guard.Resolver, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		sessions: sessions,
		resolver: resolver,
		logger:   logger,
	}
}

// LoadAuthState stores the request's guard.AuthState in the context.
// It never rejects a request; gates decide what the state allows.
func (m *AuthMiddleware) LoadAuthState(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var session guard.Session
		if !m.resolver.AuthDisabled() && m.sessions != nil {
			session = m.sessions.Load(ctx, r)
		}
		state := m.resolver.Resolve(session)

		if state.IsAuthenticated {
			m.logger.Debug("resolved auth state",
				zap.String("request_id", GetRequestIDFromContext(ctx)),
				zap.String("username", state.Username),
				zap.String("role", string(state.Role)),
				zap.Int("permissions", len(state.Permissions)))
		}

		next.ServeHTTP(w, r.WithContext(WithAuthState(ctx, state)))
	})
}
