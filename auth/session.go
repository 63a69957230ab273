package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/govoffice/docdesk/internal/guard"
	"github.com/govoffice/docdesk/internal/observability"
	"github.com/govoffice/docdesk/models"
	"github.com/govoffice/docdesk/services"
	"github.com/govoffice/docdesk/services/usercache"
	"go.uber.org/zap"
)

// CookieConfig controls the session cookie.
type CookieConfig struct {
	Name   string
	Secure bool
}

// session implements guard.Session.
type session struct {
	info  *guard.UserInfo
	admin bool
}

func (s *session) UserInfo() *guard.UserInfo { return s.info }
func (s *session) IsAuthenticated() bool     { return true }
func (s *session) IsAdmin() bool             { return s.admin }

// newSession builds the session of a signed-in user: role defaults plus explicit grants.
func newSession(user *models.User) *session {
	return &session{
		info: &guard.UserInfo{
			ID:          user.ID,
			Username:    user.Username,
			Role:        user.Role,
			Permissions: user.GrantedPermissions().Slice(),
		},
		admin: user.IsAdmin(),
	}
}

// SessionStore reads and writes cookie or bearer sessions.
type SessionStore struct {
	tokens         *TokenService
	users          usercache.Loader
	cache          *usercache.Cache
	cookie         CookieConfig
	resolveTimeout time.Duration
	logger         *zap.Logger
}

// NewSessionStore creates a SessionStore. Users are looked up through cache.
func NewSessionStore(tokens *TokenService, users usercache.Loader, cache *usercache.Cache, cookie CookieConfig, resolveTimeout time.Duration, logger *zap.Logger) *SessionStore {
	return &SessionStore{
		tokens:         tokens,
		users:          users,
		cache:          cache,
		cookie:         cookie,
		resolveTimeout: resolveTimeout,
		logger:         logger,
	}
}

// Load returns the session of r, or nil when r carries no valid token or
// the token's account was deleted or may no longer sign in. A valid token
// whose user cannot be loaded in time yields an authenticated session
// without user info.
func (s *SessionStore) Load(ctx context.Context, r *http.Request) guard.Session {
	token := s.extractToken(r)
	if token == "" {
		return nil
	}

	claims, err := s.tokens.Validate(token)
	if err != nil {
		s.logger.Debug("ignoring session token", zap.Error(err))
		return nil
	}
	userID, _ := claims.UserID()

	user, err := s.lookupUser(ctx, userID)
	switch {
	case err == nil && user.CanSignIn():
		return newSession(user)
	case err == nil:
		s.revoke("inactive", claims)
		return nil
	case services.IsNotFoundError(err):
		s.revoke("not_found", claims)
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		s.degrade("timeout", claims, err)
	default:
		s.degrade("lookup_failed", claims, err)
	}
	return &session{}
}

// lookupUser bounds the user lookup by the resolve timeout even when the
// loader does not observe ctx.
func (s *SessionStore) lookupUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.resolveTimeout)
	defer cancel()

	type result struct {
		user *models.User
		err  error
	}
	done := make(chan result, 1)
	go func() {
		user, err := s.cache.Lookup(ctx, s.users, id)
		done <- result{user, err}
	}()

	select {
	case res := <-done:
		return res.user, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *SessionStore) degrade(reason string, claims *Claims, err error) {
	observability.RecordSessionDegraded(reason)
	fields := []zap.Field{
		zap.String("reason", reason),
		zap.String("subject", claims.Subject),
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	s.logger.Warn("session resolved without user info", fields...)
}

func (s *SessionStore) revoke(reason string, claims *Claims) {
	observability.RecordSessionRevoked(reason)
	s.logger.Info("ignoring session of unavailable account",
		zap.String("reason", reason),
		zap.String("subject", claims.Subject))
}

// Issue signs a token for user, sets the session cookie and returns the token.
func (s *SessionStore) Issue(w http.ResponseWriter, user *models.User) (string, error) {
	token, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		return "", err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     s.cookie.Name,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		MaxAge:   int(s.tokens.TTL().Seconds()),
		HttpOnly: true,
		Secure:   s.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	s.cache.Set(user)
	return token, nil
}

// Logout clears the session cookie and evicts the cached user.
// It returns the user id of the ended session, or uuid.Nil when there was none.
func (s *SessionStore) Logout(w http.ResponseWriter, r *http.Request) uuid.UUID {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookie.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	token := s.extractToken(r)
	if token == "" {
		return uuid.Nil
	}
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return uuid.Nil
	}
	id, _ := claims.UserID()
	s.cache.Invalidate(id)
	return id
}

// extractToken prefers the Authorization header over the session cookie.
func (s *SessionStore) extractToken(r *http.Request) string {
	if scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " "); ok && strings.EqualFold(scheme, "bearer") {
		return strings.TrimSpace(token)
	}
	if cookie, err := r.Cookie(s.cookie.Name); err == nil {
		return cookie.Value
	}
	return ""
}
