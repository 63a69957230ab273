package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/govoffice/docdesk/internal/guard"
	"github.com/govoffice/docdesk/internal/observability"
	"github.com/govoffice/docdesk/internal/permission"
	"github.com/govoffice/docdesk/middleware"
	"github.com/govoffice/docdesk/models"
	"github.com/govoffice/docdesk/services"
	"github.com/govoffice/docdesk/services/audit"
	"github.com/govoffice/docdesk/utils"
	"go.uber.org/zap"
)

// UserStore is the part of the user repository the login flow needs.
type UserStore interface {
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

// Auditor records authentication events.
type Auditor interface {
	LogLoginSucceeded(user *models.User, meta audit.RequestMeta) error
	LogLoginFailed(username, reason string, meta audit.RequestMeta) error
	LogLogout(actor audit.Actor, meta audit.RequestMeta) error
}

// Paths are the screens the login flow sends users to.
type Paths struct {
	Login   string
	Landing string
}

// Handler serves login, logout and the current session.
type Handler struct {
	users    UserStore
	sessions *SessionStore
	hasher   PasswordHasher
	auditor  Auditor
	paths    Paths
	logger   *zap.Logger
}

// NewHandler creates a new auth handler. auditor may be nil.
func NewHandler(users UserStore, sessions *SessionStore, hasher PasswordHasher, auditor Auditor, paths Paths, logger *zap.Logger) *Handler {
	if paths.Login == "" {
		paths.Login = guard.DefaultLoginPath
	}
	if paths.Landing == "" {
		paths.Landing = guard.DefaultLandingPath
	}
	return &Handler{
		users:    users,
		sessions: sessions,
		hasher:   hasher,
		auditor:  auditor,
		paths:    paths,
		logger:   logger,
	}
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Username  string `json:"username" validate:"required,max=64"`
	Password  string `json:"password" validate:"required,max=128"`
	ReturnURL string `json:"returnUrl,omitempty"`
}

// LoginResponse tells the client where to go next. The session token only
// travels in the HttpOnly cookie.
type LoginResponse struct {
	Redirect string       `json:"redirect"`
	Session  *SessionView `json:"session"`
}

// SessionView is the client-facing view of an AuthState.
type SessionView struct {
	IsAuthenticated bool                             `json:"is_authenticated"`
	IsAdmin         bool                             `json:"is_admin"`
	UserID          *uuid.UUID                       `json:"user_id,omitempty"`
	Username        string                           `json:"username,omitempty"`
	Role            permission.Role                  `json:"role,omitempty"`
	Permissions     []permission.FormattedPermission `json:"permissions"`
}

// NewSessionView formats state for display.
func NewSessionView(state guard.AuthState) *SessionView {
	return &SessionView{
		IsAuthenticated: state.IsAuthenticated,
		IsAdmin:         state.IsAdmin,
		UserID:          state.UserID,
		Username:        state.Username,
		Role:            state.Role,
		Permissions:     permission.FormatAll(state.PermissionList()),
	}
}

// HandleLogin handles POST /auth/login
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	meta := middleware.RequestMeta(r)

	var req LoginRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		_ = utils.WriteBadRequest(w, "Validation failed", fieldDetails(err))
		return
	}

	user, err := h.users.GetByUsername(ctx, req.Username)
	if err != nil && !services.IsNotFoundError(err) {
		h.logger.Error("failed to load user for login",
			zap.String("request_id", meta.RequestID),
			zap.Error(err))
		observability.RecordLogin("error")
		_ = utils.WriteInternalServerError(w, "")
		return
	}

	if user == nil {
		h.hasher.Verify(string(dummyHash), req.Password)
		h.reject(w, req.Username, "invalid_credentials", meta)
		return
	}
	if !h.hasher.Verify(user.PasswordHash, req.Password) {
		h.reject(w, req.Username, "invalid_credentials", meta)
		return
	}
	if !user.CanSignIn() {
		h.reject(w, req.Username, "inactive", meta)
		return
	}

	_, err = h.sessions.Issue(w, user)
	if err != nil {
		h.logger.Error("failed to issue session", zap.String("request_id", meta.RequestID), zap.Error(err))
		observability.RecordLogin("error")
		_ = utils.WriteInternalServerError(w, "")
		return
	}

	if err := h.users.TouchLastLogin(ctx, user.ID, time.Now()); err != nil {
		h.logger.Warn("failed to record last login", zap.String("user_id", user.ID.String()), zap.Error(err))
	}
	if h.auditor != nil {
		_ = h.auditor.LogLoginSucceeded(user, meta)
	}
	observability.RecordLogin("success")

	h.logger.Info("user signed in",
		zap.String("request_id", meta.RequestID),
		zap.String("username", user.Username),
		zap.String("role", string(user.Role)))

	_ = utils.WriteOK(w, LoginResponse{
		Redirect: guard.SafeReturnURL(req.ReturnURL, h.paths.Landing),
		Session:  NewSessionView(guard.NewResolver(false).Resolve(newSession(user))),
	})
}

func (h *Handler) reject(w http.ResponseWriter, username, reason string, meta audit.RequestMeta) {
	observability.RecordLogin(reason)
	if h.auditor != nil {
		_ = h.auditor.LogLoginFailed(username, reason, meta)
	}
	h.logger.Info("login rejected",
		zap.String("request_id", meta.RequestID),
		zap.String("username", username),
		zap.String("reason", reason))

	if reason == "inactive" {
		_ = utils.WriteForbidden(w, services.ErrUserInactive.Message)
		return
	}
	_ = utils.WriteUnauthorized(w, services.ErrInvalidCredentials.Message)
}

// HandleLogout handles POST /auth/logout
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())
	if id := h.sessions.Logout(w, r); id != uuid.Nil && h.auditor != nil {
		if actor.UserID == nil {
			actor.UserID = &id
		}
		_ = h.auditor.LogLogout(actor, middleware.RequestMeta(r))
	}

	_ = utils.WriteOK(w, map[string]string{"redirect": h.paths.Login})
}

// HandleMe handles GET /auth/me
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	state := middleware.GetAuthState(r.Context())
	if state == nil {
		anonymous := guard.Anonymous()
		state = &anonymous
	}
	_ = utils.WriteOK(w, NewSessionView(*state))
}

func fieldDetails(err error) map[string]interface{} {
	fields := utils.GetValidationFields(err)
	details := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		details[k] = v
	}
	return details
}
