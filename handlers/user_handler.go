package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/govoffice/docdesk/internal/permission"
	"github.com/govoffice/docdesk/middleware"
	"github.com/govoffice/docdesk/models"
	"github.com/govoffice/docdesk/services/audit"
	"github.com/govoffice/docdesk/services/users"
	"github.com/govoffice/docdesk/utils"
	"go.uber.org/zap"
)

// UserService defines the account operations used by UserHandler
type UserService interface {
	Get(ctx context.Context, id uuid.UUID) (*models.User, error)
	List(ctx context.Context, limit, offset int) ([]*models.User, error)
	Create(ctx context.Context, in users.CreateInput, actor audit.Actor, meta audit.RequestMeta) (*models.User, error)
	Update(ctx context.Context, id uuid.UUID, in users.UpdateInput, actor audit.Actor, meta audit.RequestMeta) (*models.User, error)
	Delete(ctx context.Context, id uuid.UUID, actor audit.Actor, meta audit.RequestMeta) error
}

// CreateUserRequest represents a request to create an account
type CreateUserRequest struct {
	Username    string                  `json:"username" validate:"required,min=3,max=64"`
	Email       string                  `json:"email" validate:"required,email,max=255"`
	FullName    string                  `json:"full_name" validate:"max=128"`
	Password    string                  `json:"password" validate:"required,min=8,max=128"`
	Role        permission.Role         `json:"role" validate:"required,role"`
	Permissions []permission.Permission `json:"permissions" validate:"dive,permission"`
}

// UpdateUserRequest represents a partial account update.
// Permissions replaces the explicit grants when present.
type UpdateUserRequest struct {
	Email       *string                  `json:"email,omitempty" validate:"omitempty,email,max=255"`
	FullName    *string                  `json:"full_name,omitempty" validate:"omitempty,max=128"`
	Password    *string                  `json:"password,omitempty" validate:"omitempty,min=8,max=128"`
	Role        *permission.Role         `json:"role,omitempty" validate:"omitempty,role"`
	Permissions *[]permission.Permission `json:"permissions,omitempty"`
	Active      *bool                    `json:"active,omitempty"`
}

// UserResponse represents an account in API responses
type UserResponse struct {
	ID          uuid.UUID                        `json:"id"`
	Username    string                           `json:"username"`
	Email       string                           `json:"email"`
	FullName    string                           `json:"full_name"`
	Role        permission.Role                  `json:"role"`
	Active      bool                             `json:"active"`
	IsAdmin     bool                             `json:"is_admin"`
	Permissions []permission.FormattedPermission `json:"permissions"`
	Granted     []permission.FormattedPermission `json:"granted"`
	LastLoginAt *string                          `json:"last_login_at,omitempty"`
	CreatedAt   string                           `json:"created_at"`
	UpdatedAt   string                           `json:"updated_at"`
}

// UserHandler handles account administration requests
type UserHandler struct {
	service UserService
	logger  *zap.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(service UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		service: service,
		logger:  logger,
	}
}

// HandleListUsers handles GET /api/v1/users
func (h *UserHandler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := utils.ParsePagination(r)
	if err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}

	list, err := h.service.List(r.Context(), limit, offset)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	responses := make([]UserResponse, len(list))
	for i, u := range list {
		responses[i] = userToResponse(u)
	}
	_ = utils.WriteOK(w, responses)
}

// HandleGetUser handles GET /api/v1/users/{id}
func (h *UserHandler) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := utils.ParseUUID(chi.URLParam(r, "id"), "id")
	if err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}

	user, err := h.service.Get(r.Context(), id)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, userToResponse(user))
}

// HandleCreateUser handles POST /api/v1/users
func (h *UserHandler) HandleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	user, err := h.service.Create(r.Context(), users.CreateInput{
		Username:    req.Username,
		Email:       req.Email,
		FullName:    req.FullName,
		Password:    req.Password,
		Role:        req.Role,
		Permissions: req.Permissions,
	}, middleware.ActorFromContext(r.Context()), middleware.RequestMeta(r))
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteCreated(w, userToResponse(user))
}

// HandleUpdateUser handles PATCH /api/v1/users/{id}
func (h *UserHandler) HandleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := utils.ParseUUID(chi.URLParam(r, "id"), "id")
	if err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}

	var req UpdateUserRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	user, err := h.service.Update(r.Context(), id, users.UpdateInput{
		Email:       req.Email,
		FullName:    req.FullName,
		Password:    req.Password,
		Role:        req.Role,
		Permissions: req.Permissions,
		Active:      req.Active,
	}, middleware.ActorFromContext(r.Context()), middleware.RequestMeta(r))
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, userToResponse(user))
}

// HandleDeleteUser handles DELETE /api/v1/users/{id}
func (h *UserHandler) HandleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := utils.ParseUUID(chi.URLParam(r, "id"), "id")
	if err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}

	if err := h.service.Delete(r.Context(), id, middleware.ActorFromContext(r.Context()), middleware.RequestMeta(r)); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	utils.WriteNoContent(w)
}

func userToResponse(u *models.User) UserResponse {
	resp := UserResponse{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		FullName:    u.FullName,
		Role:        u.Role,
		Active:      u.Active,
		IsAdmin:     u.IsAdmin(),
		Permissions: permission.FormatAll(u.Permissions),
		Granted:     permission.FormatAll(u.GrantedPermissions().Slice()),
		CreatedAt:   u.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   u.UpdatedAt.Format(time.RFC3339),
	}
	if u.LastLoginAt != nil {
		s := u.LastLoginAt.Format(time.RFC3339)
		resp.LastLoginAt = &s
	}
	return resp
}
