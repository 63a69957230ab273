package handlers

import (
	"net/http"

	"github.com/govoffice/docdesk/internal/permission"
	"github.com/govoffice/docdesk/utils"
	"go.uber.org/zap"
)

// maxFormatTokens bounds GET /permissions/format.
const maxFormatTokens = 100

// ModuleCatalog is one module of the permission catalog.
type ModuleCatalog struct {
	Module      string                           `json:"module"`
	Label       string                           `json:"label"`
	Permissions []permission.FormattedPermission `json:"permissions"`
}

// CatalogResponse is the body of GET /api/v1/permissions.
type CatalogResponse struct {
	Modules []ModuleCatalog                  `json:"modules"`
	System  []permission.FormattedPermission `json:"system"`
}

// RoleResponse describes one role and what it grants by default.
type RoleResponse struct {
	Role        permission.Role                  `json:"role"`
	IsAdmin     bool                             `json:"is_admin"`
	Defaults    []permission.Permission          `json:"defaults"`
	Permissions []permission.FormattedPermission `json:"permissions"`
}

// PermissionHandler serves the read-only permission catalog.
type PermissionHandler struct {
	logger *zap.Logger
}

// NewPermissionHandler creates a new PermissionHandler
func NewPermissionHandler(logger *zap.Logger) *PermissionHandler {
	return &PermissionHandler{logger: logger}
}

// HandleCatalog handles GET /api/v1/permissions
func (h *PermissionHandler) HandleCatalog(w http.ResponseWriter, r *http.Request) {
	modules := permission.Modules()
	resp := CatalogResponse{
		Modules: make([]ModuleCatalog, 0, len(modules)),
		System:  permission.FormatAll(permission.System()),
	}
	for _, m := range modules {
		actions := permission.ModuleActions(m)
		perms := make([]permission.Permission, len(actions))
		for i, a := range actions {
			perms[i] = permission.New(m, a)
		}
		resp.Modules = append(resp.Modules, ModuleCatalog{
			Module:      m,
			Label:       permission.ModuleLabel(m),
			Permissions: permission.FormatAll(perms),
		})
	}

	_ = utils.WriteOK(w, resp)
}

// HandleRoles handles GET /api/v1/roles
func (h *PermissionHandler) HandleRoles(w http.ResponseWriter, r *http.Request) {
	roles := permission.Roles()
	resp := make([]RoleResponse, len(roles))
	for i, role := range roles {
		resp[i] = RoleResponse{
			Role:        role,
			IsAdmin:     role == permission.RoleAdmin || role == permission.RoleSuperuser,
			Defaults:    permission.DefaultPermissions(role),
			Permissions: permission.FormatAll(permission.ExpandDefaults(role).Slice()),
		}
	}

	_ = utils.WriteOK(w, resp)
}

// HandleFormat handles GET /api/v1/permissions/format?p=<token>&p=<token>
// An empty token formats as unrestricted.
func (h *PermissionHandler) HandleFormat(w http.ResponseWriter, r *http.Request) {
	raw, ok := r.URL.Query()["p"]
	if !ok {
		_ = utils.WriteBadRequest(w, "query parameter p is required", nil)
		return
	}
	if len(raw) > maxFormatTokens {
		_ = utils.WriteBadRequest(w, "too many permissions", map[string]interface{}{"max": maxFormatTokens})
		return
	}

	perms := make([]permission.Permission, len(raw))
	for i, p := range raw {
		perms[i] = permission.Permission(p)
	}
	_ = utils.WriteOK(w, permission.FormatAll(perms))
}
