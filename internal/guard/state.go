package guard

import (
	"github.com/google/uuid"
	"github.com/govoffice/docdesk/internal/permission"
)

// DevUsername is the identity reported when authorization is disabled.
const DevUsername = "developer"

// devUserID is fixed so audit rows written in development can be correlated.
var devUserID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

// UserInfo is what the session collaborator knows about the current user.
type UserInfo struct {
	ID          uuid.UUID
	Username    string
	Role        permission.Role
	Permissions []permission.Permission
}

// Session is the per-request view of the authentication collaborator.
type Session interface {
	// UserInfo returns the current user, or nil when unknown.
	UserInfo() *UserInfo
	IsAuthenticated() bool
	IsAdmin() bool
}

// AuthState is the resolved authorization view of one request.
// It is rebuilt for every evaluation and never modified afterwards.
type AuthState struct {
	IsAuthenticated bool            `json:"is_authenticated"`
	IsAdmin         bool            `json:"is_admin"`
	UserID          *uuid.UUID      `json:"user_id"`
	Username        string          `json:"username,omitempty"`
	Role            permission.Role `json:"role,omitempty"`
	Permissions     permission.Set  `json:"-"`
}

// Anonymous returns the state of a request without a session.
func Anonymous() AuthState {
	return AuthState{Permissions: permission.NewSet()}
}

// Resolver builds AuthState values from sessions.
type Resolver struct {
	authDisabled bool
}

// NewResolver creates a Resolver. authDisabled must come from deploy-time
// configuration: it replaces every session with the development identity.
func NewResolver(authDisabled bool) *Resolver {
	return &Resolver{authDisabled: authDisabled}
}

// AuthDisabled reports whether the resolver bypasses real sessions.
func (r *Resolver) AuthDisabled() bool {
	return r.authDisabled
}

// Resolve produces the AuthState for a session. It never fails: a session that
// claims to be authenticated but has no user info resolves to an authenticated
// state with no role and no permissions.
func (r *Resolver) Resolve(s Session) AuthState {
	if r.authDisabled {
		return DevelopmentState()
	}
	if s == nil {
		return Anonymous()
	}

	state := AuthState{
		IsAuthenticated: s.IsAuthenticated(),
		IsAdmin:         s.IsAdmin(),
		Permissions:     permission.NewSet(),
	}

	info := s.UserInfo()
	if info == nil {
		return state
	}

	id := info.ID
	state.UserID = &id
	state.Username = info.Username
	state.Role = info.Role
	state.Permissions.Add(info.Permissions...)
	return state
}

// DevelopmentState is the fixed super-user identity used when authorization is disabled.
func DevelopmentState() AuthState {
	id := devUserID
	perms := permission.NewSet(permission.All()...)
	perms.Add(permission.System()...)
	return AuthState{
		IsAuthenticated: true,
		IsAdmin:         true,
		UserID:          &id,
		Username:        DevUsername,
		Role:            permission.RoleSuperuser,
		Permissions:     perms,
	}
}

// HasPermission reports whether the state was granted p. The admin override is not applied.
func (s AuthState) HasPermission(p permission.Permission) bool {
	return s.Permissions.Has(p)
}

// PermissionList returns the granted permissions sorted.
func (s AuthState) PermissionList() []permission.Permission {
	return s.Permissions.Slice()
}
