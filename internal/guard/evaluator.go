package guard

import "github.com/govoffice/docdesk/internal/permission"

// Requirement declares what a request needs. The zero value imposes no restriction.
type Requirement struct {
	RequireAuth bool
	Roles       []permission.Role
	Permissions []permission.Permission
}

// IsEmpty reports whether the requirement restricts nothing.
func (r Requirement) IsEmpty() bool {
	return !r.RequireAuth && len(r.Roles) == 0 && len(r.Permissions) == 0
}

// Decision is the result of one evaluation. It is never stored.
type Decision struct {
	IsAllowed         bool
	HasRole           bool
	HasAllPermissions bool
}

// IsUniversalOverride reports whether state satisfies every role and permission
// check unconditionally. All admin-override checks go through here.
func IsUniversalOverride(state AuthState) bool {
	return state.IsAdmin
}

// Evaluator decides requirements against auth states.
type Evaluator struct {
	authDisabled bool
}

// NewEvaluator creates an Evaluator. When authDisabled is true every requirement is allowed.
func NewEvaluator(authDisabled bool) *Evaluator {
	return &Evaluator{authDisabled: authDisabled}
}

// AuthDisabled reports whether the evaluator is in bypass mode.
func (e *Evaluator) AuthDisabled() bool {
	return e.authDisabled
}

// Evaluate checks req against state. It is synchronous and has no side effects.
func (e *Evaluator) Evaluate(req Requirement, state AuthState) Decision {
	hasRole := e.hasRole(req.Roles, state)
	hasAll := e.hasAllPermissions(req.Permissions, state)

	allowed := e.authDisabled ||
		((!req.RequireAuth || state.IsAuthenticated) && hasRole && hasAll)

	return Decision{
		IsAllowed:         allowed,
		HasRole:           hasRole,
		HasAllPermissions: hasAll,
	}
}

func (e *Evaluator) hasRole(roles []permission.Role, state AuthState) bool {
	if len(roles) == 0 || e.authDisabled {
		return true
	}
	for _, role := range roles {
		if role == permission.RoleAdmin && IsUniversalOverride(state) {
			return true
		}
		if state.Role != "" && role == state.Role {
			return true
		}
	}
	return false
}

func (e *Evaluator) hasAllPermissions(perms []permission.Permission, state AuthState) bool {
	if len(perms) == 0 || e.authDisabled || IsUniversalOverride(state) {
		return true
	}
	return state.Permissions.HasAll(perms)
}
