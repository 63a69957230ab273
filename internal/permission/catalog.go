package permission

import (
	"sort"
	"strings"
)

// Permission is a capability token of the form "<module>:<action>", or one of
// the sentinel forms "admin:<name>" and "role:<name>".
type Permission string

// Role identifies a user classification. A user holds exactly one role.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleSuperuser  Role = "superuser"
	RoleUser       Role = "user"
	RoleUnverified Role = "unverified"
)

// Wildcard in a role default set stands for every catalog permission.
const Wildcard Permission = "*"

const (
	separator   = ":"
	adminPrefix = "admin:"
	rolePrefix  = "role:"
)

// Module keys
const (
	ModuleDocuments  = "documents"
	ModuleDispatches = "dispatches"
	ModuleProjects   = "projects"
	ModuleVendors    = "vendors"
	ModuleAgencies   = "agencies"
	ModuleStaff      = "staff"
	ModuleCalendar   = "calendar"
	ModuleReminders  = "reminders"
	ModuleReports    = "reports"
	ModuleUsers      = "users"
	ModuleRoles      = "roles"
	ModuleSettings   = "settings"
	ModuleAudit      = "audit"
)

// Action keys
const (
	ActionRead    = "read"
	ActionCreate  = "create"
	ActionUpdate  = "update"
	ActionDelete  = "delete"
	ActionExport  = "export"
	ActionApprove = "approve"
	ActionAssign  = "assign"
	ActionManage  = "manage"
)

var moduleLabels = map[string]string{
	ModuleDocuments:  "Documents",
	ModuleDispatches: "Dispatches",
	ModuleProjects:   "Contract Cases",
	ModuleVendors:    "Vendors",
	ModuleAgencies:   "Agencies",
	ModuleStaff:      "Staff",
	ModuleCalendar:   "Calendar",
	ModuleReminders:  "Reminders",
	ModuleReports:    "Reports",
	ModuleUsers:      "Users",
	ModuleRoles:      "Roles",
	ModuleSettings:   "Settings",
	ModuleAudit:      "Audit Log",
}

var actionLabels = map[string]string{
	ActionRead:    "View",
	ActionCreate:  "Create",
	ActionUpdate:  "Edit",
	ActionDelete:  "Delete",
	ActionExport:  "Export",
	ActionApprove: "Approve",
	ActionAssign:  "Assign",
	ActionManage:  "Manage",
}

// moduleActions lists the actions each module supports. Order is the display order.
var moduleActions = map[string][]string{
	ModuleDocuments:  {ActionRead, ActionCreate, ActionUpdate, ActionDelete, ActionExport, ActionApprove},
	ModuleDispatches: {ActionRead, ActionCreate, ActionUpdate, ActionDelete, ActionApprove},
	ModuleProjects:   {ActionRead, ActionCreate, ActionUpdate, ActionDelete, ActionAssign},
	ModuleVendors:    {ActionRead, ActionCreate, ActionUpdate, ActionDelete},
	ModuleAgencies:   {ActionRead, ActionCreate, ActionUpdate, ActionDelete},
	ModuleStaff:      {ActionRead, ActionCreate, ActionUpdate, ActionDelete},
	ModuleCalendar:   {ActionRead, ActionCreate, ActionUpdate, ActionDelete},
	ModuleReminders:  {ActionRead, ActionCreate, ActionDelete},
	ModuleReports:    {ActionRead, ActionExport},
	ModuleUsers:      {ActionRead, ActionCreate, ActionUpdate, ActionDelete},
	ModuleRoles:      {ActionRead, ActionManage},
	ModuleSettings:   {ActionRead, ActionManage},
	ModuleAudit:      {ActionRead},
}

// moduleOrder is the display order of modules.
var moduleOrder = []string{
	ModuleDocuments,
	ModuleDispatches,
	ModuleProjects,
	ModuleVendors,
	ModuleAgencies,
	ModuleStaff,
	ModuleCalendar,
	ModuleReminders,
	ModuleReports,
	ModuleUsers,
	ModuleRoles,
	ModuleSettings,
	ModuleAudit,
}

// System-level capabilities, displayed as "System: <name>".
const (
	AdminDatabase Permission = "admin:database"
	AdminBackup   Permission = "admin:backup"
	AdminSettings Permission = "admin:settings"
)

// System returns the system-level capabilities.
func System() []Permission {
	return []Permission{AdminDatabase, AdminBackup, AdminSettings}
}

// roleDefaults maps each role to its default permission set.
// A role with no entry has no defaults.
var roleDefaults = map[Role][]Permission{
	RoleAdmin: {Wildcard},
	RoleSuperuser: {
		Wildcard,
		AdminDatabase,
		AdminBackup,
		AdminSettings,
	},
	RoleUser: {
		New(ModuleDocuments, ActionRead),
		New(ModuleDocuments, ActionCreate),
		New(ModuleDocuments, ActionUpdate),
		New(ModuleDispatches, ActionRead),
		New(ModuleDispatches, ActionCreate),
		New(ModuleProjects, ActionRead),
		New(ModuleVendors, ActionRead),
		New(ModuleAgencies, ActionRead),
		New(ModuleStaff, ActionRead),
		New(ModuleCalendar, ActionRead),
		New(ModuleCalendar, ActionCreate),
		New(ModuleReminders, ActionRead),
		New(ModuleReminders, ActionCreate),
	},
	RoleUnverified: {},
}

// New builds a categorical permission from a module and an action key.
func New(module, action string) Permission {
	return Permission(module + separator + action)
}

// Split returns the module and action parts of a categorical permission.
// ok is false when the token has no separator.
func (p Permission) Split() (module, action string, ok bool) {
	return strings.Cut(string(p), separator)
}

// IsSentinel reports whether p is an "admin:" or "role:" token.
func (p Permission) IsSentinel() bool {
	s := string(p)
	return strings.HasPrefix(s, adminPrefix) || strings.HasPrefix(s, rolePrefix)
}

// ModuleLabel returns the human label of a module key, or the key itself when unknown.
func ModuleLabel(key string) string {
	if label, ok := moduleLabels[key]; ok {
		return label
	}
	return key
}

// ActionLabel returns the human label of an action key, or the key itself when unknown.
func ActionLabel(key string) string {
	if label, ok := actionLabels[key]; ok {
		return label
	}
	return key
}

// Modules returns the module keys in display order.
func Modules() []string {
	out := make([]string, len(moduleOrder))
	copy(out, moduleOrder)
	return out
}

// ModuleActions returns the actions supported by a module, nil when unknown.
func ModuleActions(module string) []string {
	actions, ok := moduleActions[module]
	if !ok {
		return nil
	}
	out := make([]string, len(actions))
	copy(out, actions)
	return out
}

// All returns every categorical permission in the catalog, in display order.
func All() []Permission {
	var out []Permission
	for _, module := range moduleOrder {
		for _, action := range moduleActions[module] {
			out = append(out, New(module, action))
		}
	}
	return out
}

// Roles returns the known roles sorted by name.
func Roles() []Role {
	out := make([]Role, 0, len(roleDefaults))
	for role := range roleDefaults {
		out = append(out, role)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// IsKnownRole reports whether role appears in the catalog.
func IsKnownRole(role Role) bool {
	_, ok := roleDefaults[role]
	return ok
}

// DefaultPermissions returns the raw default set of a role, which may contain Wildcard.
func DefaultPermissions(role Role) []Permission {
	perms, ok := roleDefaults[role]
	if !ok {
		return nil
	}
	out := make([]Permission, len(perms))
	copy(out, perms)
	return out
}

// ExpandDefaults returns the default set of a role with Wildcard replaced by All().
func ExpandDefaults(role Role) Set {
	set := NewSet()
	for _, p := range roleDefaults[role] {
		if p == Wildcard {
			set.Add(All()...)
			continue
		}
		set.Add(p)
	}
	return set
}

// IsGrantable reports whether p may be stored as an explicit user grant:
// a catalog permission, a known system capability, or a non-empty role label.
func IsGrantable(p Permission) bool {
	s := string(p)
	switch {
	case strings.HasPrefix(s, rolePrefix):
		return len(s) > len(rolePrefix)
	case strings.HasPrefix(s, adminPrefix):
		for _, sys := range System() {
			if p == sys {
				return true
			}
		}
		return false
	}

	module, action, ok := p.Split()
	if !ok {
		return false
	}
	for _, a := range moduleActions[module] {
		if a == action {
			return true
		}
	}
	return false
}
