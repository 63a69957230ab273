package routes

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/govoffice/docdesk/internal/guard"
	"github.com/govoffice/docdesk/internal/permission"
	"github.com/govoffice/docdesk/middleware"
	"go.uber.org/zap"
)

// Screen is a navigable page of the frontend and the gate in front of it.
type Screen struct {
	Path  string
	Title string
	Gate  guard.GateOptions
}

var adminRoles = []permission.Role{permission.RoleAdmin, permission.RoleSuperuser}

// Screens returns the screen table. Denied visitors are redirected to
// loginPath, or to landingPath when signed in without privilege.
func Screens(loginPath, landingPath string) []Screen {
	gate := func(perms ...permission.Permission) guard.GateOptions {
		return guard.GateOptions{
			RequireAuth: true,
			Permissions: perms,
			RedirectTo:  loginPath,
			LandingPath: landingPath,
			Mode:        guard.ModeRedirect,
		}
	}
	read := func(module string) permission.Permission {
		return permission.New(module, permission.ActionRead)
	}

	adminGate := gate()
	adminGate.Roles = adminRoles

	return []Screen{
		{Path: loginPath, Title: "Sign in", Gate: guard.GateOptions{Disabled: true}},
		{Path: "/", Title: "Home", Gate: gate()},
		{Path: "/documents", Title: "Documents", Gate: gate(read(permission.ModuleDocuments))},
		{Path: "/dispatches", Title: "Dispatches", Gate: gate(read(permission.ModuleDispatches))},
		{Path: "/projects", Title: "Contract Cases", Gate: gate(read(permission.ModuleProjects))},
		{Path: "/vendors", Title: "Vendors", Gate: gate(read(permission.ModuleVendors))},
		{Path: "/agencies", Title: "Agencies", Gate: gate(read(permission.ModuleAgencies))},
		{Path: "/staff", Title: "Staff", Gate: gate(read(permission.ModuleStaff))},
		{Path: "/calendar", Title: "Calendar", Gate: gate(read(permission.ModuleCalendar))},
		{Path: "/reminders", Title: "Reminders", Gate: gate(read(permission.ModuleReminders))},
		{Path: "/reports", Title: "Reports", Gate: gate(read(permission.ModuleReports))},
		{Path: "/admin/users", Title: "Users", Gate: gate(read(permission.ModuleUsers))},
		{Path: "/admin/roles", Title: "Roles", Gate: gate(read(permission.ModuleRoles))},
		{Path: "/admin/settings", Title: "Settings", Gate: gate(permission.AdminSettings)},
		{Path: "/admin/audit", Title: "Audit Log", Gate: adminGate},
	}
}

// mountScreens serves the single-page shell from staticDir behind each
// screen's gate. Sub-paths of a screen share its gate.
func mountScreens(r chi.Router, gate *middleware.Gate, screens []Screen, staticDir string, logger *zap.Logger) {
	index := filepath.Join(staticDir, "index.html")
	if _, err := os.Stat(index); err != nil {
		logger.Warn("frontend shell not found, screens not served",
			zap.String("static_dir", staticDir),
			zap.Error(err))
		return
	}

	shell := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		http.ServeFile(w, r, index)
	})

	assets := http.StripPrefix("/assets/", http.FileServer(http.Dir(filepath.Join(staticDir, "assets"))))
	r.Handle("/assets/*", assets)

	for _, s := range screens {
		protected := gate.Protect(s.Gate)(shell)
		r.Method(http.MethodGet, s.Path, protected)
		if s.Path != "/" {
			r.Method(http.MethodGet, s.Path+"/*", protected)
		}
	}
	logger.Info("frontend screens mounted", zap.Int("screens", len(screens)))
}
