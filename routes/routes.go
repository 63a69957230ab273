package routes

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/govoffice/docdesk/app"
	"github.com/govoffice/docdesk/handlers"
	"github.com/govoffice/docdesk/internal/guard"
	"github.com/govoffice/docdesk/internal/permission"
	"github.com/govoffice/docdesk/middleware"
	"github.com/govoffice/docdesk/utils"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const requestTimeout = 60 * time.Second

// apiGate is the JSON-mode gate options for an API route.
func apiGate(perms ...permission.Permission) guard.GateOptions {
	return guard.GateOptions{RequireAuth: true, Permissions: perms, Mode: guard.ModeJSON}
}

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()
	cfg := deps.Config

	// Core middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(requestTimeout))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health and metrics stay outside the auth state loader.
	var db *sql.DB
	if deps.DB != nil {
		db = deps.DB.DB
	}
	health := handlers.NewHealthHandler(db, deps.AuditService, deps.Logger)
	r.Get("/healthz", health.HandleHealth)
	r.Get("/readyz", health.HandleReadiness)
	if cfg.Observability.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(deps.AuthMiddleware.LoadAuthState)
		protect := deps.Gate.Protect

		r.Route("/auth", func(r chi.Router) {
			r.With(deps.LoginLimiter.Middleware).Post("/login", handlers.AuthHandlerFunc(deps, handlers.AuthLogin))
			r.Post("/logout", handlers.AuthHandlerFunc(deps, handlers.AuthLogout))
			r.Get("/me", handlers.AuthHandlerFunc(deps, handlers.AuthMe))
		})

		r.Route("/api/v1", func(r chi.Router) {
			perms := handlers.NewPermissionHandler(deps.Logger)
			r.With(protect(apiGate())).Get("/permissions", perms.HandleCatalog)
			r.With(protect(apiGate())).Get("/permissions/format", perms.HandleFormat)
			r.With(protect(apiGate())).Get("/roles", perms.HandleRoles)

			docs := handlers.NewDocumentHandler(deps.Documents, deps.AuditService, deps.Logger)
			r.Route("/documents", func(r chi.Router) {
				r.With(protect(apiGate(documents(permission.ActionRead)))).Get("/", docs.HandleListDocuments)
				r.With(protect(apiGate(documents(permission.ActionCreate)))).Post("/", docs.HandleCreateDocument)
				r.With(protect(apiGate(documents(permission.ActionRead)))).Get("/{id}", docs.HandleGetDocument)
				r.With(protect(apiGate(documents(permission.ActionUpdate)))).Patch("/{id}", docs.HandleUpdateDocument)
				r.With(protect(apiGate(documents(permission.ActionDelete)))).Delete("/{id}", docs.HandleDeleteDocument)
			})

			usersHandler := handlers.NewUserHandler(deps.UserService, deps.Logger)
			r.Route("/users", func(r chi.Router) {
				r.With(protect(apiGate(users(permission.ActionRead)))).Get("/", usersHandler.HandleListUsers)
				r.With(protect(apiGate(users(permission.ActionCreate)))).Post("/", usersHandler.HandleCreateUser)
				r.With(protect(apiGate(users(permission.ActionRead)))).Get("/{id}", usersHandler.HandleGetUser)
				r.With(protect(apiGate(users(permission.ActionUpdate)))).Patch("/{id}", usersHandler.HandleUpdateUser)
				r.With(protect(apiGate(users(permission.ActionDelete)))).Delete("/{id}", usersHandler.HandleDeleteUser)
			})

			auditHandler := handlers.NewAuditHandler(deps.AuditLogs, deps.Logger)
			r.Route("/audit", func(r chi.Router) {
				adminOnly := apiGate()
				adminOnly.Roles = adminRoles
				r.Use(protect(adminOnly))
				r.Get("/logs", auditHandler.HandleListLogs)
				r.Get("/logs/{id}", auditHandler.HandleGetLog)
			})
		})

		if cfg.Web.StaticDir != "" {
			mountScreens(r, deps.Gate, Screens(cfg.Auth.LoginPath, cfg.Auth.LandingPath), cfg.Web.StaticDir, deps.Logger)
		}
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "endpoint not found")
	})

	return r
}

func documents(action string) permission.Permission {
	return permission.New(permission.ModuleDocuments, action)
}

func users(action string) permission.Permission {
	return permission.New(permission.ModuleUsers, action)
}
