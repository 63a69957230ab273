package app

import (
	"context"
	"fmt"
	"time"

	"github.com/govoffice/docdesk/auth"
	"github.com/govoffice/docdesk/config"
	"github.com/govoffice/docdesk/internal/guard"
	"github.com/govoffice/docdesk/middleware"
	"github.com/govoffice/docdesk/repositories"
	"github.com/govoffice/docdesk/repositories/postgres"
	"github.com/govoffice/docdesk/services/audit"
	"github.com/govoffice/docdesk/services/usercache"
	"github.com/govoffice/docdesk/services/users"
	"go.uber.org/zap"
)

// auditStopTimeout bounds how long Close waits for queued audit events.
const auditStopTimeout = 10 * time.Second

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB
	Logger *zap.Logger

	// Repository Factory
	RepoFactory *postgres.RepositoryFactory

	// Repositories
	Users     repositories.UserRepository
	Documents repositories.DocumentRepository
	AuditLogs repositories.AuditRepository
	TxManager repositories.TransactionManager

	// Services
	AuditService *audit.AuditService
	UserCache    *usercache.Cache
	UserService  *users.Service

	// Authorization
	Resolver       *guard.Resolver
	Evaluator      *guard.Evaluator
	Sessions       *auth.SessionStore
	AuthMiddleware *middleware.AuthMiddleware
	Gate           *middleware.Gate
	LoginLimiter   *middleware.RateLimiter

	authHandler *auth.Handler
}

// AuthHandler returns the auth handler for route wiring (implements handlers.AuthDeps)
func (d *Dependencies) AuthHandler() *auth.Handler {
	return d.authHandler
}

// NewDependencies creates and wires up all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	factory, err := postgres.NewRepositoryFactory(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	deps, err := NewDependenciesWithFactory(cfg, factory, logger)
	if err != nil {
		_ = factory.Close()
		return nil, err
	}

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// NewDependenciesWithFactory wires everything above an opened database.
// The audit workers are not started; call Start.
func NewDependenciesWithFactory(cfg *config.Config, factory *postgres.RepositoryFactory, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config:      cfg,
		Logger:      logger,
		RepoFactory: factory,
		DB:          factory.GetDB(),
	}

	deps.initRepositories()
	deps.initServices()
	deps.initAuth(cfg)
	return deps, nil
}

// initRepositories initializes all repository instances
func (d *Dependencies) initRepositories() {
	repos := d.RepoFactory.NewRepositories()

	d.Users = repos.Users
	d.Documents = repos.Documents
	d.AuditLogs = repos.AuditLogs
	d.TxManager = d.RepoFactory.GetTransactionManager()

	d.Logger.Info("repositories initialized")
}

func (d *Dependencies) initServices() {
	d.AuditService = audit.NewAuditService(d.AuditLogs, d.Logger, audit.DefaultConfig())
	d.UserCache = usercache.New(d.Config.Auth.UserCacheSize, d.Config.Auth.UserCacheTTL)
	d.UserService = users.NewService(d.Users, d.TxManager, auth.NewPasswordHasher(0), d.UserCache, d.AuditService, d.Logger)
}

func (d *Dependencies) initAuth(cfg *config.Config) {
	d.Resolver = guard.NewResolver(cfg.Auth.Disabled)
	d.Evaluator = guard.NewEvaluator(cfg.Auth.Disabled)
	d.Gate = middleware.NewGate(d.Evaluator, d.AuditService, d.Logger)
	d.LoginLimiter = middleware.NewRateLimiter("login", cfg.Auth.LoginRatePerSecond, cfg.Auth.LoginRateBurst)

	if cfg.Auth.Disabled {
		d.Logger.Warn("authorization disabled: every request runs as the development super-user",
			zap.String("username", guard.DevUsername))
	}

	tokens := auth.NewTokenService(cfg.Auth.SessionSecret, cfg.Auth.SessionTTL)
	d.Sessions = auth.NewSessionStore(tokens, d.Users, d.UserCache, auth.CookieConfig{
		Name:   cfg.Auth.SessionCookieName,
		Secure: cfg.Auth.SessionCookieSecure,
	}, cfg.Auth.ResolveTimeout, d.Logger)
	d.AuthMiddleware = middleware.NewAuthMiddleware(d.Sessions, d.Resolver, d.Logger)
	d.authHandler = auth.NewHandler(d.Users, d.Sessions, auth.NewPasswordHasher(0), d.AuditService, auth.Paths{
		Login:   cfg.Auth.LoginPath,
		Landing: cfg.Auth.LandingPath,
	}, d.Logger)

	d.Logger.Info("auth initialized",
		zap.Duration("session_ttl", cfg.Auth.SessionTTL),
		zap.Duration("resolve_timeout", cfg.Auth.ResolveTimeout))
}

// Start launches the background workers: audit writers, cache cleanup and
// rate-limiter sweeping. They stop when ctx is cancelled or Close is called.
func (d *Dependencies) Start(ctx context.Context) error {
	if err := d.AuditService.Start(); err != nil {
		return fmt.Errorf("failed to start audit service: %w", err)
	}
	go d.UserCache.RunCleanup(ctx, time.Minute)
	go d.LoginLimiter.RunSweeper(ctx, time.Minute, 10*time.Minute)
	return nil
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.AuditService != nil && d.AuditService.GetStats().Started {
		timeout := auditStopTimeout
		if deadline, ok := ctx.Deadline(); ok {
			timeout = time.Until(deadline)
		}
		if err := d.AuditService.Stop(timeout); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop audit service: %w", err))
		}
	}

	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
	}

	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}
	return nil
}
