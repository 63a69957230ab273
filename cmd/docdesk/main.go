package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/govoffice/docdesk/app"
	"github.com/govoffice/docdesk/config"
	"github.com/govoffice/docdesk/internal/observability"
	"github.com/govoffice/docdesk/internal/permission"
	"github.com/govoffice/docdesk/models"
	"github.com/govoffice/docdesk/routes"
	"github.com/govoffice/docdesk/services"
	"github.com/govoffice/docdesk/services/audit"
	"github.com/govoffice/docdesk/services/users"
	"go.uber.org/zap"
)

// bootstrapPasswordEnv holds the password for -bootstrap-admin.
const bootstrapPasswordEnv = "BOOTSTRAP_ADMIN_PASSWORD"

func main() {
	initSchema := flag.Bool("init-schema", false, "create database tables before serving")
	bootstrapAdmin := flag.String("bootstrap-admin", "", "create an admin account with this username (password from "+bootstrapPasswordEnv+")")
	flag.Parse()

	if err := run(*initSchema, *bootstrapAdmin); err != nil {
		fmt.Fprintf(os.Stderr, "docdesk: %v\n", err)
		os.Exit(1)
	}
}

func run(initSchema bool, bootstrapAdmin string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.New(ctx)
	if err != nil {
		return err
	}

	logger, err := initLogger()
	if err != nil {
		return err
	}

	deps, err := app.NewDependencies(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize dependencies", zap.Error(err))
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := deps.Close(closeCtx); err != nil {
			logger.Error("shutdown finished with errors", zap.Error(err))
		}
	}()

	if initSchema {
		if err := deps.DB.InitSchema(ctx); err != nil {
			return err
		}
	}

	if err := deps.Start(ctx); err != nil {
		return err
	}

	if bootstrapAdmin != "" {
		if err := ensureAdmin(ctx, deps.UserService, bootstrapAdmin, os.Getenv(bootstrapPasswordEnv), logger); err != nil {
			return err
		}
	}

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      routes.SetupRoutes(deps),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	return serve(ctx, srv, cfg, logger)
}

// initLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func initLogger() (*zap.Logger, error) {
	return observability.NewLogger(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
}

// serve runs srv until ctx is cancelled, then drains in-flight requests.
func serve(ctx context.Context, srv *http.Server, cfg *config.Config, logger *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("docdesk listening",
			zap.String("addr", srv.Addr),
			zap.String("environment", cfg.Environment),
			zap.Bool("tls", cfg.Server.TLS.Enabled),
			zap.Bool("auth_disabled", cfg.Auth.Disabled))

		var err error
		if cfg.Server.TLS.Enabled {
			err = srv.ListenAndServeTLS(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

// userCreator is the slice of the user service ensureAdmin needs.
type userCreator interface {
	Create(ctx context.Context, in users.CreateInput, actor audit.Actor, meta audit.RequestMeta) (*models.User, error)
}

// ensureAdmin creates the initial administrator. An existing account with
// the same username is left untouched.
func ensureAdmin(ctx context.Context, svc userCreator, username, password string, logger *zap.Logger) error {
	if password == "" {
		return fmt.Errorf("%s is required with -bootstrap-admin", bootstrapPasswordEnv)
	}

	user, err := svc.Create(ctx, users.CreateInput{
		Username: username,
		Email:    username + "@localhost",
		FullName: "Administrator",
		Password: password,
		Role:     permission.RoleAdmin,
	}, audit.Actor{Username: "bootstrap"}, audit.RequestMeta{})
	if err != nil {
		if services.IsConflictError(err) {
			logger.Info("bootstrap admin already exists", zap.String("username", username))
			return nil
		}
		return fmt.Errorf("failed to create bootstrap admin: %w", err)
	}

	logger.Info("bootstrap admin created", zap.String("username", user.Username), zap.String("user_id", user.ID.String()))
	return nil
}
