package app

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/govoffice/docdesk/config"
	"github.com/govoffice/docdesk/repositories/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

func TestNewDependenciesWithFactory(t *testing.T) {
	t.Run("wires every component", func(t *testing.T) {
		deps, mock := newTestDependencies(t, testConfig(false))

		assert.NotNil(t, deps.Config)
		assert.NotNil(t, deps.DB)
		assert.NotNil(t, deps.Logger)

		assert.NotNil(t, deps.Users)
		assert.NotNil(t, deps.Documents)
		assert.NotNil(t, deps.AuditLogs)
		assert.NotNil(t, deps.TxManager)

		assert.NotNil(t, deps.AuditService)
		assert.NotNil(t, deps.UserCache)
		assert.NotNil(t, deps.UserService)

		assert.NotNil(t, deps.Resolver)
		assert.NotNil(t, deps.Evaluator)
		assert.NotNil(t, deps.Sessions)
		assert.NotNil(t, deps.AuthMiddleware)
		assert.NotNil(t, deps.Gate)
		assert.NotNil(t, deps.LoginLimiter)
		assert.NotNil(t, deps.AuthHandler())

		assert.False(t, deps.Evaluator.AuthDisabled())
		assert.False(t, deps.Resolver.AuthDisabled())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("auth disabled reaches resolver and evaluator", func(t *testing.T) {
		deps, _ := newTestDependencies(t, testConfig(true))

		assert.True(t, deps.Evaluator.AuthDisabled())
		assert.True(t, deps.Resolver.AuthDisabled())
	})
}

func TestNewDependencies_DatabaseUnavailable(t *testing.T) {
	cfg := testConfig(false)
	cfg.Database = config.DatabaseConfig{
		Host:     "127.0.0.1",
		Port:     1,
		User:     "docdesk",
		Password: "docdesk",
		Database: "docdesk_test",
		SSLMode:  "disable",
	}

	deps, err := NewDependencies(context.Background(), cfg, zap.NewNop())

	require.Error(t, err)
	assert.Nil(t, deps)
	assert.Contains(t, err.Error(), "failed to initialize database")
}

func TestDependencies_StartClose(t *testing.T) {
	t.Run("starts and stops the audit workers", func(t *testing.T) {
		deps, mock := newTestDependencies(t, testConfig(false))
		mock.ExpectClose()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		require.NoError(t, deps.Start(ctx))
		assert.True(t, deps.AuditService.GetStats().Started)

		closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer closeCancel()
		require.NoError(t, deps.Close(closeCtx))

		assert.False(t, deps.AuditService.GetStats().Started)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("second start fails", func(t *testing.T) {
		deps, mock := newTestDependencies(t, testConfig(false))
		mock.ExpectClose()

		require.NoError(t, deps.Start(context.Background()))
		err := deps.Start(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to start audit service")

		require.NoError(t, deps.Close(context.Background()))
	})

	t.Run("close without start only closes the database", func(t *testing.T) {
		deps, mock := newTestDependencies(t, testConfig(false))
		mock.ExpectClose()

		require.NoError(t, deps.Close(context.Background()))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

// Test helpers

func newTestDependencies(t *testing.T, cfg *config.Config) (*Dependencies, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	logger := zaptest.NewLogger(t)
	factory := postgres.NewRepositoryFactoryFromDB(postgres.WrapDB(db, logger), logger)

	deps, err := NewDependenciesWithFactory(cfg, factory, logger)
	require.NoError(t, err)
	require.NotNil(t, deps)
	return deps, mock
}

func testConfig(authDisabled bool) *config.Config {
	return &config.Config{
		Environment: "test",
		Server: config.ServerConfig{
			Host:            "localhost",
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Auth: config.AuthConfig{
			Disabled:           authDisabled,
			SessionSecret:      "0123456789abcdef0123456789abcdef",
			SessionTTL:         time.Hour,
			SessionCookieName:  "docdesk_session",
			LoginPath:          "/login",
			LandingPath:        "/",
			ResolveTimeout:     time.Second,
			UserCacheSize:      10,
			UserCacheTTL:       time.Minute,
			LoginRatePerSecond: 1,
			LoginRateBurst:     5,
		},
		Observability: config.ObservabilityConfig{
			LogLevel:  "debug",
			LogFormat: "json",
		},
	}
}
