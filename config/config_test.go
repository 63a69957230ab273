package config

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var prodSecret = strings.Repeat("s", 48)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		wantErr bool
		check   func(*testing.T, *Config)
	}{
		{
			name: "default configuration",
			envVars: map[string]string{
				"ENVIRONMENT": "development",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "development", cfg.Environment)
				assert.Equal(t, "0.0.0.0", cfg.Server.Host)
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.False(t, cfg.Server.TLS.Enabled)
				assert.Equal(t, "localhost", cfg.Database.Host)
				assert.Equal(t, 5432, cfg.Database.Port)
				assert.Equal(t, "docdesk", cfg.Database.User)

				assert.False(t, cfg.Auth.Disabled)
				assert.Equal(t, developmentSessionSecret, cfg.Auth.SessionSecret)
				assert.Equal(t, 8*time.Hour, cfg.Auth.SessionTTL)
				assert.Equal(t, "docdesk_session", cfg.Auth.SessionCookieName)
				assert.True(t, cfg.Auth.SessionCookieSecure)
				assert.Equal(t, "/login", cfg.Auth.LoginPath)
				assert.Equal(t, "/", cfg.Auth.LandingPath)
				assert.Equal(t, 3*time.Second, cfg.Auth.ResolveTimeout)
				assert.Equal(t, 1000, cfg.Auth.UserCacheSize)
				assert.Equal(t, 5, cfg.Auth.LoginRateBurst)
				assert.Equal(t, []string{"http://localhost:5173"}, cfg.CORS.AllowedOrigins)
				assert.Empty(t, cfg.Web.StaticDir)
			},
		},
		{
			name: "production configuration",
			envVars: map[string]string{
				"ENVIRONMENT":    "production",
				"SERVER_PORT":    "9000",
				"DB_HOST":        "prod-db.example.com",
				"DB_PORT":        "5433",
				"SESSION_SECRET": prodSecret,
			},
			check: func(t *testing.T, cfg *Config) {
				assert.True(t, cfg.IsProduction())
				assert.False(t, cfg.IsDevelopment())
				assert.Equal(t, 9000, cfg.Server.Port)
				assert.Equal(t, "prod-db.example.com", cfg.Database.Host)
				assert.Equal(t, 5433, cfg.Database.Port)
				assert.Equal(t, prodSecret, cfg.Auth.SessionSecret)
			},
		},
		{
			name: "auth settings overrides",
			envVars: map[string]string{
				"SESSION_TTL":             "30m",
				"SESSION_COOKIE_NAME":     "sid",
				"SESSION_COOKIE_SECURE":   "false",
				"LOGIN_PATH":              "/signin",
				"LANDING_PATH":            "/documents",
				"SESSION_RESOLVE_TIMEOUT": "500ms",
				"USER_CACHE_SIZE":         "10",
				"USER_CACHE_TTL":          "5s",
				"LOGIN_RATE_PER_SECOND":   "2",
				"LOGIN_RATE_BURST":        "3",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 30*time.Minute, cfg.Auth.SessionTTL)
				assert.Equal(t, "sid", cfg.Auth.SessionCookieName)
				assert.False(t, cfg.Auth.SessionCookieSecure)
				assert.Equal(t, "/signin", cfg.Auth.LoginPath)
				assert.Equal(t, "/documents", cfg.Auth.LandingPath)
				assert.Equal(t, 500*time.Millisecond, cfg.Auth.ResolveTimeout)
				assert.Equal(t, 10, cfg.Auth.UserCacheSize)
				assert.Equal(t, 5*time.Second, cfg.Auth.UserCacheTTL)
				assert.Equal(t, 2.0, cfg.Auth.LoginRatePerSecond)
				assert.Equal(t, 3, cfg.Auth.LoginRateBurst)
			},
		},
		{
			name: "custom timeouts and pool settings",
			envVars: map[string]string{
				"SERVER_READ_TIMEOUT":  "60s",
				"SERVER_WRITE_TIMEOUT": "90s",
				"DB_MAX_OPEN_CONNS":    "50",
				"DB_MAX_IDLE_CONNS":    "10",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 60*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, 90*time.Second, cfg.Server.WriteTimeout)
				assert.Equal(t, 50, cfg.Database.MaxOpenConns)
				assert.Equal(t, 10, cfg.Database.MaxIdleConns)
			},
		},
		{
			name: "observability and web configuration",
			envVars: map[string]string{
				"LOG_LEVEL":            "debug",
				"LOG_FORMAT":           "console",
				"METRICS_ENABLED":      "false",
				"STATIC_DIR":           "/srv/docdesk/web",
				"CORS_ALLOWED_ORIGINS": "https://a.example.gov, https://b.example.gov,",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "debug", cfg.Observability.LogLevel)
				assert.Equal(t, "console", cfg.Observability.LogFormat)
				assert.False(t, cfg.Observability.MetricsEnabled)
				assert.Equal(t, "/srv/docdesk/web", cfg.Web.StaticDir)
				assert.Equal(t, []string{"https://a.example.gov", "https://b.example.gov"}, cfg.CORS.AllowedOrigins)
			},
		},
		{
			name: "DATABASE_URL takes precedence",
			envVars: map[string]string{
				"DATABASE_URL": "postgres://u:p@db:6543/office?sslmode=require",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "postgres://u:p@db:6543/office?sslmode=require", cfg.Database.DSN())
				assert.Equal(t, "host=db port=6543 database=office", cfg.Database.LogString())
			},
		},
		{
			name: "PORT env var takes precedence over SERVER_PORT",
			envVars: map[string]string{
				"PORT":        "9443",
				"SERVER_PORT": "9000",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9443, cfg.Server.Port)
			},
		},
		{
			name: "auth disabled in development",
			envVars: map[string]string{
				"ENVIRONMENT":   "development",
				"AUTH_DISABLED": "true",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.True(t, cfg.Auth.Disabled)
			},
		},
		{
			name: "auth disabled in production",
			envVars: map[string]string{
				"ENVIRONMENT":    "production",
				"AUTH_DISABLED":  "true",
				"SESSION_SECRET": prodSecret,
			},
			wantErr: true,
		},
		{
			name: "production without session secret",
			envVars: map[string]string{
				"ENVIRONMENT": "production",
			},
			wantErr: true,
		},
		{
			name: "short session secret",
			envVars: map[string]string{
				"SESSION_SECRET": "too-short",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			for k, v := range tt.envVars {
				os.Setenv(k, v)
			}

			cfg, err := New(context.Background())

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, cfg)

			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func validConfig() *Config {
	return &Config{
		Environment: "development",
		Database: DatabaseConfig{
			Host:     "localhost",
			User:     "user",
			Database: "db",
		},
		Auth: AuthConfig{
			SessionSecret:  prodSecret,
			SessionTTL:     time.Hour,
			LoginPath:      "/login",
			LandingPath:    "/",
			ResolveTimeout: time.Second,
		},
		Observability: ObservabilityConfig{
			LogLevel: "info",
		},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
		errMsg  string
	}{
		{
			name:   "valid development config",
			mutate: func(*Config) {},
		},
		{
			name:    "missing database host",
			mutate:  func(c *Config) { c.Database.Host = "" },
			wantErr: true,
			errMsg:  "database configuration required",
		},
		{
			name:    "missing database user",
			mutate:  func(c *Config) { c.Database.User = "" },
			wantErr: true,
			errMsg:  "database user is required",
		},
		{
			name:    "short secret",
			mutate:  func(c *Config) { c.Auth.SessionSecret = "abc" },
			wantErr: true,
			errMsg:  "session secret",
		},
		{
			name: "short secret tolerated when auth disabled",
			mutate: func(c *Config) {
				c.Auth.Disabled = true
				c.Auth.SessionSecret = ""
			},
		},
		{
			name: "auth disabled rejected in production",
			mutate: func(c *Config) {
				c.Environment = "prod"
				c.Auth.Disabled = true
			},
			wantErr: true,
			errMsg:  "AUTH_DISABLED",
		},
		{
			name: "development secret rejected in production",
			mutate: func(c *Config) {
				c.Environment = "production"
				c.Auth.SessionSecret = developmentSessionSecret
			},
			wantErr: true,
			errMsg:  "required in production",
		},
		{
			name:    "relative login path",
			mutate:  func(c *Config) { c.Auth.LoginPath = "login" },
			wantErr: true,
			errMsg:  "must be absolute",
		},
		{
			name:    "zero resolve timeout",
			mutate:  func(c *Config) { c.Auth.ResolveTimeout = 0 },
			wantErr: true,
			errMsg:  "resolve timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()

			if tt.wantErr {
				require.Error(t, err)
				if tt.errMsg != "" {
					assert.Contains(t, err.Error(), tt.errMsg)
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_IsProduction(t *testing.T) {
	tests := []struct {
		name        string
		environment string
		want        bool
	}{
		{"production", "production", true},
		{"prod", "prod", true},
		{"development", "development", false},
		{"dev", "dev", false},
		{"staging", "staging", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Environment: tt.environment}
			assert.Equal(t, tt.want, cfg.IsProduction())
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "testuser",
		Password: "testpass",
		Database: "testdb",
		SSLMode:  "disable",
	}

	expected := "host=localhost port=5432 user=testuser password=testpass dbname=testdb sslmode=disable"
	assert.Equal(t, expected, cfg.DSN())
	assert.Equal(t, "host=localhost port=5432 database=testdb", cfg.LogString())
}

func TestServerConfig_Address(t *testing.T) {
	cfg := ServerConfig{
		Host: "0.0.0.0",
		Port: 8080,
	}

	assert.Equal(t, "0.0.0.0:8080", cfg.Address())
}

func TestGetEnvAsBool(t *testing.T) {
	tests := []struct {
		name         string
		value        string
		defaultValue bool
		want         bool
	}{
		{"true", "true", false, true},
		{"false", "false", true, false},
		{"empty value", "", true, true},
		{"invalid bool", "not-a-bool", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			if tt.value != "" {
				os.Setenv("TEST_BOOL", tt.value)
			}
			assert.Equal(t, tt.want, getEnvAsBool("TEST_BOOL", tt.defaultValue))
		})
	}
}

func TestGetEnvAsList(t *testing.T) {
	os.Clearenv()
	assert.Equal(t, []string{"x"}, getEnvAsList("TEST_LIST", []string{"x"}))

	os.Setenv("TEST_LIST", " , ,")
	assert.Equal(t, []string{"x"}, getEnvAsList("TEST_LIST", []string{"x"}))

	os.Setenv("TEST_LIST", "a,b , c")
	assert.Equal(t, []string{"a", "b", "c"}, getEnvAsList("TEST_LIST", nil))
}
