package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

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
			wantErr: false,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "development", cfg.Environment)
				assert.Equal(t, "0.0.0.0", cfg.Server.Host)
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, "localhost", cfg.Database.Host)
				assert.Equal(t, 5432, cfg.Database.Port)
				assert.Equal(t, "wordpress", cfg.Database.User)
				assert.Equal(t, "wp_", cfg.Host.TablePrefix)
				assert.Equal(t, 1, cfg.Host.SiteID)
				assert.Equal(t, time.UTC, cfg.Host.Timezone)
				assert.Equal(t, 45*time.Second, cfg.Outcomes.ErrorTTL)
				assert.Equal(t, time.Hour, cfg.Outcomes.SuccessTTL)
				assert.Equal(t, 30*time.Second, cfg.Gancio.Timeout)
				assert.Empty(t, cfg.Gancio.InstanceURL)
				require.Len(t, cfg.Sources.Sources, 2)
			},
		},
		{
			name: "gancio defaults and hook secret",
			envVars: map[string]string{
				"ENVIRONMENT":         "production",
				"GANCIO_INSTANCE_URL": "https://gancio.example.org",
				"GANCIO_TOKEN":        "secret-token",
				"GANCIO_TIMEOUT":      "5s",
				"HOOK_SIGNING_SECRET": "hook-secret",
				"HOOK_ISSUER":         "wordpress",
			},
			wantErr: false,
			check: func(t *testing.T, cfg *Config) {
				assert.True(t, cfg.IsProduction())
				assert.Equal(t, "https://gancio.example.org", cfg.Gancio.InstanceURL)
				assert.Equal(t, "secret-token", cfg.Gancio.Token)
				assert.Equal(t, 5*time.Second, cfg.Gancio.Timeout)
				assert.Equal(t, "hook-secret", cfg.Hooks.SigningSecret)
				assert.Equal(t, "wordpress", cfg.Hooks.Issuer)
			},
		},
		{
			name: "custom timeouts, pool and outcome settings",
			envVars: map[string]string{
				"SERVER_READ_TIMEOUT": "60s",
				"DB_MAX_OPEN_CONNS":   "50",
				"OUTCOME_ERROR_TTL":   "90s",
				"OUTCOME_MAX_ENTRIES": "100",
				"WP_TABLE_PREFIX":     "site_",
				"WP_SITE_ID":          "3",
			},
			wantErr: false,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 60*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, 50, cfg.Database.MaxOpenConns)
				assert.Equal(t, 90*time.Second, cfg.Outcomes.ErrorTTL)
				assert.Equal(t, 100, cfg.Outcomes.MaxEntries)
				assert.Equal(t, "site_", cfg.Host.TablePrefix)
				assert.Equal(t, 3, cfg.Host.SiteID)
			},
		},
		{
			name: "DATABASE_URL takes precedence",
			envVars: map[string]string{
				"DATABASE_URL": "postgres://wp:pw@db.internal:5433/wordpress?sslmode=disable",
			},
			wantErr: false,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "postgres://wp:pw@db.internal:5433/wordpress?sslmode=disable", cfg.Database.DSN())
				assert.Equal(t, "host=db.internal port=5433 database=wordpress", cfg.Database.LogString())
			},
		},
		{
			name: "CORS origins list",
			envVars: map[string]string{
				"CORS_ALLOWED_ORIGINS": "https://wp.example.org, ,https://admin.example.org",
			},
			wantErr: false,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, []string{"https://wp.example.org", "https://admin.example.org"}, cfg.Server.AllowedOrigins)
			},
		},
		{
			name: "PORT env var takes precedence over SERVER_PORT",
			envVars: map[string]string{
				"PORT":        "9443",
				"SERVER_PORT": "9000",
			},
			wantErr: false,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9443, cfg.Server.Port)
			},
		},
		{
			name: "production without hook secret",
			envVars: map[string]string{
				"ENVIRONMENT": "production",
			},
			wantErr: true,
		},
		{
			name: "relative gancio instance URL",
			envVars: map[string]string{
				"GANCIO_INSTANCE_URL": "gancio.example.org",
			},
			wantErr: true,
		},
		{
			name: "invalid timezone",
			envVars: map[string]string{
				"SITE_TIMEZONE": "Not/AZone",
			},
			wantErr: true,
		},
		{
			name: "missing sources file",
			envVars: map[string]string{
				"SOURCES_FILE": "/nonexistent/sources.yaml",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Clear environment
			os.Clearenv()

			// Set test environment variables
			for k, v := range tt.envVars {
				os.Setenv(k, v)
			}

			// Create config
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

func TestNew_SourcesFile(t *testing.T) {
	os.Clearenv()
	path := filepath.Join(t.TempDir(), "sources.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
sources:
  - type: eventscalendar
    start_correction: 1h
  - type: eventorganiser
    enabled: false
`), 0o600))
	os.Setenv("SOURCES_FILE", path)

	cfg, err := New(context.Background())
	require.NoError(t, err)

	enabled := cfg.Sources.Enabled()
	require.Len(t, enabled, 1)
	assert.Equal(t, SourceEventsCalendar, enabled[0].Type)
	assert.Equal(t, "tribe_events", enabled[0].PostType)
	assert.Equal(t, "post_tag", enabled[0].Taxonomy)
	assert.Equal(t, time.Hour, enabled[0].Correction())
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Environment: "development",
			Database: DatabaseConfig{
				Host:     "localhost",
				User:     "user",
				Database: "db",
			},
			Host: HostConfig{TablePrefix: "wp_"},
			Outcomes: OutcomesConfig{
				ErrorTTL:   time.Second,
				SuccessTTL: time.Second,
				MaxEntries: 1,
			},
			Sources: DefaultSources(),
			Observability: ObservabilityConfig{
				LogLevel: "info",
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
		errMsg  string
	}{
		{name: "valid development config", mutate: func(*Config) {}},
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
			name:    "missing table prefix",
			mutate:  func(c *Config) { c.Host.TablePrefix = "" },
			wantErr: true,
			errMsg:  "table prefix is required",
		},
		{
			name:    "table prefix with sql",
			mutate:  func(c *Config) { c.Host.TablePrefix = "wp_; DROP TABLE x" },
			wantErr: true,
			errMsg:  "may only contain letters",
		},
		{
			name:    "non positive ttl",
			mutate:  func(c *Config) { c.Outcomes.ErrorTTL = 0 },
			wantErr: true,
			errMsg:  "outcome TTLs must be positive",
		},
		{
			name: "unknown source type",
			mutate: func(c *Config) {
				c.Sources.Sources = append(c.Sources.Sources, SourceConfig{Type: "ical"})
			},
			wantErr: true,
			errMsg:  "unknown source type",
		},
		{
			name: "duplicate post type",
			mutate: func(c *Config) {
				c.Sources.Sources[1].PostType = "event"
			},
			wantErr: true,
			errMsg:  "managed by both",
		},
		{
			name:    "missing log level",
			mutate:  func(c *Config) { c.Observability.LogLevel = "" },
			wantErr: true,
			errMsg:  "log level is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()

			if tt.wantErr {
				assert.Error(t, err)
				if tt.errMsg != "" {
					assert.Contains(t, err.Error(), tt.errMsg)
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseSources(t *testing.T) {
	t.Run("fills defaults per type", func(t *testing.T) {
		cfg, err := ParseSources([]byte("sources:\n  - type: eventorganiser\n"))
		require.NoError(t, err)
		require.Len(t, cfg.Sources, 1)
		assert.Equal(t, "event", cfg.Sources[0].PostType)
		assert.Equal(t, "event-tag", cfg.Sources[0].Taxonomy)
		assert.True(t, cfg.Sources[0].IsEnabled())
		assert.Equal(t, time.Duration(0), cfg.Sources[0].Correction())
	})

	t.Run("default correction for events calendar", func(t *testing.T) {
		cfg, err := ParseSources([]byte("sources:\n  - type: eventscalendar\n"))
		require.NoError(t, err)
		assert.Equal(t, 2*time.Hour, cfg.Sources[0].Correction())
	})

	t.Run("invalid yaml", func(t *testing.T) {
		_, err := ParseSources([]byte("sources: [unterminated"))
		assert.Error(t, err)
	})
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

func TestGetEnvAsInt(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		value        string
		defaultValue int
		want         int
	}{
		{"valid int", "TEST_INT", "42", 10, 42},
		{"empty value", "TEST_INT", "", 10, 10},
		{"invalid int", "TEST_INT", "not-a-number", 10, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			if tt.value != "" {
				os.Setenv(tt.key, tt.value)
			}
			got := getEnvAsInt(tt.key, tt.defaultValue)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetEnvAsDuration(t *testing.T) {
	os.Clearenv()
	os.Setenv("TEST_DURATION", "bogus")
	assert.Equal(t, time.Second, getEnvAsDuration("TEST_DURATION", time.Second))

	os.Setenv("TEST_DURATION", "3m")
	assert.Equal(t, 3*time.Minute, getEnvAsDuration("TEST_DURATION", time.Second))
}
