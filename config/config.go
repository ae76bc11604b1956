package config

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// tablePrefixPattern restricts the prefix interpolated into SQL identifiers
var tablePrefixPattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Host          HostConfig
	Gancio        GancioConfig
	Hooks         HooksConfig
	Outcomes      OutcomesConfig
	Observability ObservabilityConfig
	Sources       SourcesConfig
	Environment   string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

// DatabaseConfig holds the host platform database configuration.
// When ConnectionString (from DATABASE_URL) is set, it takes precedence over individual fields.
type DatabaseConfig struct {
	ConnectionString string // From DATABASE_URL when set
	Host             string
	Port             int
	User             string
	Password         string
	Database         string
	SSLMode          string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
}

// HostConfig describes the content platform the service reads from
type HostConfig struct {
	TablePrefix string         // WordPress table prefix, usually "wp_"
	SiteID      int            // network site id used for wp_sitemeta lookups
	Timezone    *time.Location // site timezone for local event times
}

// GancioConfig holds the remote instance defaults. Values stored in the host
// options take precedence over these.
type GancioConfig struct {
	InstanceURL string
	Token       string
	Timeout     time.Duration
}

// HooksConfig holds inbound webhook authentication settings
type HooksConfig struct {
	SigningSecret string
	Issuer        string
}

// OutcomesConfig holds the outcome store settings
type OutcomesConfig struct {
	ErrorTTL        time.Duration
	SuccessTTL      time.Duration
	MaxEntries      int
	CleanupInterval time.Duration
}

// ObservabilityConfig holds monitoring and logging configuration
type ObservabilityConfig struct {
	LogLevel       string
	LogFormat      string // json or console
	MetricsEnabled bool
}

// New creates a new Config instance by loading environment variables
func New(ctx context.Context) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load(".env")

	tz, err := time.LoadLocation(getEnv("SITE_TIMEZONE", "UTC"))
	if err != nil {
		return nil, fmt.Errorf("invalid SITE_TIMEZONE: %w", err)
	}

	sources, err := LoadSources(getEnv("SOURCES_FILE", ""))
	if err != nil {
		return nil, fmt.Errorf("failed to load sources: %w", err)
	}

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getPort(),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 60*time.Second),
			RequestTimeout:  getEnvAsDuration("SERVER_REQUEST_TIMEOUT", 45*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			AllowedOrigins:  getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:*", "https://*"}),
		},
		Database: loadDatabaseConfig(),
		Host: HostConfig{
			TablePrefix: getEnv("WP_TABLE_PREFIX", "wp_"),
			SiteID:      getEnvAsInt("WP_SITE_ID", 1),
			Timezone:    tz,
		},
		Gancio: GancioConfig{
			InstanceURL: getEnv("GANCIO_INSTANCE_URL", ""),
			Token:       getEnv("GANCIO_TOKEN", ""),
			Timeout:     getEnvAsDuration("GANCIO_TIMEOUT", 30*time.Second),
		},
		Hooks: HooksConfig{
			SigningSecret: getEnv("HOOK_SIGNING_SECRET", ""),
			Issuer:        getEnv("HOOK_ISSUER", ""),
		},
		Outcomes: OutcomesConfig{
			ErrorTTL:        getEnvAsDuration("OUTCOME_ERROR_TTL", 45*time.Second),
			SuccessTTL:      getEnvAsDuration("OUTCOME_SUCCESS_TTL", time.Hour),
			MaxEntries:      getEnvAsInt("OUTCOME_MAX_ENTRIES", 10000),
			CleanupInterval: getEnvAsDuration("OUTCOME_CLEANUP_INTERVAL", time.Minute),
		},
		Observability: ObservabilityConfig{
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			LogFormat:      getEnv("LOG_FORMAT", "json"),
			MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
		},
		Sources: sources,
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if all required configuration fields are set
func (c *Config) Validate() error {
	// Database validation (DATABASE_URL or DB_* vars)
	if c.Database.ConnectionString == "" && c.Database.Host == "" {
		return fmt.Errorf("database configuration required: set DATABASE_URL or DB_HOST")
	}
	if c.Database.ConnectionString == "" {
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
	}

	if c.Host.TablePrefix == "" {
		return fmt.Errorf("table prefix is required")
	}
	if !tablePrefixPattern.MatchString(c.Host.TablePrefix) {
		return fmt.Errorf("table prefix %q may only contain letters, digits and underscores", c.Host.TablePrefix)
	}

	// Hook signing secret is required in production
	if c.IsProduction() && c.Hooks.SigningSecret == "" {
		return fmt.Errorf("hook signing secret is required in production")
	}

	if c.Outcomes.ErrorTTL <= 0 || c.Outcomes.SuccessTTL <= 0 {
		return fmt.Errorf("outcome TTLs must be positive")
	}
	if c.Outcomes.MaxEntries <= 0 {
		return fmt.Errorf("outcome max entries must be positive")
	}

	if c.Gancio.InstanceURL != "" {
		u, err := url.Parse(c.Gancio.InstanceURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("gancio instance URL must be absolute: %q", c.Gancio.InstanceURL)
		}
	}

	if err := c.Sources.Validate(); err != nil {
		return err
	}

	// Observability validation
	if c.Observability.LogLevel == "" {
		return fmt.Errorf("log level is required")
	}

	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// DSN returns the PostgreSQL connection string.
// Uses ConnectionString (from DATABASE_URL) when set; otherwise builds from individual fields.
func (c *DatabaseConfig) DSN() string {
	if c.ConnectionString != "" {
		return c.ConnectionString
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// LogString returns a safe string for logging (no password). Parses ConnectionString when set.
func (c *DatabaseConfig) LogString() string {
	if c.ConnectionString != "" {
		u, err := url.Parse(c.ConnectionString)
		if err == nil {
			host := u.Hostname()
			port := u.Port()
			if port == "" {
				port = "5432"
			}
			db := strings.TrimPrefix(u.Path, "/")
			return fmt.Sprintf("host=%s port=%s database=%s", host, port, db)
		}
		return "host=<from DATABASE_URL>"
	}
	return fmt.Sprintf("host=%s port=%d database=%s", c.Host, c.Port, c.Database)
}

// loadDatabaseConfig loads database config from DATABASE_URL or DB_* env vars
func loadDatabaseConfig() DatabaseConfig {
	dbURL := getEnv("DATABASE_URL", "")
	if dbURL != "" {
		return DatabaseConfig{
			ConnectionString: dbURL,
			MaxOpenConns:     getEnvAsInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:     getEnvAsInt("DB_MAX_IDLE_CONNS", 2),
			ConnMaxLifetime:  getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		}
	}
	return DatabaseConfig{
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            getEnvAsInt("DB_PORT", 5432),
		User:            getEnv("DB_USER", "wordpress"),
		Password:        getEnv("DB_PASSWORD", ""),
		Database:        getEnv("DB_NAME", "wordpress"),
		SSLMode:         getEnv("DB_SSLMODE", "disable"),
		MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 10),
		MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 2),
		ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
	}
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Helper functions

// getPort returns the server port from PORT or SERVER_PORT env vars (default: 8080)
func getPort() int {
	if value := os.Getenv("PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	if value := os.Getenv("SERVER_PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	return 8080
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsList splits a comma separated value, dropping blanks
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
