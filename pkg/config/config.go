package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/edushield/edushield/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	Auth          AuthConfig
	RateLimit     RateLimitConfig
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string

	// BaseURL is the externally visible URL, used for OAuth redirects
	BaseURL string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL      string
	MaxConns int
	MinConns int
}

// RedisConfig holds optional Redis configuration. When Addr is empty the
// server uses the Postgres session store exclusively.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// AuthConfig holds session and login configuration
type AuthConfig struct {
	CookieName            string
	CookieSecure          bool
	SessionTimeout        time.Duration
	AllowMultipleSessions bool

	// Development bypass. When enabled, the request gate substitutes a fixed
	// synthetic identity for rate limiting and session validation. Must never
	// be enabled in production deployments.
	DevBypassEnabled bool
	DevBypassUserID  string
	DevBypassRole    string

	// OAuth2 login flow
	OAuthClientID     string
	OAuthClientSecret string
	OAuthAuthURL      string
	OAuthTokenURL     string
	OAuthUserInfoURL  string
	OAuthScopes       []string
}

// RateLimitConfig holds the client rate limiter settings
type RateLimitConfig struct {
	Window           time.Duration
	MaxRequests      int
	MaxAuthRequests  int
	BlockDuration    time.Duration
	IdleRetention    time.Duration
	CleanupInterval  time.Duration
	AuthPathPrefixes []string
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool

	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Database:      loadDatabaseConfig(),
		Redis:         loadRedisConfig(),
		Auth:          loadAuthConfig(),
		RateLimit:     loadRateLimitConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("EDUSHIELD_HOST", "0.0.0.0"),
		Port:            getEnv("EDUSHIELD_PORT", "8080"),
		ReadTimeout:     getEnvDuration("EDUSHIELD_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("EDUSHIELD_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("EDUSHIELD_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("EDUSHIELD_SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:      getEnv("EDUSHIELD_HEALTH_PORT", "9090"),
		BaseURL:         getEnv("EDUSHIELD_BASE_URL", "http://localhost:8080"),
	}
}

func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		URL:      getEnv("EDUSHIELD_POSTGRES_URL", "postgres://localhost/edushield?sslmode=disable"),
		MaxConns: getEnvInt("EDUSHIELD_POSTGRES_MAX_CONNS", 25),
		MinConns: getEnvInt("EDUSHIELD_POSTGRES_MIN_CONNS", 5),
	}
}

func loadRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:     getEnv("EDUSHIELD_REDIS_ADDR", ""),
		Password: getEnv("EDUSHIELD_REDIS_PASSWORD", ""),
		DB:       getEnvInt("EDUSHIELD_REDIS_DB", 0),
	}
}

func loadAuthConfig() AuthConfig {
	return AuthConfig{
		CookieName:            getEnv("EDUSHIELD_AUTH_COOKIE_NAME", "EduShield.Auth"),
		CookieSecure:          getEnvBool("EDUSHIELD_AUTH_COOKIE_SECURE", true),
		SessionTimeout:        getEnvDuration("EDUSHIELD_SESSION_TIMEOUT", 8*time.Hour),
		AllowMultipleSessions: getEnvBool("EDUSHIELD_ALLOW_MULTIPLE_SESSIONS", true),
		DevBypassEnabled:      getEnvBool("EDUSHIELD_DEV_BYPASS_ENABLED", false),
		DevBypassUserID:       getEnv("EDUSHIELD_DEV_BYPASS_USER_ID", "dev-user"),
		DevBypassRole:         getEnv("EDUSHIELD_DEV_BYPASS_ROLE", "SystemAdmin"),
		OAuthClientID:         getEnv("EDUSHIELD_OAUTH_CLIENT_ID", ""),
		OAuthClientSecret:     getEnv("EDUSHIELD_OAUTH_CLIENT_SECRET", ""),
		OAuthAuthURL:          getEnv("EDUSHIELD_OAUTH_AUTH_URL", ""),
		OAuthTokenURL:         getEnv("EDUSHIELD_OAUTH_TOKEN_URL", ""),
		OAuthUserInfoURL:      getEnv("EDUSHIELD_OAUTH_USERINFO_URL", ""),
		OAuthScopes:           getEnvList("EDUSHIELD_OAUTH_SCOPES", []string{"openid", "profile", "email"}),
	}
}

func loadRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Window:          getEnvDuration("EDUSHIELD_RATELIMIT_WINDOW", time.Minute),
		MaxRequests:     getEnvInt("EDUSHIELD_RATELIMIT_MAX_REQUESTS", 60),
		MaxAuthRequests: getEnvInt("EDUSHIELD_RATELIMIT_MAX_AUTH_REQUESTS", 10),
		BlockDuration:   getEnvDuration("EDUSHIELD_RATELIMIT_BLOCK_DURATION", 15*time.Minute),
		IdleRetention:   getEnvDuration("EDUSHIELD_RATELIMIT_IDLE_RETENTION", time.Hour),
		CleanupInterval: getEnvDuration("EDUSHIELD_RATELIMIT_CLEANUP_INTERVAL", 5*time.Minute),
		AuthPathPrefixes: getEnvList("EDUSHIELD_RATELIMIT_AUTH_PREFIXES", []string{
			"/api/v1/auth/",
		}),
	}
}

func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           parseLogLevel(getEnv("EDUSHIELD_LOG_LEVEL", "info")),
		MetricsEnabled:     getEnvBool("EDUSHIELD_METRICS_ENABLED", true),
		OTelEnabled:        getEnvBool("EDUSHIELD_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("EDUSHIELD_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("EDUSHIELD_OTEL_SERVICE_NAME", "edushield"),
		OTelServiceVersion: getEnv("EDUSHIELD_OTEL_SERVICE_VERSION", "1.0.0"),
		OTelInsecure:       getEnvBool("EDUSHIELD_OTEL_INSECURE", true),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	if c.Database.URL == "" {
		return fmt.Errorf("postgres URL is required")
	}

	if c.Auth.CookieName == "" {
		return fmt.Errorf("auth cookie name is required")
	}
	if c.Auth.SessionTimeout <= 0 {
		return fmt.Errorf("session timeout must be positive")
	}

	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("rate limit window must be positive")
	}
	if c.RateLimit.MaxRequests <= 0 {
		return fmt.Errorf("rate limit max requests must be positive")
	}
	if c.RateLimit.MaxAuthRequests > c.RateLimit.MaxRequests {
		return fmt.Errorf("auth request limit cannot exceed the general limit")
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvList returns a comma-separated environment variable or a default
func getEnvList(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}
