package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "9090", cfg.Server.HealthPort)
	assert.Equal(t, "EduShield.Auth", cfg.Auth.CookieName)
	assert.Equal(t, 8*time.Hour, cfg.Auth.SessionTimeout)
	assert.False(t, cfg.Auth.DevBypassEnabled, "bypass must default off")

	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, 60, cfg.RateLimit.MaxRequests)
	assert.Equal(t, 10, cfg.RateLimit.MaxAuthRequests)
	assert.Equal(t, 15*time.Minute, cfg.RateLimit.BlockDuration)
	assert.Equal(t, []string{"/api/v1/auth/"}, cfg.RateLimit.AuthPathPrefixes)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("EDUSHIELD_PORT", "9999")
	t.Setenv("EDUSHIELD_SESSION_TIMEOUT", "2h")
	t.Setenv("EDUSHIELD_RATELIMIT_MAX_REQUESTS", "120")
	t.Setenv("EDUSHIELD_ALLOW_MULTIPLE_SESSIONS", "false")
	t.Setenv("EDUSHIELD_RATELIMIT_AUTH_PREFIXES", "/api/v1/auth/,/api/v1/sso/")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9999", cfg.Server.Port)
	assert.Equal(t, 2*time.Hour, cfg.Auth.SessionTimeout)
	assert.Equal(t, 120, cfg.RateLimit.MaxRequests)
	assert.False(t, cfg.Auth.AllowMultipleSessions)
	assert.Equal(t, []string{"/api/v1/auth/", "/api/v1/sso/"}, cfg.RateLimit.AuthPathPrefixes)
}

func TestValidateRejectsBadConfig(t *testing.T) {
	base := func() *Config {
		cfg, err := LoadConfig()
		require.NoError(t, err)
		return cfg
	}

	cfg := base()
	cfg.Server.HealthPort = cfg.Server.Port
	assert.Error(t, cfg.Validate(), "API and health ports must differ")

	cfg = base()
	cfg.Auth.SessionTimeout = 0
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.RateLimit.MaxAuthRequests = cfg.RateLimit.MaxRequests + 1
	assert.Error(t, cfg.Validate(), "auth limit may not exceed the general limit")

	cfg = base()
	cfg.Observability.OTelEnabled = true
	cfg.Observability.OTelEndpoint = ""
	assert.Error(t, cfg.Validate())
}
