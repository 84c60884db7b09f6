package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	token, err := GenerateToken()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(token, TokenPrefix))
	assert.NoError(t, ValidateTokenFormat(token))

	// 32 random bytes survive the round trip
	other, err := GenerateToken()
	require.NoError(t, err)
	assert.NotEqual(t, token, other)
}

func TestValidateTokenFormat(t *testing.T) {
	assert.Error(t, ValidateTokenFormat("not-a-token"))
	assert.Error(t, ValidateTokenFormat("eds_"))
	assert.Error(t, ValidateTokenFormat("eds_!!!not base64!!!"))
	assert.NoError(t, ValidateTokenFormat("eds_AAAA"))
}

func TestSessionValidity(t *testing.T) {
	now := time.Now()
	session := &Session{
		Active:    true,
		IssuedAt:  now.Add(-time.Hour),
		ExpiresAt: now.Add(time.Hour),
	}

	assert.True(t, session.Valid(now))
	assert.True(t, session.Valid(session.ExpiresAt), "validity includes the expiry instant")
	assert.False(t, session.Valid(session.ExpiresAt.Add(time.Nanosecond)))

	session.Active = false
	assert.False(t, session.Valid(now), "inactive is invalid regardless of expiry")
}
