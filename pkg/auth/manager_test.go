package auth

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edushield/edushield/pkg/observability"
)

func testManager(t *testing.T, opts ...SessionManagerOption) (*SessionManager, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	return NewSessionManager(store, logger, opts...), store
}

func TestCreateAndValidateSession(t *testing.T) {
	sm, _ := testManager(t)
	ctx := context.Background()

	session, err := sm.CreateSession(ctx, "user-1", "10.0.0.1", "test-agent", time.Hour)
	require.NoError(t, err)
	assert.NotEmpty(t, session.ID)
	assert.NoError(t, ValidateTokenFormat(session.Token))
	assert.True(t, session.Active)

	ok, err := sm.ValidateSession(ctx, session.Token)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestValidateUnknownToken(t *testing.T) {
	sm, _ := testManager(t)

	ok, err := sm.ValidateSession(context.Background(), "eds_unknown")
	require.NoError(t, err, "an unknown token is invalid, not an error")
	assert.False(t, ok)
}

func TestLazyExpiry(t *testing.T) {
	sm, store := testManager(t)
	ctx := context.Background()

	session, err := sm.CreateSession(ctx, "user-1", "", "", time.Hour)
	require.NoError(t, err)

	// Age the stored session past its expiry; nothing sweeps it.
	session.ExpiresAt = time.Now().Add(-time.Minute)
	require.NoError(t, store.Update(ctx, session))

	ok, err := sm.ValidateSession(ctx, session.Token)
	require.NoError(t, err)
	assert.False(t, ok, "expiry is enforced at read time")

	_, err = sm.ResolveSession(ctx, session.Token)
	assert.ErrorIs(t, err, ErrSessionExpired)
}

func TestInvalidateSessionIdempotent(t *testing.T) {
	sm, _ := testManager(t)
	ctx := context.Background()

	session, err := sm.CreateSession(ctx, "user-1", "", "", time.Hour)
	require.NoError(t, err)

	require.NoError(t, sm.InvalidateSession(ctx, session.Token))
	require.NoError(t, sm.InvalidateSession(ctx, session.Token), "second invalidation is a no-op")
	require.NoError(t, sm.InvalidateSession(ctx, "eds_never-issued"), "unknown token is a no-op")

	ok, err := sm.ValidateSession(ctx, session.Token)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestExtendSessionNeverResurrects(t *testing.T) {
	sm, store := testManager(t)
	ctx := context.Background()

	session, err := sm.CreateSession(ctx, "user-1", "", "", time.Hour)
	require.NoError(t, err)

	session.ExpiresAt = time.Now().Add(-time.Minute)
	require.NoError(t, store.Update(ctx, session))

	require.NoError(t, sm.ExtendSession(ctx, session.Token, 24*time.Hour))

	stored, err := store.GetByToken(ctx, session.Token)
	require.NoError(t, err)
	assert.True(t, stored.Expired(time.Now()), "extension must not revive an expired session")
}

func TestExtendValidSession(t *testing.T) {
	sm, store := testManager(t)
	ctx := context.Background()

	session, err := sm.CreateSession(ctx, "user-1", "", "", time.Hour)
	require.NoError(t, err)
	originalExpiry := session.ExpiresAt

	require.NoError(t, sm.ExtendSession(ctx, session.Token, 30*time.Minute))

	stored, err := store.GetByToken(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, originalExpiry.Add(30*time.Minute), stored.ExpiresAt)
}

func TestSingleSessionMode(t *testing.T) {
	sm, _ := testManager(t, WithAllowMultipleSessions(false))
	ctx := context.Background()

	first, err := sm.CreateSession(ctx, "user-1", "", "", time.Hour)
	require.NoError(t, err)
	second, err := sm.CreateSession(ctx, "user-1", "", "", time.Hour)
	require.NoError(t, err)

	ok, err := sm.ValidateSession(ctx, first.Token)
	require.NoError(t, err)
	assert.False(t, ok, "prior session is revoked when multiples are disallowed")

	ok, err = sm.ValidateSession(ctx, second.Token)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestInvalidateAllSessions(t *testing.T) {
	sm, _ := testManager(t)
	ctx := context.Background()

	s1, err := sm.CreateSession(ctx, "user-1", "", "", time.Hour)
	require.NoError(t, err)
	s2, err := sm.CreateSession(ctx, "user-1", "", "", time.Hour)
	require.NoError(t, err)
	other, err := sm.CreateSession(ctx, "user-2", "", "", time.Hour)
	require.NoError(t, err)

	require.NoError(t, sm.InvalidateAllSessions(ctx, "user-1"))

	for _, token := range []string{s1.Token, s2.Token} {
		ok, err := sm.ValidateSession(ctx, token)
		require.NoError(t, err)
		assert.False(t, ok)
	}
	ok, err := sm.ValidateSession(ctx, other.Token)
	require.NoError(t, err)
	assert.True(t, ok, "other users are untouched")
}

func TestSweepExpiredSessions(t *testing.T) {
	sm, store := testManager(t)
	ctx := context.Background()

	live, err := sm.CreateSession(ctx, "user-1", "", "", time.Hour)
	require.NoError(t, err)
	dead, err := sm.CreateSession(ctx, "user-1", "", "", time.Hour)
	require.NoError(t, err)
	dead.ExpiresAt = time.Now().Add(-time.Minute)
	require.NoError(t, store.Update(ctx, dead))

	removed, err := sm.SweepExpiredSessions(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)

	_, err = store.GetByToken(ctx, dead.Token)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = store.GetByToken(ctx, live.Token)
	assert.NoError(t, err)
}
