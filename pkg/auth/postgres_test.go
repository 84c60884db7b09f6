package auth

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPostgresStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS sessions").
		WillReturnResult(sqlmock.NewResult(0, 0))

	store, err := NewPostgresStore(db)
	require.NoError(t, err)
	return store, mock
}

func TestPostgresStoreCreate(t *testing.T) {
	store, mock := testPostgresStore(t)

	session := &Session{
		ID:        "sess-1",
		UserID:    "user-1",
		Token:     "eds_abc",
		IssuedAt:  time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
		Active:    true,
	}

	mock.ExpectExec("INSERT INTO sessions").
		WithArgs(session.ID, session.UserID, session.Token, session.IssuedAt,
			session.ExpiresAt, session.IPAddress, session.UserAgent, session.Active).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Create(context.Background(), session))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreGetByToken(t *testing.T) {
	store, mock := testPostgresStore(t)

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "user_id", "token", "issued_at", "expires_at", "ip_address", "user_agent", "active",
	}).AddRow("sess-1", "user-1", "eds_abc", now, now.Add(time.Hour), "10.0.0.1", "agent", true)

	mock.ExpectQuery("SELECT id, user_id, token").
		WithArgs("eds_abc").
		WillReturnRows(rows)

	session, err := store.GetByToken(context.Background(), "eds_abc")
	require.NoError(t, err)
	assert.Equal(t, "sess-1", session.ID)
	assert.Equal(t, "10.0.0.1", session.IPAddress)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreGetByTokenNotFound(t *testing.T) {
	store, mock := testPostgresStore(t)

	mock.ExpectQuery("SELECT id, user_id, token").
		WithArgs("eds_missing").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "token", "issued_at", "expires_at", "ip_address", "user_agent", "active",
		}))

	_, err := store.GetByToken(context.Background(), "eds_missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestPostgresStoreUpdateNotFound(t *testing.T) {
	store, mock := testPostgresStore(t)

	session := &Session{Token: "eds_ghost", ExpiresAt: time.Now(), Active: false}

	mock.ExpectExec("UPDATE sessions").
		WithArgs(session.ExpiresAt, session.Active, session.Token).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, store.Update(context.Background(), session), ErrSessionNotFound)
}

func TestPostgresStoreDeleteExpired(t *testing.T) {
	store, mock := testPostgresStore(t)

	cutoff := time.Now()
	mock.ExpectExec("DELETE FROM sessions WHERE expires_at").
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 3))

	removed, err := store.DeleteExpired(context.Background(), cutoff)
	require.NoError(t, err)
	assert.EqualValues(t, 3, removed)
}
