package audit

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDBSink(t *testing.T) (*DBSink, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS audit_events").
		WillReturnResult(sqlmock.NewResult(0, 0))

	sink, err := NewDBSink(db)
	require.NoError(t, err)
	return sink, mock
}

func TestLogAuthorization(t *testing.T) {
	sink, mock := testDBSink(t)

	mock.ExpectExec("INSERT INTO audit_events").
		WithArgs(sqlmock.AnyArg(), CategoryAuthorization, nullable("u1"), nullable("Student"),
			"Access", true, nullable("SelfAccess"), nullable(""), nullable(""), nullable(""),
			sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := sink.LogAuthorization(context.Background(), "u1", "Student", "Access", true, "SelfAccess")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLogAuthentication(t *testing.T) {
	sink, mock := testDBSink(t)

	mock.ExpectExec("INSERT INTO audit_events").
		WithArgs(sqlmock.AnyArg(), CategoryAuthentication, nullable("u1"), nullable(""),
			"Login", false, nullable("UserDeactivated"), nullable("10.0.0.1"),
			nullable("agent"), nullable(""), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := sink.LogAuthentication(context.Background(), "u1", "Login", false,
		"UserDeactivated", "10.0.0.1", "agent")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteBefore(t *testing.T) {
	sink, mock := testDBSink(t)

	cutoff := time.Now().Add(-90 * 24 * time.Hour)
	mock.ExpectExec("DELETE FROM audit_events").
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 42))

	removed, err := sink.DeleteBefore(context.Background(), cutoff)
	require.NoError(t, err)
	assert.EqualValues(t, 42, removed)
}

func TestNopSink(t *testing.T) {
	var sink Sink = NopSink{}
	ctx := context.Background()

	assert.NoError(t, sink.LogAuthentication(ctx, "", "Login", true, "", "", ""))
	assert.NoError(t, sink.LogAuthorization(ctx, "", "Student", "Access", false, "InsufficientPermissions"))
	assert.NoError(t, sink.LogSecurityEvent(ctx, "RateLimitExceeded", "", "", "", ""))
}
