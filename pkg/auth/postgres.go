package auth

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// PostgresStore implements SessionStore over PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a Postgres-backed session store and ensures the
// sessions table exists
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	store := &PostgresStore{db: db}
	if err := store.ensureTable(); err != nil {
		return nil, fmt.Errorf("failed to ensure sessions table: %w", err)
	}
	return store, nil
}

func (s *PostgresStore) ensureTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS sessions (
		id VARCHAR(64) PRIMARY KEY,
		user_id VARCHAR(64) NOT NULL,
		token VARCHAR(128) NOT NULL UNIQUE,
		issued_at TIMESTAMP WITH TIME ZONE NOT NULL,
		expires_at TIMESTAMP WITH TIME ZONE NOT NULL,
		ip_address VARCHAR(45),
		user_agent TEXT,
		active BOOLEAN NOT NULL DEFAULT TRUE
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_user_id ON sessions(user_id);
	CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at);
	`

	_, err := s.db.Exec(query)
	return err
}

func (s *PostgresStore) Create(ctx context.Context, session *Session) error {
	query := `
		INSERT INTO sessions (id, user_id, token, issued_at, expires_at, ip_address, user_agent, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.db.ExecContext(ctx, query,
		session.ID,
		session.UserID,
		session.Token,
		session.IssuedAt,
		session.ExpiresAt,
		session.IPAddress,
		session.UserAgent,
		session.Active,
	)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetByToken(ctx context.Context, token string) (*Session, error) {
	query := `
		SELECT id, user_id, token, issued_at, expires_at, ip_address, user_agent, active
		FROM sessions
		WHERE token = $1
	`

	session := &Session{}
	var ipAddress, userAgent sql.NullString

	err := s.db.QueryRowContext(ctx, query, token).Scan(
		&session.ID,
		&session.UserID,
		&session.Token,
		&session.IssuedAt,
		&session.ExpiresAt,
		&ipAddress,
		&userAgent,
		&session.Active,
	)
	if err == sql.ErrNoRows {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	session.IPAddress = ipAddress.String
	session.UserAgent = userAgent.String
	return session, nil
}

func (s *PostgresStore) Update(ctx context.Context, session *Session) error {
	query := `
		UPDATE sessions
		SET expires_at = $1, active = $2
		WHERE token = $3
	`

	result, err := s.db.ExecContext(ctx, query, session.ExpiresAt, session.Active, session.Token)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if rows == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID string) ([]*Session, error) {
	query := `
		SELECT id, user_id, token, issued_at, expires_at, ip_address, user_agent, active
		FROM sessions
		WHERE user_id = $1
		ORDER BY issued_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		session := &Session{}
		var ipAddress, userAgent sql.NullString
		if err := rows.Scan(
			&session.ID,
			&session.UserID,
			&session.Token,
			&session.IssuedAt,
			&session.ExpiresAt,
			&ipAddress,
			&userAgent,
			&session.Active,
		); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		session.IPAddress = ipAddress.String
		session.UserAgent = userAgent.String
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sessions: %w", err)
	}
	return sessions, nil
}

func (s *PostgresStore) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return result.RowsAffected()
}
