package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DBSink persists audit events to Postgres
type DBSink struct {
	db *sql.DB
}

// NewDBSink creates a Postgres-backed audit sink and ensures the table exists
func NewDBSink(db *sql.DB) (*DBSink, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	sink := &DBSink{db: db}
	if err := sink.ensureTable(); err != nil {
		return nil, fmt.Errorf("failed to ensure audit table: %w", err)
	}
	return sink, nil
}

func (s *DBSink) ensureTable() error {
	query := `
		CREATE TABLE IF NOT EXISTS audit_events (
			id UUID PRIMARY KEY,
			category VARCHAR(32) NOT NULL,
			user_id VARCHAR(255),
			resource VARCHAR(255),
			action VARCHAR(255) NOT NULL,
			success BOOLEAN NOT NULL,
			reason TEXT,
			ip_address VARCHAR(64),
			user_agent TEXT,
			description TEXT,
			occurred_at TIMESTAMP WITH TIME ZONE NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_audit_events_occurred_at ON audit_events(occurred_at);
		CREATE INDEX IF NOT EXISTS idx_audit_events_user_id ON audit_events(user_id);
		CREATE INDEX IF NOT EXISTS idx_audit_events_category ON audit_events(category);
	`
	_, err := s.db.Exec(query)
	return err
}

func (s *DBSink) insert(ctx context.Context, event *Event) error {
	query := `
		INSERT INTO audit_events
			(id, category, user_id, resource, action, success, reason, ip_address, user_agent, description, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := s.db.ExecContext(ctx, query,
		event.ID,
		event.Category,
		nullable(event.UserID),
		nullable(event.Resource),
		event.Action,
		event.Success,
		nullable(event.Reason),
		nullable(event.IPAddress),
		nullable(event.UserAgent),
		nullable(event.Description),
		event.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit event: %w", err)
	}
	return nil
}

func (s *DBSink) LogAuthentication(ctx context.Context, userID, action string, success bool, failure, ip, userAgent string) error {
	return s.insert(ctx, &Event{
		ID:         uuid.NewString(),
		Category:   CategoryAuthentication,
		UserID:     userID,
		Action:     action,
		Success:    success,
		Reason:     failure,
		IPAddress:  ip,
		UserAgent:  userAgent,
		OccurredAt: time.Now().UTC(),
	})
}

func (s *DBSink) LogAuthorization(ctx context.Context, userID, resource, action string, success bool, reason string) error {
	return s.insert(ctx, &Event{
		ID:         uuid.NewString(),
		Category:   CategoryAuthorization,
		UserID:     userID,
		Resource:   resource,
		Action:     action,
		Success:    success,
		Reason:     reason,
		OccurredAt: time.Now().UTC(),
	})
}

func (s *DBSink) LogSecurityEvent(ctx context.Context, eventType, description, userID, ip, userAgent string) error {
	return s.insert(ctx, &Event{
		ID:          uuid.NewString(),
		Category:    CategorySecurity,
		Action:      eventType,
		Success:     false,
		UserID:      userID,
		IPAddress:   ip,
		UserAgent:   userAgent,
		Description: description,
		OccurredAt:  time.Now().UTC(),
	})
}

// DeleteBefore purges events older than the cutoff and returns the count
// removed. The sweeper calls this on its retention schedule.
func (s *DBSink) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM audit_events WHERE occurred_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge audit events: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read purge result: %w", err)
	}
	return rows, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
