package audit

import (
	"context"
	"time"

	"github.com/edushield/edushield/pkg/observability"
)

// LogSink writes audit events to the structured application log. It is the
// fallback sink when no database is configured and the local mirror wrapped
// around the database sink in production.
type LogSink struct {
	logger *observability.Logger
}

// NewLogSink creates a log-backed audit sink
func NewLogSink(logger *observability.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) LogAuthentication(ctx context.Context, userID, action string, success bool, failure, ip, userAgent string) error {
	s.logger.WithFields(map[string]interface{}{
		"category":   CategoryAuthentication,
		"user_id":    userID,
		"action":     action,
		"success":    success,
		"failure":    failure,
		"ip":         ip,
		"user_agent": userAgent,
		"at":         time.Now().UTC().Format(time.RFC3339),
	}).Info("audit: authentication")
	return nil
}

func (s *LogSink) LogAuthorization(ctx context.Context, userID, resource, action string, success bool, reason string) error {
	s.logger.WithFields(map[string]interface{}{
		"category": CategoryAuthorization,
		"user_id":  userID,
		"resource": resource,
		"action":   action,
		"success":  success,
		"reason":   reason,
		"at":       time.Now().UTC().Format(time.RFC3339),
	}).Info("audit: authorization")
	return nil
}

func (s *LogSink) LogSecurityEvent(ctx context.Context, eventType, description, userID, ip, userAgent string) error {
	s.logger.WithFields(map[string]interface{}{
		"category":   CategorySecurity,
		"event_type": eventType,
		"user_id":    userID,
		"ip":         ip,
		"user_agent": userAgent,
		"at":         time.Now().UTC().Format(time.RFC3339),
	}).Warn(description)
	return nil
}
