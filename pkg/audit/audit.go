// Package audit records security-relevant events: authentication attempts,
// authorization decisions, and notable security events such as rate-limit
// blocks. Sinks are best-effort collaborators; callers log and continue when
// a sink write fails, they never fail the request over it.
package audit

import (
	"context"
	"time"
)

// Event categories
const (
	CategoryAuthentication = "authentication"
	CategoryAuthorization  = "authorization"
	CategorySecurity       = "security"
)

// Event is one audit record
type Event struct {
	ID          string    `json:"id"`
	Category    string    `json:"category"`
	UserID      string    `json:"user_id,omitempty"`
	Resource    string    `json:"resource,omitempty"`
	Action      string    `json:"action"`
	Success     bool      `json:"success"`
	Reason      string    `json:"reason,omitempty"`
	IPAddress   string    `json:"ip_address,omitempty"`
	UserAgent   string    `json:"user_agent,omitempty"`
	Description string    `json:"description,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// Sink receives audit events. Implementations must be safe for concurrent
// use; every call is an I/O boundary and honors context cancellation.
type Sink interface {
	// LogAuthentication records a login, logout, or session validation outcome.
	// failure carries the refusal reason when success is false.
	LogAuthentication(ctx context.Context, userID, action string, success bool, failure, ip, userAgent string) error

	// LogAuthorization records an access decision on a resource, allow or deny
	LogAuthorization(ctx context.Context, userID, resource, action string, success bool, reason string) error

	// LogSecurityEvent records a security occurrence outside the other two
	// categories, such as a client entering a rate-limit block
	LogSecurityEvent(ctx context.Context, eventType, description, userID, ip, userAgent string) error
}

// NopSink discards every event. Used in tests and when auditing is disabled.
type NopSink struct{}

func (NopSink) LogAuthentication(context.Context, string, string, bool, string, string, string) error {
	return nil
}

func (NopSink) LogAuthorization(context.Context, string, string, string, bool, string) error {
	return nil
}

func (NopSink) LogSecurityEvent(context.Context, string, string, string, string, string) error {
	return nil
}
