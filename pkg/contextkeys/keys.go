// Package contextkeys provides centralized context key definitions
//
// IMPORTANT: All context keys used across the application must be defined here.
// This prevents typos, documents dependencies, and makes key usage discoverable.
//
// USAGE PATTERN:
//   import "github.com/edushield/edushield/pkg/contextkeys"
//   ctx = contextkeys.WithIdentity(ctx, ident)
//   ident := ctx.Value(contextkeys.IdentityKey).(*auth.Identity)
package contextkeys

import "context"

// Key is the type for context keys to prevent collisions
type Key string

const (
	// IdentityKey contains *auth.Identity
	// Set by: middleware.SessionMiddleware (pkg/middleware/session.go)
	// Required by: All protected API endpoints, authorization middleware
	// Type: *auth.Identity
	IdentityKey Key = "identity"

	// CorrelationIDKey contains the per-request correlation identifier
	// Set by: middleware.Correlation (pkg/middleware/correlation.go)
	// Used by: Logger, audit trail, response header echo
	// Type: string
	CorrelationIDKey Key = "correlation_id"

	// UserIDKey contains user ID string
	// Set by: Session middleware after identity binding
	// Used by: Logger, audit trail, user-scoped operations
	// Type: string
	UserIDKey Key = "user_id"

	// LoggerKey contains *observability.Logger
	// Set by: Observability middleware
	// Used by: Handlers that need structured logging with request context
	// Type: *observability.Logger
	LoggerKey Key = "logger"

	// AuditSinkKey contains audit.Sink interface
	// Set by: api.Server at request entry
	// Used by: Handlers and middleware that record audit events
	// Type: audit.Sink
	AuditSinkKey Key = "audit_sink"

	// ResourceKey contains the resource instance loaded for authorization
	// Set by: middleware.RequireResource (pkg/middleware/authz.go)
	// Used by: Handlers, to avoid a second repository load
	// Type: resource model pointer (e.g. *school.Student)
	ResourceKey Key = "resource"

	// RequestStartTimeKey contains request start timestamp
	// Set by: Correlation middleware
	// Used by: Duration calculation for request logs
	// Type: time.Time
	RequestStartTimeKey Key = "request_start_time"
)

// Helper functions for type-safe context operations

// WithIdentity adds the resolved request identity to the context
func WithIdentity(ctx context.Context, ident interface{}) context.Context {
	return context.WithValue(ctx, IdentityKey, ident)
}

// WithCorrelationID adds the correlation ID to the context
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CorrelationIDKey, id)
}

// WithUserID adds user ID to the context
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// WithLogger adds logger to the context
func WithLogger(ctx context.Context, logger interface{}) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// WithAuditSink adds the audit sink to the context
func WithAuditSink(ctx context.Context, sink interface{}) context.Context {
	return context.WithValue(ctx, AuditSinkKey, sink)
}

// WithResource adds the loaded resource instance to the context
func WithResource(ctx context.Context, resource interface{}) context.Context {
	return context.WithValue(ctx, ResourceKey, resource)
}

// GetResource retrieves the loaded resource instance from context
func GetResource(ctx context.Context) interface{} {
	return ctx.Value(ResourceKey)
}

// WithRequestStartTime adds request start time to the context
func WithRequestStartTime(ctx context.Context, startTime interface{}) context.Context {
	return context.WithValue(ctx, RequestStartTimeKey, startTime)
}

// GetCorrelationID retrieves the correlation ID from context
func GetCorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(CorrelationIDKey).(string); ok {
		return id
	}
	return ""
}

// GetUserID retrieves user ID from context
func GetUserID(ctx context.Context) string {
	if userID, ok := ctx.Value(UserIDKey).(string); ok {
		return userID
	}
	return ""
}
