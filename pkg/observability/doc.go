// Package observability provides structured logging, Prometheus metrics,
// health probes, OpenTelemetry initialization, and graceful shutdown
// management for the EduShield services.
//
// The Logger wraps log/slog with a JSON handler and field chaining. Metrics
// are registered against an explicit prometheus.Registry owned by the server
// instance, never the global default. The HealthChecker probes Postgres and
// Redis for readiness; liveness is unconditional.
package observability
