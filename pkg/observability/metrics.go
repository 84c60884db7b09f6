package observability

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Rate limiter metrics
	RateLimitAllowedTotal *prometheus.CounterVec
	RateLimitBlockedTotal *prometheus.CounterVec
	RateLimitClientsGauge prometheus.Gauge

	// Session metrics
	SessionsCreatedTotal     prometheus.Counter
	SessionsInvalidatedTotal prometheus.Counter
	SessionValidationsTotal  *prometheus.CounterVec

	// Authorization metrics
	AuthzDecisionsTotal *prometheus.CounterVec

	// Audit metrics
	AuditEventsTotal       *prometheus.CounterVec
	AuditSinkFailuresTotal prometheus.Counter

	// Database metrics
	DBConnectionsActive prometheus.Gauge
	DBConnectionsIdle   prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "edushield_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "edushield_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		RateLimitAllowedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "edushield_ratelimit_allowed_total",
				Help: "Requests admitted by the rate limiter",
			},
			[]string{"endpoint_class"},
		),
		RateLimitBlockedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "edushield_ratelimit_blocked_total",
				Help: "Requests rejected by the rate limiter",
			},
			[]string{"endpoint_class"},
		),
		RateLimitClientsGauge: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "edushield_ratelimit_tracked_clients",
				Help: "Client counters currently held in memory",
			},
		),
		SessionsCreatedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "edushield_sessions_created_total",
				Help: "Sessions issued",
			},
		),
		SessionsInvalidatedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "edushield_sessions_invalidated_total",
				Help: "Sessions explicitly revoked",
			},
		),
		SessionValidationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "edushield_session_validations_total",
				Help: "Session validation outcomes",
			},
			[]string{"result"},
		),
		AuthzDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "edushield_authz_decisions_total",
				Help: "Authorization decisions by resource type and reason",
			},
			[]string{"resource", "decision", "reason"},
		),
		AuditEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "edushield_audit_events_total",
				Help: "Audit events forwarded to the sink",
			},
			[]string{"category", "success"},
		),
		AuditSinkFailuresTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "edushield_audit_sink_failures_total",
				Help: "Audit sink write failures (swallowed, logged locally)",
			},
		),
		DBConnectionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "edushield_db_connections_active",
				Help: "Active database connections",
			},
		),
		DBConnectionsIdle: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "edushield_db_connections_idle",
				Help: "Idle database connections",
			},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.RateLimitAllowedTotal,
		m.RateLimitBlockedTotal,
		m.RateLimitClientsGauge,
		m.SessionsCreatedTotal,
		m.SessionsInvalidatedTotal,
		m.SessionValidationsTotal,
		m.AuthzDecisionsTotal,
		m.AuditEventsTotal,
		m.AuditSinkFailuresTotal,
		m.DBConnectionsActive,
		m.DBConnectionsIdle,
	)

	return m
}

// Handler returns an HTTP handler that serves the metrics registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveHTTPRequest records a completed HTTP request
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// CollectDBStats copies sql.DB pool statistics into the gauges.
// Call periodically; sql.DBStats is a point-in-time snapshot.
func (m *Metrics) CollectDBStats(db *sql.DB) {
	if db == nil {
		return
	}
	stats := db.Stats()
	m.DBConnectionsActive.Set(float64(stats.InUse))
	m.DBConnectionsIdle.Set(float64(stats.Idle))
}

// Middleware instruments an HTTP handler with request count and latency metrics
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		m.ObserveHTTPRequest(r.Method, r.URL.Path, sw.status, time.Since(start))
	})
}

// statusWriter captures the response status code
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
