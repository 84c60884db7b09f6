// The edushield binary runs the school-management API server: the request
// gate (rate limiting, session validation, resource authorization) in front
// of the CRUD surface, plus a separate health/metrics listener.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"github.com/edushield/edushield/pkg/api"
	"github.com/edushield/edushield/pkg/audit"
	"github.com/edushield/edushield/pkg/auth"
	"github.com/edushield/edushield/pkg/authz"
	"github.com/edushield/edushield/pkg/config"
	"github.com/edushield/edushield/pkg/middleware"
	"github.com/edushield/edushield/pkg/observability"
	"github.com/edushield/edushield/pkg/ratelimit"
	"github.com/edushield/edushield/pkg/school"
	"github.com/edushield/edushield/pkg/sso"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "edushield: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.Info("starting edushield")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	otelProviders, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}

	db, err := openDatabase(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer redisClient.Close()
	}

	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(prometheus.NewRegistry())
	}

	sink, err := buildAuditSink(db, logger)
	if err != nil {
		return err
	}

	sessionStore, err := buildSessionStore(db, redisClient, logger)
	if err != nil {
		return err
	}
	sessions := auth.NewSessionManager(sessionStore, logger,
		auth.WithDefaultTTL(cfg.Auth.SessionTimeout),
		auth.WithAllowMultipleSessions(cfg.Auth.AllowMultipleSessions),
	)

	limiter := ratelimit.NewLimiter(ratelimit.Config{
		Window:           cfg.RateLimit.Window,
		MaxRequests:      cfg.RateLimit.MaxRequests,
		MaxAuthRequests:  cfg.RateLimit.MaxAuthRequests,
		BlockDuration:    cfg.RateLimit.BlockDuration,
		IdleRetention:    cfg.RateLimit.IdleRetention,
		CleanupInterval:  cfg.RateLimit.CleanupInterval,
		AuthPathPrefixes: cfg.RateLimit.AuthPathPrefixes,
	})
	limiter.StartCleanup(ctx)

	repos := school.NewPostgresRepositories(db)
	engine := authz.NewEngine(sink, logger)

	devRole, _ := auth.ParseRole(cfg.Auth.DevBypassRole)
	if cfg.Auth.DevBypassEnabled {
		logger.Warn("development auth bypass is ENABLED; do not run this in production")
	}

	gate := middleware.NewGate(middleware.GateConfig{
		CookieName:       cfg.Auth.CookieName,
		DevBypassEnabled: cfg.Auth.DevBypassEnabled,
		DevBypassUserID:  cfg.Auth.DevBypassUserID,
		DevBypassRole:    devRole,
	}, limiter, sessions, repos.Users, engine, sink, metrics, logger)

	provider := sso.NewProvider(sso.ProviderConfig{
		ClientID:     cfg.Auth.OAuthClientID,
		ClientSecret: cfg.Auth.OAuthClientSecret,
		AuthURL:      cfg.Auth.OAuthAuthURL,
		TokenURL:     cfg.Auth.OAuthTokenURL,
		UserInfoURL:  cfg.Auth.OAuthUserInfoURL,
		RedirectURL:  cfg.Server.BaseURL + "/api/v1/auth/callback",
		Scopes:       cfg.Auth.OAuthScopes,
	})

	server := api.NewServer(cfg, logger, metrics, gate, sessions, repos, provider)

	var handler http.Handler = server.Router()
	if cfg.Observability.OTelEnabled {
		handler = otelhttp.NewHandler(handler, "edushield-api")
	}

	apiServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	healthServer := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler: healthMux(db, redisClient, metrics),
	}

	shutdown := observability.NewShutdownManager(logger, apiServer, cfg.Server.ShutdownTimeout)
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return healthServer.Shutdown(ctx)
	})
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		cancel()
		return observability.ShutdownOTel(ctx, otelProviders, logger)
	})

	if metrics != nil {
		go collectDBStats(ctx, metrics, db, limiter)
	}

	group, _ := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Infof("API server listening on %s", apiServer.Addr)
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		logger.Infof("health server listening on %s", healthServer.Addr)
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("health server: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		return shutdown.WaitForShutdown()
	})

	return group.Wait()
}

func openDatabase(cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxConns)
	db.SetMaxIdleConns(cfg.MinConns)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// buildAuditSink prefers the database sink and falls back to log-only
func buildAuditSink(db *sql.DB, logger *observability.Logger) (audit.Sink, error) {
	sink, err := audit.NewDBSink(db)
	if err != nil {
		logger.WithError(err).Warn("audit database sink unavailable, falling back to log sink")
		return audit.NewLogSink(logger), nil
	}
	return sink, nil
}

// buildSessionStore uses Redis when configured, Postgres otherwise
func buildSessionStore(db *sql.DB, redisClient *redis.Client, logger *observability.Logger) (auth.SessionStore, error) {
	if redisClient != nil {
		logger.Info("using redis session store")
		store, err := auth.NewRedisStore(redisClient)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	logger.Info("using postgres session store")
	store, err := auth.NewPostgresStore(db)
	if err != nil {
		return nil, err
	}
	return store, nil
}

func healthMux(db *sql.DB, redisClient *redis.Client, metrics *observability.Metrics) http.Handler {
	checker := observability.NewHealthChecker(db, redisClient)
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", checker.Liveness)
	mux.HandleFunc("/readyz", checker.Readiness)
	if metrics != nil {
		mux.Handle("/metrics", metrics.Handler())
	}
	return mux
}

// collectDBStats refreshes the pool and limiter gauges periodically
func collectDBStats(ctx context.Context, metrics *observability.Metrics, db *sql.DB, limiter *ratelimit.Limiter) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			metrics.CollectDBStats(db)
			metrics.RateLimitClientsGauge.Set(float64(limiter.Size()))
		case <-ctx.Done():
			return
		}
	}
}
