// The edushield-sweeper binary runs scheduled database hygiene: expired
// session removal and audit log retention. It connects straight to Postgres
// and runs independently of the API server.
package main

import (
	"context"
	"database/sql"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/edushield/edushield/pkg/audit"
	"github.com/edushield/edushield/pkg/auth"
)

func main() {
	var (
		postgresURL    = flag.String("postgres-url", os.Getenv("EDUSHIELD_POSTGRES_URL"), "Postgres connection URL")
		sessionSpec    = flag.String("session-schedule", "*/15 * * * *", "cron schedule for the expired-session sweep")
		auditSpec      = flag.String("audit-schedule", "30 2 * * *", "cron schedule for the audit retention purge")
		auditRetention = flag.Duration("audit-retention", 90*24*time.Hour, "how long audit events are kept")
		once           = flag.Bool("once", false, "run both sweeps immediately and exit")
	)
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	if *postgresURL == "" {
		log.Fatal("postgres URL is required (flag -postgres-url or EDUSHIELD_POSTGRES_URL)")
	}

	db, err := sql.Open("postgres", *postgresURL)
	if err != nil {
		log.WithError(err).Fatal("failed to open database")
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}

	sessionStore, err := auth.NewPostgresStore(db)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize session store")
	}
	auditSink, err := audit.NewDBSink(db)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize audit store")
	}

	sweeper := &sweeper{
		sessions:       sessionStore,
		audits:         auditSink,
		auditRetention: *auditRetention,
		log:            log,
	}

	if *once {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		sweeper.sweepSessions(ctx)
		sweeper.purgeAudits(ctx)
		return
	}

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(*sessionSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		sweeper.sweepSessions(ctx)
	}); err != nil {
		log.WithError(err).Fatal("invalid session sweep schedule")
	}
	if _, err := scheduler.AddFunc(*auditSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()
		sweeper.purgeAudits(ctx)
	}); err != nil {
		log.WithError(err).Fatal("invalid audit purge schedule")
	}

	log.WithFields(logrus.Fields{
		"session_schedule": *sessionSpec,
		"audit_schedule":   *auditSpec,
		"audit_retention":  auditRetention.String(),
	}).Info("sweeper started")
	scheduler.Start()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Infof("received %s, stopping", sig)

	stopCtx := scheduler.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(time.Minute):
		log.Warn("timed out waiting for running jobs")
	}
}

type sweeper struct {
	sessions       auth.SessionStore
	audits         *audit.DBSink
	auditRetention time.Duration
	log            *logrus.Logger
}

func (s *sweeper) sweepSessions(ctx context.Context) {
	start := time.Now()
	removed, err := s.sessions.DeleteExpired(ctx, time.Now())
	if err != nil {
		s.log.WithError(err).Error("expired session sweep failed")
		return
	}
	s.log.WithFields(logrus.Fields{
		"removed":     removed,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("expired session sweep complete")
}

func (s *sweeper) purgeAudits(ctx context.Context) {
	cutoff := time.Now().Add(-s.auditRetention)
	start := time.Now()
	removed, err := s.audits.DeleteBefore(ctx, cutoff)
	if err != nil {
		s.log.WithError(err).Error("audit retention purge failed")
		return
	}
	s.log.WithFields(logrus.Fields{
		"removed":     removed,
		"cutoff":      cutoff.Format(time.RFC3339),
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("audit retention purge complete")
}
