// Command authd serves the /auth HTTP API. It reads its settings from the
// environment, connects to Redis and Postgres, and drains in-flight requests
// on SIGINT or SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/debtflow/authcore"
	"github.com/debtflow/authcore/internal/envconfig"
	"github.com/debtflow/authcore/internal/httpapi"
	"github.com/debtflow/authcore/internal/userstore"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const shutdownTimeout = 10 * time.Second

func main() {
	settings, err := envconfig.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := envconfig.NewLogger(settings, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to configure logging: %v\n", err)
		os.Exit(1)
	}

	if err := run(settings, logger); err != nil {
		logger.Error().Err(err).Msg("authd exited")
		os.Exit(1)
	}
}

func run(settings envconfig.Settings, logger zerolog.Logger) error {
	logger.Info().
		Str("env", settings.Env).
		Int("port", settings.Port).
		Msg("starting authd")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Redis ---
	opts, err := redis.ParseURL(settings.RedisURL)
	if err != nil {
		return fmt.Errorf("parse REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(opts)
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info().Str("addr", opts.Addr).Int("db", opts.DB).Msg("connected to redis")

	// --- Postgres ---
	if settings.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	db, err := userstore.Open(ctx, settings.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer db.Close()
	logger.Info().Msg("connected to postgres")

	// --- Service ---
	builder := authcore.New().
		WithConfig(settings.Auth).
		WithRedis(rdb).
		WithUserProvider(userstore.New(db, userstore.WithTable(settings.UserTable))).
		WithLogger(logger)
	if settings.Auth.Audit.Enabled {
		builder = builder.WithAuditSink(authcore.NewLoggerSink(logger))
	}
	svc, err := builder.Build()
	if err != nil {
		return fmt.Errorf("build auth service: %w", err)
	}
	defer svc.Close()

	report := svc.SecurityReport()
	logger.Info().
		Str("signing", report.SigningAlgorithm).
		Dur("access_ttl", report.AccessTTL).
		Dur("session_ttl", report.SessionTTL).
		Bool("atomic_reuse", report.AtomicSessionReuse).
		Int("max_attempts", report.MaxLoginAttempts).
		Dur("lockout", report.LockoutDuration).
		Bool("refresh_outlives_session", report.RefreshOutlivesSession).
		Msg("auth service ready")

	srv := httpapi.New(svc, httpapi.Options{
		SecureCookies: settings.Production(),
		TrustProxy:    settings.TrustProxy,
		Logger:        logger,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(fmt.Sprintf(":%d", settings.Port))
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}
