package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"calltrack.pro/license/handlers"
	"calltrack.pro/license/internal/config"
	"calltrack.pro/license/internal/email"
	"calltrack.pro/license/internal/logger"
	"calltrack.pro/license/storage"
	"github.com/getsentry/sentry-go"
)

var version = "dev"

func main() {
	if versionBytes, err := os.ReadFile("VERSION"); err == nil {
		version = strings.TrimSpace(string(versionBytes))
	}

	cfg, err := config.New()
	if err != nil {
		logger.Error("Invalid configuration", map[string]interface{}{
			"error": err.Error(),
		})
		os.Exit(1)
	}

	logger.SetLevel(logger.ParseLevel(cfg.LogLevel))
	defer logger.Default().Sync()

	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.SentryDSN,
		Environment:      cfg.AppEnv,
		Release:          version,
		Debug:            cfg.IsDevelopment(),
		TracesSampleRate: 1.0,
	}); err != nil {
		logger.Error("sentry.Init failed", map[string]interface{}{
			"error": err.Error(),
		})
		os.Exit(1)
	}
	defer sentry.Flush(2 * time.Second)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		sentry.CaptureException(err)
		logger.Error("Server stopped with error", map[string]interface{}{
			"error": err.Error(),
		})
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	db, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.AdminIssueSecret == "" {
		logger.Warn("ADMIN_ISSUE_SECRET is not set; issuance will answer missing_admin_secret")
	}
	if !cfg.StripeConfigured() {
		logger.Info("STRIPE_WEBHOOK_SECRET is not set; Stripe webhook disabled")
	}

	server := handlers.NewHttpServer(db, serverOptions(cfg))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server,
		ReadHeaderTimeout: cfg.ReadTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("CallTrack license API starting", map[string]interface{}{
			"version": version,
			"port":    cfg.Port,
			"store":   cfg.LicenseStore,
			"env":     cfg.AppEnv,
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down", map[string]interface{}{
		"timeout": cfg.ShutdownTimeout.String(),
	})

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}

func serverOptions(cfg *config.Config) handlers.Options {
	return handlers.Options{
		AdminSecret:         cfg.AdminIssueSecret,
		StoreTimeout:        cfg.StoreTimeout,
		StripeWebhookSecret: cfg.StripeWebhookSecret,
		Mailer:              newMailer(cfg),
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
		Version:             version,
		Logger:              logger.Default(),
	}
}

func newMailer(cfg *config.Config) email.Mailer {
	if !cfg.SMTPConfigured() {
		return nil
	}
	return email.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.EmailFrom)
}

func openStorage(ctx context.Context, cfg *config.Config) (storage.Storage, error) {
	switch cfg.LicenseStore {
	case config.StorePostgres:
		return storage.NewPostgresStorage(ctx, storage.PostgresOptions{
			DatabaseURL: cfg.DatabaseURL,
			ServiceKey:  cfg.DatabaseServiceKey,
			Migrate:     cfg.AutoMigrate,
		})
	case config.StoreSQLite:
		return storage.NewSQLiteStorage(cfg.SQLitePath)
	case config.StoreMemory:
		logger.Warn("Using in-memory license store; licenses are lost on restart")
		return storage.NewMemoryStorage(), nil
	default:
		return nil, fmt.Errorf("unknown LICENSE_STORE %q", cfg.LicenseStore)
	}
}
