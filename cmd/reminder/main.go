// The reminder binary sweeps deadline reminders for very important
// tasks on a fixed cadence and exposes liveness/readiness probes.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rezkam/taskhub/internal/application/reminder"
	"github.com/rezkam/taskhub/internal/config"
	"github.com/rezkam/taskhub/internal/infrastructure/persistence/postgres"
	"github.com/rezkam/taskhub/pkg/observability"
)

const (
	serviceName     = "taskhub-reminder"
	probePort       = "8082"
	shutdownTimeout = 10 * time.Second
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to run: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	lp, logger, err := observability.InitLogger(ctx, serviceName, cfg.OTelEnabled)
	if err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := lp.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "failed to shutdown logger provider", "error", err)
		}
	}()
	slog.SetDefault(logger)

	slog.InfoContext(ctx, "starting taskhub reminder",
		"interval", cfg.ReminderCheckInterval.String(),
		"overdue", cfg.OverdueEnabled())

	store, err := postgres.NewStoreWithConfig(ctx, postgres.DBConfig{
		DSN:             cfg.DatabaseURL,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnLifetime,
	})
	if err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}
	defer store.Close()

	scheduler := reminder.NewScheduler(store, cfg.ReminderCheckInterval, cfg.OverdueEnabled())
	worker := reminder.NewWorker(scheduler, cfg.ReminderCheckInterval)

	probes := probeServer(worker)
	go func() {
		if err := probes.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("probe server failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := probes.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "failed to shutdown probe server", "error", err)
		}
	}()

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("reminder worker failed: %w", err)
	}
	slog.Info("reminder worker stopped")
	return nil
}

// probeServer exposes /health (process liveness) and /ready (a sweep
// completed within two intervals).
func probeServer(worker *reminder.Worker) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if !worker.Healthy() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, `{"status":"ready","last_tick":%q}`,
			worker.LastTick().Format(time.RFC3339))
	})

	return &http.Server{
		Addr:              ":" + probePort,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
