// The server binary runs the TaskHub HTTP API: authentication, tasks,
// history, stats, notifications, recurring series, and chat. Every task
// mutation is published to the Redis event log consumed by the worker
// binary.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rezkam/taskhub/internal/application/auth"
	"github.com/rezkam/taskhub/internal/application/chat"
	"github.com/rezkam/taskhub/internal/application/task"
	"github.com/rezkam/taskhub/internal/config"
	"github.com/rezkam/taskhub/internal/eventlog"
	"github.com/rezkam/taskhub/internal/infrastructure/assistant"
	apihttp "github.com/rezkam/taskhub/internal/infrastructure/http"
	"github.com/rezkam/taskhub/internal/infrastructure/http/handler"
	"github.com/rezkam/taskhub/internal/infrastructure/identity"
	"github.com/rezkam/taskhub/internal/infrastructure/persistence/postgres"
	"github.com/rezkam/taskhub/pkg/observability"
)

const (
	serviceName     = "taskhub-server"
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

	// Root context for all normal operations; cancels on SIGTERM/SIGINT.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	lp, logger, err := observability.InitLogger(ctx, serviceName, cfg.OTelEnabled)
	if err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := newShutdownContext()
		defer cancel()
		if err := lp.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "failed to shutdown logger provider", "error", err)
		}
	}()
	slog.SetDefault(logger)

	tp, err := observability.InitTracerProvider(ctx, serviceName, cfg.OTelEnabled)
	if err != nil {
		return fmt.Errorf("failed to init tracer provider: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := newShutdownContext()
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "failed to shutdown tracer provider", "error", err)
		}
	}()

	mp, err := observability.InitMeterProvider(ctx, serviceName, cfg.OTelEnabled)
	if err != nil {
		return fmt.Errorf("failed to init meter provider: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := newShutdownContext()
		defer cancel()
		if err := mp.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "failed to shutdown meter provider", "error", err)
		}
	}()

	slog.InfoContext(ctx, "starting taskhub server", "env", cfg.Env)

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
	slog.InfoContext(ctx, "storage initialized", "url", maskPassword(cfg.DatabaseURL))

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer func() {
		if err := rdb.Close(); err != nil {
			slog.Error("failed to close redis client", "error", err)
		}
	}()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	slog.InfoContext(ctx, "event log connected", "addr", cfg.RedisAddr)

	publisher := eventlog.NewPublisher(rdb, store)

	taskService := task.NewService(store, publisher)
	chatService := chat.NewService(store)
	turner := chat.NewTurner(chatService, assistant.New(taskService))

	authService, err := auth.NewService(store, identity.NewBcryptHasher(0),
		[]byte(cfg.JWTSecret), auth.WithTokenTTL(cfg.JWTExpiry()))
	if err != nil {
		return fmt.Errorf("failed to create auth service: %w", err)
	}

	api := handler.New(taskService, chatService, turner, authService, handler.Config{
		CookieTTL:     cfg.JWTExpiry(),
		SecureCookies: cfg.Env == "prod",
	})

	server := apihttp.NewAPIServer(api, authService, apihttp.ServerConfig{
		Port:           cfg.HTTPPort,
		AllowedOrigins: []string{cfg.FrontendURL},
		ReadyChecks: []apihttp.ReadyCheck{
			{Name: "postgres", Check: func(ctx context.Context) error { return store.Pool().Ping(ctx) }},
			{Name: "redis", Check: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }},
		},
	})

	errResult := make(chan error, 1)
	go func() {
		errResult <- server.Start()
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down")

		shutdownCtx, cancel := newShutdownContext()
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
		return nil
	case err := <-errResult:
		return fmt.Errorf("server failed: %w", err)
	}
}

// newShutdownContext creates a fresh timeout context for cleanup. The
// main context is already cancelled at shutdown time, so cleanup gets
// its own window.
func newShutdownContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), shutdownTimeout)
}

// maskPassword redacts the password portion of a connection URL for
// logging.
func maskPassword(connStr string) string {
	u, err := url.Parse(connStr)
	if err != nil {
		return "[REDACTED]"
	}
	if u.User != nil {
		if _, hasPassword := u.User.Password(); hasPassword {
			u.User = url.UserPassword(u.User.Username(), "xxxxxx")
		}
	}
	return u.String()
}
