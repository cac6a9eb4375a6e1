// The worker binary consumes the task event log and generates the next
// instance of recurring series when their current instance completes.
// It also drains the dead-letter stream with backoff.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/rezkam/taskhub/internal/application/generator"
	"github.com/rezkam/taskhub/internal/application/task"
	"github.com/rezkam/taskhub/internal/config"
	"github.com/rezkam/taskhub/internal/eventlog"
	"github.com/rezkam/taskhub/internal/infrastructure/persistence/postgres"
	"github.com/rezkam/taskhub/pkg/observability"
)

const (
	serviceName     = "taskhub-worker"
	consumerName    = "recurring-task-worker"
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

	slog.InfoContext(ctx, "starting taskhub worker", "env", cfg.Env)

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

	// The generator publishes task.created for every instance it makes,
	// so generated tasks show up in the event log like any other.
	publisher := eventlog.NewPublisher(rdb, store)
	taskService := task.NewService(store, publisher)
	gen := generator.New(taskService, eventlog.NewDedupStore(rdb))

	consumer := eventlog.NewConsumer(rdb, consumerName,
		eventlog.HandlerFunc(gen.Handle), eventlog.DefaultConsumerConfig())
	if err := consumer.Init(ctx); err != nil {
		return fmt.Errorf("failed to init consumer: %w", err)
	}

	dlq := eventlog.NewDLQConsumer(rdb, consumerName+"-dlq",
		eventlog.HandlerFunc(gen.Handle))
	if err := dlq.Init(ctx); err != nil {
		return fmt.Errorf("failed to init dlq consumer: %w", err)
	}

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error { return consumer.Run(ctx) })
	group.Go(func() error { return dlq.Run(ctx) })

	slog.InfoContext(ctx, "worker running", "consumer", consumerName)

	if err := group.Wait(); err != nil && !isShutdown(err) {
		return fmt.Errorf("worker failed: %w", err)
	}
	slog.Info("worker stopped")
	return nil
}

func isShutdown(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
