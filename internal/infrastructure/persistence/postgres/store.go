// Package postgres implements the persistence layer on PostgreSQL using
// pgx connection pooling. A single Store satisfies every
// application-layer repository interface so one pool serves the whole
// system.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rezkam/taskhub/internal/application/auth"
	"github.com/rezkam/taskhub/internal/application/chat"
	"github.com/rezkam/taskhub/internal/application/reminder"
	"github.com/rezkam/taskhub/internal/application/task"
	"github.com/rezkam/taskhub/internal/eventlog"
)

// Store provides PostgreSQL-backed persistence for all repositories.
type Store struct {
	pool *pgxpool.Pool
}

// Compile-time interface satisfaction checks.
var (
	_ task.Repository     = (*Store)(nil)
	_ chat.Repository     = (*Store)(nil)
	_ auth.Repository     = (*Store)(nil)
	_ reminder.Repository = (*Store)(nil)
	_ eventlog.AuditStore = (*Store)(nil)
)

// NewStore creates a new PostgreSQL store with the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Pool returns the underlying connection pool for health checks.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// Close closes the database connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// finalizeTx commits the transaction if *errp is nil, otherwise rolls it
// back. Designed for deferred use so every exit path is covered:
//
//	tx, err := s.pool.Begin(ctx)
//	if err != nil { return err }
//	defer finalizeTx(ctx, tx, &err)
func finalizeTx(ctx context.Context, tx pgx.Tx, errp *error) {
	if *errp != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			slog.ErrorContext(ctx, "failed to rollback transaction", "error", rbErr)
		}
		return
	}
	if err := tx.Commit(ctx); err != nil {
		*errp = fmt.Errorf("failed to commit transaction: %w", err)
	}
}

// executeInTransaction runs fn inside a transaction with panic recovery.
// A panic rolls back and is re-raised after cleanup.
func (s *Store) executeInTransaction(ctx context.Context, fn func(tx pgx.Tx) error) (err error) {
	start := time.Now()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				slog.ErrorContext(ctx, "failed to rollback after panic", "error", rbErr)
			}
			panic(p)
		}
	}()
	defer finalizeTx(ctx, tx, &err)

	if err = fn(tx); err != nil {
		return err
	}

	slog.DebugContext(ctx, "transaction complete",
		"duration", time.Since(start).String())
	return nil
}
