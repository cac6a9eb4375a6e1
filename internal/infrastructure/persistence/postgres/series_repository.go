package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/rezkam/taskhub/internal/domain"
)

const seriesColumns = `id::text, user_id::text, template,
	recurrence_pattern, is_active, created_at, updated_at`

func scanSeries(row rowScanner) (domain.RecurringTaskSeries, error) {
	var (
		series   domain.RecurringTaskSeries
		template []byte
	)
	err := row.Scan(
		&series.ID, &series.UserID, &template,
		&series.RecurrencePattern, &series.IsActive,
		&series.CreatedAt, &series.UpdatedAt,
	)
	if err != nil {
		return domain.RecurringTaskSeries{}, err
	}

	series.CreatedAt = utcTime(series.CreatedAt)
	series.UpdatedAt = utcTime(series.UpdatedAt)

	series.Template, err = templateFromJSON(template)
	if err != nil {
		return domain.RecurringTaskSeries{}, fmt.Errorf("series %s: %w", series.ID, err)
	}
	return series, nil
}

// CreateSeries persists a series, its first task instance, and the
// instance's CREATED history row atomically.
func (s *Store) CreateSeries(ctx context.Context, series *domain.RecurringTaskSeries, firstTask *domain.Task, history *domain.TaskHistory) error {
	seriesID, err := parseID(series.ID)
	if err != nil {
		return err
	}

	template, err := templateToJSON(series.Template)
	if err != nil {
		return err
	}

	return s.executeInTransaction(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO recurring_task_series (
				id, user_id, template, recurrence_pattern,
				is_active, created_at, updated_at
			) VALUES ($1::uuid, $2::uuid, $3, $4, $5, $6, $7)`,
			seriesID, series.UserID, template, series.RecurrencePattern,
			series.IsActive, series.CreatedAt, series.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert series: %w", err)
		}

		if err := insertTaskTx(ctx, tx, firstTask); err != nil {
			return err
		}
		return insertHistoryTx(ctx, tx, history)
	})
}

// FindSeriesByID retrieves a series regardless of owner.
func (s *Store) FindSeriesByID(ctx context.Context, id string) (*domain.RecurringTaskSeries, error) {
	seriesID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	row := s.pool.QueryRow(ctx,
		`SELECT `+seriesColumns+` FROM recurring_task_series WHERE id = $1::uuid`, seriesID)

	series, err := scanSeries(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: series %s", domain.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get series: %w", err)
	}
	return &series, nil
}

// ListSeries returns the user's series, newest first, optionally
// including deactivated ones.
func (s *Store) ListSeries(ctx context.Context, userID string, includeInactive bool) ([]domain.RecurringTaskSeries, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+seriesColumns+`
		FROM recurring_task_series
		WHERE user_id = $1::uuid AND ($2 OR is_active)
		ORDER BY created_at DESC`, userID, includeInactive)
	if err != nil {
		return nil, fmt.Errorf("failed to list series: %w", err)
	}
	defer rows.Close()

	result := []domain.RecurringTaskSeries{}
	for rows.Next() {
		series, err := scanSeries(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan series: %w", err)
		}
		result = append(result, series)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read series: %w", err)
	}
	return result, nil
}

// UpdateSeries persists a modified series.
func (s *Store) UpdateSeries(ctx context.Context, series *domain.RecurringTaskSeries) error {
	seriesID, err := parseID(series.ID)
	if err != nil {
		return err
	}

	template, err := templateToJSON(series.Template)
	if err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE recurring_task_series SET
			template = $2, recurrence_pattern = $3,
			is_active = $4, updated_at = $5
		WHERE id = $1::uuid`,
		seriesID, template, series.RecurrencePattern,
		series.IsActive, series.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update series: %w", err)
	}
	return checkRowsAffected(tag.RowsAffected(), "series", series.ID)
}

// DeactivateSeries soft-deletes a series. Generated instances are
// untouched.
func (s *Store) DeactivateSeries(ctx context.Context, id string, now time.Time) error {
	seriesID, err := parseID(id)
	if err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE recurring_task_series
		SET is_active = FALSE, updated_at = $2
		WHERE id = $1::uuid`, seriesID, now)
	if err != nil {
		return fmt.Errorf("failed to deactivate series: %w", err)
	}
	return checkRowsAffected(tag.RowsAffected(), "series", id)
}

// ListSeriesTasks returns all task instances generated from a series,
// oldest due first.
func (s *Store) ListSeriesTasks(ctx context.Context, seriesID string) ([]domain.Task, error) {
	id, err := parseID(seriesID)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE series_id = $1::uuid
		ORDER BY due_date ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list series tasks: %w", err)
	}
	defer rows.Close()

	return collectTasks(rows)
}
