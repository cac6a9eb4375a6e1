package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/rezkam/taskhub/internal/domain"
)

// taskColumns is the shared projection for task reads. UUID columns are
// cast to text so rows scan straight into domain string ids.
const taskColumns = `id::text, user_id::text, title, description,
	is_completed, completed_at, status, priority, due_date, tags,
	series_id::text, recurrence_pattern, created_at, updated_at`

// rowScanner is satisfied by both pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (domain.Task, error) {
	var (
		t    domain.Task
		tags []byte
	)
	err := row.Scan(
		&t.ID, &t.UserID, &t.Title, &t.Description,
		&t.IsCompleted, &t.CompletedAt, &t.Status, &t.Priority,
		&t.DueDate, &tags,
		&t.SeriesID, &t.RecurrencePattern, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return domain.Task{}, err
	}

	t.CompletedAt = utcTimePtr(t.CompletedAt)
	t.DueDate = utcTimePtr(t.DueDate)
	t.CreatedAt = utcTime(t.CreatedAt)
	t.UpdatedAt = utcTime(t.UpdatedAt)

	t.Tags, err = tagsFromJSON(tags)
	if err != nil {
		return domain.Task{}, fmt.Errorf("task %s: %w", t.ID, err)
	}
	return t, nil
}

// insertTaskTx writes a task row inside an open transaction.
func insertTaskTx(ctx context.Context, tx pgx.Tx, task *domain.Task) error {
	id, err := parseID(task.ID)
	if err != nil {
		return err
	}

	tags, err := tagsToJSON(task.Tags)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO tasks (
			id, user_id, title, description, is_completed, completed_at,
			status, priority, due_date, tags, series_id,
			recurrence_pattern, created_at, updated_at
		) VALUES (
			$1::uuid, $2::uuid, $3, $4, $5, $6,
			$7, $8, $9, $10, $11::uuid,
			$12, $13, $14
		)`,
		id, task.UserID, task.Title, task.Description,
		task.IsCompleted, task.CompletedAt,
		string(task.Status), string(task.Priority), task.DueDate, tags,
		task.SeriesID, task.RecurrencePattern,
		task.CreatedAt, task.UpdatedAt,
	)
	if err != nil {
		// The partial unique index on (series_id, due_date) collapses
		// duplicate instance generation into a conflict.
		if isUniqueViolation(err, "idx_tasks_series_due") {
			return fmt.Errorf("%w: instance for series %v already exists", domain.ErrConflict, task.SeriesID)
		}
		return fmt.Errorf("failed to insert task: %w", err)
	}
	return nil
}

// insertHistoryTx writes a history row inside an open transaction.
func insertHistoryTx(ctx context.Context, tx pgx.Tx, history *domain.TaskHistory) error {
	id, err := parseID(history.ID)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO task_history (
			id, task_id, task_title, action, description, user_id, occurred_at
		) VALUES ($1::uuid, $2::uuid, $3, $4, $5, $6::uuid, $7)`,
		id, history.TaskID, history.TaskTitle, string(history.Action),
		history.Description, history.UserID, history.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert history: %w", err)
	}
	return nil
}

// CreateTask persists a task together with its CREATED history row in a
// single transaction.
func (s *Store) CreateTask(ctx context.Context, task *domain.Task, history *domain.TaskHistory) error {
	return s.executeInTransaction(ctx, func(tx pgx.Tx) error {
		if err := insertTaskTx(ctx, tx, task); err != nil {
			return err
		}
		return insertHistoryTx(ctx, tx, history)
	})
}

// FindTaskByID retrieves a task regardless of owner.
func (s *Store) FindTaskByID(ctx context.Context, id string) (*domain.Task, error) {
	taskID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	row := s.pool.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1::uuid`, taskID)

	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: task %s", domain.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return &task, nil
}

// ListTasks returns all tasks for a user, incomplete before complete,
// newest first within each group.
func (s *Store) ListTasks(ctx context.Context, userID string) ([]domain.Task, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE user_id = $1::uuid
		ORDER BY is_completed ASC, created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	return collectTasks(rows)
}

func collectTasks(rows pgx.Rows) ([]domain.Task, error) {
	tasks := []domain.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read tasks: %w", err)
	}
	return tasks, nil
}

// UpdateTask persists a modified task together with its history row.
func (s *Store) UpdateTask(ctx context.Context, task *domain.Task, history *domain.TaskHistory) error {
	taskID, err := parseID(task.ID)
	if err != nil {
		return err
	}

	tags, err := tagsToJSON(task.Tags)
	if err != nil {
		return err
	}

	return s.executeInTransaction(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE tasks SET
				title = $2, description = $3, is_completed = $4,
				completed_at = $5, status = $6, priority = $7,
				due_date = $8, tags = $9, updated_at = $10
			WHERE id = $1::uuid`,
			taskID, task.Title, task.Description, task.IsCompleted,
			task.CompletedAt, string(task.Status), string(task.Priority),
			task.DueDate, tags, task.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to update task: %w", err)
		}
		if err := checkRowsAffected(tag.RowsAffected(), "task", task.ID); err != nil {
			return err
		}
		return insertHistoryTx(ctx, tx, history)
	})
}

// DeleteTask removes a task with its DELETED history row in one
// transaction. The history row is written first so the FK's ON DELETE
// SET NULL detaches it, keeping the title snapshot; notifications go
// with the task via cascade.
func (s *Store) DeleteTask(ctx context.Context, id string, history *domain.TaskHistory) error {
	taskID, err := parseID(id)
	if err != nil {
		return err
	}

	return s.executeInTransaction(ctx, func(tx pgx.Tx) error {
		if err := insertHistoryTx(ctx, tx, history); err != nil {
			return err
		}

		tag, err := tx.Exec(ctx, `DELETE FROM tasks WHERE id = $1::uuid`, taskID)
		if err != nil {
			return fmt.Errorf("failed to delete task: %w", err)
		}
		return checkRowsAffected(tag.RowsAffected(), "task", id)
	})
}

// === History Operations ===

const historyColumns = `id::text, task_id::text, task_title, action,
	description, user_id::text, occurred_at`

func scanHistory(row rowScanner, extra ...any) (domain.TaskHistory, error) {
	var h domain.TaskHistory
	dest := []any{
		&h.ID, &h.TaskID, &h.TaskTitle, &h.Action,
		&h.Description, &h.UserID, &h.Timestamp,
	}
	dest = append(dest, extra...)
	if err := row.Scan(dest...); err != nil {
		return domain.TaskHistory{}, err
	}
	h.Timestamp = utcTime(h.Timestamp)
	return h, nil
}

// ListHistory returns a page of the user's history rows, newest first,
// with the total row count for pagination metadata.
func (s *Store) ListHistory(ctx context.Context, userID string, params domain.ListHistoryParams) ([]domain.TaskHistory, int, error) {
	offset := (params.Page - 1) * params.Limit
	if params.Offset != nil {
		offset = *params.Offset
	}

	var action *string
	if params.Action != nil {
		a := string(*params.Action)
		action = &a
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+historyColumns+`, COUNT(*) OVER() AS total_count
		FROM task_history
		WHERE user_id = $1::uuid
		  AND ($2::uuid IS NULL OR task_id = $2::uuid)
		  AND ($3::text IS NULL OR action = $3)
		ORDER BY occurred_at DESC, id DESC
		LIMIT $4 OFFSET $5`,
		userID, params.TaskID, action, params.Limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list history: %w", err)
	}
	defer rows.Close()

	items := []domain.TaskHistory{}
	total := 0
	for rows.Next() {
		h, err := scanHistory(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan history: %w", err)
		}
		items = append(items, h)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to read history: %w", err)
	}

	// An empty page past the end still needs the real total.
	if len(items) == 0 {
		err := s.pool.QueryRow(ctx, `
			SELECT COUNT(*) FROM task_history
			WHERE user_id = $1::uuid
			  AND ($2::uuid IS NULL OR task_id = $2::uuid)
			  AND ($3::text IS NULL OR action = $3)`,
			userID, params.TaskID, action).Scan(&total)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to count history: %w", err)
		}
	}

	return items, total, nil
}

// FindHistoryByID retrieves a single history row.
func (s *Store) FindHistoryByID(ctx context.Context, id string) (*domain.TaskHistory, error) {
	historyID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	row := s.pool.QueryRow(ctx,
		`SELECT `+historyColumns+` FROM task_history WHERE id = $1::uuid`, historyID)

	h, err := scanHistory(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: history %s", domain.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	return &h, nil
}

// DeleteHistory removes a single history row.
func (s *Store) DeleteHistory(ctx context.Context, id string) error {
	historyID, err := parseID(id)
	if err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx, `DELETE FROM task_history WHERE id = $1::uuid`, historyID)
	if err != nil {
		return fmt.Errorf("failed to delete history: %w", err)
	}
	return checkRowsAffected(tag.RowsAffected(), "history", id)
}

// WeeklyStats aggregates task counts for the given UTC window in a
// single scan of the user's tasks.
func (s *Store) WeeklyStats(ctx context.Context, userID string, weekStart, weekEnd time.Time) (*domain.WeeklyStats, error) {
	stats := &domain.WeeklyStats{
		WeekStart: weekStart,
		WeekEnd:   weekEnd,
	}

	err := s.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE created_at >= $2 AND created_at <= $3),
			COUNT(*) FILTER (WHERE is_completed AND completed_at >= $2 AND completed_at <= $3),
			COUNT(*) FILTER (WHERE is_completed),
			COUNT(*) FILTER (WHERE NOT is_completed),
			COUNT(*)
		FROM tasks
		WHERE user_id = $1::uuid`,
		userID, weekStart, weekEnd).Scan(
		&stats.TasksCreatedThisWeek,
		&stats.TasksCompletedThisWeek,
		&stats.TotalCompleted,
		&stats.TotalIncomplete,
		&stats.TotalTasks,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to compute weekly stats: %w", err)
	}
	return stats, nil
}
