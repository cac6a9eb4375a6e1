package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/rezkam/taskhub/internal/domain"
)

// maxNotificationsPerUser caps how many notification rows a user keeps.
// The prune drops read rows only, so a backlog of unread notifications
// can exceed the cap until acknowledged.
const maxNotificationsPerUser = 50

const notificationColumns = `id::text, task_id::text, user_id::text,
	message, priority, created_at, read_at`

func scanNotification(row rowScanner) (domain.Notification, error) {
	var n domain.Notification
	err := row.Scan(
		&n.ID, &n.TaskID, &n.UserID,
		&n.Message, &n.Priority, &n.CreatedAt, &n.ReadAt,
	)
	if err != nil {
		return domain.Notification{}, err
	}
	n.CreatedAt = utcTime(n.CreatedAt)
	n.ReadAt = utcTimePtr(n.ReadAt)
	return n, nil
}

// CreateNotification inserts a notification and prunes the user back
// to the cap in one transaction. Whenever the total exceeds the cap,
// the excess is deleted from the oldest read rows; unread rows are
// never dropped regardless of age.
func (s *Store) CreateNotification(ctx context.Context, n *domain.Notification) error {
	id, err := parseID(n.ID)
	if err != nil {
		return err
	}

	return s.executeInTransaction(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO notifications (
				id, task_id, user_id, message, priority, created_at, read_at
			) VALUES ($1::uuid, $2::uuid, $3::uuid, $4, $5, $6, $7)`,
			id, n.TaskID, n.UserID, n.Message, string(n.Priority),
			n.CreatedAt, n.ReadAt,
		)
		if err != nil {
			if isForeignKeyViolation(err) {
				return fmt.Errorf("%w: task %s", domain.ErrNotFound, n.TaskID)
			}
			return fmt.Errorf("failed to insert notification: %w", err)
		}

		var total int
		err = tx.QueryRow(ctx, `
			SELECT COUNT(*) FROM notifications
			WHERE user_id = $1::uuid`, n.UserID).Scan(&total)
		if err != nil {
			return fmt.Errorf("failed to count notifications: %w", err)
		}

		if excess := total - maxNotificationsPerUser; excess > 0 {
			_, err = tx.Exec(ctx, `
				DELETE FROM notifications
				WHERE id IN (
					SELECT id FROM notifications
					WHERE user_id = $1::uuid AND read_at IS NOT NULL
					ORDER BY created_at ASC, id ASC
					LIMIT $2
				)`, n.UserID, excess)
			if err != nil {
				return fmt.Errorf("failed to prune notifications: %w", err)
			}
		}
		return nil
	})
}

// ListNotifications returns the user's notifications, newest first.
func (s *Store) ListNotifications(ctx context.Context, userID string, unreadOnly bool) ([]domain.Notification, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE user_id = $1::uuid AND (NOT $2 OR read_at IS NULL)
		ORDER BY created_at DESC`, userID, unreadOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	result := []domain.Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		result = append(result, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read notifications: %w", err)
	}
	return result, nil
}

// FindNotificationByID retrieves a notification regardless of owner.
func (s *Store) FindNotificationByID(ctx context.Context, id string) (*domain.Notification, error) {
	notificationID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	row := s.pool.QueryRow(ctx,
		`SELECT `+notificationColumns+` FROM notifications WHERE id = $1::uuid`, notificationID)

	n, err := scanNotification(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: notification %s", domain.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}
	return &n, nil
}

// MarkNotificationRead sets a notification's read timestamp.
func (s *Store) MarkNotificationRead(ctx context.Context, id string, readAt time.Time) error {
	notificationID, err := parseID(id)
	if err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE notifications SET read_at = $2
		WHERE id = $1::uuid`, notificationID, readAt)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return checkRowsAffected(tag.RowsAffected(), "notification", id)
}

// MarkAllNotificationsRead acknowledges every unread notification for
// the user and reports how many rows changed.
func (s *Store) MarkAllNotificationsRead(ctx context.Context, userID string, readAt time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE notifications SET read_at = $2
		WHERE user_id = $1::uuid AND read_at IS NULL`, userID, readAt)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// CountUnreadNotifications returns the user's unread count.
func (s *Store) CountUnreadNotifications(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM notifications
		WHERE user_id = $1::uuid AND read_at IS NULL`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	return count, nil
}

// === Reminder Sweep Queries ===

// ListReminderCandidates returns every non-completed VERY_IMPORTANT
// task with a due date, across users. The sweep narrows by time window
// in memory.
func (s *Store) ListReminderCandidates(ctx context.Context) ([]domain.Task, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE priority = $1
		  AND due_date IS NOT NULL
		  AND is_completed = FALSE
		ORDER BY due_date ASC`, string(domain.TaskPriorityVeryImportant))
	if err != nil {
		return nil, fmt.Errorf("failed to list reminder candidates: %w", err)
	}
	defer rows.Close()

	return collectTasks(rows)
}

// NotificationExists reports whether the exact (task, message) pair has
// already been filed.
func (s *Store) NotificationExists(ctx context.Context, taskID, message string) (bool, error) {
	id, err := parseID(taskID)
	if err != nil {
		return false, err
	}

	var exists bool
	err = s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM notifications
			WHERE task_id = $1::uuid AND message = $2
		)`, id, message).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check notification: %w", err)
	}
	return exists, nil
}
