// Package reminder implements the progressive deadline reminder engine:
// a periodic sweep over high-priority tasks that files notifications as
// their due dates approach, with exact-message duplicate suppression.
package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/rezkam/taskhub/internal/domain"
)

// Repository defines the persistence operations the scheduler needs.
type Repository interface {
	// ListReminderCandidates returns every non-completed task with
	// priority VERY_IMPORTANT and a non-null due date, across users.
	ListReminderCandidates(ctx context.Context) ([]domain.Task, error)

	// NotificationExists reports whether a notification with this
	// exact (task_id, message) pair already exists.
	NotificationExists(ctx context.Context, taskID, message string) (bool, error)

	// CreateNotification inserts a notification and prunes the user
	// back to at most 50 rows, deleting the oldest read rows first.
	// Unread rows are never dropped.
	CreateNotification(ctx context.Context, notification *domain.Notification) error
}

// DefaultCheckInterval is the sweep cadence, which doubles as the
// threshold window: a threshold fires when the remaining time falls
// inside [threshold-interval, threshold).
const DefaultCheckInterval = 10 * time.Minute

// threshold pairs a remaining-time boundary with its message template.
type threshold struct {
	remaining time.Duration
	format    string
}

// Tested in descending order; the windows are disjoint as long as the
// check interval stays below the smallest gap between thresholds.
var thresholds = []threshold{
	{6 * time.Hour, "⏰ Task '%s' due in 6 hours"},
	{3 * time.Hour, "⚠️ Task '%s' due in 3 hours"},
	{1 * time.Hour, "🚨 URGENT Task '%s' due in 1 hour"},
	{30 * time.Minute, "🔴 CRITICAL Task '%s' due in 30 minutes"},
	{15 * time.Minute, "🚨🚨 FINAL WARNING Task '%s' due in 15 minutes"},
}

const overdueFormat = "❌ OVERDUE: Task '%s' is now overdue!"

// Scheduler computes and files reminder notifications. It holds no
// state between runs; duplicate suppression lives in the store.
type Scheduler struct {
	repo          Repository
	window        time.Duration
	enableOverdue bool
}

// NewScheduler creates a scheduler. window is the check interval, used
// as the firing window width; zero gets the default.
func NewScheduler(repo Repository, window time.Duration, enableOverdue bool) *Scheduler {
	if window <= 0 {
		window = DefaultCheckInterval
	}
	return &Scheduler{repo: repo, window: window, enableOverdue: enableOverdue}
}

// RunOnce performs one reminder sweep at the given instant and returns
// how many notifications were created.
func (s *Scheduler) RunOnce(ctx context.Context, now time.Time) (int, error) {
	now = now.UTC()

	tasks, err := s.repo.ListReminderCandidates(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list reminder candidates: %w", err)
	}

	created := 0
	for _, task := range tasks {
		if task.DueDate == nil {
			continue
		}

		message, ok := s.messageFor(task.Title, task.DueDate.Sub(now))
		if !ok {
			continue
		}

		inserted, err := s.file(ctx, &task, message, now)
		if err != nil {
			// One bad task must not starve the rest of the sweep.
			slog.ErrorContext(ctx, "failed to file reminder",
				"task_id", task.ID, "error", err)
			continue
		}
		if inserted {
			created++
		}
	}

	return created, nil
}

// messageFor picks the notification message for the remaining time, or
// none when no threshold window matches.
func (s *Scheduler) messageFor(title string, remaining time.Duration) (string, bool) {
	if remaining < 0 {
		if !s.enableOverdue {
			return "", false
		}
		return fmt.Sprintf(overdueFormat, title), true
	}

	for _, t := range thresholds {
		if t.remaining-s.window <= remaining && remaining < t.remaining {
			return fmt.Sprintf(t.format, title), true
		}
	}
	return "", false
}

// file inserts the notification unless the exact (task, message) pair
// already exists. Returns whether a row was inserted. The row carries
// the sweep instant, so every notification from one sweep shares a
// timestamp.
func (s *Scheduler) file(ctx context.Context, task *domain.Task, message string, now time.Time) (bool, error) {
	exists, err := s.repo.NotificationExists(ctx, task.ID, message)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	id, err := uuid.NewV7()
	if err != nil {
		return false, fmt.Errorf("failed to generate id: %w", err)
	}

	err = s.repo.CreateNotification(ctx, &domain.Notification{
		ID:        id.String(),
		TaskID:    task.ID,
		UserID:    task.UserID,
		Message:   message,
		Priority:  task.Priority,
		CreatedAt: now,
	})
	if err != nil {
		return false, err
	}
	return true, nil
}
