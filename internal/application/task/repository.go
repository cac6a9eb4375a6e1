package task

import (
	"context"
	"time"

	"github.com/rezkam/taskhub/internal/domain"
	"github.com/rezkam/taskhub/internal/events"
)

// Repository defines the persistence operations the task service needs.
// Implementations must be safe for concurrent use.
//
// Mutations are transactional: the history row is written in the same
// transaction as the primary row, so history is never emitted for a
// mutation that did not become durable.
type Repository interface {
	// === Task Operations ===

	// CreateTask persists a task together with its CREATED history row.
	CreateTask(ctx context.Context, task *domain.Task, history *domain.TaskHistory) error

	// FindTaskByID retrieves a task regardless of owner.
	// Ownership is checked by the service so a mismatch surfaces as
	// ErrForbidden instead of leaking existence through ErrNotFound.
	FindTaskByID(ctx context.Context, id string) (*domain.Task, error)

	// ListTasks returns all tasks for a user, incomplete before
	// complete, then created_at descending within each group.
	ListTasks(ctx context.Context, userID string) ([]domain.Task, error)

	// UpdateTask persists a modified task together with its history row.
	UpdateTask(ctx context.Context, task *domain.Task, history *domain.TaskHistory) error

	// DeleteTask removes a task, cascades its notifications, and
	// detaches history rows (task_id nulled, snapshot title retained).
	// The DELETED history row is written in the same transaction.
	DeleteTask(ctx context.Context, id string, history *domain.TaskHistory) error

	// === History Operations ===

	ListHistory(ctx context.Context, userID string, params domain.ListHistoryParams) ([]domain.TaskHistory, int, error)
	FindHistoryByID(ctx context.Context, id string) (*domain.TaskHistory, error)
	DeleteHistory(ctx context.Context, id string) error

	// WeeklyStats aggregates task counts for the given UTC window.
	WeeklyStats(ctx context.Context, userID string, weekStart, weekEnd time.Time) (*domain.WeeklyStats, error)

	// === Recurring Series Operations ===

	// CreateSeries persists a series, its first task instance, and the
	// instance's CREATED history row atomically.
	CreateSeries(ctx context.Context, series *domain.RecurringTaskSeries, firstTask *domain.Task, history *domain.TaskHistory) error

	FindSeriesByID(ctx context.Context, id string) (*domain.RecurringTaskSeries, error)
	ListSeries(ctx context.Context, userID string, includeInactive bool) ([]domain.RecurringTaskSeries, error)
	UpdateSeries(ctx context.Context, series *domain.RecurringTaskSeries) error

	// DeactivateSeries soft-deletes: IsActive=false, instances preserved.
	DeactivateSeries(ctx context.Context, id string, now time.Time) error

	ListSeriesTasks(ctx context.Context, seriesID string) ([]domain.Task, error)

	// === Notification Operations ===

	// CreateNotification inserts a row and prunes the user's
	// notifications to at most 50, dropping oldest read rows only.
	CreateNotification(ctx context.Context, n *domain.Notification) error

	ListNotifications(ctx context.Context, userID string, unreadOnly bool) ([]domain.Notification, error)
	FindNotificationByID(ctx context.Context, id string) (*domain.Notification, error)
	MarkNotificationRead(ctx context.Context, id string, readAt time.Time) error
	MarkAllNotificationsRead(ctx context.Context, userID string, readAt time.Time) (int, error)
	CountUnreadNotifications(ctx context.Context, userID string) (int, error)
}

// EventSink receives CloudEvents for every task mutation. The publisher
// implementation owns partitioning, retries, and the audit trail.
type EventSink interface {
	// Publish sends the envelope to the event log partitioned by userID.
	// A failed publish must not fail the originating mutation.
	Publish(ctx context.Context, userID string, envelope events.Envelope) error
}
