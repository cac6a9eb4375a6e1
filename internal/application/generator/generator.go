// Package generator consumes task.completed events and creates the next
// instance of a recurring series. It is idempotent: every event id is
// recorded in a durable dedup store, and redeliveries are skipped.
package generator

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/rezkam/taskhub/internal/domain"
	"github.com/rezkam/taskhub/internal/eventlog"
	"github.com/rezkam/taskhub/internal/events"
	"github.com/rezkam/taskhub/internal/recurring"
)

// TaskService is the slice of the task application service the
// generator needs.
type TaskService interface {
	GetSeriesByID(ctx context.Context, id string) (*domain.RecurringTaskSeries, error)
	GenerateInstance(ctx context.Context, series *domain.RecurringTaskSeries, due time.Time) (*domain.Task, error)
}

// Dedup is the processed-event store surface.
type Dedup interface {
	IsProcessed(ctx context.Context, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, eventID string) (bool, error)
}

// Generator handles task.completed events. Terminal conditions (bad
// payload, dead series, exhausted rule) are marked processed so they
// never redeliver; transient store failures return a retry verdict and
// flow through the broker's redelivery and DLQ policy.
type Generator struct {
	tasks TaskService
	dedup Dedup
}

// New creates a generator.
func New(tasks TaskService, dedup Dedup) *Generator {
	return &Generator{tasks: tasks, dedup: dedup}
}

// Handle implements eventlog.Handler.
func (g *Generator) Handle(ctx context.Context, envelope events.Envelope) eventlog.Verdict {
	// Only completions drive generation. task.created from generated
	// instances never loops back here.
	if envelope.Type != events.TypeTaskCompleted {
		return eventlog.VerdictAck
	}

	processed, err := g.dedup.IsProcessed(ctx, envelope.ID)
	if err != nil {
		slog.ErrorContext(ctx, "dedup check failed", "event_id", envelope.ID, "error", err)
		return eventlog.VerdictRetry
	}
	if processed {
		slog.InfoContext(ctx, "skipping already processed event", "event_id", envelope.ID)
		return eventlog.VerdictAck
	}

	var data events.TaskCompletedData
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		slog.ErrorContext(ctx, "undecodable task.completed payload",
			"event_id", envelope.ID, "error", err)
		return g.finish(ctx, envelope.ID)
	}

	if data.SeriesID == nil {
		// One-off task; nothing to generate.
		return g.finish(ctx, envelope.ID)
	}

	series, err := g.tasks.GetSeriesByID(ctx, *data.SeriesID)
	if errors.Is(err, domain.ErrNotFound) {
		slog.InfoContext(ctx, "series gone, skipping generation",
			"event_id", envelope.ID, "series_id", *data.SeriesID)
		return g.finish(ctx, envelope.ID)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to load series",
			"event_id", envelope.ID, "series_id", *data.SeriesID, "error", err)
		return eventlog.VerdictRetry
	}
	if !series.IsActive {
		slog.InfoContext(ctx, "series deactivated, skipping generation",
			"event_id", envelope.ID, "series_id", series.ID)
		return g.finish(ctx, envelope.ID)
	}

	rule, err := recurring.Parse(series.RecurrencePattern)
	if err != nil {
		// A broken pattern never heals on retry.
		slog.ErrorContext(ctx, "invalid recurrence pattern, marking processed",
			"event_id", envelope.ID, "series_id", series.ID,
			"pattern", series.RecurrencePattern, "error", err)
		return g.finish(ctx, envelope.ID)
	}

	// Anchor strictly after both the completion instant and the
	// completed instance's own due date: completing early must roll to
	// the following occurrence, never regenerate the same slot.
	after := data.CompletedAt
	if data.DueDate != nil && data.DueDate.After(after) {
		after = *data.DueDate
	}

	next := rule.NextAfter(after, series.CreatedAt)
	if next == nil {
		slog.InfoContext(ctx, "recurrence exhausted, no next occurrence",
			"event_id", envelope.ID, "series_id", series.ID)
		return g.finish(ctx, envelope.ID)
	}

	task, err := g.tasks.GenerateInstance(ctx, series, *next)
	if errors.Is(err, domain.ErrConflict) {
		// A concurrent delivery already created this occurrence.
		slog.InfoContext(ctx, "instance already exists for occurrence",
			"event_id", envelope.ID, "series_id", series.ID, "due", *next)
		return g.finish(ctx, envelope.ID)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate instance",
			"event_id", envelope.ID, "series_id", series.ID, "error", err)
		return eventlog.VerdictRetry
	}

	slog.InfoContext(ctx, "generated recurring task instance",
		"event_id", envelope.ID, "series_id", series.ID,
		"task_id", task.ID, "due", *next)
	return g.finish(ctx, envelope.ID)
}

// finish marks the event processed and acknowledges it. A failed mark
// retries the event; the dedup store makes the redelivery harmless.
func (g *Generator) finish(ctx context.Context, eventID string) eventlog.Verdict {
	if _, err := g.dedup.MarkProcessed(ctx, eventID); err != nil {
		slog.ErrorContext(ctx, "failed to mark event processed",
			"event_id", eventID, "error", err)
		return eventlog.VerdictRetry
	}
	return eventlog.VerdictAck
}
