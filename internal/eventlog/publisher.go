package eventlog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"

	"github.com/rezkam/taskhub/internal/domain"
	"github.com/rezkam/taskhub/internal/events"
)

// AuditStore records the durable audit row for an acknowledged publish.
type AuditStore interface {
	RecordEvent(ctx context.Context, event *domain.TaskEvent) error
}

const (
	publishMaxRetries      = 3
	publishInitialInterval = 100 * time.Millisecond
	publishMaxInterval     = 2 * time.Second
)

// Publisher appends CloudEvents to the partitioned task operation
// streams. Events are routed by user id so one user's events stay
// ordered, and every acknowledged append is mirrored into the TaskEvent
// audit table.
type Publisher struct {
	rdb   redis.UniversalClient
	audit AuditStore
	now   func() time.Time
}

// PublisherOption is a functional option for configuring Publisher.
type PublisherOption func(*Publisher)

// WithPublisherClock overrides the time source. Used in tests.
func WithPublisherClock(now func() time.Time) PublisherOption {
	return func(p *Publisher) {
		p.now = now
	}
}

// NewPublisher creates a stream publisher. audit may be nil when no
// durable mirror is wanted (tests, tooling).
func NewPublisher(rdb redis.UniversalClient, audit AuditStore, opts ...PublisherOption) *Publisher {
	p := &Publisher{
		rdb:   rdb,
		audit: audit,
		now:   func() time.Time { return time.Now().UTC() },
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Publish appends the envelope to the partition stream for userID with
// bounded retries. On acknowledgement the audit row is written; an audit
// failure is logged but does not fail the publish, since the stream
// already holds the event.
func (p *Publisher) Publish(ctx context.Context, userID string, envelope events.Envelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	stream := StreamKey(PartitionFor(userID))

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = publishInitialInterval
	policy.MaxInterval = publishMaxInterval

	operation := func() error {
		return p.rdb.XAdd(ctx, &redis.XAddArgs{
			Stream: stream,
			Values: map[string]any{
				"event":      string(payload),
				"event_id":   envelope.ID,
				"event_type": envelope.Type,
				"user_id":    userID,
			},
		}).Err()
	}

	if err := backoff.Retry(operation,
		backoff.WithContext(backoff.WithMaxRetries(policy, publishMaxRetries), ctx)); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", stream, err)
	}

	p.recordAudit(ctx, userID, envelope)
	return nil
}

func (p *Publisher) recordAudit(ctx context.Context, userID string, envelope events.Envelope) {
	if p.audit == nil {
		return
	}

	err := p.audit.RecordEvent(ctx, &domain.TaskEvent{
		ID:          envelope.ID,
		Type:        envelope.Type,
		UserID:      userID,
		TaskID:      taskIDFromData(envelope.Data),
		Payload:     envelope.Data,
		PublishedAt: envelope.Time,
		CreatedAt:   p.now(),
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to record event audit row",
			"event_id", envelope.ID, "event_type", envelope.Type, "error", err)
	}
}

// taskIDFromData pulls the task id out of a payload when present. Every
// task.* payload carries one, but the audit row tolerates its absence.
func taskIDFromData(data []byte) *string {
	var probe struct {
		TaskID string `json:"task_id"`
	}
	if err := json.Unmarshal(data, &probe); err != nil || probe.TaskID == "" {
		return nil
	}
	return &probe.TaskID
}
