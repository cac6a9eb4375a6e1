package postgres

import (
	"context"
	"fmt"

	"github.com/rezkam/taskhub/internal/domain"
)

// RecordEvent appends a published event to the audit trail. Rows are
// written only after the event log acknowledged the publish, so the
// table never claims delivery that did not happen. Replays of the same
// event id are collapsed by the primary key.
func (s *Store) RecordEvent(ctx context.Context, event *domain.TaskEvent) error {
	id, err := parseID(event.ID)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO task_events (
			id, event_type, user_id, task_id, payload, published_at, created_at
		) VALUES ($1::uuid, $2, $3::uuid, $4::uuid, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING`,
		id, event.Type, event.UserID, event.TaskID,
		event.Payload, event.PublishedAt, event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}
	return nil
}
