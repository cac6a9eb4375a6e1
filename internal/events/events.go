// Package events defines the CloudEvents v1.0 envelope and the typed
// payloads published for every task mutation.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event types published to the task-operations topic.
const (
	TypeTaskCreated   = "task.created"
	TypeTaskUpdated   = "task.updated"
	TypeTaskDeleted   = "task.deleted"
	TypeTaskCompleted = "task.completed"
)

// Source identifies the producing service in every envelope.
const Source = "backend-api"

// Envelope is a CloudEvents v1.0 structured event wrapper.
type Envelope struct {
	ID              string          `json:"id"`
	Type            string          `json:"type"`
	Source          string          `json:"source"`
	SpecVersion     string          `json:"specversion"`
	Time            time.Time       `json:"time"`
	DataContentType string          `json:"datacontenttype"`
	Data            json.RawMessage `json:"data"`
}

// New builds an envelope with a fresh id around the given payload.
func New(eventType string, data any, now time.Time) (Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to marshal event data: %w", err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to generate event id: %w", err)
	}

	return Envelope{
		ID:              id.String(),
		Type:            eventType,
		Source:          Source,
		SpecVersion:     "1.0",
		Time:            now.UTC(),
		DataContentType: "application/json",
		Data:            raw,
	}, nil
}

// TaskCreatedData is the payload for task.created.
type TaskCreatedData struct {
	TaskID            string     `json:"task_id"`
	UserID            string     `json:"user_id"`
	Title             string     `json:"title"`
	Description       string     `json:"description,omitempty"`
	DueDate           *time.Time `json:"due_date,omitempty"`
	Priority          string     `json:"priority"`
	Tags              []string   `json:"tags"`
	IsRecurring       bool       `json:"is_recurring"`
	SeriesID          *string    `json:"series_id,omitempty"`
	RecurrencePattern *string    `json:"recurrence_pattern,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

// TaskUpdatedData is the payload for task.updated. UpdatedFields holds
// only the keys whose values changed, never the full field set.
type TaskUpdatedData struct {
	TaskID        string         `json:"task_id"`
	UserID        string         `json:"user_id"`
	UpdatedFields map[string]any `json:"updated_fields"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// TaskDeletedData is the payload for task.deleted.
type TaskDeletedData struct {
	TaskID    string    `json:"task_id"`
	UserID    string    `json:"user_id"`
	SeriesID  *string   `json:"series_id,omitempty"`
	DeletedAt time.Time `json:"deleted_at"`
}

// TaskCompletedData is the payload for task.completed. SeriesID,
// RecurrencePattern, and DueDate let the recurring generator produce
// the next instance without a task lookup: the next occurrence is
// anchored strictly after the completed instance's own due date, so an
// early completion never regenerates the same slot.
type TaskCompletedData struct {
	TaskID            string     `json:"task_id"`
	UserID            string     `json:"user_id"`
	SeriesID          *string    `json:"series_id,omitempty"`
	RecurrencePattern *string    `json:"recurrence_pattern,omitempty"`
	DueDate           *time.Time `json:"due_date,omitempty"`
	CompletedAt       time.Time  `json:"completed_at"`
}
