package domain

import "time"

// Task is the aggregate root of the task-management domain.
// Rows are exclusively owned by UserID; every query is scoped to it.
type Task struct {
	ID          string
	UserID      string
	Title       string
	Description string

	IsCompleted bool
	CompletedAt *time.Time // Present iff IsCompleted
	Status      TaskStatus
	Priority    TaskPriority

	DueDate *time.Time // Optional, UTC
	Tags    []string   // Ordered, at most 5, from the closed vocabulary

	// Recurring instance link
	SeriesID          *string
	RecurrencePattern *string // Cached from the owning series

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsRecurring reports whether this task was generated from a series.
func (t *Task) IsRecurring() bool {
	return t.SeriesID != nil
}

// TaskHistory is an audit row for a task mutation.
// History outlives the task: TaskID is nulled on delete while
// TaskTitle keeps the snapshot taken at write time.
type TaskHistory struct {
	ID          string
	TaskID      *string
	TaskTitle   string
	Action      HistoryAction
	Description string
	UserID      string
	Timestamp   time.Time
}

// Notification is a reminder row produced by the deadline scheduler.
type Notification struct {
	ID        string
	TaskID    string
	UserID    string
	Message   string
	Priority  TaskPriority // Snapshot of the task priority at creation
	CreatedAt time.Time
	ReadAt    *time.Time
}

// IsRead reports whether the notification has been acknowledged.
func (n *Notification) IsRead() bool {
	return n.ReadAt != nil
}

// RecurringTaskSeries is a template plus recurrence rule from which
// task instances are generated on completion.
//
// Deletion is soft: IsActive=false preserves already-generated rows.
type RecurringTaskSeries struct {
	ID                string
	UserID            string
	Template          SeriesTemplate
	RecurrencePattern string
	IsActive          bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// SeriesTemplate holds the fields copied onto each generated instance.
// Title is required; the rest are inherited when present.
type SeriesTemplate struct {
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	Priority    *TaskPriority `json:"priority,omitempty"`
	Tags        []string      `json:"tags,omitempty"`
}

// TaskEvent is the persisted audit record of a published CloudEvent.
// Written only after the event log acknowledged the publish.
type TaskEvent struct {
	ID          string // Equals the CloudEvents id
	Type        string
	UserID      string
	TaskID      *string
	Payload     []byte // JSON data payload
	PublishedAt time.Time
	CreatedAt   time.Time
}

// Conversation is a chat thread owned by a single user.
type Conversation struct {
	ID        string
	UserID    string
	Title     string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Message is a single chat turn with retention-bound expiry.
//
// ExternalItemID is the stable identity used by the streaming surface:
// when a stream emits a placeholder id, the store mints a fresh one and
// returns it on every subsequent load so the client's optimistic view
// stays consistent.
type Message struct {
	ID             string
	ExternalItemID string
	ConversationID string
	UserID         string
	Role           MessageRole
	Content        string
	ToolCalls      []byte // Optional structured tool invocations (JSON)
	CreatedAt      time.Time
	ExpiresAt      time.Time // CreatedAt + 2 days
}

// User is the minimal identity record the core persists.
// Password verification lives behind the auth service boundary.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// WeeklyStats summarizes task activity for the current UTC week
// (Monday 00:00:00 through Sunday 23:59:59 inclusive).
type WeeklyStats struct {
	TasksCreatedThisWeek   int
	TasksCompletedThisWeek int
	TotalCompleted         int
	TotalIncomplete        int
	TotalTasks             int
	WeekStart              time.Time
	WeekEnd                time.Time
}

// HistoryPage is a page of history rows with pagination metadata.
type HistoryPage struct {
	Items       []TaskHistory
	TotalCount  int
	TotalPages  int
	CurrentPage int
	PageSize    int
	HasNext     bool
	HasPrev     bool
}

// ListHistoryParams contains parameters for listing task history.
type ListHistoryParams struct {
	Page   int
	Limit  int // 1..100
	Offset *int // Overrides page-based offset when set

	// Optional filters (nil = no filter applied)
	TaskID *string
	Action *HistoryAction
}
