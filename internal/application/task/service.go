package task

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rezkam/taskhub/internal/domain"
	"github.com/rezkam/taskhub/internal/events"
)

// Service provides business logic for task management.
// It orchestrates operations using the Repository interface and emits a
// CloudEvent through the EventSink after every committed mutation.
type Service struct {
	repo Repository
	sink EventSink
	now  func() time.Time
}

// Option is a functional option for configuring Service.
type Option func(*Service)

// WithClock overrides the time source. Used in tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a new task service.
func NewService(repo Repository, sink EventSink, opts ...Option) *Service {
	s := &Service{
		repo: repo,
		sink: sink,
		now:  func() time.Time { return time.Now().UTC() },
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// CreateParams contains the caller-supplied fields for a new task.
type CreateParams struct {
	Title       string
	Description string
	DueDate     *time.Time
	Tags        []string
}

// Create validates input, classifies priority, and persists a new task
// with its CREATED history row, then emits task.created.
func (s *Service) Create(ctx context.Context, userID string, params CreateParams) (*domain.Task, error) {
	title, err := domain.NewTitle(params.Title)
	if err != nil {
		return nil, err
	}

	description, err := domain.NewDescription(params.Description)
	if err != nil {
		return nil, err
	}

	if err := domain.ValidateTags(params.Tags); err != nil {
		return nil, err
	}

	idObj, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate id: %w", err)
	}

	now := s.now()
	task := &domain.Task{
		ID:          idObj.String(),
		UserID:      userID,
		Title:       title.String(),
		Description: description,
		Status:      domain.TaskStatusNotStarted,
		Priority:    domain.ClassifyPriority(title.String(), normalizeDue(params.DueDate), now),
		DueDate:     normalizeDue(params.DueDate),
		Tags:        params.Tags,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if task.Tags == nil {
		task.Tags = []string{}
	}

	history := s.historyRow(task, domain.HistoryActionCreated, "Task created", now)

	if err := s.repo.CreateTask(ctx, task, history); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	s.emitCreated(ctx, task)
	return task, nil
}

// ListAll returns every task owned by the user, incomplete before
// complete, created_at descending within each group.
func (s *Service) ListAll(ctx context.Context, userID string) ([]domain.Task, error) {
	tasks, err := s.repo.ListTasks(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

// Get retrieves a single task. A row owned by another user returns
// ErrForbidden, never ErrNotFound.
func (s *Service) Get(ctx context.Context, userID, id string) (*domain.Task, error) {
	return s.ownedTask(ctx, userID, id)
}

// Update applies a partial update. At least one field is required.
// Priority is re-derived only when title or due date changed, and the
// UPDATED history row carries a compact change list.
func (s *Service) Update(ctx context.Context, userID, id string, params domain.UpdateTaskParams) (*domain.Task, error) {
	if params.IsEmpty() {
		return nil, domain.ErrEmptyUpdate
	}

	task, err := s.ownedTask(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	changed := map[string]any{}

	if params.Title != nil {
		title, err := domain.NewTitle(*params.Title)
		if err != nil {
			return nil, err
		}
		if title.String() != task.Title {
			task.Title = title.String()
			changed["title"] = task.Title
		}
	}

	if params.Description != nil {
		description, err := domain.NewDescription(*params.Description)
		if err != nil {
			return nil, err
		}
		if description != task.Description {
			task.Description = description
			changed["description"] = description
		}
	}

	if params.Tags != nil {
		if err := domain.ValidateTags(*params.Tags); err != nil {
			return nil, err
		}
		if !equalTags(task.Tags, *params.Tags) {
			task.Tags = *params.Tags
			changed["tags"] = *params.Tags
		}
	}

	if params.DueDateSet {
		newDue := normalizeDue(params.DueDate)
		if !equalDue(task.DueDate, newDue) {
			task.DueDate = newDue
			changed["due_date"] = newDue
		}
	}

	if params.Status != nil && *params.Status != task.Status {
		task.Status = *params.Status
		changed["status"] = string(*params.Status)
		// Status transitions keep the completion invariant in sync:
		// COMPLETED sets both markers, anything else clears them.
		if *params.Status == domain.TaskStatusCompleted {
			task.IsCompleted = true
			task.CompletedAt = &now
			changed["is_completed"] = true
		} else if task.IsCompleted {
			task.IsCompleted = false
			task.CompletedAt = nil
			changed["is_completed"] = false
		}
	}

	if len(changed) == 0 {
		return task, nil
	}

	_, titleChanged := changed["title"]
	_, dueChanged := changed["due_date"]
	if titleChanged || dueChanged {
		newPriority := domain.ClassifyPriority(task.Title, task.DueDate, now)
		if newPriority != task.Priority {
			task.Priority = newPriority
			changed["priority"] = string(newPriority)
		}
	}

	task.UpdatedAt = now
	history := s.historyRow(task, domain.HistoryActionUpdated,
		"Updated "+changeList(changed), now)

	if err := s.repo.UpdateTask(ctx, task, history); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	s.emit(ctx, task.UserID, events.TypeTaskUpdated, events.TaskUpdatedData{
		TaskID:        task.ID,
		UserID:        task.UserID,
		UpdatedFields: changed,
		UpdatedAt:     now,
	})

	return task, nil
}

// Delete removes a task and its notifications. History rows survive
// with the task title snapshot.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	task, err := s.ownedTask(ctx, userID, id)
	if err != nil {
		return err
	}

	now := s.now()
	history := s.historyRow(task, domain.HistoryActionDeleted, "Task deleted", now)

	if err := s.repo.DeleteTask(ctx, id, history); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	s.emit(ctx, task.UserID, events.TypeTaskDeleted, events.TaskDeletedData{
		TaskID:    task.ID,
		UserID:    task.UserID,
		SeriesID:  task.SeriesID,
		DeletedAt: now,
	})

	return nil
}

// MarkComplete transitions a task to COMPLETED and emits task.completed.
// Completing an already-completed task is a no-op mutation but still
// returns the row.
func (s *Service) MarkComplete(ctx context.Context, userID, id string) (*domain.Task, error) {
	task, err := s.ownedTask(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if task.IsCompleted {
		return task, nil
	}

	now := s.now()
	task.IsCompleted = true
	task.CompletedAt = &now
	task.Status = domain.TaskStatusCompleted
	task.UpdatedAt = now

	history := s.historyRow(task, domain.HistoryActionCompleted, "Task marked as complete", now)

	if err := s.repo.UpdateTask(ctx, task, history); err != nil {
		return nil, fmt.Errorf("failed to mark task complete: %w", err)
	}

	s.emit(ctx, task.UserID, events.TypeTaskCompleted, events.TaskCompletedData{
		TaskID:            task.ID,
		UserID:            task.UserID,
		SeriesID:          task.SeriesID,
		RecurrencePattern: task.RecurrencePattern,
		DueDate:           task.DueDate,
		CompletedAt:       now,
	})

	return task, nil
}

// MarkIncomplete reverts completion: is_completed=false, completed_at
// cleared, status back to NOT_STARTED. Emits task.updated (not
// task.completed; completion toggles produce one event each).
func (s *Service) MarkIncomplete(ctx context.Context, userID, id string) (*domain.Task, error) {
	task, err := s.ownedTask(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if !task.IsCompleted {
		return task, nil
	}

	now := s.now()
	task.IsCompleted = false
	task.CompletedAt = nil
	task.Status = domain.TaskStatusNotStarted
	task.UpdatedAt = now

	history := s.historyRow(task, domain.HistoryActionIncompleted, "Task marked as incomplete", now)

	if err := s.repo.UpdateTask(ctx, task, history); err != nil {
		return nil, fmt.Errorf("failed to mark task incomplete: %w", err)
	}

	s.emit(ctx, task.UserID, events.TypeTaskUpdated, events.TaskUpdatedData{
		TaskID: task.ID,
		UserID: task.UserID,
		UpdatedFields: map[string]any{
			"is_completed": false,
			"status":       string(domain.TaskStatusNotStarted),
		},
		UpdatedAt: now,
	})

	return task, nil
}

// ownedTask fetches a task and enforces ownership. A row owned by a
// different user returns ErrForbidden so existence is never revealed.
func (s *Service) ownedTask(ctx context.Context, userID, id string) (*domain.Task, error) {
	task, err := s.repo.FindTaskByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if task.UserID != userID {
		return nil, domain.ErrForbidden
	}
	return task, nil
}

func (s *Service) historyRow(task *domain.Task, action domain.HistoryAction, description string, now time.Time) *domain.TaskHistory {
	taskID := task.ID
	return &domain.TaskHistory{
		ID:          uuid.NewString(),
		TaskID:      &taskID,
		TaskTitle:   task.Title,
		Action:      action,
		Description: description,
		UserID:      task.UserID,
		Timestamp:   now,
	}
}

// emitCreated publishes task.created for a freshly persisted task.
func (s *Service) emitCreated(ctx context.Context, task *domain.Task) {
	s.emit(ctx, task.UserID, events.TypeTaskCreated, events.TaskCreatedData{
		TaskID:            task.ID,
		UserID:            task.UserID,
		Title:             task.Title,
		Description:       task.Description,
		DueDate:           task.DueDate,
		Priority:          string(task.Priority),
		Tags:              task.Tags,
		IsRecurring:       task.IsRecurring(),
		SeriesID:          task.SeriesID,
		RecurrencePattern: task.RecurrencePattern,
		CreatedAt:         task.CreatedAt,
	})
}

// emit builds and publishes an envelope. Publish failures are logged
// and swallowed: the store is the source of truth, the log is an
// eventual derivative.
func (s *Service) emit(ctx context.Context, userID, eventType string, data any) {
	if s.sink == nil {
		return
	}

	envelope, err := events.New(eventType, data, s.now())
	if err != nil {
		slog.ErrorContext(ctx, "failed to build event envelope",
			"event_type", eventType, "error", err)
		return
	}

	if err := s.sink.Publish(ctx, userID, envelope); err != nil {
		slog.ErrorContext(ctx, "failed to publish event",
			"event_type", eventType, "event_id", envelope.ID, "error", err)
	}
}

func normalizeDue(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	utc := t.UTC()
	return &utc
}

func equalDue(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func equalTags(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// changeList renders the changed keys as a stable, compact list for the
// history description, e.g. "Updated due_date, title".
func changeList(changed map[string]any) string {
	keys := make([]string, 0, len(changed))
	for k := range changed {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return strings.Join(keys, ", ")
}
