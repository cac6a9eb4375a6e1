package task

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rezkam/taskhub/internal/domain"
	"github.com/rezkam/taskhub/internal/recurring"
)

// CreateSeriesParams contains the caller-supplied fields for a new
// recurring series.
type CreateSeriesParams struct {
	Template          domain.SeriesTemplate
	RecurrencePattern string
}

// CreateSeries validates the template and recurrence rule, persists the
// series together with its first instance (due immediately), and emits
// task.created for the instance.
func (s *Service) CreateSeries(ctx context.Context, userID string, params CreateSeriesParams) (*domain.RecurringTaskSeries, *domain.Task, error) {
	title, err := domain.NewTitle(params.Template.Title)
	if err != nil {
		return nil, nil, err
	}
	params.Template.Title = title.String()

	if err := domain.ValidateTags(params.Template.Tags); err != nil {
		return nil, nil, err
	}

	if _, err := recurring.Parse(params.RecurrencePattern); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", domain.ErrInvalidRecurrenceRule, err)
	}

	seriesID, err := uuid.NewV7()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate id: %w", err)
	}

	now := s.now()
	series := &domain.RecurringTaskSeries{
		ID:                seriesID.String(),
		UserID:            userID,
		Template:          params.Template,
		RecurrencePattern: params.RecurrencePattern,
		IsActive:          true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	// The first instance is due immediately; later instances are
	// generated by the completion consumer.
	firstTask, err := s.instanceFromSeries(series, now, now)
	if err != nil {
		return nil, nil, err
	}

	history := s.historyRow(firstTask, domain.HistoryActionCreated, "Task created from recurring series", now)

	if err := s.repo.CreateSeries(ctx, series, firstTask, history); err != nil {
		return nil, nil, fmt.Errorf("failed to create series: %w", err)
	}

	s.emitCreated(ctx, firstTask)
	return series, firstTask, nil
}

// ListSeries returns the user's series, optionally including
// deactivated ones.
func (s *Service) ListSeries(ctx context.Context, userID string, includeInactive bool) ([]domain.RecurringTaskSeries, error) {
	series, err := s.repo.ListSeries(ctx, userID, includeInactive)
	if err != nil {
		return nil, fmt.Errorf("failed to list series: %w", err)
	}
	return series, nil
}

// GetSeriesByID fetches a series without the ownership rule. For
// internal consumers (the recurring generator) that act on events, not
// on behalf of a caller.
func (s *Service) GetSeriesByID(ctx context.Context, id string) (*domain.RecurringTaskSeries, error) {
	return s.repo.FindSeriesByID(ctx, id)
}

// GetSeries retrieves a single series with the ownership rule applied.
func (s *Service) GetSeries(ctx context.Context, userID, id string) (*domain.RecurringTaskSeries, error) {
	return s.ownedSeries(ctx, userID, id)
}

// UpdateSeries applies a partial update to a series.
func (s *Service) UpdateSeries(ctx context.Context, userID, id string, params domain.UpdateSeriesParams) (*domain.RecurringTaskSeries, error) {
	if params.IsEmpty() {
		return nil, domain.ErrEmptyUpdate
	}

	series, err := s.ownedSeries(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if params.Template != nil {
		title, err := domain.NewTitle(params.Template.Title)
		if err != nil {
			return nil, err
		}
		if err := domain.ValidateTags(params.Template.Tags); err != nil {
			return nil, err
		}
		params.Template.Title = title.String()
		series.Template = *params.Template
	}

	if params.RecurrencePattern != nil {
		if _, err := recurring.Parse(*params.RecurrencePattern); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidRecurrenceRule, err)
		}
		series.RecurrencePattern = *params.RecurrencePattern
	}

	if params.IsActive != nil {
		series.IsActive = *params.IsActive
	}

	series.UpdatedAt = s.now()

	if err := s.repo.UpdateSeries(ctx, series); err != nil {
		return nil, fmt.Errorf("failed to update series: %w", err)
	}

	return series, nil
}

// DeleteSeries soft-deletes: the series is deactivated and all
// generated instances are preserved.
func (s *Service) DeleteSeries(ctx context.Context, userID, id string) error {
	if _, err := s.ownedSeries(ctx, userID, id); err != nil {
		return err
	}

	if err := s.repo.DeactivateSeries(ctx, id, s.now()); err != nil {
		return fmt.Errorf("failed to deactivate series: %w", err)
	}
	return nil
}

// ListSeriesTasks returns all task instances generated from a series.
func (s *Service) ListSeriesTasks(ctx context.Context, userID, id string) ([]domain.Task, error) {
	if _, err := s.ownedSeries(ctx, userID, id); err != nil {
		return nil, err
	}

	tasks, err := s.repo.ListSeriesTasks(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list series tasks: %w", err)
	}
	return tasks, nil
}

// GenerateInstance creates the next task instance for a series, due at
// the given instant. Used by the recurring generator when it consumes a
// completion event. Emits task.created like any other creation.
//
// A duplicate (series, due_date) pair surfaces as ErrConflict from the
// repository's unique constraint, which callers treat as already done.
func (s *Service) GenerateInstance(ctx context.Context, series *domain.RecurringTaskSeries, due time.Time) (*domain.Task, error) {
	now := s.now()
	task, err := s.instanceFromSeries(series, due, now)
	if err != nil {
		return nil, err
	}

	history := s.historyRow(task, domain.HistoryActionCreated, "Task created from recurring series", now)

	if err := s.repo.CreateTask(ctx, task, history); err != nil {
		return nil, fmt.Errorf("failed to create series instance: %w", err)
	}

	s.emitCreated(ctx, task)
	return task, nil
}

// instanceFromSeries synthesizes a task row from the series template.
// Title is required; description, priority, and tags are inherited when
// present. Absent priority falls back to classification.
func (s *Service) instanceFromSeries(series *domain.RecurringTaskSeries, due, now time.Time) (*domain.Task, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate id: %w", err)
	}

	due = due.UTC()
	priority := domain.ClassifyPriority(series.Template.Title, &due, now)
	if series.Template.Priority != nil {
		priority = *series.Template.Priority
	}

	tags := series.Template.Tags
	if tags == nil {
		tags = []string{}
	}

	seriesID := series.ID
	pattern := series.RecurrencePattern

	return &domain.Task{
		ID:                id.String(),
		UserID:            series.UserID,
		Title:             series.Template.Title,
		Description:       series.Template.Description,
		Status:            domain.TaskStatusNotStarted,
		Priority:          priority,
		DueDate:           &due,
		Tags:              tags,
		SeriesID:          &seriesID,
		RecurrencePattern: &pattern,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// ownedSeries fetches a series and enforces ownership, mirroring the
// task disclosure rule.
func (s *Service) ownedSeries(ctx context.Context, userID, id string) (*domain.RecurringTaskSeries, error) {
	series, err := s.repo.FindSeriesByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if series.UserID != userID {
		return nil, domain.ErrForbidden
	}
	return series, nil
}
