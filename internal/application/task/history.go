package task

import (
	"context"
	"fmt"
	"time"

	"github.com/rezkam/taskhub/internal/domain"
)

// ListHistory returns a page of history rows, timestamp descending.
// Limit must be within [1, 100]; page numbering starts at 1.
func (s *Service) ListHistory(ctx context.Context, userID string, params domain.ListHistoryParams) (*domain.HistoryPage, error) {
	if params.Limit < 1 || params.Limit > 100 {
		return nil, domain.ErrInvalidPageLimit
	}
	if params.Page < 1 {
		params.Page = 1
	}

	items, total, err := s.repo.ListHistory(ctx, userID, params)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}

	totalPages := (total + params.Limit - 1) / params.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	return &domain.HistoryPage{
		Items:       items,
		TotalCount:  total,
		TotalPages:  totalPages,
		CurrentPage: params.Page,
		PageSize:    params.Limit,
		HasNext:     params.Page < totalPages,
		HasPrev:     params.Page > 1,
	}, nil
}

// DeleteHistory removes a single history row owned by the user.
func (s *Service) DeleteHistory(ctx context.Context, userID, id string) error {
	row, err := s.repo.FindHistoryByID(ctx, id)
	if err != nil {
		return err
	}
	if row.UserID != userID {
		return domain.ErrForbidden
	}

	if err := s.repo.DeleteHistory(ctx, id); err != nil {
		return fmt.Errorf("failed to delete history: %w", err)
	}
	return nil
}

// WeeklyStats aggregates task activity for the current UTC week:
// Monday 00:00:00 inclusive through Sunday 23:59:59 inclusive.
func (s *Service) WeeklyStats(ctx context.Context, userID string) (*domain.WeeklyStats, error) {
	now := s.now()
	weekStart := startOfWeek(now)
	weekEnd := weekStart.AddDate(0, 0, 7).Add(-time.Second)

	stats, err := s.repo.WeeklyStats(ctx, userID, weekStart, weekEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to compute weekly stats: %w", err)
	}

	stats.WeekStart = weekStart
	stats.WeekEnd = weekEnd
	return stats, nil
}

// startOfWeek returns Monday 00:00:00 UTC of the week containing t.
func startOfWeek(t time.Time) time.Time {
	t = t.UTC()
	daysSinceMonday := (int(t.Weekday()) + 6) % 7
	day := t.AddDate(0, 0, -daysSinceMonday)
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
}
