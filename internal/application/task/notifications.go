package task

import (
	"context"
	"fmt"

	"github.com/rezkam/taskhub/internal/domain"
)

// ListNotifications returns the user's notifications, newest first.
// With unreadOnly, read rows are filtered out.
func (s *Service) ListNotifications(ctx context.Context, userID string, unreadOnly bool) ([]domain.Notification, error) {
	notifications, err := s.repo.ListNotifications(ctx, userID, unreadOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, nil
}

// MarkNotificationRead acknowledges a single notification.
func (s *Service) MarkNotificationRead(ctx context.Context, userID, id string) (*domain.Notification, error) {
	n, err := s.repo.FindNotificationByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.UserID != userID {
		return nil, domain.ErrForbidden
	}

	if n.IsRead() {
		return n, nil
	}

	now := s.now()
	if err := s.repo.MarkNotificationRead(ctx, id, now); err != nil {
		return nil, fmt.Errorf("failed to mark notification read: %w", err)
	}
	n.ReadAt = &now
	return n, nil
}

// MarkAllNotificationsRead acknowledges every unread notification and
// returns how many rows changed.
func (s *Service) MarkAllNotificationsRead(ctx context.Context, userID string) (int, error) {
	count, err := s.repo.MarkAllNotificationsRead(ctx, userID, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return count, nil
}

// CountUnreadNotifications returns the user's unread badge count.
func (s *Service) CountUnreadNotifications(ctx context.Context, userID string) (int, error) {
	count, err := s.repo.CountUnreadNotifications(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}
