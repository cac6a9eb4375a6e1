package domain

import (
	"fmt"
	"strings"
)

// Title is a validated title value object (1-255 characters after trim).
type Title struct {
	value string
}

// NewTitle creates a new Title, validating the input.
func NewTitle(s string) (Title, error) {
	s = strings.TrimSpace(s)

	if s == "" {
		return Title{}, ErrTitleRequired
	}

	if len(s) > 255 {
		return Title{}, ErrTitleTooLong
	}

	return Title{value: s}, nil
}

// String returns the title value.
func (t Title) String() string {
	return t.value
}

// NewDescription validates a task description (at most 5000 characters).
func NewDescription(s string) (string, error) {
	if len(s) > 5000 {
		return "", ErrDescriptionTooLong
	}
	return s, nil
}

// NewTaskStatus validates and creates a TaskStatus.
func NewTaskStatus(s string) (TaskStatus, error) {
	status := TaskStatus(strings.ToUpper(s))

	switch status {
	case TaskStatusNotStarted, TaskStatusInProgress, TaskStatusCompleted:
		return status, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrInvalidTaskStatus, s)
	}
}

// NewTaskPriority validates and creates a TaskPriority.
func NewTaskPriority(s string) (TaskPriority, error) {
	priority := TaskPriority(strings.ToUpper(s))

	switch priority {
	case TaskPriorityVeryImportant, TaskPriorityHigh, TaskPriorityMedium, TaskPriorityLow:
		return priority, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrInvalidTaskPriority, s)
	}
}

// NewMessageRole validates and creates a MessageRole.
func NewMessageRole(s string) (MessageRole, error) {
	role := MessageRole(strings.ToLower(s))

	switch role {
	case MessageRoleUser, MessageRoleAssistant, MessageRoleSystem:
		return role, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrInvalidMessageRole, s)
	}
}

// NewHistoryAction validates and creates a HistoryAction.
func NewHistoryAction(s string) (HistoryAction, error) {
	action := HistoryAction(strings.ToUpper(s))

	switch action {
	case HistoryActionCreated, HistoryActionUpdated, HistoryActionDeleted,
		HistoryActionCompleted, HistoryActionIncompleted:
		return action, nil
	default:
		return "", fmt.Errorf("invalid history action: %s", s)
	}
}
