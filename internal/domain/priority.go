package domain

import (
	"strings"
	"time"
)

// urgencyKeywords trigger VERY_IMPORTANT classification when present in
// the title of a task without a due date. Matched case-insensitively.
var urgencyKeywords = []string{"urgent", "asap", "critical", "important", "emergency"}

// Classification thresholds measured from now to the due date.
const (
	veryImportantWindow = 6 * time.Hour
	highWindow          = 24 * time.Hour
	mediumWindow        = 7 * 24 * time.Hour
)

// ClassifyPriority derives a task priority from its title and due date.
//
// Rules:
//  1. Urgency keyword in the title and no due date: VERY_IMPORTANT.
//  2. No due date and no keyword: LOW.
//  3. Otherwise by proximity: <=6h VERY_IMPORTANT, <=24h HIGH,
//     <=7d MEDIUM, beyond LOW.
//
// Pure function: callers pass now explicitly so classification is
// deterministic and testable at boundaries.
func ClassifyPriority(title string, dueDate *time.Time, now time.Time) TaskPriority {
	if dueDate == nil {
		if hasUrgencyKeyword(title) {
			return TaskPriorityVeryImportant
		}
		return TaskPriorityLow
	}

	remaining := dueDate.Sub(now)
	switch {
	case remaining <= veryImportantWindow:
		return TaskPriorityVeryImportant
	case remaining <= highWindow:
		return TaskPriorityHigh
	case remaining <= mediumWindow:
		return TaskPriorityMedium
	default:
		return TaskPriorityLow
	}
}

func hasUrgencyKeyword(title string) bool {
	lower := strings.ToLower(title)
	for _, kw := range urgencyKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
