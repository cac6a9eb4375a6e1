package handler

import (
	"time"

	"github.com/rezkam/taskhub/internal/domain"
)

// JSON shapes for API responses. Times marshal as RFC 3339 UTC.

type userJSON struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

type sessionJSON struct {
	Message string   `json:"message"`
	User    userJSON `json:"user"`
	Token   string   `json:"token"`
}

type taskJSON struct {
	ID                string     `json:"id"`
	UserID            string     `json:"user_id"`
	Title             string     `json:"title"`
	Description       string     `json:"description"`
	IsCompleted       bool       `json:"is_completed"`
	CompletedAt       *time.Time `json:"completed_at"`
	Status            string     `json:"status"`
	Priority          string     `json:"priority"`
	DueDate           *time.Time `json:"due_date"`
	Tags              []string   `json:"tags"`
	IsRecurring       bool       `json:"is_recurring"`
	SeriesID          *string    `json:"series_id,omitempty"`
	RecurrencePattern *string    `json:"recurrence_pattern,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

type historyJSON struct {
	ID          string    `json:"id"`
	TaskID      *string   `json:"task_id"`
	TaskTitle   string    `json:"task_title"`
	Action      string    `json:"action"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
}

type historyPageJSON struct {
	Items       []historyJSON `json:"items"`
	TotalCount  int           `json:"total_count"`
	TotalPages  int           `json:"total_pages"`
	CurrentPage int           `json:"current_page"`
	PageSize    int           `json:"page_size"`
	HasNext     bool          `json:"has_next"`
	HasPrev     bool          `json:"has_prev"`
}

type statsJSON struct {
	TasksCreatedThisWeek   int       `json:"tasks_created_this_week"`
	TasksCompletedThisWeek int       `json:"tasks_completed_this_week"`
	TotalCompleted         int       `json:"total_completed"`
	TotalIncomplete        int       `json:"total_incomplete"`
	TotalTasks             int       `json:"total_tasks"`
	WeekStart              time.Time `json:"week_start"`
	WeekEnd                time.Time `json:"week_end"`
}

type notificationJSON struct {
	ID        string     `json:"id"`
	TaskID    string     `json:"task_id"`
	Message   string     `json:"message"`
	Priority  string     `json:"priority"`
	IsRead    bool       `json:"is_read"`
	CreatedAt time.Time  `json:"created_at"`
	ReadAt    *time.Time `json:"read_at"`
}

type seriesJSON struct {
	ID                string              `json:"id"`
	UserID            string              `json:"user_id"`
	Template          seriesTemplateJSON  `json:"template"`
	RecurrencePattern string              `json:"recurrence_pattern"`
	IsActive          bool                `json:"is_active"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
}

type seriesTemplateJSON struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Priority    *string  `json:"priority,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

type conversationJSON struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type messageJSON struct {
	ID             string    `json:"id"`
	ExternalItemID string    `json:"external_item_id"`
	ConversationID string    `json:"conversation_id"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
	ExpiresAt      time.Time `json:"expires_at"`
}

func toUserJSON(u *domain.User) userJSON {
	return userJSON{ID: u.ID, Email: u.Email, CreatedAt: u.CreatedAt}
}

func toTaskJSON(t *domain.Task) taskJSON {
	tags := t.Tags
	if tags == nil {
		tags = []string{}
	}
	return taskJSON{
		ID:                t.ID,
		UserID:            t.UserID,
		Title:             t.Title,
		Description:       t.Description,
		IsCompleted:       t.IsCompleted,
		CompletedAt:       t.CompletedAt,
		Status:            string(t.Status),
		Priority:          string(t.Priority),
		DueDate:           t.DueDate,
		Tags:              tags,
		IsRecurring:       t.IsRecurring(),
		SeriesID:          t.SeriesID,
		RecurrencePattern: t.RecurrencePattern,
		CreatedAt:         t.CreatedAt,
		UpdatedAt:         t.UpdatedAt,
	}
}

func toTaskListJSON(tasks []domain.Task) []taskJSON {
	result := make([]taskJSON, 0, len(tasks))
	for i := range tasks {
		result = append(result, toTaskJSON(&tasks[i]))
	}
	return result
}

func toHistoryJSON(h *domain.TaskHistory) historyJSON {
	return historyJSON{
		ID:          h.ID,
		TaskID:      h.TaskID,
		TaskTitle:   h.TaskTitle,
		Action:      string(h.Action),
		Description: h.Description,
		Timestamp:   h.Timestamp,
	}
}

func toHistoryPageJSON(page *domain.HistoryPage) historyPageJSON {
	items := make([]historyJSON, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, toHistoryJSON(&page.Items[i]))
	}
	return historyPageJSON{
		Items:       items,
		TotalCount:  page.TotalCount,
		TotalPages:  page.TotalPages,
		CurrentPage: page.CurrentPage,
		PageSize:    page.PageSize,
		HasNext:     page.HasNext,
		HasPrev:     page.HasPrev,
	}
}

func toStatsJSON(s *domain.WeeklyStats) statsJSON {
	return statsJSON{
		TasksCreatedThisWeek:   s.TasksCreatedThisWeek,
		TasksCompletedThisWeek: s.TasksCompletedThisWeek,
		TotalCompleted:         s.TotalCompleted,
		TotalIncomplete:        s.TotalIncomplete,
		TotalTasks:             s.TotalTasks,
		WeekStart:              s.WeekStart,
		WeekEnd:                s.WeekEnd,
	}
}

func toNotificationJSON(n *domain.Notification) notificationJSON {
	return notificationJSON{
		ID:        n.ID,
		TaskID:    n.TaskID,
		Message:   n.Message,
		Priority:  string(n.Priority),
		IsRead:    n.IsRead(),
		CreatedAt: n.CreatedAt,
		ReadAt:    n.ReadAt,
	}
}

func toSeriesJSON(s *domain.RecurringTaskSeries) seriesJSON {
	var priority *string
	if s.Template.Priority != nil {
		p := string(*s.Template.Priority)
		priority = &p
	}
	return seriesJSON{
		ID:     s.ID,
		UserID: s.UserID,
		Template: seriesTemplateJSON{
			Title:       s.Template.Title,
			Description: s.Template.Description,
			Priority:    priority,
			Tags:        s.Template.Tags,
		},
		RecurrencePattern: s.RecurrencePattern,
		IsActive:          s.IsActive,
		CreatedAt:         s.CreatedAt,
		UpdatedAt:         s.UpdatedAt,
	}
}

func toConversationJSON(c *domain.Conversation) conversationJSON {
	return conversationJSON{
		ID:        c.ID,
		Title:     c.Title,
		IsActive:  c.IsActive,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func toMessageJSON(m *domain.Message) messageJSON {
	return messageJSON{
		ID:             m.ID,
		ExternalItemID: m.ExternalItemID,
		ConversationID: m.ConversationID,
		Role:           string(m.Role),
		Content:        m.Content,
		CreatedAt:      m.CreatedAt,
		ExpiresAt:      m.ExpiresAt,
	}
}
