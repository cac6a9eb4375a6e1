package domain

// TaskStatus represents the current state of a task.
// Value object - immutable string enum.
type TaskStatus string

const (
	TaskStatusNotStarted TaskStatus = "NOT_STARTED"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusCompleted  TaskStatus = "COMPLETED"
)

// TaskPriority represents the priority level of a task.
// Value object - immutable string enum.
type TaskPriority string

const (
	TaskPriorityVeryImportant TaskPriority = "VERY_IMPORTANT"
	TaskPriorityHigh          TaskPriority = "HIGH"
	TaskPriorityMedium        TaskPriority = "MEDIUM"
	TaskPriorityLow           TaskPriority = "LOW"
)

// HistoryAction identifies the kind of mutation recorded in task history.
type HistoryAction string

const (
	HistoryActionCreated     HistoryAction = "CREATED"
	HistoryActionUpdated     HistoryAction = "UPDATED"
	HistoryActionDeleted     HistoryAction = "DELETED"
	HistoryActionCompleted   HistoryAction = "COMPLETED"
	HistoryActionIncompleted HistoryAction = "INCOMPLETED"
)

// MessageRole identifies who authored a chat message.
type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
	MessageRoleSystem    MessageRole = "system"
)
