package domain

import "time"

// ActivityAction is the kind of change an activity entry records.
type ActivityAction string

const (
	ActionCreated   ActivityAction = "created"
	ActionUpdated   ActivityAction = "updated"
	ActionCommented ActivityAction = "commented"
)

// ActivityLogEntry is an append-only audit record of a task change.
type ActivityLogEntry struct {
	ID        string         `json:"id" db:"id"`
	Action    ActivityAction `json:"action" db:"action"`
	Field     *string        `json:"field" db:"field"`
	OldValue  *string        `json:"oldValue" db:"old_value"`
	NewValue  *string        `json:"newValue" db:"new_value"`
	TaskID    string         `json:"taskId" db:"task_id"`
	UserID    string         `json:"userId" db:"user_id"`
	CreatedAt time.Time      `json:"createdAt" db:"created_at"`
}

// ActivityView is an activity entry joined with display names.
type ActivityView struct {
	ID        string         `json:"id" db:"id"`
	Action    ActivityAction `json:"action" db:"action"`
	Field     *string        `json:"field" db:"field"`
	UserName  string         `json:"userName" db:"user_name"`
	TaskTitle *string        `json:"taskTitle" db:"task_title"`
	CreatedAt time.Time      `json:"createdAt" db:"created_at"`
}
