package domain

import (
	"fmt"
	"time"
)

// Status is the kanban column a task sits in.
type Status string

const (
	StatusBacklog    Status = "BACKLOG"
	StatusTodo       Status = "TODO"
	StatusInProgress Status = "IN_PROGRESS"
	StatusInReview   Status = "IN_REVIEW"
	StatusDone       Status = "DONE"
)

// StatusColumns lists the board columns in display order.
var StatusColumns = []Status{StatusBacklog, StatusTodo, StatusInProgress, StatusInReview, StatusDone}

// Valid reports whether s is one of the known board columns.
func (s Status) Valid() bool {
	switch s {
	case StatusBacklog, StatusTodo, StatusInProgress, StatusInReview, StatusDone:
		return true
	}
	return false
}

// ParseStatus validates a raw status value.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.Valid() {
		return "", fmt.Errorf("%w: unknown status %q", ErrInvalid, raw)
	}
	return s, nil
}

// Priority ranks how urgent a task is.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// ParsePriority validates a raw priority value.
func ParsePriority(raw string) (Priority, error) {
	p := Priority(raw)
	if !p.Valid() {
		return "", fmt.Errorf("%w: unknown priority %q", ErrInvalid, raw)
	}
	return p, nil
}

// Task is a single board item. Position orders tasks inside their
// (project, status) partition only.
type Task struct {
	ID          string     `json:"id" db:"id"`
	Title       string     `json:"title" db:"title"`
	Description *string    `json:"description" db:"description"`
	Status      Status     `json:"status" db:"status"`
	Priority    Priority   `json:"priority" db:"priority"`
	Position    int        `json:"position" db:"position"`
	DueDate     *time.Time `json:"dueDate" db:"due_date"`
	ProjectID   string     `json:"projectId" db:"project_id"`
	AssigneeID  *string    `json:"assigneeId" db:"assignee_id"`
	CreatorID   string     `json:"creatorId" db:"creator_id"`
	TeamID      *string    `json:"teamId" db:"team_id"`
	ParentID    *string    `json:"parentId" db:"parent_id"`
	CreatedAt   time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time  `json:"updatedAt" db:"updated_at"`
}

// UserRef is the slice of a user attached to tasks and comments for display.
type UserRef struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Image *string `json:"image"`
}

// TeamRef is the slice of a team attached to tasks for display.
type TeamRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// TaskCounts carries the number of subtasks and comments on a task.
type TaskCounts struct {
	Subtasks int `json:"subtasks"`
	Comments int `json:"comments"`
}

// TaskView is a task enriched for board rendering.
type TaskView struct {
	Task
	Assignee *UserRef   `json:"assignee"`
	Team     *TeamRef   `json:"team"`
	Labels   []Label    `json:"labels"`
	Count    TaskCounts `json:"_count"`
}

// TaskDetail is the full task payload shown in the detail panel.
type TaskDetail struct {
	TaskView
	Creator  *UserRef      `json:"creator"`
	Subtasks []TaskView    `json:"subtasks"`
	Comments []CommentView `json:"comments"`
}

// TaskFilter narrows task listings. Empty fields do not filter.
type TaskFilter struct {
	ProjectID  string
	Status     Status
	AssigneeID string
	Priority   Priority
	TeamID     string
	// TopLevel restricts the listing to tasks without a parent.
	TopLevel bool
	// ExcludeStatus drops tasks in the given column.
	ExcludeStatus Status
	// OrderByDueDate sorts by due date instead of position.
	OrderByDueDate bool
}

// NewTask carries the caller supplied fields for task creation.
type NewTask struct {
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Status      Status     `json:"status"`
	Priority    Priority   `json:"priority"`
	DueDate     *DueDate   `json:"dueDate"`
	ProjectID   string     `json:"projectId"`
	AssigneeID  *string    `json:"assigneeId"`
	TeamID      *string    `json:"teamId"`
	ParentID    *string    `json:"parentId"`
}

// Normalize applies creation defaults and validates the input.
func (n *NewTask) Normalize() error {
	if n.Title == "" {
		return fmt.Errorf("%w: title required", ErrInvalid)
	}
	if n.ProjectID == "" {
		return fmt.Errorf("%w: projectId required", ErrInvalid)
	}
	if n.Status == "" {
		n.Status = StatusTodo
	}
	if !n.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalid, n.Status)
	}
	if n.Priority == "" {
		n.Priority = PriorityMedium
	}
	if !n.Priority.Valid() {
		return fmt.Errorf("%w: unknown priority %q", ErrInvalid, n.Priority)
	}
	if n.DueDate != nil && n.DueDate.IsZero() {
		n.DueDate = nil
	}
	n.AssigneeID = emptyToNil(n.AssigneeID)
	n.TeamID = emptyToNil(n.TeamID)
	n.ParentID = emptyToNil(n.ParentID)
	if n.Description != nil && *n.Description == "" {
		n.Description = nil
	}
	return nil
}

func emptyToNil(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
