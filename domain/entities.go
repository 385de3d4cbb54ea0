package domain

import (
	"fmt"
	"time"
)

// ProjectStatus is the lifecycle state of a project.
type ProjectStatus string

const (
	ProjectActive    ProjectStatus = "ACTIVE"
	ProjectOnHold    ProjectStatus = "ON_HOLD"
	ProjectCompleted ProjectStatus = "COMPLETED"
	ProjectArchived  ProjectStatus = "ARCHIVED"
)

func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectActive, ProjectOnHold, ProjectCompleted, ProjectArchived:
		return true
	}
	return false
}

type Project struct {
	ID          string        `json:"id" db:"id"`
	Name        string        `json:"name" db:"name"`
	Description *string       `json:"description" db:"description"`
	Status      ProjectStatus `json:"status" db:"status"`
	StartDate   *time.Time    `json:"startDate" db:"start_date"`
	EndDate     *time.Time    `json:"endDate" db:"end_date"`
	CreatedAt   time.Time     `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time     `json:"updatedAt" db:"updated_at"`
}

// ProjectSummary is a project with task completion counters.
type ProjectSummary struct {
	Project
	Teams      []Team `json:"teams"`
	TotalTasks int    `json:"totalTasks" db:"total_tasks"`
	DoneTasks  int    `json:"doneTasks" db:"done_tasks"`
}

// ProjectDetail is a project with its linked teams and top-level tasks.
type ProjectDetail struct {
	Project
	Teams []Team     `json:"teams"`
	Tasks []TaskView `json:"tasks"`
}

// NewProject carries caller supplied project fields.
type NewProject struct {
	Name        string        `json:"name"`
	Description *string       `json:"description"`
	Status      ProjectStatus `json:"status"`
	StartDate   *time.Time    `json:"startDate"`
	EndDate     *time.Time    `json:"endDate"`
	TeamIDs     []string      `json:"teamIds"`
}

// ProjectPatch is a partial project update.
type ProjectPatch struct {
	Name        Optional[string]        `json:"name"`
	Description Optional[string]        `json:"description"`
	Status      Optional[ProjectStatus] `json:"status"`
	StartDate   Optional[time.Time]     `json:"startDate"`
	EndDate     Optional[time.Time]     `json:"endDate"`
}

type Team struct {
	ID          string  `json:"id" db:"id"`
	Name        string  `json:"name" db:"name"`
	Type        string  `json:"type" db:"type"`
	Color       string  `json:"color" db:"color"`
	Description *string `json:"description,omitempty" db:"description"`
}

type User struct {
	ID    string  `json:"id" db:"id"`
	Name  string  `json:"name" db:"name"`
	Email string  `json:"email" db:"email"`
	Image *string `json:"image" db:"image"`
	Role  string  `json:"role" db:"role"`
}

type Label struct {
	ID    string `json:"id" db:"id"`
	Name  string `json:"name" db:"name"`
	Color string `json:"color" db:"color"`
}

type Comment struct {
	ID        string    `json:"id" db:"id"`
	Content   string    `json:"content" db:"content"`
	TaskID    string    `json:"taskId" db:"task_id"`
	UserID    string    `json:"userId" db:"user_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// CommentView is a comment with its author attached.
type CommentView struct {
	Comment
	User UserRef `json:"user"`
}

type Notification struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"userId" db:"user_id"`
	Title     string    `json:"title" db:"title"`
	Message   string    `json:"message" db:"message"`
	Link      *string   `json:"link" db:"link"`
	Read      bool      `json:"read" db:"read"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// SearchResult is one hit of the global search box.
type SearchResult struct {
	Type      string `json:"type"`
	ID        string `json:"id"`
	Title     string `json:"title"`
	ProjectID string `json:"projectId,omitempty"`
}

// MyTask is an assigned task with its project name.
type MyTask struct {
	ID          string     `json:"id" db:"id"`
	Title       string     `json:"title" db:"title"`
	Status      Status     `json:"status" db:"status"`
	Priority    Priority   `json:"priority" db:"priority"`
	DueDate     *time.Time `json:"dueDate" db:"due_date"`
	ProjectID   string     `json:"projectId" db:"project_id"`
	ProjectName string     `json:"projectName" db:"project_name"`
	Team        *TeamRef   `json:"team"`
}

// Normalize applies creation defaults and validates the input.
func (n *NewProject) Normalize() error {
	if n.Name == "" {
		return fmt.Errorf("%w: name required", ErrInvalid)
	}
	if n.Status == "" {
		n.Status = ProjectActive
	}
	if !n.Status.Valid() {
		return fmt.Errorf("%w: unknown project status %q", ErrInvalid, n.Status)
	}
	if n.Description != nil && *n.Description == "" {
		n.Description = nil
	}
	return nil
}

// Validate rejects an empty name and unknown statuses.
func (p ProjectPatch) Validate() error {
	if p.Name.Set && (p.Name.Null || p.Name.Value == "") {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalid)
	}
	if p.Status.Set && (p.Status.Null || !p.Status.Value.Valid()) {
		return fmt.Errorf("%w: unknown project status %q", ErrInvalid, p.Status.Value)
	}
	return nil
}

// Apply returns a copy of pr with the patch applied. Dates are only ever
// replaced, never cleared.
func (p ProjectPatch) Apply(pr Project) Project {
	if p.Name.Set {
		pr.Name = p.Name.Value
	}
	if p.Description.Set {
		pr.Description = p.Description.Ptr()
	}
	if p.Status.Set {
		pr.Status = p.Status.Value
	}
	if v := p.StartDate.Ptr(); v != nil {
		pr.StartDate = v
	}
	if v := p.EndDate.Ptr(); v != nil {
		pr.EndDate = v
	}
	return pr
}
