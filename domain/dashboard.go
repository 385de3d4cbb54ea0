package domain

import "time"

type StatusCount struct {
	Status Status `json:"status" db:"status"`
	Count  int    `json:"count" db:"count"`
}

type PriorityCount struct {
	Priority Priority `json:"priority" db:"priority"`
	Count    int      `json:"count" db:"count"`
}

// UpcomingTask is a not-yet-done task due within the dashboard window.
type UpcomingTask struct {
	ID           string    `json:"id" db:"id"`
	Title        string    `json:"title" db:"title"`
	DueDate      time.Time `json:"dueDate" db:"due_date"`
	AssigneeName *string   `json:"assigneeName" db:"assignee_name"`
	ProjectName  string    `json:"projectName" db:"project_name"`
}

type ProjectProgress struct {
	ID         string `json:"id" db:"id"`
	Name       string `json:"name" db:"name"`
	TotalTasks int    `json:"totalTasks" db:"total_tasks"`
	DoneTasks  int    `json:"doneTasks" db:"done_tasks"`
}

// Dashboard aggregates the numbers shown on the landing page.
type Dashboard struct {
	TotalTasks      int               `json:"totalTasks"`
	DoneTasks       int               `json:"doneTasks"`
	ActiveProjects  int               `json:"activeProjects"`
	CompletionRate  int               `json:"completionRate"`
	TasksByStatus   []StatusCount     `json:"tasksByStatus"`
	TasksByPriority []PriorityCount   `json:"tasksByPriority"`
	RecentActivity  []ActivityView    `json:"recentActivity"`
	UpcomingTasks   []UpcomingTask    `json:"upcomingTasks"`
	Projects        []ProjectProgress `json:"projects"`
}

// Finalize derives the totals from the per-status counts.
func (d *Dashboard) Finalize() {
	d.TotalTasks = 0
	d.DoneTasks = 0
	for _, c := range d.TasksByStatus {
		d.TotalTasks += c.Count
		if c.Status == StatusDone {
			d.DoneTasks = c.Count
		}
	}
	d.ActiveProjects = len(d.Projects)
	d.CompletionRate = 0
	if d.TotalTasks > 0 {
		d.CompletionRate = int(float64(d.DoneTasks)/float64(d.TotalTasks)*100 + 0.5)
	}
}
