package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"prism-board/domain"
)

const (
	dashboardActivityLimit = 10
	dashboardUpcomingLimit = 10
	dashboardUpcomingDays  = 7
)

// Dashboard aggregates board wide counters and feeds.
func (q *Queries) Dashboard(ctx context.Context) (domain.Dashboard, error) {
	d := domain.Dashboard{
		TasksByStatus:   []domain.StatusCount{},
		TasksByPriority: []domain.PriorityCount{},
		UpcomingTasks:   []domain.UpcomingTask{},
	}

	err := sqlx.SelectContext(ctx, q.db, &d.TasksByStatus,
		"SELECT status, COUNT(*) AS count FROM tasks GROUP BY status ORDER BY status")
	if err != nil {
		return d, fmt.Errorf("counting tasks by status: %w", err)
	}
	err = sqlx.SelectContext(ctx, q.db, &d.TasksByPriority,
		"SELECT priority, COUNT(*) AS count FROM tasks GROUP BY priority ORDER BY priority")
	if err != nil {
		return d, fmt.Errorf("counting tasks by priority: %w", err)
	}

	if d.RecentActivity, err = q.RecentActivity(ctx, dashboardActivityLimit); err != nil {
		return d, err
	}
	if d.RecentActivity == nil {
		d.RecentActivity = []domain.ActivityView{}
	}

	now := q.now()
	err = sqlx.SelectContext(ctx, q.db, &d.UpcomingTasks, `
		SELECT t.id, t.title, t.due_date, u.name AS assignee_name, p.name AS project_name
		FROM tasks t
		JOIN projects p ON p.id = t.project_id
		LEFT JOIN users u ON u.id = t.assignee_id
		WHERE t.due_date IS NOT NULL AND t.due_date >= ? AND t.due_date <= ? AND t.status <> ?
		ORDER BY t.due_date ASC
		LIMIT ?`,
		now, now.Add(dashboardUpcomingDays*24*time.Hour), domain.StatusDone, dashboardUpcomingLimit)
	if err != nil {
		return d, fmt.Errorf("listing upcoming tasks: %w", err)
	}

	if d.Projects, err = q.ActiveProjectProgress(ctx); err != nil {
		return d, err
	}
	if d.Projects == nil {
		d.Projects = []domain.ProjectProgress{}
	}

	d.Finalize()
	return d, nil
}

// MyTasks returns the open tasks assigned to userID, soonest due first.
func (q *Queries) MyTasks(ctx context.Context, userID string) ([]domain.MyTask, error) {
	var rows []struct {
		domain.MyTask
		TeamID   *string `db:"team_id"`
		TeamName *string `db:"team_name"`
		TeamType *string `db:"team_type"`
	}
	err := sqlx.SelectContext(ctx, q.db, &rows, `
		SELECT t.id, t.title, t.status, t.priority, t.due_date, t.project_id,
			p.name AS project_name, t.team_id, tm.name AS team_name, tm.type AS team_type
		FROM tasks t
		JOIN projects p ON p.id = t.project_id
		LEFT JOIN teams tm ON tm.id = t.team_id
		WHERE t.assignee_id = ? AND t.status <> ?
		ORDER BY t.due_date IS NULL, t.due_date ASC`, userID, domain.StatusDone)
	if err != nil {
		return nil, fmt.Errorf("listing tasks of %s: %w", userID, err)
	}
	out := make([]domain.MyTask, len(rows))
	for i, r := range rows {
		out[i] = r.MyTask
		if r.TeamID != nil && r.TeamName != nil {
			out[i].Team = &domain.TeamRef{ID: *r.TeamID, Name: *r.TeamName}
			if r.TeamType != nil {
				out[i].Team.Type = *r.TeamType
			}
		}
	}
	return out, nil
}
