package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"prism-board/domain"
)

const projectColumns = `p.id, p.name, p.description, p.status, p.start_date, p.end_date, p.created_at, p.updated_at`

// FindProject loads one project.
func (q *Queries) FindProject(ctx context.Context, id string) (domain.Project, error) {
	var p domain.Project
	if err := sqlx.GetContext(ctx, q.db, &p, "SELECT "+projectColumns+" FROM projects p WHERE p.id = ?", id); err != nil {
		return domain.Project{}, notFound(err, "project", id)
	}
	return p, nil
}

// ListProjects returns every project with its teams and task counters,
// most recently updated first.
func (q *Queries) ListProjects(ctx context.Context) ([]domain.ProjectSummary, error) {
	var out []domain.ProjectSummary
	err := sqlx.SelectContext(ctx, q.db, &out, `
		SELECT `+projectColumns+`,
			(SELECT COUNT(*) FROM tasks t WHERE t.project_id = p.id) AS total_tasks,
			(SELECT COUNT(*) FROM tasks t WHERE t.project_id = p.id AND t.status = 'DONE') AS done_tasks
		FROM projects p
		ORDER BY p.updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	for i := range out {
		if out[i].Teams, err = q.projectTeams(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ProjectDetail loads a project with its teams and its tasks ordered by
// position.
func (q *Queries) ProjectDetail(ctx context.Context, id string) (domain.ProjectDetail, error) {
	p, err := q.FindProject(ctx, id)
	if err != nil {
		return domain.ProjectDetail{}, err
	}
	detail := domain.ProjectDetail{Project: p}
	if detail.Teams, err = q.projectTeams(ctx, id); err != nil {
		return domain.ProjectDetail{}, err
	}
	if detail.Tasks, err = q.ListTasks(ctx, domain.TaskFilter{ProjectID: id}); err != nil {
		return domain.ProjectDetail{}, err
	}
	return detail, nil
}

// ActiveProjectProgress returns ACTIVE projects with task totals.
func (q *Queries) ActiveProjectProgress(ctx context.Context) ([]domain.ProjectProgress, error) {
	var out []domain.ProjectProgress
	err := sqlx.SelectContext(ctx, q.db, &out, `
		SELECT p.id, p.name,
			(SELECT COUNT(*) FROM tasks t WHERE t.project_id = p.id) AS total_tasks,
			(SELECT COUNT(*) FROM tasks t WHERE t.project_id = p.id AND t.status = 'DONE') AS done_tasks
		FROM projects p
		WHERE p.status = ?
		ORDER BY p.name`, domain.ProjectActive)
	if err != nil {
		return nil, fmt.Errorf("listing active projects: %w", err)
	}
	return out, nil
}

// InsertProject stores a project and links the given teams.
func (q *Queries) InsertProject(ctx context.Context, p domain.Project, teamIDs []string) (domain.Project, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = domain.ProjectActive
	}
	now := q.now()
	p.CreatedAt, p.UpdatedAt = now, now

	_, err := q.db.ExecContext(ctx, `
		INSERT INTO projects (id, name, description, status, start_date, end_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Description, p.Status, p.StartDate, p.EndDate, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return domain.Project{}, fmt.Errorf("creating project: %w", err)
	}
	for _, teamID := range teamIDs {
		if err := q.LinkTeam(ctx, p.ID, teamID); err != nil {
			return domain.Project{}, err
		}
	}
	return p, nil
}

// LinkTeam attaches a team to a project.
func (q *Queries) LinkTeam(ctx context.Context, projectID, teamID string) error {
	_, err := q.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO project_teams (project_id, team_id) VALUES (?, ?)", projectID, teamID)
	if err != nil {
		return fmt.Errorf("linking team %s to project %s: %w", teamID, projectID, err)
	}
	return nil
}

// UpdateProject writes the mutable project columns.
func (q *Queries) UpdateProject(ctx context.Context, p domain.Project) (domain.Project, error) {
	p.UpdatedAt = q.now()
	res, err := q.db.ExecContext(ctx, `
		UPDATE projects SET name = ?, description = ?, status = ?, start_date = ?, end_date = ?, updated_at = ?
		WHERE id = ?`,
		p.Name, p.Description, p.Status, p.StartDate, p.EndDate, p.UpdatedAt, p.ID)
	if err != nil {
		return domain.Project{}, fmt.Errorf("updating project %s: %w", p.ID, err)
	}
	if err := expectOne(res, "project", p.ID); err != nil {
		return domain.Project{}, err
	}
	return p, nil
}

// DeleteProject removes a project together with its tasks.
func (q *Queries) DeleteProject(ctx context.Context, id string) error {
	res, err := q.db.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting project %s: %w", id, err)
	}
	return expectOne(res, "project", id)
}

func (q *Queries) projectTeams(ctx context.Context, projectID string) ([]domain.Team, error) {
	teams := []domain.Team{}
	err := sqlx.SelectContext(ctx, q.db, &teams, `
		SELECT tm.id, tm.name, tm.type, tm.color, tm.description
		FROM project_teams pt JOIN teams tm ON tm.id = pt.team_id
		WHERE pt.project_id = ?
		ORDER BY tm.name`, projectID)
	if err != nil {
		return nil, fmt.Errorf("loading teams of project %s: %w", projectID, err)
	}
	return teams, nil
}
