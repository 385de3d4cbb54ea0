package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"prism-board/domain"
)

// ListTeams returns all teams ordered by name.
func (q *Queries) ListTeams(ctx context.Context) ([]domain.Team, error) {
	teams := []domain.Team{}
	if err := sqlx.SelectContext(ctx, q.db, &teams,
		"SELECT id, name, type, color, description FROM teams ORDER BY name"); err != nil {
		return nil, fmt.Errorf("listing teams: %w", err)
	}
	return teams, nil
}

// InsertTeam stores a team.
func (q *Queries) InsertTeam(ctx context.Context, t domain.Team) (domain.Team, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	_, err := q.db.ExecContext(ctx,
		"INSERT INTO teams (id, name, type, color, description) VALUES (?, ?, ?, ?, ?)",
		t.ID, t.Name, t.Type, t.Color, t.Description)
	if err != nil {
		return domain.Team{}, fmt.Errorf("creating team: %w", err)
	}
	return t, nil
}

// AddTeamMember records a user's membership of a team.
func (q *Queries) AddTeamMember(ctx context.Context, userID, teamID, role string) error {
	_, err := q.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO team_members (user_id, team_id, role) VALUES (?, ?, ?)", userID, teamID, role)
	if err != nil {
		return fmt.Errorf("adding member %s to team %s: %w", userID, teamID, err)
	}
	return nil
}

// ListUsers returns all users ordered by name.
func (q *Queries) ListUsers(ctx context.Context) ([]domain.User, error) {
	users := []domain.User{}
	if err := sqlx.SelectContext(ctx, q.db, &users,
		"SELECT id, name, email, image, role FROM users ORDER BY name"); err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return users, nil
}

// FindUser loads one user.
func (q *Queries) FindUser(ctx context.Context, id string) (domain.User, error) {
	var u domain.User
	if err := sqlx.GetContext(ctx, q.db, &u,
		"SELECT id, name, email, image, role FROM users WHERE id = ?", id); err != nil {
		return domain.User{}, notFound(err, "user", id)
	}
	return u, nil
}

// InsertUser stores a user.
func (q *Queries) InsertUser(ctx context.Context, u domain.User) (domain.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = "MEMBER"
	}
	_, err := q.db.ExecContext(ctx,
		"INSERT INTO users (id, name, email, image, role, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		u.ID, u.Name, strings.ToLower(u.Email), u.Image, u.Role, q.now())
	if err != nil {
		return domain.User{}, fmt.Errorf("creating user: %w", err)
	}
	return u, nil
}

// RenameUser changes the display name of a user.
func (q *Queries) RenameUser(ctx context.Context, id, name string) (domain.User, error) {
	res, err := q.db.ExecContext(ctx, "UPDATE users SET name = ? WHERE id = ?", name, id)
	if err != nil {
		return domain.User{}, fmt.Errorf("renaming user %s: %w", id, err)
	}
	if err := expectOne(res, "user", id); err != nil {
		return domain.User{}, err
	}
	return q.FindUser(ctx, id)
}

// AssigneeProjects lists the projects holding a task assigned to userID.
func (q *Queries) AssigneeProjects(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := sqlx.SelectContext(ctx, q.db, &ids,
		"SELECT DISTINCT project_id FROM tasks WHERE assignee_id = ? ORDER BY project_id", userID)
	if err != nil {
		return nil, fmt.Errorf("listing projects of %s: %w", userID, err)
	}
	return ids, nil
}
