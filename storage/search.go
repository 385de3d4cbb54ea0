package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"prism-board/domain"
)

const (
	searchProjectLimit = 5
	searchTaskLimit    = 10
)

// Search matches project names and task titles case-insensitively.
// Projects come first.
func (q *Queries) Search(ctx context.Context, term string) ([]domain.SearchResult, error) {
	term = strings.TrimSpace(term)
	results := []domain.SearchResult{}
	if term == "" {
		return results, nil
	}
	pattern := "%" + escapeLike(strings.ToLower(term)) + "%"

	var projects []struct {
		ID   string `db:"id"`
		Name string `db:"name"`
	}
	err := sqlx.SelectContext(ctx, q.db, &projects,
		`SELECT id, name FROM projects WHERE lower(name) LIKE ? ESCAPE '\' ORDER BY name LIMIT ?`,
		pattern, searchProjectLimit)
	if err != nil {
		return nil, fmt.Errorf("searching projects: %w", err)
	}
	for _, p := range projects {
		results = append(results, domain.SearchResult{Type: "project", ID: p.ID, Title: p.Name})
	}

	var tasks []struct {
		ID        string `db:"id"`
		Title     string `db:"title"`
		ProjectID string `db:"project_id"`
	}
	err = sqlx.SelectContext(ctx, q.db, &tasks,
		`SELECT id, title, project_id FROM tasks WHERE lower(title) LIKE ? ESCAPE '\' ORDER BY title LIMIT ?`,
		pattern, searchTaskLimit)
	if err != nil {
		return nil, fmt.Errorf("searching tasks: %w", err)
	}
	for _, t := range tasks {
		results = append(results, domain.SearchResult{Type: "task", ID: t.ID, Title: t.Title, ProjectID: t.ProjectID})
	}
	return results, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
