package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"prism-board/domain"
)

// AppendActivity stores one activity entry. Entries are never updated.
func (q *Queries) AppendActivity(ctx context.Context, e domain.ActivityLogEntry) (domain.ActivityLogEntry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = q.now()
	}
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO activity_logs (id, action, field, old_value, new_value, task_id, user_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Action, e.Field, e.OldValue, e.NewValue, e.TaskID, e.UserID, e.CreatedAt)
	if err != nil {
		return domain.ActivityLogEntry{}, fmt.Errorf("appending activity: %w", err)
	}
	return e, nil
}

// TaskActivity returns the entries of one task in insertion order.
func (q *Queries) TaskActivity(ctx context.Context, taskID string) ([]domain.ActivityLogEntry, error) {
	var out []domain.ActivityLogEntry
	err := sqlx.SelectContext(ctx, q.db, &out, `
		SELECT id, action, field, old_value, new_value, task_id, user_id, created_at
		FROM activity_logs WHERE task_id = ?
		ORDER BY created_at ASC, rowid ASC`, taskID)
	if err != nil {
		return nil, fmt.Errorf("listing activity of task %s: %w", taskID, err)
	}
	return out, nil
}

// RecentActivity returns the newest entries across all tasks.
func (q *Queries) RecentActivity(ctx context.Context, limit int) ([]domain.ActivityView, error) {
	var out []domain.ActivityView
	err := sqlx.SelectContext(ctx, q.db, &out, `
		SELECT a.id, a.action, a.field, COALESCE(u.name, '') AS user_name,
			t.title AS task_title, a.created_at
		FROM activity_logs a
		LEFT JOIN users u ON u.id = a.user_id
		LEFT JOIN tasks t ON t.id = a.task_id
		ORDER BY a.created_at DESC, a.rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing recent activity: %w", err)
	}
	return out, nil
}
