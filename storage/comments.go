package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"prism-board/domain"
)

type commentRow struct {
	domain.Comment
	UserName  *string `db:"user_name"`
	UserImage *string `db:"user_image"`
}

func (r commentRow) view() domain.CommentView {
	v := domain.CommentView{Comment: r.Comment, User: domain.UserRef{ID: r.UserID, Image: r.UserImage}}
	if r.UserName != nil {
		v.User.Name = *r.UserName
	}
	return v
}

// ListComments returns the comments of a task, oldest first.
func (q *Queries) ListComments(ctx context.Context, taskID string) ([]domain.CommentView, error) {
	var rows []commentRow
	err := sqlx.SelectContext(ctx, q.db, &rows, `
		SELECT c.id, c.content, c.task_id, c.user_id, c.created_at,
			u.name AS user_name, u.image AS user_image
		FROM comments c LEFT JOIN users u ON u.id = c.user_id
		WHERE c.task_id = ?
		ORDER BY c.created_at ASC`, taskID)
	if err != nil {
		return nil, fmt.Errorf("listing comments of task %s: %w", taskID, err)
	}
	out := make([]domain.CommentView, len(rows))
	for i, r := range rows {
		out[i] = r.view()
	}
	return out, nil
}

// InsertComment stores a comment and returns it with its author attached.
func (q *Queries) InsertComment(ctx context.Context, c domain.Comment) (domain.CommentView, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = q.now()
	}
	_, err := q.db.ExecContext(ctx,
		"INSERT INTO comments (id, content, task_id, user_id, created_at) VALUES (?, ?, ?, ?, ?)",
		c.ID, c.Content, c.TaskID, c.UserID, c.CreatedAt)
	if err != nil {
		return domain.CommentView{}, fmt.Errorf("creating comment: %w", err)
	}

	view := domain.CommentView{Comment: c, User: domain.UserRef{ID: c.UserID}}
	var users []domain.UserRef
	if err := sqlx.SelectContext(ctx, q.db, &users, "SELECT id, name, image FROM users WHERE id = ?", c.UserID); err != nil {
		return domain.CommentView{}, fmt.Errorf("loading comment author: %w", err)
	}
	if len(users) == 1 {
		view.User = users[0]
	}
	return view, nil
}
