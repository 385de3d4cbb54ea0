package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"prism-board/domain"
)

// ListNotifications returns the newest notifications of a user.
func (q *Queries) ListNotifications(ctx context.Context, userID string, limit int) ([]domain.Notification, error) {
	out := []domain.Notification{}
	err := sqlx.SelectContext(ctx, q.db, &out, `
		SELECT id, user_id, title, message, link, read, created_at
		FROM notifications WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}
	return out, nil
}

// InsertNotification stores a notification.
func (q *Queries) InsertNotification(ctx context.Context, n domain.Notification) (domain.Notification, error) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = q.now()
	}
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO notifications (id, user_id, title, message, link, read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.UserID, n.Title, n.Message, n.Link, n.Read, n.CreatedAt)
	if err != nil {
		return domain.Notification{}, fmt.Errorf("creating notification: %w", err)
	}
	return n, nil
}

// MarkNotificationsRead flags the given notifications of userID as read.
// Ids belonging to other users are ignored.
func (q *Queries) MarkNotificationsRead(ctx context.Context, userID string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query, args, err := sqlx.In("UPDATE notifications SET read = 1 WHERE user_id = ? AND id IN (?)", userID, ids)
	if err != nil {
		return 0, fmt.Errorf("building notification update: %w", err)
	}
	res, err := q.db.ExecContext(ctx, q.db.Rebind(query), args...)
	if err != nil {
		return 0, fmt.Errorf("marking notifications read: %w", err)
	}
	return res.RowsAffected()
}
