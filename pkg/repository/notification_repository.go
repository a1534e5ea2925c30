package repository

import (
	"context"
	"database/sql"

	"pulse/pkg/models"
)

type notificationRepository struct {
	db *sql.DB
}

func NewNotificationRepository(db *sql.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

const notificationColumns = `id, user_id, actor_id, type, content, post_id, comment_id, read, created_at`

func (r *notificationRepository) Create(ctx context.Context, n models.Notification) (models.Notification, error) {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO notifications (user_id, actor_id, type, content, post_id, comment_id, read)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE)
		RETURNING id, created_at
	`, n.UserID, n.ActorID, string(n.Type), n.Content, n.PostID, n.CommentID).Scan(&n.ID, &n.CreatedAt)
	n.Read = false
	return n, mapErr(err)
}

func (r *notificationRepository) ListForUser(ctx context.Context, userID, limit, offset int) ([]models.Notification, error) {
	return r.list(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
}

func (r *notificationRepository) ListAll(ctx context.Context, limit, offset int) ([]models.Notification, error) {
	return r.list(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
}

func (r *notificationRepository) list(ctx context.Context, query string, args ...interface{}) ([]models.Notification, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Notification{}
	for rows.Next() {
		var n models.Notification
		var typ string
		if err := rows.Scan(&n.ID, &n.UserID, &n.ActorID, &typ, &n.Content, &n.PostID, &n.CommentID, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		n.Type = models.NotificationType(typ)
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *notificationRepository) MarkRead(ctx context.Context, id, userID int) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2
	`, id, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
