package models

import "time"

type NotificationType string

const (
	NotificationLike    NotificationType = "like"
	NotificationShare   NotificationType = "share"
	NotificationComment NotificationType = "comment"
)

type Notification struct {
	ID        int              `json:"id"`
	UserID    int              `json:"user_id"`
	ActorID   *int             `json:"actor_id,omitempty"`
	Type      NotificationType `json:"type"`
	Content   string           `json:"content"`
	PostID    *int             `json:"post_id,omitempty"`
	CommentID *int             `json:"comment_id,omitempty"`
	Read      bool             `json:"read"`
	CreatedAt time.Time        `json:"created_at"`
}
