// Package notify turns engagement events into notification records.
// It performs no I/O; callers persist and publish what it builds.
package notify

import (
	"fmt"
	"strings"
	"time"

	"pulse/pkg/models"
)

type Event struct {
	Type        models.NotificationType
	ActorID     int
	ActorName   string
	RecipientID int
	PostID      int
	CommentID   *int
}

var templates = map[models.NotificationType]string{
	models.NotificationLike:    "%s liked your post",
	models.NotificationShare:   "%s shared your post",
	models.NotificationComment: "%s commented on your post",
}

// Build returns the notification for ev, or false when none should exist:
// self-directed events and unknown types.
func Build(ev Event) (models.Notification, bool) {
	if ev.ActorID == ev.RecipientID {
		return models.Notification{}, false
	}
	tmpl, ok := templates[ev.Type]
	if !ok {
		return models.Notification{}, false
	}

	actor := strings.TrimSpace(ev.ActorName)
	if actor == "" {
		actor = "Someone"
	}

	actorID := ev.ActorID
	postID := ev.PostID
	n := models.Notification{
		UserID:    ev.RecipientID,
		ActorID:   &actorID,
		Type:      ev.Type,
		Content:   fmt.Sprintf(tmpl, actor),
		PostID:    &postID,
		Read:      false,
		CreatedAt: time.Now().UTC(),
	}
	if ev.Type == models.NotificationComment && ev.CommentID != nil {
		cid := *ev.CommentID
		n.CommentID = &cid
	}
	return n, true
}
