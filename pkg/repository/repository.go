package repository

import (
	"context"
	"errors"

	"pulse/pkg/models"
)

// ErrNotFound is returned when a lookup or a targeted mutation matches no row.
var ErrNotFound = errors.New("record not found")

// ErrUnknownUser is returned when a write references a user row that does
// not exist.
var ErrUnknownUser = errors.New("user not found")

type SocialRepository interface {
	CreatePost(ctx context.Context, p models.Post) (models.Post, error)
	GetPost(ctx context.Context, postID int) (models.Post, error)
	DeletePost(ctx context.Context, postID int) error

	// InsertLike reports false when the like already existed.
	InsertLike(ctx context.Context, postID, userID int) (bool, error)
	// DeleteLike reports false when there was nothing to remove.
	DeleteLike(ctx context.Context, postID, userID int) (bool, error)
	CountLikes(ctx context.Context, postID int) (int, error)

	CreateShare(ctx context.Context, postID, userID int) (models.Share, error)
	CountShares(ctx context.Context, postID int) (int, error)

	CreateComment(ctx context.Context, c models.Comment) (models.Comment, error)
	GetComment(ctx context.Context, commentID int) (models.Comment, error)
	// DeleteComment removes the comment and all of its descendants.
	DeleteComment(ctx context.Context, commentID int) error
	ListComments(ctx context.Context, postID int) ([]models.Comment, error)
	CountComments(ctx context.Context, postID int) (int, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, n models.Notification) (models.Notification, error)
	ListForUser(ctx context.Context, userID, limit, offset int) ([]models.Notification, error)
	ListAll(ctx context.Context, limit, offset int) ([]models.Notification, error)
	// MarkRead reports false unless the notification exists and belongs to userID.
	MarkRead(ctx context.Context, id, userID int) (bool, error)
}

type UserRepository interface {
	// DisplayNames returns names for the ids that exist; unknown ids are absent.
	DisplayNames(ctx context.Context, ids []int) (map[int]string, error)
}
