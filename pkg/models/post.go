package models

import "time"

type Post struct {
	ID          int        `json:"id"`
	AuthorID    int        `json:"author_id"`
	Title       string     `json:"title"`
	Summary     string     `json:"summary"`
	Published   bool       `json:"published"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

func (p Post) OwnerID() int { return p.AuthorID }

type CreatePostRequest struct {
	Title     string `json:"title"`
	Summary   string `json:"summary"`
	Published bool   `json:"published"`
}

type Comment struct {
	ID        int       `json:"id"`
	PostID    int       `json:"post_id"`
	UserID    int       `json:"user_id"`
	ParentID  *int      `json:"parent_id,omitempty"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func (c Comment) OwnerID() int { return c.UserID }

type CreateCommentRequest struct {
	Content  string `json:"content"`
	ParentID *int   `json:"parent_id"`
}

// CommentView is a comment as displayed: top-level entries carry their
// flattened replies, replies carry none.
type CommentView struct {
	Comment
	AuthorName string        `json:"author_name"`
	Replies    []CommentView `json:"replies,omitempty"`
}

type Like struct {
	PostID    int       `json:"post_id"`
	UserID    int       `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

type Share struct {
	ID        int       `json:"id"`
	PostID    int       `json:"post_id"`
	UserID    int       `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

type LikeResult struct {
	Liked     bool `json:"liked"`
	LikeCount int  `json:"like_count"`
}

type ShareResult struct {
	ShareID    int `json:"share_id"`
	ShareCount int `json:"share_count"`
}

type PostStats struct {
	PostID       int `json:"post_id"`
	LikeCount    int `json:"like_count"`
	ShareCount   int `json:"share_count"`
	CommentCount int `json:"comment_count"`
}
