package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"pulse/pkg/models"

	"github.com/lib/pq"
)

type socialRepository struct {
	db *sql.DB
}

func NewSocialRepository(db *sql.DB) SocialRepository {
	return &socialRepository{db: db}
}

const foreignKeyViolation = "23503"

// mapErr folds "no row" and foreign-key violations into the repository
// sentinels. A dangling post or comment reference means the target was
// deleted concurrently; a dangling user reference is ErrUnknownUser.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == foreignKeyViolation {
		if userConstraint(pqErr.Constraint) {
			return ErrUnknownUser
		}
		return ErrNotFound
	}
	return err
}

// userConstraint reports whether a foreign key points at users. Constraint
// names follow the Postgres default of <table>_<column>_fkey.
func userConstraint(name string) bool {
	for _, col := range []string{"_user_id_fkey", "_author_id_fkey", "_actor_id_fkey"} {
		if strings.HasSuffix(name, col) {
			return true
		}
	}
	return false
}

func (r *socialRepository) CreatePost(ctx context.Context, p models.Post) (models.Post, error) {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO posts (author_id, title, summary, published, published_at)
		VALUES ($1, $2, $3, $4, CASE WHEN $4 THEN NOW() END)
		RETURNING id, created_at, updated_at, published_at
	`, p.AuthorID, p.Title, p.Summary, p.Published).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt, &p.PublishedAt)
	return p, mapErr(err)
}

func (r *socialRepository) GetPost(ctx context.Context, postID int) (models.Post, error) {
	var p models.Post
	err := r.db.QueryRowContext(ctx, `
		SELECT id, author_id, title, summary, published, created_at, updated_at, published_at
		FROM posts WHERE id = $1
	`, postID).Scan(&p.ID, &p.AuthorID, &p.Title, &p.Summary, &p.Published, &p.CreatedAt, &p.UpdatedAt, &p.PublishedAt)
	return p, mapErr(err)
}

func (r *socialRepository) DeletePost(ctx context.Context, postID int) error {
	var deletedID int
	err := r.db.QueryRowContext(ctx, `DELETE FROM posts WHERE id = $1 RETURNING id`, postID).Scan(&deletedID)
	return mapErr(err)
}

func (r *socialRepository) InsertLike(ctx context.Context, postID, userID int) (bool, error) {
	var dummy int
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO post_likes (post_id, user_id) VALUES ($1, $2)
		ON CONFLICT (post_id, user_id) DO NOTHING
		RETURNING 1
	`, postID, userID).Scan(&dummy)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, mapErr(err)
}

func (r *socialRepository) DeleteLike(ctx context.Context, postID, userID int) (bool, error) {
	var dummy int
	err := r.db.QueryRowContext(ctx, `
		DELETE FROM post_likes WHERE post_id = $1 AND user_id = $2
		RETURNING 1
	`, postID, userID).Scan(&dummy)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func (r *socialRepository) count(ctx context.Context, query string, postID int) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, query, postID).Scan(&n)
	return n, err
}

func (r *socialRepository) CountLikes(ctx context.Context, postID int) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM post_likes WHERE post_id = $1`, postID)
}

func (r *socialRepository) CreateShare(ctx context.Context, postID, userID int) (models.Share, error) {
	s := models.Share{PostID: postID, UserID: userID}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO post_shares (post_id, user_id) VALUES ($1, $2)
		RETURNING id, created_at
	`, postID, userID).Scan(&s.ID, &s.CreatedAt)
	return s, mapErr(err)
}

func (r *socialRepository) CountShares(ctx context.Context, postID int) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM post_shares WHERE post_id = $1`, postID)
}

func (r *socialRepository) CreateComment(ctx context.Context, c models.Comment) (models.Comment, error) {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO comments (post_id, user_id, parent_id, content)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, c.PostID, c.UserID, c.ParentID, c.Content).Scan(&c.ID, &c.CreatedAt)
	return c, mapErr(err)
}

func (r *socialRepository) GetComment(ctx context.Context, commentID int) (models.Comment, error) {
	var c models.Comment
	err := r.db.QueryRowContext(ctx, `
		SELECT id, post_id, user_id, parent_id, content, created_at
		FROM comments WHERE id = $1
	`, commentID).Scan(&c.ID, &c.PostID, &c.UserID, &c.ParentID, &c.Content, &c.CreatedAt)
	return c, mapErr(err)
}

// DeleteComment relies on the parent_id ON DELETE CASCADE for descendants.
func (r *socialRepository) DeleteComment(ctx context.Context, commentID int) error {
	var deletedID int
	err := r.db.QueryRowContext(ctx, `DELETE FROM comments WHERE id = $1 RETURNING id`, commentID).Scan(&deletedID)
	return mapErr(err)
}

func (r *socialRepository) ListComments(ctx context.Context, postID int) ([]models.Comment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, post_id, user_id, parent_id, content, created_at
		FROM comments
		WHERE post_id = $1
		ORDER BY created_at ASC, id ASC
	`, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	comments := []models.Comment{}
	for rows.Next() {
		var c models.Comment
		if err := rows.Scan(&c.ID, &c.PostID, &c.UserID, &c.ParentID, &c.Content, &c.CreatedAt); err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

func (r *socialRepository) CountComments(ctx context.Context, postID int) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM comments WHERE post_id = $1`, postID)
}
