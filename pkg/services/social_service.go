package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"pulse/pkg/apperr"
	"pulse/pkg/auth"
	"pulse/pkg/cache"
	"pulse/pkg/models"
	"pulse/pkg/notify"
	"pulse/pkg/repository"

	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	MaxCommentLength = 5000
	MaxTitleLength   = 255

	likeCounterTTL = 5 * time.Minute
	generationTTL  = time.Hour
)

// Notifier receives engagement events after the triggering write succeeded.
// It must not fail the caller; delivery problems are its own to log.
type Notifier interface {
	Notify(ctx context.Context, ev notify.Event)
}

type SocialService struct {
	repo     repository.SocialRepository
	notifier Notifier
	redis    *cache.Redis
}

func NewSocialService(repo repository.SocialRepository, notifier Notifier, redis *cache.Redis) *SocialService {
	return &SocialService{repo: repo, notifier: notifier, redis: redis}
}

// Cached views are keyed by a per-post generation. Writers bump the
// generation, so a reader that listed rows before a write can only ever
// store its result under a generation nobody reads anymore.
func commentsGenKey(postID int) string { return fmt.Sprintf("social:comments:%d:gen", postID) }
func likesGenKey(postID int) string    { return fmt.Sprintf("social:likes:%d:gen", postID) }

func commentsKey(postID int, gen int64) string {
	return fmt.Sprintf("social:comments:%d:g%d", postID, gen)
}

func likesKey(postID int, gen int64) string {
	return fmt.Sprintf("social:likes:%d:g%d", postID, gen)
}

// lookup translates repository misses into a NotFound with msg. A dangling
// user reference means the caller's account is gone.
func lookup(err error, msg string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperr.NotFound(msg)
	case errors.Is(err, repository.ErrUnknownUser):
		return apperr.Unauthenticated("unknown user")
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func (s *SocialService) post(ctx context.Context, postID int) (models.Post, error) {
	p, err := s.repo.GetPost(ctx, postID)
	if err != nil {
		return models.Post{}, lookup(err, "post not found")
	}
	return p, nil
}

func (s *SocialService) emit(ctx context.Context, ev notify.Event) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, ev)
}

func (s *SocialService) CreatePost(ctx context.Context, caller auth.Identity, req models.CreatePostRequest) (models.Post, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return models.Post{}, apperr.Validation("title is required")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return models.Post{}, apperr.Validation(fmt.Sprintf("title exceeds %d characters", MaxTitleLength))
	}

	p, err := s.repo.CreatePost(ctx, models.Post{
		AuthorID:  caller.ID,
		Title:     title,
		Summary:   strings.TrimSpace(req.Summary),
		Published: req.Published,
	})
	if err != nil {
		return models.Post{}, lookup(err, "create post")
	}
	return p, nil
}

// ToggleLike flips the caller's like on a post. Only the transition to liked
// notifies the author.
func (s *SocialService) ToggleLike(ctx context.Context, postID int, caller auth.Identity) (models.LikeResult, error) {
	post, err := s.post(ctx, postID)
	if err != nil {
		return models.LikeResult{}, err
	}

	removed, err := s.repo.DeleteLike(ctx, postID, caller.ID)
	if err != nil {
		return models.LikeResult{}, fmt.Errorf("unlike: %w", err)
	}

	liked := !removed
	inserted := false
	if liked {
		inserted, err = s.repo.InsertLike(ctx, postID, caller.ID)
		if err != nil {
			return models.LikeResult{}, lookup(err, "post not found")
		}
	}

	s.redis.Bump(ctx, likesGenKey(postID), generationTTL)

	count, err := s.repo.CountLikes(ctx, postID)
	if err != nil {
		return models.LikeResult{}, fmt.Errorf("count likes: %w", err)
	}

	if inserted {
		s.emit(ctx, notify.Event{
			Type:        models.NotificationLike,
			ActorID:     caller.ID,
			ActorName:   caller.Name,
			RecipientID: post.AuthorID,
			PostID:      postID,
		})
	}

	return models.LikeResult{Liked: liked, LikeCount: count}, nil
}

func (s *SocialService) Share(ctx context.Context, postID int, caller auth.Identity) (models.ShareResult, error) {
	post, err := s.post(ctx, postID)
	if err != nil {
		return models.ShareResult{}, err
	}

	share, err := s.repo.CreateShare(ctx, postID, caller.ID)
	if err != nil {
		return models.ShareResult{}, lookup(err, "post not found")
	}

	count, err := s.repo.CountShares(ctx, postID)
	if err != nil {
		return models.ShareResult{}, fmt.Errorf("count shares: %w", err)
	}

	s.emit(ctx, notify.Event{
		Type:        models.NotificationShare,
		ActorID:     caller.ID,
		ActorName:   caller.Name,
		RecipientID: post.AuthorID,
		PostID:      postID,
	})

	return models.ShareResult{ShareID: share.ID, ShareCount: count}, nil
}

func (s *SocialService) AddComment(ctx context.Context, postID int, req models.CreateCommentRequest, caller auth.Identity) (models.Comment, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return models.Comment{}, apperr.Validation("content is required")
	}
	if utf8.RuneCountInString(content) > MaxCommentLength {
		return models.Comment{}, apperr.Validation(fmt.Sprintf("content exceeds %d characters", MaxCommentLength))
	}
	if req.ParentID != nil && *req.ParentID <= 0 {
		return models.Comment{}, apperr.Validation("invalid parent_id")
	}

	post, err := s.post(ctx, postID)
	if err != nil {
		return models.Comment{}, err
	}

	if req.ParentID != nil {
		parent, err := s.repo.GetComment(ctx, *req.ParentID)
		if err != nil {
			return models.Comment{}, lookup(err, "parent comment not found")
		}
		if parent.PostID != postID {
			return models.Comment{}, apperr.NotFound("parent comment not found")
		}
	}

	c, err := s.repo.CreateComment(ctx, models.Comment{
		PostID:   postID,
		UserID:   caller.ID,
		ParentID: req.ParentID,
		Content:  content,
	})
	if err != nil {
		return models.Comment{}, lookup(err, "post not found")
	}
	s.redis.Bump(ctx, commentsGenKey(postID), generationTTL)

	commentID := c.ID
	s.emit(ctx, notify.Event{
		Type:        models.NotificationComment,
		ActorID:     caller.ID,
		ActorName:   caller.Name,
		RecipientID: post.AuthorID,
		PostID:      postID,
		CommentID:   &commentID,
	})

	return c, nil
}

// DeleteComment removes the comment and every reply beneath it.
func (s *SocialService) DeleteComment(ctx context.Context, commentID int, caller auth.Identity) error {
	c, err := s.repo.GetComment(ctx, commentID)
	if err != nil {
		return lookup(err, "comment not found")
	}
	if err := auth.Authorize(caller, c); err != nil {
		return err
	}

	if err := s.repo.DeleteComment(ctx, commentID); err != nil {
		return lookup(err, "comment not found")
	}
	s.redis.Bump(ctx, commentsGenKey(c.PostID), generationTTL)
	log.Printf("[SOCIAL] comment %d deleted by user %d", commentID, caller.ID)
	return nil
}

func (s *SocialService) DeletePost(ctx context.Context, postID int, caller auth.Identity) error {
	post, err := s.post(ctx, postID)
	if err != nil {
		return err
	}
	if err := auth.Authorize(caller, post); err != nil {
		return err
	}

	if err := s.repo.DeletePost(ctx, postID); err != nil {
		return lookup(err, "post not found")
	}
	s.redis.Bump(ctx, commentsGenKey(postID), generationTTL)
	s.redis.Bump(ctx, likesGenKey(postID), generationTTL)
	log.Printf("[SOCIAL] post %d deleted by user %d", postID, caller.ID)
	return nil
}

func (s *SocialService) Stats(ctx context.Context, postID int) (models.PostStats, error) {
	if _, err := s.post(ctx, postID); err != nil {
		return models.PostStats{}, err
	}

	stats := models.PostStats{PostID: postID}

	gen, cacheable := s.redis.Generation(ctx, likesGenKey(postID))
	var likes wrapperspb.Int64Value
	if cacheable && s.redis.GetProto(ctx, likesKey(postID, gen), &likes) {
		stats.LikeCount = int(likes.GetValue())
	} else {
		n, err := s.repo.CountLikes(ctx, postID)
		if err != nil {
			return models.PostStats{}, fmt.Errorf("count likes: %w", err)
		}
		stats.LikeCount = n
		if cacheable {
			s.redis.SetProto(ctx, likesKey(postID, gen), wrapperspb.Int64(int64(n)), likeCounterTTL)
		}
	}

	var err error
	if stats.ShareCount, err = s.repo.CountShares(ctx, postID); err != nil {
		return models.PostStats{}, fmt.Errorf("count shares: %w", err)
	}
	if stats.CommentCount, err = s.repo.CountComments(ctx, postID); err != nil {
		return models.PostStats{}, fmt.Errorf("count comments: %w", err)
	}
	return stats, nil
}
