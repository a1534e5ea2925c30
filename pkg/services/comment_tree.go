package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"pulse/pkg/cache"
	"pulse/pkg/models"
	"pulse/pkg/repository"

	"github.com/graph-gophers/dataloader/v7"
)

const (
	commentTreeTTL = 30 * time.Second
	unknownAuthor  = "Unknown"
)

type CommentTree struct {
	repo  repository.SocialRepository
	users repository.UserRepository
	redis *cache.Redis
}

func NewCommentTree(repo repository.SocialRepository, users repository.UserRepository, redis *cache.Redis) *CommentTree {
	return &CommentTree{repo: repo, users: users, redis: redis}
}

// Comments returns the post's comments as a two-level view: top-level
// entries newest first, each carrying all of its descendants oldest first.
func (t *CommentTree) Comments(ctx context.Context, postID int) ([]models.CommentView, error) {
	if _, err := t.repo.GetPost(ctx, postID); err != nil {
		return nil, lookup(err, "post not found")
	}

	gen, cacheable := t.redis.Generation(ctx, commentsGenKey(postID))
	var cached []models.CommentView
	if cacheable && t.redis.Get(ctx, commentsKey(postID, gen), &cached) {
		return cached, nil
	}

	rows, err := t.repo.ListComments(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}

	names := t.authorNames(ctx, rows)
	tree := BuildCommentTree(rows, names)

	if cacheable {
		t.redis.Set(ctx, commentsKey(postID, gen), tree, commentTreeTTL)
	}
	return tree, nil
}

// authorNames resolves every distinct author in one batch.
func (t *CommentTree) authorNames(ctx context.Context, rows []models.Comment) map[int]string {
	names := make(map[int]string)
	if len(rows) == 0 || t.users == nil {
		return names
	}

	var ids []int
	seen := make(map[int]bool)
	for _, c := range rows {
		if !seen[c.UserID] {
			seen[c.UserID] = true
			ids = append(ids, c.UserID)
		}
	}

	loader := dataloader.NewBatchedLoader(
		func(ctx context.Context, keys []int) []*dataloader.Result[string] {
			results := make([]*dataloader.Result[string], len(keys))
			found, err := t.users.DisplayNames(ctx, keys)
			for i, id := range keys {
				if err != nil {
					results[i] = &dataloader.Result[string]{Error: err}
					continue
				}
				name, ok := found[id]
				if !ok || name == "" {
					name = unknownAuthor
				}
				results[i] = &dataloader.Result[string]{Data: name}
			}
			return results
		},
		dataloader.WithWait[int, string](time.Millisecond),
		dataloader.WithBatchCapacity[int, string](500),
	)

	values, errs := loader.LoadMany(ctx, ids)()
	for i, id := range ids {
		if i < len(errs) && errs[i] != nil {
			continue
		}
		if i < len(values) {
			names[id] = values[i]
		}
	}
	return names
}

func byCreated(list []models.Comment, newestFirst bool) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.CreatedAt.Equal(b.CreatedAt) {
			if newestFirst {
				return a.ID > b.ID
			}
			return a.ID < b.ID
		}
		if newestFirst {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
}

// BuildCommentTree flattens rows into the two-level view. Every row appears
// exactly once. Rows whose parent is missing, or that sit on a parent cycle
// with no path to a top-level comment, are promoted to top level.
func BuildCommentTree(rows []models.Comment, names map[int]string) []models.CommentView {
	byID := make(map[int]models.Comment, len(rows))
	for _, c := range rows {
		byID[c.ID] = c
	}

	children := make(map[int][]models.Comment)
	var roots []models.Comment
	for _, c := range rows {
		if c.ParentID == nil {
			roots = append(roots, c)
			continue
		}
		if _, ok := byID[*c.ParentID]; !ok || *c.ParentID == c.ID {
			roots = append(roots, c)
			continue
		}
		children[*c.ParentID] = append(children[*c.ParentID], c)
	}

	visited := make(map[int]bool, len(rows))
	collect := func(root models.Comment) []models.Comment {
		visited[root.ID] = true
		var out []models.Comment
		queue := []int{root.ID}
		for len(queue) > 0 {
			id := queue[0]
			queue = queue[1:]
			for _, child := range children[id] {
				if visited[child.ID] {
					continue
				}
				visited[child.ID] = true
				out = append(out, child)
				queue = append(queue, child.ID)
			}
		}
		byCreated(out, false)
		return out
	}

	type group struct {
		root    models.Comment
		replies []models.Comment
	}
	var groups []group
	for _, r := range roots {
		groups = append(groups, group{root: r, replies: collect(r)})
	}

	// Whatever is left only points into a cycle.
	var stranded []models.Comment
	for _, c := range rows {
		if !visited[c.ID] {
			stranded = append(stranded, c)
		}
	}
	byCreated(stranded, false)
	for _, c := range stranded {
		if visited[c.ID] {
			continue
		}
		groups = append(groups, group{root: c, replies: collect(c)})
	}

	sort.SliceStable(groups, func(i, j int) bool {
		a, b := groups[i].root, groups[j].root
		if a.CreatedAt.Equal(b.CreatedAt) {
			return a.ID > b.ID
		}
		return a.CreatedAt.After(b.CreatedAt)
	})

	view := func(c models.Comment) models.CommentView {
		name, ok := names[c.UserID]
		if !ok || name == "" {
			name = unknownAuthor
		}
		return models.CommentView{Comment: c, AuthorName: name}
	}

	tree := make([]models.CommentView, 0, len(groups))
	for _, g := range groups {
		top := view(g.root)
		for _, r := range g.replies {
			top.Replies = append(top.Replies, view(r))
		}
		tree = append(tree, top)
	}
	return tree
}
