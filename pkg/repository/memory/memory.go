// Package memory holds map-backed implementations of the repository
// interfaces, used by tests and by the "memory" storage mode.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"pulse/pkg/models"
	"pulse/pkg/repository"
)

type likeKey struct {
	postID int
	userID int
}

// Store implements SocialRepository, NotificationRepository and
// UserRepository over one lock so cascades stay consistent.
type Store struct {
	mu sync.RWMutex

	users         map[int]models.User
	posts         map[int]models.Post
	comments      map[int]models.Comment
	likes         map[likeKey]time.Time
	shares        map[int]models.Share
	notifications map[int]models.Notification

	lastID int
	lastTS time.Time
}

func New() *Store {
	return &Store{
		users:         make(map[int]models.User),
		posts:         make(map[int]models.Post),
		comments:      make(map[int]models.Comment),
		likes:         make(map[likeKey]time.Time),
		shares:        make(map[int]models.Share),
		notifications: make(map[int]models.Notification),
	}
}

// Social, Notifications and Users expose the store through the narrow
// repository interfaces.
func (s *Store) Social() repository.SocialRepository              { return socialStore{s} }
func (s *Store) Notifications() repository.NotificationRepository { return notificationStore{s} }
func (s *Store) Users() repository.UserRepository                 { return userStore{s} }

// PutUser inserts or replaces a user row. Identity lives outside this
// service, so this is only used for seeding.
func (s *Store) PutUser(u models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now()
	}
	s.users[u.ID] = u
	if u.ID > s.lastID {
		s.lastID = u.ID
	}
}

// nextID and now must be called with mu held.
func (s *Store) nextID() int {
	s.lastID++
	return s.lastID
}

// now never returns the same instant twice so creation order is total.
func (s *Store) now() time.Time {
	t := time.Now().UTC()
	if !t.After(s.lastTS) {
		t = s.lastTS.Add(time.Microsecond)
	}
	s.lastTS = t
	return t
}

type socialStore struct{ s *Store }

func (r socialStore) CreatePost(_ context.Context, p models.Post) (models.Post, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	p.ID = s.nextID()
	p.CreatedAt = s.now()
	p.UpdatedAt = p.CreatedAt
	p.PublishedAt = nil
	if p.Published {
		at := p.CreatedAt
		p.PublishedAt = &at
	}
	s.posts[p.ID] = p
	return p, nil
}

func (r socialStore) GetPost(_ context.Context, postID int) (models.Post, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.posts[postID]
	if !ok {
		return models.Post{}, repository.ErrNotFound
	}
	return p, nil
}

func (r socialStore) DeletePost(_ context.Context, postID int) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[postID]; !ok {
		return repository.ErrNotFound
	}
	delete(s.posts, postID)
	for id, c := range s.comments {
		if c.PostID == postID {
			delete(s.comments, id)
		}
	}
	for k := range s.likes {
		if k.postID == postID {
			delete(s.likes, k)
		}
	}
	for id, sh := range s.shares {
		if sh.PostID == postID {
			delete(s.shares, id)
		}
	}
	return nil
}

func (r socialStore) InsertLike(_ context.Context, postID, userID int) (bool, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[postID]; !ok {
		return false, repository.ErrNotFound
	}
	k := likeKey{postID, userID}
	if _, exists := s.likes[k]; exists {
		return false, nil
	}
	s.likes[k] = s.now()
	return true, nil
}

func (r socialStore) DeleteLike(_ context.Context, postID, userID int) (bool, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	k := likeKey{postID, userID}
	if _, exists := s.likes[k]; !exists {
		return false, nil
	}
	delete(s.likes, k)
	return true, nil
}

func (r socialStore) CountLikes(_ context.Context, postID int) (int, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for k := range s.likes {
		if k.postID == postID {
			n++
		}
	}
	return n, nil
}

func (r socialStore) CreateShare(_ context.Context, postID, userID int) (models.Share, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[postID]; !ok {
		return models.Share{}, repository.ErrNotFound
	}
	sh := models.Share{ID: s.nextID(), PostID: postID, UserID: userID, CreatedAt: s.now()}
	s.shares[sh.ID] = sh
	return sh, nil
}

func (r socialStore) CountShares(_ context.Context, postID int) (int, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, sh := range s.shares {
		if sh.PostID == postID {
			n++
		}
	}
	return n, nil
}

func (r socialStore) CreateComment(_ context.Context, c models.Comment) (models.Comment, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[c.PostID]; !ok {
		return models.Comment{}, repository.ErrNotFound
	}
	if c.ParentID != nil {
		if _, ok := s.comments[*c.ParentID]; !ok {
			return models.Comment{}, repository.ErrNotFound
		}
		pid := *c.ParentID
		c.ParentID = &pid
	}
	c.ID = s.nextID()
	c.CreatedAt = s.now()
	s.comments[c.ID] = c
	return c, nil
}

func (r socialStore) GetComment(_ context.Context, commentID int) (models.Comment, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.comments[commentID]
	if !ok {
		return models.Comment{}, repository.ErrNotFound
	}
	return c, nil
}

func (r socialStore) DeleteComment(_ context.Context, commentID int) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.comments[commentID]; !ok {
		return repository.ErrNotFound
	}

	children := make(map[int][]int)
	for id, c := range s.comments {
		if c.ParentID != nil {
			children[*c.ParentID] = append(children[*c.ParentID], id)
		}
	}

	queue := []int{commentID}
	seen := map[int]bool{commentID: true}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		delete(s.comments, id)
		for _, child := range children[id] {
			if !seen[child] {
				seen[child] = true
				queue = append(queue, child)
			}
		}
	}
	return nil
}

func (r socialStore) ListComments(_ context.Context, postID int) ([]models.Comment, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.Comment{}
	for _, c := range s.comments {
		if c.PostID == postID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r socialStore) CountComments(_ context.Context, postID int) (int, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, c := range s.comments {
		if c.PostID == postID {
			n++
		}
	}
	return n, nil
}

type notificationStore struct{ s *Store }

func (r notificationStore) Create(_ context.Context, n models.Notification) (models.Notification, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	n.ID = s.nextID()
	n.CreatedAt = s.now()
	n.Read = false
	s.notifications[n.ID] = n
	return n, nil
}

func (r notificationStore) ListForUser(_ context.Context, userID, limit, offset int) ([]models.Notification, error) {
	return r.list(func(n models.Notification) bool { return n.UserID == userID }, limit, offset), nil
}

func (r notificationStore) ListAll(_ context.Context, limit, offset int) ([]models.Notification, error) {
	return r.list(func(models.Notification) bool { return true }, limit, offset), nil
}

func (r notificationStore) list(keep func(models.Notification) bool, limit, offset int) []models.Notification {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := []models.Notification{}
	for _, n := range s.notifications {
		if keep(n) {
			all = append(all, n)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	if offset >= len(all) {
		return []models.Notification{}
	}
	all = all[offset:]
	if limit < len(all) {
		all = all[:limit]
	}
	return all
}

func (r notificationStore) MarkRead(_ context.Context, id, userID int) (bool, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notifications[id]
	if !ok || n.UserID != userID {
		return false, nil
	}
	n.Read = true
	s.notifications[id] = n
	return true, nil
}

type userStore struct{ s *Store }

func (r userStore) DisplayNames(_ context.Context, ids []int) (map[int]string, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make(map[int]string, len(ids))
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			names[id] = u.DisplayName()
		}
	}
	return names, nil
}
