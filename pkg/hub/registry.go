package hub

import "sync"

// Registry tracks live sessions by user. A user may hold several sessions at
// once, one per open socket.
type Registry struct {
	mu     sync.RWMutex
	byUser map[int]map[*Session]struct{}
	total  int
}

func NewRegistry() *Registry {
	return &Registry{byUser: make(map[int]map[*Session]struct{})}
}

func (r *Registry) Add(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.byUser[s.Identity.ID]
	if !ok {
		set = make(map[*Session]struct{})
		r.byUser[s.Identity.ID] = set
	}
	if _, dup := set[s]; dup {
		return
	}
	set[s] = struct{}{}
	r.total++
}

// Remove reports whether s was registered.
func (r *Registry) Remove(s *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.byUser[s.Identity.ID]
	if !ok {
		return false
	}
	if _, ok := set[s]; !ok {
		return false
	}
	delete(set, s)
	r.total--
	if len(set) == 0 {
		delete(r.byUser, s.Identity.ID)
	}
	return true
}

func (r *Registry) Sessions(userID int) []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.byUser[userID]
	out := make([]*Session, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	return out
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.total
}

func (r *Registry) UserCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}
