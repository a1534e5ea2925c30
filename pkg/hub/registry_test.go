package hub

import (
	"testing"

	"pulse/pkg/auth"

	"github.com/stretchr/testify/assert"
)

func TestRegistryTracksSessionsPerUser(t *testing.T) {
	r := NewRegistry()
	a1 := &Session{Identity: auth.Identity{ID: 1}}
	a2 := &Session{Identity: auth.Identity{ID: 1}}
	b := &Session{Identity: auth.Identity{ID: 2}}

	r.Add(a1)
	r.Add(a2)
	r.Add(b)
	r.Add(a1)

	assert.Equal(t, 3, r.Count())
	assert.Equal(t, 2, r.UserCount())
	assert.ElementsMatch(t, []*Session{a1, a2}, r.Sessions(1))

	assert.True(t, r.Remove(a1))
	assert.False(t, r.Remove(a1))
	assert.Equal(t, []*Session{a2}, r.Sessions(1))

	assert.True(t, r.Remove(a2))
	assert.Empty(t, r.Sessions(1))
	assert.Equal(t, 1, r.UserCount())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "subscribed", StateSubscribed.String())
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "unknown", State(42).String())
}
