package notify

import (
	"testing"

	"pulse/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildLike(t *testing.T) {
	n, ok := Build(Event{Type: models.NotificationLike, ActorID: 2, ActorName: "Bia", RecipientID: 1, PostID: 10})
	require.True(t, ok)

	assert.Equal(t, 1, n.UserID)
	require.NotNil(t, n.ActorID)
	assert.Equal(t, 2, *n.ActorID)
	require.NotNil(t, n.PostID)
	assert.Equal(t, 10, *n.PostID)
	assert.Nil(t, n.CommentID)
	assert.Equal(t, "Bia liked your post", n.Content)
	assert.False(t, n.Read)
}

func TestBuildSuppressesSelfNotification(t *testing.T) {
	for _, typ := range []models.NotificationType{models.NotificationLike, models.NotificationShare, models.NotificationComment} {
		_, ok := Build(Event{Type: typ, ActorID: 1, RecipientID: 1, PostID: 10})
		assert.False(t, ok, typ)
	}
}

func TestBuildComment(t *testing.T) {
	cid := 55
	n, ok := Build(Event{Type: models.NotificationComment, ActorID: 3, ActorName: "Caio", RecipientID: 1, PostID: 10, CommentID: &cid})
	require.True(t, ok)

	require.NotNil(t, n.CommentID)
	assert.Equal(t, 55, *n.CommentID)
	assert.Equal(t, "Caio commented on your post", n.Content)

	cid = 99
	assert.Equal(t, 55, *n.CommentID, "record must not alias the event")
}

func TestBuildShareAndFallbackName(t *testing.T) {
	n, ok := Build(Event{Type: models.NotificationShare, ActorID: 3, ActorName: "  ", RecipientID: 1, PostID: 10})
	require.True(t, ok)
	assert.Equal(t, "Someone shared your post", n.Content)

	_, ok = Build(Event{Type: "follow", ActorID: 3, RecipientID: 1})
	assert.False(t, ok)
}
