package envelope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplyAndErrorReferenceOriginal(t *testing.T) {
	ping := New(ActionPing)
	require.NotEmpty(t, ping.ID)

	pong := NewReply(ping, ActionPong)
	assert.Equal(t, ping.ID, pong.ReplyTo)
	assert.NotEqual(t, ping.ID, pong.ID)

	e := NewError(ping, 400, "bad")
	assert.Equal(t, ActionError, e.Action)
	assert.Equal(t, &ErrorPayload{Code: 400, Message: "bad"}, e.Error)
}

func TestUnmarshal(t *testing.T) {
	env, err := Unmarshal([]byte(`{"id":"x","action":"ping"}`))
	require.NoError(t, err)
	assert.Equal(t, ActionPing, env.Action)

	_, err = Unmarshal([]byte("nope"))
	assert.Error(t, err)
}
