package broker

import (
	"context"
	"errors"
	"testing"
	"time"

	"pulse/pkg/apperr"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBroker(t *testing.T) (*Broker, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb, err := NewClient("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { rdb.Close() })
	return New(rdb), rdb
}

func next(t *testing.T, sub *Subscription) string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	payload, err := sub.Next(ctx)
	require.NoError(t, err)
	return payload
}

func TestTopic(t *testing.T) {
	assert.Equal(t, "notifications:42", Topic(42))
}

func TestDeliveryContainment(t *testing.T) {
	b, _ := newBroker(t)
	ctx := context.Background()

	require.NoError(t, b.Publish(ctx, 1, []byte("before")))

	sub, err := b.Subscribe(ctx, 1)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	require.NoError(t, b.Publish(ctx, 2, []byte("other-user")))
	for _, p := range []string{"a", "b", "c"} {
		require.NoError(t, b.Publish(ctx, 1, []byte(p)))
	}

	assert.Equal(t, "a", next(t, sub))
	assert.Equal(t, "b", next(t, sub))
	assert.Equal(t, "c", next(t, sub))

	quiet, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	_, err = sub.Next(quiet)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	b, rdb := newBroker(t)
	ctx := context.Background()

	sub, err := b.Subscribe(ctx, 5)
	require.NoError(t, err)

	require.NoError(t, sub.Unsubscribe())
	require.NoError(t, sub.Unsubscribe())

	require.NoError(t, b.Publish(ctx, 5, []byte("late")))
	_, err = sub.Next(ctx)
	assert.ErrorIs(t, err, ErrClosed)

	sub2, err := b.Subscribe(ctx, 5)
	require.NoError(t, err)
	require.NoError(t, rdb.Close())
	assert.NoError(t, sub2.Unsubscribe())
}

func TestPublishWithoutSubscriber(t *testing.T) {
	b, _ := newBroker(t)
	assert.NoError(t, b.Publish(context.Background(), 9, []byte("nobody")))
}

func TestMediumFailureIsDependencyError(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb, err := NewClient("redis://" + mr.Addr())
	require.NoError(t, err)
	defer rdb.Close()
	b := New(rdb)

	mr.Close()

	err = b.Publish(context.Background(), 1, []byte("x"))
	assert.True(t, errors.Is(err, apperr.ErrDependency), "got %v", err)

	_, err = b.Subscribe(context.Background(), 1)
	assert.True(t, errors.Is(err, apperr.ErrDependency), "got %v", err)
}

func TestNewClientRejectsBadURL(t *testing.T) {
	_, err := NewClient("://nope")
	assert.Error(t, err)
}
