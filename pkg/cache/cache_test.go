package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

func newCache(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return New(client), mr
}

func TestJSONRoundTrip(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()

	type item struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}
	c.Set(ctx, "k", []item{{1, "a"}, {2, "b"}}, time.Minute)

	var got []item
	require.True(t, c.Get(ctx, "k", &got))
	assert.Equal(t, []item{{1, "a"}, {2, "b"}}, got)

	mr.FastForward(2 * time.Minute)
	assert.False(t, c.Get(ctx, "k", &got))
}

func TestProtoRoundTrip(t *testing.T) {
	c, _ := newCache(t)
	ctx := context.Background()

	c.SetProto(ctx, "likes", wrapperspb.Int64(12), time.Minute)

	var got wrapperspb.Int64Value
	require.True(t, c.GetProto(ctx, "likes", &got))
	assert.Equal(t, int64(12), got.GetValue())

	c.Del(ctx, "likes")
	assert.False(t, c.GetProto(ctx, "likes", &got))
}

func TestNilCacheIsNoop(t *testing.T) {
	var c *Redis
	ctx := context.Background()

	c.Set(ctx, "k", 1, time.Minute)
	c.Del(ctx, "k")
	var v int
	assert.False(t, c.Get(ctx, "k", &v))
	assert.False(t, c.GetProto(ctx, "k", &wrapperspb.Int64Value{}))
}

func TestGenerationBump(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()

	gen, ok := c.Generation(ctx, "gen")
	require.True(t, ok)
	assert.Equal(t, int64(0), gen)

	c.Bump(ctx, "gen", time.Hour)
	c.Bump(ctx, "gen", time.Hour)
	gen, ok = c.Generation(ctx, "gen")
	require.True(t, ok)
	assert.Equal(t, int64(2), gen)
	assert.Greater(t, mr.TTL("gen"), time.Duration(0))

	var nilCache *Redis
	nilCache.Bump(ctx, "gen", time.Hour)
	_, ok = nilCache.Generation(ctx, "gen")
	assert.False(t, ok)
}

func TestGenerationUnavailable(t *testing.T) {
	c, mr := newCache(t)
	mr.Close()

	_, ok := c.Generation(context.Background(), "gen")
	assert.False(t, ok)
}
