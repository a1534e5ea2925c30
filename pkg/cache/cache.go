package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"google.golang.org/protobuf/proto"
)

// Redis is a best-effort read cache. A nil *Redis is valid and caches
// nothing, which keeps storage-only setups and tests simple.
type Redis struct {
	client *redis.Client
}

func New(client *redis.Client) *Redis {
	return &Redis{client: client}
}

// Get retrieves JSON-encoded value from cache
func (r *Redis) Get(ctx context.Context, key string, dest interface{}) bool {
	if r == nil {
		return false
	}
	val, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(val, dest) == nil
}

// Set stores JSON-encoded value in cache
func (r *Redis) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if r == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := r.client.Set(ctx, key, data, ttl).Err(); err != nil {
		log.Printf("[CACHE] set %s: %v", key, err)
	}
}

// GetProto retrieves protobuf-encoded value from cache
func (r *Redis) GetProto(ctx context.Context, key string, dest proto.Message) bool {
	if r == nil {
		return false
	}
	val, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return proto.Unmarshal(val, dest) == nil
}

// SetProto stores protobuf-encoded value in cache (faster + smaller)
func (r *Redis) SetProto(ctx context.Context, key string, msg proto.Message, ttl time.Duration) {
	if r == nil {
		return
	}
	data, err := proto.Marshal(msg)
	if err != nil {
		return
	}
	if err := r.client.Set(ctx, key, data, ttl).Err(); err != nil {
		log.Printf("[CACHE] set %s: %v", key, err)
	}
}

func (r *Redis) Del(ctx context.Context, keys ...string) {
	if r == nil || len(keys) == 0 {
		return
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		log.Printf("[CACHE] del %v: %v", keys, err)
	}
}

// Generation reads a counter written by Bump. A missing key is generation 0.
// ok is false when Redis could not answer, in which case callers should not
// cache anything under the returned value.
func (r *Redis) Generation(ctx context.Context, key string) (gen int64, ok bool) {
	if r == nil {
		return 0, false
	}
	gen, err := r.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, true
	}
	if err != nil {
		log.Printf("[CACHE] generation %s: %v", key, err)
		return 0, false
	}
	return gen, true
}

// Bump advances a generation counter. Entries cached under an older
// generation are never read again and age out on their own TTL.
func (r *Redis) Bump(ctx context.Context, key string, ttl time.Duration) {
	if r == nil {
		return
	}
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		log.Printf("[CACHE] bump %s: %v", key, err)
	}
}
