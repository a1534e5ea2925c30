package broker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"pulse/pkg/apperr"

	"github.com/redis/go-redis/v9"
)

// ErrClosed is returned by Next once the subscription has been released.
var ErrClosed = errors.New("subscription closed")

// NewClient parses a redis:// URL. go-redis dials lazily, so no connection is
// made until the first command; the client is meant to be shared by every
// component of the process.
func NewClient(redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	opt.PoolSize = 10
	opt.MinIdleConns = 3
	return redis.NewClient(opt), nil
}

// Topic is the pub/sub channel for one recipient.
func Topic(userID int) string {
	return fmt.Sprintf("notifications:%d", userID)
}

type Broker struct {
	rdb *redis.Client
}

func New(rdb *redis.Client) *Broker {
	return &Broker{rdb: rdb}
}

// Publish is fire-and-forget: it never waits on subscribers and succeeds even
// when nobody listens on the topic.
func (b *Broker) Publish(ctx context.Context, userID int, payload []byte) error {
	if err := b.rdb.Publish(ctx, Topic(userID), payload).Err(); err != nil {
		return apperr.Dependency("publish failed", err)
	}
	return nil
}

// Subscribe returns once the medium has confirmed the subscription.
func (b *Broker) Subscribe(ctx context.Context, userID int) (*Subscription, error) {
	topic := Topic(userID)
	ps := b.rdb.Subscribe(ctx, topic)

	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, apperr.Dependency("subscribe failed", err)
	}

	return &Subscription{
		topic: topic,
		ps:    ps,
		ch:    ps.Channel(),
		done:  make(chan struct{}),
	}, nil
}

func (b *Broker) Ping(ctx context.Context) error {
	return b.rdb.Ping(ctx).Err()
}

type Subscription struct {
	topic string
	ps    *redis.PubSub
	ch    <-chan *redis.Message
	once  sync.Once
	done  chan struct{}
}

func (s *Subscription) Topic() string { return s.topic }

// Next blocks until a payload arrives, ctx is done, or the subscription is
// released.
func (s *Subscription) Next(ctx context.Context) (string, error) {
	select {
	case <-s.done:
		return "", ErrClosed
	case <-ctx.Done():
		return "", ctx.Err()
	case msg, ok := <-s.ch:
		if !ok {
			return "", ErrClosed
		}
		return msg.Payload, nil
	}
}

// Unsubscribe releases the topic. Calling it again, or after the redis client
// was closed, is a no-op.
func (s *Subscription) Unsubscribe() error {
	s.once.Do(func() {
		close(s.done)
		if err := s.ps.Close(); err != nil {
			log.Printf("[BROKER] close %s: %v", s.topic, err)
		}
	})
	return nil
}
