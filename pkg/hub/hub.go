package hub

import (
	"context"
	"errors"
	"log"
	"runtime/debug"
	"sync"
	"time"

	"pulse/pkg/auth"
	"pulse/pkg/broker"
	"pulse/pkg/envelope"

	"github.com/gofiber/contrib/websocket"
)

// Authenticator resolves the token presented on connect.
type Authenticator interface {
	Verify(token string) (auth.Identity, error)
}

type Subscriber interface {
	Subscribe(ctx context.Context, userID int) (*broker.Subscription, error)
}

type Hub struct {
	broker       Subscriber
	auth         Authenticator
	registry     *Registry
	writeTimeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func New(b Subscriber, a Authenticator, writeTimeout time.Duration) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		broker:       b,
		auth:         a,
		registry:     NewRegistry(),
		writeTimeout: writeTimeout,
		ctx:          ctx,
		cancel:       cancel,
	}
}

func (h *Hub) Registry() *Registry { return h.registry }

func (h *Hub) SessionCount() int { return h.registry.Count() }

func (h *Hub) UserCount() int { return h.registry.UserCount() }

func (h *Hub) track() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.wg.Add(1)
	return true
}

// Close stops every session and waits until all of them have drained.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()

	h.cancel()
	h.wg.Wait()
	log.Println("[HUB] all sessions drained")
}

// Serve runs one live connection to completion. It returns after the
// subscription is released, the session is unregistered and conn is closed.
func (h *Hub) Serve(conn Conn, token string) {
	s := newSession(conn, h.writeTimeout)

	if !h.track() {
		h.reject(s, websocket.CloseGoingAway, "server shutting down")
		return
	}
	defer h.wg.Done()

	id, err := h.auth.Verify(token)
	if err != nil {
		log.Printf("[HUB] session %s rejected: %v", s.ID, err)
		h.reject(s, websocket.ClosePolicyViolation, "authentication required")
		return
	}
	s.Identity = id
	s.setState(StateAuthenticated)

	ctx, cancel := context.WithCancel(h.ctx)
	defer cancel()

	sub, err := h.broker.Subscribe(ctx, id.ID)
	if err != nil {
		log.Printf("[HUB] session %s user=%d subscribe failed: %v", s.ID, id.ID, err)
		h.reject(s, websocket.CloseTryAgainLater, "notifications unavailable")
		return
	}

	h.registry.Add(s)
	s.setState(StateSubscribed)
	log.Printf("[HUB] session %s connected: user_id=%d total=%d", s.ID, id.ID, h.registry.Count())

	readerDone := make(chan struct{})
	defer h.drain(s, sub, readerDone)

	go h.readLoop(s, cancel, readerDone)
	h.deliver(ctx, s, sub)
}

// deliver forwards payloads in publish order until ctx ends or a write fails.
func (h *Hub) deliver(ctx context.Context, s *Session, sub *broker.Subscription) {
	for {
		payload, err := sub.Next(ctx)
		if err != nil {
			if !errors.Is(err, context.Canceled) && !errors.Is(err, broker.ErrClosed) {
				log.Printf("[HUB] session %s receive: %v", s.ID, err)
			}
			return
		}
		if err := s.write(websocket.TextMessage, []byte(payload)); err != nil {
			log.Printf("[HUB] session %s write: %v", s.ID, err)
			return
		}
	}
}

// readLoop watches the client side. It ends the session when the client goes
// away and answers ping envelopes.
func (h *Hub) readLoop(s *Session, cancel context.CancelFunc, done chan<- struct{}) {
	defer close(done)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[HUB] session %s reader panic: %v\n%s", s.ID, r, debug.Stack())
		}
	}()

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			return
		}

		env, err := envelope.Unmarshal(raw)
		if err != nil {
			h.send(s, envelope.NewError(envelope.Envelope{}, 400, "invalid JSON"))
			continue
		}
		if env.Action == envelope.ActionPing {
			h.send(s, envelope.NewReply(env, envelope.ActionPong))
		}
	}
}

func (h *Hub) send(s *Session, env envelope.Envelope) {
	data, err := env.Marshal()
	if err != nil {
		return
	}
	if err := s.write(websocket.TextMessage, data); err != nil {
		log.Printf("[HUB] session %s reply: %v", s.ID, err)
	}
}

func (h *Hub) drain(s *Session, sub *broker.Subscription, readerDone <-chan struct{}) {
	if r := recover(); r != nil {
		log.Printf("[HUB] session %s panic: %v\n%s", s.ID, r, debug.Stack())
	}
	s.setState(StateDraining)

	sub.Unsubscribe()
	h.registry.Remove(s)

	code := websocket.CloseNormalClosure
	if h.ctx.Err() != nil {
		code = websocket.CloseGoingAway
	}
	s.writeControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, ""))
	s.conn.Close()
	<-readerDone

	s.setState(StateClosed)
	log.Printf("[HUB] session %s disconnected: user_id=%d total=%d", s.ID, s.Identity.ID, h.registry.Count())
}

func (h *Hub) reject(s *Session, code int, reason string) {
	s.writeControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason))
	s.conn.Close()
	s.setState(StateClosed)
}
