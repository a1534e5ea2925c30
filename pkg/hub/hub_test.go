package hub

import (
	"context"
	"encoding/binary"
	"errors"
	"sync"
	"testing"
	"time"

	"pulse/pkg/auth"
	"pulse/pkg/broker"
	"pulse/pkg/envelope"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/contrib/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errConnClosed = errors.New("use of closed connection")

type fakeConn struct {
	in      chan []byte
	written chan []byte

	gone     chan struct{}
	goneOnce sync.Once

	closed    chan struct{}
	closeOnce sync.Once

	mu        sync.Mutex
	closeCode int
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		in:      make(chan []byte, 8),
		written: make(chan []byte, 64),
		gone:    make(chan struct{}),
		closed:  make(chan struct{}),
	}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case msg := <-c.in:
		return websocket.TextMessage, msg, nil
	case <-c.gone:
		return 0, nil, errors.New("client went away")
	case <-c.closed:
		return 0, nil, errConnClosed
	}
}

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	select {
	case <-c.closed:
		return errConnClosed
	default:
	}
	c.written <- append([]byte(nil), data...)
	return nil
}

func (c *fakeConn) WriteControl(messageType int, data []byte, _ time.Time) error {
	if messageType == websocket.CloseMessage && len(data) >= 2 {
		c.mu.Lock()
		c.closeCode = int(binary.BigEndian.Uint16(data))
		c.mu.Unlock()
	}
	return nil
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) hangup() { c.goneOnce.Do(func() { close(c.gone) }) }

func (c *fakeConn) CloseCode() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeCode
}

func (c *fakeConn) next(t *testing.T) string {
	t.Helper()
	select {
	case msg := <-c.written:
		return string(msg)
	case <-time.After(2 * time.Second):
		t.Fatal("no frame written")
		return ""
	}
}

// faultyConn blows up on the first data frame.
type faultyConn struct{ *fakeConn }

func (c faultyConn) WriteMessage(int, []byte) error { panic("frame encoder exploded") }

type testEnv struct {
	mr       *miniredis.Miniredis
	broker   *broker.Broker
	verifier *auth.Verifier
	hub      *Hub
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb, err := broker.NewClient("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { rdb.Close() })

	b := broker.New(rdb)
	v := auth.NewVerifier("test-secret")
	h := New(b, v, time.Second)
	t.Cleanup(h.Close)
	return &testEnv{mr: mr, broker: b, verifier: v, hub: h}
}

func (e *testEnv) token(t *testing.T, id auth.Identity) string {
	t.Helper()
	tok, err := e.verifier.Sign(id, time.Hour)
	require.NoError(t, err)
	return tok
}

// serve starts a session and waits for it to be subscribed.
func (e *testEnv) serve(t *testing.T, id auth.Identity) (*fakeConn, <-chan struct{}) {
	t.Helper()
	conn := newFakeConn()
	return conn, e.serveConn(t, id, conn)
}

func (e *testEnv) serveConn(t *testing.T, id auth.Identity, conn Conn) <-chan struct{} {
	t.Helper()
	before := len(e.hub.Registry().Sessions(id.ID))
	done := make(chan struct{})
	go func() {
		e.hub.Serve(conn, e.token(t, id))
		close(done)
	}()
	require.Eventually(t, func() bool {
		return len(e.hub.Registry().Sessions(id.ID)) == before+1
	}, 2*time.Second, 5*time.Millisecond)
	return done
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("session did not finish")
	}
}

var userA = auth.Identity{ID: 1, Name: "Alice", Role: auth.RoleUser}

func TestInvalidTokenClosesWithPolicyViolation(t *testing.T) {
	e := newTestEnv(t)

	for _, tok := range []string{"", "garbage"} {
		conn := newFakeConn()
		e.hub.Serve(conn, tok)

		assert.Equal(t, websocket.ClosePolicyViolation, conn.CloseCode())
		assert.Zero(t, e.hub.SessionCount())
	}
}

func TestDeliversInPublishOrder(t *testing.T) {
	e := newTestEnv(t)
	conn, _ := e.serve(t, userA)

	s := e.hub.Registry().Sessions(userA.ID)[0]
	assert.Equal(t, StateSubscribed, s.State())

	ctx := context.Background()
	require.NoError(t, e.broker.Publish(ctx, 2, []byte(`{"for":"someone else"}`)))
	for _, p := range []string{`{"n":1}`, `{"n":2}`, `{"n":3}`} {
		require.NoError(t, e.broker.Publish(ctx, userA.ID, []byte(p)))
	}

	assert.Equal(t, `{"n":1}`, conn.next(t))
	assert.Equal(t, `{"n":2}`, conn.next(t))
	assert.Equal(t, `{"n":3}`, conn.next(t))
}

func TestCleanupOnDisconnect(t *testing.T) {
	e := newTestEnv(t)
	conn, done := e.serve(t, userA)
	s := e.hub.Registry().Sessions(userA.ID)[0]

	conn.hangup()
	waitDone(t, done)

	assert.Equal(t, StateClosed, s.State())
	assert.Zero(t, e.hub.SessionCount())
	assert.Zero(t, e.hub.UserCount())
	assert.Eventually(t, func() bool {
		return e.mr.PubSubNumSub(broker.Topic(userA.ID))[broker.Topic(userA.ID)] == 0
	}, time.Second, 10*time.Millisecond)

	assert.NoError(t, e.broker.Publish(context.Background(), userA.ID, []byte("late")))
}

func TestEverySessionOfAUserReceives(t *testing.T) {
	e := newTestEnv(t)
	first, _ := e.serve(t, userA)
	second, _ := e.serve(t, userA)

	assert.Equal(t, 2, e.hub.SessionCount())
	assert.Equal(t, 1, e.hub.UserCount())

	require.NoError(t, e.broker.Publish(context.Background(), userA.ID, []byte("hi")))
	assert.Equal(t, "hi", first.next(t))
	assert.Equal(t, "hi", second.next(t))
}

func TestPingGetsPong(t *testing.T) {
	e := newTestEnv(t)
	conn, _ := e.serve(t, userA)

	ping := envelope.New(envelope.ActionPing)
	raw, err := ping.Marshal()
	require.NoError(t, err)
	conn.in <- raw

	reply, err := envelope.Unmarshal([]byte(conn.next(t)))
	require.NoError(t, err)
	assert.Equal(t, envelope.ActionPong, reply.Action)
	assert.Equal(t, ping.ID, reply.ReplyTo)

	conn.in <- []byte("not json")
	reply, err = envelope.Unmarshal([]byte(conn.next(t)))
	require.NoError(t, err)
	assert.Equal(t, envelope.ActionError, reply.Action)
}

func TestCloseDrainsEverySession(t *testing.T) {
	e := newTestEnv(t)
	conn, done := e.serve(t, userA)

	e.hub.Close()
	waitDone(t, done)

	assert.Equal(t, websocket.CloseGoingAway, conn.CloseCode())
	assert.Zero(t, e.hub.SessionCount())

	late := newFakeConn()
	e.hub.Serve(late, e.token(t, userA))
	assert.Equal(t, websocket.CloseGoingAway, late.CloseCode())
}

func TestSubscribeFailureClosesSession(t *testing.T) {
	e := newTestEnv(t)
	e.mr.Close()

	conn := newFakeConn()
	e.hub.Serve(conn, e.token(t, userA))

	assert.Equal(t, websocket.CloseTryAgainLater, conn.CloseCode())
	assert.Zero(t, e.hub.SessionCount())
}

func TestFaultDuringDeliveryDrainsSession(t *testing.T) {
	e := newTestEnv(t)
	conn := faultyConn{newFakeConn()}
	done := e.serveConn(t, userA, conn)
	s := e.hub.Registry().Sessions(userA.ID)[0]

	require.NoError(t, e.broker.Publish(context.Background(), userA.ID, []byte("boom")))
	waitDone(t, done)

	assert.Equal(t, StateClosed, s.State())
	assert.Zero(t, e.hub.SessionCount())
	assert.Equal(t, websocket.CloseNormalClosure, conn.CloseCode())
	assert.Eventually(t, func() bool {
		return e.mr.PubSubNumSub(broker.Topic(userA.ID))[broker.Topic(userA.ID)] == 0
	}, time.Second, 10*time.Millisecond)

	// The hub keeps serving after a session faulted.
	next, _ := e.serve(t, userA)
	require.NoError(t, e.broker.Publish(context.Background(), userA.ID, []byte("after")))
	assert.Equal(t, "after", next.next(t))
}
