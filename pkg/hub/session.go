package hub

import (
	"sync"
	"sync/atomic"
	"time"

	"pulse/pkg/auth"

	"github.com/google/uuid"
)

type State int32

const (
	StateConnecting State = iota
	StateAuthenticated
	StateSubscribed
	StateDraining
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticated:
		return "authenticated"
	case StateSubscribed:
		return "subscribed"
	case StateDraining:
		return "draining"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Conn is the part of a websocket connection the hub drives.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	Close() error
}

type writeDeadliner interface {
	SetWriteDeadline(t time.Time) error
}

type Session struct {
	ID       string
	Identity auth.Identity

	conn         Conn
	writeTimeout time.Duration
	writeMu      sync.Mutex
	state        atomic.Int32
}

func newSession(conn Conn, writeTimeout time.Duration) *Session {
	return &Session{
		ID:           uuid.NewString(),
		conn:         conn,
		writeTimeout: writeTimeout,
	}
}

func (s *Session) State() State { return State(s.state.Load()) }

func (s *Session) setState(st State) { s.state.Store(int32(st)) }

func (s *Session) deadline() time.Time {
	if s.writeTimeout <= 0 {
		return time.Time{}
	}
	return time.Now().Add(s.writeTimeout)
}

// write sends one frame. Frames never interleave.
func (s *Session) write(messageType int, data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if d, ok := s.conn.(writeDeadliner); ok {
		if err := d.SetWriteDeadline(s.deadline()); err != nil {
			return err
		}
	}
	return s.conn.WriteMessage(messageType, data)
}

func (s *Session) writeControl(messageType int, data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	deadline := s.deadline()
	if deadline.IsZero() {
		deadline = time.Now().Add(time.Second)
	}
	return s.conn.WriteControl(messageType, data, deadline)
}
