// Package envelope is the control-frame format of the live channel. Data
// frames carry bare notification JSON; envelopes are only used for ping/pong
// and error replies.
package envelope

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	ActionPing  = "ping"
	ActionPong  = "pong"
	ActionError = "error"
)

type Envelope struct {
	ID        string          `json:"id"`
	Action    string          `json:"action"`
	ReplyTo   string          `json:"reply_to,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Error     *ErrorPayload   `json:"error,omitempty"`
	Timestamp int64           `json:"ts"`
}

type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func New(action string) Envelope {
	return Envelope{
		ID:        uuid.NewString(),
		Action:    action,
		Timestamp: time.Now().UnixMilli(),
	}
}

func NewReply(original Envelope, action string) Envelope {
	e := New(action)
	e.ReplyTo = original.ID
	return e
}

func NewError(original Envelope, code int, message string) Envelope {
	e := NewReply(original, ActionError)
	e.Error = &ErrorPayload{Code: code, Message: message}
	return e
}

func (e Envelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

func Unmarshal(data []byte) (Envelope, error) {
	var e Envelope
	err := json.Unmarshal(data, &e)
	return e, err
}
