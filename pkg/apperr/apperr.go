// Package apperr defines the error kinds surfaced by the engagement core and
// their HTTP mapping.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindForbidden
	KindValidation
	KindUnauthenticated
	KindDependency
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindValidation:
		return "validation"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindDependency:
		return "dependency_failure"
	default:
		return "internal"
	}
}

// Sentinels for errors.Is. Any *Error of the same kind matches.
var (
	ErrNotFound        = &Error{Kind: KindNotFound, Msg: "not found"}
	ErrForbidden       = &Error{Kind: KindForbidden, Msg: "forbidden"}
	ErrValidation      = &Error{Kind: KindValidation, Msg: "invalid request"}
	ErrUnauthenticated = &Error{Kind: KindUnauthenticated, Msg: "not authenticated"}
	ErrDependency      = &Error{Kind: KindDependency, Msg: "dependency unavailable"}
)

type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func NotFound(msg string) error        { return &Error{Kind: KindNotFound, Msg: msg} }
func Forbidden(msg string) error       { return &Error{Kind: KindForbidden, Msg: msg} }
func Validation(msg string) error      { return &Error{Kind: KindValidation, Msg: msg} }
func Unauthenticated(msg string) error { return &Error{Kind: KindUnauthenticated, Msg: msg} }

// Dependency wraps a storage or pub/sub failure.
func Dependency(msg string, err error) error {
	return &Error{Kind: KindDependency, Msg: msg, Err: err}
}

// KindOf reports the kind of err, KindInternal when err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Status maps err to an HTTP status code.
func Status(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindDependency:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the client-safe message for err. Causes wrapped inside a
// dependency failure are not exposed.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Msg
	}
	return "internal error"
}
