package websocket

import (
	"errors"
	"fmt"
)

var (
	ErrClientQueueFull = errors.New("client message queue is full")
	ErrClientClosed    = errors.New("client connection closed")
	ErrInvalidMessage  = errors.New("invalid message format")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrUserNotInRoom   = errors.New("user not in room")
	ErrRateLimited     = errors.New("too many actions, slow down")
)

// ActionError carries the machine-readable code reported to the client.
type ActionError struct {
	Code string
	Err  error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

func codeOf(err error) string {
	var ae *ActionError
	switch {
	case errors.As(err, &ae):
		return ae.Code
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrInvalidMessage):
		return "invalid_message"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrUserNotInRoom):
		return "not_a_member"
	default:
		return "internal_error"
	}
}
