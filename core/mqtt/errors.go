package mqtt

import "errors"

var (
	// ErrAckTimeout is returned when no acknowledgment is received before the timeout.
	ErrAckTimeout = errors.New("timeout waiting for ack")
	// ErrUnknownMessage is returned when waiting on an id that was never published.
	ErrUnknownMessage = errors.New("unknown message")
)
