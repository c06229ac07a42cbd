package protocol

import "errors"

var (
	ErrNilMessage          = errors.New("protocol: nil message")
	ErrInvalidRoot         = errors.New("protocol: payload is not a single root table")
	ErrMessageTypeMismatch = errors.New("protocol: message type mismatch")
)
