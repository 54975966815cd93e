package messaging

import "errors"

var (
	ErrInvalidPayload     = errors.New("messaging: invalid payload")
	ErrEmptyTopic         = errors.New("messaging: empty topic")
	ErrNilHandler         = errors.New("messaging: nil handler")
	ErrTransportClosed    = errors.New("messaging: transport closed")
	ErrNoMessageInContext = errors.New("messaging: no message in context")
)
