package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"maps"
)

// Envelope is a message as it travels through a transport.
type Envelope struct {
	Headers map[string]string `json:"headers"`
	Payload json.RawMessage   `json:"payload"`
}

// NewEnvelope encodes payload and copies headers into a new envelope.
func NewEnvelope(payload any, headers map[string]string) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, errors.Join(ErrInvalidPayload, err)
	}
	h := make(map[string]string, len(headers)+1)
	maps.Copy(h, headers)
	return Envelope{Headers: h, Payload: data}, nil
}

// Clone returns a copy of e whose headers can be changed without affecting e.
// The payload is shared; handlers must treat it as read-only.
func (e Envelope) Clone() Envelope {
	return Envelope{Headers: maps.Clone(e.Headers), Payload: e.Payload}
}

// Header returns the value stored under key, or "" when absent.
func (e Envelope) Header(key string) string {
	return e.Headers[key]
}

// SetHeader stores value under key.
func (e *Envelope) SetHeader(key, value string) {
	if e.Headers == nil {
		e.Headers = make(map[string]string)
	}
	e.Headers[key] = value
}

// Decode unmarshals the payload into v.
func (e Envelope) Decode(v any) error {
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return errors.Join(ErrInvalidPayload, err)
	}
	return nil
}

// Message is a received envelope together with the topic it arrived on.
type Message struct {
	Envelope Envelope
	Topic    string
}

type messageKey struct{}

// WithMessage returns a context carrying msg.
func WithMessage(ctx context.Context, msg *Message) context.Context {
	return context.WithValue(ctx, messageKey{}, msg)
}

// MessageFromContext returns the message being processed in ctx.
func MessageFromContext(ctx context.Context) (*Message, bool) {
	msg, ok := ctx.Value(messageKey{}).(*Message)
	return msg, ok && msg != nil
}
