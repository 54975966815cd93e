package messaging

import (
	"context"
	"maps"
)

// Publisher encodes payloads into envelopes and publishes them with the
// ambient tenant attached.
type Publisher struct {
	transport Transport
	headers   map[string]string
}

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher)

// WithDefaultHeaders adds headers to every published envelope. Headers
// passed to Publish take precedence.
func WithDefaultHeaders(headers map[string]string) PublisherOption {
	return func(p *Publisher) {
		maps.Copy(p.headers, headers)
	}
}

// NewPublisher creates a publisher over transport. A nil transport is
// replaced by NoopTransport.
func NewPublisher(transport Transport, opts ...PublisherOption) *Publisher {
	if transport == nil {
		transport = NoopTransport{}
	}
	p := &Publisher{transport: transport, headers: make(map[string]string)}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Publish encodes payload and sends it to topic. When ctx has an ambient
// tenant its id replaces any caller supplied tenant header.
func (p *Publisher) Publish(ctx context.Context, topic string, payload any, headers ...map[string]string) error {
	if topic == "" {
		return ErrEmptyTopic
	}

	merged := maps.Clone(p.headers)
	for _, h := range headers {
		maps.Copy(merged, h)
	}

	env, err := NewEnvelope(payload, merged)
	if err != nil {
		return err
	}
	PropagateTenant(ctx, &env)

	return p.transport.Publish(ctx, topic, env)
}
