package messaging

import "context"

// Handler processes one message.
type Handler interface {
	Handle(ctx context.Context, msg *Message) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, msg *Message) error

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, msg *Message) error {
	return f(ctx, msg)
}

// Middleware decorates a Handler.
type Middleware func(Handler) Handler

// Chain wraps h with mws. The first middleware is the outermost.
func Chain(h Handler, mws ...Middleware) Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// NewTypedHandler decodes the payload into T before calling fn.
func NewTypedHandler[T any](fn func(ctx context.Context, payload T) error) Handler {
	return HandlerFunc(func(ctx context.Context, msg *Message) error {
		var payload T
		if err := msg.Envelope.Decode(&payload); err != nil {
			return err
		}
		return fn(ctx, payload)
	})
}

// NoopHandler acknowledges every message without doing anything.
func NoopHandler() Handler {
	return HandlerFunc(func(context.Context, *Message) error { return nil })
}
