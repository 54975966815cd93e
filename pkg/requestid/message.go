package requestid

import (
	"context"

	"github.com/dmitrymomot/tenantkit/pkg/messaging"
)

// Headers returns the message headers propagating the request id of ctx.
// It returns nil when ctx has none.
func Headers(ctx context.Context) map[string]string {
	id := FromContext(ctx)
	if id == "" {
		return nil
	}
	return map[string]string{MessageHeader: id}
}

// MessageMiddleware restores the request id from MessageHeader. Messages
// without a valid id get a new one.
func MessageMiddleware() messaging.Middleware {
	return func(next messaging.Handler) messaging.Handler {
		return messaging.HandlerFunc(func(ctx context.Context, msg *messaging.Message) error {
			var id string
			if msg != nil {
				id = msg.Envelope.Header(MessageHeader)
			}
			if !Valid(id) {
				id = newID()
			}
			return next.Handle(WithContext(ctx, id), msg)
		})
	}
}
