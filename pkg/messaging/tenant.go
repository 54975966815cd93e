package messaging

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/tenantkit/pkg/logger"
	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

// TenantIDHeader is the header carrying the tenant id between services.
const TenantIDHeader = "tenant-id"

// NewTenantHeaderResolver resolves the tenant token from a message header.
// The header value is returned unchanged; a missing header resolves to "".
// Defaults to TenantIDHeader if key is empty.
func NewTenantHeaderResolver(key string) tenant.Resolver[*Message] {
	if key == "" {
		key = TenantIDHeader
	}
	headers := tenant.NewMapResolver(key)
	return func(msg *Message) (string, error) {
		if msg == nil {
			return "", nil
		}
		return headers(msg.Envelope.Headers)
	}
}

// TenantMiddlewareOption configures TenantMiddleware.
type TenantMiddlewareOption func(*tenantMiddleware)

type tenantMiddleware struct {
	logger *slog.Logger
}

// WithLogger sets the logger used to report identification failures.
func WithLogger(log *slog.Logger) TenantMiddlewareOption {
	return func(m *tenantMiddleware) {
		if log != nil {
			m.logger = log
		}
	}
}

// TenantMiddleware opens a fresh tenant scope for every message, resolves
// the tenant token and populates the scope before calling the handler.
// Messages without a token are handled without a tenant.
func TenantMiddleware(resolver tenant.Resolver[*Message], identifier *tenant.Identifier, opts ...TenantMiddlewareOption) Middleware {
	m := &tenantMiddleware{logger: slog.Default()}
	for _, opt := range opts {
		opt(m)
	}

	return func(next Handler) Handler {
		return HandlerFunc(func(ctx context.Context, msg *Message) error {
			ctx, _ = tenant.NewScope(ctx)
			ctx = WithMessage(ctx, msg)

			token, err := resolver(msg)
			if err != nil {
				m.logger.WarnContext(ctx, "tenant token resolution failed",
					logger.Topic(msg.Topic),
					logger.Error(err),
				)
				return err
			}

			if err := identifier.Populate(ctx, token); err != nil {
				m.logger.WarnContext(ctx, "tenant identification failed",
					logger.Topic(msg.Topic),
					logger.Token(token),
					logger.Error(err),
				)
				return err
			}

			return next.Handle(ctx, msg)
		})
	}
}

// PropagateTenant stamps the ambient tenant of ctx into env. Envelopes
// published outside a tenant scope are left as they are.
func PropagateTenant(ctx context.Context, env *Envelope) {
	if id, ok := tenant.IDFromContext(ctx); ok {
		env.SetHeader(TenantIDHeader, id.String())
	}
}
