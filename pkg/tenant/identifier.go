package tenant

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// DefaultCacheTTL is how long identified tenants stay cached.
const DefaultCacheTTL = 5 * time.Minute

// Identifier turns resolved tokens into tenants and populates scopes.
// It is safe for concurrent use and meant to be shared process-wide.
type Identifier struct {
	provider Provider
	cache    Cache
	cacheTTL time.Duration
	logger   *slog.Logger
}

// IdentifierOption configures an Identifier.
type IdentifierOption func(*Identifier)

// WithCache sets the cache consulted before the provider.
func WithCache(cache Cache) IdentifierOption {
	return func(i *Identifier) {
		if cache != nil {
			i.cache = cache
		}
	}
}

// WithCacheTTL sets the lifetime of cached tenants.
func WithCacheTTL(ttl time.Duration) IdentifierOption {
	return func(i *Identifier) {
		i.cacheTTL = ttl
	}
}

// WithIdentifierLogger sets the identifier's logger.
func WithIdentifierLogger(logger *slog.Logger) IdentifierOption {
	return func(i *Identifier) {
		if logger != nil {
			i.logger = logger
		}
	}
}

// NewIdentifier creates an identifier backed by provider.
// Without WithCache every lookup goes to the provider.
func NewIdentifier(provider Provider, opts ...IdentifierOption) *Identifier {
	i := &Identifier{
		provider: provider,
		cache:    NewNoOpCache(),
		cacheTTL: DefaultCacheTTL,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Identify returns the tenant for token, consulting the cache first.
func (i *Identifier) Identify(ctx context.Context, token string) (*Tenant, error) {
	if token == "" {
		return nil, ErrInvalidIdentifier
	}

	if cached, ok := i.cache.Get(ctx, token); ok {
		return cached, nil
	}

	t, err := i.provider.GetByIdentifier(ctx, token)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, ErrTenantNotFound
	}

	i.cache.Set(ctx, token, t, i.cacheTTL)
	return t, nil
}

// Populate identifies token and sets the result on the scope of ctx.
// An empty token leaves the scope without a tenant and is not an error.
func (i *Identifier) Populate(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	accessor, ok := AccessorFromContext(ctx)
	if !ok {
		return ErrNoScope
	}

	t, err := i.Identify(ctx, token)
	if err != nil {
		return fmt.Errorf("identify tenant: %w", err)
	}

	if err := accessor.Set(NewContext(*t)); err != nil {
		return err
	}

	i.logger.DebugContext(ctx, "tenant identified", slog.String("tenant_id", t.ID.String()))
	return nil
}
