package tenant

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Context is an immutable snapshot of the tenant active for an operation.
// A nil *Context means no tenant is active.
type Context struct {
	tenant Tenant
}

// NewContext returns a tenant context for t.
func NewContext(t Tenant) *Context {
	return &Context{tenant: t}
}

// Tenant returns the active tenant.
func (c *Context) Tenant() Tenant {
	return c.tenant
}

// Accessor holds the ambient tenant context of one scope.
// It is written once near the start of the scope and read many times.
type Accessor struct {
	mu  sync.RWMutex
	cur *Context
}

// Get returns the scope's tenant context, if one has been set.
func (a *Accessor) Get() (*Context, bool) {
	if a == nil {
		return nil, false
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cur, a.cur != nil
}

// Set records the scope's tenant context. It may be called once per scope.
func (a *Accessor) Set(c *Context) error {
	if c == nil {
		return ErrNilContext
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cur != nil {
		return ErrContextAlreadySet
	}
	a.cur = c
	return nil
}

// scopeKey is a private type to prevent collisions with other context keys.
type scopeKey struct{}

// NewScope starts a new logical operation with its own empty Accessor.
// Any accessor inherited from ctx is shadowed, so a reused parent context
// never leaks a previous operation's tenant.
func NewScope(ctx context.Context) (context.Context, *Accessor) {
	a := &Accessor{}
	return context.WithValue(ctx, scopeKey{}, a), a
}

// AccessorFromContext returns the Accessor of the scope ctx belongs to.
func AccessorFromContext(ctx context.Context) (*Accessor, bool) {
	if ctx == nil {
		return nil, false
	}
	a, ok := ctx.Value(scopeKey{}).(*Accessor)
	return a, ok && a != nil
}

// ContextFrom returns the ambient tenant context of ctx.
func ContextFrom(ctx context.Context) (*Context, bool) {
	a, ok := AccessorFromContext(ctx)
	if !ok {
		return nil, false
	}
	return a.Get()
}

// WithScope runs fn in a fresh scope whose ambient tenant is t.
func WithScope(ctx context.Context, t Tenant, fn func(ctx context.Context) error) error {
	scoped, a := NewScope(ctx)
	if err := a.Set(NewContext(t)); err != nil {
		return err
	}
	return fn(scoped)
}

// FromContext retrieves the ambient tenant from the context.
// Returns nil, false if the scope has no tenant.
func FromContext(ctx context.Context) (*Tenant, bool) {
	c, ok := ContextFrom(ctx)
	if !ok {
		return nil, false
	}
	t := c.Tenant()
	return &t, true
}

// IDFromContext retrieves just the tenant ID from the context.
func IDFromContext(ctx context.Context) (uuid.UUID, bool) {
	c, ok := ContextFrom(ctx)
	if !ok {
		return uuid.Nil, false
	}
	return c.Tenant().ID, true
}

// MustFromContext retrieves the tenant from the context.
// Panics if no tenant is found. Use this only in handlers
// that absolutely require a tenant to function.
func MustFromContext(ctx context.Context) *Tenant {
	t, ok := FromContext(ctx)
	if !ok {
		panic("tenant: no tenant in context")
	}
	return t
}

// LoggerExtractor returns a context extractor for the logger that adds the
// ambient tenant ID to every record.
func LoggerExtractor() func(ctx context.Context) (slog.Attr, bool) {
	return func(ctx context.Context) (slog.Attr, bool) {
		if id, ok := IDFromContext(ctx); ok {
			return slog.String("tenant_id", id.String()), true
		}
		return slog.Attr{}, false
	}
}
