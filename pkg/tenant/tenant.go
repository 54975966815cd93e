package tenant

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Tenant is an isolated customer whose data must not be visible to others.
// Two tenants are the same tenant iff their IDs match.
type Tenant struct {
	ID   uuid.UUID `json:"id" yaml:"id"`
	Name string    `json:"name" yaml:"name"`
}

// New returns a tenant value.
func New(id uuid.UUID, name string) Tenant {
	return Tenant{ID: id, Name: name}
}

// Equal reports whether t and other identify the same tenant.
func (t Tenant) Equal(other Tenant) bool {
	return t.ID == other.ID
}

// Token returns the string form of the tenant ID used for configuration lookups.
func (t Tenant) Token() string {
	return t.ID.String()
}

// Provider loads tenant information from a data source.
type Provider interface {
	// GetByIdentifier retrieves a tenant using the resolved token.
	// Returns ErrTenantNotFound if no tenant matches the token.
	GetByIdentifier(ctx context.Context, identifier string) (*Tenant, error)
}

// ProviderFunc is an adapter to use ordinary functions as providers.
type ProviderFunc func(ctx context.Context, identifier string) (*Tenant, error)

// GetByIdentifier calls f.
func (f ProviderFunc) GetByIdentifier(ctx context.Context, identifier string) (*Tenant, error) {
	return f(ctx, identifier)
}

// NewIDProvider returns a provider that treats the token as the tenant UUID.
// The returned tenant has an empty name.
func NewIDProvider() Provider {
	return ProviderFunc(func(_ context.Context, identifier string) (*Tenant, error) {
		id, err := uuid.Parse(strings.TrimSpace(identifier))
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a tenant id", ErrInvalidIdentifier, identifier)
		}
		return &Tenant{ID: id}, nil
	})
}

// StaticProvider serves tenants from a fixed in-memory directory keyed by
// tenant ID string and, optionally, by alias.
type StaticProvider struct {
	mu      sync.RWMutex
	tenants map[string]Tenant
}

// NewStaticProvider builds a provider from the given tenants.
func NewStaticProvider(tenants ...Tenant) *StaticProvider {
	p := &StaticProvider{tenants: make(map[string]Tenant, len(tenants))}
	for _, t := range tenants {
		p.tenants[t.Token()] = t
	}
	return p
}

// Add registers t under its ID and every alias.
func (p *StaticProvider) Add(t Tenant, aliases ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tenants[t.Token()] = t
	for _, a := range aliases {
		if a != "" {
			p.tenants[a] = t
		}
	}
}

// GetByIdentifier implements Provider.
func (p *StaticProvider) GetByIdentifier(_ context.Context, identifier string) (*Tenant, error) {
	p.mu.RLock()
	t, ok := p.tenants[identifier]
	p.mu.RUnlock()
	if !ok {
		return nil, ErrTenantNotFound
	}
	return &t, nil
}
