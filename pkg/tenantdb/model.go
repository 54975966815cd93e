package tenantdb

import (
	"fmt"
	"sync"
)

// Ownership describes whether rows of an entity type belong to a tenant.
type Ownership uint8

const (
	// Shared rows have no tenant affiliation and are never stamped, filtered or validated.
	Shared Ownership = iota + 1
	// TenantOwned rows carry an out-of-band tenant id.
	TenantOwned
)

func (o Ownership) String() string {
	switch o {
	case Shared:
		return "shared"
	case TenantOwned:
		return "tenant-owned"
	default:
		return fmt.Sprintf("ownership(%d)", uint8(o))
	}
}

// Model is the registry of entity types known to sessions.
// Register types at startup; lookups are safe for concurrent use.
type Model struct {
	mu    sync.RWMutex
	types map[string]Ownership
}

// NewModel returns an empty model.
func NewModel() *Model {
	return &Model{types: make(map[string]Ownership)}
}

// RegisterTenantOwned marks entity types as tenant-owned.
func (m *Model) RegisterTenantOwned(names ...string) *Model {
	return m.register(TenantOwned, names)
}

// RegisterShared marks entity types as shared between tenants.
func (m *Model) RegisterShared(names ...string) *Model {
	return m.register(Shared, names)
}

func (m *Model) register(o Ownership, names []string) *Model {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range names {
		m.types[n] = o
	}
	return m
}

// Ownership returns the ownership of the named type.
func (m *Model) Ownership(name string) (Ownership, error) {
	m.mu.RLock()
	o, ok := m.types[name]
	m.mu.RUnlock()
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownEntityType, name)
	}
	return o, nil
}

// IsTenantOwned reports whether name is registered as tenant-owned.
func (m *Model) IsTenantOwned(name string) bool {
	o, err := m.Ownership(name)
	return err == nil && o == TenantOwned
}

// Types returns the registered type names with their ownership.
func (m *Model) Types() map[string]Ownership {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]Ownership, len(m.types))
	for k, v := range m.types {
		out[k] = v
	}
	return out
}
