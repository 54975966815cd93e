package tenantdb

import "errors"

var (
	// ErrMissingTenantContext is returned when a tenant-owned entity is written
	// in multi-tenant mode without an ambient tenant.
	ErrMissingTenantContext = errors.New("tenantdb: tenant-owned write without ambient tenant")

	// ErrTenantMismatch is returned when a commit batch spans more than one
	// tenant, or a tenant other than the ambient one, and when a session is
	// used by a tenant other than the one it was routed for. Nothing is
	// committed.
	ErrTenantMismatch = errors.New("tenantdb: commit batch spans more than one tenant")

	// ErrConflict is returned when an inserted row already exists or an entity
	// is tracked twice.
	ErrConflict = errors.New("tenantdb: conflict")

	// ErrNotFound is returned when a row does not exist or is not visible.
	ErrNotFound = errors.New("tenantdb: not found")

	// ErrUnknownEntityType is returned for entity types missing from the model.
	ErrUnknownEntityType = errors.New("tenantdb: unknown entity type")

	// ErrInvalidEntity is returned for entities without a key.
	ErrInvalidEntity = errors.New("tenantdb: invalid entity")

	// ErrSessionClosed is returned when a closed session is used.
	ErrSessionClosed = errors.New("tenantdb: session closed")
)
