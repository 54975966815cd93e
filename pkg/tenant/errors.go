package tenant

import "errors"

var (
	// ErrTenantNotFound is returned when a tenant cannot be found.
	ErrTenantNotFound = errors.New("tenant not found")

	// ErrInvalidIdentifier is returned when the identifier format is invalid.
	ErrInvalidIdentifier = errors.New("invalid tenant identifier")

	// ErrNoTenantInContext is returned when no tenant is found in context.
	ErrNoTenantInContext = errors.New("no tenant in context")

	// ErrNoScope is returned when the context was not created by NewScope.
	ErrNoScope = errors.New("no tenant scope in context")

	// ErrContextAlreadySet is returned when a scope's tenant is set twice.
	ErrContextAlreadySet = errors.New("tenant context already set for this scope")

	// ErrNilContext is returned when Set is called with a nil context.
	ErrNilContext = errors.New("tenant context is nil")

	// ErrInvalidHostingMode is returned when a hosting mode string is unknown.
	ErrInvalidHostingMode = errors.New("invalid tenancy hosting mode")
)
