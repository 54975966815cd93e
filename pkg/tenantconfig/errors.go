package tenantconfig

import "errors"

var (
	// ErrConfiguration is returned when no connection string can be resolved
	// for a connection name and tenant token.
	ErrConfiguration = errors.New("tenantconfig: no resolvable connection string")

	// ErrInvalidSettings is returned when settings are inconsistent.
	ErrInvalidSettings = errors.New("tenantconfig: invalid settings")
)
