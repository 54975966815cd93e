package tenant

import (
	"fmt"
	"strings"
)

// HostingMode is the process-wide tenancy setting fixed at startup.
type HostingMode string

const (
	// SingleTenant disables tenant stamping, filtering and validation.
	SingleTenant HostingMode = "single-tenant"
	// MultiTenant enables tenant isolation.
	MultiTenant HostingMode = "multi-tenant"
)

// ParseHostingMode converts a configuration string into a HostingMode.
// Accepts the canonical names plus "single"/"multi" shorthands, case-insensitively.
func ParseHostingMode(s string) (HostingMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "single-tenant", "singletenant", "single":
		return SingleTenant, nil
	case "multi-tenant", "multitenant", "multi", "":
		return MultiTenant, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidHostingMode, s)
	}
}

// UnmarshalText lets env and yaml decoders parse hosting modes.
func (m *HostingMode) UnmarshalText(text []byte) error {
	parsed, err := ParseHostingMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// IsMultiTenant reports whether tenant isolation is active.
// The zero value is treated as MultiTenant so isolation is on unless disabled.
func (m HostingMode) IsMultiTenant() bool {
	return m != SingleTenant
}

func (m HostingMode) String() string {
	if m == "" {
		return string(MultiTenant)
	}
	return string(m)
}
