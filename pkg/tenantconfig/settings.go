package tenantconfig

import (
	"errors"
	"fmt"
	"maps"
	"strings"

	"github.com/dmitrymomot/tenantkit/pkg/config"
	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

// TenantPlaceholder is replaced by the tenant token in connection string templates.
const TenantPlaceholder = "{tenant}"

// Options is the environment surface of the tenancy configuration.
//
// Connection string maps use "name=value" pairs separated by ";", so values
// may contain ":" "," and "=" (URLs, replica lists and query parameters).
type Options struct {
	Mode                     tenant.HostingMode `env:"TENANCY_MODE"`
	ConfigFile               string             `env:"TENANCY_CONFIG_FILE"`
	ConnectionStrings        map[string]string  `env:"CONNECTION_STRINGS" envSeparator:";" envKeyValSeparator:"="`
	DefaultConnectionStrings map[string]string  `env:"TENANCY_DEFAULT_CONNECTION_STRINGS" envSeparator:";" envKeyValSeparator:"="`
	SharedDatabases          []string           `env:"TENANCY_SHARED_DATABASES" envSeparator:","`
}

// Settings is the complete tenancy configuration.
//
// Tenants holds per-tenant overrides keyed by tenant token. Sessions resolve
// with Tenant.Token, the tenant id, so keys must be ids rather than names or
// aliases.
type Settings struct {
	Mode              tenant.HostingMode        `yaml:"mode"`
	ConnectionStrings map[string]string         `yaml:"connection_strings"`
	SharedDatabases   []string                  `yaml:"shared_databases"`
	Defaults          TenantSettings            `yaml:"defaults"`
	Tenants           map[string]TenantSettings `yaml:"tenants"`
}

// TenantSettings holds connection string templates for one tenant, or the
// defaults applied to every tenant without an override.
type TenantSettings struct {
	ConnectionStrings map[string]string `yaml:"connection_strings"`
}

// Validate reports settings that can never resolve.
func (s Settings) Validate() error {
	var errs []error
	for _, name := range s.SharedDatabases {
		if s.ConnectionStrings[name] == "" {
			errs = append(errs, fmt.Errorf("shared database %q has no connection string", name))
		}
	}
	for token := range s.Tenants {
		if strings.TrimSpace(token) == "" {
			errs = append(errs, errors.New("tenant override with empty token"))
		}
	}
	if len(errs) > 0 {
		return errors.Join(ErrInvalidSettings, errors.Join(errs...))
	}
	return nil
}

// LoadFile reads YAML settings from path.
func LoadFile(path string) (Settings, error) {
	var s Settings
	if err := config.LoadFile(path, &s); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Load builds Settings from the environment: the file named by
// TENANCY_CONFIG_FILE (if any) overlaid with the environment variables.
func Load() (Settings, error) {
	var opts Options
	if err := config.Load(&opts); err != nil {
		return Settings{}, err
	}
	return FromOptions(opts)
}

// FromOptions merges opts over the file it references.
// Environment values win over file values for the same key.
func FromOptions(opts Options) (Settings, error) {
	var s Settings
	if opts.ConfigFile != "" {
		loaded, err := LoadFile(opts.ConfigFile)
		if err != nil {
			return Settings{}, err
		}
		s = loaded
	}

	if opts.Mode != "" {
		s.Mode = opts.Mode
	}
	if len(opts.ConnectionStrings) > 0 {
		if s.ConnectionStrings == nil {
			s.ConnectionStrings = make(map[string]string, len(opts.ConnectionStrings))
		}
		maps.Copy(s.ConnectionStrings, opts.ConnectionStrings)
	}
	if len(opts.DefaultConnectionStrings) > 0 {
		if s.Defaults.ConnectionStrings == nil {
			s.Defaults.ConnectionStrings = make(map[string]string, len(opts.DefaultConnectionStrings))
		}
		maps.Copy(s.Defaults.ConnectionStrings, opts.DefaultConnectionStrings)
	}
	for _, name := range opts.SharedDatabases {
		if name = strings.TrimSpace(name); name != "" {
			s.SharedDatabases = append(s.SharedDatabases, name)
		}
	}

	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}
