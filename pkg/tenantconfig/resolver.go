package tenantconfig

import (
	"fmt"
	"maps"
	"strings"

	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

// Resolver maps tenant tokens to tenant configuration.
// It is immutable after construction and safe for concurrent use.
type Resolver struct {
	mode      tenant.HostingMode
	static    map[string]string
	defaults  map[string]string
	overrides map[string]map[string]string
	shared    map[string]struct{}
}

// NewResolver creates a resolver from settings. The settings are copied.
func NewResolver(s Settings) *Resolver {
	r := &Resolver{
		mode:      s.Mode,
		static:    maps.Clone(s.ConnectionStrings),
		defaults:  maps.Clone(s.Defaults.ConnectionStrings),
		overrides: make(map[string]map[string]string, len(s.Tenants)),
		shared:    make(map[string]struct{}, len(s.SharedDatabases)),
	}
	for token, ts := range s.Tenants {
		r.overrides[token] = maps.Clone(ts.ConnectionStrings)
	}
	for _, name := range s.SharedDatabases {
		r.shared[name] = struct{}{}
	}
	return r
}

// Mode returns the process-wide hosting mode.
func (r *Resolver) Mode() tenant.HostingMode {
	return r.mode
}

// Resolve returns the configuration for token. An empty token stands for
// "no ambient tenant". Resolution itself never fails; missing entries are
// reported by Configuration.ConnectionString.
func (r *Resolver) Resolve(token string) *Configuration {
	return &Configuration{resolver: r, token: token}
}

// IsSharedDatabase reports whether the named connection is a single
// database shared by every tenant. In single-tenant mode every connection is.
func (r *Resolver) IsSharedDatabase(name string) bool {
	if !r.mode.IsMultiTenant() {
		return true
	}
	_, ok := r.shared[name]
	return ok
}

// Configuration is the tenant-specific view of the settings.
type Configuration struct {
	resolver *Resolver
	token    string
}

// Token returns the tenant token this configuration was resolved for.
func (c *Configuration) Token() string {
	return c.token
}

// IsSharedDatabase reports whether name is served by one shared database.
func (c *Configuration) IsSharedDatabase(name string) bool {
	return c.resolver.IsSharedDatabase(name)
}

// ConnectionString returns the connection string for name.
//
// Shared databases, single-tenant mode and the absence of a tenant resolve to
// the static connection string. Otherwise the tenant override is used, then
// the defaults template, with TenantPlaceholder replaced by the token.
func (c *Configuration) ConnectionString(name string) (string, error) {
	r := c.resolver

	if r.IsSharedDatabase(name) || c.token == "" {
		if cs, ok := r.static[name]; ok && cs != "" {
			return cs, nil
		}
		return "", fmt.Errorf("%w: connection %q has no shared connection string", ErrConfiguration, name)
	}

	template, ok := r.overrides[c.token][name]
	if !ok || template == "" {
		template, ok = r.defaults[name]
	}
	if !ok || template == "" {
		return "", fmt.Errorf("%w: connection %q for tenant %q has neither an override nor a default", ErrConfiguration, name, c.token)
	}

	return strings.ReplaceAll(template, TenantPlaceholder, c.token), nil
}
