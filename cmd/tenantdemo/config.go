package main

import "time"

// Store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
)

// Tenant cache backends.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheNone   = "none"
)

// appConfig is the demo's own configuration.
type appConfig struct {
	Store          string        `env:"TENANTDB_BACKEND" envDefault:"memory"`
	Connection     string        `env:"TENANTDB_CONNECTION" envDefault:"main"`
	TenantsFile    string        `env:"TENANTS_FILE"`
	TenantHeader   string        `env:"TENANT_HEADER" envDefault:"X-Tenant-ID"`
	Cache          string        `env:"TENANT_CACHE" envDefault:"memory"`
	CacheTTL       time.Duration `env:"TENANT_CACHE_TTL" envDefault:"5m"`
	EventBuffer    int           `env:"EVENT_BUFFER_SIZE" envDefault:"256"`
	HealthTimeout  time.Duration `env:"HEALTH_TIMEOUT" envDefault:"2s"`
	MetricsEnabled bool          `env:"METRICS_ENABLED" envDefault:"true"`
}
