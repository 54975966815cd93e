// Package cache provides a generic, thread-safe LRU cache with optional
// per-entry expiry.
//
// It backs two things in this module: the in-memory tenant cache used by the
// identification pipeline, and the per-connection-string pool cache of the
// postgres backend, where the eviction callback closes pools that fall out of
// the cache.
//
// # Usage
//
//	pools := cache.New[string, *pgxpool.Pool](32,
//		cache.WithOnEvict(func(_ string, p *pgxpool.Pool) { p.Close() }),
//	)
//
//	tenants := cache.New[string, *tenant.Tenant](1000,
//		cache.WithTTL[string, *tenant.Tenant](5*time.Minute),
//	)
//
// Eviction callbacks run after the internal lock is released, so they may
// block (closing a connection pool, flushing a file) without stalling other
// goroutines using the cache.
//
// # Expiry
//
// Entries put with a TTL are dropped lazily on Get and eagerly by
// PurgeExpired. A zero TTL means the entry only leaves the cache through
// capacity eviction, Remove or Clear.
package cache
