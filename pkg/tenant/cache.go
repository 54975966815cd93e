package tenant

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrymomot/tenantkit/pkg/cache"
)

// Cache stores resolved tenants keyed by token.
type Cache interface {
	// Get retrieves a tenant from cache by key.
	Get(ctx context.Context, key string) (*Tenant, bool)

	// Set stores a tenant in cache with the given TTL.
	Set(ctx context.Context, key string, tenant *Tenant, ttl time.Duration)

	// Delete removes a tenant from cache.
	Delete(ctx context.Context, key string)

	// Close releases any resources held by the cache.
	Close() error
}

// DefaultCacheSize is the default maximum number of items in the cache.
const DefaultCacheSize = 1000

// inMemoryCache is the default cache, an LRU with per-entry expiry and a
// background sweep of expired entries.
type inMemoryCache struct {
	lru       *cache.LRU[string, Tenant]
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewInMemoryCache creates an in-memory cache with DefaultCacheSize capacity.
func NewInMemoryCache() Cache {
	return NewInMemoryCacheWithSize(DefaultCacheSize)
}

// NewInMemoryCacheWithSize creates an in-memory cache with the given capacity.
func NewInMemoryCacheWithSize(maxSize int) Cache {
	if maxSize <= 0 {
		maxSize = DefaultCacheSize
	}

	c := &inMemoryCache{
		lru:  cache.New[string, Tenant](maxSize),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go c.sweep(time.Minute)
	return c
}

func (c *inMemoryCache) Get(_ context.Context, key string) (*Tenant, bool) {
	t, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}
	return &t, true
}

func (c *inMemoryCache) Set(_ context.Context, key string, t *Tenant, ttl time.Duration) {
	if t == nil {
		return
	}
	c.lru.PutWithTTL(key, *t, ttl)
}

func (c *inMemoryCache) Delete(_ context.Context, key string) {
	c.lru.Remove(key)
}

func (c *inMemoryCache) sweep(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	defer close(c.done)

	for {
		select {
		case <-ticker.C:
			c.lru.PurgeExpired()
		case <-c.stop:
			return
		}
	}
}

// Close stops the sweep goroutine and waits for it to finish.
func (c *inMemoryCache) Close() error {
	c.closeOnce.Do(func() {
		close(c.stop)
		<-c.done
	})
	return nil
}

// noOpCache is a cache that doesn't cache anything.
type noOpCache struct{}

// NewNoOpCache creates a cache that doesn't cache.
func NewNoOpCache() Cache {
	return noOpCache{}
}

func (noOpCache) Get(context.Context, string) (*Tenant, bool) { return nil, false }

func (noOpCache) Set(context.Context, string, *Tenant, time.Duration) {}

func (noOpCache) Delete(context.Context, string) {}

func (noOpCache) Close() error { return nil }
