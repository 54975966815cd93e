package cache

import (
	"container/list"
	"sync"
	"time"
)

type entry[K comparable, V any] struct {
	key       K
	value     V
	expiresAt time.Time
}

func (e *entry[K, V]) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// LRU is a thread-safe least-recently-used cache with optional expiry.
type LRU[K comparable, V any] struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	items    map[K]*list.Element
	order    *list.List
	onEvict  func(key K, value V)
	now      func() time.Time
}

// Option configures an LRU.
type Option[K comparable, V any] func(*LRU[K, V])

// WithTTL sets the default lifetime of entries added with Put.
func WithTTL[K comparable, V any](ttl time.Duration) Option[K, V] {
	return func(c *LRU[K, V]) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithOnEvict registers a callback invoked whenever an entry leaves the cache.
func WithOnEvict[K comparable, V any](fn func(key K, value V)) Option[K, V] {
	return func(c *LRU[K, V]) {
		c.onEvict = fn
	}
}

// WithClock replaces time.Now, mostly for tests.
func WithClock[K comparable, V any](now func() time.Time) Option[K, V] {
	return func(c *LRU[K, V]) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates a cache holding at most capacity entries.
// Panics if capacity is not positive.
func New[K comparable, V any](capacity int, opts ...Option[K, V]) *LRU[K, V] {
	if capacity <= 0 {
		panic("cache: capacity must be positive")
	}
	c := &LRU[K, V]{
		capacity: capacity,
		items:    make(map[K]*list.Element, capacity),
		order:    list.New(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the value for key and marks it as recently used.
// Expired entries are removed and reported as missing.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	var zero V

	c.mu.Lock()
	elem, ok := c.items[key]
	if !ok {
		c.mu.Unlock()
		return zero, false
	}
	e := elem.Value.(*entry[K, V])
	if e.expired(c.now()) {
		c.unlink(elem)
		c.mu.Unlock()
		c.evicted(e)
		return zero, false
	}
	c.order.MoveToFront(elem)
	c.mu.Unlock()

	return e.value, true
}

// Put stores value under key using the cache's default TTL.
// Returns the previous value if one was present.
func (c *LRU[K, V]) Put(key K, value V) (V, bool) {
	return c.PutWithTTL(key, value, c.ttl)
}

// PutWithTTL stores value under key with an explicit lifetime.
// A zero ttl stores the entry without expiry.
func (c *LRU[K, V]) PutWithTTL(key K, value V, ttl time.Duration) (V, bool) {
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = c.now().Add(ttl)
	}

	c.mu.Lock()
	if elem, ok := c.items[key]; ok {
		e := elem.Value.(*entry[K, V])
		old := e.value
		e.value = value
		e.expiresAt = expiresAt
		c.order.MoveToFront(elem)
		c.mu.Unlock()
		return old, true
	}

	c.items[key] = c.order.PushFront(&entry[K, V]{key: key, value: value, expiresAt: expiresAt})

	var dropped *entry[K, V]
	if c.order.Len() > c.capacity {
		if back := c.order.Back(); back != nil {
			dropped = c.unlink(back)
		}
	}
	c.mu.Unlock()

	if dropped != nil {
		c.evicted(dropped)
	}

	var zero V
	return zero, false
}

// Remove deletes key from the cache, returning the removed value.
func (c *LRU[K, V]) Remove(key K) (V, bool) {
	c.mu.Lock()
	elem, ok := c.items[key]
	if !ok {
		c.mu.Unlock()
		var zero V
		return zero, false
	}
	e := c.unlink(elem)
	c.mu.Unlock()

	c.evicted(e)
	return e.value, true
}

// Len reports the number of entries, including expired ones not yet purged.
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// PurgeExpired drops every expired entry and returns how many were removed.
func (c *LRU[K, V]) PurgeExpired() int {
	now := c.now()

	c.mu.Lock()
	var dropped []*entry[K, V]
	for elem := c.order.Back(); elem != nil; {
		prev := elem.Prev()
		if e := elem.Value.(*entry[K, V]); e.expired(now) {
			dropped = append(dropped, c.unlink(elem))
		}
		elem = prev
	}
	c.mu.Unlock()

	for _, e := range dropped {
		c.evicted(e)
	}
	return len(dropped)
}

// Clear removes all entries, invoking the eviction callback for each.
func (c *LRU[K, V]) Clear() {
	c.mu.Lock()
	dropped := make([]*entry[K, V], 0, c.order.Len())
	for elem := c.order.Front(); elem != nil; elem = elem.Next() {
		dropped = append(dropped, elem.Value.(*entry[K, V]))
	}
	c.items = make(map[K]*list.Element, c.capacity)
	c.order.Init()
	c.mu.Unlock()

	for _, e := range dropped {
		c.evicted(e)
	}
}

// Must be called with c.mu held.
func (c *LRU[K, V]) unlink(elem *list.Element) *entry[K, V] {
	c.order.Remove(elem)
	e := elem.Value.(*entry[K, V])
	delete(c.items, e.key)
	return e
}

func (c *LRU[K, V]) evicted(e *entry[K, V]) {
	if c.onEvict != nil {
		c.onEvict(e.key, e.value)
	}
}
