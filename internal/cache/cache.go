// Package cache provides a bounded in-memory LRU store with per-entry TTL.
// It fronts the index for popular queries and keeps a stale read path for
// degraded serving when the backend is unhealthy.
package cache

import (
	"container/list"
	"sync"
	"time"
)

// Default sizing matches the search response cache.
const (
	DefaultMaxEntries = 500
	DefaultTTL        = 30 * time.Second
)

type entry[V any] struct {
	key       string
	value     V
	expiresAt time.Time
}

// Cache is a thread-safe LRU cache with TTL. The zero value is not usable;
// construct with New.
type Cache[V any] struct {
	mu         sync.Mutex
	maxEntries int
	ttl        time.Duration
	order      *list.List
	items      map[string]*list.Element
	now        func() time.Time
}

// New creates a cache holding at most maxEntries values, each expiring ttl
// after insertion. Non-positive arguments fall back to the defaults.
func New[V any](maxEntries int, ttl time.Duration) *Cache[V] {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache[V]{
		maxEntries: maxEntries,
		ttl:        ttl,
		order:      list.New(),
		items:      make(map[string]*list.Element),
		now:        time.Now,
	}
}

// Get returns the fresh value for key. Expired entries are evicted on read.
// A hit refreshes the entry's recency.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	e := el.Value.(*entry[V])
	if c.now().After(e.expiresAt) {
		c.remove(el)
		var zero V
		return zero, false
	}
	c.order.MoveToFront(el)
	return e.value, true
}

// GetStale returns the value for key even past its expiry, reporting whether
// the entry was expired. Used to serve degraded responses while the backend
// is unavailable. Does not refresh recency or evict.
func (c *Cache[V]) GetStale(key string) (value V, ok bool, stale bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, found := c.items[key]
	if !found {
		var zero V
		return zero, false, false
	}
	e := el.Value.(*entry[V])
	return e.value, true, c.now().After(e.expiresAt)
}

// Set stores value under key with the cache's default TTL, evicting the least
// recently used entries on capacity pressure.
func (c *Cache[V]) Set(key string, value V) {
	c.SetTTL(key, value, c.ttl)
}

// SetTTL stores value under key with an explicit TTL.
func (c *Cache[V]) SetTTL(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.remove(el)
	}
	for c.order.Len() >= c.maxEntries {
		c.remove(c.order.Back())
	}
	e := &entry[V]{key: key, value: value, expiresAt: c.now().Add(ttl)}
	c.items[key] = c.order.PushFront(e)
}

// Delete removes key if present.
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.remove(el)
	}
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Prune evicts every expired entry and returns the count removed. Run it
// periodically to reclaim memory between reads.
func (c *Cache[V]) Prune() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	pruned := 0
	for el := c.order.Back(); el != nil; {
		prev := el.Prev()
		if now.After(el.Value.(*entry[V]).expiresAt) {
			c.remove(el)
			pruned++
		}
		el = prev
	}
	return pruned
}

func (c *Cache[V]) remove(el *list.Element) {
	if el == nil {
		return
	}
	c.order.Remove(el)
	delete(c.items, el.Value.(*entry[V]).key)
}
