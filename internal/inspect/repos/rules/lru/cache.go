package lru

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/haukened/rr-inspect/internal/inspect/repos/rules"
)

// matchCache is an LRU-backed implementation of rules.MatchCache.
// It tracks basic metrics: hits, misses, and evictions.
type matchCache struct {
	lru       *lru.Cache[string, bool]
	capacity  int
	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

// disabledCache is a no-op MatchCache used when size <= 0.
type disabledCache struct{}

// New creates a MatchCache with the given capacity. If size <= 0, a disabled
// cache is returned that always misses.
func New(size int) (rules.MatchCache, error) {
	if size <= 0 {
		return &disabledCache{}, nil
	}

	mc := &matchCache{capacity: size}
	// NewWithEvict observes capacity evictions.
	cache, err := lru.NewWithEvict(size, func(_ string, _ bool) {
		mc.evictions.Add(1)
	})
	if err != nil {
		return nil, err
	}
	mc.lru = cache
	return mc, nil
}

// Get looks up a cached match by key, counting hits and misses. It uses
// Peek, which shares the cache's read lock with other workers and leaves
// recency untouched, so entries age out in insertion order.
func (c *matchCache) Get(key string) (bool, bool) {
	if val, ok := c.lru.Peek(key); ok {
		c.hits.Add(1)
		return val, true
	}
	c.misses.Add(1)
	return false, false
}

func (c *matchCache) Put(key string, matched bool) {
	c.lru.Add(key, matched)
}

func (c *matchCache) Len() int { return c.lru.Len() }

func (c *matchCache) Stats() rules.CacheStats {
	return rules.CacheStats{
		Capacity:  c.capacity,
		Size:      c.lru.Len(),
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
}

func (d *disabledCache) Get(string) (bool, bool) { return false, false }
func (d *disabledCache) Put(string, bool)        {}
func (d *disabledCache) Len() int                { return 0 }
func (d *disabledCache) Stats() rules.CacheStats { return rules.CacheStats{} }

var _ rules.MatchCache = (*matchCache)(nil)
var _ rules.MatchCache = (*disabledCache)(nil)
