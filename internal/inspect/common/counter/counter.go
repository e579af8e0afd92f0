// Package counter provides a concurrent map of per-key atomic counters.
//
// Counters are created lazily with an insert-if-absent step, so two goroutines
// racing on the first sighting of a key always end up sharing one counter.
// Increments on different keys never contend on a common lock.
package counter

import (
	"sort"
	"sync"
	"sync/atomic"
)

// Map is a set of named int64 counters. The zero value is ready to use.
type Map struct {
	m sync.Map // string -> *atomic.Int64
}

// Inc adds one to the counter for key and returns the value produced by this
// call's own increment.
func (c *Map) Inc(key string) int64 {
	return c.Add(key, 1)
}

// Add adds delta to the counter for key and returns the new value.
func (c *Map) Add(key string, delta int64) int64 {
	return c.counter(key).Add(delta)
}

// Get returns the current value for key, or 0 when the key was never seen.
// It never creates a counter.
func (c *Map) Get(key string) int64 {
	v, ok := c.m.Load(key)
	if !ok {
		return 0
	}
	return v.(*atomic.Int64).Load()
}

// Len returns the number of keys with a counter.
func (c *Map) Len() int {
	n := 0
	c.m.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Snapshot copies every counter into a plain map.
func (c *Map) Snapshot() map[string]int64 {
	out := make(map[string]int64)
	c.m.Range(func(k, v any) bool {
		out[k.(string)] = v.(*atomic.Int64).Load()
		return true
	})
	return out
}

func (c *Map) counter(key string) *atomic.Int64 {
	if v, ok := c.m.Load(key); ok {
		return v.(*atomic.Int64)
	}
	v, _ := c.m.LoadOrStore(key, new(atomic.Int64))
	return v.(*atomic.Int64)
}

// Set is a concurrent string set with idempotent insertion.
type Set struct {
	m sync.Map // string -> struct{}
}

// Add inserts key and reports whether this call inserted it.
func (s *Set) Add(key string) bool {
	_, loaded := s.m.LoadOrStore(key, struct{}{})
	return !loaded
}

// Contains reports whether key is in the set.
func (s *Set) Contains(key string) bool {
	_, ok := s.m.Load(key)
	return ok
}

// Sorted returns the members in ascending order.
func (s *Set) Sorted() []string {
	out := make([]string, 0)
	s.m.Range(func(k, _ any) bool {
		out = append(out, k.(string))
		return true
	})
	sort.Strings(out)
	return out
}
