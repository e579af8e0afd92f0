package rules

// BloomFilter is the minimal interface the rule set needs from Bloom filters.
// MightContain must be safe for concurrent use once all Adds are done.
type BloomFilter interface {
	Add(key []byte)
	MightContain(key []byte) bool
}

// BloomFactory constructs Bloom filters sized for a capacity and target
// false-positive rate.
type BloomFactory interface {
	New(capacity uint64, fpRate float64) BloomFilter
}

// MatchCache caches rule lookups by key. Implementations must be safe for
// concurrent use by inspection workers; Get must not take an exclusive lock.
type MatchCache interface {
	Get(key string) (matched bool, ok bool)
	Put(key string, matched bool)
	Len() int
	Stats() CacheStats
}

// CacheStats reports lightweight cache metrics.
// All fields are best-effort snapshots and may be updated concurrently.
type CacheStats struct {
	Capacity  int    // configured capacity (0 for disabled cache)
	Size      int    // current number of entries
	Hits      uint64 // total cache hits since construction
	Misses    uint64 // total cache misses since construction
	Evictions uint64 // total evictions since construction
}

// Stats reports rule set lookup metrics.
type Stats struct {
	Addresses    int
	Domains      int
	BloomRejects uint64 // lookups answered by a definite Bloom negative
	SetLookups   uint64 // lookups that reached the exact sets
	Cache        CacheStats
}
