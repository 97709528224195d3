package cache

import "time"

// Cache is a TTL-based in-memory key/value store. Lookups never fail:
// absence (including expiry) is reported as a normal miss. Implementations
// are safe for concurrent use and run their own background maintenance
// until Close is called.
type Cache[T any] interface {
	// Get returns the live value for key. An entry whose TTL has passed is
	// treated as a miss and removed.
	Get(key string) (T, bool)

	// Set stores value under key with the cache's default TTL, replacing
	// any existing entry and resetting its expiry.
	Set(key string, value T)

	// SetWithTTL stores value under key with an explicit TTL. A zero or
	// negative TTL yields an entry that is already expired.
	SetWithTTL(key string, value T, ttl time.Duration)

	// Delete removes key and reports whether an entry was present.
	Delete(key string) bool

	// Clear removes every entry and resets the hit/miss counters.
	Clear()

	// InvalidatePattern removes every key containing substr and returns
	// the number of entries removed.
	InvalidatePattern(substr string) int

	// Stats returns a snapshot of the cache's counters.
	Stats() Stats

	// Close stops background maintenance. The cache must not be used
	// after Close.
	Close()
}

// Stats is a point-in-time snapshot of a cache's counters.
type Stats struct {
	Entries int     `json:"entries"`
	Hits    uint64  `json:"hits"`
	Misses  uint64  `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}
