package basic

import (
	"math"
	"strings"
	"time"

	realsync "sync"

	sync "github.com/bacalhau-project/golang-mutex-tracer"
	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog/log"

	"github.com/tesoro-project/tesoro/pkg/cache"
)

var _ cache.Cache[string] = (*TTLCache[string])(nil)

type entry[T any] struct {
	value        T
	createdAt    time.Time
	expiresAt    time.Time
	lastAccessed time.Time
}

// TTLCache is the standard cache.Cache implementation: a mutex-guarded
// map with lazy expiry on reads and a background sweep that removes
// expired entries on a fixed interval.
type TTLCache[T any] struct {
	mu      sync.Mutex
	entries map[string]entry[T]
	hits    uint64
	misses  uint64

	defaultTTL time.Duration
	clk        clock.Clock

	closer    chan struct{}
	closeOnce realsync.Once
}

func NewCache[T any](options ...Option) (*TTLCache[T], error) {
	config := &Config{
		defaultTTL:       DefaultTTL,
		cleanupFrequency: DefaultCleanupFrequency,
		clk:              clock.New(),
	}
	for _, opt := range options {
		opt(config)
	}
	if config.cleanupFrequency <= 0 {
		// clk.Ticker panics on non-positive intervals, and the value can
		// arrive straight from config
		log.Warn().Dur("Frequency", config.cleanupFrequency).
			Msg("non-positive cleanup frequency, using default")
		config.cleanupFrequency = DefaultCleanupFrequency
	}

	c := &TTLCache[T]{
		entries:    make(map[string]entry[T]),
		defaultTTL: config.defaultTTL,
		clk:        config.clk,
		closer:     make(chan struct{}),
	}
	c.mu.EnableTracerWithOpts(sync.Opts{
		Threshold: 10 * time.Millisecond,
		Id:        "TTLCache.mu",
	})

	go c.cleanup(config.cleanupFrequency)
	return c, nil
}

func (c *TTLCache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clk.Now()
	item, exists := c.entries[key]
	if !exists {
		c.misses++
		return *new(T), false
	}
	if now.After(item.expiresAt) {
		// expired entries are logically absent; reclaim eagerly rather
		// than waiting for the next sweep
		delete(c.entries, key)
		c.misses++
		log.Trace().Str("Key", key).Msg("cache miss (expired)")
		return *new(T), false
	}

	item.lastAccessed = now
	c.entries[key] = item
	c.hits++
	return item.value, true
}

// Set stores value under key with the cache's default TTL.
func (c *TTLCache[T]) Set(key string, value T) {
	c.SetWithTTL(key, value, c.defaultTTL)
}

// SetWithTTL stores value under key, replacing any previous entry for
// that key and computing a fresh expiry from ttl. A zero or negative ttl
// produces an entry that is already expired, eligible for removal on the
// next read or sweep.
func (c *TTLCache[T]) SetWithTTL(key string, value T, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clk.Now()
	c.entries[key] = entry[T]{
		value:     value,
		createdAt: now,
		expiresAt: now.Add(ttl),
	}
}

func (c *TTLCache[T]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, exists := c.entries[key]
	delete(c.entries, key)
	return exists
}

// Clear drops every entry and resets the hit/miss counters.
func (c *TTLCache[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]entry[T])
	c.hits = 0
	c.misses = 0
}

// InvalidatePattern removes every key containing substr and returns the
// number of entries removed. Used to drop a logical group of keys that
// share a naming convention, e.g. everything cached for one user.
func (c *TTLCache[T]) InvalidatePattern(substr string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key := range c.entries {
		if strings.Contains(key, substr) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

func (c *TTLCache[T]) Stats() cache.Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := cache.Stats{
		Entries: len(c.entries),
		Hits:    c.hits,
		Misses:  c.misses,
	}
	if total := c.hits + c.misses; total > 0 {
		stats.HitRate = roundRate(float64(c.hits) / float64(total) * 100)
	}
	return stats
}

// Close stops the background sweep. Idempotent.
func (c *TTLCache[T]) Close() {
	c.closeOnce.Do(func() {
		close(c.closer)
	})
}

func (c *TTLCache[T]) cleanup(frequency time.Duration) {
	ticker := c.clk.Ticker(frequency)
	defer ticker.Stop()

	for {
		select {
		case <-c.closer:
			return
		case <-ticker.C:
			// Stop the ticker whilst we process evictions
			// otherwise we'll be constrained to finishing
			// evictions in <frequency
			ticker.Stop()
			c.sweep()
			ticker.Reset(frequency)
		}
	}
}

// sweep removes every entry whose expiry has passed. A panic in one pass
// must not kill the cleanup loop, so it is recovered and logged here.
func (c *TTLCache[T]) sweep() {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("Panic", r).Msg("cache sweep recovered from panic")
		}
	}()

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clk.Now()
	removed := 0
	for key, item := range c.entries {
		if now.After(item.expiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	if removed > 0 {
		log.Debug().Int("Removed", removed).Msg("cache sweep removed expired entries")
	}
}

func roundRate(rate float64) float64 {
	return math.Round(rate*100) / 100
}
