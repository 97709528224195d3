package basic

import (
	"time"

	"github.com/benbjohnson/clock"
)

const (
	DefaultTTL              = 5 * time.Minute
	DefaultCleanupFrequency = 60 * time.Second
)

type Config struct {
	defaultTTL       time.Duration
	cleanupFrequency time.Duration
	clk              clock.Clock
}

type Option func(*Config)

// WithDefaultTTL sets the TTL applied by Set when no explicit TTL is
// given.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(o *Config) {
		o.defaultTTL = ttl
	}
}

// WithCleanupFrequency sets the interval between background sweeps of
// expired entries.
func WithCleanupFrequency(cleanupFrequency time.Duration) Option {
	return func(o *Config) {
		o.cleanupFrequency = cleanupFrequency
	}
}

// WithClock overrides the cache's time source. Tests use a mock clock to
// drive expiry and the sweep deterministically.
func WithClock(clk clock.Clock) Option {
	return func(o *Config) {
		o.clk = clk
	}
}
