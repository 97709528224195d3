package memoize

import (
	"context"
	"time"

	"github.com/tesoro-project/tesoro/pkg/cache"
)

// Memoizer caches the results of a computation keyed by an explicit
// key-derivation function. It replaces decorator-style memoization that
// reflects over a function's arguments: the caller states how an
// argument maps to a cache key, so two equal arguments always share an
// entry and nothing depends on runtime introspection.
type Memoizer[K any, V any] struct {
	cache   cache.Cache[V]
	keyFn   func(K) string
	ttl     time.Duration
	compute func(context.Context, K) (V, error)
}

func NewMemoizer[K any, V any](
	c cache.Cache[V],
	keyFn func(K) string,
	ttl time.Duration,
	compute func(context.Context, K) (V, error),
) *Memoizer[K, V] {
	return &Memoizer[K, V]{
		cache:   c,
		keyFn:   keyFn,
		ttl:     ttl,
		compute: compute,
	}
}

// Call returns the cached result for arg if one is live, otherwise runs
// the computation and stores its result. Errors are returned to the
// caller and never cached.
func (m *Memoizer[K, V]) Call(ctx context.Context, arg K) (V, error) {
	key := m.keyFn(arg)
	if value, found := m.cache.Get(key); found {
		return value, nil
	}

	value, err := m.compute(ctx, arg)
	if err != nil {
		return *new(V), err
	}

	m.cache.SetWithTTL(key, value, m.ttl)
	return value, nil
}

// Invalidate removes the cached result for arg, if any.
func (m *Memoizer[K, V]) Invalidate(arg K) bool {
	return m.cache.Delete(m.keyFn(arg))
}
