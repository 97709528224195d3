//go:build unit || !integration

package memoize_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tesoro-project/tesoro/pkg/cache"
	"github.com/tesoro-project/tesoro/pkg/cache/basic"
	"github.com/tesoro-project/tesoro/pkg/cache/memoize"
	"github.com/tesoro-project/tesoro/pkg/logger"
)

func TestMemoizerCachesResults(t *testing.T) {
	logger.ConfigureTestLogging(t)
	ctx := context.Background()

	var c cache.Cache[int]
	c, err := basic.NewCache[int]()
	require.NoError(t, err)
	defer c.Close()

	calls := 0
	m := memoize.NewMemoizer(c,
		func(arg int) string { return memoize.Key("square", arg) },
		time.Hour,
		func(_ context.Context, arg int) (int, error) {
			calls++
			return arg * arg, nil
		},
	)

	for i := 0; i < 3; i++ {
		v, err := m.Call(ctx, 7)
		require.NoError(t, err)
		require.Equal(t, 49, v)
	}
	require.Equal(t, 1, calls)

	v, err := m.Call(ctx, 8)
	require.NoError(t, err)
	require.Equal(t, 64, v)
	require.Equal(t, 2, calls)
}

func TestMemoizerDoesNotCacheErrors(t *testing.T) {
	logger.ConfigureTestLogging(t)
	ctx := context.Background()

	var c cache.Cache[string]
	c, err := basic.NewCache[string]()
	require.NoError(t, err)
	defer c.Close()

	boom := errors.New("boom")
	calls := 0
	m := memoize.NewMemoizer(c,
		func(arg string) string { return memoize.Key("lookup", arg) },
		time.Hour,
		func(_ context.Context, arg string) (string, error) {
			calls++
			if calls == 1 {
				return "", boom
			}
			return "ok", nil
		},
	)

	_, err = m.Call(ctx, "x")
	require.ErrorIs(t, err, boom)

	v, err := m.Call(ctx, "x")
	require.NoError(t, err)
	require.Equal(t, "ok", v)
	require.Equal(t, 2, calls)
}

func TestMemoizerInvalidate(t *testing.T) {
	logger.ConfigureTestLogging(t)
	ctx := context.Background()

	var c cache.Cache[int]
	c, err := basic.NewCache[int]()
	require.NoError(t, err)
	defer c.Close()

	calls := 0
	m := memoize.NewMemoizer(c,
		func(arg int) string { return memoize.Key("count", arg) },
		time.Hour,
		func(_ context.Context, arg int) (int, error) {
			calls++
			return calls, nil
		},
	)

	_, err = m.Call(ctx, 1)
	require.NoError(t, err)
	require.True(t, m.Invalidate(1))

	v, err := m.Call(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 2, v)
}

func TestKeyIsDeterministic(t *testing.T) {
	require.Equal(t, memoize.Key("f", 1, "a"), memoize.Key("f", 1, "a"))
	require.NotEqual(t, memoize.Key("f", 1, "a"), memoize.Key("f", "a", 1))
	require.NotEqual(t, memoize.Key("f", 1), memoize.Key("g", 1))
}

func TestKeyIsTypeAware(t *testing.T) {
	// same printed form, different types
	require.NotEqual(t, memoize.Key("f", 1), memoize.Key("f", "1"))
	require.NotEqual(t, memoize.Key("f", int32(1)), memoize.Key("f", int64(1)))
}

func TestKeyFieldsOrderIndependent(t *testing.T) {
	a := memoize.KeyFields("f", map[string]any{"x": 1, "y": "two"})
	b := memoize.KeyFields("f", map[string]any{"y": "two", "x": 1})
	require.Equal(t, a, b)

	c := memoize.KeyFields("f", map[string]any{"x": 1, "y": "three"})
	require.NotEqual(t, a, c)
}
