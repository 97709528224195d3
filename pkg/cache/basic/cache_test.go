//go:build unit || !integration

package basic_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/suite"

	"github.com/tesoro-project/tesoro/pkg/cache/basic"
	"github.com/tesoro-project/tesoro/pkg/logger"
)

const (
	oneSecond = time.Duration(1) * time.Second
	oneMinute = oneSecond * 60
	oneHour   = oneMinute * 60
)

type TTLCacheSuite struct {
	suite.Suite
	clock *clock.Mock
}

func TestTTLCacheSuite(t *testing.T) {
	suite.Run(t, new(TTLCacheSuite))
}

func (s *TTLCacheSuite) SetupTest() {
	logger.ConfigureTestLogging(s.T())
	s.clock = clock.NewMock()
}

func (s *TTLCacheSuite) createTestCache(freq time.Duration) *basic.TTLCache[string] {
	c, err := basic.NewCache[string](
		basic.WithDefaultTTL(oneMinute),
		basic.WithCleanupFrequency(freq),
		basic.WithClock(s.clock),
	)
	s.Require().NoError(err)

	// let the cleanup goroutine install its ticker before the test
	// starts moving the mock clock
	time.Sleep(10 * time.Millisecond)
	return c
}

func (s *TTLCacheSuite) TestSetGet() {
	c := s.createTestCache(oneHour)
	defer c.Close()

	c.Set("test", "value")

	v, found := c.Get("test")
	s.Require().True(found)
	s.Require().Equal("value", v)
}

func (s *TTLCacheSuite) TestEmptyKeyIsValid() {
	c := s.createTestCache(oneHour)
	defer c.Close()

	c.Set("", "value")

	v, found := c.Get("")
	s.Require().True(found)
	s.Require().Equal("value", v)
}

func (s *TTLCacheSuite) TestExpiryBoundary() {
	c := s.createTestCache(oneHour)
	defer c.Close()

	c.SetWithTTL("test", "value", oneMinute)

	// an entry exactly at its expiry boundary is still valid
	s.clock.Add(oneMinute)
	v, found := c.Get("test")
	s.Require().True(found)
	s.Require().Equal("value", v)

	// one tick past the boundary it is a miss, and the read removes it
	s.clock.Add(time.Nanosecond)
	_, found = c.Get("test")
	s.Require().False(found)
	s.Require().Equal(0, c.Stats().Entries)
}

func (s *TTLCacheSuite) TestNegativeTTLAlreadyExpired() {
	c := s.createTestCache(oneHour)
	defer c.Close()

	c.SetWithTTL("test", "value", -oneSecond)

	_, found := c.Get("test")
	s.Require().False(found)
}

func (s *TTLCacheSuite) TestOverwriteReplacesValueAndExpiry() {
	c := s.createTestCache(oneHour)
	defer c.Close()

	c.SetWithTTL("test", "first", oneSecond)
	c.SetWithTTL("test", "second", oneHour)

	// past the first TTL, the overwritten expiry still holds
	s.clock.Add(oneMinute)
	v, found := c.Get("test")
	s.Require().True(found)
	s.Require().Equal("second", v)
}

func (s *TTLCacheSuite) TestDeleteIsIdempotent() {
	c := s.createTestCache(oneHour)
	defer c.Close()

	c.Set("test", "value")
	s.Require().True(c.Delete("test"))
	s.Require().False(c.Delete("test"))
	s.Require().False(c.Delete("never-existed"))
	s.Require().Equal(0, c.Stats().Entries)
}

func (s *TTLCacheSuite) TestClearResetsCounters() {
	c := s.createTestCache(oneHour)
	defer c.Close()

	c.Set("test", "value")
	c.Get("test")
	c.Get("missing")

	c.Clear()

	stats := c.Stats()
	s.Require().Equal(0, stats.Entries)
	s.Require().Equal(uint64(0), stats.Hits)
	s.Require().Equal(uint64(0), stats.Misses)
	s.Require().Equal(float64(0), stats.HitRate)
}

func (s *TTLCacheSuite) TestHitRateArithmetic() {
	c := s.createTestCache(oneHour)
	defer c.Close()

	s.Require().Equal(float64(0), c.Stats().HitRate)

	c.Set("test", "value")
	c.Get("test")      // hit
	c.Get("missing-1") // miss
	c.Get("missing-2") // miss

	stats := c.Stats()
	s.Require().Equal(uint64(1), stats.Hits)
	s.Require().Equal(uint64(2), stats.Misses)
	s.Require().Equal(33.33, stats.HitRate)
}

func (s *TTLCacheSuite) TestSweepConvergence() {
	c := s.createTestCache(oneMinute)
	defer c.Close()

	for i := 0; i < 10; i++ {
		c.SetWithTTL(fmt.Sprintf("stale-%d", i), "value", 0)
	}
	s.Require().Equal(10, c.Stats().Entries)

	// no reads or deletes: the sweep alone must reclaim them
	s.clock.Add(oneMinute + oneSecond)
	s.Require().Eventually(func() bool {
		return c.Stats().Entries == 0
	}, 5*time.Second, 10*time.Millisecond)

	// nothing was ever read, so the counters are untouched
	s.Require().Equal(uint64(0), c.Stats().Hits)
	s.Require().Equal(uint64(0), c.Stats().Misses)
}

func (s *TTLCacheSuite) TestNonPositiveCleanupFrequencyDefaults() {
	// config can hand us a zero frequency; the sweep must fall back to
	// the default instead of panicking in its goroutine
	c, err := basic.NewCache[string](
		basic.WithDefaultTTL(oneMinute),
		basic.WithCleanupFrequency(0),
		basic.WithClock(s.clock),
	)
	s.Require().NoError(err)
	defer c.Close()
	time.Sleep(10 * time.Millisecond)

	c.SetWithTTL("stale", "value", 0)
	s.clock.Add(basic.DefaultCleanupFrequency + oneSecond)
	s.Require().Eventually(func() bool {
		return c.Stats().Entries == 0
	}, 5*time.Second, 10*time.Millisecond)
}

func (s *TTLCacheSuite) TestInvalidatePattern() {
	c := s.createTestCache(oneHour)
	defer c.Close()

	c.Set("user:1:a", "value")
	c.Set("user:1:b", "value")
	c.Set("user:2:a", "value")

	s.Require().Equal(2, c.InvalidatePattern("user:1"))

	_, found := c.Get("user:1:a")
	s.Require().False(found)
	_, found = c.Get("user:1:b")
	s.Require().False(found)
	_, found = c.Get("user:2:a")
	s.Require().True(found)
}

func (s *TTLCacheSuite) TestConcurrentAccess() {
	const n = 100

	c := s.createTestCache(oneHour)
	defer c.Close()

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.Set(fmt.Sprintf("key-%d", i), fmt.Sprintf("value-%d", i))
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, found := c.Get(fmt.Sprintf("key-%d", i))
			s.True(found)
			s.Equal(fmt.Sprintf("value-%d", i), v)
		}(i)
	}
	wg.Wait()

	stats := c.Stats()
	s.Require().Equal(n, stats.Entries)
	s.Require().Equal(uint64(n), stats.Hits)
}

func (s *TTLCacheSuite) TestCloseIsIdempotent() {
	c := s.createTestCache(oneHour)
	c.Close()
	c.Close()
}
