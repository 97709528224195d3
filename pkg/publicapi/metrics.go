package publicapi

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tesoro-project/tesoro/pkg/cache"
)

// statser is the slice of cache.Cache the collector needs; Stats does
// not depend on the cache's value type.
type statser interface {
	Stats() cache.Stats
}

var (
	descCacheEntries = prometheus.NewDesc(
		"tesoro_cache_entries", "Number of live entries in the cache.", nil, nil)
	descCacheHits = prometheus.NewDesc(
		"tesoro_cache_hits_total", "Cache lookups that found a live entry.", nil, nil)
	descCacheMisses = prometheus.NewDesc(
		"tesoro_cache_misses_total", "Cache lookups that found nothing or an expired entry.", nil, nil)
	descCacheHitRate = prometheus.NewDesc(
		"tesoro_cache_hit_rate", "Cache hit rate in percent.", nil, nil)
)

type cacheCollector struct {
	cache statser
}

func (c *cacheCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- descCacheEntries
	ch <- descCacheHits
	ch <- descCacheMisses
	ch <- descCacheHitRate
}

func (c *cacheCollector) Collect(ch chan<- prometheus.Metric) {
	stats := c.cache.Stats()
	ch <- prometheus.MustNewConstMetric(descCacheEntries, prometheus.GaugeValue, float64(stats.Entries))
	ch <- prometheus.MustNewConstMetric(descCacheHits, prometheus.CounterValue, float64(stats.Hits))
	ch <- prometheus.MustNewConstMetric(descCacheMisses, prometheus.CounterValue, float64(stats.Misses))
	ch <- prometheus.MustNewConstMetric(descCacheHitRate, prometheus.GaugeValue, stats.HitRate)
}

// registerCacheCollector exposes the cache's counters on /metrics. A
// second registration (e.g. a restarted server in tests) is a no-op.
func registerCacheCollector(registerer prometheus.Registerer, c statser) {
	_ = registerer.Register(&cacheCollector{cache: c})
}
