package metrics

import (
	"github.com/dgraph-io/ristretto"
	"github.com/prometheus/client_golang/prometheus"
)

// CacheStatsProvider returns ristretto metrics keyed by cache name.
type CacheStatsProvider interface {
	Stats() map[string]*ristretto.Metrics
}

// cacheCollector exposes ristretto counters for every cache a provider reports:
// - renderpool_cache_hits_total{cache}
// - renderpool_cache_misses_total{cache}
// - renderpool_cache_keys_added_total{cache}
// - renderpool_cache_keys_evicted_total{cache}
type cacheCollector struct {
	provider CacheStatsProvider

	hitsDesc    *prometheus.Desc
	missesDesc  *prometheus.Desc
	addedDesc   *prometheus.Desc
	evictedDesc *prometheus.Desc
}

// NewCacheCollector creates a collector reading p at scrape time.
func NewCacheCollector(p CacheStatsProvider) prometheus.Collector {
	labels := []string{"cache"}
	return &cacheCollector{
		provider:    p,
		hitsDesc:    prometheus.NewDesc(namespace+"_cache_hits_total", "Cache hits.", labels, nil),
		missesDesc:  prometheus.NewDesc(namespace+"_cache_misses_total", "Cache misses.", labels, nil),
		addedDesc:   prometheus.NewDesc(namespace+"_cache_keys_added_total", "Keys admitted to the cache.", labels, nil),
		evictedDesc: prometheus.NewDesc(namespace+"_cache_keys_evicted_total", "Keys evicted from the cache.", labels, nil),
	}
}

func (c *cacheCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.hitsDesc
	ch <- c.missesDesc
	ch <- c.addedDesc
	ch <- c.evictedDesc
}

func (c *cacheCollector) Collect(ch chan<- prometheus.Metric) {
	for name, m := range c.provider.Stats() {
		if m == nil {
			continue
		}
		ch <- prometheus.MustNewConstMetric(c.hitsDesc, prometheus.CounterValue, float64(m.Hits()), name)
		ch <- prometheus.MustNewConstMetric(c.missesDesc, prometheus.CounterValue, float64(m.Misses()), name)
		ch <- prometheus.MustNewConstMetric(c.addedDesc, prometheus.CounterValue, float64(m.KeysAdded()), name)
		ch <- prometheus.MustNewConstMetric(c.evictedDesc, prometheus.CounterValue, float64(m.KeysEvicted()), name)
	}
}
