// Package metricsdecorator provides a CacheDecorator that counts Get
// hits/misses and Put/Delete calls for one named cache via Prometheus.
package metricsdecorator

import (
	"cachecoord/pkg/cacheaccess"

	"github.com/prometheus/client_golang/prometheus"
)

// Counting is a CacheDecorator that increments Prometheus counters for
// every Get/Put/Delete that passes through the decorated cache, in
// addition to (not instead of) the coordinator's own in-process LRU
// statistics.
type Counting struct {
	Hits   *prometheus.CounterVec
	Misses *prometheus.CounterVec
	Writes *prometheus.CounterVec
}

// NewCounting builds a Counting decorator registered on reg.
func NewCounting(reg prometheus.Registerer) *Counting {
	c := &Counting{
		Hits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cachecoord",
			Subsystem: "decorator",
			Name:      "get_hits_total",
			Help:      "Total number of Get calls that found a value, by cache name.",
		}, []string{"cache"}),
		Misses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cachecoord",
			Subsystem: "decorator",
			Name:      "get_misses_total",
			Help:      "Total number of Get calls that found nothing, by cache name.",
		}, []string{"cache"}),
		Writes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cachecoord",
			Subsystem: "decorator",
			Name:      "writes_total",
			Help:      "Total number of Put/Delete calls, by cache name and operation.",
		}, []string{"cache", "op"}),
	}
	reg.MustRegister(c.Hits, c.Misses, c.Writes)
	return c
}

// Decorate wraps persistent with counting instrumentation for name.
func (c *Counting) Decorate(id, name string, persistent cacheaccess.PersistentCache, cross cacheaccess.CrossProcessCacheAccess, async cacheaccess.AsyncCacheAccess) cacheaccess.PersistentCache {
	return &countingCache{name: name, inner: persistent, counters: c}
}

type countingCache struct {
	name     string
	inner    cacheaccess.PersistentCache
	counters *Counting
}

func (c *countingCache) Get(key []byte) ([]byte, bool, error) {
	v, ok, err := c.inner.Get(key)
	if err != nil {
		return v, ok, err
	}
	if ok {
		c.counters.Hits.WithLabelValues(c.name).Inc()
	} else {
		c.counters.Misses.WithLabelValues(c.name).Inc()
	}
	return v, ok, err
}

func (c *countingCache) Put(key, value []byte) error {
	err := c.inner.Put(key, value)
	if err == nil {
		c.counters.Writes.WithLabelValues(c.name, "put").Inc()
	}
	return err
}

func (c *countingCache) Delete(key []byte) error {
	err := c.inner.Delete(key)
	if err == nil {
		c.counters.Writes.WithLabelValues(c.name, "delete").Inc()
	}
	return err
}
