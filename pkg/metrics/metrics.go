// Package metrics provides Prometheus metric definitions and a metrics HTTP
// server for the cache access coordinator.
//
// Usage:
//
//	m := metrics.NewCoordinatorMetrics()
//	go m.Serve(":9090")
package metrics

import (
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// CoordinatorMetrics holds all Prometheus metrics for a cache access
// coordinator.
type CoordinatorMetrics struct {
	OpensTotal *prometheus.CounterVec

	LockAcquisitionsTotal *prometheus.CounterVec
	LockWaitSeconds       *prometheus.HistogramVec
	ContentionEventsTotal prometheus.Counter

	UseCacheDurationSeconds *prometheus.HistogramVec

	RegisteredCaches prometheus.Gauge

	CacheHitsTotal      *prometheus.CounterVec
	CacheMissesTotal    *prometheus.CounterVec
	CacheEvictionsTotal *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewCoordinatorMetrics registers and returns a new CoordinatorMetrics
// instance backed by its own Prometheus registry. All metrics use the
// "cachecoord" namespace.
func NewCoordinatorMetrics() *CoordinatorMetrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &CoordinatorMetrics{
		registry: reg,

		OpensTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cachecoord",
			Name:      "opens_total",
			Help:      "Total number of times a coordinator was opened, by configured lock mode.",
		}, []string{"mode"}),

		LockAcquisitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cachecoord",
			Name:      "lock_acquisitions_total",
			Help:      "Total number of file lock acquisitions, by mode.",
		}, []string{"mode"}),

		LockWaitSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cachecoord",
			Name:      "lock_wait_seconds",
			Help:      "Time spent waiting to acquire the file lock.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"mode"}),

		ContentionEventsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cachecoord",
			Name:      "contention_events_total",
			Help:      "Total number of contention signals observed from the lock manager.",
		}),

		UseCacheDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cachecoord",
			Name:      "use_cache_duration_seconds",
			Help:      "Duration of useCache frames, by description.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"description"}),

		RegisteredCaches: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "cachecoord",
			Name:      "registered_caches",
			Help:      "Number of caches currently registered with the coordinator.",
		}),

		CacheHitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cachecoord",
			Name:      "cache_hits_total",
			Help:      "Total number of in-process LRU hits, by cache name.",
		}, []string{"cache"}),

		CacheMissesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cachecoord",
			Name:      "cache_misses_total",
			Help:      "Total number of in-process LRU misses, by cache name.",
		}, []string{"cache"}),

		CacheEvictionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cachecoord",
			Name:      "cache_evictions_total",
			Help:      "Total number of in-process LRU evictions, by cache name.",
		}, []string{"cache"}),
	}

	reg.MustRegister(
		m.OpensTotal,
		m.LockAcquisitionsTotal,
		m.LockWaitSeconds,
		m.ContentionEventsTotal,
		m.UseCacheDurationSeconds,
		m.RegisteredCaches,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.CacheEvictionsTotal,
	)

	return m
}

// RecordOpen increments OpensTotal for the given lock mode.
func (m *CoordinatorMetrics) RecordOpen(mode string) {
	m.OpensTotal.WithLabelValues(mode).Inc()
}

// RecordLockAcquired increments LockAcquisitionsTotal and observes the wait
// duration for the given lock mode.
func (m *CoordinatorMetrics) RecordLockAcquired(mode string, waited time.Duration) {
	m.LockAcquisitionsTotal.WithLabelValues(mode).Inc()
	m.LockWaitSeconds.WithLabelValues(mode).Observe(waited.Seconds())
}

// RecordContention increments ContentionEventsTotal.
func (m *CoordinatorMetrics) RecordContention() {
	m.ContentionEventsTotal.Inc()
}

// ObserveUseCache records the duration of one useCache frame.
func (m *CoordinatorMetrics) ObserveUseCache(description string, d time.Duration) {
	m.UseCacheDurationSeconds.WithLabelValues(description).Observe(d.Seconds())
}

// SetRegisteredCaches sets the current registry size gauge.
func (m *CoordinatorMetrics) SetRegisteredCaches(n int) {
	m.RegisteredCaches.Set(float64(n))
}

// RecordCacheHit, RecordCacheMiss and RecordCacheEviction track the
// in-process LRU layer of one named cache.
func (m *CoordinatorMetrics) RecordCacheHit(cache string)      { m.CacheHitsTotal.WithLabelValues(cache).Inc() }
func (m *CoordinatorMetrics) RecordCacheMiss(cache string)     { m.CacheMissesTotal.WithLabelValues(cache).Inc() }
func (m *CoordinatorMetrics) RecordCacheEviction(cache string) { m.CacheEvictionsTotal.WithLabelValues(cache).Inc() }

// Serve starts an HTTP server exposing the /metrics endpoint on addr. It
// blocks until the server exits and logs any error.
func (m *CoordinatorMetrics) Serve(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	log.Printf("cache access coordinator metrics listening on %s/metrics", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Printf("metrics server error: %v", err)
	}
}
