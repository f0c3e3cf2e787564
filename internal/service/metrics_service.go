package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP layer,
// the cache and tracker sessions.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	dbQueryDuration *prometheus.HistogramVec
	persistTotal    *prometheus.CounterVec
	persistDuration *prometheus.HistogramVec
	deletionsTotal  *prometheus.CounterVec
	openSessions    prometheus.Gauge

	cacheHitCount  uint64
	cacheMissCount uint64
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	dbQueryDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "db_query_duration_seconds",
		Help:    "Duration of database queries",
		Buckets: prometheus.DefBuckets,
	}, []string{"query"})

	persistTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tracker_persist_total",
		Help: "Tracker save attempts by outcome",
	}, []string{"kind", "result"})

	persistDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tracker_persist_duration_seconds",
		Help:    "Duration of tracker writes to the project store",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})

	deletionsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tracker_deletions_total",
		Help: "Coordinated tracker deletions by outcome",
	}, []string{"kind", "result"})

	openSessions := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tracker_sessions_open",
		Help: "Number of open tracker sessions",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		dbQueryDuration, persistTotal, persistDuration, deletionsTotal, openSessions, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheLatency:    cacheLatency,
		cacheWrite:      cacheWrite,
		cacheHitRatio:   cacheHitRatio,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		dbQueryDuration: dbQueryDuration,
		persistTotal:    persistTotal,
		persistDuration: persistDuration,
		deletionsTotal:  deletionsTotal,
		openSessions:    openSessions,
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	if m.cacheLatency != nil {
		m.cacheLatency.Observe(duration.Seconds())
	}
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	total := hits + misses
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil || m.cacheWrite == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveDBQuery records database query timing.
func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(label).Observe(duration.Seconds())
}

// RecordTrackerPersist counts one save attempt. Skipped saves carry no duration.
func (m *MetricsService) RecordTrackerPersist(kind, result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.persistTotal.WithLabelValues(kind, result).Inc()
	if result != persistSkipped {
		m.persistDuration.WithLabelValues(kind).Observe(duration.Seconds())
	}
}

// RecordTrackerDeletion counts one coordinated deletion.
func (m *MetricsService) RecordTrackerDeletion(kind, result string) {
	if m == nil {
		return
	}
	m.deletionsTotal.WithLabelValues(kind, result).Inc()
}

// SessionOpened increments the open session gauge.
func (m *MetricsService) SessionOpened() {
	if m == nil {
		return
	}
	m.openSessions.Inc()
}

// SessionClosed decrements the open session gauge.
func (m *MetricsService) SessionClosed() {
	if m == nil {
		return
	}
	m.openSessions.Dec()
}
