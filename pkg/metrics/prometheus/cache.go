package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/reqkit/pkg/metrics"
)

func init() {
	metrics.RegisterCacheMetricsConstructor(func() metrics.CacheMetrics {
		return newCacheMetrics()
	})
}

type cacheMetrics struct {
	getOperations *prometheus.CounterVec
	getDuration   *prometheus.HistogramVec
	setOperations *prometheus.CounterVec
	setDuration   *prometheus.HistogramVec
	setBytes      *prometheus.HistogramVec
	memoryBytes   prometheus.Gauge
	diskBytes     prometheus.Gauge
	evictions     *prometheus.CounterVec
	expiries      prometheus.Counter
	coalesced     prometheus.Counter
}

func newCacheMetrics() metrics.CacheMetrics {
	reg := metrics.GetRegistry()

	return &cacheMetrics{
		getOperations: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "reqkit_cache_get_operations_total",
				Help: "Total number of cache lookups by tier and outcome",
			},
			[]string{"tier", "outcome"}, // tier: "memory", "disk"; outcome: "hit", "miss"
		),
		getDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "reqkit_cache_get_duration_milliseconds",
				Help:    "Duration of cache lookups in milliseconds",
				Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 10, 50, 100},
			},
			[]string{"tier"},
		),
		setOperations: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "reqkit_cache_set_operations_total",
				Help: "Total number of cache writes by tier",
			},
			[]string{"tier"},
		),
		setDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "reqkit_cache_set_duration_milliseconds",
				Help:    "Duration of cache writes in milliseconds",
				Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 10, 50, 100},
			},
			[]string{"tier"},
		),
		setBytes: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "reqkit_cache_set_bytes",
				Help:    "Distribution of bytes written to cache",
				Buckets: []float64{256, 1024, 4096, 16384, 65536, 262144, 1048576},
			},
			[]string{"tier"},
		),
		memoryBytes: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "reqkit_cache_memory_bytes",
				Help: "Current approximate memory tier size in bytes",
			},
		),
		diskBytes: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "reqkit_cache_disk_bytes",
				Help: "Current approximate disk tier size in bytes",
			},
		),
		evictions: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "reqkit_cache_evictions_total",
				Help: "Total number of cache evictions by tier and reason",
			},
			[]string{"tier", "reason"}, // reason: "capacity", "expired"
		),
		expiries: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "reqkit_cache_expired_entries_total",
				Help: "Total number of entries removed for having expired",
			},
		),
		coalesced: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "reqkit_coalesced_requests_total",
				Help: "Total number of requests merged into an in-flight op instead of being admitted independently",
			},
		),
	}
}

func (m *cacheMetrics) ObserveGet(tier string, hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	m.getOperations.WithLabelValues(tier, outcome).Inc()
	m.getDuration.WithLabelValues(tier).Observe(duration.Seconds() * 1000)
}

func (m *cacheMetrics) ObserveSet(tier string, bytes int64, duration time.Duration) {
	if m == nil {
		return
	}
	m.setOperations.WithLabelValues(tier).Inc()
	m.setDuration.WithLabelValues(tier).Observe(duration.Seconds() * 1000)
	if bytes > 0 {
		m.setBytes.WithLabelValues(tier).Observe(float64(bytes))
	}
}

func (m *cacheMetrics) RecordMemoryBytes(bytes int64) {
	if m == nil {
		return
	}
	m.memoryBytes.Set(float64(bytes))
}

func (m *cacheMetrics) RecordDiskBytes(bytes int64) {
	if m == nil {
		return
	}
	m.diskBytes.Set(float64(bytes))
}

func (m *cacheMetrics) RecordEviction(tier, reason string) {
	if m == nil {
		return
	}
	m.evictions.WithLabelValues(tier, reason).Inc()
}

func (m *cacheMetrics) RecordExpiry(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.expiries.Add(float64(count))
}

func (m *cacheMetrics) RecordCoalesced() {
	if m == nil {
		return
	}
	m.coalesced.Inc()
}
