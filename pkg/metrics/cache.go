package metrics

import "time"

// CacheMetrics records two-tier cache activity. Every method must accept
// a nil receiver as a no-op, so callers can pass metrics.NewCacheMetrics()
// straight through without a conditional.
type CacheMetrics interface {
	ObserveGet(tier string, hit bool, duration time.Duration)
	ObserveSet(tier string, bytes int64, duration time.Duration)
	RecordMemoryBytes(bytes int64)
	RecordDiskBytes(bytes int64)
	RecordEviction(tier, reason string)
	RecordExpiry(count int)
	RecordCoalesced()
}

// newPrometheusCacheMetrics is wired up by pkg/metrics/prometheus/cache.go's
// package init, mirroring the constructor-registration indirection used
// to avoid an import cycle between metrics and metrics/prometheus.
var newPrometheusCacheMetrics func() CacheMetrics

// RegisterCacheMetricsConstructor is called by pkg/metrics/prometheus
// during its package init to supply the concrete constructor.
func RegisterCacheMetricsConstructor(constructor func() CacheMetrics) {
	newPrometheusCacheMetrics = constructor
}

// NewCacheMetrics returns the registered Prometheus-backed CacheMetrics,
// or a no-op implementation when metrics are disabled. The cache package
// calls every method unconditionally; noopCacheMetrics is what makes that
// safe without a nil check at each call site.
func NewCacheMetrics() CacheMetrics {
	if !IsEnabled() || newPrometheusCacheMetrics == nil {
		return noopCacheMetrics{}
	}
	return newPrometheusCacheMetrics()
}

type noopCacheMetrics struct{}

func (noopCacheMetrics) ObserveGet(tier string, hit bool, duration time.Duration) {}
func (noopCacheMetrics) ObserveSet(tier string, bytes int64, duration time.Duration) {}
func (noopCacheMetrics) RecordMemoryBytes(bytes int64)    {}
func (noopCacheMetrics) RecordDiskBytes(bytes int64)      {}
func (noopCacheMetrics) RecordEviction(tier, reason string) {}
func (noopCacheMetrics) RecordExpiry(count int)           {}
func (noopCacheMetrics) RecordCoalesced()                 {}
