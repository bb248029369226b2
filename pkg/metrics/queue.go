package metrics

// QueueMetrics records Named Queue admission activity: how many ops are
// waiting versus running, per queue name.
type QueueMetrics interface {
	RecordPending(queue string, n int)
	RecordInFlight(queue string, n int)
}

var newPrometheusQueueMetrics func() QueueMetrics

// RegisterQueueMetricsConstructor is called by pkg/metrics/prometheus
// during its package init to supply the concrete constructor.
func RegisterQueueMetricsConstructor(constructor func() QueueMetrics) {
	newPrometheusQueueMetrics = constructor
}

// NewQueueMetrics returns the registered Prometheus-backed QueueMetrics,
// or nil when metrics are disabled.
func NewQueueMetrics() QueueMetrics {
	if !IsEnabled() || newPrometheusQueueMetrics == nil {
		return nil
	}
	return newPrometheusQueueMetrics()
}
