package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/reqkit/pkg/metrics"
)

func init() {
	metrics.RegisterQueueMetricsConstructor(func() metrics.QueueMetrics {
		return newQueueMetrics()
	})
}

type queueMetrics struct {
	pending  *prometheus.GaugeVec
	inFlight *prometheus.GaugeVec
}

func newQueueMetrics() metrics.QueueMetrics {
	reg := metrics.GetRegistry()

	return &queueMetrics{
		pending: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "reqkit_queue_pending_ops",
				Help: "Number of ops currently waiting for admission, by queue name",
			},
			[]string{"queue"},
		),
		inFlight: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "reqkit_queue_in_flight_ops",
				Help: "Number of ops currently running, by queue name",
			},
			[]string{"queue"},
		),
	}
}

func (m *queueMetrics) RecordPending(queue string, n int) {
	if m == nil {
		return
	}
	m.pending.WithLabelValues(queue).Set(float64(n))
}

func (m *queueMetrics) RecordInFlight(queue string, n int) {
	if m == nil {
		return
	}
	m.inFlight.WithLabelValues(queue).Set(float64(n))
}
