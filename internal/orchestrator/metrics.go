package orchestrator

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records orchestrated repository operations
type Metrics struct {
	operations *prometheus.CounterVec
	inFlight   prometheus.Gauge
	duration   prometheus.Histogram
	batches    prometheus.Counter
}

// NewMetrics creates the collectors and registers them on reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gitorbit",
			Name:      "repository_operations_total",
			Help:      "Repository operations run by the orchestrator, by outcome.",
		}, []string{"outcome"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "gitorbit",
			Name:      "repository_operations_in_flight",
			Help:      "Repository operations currently running.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "gitorbit",
			Name:      "repository_operation_duration_seconds",
			Help:      "Duration of repository operations.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		batches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gitorbit",
			Name:      "batches_total",
			Help:      "Batches run by the orchestrator.",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.operations, m.inFlight, m.duration, m.batches)
	}
	return m
}

func (m *Metrics) batchStarted() {
	if m == nil {
		return
	}
	m.batches.Inc()
}

func (m *Metrics) started() {
	if m == nil {
		return
	}
	m.inFlight.Inc()
}

func (m *Metrics) finished(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.inFlight.Dec()
	m.operations.WithLabelValues(outcome).Inc()
	m.duration.Observe(elapsed.Seconds())
}

func (m *Metrics) skipped() {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(outcomeSkipped).Inc()
}
