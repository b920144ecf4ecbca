package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the verification module.
type Metrics struct {
	// Verification outcomes by kind and purpose.
	Outcome *prometheus.CounterVec

	// Full verification latency including the location fix.
	VerifyLatency prometheus.Histogram

	// Detection layers degraded by internal faults, by layer.
	LayerFaults *prometheus.CounterVec

	// Records removed by the retention sweeper, by record class.
	SweepDeleted *prometheus.CounterVec
}

// New creates a Metrics instance with all verification metrics registered.
func New() *Metrics {
	return &Metrics{
		Outcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "veriloc_verification_outcomes_total",
			Help: "Total verification outcomes by kind and purpose",
		}, []string{"kind", "purpose"}),

		VerifyLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "veriloc_verification_duration_seconds",
			Help:    "Duration of full verification calls including the position fix",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),

		LayerFaults: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "veriloc_detection_layer_faults_total",
			Help: "Detection layers degraded to non-triggering by internal faults",
		}, []string{"layer"}),

		SweepDeleted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "veriloc_retention_sweep_deleted_total",
			Help: "Records deleted by the retention sweeper by record class",
		}, []string{"class"}),
	}
}

// IncrementOutcome records one verification outcome.
func (m *Metrics) IncrementOutcome(kind, purpose string) {
	if m != nil {
		m.Outcome.WithLabelValues(kind, purpose).Inc()
	}
}

// ObserveVerifyLatency records the duration of a full verification call.
func (m *Metrics) ObserveVerifyLatency(d time.Duration) {
	if m != nil {
		m.VerifyLatency.Observe(d.Seconds())
	}
}

// IncrementLayerFault records one degraded detection layer.
func (m *Metrics) IncrementLayerFault(layer string) {
	if m != nil {
		m.LayerFaults.WithLabelValues(layer).Inc()
	}
}

// AddSweepDeleted records records removed for one class in one sweep.
func (m *Metrics) AddSweepDeleted(class string, n int) {
	if m != nil && n > 0 {
		m.SweepDeleted.WithLabelValues(class).Add(float64(n))
	}
}
