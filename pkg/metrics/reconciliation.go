package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ReconciliationMetrics records verification outcomes and sweep timings.
type ReconciliationMetrics struct {
	outcomes *prometheus.CounterVec
	sweeps   *prometheus.HistogramVec
}

// NewReconciliationMetrics registers the reconciliation metrics on the
// provided registerer.
func NewReconciliationMetrics(reg prometheus.Registerer) *ReconciliationMetrics {
	if reg == nil {
		return &ReconciliationMetrics{}
	}
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reconciliation_outcomes_total",
		Help: "Verification outcomes per settlement system.",
	}, []string{"system", "outcome"})
	sweeps := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "reconciliation_sweep_duration_seconds",
		Help:    "Duration of reconciliation sweeps in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"trigger"})
	reg.MustRegister(outcomes, sweeps)
	return &ReconciliationMetrics{
		outcomes: outcomes,
		sweeps:   sweeps,
	}
}

// IncOutcome increments the outcome counter for one verification.
func (m *ReconciliationMetrics) IncOutcome(system, outcome string) {
	if m == nil || m.outcomes == nil {
		return
	}
	m.outcomes.WithLabelValues(normalizeLabel(system), normalizeLabel(outcome)).Inc()
}

// ObserveSweep records the duration of one sweep.
func (m *ReconciliationMetrics) ObserveSweep(trigger string, duration time.Duration) {
	if m == nil || m.sweeps == nil {
		return
	}
	m.sweeps.WithLabelValues(normalizeLabel(trigger)).Observe(duration.Seconds())
}
