package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for flow execution.
type Metrics struct {
	// Outcomes by flow and outcome ("success" or the error kind)
	Outcomes *prometheus.CounterVec

	// End-to-end flow latency including the repository read
	Duration *prometheus.HistogramVec

	// Pending transfers read as approved because their deadline passed
	ImplicitApprovals prometheus.Counter
}

// New registers flow metrics on the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers flow metrics on reg.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Outcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nomulus_flow_outcomes_total",
			Help: "Total flow executions by flow and outcome",
		}, []string{"flow", "outcome"}),

		Duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "nomulus_flow_duration_seconds",
			Help:    "Duration of flow execution",
			Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"flow"}),

		ImplicitApprovals: factory.NewCounter(prometheus.CounterOpts{
			Name: "nomulus_transfer_implicit_approvals_observed_total",
			Help: "Pending transfers reported as approved because the automatic approval deadline passed",
		}),
	}
}

// IncrementOutcome records one flow outcome.
func (m *Metrics) IncrementOutcome(flow, outcome string) {
	if m != nil {
		m.Outcomes.WithLabelValues(flow, outcome).Inc()
	}
}

// ObserveDuration records how long a flow ran.
func (m *Metrics) ObserveDuration(flow string, d time.Duration) {
	if m != nil {
		m.Duration.WithLabelValues(flow).Observe(d.Seconds())
	}
}

func (m *Metrics) IncrementImplicitApproval() {
	if m != nil {
		m.ImplicitApprovals.Inc()
	}
}
