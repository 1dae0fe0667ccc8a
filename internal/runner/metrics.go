package runner

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts session outcomes, component steps and capability calls.
type Metrics struct {
	sessions *prometheus.CounterVec
	steps    *prometheus.CounterVec
	calls    *prometheus.CounterVec
}

// NewMetrics registers the runner collectors. A nil registerer falls back to
// the default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		sessions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "planora_sessions_total",
			Help: "Finished planning sessions by terminal status.",
		}, []string{"status"}),
		steps: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "planora_steps_total",
			Help: "Component executions by component name.",
		}, []string{"component"}),
		calls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "planora_capability_calls_total",
			Help: "Capability executions by name and outcome.",
		}, []string{"capability", "outcome"}),
	}
}

func (m *Metrics) session(status string) {
	if m != nil {
		m.sessions.WithLabelValues(status).Inc()
	}
}

func (m *Metrics) step(component string) {
	if m != nil {
		m.steps.WithLabelValues(component).Inc()
	}
}

func (m *Metrics) call(capability, outcome string) {
	if m != nil {
		m.calls.WithLabelValues(capability, outcome).Inc()
	}
}
