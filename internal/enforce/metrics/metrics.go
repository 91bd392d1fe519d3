package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the enforcement module.
type Metrics struct {
	// Decisions applied by action.
	ActionsApplied *prometheus.CounterVec

	// Decisions skipped because the action was already applied on the case.
	ActionsSkipped *prometheus.CounterVec

	// Hook dispatch failures by action.
	HookFailures *prometheus.CounterVec

	// Case lifecycle transitions by target status.
	Transitions *prometheus.CounterVec
}

// New creates a new Metrics instance with all enforcement metrics registered.
func New() *Metrics {
	return &Metrics{
		ActionsApplied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vigil_enforce_actions_applied_total",
			Help: "Total enforcement actions applied by action",
		}, []string{"action"}),

		ActionsSkipped: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vigil_enforce_actions_skipped_total",
			Help: "Total enforcement actions skipped as already applied",
		}, []string{"action"}),

		HookFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vigil_enforce_hook_failures_total",
			Help: "Total action hook dispatch failures by action",
		}, []string{"action"}),

		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vigil_enforce_case_transitions_total",
			Help: "Total case lifecycle transitions by target status",
		}, []string{"status"}),
	}
}

// RecordApplied records an applied action.
func (m *Metrics) RecordApplied(action string) {
	if m != nil {
		m.ActionsApplied.WithLabelValues(action).Inc()
	}
}

// RecordSkipped records an idempotency skip.
func (m *Metrics) RecordSkipped(action string) {
	if m != nil {
		m.ActionsSkipped.WithLabelValues(action).Inc()
	}
}

// RecordHookFailure records a hook dispatch failure.
func (m *Metrics) RecordHookFailure(action string) {
	if m != nil {
		m.HookFailures.WithLabelValues(action).Inc()
	}
}

// RecordTransition records a case lifecycle transition.
func (m *Metrics) RecordTransition(status string) {
	if m != nil {
		m.Transitions.WithLabelValues(status).Inc()
	}
}
