package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the policy module.
type Metrics struct {
	// Decisions by policy and resulting action.
	Decisions *prometheus.CounterVec

	// Rejections (non-none decisions) by reason.
	Rejections *prometheus.CounterVec

	// Rules skipped because a predicate was malformed. Non-zero values mean
	// the default action may be applying unintentionally.
	RulesSkipped *prometheus.CounterVec
}

// New creates a new Metrics instance with all policy module metrics registered.
func New() *Metrics {
	return &Metrics{
		Decisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vigil_policy_decisions_total",
			Help: "Total policy decisions by policy and action",
		}, []string{"policy_id", "action"}),

		Rejections: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vigil_policy_rejections_total",
			Help: "Total non-none policy decisions by reason",
		}, []string{"reason"}),

		RulesSkipped: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vigil_policy_rules_skipped_total",
			Help: "Total rules skipped due to malformed predicates",
		}, []string{"policy_id"}),
	}
}

// RecordDecision records an evaluated decision.
func (m *Metrics) RecordDecision(policyID, action string) {
	if m != nil {
		m.Decisions.WithLabelValues(policyID, action).Inc()
	}
}

// RecordRejection records a non-none decision by reason.
func (m *Metrics) RecordRejection(reason string) {
	if m != nil {
		m.Rejections.WithLabelValues(reason).Inc()
	}
}

// RecordRuleSkipped records a rule skipped for a malformed predicate.
func (m *Metrics) RecordRuleSkipped(policyID string) {
	if m != nil {
		m.RulesSkipped.WithLabelValues(policyID).Inc()
	}
}
