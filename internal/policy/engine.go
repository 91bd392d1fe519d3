package policy

import (
	"log/slog"

	"vigil/internal/policy/metrics"
)

// Engine evaluates a policy against observed signals and the author's trust
// score. Evaluation is pure; the optional logger and metrics only record
// rules skipped for malformed predicates, since in that case the default
// action may apply unintentionally.
type Engine struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger attaches a structured logger for skipped-rule diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithMetrics attaches policy metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine constructs an Engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate applies every rule of the policy to the signals and returns the
// combined decision.
//
// All matching rules are considered: the highest severity wins the action and
// payload, while reasons are collected from every match in declaration order.
// Equal severities tie-break by declaration order: the earlier rule wins,
// enforced by the strict > comparison below. If no rule matches, the decision
// is the policy's default action with severity 0 and no reasons.
//
// trust may be nil when the author has no recorded score; it then defaults
// to DefaultTrustScore.
func (e *Engine) Evaluate(p *Policy, sig Signals, trust *int) Decision {
	trustScore := DefaultTrustScore
	if trust != nil {
		trustScore = *trust
	}

	decision := Decision{
		Action:  p.DefaultAction,
		Reasons: []string{},
	}

	matched := false
	for _, rule := range p.Rules {
		ok, malformed := e.ruleMatches(p, rule, sig, trustScore)
		if malformed {
			e.recordSkipped(p, rule)
		}
		if !ok {
			continue
		}

		if !matched || rule.Then.Severity > decision.Severity {
			decision.Action = rule.Then.Action
			decision.Severity = rule.Then.Severity
			decision.Payload = rule.Then.Payload
		}
		matched = true

		if rule.Then.Reason != "" {
			decision.Reasons = append(decision.Reasons, rule.Then.Reason)
		}
	}

	return decision
}

// ruleMatches reports whether every predicate of the rule holds. malformed is
// true when the rule carries a predicate of unknown kind; such a rule never
// matches.
func (e *Engine) ruleMatches(p *Policy, rule Rule, sig Signals, trust int) (ok, malformed bool) {
	for _, pred := range rule.When {
		switch pred.Kind {
		case PredicateTextAnyOf:
			if !anyThresholdHolds(sig.Text, pred.Thresholds) {
				return false, false
			}
		case PredicateImageAnyOf:
			if !anyThresholdHolds(sig.Image, pred.Thresholds) {
				return false, false
			}
		case PredicateSignalsAllOf:
			for _, key := range pred.Keys {
				if !sig.Bools[key] {
					return false, false
				}
			}
		case PredicateTrustBelow:
			if trust >= pred.Trust {
				return false, false
			}
		default:
			// Unknown predicate kind: the rule never matches. Loaded policies
			// cannot reach this arm; hand-built ones can.
			return false, true
		}
	}
	return true, false
}

func anyThresholdHolds(observed map[string]Label, thresholds []LabelThreshold) bool {
	for _, t := range thresholds {
		if observed[t.Category] >= t.Min {
			return true
		}
	}
	return false
}

func (e *Engine) recordSkipped(p *Policy, rule Rule) {
	if e.logger != nil {
		e.logger.Warn("rule skipped: malformed predicate",
			"policy_id", p.ID, "rule_id", rule.ID)
	}
	if e.metrics != nil {
		e.metrics.RecordRuleSkipped(p.ID)
	}
}
