package policy

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	dErrors "vigil/pkg/domain-errors"
)

// Wire format for policy documents. Published documents are immutable; a new
// version supersedes the old one at load time.
type policyDoc struct {
	PolicyID      string    `json:"policy_id"`
	Version       int       `json:"version"`
	DefaultAction string    `json:"default_action"`
	Rules         []ruleDoc `json:"rules"`
}

type ruleDoc struct {
	RuleID string  `json:"rule_id"`
	When   whenDoc `json:"when"`
	Then   thenDoc `json:"then"`
}

type whenDoc struct {
	TextAnyOf    []string `json:"text_any_of,omitempty"`
	ImageAnyOf   []string `json:"image_any_of,omitempty"`
	SignalsAllOf []string `json:"signals_all_of,omitempty"`
	TrustBelow   *int     `json:"trust_below,omitempty"`
}

type thenDoc struct {
	Action   string         `json:"action"`
	Severity int            `json:"severity"`
	Reason   string         `json:"reason,omitempty"`
	Payload  map[string]any `json:"payload,omitempty"`
}

// LoadFile reads and validates a policy document from disk. Malformed rules
// are fatal here: a policy that silently degrades to its default action is
// worse than a server that refuses to start.
func LoadFile(path string) (*Policy, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodePolicyInvalid, "read policy file")
	}
	return Load(raw)
}

// Load parses and validates a JSON policy document.
func Load(raw []byte) (*Policy, error) {
	var doc policyDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodePolicyInvalid, "parse policy document")
	}

	if doc.PolicyID == "" {
		return nil, dErrors.New(dErrors.CodePolicyInvalid, "policy_id is required")
	}
	if doc.Version <= 0 {
		return nil, dErrors.New(dErrors.CodePolicyInvalid, "version must be positive")
	}

	defaultAction := Action(doc.DefaultAction)
	if !defaultAction.IsValid() {
		return nil, dErrors.Newf(dErrors.CodePolicyInvalid, "invalid default_action %q", doc.DefaultAction)
	}

	p := &Policy{
		ID:            doc.PolicyID,
		Version:       doc.Version,
		DefaultAction: defaultAction,
		Rules:         make([]Rule, 0, len(doc.Rules)),
	}

	seen := make(map[string]bool, len(doc.Rules))
	for _, rd := range doc.Rules {
		rule, err := parseRule(rd)
		if err != nil {
			return nil, err
		}
		if seen[rule.ID] {
			return nil, dErrors.Newf(dErrors.CodePolicyInvalid, "duplicate rule_id %q", rule.ID)
		}
		seen[rule.ID] = true
		p.Rules = append(p.Rules, rule)
	}

	return p, nil
}

func parseRule(rd ruleDoc) (Rule, error) {
	if rd.RuleID == "" {
		return Rule{}, dErrors.New(dErrors.CodePolicyInvalid, "rule_id is required")
	}

	action := Action(rd.Then.Action)
	if !action.IsValid() {
		return Rule{}, dErrors.Newf(dErrors.CodePolicyInvalid, "rule %q: invalid action %q", rd.RuleID, rd.Then.Action)
	}
	if rd.Then.Severity < 0 {
		return Rule{}, dErrors.Newf(dErrors.CodePolicyInvalid, "rule %q: severity must be non-negative", rd.RuleID)
	}

	var when []Predicate

	if len(rd.When.TextAnyOf) > 0 {
		thresholds, err := parseThresholds(rd.RuleID, rd.When.TextAnyOf)
		if err != nil {
			return Rule{}, err
		}
		when = append(when, Predicate{Kind: PredicateTextAnyOf, Thresholds: thresholds})
	}
	if len(rd.When.ImageAnyOf) > 0 {
		thresholds, err := parseThresholds(rd.RuleID, rd.When.ImageAnyOf)
		if err != nil {
			return Rule{}, err
		}
		when = append(when, Predicate{Kind: PredicateImageAnyOf, Thresholds: thresholds})
	}
	if len(rd.When.SignalsAllOf) > 0 {
		for _, key := range rd.When.SignalsAllOf {
			if key == "" {
				return Rule{}, dErrors.Newf(dErrors.CodePolicyInvalid, "rule %q: empty signal key", rd.RuleID)
			}
		}
		when = append(when, Predicate{Kind: PredicateSignalsAllOf, Keys: rd.When.SignalsAllOf})
	}
	if rd.When.TrustBelow != nil {
		if *rd.When.TrustBelow < 0 {
			return Rule{}, dErrors.Newf(dErrors.CodePolicyInvalid, "rule %q: trust_below must be non-negative", rd.RuleID)
		}
		when = append(when, Predicate{Kind: PredicateTrustBelow, Trust: *rd.When.TrustBelow})
	}

	if len(when) == 0 {
		return Rule{}, dErrors.Newf(dErrors.CodePolicyInvalid, "rule %q: when clause has no predicates", rd.RuleID)
	}

	return Rule{
		ID:   rd.RuleID,
		When: when,
		Then: Effect{
			Action:   action,
			Severity: rd.Then.Severity,
			Reason:   rd.Then.Reason,
			Payload:  rd.Then.Payload,
		},
	}, nil
}

// parseThresholds parses "category>threshold" comparison strings, e.g.
// "profanity>medium".
func parseThresholds(ruleID string, raw []string) ([]LabelThreshold, error) {
	out := make([]LabelThreshold, 0, len(raw))
	for _, s := range raw {
		category, labelName, found := strings.Cut(s, ">")
		if !found || category == "" || labelName == "" {
			return nil, dErrors.Newf(dErrors.CodePolicyInvalid, "rule %q: malformed threshold %q", ruleID, s)
		}
		label, err := ParseLabel(labelName)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodePolicyInvalid, fmt.Sprintf("rule %q: threshold %q", ruleID, s))
		}
		out = append(out, LabelThreshold{Category: category, Min: label})
	}
	return out, nil
}
