// Package policy decides which response actions are permitted for a scored
// incident. It never executes actions and never modifies the score.
package policy

import (
	"github.com/ppiankov/socwatch/internal/model"
	"github.com/ppiankov/socwatch/internal/scoring"
)

// Decision is the policy outcome attached to every triage result.
type Decision = model.Decision

// HighRiskReason is recorded when the baseline grants containment actions.
const HighRiskReason = "High-risk incident allows containment actions."

// Baseline actions.
var (
	BaselineActions = []string{"monitor", "investigate"}
	HighRiskActions = []string{"contain", "reset_credentials"}
)

// Evaluate computes the decision for a scoring result and incident entities.
//
// Evaluation order (must not be changed):
//  1. Baseline: monitor, investigate; high level adds contain, reset_credentials
//  2. Rules in supplied order, all matches apply
//  3. After every rule: denied actions are removed from allowed
//
// An empty or nil rule list yields the baseline only.
func Evaluate(score scoring.Result, entities []model.Entity, rules []Rule) Decision {
	d := &decisionBuilder{
		allowed: append([]string{}, BaselineActions...),
		denied:  []string{},
		reasons: []string{},
	}

	if score.Level == scoring.LevelHigh {
		d.allow(HighRiskActions...)
		d.reasons = append(d.reasons, HighRiskReason)
	}

	for _, rule := range rules {
		if !matches(rule.When, score.Score, entities) {
			continue
		}

		d.deny(rule.Effect.DenyActions...)
		d.allow(rule.Effect.AllowActions...)
		if rule.Effect.RequireApproval {
			d.approval = true
		}

		reason := rule.Reason
		if reason == "" {
			reason = DefaultRuleReason
		}
		d.reasons = append(d.reasons, reason)
		d.prune()
	}

	d.prune()
	return Decision{
		AllowedActions:   d.allowed,
		DeniedActions:    d.denied,
		RequiresApproval: d.approval,
		Reasons:          d.reasons,
	}
}

// matches reports whether a rule condition holds. An entity_type condition
// never matches an incident without entities.
func matches(when Condition, score int, entities []model.Entity) bool {
	if when.MinRisk != nil && score < *when.MinRisk {
		return false
	}
	if when.EntityType != "" && !model.HasEntityType(entities, when.EntityType) {
		return false
	}
	return true
}

type decisionBuilder struct {
	allowed  []string
	denied   []string
	approval bool
	reasons  []string
}

func (d *decisionBuilder) allow(actions ...string) {
	for _, a := range actions {
		if !contains(d.allowed, a) {
			d.allowed = append(d.allowed, a)
		}
	}
}

func (d *decisionBuilder) deny(actions ...string) {
	for _, a := range actions {
		if !contains(d.denied, a) {
			d.denied = append(d.denied, a)
		}
	}
}

// prune enforces the invariant that no denied action is allowed.
func (d *decisionBuilder) prune() {
	kept := d.allowed[:0]
	for _, a := range d.allowed {
		if !contains(d.denied, a) {
			kept = append(kept, a)
		}
	}
	d.allowed = kept
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
