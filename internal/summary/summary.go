// Package summary projects a triage result into a short analyst brief.
// It adds no information that is not already in the result.
package summary

import (
	"fmt"
	"strings"

	"github.com/ppiankov/socwatch/internal/model"
)

// Brief is the analyst-facing projection of a result.
type Brief = model.Brief

const maxDrivers = 3

// Summarize builds the brief for r.
func Summarize(r *model.Result) Brief {
	lines := []string{
		fmt.Sprintf("Incident '%s' reported with severity %s.", r.Incident.Title, r.Incident.Severity),
		fmt.Sprintf("Risk score assessed at %d (%s).", r.Scoring.Score, r.Scoring.Level),
	}

	if len(r.Scoring.Reasons) > 0 {
		drivers := r.Scoring.Reasons
		if len(drivers) > maxDrivers {
			drivers = drivers[:maxDrivers]
		}
		lines = append(lines, "Primary risk drivers: "+strings.Join(drivers, "; "))
	}

	if len(r.Policy.DeniedActions) > 0 {
		lines = append(lines, "Policy restrictions applied: "+strings.Join(r.Policy.DeniedActions, ", "))
	}
	if r.Policy.RequiresApproval {
		lines = append(lines, "Human approval required before containment actions.")
	}

	return Brief{
		Headline:            r.Incident.Title,
		Summary:             lines,
		RecommendedNextStep: NextStep(r.Policy),
	}
}

// NextStep recommends what the analyst should do given a policy decision.
func NextStep(d model.Decision) string {
	if d.RequiresApproval {
		return "Escalate to SOC lead for approval."
	}
	if len(d.AllowedActions) > 0 {
		return fmt.Sprintf("Proceed with: %s.", strings.Join(d.AllowedActions, ", "))
	}
	return "Continue monitoring."
}

// Attach returns a copy of r carrying its brief.
func Attach(r *model.Result) *model.Result {
	out := *r
	b := Summarize(r)
	out.Summary = &b
	return &out
}
