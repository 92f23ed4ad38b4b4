package summary

import (
	"strings"
	"testing"

	"github.com/ppiankov/socwatch/internal/model"
	"github.com/ppiankov/socwatch/internal/scoring"
)

func sampleResult() *model.Result {
	return &model.Result{
		Meta:     model.Meta{EngineVersion: "v1", Mode: model.ModeDeterministic},
		Incident: model.Incident{IncidentID: "inc-001", Title: "Suspicious sign-in", Severity: "high"},
		Scoring: scoring.Result{
			Score: 100,
			Level: scoring.LevelHigh,
			Reasons: []string{
				"VirusTotal malicious ratio high (12.77%) +30",
				"AbuseIPDB confidence high (85) +25",
				"Domain very new (3d) +15",
				"Login anomaly detected +20",
			},
		},
		Policy: model.Decision{
			AllowedActions: []string{"monitor", "investigate", "reset_credentials"},
			DeniedActions:  []string{"contain"},
			Reasons:        []string{"High-risk incident allows containment actions."},
		},
	}
}

func TestSummarizeLines(t *testing.T) {
	b := Summarize(sampleResult())

	if b.Headline != "Suspicious sign-in" {
		t.Errorf("unexpected headline %q", b.Headline)
	}
	want := []string{
		"Incident 'Suspicious sign-in' reported with severity high.",
		"Risk score assessed at 100 (high).",
		"Primary risk drivers: VirusTotal malicious ratio high (12.77%) +30; AbuseIPDB confidence high (85) +25; Domain very new (3d) +15",
		"Policy restrictions applied: contain",
	}
	if len(b.Summary) != len(want) {
		t.Fatalf("expected %d lines, got %v", len(want), b.Summary)
	}
	for i, w := range want {
		if b.Summary[i] != w {
			t.Errorf("line %d: expected %q, got %q", i, w, b.Summary[i])
		}
	}
	if b.RecommendedNextStep != "Proceed with: monitor, investigate, reset_credentials." {
		t.Errorf("unexpected next step %q", b.RecommendedNextStep)
	}
}

func TestSummarizeApprovalEscalates(t *testing.T) {
	r := sampleResult()
	r.Policy.RequiresApproval = true

	b := Summarize(r)
	if b.RecommendedNextStep != "Escalate to SOC lead for approval." {
		t.Errorf("unexpected next step %q", b.RecommendedNextStep)
	}
	if last := b.Summary[len(b.Summary)-1]; !strings.Contains(last, "approval required") {
		t.Errorf("expected approval line, got %q", last)
	}
}

func TestNextStepNothingAllowed(t *testing.T) {
	if got := NextStep(model.Decision{}); got != "Continue monitoring." {
		t.Errorf("unexpected next step %q", got)
	}
}

func TestAttachDoesNotMutate(t *testing.T) {
	r := sampleResult()
	out := Attach(r)

	if r.Summary != nil {
		t.Error("Attach must not mutate its input")
	}
	if out.Summary == nil || out.Summary.Headline != "Suspicious sign-in" {
		t.Errorf("expected summary attached, got %+v", out.Summary)
	}
}
