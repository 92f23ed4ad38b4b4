package mcp

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ppiankov/socwatch/internal/logging"
	"github.com/ppiankov/socwatch/internal/model"
	"github.com/ppiankov/socwatch/internal/policy"
	"github.com/ppiankov/socwatch/internal/service"
	"github.com/ppiankov/socwatch/internal/triage"
)

func newTestServer(t *testing.T, rules policy.Source) *Server {
	t.Helper()
	svc := service.New(service.Config{Triage: triage.Options{Rules: rules}, Logger: logging.Discard()})
	return New(Config{Service: svc, Rules: rules, Version: "test", Logger: logging.Discard()})
}

func writePolicy(t *testing.T) policy.Source {
	t.Helper()
	path := filepath.Join(t.TempDir(), "policy.yaml")
	if err := os.WriteFile(path, []byte(policy.DefaultRulesYAML()), 0644); err != nil {
		t.Fatal(err)
	}
	return policy.FileSource{Path: path}
}

func incident() map[string]any {
	return map[string]any{
		"incident_id": "inc-mcp",
		"source":      "local",
		"title":       "Suspicious sign-in",
		"severity":    "high",
		"timestamp":   "2026-01-20T12:00:00Z",
		"entities":    []any{map[string]any{"type": "user", "value": "exec@corp.com"}},
	}
}

func TestTriageTool(t *testing.T) {
	s := newTestServer(t, writePolicy(t))

	result, out, err := s.handleTriage(context.Background(), &mcpsdk.CallToolRequest{}, TriageInput{
		Incident: incident(),
		Signals: map[string]any{
			"virustotal": map[string]any{"malicious": 12, "total": 94},
			"abuseipdb":  map[string]any{"confidence": 85},
			"context":    map[string]any{"login_anomaly": true},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != nil && result.IsError {
		t.Fatal("expected success, got error result")
	}
	if out.Result.Scoring.Score != 75 {
		t.Errorf("expected score 75, got %d", out.Result.Scoring.Score)
	}
	if !out.Result.Policy.RequiresApproval {
		t.Error("expected starter policy to require approval for a high-risk user incident")
	}
	if out.Result.Summary == nil {
		t.Error("expected summary attached")
	}
}

func TestTriageToolMissingIncident(t *testing.T) {
	s := newTestServer(t, nil)
	if _, _, err := s.handleTriage(context.Background(), &mcpsdk.CallToolRequest{}, TriageInput{}); err == nil {
		t.Fatal("expected error without incident")
	}
}

func TestTriageToolValidationError(t *testing.T) {
	s := newTestServer(t, nil)
	inc := incident()
	delete(inc, "source")

	_, _, err := s.handleTriage(context.Background(), &mcpsdk.CallToolRequest{}, TriageInput{Incident: inc})
	if err == nil {
		t.Fatal("expected validation error")
	}
}

func TestScoreTool(t *testing.T) {
	s := newTestServer(t, nil)

	_, out, err := s.handleScore(context.Background(), &mcpsdk.CallToolRequest{}, ScoreInput{
		Signals: map[string]any{"context": map[string]any{"login_anomaly": true, "mfa_enabled": false}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Scoring.Score != 30 || out.Scoring.Level != "low" {
		t.Errorf("expected 30/low, got %d/%s", out.Scoring.Score, out.Scoring.Level)
	}
}

func TestPolicyCheckTool(t *testing.T) {
	s := newTestServer(t, writePolicy(t))

	_, out, err := s.handlePolicyCheck(context.Background(), &mcpsdk.CallToolRequest{}, PolicyCheckInput{
		Score:    85,
		Entities: []model.Entity{{Type: "user", Value: "exec@corp.com"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Level != "high" {
		t.Errorf("expected high, got %s", out.Level)
	}
	for _, a := range out.Decision.AllowedActions {
		if a == "contain" {
			t.Error("contain must be denied by the starter policy")
		}
	}
	if out.PolicyHash == "" {
		t.Error("expected policy hash")
	}
}

func TestPolicyCheckBaselineWithoutRules(t *testing.T) {
	s := newTestServer(t, nil)

	_, out, err := s.handlePolicyCheck(context.Background(), &mcpsdk.CallToolRequest{}, PolicyCheckInput{Score: 20})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Decision.AllowedActions) != 2 || out.Decision.RequiresApproval {
		t.Errorf("expected baseline decision, got %+v", out.Decision)
	}
}

func TestPolicyCheckRejectsOutOfRange(t *testing.T) {
	s := newTestServer(t, nil)
	if _, _, err := s.handlePolicyCheck(context.Background(), &mcpsdk.CallToolRequest{}, PolicyCheckInput{Score: 101}); err == nil {
		t.Error("expected error for score above 100")
	}
}
