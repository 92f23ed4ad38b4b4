package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ppiankov/socwatch/internal/config"
	"github.com/ppiankov/socwatch/internal/logging"
	"github.com/ppiankov/socwatch/internal/policy"
)

const requestJSON = `{
  "incident": {
    "incident_id": "inc-cli",
    "source": "local",
    "title": "Suspicious sign-in",
    "severity": "high",
    "timestamp": "2026-01-20T12:00:00Z",
    "entities": [{"type": "user", "value": "exec@corp.com"}]
  },
  "signals": {
    "virustotal": {"malicious": 12, "total": 94},
    "abuseipdb": {"confidence": 85},
    "context": {"login_anomaly": true}
  }
}`

// resetCLI installs defaults in place of PersistentPreRunE and clears flags.
func resetCLI(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg = config.Default()
	cfg.LLM.Offline = true
	logger = logging.Discard()

	triageSummary, triageAI, triageOffline = false, false, false
	triagePolicy, triageRemote, triageAuditLog = "", "", ""
	initPolicyPath, initPolicyForce = "", false
	replayIncident, replayFrom, replayTo, replayFormat = "", "", "", "text"
	return home
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func runTriageCapture(t *testing.T, args []string, stdin string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	triageCmd.SetOut(&out)
	triageCmd.SetIn(strings.NewReader(stdin))
	defer triageCmd.SetOut(nil)
	defer triageCmd.SetIn(nil)
	err := runTriage(triageCmd, args)
	return out.String(), err
}

func TestInitPolicyDefaultLocation(t *testing.T) {
	home := resetCLI(t)

	if err := runInitPolicy(initPolicyCmd, nil); err != nil {
		t.Fatalf("runInitPolicy: %v", err)
	}
	path := filepath.Join(home, ".socwatch", "policy.yaml")
	rules, err := policy.LoadRules(path)
	if err != nil {
		t.Fatalf("generated policy does not load: %v", err)
	}
	if len(rules) != 2 {
		t.Errorf("expected 2 starter rules, got %d", len(rules))
	}
}

func TestInitPolicyNoOverwriteWithoutForce(t *testing.T) {
	resetCLI(t)
	initPolicyPath = filepath.Join(t.TempDir(), "policy.yaml")

	if err := runInitPolicy(initPolicyCmd, nil); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := runInitPolicy(initPolicyCmd, nil); err == nil {
		t.Fatal("expected error on second run without --force")
	}
	initPolicyForce = true
	if err := runInitPolicy(initPolicyCmd, nil); err != nil {
		t.Errorf("expected --force to overwrite, got %v", err)
	}
}

func TestTriageFromFile(t *testing.T) {
	dir := resetCLI(t)
	path := writeFile(t, dir, "req.json", requestJSON)

	out, err := runTriageCapture(t, []string{path}, "")
	if err != nil {
		t.Fatalf("runTriage: %v", err)
	}
	var res map[string]any
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	scoring := res["scoring"].(map[string]any)
	if scoring["score"].(float64) != 75 || scoring["level"] != "high" {
		t.Errorf("unexpected scoring: %v", scoring)
	}
	if _, ok := res["ai"]; ok {
		t.Error("deterministic triage must not include ai")
	}
}

func TestTriageFromStdinWithSummary(t *testing.T) {
	resetCLI(t)
	triageSummary = true

	out, err := runTriageCapture(t, nil, requestJSON)
	if err != nil {
		t.Fatalf("runTriage: %v", err)
	}
	if !strings.Contains(out, "Next step: ") {
		t.Errorf("expected summary text, got %q", out)
	}
}

func TestTriageWithPolicyAndAI(t *testing.T) {
	dir := resetCLI(t)
	triagePolicy = writeFile(t, dir, "policy.yaml", policy.DefaultRulesYAML())
	triageAI = true

	out, err := runTriageCapture(t, nil, requestJSON)
	if err != nil {
		t.Fatalf("runTriage: %v", err)
	}
	var res map[string]any
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if res["meta"].(map[string]any)["mode"] != "deterministic+ai" {
		t.Errorf("unexpected meta: %v", res["meta"])
	}
	if res["policy"].(map[string]any)["requires_approval"] != true {
		t.Error("expected starter policy to require approval")
	}
}

func TestTriageMissingPolicyFailsClosed(t *testing.T) {
	dir := resetCLI(t)
	triagePolicy = filepath.Join(dir, "missing.yaml")

	if _, err := runTriageCapture(t, nil, requestJSON); err == nil {
		t.Fatal("expected error for missing policy file")
	}
}

func TestTriageRejectsMalformedInput(t *testing.T) {
	resetCLI(t)
	if _, err := runTriageCapture(t, nil, "{not json"); err == nil {
		t.Error("expected parse error")
	}
	if _, err := runTriageCapture(t, nil, `{"signals": {}}`); err == nil {
		t.Error("expected error without incident")
	}
}

func TestTriageAuditThenReplay(t *testing.T) {
	dir := resetCLI(t)
	logPath := filepath.Join(dir, "audit.jsonl")
	triageAuditLog = logPath
	triageAI = true

	if _, err := runTriageCapture(t, nil, requestJSON); err != nil {
		t.Fatalf("runTriage: %v", err)
	}

	var out bytes.Buffer
	auditReplayCmd.SetOut(&out)
	defer auditReplayCmd.SetOut(nil)
	replayIncident = "inc-cli"
	replayFormat = "json"
	if err := runAuditReplay(auditReplayCmd, []string{logPath}); err != nil {
		t.Fatalf("runAuditReplay: %v", err)
	}

	var replay struct {
		Summary struct {
			Total         int `json:"total"`
			TriageCount   int `json:"triage_count"`
			FallbackCount int `json:"fallback_count"`
		} `json:"summary"`
	}
	if err := json.Unmarshal(out.Bytes(), &replay); err != nil {
		t.Fatalf("replay output is not JSON: %v\n%s", err, out.String())
	}
	if replay.Summary.TriageCount != 1 || replay.Summary.FallbackCount != 1 {
		t.Errorf("unexpected replay summary: %+v", replay.Summary)
	}

	var verify bytes.Buffer
	auditVerifyCmd.SetOut(&verify)
	defer auditVerifyCmd.SetOut(nil)
	if err := runAuditVerify(auditVerifyCmd, []string{logPath}); err != nil {
		t.Fatalf("runAuditVerify: %v", err)
	}
	if !strings.HasPrefix(verify.String(), "OK: 2 entries verified") || !strings.Contains(verify.String(), "incidents: inc-cli") {
		t.Errorf("unexpected verify output: %q", verify.String())
	}
}

func TestRuntimeErrorsReleaseMetrics(t *testing.T) {
	shutdowns := 0
	orig := initMetrics
	initMetrics = func(context.Context, string, string) func(context.Context) error {
		return func(context.Context) error {
			shutdowns++
			return nil
		}
	}
	t.Cleanup(func() { initMetrics = orig })

	cases := map[string]func(home string){
		"scoring config": func(home string) { cfg.ScoringConfig = filepath.Join(home, "missing-scoring.yaml") },
		"watched policy": func(home string) { cfg.PolicyFile = filepath.Join(home, "missing-policy.yaml") },
		"audit log": func(home string) {
			blocker := writeFile(t, home, "blocker", "not a directory")
			cfg.AuditLog = filepath.Join(blocker, "audit.jsonl")
		},
	}
	for name, setup := range cases {
		setup(resetCLI(t))
		shutdowns = 0
		if _, err := newRuntime(context.Background(), true); err == nil {
			t.Errorf("%s: expected newRuntime error", name)
			continue
		}
		if shutdowns != 1 {
			t.Errorf("%s: expected metrics shutdown once, got %d", name, shutdowns)
		}
	}
}
