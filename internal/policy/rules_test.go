package policy

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func writeRules(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write rules: %v", err)
	}
	return path
}

func TestLoadRulesYAML(t *testing.T) {
	path := writeRules(t, "policy.yaml", `
- when:
    min_risk: 70
    entity_type: user
  effect:
    deny_actions: [contain]
    require_approval: true
  reason: exec rule
- effect:
    allow_actions: [notify]
`)
	rules, err := LoadRules(path)
	if err != nil {
		t.Fatalf("LoadRules: %v", err)
	}
	if len(rules) != 2 {
		t.Fatalf("expected 2 rules, got %d", len(rules))
	}
	if rules[0].When.MinRisk == nil || *rules[0].When.MinRisk != 70 {
		t.Errorf("expected min_risk 70, got %v", rules[0].When.MinRisk)
	}
	if rules[0].When.EntityType != "user" || !rules[0].Effect.RequireApproval {
		t.Errorf("unexpected first rule: %+v", rules[0])
	}
	if rules[1].When.MinRisk != nil {
		t.Error("expected absent min_risk to stay nil")
	}
}

func TestLoadRulesJSON(t *testing.T) {
	path := writeRules(t, "policy.json", `[
  {"when": {"min_risk": 40}, "effect": {"allow_actions": ["block_ip"]}, "reason": "json rule"}
]`)
	rules, err := LoadRules(path)
	if err != nil {
		t.Fatalf("LoadRules: %v", err)
	}
	if len(rules) != 1 || rules[0].Reason != "json rule" {
		t.Errorf("unexpected rules: %+v", rules)
	}
}

func TestLoadRulesYMLExtension(t *testing.T) {
	path := writeRules(t, "policy.yml", "- reason: short\n")
	if _, err := LoadRules(path); err != nil {
		t.Errorf("expected .yml accepted, got %v", err)
	}
}

func TestLoadRulesMissingFileFailsClosed(t *testing.T) {
	_, err := LoadRules(filepath.Join(t.TempDir(), "does_not_exist.yaml"))
	if err == nil {
		t.Fatal("expected error for missing policy file")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("expected not found error, got %v", err)
	}
}

func TestLoadRulesRejectsExtension(t *testing.T) {
	path := writeRules(t, "policy.toml", "rules = []")
	if _, err := LoadRules(path); err == nil {
		t.Error("expected error for unsupported extension")
	}
}

func TestLoadRulesRejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"mapping.yaml": "when:\n  min_risk: 70\n",
		"broken.json":  `[{"when": `,
		"empty.yaml":   "   \n",
		"null.json":    "null",
		"comment.yaml": "# nothing here\n",
		"float.json":   `[{"when": {"min_risk": 70.5}}]`,
	}
	for name, content := range cases {
		path := writeRules(t, name, content)
		if _, err := LoadRules(path); err == nil {
			t.Errorf("%s: expected parse error", name)
		}
	}
}

func TestLoadRulesEmptyListIsValid(t *testing.T) {
	path := writeRules(t, "policy.json", "[]")
	rules, err := LoadRules(path)
	if err != nil {
		t.Fatalf("expected empty list accepted, got %v", err)
	}
	if len(rules) != 0 {
		t.Errorf("expected no rules, got %v", rules)
	}
}

func TestLoadRulesWithHash(t *testing.T) {
	content := "- reason: hashed\n"
	path := writeRules(t, "policy.yaml", content)

	rs, err := LoadRulesWithHash(path)
	if err != nil {
		t.Fatalf("LoadRulesWithHash: %v", err)
	}
	if rs.Hash != HashBytes([]byte(content)) {
		t.Errorf("hash mismatch: %s", rs.Hash)
	}
	if !strings.HasPrefix(rs.Hash, "sha256:") || len(rs.Hash) != len("sha256:")+64 {
		t.Errorf("unexpected hash format: %s", rs.Hash)
	}
}

func TestDefaultRulesYAMLParses(t *testing.T) {
	var rules []Rule
	if err := yaml.Unmarshal([]byte(DefaultRulesYAML()), &rules); err != nil {
		t.Fatalf("default rules YAML invalid: %v", err)
	}
	if len(rules) != 2 {
		t.Fatalf("expected 2 starter rules, got %d", len(rules))
	}
	if rules[0].When.MinRisk == nil || *rules[0].When.MinRisk != 70 {
		t.Error("expected first starter rule gated at min_risk 70")
	}
	if !contains(rules[0].Effect.DenyActions, "contain") || !rules[0].Effect.RequireApproval {
		t.Errorf("unexpected starter rule: %+v", rules[0])
	}
}
