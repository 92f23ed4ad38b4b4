package policy

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultRuleReason is appended for matching rules that carry no reason.
const DefaultRuleReason = "Policy rule applied."

// Condition restricts when a rule applies. Absent conditions are vacuously true.
type Condition struct {
	MinRisk    *int   `yaml:"min_risk,omitempty" json:"min_risk,omitempty"`
	EntityType string `yaml:"entity_type,omitempty" json:"entity_type,omitempty"`
}

// Effect is what a matching rule contributes to the decision.
type Effect struct {
	AllowActions    []string `yaml:"allow_actions,omitempty" json:"allow_actions,omitempty"`
	DenyActions     []string `yaml:"deny_actions,omitempty" json:"deny_actions,omitempty"`
	RequireApproval bool     `yaml:"require_approval,omitempty" json:"require_approval,omitempty"`
}

// Rule is one organizational policy rule. Rules are evaluated in order and
// every matching rule applies (not first-match-wins).
type Rule struct {
	When   Condition `yaml:"when" json:"when"`
	Effect Effect    `yaml:"effect" json:"effect"`
	Reason string    `yaml:"reason,omitempty" json:"reason,omitempty"`
}

// Ruleset is a loaded rule list together with the hash of its source bytes.
type Ruleset struct {
	Rules []Rule
	Hash  string
}

// LoadRules reads an ordered rule list from a .json, .yaml or .yml file.
// Fail-closed: a missing file, unreadable file, unsupported extension or
// malformed content is an error, never an empty rule list.
func LoadRules(path string) ([]Rule, error) {
	rs, err := LoadRulesWithHash(path)
	if err != nil {
		return nil, err
	}
	return rs.Rules, nil
}

// LoadRulesWithHash loads rules and returns them with the SHA-256 of the
// raw file bytes, formatted as "sha256:<hex>".
func LoadRulesWithHash(path string) (*Ruleset, error) {
	if path == "" {
		return nil, errors.New("policy file path is empty")
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("policy file must be .json or .yaml: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("policy file not found: %s", path)
		}
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}

	rules, err := parseRules(ext, data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse policy file %s: %w", path, err)
	}

	return &Ruleset{Rules: rules, Hash: HashBytes(data)}, nil
}

// HashBytes returns the "sha256:<hex>" digest of data.
func HashBytes(data []byte) string {
	h := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(h[:])
}

func parseRules(ext string, data []byte) ([]Rule, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, errors.New("file is empty")
	}

	var rules []Rule
	switch ext {
	case ".json":
		if err := json.Unmarshal(data, &rules); err != nil {
			return nil, err
		}
	default:
		if err := yaml.Unmarshal(data, &rules); err != nil {
			return nil, err
		}
	}
	if rules == nil {
		// "null" or a comment-only document.
		return nil, errors.New("expected a list of rules")
	}
	return rules, nil
}

// DefaultRulesYAML returns a commented starter policy for init-policy.
func DefaultRulesYAML() string {
	return `# socwatch policy rules
# Generated by: socwatch init-policy
#
# Baseline (always applied, cannot be disabled):
#   allowed: monitor, investigate
#   level high: also contain, reset_credentials
#
# Rules below are evaluated in order and EVERY matching rule applies.
# Denial always wins: an action in any deny_actions list is never allowed.
#
# Fields:
#   when.min_risk: skip the rule if the score is below this value
#   when.entity_type: skip the rule unless some incident entity has this type
#   effect.allow_actions: actions to add to the allowed set
#   effect.deny_actions: actions to add to the denied set
#   effect.require_approval: once true, approval stays required
#   reason: appended to the decision reasons (default "Policy rule applied.")

- when:
    min_risk: 70
    entity_type: user
  effect:
    deny_actions: [contain]
    require_approval: true
  reason: "Executive high-risk incidents require SOC lead approval before containment."

- when:
    min_risk: 40
    entity_type: ip
  effect:
    allow_actions: [block_ip]
  reason: "Medium-risk external IPs may be blocked at the perimeter."
`
}
