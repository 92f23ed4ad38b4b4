package model

import (
	"github.com/ppiankov/socwatch/internal/mitre"
	"github.com/ppiankov/socwatch/internal/scoring"
)

// EngineVersion is reported in every result's meta block.
const EngineVersion = "v1"

// Result modes.
const (
	ModeDeterministic   = "deterministic"
	ModeDeterministicAI = "deterministic+ai"
)

// Meta describes how a result was produced.
type Meta struct {
	EngineVersion string `json:"engine_version"`
	Mode          string `json:"mode"`
	PolicyHash    string `json:"policy_hash,omitempty"`
}

// Decision is the policy outcome for one run. Allowed and denied actions
// are always disjoint.
type Decision struct {
	AllowedActions   []string `json:"allowed_actions"`
	DeniedActions    []string `json:"denied_actions"`
	RequiresApproval bool     `json:"requires_approval"`
	Reasons          []string `json:"reasons"`
}

// Brief is the short narrative projection of a result.
type Brief struct {
	Headline            string   `json:"headline"`
	Summary             []string `json:"summary"`
	RecommendedNextStep string   `json:"recommended_next_step"`
}

// MitreMapping is one technique entry of an advisory output.
type MitreMapping struct {
	Tactic     string   `json:"tactic"`
	Technique  string   `json:"technique"`
	Confidence float64  `json:"confidence"`
	Evidence   []string `json:"evidence"`
}

// Recommendation is one suggested analyst step of an advisory output.
type Recommendation struct {
	Type        string `json:"type"` // query | verification | containment | monitoring
	Description string `json:"description"`
}

// Advisory is the schema-validated narrative produced by the advisory layer.
// It is never consulted by the deterministic pipeline.
type Advisory struct {
	Observations    []string         `json:"observations"`
	Assessment      string           `json:"assessment"`
	MitreMapping    []MitreMapping   `json:"mitre_mapping"`
	Recommendations []Recommendation `json:"recommendations"`
	Confidence      int              `json:"confidence"`
	Assumptions     []string         `json:"assumptions"`
	MissingData     []string         `json:"missing_data"`
}

// Result is the combined output returned to every caller.
type Result struct {
	Meta     Meta               `json:"meta"`
	Incident Incident           `json:"incident"`
	Scoring  scoring.Result     `json:"scoring"`
	Mitre    []mitre.Hypothesis `json:"mitre"`
	Policy   Decision           `json:"policy"`
	Summary  *Brief             `json:"summary,omitempty"`
	AI       *Advisory          `json:"ai,omitempty"`
}

// WithAdvisory returns a shallow copy of r carrying the advisory output
// and the deterministic+ai mode. r itself is left untouched.
func (r *Result) WithAdvisory(ai *Advisory) *Result {
	out := *r
	out.AI = ai
	out.Meta.Mode = ModeDeterministicAI
	return &out
}
