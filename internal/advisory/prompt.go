package advisory

import (
	"bytes"
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/ppiankov/socwatch/internal/model"
)

// SystemPrompt is sent as the system message on every live call.
const SystemPrompt = "You are a careful SOC analyst. Follow the schema exactly."

const instructions = `You are a SOC triage assistant. Produce an ADVISORY triage response.
Rules:
1) Output MUST be valid JSON only. No markdown. No extra keys.
2) Do not claim actions were executed.
3) If evidence is missing, state assumptions and missing_data.
4) Keep recommendations actionable and safe.
5) Confidence is 0-100 (integer).

Return JSON matching this exact shape:
{
  "observations": ["..."],
  "assessment": "...",
  "mitre_mapping": [{"tactic":"...","technique":"Txxxx - ...","confidence":0.0,"evidence":["..."]}],
  "recommendations": [{"type":"query|verification|containment|monitoring","description":"..."}],
  "confidence": 0,
  "assumptions": ["..."],
  "missing_data": ["..."]
}

Here is the deterministic context (JSON):
`

type promptIncident struct {
	Title     string         `json:"title"`
	Severity  string         `json:"severity"`
	Timestamp string         `json:"timestamp"`
	Source    string         `json:"source"`
	Entities  []model.Entity `json:"entities"`
	Tags      []string       `json:"tags"`
}

type promptScoring struct {
	Score       int                       `json:"score"`
	Level       string                    `json:"level"`
	Reasons     []string                  `json:"reasons"`
	SignalsUsed map[string]map[string]any `json:"signals_used"`
}

type promptContext struct {
	Incident        promptIncident `json:"incident"`
	Scoring         promptScoring  `json:"scoring"`
	MitreCandidates any            `json:"mitre_candidates"`
}

// BuildPrompt serializes the deterministic context into the user prompt.
// Incident id, notes and environment are not sent.
func BuildPrompt(r *model.Result) (string, error) {
	ctx := promptContext{
		Incident: promptIncident{
			Title:     r.Incident.Title,
			Severity:  r.Incident.Severity,
			Timestamp: r.Incident.Timestamp,
			Source:    r.Incident.Source,
			Entities:  r.Incident.Entities,
			Tags:      r.Incident.Tags,
		},
		Scoring: promptScoring{
			Score:       r.Scoring.Score,
			Level:       string(r.Scoring.Level),
			Reasons:     r.Scoring.Reasons,
			SignalsUsed: r.Scoring.SignalsUsed,
		},
		MitreCandidates: r.Mitre,
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(ctx); err != nil {
		return "", fmt.Errorf("marshal prompt context: %w", err)
	}
	return instructions + string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

// promptLength counts characters, not bytes.
func promptLength(prompt string) int {
	return utf8.RuneCountInString(prompt)
}
