package advisory

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ppiankov/socwatch/internal/model"
)

// Fallback reasons, logged and audited to tell the two offline paths apart.
const (
	ReasonOffline        = "LLM_OFFLINE=1"
	ReasonMissingConfig  = "missing_api_key_or_model"
	fallbackObservations = 3
	fallbackMappings     = 5
)

// Fallback synthesizes a schema-valid advisory from the deterministic result
// alone. It performs no I/O. Confidence equals the deterministic score.
func Fallback(r *model.Result, reason string) *model.Advisory {
	obs := []string{
		fmt.Sprintf("Deterministic score=%d level=%s.", r.Scoring.Score, r.Scoring.Level),
		"MITRE hypotheses were generated from bounded rules (not AI).",
	}

	if len(r.Scoring.Reasons) > 0 {
		obs = append(obs, "Top scoring reasons: "+strings.Join(head(r.Scoring.Reasons, fallbackObservations), "; "))
	}

	var candidates []string
	for i, h := range r.Mitre {
		if i == fallbackObservations {
			break
		}
		candidates = append(candidates, fmt.Sprintf("%s (%s)", h.Technique, strconv.FormatFloat(h.Confidence, 'f', 2, 64)))
	}
	if len(candidates) > 0 {
		obs = append(obs, "Top MITRE candidates: "+strings.Join(candidates, ", "))
	}

	mapping := []model.MitreMapping{}
	for i, h := range r.Mitre {
		if i == fallbackMappings {
			break
		}
		evidence := h.Evidence
		if evidence == nil {
			evidence = []string{}
		}
		mapping = append(mapping, model.MitreMapping{
			Tactic:     h.Tactic,
			Technique:  h.Technique,
			Confidence: h.Confidence,
			Evidence:   evidence,
		})
	}

	cause := "LLM_OFFLINE=1"
	if reason == ReasonMissingConfig {
		cause = "missing API key or model"
	}

	return &model.Advisory{
		Observations: obs,
		Assessment: "Offline mode: advisory summary generated without an LLM. " +
			"Enable live mode to generate richer narrative and recommended queries.",
		MitreMapping: mapping,
		Recommendations: []model.Recommendation{
			{Type: "verification", Description: "Confirm the entities (IP/user/domain) exist in logs and match the incident timeline."},
			{Type: "monitoring", Description: "Monitor for repeated authentication failures, impossible travel, and new device sign-ins."},
			{Type: "containment", Description: "If confidence remains high after verification: reset credentials and enforce MFA for impacted accounts."},
		},
		Confidence:  r.Scoring.Score,
		Assumptions: []string{fmt.Sprintf("Offline mode: live LLM reasoning is disabled (%s).", cause)},
		MissingData: []string{"Raw authentication event details (source IP, user agent, device ID, geo), and correlated alerts across hosts/users."},
	}
}

func head(list []string, n int) []string {
	if len(list) > n {
		return list[:n]
	}
	return list
}
