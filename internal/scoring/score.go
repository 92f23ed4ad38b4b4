// Package scoring converts enrichment signals into a bounded confidence score.
//
// This is NOT anomaly detection. It is cumulative, explainable arithmetic:
// each evidence rule adds a fixed weight, the sum is clamped once, and the
// level is derived from the clamped score.
package scoring

import (
	"fmt"
	"strings"

	"github.com/ppiankov/socwatch/internal/signal"
)

// Level is the three-tier risk classification derived from a score.
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// NoSignalsReason is the single reason reported when no rule contributed.
const NoSignalsReason = "No strong deterministic signals found; defaulting to low confidence"

// Result is the outcome of a scoring run.
type Result struct {
	Score       int                       `json:"score"`
	Level       Level                     `json:"level"`
	Reasons     []string                  `json:"reasons"`
	SignalsUsed map[string]map[string]any `json:"signals_used"`
}

// Score evaluates every evidence rule against signals. It never fails:
// absent or mistyped values simply contribute nothing.
func Score(signals signal.Map, cfg *Config) Result {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	score := 0
	reasons := []string{}
	used := map[string]map[string]any{}

	for _, rule := range evidenceRules(cfg) {
		r, ok := rule.read(signals)
		if !ok {
			continue
		}
		if used[rule.provider] == nil {
			used[rule.provider] = map[string]any{}
		}
		used[rule.provider][rule.field] = r.value

		for _, t := range rule.tiers {
			if !rule.cmp.matches(r, t) {
				continue
			}
			score += t.weight
			reasons = append(reasons, formatReason(t, r))
			break
		}
	}

	score = clamp(score, cfg.MinScore, cfg.MaxScore)

	if len(reasons) == 0 {
		reasons = append(reasons, NoSignalsReason)
	}

	return Result{
		Score:       score,
		Level:       LevelFor(score, cfg),
		Reasons:     reasons,
		SignalsUsed: used,
	}
}

// LevelFor maps a score to a level using the configured breakpoints.
func LevelFor(score int, cfg *Config) Level {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	switch {
	case score <= cfg.LowMax:
		return LevelLow
	case score <= cfg.MediumMax:
		return LevelMedium
	default:
		return LevelHigh
	}
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

func formatReason(t tier, r reading) string {
	reason := t.reason
	if strings.Contains(reason, "%s") {
		reason = fmt.Sprintf(reason, r.display)
	}
	return fmt.Sprintf("%s +%d", reason, t.weight)
}
