// Package triage runs the deterministic pipeline: validate the incident,
// score the signals, infer techniques, then gate response actions by policy.
package triage

import (
	"fmt"

	"github.com/ppiankov/socwatch/internal/mitre"
	"github.com/ppiankov/socwatch/internal/model"
	"github.com/ppiankov/socwatch/internal/policy"
	"github.com/ppiankov/socwatch/internal/scoring"
	"github.com/ppiankov/socwatch/internal/signal"
)

// Options tunes one pipeline run. The zero value uses every default and
// evaluates the baseline policy only.
type Options struct {
	Scoring       *scoring.Config
	MinConfidence float64
	MaxResults    int
	Rules         policy.Source
}

// PolicySourceError means a rule source was configured but could not be
// loaded. The run fails closed.
type PolicySourceError struct {
	Err error
}

func (e *PolicySourceError) Error() string {
	return fmt.Sprintf("policy source: %v", e.Err)
}

func (e *PolicySourceError) Unwrap() error { return e.Err }

// Run executes the pipeline. It returns *model.MissingFieldError when a
// required incident field is absent and *PolicySourceError when the
// configured rule source fails. Nothing is computed in either case.
func Run(incident map[string]any, signals signal.Map, opts Options) (*model.Result, error) {
	inc, err := model.IncidentFromMap(incident)
	if err != nil {
		return nil, err
	}

	var ruleset *policy.Ruleset
	if opts.Rules != nil {
		ruleset, err = opts.Rules.Load()
		if err != nil {
			return nil, &PolicySourceError{Err: err}
		}
	}

	score := scoring.Score(signals, opts.Scoring)
	hypotheses := mitre.Infer(signals, mitre.Options{
		MinConfidence: opts.MinConfidence,
		MaxResults:    opts.MaxResults,
	})

	result := &model.Result{
		Meta: model.Meta{
			EngineVersion: model.EngineVersion,
			Mode:          model.ModeDeterministic,
		},
		Incident: inc,
		Scoring:  score,
		Mitre:    hypotheses,
	}

	var rules []policy.Rule
	if ruleset != nil {
		rules = ruleset.Rules
		result.Meta.PolicyHash = ruleset.Hash
	}
	result.Policy = policy.Evaluate(score, inc.Entities, rules)

	return result, nil
}
