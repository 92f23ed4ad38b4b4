package policy

import (
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/socwatch/internal/model"
	"github.com/ppiankov/socwatch/internal/scoring"
)

func FuzzEvaluateRulesYAML(f *testing.F) {
	f.Add([]byte(DefaultRulesYAML()), 85)
	f.Add([]byte("- effect:\n    deny_actions: [monitor]\n"), 10)
	f.Add([]byte{}, 0)
	f.Add([]byte(`{{{not yaml at all`), 50)

	f.Fuzz(func(t *testing.T, data []byte, score int) {
		var rules []Rule
		if err := yaml.Unmarshal(data, &rules); err != nil {
			return
		}
		cfg := scoring.DefaultConfig()
		res := scoring.Result{Score: score, Level: scoring.LevelFor(score, cfg)}
		d := Evaluate(res, []model.Entity{{Type: "user", Value: "u"}}, rules)
		for _, a := range d.DeniedActions {
			if contains(d.AllowedActions, a) {
				t.Fatalf("action %q both allowed and denied", a)
			}
		}
	})
}
