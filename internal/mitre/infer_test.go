package mitre

import (
	"math"
	"strings"
	"testing"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestInferEmptySignals(t *testing.T) {
	if got := Infer(map[string]any{}, Options{}); len(got) != 0 {
		t.Errorf("expected no hypotheses, got %v", got)
	}
	if got := Infer(nil, Options{}); got == nil {
		t.Error("expected empty slice, got nil")
	}
}

func TestInferLoginAnomalyEmitsBothAccessHypotheses(t *testing.T) {
	signals := map[string]any{
		"context": map[string]any{"login_anomaly": true},
	}
	got := Infer(signals, Options{})

	if len(got) != 2 {
		t.Fatalf("expected 2 hypotheses, got %d: %v", len(got), got)
	}
	if got[0].Technique != "T1078 - Valid Accounts" || !approx(got[0].Confidence, 0.55) {
		t.Errorf("expected T1078 at 0.55 first, got %s at %v", got[0].Technique, got[0].Confidence)
	}
	if got[1].Technique != "T1133 - External Remote Services" || !approx(got[1].Confidence, 0.45) {
		t.Errorf("expected T1133 at 0.45 second, got %s at %v", got[1].Technique, got[1].Confidence)
	}
}

func TestInferAccountCompromiseBonuses(t *testing.T) {
	signals := map[string]any{
		"asn":     map[string]any{"type": "hosting"},
		"context": map[string]any{"login_anomaly": true, "impossible_travel": true, "mfa_enabled": false, "prior_incidents": 3},
	}
	got := Infer(signals, Options{})

	var h *Hypothesis
	for i := range got {
		if strings.HasPrefix(got[i].Technique, "T1078") {
			h = &got[i]
		}
	}
	if h == nil {
		t.Fatal("expected T1078 hypothesis")
	}
	if !approx(h.Confidence, 0.85) {
		t.Errorf("expected 0.55+0.10+0.10+0.05+0.05=0.85, got %v", h.Confidence)
	}
	if len(h.Evidence) != 5 {
		t.Errorf("expected 5 evidence lines, got %v", h.Evidence)
	}
	if h.Tactic != "Credential Access" {
		t.Errorf("expected Credential Access, got %s", h.Tactic)
	}
}

func TestInferCommandAndControlFromAbuse(t *testing.T) {
	signals := map[string]any{
		"abuseipdb": map[string]any{"confidence": 90},
		"asn":       map[string]any{"type": "hosting", "is_bulletproof": true},
	}
	got := Infer(signals, Options{})

	if len(got) != 1 {
		t.Fatalf("expected 1 hypothesis, got %v", got)
	}
	if got[0].Tactic != "Command and Control" {
		t.Errorf("expected Command and Control, got %s", got[0].Tactic)
	}
	if !approx(got[0].Confidence, 0.65) {
		t.Errorf("expected 0.65, got %v", got[0].Confidence)
	}
}

func TestInferCommandAndControlFromVTRatio(t *testing.T) {
	signals := map[string]any{
		"virustotal": map[string]any{"malicious": 12, "total": 94},
	}
	got := Infer(signals, Options{})
	if len(got) != 1 || !strings.HasPrefix(got[0].Technique, "T1071") {
		t.Fatalf("expected T1071, got %v", got)
	}
	if !strings.Contains(got[0].Evidence[0], "12/94=12.77%") {
		t.Errorf("expected formatted ratio in evidence, got %q", got[0].Evidence[0])
	}
}

func TestInferWeakReputationDoesNotFireC2(t *testing.T) {
	signals := map[string]any{
		"abuseipdb":  map[string]any{"confidence": 79},
		"virustotal": map[string]any{"malicious": 1, "total": 100},
	}
	if got := Infer(signals, Options{}); len(got) != 0 {
		t.Errorf("expected nothing, got %v", got)
	}
}

func TestInferPhishingNewDomain(t *testing.T) {
	signals := map[string]any{
		"whois":      map[string]any{"domain_age_days": 30},
		"virustotal": map[string]any{"malicious": 3, "total": 100},
	}
	got := Infer(signals, Options{})
	if len(got) != 1 {
		t.Fatalf("expected 1 hypothesis, got %v", got)
	}
	if got[0].Technique != "T1566 - Phishing" || !approx(got[0].Confidence, 0.50) {
		t.Errorf("expected phishing at 0.50, got %s at %v", got[0].Technique, got[0].Confidence)
	}
}

func TestInferOldDomainIgnored(t *testing.T) {
	signals := map[string]any{"whois": map[string]any{"domain_age_days": 31}}
	if got := Infer(signals, Options{}); len(got) != 0 {
		t.Errorf("expected nothing for 31-day-old domain, got %v", got)
	}
}

func TestInferMinConfidenceIsHardFilter(t *testing.T) {
	signals := map[string]any{
		"context": map[string]any{"login_anomaly": true},
		"whois":   map[string]any{"domain_age_days": 3},
	}
	got := Infer(signals, Options{MinConfidence: 0.5})

	for _, h := range got {
		if h.Confidence < 0.5 {
			t.Errorf("hypothesis below min confidence emitted: %v", h)
		}
	}
	if len(got) != 1 {
		t.Errorf("expected only T1078 to survive, got %v", got)
	}
}

func TestInferSortedAndTruncated(t *testing.T) {
	signals := map[string]any{
		"virustotal": map[string]any{"malicious": 12, "total": 94},
		"abuseipdb":  map[string]any{"confidence": 85},
		"whois":      map[string]any{"domain_age_days": 3},
		"asn":        map[string]any{"type": "hosting"},
		"context":    map[string]any{"login_anomaly": true, "impossible_travel": true, "mfa_enabled": false, "prior_incidents": 2},
	}
	all := Infer(signals, Options{})
	if len(all) != 4 {
		t.Fatalf("expected all 4 clusters, got %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].Confidence > all[i-1].Confidence {
			t.Errorf("not sorted at %d: %v > %v", i, all[i].Confidence, all[i-1].Confidence)
		}
	}

	top := Infer(signals, Options{MaxResults: 2})
	if len(top) != 2 {
		t.Fatalf("expected 2 results, got %d", len(top))
	}
	if top[0].Technique != all[0].Technique || top[1].Technique != all[1].Technique {
		t.Errorf("expected truncation to keep the top entries")
	}
}

func TestInferTiesKeepClusterOrder(t *testing.T) {
	// T1133 with hosting ASN: 0.45+0.10 = 0.55, same as bare T1078.
	// T1071 with hosting ASN: 0.50+0.05 = 0.55 as well.
	signals := map[string]any{
		"abuseipdb": map[string]any{"confidence": 85},
		"asn":       map[string]any{"type": "hosting"},
		"context":   map[string]any{"login_anomaly": true},
	}
	got := Infer(signals, Options{})
	if len(got) != 3 {
		t.Fatalf("expected 3 hypotheses, got %v", got)
	}
	// T1078 (0.60) leads; the 0.55 ties keep cluster order.
	want := []string{"T1078", "T1133", "T1071"}
	for i, w := range want {
		if !strings.HasPrefix(got[i].Technique, w) {
			t.Errorf("position %d: expected %s, got %s (%v)", i, w, got[i].Technique, got[i].Confidence)
		}
	}
}
