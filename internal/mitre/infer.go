// Package mitre infers candidate ATT&CK techniques from enrichment signals
// using bounded, hard-coded heuristic rule clusters.
package mitre

import (
	"fmt"
	"sort"

	"github.com/ppiankov/socwatch/internal/scoring"
	"github.com/ppiankov/socwatch/internal/signal"
)

const (
	DefaultMinConfidence = 0.35
	DefaultMaxResults    = 10
)

// Hypothesis is one ranked technique candidate.
type Hypothesis struct {
	Tactic     string   `json:"tactic"`
	Technique  string   `json:"technique"` // "Txxxx - Name"
	Confidence float64  `json:"confidence"`
	Evidence   []string `json:"evidence"`
}

// Options bounds the inference output. Zero values select the defaults.
type Options struct {
	MinConfidence float64
	MaxResults    int
}

func (o Options) withDefaults() Options {
	if o.MinConfidence <= 0 {
		o.MinConfidence = DefaultMinConfidence
	}
	if o.MaxResults <= 0 {
		o.MaxResults = DefaultMaxResults
	}
	return o
}

// facts are the signal values every cluster may consult.
type facts struct {
	loginAnomaly     bool
	impossibleTravel bool
	mfaDisabled      bool
	hostingASN       bool
	bulletproof      bool
	priorIncidents   int
	priorLinked      bool
	abuseConf        int
	hasAbuseConf     bool
	vtRatio          float64
	vtMalicious      int
	vtTotal          int
	hasVTCounts      bool
	domainAgeDays    int
	newDomain        bool
}

func gather(signals signal.Map) facts {
	var f facts

	f.loginAnomaly, _ = signal.Bool(signals, "context", "login_anomaly")
	f.impossibleTravel, _ = signal.Bool(signals, "context", "impossible_travel")
	if mfa, ok := signal.Bool(signals, "context", "mfa_enabled"); ok {
		f.mfaDisabled = !mfa
	}
	f.hostingASN = signal.EqualFold(signals, "hosting", "asn", "type")
	f.bulletproof, _ = signal.Bool(signals, "asn", "is_bulletproof")

	if n, ok := signal.Int(signals, "context", "prior_incidents"); ok {
		f.priorIncidents = n
		f.priorLinked = n >= 2
	}

	f.abuseConf, f.hasAbuseConf = signal.Int(signals, "abuseipdb", "confidence")

	mal, okMal := signal.Int(signals, "virustotal", "malicious")
	total, okTotal := signal.Int(signals, "virustotal", "total")
	if okMal && okTotal && total > 0 {
		f.vtMalicious, f.vtTotal, f.hasVTCounts = mal, total, true
		f.vtRatio = float64(mal) / float64(total)
	}

	if n, ok := signal.Int(signals, "whois", "domain_age_days"); ok {
		f.domainAgeDays = n
		f.newDomain = n <= 30
	}
	return f
}

// cluster evaluates one rule group. It returns false when it does not fire.
type cluster func(f facts) (Hypothesis, bool)

// clusters is evaluated in order; the order breaks confidence ties.
var clusters = []cluster{
	validAccounts,
	externalRemoteServices,
	applicationLayerProtocol,
	phishing,
}

// Infer returns hypotheses with confidence >= MinConfidence, highest first,
// at most MaxResults. It never fails.
func Infer(signals signal.Map, opts Options) []Hypothesis {
	opts = opts.withDefaults()
	f := gather(signals)

	out := []Hypothesis{}
	for _, c := range clusters {
		h, ok := c(f)
		if !ok {
			continue
		}
		h.Confidence = clamp01(h.Confidence)
		if h.Confidence < opts.MinConfidence {
			continue
		}
		out = append(out, h)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Confidence > out[j].Confidence
	})
	if len(out) > opts.MaxResults {
		out = out[:opts.MaxResults]
	}
	return out
}

// validAccounts: login anomaly with a weak auth posture.
func validAccounts(f facts) (Hypothesis, bool) {
	if !f.loginAnomaly {
		return Hypothesis{}, false
	}
	h := Hypothesis{
		Tactic:     "Credential Access",
		Technique:  "T1078 - Valid Accounts",
		Confidence: 0.55,
		Evidence:   []string{"Login anomaly detected (context.login_anomaly=true)"},
	}
	if f.impossibleTravel {
		h.add(0.10, "Impossible travel signal present (context.impossible_travel=true)")
	}
	if f.mfaDisabled {
		h.add(0.10, "MFA not enabled (context.mfa_enabled=false)")
	}
	if f.hostingASN {
		h.add(0.05, "Source IP appears to be from hosting ASN (asn.type=hosting)")
	}
	if f.priorLinked {
		h.add(0.05, fmt.Sprintf("Entity linked to prior incidents (context.prior_incidents=%d)", f.priorIncidents))
	}
	return h, true
}

// externalRemoteServices is a companion hypothesis for anomalous logins
// where the access path is external. It fires independently of validAccounts.
func externalRemoteServices(f facts) (Hypothesis, bool) {
	if !f.loginAnomaly {
		return Hypothesis{}, false
	}
	h := Hypothesis{
		Tactic:     "Initial Access",
		Technique:  "T1133 - External Remote Services",
		Confidence: 0.45,
		Evidence:   []string{"Anomalous authentication pattern suggests external access path"},
	}
	if f.hostingASN {
		h.add(0.10, "Login source is hosting/provider ASN (asn.type=hosting)")
	}
	if f.impossibleTravel {
		h.add(0.05, "Impossible travel increases likelihood of remote access misuse")
	}
	return h, true
}

// applicationLayerProtocol fires on strong IP reputation. Without traffic
// telemetry the confidence stays moderate.
func applicationLayerProtocol(f facts) (Hypothesis, bool) {
	var evidence []string
	if f.hasAbuseConf && f.abuseConf >= 80 {
		evidence = append(evidence, fmt.Sprintf("AbuseIPDB confidence high (abuseipdb.confidence=%d)", f.abuseConf))
	}
	if f.hasVTCounts && f.vtRatio >= 0.10 {
		evidence = append(evidence, fmt.Sprintf("VirusTotal malicious ratio high (%d/%d=%s)",
			f.vtMalicious, f.vtTotal, scoring.FormatPercent(f.vtRatio)))
	}
	if len(evidence) == 0 {
		return Hypothesis{}, false
	}

	h := Hypothesis{
		Tactic:     "Command and Control",
		Technique:  "T1071 - Application Layer Protocol",
		Confidence: 0.50,
		Evidence:   evidence,
	}
	if f.hostingASN {
		h.add(0.05, "Infrastructure characteristic: hosting ASN")
	}
	if f.bulletproof {
		h.add(0.10, "Infrastructure characteristic: bulletproof hosting (asn.is_bulletproof=true)")
	}
	return h, true
}

// phishing fires on newly registered domains.
func phishing(f facts) (Hypothesis, bool) {
	if !f.newDomain {
		return Hypothesis{}, false
	}
	h := Hypothesis{
		Tactic:     "Initial Access",
		Technique:  "T1566 - Phishing",
		Confidence: 0.40,
		Evidence:   []string{fmt.Sprintf("Domain is newly registered (whois.domain_age_days=%d)", f.domainAgeDays)},
	}
	if f.hasVTCounts && f.vtRatio >= 0.03 {
		h.add(0.10, fmt.Sprintf("VirusTotal indicates suspicious/malicious signals (%d/%d=%s)",
			f.vtMalicious, f.vtTotal, scoring.FormatPercent(f.vtRatio)))
	}
	return h, true
}

func (h *Hypothesis) add(delta float64, evidence string) {
	h.Confidence += delta
	h.Evidence = append(h.Evidence, evidence)
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
