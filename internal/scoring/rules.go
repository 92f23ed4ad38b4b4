package scoring

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ppiankov/socwatch/internal/signal"
)

// comparison selects how a reading is tested against a tier.
type comparison int

const (
	atLeast    comparison = iota // number >= threshold
	atMost                       // number <= threshold
	isTrue                       // boolean is true
	isFalse                      // boolean is false
	equalsFold                   // text equals match, case-insensitive
)

func (c comparison) matches(r reading, t tier) bool {
	switch c {
	case atLeast:
		return r.num >= t.threshold
	case atMost:
		return r.num <= t.threshold
	case isTrue:
		return r.flag
	case isFalse:
		return !r.flag
	case equalsFold:
		return strings.EqualFold(r.text, t.match)
	default:
		return false
	}
}

// tier is one weight class of a rule. Tiers are ordered most severe first
// and at most one tier fires per rule.
type tier struct {
	threshold float64
	match     string
	weight    int
	reason    string // optional %s receives the reading's display form
}

// reading is a well-typed value extracted from the signals.
type reading struct {
	value   any // recorded in signals_used
	num     float64
	flag    bool
	text    string
	display string
}

// evidenceRule describes one independent evidence cluster.
// New clusters are added as table entries, not as new branches.
type evidenceRule struct {
	provider string
	field    string
	read     func(signal.Map) (reading, bool)
	cmp      comparison
	tiers    []tier
}

// evidenceRules returns the ordered rule table for cfg.
// Order determines the order of reasons in the result.
func evidenceRules(cfg *Config) []evidenceRule {
	return []evidenceRule{
		{
			provider: "virustotal",
			field:    "malicious_ratio",
			read:     readVTRatio,
			cmp:      atLeast,
			tiers: []tier{
				{threshold: cfg.VTRatioHigh, weight: cfg.WeightVTHigh, reason: "VirusTotal malicious ratio high (%s)"},
				{threshold: cfg.VTRatioMedium, weight: cfg.WeightVTMed, reason: "VirusTotal malicious ratio moderate (%s)"},
			},
		},
		{
			provider: "abuseipdb",
			field:    "confidence",
			read:     intReader("%d", "abuseipdb", "confidence"),
			cmp:      atLeast,
			tiers: []tier{
				{threshold: float64(cfg.AbuseHigh), weight: cfg.WeightAbuseHigh, reason: "AbuseIPDB confidence high (%s)"},
				{threshold: float64(cfg.AbuseMedium), weight: cfg.WeightAbuseMed, reason: "AbuseIPDB confidence moderate (%s)"},
			},
		},
		{
			provider: "whois",
			field:    "domain_age_days",
			read:     intReader("%dd", "whois", "domain_age_days"),
			cmp:      atMost,
			tiers: []tier{
				{threshold: float64(cfg.DomainVeryNewDays), weight: cfg.WeightDomainVeryNew, reason: "Domain very new (%s)"},
				{threshold: float64(cfg.DomainNewDays), weight: cfg.WeightDomainNew, reason: "Domain newly registered (%s)"},
			},
		},
		{
			provider: "asn",
			field:    "type",
			read:     stringReader("asn", "type"),
			cmp:      equalsFold,
			tiers: []tier{
				{match: "hosting", weight: cfg.WeightASNHosting, reason: "ASN appears to be hosting provider"},
			},
		},
		{
			provider: "asn",
			field:    "is_bulletproof",
			read:     boolReader("asn", "is_bulletproof"),
			cmp:      isTrue,
			tiers: []tier{
				{weight: cfg.WeightASNBulletproof, reason: "ASN flagged as bulletproof hosting"},
			},
		},
		{
			provider: "context",
			field:    "login_anomaly",
			read:     boolReader("context", "login_anomaly"),
			cmp:      isTrue,
			tiers: []tier{
				{weight: cfg.WeightLoginAnomaly, reason: "Login anomaly detected"},
			},
		},
		{
			provider: "context",
			field:    "mfa_enabled",
			read:     boolReader("context", "mfa_enabled"),
			cmp:      isFalse,
			tiers: []tier{
				{weight: cfg.WeightMFADisabled, reason: "MFA not enabled for account"},
			},
		},
		{
			provider: "context",
			field:    "prior_incidents",
			read:     intReader("%d", "context", "prior_incidents"),
			cmp:      atLeast,
			tiers: []tier{
				{threshold: float64(cfg.PriorIncidentsAtLeast), weight: cfg.WeightPriorIncidents, reason: "Entity linked to prior incidents (%s)"},
			},
		},
	}
}

// VTRatio extracts the VirusTotal malicious ratio from signals.
// It accepts either a precomputed malicious_ratio or a malicious/total pair
// and always returns a value in [0,1].
func VTRatio(signals signal.Map) (float64, bool) {
	vt, ok := signal.Object(signals, "virustotal")
	if !ok {
		return 0, false
	}

	if ratio, ok := signal.Number(vt, "malicious_ratio"); ok {
		return clamp01(ratio), true
	}

	mal, okMal := signal.Number(vt, "malicious")
	total, okTotal := signal.Number(vt, "total")
	if okMal && okTotal && total > 0 {
		return clamp01(mal / total), true
	}
	return 0, false
}

func readVTRatio(signals signal.Map) (reading, bool) {
	ratio, ok := VTRatio(signals)
	if !ok {
		return reading{}, false
	}
	return reading{value: ratio, num: ratio, display: FormatPercent(ratio)}, true
}

func intReader(format string, path ...string) func(signal.Map) (reading, bool) {
	return func(signals signal.Map) (reading, bool) {
		n, ok := signal.Int(signals, path...)
		if !ok {
			return reading{}, false
		}
		return reading{value: n, num: float64(n), display: fmt.Sprintf(format, n)}, true
	}
}

func boolReader(path ...string) func(signal.Map) (reading, bool) {
	return func(signals signal.Map) (reading, bool) {
		b, ok := signal.Bool(signals, path...)
		if !ok {
			return reading{}, false
		}
		return reading{value: b, flag: b, display: strconv.FormatBool(b)}, true
	}
}

func stringReader(path ...string) func(signal.Map) (reading, bool) {
	return func(signals signal.Map) (reading, bool) {
		s, ok := signal.String(signals, path...)
		if !ok {
			return reading{}, false
		}
		return reading{value: s, text: s, display: s}, true
	}
}

// FormatPercent renders a ratio as a percentage with two decimals.
func FormatPercent(ratio float64) string {
	return strconv.FormatFloat(ratio*100, 'f', 2, 64) + "%"
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
