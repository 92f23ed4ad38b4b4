package scoring

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the tunable thresholds and weights for confidence scoring.
// A Config is never mutated after construction; callers that need different
// values build a new one.
type Config struct {
	// VirusTotal malicious/total ratio.
	VTRatioHigh   float64 `yaml:"vt_malicious_ratio_high" json:"vt_malicious_ratio_high"`
	VTRatioMedium float64 `yaml:"vt_malicious_ratio_med" json:"vt_malicious_ratio_med"`
	WeightVTHigh  int     `yaml:"wt_vt_high" json:"wt_vt_high"`
	WeightVTMed   int     `yaml:"wt_vt_med" json:"wt_vt_med"`

	// AbuseIPDB confidence (0-100).
	AbuseHigh       int `yaml:"abuse_conf_high" json:"abuse_conf_high"`
	AbuseMedium     int `yaml:"abuse_conf_med" json:"abuse_conf_med"`
	WeightAbuseHigh int `yaml:"wt_abuse_high" json:"wt_abuse_high"`
	WeightAbuseMed  int `yaml:"wt_abuse_med" json:"wt_abuse_med"`

	// WHOIS domain age in days.
	DomainNewDays       int `yaml:"domain_new_days" json:"domain_new_days"`
	DomainVeryNewDays   int `yaml:"domain_very_new_days" json:"domain_very_new_days"`
	WeightDomainVeryNew int `yaml:"wt_domain_very_new" json:"wt_domain_very_new"`
	WeightDomainNew     int `yaml:"wt_domain_new" json:"wt_domain_new"`

	// ASN / hosting context.
	WeightASNHosting     int `yaml:"wt_asn_hosting" json:"wt_asn_hosting"`
	WeightASNBulletproof int `yaml:"wt_asn_bulletproof" json:"wt_asn_bulletproof"`

	// Incident context signals.
	WeightLoginAnomaly    int `yaml:"wt_login_anomaly" json:"wt_login_anomaly"`
	WeightMFADisabled     int `yaml:"wt_mfa_disabled" json:"wt_mfa_disabled"`
	WeightPriorIncidents  int `yaml:"wt_prior_incidents" json:"wt_prior_incidents"`
	PriorIncidentsAtLeast int `yaml:"prior_incidents_threshold" json:"prior_incidents_threshold"`

	// Score is clamped into [MinScore, MaxScore] after all weights are summed.
	MinScore int `yaml:"min_score" json:"min_score"`
	MaxScore int `yaml:"max_score" json:"max_score"`

	// score <= LowMax -> low, score <= MediumMax -> medium, else high.
	LowMax    int `yaml:"level_low_max" json:"level_low_max"`
	MediumMax int `yaml:"level_medium_max" json:"level_medium_max"`
}

// DefaultConfig returns the built-in scoring configuration.
func DefaultConfig() *Config {
	return &Config{
		VTRatioHigh:   0.10,
		VTRatioMedium: 0.03,
		WeightVTHigh:  30,
		WeightVTMed:   15,

		AbuseHigh:       80,
		AbuseMedium:     50,
		WeightAbuseHigh: 25,
		WeightAbuseMed:  12,

		DomainNewDays:       30,
		DomainVeryNewDays:   7,
		WeightDomainVeryNew: 15,
		WeightDomainNew:     8,

		WeightASNHosting:     10,
		WeightASNBulletproof: 15,

		WeightLoginAnomaly:    20,
		WeightMFADisabled:     10,
		WeightPriorIncidents:  8,
		PriorIncidentsAtLeast: 2,

		MinScore: 0,
		MaxScore: 100,

		LowMax:    39,
		MediumMax: 69,
	}
}

// Validate checks that clamp bounds and level breakpoints are ordered.
func (c *Config) Validate() error {
	if c.MinScore > c.MaxScore {
		return fmt.Errorf("min_score %d exceeds max_score %d", c.MinScore, c.MaxScore)
	}
	if c.LowMax > c.MediumMax {
		return fmt.Errorf("level_low_max %d exceeds level_medium_max %d", c.LowMax, c.MediumMax)
	}
	return nil
}

// LoadConfig reads a scoring override from a YAML file.
// Fields absent from the file keep their default values.
// Empty path returns defaults; a missing or invalid file is an error.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scoring config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse scoring config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scoring config: %w", err)
	}
	return cfg, nil
}
