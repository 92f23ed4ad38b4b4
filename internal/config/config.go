// Package config loads socwatch settings from YAML and the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/socwatch/internal/advisory"
	"github.com/ppiankov/socwatch/internal/scoring"
)

// Defaults for the network listeners.
const (
	DefaultListen = "127.0.0.1:8080"
	DefaultDir    = ".socwatch"
)

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text | json
}

// Config holds every setting the commands share. Flags override it.
type Config struct {
	PolicyFile    string          `yaml:"policy_file"`
	ScoringConfig string          `yaml:"scoring_config"`
	AuditLog      string          `yaml:"audit_log"`
	Listen        string          `yaml:"listen"`
	GRPCListen    string          `yaml:"grpc_listen"`
	MinConfidence float64         `yaml:"min_confidence"`
	MaxResults    int             `yaml:"max_results"`
	LLM           advisory.Config `yaml:"llm"`
	Log           LogConfig       `yaml:"log"`
}

// Default returns the built-in configuration: HTTP on loopback, no gRPC,
// no policy file, advisory live mode guarded by its default ceilings.
func Default() *Config {
	return &Config{
		Listen: DefaultListen,
		LLM:    advisory.DefaultConfig(),
		Log:    LogConfig{Level: "info", Format: "text"},
	}
}

// DefaultPath returns ~/.socwatch/config.yaml, or "" without a home dir.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, DefaultDir, "config.yaml")
}

// Load reads a YAML config and applies environment overrides.
// Empty path falls back to DefaultPath. A missing file returns defaults.
// Invalid YAML or an invalid environment value is an error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		case os.IsNotExist(err):
		default:
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Scoring loads the scoring override named by ScoringConfig, or defaults.
func (c *Config) Scoring() (*scoring.Config, error) {
	return scoring.LoadConfig(c.ScoringConfig)
}

type lookupFunc func(string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	str("POLICY_FILE", &c.PolicyFile)
	str("SOCWATCH_SCORING_CONFIG", &c.ScoringConfig)
	str("SOCWATCH_AUDIT_LOG", &c.AuditLog)
	str("LLM_PROVIDER", &c.LLM.Provider)
	str("LLM_BASE_URL", &c.LLM.BaseURL)
	str("LLM_API_KEY", &c.LLM.APIKey)
	str("LLM_MODEL", &c.LLM.Model)
	str("AWS_REGION", &c.LLM.Region)
	str("AWS_ACCESS_KEY_ID", &c.LLM.AWSAccessKeyID)
	str("AWS_SECRET_ACCESS_KEY", &c.LLM.AWSSecretAccessKey)
	str("AWS_SESSION_TOKEN", &c.LLM.AWSSessionToken)
	str("SOCWATCH_LOG_LEVEL", &c.Log.Level)
	str("SOCWATCH_LOG_FORMAT", &c.Log.Format)

	if v, ok := lookup("LLM_OFFLINE"); ok {
		c.LLM.Offline = strings.TrimSpace(v) == "1" || strings.EqualFold(strings.TrimSpace(v), "true")
	}
	if v, ok := lookup("LLM_AUDIT"); ok && strings.TrimSpace(v) != "" {
		c.LLM.Audit = strings.TrimSpace(v) != "0" && !strings.EqualFold(strings.TrimSpace(v), "false")
	}

	if v, ok := lookup("LLM_TEMPERATURE"); ok && strings.TrimSpace(v) != "" {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return fmt.Errorf("invalid LLM_TEMPERATURE %q: %w", v, err)
		}
		c.LLM.Temperature = f
	}
	if err := envInt(lookup, "LLM_MAX_CALLS_PER_MIN", &c.LLM.MaxCallsPerMin); err != nil {
		return err
	}
	if err := envInt(lookup, "LLM_MAX_PROMPT_CHARS", &c.LLM.MaxPromptChars); err != nil {
		return err
	}
	if v, ok := lookup("LLM_TIMEOUT"); ok && strings.TrimSpace(v) != "" {
		d, err := parseTimeout(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid LLM_TIMEOUT %q: %w", v, err)
		}
		c.LLM.Timeout = d
	}
	return nil
}

func envInt(lookup lookupFunc, key string, dst *int) error {
	v, ok := lookup(key)
	if !ok || strings.TrimSpace(v) == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = n
	return nil
}

// parseTimeout accepts a Go duration ("45s") or plain seconds ("45").
func parseTimeout(s string) (time.Duration, error) {
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	secs, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return time.Duration(secs * float64(time.Second)), nil
}
