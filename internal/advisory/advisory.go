// Package advisory wraps an optional language-model call in a safety
// envelope. Output is advisory only: it is schema-validated, rate limited,
// and never feeds back into the deterministic result.
package advisory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/ppiankov/socwatch/internal/audit"
	"github.com/ppiankov/socwatch/internal/model"
	"github.com/ppiankov/socwatch/internal/ratelimit"
	"github.com/ppiankov/socwatch/internal/telemetry"
)

// Providers accepted in Config.Provider.
const (
	ProviderOpenAI  = "openai"
	ProviderBedrock = "bedrock"
)

// Defaults for the live-mode guards.
const (
	DefaultBaseURL        = "https://api.openai.com/v1"
	DefaultTemperature    = 0.2
	DefaultMaxTemperature = 0.3
	DefaultMaxCallsPerMin = 10
	DefaultMaxPromptChars = 12000
	DefaultTimeout        = 45 * time.Second
)

// Config controls the advisory layer.
type Config struct {
	Offline  bool   `yaml:"offline"`
	Provider string `yaml:"provider"`
	BaseURL  string `yaml:"base_url"`
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	Region   string `yaml:"region"`
	// Static AWS keys for Bedrock. Empty uses the default credential chain.
	AWSAccessKeyID     string        `yaml:"aws_access_key_id"`
	AWSSecretAccessKey string        `yaml:"aws_secret_access_key"`
	AWSSessionToken    string        `yaml:"aws_session_token"`
	Temperature        float64       `yaml:"temperature"`
	MaxTemperature     float64       `yaml:"max_temperature"`
	MaxCallsPerMin     int           `yaml:"max_calls_per_min"` // 0 refuses every live call; negative means default
	MaxPromptChars     int           `yaml:"max_prompt_chars"`
	Timeout            time.Duration `yaml:"timeout"`
	Audit              bool          `yaml:"audit"`
}

// DefaultConfig returns the conservative live-mode defaults.
func DefaultConfig() Config {
	return Config{
		Provider:       ProviderOpenAI,
		BaseURL:        DefaultBaseURL,
		Temperature:    DefaultTemperature,
		MaxTemperature: DefaultMaxTemperature,
		MaxCallsPerMin: DefaultMaxCallsPerMin,
		MaxPromptChars: DefaultMaxPromptChars,
		Timeout:        DefaultTimeout,
		Audit:          true,
	}
}

// HasCredentials reports whether live mode has enough to attempt a call.
// Bedrock takes credentials from the AWS default chain, so only the model
// is required there.
func (c Config) HasCredentials() bool {
	if c.Model == "" {
		return false
	}
	if c.Provider == ProviderBedrock {
		return true
	}
	return c.APIKey != ""
}

// Request is one generator call.
type Request struct {
	System      string
	Prompt      string
	Model       string
	Temperature float64
}

// Generator produces raw model text for a prompt. Implementations must
// honour ctx cancellation.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// EventRecorder receives advisory audit events. *audit.Log satisfies it.
type EventRecorder interface {
	Event(event, incidentID string, details map[string]string) error
}

// Advisor runs the advisory envelope. Safe for concurrent use; the
// limiter window is its only shared mutable state.
type Advisor struct {
	cfg       Config
	gen       Generator
	limiter   *ratelimit.Limiter
	validator *Validator
	logger    *slog.Logger
	recorder  EventRecorder
	metrics   *telemetry.Metrics
	clock     ratelimit.Clock
}

// Option configures an Advisor.
type Option func(*Advisor)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(a *Advisor) { a.logger = l }
}

// WithRecorder routes audit events to r when Config.Audit is set.
func WithRecorder(r EventRecorder) Option {
	return func(a *Advisor) { a.recorder = r }
}

// WithMetrics counts calls on m.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(a *Advisor) { a.metrics = m }
}

// WithClock injects the limiter clock.
func WithClock(c ratelimit.Clock) Option {
	return func(a *Advisor) { a.clock = c }
}

// New builds an Advisor. gen may be nil when the config is offline or has
// no credentials; a live call without a generator is a transport error.
func New(cfg Config, gen Generator, opts ...Option) (*Advisor, error) {
	v, err := NewValidator()
	if err != nil {
		return nil, err
	}
	if cfg.MaxTemperature <= 0 {
		cfg.MaxTemperature = DefaultMaxTemperature
	}
	if cfg.MaxPromptChars <= 0 {
		cfg.MaxPromptChars = DefaultMaxPromptChars
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxCallsPerMin < 0 {
		cfg.MaxCallsPerMin = DefaultMaxCallsPerMin
	}

	a := &Advisor{cfg: cfg, gen: gen, validator: v, logger: slog.Default()}
	for _, opt := range opts {
		opt(a)
	}
	a.limiter = ratelimit.New(ratelimit.Config{MaxCalls: cfg.MaxCallsPerMin, Window: time.Minute}, a.clock)
	return a, nil
}

// Advise produces an advisory for a deterministic result. r is not modified.
// Every returned advisory has passed schema validation.
func (a *Advisor) Advise(ctx context.Context, r *model.Result) (*model.Advisory, error) {
	id := r.Incident.IncidentID

	if a.cfg.Offline {
		return a.fallback(ctx, r, ReasonOffline)
	}
	if !a.cfg.HasCredentials() {
		return a.fallback(ctx, r, ReasonMissingConfig)
	}

	if a.cfg.Temperature > a.cfg.MaxTemperature {
		return nil, a.reject(ctx, &Error{Kind: KindTemperature,
			Err: fmt.Errorf("temperature %.2f exceeds ceiling %.2f", a.cfg.Temperature, a.cfg.MaxTemperature)})
	}

	prompt, err := BuildPrompt(r)
	if err != nil {
		return nil, a.reject(ctx, &Error{Kind: KindMalformed, Err: err})
	}
	if n := promptLength(prompt); n > a.cfg.MaxPromptChars {
		return nil, a.reject(ctx, &Error{Kind: KindPromptTooLarge,
			Err: fmt.Errorf("prompt is %d characters, limit %d", n, a.cfg.MaxPromptChars)})
	}

	// Zero admits nothing. The limiter reads zero as unlimited.
	if a.cfg.MaxCallsPerMin == 0 {
		return nil, a.reject(ctx, &Error{Kind: KindRateLimited,
			Err: errors.New("rate limit exceeded: max_calls_per_min is 0")})
	}
	if res := a.limiter.Allow(); res.Exceeded {
		return nil, a.reject(ctx, &Error{Kind: KindRateLimited, Err: errors.New(res.Reason)})
	}

	a.audit(audit.EventAICallAttempt, id, map[string]string{
		"provider":     a.cfg.Provider,
		"model":        a.cfg.Model,
		"prompt_chars": strconv.Itoa(promptLength(prompt)),
	})

	out, err := a.call(ctx, prompt)
	if err != nil {
		a.audit(audit.EventAICallFailed, id, map[string]string{"model": a.cfg.Model, "error": err.Error()})
		return nil, a.reject(ctx, err)
	}

	a.audit(audit.EventAICallSuccess, id, map[string]string{"model": a.cfg.Model})
	a.metrics.RecordAdvisory(ctx, "live", "ok")
	a.logger.Debug("advisory generated", "incident_id", id, "model", a.cfg.Model)
	return out, nil
}

func (a *Advisor) call(ctx context.Context, prompt string) (*model.Advisory, error) {
	if a.gen == nil {
		return nil, &Error{Kind: KindTransport, Err: errors.New("no generator configured")}
	}

	callCtx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	raw, err := a.gen.Generate(callCtx, Request{
		System:      SystemPrompt,
		Prompt:      prompt,
		Model:       a.cfg.Model,
		Temperature: a.cfg.Temperature,
	})
	if err != nil {
		return nil, &Error{Kind: KindTransport, Err: err}
	}
	return a.validator.ParseResponse(raw)
}

func (a *Advisor) fallback(ctx context.Context, r *model.Result, reason string) (*model.Advisory, error) {
	a.audit(audit.EventAIFallbackUsed, r.Incident.IncidentID, map[string]string{"reason": reason})
	a.logger.Info("advisory fallback used", "incident_id", r.Incident.IncidentID, "reason", reason)

	out := Fallback(r, reason)
	if err := a.validator.Validate(out); err != nil {
		return nil, a.reject(ctx, &Error{Kind: KindSchema, Err: err})
	}
	a.metrics.RecordAdvisory(ctx, "fallback", "ok")
	return out, nil
}

func (a *Advisor) reject(ctx context.Context, err error) error {
	kind := "error"
	var aerr *Error
	if errors.As(err, &aerr) {
		kind = string(aerr.Kind)
	}
	a.metrics.RecordAdvisory(ctx, "live", kind)
	a.logger.Warn("advisory call rejected", "kind", kind, "error", err)
	return err
}

func (a *Advisor) audit(event, incidentID string, details map[string]string) {
	if !a.cfg.Audit || a.recorder == nil {
		return
	}
	if err := a.recorder.Event(event, incidentID, details); err != nil {
		a.logger.Warn("advisory audit write failed", "event", event, "error", err)
	}
}
