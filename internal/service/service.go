// Package service runs triage requests for the network bindings: the
// deterministic pipeline, the summary, the optional advisory layer, and
// the audit and metrics side effects around them.
package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ppiankov/socwatch/internal/advisory"
	"github.com/ppiankov/socwatch/internal/audit"
	"github.com/ppiankov/socwatch/internal/model"
	"github.com/ppiankov/socwatch/internal/signal"
	"github.com/ppiankov/socwatch/internal/summary"
	"github.com/ppiankov/socwatch/internal/telemetry"
	"github.com/ppiankov/socwatch/internal/triage"
)

// Config wires the service. Only Triage is required.
type Config struct {
	Triage  triage.Options
	Advisor *advisory.Advisor
	Audit   *audit.Log
	Metrics *telemetry.Metrics
	Logger  *slog.Logger
}

// Service is safe for concurrent use.
type Service struct {
	opts    triage.Options
	advisor *advisory.Advisor
	audit   *audit.Log
	metrics *telemetry.Metrics
	logger  *slog.Logger
}

// New creates a Service.
func New(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		opts:    cfg.Triage,
		advisor: cfg.Advisor,
		audit:   cfg.Audit,
		metrics: cfg.Metrics,
		logger:  logger,
	}
}

// Triage runs the deterministic pipeline and attaches the summary.
func (s *Service) Triage(ctx context.Context, incident map[string]any, signals signal.Map) (*model.Result, error) {
	res, err := s.run(ctx, incident, signals)
	if err != nil {
		return nil, err
	}
	s.record(res)
	return res, nil
}

// TriageAI runs Triage and then the advisory layer. An advisory failure
// returns the *advisory.Error; the deterministic result is still audited.
func (s *Service) TriageAI(ctx context.Context, incident map[string]any, signals signal.Map) (*model.Result, error) {
	res, err := s.run(ctx, incident, signals)
	if err != nil {
		return nil, err
	}

	if s.advisor == nil {
		s.record(res)
		return nil, &advisory.Error{Kind: advisory.KindTransport, Err: errors.New("advisory layer is not configured")}
	}

	ai, err := s.advisor.Advise(ctx, res)
	if err != nil {
		s.record(res)
		return nil, err
	}

	out := res.WithAdvisory(ai)
	s.record(out)
	return out, nil
}

func (s *Service) run(ctx context.Context, incident map[string]any, signals signal.Map) (*model.Result, error) {
	res, err := triage.Run(incident, signals, s.opts)
	if err != nil {
		s.metrics.RecordTriage(ctx, string(Classify(err)), "", 0)
		s.logger.Warn("triage failed", "error", err)
		return nil, err
	}
	s.metrics.RecordTriage(ctx, "ok", string(res.Scoring.Level), res.Scoring.Score)
	s.logger.Debug("triage completed",
		"incident_id", res.Incident.IncidentID,
		"score", res.Scoring.Score,
		"level", res.Scoring.Level,
	)
	return summary.Attach(res), nil
}

func (s *Service) record(res *model.Result) {
	if s.audit == nil {
		return
	}
	if err := s.audit.RecordResult(res); err != nil {
		s.logger.Warn("audit write failed", "incident_id", res.Incident.IncidentID, "error", err)
	}
}

// Class groups errors by who is at fault, for mapping onto transport codes.
type Class string

const (
	ClassInvalid  Class = "invalid"
	ClassPolicy   Class = "policy"
	ClassAdvisory Class = "advisory"
	ClassInternal Class = "internal"
)

// Classify maps a triage error onto its Class.
func Classify(err error) Class {
	var missing *model.MissingFieldError
	var policyErr *triage.PolicySourceError
	var advErr *advisory.Error
	switch {
	case errors.As(err, &missing):
		return ClassInvalid
	case errors.As(err, &policyErr):
		return ClassPolicy
	case errors.As(err, &advErr):
		return ClassAdvisory
	default:
		return ClassInternal
	}
}
