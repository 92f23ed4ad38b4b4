package cli

import (
	"context"
	"fmt"

	"github.com/ppiankov/socwatch/internal/advisory"
	"github.com/ppiankov/socwatch/internal/audit"
	"github.com/ppiankov/socwatch/internal/policy"
	"github.com/ppiankov/socwatch/internal/service"
	"github.com/ppiankov/socwatch/internal/telemetry"
	"github.com/ppiankov/socwatch/internal/triage"
)

// runtime holds everything a command builds from the loaded config.
type runtime struct {
	rules    policy.Source
	watched  *policy.WatchedSource
	auditLog *audit.Log
	metrics  *telemetry.Metrics
	svc      *service.Service
	shutdown func(context.Context) error
}

// initMetrics is swapped in tests.
var initMetrics = telemetry.InitMetrics

// newRuntime wires the service from cfg. With watch set, a configured
// policy file is cached and hot-reloaded; otherwise it is read per run.
// On error everything built so far is released.
func newRuntime(ctx context.Context, watch bool) (_ *runtime, err error) {
	rt := &runtime{shutdown: initMetrics(ctx, "socwatch", version)}
	rt.metrics = telemetry.New()
	defer func() {
		if err != nil {
			rt.Close(ctx)
		}
	}()

	scoringCfg, err := cfg.Scoring()
	if err != nil {
		return nil, err
	}

	if cfg.PolicyFile != "" {
		if watch {
			ws, err := policy.NewWatchedSource(cfg.PolicyFile, logger)
			if err != nil {
				return nil, fmt.Errorf("failed to load policy: %w", err)
			}
			rt.watched = ws
			rt.rules = ws
		} else {
			rt.rules = policy.FileSource{Path: cfg.PolicyFile}
		}
	}

	if cfg.AuditLog != "" {
		rt.auditLog, err = audit.Open(cfg.AuditLog)
		if err != nil {
			return nil, fmt.Errorf("failed to open audit log: %w", err)
		}
	}

	gen, err := advisory.NewGenerator(ctx, cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm client: %w", err)
	}
	opts := []advisory.Option{advisory.WithLogger(logger), advisory.WithMetrics(rt.metrics)}
	if rt.auditLog != nil {
		opts = append(opts, advisory.WithRecorder(rt.auditLog))
	}
	advisor, err := advisory.New(cfg.LLM, gen, opts...)
	if err != nil {
		return nil, err
	}

	rt.svc = service.New(service.Config{
		Triage: triage.Options{
			Scoring:       scoringCfg,
			MinConfidence: cfg.MinConfidence,
			MaxResults:    cfg.MaxResults,
			Rules:         rt.rules,
		},
		Advisor: advisor,
		Audit:   rt.auditLog,
		Metrics: rt.metrics,
		Logger:  logger,
	})
	return rt, nil
}

// Close flushes metrics and closes the audit log.
func (rt *runtime) Close(ctx context.Context) {
	telemetry.Flush(ctx, rt.shutdown)
	if rt.auditLog != nil {
		if err := rt.auditLog.Close(); err != nil {
			logger.Warn("audit log close failed", "error", err)
		}
	}
}
