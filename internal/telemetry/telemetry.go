// Package telemetry exposes the OpenTelemetry instruments used by socwatch
// and installs an OTLP/gRPC exporter when one is configured.
package telemetry

import (
	"context"
	"log/slog"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

const meterName = "github.com/ppiankov/socwatch"

// Metrics holds the triage instruments.
type Metrics struct {
	TriageRuns    metric.Int64Counter
	TriageScore   metric.Int64Histogram
	AdvisoryCalls metric.Int64Counter
}

// New creates instruments on the global meter provider. Before InitMetrics
// installs a provider they are no-ops.
func New() *Metrics {
	meter := otel.Meter(meterName)
	runs, _ := meter.Int64Counter("socwatch_triage_runs_total",
		metric.WithDescription("Triage pipeline runs by outcome"))
	score, _ := meter.Int64Histogram("socwatch_triage_score",
		metric.WithDescription("Deterministic confidence score per run"),
		metric.WithExplicitBucketBoundaries(0, 20, 40, 60, 70, 80, 90, 100))
	calls, _ := meter.Int64Counter("socwatch_advisory_calls_total",
		metric.WithDescription("Advisory layer calls by mode and outcome"))
	return &Metrics{TriageRuns: runs, TriageScore: score, AdvisoryCalls: calls}
}

// RecordTriage counts one pipeline run. level is empty for failed runs.
func (m *Metrics) RecordTriage(ctx context.Context, outcome, level string, score int) {
	if m == nil {
		return
	}
	m.TriageRuns.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
		attribute.String("level", level),
	))
	if outcome == "ok" {
		m.TriageScore.Record(ctx, int64(score), metric.WithAttributes(attribute.String("level", level)))
	}
}

// RecordAdvisory counts one advisory call.
func (m *Metrics) RecordAdvisory(ctx context.Context, mode, outcome string) {
	if m == nil {
		return
	}
	m.AdvisoryCalls.Add(ctx, 1, metric.WithAttributes(
		attribute.String("mode", mode),
		attribute.String("outcome", outcome),
	))
}

// InitMetrics installs a global OTLP/gRPC meter provider when
// OTEL_EXPORTER_OTLP_METRICS_ENDPOINT or OTEL_EXPORTER_OTLP_ENDPOINT is set.
// Without an endpoint metrics stay no-op. The returned shutdown is never nil.
func InitMetrics(ctx context.Context, service, version string) func(context.Context) error {
	noop := func(context.Context) error { return nil }

	endpoint := os.Getenv("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT")
	if endpoint == "" {
		endpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	}
	if endpoint == "" {
		return noop
	}

	res, err := sdkresource.Merge(sdkresource.Default(), sdkresource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(service),
		semconv.ServiceVersion(version),
	))
	if err != nil {
		res = sdkresource.Default()
	}

	ctxInit, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	exp, err := otlpmetricgrpc.New(ctxInit,
		otlpmetricgrpc.WithEndpoint(endpoint),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		slog.Warn("metrics exporter init failed", "endpoint", endpoint, "error", err)
		return noop
	}

	reader := sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(10*time.Second))
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader), sdkmetric.WithResource(res))
	otel.SetMeterProvider(mp)
	slog.Info("metrics initialized", "endpoint", endpoint)
	return mp.Shutdown
}

// Flush runs shutdown with a bounded deadline.
func Flush(ctx context.Context, shutdown func(context.Context) error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_ = shutdown(ctx)
}
