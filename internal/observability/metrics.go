// Package observability records audit metrics through the OpenTelemetry metric API.
// Without a configured provider the global no-op meter is used.
package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"ciphercourt/internal/model"
)

const instrumentationName = "ciphercourt"

// Metrics holds the audit instruments.
type Metrics struct {
	sources    metric.Int64Counter
	violations metric.Int64Counter
	duration   metric.Float64Histogram
	runs       metric.Int64Counter
}

// NewMetrics creates the instruments on meter. A nil meter uses the global provider.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	if meter == nil {
		meter = otel.Meter(instrumentationName)
	}
	m := &Metrics{}
	var err error

	m.sources, err = meter.Int64Counter("ciphercourt.audit.sources",
		metric.WithDescription("Audited sources by overall status"),
		metric.WithUnit("{source}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create sources counter: %w", err)
	}

	m.violations, err = meter.Int64Counter("ciphercourt.leakage.violations",
		metric.WithDescription("Temporal leakage violations detected"),
		metric.WithUnit("{violation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create violations counter: %w", err)
	}

	m.duration, err = meter.Float64Histogram("ciphercourt.audit.source.duration",
		metric.WithDescription("Per-source audit duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 10.0),
	)
	if err != nil {
		return nil, fmt.Errorf("create duration histogram: %w", err)
	}

	m.runs, err = meter.Int64Counter("ciphercourt.audit.runs",
		metric.WithDescription("Completed audit runs"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create runs counter: %w", err)
	}
	return m, nil
}

// RecordSource records one audited source.
func (m *Metrics) RecordSource(ctx context.Context, r *model.SourceReport) {
	if m == nil {
		return
	}
	source := attribute.String("source", r.Source)
	m.sources.Add(ctx, 1, metric.WithAttributes(source, attribute.String("status", r.OverallStatus.String())))
	m.duration.Record(ctx, r.DurationSeconds, metric.WithAttributes(source))
	if n := violationsTotal(r.LeakageCheck); n > 0 {
		m.violations.Add(ctx, int64(n), metric.WithAttributes(source))
	}
}

// RecordRun records a completed run.
func (m *Metrics) RecordRun(ctx context.Context, run *model.RunReport) {
	if m == nil {
		return
	}
	m.runs.Add(ctx, 1, metric.WithAttributes(attribute.Bool("failed", run.Failed())))
}

func violationsTotal(r model.CheckResult) int {
	n, _ := r.Details["violations_total"].(int)
	return n
}
