// Package audit runs the four checks over every registered source and assembles the run
// report.
package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"ciphercourt/internal/aggregate"
	"ciphercourt/internal/model"
	"ciphercourt/internal/observability"
)

// Source is anything that can be audited.
type Source interface {
	Name() string
	CheckAvailability() model.CheckResult
	AuditDataQuality() model.CheckResult
	CheckTimestamps(now time.Time) model.CheckResult
	DetectLeakage(now time.Time) model.CheckResult
}

// Auditor holds the registered sources in registration order.
type Auditor struct {
	sources map[string]Source
	ordered []string
	clock   func() time.Time
	now     time.Time
	logger  *slog.Logger
	metrics *observability.Metrics
	workers int
}

// Option configures an Auditor.
type Option func(*Auditor)

// WithClock overrides the wall clock used for run and source timings. Unless WithNow
// pins it, the reading at run start is also the "now" every time-dependent check sees.
func WithClock(clock func() time.Time) Option {
	return func(a *Auditor) { a.clock = clock }
}

// WithNow pins the reference time of time-dependent checks.
func WithNow(now time.Time) Option {
	return func(a *Auditor) { a.now = now.UTC() }
}

func WithLogger(l *slog.Logger) Option {
	return func(a *Auditor) { a.logger = l }
}

func WithMetrics(m *observability.Metrics) Option {
	return func(a *Auditor) { a.metrics = m }
}

// WithWorkers audits up to n sources concurrently. n <= 1 audits sequentially.
func WithWorkers(n int) Option {
	return func(a *Auditor) { a.workers = n }
}

// New creates an Auditor with no sources.
func New(opts ...Option) *Auditor {
	a := &Auditor{
		sources: make(map[string]Source),
		clock:   time.Now,
		logger:  slog.Default().With("component", "audit"),
		workers: 1,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Register adds a source. Names must be unique.
func (a *Auditor) Register(s Source) error {
	name := s.Name()
	if _, exists := a.sources[name]; exists {
		return fmt.Errorf("source %q already registered", name)
	}
	a.sources[name] = s
	a.ordered = append(a.ordered, name)
	return nil
}

// Sources returns the registered source names in registration order.
func (a *Auditor) Sources() []string {
	out := make([]string, 0, len(a.ordered))
	return append(out, a.ordered...)
}

// Source returns the named source.
func (a *Auditor) Source(name string) (Source, bool) {
	s, ok := a.sources[name]
	return s, ok
}

// Run audits the selected sources, or all of them when selected is empty. Unknown names
// are ignored. Only context cancellation makes it fail.
func (a *Auditor) Run(ctx context.Context, selected []string) (*model.RunReport, error) {
	start := a.clock()
	now := a.now
	if now.IsZero() {
		now = start
	}
	runID := uuid.NewString()
	logger := a.logger.With("run_id", runID)

	names := a.resolve(selected)
	logger.InfoContext(ctx, "audit started", "sources", len(names))

	reports := make([]*model.SourceReport, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(a.workers, 1))
	for i, name := range names {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			reports[i] = a.AuditSource(gctx, a.sources[name], now)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("audit run %s: %w", runID, err)
	}

	run := &model.RunReport{
		Framework:         model.FrameworkName,
		RunID:             runID,
		AuditTimestamp:    start,
		ReferenceTime:     now,
		ConnectorsAudited: names,
		Results:           make(map[string]*model.SourceReport, len(names)),
		Summary:           aggregate.Summarize(reports),
	}
	for _, r := range reports {
		run.Results[r.Source] = r
	}
	run.FinishedAt = a.clock()
	run.DurationSeconds = run.FinishedAt.Sub(start).Seconds()

	a.metrics.RecordRun(ctx, run)
	logger.InfoContext(ctx, "audit finished",
		"audited", run.Summary.TotalConnectors,
		"passed", run.Summary.Passed,
		"failed", run.Summary.Failed,
		"warnings", run.Summary.Warnings,
		"not_available", run.Summary.NotAvailable,
		"duration_seconds", run.DurationSeconds,
	)
	return run, nil
}

// AuditSource runs the four checks of one source in order against now. Timings come from
// the wall clock.
func (a *Auditor) AuditSource(ctx context.Context, s Source, now time.Time) *model.SourceReport {
	begin := a.clock()
	r := &model.SourceReport{
		Source:         s.Name(),
		AuditTimestamp: begin,
		Availability:   s.CheckAvailability(),
		DataQuality:    s.AuditDataQuality(),
		Timestamps:     s.CheckTimestamps(now),
		LeakageCheck:   s.DetectLeakage(now),
	}
	aggregate.Rollup(r)
	r.DurationSeconds = a.clock().Sub(begin).Seconds()

	level := slog.LevelDebug
	switch r.OverallStatus {
	case model.StatusFail:
		level = slog.LevelWarn
	case model.StatusWarning, model.StatusNotAvailable:
		level = slog.LevelInfo
	}
	a.logger.Log(ctx, level, "source audited",
		"source", r.Source,
		"status", r.OverallStatus.String(),
		"issues", len(r.Issues()),
	)
	a.metrics.RecordSource(ctx, r)
	return r
}

func (a *Auditor) resolve(selected []string) []string {
	if len(selected) == 0 {
		return a.Sources()
	}
	want := make(map[string]bool, len(selected))
	for _, name := range selected {
		want[name] = true
	}
	names := make([]string, 0, len(selected))
	for _, name := range a.ordered {
		if want[name] {
			names = append(names, name)
		}
	}
	return names
}
