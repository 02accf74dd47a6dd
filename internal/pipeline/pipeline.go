// Package pipeline runs the batch analysis: load sources, assemble
// sessions, then detect, measure and build timelines per session.
package pipeline

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/ConfabulousDev/aist/internal/bottleneck"
	"github.com/ConfabulousDev/aist/internal/interval"
	"github.com/ConfabulousDev/aist/internal/logger"
	"github.com/ConfabulousDev/aist/internal/metrics"
	"github.com/ConfabulousDev/aist/internal/session"
	"github.com/ConfabulousDev/aist/internal/storage"
	"github.com/ConfabulousDev/aist/internal/transcript"
)

var tracer = otel.Tracer("aist/pipeline")

// Options configure a run.
type Options struct {
	// Workers bounds concurrent source loads and session analyses.
	Workers  int
	Detect   bottleneck.Config
	Timeline interval.Options
}

// DefaultOptions returns stock thresholds with four workers.
func DefaultOptions() Options {
	return Options{Workers: 4, Detect: bottleneck.DefaultConfig()}
}

// Analysis is the finished output for one top-level session tree.
type Analysis struct {
	Session     *session.Session
	Bottlenecks []bottleneck.Bottleneck
	Metrics     metrics.SessionMetrics
	Timeline    *interval.Node
}

// SourceError is a source that could not be read at all.
type SourceError struct {
	Source string
	Err    error
}

func (e SourceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Source, e.Err)
}

// Result is everything a run produced.
type Result struct {
	RunID string
	// Analyses are ordered by session start, untimed sessions last.
	Analyses     []Analysis
	Aggregate    metrics.Aggregate
	Anomalies    []transcript.Anomaly
	SourceErrors []SourceError
}

// Metrics returns the per-session metrics in analysis order.
func (r *Result) Metrics() []metrics.SessionMetrics {
	out := make([]metrics.SessionMetrics, len(r.Analyses))
	for i := range r.Analyses {
		out[i] = r.Analyses[i].Metrics
	}
	return out
}

// Bottlenecks returns every finding across sessions, in analysis order.
func (r *Result) Bottlenecks() []bottleneck.Bottleneck {
	var out []bottleneck.Bottleneck
	for i := range r.Analyses {
		out = append(out, r.Analyses[i].Bottlenecks...)
	}
	return out
}

// Find returns the analysis whose session id starts with prefix. ok is
// false when nothing or more than one session matches.
func (r *Result) Find(prefix string) (*Analysis, bool) {
	var found *Analysis
	for i := range r.Analyses {
		id := r.Analyses[i].Session.Key()
		if id == prefix {
			return &r.Analyses[i], true
		}
		if len(id) >= len(prefix) && id[:len(prefix)] == prefix {
			if found != nil {
				return nil, false
			}
			found = &r.Analyses[i]
		}
	}
	return found, found != nil
}

// Latest returns the most recently started timed session.
func (r *Result) Latest() (*Analysis, bool) {
	var latest *Analysis
	for i := range r.Analyses {
		a := &r.Analyses[i]
		if a.Session.StartTime == nil {
			continue
		}
		if latest == nil || a.Session.StartTime.After(*latest.Session.StartTime) {
			latest = a
		}
	}
	return latest, latest != nil
}

// Filter keeps the analyses for which keep returns true and recomputes
// the aggregate.
func (r *Result) Filter(keep func(*Analysis) bool) {
	kept := r.Analyses[:0]
	for i := range r.Analyses {
		if keep(&r.Analyses[i]) {
			kept = append(kept, r.Analyses[i])
		}
	}
	r.Analyses = kept
	r.Aggregate = metrics.Sum(r.Metrics())
}

// analyze is swapped in tests to exercise panic isolation.
var analyze = Analyze

// Analyze runs detection, metrics and the interval builder over one tree.
func Analyze(root *session.Session, opts Options) Analysis {
	findings := bottleneck.DetectAll(root, opts.Detect)
	return Analysis{
		Session:     root,
		Bottlenecks: findings,
		Metrics:     metrics.Compute(root, findings),
		Timeline:    interval.Build(root, opts.Timeline),
	}
}

// Run analyzes sources. Sources that fail to load and sessions that fail
// to analyze are reported in the result; the rest of the batch proceeds.
// Only context cancellation returns an error.
func Run(ctx context.Context, sources []storage.Source, opts Options) (*Result, error) {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	res := &Result{RunID: uuid.NewString()}
	ctx = logger.WithRun(ctx, res.RunID)
	log := logger.Ctx(ctx)

	ctx, span := tracer.Start(ctx, "pipeline.run",
		trace.WithAttributes(
			attribute.String("run.id", res.RunID),
			attribute.Int("sources.count", len(sources)),
			attribute.Int("workers", opts.Workers),
		))
	defer span.End()

	logs, err := loadAll(ctx, sources, opts.Workers, res)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	roots, anomalies := session.Assemble(logs)
	res.Anomalies = append(res.Anomalies, anomalies...)

	analyses, err := analyzeAll(ctx, roots, opts, res)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	res.Analyses = analyses
	res.Aggregate = metrics.Sum(res.Metrics())

	counts := transcript.CountByKind(res.Anomalies)
	attrs := []any{
		"sources", len(sources),
		"source_errors", len(res.SourceErrors),
		"sessions", len(res.Analyses),
		"anomalies", len(res.Anomalies),
	}
	for kind, n := range counts {
		attrs = append(attrs, string(kind), n)
	}
	log.Info("analysis complete", attrs...)
	span.SetAttributes(
		attribute.Int("sessions.count", len(res.Analyses)),
		attribute.Int("anomalies.count", len(res.Anomalies)),
	)
	return res, nil
}

// loadAll reads every source in parallel. Results keep source order.
func loadAll(ctx context.Context, sources []storage.Source, workers int, res *Result) ([]*transcript.Log, error) {
	logs := make([]*transcript.Log, len(sources))
	errs := make([]error, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, src := range sources {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			logs[i], errs[i] = load(gctx, src)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	log := logger.Ctx(ctx)
	var loaded []*transcript.Log
	for i, l := range logs {
		if errs[i] != nil {
			name := sources[i].Ref().Name
			log.Warn("failed to read source", "source", name, "error", errs[i])
			res.SourceErrors = append(res.SourceErrors, SourceError{Source: name, Err: errs[i]})
			continue
		}
		if logger.IsDebug() {
			for _, a := range l.Anomalies {
				log.Debug("anomaly", "kind", a.Kind, "source", a.Source, "line", a.Line, "detail", a.Detail)
			}
		}
		res.Anomalies = append(res.Anomalies, l.Anomalies...)
		loaded = append(loaded, l)
	}
	return loaded, nil
}

func load(ctx context.Context, src storage.Source) (*transcript.Log, error) {
	ref := src.Ref()
	ctx, span := tracer.Start(ctx, "pipeline.load_source",
		trace.WithAttributes(attribute.String("source.name", ref.Name)))
	defer span.End()

	rc, err := src.Open(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	defer rc.Close()

	l, err := transcript.ReadLog(rc, ref)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("source.lines", l.TotalLines),
		attribute.Int("source.events", len(l.Events)),
	)
	return l, nil
}

// analyzeAll analyzes each root independently. A panicking session is
// dropped and recorded as a SessionFailed anomaly.
func analyzeAll(ctx context.Context, roots []*session.Session, opts Options, res *Result) ([]Analysis, error) {
	out := make([]Analysis, len(roots))
	failed := make([]*transcript.Anomaly, len(roots))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i, root := range roots {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i], failed[i] = analyzeIsolated(gctx, root, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	analyses := make([]Analysis, 0, len(roots))
	for i := range roots {
		if failed[i] != nil {
			res.Anomalies = append(res.Anomalies, *failed[i])
			continue
		}
		analyses = append(analyses, out[i])
	}
	return analyses, nil
}

func analyzeIsolated(ctx context.Context, root *session.Session, opts Options) (a Analysis, failure *transcript.Anomaly) {
	_, span := tracer.Start(ctx, "pipeline.analyze_session",
		trace.WithAttributes(
			attribute.String("session.id", root.Key()),
			attribute.Int("session.events", len(root.Events)),
		))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v", r)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			logger.Ctx(ctx).Error("session analysis failed",
				"session_id", root.Key(), "error", err, "stack", string(debug.Stack()))
			failure = &transcript.Anomaly{
				Kind:      transcript.SessionFailed,
				SessionID: root.Key(),
				Source:    firstSource(root),
				Detail:    err.Error(),
			}
		}
	}()

	a = analyze(root, opts)
	span.SetAttributes(attribute.Int("session.bottlenecks", len(a.Bottlenecks)))
	return a, nil
}

func firstSource(s *session.Session) string {
	if len(s.Sources) == 0 {
		return ""
	}
	return s.Sources[0]
}
