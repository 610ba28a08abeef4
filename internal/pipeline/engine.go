// Package pipeline runs discovery, matching, planning and rendering over one graph.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	"relaygen/internal/diag"
	"relaygen/internal/discovery"
	"relaygen/internal/generator"
	"relaygen/internal/graph"
	"relaygen/internal/index"
	"relaygen/internal/matcher"
	"relaygen/internal/metrics"
	"relaygen/internal/planner"
	"relaygen/internal/storage"
	"relaygen/internal/tracing"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

type Mode string

const (
	ModeGenerate Mode = "generate"
	ModeCheck    Mode = "check"
	ModePlan     Mode = "plan"
)

type Status string

const (
	StatusWritten   Status = "written"
	StatusUnchanged Status = "unchanged"
	StatusStale     Status = "stale"
	StatusPlanned   Status = "planned"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

// Replaced in tests.
var (
	discoverFactory = discovery.DiscoverFactory
	synthesize      = planner.Synthesize
)

// Options configure one run.
type Options struct {
	Mode    Mode
	Workers int
	// Root resolves relative output paths.
	Root      string
	Discovery discovery.Options
	// Affected limits writing to these factory type IDs. Nil means every factory.
	Affected map[string]bool
}

// FactoryResult is the outcome of one factory.
type FactoryResult struct {
	Factory  string                 `json:"factory"`
	File     string                 `json:"file"`
	Output   string                 `json:"output"`
	Status   Status                 `json:"status"`
	Bindings int                    `json:"bindings"`
	Hash     string                 `json:"hash,omitempty"`
	Removed  bool                   `json:"removed,omitempty"`
	Plan     *planner.SynthesisPlan `json:"plan,omitempty"`
}

// Report is the outcome of one run.
type Report struct {
	RunID       string            `json:"run_id"`
	Mode        Mode              `json:"mode"`
	Root        string            `json:"root"`
	StartedAt   time.Time         `json:"started_at"`
	Elapsed     time.Duration     `json:"elapsed"`
	Factories   []FactoryResult   `json:"factories"`
	Diagnostics []diag.Diagnostic `json:"diagnostics"`
}

func (r *Report) HasErrors() bool {
	for _, d := range r.Diagnostics {
		if d.IsError() {
			return true
		}
	}
	return false
}

func (r *Report) Bindings() int {
	n := 0
	for _, f := range r.Factories {
		n += f.Bindings
	}
	return n
}

// Count returns the number of factories with status s.
func (r *Report) Count(s Status) int {
	n := 0
	for _, f := range r.Factories {
		if f.Status == s {
			n++
		}
	}
	return n
}

// Record converts the report into a history entry.
func (r *Report) Record() *storage.Run {
	run := &storage.Run{
		ID:          r.RunID,
		Mode:        string(r.Mode),
		Root:        r.Root,
		StartedAt:   r.StartedAt,
		Elapsed:     r.Elapsed,
		Factories:   len(r.Factories),
		Bindings:    r.Bindings(),
		Diagnostics: r.Diagnostics,
	}
	for _, d := range r.Diagnostics {
		switch d.Severity {
		case diag.SeverityError:
			run.Errors++
		case diag.SeverityWarning:
			run.Warnings++
		}
	}
	for _, f := range r.Factories {
		run.Artifacts = append(run.Artifacts, storage.Artifact{
			Factory:  f.Factory,
			Path:     f.Output,
			Status:   string(f.Status),
			Bindings: f.Bindings,
			Hash:     f.Hash,
		})
	}
	return run
}

// Engine runs the generation pipeline. Its dependencies are optional except the renderer.
type Engine struct {
	renderer *generator.Renderer
	logger   *slog.Logger
	tracer   trace.Tracer
	metrics  *metrics.Recorder
	history  storage.RunStore
	now      func() time.Time
}

func NewEngine() *Engine {
	return &Engine{
		renderer: generator.NewRenderer(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracer:   otel.Tracer(tracing.TracerName),
		now:      time.Now,
	}
}

func (e *Engine) WithLogger(l *slog.Logger) *Engine {
	if l != nil {
		e.logger = l
	}
	return e
}

func (e *Engine) WithTracerProvider(tp trace.TracerProvider) *Engine {
	if tp != nil {
		e.tracer = tp.Tracer(tracing.TracerName)
	}
	return e
}

func (e *Engine) WithMetrics(r *metrics.Recorder) *Engine {
	e.metrics = r
	return e
}

// WithHistory stores every finished run. Storage failures are logged, not returned.
func (e *Engine) WithHistory(s storage.RunStore) *Engine {
	e.history = s
	return e
}

// Run processes every factory of g. Diagnostics never fail the run; only cancellation does.
func (e *Engine) Run(ctx context.Context, g *graph.Graph, opts Options) (*Report, error) {
	if opts.Mode == "" {
		opts.Mode = ModeGenerate
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	start := e.now()
	report := &Report{RunID: uuid.NewString(), Mode: opts.Mode, Root: opts.Root, StartedAt: start}

	ctx, span := e.tracer.Start(ctx, "relay.run", trace.WithAttributes(
		attribute.String("relay.run_id", report.RunID),
		attribute.String("relay.mode", string(opts.Mode)),
	))
	defer span.End()

	reporter := diag.NewReporter()
	types := g.FactoryTypes()
	decls := make([]*discovery.FactoryDeclaration, len(types))
	results := make([]FactoryResult, len(types))
	bufs := make([]*diag.Buffer, len(types))

	accepted := 0
	for i, t := range types {
		if d, ok := e.discover(t, opts, reporter); ok {
			decls[i] = d
			accepted++
			continue
		}
		results[i] = FactoryResult{Factory: t.Name, File: t.Filepath, Output: e.resolve(opts.Root, planner.OutputPath(t))}
		e.fail(&results[i], opts)
	}
	discovery.ReportInjectIssues(g, reporter)
	cands := discovery.CollectCandidates(g)
	m := matcher.New(g, index.NewInheritance())

	e.logger.Debug("discovery finished", "run_id", report.RunID, "factories", accepted, "rejected", len(types)-accepted, "candidates", len(cands))

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for i, d := range decls {
		if gctx.Err() != nil {
			break
		}
		if d == nil {
			continue
		}
		eg.Go(func() error {
			results[i], bufs[i] = e.processFactory(gctx, m, d, cands, opts)
			return nil
		})
	}
	_ = eg.Wait()

	if err := ctx.Err(); err != nil {
		span.SetStatus(codes.Error, "cancelled")
		return nil, fmt.Errorf("run %s cancelled: %w", report.RunID, err)
	}

	reporter.Merge(bufs...)
	report.Elapsed = e.now().Sub(start)
	reporter.Report(diag.Performance(report.Elapsed))

	report.Factories = results
	report.Diagnostics = reporter.Diagnostics()

	span.SetAttributes(
		attribute.Int("relay.factories", len(results)),
		attribute.Int("relay.bindings", report.Bindings()),
	)
	if report.HasErrors() {
		span.SetStatus(codes.Error, "diagnostics reported errors")
	}

	e.record(ctx, report)
	e.logger.Info("run finished",
		"run_id", report.RunID,
		"mode", opts.Mode,
		"factories", len(results),
		"bindings", report.Bindings(),
		"elapsed", report.Elapsed,
	)
	return report, nil
}

func (e *Engine) record(ctx context.Context, report *Report) {
	if e.metrics != nil {
		e.metrics.ObserveRun(string(report.Mode), report.Elapsed, report.StartedAt.Add(report.Elapsed))
		e.metrics.AddBindings(report.Bindings())
		for _, f := range report.Factories {
			e.metrics.CountFactory(string(f.Status))
		}
		for _, d := range report.Diagnostics {
			e.metrics.CountDiagnostic(string(d.Code), string(d.Severity))
		}
	}
	if e.history != nil {
		if err := e.history.SaveRun(ctx, report.Record()); err != nil {
			e.logger.Warn("failed to save run history", "run_id", report.RunID, "error", err)
		}
	}
}

// discover validates one factory type. A panic becomes RELAY004 and rejects the factory.
func (e *Engine) discover(t *graph.Type, opts Options, sink diag.Sink) (decl *discovery.FactoryDeclaration, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			sink.Report(diag.Internal(t, fmt.Errorf("panic: %v", r), debug.Stack()))
			decl, ok = nil, false
		}
	}()
	return discoverFactory(t, opts.Discovery, sink)
}

// processFactory never panics; failures become RELAY004 in the factory's own buffer.
func (e *Engine) processFactory(ctx context.Context, m *matcher.Matcher, d *discovery.FactoryDeclaration, cands []*discovery.ConstructorCandidate, opts Options) (res FactoryResult, buf *diag.Buffer) {
	buf = &diag.Buffer{}
	res = FactoryResult{
		Factory: d.Name,
		File:    d.Type.Filepath,
		Output:  e.resolve(opts.Root, planner.OutputPath(d.Type)),
	}

	_, span := e.tracer.Start(ctx, "relay.factory", trace.WithAttributes(
		attribute.String("relay.factory", d.Name),
		attribute.String("relay.output", res.Output),
	))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			buf.Report(diag.Internal(d.Type, fmt.Errorf("panic: %v", r), debug.Stack()))
			res.Plan = nil
			e.fail(&res, opts)
		}
		span.SetAttributes(attribute.String("relay.status", string(res.Status)), attribute.Int("relay.bindings", res.Bindings))
		if res.Status == StatusFailed {
			span.SetStatus(codes.Error, "factory failed")
		}
		e.logger.Debug("factory processed", "factory", d.Name, "status", res.Status, "bindings", res.Bindings)
	}()

	bindings := m.MatchFactory(d, cands)
	res.Bindings = len(bindings)
	if len(bindings) == 0 {
		buf.Report(diag.NoFactoryMethods(d.Type))
		e.fail(&res, opts)
		return res, buf
	}

	sp := synthesize(d, bindings)
	res.Plan = sp
	if opts.Mode == ModePlan {
		res.Status = StatusPlanned
		return res, buf
	}
	if opts.Affected != nil && !opts.Affected[d.Type.ID] {
		res.Status = StatusSkipped
		return res, buf
	}

	src, err := e.renderer.Render(sp)
	if err != nil {
		buf.Report(diag.Internal(d.Type, err, nil))
		e.fail(&res, opts)
		return res, buf
	}
	sum := sha256.Sum256(src)
	res.Hash = hex.EncodeToString(sum[:])

	if opts.Mode == ModeCheck {
		current, err := generator.IsCurrent(res.Output, src)
		switch {
		case err != nil:
			buf.Report(diag.Internal(d.Type, err, nil))
			res.Status = StatusFailed
		case current:
			res.Status = StatusUnchanged
		default:
			res.Status = StatusStale
		}
		return res, buf
	}

	written, err := generator.WriteIfChanged(res.Output, src)
	if err != nil {
		buf.Report(diag.Internal(d.Type, err, nil))
		res.Status = StatusFailed
		return res, buf
	}
	res.Status = StatusUnchanged
	if written {
		res.Status = StatusWritten
	}
	return res, buf
}

// fail marks res failed and, when generating, removes the output left by an earlier run.
func (e *Engine) fail(res *FactoryResult, opts Options) {
	res.Status = StatusFailed
	if opts.Mode != ModeGenerate {
		return
	}
	removed, err := generator.RemoveStale(res.Output)
	if err != nil {
		if !errors.Is(err, generator.ErrNotGenerated) {
			e.logger.Warn("failed to remove stale output", "factory", res.Factory, "path", res.Output, "error", err)
		}
		return
	}
	res.Removed = removed
}

func (e *Engine) resolve(root, path string) string {
	if root == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}
