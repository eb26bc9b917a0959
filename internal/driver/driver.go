// Package driver runs the analysis passes over fixture files. Fixtures are
// independent: each gets its own file set, descriptor table and bag, so they
// are analysed in parallel while the results keep the input order.
package driver

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"flowsema/internal/cfg"
	"flowsema/internal/ctorcheck"
	"flowsema/internal/delegation"
	"flowsema/internal/descriptors"
	"flowsema/internal/diag"
	"flowsema/internal/fixture"
	"flowsema/internal/observ"
	"flowsema/internal/overload"
	"flowsema/internal/redecl"
	"flowsema/internal/smartcast"
	"flowsema/internal/source"
	"flowsema/internal/trace"
	"flowsema/internal/types"
)

// Options configure a run.
type Options struct {
	MaxDiagnostics       int
	Jobs                 int
	DiscriminateGenerics bool
	// FragileAnnotation names the exempting annotation type; empty selects
	// the built-in one.
	FragileAnnotation string
	WarningsAsErrors  bool
	NoWarnings        bool
	// Timings appends an OBS6001 info diagnostic per fixture.
	Timings  bool
	Progress ProgressSink
}

// Result is the outcome for one fixture.
type Result struct {
	Path    string
	Files   *source.FileSet
	Fixture *fixture.Fixture
	Bag     *diag.Bag
	// Calls holds one resolution per fixture call, in fixture order.
	Calls  []overload.Result
	Facts  []*smartcast.Result
	Timing *observ.Report
	// Err is set when the fixture could not be read or a pass crashed.
	// Syntax errors are diagnostics, not errors.
	Err error
}

// Failed reports whether the fixture produced errors.
func (r *Result) Failed() bool {
	return r.Err != nil || (r.Bag != nil && r.Bag.HasErrors())
}

// ListFixtures expands directories into the *.yaml and *.yml files below
// them. Files named explicitly are kept whatever their extension. The result
// is sorted and free of duplicates.
func ListFixtures(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		err := filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			if path == p || isFixture(path) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("list fixtures: %w", err)
		}
	}
	slices.Sort(files)
	return slices.Compact(files), nil
}

func isFixture(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// Run analyses every file. The returned slice is parallel to files. The
// error is only set when ctx is cancelled.
func Run(ctx context.Context, files []string, opts Options) ([]Result, error) {
	results := make([]Result, len(files))
	if len(files) == 0 {
		return results, nil
	}
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	for _, f := range files {
		emit(opts.Progress, Event{File: f, Status: StatusQueued})
	}

	tracer := trace.FromContext(ctx)
	runSpan := trace.Begin(tracer, trace.ScopeDriver, "run", trace.CurrentSpan(ctx).SpanID)
	defer runSpan.End(fmt.Sprintf("%d fixtures", len(files)))
	ctx = trace.WithSpanContext(ctx, trace.SpanContext{SpanID: runSpan.ID()})

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(files)))
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			// indices are unique per goroutine
			results[i] = CheckFile(gctx, path, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// CheckFile loads one fixture and runs every pass over it.
func CheckFile(ctx context.Context, path string, opts Options) Result {
	files := source.NewFileSet()
	return analyze(ctx, path, opts, func(rep diag.Reporter, fo fixture.Options) (*fixture.Fixture, error) {
		return fixture.Load(files, path, rep, fo)
	}, files)
}

// CheckSource runs the passes over an in-memory fixture.
func CheckSource(ctx context.Context, name string, content []byte, opts Options) Result {
	files := source.NewFileSet()
	return analyze(ctx, name, opts, func(rep diag.Reporter, fo fixture.Options) (*fixture.Fixture, error) {
		return fixture.Parse(files, name, content, rep, fo)
	}, files)
}

type loadFunc func(diag.Reporter, fixture.Options) (*fixture.Fixture, error)

func analyze(ctx context.Context, path string, opts Options, load loadFunc, files *source.FileSet) (res Result) {
	res = Result{Path: path, Files: files, Bag: diag.NewBag(opts.MaxDiagnostics)}
	var rep diag.Reporter = diag.BagReporter{Bag: res.Bag}
	rep = diag.NewDedupReporter(rep)
	rep = diag.SeverityFilter{Next: rep, WarningsAsErrors: opts.WarningsAsErrors, NoWarnings: opts.NoWarnings}

	p := &pipeline{
		ctx:    ctx,
		opts:   opts,
		rep:    rep,
		res:    &res,
		timer:  observ.NewTimer(),
		tracer: trace.FromContext(ctx),
	}
	fileSpan := trace.Begin(p.tracer, trace.ScopeDriver, "fixture", trace.CurrentSpan(ctx).SpanID).WithExtra("path", path)
	p.parent = fileSpan.ID()

	defer func() {
		if r := recover(); r != nil {
			res.Err = fmt.Errorf("%s: internal error in %s: %v", path, p.stage, r)
		}
		status := StatusDone
		if res.Failed() {
			status = StatusError
		}
		report := p.timer.Report()
		res.Timing = &report
		if opts.Timings {
			addTimings(res.Bag, path, report)
		}
		emit(opts.Progress, Event{File: path, Stage: p.stage, Status: status, Err: res.Err})
		fileSpan.End(string(status))
	}()

	var fix *fixture.Fixture
	p.run(StageLoad, func() {
		var err error
		fix, err = load(rep, fixture.Options{DiscriminateGenerics: opts.DiscriminateGenerics})
		var se *fixture.SyntaxError
		switch {
		case errors.As(err, &se):
			sp := source.Span{}
			if f, ok := files.Lookup(path); ok {
				sp.File = f.ID
			}
			diag.ReportError(rep, diag.IOFixtureSyntax, sp, se.Err.Error()).Emit()
		case err != nil:
			res.Err = err
		}
	})
	if fix == nil {
		return res
	}
	res.Fixture = fix

	p.run(StageDelegation, func() { p.delegation(fix) })
	p.run(StageRedecl, func() { redecl.Check(fix.Table, rep) })
	p.run(StageOverload, func() { p.overload(fix) })
	p.run(StageSmartcast, func() { p.smartcast(fix) })
	p.run(StageCtorcheck, func() { p.ctorcheck(fix) })
	if err := ctx.Err(); err != nil && res.Err == nil {
		res.Err = err
	}
	res.Bag.Sort()
	return res
}

type pipeline struct {
	ctx    context.Context
	opts   Options
	rep    diag.Reporter
	res    *Result
	timer  *observ.Timer
	tracer trace.Tracer
	parent uint64
	stage  Stage
	span   uint64
}

// run executes one pass unless the context is done. Cancellation is only
// observed between passes.
func (p *pipeline) run(stage Stage, fn func()) {
	if p.ctx.Err() != nil {
		return
	}
	p.stage = stage
	emit(p.opts.Progress, Event{File: p.res.Path, Stage: stage, Status: StatusWorking})
	start := time.Now()
	idx := p.timer.Begin(string(stage))
	span := trace.Begin(p.tracer, trace.ScopePass, string(stage), p.parent)
	p.span = span.ID()
	fn()
	span.End("")
	p.timer.End(idx, "")
	emit(p.opts.Progress, Event{File: p.res.Path, Stage: stage, Status: StatusWorking, Elapsed: time.Since(start)})
}

func (p *pipeline) delegation(fix *fixture.Fixture) {
	for _, c := range fix.Classes {
		if len(c.Specifiers) == 0 {
			continue
		}
		span := trace.Begin(p.tracer, trace.ScopeDecl, fix.Table.Name(c.ID), p.span)
		members := delegation.Synthesize(delegation.Request{
			Table:      fix.Table,
			Reporter:   p.rep,
			ClassSpan:  c.Span,
			Owner:      c.ID,
			Existing:   fix.Table.ClassMembers(c.ID),
			Specifiers: c.Specifiers,
			Types:      fix,
		})
		delegation.Apply(fix.Table, c.ID, members)
		span.End(fmt.Sprintf("%d delegated", len(members)))
	}
}

func (p *pipeline) overload(fix *fixture.Fixture) {
	r := overload.NewResolver(fix.Table).WithTracer(p.tracer, p.span)
	p.res.Calls = make([]overload.Result, 0, len(fix.Calls))
	for _, c := range fix.Calls {
		res := r.ResolveAndReport(p.rep, c.Span, c.Name, c.Candidates, c.Discriminate, c.Mode)
		p.res.Calls = append(p.res.Calls, res)
	}
}

func (p *pipeline) smartcast(fix *fixture.Fixture) {
	for _, g := range fix.Graphs {
		span := trace.Begin(p.tracer, trace.ScopeDecl, g.Name, p.span)
		res := smartcast.Analyze(g)
		res.Report(p.rep)
		p.res.Facts = append(p.res.Facts, res)
		span.End(fmt.Sprintf("%d probes", len(res.Facts)))
	}
}

func (p *pipeline) ctorcheck(fix *fixture.Fixture) {
	fragile := p.fragile(fix)
	for _, g := range fix.Graphs {
		if !constructorGraph(fix.Table, g) {
			continue
		}
		span := trace.Begin(p.tracer, trace.ScopeDecl, g.Name, p.span)
		ctorcheck.Check(ctorcheck.Request{Table: fix.Table, Graph: g, Reporter: p.rep, Fragile: fragile})
		span.End("")
	}
}

func constructorGraph(tab *descriptors.Table, g *cfg.Graph) bool {
	d := tab.Get(g.Decl)
	return d != nil && (d.Kind == descriptors.KindClass || d.Kind == descriptors.KindConstructor)
}

// fragile looks the configured annotation up among the fixture's types.
func (p *pipeline) fragile(fix *fixture.Fixture) types.TypeID {
	name := p.opts.FragileAnnotation
	if name == "" {
		return types.NoTypeID
	}
	t, ok := fix.Table.Types().ByName(name)
	if !ok {
		msg := fmt.Sprintf("annotation %s is not declared, falling back to Fragile", name)
		diag.ReportWarning(p.rep, diag.IOFixtureUnknownName, source.Span{File: fix.File}, msg).Emit()
		return types.NoTypeID
	}
	return t
}
