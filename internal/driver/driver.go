// Package driver runs the whole pipeline over a source tree: discover files,
// parse them, build one graph per routine on a bounded worker pool, run the
// analysis passes and cache the per-file results.
package driver

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/l3aro/phpflow/internal/log"
	"github.com/l3aro/phpflow/internal/scanner"
	"github.com/l3aro/phpflow/pkg/analysis"
	"github.com/l3aro/phpflow/pkg/ast"
	"github.com/l3aro/phpflow/pkg/bound"
	"github.com/l3aro/phpflow/pkg/cache"
	"github.com/l3aro/phpflow/pkg/cfg"
	"github.com/l3aro/phpflow/pkg/diag"
	"github.com/l3aro/phpflow/pkg/parse"
)

// Options configures a Driver.
type Options struct {
	// Workers bounds concurrent parse and build tasks. Values below one
	// mean one.
	Workers int
	// FoldConstants rewrites statically decided conditions before the
	// analysis passes run.
	FoldConstants bool
	Checks        analysis.Options
	// Cache, when set, skips files whose content is unchanged.
	Cache *cache.Results
	// Scanner finds sources below directory roots; nil uses the defaults.
	Scanner *scanner.Scanner
	Logger  log.Logger
	// NewBinder returns the binder for one routine; nil uses
	// bound.NewBinder.
	NewBinder func() bound.Binder
}

// RoutineResult is the outcome of building and analysing one routine.
type RoutineResult struct {
	Name        string            `json:"name" yaml:"name" msgpack:"name"`
	Kind        string            `json:"kind" yaml:"kind" msgpack:"kind"`
	Graph       *cfg.CFGInfo      `json:"graph,omitempty" yaml:"graph,omitempty" msgpack:"graph,omitempty"`
	Diagnostics []diag.Diagnostic `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty" msgpack:"diagnostics,omitempty"`
	Err         string            `json:"error,omitempty" yaml:"error,omitempty" msgpack:"error,omitempty"`
}

// FileResult is the outcome for one source file.
type FileResult struct {
	Path        string            `json:"path" yaml:"path" msgpack:"path"`
	Hash        string            `json:"hash" yaml:"hash" msgpack:"hash"`
	Routines    []RoutineResult   `json:"routines" yaml:"routines" msgpack:"routines"`
	Diagnostics []diag.Diagnostic `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty" msgpack:"diagnostics,omitempty"`
	Cached      bool              `json:"-" yaml:"-" msgpack:"-"`
}

// AllDiagnostics returns file level diagnostics followed by each routine's.
func (f *FileResult) AllDiagnostics() []diag.Diagnostic {
	out := append([]diag.Diagnostic(nil), f.Diagnostics...)
	for _, r := range f.Routines {
		out = append(out, r.Diagnostics...)
	}
	return out
}

// HasErrors reports whether any diagnostic is an error or a routine failed
// to build.
func (f *FileResult) HasErrors() bool {
	for _, d := range f.AllDiagnostics() {
		if d.Severity >= diag.SeverityError {
			return true
		}
	}
	for _, r := range f.Routines {
		if r.Err != "" {
			return true
		}
	}
	return false
}

// Stats summarises a run.
type Stats struct {
	Files    int
	Cached   int
	Routines int
	Failed   int
}

// Driver runs the pipeline.
type Driver struct {
	opts  Options
	stats struct {
		files, cached, routines, failed atomic.Int64
	}
}

// New creates a Driver.
func New(opts Options) *Driver {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Scanner == nil {
		opts.Scanner = scanner.New(scanner.DefaultOptions())
	}
	if opts.Logger == nil {
		opts.Logger = log.Nop()
	}
	if opts.NewBinder == nil {
		opts.NewBinder = func() bound.Binder { return bound.NewBinder() }
	}
	return &Driver{opts: opts}
}

// Stats returns counters accumulated over every Run.
func (d *Driver) Stats() Stats {
	return Stats{
		Files:    int(d.stats.files.Load()),
		Cached:   int(d.stats.cached.Load()),
		Routines: int(d.stats.routines.Load()),
		Failed:   int(d.stats.failed.Load()),
	}
}

// pending is a parsed file waiting for its routines to be built.
type pending struct {
	result *FileResult
	file   *ast.File
}

// Run analyses every PHP file under roots. Results come back in scan order.
func (d *Driver) Run(ctx context.Context, roots []string) ([]*FileResult, error) {
	files, err := d.opts.Scanner.ScanAll(ctx, roots)
	if err != nil {
		return nil, errors.Wrap(err, "scanning sources")
	}
	d.opts.Logger.Debug("scanned sources", "files", len(files))

	work := make([]pending, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.opts.Workers)
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			src, err := os.ReadFile(f.FullPath)
			if err != nil {
				return errors.Wrapf(err, "reading %s", f.Path)
			}
			p, err := d.parse(gctx, f.FullPath, src)
			if err != nil {
				return err
			}
			work[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := d.buildAll(ctx, work); err != nil {
		return nil, err
	}

	out := make([]*FileResult, len(work))
	for i, p := range work {
		out[i] = p.result
		if !p.result.Cached && d.opts.Cache != nil {
			if err := d.opts.Cache.Store(d.cacheKey(p.result.Path), p.result.Hash, p.result); err != nil {
				d.opts.Logger.Warn("caching result failed", "file", p.result.Path, "error", err)
			}
		}
	}
	return out, nil
}

// AnalyzeSource runs the pipeline over one in-memory file.
func (d *Driver) AnalyzeSource(ctx context.Context, path string, src []byte) (*FileResult, error) {
	p, err := d.parse(ctx, path, src)
	if err != nil {
		return nil, err
	}
	if err := d.buildAll(ctx, []pending{p}); err != nil {
		return nil, err
	}
	return p.result, nil
}

// parse consults the cache, then parses on a miss.
func (d *Driver) parse(ctx context.Context, path string, src []byte) (pending, error) {
	d.stats.files.Add(1)
	hash := cache.HashBytes(src)
	if d.opts.Cache != nil {
		var cached FileResult
		if d.opts.Cache.Lookup(d.cacheKey(path), hash, &cached) {
			cached.Cached = true
			d.stats.cached.Add(1)
			d.opts.Logger.Debug("cache hit", "file", path)
			return pending{result: &cached}, nil
		}
	}

	bag := diag.NewBag()
	file, err := parse.Parse(ctx, path, src, bag)
	if err != nil {
		return pending{}, errors.Wrapf(err, "parsing %s", path)
	}
	res := &FileResult{
		Path:        path,
		Hash:        hash,
		Routines:    make([]RoutineResult, len(file.Routines)),
		Diagnostics: bag.Items(),
	}
	return pending{result: res, file: file}, nil
}

// buildAll builds every routine of every parsed file, one task per routine.
func (d *Driver) buildAll(ctx context.Context, work []pending) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.opts.Workers)
	for _, p := range work {
		if p.file == nil {
			continue
		}
		for j, r := range p.file.Routines {
			p, j, r := p, j, r
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				p.result.Routines[j] = d.buildRoutine(r)
				return nil
			})
		}
	}
	return g.Wait()
}

// cacheKey ties a cached result to the options that produced it.
func (d *Driver) cacheKey(path string) string {
	c := d.opts.Checks
	return fmt.Sprintf("%s|fold=%t|u=%t|l=%t|d=%t", path, d.opts.FoldConstants, c.Unreachable, c.UnusedLabels, c.Divergence)
}

func (d *Driver) buildRoutine(r *ast.Routine) RoutineResult {
	d.stats.routines.Add(1)
	res := RoutineResult{Name: r.Name, Kind: r.Kind.String()}
	bag := diag.NewBag()

	g, err := cfg.Build(r, d.opts.NewBinder(), bag, cfg.WithLogger(d.opts.Logger))
	if err != nil {
		d.stats.failed.Add(1)
		d.opts.Logger.Error("building graph failed", "routine", r.Name, "error", err)
		res.Err = err.Error()
		res.Diagnostics = bag.Items()
		return res
	}
	if d.opts.FoldConstants {
		g = analysis.FoldConstants(g, nil)
	}
	analysis.Check(g, bag, d.opts.Checks)

	res.Graph = cfg.Export(g)
	res.Diagnostics = bag.Items()
	return res
}
