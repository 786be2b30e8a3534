// Package analysis runs diagnostics and simplifications over built control
// flow graphs.
package analysis

import (
	"github.com/l3aro/phpflow/pkg/ast"
	"github.com/l3aro/phpflow/pkg/cfg"
	"github.com/l3aro/phpflow/pkg/diag"
)

// Options selects the checks Check runs.
type Options struct {
	Unreachable  bool
	UnusedLabels bool
	Divergence   bool
}

// DefaultOptions enables every check.
func DefaultOptions() Options {
	return Options{Unreachable: true, UnusedLabels: true, Divergence: true}
}

// Check runs the selected checks over g.
func Check(g *cfg.Graph, sink diag.Sink, opts Options) {
	if opts.Unreachable {
		Unreachable(g, sink)
	}
	if opts.UnusedLabels {
		Labels(g, sink)
	}
	if opts.Divergence {
		Divergence(g, sink)
	}
}

// Unreachable reports each connected region of dead blocks that holds user
// statements, once, at its first statement.
func Unreachable(g *cfg.Graph, sink diag.Sink) {
	dead := make(map[cfg.Block]bool, len(g.Unreachable))
	for _, b := range g.Unreachable {
		dead[b] = true
	}
	// Undirected adjacency restricted to dead blocks.
	adj := make(map[cfg.Block][]cfg.Block)
	for _, b := range g.Unreachable {
		for _, t := range cfg.Successors(b) {
			if dead[t] && t != b {
				adj[b] = append(adj[b], t)
				adj[t] = append(adj[t], b)
			}
		}
	}

	done := make(map[cfg.Block]bool)
	for _, b := range g.Unreachable {
		if done[b] {
			continue
		}
		var first ast.Span
		found := false
		queue := []cfg.Block{b}
		done[b] = true
		for len(queue) > 0 {
			x := queue[0]
			queue = queue[1:]
			if span, ok := firstUserSpan(x); ok && (!found || before(span, first)) {
				first, found = span, true
			}
			for _, n := range adj[x] {
				if !done[n] {
					done[n] = true
					queue = append(queue, n)
				}
			}
		}
		if found {
			sink.Report(g.Routine, first, diag.WarnUnreachableCode)
		}
	}
}

func firstUserSpan(b cfg.Block) (ast.Span, bool) {
	if !cfg.HasUserCode(b) {
		return ast.Span{}, false
	}
	for _, s := range b.Stmts() {
		if p := s.Pos(); !p.IsZero() {
			return p, true
		}
	}
	return b.Span(), true
}

func before(a, b ast.Span) bool {
	if a.StartLine != b.StartLine {
		return a.StartLine < b.StartLine
	}
	return a.StartCol < b.StartCol
}

// Labels reports labels that are defined but never jumped to, and every
// ignored redefinition.
func Labels(g *cfg.Graph, sink diag.Sink) {
	for _, e := range g.Labels.Entries() {
		if e.Has(cfg.LabelDefined) && !e.Has(cfg.LabelUsed) {
			sink.Report(g.Routine, e.Span, diag.WarnLabelUnused, e.Name)
		}
		for _, span := range e.Redefinitions {
			sink.Report(g.Routine, span, diag.WarnLabelRedefined, e.Name)
		}
	}
}

// Divergence notes routines whose end is unreachable.
func Divergence(g *cfg.Graph, sink diag.Sink) {
	if !g.ExitReachable() {
		sink.Report(g.Routine, g.Start.Span(), diag.WarnLoopNeverEnds)
	}
}

// Complexity returns the cyclomatic complexity of g.
func Complexity(g *cfg.Graph) int {
	return cfg.Complexity(g)
}
