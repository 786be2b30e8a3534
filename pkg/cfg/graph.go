package cfg

import (
	"sort"

	"github.com/l3aro/phpflow/pkg/ast"
	"github.com/l3aro/phpflow/pkg/bound"
)

// colorSource hands out traversal stamps. Graphs derived from one another
// by rewriting share a source so stamps never collide on shared blocks.
type colorSource struct {
	last uint64
}

func (c *colorSource) next() uint64 {
	c.last++
	return c.last
}

// Graph is the control flow graph of one routine.
//
// A Graph is not safe for concurrent traversal: each walk takes a color
// from a per-graph counter without locking.
type Graph struct {
	Routine string
	Start   *StartBlock
	Exit    *ExitBlock
	Labels  *LabelTable
	// Unreachable lists blocks that cannot be reached from Start, kept for
	// unreachable code diagnostics. The builder gives them DeadOrdinal;
	// blocks cut off by a later Rewrite keep their ordinal.
	Unreachable []Block
	// Yields lists the suspension points of a generator in source order.
	Yields []*bound.Yield

	colors  *colorSource
	walkers int
}

// NewColor returns a stamp not used by any earlier traversal of this graph
// or of the graphs it was rewritten from.
func (g *Graph) NewColor() uint64 {
	return g.colors.next()
}

// IsGenerator reports whether the routine has suspension points.
func (g *Graph) IsGenerator() bool {
	return len(g.Yields) > 0
}

// Blocks returns the blocks reachable from Start in depth-first order.
func (g *Graph) Blocks() []Block {
	var out []Block
	Inspect(g, func(b Block) bool {
		out = append(out, b)
		return true
	})
	return out
}

// IsReachable reports whether b can be reached from Start.
func (g *Graph) IsReachable(b Block) bool {
	found := false
	Inspect(g, func(x Block) bool {
		if x == b {
			found = true
		}
		return !found
	})
	return found
}

// ExitReachable reports whether some path from Start reaches Exit.
func (g *Graph) ExitReachable() bool {
	return g.IsReachable(g.Exit)
}

// Predecessors maps every reachable block to the reachable blocks with an
// edge into it. Blocks do not store back-pointers; analyses that need them
// compute them here.
func Predecessors(g *Graph) map[Block][]Block {
	preds := make(map[Block][]Block)
	for _, b := range g.Blocks() {
		if _, ok := preds[b]; !ok {
			preds[b] = nil
		}
		for _, t := range Successors(b) {
			preds[t] = append(preds[t], b)
		}
	}
	return preds
}

// Complexity returns the cyclomatic complexity E - N + 2 of the reachable
// part of g.
func Complexity(g *Graph) int {
	blocks := g.Blocks()
	edges := 0
	for _, b := range blocks {
		edges += len(Successors(b))
	}
	c := edges - len(blocks) + 2
	if c < 1 {
		c = 1
	}
	return c
}

// LabelFlags records what the builder saw of a label.
type LabelFlags uint8

const (
	LabelDefined LabelFlags = 1 << iota
	LabelUsed
	LabelRedefined
)

// LabelEntry is one goto label.
type LabelEntry struct {
	Name  string
	Block Block
	// Span is where the label was defined, or first used while still undefined.
	Span  ast.Span
	Flags LabelFlags
	// Redefinitions holds the spans of ignored duplicate definitions.
	Redefinitions []ast.Span
}

// Has reports whether all flags in f are set.
func (e *LabelEntry) Has(f LabelFlags) bool {
	return e.Flags&f == f
}

// LabelTable maps label names to entries. Names are case-sensitive.
type LabelTable struct {
	entries map[string]*LabelEntry
}

func newLabelTable() *LabelTable {
	return &LabelTable{entries: make(map[string]*LabelEntry)}
}

// Get returns the entry for name, or nil.
func (t *LabelTable) Get(name string) *LabelEntry {
	return t.entries[name]
}

// Len returns the number of labels.
func (t *LabelTable) Len() int {
	return len(t.entries)
}

// Entries returns the entries sorted by name.
func (t *LabelTable) Entries() []*LabelEntry {
	out := make([]*LabelEntry, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// lookup returns the entry for name, creating it and its target block on
// first reference so forward gotos can jump to it.
func (t *LabelTable) lookup(name string, newBlock func() Block) *LabelEntry {
	if e, ok := t.entries[name]; ok {
		return e
	}
	e := &LabelEntry{Name: name, Block: newBlock()}
	t.entries[name] = e
	return e
}

// remap copies the table with every target passed through f.
func (t *LabelTable) remap(f func(Block) Block) *LabelTable {
	out := newLabelTable()
	for name, e := range t.entries {
		n := *e
		n.Block = f(e.Block)
		out.entries[name] = &n
	}
	return out
}
