package cfg

import "github.com/l3aro/phpflow/pkg/bound"

// Rewriter transforms the blocks, operations and edges of a graph.
type Rewriter interface {
	// RewriteBlock returns b to keep it or a block of the same kind that
	// replaces it. A replacement keeps b's ordinal; its statements and edge
	// are rewritten in turn.
	RewriteBlock(b Block) Block
	// RewriteStmt returns s to keep it, another statement to replace it or
	// nil to drop it.
	RewriteStmt(s bound.Stmt) bound.Stmt
	// RewriteEdge returns e to keep it or a replacement. Targets of a
	// replacement must be blocks of the graph being rewritten.
	RewriteEdge(from Block, e Edge) Edge
}

// BaseRewriter keeps everything.
type BaseRewriter struct{}

func (BaseRewriter) RewriteBlock(b Block) Block            { return b }
func (BaseRewriter) RewriteStmt(s bound.Stmt) bound.Stmt { return s }
func (BaseRewriter) RewriteEdge(_ Block, e Edge) Edge    { return e }

// Rewrite returns the graph produced by applying r to every block reachable
// from Start. g is left untouched: blocks of the result that r did not change
// are shallow copies pointing at their new neighbours. When r changes
// nothing, g itself is returned.
//
// Rewrite panics when called on a graph that is being walked.
func Rewrite(g *Graph, r Rewriter) *Graph {
	if g.walkers > 0 {
		panic(invariantError{"rewrite of a graph during traversal"})
	}

	before := g.Blocks()

	// Update: follow the rewritten edges so blocks that only become
	// reachable through a replacement are rewritten too.
	changed := g.NewColor()
	seen := g.NewColor()
	mapping := make(map[Block]Block)
	var order []Block
	stack := []Block{g.Start}
	for len(stack) > 0 {
		b := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if b.base().color == seen {
			continue
		}
		b.base().color = seen
		order = append(order, b)

		cur, replaced := b, false
		if nb := r.RewriteBlock(b); nb != b {
			if !sameKind(b, nb) {
				panic(invariantError{"block replaced by a block of another kind"})
			}
			cur, replaced = nb, true
		}
		stmts, dirty := rewriteStmts(cur.Stmts(), r)
		dirty = dirty || replaced
		next := cur.Next()
		if next != nil {
			if n := r.RewriteEdge(cur, next); n != next {
				next, dirty = n, true
			}
		}
		if dirty {
			nb := withContents(cur, stmts, next)
			nb.base().ordinal = b.Ordinal()
			nb.base().color = changed
			mapping[b] = nb
		}
		if next != nil {
			targets := next.Targets()
			for i := len(targets) - 1; i >= 0; i-- {
				stack = append(stack, targets[i])
			}
		}
	}
	if len(mapping) == 0 {
		return g
	}

	// Repair: every block reachable in the result gets a fresh copy whose
	// edge points at the copies.
	for _, b := range order {
		if _, ok := mapping[b]; !ok {
			mapping[b] = cloneBlock(b)
		}
	}
	lookup := func(b Block) Block {
		n, ok := mapping[b]
		if !ok {
			panic(invariantError{"rewritten edge targets a block outside the graph"})
		}
		return n
	}
	keep := func(b Block) Block {
		if n, ok := mapping[b]; ok {
			return n
		}
		return b
	}
	enumerees := make(map[*ForeachEnumereeEdge]*ForeachEnumereeEdge)
	var moves []*ForeachMoveNextEdge
	for _, b := range order {
		nb := mapping[b]
		e := nb.Next()
		if e == nil {
			continue
		}
		ne := e.retarget(lookup, keep)
		switch ne := ne.(type) {
		case *ForeachEnumereeEdge:
			enumerees[e.(*ForeachEnumereeEdge)] = ne
			if orig, ok := b.Next().(*ForeachEnumereeEdge); ok {
				enumerees[orig] = ne
			}
		case *ForeachMoveNextEdge:
			moves = append(moves, ne)
		}
		nb.base().next = ne
	}
	for _, m := range moves {
		if ne, ok := enumerees[m.Enumeree]; ok {
			m.Enumeree = ne
		}
	}

	out := &Graph{
		Routine: g.Routine,
		Start:   mapping[g.Start].(*StartBlock),
		Exit:    keep(g.Exit).(*ExitBlock),
		Labels:  g.Labels.remap(keep),
		colors:  g.colors,
	}
	out.Unreachable = append(out.Unreachable, g.Unreachable...)
	for _, b := range before {
		if _, ok := mapping[b]; !ok && b != Block(g.Exit) {
			out.Unreachable = append(out.Unreachable, b)
		}
	}
	out.Yields = rewriteYields(g.Yields, out)
	return out
}

func sameKind(a, b Block) bool {
	switch a.(type) {
	case *StartBlock:
		_, ok := b.(*StartBlock)
		return ok
	case *ExitBlock:
		_, ok := b.(*ExitBlock)
		return ok
	case *PlainBlock:
		_, ok := b.(*PlainBlock)
		return ok
	case *CatchBlock:
		_, ok := b.(*CatchBlock)
		return ok
	case *CaseBlock:
		_, ok := b.(*CaseBlock)
		return ok
	}
	return false
}

func rewriteStmts(stmts []bound.Stmt, r Rewriter) ([]bound.Stmt, bool) {
	var out []bound.Stmt
	dirty := false
	for i, s := range stmts {
		n := r.RewriteStmt(s)
		if n == s && !dirty {
			continue
		}
		if !dirty {
			out = append(make([]bound.Stmt, 0, len(stmts)), stmts[:i]...)
			dirty = true
		}
		if n != nil {
			out = append(out, n)
		}
	}
	if !dirty {
		return stmts, false
	}
	return out, true
}

// rewriteYields keeps the old yields that survive in g and appends the ones
// a rewrite introduced.
func rewriteYields(old []*bound.Yield, g *Graph) []*bound.Yield {
	var present []*bound.Yield
	scan := func(b Block) {
		for _, s := range b.Stmts() {
			for _, x := range bound.Exprs(s) {
				present = append(present, bound.Yields(x)...)
			}
		}
		if b.Next() != nil {
			for _, x := range EdgeExprs(b.Next()) {
				present = append(present, bound.Yields(x)...)
			}
		}
	}
	for _, b := range g.Blocks() {
		scan(b)
	}
	for _, b := range g.Unreachable {
		scan(b)
	}

	live := make(map[*bound.Yield]bool, len(present))
	for _, y := range present {
		live[y] = true
	}
	known := make(map[*bound.Yield]bool, len(old))
	var out []*bound.Yield
	for _, y := range old {
		known[y] = true
		if live[y] {
			out = append(out, y)
		}
	}
	for _, y := range present {
		if !known[y] {
			known[y] = true
			out = append(out, y)
		}
	}
	return out
}
