package cfg

import "github.com/l3aro/phpflow/pkg/bound"

// Visitor receives the blocks, edges and operations of a graph. Block and
// edge methods return true to continue into the contents and successors,
// false to prune.
type Visitor interface {
	VisitStart(b *StartBlock) bool
	VisitExit(b *ExitBlock) bool
	VisitPlain(b *PlainBlock) bool
	VisitCatch(b *CatchBlock) bool
	VisitCase(b *CaseBlock) bool

	VisitSimpleEdge(from Block, e *SimpleEdge) bool
	VisitConditionalEdge(from Block, e *ConditionalEdge) bool
	VisitTryCatchEdge(from Block, e *TryCatchEdge) bool
	VisitForeachEnumereeEdge(from Block, e *ForeachEnumereeEdge) bool
	VisitForeachMoveNextEdge(from Block, e *ForeachMoveNextEdge) bool
	VisitSwitchEdge(from Block, e *SwitchEdge) bool

	// VisitStmt is called for each statement of a visited block.
	VisitStmt(b Block, s bound.Stmt)
	// VisitExpr is called for each expression a visited edge evaluates.
	VisitExpr(b Block, x bound.Expr)
}

// BaseVisitor visits everything and does nothing. Embed it to override
// only the methods of interest.
type BaseVisitor struct{}

func (BaseVisitor) VisitStart(*StartBlock) bool { return true }
func (BaseVisitor) VisitExit(*ExitBlock) bool   { return true }
func (BaseVisitor) VisitPlain(*PlainBlock) bool { return true }
func (BaseVisitor) VisitCatch(*CatchBlock) bool { return true }
func (BaseVisitor) VisitCase(*CaseBlock) bool   { return true }

func (BaseVisitor) VisitSimpleEdge(Block, *SimpleEdge) bool                   { return true }
func (BaseVisitor) VisitConditionalEdge(Block, *ConditionalEdge) bool         { return true }
func (BaseVisitor) VisitTryCatchEdge(Block, *TryCatchEdge) bool               { return true }
func (BaseVisitor) VisitForeachEnumereeEdge(Block, *ForeachEnumereeEdge) bool { return true }
func (BaseVisitor) VisitForeachMoveNextEdge(Block, *ForeachMoveNextEdge) bool { return true }
func (BaseVisitor) VisitSwitchEdge(Block, *SwitchEdge) bool                   { return true }

func (BaseVisitor) VisitStmt(Block, bound.Stmt) {}
func (BaseVisitor) VisitExpr(Block, bound.Expr) {}

// Walk visits the blocks reachable from Start in depth-first preorder,
// each at most once.
func Walk(g *Graph, v Visitor) {
	WalkFrom(g, g.Start, v)
}

// WalkFrom is Walk starting at b, which need not be reachable from Start.
func WalkFrom(g *Graph, b Block, v Visitor) {
	g.traverse(b, func(x Block) bool {
		if !visitBlock(v, x) {
			return false
		}
		for _, s := range x.Stmts() {
			v.VisitStmt(x, s)
		}
		e := x.Next()
		if e == nil {
			return false
		}
		if !visitEdge(v, x, e) {
			return false
		}
		for _, ex := range EdgeExprs(e) {
			v.VisitExpr(x, ex)
		}
		return true
	})
}

// Inspect calls f for each block reachable from Start. Successors of a
// block are skipped when f returns false.
func Inspect(g *Graph, f func(Block) bool) {
	g.traverse(g.Start, f)
}

// traverse runs an iterative preorder DFS from b under a fresh color.
// Successors are pushed in reverse so they pop in edge order.
func (g *Graph) traverse(b Block, f func(Block) bool) {
	g.walkers++
	defer func() { g.walkers-- }()

	color := g.NewColor()
	stack := []Block{b}
	for len(stack) > 0 {
		x := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if x == nil || x.base().color == color {
			continue
		}
		x.base().color = color
		if !f(x) {
			continue
		}
		succ := Successors(x)
		for i := len(succ) - 1; i >= 0; i-- {
			if succ[i].base().color != color {
				stack = append(stack, succ[i])
			}
		}
	}
}

func visitBlock(v Visitor, b Block) bool {
	switch b := b.(type) {
	case *StartBlock:
		return v.VisitStart(b)
	case *ExitBlock:
		return v.VisitExit(b)
	case *PlainBlock:
		return v.VisitPlain(b)
	case *CatchBlock:
		return v.VisitCatch(b)
	case *CaseBlock:
		return v.VisitCase(b)
	}
	panic(invariantError{"visit of unknown block type"})
}

func visitEdge(v Visitor, from Block, e Edge) bool {
	switch e := e.(type) {
	case *SimpleEdge:
		return v.VisitSimpleEdge(from, e)
	case *ConditionalEdge:
		return v.VisitConditionalEdge(from, e)
	case *TryCatchEdge:
		return v.VisitTryCatchEdge(from, e)
	case *ForeachEnumereeEdge:
		return v.VisitForeachEnumereeEdge(from, e)
	case *ForeachMoveNextEdge:
		return v.VisitForeachMoveNextEdge(from, e)
	case *SwitchEdge:
		return v.VisitSwitchEdge(from, e)
	}
	panic(invariantError{"visit of unknown edge type"})
}
