package cfg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l3aro/phpflow/pkg/ast"
	"github.com/l3aro/phpflow/pkg/bound"
)

type recorder struct {
	BaseVisitor
	blocks           []int
	stmts            int
	exprs            int
	pruneConditional bool
}

func (r *recorder) VisitStart(b *StartBlock) bool { r.blocks = append(r.blocks, b.Ordinal()); return true }
func (r *recorder) VisitExit(b *ExitBlock) bool   { r.blocks = append(r.blocks, b.Ordinal()); return true }
func (r *recorder) VisitPlain(b *PlainBlock) bool { r.blocks = append(r.blocks, b.Ordinal()); return true }
func (r *recorder) VisitStmt(Block, bound.Stmt)   { r.stmts++ }
func (r *recorder) VisitExpr(Block, bound.Expr)   { r.exprs++ }

func (r *recorder) VisitConditionalEdge(Block, *ConditionalEdge) bool {
	return !r.pruneConditional
}

func ifElse() *ast.Routine {
	return function(&ast.If{Branches: []ast.IfBranch{
		{Cond: variable("a"), Body: []ast.Stmt{do("then")}},
		{Body: []ast.Stmt{do("else")}},
	}})
}

func TestWalkPreorder(t *testing.T) {
	g, _ := build(t, ifElse())

	r := &recorder{}
	Walk(g, r)
	// start, entry, then, end, exit, else
	assert.Equal(t, []int{0, 2, 4, 3, 1, 5}, r.blocks)
	assert.Equal(t, 3, r.stmts)
	assert.Equal(t, 1, r.exprs)
}

func TestWalkPrunesOnFalse(t *testing.T) {
	g, _ := build(t, ifElse())

	r := &recorder{pruneConditional: true}
	Walk(g, r)
	assert.Equal(t, []int{0, 2}, r.blocks)
	assert.Zero(t, r.exprs)
}

func TestWalkVisitsLoopsOnce(t *testing.T) {
	g, _ := build(t, function(&ast.While{Cond: variable("i"), Body: []ast.Stmt{do("step")}}))

	for i := 0; i < 2; i++ {
		r := &recorder{}
		Walk(g, r)
		assert.Len(t, r.blocks, 6)
	}
}

func TestWalkFromDeadBlock(t *testing.T) {
	g, _ := build(t, function(&ast.Return{}, do("dead"), do("code")))
	require.Len(t, g.Unreachable, 1)

	r := &recorder{}
	WalkFrom(g, g.Unreachable[0], r)
	assert.Equal(t, []int{DeadOrdinal, 1}, r.blocks)
	assert.Equal(t, 2, r.stmts)
}

func TestInspectAndPredecessors(t *testing.T) {
	g, _ := build(t, ifElse())

	var n int
	Inspect(g, func(Block) bool { n++; return true })
	assert.Equal(t, 6, n)

	preds := Predecessors(g)
	cond := entry(t, g).Next().(*ConditionalEdge)
	end := simpleTarget(t, cond.True)
	assert.ElementsMatch(t, []Block{cond.True, cond.False}, preds[end])
	assert.Empty(t, preds[g.Start])
}

type rewritingVisitor struct {
	BaseVisitor
	g *Graph
}

func (v rewritingVisitor) VisitPlain(*PlainBlock) bool {
	Rewrite(v.g, BaseRewriter{})
	return true
}

func TestRewriteDuringWalkPanics(t *testing.T) {
	g, _ := build(t, function(do("a")))
	assert.Panics(t, func() { Walk(g, rewritingVisitor{g: g}) })
}
