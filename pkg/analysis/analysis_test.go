package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l3aro/phpflow/pkg/ast"
	"github.com/l3aro/phpflow/pkg/bound"
	"github.com/l3aro/phpflow/pkg/cfg"
	"github.com/l3aro/phpflow/pkg/diag"
)

func at(n int) ast.Span { return ast.Span{StartLine: n, StartCol: 1, EndLine: n, EndCol: 9} }

func stmt(n int, name string) ast.Stmt {
	return &ast.ExprStmt{Span: at(n), X: &ast.Call{Span: at(n), Name: name}}
}

func build(t *testing.T, body ...ast.Stmt) *cfg.Graph {
	t.Helper()
	g, err := cfg.Build(&ast.Routine{Name: "f", Kind: ast.Function, Span: at(1), Body: body}, bound.NewBinder(), nil)
	require.NoError(t, err)
	return g
}

func TestUnreachableReportsOncePerRegion(t *testing.T) {
	g := build(t,
		&ast.Return{Span: at(2)},
		stmt(3, "a"),
		&ast.If{Branches: []ast.IfBranch{{Cond: &ast.Variable{Name: "x"}, Body: []ast.Stmt{stmt(5, "b")}}}},
		stmt(6, "c"),
	)
	bag := diag.NewBag()
	Unreachable(g, bag)

	items := bag.Items()
	require.Len(t, items, 1)
	assert.Equal(t, diag.WarnUnreachableCode.ID, items[0].Code)
	assert.Equal(t, 3, items[0].Span.StartLine)
}

func TestUnreachableSeparateRegions(t *testing.T) {
	g := build(t,
		&ast.While{Cond: &ast.Variable{Name: "x"}, Body: []ast.Stmt{
			&ast.Break{Span: at(3)},
			stmt(4, "a"),
		}},
		&ast.Return{Span: at(6)},
		stmt(7, "b"),
	)
	bag := diag.NewBag()
	Unreachable(g, bag)
	assert.Equal(t, 2, bag.Count(diag.WarnUnreachableCode))
}

func TestUnreachableIgnoresEmptyDeadBlocks(t *testing.T) {
	g := build(t, &ast.Return{Span: at(2)})
	require.NotEmpty(t, g.Unreachable)

	bag := diag.NewBag()
	Unreachable(g, bag)
	assert.Zero(t, bag.Len())
}

func TestLabels(t *testing.T) {
	g := build(t,
		&ast.Label{Span: at(2), Name: "unused"},
		&ast.Label{Span: at(3), Name: "used"},
		&ast.Label{Span: at(4), Name: "used"},
		&ast.If{Branches: []ast.IfBranch{{Cond: &ast.Variable{Name: "x"}, Body: []ast.Stmt{&ast.Goto{Span: at(5), Label: "used"}}}}},
	)
	bag := diag.NewBag()
	Labels(g, bag)

	items := bag.Items()
	require.Len(t, items, 2)
	assert.Equal(t, diag.WarnLabelUnused.ID, items[0].Code)
	assert.Equal(t, 2, items[0].Span.StartLine)
	assert.Equal(t, diag.WarnLabelRedefined.ID, items[1].Code)
	assert.Equal(t, 4, items[1].Span.StartLine)
}

func TestDivergence(t *testing.T) {
	g := build(t, &ast.While{Cond: &ast.Literal{Kind: ast.BoolLit, Value: true}, Body: []ast.Stmt{stmt(2, "spin")}})
	bag := diag.NewBag()
	Check(g, bag, DefaultOptions())
	assert.Equal(t, 1, bag.Count(diag.WarnLoopNeverEnds))
	assert.False(t, bag.HasErrors())

	bag = diag.NewBag()
	Check(g, bag, Options{Unreachable: true})
	assert.Zero(t, bag.Count(diag.WarnLoopNeverEnds))
}

func TestFoldConstants(t *testing.T) {
	cond := &ast.Binary{Op: "<", Left: &ast.Literal{Kind: ast.IntLit, Value: int64(1)}, Right: &ast.Literal{Kind: ast.IntLit, Value: int64(2)}}
	g := build(t,
		&ast.If{Branches: []ast.IfBranch{
			{Cond: cond, Body: []ast.Stmt{stmt(2, "yes")}},
			{Body: []ast.Stmt{stmt(4, "no")}},
		}},
	)
	require.Equal(t, 2, Complexity(g))

	folded := FoldConstants(g, nil)
	require.NotSame(t, g, folded)
	assert.Equal(t, 1, Complexity(folded))
	assert.Len(t, folded.Unreachable, len(g.Unreachable)+1)

	assert.Same(t, folded, FoldConstants(folded, nil))
}

func TestFoldConstantsCustomEvaluator(t *testing.T) {
	g := build(t, &ast.If{Branches: []ast.IfBranch{
		{Cond: &ast.Variable{Name: "debug"}, Body: []ast.Stmt{stmt(2, "trace")}},
	}})
	folded := FoldConstants(g, func(x bound.Expr) (bool, bool) {
		if v, ok := x.(*bound.Variable); ok && v.Name == "debug" {
			return false, true
		}
		return false, false
	})
	bag := diag.NewBag()
	Unreachable(folded, bag)
	assert.Equal(t, 1, bag.Count(diag.WarnUnreachableCode))
}

func TestEvaluate(t *testing.T) {
	lit := func(v interface{}) bound.Expr { return &bound.Literal{Value: v} }
	tests := []struct {
		name string
		x    bound.Expr
		want bool
		ok   bool
	}{
		{"true literal", lit(true), true, true},
		{"zero string", lit("0"), false, true},
		{"less", &bound.Binary{Op: "<", Left: lit(int64(1)), Right: lit(int64(2))}, true, true},
		{"identical", &bound.Binary{Op: "===", Left: lit("a"), Right: lit("a")}, true, true},
		{"not", &bound.Unary{Op: "!", Operand: lit(int64(0))}, true, true},
		{"variable", &bound.Variable{Name: "x"}, false, false},
		{"mixed compare", &bound.Binary{Op: "<", Left: lit("a"), Right: lit(int64(1))}, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Evaluate(tt.x)
			assert.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestFoldConstantsAroundTerminatingTry(t *testing.T) {
	g := build(t,
		&ast.If{Branches: []ast.IfBranch{
			{Cond: &ast.Variable{Name: "debug"}, Body: []ast.Stmt{stmt(2, "trace")}},
		}},
		&ast.Try{
			Span: at(3),
			Body: []ast.Stmt{&ast.Return{Span: at(4), Value: &ast.Call{Span: at(4), Name: "g"}}},
			Catches: []ast.Catch{{
				Types: []string{"E"},
				Var:   &ast.Variable{Name: "e"},
				Body:  []ast.Stmt{&ast.Return{Span: at(6), Value: &ast.Literal{Kind: ast.IntLit, Value: int64(2)}}},
			}},
		},
	)
	debugOff := func(x bound.Expr) (bool, bool) {
		if v, ok := x.(*bound.Variable); ok && v.Name == "debug" {
			return false, true
		}
		return false, false
	}

	var folded *cfg.Graph
	require.NotPanics(t, func() { folded = FoldConstants(g, debugOff) })
	require.NotSame(t, g, folded)
	assert.Len(t, folded.Unreachable, len(g.Unreachable)+1)
	assert.Equal(t, Complexity(g)-1, Complexity(folded))

	bag := diag.NewBag()
	Check(folded, bag, DefaultOptions())
	assert.Equal(t, 1, bag.Count(diag.WarnUnreachableCode))
	assert.NotNil(t, cfg.Export(folded))
}
