package cfg

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/l3aro/phpflow/pkg/ast"
	"github.com/l3aro/phpflow/pkg/bound"
	"github.com/l3aro/phpflow/pkg/diag"
)

func line(n int) ast.Span {
	return ast.Span{StartLine: n, StartCol: 1, EndLine: n, EndCol: 20}
}

func intLit(n int64) *ast.Literal  { return &ast.Literal{Kind: ast.IntLit, Value: n} }
func boolLit(v bool) *ast.Literal  { return &ast.Literal{Kind: ast.BoolLit, Value: v} }
func strLit(s string) *ast.Literal { return &ast.Literal{Kind: ast.StringLit, Value: s} }
func variable(n string) *ast.Variable {
	return &ast.Variable{Name: n}
}
func call(name string) *ast.Call { return &ast.Call{Name: name} }
func do(name string) ast.Stmt    { return &ast.ExprStmt{X: call(name)} }

func echo(x ast.Expr) ast.Stmt { return &ast.Echo{Args: []ast.Expr{x}} }

func function(body ...ast.Stmt) *ast.Routine {
	return &ast.Routine{Name: "f", Kind: ast.Function, Span: ast.Span{StartLine: 1, EndLine: 99}, Body: body}
}

func build(t *testing.T, r *ast.Routine) (*Graph, *diag.Bag) {
	t.Helper()
	return buildWith(t, r, bound.NewBinder())
}

func buildWith(t *testing.T, r *ast.Routine, binder bound.Binder) (*Graph, *diag.Bag) {
	t.Helper()
	bag := diag.NewBag()
	g, err := Build(r, binder, bag)
	require.NoError(t, err)
	require.NotNil(t, g)
	return g, bag
}

// entry returns the first block after Start.
func entry(t *testing.T, g *Graph) Block {
	t.Helper()
	e, ok := g.Start.Next().(*SimpleEdge)
	require.True(t, ok)
	return e.Target
}

func simpleTarget(t *testing.T, b Block) Block {
	t.Helper()
	e, ok := b.Next().(*SimpleEdge)
	require.Truef(t, ok, "block %d ends with %T", b.Ordinal(), b.Next())
	return e.Target
}

func calls(b Block) []string {
	var out []string
	for _, s := range b.Stmts() {
		for _, x := range bound.Exprs(s) {
			if c, ok := x.(*bound.Call); ok {
				out = append(out, c.Name)
			}
		}
	}
	return out
}

// checkShape asserts the structural invariants every built graph keeps.
func checkShape(t *testing.T, g *Graph) {
	t.Helper()
	require.Equal(t, 0, g.Start.Ordinal())
	require.Nil(t, g.Exit.Next())

	seen := make(map[int]bool)
	for _, b := range g.Blocks() {
		require.False(t, b.IsDead(), "reachable block marked dead")
		require.False(t, seen[b.Ordinal()], "duplicate ordinal %d", b.Ordinal())
		seen[b.Ordinal()] = true
		if b != Block(g.Exit) {
			require.NotNil(t, b.Next(), "block %d has no edge", b.Ordinal())
		}
	}
	for _, b := range g.Unreachable {
		require.True(t, b.IsDead())
		require.NotNil(t, b.Next())
		require.False(t, g.IsReachable(b))
	}
}

// preBinder adds two pre-chunks in front of calls named "pre" and fails
// calls named "bad".
type preBinder struct {
	*bound.DefaultBinder
}

func (p preBinder) BindExpr(x ast.Expr) (bound.ExprBag, error) {
	if c, ok := x.(*ast.Call); ok {
		switch c.Name {
		case "pre":
			return bound.ExprBag{
				Bag: bound.Bag{Pre: [][]bound.Stmt{
					{&bound.ExprStmt{X: &bound.Call{Name: "chunk1"}}},
					{&bound.ExprStmt{X: &bound.Call{Name: "chunk2"}}},
				}},
				Expr: &bound.Call{Name: "pre"},
			}, nil
		case "bad":
			return bound.ExprBag{}, assertErr
		}
	}
	return p.DefaultBinder.BindExpr(x)
}

type testErr string

func (e testErr) Error() string { return string(e) }

const assertErr = testErr("unsupported")
