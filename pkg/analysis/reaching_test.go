package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l3aro/phpflow/pkg/ast"
	"github.com/l3aro/phpflow/pkg/bound"
	"github.com/l3aro/phpflow/pkg/cfg"
)

func assign(n int, name string, v ast.Expr) ast.Stmt {
	return &ast.ExprStmt{Span: at(n), X: &ast.Assign{
		Span:   at(n),
		Op:     "=",
		Target: &ast.Variable{Span: at(n), Name: name},
		Value:  v,
	}}
}

func intAt(v int64) ast.Expr { return &ast.Literal{Kind: ast.IntLit, Value: v} }

// blockCalling returns the reachable block that calls name.
func blockCalling(t *testing.T, g *cfg.Graph, name string) cfg.Block {
	t.Helper()
	for _, b := range g.Blocks() {
		for _, s := range b.Stmts() {
			for _, x := range bound.Exprs(s) {
				if c, ok := x.(*bound.Call); ok && c.Name == name {
					return b
				}
			}
		}
	}
	t.Fatalf("no block calls %s", name)
	return nil
}

func lines(defs []Definition) []int {
	var out []int
	for _, d := range defs {
		out = append(out, d.Span.StartLine)
	}
	return out
}

func TestReachingDefinitions(t *testing.T) {
	tests := []struct {
		name string
		body []ast.Stmt
		use  string
		want []int
	}{
		{
			name: "both branches reach the join",
			body: []ast.Stmt{
				assign(2, "x", intAt(1)),
				&ast.If{Branches: []ast.IfBranch{{Cond: &ast.Variable{Name: "c"}, Body: []ast.Stmt{assign(4, "x", intAt(2))}}}},
				stmt(6, "use"),
			},
			use:  "x",
			want: []int{2, 4},
		},
		{
			name: "redefinition on every path kills the first",
			body: []ast.Stmt{
				assign(2, "x", intAt(1)),
				&ast.If{Branches: []ast.IfBranch{
					{Cond: &ast.Variable{Name: "c"}, Body: []ast.Stmt{assign(4, "x", intAt(2))}},
					{Body: []ast.Stmt{assign(6, "x", intAt(3))}},
				}},
				stmt(8, "use"),
			},
			use:  "x",
			want: []int{4, 6},
		},
		{
			name: "loop carries its own definition back",
			body: []ast.Stmt{
				assign(2, "i", intAt(0)),
				&ast.While{Cond: &ast.Variable{Name: "c"}, Body: []ast.Stmt{
					stmt(4, "use"),
					assign(5, "i", &ast.Binary{Op: "+", Left: &ast.Variable{Name: "i"}, Right: intAt(1)}),
				}},
			},
			use:  "i",
			want: []int{2, 5},
		},
		{
			name: "unset kills",
			body: []ast.Stmt{
				assign(2, "y", intAt(1)),
				&ast.Unset{Span: at(3), Vars: []ast.Expr{&ast.Variable{Name: "y"}}},
				&ast.If{Branches: []ast.IfBranch{{Cond: &ast.Variable{Name: "c"}, Body: []ast.Stmt{stmt(4, "noop")}}}},
				stmt(6, "use"),
			},
			use:  "y",
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := build(t, tt.body...)
			rd := ReachingDefinitions(g)
			assert.Equal(t, tt.want, lines(rd.Reaching(blockCalling(t, g, "use"), tt.use)))
		})
	}
}

func TestReachingDefinitionsIgnoresDeadCode(t *testing.T) {
	g := build(t,
		&ast.Return{Span: at(2)},
		assign(3, "x", intAt(1)),
	)
	rd := ReachingDefinitions(g)
	require.NotEmpty(t, g.Unreachable)
	assert.Empty(t, rd.Defs)
	assert.Empty(t, rd.Reaching(g.Exit, "x"))
}
