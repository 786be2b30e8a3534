package bound

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l3aro/phpflow/pkg/ast"
)

func lit(v interface{}) *ast.Literal { return &ast.Literal{Value: v} }

func TestBindExprFolding(t *testing.T) {
	b := NewBinder()
	tests := []struct {
		name  string
		x     ast.Expr
		want  interface{}
		folds bool
	}{
		{"literal", lit(int64(3)), int64(3), true},
		{"not", &ast.Unary{Op: "!", Operand: lit(int64(0))}, true, true},
		{"negate", &ast.Unary{Op: "-", Operand: lit(int64(4))}, int64(-4), true},
		{"and short circuit", &ast.Binary{Op: "&&", Left: lit(false), Right: &ast.Variable{Name: "x"}}, false, true},
		{"or short circuit", &ast.Binary{Op: "OR", Left: lit("1"), Right: &ast.Variable{Name: "x"}}, true, true},
		{"xor", &ast.Binary{Op: "xor", Left: lit(true), Right: lit(true)}, false, true},
		{"named true", &ast.Raw{Kind: "name", Text: "TRUE"}, true, true},
		{"qualified null", &ast.Raw{Kind: "qualified_name", Text: `\null`}, nil, true},
		{"and unknown", &ast.Binary{Op: "&&", Left: lit(true), Right: &ast.Variable{Name: "x"}}, nil, false},
		{"plus string", &ast.Unary{Op: "+", Operand: lit("a")}, nil, false},
		{"other name", &ast.Raw{Kind: "name", Text: "PHP_EOL"}, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bag, err := b.BindExpr(tt.x)
			require.NoError(t, err)
			assert.False(t, bag.HasPre())
			v, ok := Constant(bag.Expr)
			assert.Equal(t, tt.folds, ok)
			if tt.folds {
				assert.Equal(t, tt.want, v)
			}
		})
	}
}

func TestBindExprNil(t *testing.T) {
	_, err := NewBinder().BindExpr(nil)
	assert.Error(t, err)
}

func TestBindStmt(t *testing.T) {
	b := NewBinder()

	bag, err := b.BindStmt(&ast.Echo{Args: []ast.Expr{lit("a"), &ast.Variable{Name: "b"}}})
	require.NoError(t, err)
	assert.Equal(t, `echo "a", $b;`, String(bag.Stmt))

	bag, err = b.BindStmt(&ast.Declaration{Kind: "function", Name: "f"})
	require.NoError(t, err)
	assert.True(t, IsEmpty(bag.Stmt))

	bag, err = b.BindStmt(&ast.Static{Vars: []ast.StaticVar{{Var: &ast.Variable{Name: "n"}, Init: lit(int64(0))}}})
	require.NoError(t, err)
	assert.Equal(t, "static $n = 0;", String(bag.Stmt))

	_, err = b.BindStmt(&ast.While{})
	assert.Error(t, err)
}

func TestTruthy(t *testing.T) {
	tests := []struct {
		v    interface{}
		want bool
	}{
		{nil, false},
		{false, false},
		{int64(0), false},
		{0.0, false},
		{"", false},
		{"0", false},
		{"0.0", true},
		{int64(-1), true},
		{"a", true},
		{[]int{}, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Truthy(tt.v), "%#v", tt.v)
	}
}

func TestHasSideEffects(t *testing.T) {
	v := &Variable{Name: "x"}
	tests := []struct {
		name string
		x    Expr
		want bool
	}{
		{"variable", v, false},
		{"comparison", &Binary{Op: "<", Left: v, Right: &Literal{Value: int64(1)}}, false},
		{"call", &Call{Name: "f"}, true},
		{"increment", &Unary{Op: "++", Operand: v}, true},
		{"nested assign", &Binary{Op: "+", Left: v, Right: &Assign{Op: "=", Target: v, Value: v}}, true},
		{"pure opaque", &Opaque{Kind: "subscript_expression", Pure: true, Children: []Expr{v}}, false},
		{"impure opaque", &Opaque{Kind: "member_call_expression"}, true},
		{"pure opaque with call", &Opaque{Pure: true, Children: []Expr{&Call{Name: "g"}}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasSideEffects(tt.x))
		})
	}
}

func TestYieldsOrder(t *testing.T) {
	inner := &Yield{Value: &Literal{Value: int64(1)}}
	outer := &Yield{Value: inner}
	x := &Call{Name: "f", Args: []Expr{outer, &Yield{}}}
	ys := Yields(x)
	require.Len(t, ys, 3)
	assert.Same(t, inner, ys[0])
	assert.Same(t, outer, ys[1])
}

func TestString(t *testing.T) {
	tests := []struct {
		n    Node
		want string
	}{
		{&Return{}, "return;"},
		{&Return{Value: &Literal{Value: int64(1)}}, "return 1;"},
		{&Throw{Value: &Call{Name: "boom"}}, "throw boom();"},
		{&Yield{Key: &Literal{Value: "k"}, Value: &Variable{Name: "v"}}, `yield "k" => $v`},
		{&Yield{From: true, Value: &Variable{Name: "g"}}, "yield from $g"},
		{&Exit{}, "exit()"},
		{&Assign{Op: "=", Target: &Variable{Name: "a"}, Value: &Variable{Name: "b"}, ByRef: true}, "$a = &$b"},
		{&Opaque{Kind: "closure"}, "<closure>"},
		{&Empty{Marker: MarkerOpenBrace}, "{"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, String(tt.n))
	}
}
