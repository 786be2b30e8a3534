package bound

import (
	"fmt"
	"strings"

	"github.com/l3aro/phpflow/pkg/ast"
)

// Bag is what a bind call hands back besides the bound node: straight-line
// chunks of operations that must run before it. The graph builder places
// each chunk in a block of its own, chained in order, so lowering a short
// circuit never requires the binder to know about blocks.
type Bag struct {
	Pre [][]Stmt
}

// HasPre reports whether the bag carries pre-blocks.
func (b Bag) HasPre() bool {
	return len(b.Pre) > 0
}

// StmtBag is the result of binding a statement.
type StmtBag struct {
	Bag
	Stmt Stmt
}

// ExprBag is the result of binding an expression.
type ExprBag struct {
	Bag
	Expr Expr
}

// Binder turns parsed nodes into bound operations. The graph builder binds
// simple statements and the expressions that control statements carry; it
// never passes control statements to BindStmt.
type Binder interface {
	BindStmt(s ast.Stmt) (StmtBag, error)
	BindExpr(x ast.Expr) (ExprBag, error)
}

// DefaultBinder maps parsed nodes one to one onto bound nodes and folds
// constant scalar operations. It never produces pre-blocks.
type DefaultBinder struct{}

// NewBinder returns the default binder.
func NewBinder() *DefaultBinder {
	return &DefaultBinder{}
}

// BindStmt binds a simple statement.
func (b *DefaultBinder) BindStmt(s ast.Stmt) (StmtBag, error) {
	var out Stmt
	switch s := s.(type) {
	case *ast.ExprStmt:
		out = &ExprStmt{Span: s.Span, X: b.expr(s.X)}
	case *ast.Echo:
		out = &Echo{Span: s.Span, Args: b.exprs(s.Args)}
	case *ast.Unset:
		out = &Unset{Span: s.Span, Vars: b.exprs(s.Vars)}
	case *ast.Global:
		g := &Global{Span: s.Span}
		for _, v := range s.Vars {
			g.Vars = append(g.Vars, b.variable(v))
		}
		out = g
	case *ast.Static:
		st := &Static{Span: s.Span}
		for _, v := range s.Vars {
			st.Vars = append(st.Vars, StaticVar{Var: b.variable(v.Var), Init: b.expr(v.Init)})
		}
		out = st
	case *ast.Empty:
		out = &Empty{Span: s.Span, Marker: MarkerSemicolon}
	case *ast.Declaration:
		out = &Empty{Span: s.Span, Marker: MarkerSemicolon}
	default:
		return StmtBag{}, fmt.Errorf("bind: unexpected statement %T", s)
	}
	return StmtBag{Stmt: out}, nil
}

// BindExpr binds an expression.
func (b *DefaultBinder) BindExpr(x ast.Expr) (ExprBag, error) {
	if x == nil {
		return ExprBag{}, fmt.Errorf("bind: nil expression")
	}
	return ExprBag{Expr: b.expr(x)}, nil
}

func (b *DefaultBinder) exprs(xs []ast.Expr) []Expr {
	out := make([]Expr, 0, len(xs))
	for _, x := range xs {
		out = append(out, b.expr(x))
	}
	return out
}

func (b *DefaultBinder) variable(v *ast.Variable) *Variable {
	if v == nil {
		return nil
	}
	return &Variable{Span: v.Span, Name: v.Name}
}

func (b *DefaultBinder) expr(x ast.Expr) Expr {
	switch x := x.(type) {
	case nil:
		return nil
	case *ast.Literal:
		return &Literal{Span: x.Span, Value: x.Value}
	case *ast.Variable:
		return b.variable(x)
	case *ast.Unary:
		operand := b.expr(x.Operand)
		if v, ok := foldUnary(x.Op, operand); ok {
			return &Literal{Span: x.Span, Value: v}
		}
		return &Unary{Span: x.Span, Op: x.Op, Operand: operand}
	case *ast.Binary:
		left, right := b.expr(x.Left), b.expr(x.Right)
		if v, ok := foldBinary(x.Op, left, right); ok {
			return &Literal{Span: x.Span, Value: v}
		}
		return &Binary{Span: x.Span, Op: x.Op, Left: left, Right: right}
	case *ast.Assign:
		return &Assign{Span: x.Span, Op: x.Op, Target: b.expr(x.Target), Value: b.expr(x.Value), ByRef: x.ByRef}
	case *ast.Call:
		return &Call{Span: x.Span, Name: x.Name, Callee: b.expr(x.Callee), Args: b.exprs(x.Args)}
	case *ast.Yield:
		return &Yield{Span: x.Span, Key: b.expr(x.Key), Value: b.expr(x.Value), From: x.From}
	case *ast.Exit:
		return &Exit{Span: x.Span, Value: b.expr(x.Value)}
	case *ast.ThrowExpr:
		return &Opaque{Span: x.Span, Kind: "throw", Text: "throw", Children: []Expr{b.expr(x.Value)}}
	case *ast.Raw:
		if v, ok := namedConstant(x); ok {
			return &Literal{Span: x.Span, Value: v}
		}
		return &Opaque{Span: x.Span, Kind: x.Kind, Text: x.Text, Children: b.exprs(x.Children), Pure: x.Pure}
	default:
		return &Opaque{Span: x.Pos(), Kind: fmt.Sprintf("%T", x)}
	}
}

// namedConstant recognises the case-insensitive constants true, false and
// null when the front end left them as bare names.
func namedConstant(x *ast.Raw) (interface{}, bool) {
	if x.Kind != "name" && x.Kind != "qualified_name" {
		return nil, false
	}
	switch strings.ToLower(strings.TrimPrefix(x.Text, `\`)) {
	case "true":
		return true, true
	case "false":
		return false, true
	case "null":
		return nil, true
	}
	return nil, false
}

// Constant returns the compile-time value of x.
func Constant(x Expr) (interface{}, bool) {
	lit, ok := x.(*Literal)
	if !ok {
		return nil, false
	}
	return lit.Value, true
}

// ConstantBool returns the truthiness of x when x is a compile-time
// constant.
func ConstantBool(x Expr) (value, ok bool) {
	v, ok := Constant(x)
	if !ok {
		return false, false
	}
	return Truthy(v), true
}

// Truthy converts a scalar to bool the way PHP does.
func Truthy(v interface{}) bool {
	switch v := v.(type) {
	case nil:
		return false
	case bool:
		return v
	case int64:
		return v != 0
	case int:
		return v != 0
	case float64:
		return v != 0
	case string:
		return v != "" && v != "0"
	default:
		return true
	}
}

func foldUnary(op string, operand Expr) (interface{}, bool) {
	v, ok := Constant(operand)
	if !ok {
		return nil, false
	}
	switch op {
	case "!":
		return !Truthy(v), true
	case "-":
		switch n := v.(type) {
		case int64:
			return -n, true
		case float64:
			return -n, true
		}
	case "+":
		switch v.(type) {
		case int64, float64:
			return v, true
		}
	}
	return nil, false
}

func foldBinary(op string, left, right Expr) (interface{}, bool) {
	lv, lok := Constant(left)
	rv, rok := Constant(right)
	switch strings.ToLower(op) {
	case "&&", "and":
		if lok && !Truthy(lv) {
			return false, true
		}
		if lok && rok {
			return Truthy(rv), true
		}
	case "||", "or":
		if lok && Truthy(lv) {
			return true, true
		}
		if lok && rok {
			return Truthy(rv), true
		}
	case "xor":
		if lok && rok {
			return Truthy(lv) != Truthy(rv), true
		}
	}
	return nil, false
}

// HasSideEffects reports whether evaluating x may change program state.
func HasSideEffects(x Expr) bool {
	effects := false
	Inspect(x, func(n Expr) bool {
		switch n := n.(type) {
		case *Assign, *Call, *Yield, *Exit:
			effects = true
		case *Unary:
			if n.Op == "++" || n.Op == "--" {
				effects = true
			}
		case *Opaque:
			if !n.Pure {
				effects = true
			}
		}
		return !effects
	})
	return effects
}
