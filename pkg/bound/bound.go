// Package bound defines the bound operations stored in control flow graph
// blocks and the binder that produces them from parsed nodes.
package bound

import "github.com/l3aro/phpflow/pkg/ast"

// Node is implemented by every bound statement and expression.
type Node interface {
	Pos() ast.Span
}

// Expr is a bound expression.
type Expr interface {
	Node
	boundExpr()
}

// Stmt is a bound statement.
type Stmt interface {
	Node
	boundStmt()
}

// Literal is a compile-time constant.
type Literal struct {
	Span  ast.Span
	Value interface{}
}

// Variable is a local variable. Temp marks variables synthesized by the
// builder; their names cannot clash with source variables.
type Variable struct {
	Span ast.Span
	Name string
	Temp bool
}

// Binary is a binary operation.
type Binary struct {
	Span  ast.Span
	Op    string
	Left  Expr
	Right Expr
}

// Unary is a prefix operation.
type Unary struct {
	Span    ast.Span
	Op      string
	Operand Expr
}

// Assign stores Value into Target.
type Assign struct {
	Span   ast.Span
	Op     string
	Target Expr
	Value  Expr
	ByRef  bool
}

// Call invokes a function.
type Call struct {
	Span   ast.Span
	Name   string
	Callee Expr
	Args   []Expr
}

// Yield is a generator suspension point.
type Yield struct {
	Span  ast.Span
	Key   Expr
	Value Expr
	From  bool
}

// Exit terminates the program.
type Exit struct {
	Span  ast.Span
	Value Expr
}

// Opaque wraps an expression the binder does not model.
type Opaque struct {
	Span     ast.Span
	Kind     string
	Text     string
	Children []Expr
	Pure     bool
}

func (x *Literal) Pos() ast.Span  { return x.Span }
func (x *Variable) Pos() ast.Span { return x.Span }
func (x *Binary) Pos() ast.Span   { return x.Span }
func (x *Unary) Pos() ast.Span    { return x.Span }
func (x *Assign) Pos() ast.Span   { return x.Span }
func (x *Call) Pos() ast.Span     { return x.Span }
func (x *Yield) Pos() ast.Span    { return x.Span }
func (x *Exit) Pos() ast.Span     { return x.Span }
func (x *Opaque) Pos() ast.Span   { return x.Span }

func (*Literal) boundExpr()  {}
func (*Variable) boundExpr() {}
func (*Binary) boundExpr()   {}
func (*Unary) boundExpr()    {}
func (*Assign) boundExpr()   {}
func (*Call) boundExpr()     {}
func (*Yield) boundExpr()    {}
func (*Exit) boundExpr()     {}
func (*Opaque) boundExpr()   {}

// ExprStmt evaluates X for its side effects.
type ExprStmt struct {
	Span ast.Span
	X    Expr
}

// Echo prints Args.
type Echo struct {
	Span ast.Span
	Args []Expr
}

// Unset destroys Vars.
type Unset struct {
	Span ast.Span
	Vars []Expr
}

// Global binds global variables locally.
type Global struct {
	Span ast.Span
	Vars []*Variable
}

// StaticVar is one static variable declarator.
type StaticVar struct {
	Var  *Variable
	Init Expr
}

// Static declares function static variables.
type Static struct {
	Span ast.Span
	Vars []StaticVar
}

// Return leaves the routine. Implicit marks the return appended at the end
// of a body that falls off its last statement.
type Return struct {
	Span     ast.Span
	Value    Expr
	Implicit bool
}

// Throw raises Value. InTry is set when the throw is lexically inside a try
// or catch body.
type Throw struct {
	Span  ast.Span
	Value Expr
	InTry bool
}

// Marker kinds of Empty.
const (
	MarkerOpenBrace  = "{"
	MarkerCloseBrace = "}"
	MarkerSemicolon  = ";"
)

// Empty is a synthetic no-op kept for source fidelity.
type Empty struct {
	Span   ast.Span
	Marker string
}

func (s *ExprStmt) Pos() ast.Span { return s.Span }
func (s *Echo) Pos() ast.Span     { return s.Span }
func (s *Unset) Pos() ast.Span    { return s.Span }
func (s *Global) Pos() ast.Span   { return s.Span }
func (s *Static) Pos() ast.Span   { return s.Span }
func (s *Return) Pos() ast.Span   { return s.Span }
func (s *Throw) Pos() ast.Span    { return s.Span }
func (s *Empty) Pos() ast.Span    { return s.Span }

func (*ExprStmt) boundStmt() {}
func (*Echo) boundStmt()     {}
func (*Unset) boundStmt()    {}
func (*Global) boundStmt()   {}
func (*Static) boundStmt()   {}
func (*Return) boundStmt()   {}
func (*Throw) boundStmt()    {}
func (*Empty) boundStmt()    {}

// IsEmpty reports whether s is a synthetic no-op.
func IsEmpty(s Stmt) bool {
	_, ok := s.(*Empty)
	return ok
}

// Inspect traverses the expression tree rooted at x depth-first. Children
// are skipped when f returns false.
func Inspect(x Expr, f func(Expr) bool) {
	if x == nil || !f(x) {
		return
	}
	switch x := x.(type) {
	case *Binary:
		Inspect(x.Left, f)
		Inspect(x.Right, f)
	case *Unary:
		Inspect(x.Operand, f)
	case *Assign:
		Inspect(x.Target, f)
		Inspect(x.Value, f)
	case *Call:
		Inspect(x.Callee, f)
		for _, a := range x.Args {
			Inspect(a, f)
		}
	case *Yield:
		Inspect(x.Key, f)
		Inspect(x.Value, f)
	case *Exit:
		Inspect(x.Value, f)
	case *Opaque:
		for _, c := range x.Children {
			Inspect(c, f)
		}
	}
}

// Exprs returns the top level expressions of s in evaluation order.
func Exprs(s Stmt) []Expr {
	switch s := s.(type) {
	case *ExprStmt:
		return []Expr{s.X}
	case *Echo:
		return s.Args
	case *Unset:
		return s.Vars
	case *Global:
		out := make([]Expr, len(s.Vars))
		for i, v := range s.Vars {
			out[i] = v
		}
		return out
	case *Static:
		var out []Expr
		for _, v := range s.Vars {
			out = append(out, v.Var)
			if v.Init != nil {
				out = append(out, v.Init)
			}
		}
		return out
	case *Return:
		if s.Value != nil {
			return []Expr{s.Value}
		}
	case *Throw:
		return []Expr{s.Value}
	}
	return nil
}

// Yields returns the suspension points inside x in evaluation order.
func Yields(x Expr) []*Yield {
	var out []*Yield
	Inspect(x, func(n Expr) bool {
		if y, ok := n.(*Yield); ok {
			// Operands are evaluated before the suspension itself.
			out = append(out, Yields(y.Key)...)
			out = append(out, Yields(y.Value)...)
			out = append(out, y)
			return false
		}
		return true
	})
	return out
}
