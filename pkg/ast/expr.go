package ast

// LitKind classifies literal values.
type LitKind int

const (
	NullLit LitKind = iota
	BoolLit
	IntLit
	FloatLit
	StringLit
)

// Literal is a constant scalar. Value holds nil, bool, int64, float64 or
// string according to Kind.
type Literal struct {
	Span  Span
	Kind  LitKind
	Value interface{}
	Raw   string
}

// Variable is a `$name` reference.
type Variable struct {
	Span Span
	Name string
}

// Binary is a binary operation; Op is the operator token, e.g. "&&" or "+".
type Binary struct {
	Span  Span
	Op    string
	Left  Expr
	Right Expr
}

// Unary is a prefix operation such as `!x` or `-x`.
type Unary struct {
	Span    Span
	Op      string
	Operand Expr
}

// Assign is `target op value`; Op is "=" or a compound operator like "+=".
type Assign struct {
	Span   Span
	Op     string
	Target Expr
	Value  Expr
	ByRef  bool
}

// Call is a function or method call. Name is set for direct calls to a
// named function; Callee holds anything else.
type Call struct {
	Span   Span
	Name   string
	Callee Expr
	Args   []Expr
}

// Yield suspends a generator. From marks `yield from`.
type Yield struct {
	Span  Span
	Key   Expr
	Value Expr
	From  bool
}

// Exit terminates the script (`exit` or `die`).
type Exit struct {
	Span  Span
	Value Expr
	Die   bool
}

// ThrowExpr is PHP 8's `throw` used in expression position.
type ThrowExpr struct {
	Span  Span
	Value Expr
}

// Raw is any expression the front end does not model in detail. Children
// holds its nested expressions so nothing below it (yields in particular) is
// lost.
type Raw struct {
	Span     Span
	Kind     string
	Text     string
	Children []Expr
	// Pure is set when evaluating the node cannot have side effects.
	Pure bool
}

func (x *Literal) Pos() Span   { return x.Span }
func (x *Variable) Pos() Span  { return x.Span }
func (x *Binary) Pos() Span    { return x.Span }
func (x *Unary) Pos() Span     { return x.Span }
func (x *Assign) Pos() Span    { return x.Span }
func (x *Call) Pos() Span      { return x.Span }
func (x *Yield) Pos() Span     { return x.Span }
func (x *Exit) Pos() Span      { return x.Span }
func (x *ThrowExpr) Pos() Span { return x.Span }
func (x *Raw) Pos() Span       { return x.Span }

func (*Literal) exprNode()   {}
func (*Variable) exprNode()  {}
func (*Binary) exprNode()    {}
func (*Unary) exprNode()     {}
func (*Assign) exprNode()    {}
func (*Call) exprNode()      {}
func (*Yield) exprNode()     {}
func (*Exit) exprNode()      {}
func (*ThrowExpr) exprNode() {}
func (*Raw) exprNode()       {}

// Inspect traverses the expression tree rooted at x in depth-first order,
// calling f for each node. Children are skipped when f returns false.
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
	case *ThrowExpr:
		Inspect(x.Value, f)
	case *Raw:
		for _, c := range x.Children {
			Inspect(c, f)
		}
	}
}
