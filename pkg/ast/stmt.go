package ast

// ExprStmt evaluates an expression for its side effects.
type ExprStmt struct {
	Span Span
	X    Expr
}

// Echo prints its arguments.
type Echo struct {
	Span Span
	Args []Expr
}

// Unset destroys the listed variables.
type Unset struct {
	Span Span
	Vars []Expr
}

// Global imports global variables into the local scope.
type Global struct {
	Span Span
	Vars []*Variable
}

// StaticVar is one `static $name = init` declarator.
type StaticVar struct {
	Var  *Variable
	Init Expr
}

// Static declares function static variables.
type Static struct {
	Span Span
	Vars []StaticVar
}

// Block is a brace delimited statement list.
type Block struct {
	Span  Span
	Open  Span
	Close Span
	Stmts []Stmt
}

// IfBranch is one `if`/`elseif` arm, or the `else` arm when Cond is nil.
type IfBranch struct {
	Span Span
	Cond Expr
	Body []Stmt
}

// If is an if/elseif/else chain.
type If struct {
	Span     Span
	Branches []IfBranch
}

// While is a pre-tested loop.
type While struct {
	Span Span
	Cond Expr
	Body []Stmt
}

// DoWhile is a post-tested loop.
type DoWhile struct {
	Span Span
	Body []Stmt
	Cond Expr
}

// For is a C style loop. Each clause is a comma separated expression list;
// the value of the last Cond expression decides whether to iterate.
type For struct {
	Span   Span
	Init   []Expr
	Cond   []Expr
	Action []Expr
	Body   []Stmt
}

// Foreach iterates over an enumerable value.
type Foreach struct {
	Span     Span
	Enumeree Expr
	Key      Expr
	Value    Expr
	ByRef    bool
	Body     []Stmt
}

// SwitchCase is a `case value:` arm, or `default:` when Value is nil.
type SwitchCase struct {
	Span  Span
	Value Expr
	Body  []Stmt
}

// Switch selects among case arms with fallthrough.
type Switch struct {
	Span      Span
	Scrutinee Expr
	Cases     []SwitchCase
}

// Catch is one catch clause.
type Catch struct {
	Span  Span
	Types []string
	Var   *Variable
	Body  []Stmt
}

// Try is a try statement with optional catch and finally clauses.
type Try struct {
	Span       Span
	Body       []Stmt
	Catches    []Catch
	Finally    []Stmt
	HasFinally bool
}

// Goto jumps to a label in the same routine.
type Goto struct {
	Span  Span
	Label string
}

// Label defines a goto target.
type Label struct {
	Span Span
	Name string
}

// Break leaves Level enclosing loops or switches. Level is nil for 1.
type Break struct {
	Span  Span
	Level Expr
}

// Continue starts the next iteration of the Level-th enclosing loop.
type Continue struct {
	Span  Span
	Level Expr
}

// Return leaves the routine, optionally with a value.
type Return struct {
	Span  Span
	Value Expr
}

// Throw raises an exception.
type Throw struct {
	Span  Span
	Value Expr
}

// Empty is a lone `;`.
type Empty struct {
	Span Span
}

// Declaration is a nested function, class or constant declaration. It
// does not contribute control flow to the enclosing routine.
type Declaration struct {
	Span Span
	Kind string
	Name string
}

func (s *ExprStmt) Pos() Span    { return s.Span }
func (s *Echo) Pos() Span        { return s.Span }
func (s *Unset) Pos() Span       { return s.Span }
func (s *Global) Pos() Span      { return s.Span }
func (s *Static) Pos() Span      { return s.Span }
func (s *Block) Pos() Span       { return s.Span }
func (s *If) Pos() Span          { return s.Span }
func (s *While) Pos() Span       { return s.Span }
func (s *DoWhile) Pos() Span     { return s.Span }
func (s *For) Pos() Span         { return s.Span }
func (s *Foreach) Pos() Span     { return s.Span }
func (s *Switch) Pos() Span      { return s.Span }
func (s *Try) Pos() Span         { return s.Span }
func (s *Goto) Pos() Span        { return s.Span }
func (s *Label) Pos() Span       { return s.Span }
func (s *Break) Pos() Span       { return s.Span }
func (s *Continue) Pos() Span    { return s.Span }
func (s *Return) Pos() Span      { return s.Span }
func (s *Throw) Pos() Span       { return s.Span }
func (s *Empty) Pos() Span       { return s.Span }
func (s *Declaration) Pos() Span { return s.Span }

func (*ExprStmt) stmtNode()    {}
func (*Echo) stmtNode()        {}
func (*Unset) stmtNode()       {}
func (*Global) stmtNode()      {}
func (*Static) stmtNode()      {}
func (*Block) stmtNode()       {}
func (*If) stmtNode()          {}
func (*While) stmtNode()       {}
func (*DoWhile) stmtNode()     {}
func (*For) stmtNode()         {}
func (*Foreach) stmtNode()     {}
func (*Switch) stmtNode()      {}
func (*Try) stmtNode()         {}
func (*Goto) stmtNode()        {}
func (*Label) stmtNode()       {}
func (*Break) stmtNode()       {}
func (*Continue) stmtNode()    {}
func (*Return) stmtNode()      {}
func (*Throw) stmtNode()       {}
func (*Empty) stmtNode()       {}
func (*Declaration) stmtNode() {}
