package cfg

import (
	"github.com/l3aro/phpflow/pkg/ast"
	"github.com/l3aro/phpflow/pkg/bound"
)

// Edge is the typed transition out of a block. The set of implementations
// is closed: *SimpleEdge, *ConditionalEdge, *TryCatchEdge,
// *ForeachEnumereeEdge, *ForeachMoveNextEdge and *SwitchEdge.
type Edge interface {
	// Targets lists the blocks control may flow to, in traversal order.
	Targets() []Block
	// NextBlock is the continuation: where control ends up once the
	// construct that owns the edge completes normally.
	NextBlock() Block

	// retarget returns a copy of the edge with every target passed through
	// f. References that are not targets, such as a continuation nothing
	// reaches, go through keep.
	retarget(f, keep func(Block) Block) Edge
}

// SimpleEdge is an unconditional jump. Leave marks a jump that exits a
// try, catch or finally region; reachability treats it like any other.
type SimpleEdge struct {
	Span   ast.Span
	Target Block
	Leave  bool
}

func (e *SimpleEdge) Targets() []Block { return []Block{e.Target} }
func (e *SimpleEdge) NextBlock() Block { return e.Target }

func (e *SimpleEdge) retarget(f, _ func(Block) Block) Edge {
	n := *e
	n.Target = f(e.Target)
	return &n
}

// ConditionalEdge branches on a boolean condition. IsLoop marks loop
// header conditions.
type ConditionalEdge struct {
	Span   ast.Span
	Cond   bound.Expr
	True   Block
	False  Block
	IsLoop bool
}

func (e *ConditionalEdge) Targets() []Block { return []Block{e.True, e.False} }
func (e *ConditionalEdge) NextBlock() Block { return e.False }

func (e *ConditionalEdge) retarget(f, _ func(Block) Block) Edge {
	n := *e
	n.True = f(e.True)
	n.False = f(e.False)
	return &n
}

// TryCatchEdge enters a try statement. Catches are tried in order; all
// paths funnel through Finally (when present) into Continuation.
type TryCatchEdge struct {
	Span         ast.Span
	Body         Block
	Catches      []*CatchBlock
	Finally      Block
	Continuation Block
}

func (e *TryCatchEdge) Targets() []Block {
	out := make([]Block, 0, len(e.Catches)+2)
	out = append(out, e.Body)
	for _, c := range e.Catches {
		out = append(out, c)
	}
	if e.Finally != nil {
		out = append(out, e.Finally)
	}
	return out
}

func (e *TryCatchEdge) NextBlock() Block { return e.Continuation }

func (e *TryCatchEdge) retarget(f, keep func(Block) Block) Edge {
	n := *e
	n.Body = f(e.Body)
	n.Catches = make([]*CatchBlock, len(e.Catches))
	for i, c := range e.Catches {
		cb, ok := f(c).(*CatchBlock)
		if !ok {
			panic(invariantError{"catch target replaced by a non-catch block"})
		}
		n.Catches[i] = cb
	}
	if e.Finally != nil {
		n.Finally = f(e.Finally)
	}
	n.Continuation = keep(e.Continuation)
	return &n
}

// ForeachEnumereeEdge evaluates the enumerated collection and obtains an
// iterator. It is always followed by a ForeachMoveNextEdge out of Target.
type ForeachEnumereeEdge struct {
	Span     ast.Span
	Enumeree bound.Expr
	Target   Block
	// AliasedValues is set for `foreach ($a as &$v)`.
	AliasedValues bool
}

func (e *ForeachEnumereeEdge) Targets() []Block { return []Block{e.Target} }
func (e *ForeachEnumereeEdge) NextBlock() Block { return e.Target }

func (e *ForeachEnumereeEdge) retarget(f, _ func(Block) Block) Edge {
	n := *e
	n.Target = f(e.Target)
	return &n
}

// ForeachMoveNextEdge advances the iterator: Body runs with Key and Value
// bound to the current element, End follows the last element.
type ForeachMoveNextEdge struct {
	Span     ast.Span
	Enumeree *ForeachEnumereeEdge
	Key      bound.Expr
	Value    bound.Expr
	ByRef    bool
	Body     Block
	End      Block
}

func (e *ForeachMoveNextEdge) Targets() []Block { return []Block{e.Body, e.End} }
func (e *ForeachMoveNextEdge) NextBlock() Block { return e.End }

func (e *ForeachMoveNextEdge) retarget(f, _ func(Block) Block) Edge {
	n := *e
	n.Body = f(e.Body)
	n.End = f(e.End)
	return &n
}

// SwitchEdge dispatches on Scrutinee to the first matching case. A default
// case is always present, so control never jumps to Continuation directly.
type SwitchEdge struct {
	Span         ast.Span
	Scrutinee    bound.Expr
	Cases        []*CaseBlock
	Continuation Block
}

func (e *SwitchEdge) Targets() []Block {
	out := make([]Block, len(e.Cases))
	for i, c := range e.Cases {
		out[i] = c
	}
	return out
}

func (e *SwitchEdge) NextBlock() Block { return e.Continuation }

// Default returns the default arm.
func (e *SwitchEdge) Default() *CaseBlock {
	for _, c := range e.Cases {
		if c.IsDefault() {
			return c
		}
	}
	return nil
}

func (e *SwitchEdge) retarget(f, keep func(Block) Block) Edge {
	n := *e
	n.Cases = make([]*CaseBlock, len(e.Cases))
	for i, c := range e.Cases {
		cb, ok := f(c).(*CaseBlock)
		if !ok {
			panic(invariantError{"case target replaced by a non-case block"})
		}
		n.Cases[i] = cb
	}
	n.Continuation = keep(e.Continuation)
	return &n
}

// EdgeExprs returns the expressions an edge evaluates, in order.
func EdgeExprs(e Edge) []bound.Expr {
	var out []bound.Expr
	add := func(x bound.Expr) {
		if x != nil {
			out = append(out, x)
		}
	}
	switch e := e.(type) {
	case *ConditionalEdge:
		add(e.Cond)
	case *ForeachEnumereeEdge:
		add(e.Enumeree)
	case *ForeachMoveNextEdge:
		add(e.Key)
		add(e.Value)
	case *SwitchEdge:
		add(e.Scrutinee)
		for _, c := range e.Cases {
			add(c.Value)
		}
	}
	return out
}
