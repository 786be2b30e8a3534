// Package cfg builds, traverses and rewrites the control flow graph of one
// PHP routine. A graph is a set of basic blocks, each holding bound
// statements and exactly one outgoing typed edge (none for the exit block).
package cfg

import (
	"github.com/l3aro/phpflow/pkg/ast"
	"github.com/l3aro/phpflow/pkg/bound"
)

// DeadOrdinal is the ordinal of blocks that cannot be reached from Start.
const DeadOrdinal = -1

// Block is a basic block. The set of implementations is closed: *StartBlock,
// *ExitBlock, *PlainBlock, *CatchBlock and *CaseBlock.
type Block interface {
	// Ordinal is unique within a graph; DeadOrdinal marks a dead block.
	Ordinal() int
	Stmts() []bound.Stmt
	// Next is the single outgoing edge, nil for the exit block.
	Next() Edge
	Span() ast.Span
	IsDead() bool

	base() *blockBase
}

type blockBase struct {
	ordinal int
	stmts   []bound.Stmt
	next    Edge
	span    ast.Span
	color   uint64
}

func (b *blockBase) Ordinal() int        { return b.ordinal }
func (b *blockBase) Stmts() []bound.Stmt { return b.stmts }
func (b *blockBase) Next() Edge          { return b.next }
func (b *blockBase) Span() ast.Span      { return b.span }
func (b *blockBase) IsDead() bool        { return b.ordinal == DeadOrdinal }
func (b *blockBase) base() *blockBase    { return b }

// StartBlock is the unique entry of a graph.
type StartBlock struct {
	blockBase
}

// ExitBlock is the unique terminal of a graph.
type ExitBlock struct {
	blockBase
}

// PlainBlock is an ordinary statement sequence.
type PlainBlock struct {
	blockBase
}

// CatchBlock starts a catch clause. It is entered only through a TryCatchEdge.
type CatchBlock struct {
	blockBase
	// Types lists the caught class names; `catch (A|B $e)` yields two.
	Types []string
	// Variable receives the exception; nil when the clause omits it.
	Variable *bound.Variable
}

// CaseBlock starts a switch arm. It is entered only through a SwitchEdge.
type CaseBlock struct {
	blockBase
	// Value is nil for the default arm.
	Value bound.Expr
	// Synthesized marks the default arm added when the source has none.
	Synthesized bool
}

// IsDefault reports whether c is the default arm.
func (c *CaseBlock) IsDefault() bool {
	return c.Value == nil
}

// cloneBlock returns a shallow copy of b with the same ordinal, statements
// and edge. The copy has no color.
func cloneBlock(b Block) Block {
	var c Block
	switch b := b.(type) {
	case *StartBlock:
		n := *b
		c = &n
	case *ExitBlock:
		n := *b
		c = &n
	case *PlainBlock:
		n := *b
		c = &n
	case *CatchBlock:
		n := *b
		c = &n
	case *CaseBlock:
		n := *b
		c = &n
	default:
		panic(invariantError{"clone of unknown block type"})
	}
	c.base().color = 0
	return c
}

// withContents returns a copy of b carrying the given statements and edge.
func withContents(b Block, stmts []bound.Stmt, next Edge) Block {
	c := cloneBlock(b)
	c.base().stmts = stmts
	c.base().next = next
	return c
}

// Successors returns the blocks control may flow to directly from b.
func Successors(b Block) []Block {
	if b.Next() == nil {
		return nil
	}
	return b.Next().Targets()
}

// HasUserCode reports whether b holds statements beyond synthetic markers
// and implicit returns.
func HasUserCode(b Block) bool {
	for _, s := range b.Stmts() {
		switch s := s.(type) {
		case *bound.Empty:
			continue
		case *bound.Return:
			if s.Implicit {
				continue
			}
		}
		return true
	}
	return false
}
