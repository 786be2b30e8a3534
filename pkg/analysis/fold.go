package analysis

import (
	"github.com/l3aro/phpflow/pkg/bound"
	"github.com/l3aro/phpflow/pkg/cfg"
)

// Evaluator decides the truth value of a condition when it is known
// statically.
type Evaluator func(x bound.Expr) (value, ok bool)

type folder struct {
	cfg.BaseRewriter
	eval Evaluator
}

func (f folder) RewriteEdge(_ cfg.Block, e cfg.Edge) cfg.Edge {
	c, ok := e.(*cfg.ConditionalEdge)
	if !ok {
		return e
	}
	v, ok := f.eval(c.Cond)
	if !ok {
		return e
	}
	target := c.False
	if v {
		target = c.True
	}
	return &cfg.SimpleEdge{Span: c.Span, Target: target}
}

// FoldConstants replaces conditional edges whose condition eval decides
// with jumps to the taken side. A nil eval uses Evaluate. The input graph
// is returned when nothing folds.
func FoldConstants(g *cfg.Graph, eval Evaluator) *cfg.Graph {
	if eval == nil {
		eval = Evaluate
	}
	return cfg.Rewrite(g, folder{eval: eval})
}

// Evaluate folds literals and comparisons between literals.
func Evaluate(x bound.Expr) (bool, bool) {
	v, ok := constant(x)
	if !ok {
		return false, false
	}
	return bound.Truthy(v), true
}

func constant(x bound.Expr) (interface{}, bool) {
	switch x := x.(type) {
	case *bound.Literal:
		return x.Value, true
	case *bound.Unary:
		if x.Op != "!" {
			return nil, false
		}
		v, ok := constant(x.Operand)
		if !ok {
			return nil, false
		}
		return !bound.Truthy(v), true
	case *bound.Binary:
		l, lok := constant(x.Left)
		r, rok := constant(x.Right)
		if !lok || !rok {
			return nil, false
		}
		return compare(x.Op, l, r)
	}
	return nil, false
}

func compare(op string, l, r interface{}) (interface{}, bool) {
	switch op {
	case "===":
		return l == r, true
	case "!==":
		return l != r, true
	case "&&", "and":
		return bound.Truthy(l) && bound.Truthy(r), true
	case "||", "or":
		return bound.Truthy(l) || bound.Truthy(r), true
	}
	li, lok := l.(int64)
	ri, rok := r.(int64)
	if !lok || !rok {
		return nil, false
	}
	switch op {
	case "==":
		return li == ri, true
	case "!=", "<>":
		return li != ri, true
	case "<":
		return li < ri, true
	case "<=":
		return li <= ri, true
	case ">":
		return li > ri, true
	case ">=":
		return li >= ri, true
	}
	return nil, false
}
