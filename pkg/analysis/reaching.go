package analysis

import (
	"container/list"
	"sort"

	"github.com/l3aro/phpflow/pkg/ast"
	"github.com/l3aro/phpflow/pkg/bound"
	"github.com/l3aro/phpflow/pkg/cfg"
)

// Definition is one write to a local variable.
type Definition struct {
	ID    int
	Var   string
	Block cfg.Block
	Span  ast.Span
}

// ReachingDefs holds the definitions that reach the entry of every
// reachable block.
type ReachingDefs struct {
	Defs []Definition

	in map[cfg.Block]map[int]struct{}
}

// ReachingDefinitions runs the classic forward may-analysis over the
// reachable part of g. Assignments, static and global declarations define a
// variable; unset kills it. Foreach keys and values count as defined when
// control leaves the loop header. Builder temporaries are ignored.
func ReachingDefinitions(g *cfg.Graph) *ReachingDefs {
	blocks := g.Blocks()
	r := &ReachingDefs{in: make(map[cfg.Block]map[int]struct{}, len(blocks))}

	gen := make(map[cfg.Block]map[string]int, len(blocks))
	kill := make(map[cfg.Block]map[string]struct{}, len(blocks))
	for _, b := range blocks {
		gen[b] = make(map[string]int)
		kill[b] = make(map[string]struct{})
		for _, s := range b.Stmts() {
			r.scanStmt(b, s, gen[b], kill[b])
		}
		if b.Next() != nil {
			for _, x := range cfg.EdgeExprs(b.Next()) {
				r.scanExpr(b, x, gen[b], kill[b])
			}
			if m, ok := b.Next().(*cfg.ForeachMoveNextEdge); ok {
				for _, x := range []bound.Expr{m.Key, m.Value} {
					if v, ok := x.(*bound.Variable); ok && !v.Temp {
						r.define(b, v, gen[b], kill[b])
					}
				}
			}
		}
	}

	preds := cfg.Predecessors(g)
	out := make(map[cfg.Block]map[int]struct{}, len(blocks))
	worklist := list.New()
	for _, b := range blocks {
		r.in[b] = make(map[int]struct{})
		out[b] = make(map[int]struct{})
		worklist.PushBack(b)
	}
	queued := make(map[cfg.Block]bool, len(blocks))
	for _, b := range blocks {
		queued[b] = true
	}

	for worklist.Len() > 0 {
		b := worklist.Remove(worklist.Front()).(cfg.Block)
		queued[b] = false

		in := make(map[int]struct{})
		for _, p := range preds[b] {
			for id := range out[p] {
				in[id] = struct{}{}
			}
		}
		r.in[b] = in

		next := make(map[int]struct{}, len(in))
		for id := range in {
			if _, killed := kill[b][r.Defs[id].Var]; !killed {
				next[id] = struct{}{}
			}
		}
		for _, id := range gen[b] {
			next[id] = struct{}{}
		}
		if sameSet(next, out[b]) {
			continue
		}
		out[b] = next
		for _, s := range cfg.Successors(b) {
			if !queued[s] {
				queued[s] = true
				worklist.PushBack(s)
			}
		}
	}
	return r
}

// Reaching returns the definitions of name that reach the entry of b,
// ordered by ID.
func (r *ReachingDefs) Reaching(b cfg.Block, name string) []Definition {
	var out []Definition
	for id := range r.in[b] {
		if r.Defs[id].Var == name {
			out = append(out, r.Defs[id])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *ReachingDefs) scanStmt(b cfg.Block, s bound.Stmt, gen map[string]int, kill map[string]struct{}) {
	switch s := s.(type) {
	case *bound.Unset:
		for _, x := range s.Vars {
			if v, ok := x.(*bound.Variable); ok {
				delete(gen, v.Name)
				kill[v.Name] = struct{}{}
			}
		}
		return
	case *bound.Global:
		for _, v := range s.Vars {
			r.define(b, v, gen, kill)
		}
		return
	case *bound.Static:
		for _, v := range s.Vars {
			if v.Init != nil {
				r.scanExpr(b, v.Init, gen, kill)
			}
			r.define(b, v.Var, gen, kill)
		}
		return
	}
	for _, x := range bound.Exprs(s) {
		r.scanExpr(b, x, gen, kill)
	}
}

// scanExpr records assignments in evaluation order: the value is written
// after its operands ran.
func (r *ReachingDefs) scanExpr(b cfg.Block, x bound.Expr, gen map[string]int, kill map[string]struct{}) {
	switch x := x.(type) {
	case nil:
		return
	case *bound.Assign:
		r.scanExpr(b, x.Value, gen, kill)
		if v, ok := x.Target.(*bound.Variable); ok {
			if !v.Temp {
				r.define(b, v, gen, kill)
			}
			return
		}
		r.scanExpr(b, x.Target, gen, kill)
	case *bound.Binary:
		r.scanExpr(b, x.Left, gen, kill)
		r.scanExpr(b, x.Right, gen, kill)
	case *bound.Unary:
		r.scanExpr(b, x.Operand, gen, kill)
	case *bound.Call:
		r.scanExpr(b, x.Callee, gen, kill)
		for _, a := range x.Args {
			r.scanExpr(b, a, gen, kill)
		}
	case *bound.Yield:
		r.scanExpr(b, x.Key, gen, kill)
		r.scanExpr(b, x.Value, gen, kill)
	case *bound.Exit:
		r.scanExpr(b, x.Value, gen, kill)
	case *bound.Opaque:
		for _, c := range x.Children {
			r.scanExpr(b, c, gen, kill)
		}
	}
}

func (r *ReachingDefs) define(b cfg.Block, v *bound.Variable, gen map[string]int, kill map[string]struct{}) {
	id := len(r.Defs)
	r.Defs = append(r.Defs, Definition{ID: id, Var: v.Name, Block: b, Span: v.Span})
	gen[v.Name] = id
	kill[v.Name] = struct{}{}
}

func sameSet(a, b map[int]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
