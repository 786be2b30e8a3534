package cfg

import (
	"errors"
	"fmt"

	"github.com/l3aro/phpflow/internal/log"
	"github.com/l3aro/phpflow/pkg/ast"
	"github.com/l3aro/phpflow/pkg/bound"
	"github.com/l3aro/phpflow/pkg/diag"
)

var (
	ErrNilRoutine = errors.New("cfg: nil routine")
	ErrNilBinder  = errors.New("cfg: nil binder")
	// ErrInvariant is wrapped by errors returned when the builder detects an
	// inconsistent graph.
	ErrInvariant = errors.New("cfg: invariant violated")
)

type invariantError struct {
	msg string
}

func (e invariantError) Error() string { return "cfg: " + e.msg }
func (e invariantError) Unwrap() error { return ErrInvariant }

var nopLogger log.Logger = log.Nop()

// BuildOption configures Build.
type BuildOption func(*buildOptions)

type buildOptions struct {
	logger log.Logger
}

// WithLogger traces block creation at debug level.
func WithLogger(l log.Logger) BuildOption {
	return func(o *buildOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// breakScope is the target pair of one loop or switch nesting level.
type breakScope struct {
	Break    Block
	Continue Block
}

type builder struct {
	routine *ast.Routine
	binder  bound.Binder
	sink    diag.Sink
	log     log.Logger

	ordinal int
	blocks  []Block
	start   *StartBlock
	exit    *ExitBlock
	cur     Block

	labels *LabelTable
	scopes []breakScope
	tries  []*TryCatchEdge
	yields []*bound.Yield
	temps  int
}

// Build constructs the control flow graph of r. Statements and expressions
// are bound with binder; user-facing problems such as a misplaced break are
// reported to sink and never fail the build. A nil sink discards them.
func Build(r *ast.Routine, binder bound.Binder, sink diag.Sink, opts ...BuildOption) (g *Graph, err error) {
	if r == nil {
		return nil, ErrNilRoutine
	}
	if binder == nil {
		return nil, ErrNilBinder
	}
	if sink == nil {
		sink = diag.Discard
	}
	o := buildOptions{logger: nopLogger}
	for _, opt := range opts {
		opt(&o)
	}

	defer func() {
		if p := recover(); p != nil {
			ie, ok := p.(invariantError)
			if !ok {
				panic(p)
			}
			g, err = nil, fmt.Errorf("build %s: %w", r.Name, ie)
		}
	}()

	b := &builder{
		routine: r,
		binder:  binder,
		sink:    sink,
		log:     o.logger,
		labels:  newLabelTable(),
	}
	return b.build(), nil
}

func (b *builder) build() *Graph {
	r := b.routine
	b.start = &StartBlock{blockBase{span: r.Span}}
	b.register(b.start)
	b.exit = &ExitBlock{blockBase{span: r.Span}}
	b.register(b.exit)

	body := b.newBlock()
	b.setNext(b.start, &SimpleEdge{Span: r.Span, Target: body})
	b.cur = body

	b.stmts(r.Body)

	end := ast.Span{StartLine: r.Span.EndLine, StartCol: r.Span.EndCol, EndLine: r.Span.EndLine, EndCol: r.Span.EndCol}
	if !b.cur.IsDead() {
		ret := &bound.Return{Span: end, Implicit: true}
		if r.IsGlobal() {
			ret.Value = &bound.Literal{Span: end, Value: int64(1)}
		}
		b.add(ret)
	}
	b.jump(b.exit)

	for _, e := range b.labels.Entries() {
		if e.Has(LabelDefined) {
			continue
		}
		b.report(e.Span, diag.ErrLabelUndefined, e.Name)
		b.setNext(e.Block, &SimpleEdge{Span: e.Span, Target: b.exit})
	}

	g := &Graph{
		Routine: r.Name,
		Start:   b.start,
		Exit:    b.exit,
		Labels:  b.labels,
		Yields:  b.yields,
		colors:  &colorSource{},
	}
	b.markUnreachable(g)

	b.log.Debug("built graph", "routine", r.Name, "blocks", len(b.blocks), "unreachable", len(g.Unreachable))
	return g
}

// markUnreachable demotes every block Start cannot reach to a dead block
// and records it. Exit keeps its ordinal even when no path reaches it.
func (b *builder) markUnreachable(g *Graph) {
	reached := make(map[Block]bool, len(b.blocks))
	Inspect(g, func(x Block) bool {
		reached[x] = true
		return true
	})
	for _, x := range b.blocks {
		if x.Next() == nil && x != Block(b.exit) {
			panic(invariantError{fmt.Sprintf("block %d has no outgoing edge", x.Ordinal())})
		}
		if x == Block(b.exit) || reached[x] {
			continue
		}
		x.base().ordinal = DeadOrdinal
		g.Unreachable = append(g.Unreachable, x)
	}
}

func (b *builder) register(x Block) {
	x.base().ordinal = b.ordinal
	b.ordinal++
	b.blocks = append(b.blocks, x)
	b.log.Debug("new block", "routine", b.routine.Name, "ordinal", x.Ordinal(), "kind", fmt.Sprintf("%T", x))
}

func (b *builder) newBlock() Block {
	x := &PlainBlock{}
	b.register(x)
	return x
}

// newDeadBlock opens the block that collects statements following an
// unconditional transfer of control.
func (b *builder) newDeadBlock() Block {
	x := &PlainBlock{blockBase{ordinal: DeadOrdinal}}
	b.blocks = append(b.blocks, x)
	return x
}

func (b *builder) setNext(x Block, e Edge) {
	if x == Block(b.exit) {
		panic(invariantError{"edge out of the exit block"})
	}
	if x.Next() != nil {
		panic(invariantError{fmt.Sprintf("block %d already has an outgoing edge", x.Ordinal())})
	}
	x.base().next = e
}

func (b *builder) jump(to Block) {
	b.setNext(b.cur, &SimpleEdge{Target: to})
}

func (b *builder) leave(to Block) {
	b.setNext(b.cur, &SimpleEdge{Target: to, Leave: true})
}

// branch ends the current block on cond. A condition known at build time
// becomes a plain jump to the taken side.
func (b *builder) branch(span ast.Span, cond bound.Expr, t, f Block, loop bool) {
	if v, ok := bound.ConstantBool(cond); ok {
		target := f
		if v {
			target = t
		}
		b.setNext(b.cur, &SimpleEdge{Span: span, Target: target})
		return
	}
	b.setNext(b.cur, &ConditionalEdge{Span: span, Cond: cond, True: t, False: f, IsLoop: loop})
}

func (b *builder) add(s bound.Stmt) {
	x := b.cur.base()
	x.stmts = append(x.stmts, s)
	if x.span.IsZero() {
		x.span = s.Pos()
	} else if p := s.Pos(); !p.IsZero() {
		x.span.EndLine, x.span.EndCol = p.EndLine, p.EndCol
	}
}

// terminate ends the current block with a jump to target and continues in
// a dead block.
func (b *builder) terminate(target Block) {
	b.jump(target)
	b.cur = b.newDeadBlock()
}

func (b *builder) report(span ast.Span, code diag.Code, args ...interface{}) {
	b.sink.Report(b.routine.Name, span, code, args...)
}

func (b *builder) collect(x bound.Expr) {
	b.yields = append(b.yields, bound.Yields(x)...)
}

// emitPre places each pre-chunk of a bag in the current block and moves on
// to a fresh block, so the bound node lands after all of them.
func (b *builder) emitPre(bag bound.Bag) {
	for _, chunk := range bag.Pre {
		for _, s := range chunk {
			for _, x := range bound.Exprs(s) {
				b.collect(x)
			}
			b.add(s)
		}
		next := b.newBlock()
		b.jump(next)
		b.cur = next
	}
}

func (b *builder) bindBag(x ast.Expr) bound.ExprBag {
	bag, err := b.binder.BindExpr(x)
	if err != nil || bag.Expr == nil {
		if err == nil {
			err = errors.New("no result")
		}
		b.report(x.Pos(), diag.ErrBind, fmt.Sprintf("%T", x), err)
		return bound.ExprBag{Expr: &bound.Opaque{Span: x.Pos(), Kind: "error"}}
	}
	return bag
}

// bindExpr binds x, flushing its pre-chunks. It returns nil for nil.
func (b *builder) bindExpr(x ast.Expr) bound.Expr {
	if x == nil {
		return nil
	}
	bag := b.bindBag(x)
	b.emitPre(bag.Bag)
	b.collect(bag.Expr)
	return bag.Expr
}

func (b *builder) exprStmt(x ast.Expr) {
	v := b.bindExpr(x)
	b.add(&bound.ExprStmt{Span: x.Pos(), X: v})
}

func (b *builder) simple(s ast.Stmt) {
	bag, err := b.binder.BindStmt(s)
	if err != nil || bag.Stmt == nil {
		if err == nil {
			err = errors.New("no result")
		}
		b.report(s.Pos(), diag.ErrBind, fmt.Sprintf("%T", s), err)
		b.add(&bound.ExprStmt{Span: s.Pos(), X: &bound.Opaque{Span: s.Pos(), Kind: "error"}})
		return
	}
	b.emitPre(bag.Bag)
	for _, x := range bound.Exprs(bag.Stmt) {
		b.collect(x)
	}
	b.add(bag.Stmt)
}

func (b *builder) stmts(list []ast.Stmt) {
	for _, s := range list {
		b.stmt(s)
	}
}

func (b *builder) stmt(s ast.Stmt) {
	switch s := s.(type) {
	case *ast.Block:
		b.add(&bound.Empty{Span: s.Open, Marker: bound.MarkerOpenBrace})
		b.stmts(s.Stmts)
		b.add(&bound.Empty{Span: s.Close, Marker: bound.MarkerCloseBrace})
	case *ast.If:
		b.ifStmt(s)
	case *ast.While:
		b.whileStmt(s)
	case *ast.DoWhile:
		b.doWhileStmt(s)
	case *ast.For:
		b.forStmt(s)
	case *ast.Foreach:
		b.foreachStmt(s)
	case *ast.Switch:
		b.switchStmt(s)
	case *ast.Try:
		b.tryStmt(s)
	case *ast.Goto:
		b.gotoStmt(s)
	case *ast.Label:
		b.labelStmt(s)
	case *ast.Break:
		b.jumpOut("break", s.Span, s.Level, false)
	case *ast.Continue:
		b.jumpOut("continue", s.Span, s.Level, true)
	case *ast.Return:
		v := b.bindExpr(s.Value)
		b.add(&bound.Return{Span: s.Span, Value: v})
		b.terminate(b.exit)
	case *ast.Throw:
		b.throw(s.Span, s.Value)
	case *ast.ExprStmt:
		switch x := s.X.(type) {
		case *ast.ThrowExpr:
			b.throw(s.Span, x.Value)
		case *ast.Exit:
			b.simple(s)
			b.terminate(b.exit)
		default:
			b.simple(s)
		}
	default:
		b.simple(s)
	}
}

// throw ends the block at Exit. Exceptions are not routed to catch blocks;
// InTry records that an enclosing try could intercept this one.
func (b *builder) throw(span ast.Span, value ast.Expr) {
	v := b.bindExpr(value)
	b.add(&bound.Throw{Span: span, Value: v, InTry: len(b.tries) > 0})
	b.terminate(b.exit)
}

func (b *builder) ifStmt(s *ast.If) {
	end := b.newBlock()
	for i, br := range s.Branches {
		if br.Cond == nil {
			b.stmts(br.Body)
			break
		}
		cond := b.bindExpr(br.Cond)
		then := b.newBlock()
		els := end
		if i < len(s.Branches)-1 {
			els = b.newBlock()
		}
		b.branch(br.Span, cond, then, els, false)
		b.cur = then
		b.stmts(br.Body)
		b.jump(end)
		b.cur = els
	}
	if b.cur != end {
		b.jump(end)
		b.cur = end
	}
}

func (b *builder) whileStmt(s *ast.While) {
	cond := b.newBlock()
	body := b.newBlock()
	end := b.newBlock()

	b.jump(cond)
	b.cur = cond
	c := b.bindExpr(s.Cond)
	b.branch(s.Span, c, body, end, true)

	b.cur = body
	b.loop(end, cond, s.Body)
	b.jump(cond)
	b.cur = end
}

func (b *builder) doWhileStmt(s *ast.DoWhile) {
	body := b.newBlock()
	cond := b.newBlock()
	end := b.newBlock()

	b.jump(body)
	b.cur = body
	b.loop(end, cond, s.Body)
	b.jump(cond)

	b.cur = cond
	c := b.bindExpr(s.Cond)
	b.branch(s.Span, c, body, end, true)
	b.cur = end
}

func (b *builder) forStmt(s *ast.For) {
	for _, x := range s.Init {
		b.exprStmt(x)
	}
	cond := b.newBlock()
	body := b.newBlock()
	var action Block
	if len(s.Action) > 0 {
		action = b.newBlock()
	}
	end := b.newBlock()

	b.jump(cond)
	b.cur = cond
	// Only the last condition expression decides; the others run for
	// their effects.
	var c bound.Expr
	if len(s.Cond) == 0 {
		c = &bound.Literal{Span: s.Span, Value: true}
	}
	for i, x := range s.Cond {
		if i < len(s.Cond)-1 {
			b.exprStmt(x)
			continue
		}
		c = b.bindExpr(x)
	}
	b.branch(s.Span, c, body, end, true)

	next := cond
	if action != nil {
		next = action
	}
	b.cur = body
	b.loop(end, next, s.Body)
	b.jump(next)

	if action != nil {
		b.cur = action
		for _, x := range s.Action {
			b.exprStmt(x)
		}
		b.jump(cond)
	}
	b.cur = end
}

func (b *builder) foreachStmt(s *ast.Foreach) {
	enum := b.bindExpr(s.Enumeree)
	move := b.newBlock()
	body := b.newBlock()
	end := b.newBlock()

	ee := &ForeachEnumereeEdge{Span: s.Span, Enumeree: enum, Target: move, AliasedValues: s.ByRef}
	b.setNext(b.cur, ee)

	b.cur = move
	key := b.bindExpr(s.Key)
	value := b.bindExpr(s.Value)
	b.setNext(b.cur, &ForeachMoveNextEdge{
		Span:     s.Span,
		Enumeree: ee,
		Key:      key,
		Value:    value,
		ByRef:    s.ByRef,
		Body:     body,
		End:      end,
	})

	b.cur = body
	b.loop(end, move, s.Body)
	b.jump(move)
	b.cur = end
}

func (b *builder) loop(brk, cont Block, body []ast.Stmt) {
	b.scopes = append(b.scopes, breakScope{Break: brk, Continue: cont})
	b.stmts(body)
	b.scopes = b.scopes[:len(b.scopes)-1]
}

func (b *builder) switchStmt(s *ast.Switch) {
	scrutBag := b.bindBag(s.Scrutinee)
	values := make([]bound.ExprBag, len(s.Cases))
	effects := 0
	for i, c := range s.Cases {
		if c.Value == nil {
			continue
		}
		values[i] = b.bindBag(c.Value)
		if values[i].HasPre() || bound.HasSideEffects(values[i].Expr) {
			effects++
		}
	}

	b.emitPre(scrutBag.Bag)
	b.collect(scrutBag.Expr)
	scrut := scrutBag.Expr
	// Case values run between comparisons, so a scrutinee they could
	// affect is evaluated once into a temporary.
	if _, constant := bound.Constant(scrut); !constant && effects > 1 {
		b.temps++
		tmp := &bound.Variable{Span: scrut.Pos(), Name: fmt.Sprintf("<switch>%d", b.temps), Temp: true}
		b.add(&bound.ExprStmt{Span: scrut.Pos(), X: &bound.Assign{Span: scrut.Pos(), Op: "=", Target: tmp, Value: scrut}})
		scrut = &bound.Variable{Span: scrut.Pos(), Name: tmp.Name, Temp: true}
	}

	cases := make([]*CaseBlock, 0, len(s.Cases)+1)
	hasDefault := false
	for i, c := range s.Cases {
		var v bound.Expr
		if c.Value != nil {
			b.emitPre(values[i].Bag)
			b.collect(values[i].Expr)
			v = values[i].Expr
		} else {
			hasDefault = true
		}
		cb := &CaseBlock{blockBase: blockBase{span: c.Span}, Value: v}
		b.register(cb)
		cases = append(cases, cb)
	}
	var synth *CaseBlock
	if !hasDefault {
		synth = &CaseBlock{blockBase: blockBase{span: s.Span}, Synthesized: true}
		b.register(synth)
		cases = append(cases, synth)
	}
	end := b.newBlock()
	b.setNext(b.cur, &SwitchEdge{Span: s.Span, Scrutinee: scrut, Cases: cases, Continuation: end})

	b.scopes = append(b.scopes, breakScope{Break: end, Continue: end})
	for i, c := range s.Cases {
		b.cur = cases[i]
		b.stmts(c.Body)
		next := end
		if i < len(s.Cases)-1 {
			next = cases[i+1]
		}
		b.jump(next)
	}
	b.scopes = b.scopes[:len(b.scopes)-1]

	if synth != nil {
		b.cur = synth
		b.jump(end)
	}
	b.cur = end
}

func (b *builder) tryStmt(s *ast.Try) {
	end := b.newBlock()
	body := b.newBlock()
	catches := make([]*CatchBlock, len(s.Catches))
	for i, c := range s.Catches {
		cb := &CatchBlock{blockBase: blockBase{span: c.Span}, Types: c.Types}
		if c.Var != nil {
			cb.Variable = &bound.Variable{Span: c.Var.Span, Name: c.Var.Name}
		}
		b.register(cb)
		catches[i] = cb
	}
	var fin Block
	if s.HasFinally {
		fin = b.newBlock()
	}

	te := &TryCatchEdge{Span: s.Span, Body: body, Catches: catches, Finally: fin, Continuation: end}
	b.setNext(b.cur, te)

	after := end
	if fin != nil {
		after = fin
	}

	b.tries = append(b.tries, te)
	b.cur = body
	b.stmts(s.Body)
	b.leave(after)
	for i, c := range s.Catches {
		b.cur = catches[i]
		b.stmts(c.Body)
		b.leave(after)
	}

	if fin != nil {
		b.cur = fin
		b.stmts(s.Finally)
		b.leave(end)
	}
	b.tries = b.tries[:len(b.tries)-1]
	b.cur = end
}

func (b *builder) gotoStmt(s *ast.Goto) {
	e := b.labels.lookup(s.Label, b.newBlock)
	e.Flags |= LabelUsed
	if !e.Has(LabelDefined) && e.Span.IsZero() {
		e.Span = s.Span
	}
	b.terminate(e.Block)
}

func (b *builder) labelStmt(s *ast.Label) {
	e := b.labels.lookup(s.Name, b.newBlock)
	if e.Has(LabelDefined) {
		e.Flags |= LabelRedefined
		e.Redefinitions = append(e.Redefinitions, s.Span)
		return
	}
	e.Flags |= LabelDefined
	e.Span = s.Span
	e.Block.base().span = s.Span
	b.jump(e.Block)
	b.cur = e.Block
}

// jumpOut lowers break and continue. Misuse is reported and control goes
// to Exit so the graph stays well formed.
func (b *builder) jumpOut(kw string, span ast.Span, level ast.Expr, cont bool) {
	n := 1
	if level != nil {
		if v, ok := levelValue(level); ok && v >= 1 {
			n = v
		} else {
			b.report(span, diag.ErrBreakOperand, kw)
		}
	}
	switch {
	case len(b.scopes) == 0:
		b.report(span, diag.ErrBreakOutOfScope, kw)
		b.terminate(b.exit)
	case n > len(b.scopes):
		b.report(span, diag.ErrBreakLevel, kw, n)
		b.terminate(b.exit)
	default:
		sc := b.scopes[len(b.scopes)-n]
		target := sc.Break
		if cont {
			target = sc.Continue
		}
		b.terminate(target)
	}
}

func levelValue(x ast.Expr) (int, bool) {
	lit, ok := x.(*ast.Literal)
	if !ok || lit.Kind != ast.IntLit {
		return 0, false
	}
	switch v := lit.Value.(type) {
	case int64:
		return int(v), true
	case int:
		return v, true
	}
	return 0, false
}
