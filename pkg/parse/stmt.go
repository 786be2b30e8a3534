package parse

import (
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/l3aro/phpflow/pkg/ast"
	"github.com/l3aro/phpflow/pkg/diag"
)

type converter struct {
	src      []byte
	sink     diag.Sink
	file     *ast.File
	routine  *ast.Routine
	closures int
	errors   int
}

func (c *converter) text(n *sitter.Node) string {
	return n.Content(c.src)
}

func (c *converter) span(n *sitter.Node) ast.Span {
	sp, ep := n.StartPoint(), n.EndPoint()
	return ast.Span{
		StartLine: int(sp.Row) + 1,
		StartCol:  int(sp.Column) + 1,
		EndLine:   int(ep.Row) + 1,
		EndCol:    int(ep.Column) + 1,
	}
}

func (c *converter) syntaxError(n *sitter.Node) {
	snippet := strings.TrimSpace(c.text(n))
	if len(snippet) > 24 {
		snippet = snippet[:24] + "..."
	}
	c.errors++
	c.sink.Report(c.routine.Name, c.span(n), diag.ErrSyntax, snippet)
}

func sameNode(a, b *sitter.Node) bool {
	return a != nil && b != nil && a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte() && a.Type() == b.Type()
}

// stmtList converts the named children of n from index from on.
func (c *converter) stmtList(n *sitter.Node, from int) []ast.Stmt {
	var out []ast.Stmt
	for i := from; i < int(n.NamedChildCount()); i++ {
		out = c.appendStmt(out, n.NamedChild(i))
	}
	return out
}

// body converts the body of a control statement. Brace bodies keep their
// block; alternative syntax bodies are flattened.
func (c *converter) body(n *sitter.Node) []ast.Stmt {
	if n == nil {
		return nil
	}
	if n.Type() == "colon_block" {
		return c.stmtList(n, 0)
	}
	return c.appendStmt(nil, n)
}

func (c *converter) appendStmt(out []ast.Stmt, n *sitter.Node) []ast.Stmt {
	if n == nil {
		return out
	}
	if n.IsMissing() || n.Type() == "ERROR" {
		c.syntaxError(n)
		return out
	}
	span := c.span(n)

	switch n.Type() {
	case "comment", "php_tag":
		return out

	case "compound_statement":
		blk := &ast.Block{Span: span, Stmts: c.stmtList(n, 0)}
		if cnt := int(n.ChildCount()); cnt > 0 {
			blk.Open = c.span(n.Child(0))
			blk.Close = c.span(n.Child(cnt - 1))
		}
		return append(out, blk)

	case "colon_block":
		return append(out, c.stmtList(n, 0)...)

	case "expression_statement":
		if n.NamedChildCount() == 0 {
			return append(out, &ast.Empty{Span: span})
		}
		return append(out, &ast.ExprStmt{Span: span, X: c.expr(n.NamedChild(0))})

	case "echo_statement":
		var args []ast.Expr
		for i := 0; i < int(n.NamedChildCount()); i++ {
			args = append(args, c.exprs(n.NamedChild(i))...)
		}
		return append(out, &ast.Echo{Span: span, Args: args})

	case "unset_statement":
		var vars []ast.Expr
		for i := 0; i < int(n.NamedChildCount()); i++ {
			if ch := n.NamedChild(i); ch.Type() != "comment" {
				vars = append(vars, c.expr(ch))
			}
		}
		return append(out, &ast.Unset{Span: span, Vars: vars})

	case "global_declaration":
		g := &ast.Global{Span: span}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			if v, ok := c.expr(n.NamedChild(i)).(*ast.Variable); ok {
				g.Vars = append(g.Vars, v)
			}
		}
		return append(out, g)

	case "function_static_declaration":
		st := &ast.Static{Span: span}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			decl := n.NamedChild(i)
			if decl.Type() != "static_variable_declaration" {
				continue
			}
			v, ok := c.expr(decl.ChildByFieldName("name")).(*ast.Variable)
			if !ok {
				continue
			}
			st.Vars = append(st.Vars, ast.StaticVar{Var: v, Init: c.expr(decl.ChildByFieldName("value"))})
		}
		return append(out, st)

	case "if_statement":
		return append(out, c.ifStmt(n))

	case "while_statement":
		return append(out, &ast.While{
			Span: span,
			Cond: c.expr(n.ChildByFieldName("condition")),
			Body: c.body(n.ChildByFieldName("body")),
		})

	case "do_statement":
		return append(out, &ast.DoWhile{
			Span: span,
			Body: c.body(n.ChildByFieldName("body")),
			Cond: c.expr(n.ChildByFieldName("condition")),
		})

	case "for_statement":
		return append(out, c.forStmt(n))

	case "foreach_statement":
		return append(out, c.foreachStmt(n))

	case "switch_statement":
		return append(out, c.switchStmt(n))

	case "try_statement":
		return append(out, c.tryStmt(n))

	case "goto_statement":
		return append(out, &ast.Goto{Span: span, Label: c.firstNamedText(n, "name")})

	case "named_label_statement":
		return append(out, &ast.Label{Span: span, Name: c.firstNamedText(n, "name")})

	case "break_statement":
		return append(out, &ast.Break{Span: span, Level: c.expr(c.firstNamed(n))})

	case "continue_statement":
		return append(out, &ast.Continue{Span: span, Level: c.expr(c.firstNamed(n))})

	case "return_statement":
		return append(out, &ast.Return{Span: span, Value: c.expr(c.firstNamed(n))})

	case "throw_statement":
		return append(out, &ast.Throw{Span: span, Value: c.expr(c.firstNamed(n))})

	case "exit_statement":
		return append(out, &ast.ExprStmt{Span: span, X: &ast.Exit{
			Span:  span,
			Value: c.expr(c.firstNamed(n)),
			Die:   strings.HasPrefix(strings.ToLower(c.text(n)), "die"),
		}})

	case "empty_statement":
		return append(out, &ast.Empty{Span: span})

	case "text_interpolation":
		var sb strings.Builder
		for i := 0; i < int(n.NamedChildCount()); i++ {
			if ch := n.NamedChild(i); ch.Type() == "text" {
				sb.WriteString(c.text(ch))
			}
		}
		if sb.Len() == 0 {
			return out
		}
		return append(out, &ast.Echo{Span: span, Args: []ast.Expr{
			&ast.Literal{Span: span, Kind: ast.StringLit, Value: sb.String(), Raw: sb.String()},
		}})

	case "function_definition":
		name := c.text(n.ChildByFieldName("name"))
		c.collect(n, name, ast.Function, n.ChildByFieldName("body"))
		return append(out, &ast.Declaration{Span: span, Kind: "function", Name: name})

	case "class_declaration", "interface_declaration", "trait_declaration", "enum_declaration":
		name := ""
		if nn := n.ChildByFieldName("name"); nn != nil {
			name = c.text(nn)
		}
		c.collectMethods(name, n.ChildByFieldName("body"))
		return append(out, &ast.Declaration{Span: span, Kind: strings.TrimSuffix(n.Type(), "_declaration"), Name: name})

	case "namespace_definition":
		if b := n.ChildByFieldName("body"); b != nil {
			return append(out, c.stmtList(b, 0)...)
		}
		return append(out, &ast.Declaration{Span: span, Kind: "namespace", Name: c.firstNamedText(n, "namespace_name")})

	case "namespace_use_declaration", "const_declaration", "declare_statement":
		return append(out, &ast.Declaration{Span: span, Kind: n.Type()})
	}

	if strings.HasSuffix(n.Type(), "_statement") || strings.HasSuffix(n.Type(), "_declaration") {
		return append(out, &ast.Declaration{Span: span, Kind: n.Type()})
	}
	// Bare expressions show up when the statement terminator is missing.
	return append(out, &ast.ExprStmt{Span: span, X: c.expr(n)})
}

func (c *converter) firstNamed(n *sitter.Node) *sitter.Node {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if ch := n.NamedChild(i); ch.Type() != "comment" {
			return ch
		}
	}
	return nil
}

func (c *converter) firstNamedText(n *sitter.Node, typ string) string {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if ch := n.NamedChild(i); ch.Type() == typ {
			return c.text(ch)
		}
	}
	return ""
}

func (c *converter) ifStmt(n *sitter.Node) *ast.If {
	s := &ast.If{Span: c.span(n)}
	s.Branches = append(s.Branches, ast.IfBranch{
		Span: c.span(n),
		Cond: c.expr(n.ChildByFieldName("condition")),
		Body: c.body(n.ChildByFieldName("body")),
	})
	for i := 0; i < int(n.NamedChildCount()); i++ {
		ch := n.NamedChild(i)
		switch ch.Type() {
		case "else_if_clause":
			s.Branches = append(s.Branches, ast.IfBranch{
				Span: c.span(ch),
				Cond: c.expr(ch.ChildByFieldName("condition")),
				Body: c.body(ch.ChildByFieldName("body")),
			})
		case "else_clause":
			s.Branches = append(s.Branches, ast.IfBranch{
				Span: c.span(ch),
				Body: c.body(ch.ChildByFieldName("body")),
			})
		}
	}
	return s
}

// forStmt splits the header on its semicolons so it works whether or not
// the grammar labels the three clauses.
func (c *converter) forStmt(n *sitter.Node) *ast.For {
	s := &ast.For{Span: c.span(n)}
	body := n.ChildByFieldName("body")
	part := -1
	for i := 0; i < int(n.ChildCount()); i++ {
		ch := n.Child(i)
		if !ch.IsNamed() {
			switch ch.Type() {
			case "(":
				if part < 0 {
					part = 0
				}
			case ";":
				if part >= 0 && part < 3 {
					part++
				}
			case ")":
				part = 3
			}
			continue
		}
		if ch.Type() == "comment" {
			continue
		}
		switch part {
		case 0:
			s.Init = append(s.Init, c.exprs(ch)...)
		case 1:
			s.Cond = append(s.Cond, c.exprs(ch)...)
		case 2:
			s.Action = append(s.Action, c.exprs(ch)...)
		default:
			if sameNode(ch, body) {
				s.Body = append(s.Body, c.body(ch)...)
			} else {
				s.Body = c.appendStmt(s.Body, ch)
			}
		}
	}
	return s
}

func (c *converter) foreachStmt(n *sitter.Node) *ast.Foreach {
	s := &ast.Foreach{Span: c.span(n)}
	body := n.ChildByFieldName("body")
	seen := 0
	for i := 0; i < int(n.NamedChildCount()); i++ {
		ch := n.NamedChild(i)
		if ch.Type() == "comment" {
			continue
		}
		if sameNode(ch, body) {
			s.Body = c.body(ch)
			continue
		}
		switch seen {
		case 0:
			s.Enumeree = c.expr(ch)
		case 1:
			if ch.Type() == "pair" {
				s.Key = c.expr(c.firstNamed(ch))
				s.Value, s.ByRef = c.foreachValue(ch.NamedChild(int(ch.NamedChildCount()) - 1))
			} else {
				s.Value, s.ByRef = c.foreachValue(ch)
			}
		default:
			s.Body = c.appendStmt(s.Body, ch)
		}
		seen++
	}
	return s
}

func (c *converter) foreachValue(n *sitter.Node) (ast.Expr, bool) {
	if n != nil && n.Type() == "by_ref" {
		return c.expr(c.firstNamed(n)), true
	}
	return c.expr(n), false
}

func (c *converter) switchStmt(n *sitter.Node) *ast.Switch {
	s := &ast.Switch{Span: c.span(n), Scrutinee: c.expr(n.ChildByFieldName("condition"))}
	block := n.ChildByFieldName("body")
	if block == nil {
		return s
	}
	for i := 0; i < int(block.NamedChildCount()); i++ {
		ch := block.NamedChild(i)
		switch ch.Type() {
		case "case_statement":
			value := ch.ChildByFieldName("value")
			sc := ast.SwitchCase{Span: c.span(ch), Value: c.expr(value)}
			for j := 0; j < int(ch.NamedChildCount()); j++ {
				if st := ch.NamedChild(j); !sameNode(st, value) {
					sc.Body = c.appendStmt(sc.Body, st)
				}
			}
			s.Cases = append(s.Cases, sc)
		case "default_statement":
			s.Cases = append(s.Cases, ast.SwitchCase{Span: c.span(ch), Body: c.stmtList(ch, 0)})
		}
	}
	return s
}

func (c *converter) tryStmt(n *sitter.Node) *ast.Try {
	s := &ast.Try{Span: c.span(n), Body: c.blockBody(n.ChildByFieldName("body"))}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		ch := n.NamedChild(i)
		switch ch.Type() {
		case "catch_clause":
			cc := ast.Catch{Span: c.span(ch), Body: c.blockBody(ch.ChildByFieldName("body"))}
			if types := ch.ChildByFieldName("type"); types != nil {
				if types.NamedChildCount() == 0 {
					cc.Types = append(cc.Types, c.text(types))
				}
				for j := 0; j < int(types.NamedChildCount()); j++ {
					cc.Types = append(cc.Types, c.text(types.NamedChild(j)))
				}
			}
			if v, ok := c.expr(ch.ChildByFieldName("name")).(*ast.Variable); ok {
				cc.Var = v
			}
			s.Catches = append(s.Catches, cc)
		case "finally_clause":
			s.HasFinally = true
			s.Finally = c.blockBody(ch.ChildByFieldName("body"))
		}
	}
	return s
}

// blockBody converts a compound statement into its inner statements.
func (c *converter) blockBody(n *sitter.Node) []ast.Stmt {
	if n == nil {
		return nil
	}
	if n.Type() != "compound_statement" {
		return c.appendStmt(nil, n)
	}
	return c.stmtList(n, 0)
}

// collect registers a nested routine and converts its body with it as the
// current routine.
func (c *converter) collect(n *sitter.Node, name string, kind ast.RoutineKind, body *sitter.Node) *ast.Routine {
	r := &ast.Routine{Name: name, Kind: kind, Span: c.span(n)}
	c.file.Routines = append(c.file.Routines, r)
	saved := c.routine
	c.routine = r
	defer func() { c.routine = saved }()

	switch {
	case body == nil:
	case body.Type() == "compound_statement":
		r.Body = c.stmtList(body, 0)
	default:
		// Arrow functions return their expression.
		r.Body = []ast.Stmt{&ast.Return{Span: c.span(body), Value: c.expr(body)}}
	}
	return r
}

func (c *converter) collectMethods(class string, body *sitter.Node) {
	if body == nil {
		return
	}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		m := body.NamedChild(i)
		if m.Type() != "method_declaration" {
			continue
		}
		mb := m.ChildByFieldName("body")
		if mb == nil {
			continue
		}
		name := c.text(m.ChildByFieldName("name"))
		c.collect(m, fmt.Sprintf("%s::%s", class, name), ast.Method, mb)
	}
}
