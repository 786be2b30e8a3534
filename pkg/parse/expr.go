package parse

import (
	"fmt"
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/l3aro/phpflow/pkg/ast"
)

// pureKinds are node types whose evaluation has no effect beyond that of
// their children.
var pureKinds = map[string]bool{
	"name":                              true,
	"qualified_name":                    true,
	"subscript_expression":              true,
	"member_access_expression":          true,
	"nullsafe_member_access_expression": true,
	"scoped_property_access_expression": true,
	"class_constant_access_expression":  true,
	"array_creation_expression":         true,
	"array_element_initializer":         true,
	"cast_expression":                   true,
	"conditional_expression":            true,
	"heredoc":                           true,
	"nowdoc":                            true,
	"dynamic_variable_name":             true,
	"list_literal":                      true,
	"string_content":                    true,
	"escape_sequence":                   true,
}

// exprs converts n, flattening comma separated sequences.
func (c *converter) exprs(n *sitter.Node) []ast.Expr {
	if n == nil {
		return nil
	}
	if n.Type() != "sequence_expression" {
		return []ast.Expr{c.expr(n)}
	}
	var out []ast.Expr
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if ch := n.NamedChild(i); ch.Type() != "comment" {
			out = append(out, c.exprs(ch)...)
		}
	}
	return out
}

func (c *converter) expr(n *sitter.Node) ast.Expr {
	if n == nil {
		return nil
	}
	span := c.span(n)
	if n.IsMissing() || n.Type() == "ERROR" {
		c.syntaxError(n)
		return &ast.Raw{Span: span, Kind: "error", Text: c.text(n)}
	}

	switch n.Type() {
	case "parenthesized_expression":
		if inner := c.firstNamed(n); inner != nil {
			return c.expr(inner)
		}

	case "variable_name":
		return &ast.Variable{Span: span, Name: strings.TrimPrefix(c.text(n), "$")}

	case "integer":
		return c.intLit(n)

	case "float":
		raw := c.text(n)
		f, err := strconv.ParseFloat(strings.ReplaceAll(raw, "_", ""), 64)
		if err != nil {
			break
		}
		return &ast.Literal{Span: span, Kind: ast.FloatLit, Value: f, Raw: raw}

	case "boolean":
		raw := c.text(n)
		return &ast.Literal{Span: span, Kind: ast.BoolLit, Value: strings.EqualFold(raw, "true"), Raw: raw}

	case "null":
		return &ast.Literal{Span: span, Kind: ast.NullLit, Raw: c.text(n)}

	case "string", "encapsed_string":
		if x := c.stringLit(n); x != nil {
			return x
		}

	case "binary_expression":
		return &ast.Binary{
			Span:  span,
			Op:    c.operator(n, 1),
			Left:  c.expr(n.ChildByFieldName("left")),
			Right: c.expr(n.ChildByFieldName("right")),
		}

	case "unary_op_expression":
		return &ast.Unary{Span: span, Op: c.operator(n, 0), Operand: c.expr(lastNamed(n))}

	case "update_expression":
		op := "++"
		if strings.Contains(c.text(n), "--") {
			op = "--"
		}
		return &ast.Unary{Span: span, Op: op, Operand: c.expr(c.firstNamed(n))}

	case "assignment_expression":
		return &ast.Assign{
			Span:   span,
			Op:     "=",
			Target: c.expr(n.ChildByFieldName("left")),
			Value:  c.expr(n.ChildByFieldName("right")),
		}

	case "reference_assignment_expression":
		return &ast.Assign{
			Span:   span,
			Op:     "=",
			Target: c.expr(n.ChildByFieldName("left")),
			Value:  c.expr(n.ChildByFieldName("right")),
			ByRef:  true,
		}

	case "augmented_assignment_expression":
		return &ast.Assign{
			Span:   span,
			Op:     c.operator(n, 1),
			Target: c.expr(n.ChildByFieldName("left")),
			Value:  c.expr(n.ChildByFieldName("right")),
		}

	case "function_call_expression":
		return c.call(n)

	case "exit_expression", "exit_statement":
		return &ast.Exit{
			Span:  span,
			Value: c.expr(c.firstNamed(n)),
			Die:   strings.HasPrefix(strings.ToLower(c.text(n)), "die"),
		}

	case "yield_expression":
		return c.yield(n)

	case "throw_expression":
		return &ast.ThrowExpr{Span: span, Value: c.expr(c.firstNamed(n))}

	case "anonymous_function", "anonymous_function_creation_expression", "arrow_function":
		c.closures++
		c.collect(n, fmt.Sprintf("{closure#%d}", c.closures), ast.Closure, n.ChildByFieldName("body"))
		return &ast.Raw{Span: span, Kind: "closure", Text: c.text(n), Pure: true}
	}
	return c.raw(n)
}

// raw keeps n opaque but converts its nested expressions.
func (c *converter) raw(n *sitter.Node) *ast.Raw {
	x := &ast.Raw{Span: c.span(n), Kind: n.Type(), Text: c.text(n), Pure: pureKinds[n.Type()]}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		ch := n.NamedChild(i)
		switch ch.Type() {
		case "comment", "name", "string_content", "escape_sequence":
			continue
		case "arguments":
			x.Children = append(x.Children, c.args(ch)...)
			continue
		}
		x.Children = append(x.Children, c.expr(ch))
	}
	return x
}

// operator returns the text of the operator field, or of the anonymous
// child at index i when the grammar leaves it unlabeled.
func (c *converter) operator(n *sitter.Node, i int) string {
	if op := n.ChildByFieldName("operator"); op != nil {
		return c.text(op)
	}
	if i < int(n.ChildCount()) {
		return c.text(n.Child(i))
	}
	return ""
}

func lastNamed(n *sitter.Node) *sitter.Node {
	for i := int(n.NamedChildCount()) - 1; i >= 0; i-- {
		if ch := n.NamedChild(i); ch.Type() != "comment" {
			return ch
		}
	}
	return nil
}

func (c *converter) intLit(n *sitter.Node) ast.Expr {
	raw := c.text(n)
	digits := strings.ReplaceAll(raw, "_", "")
	// PHP spells legacy octal as 0777 and modern octal as 0o777.
	if len(digits) > 1 && digits[0] == '0' && digits[1] >= '0' && digits[1] <= '9' {
		digits = "0o" + digits[1:]
	}
	v, err := strconv.ParseInt(digits, 0, 64)
	if err != nil {
		// Out of range integers become floats in PHP.
		f, ferr := strconv.ParseFloat(digits, 64)
		if ferr != nil {
			return c.raw(n)
		}
		return &ast.Literal{Span: c.span(n), Kind: ast.FloatLit, Value: f, Raw: raw}
	}
	return &ast.Literal{Span: c.span(n), Kind: ast.IntLit, Value: v, Raw: raw}
}

// stringLit folds a string without interpolation into a literal. It
// returns nil when the string interpolates variables.
func (c *converter) stringLit(n *sitter.Node) ast.Expr {
	raw := c.text(n)
	var sb strings.Builder
	for i := 0; i < int(n.NamedChildCount()); i++ {
		ch := n.NamedChild(i)
		switch ch.Type() {
		case "string_content", "string_value":
			sb.WriteString(c.text(ch))
		case "escape_sequence":
			sb.WriteString(unescape(c.text(ch)))
		default:
			return nil
		}
	}
	if n.NamedChildCount() == 0 && len(raw) >= 2 {
		sb.WriteString(raw[1 : len(raw)-1])
	}
	return &ast.Literal{Span: c.span(n), Kind: ast.StringLit, Value: sb.String(), Raw: raw}
}

func unescape(seq string) string {
	switch seq {
	case `\n`:
		return "\n"
	case `\t`:
		return "\t"
	case `\r`:
		return "\r"
	case `\\`:
		return `\`
	case `\'`:
		return "'"
	case `\"`:
		return `"`
	case `\$`:
		return "$"
	case `\0`:
		return "\x00"
	}
	return seq
}

func (c *converter) call(n *sitter.Node) ast.Expr {
	span := c.span(n)
	fn := n.ChildByFieldName("function")
	args := c.args(n.ChildByFieldName("arguments"))

	x := &ast.Call{Span: span, Args: args}
	if fn == nil {
		return x
	}
	switch fn.Type() {
	case "name", "qualified_name":
		name := strings.TrimPrefix(c.text(fn), `\`)
		switch strings.ToLower(name) {
		case "exit", "die":
			e := &ast.Exit{Span: span, Die: strings.EqualFold(name, "die")}
			if len(args) > 0 {
				e.Value = args[0]
			}
			return e
		}
		x.Name = name
	default:
		x.Callee = c.expr(fn)
	}
	return x
}

func (c *converter) args(n *sitter.Node) []ast.Expr {
	if n == nil {
		return nil
	}
	var out []ast.Expr
	for i := 0; i < int(n.NamedChildCount()); i++ {
		a := n.NamedChild(i)
		switch a.Type() {
		case "comment", "variadic_placeholder":
			continue
		case "argument":
			// Named arguments carry their name first.
			if v := lastNamed(a); v != nil {
				out = append(out, c.expr(v))
			}
			continue
		}
		out = append(out, c.expr(a))
	}
	return out
}

func (c *converter) yield(n *sitter.Node) ast.Expr {
	c.routine.Generator = true
	y := &ast.Yield{Span: c.span(n)}
	for i := 0; i < int(n.ChildCount()); i++ {
		if ch := n.Child(i); !ch.IsNamed() && strings.EqualFold(ch.Type(), "from") {
			y.From = true
		}
	}
	if strings.HasPrefix(strings.ToLower(strings.TrimPrefix(c.text(n), "yield")), " from") {
		y.From = true
	}
	v := c.firstNamed(n)
	if v == nil {
		return y
	}
	if v.Type() == "array_element_initializer" && v.NamedChildCount() == 2 {
		y.Key = c.expr(v.NamedChild(0))
		y.Value = c.expr(v.NamedChild(1))
		return y
	}
	if v.Type() == "array_element_initializer" {
		v = c.firstNamed(v)
	}
	y.Value = c.expr(v)
	return y
}
