package bound

import (
	"fmt"
	"strconv"
	"strings"
)

// String renders a bound statement or expression as PHP-like text.
func String(n Node) string {
	var sb strings.Builder
	switch n := n.(type) {
	case Stmt:
		writeStmt(&sb, n)
	case Expr:
		writeExpr(&sb, n)
	}
	return sb.String()
}

func writeStmt(sb *strings.Builder, s Stmt) {
	switch s := s.(type) {
	case *ExprStmt:
		writeExpr(sb, s.X)
		sb.WriteString(";")
	case *Echo:
		sb.WriteString("echo ")
		writeList(sb, s.Args)
		sb.WriteString(";")
	case *Unset:
		sb.WriteString("unset(")
		writeList(sb, s.Vars)
		sb.WriteString(");")
	case *Global:
		sb.WriteString("global ")
		for i, v := range s.Vars {
			if i > 0 {
				sb.WriteString(", ")
			}
			writeExpr(sb, v)
		}
		sb.WriteString(";")
	case *Static:
		sb.WriteString("static ")
		for i, v := range s.Vars {
			if i > 0 {
				sb.WriteString(", ")
			}
			writeExpr(sb, v.Var)
			if v.Init != nil {
				sb.WriteString(" = ")
				writeExpr(sb, v.Init)
			}
		}
		sb.WriteString(";")
	case *Return:
		sb.WriteString("return")
		if s.Value != nil {
			sb.WriteString(" ")
			writeExpr(sb, s.Value)
		}
		sb.WriteString(";")
	case *Throw:
		sb.WriteString("throw ")
		writeExpr(sb, s.Value)
		sb.WriteString(";")
	case *Empty:
		sb.WriteString(s.Marker)
	default:
		fmt.Fprintf(sb, "<%T>", s)
	}
}

func writeList(sb *strings.Builder, xs []Expr) {
	for i, x := range xs {
		if i > 0 {
			sb.WriteString(", ")
		}
		writeExpr(sb, x)
	}
}

func writeExpr(sb *strings.Builder, x Expr) {
	switch x := x.(type) {
	case nil:
		sb.WriteString("<nil>")
	case *Literal:
		sb.WriteString(literalText(x.Value))
	case *Variable:
		sb.WriteString("$")
		sb.WriteString(x.Name)
	case *Binary:
		writeExpr(sb, x.Left)
		sb.WriteString(" " + x.Op + " ")
		writeExpr(sb, x.Right)
	case *Unary:
		sb.WriteString(x.Op)
		writeExpr(sb, x.Operand)
	case *Assign:
		writeExpr(sb, x.Target)
		sb.WriteString(" " + x.Op + " ")
		if x.ByRef {
			sb.WriteString("&")
		}
		writeExpr(sb, x.Value)
	case *Call:
		if x.Name != "" {
			sb.WriteString(x.Name)
		} else {
			writeExpr(sb, x.Callee)
		}
		sb.WriteString("(")
		writeList(sb, x.Args)
		sb.WriteString(")")
	case *Yield:
		sb.WriteString("yield")
		if x.From {
			sb.WriteString(" from")
		}
		if x.Key != nil {
			sb.WriteString(" ")
			writeExpr(sb, x.Key)
			sb.WriteString(" =>")
		}
		if x.Value != nil {
			sb.WriteString(" ")
			writeExpr(sb, x.Value)
		}
	case *Exit:
		sb.WriteString("exit(")
		if x.Value != nil {
			writeExpr(sb, x.Value)
		}
		sb.WriteString(")")
	case *Opaque:
		if x.Text != "" {
			sb.WriteString(x.Text)
		} else {
			sb.WriteString("<" + x.Kind + ">")
		}
	default:
		fmt.Fprintf(sb, "<%T>", x)
	}
}

func literalText(v interface{}) string {
	switch v := v.(type) {
	case nil:
		return "null"
	case bool:
		if v {
			return "true"
		}
		return "false"
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case string:
		return strconv.Quote(v)
	default:
		return fmt.Sprint(v)
	}
}
