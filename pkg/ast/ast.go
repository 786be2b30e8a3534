// Package ast defines the parsed statement and expression nodes of one PHP
// routine body. The nodes are produced by the front end (see package parse)
// and consumed by the control flow graph builder as an ordered statement list.
package ast

import "fmt"

// Span locates a node in its source file. Lines and columns are 1-based.
type Span struct {
	StartLine int `json:"start_line"`
	StartCol  int `json:"start_col"`
	EndLine   int `json:"end_line"`
	EndCol    int `json:"end_col"`
}

func (s Span) String() string {
	return fmt.Sprintf("%d:%d-%d:%d", s.StartLine, s.StartCol, s.EndLine, s.EndCol)
}

// IsZero reports whether the span carries no position.
func (s Span) IsZero() bool {
	return s == Span{}
}

// Node is implemented by every statement and expression.
type Node interface {
	Pos() Span
}

// Stmt is a statement node.
type Stmt interface {
	Node
	stmtNode()
}

// Expr is an expression node.
type Expr interface {
	Node
	exprNode()
}

// RoutineKind distinguishes the global script body from declared routines.
type RoutineKind int

const (
	GlobalCode RoutineKind = iota
	Function
	Method
	Closure
)

func (k RoutineKind) String() string {
	switch k {
	case GlobalCode:
		return "global"
	case Function:
		return "function"
	case Method:
		return "method"
	case Closure:
		return "closure"
	default:
		return "unknown"
	}
}

// Routine is one unit the graph builder works on.
type Routine struct {
	Name string
	Kind RoutineKind
	Span Span
	Body []Stmt
	// Generator is set when the body contains a yield.
	Generator bool
}

// IsGlobal reports whether r is the script body of a file.
func (r *Routine) IsGlobal() bool {
	return r.Kind == GlobalCode
}

// File is the parsed form of one source file.
type File struct {
	Path     string
	Routines []*Routine
}

// Routine returns the routine with the given name, or nil.
func (f *File) Routine(name string) *Routine {
	for _, r := range f.Routines {
		if r.Name == name {
			return r
		}
	}
	return nil
}
