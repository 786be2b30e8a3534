// Package parse turns PHP source into the statement trees the graph builder
// consumes. It relies on the tree-sitter PHP grammar and keeps one routine
// per function, method, closure and the global script body.
package parse

import (
	"context"
	"os"
	"sync"

	"github.com/pkg/errors"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/php"

	"github.com/l3aro/phpflow/pkg/ast"
	"github.com/l3aro/phpflow/pkg/diag"
)

// MainRoutine names the global script body of a file.
const MainRoutine = "{main}"

// ErrNoTree is returned when tree-sitter produces no tree at all.
var ErrNoTree = errors.New("parse: no syntax tree")

var parsers = sync.Pool{
	New: func() interface{} {
		p := sitter.NewParser()
		p.SetLanguage(php.GetLanguage())
		return p
	},
}

// ParseFile reads and parses the file at path.
func ParseFile(ctx context.Context, path string, sink diag.Sink) (*ast.File, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	return Parse(ctx, path, src, sink)
}

// Parse converts src into routines. Syntax errors are reported to sink and
// the affected statements are skipped; they never fail the parse.
func Parse(ctx context.Context, path string, src []byte, sink diag.Sink) (*ast.File, error) {
	if sink == nil {
		sink = diag.Discard
	}
	p := parsers.Get().(*sitter.Parser)
	defer parsers.Put(p)

	tree, err := p.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}
	if tree == nil {
		return nil, errors.WithStack(ErrNoTree)
	}
	defer tree.Close()

	c := &converter{src: src, sink: sink, file: &ast.File{Path: path}}
	root := tree.RootNode()
	main := &ast.Routine{Name: MainRoutine, Kind: ast.GlobalCode, Span: c.span(root)}
	c.file.Routines = append(c.file.Routines, main)
	c.routine = main
	main.Body = c.stmtList(root, 0)
	if root.HasError() && c.errors == 0 {
		c.syntaxError(firstError(root))
	}
	return c.file, nil
}

// firstError finds the first error or missing node below n, or n itself.
func firstError(n *sitter.Node) *sitter.Node {
	if n.Type() == "ERROR" || n.IsMissing() {
		return n
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if ch := n.Child(i); ch.HasError() || ch.IsMissing() {
			return firstError(ch)
		}
	}
	return n
}
