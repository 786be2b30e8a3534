package commands

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/l3aro/phpflow/internal/driver"
	"github.com/l3aro/phpflow/pkg/cfg"
	"github.com/l3aro/phpflow/pkg/diag"
)

var (
	bold    = color.New(color.Bold).SprintFunc()
	faint   = color.New(color.Faint).SprintFunc()
	errorC  = color.New(color.FgRed, color.Bold).SprintFunc()
	warnC   = color.New(color.FgYellow).SprintFunc()
	infoC   = color.New(color.FgCyan).SprintFunc()
	blockC  = color.New(color.FgGreen).SprintFunc()
	deadC   = color.New(color.FgHiBlack).SprintFunc()
	edgeC   = color.New(color.FgMagenta).SprintFunc()
	summary = color.New(color.Bold).SprintfFunc()
)

func severity(s diag.Severity) string {
	switch {
	case s >= diag.SeverityError:
		return errorC(s.String())
	case s == diag.SeverityWarning:
		return warnC(s.String())
	default:
		return infoC(s.String())
	}
}

// printDiagnostic writes d in the path:line:col form editors understand.
func printDiagnostic(w io.Writer, path string, d diag.Diagnostic) {
	fmt.Fprintf(w, "%s:%d:%d: %s %s: %s %s\n",
		bold(path), d.Span.StartLine, d.Span.StartCol,
		severity(d.Severity), d.Code, d.Message, faint("(in "+d.Routine+")"))
}

// blockOrder sorts live blocks by ordinal, then dead blocks by index.
func blockOrder(info *cfg.CFGInfo) []string {
	ids := make([]string, 0, len(info.Blocks))
	for id := range info.Blocks {
		ids = append(ids, id)
	}
	key := func(id string) (bool, int) {
		dead := strings.HasPrefix(id, "dead_")
		n, _ := strconv.Atoi(id[strings.LastIndexByte(id, '_')+1:])
		return dead, n
	}
	sort.Slice(ids, func(i, j int) bool {
		di, ni := key(ids[i])
		dj, nj := key(ids[j])
		if di != dj {
			return !di
		}
		return ni < nj
	})
	return ids
}

// printGraph prints a routine's graph in human-readable form.
func printGraph(w io.Writer, r driver.RoutineResult) {
	fmt.Fprintf(w, "=== CFG for %s %s ===\n", r.Kind, bold(r.Name))
	if r.Err != "" {
		fmt.Fprintf(w, "%s %s\n\n", errorC("build failed:"), r.Err)
		return
	}
	info := r.Graph
	fmt.Fprintf(w, "Cyclomatic Complexity: %d\n", info.CyclomaticComplexity)
	fmt.Fprintf(w, "Entry Block: %s\n", info.EntryBlockID)
	fmt.Fprintf(w, "Exit Blocks: %s\n", strings.Join(info.ExitBlockIDs, ", "))
	if info.Yields > 0 {
		fmt.Fprintf(w, "Yields: %d\n", info.Yields)
	}
	if len(info.Labels) > 0 {
		names := make([]string, 0, len(info.Labels))
		for name := range info.Labels {
			names = append(names, name)
		}
		sort.Strings(names)
		parts := make([]string, len(names))
		for i, name := range names {
			parts[i] = name + "=" + info.Labels[name]
		}
		fmt.Fprintf(w, "Labels: %s\n", strings.Join(parts, ", "))
	}

	fmt.Fprintf(w, "\nBlocks (%d):\n", len(info.Blocks))
	for _, id := range blockOrder(info) {
		block := info.Blocks[id]
		name := blockC(id)
		if strings.HasPrefix(id, "dead_") {
			name = deadC(id + " (unreachable)")
		}
		fmt.Fprintf(w, "  %s %s\n", name, faint(fmt.Sprintf("(%s, lines %d-%d)", block.Type, block.StartLine, block.EndLine)))
		for _, stmt := range block.Statements {
			fmt.Fprintf(w, "    %s\n", stmt)
		}
	}

	fmt.Fprintf(w, "\nEdges (%d):\n", len(info.Edges))
	for _, edge := range info.Edges {
		label := string(edge.EdgeType)
		if edge.Condition != "" {
			label += " " + edge.Condition
		}
		fmt.Fprintf(w, "  %s --%s--> %s\n", edge.SourceID, edgeC(label), edge.TargetID)
	}
	fmt.Fprintln(w)
}
