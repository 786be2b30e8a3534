package cfg

import (
	"fmt"
	"sort"

	"github.com/l3aro/phpflow/pkg/bound"
)

// BlockType represents the type of a CFG block.
type BlockType string

const (
	BlockTypeEntry BlockType = "entry" // Routine entry point
	BlockTypeExit  BlockType = "exit"  // Routine exit point
	BlockTypePlain BlockType = "plain" // Regular statements
	BlockTypeCatch BlockType = "catch" // Catch clause head
	BlockTypeCase  BlockType = "case"  // Switch arm head
)

// EdgeType represents the type of a CFG edge.
type EdgeType string

const (
	EdgeTypeUnconditional EdgeType = "unconditional" // Unconditional jump
	EdgeTypeLeave         EdgeType = "leave"         // Jump out of a try region
	EdgeTypeTrue          EdgeType = "true"          // True branch of conditional
	EdgeTypeFalse         EdgeType = "false"         // False branch of conditional
	EdgeTypeTry           EdgeType = "try"           // Into a try body
	EdgeTypeCatch         EdgeType = "catch"         // Into a catch clause
	EdgeTypeFinally       EdgeType = "finally"       // Into a finally clause
	EdgeTypeEnumerate     EdgeType = "enumerate"     // Foreach iterator setup
	EdgeTypeMoveNext      EdgeType = "move_next"     // Foreach next element
	EdgeTypeLoopExit      EdgeType = "loop_exit"     // Foreach after the last element
	EdgeTypeCase          EdgeType = "case"          // Switch dispatch
)

// CFGBlock represents a basic block in the Control Flow Graph.
type CFGBlock struct {
	ID           string    `json:"id" yaml:"id" msgpack:"id"`                               // Unique identifier for the block
	Type         BlockType `json:"type" yaml:"type" msgpack:"type"`                         // Type of block
	Ordinal      int       `json:"ordinal" yaml:"ordinal" msgpack:"ordinal"`                // Creation ordinal, -1 when dead
	StartLine    int       `json:"start_line" yaml:"start_line" msgpack:"start_line"`       // Starting line number in source
	EndLine      int       `json:"end_line" yaml:"end_line" msgpack:"end_line"`             // Ending line number in source
	Statements   []string  `json:"statements" yaml:"statements" msgpack:"statements"`       // Statements in this block
	Predecessors []string  `json:"predecessors" yaml:"predecessors" msgpack:"predecessors"` // IDs of blocks that can precede this block
	Label        string    `json:"label,omitempty" yaml:"label,omitempty" msgpack:"label,omitempty"`
}

// CFGEdge represents a directed edge between two CFG blocks.
type CFGEdge struct {
	SourceID  string   `json:"source_id" yaml:"source_id" msgpack:"source_id"`                               // ID of the source block
	TargetID  string   `json:"target_id" yaml:"target_id" msgpack:"target_id"`                               // ID of the target block
	EdgeType  EdgeType `json:"edge_type" yaml:"edge_type" msgpack:"edge_type"`                               // Type of edge
	Condition string   `json:"condition,omitempty" yaml:"condition,omitempty" msgpack:"condition,omitempty"` // Expression the edge evaluates
	Loop      bool     `json:"loop,omitempty" yaml:"loop,omitempty" msgpack:"loop,omitempty"`                // Loop header condition
}

// CFGInfo represents the complete Control Flow Graph for a routine.
type CFGInfo struct {
	FunctionName         string              `json:"function_name" yaml:"function_name" msgpack:"function_name"`
	Blocks               map[string]CFGBlock `json:"blocks" yaml:"blocks" msgpack:"blocks"`
	Edges                []CFGEdge           `json:"edges" yaml:"edges" msgpack:"edges"`
	EntryBlockID         string              `json:"entry_block_id" yaml:"entry_block_id" msgpack:"entry_block_id"`
	ExitBlockIDs         []string            `json:"exit_block_ids" yaml:"exit_block_ids" msgpack:"exit_block_ids"`
	CyclomaticComplexity int                 `json:"cyclomatic_complexity" yaml:"cyclomatic_complexity" msgpack:"cyclomatic_complexity"`
	Unreachable          []string            `json:"unreachable,omitempty" yaml:"unreachable,omitempty" msgpack:"unreachable,omitempty"`
	Labels               map[string]string   `json:"labels,omitempty" yaml:"labels,omitempty" msgpack:"labels,omitempty"`
	Yields               int                 `json:"yields,omitempty" yaml:"yields,omitempty" msgpack:"yields,omitempty"`
}

// Export flattens g into its serialisable view. Reachable blocks are named
// block_<ordinal>; unreachable ones dead_<n> in the order they were listed.
func Export(g *Graph) *CFGInfo {
	info := &CFGInfo{
		FunctionName:         g.Routine,
		Blocks:               make(map[string]CFGBlock),
		CyclomaticComplexity: Complexity(g),
		Yields:               len(g.Yields),
	}

	ids := make(map[Block]string)
	reachable := g.Blocks()
	for _, b := range reachable {
		ids[b] = fmt.Sprintf("block_%d", b.Ordinal())
	}
	for i, b := range g.Unreachable {
		if _, ok := ids[b]; !ok {
			ids[b] = fmt.Sprintf("dead_%d", i)
		}
	}

	all := append(append([]Block(nil), reachable...), g.Unreachable...)
	preds := make(map[string][]string)
	for _, b := range all {
		id := ids[b]
		if _, dup := info.Blocks[id]; dup {
			continue
		}
		if b.Next() != nil {
			for _, e := range exportEdges(id, b.Next(), ids) {
				info.Edges = append(info.Edges, e)
				preds[e.TargetID] = append(preds[e.TargetID], id)
			}
		}
		info.Blocks[id] = exportBlock(id, b)
	}
	for id, p := range preds {
		if blk, ok := info.Blocks[id]; ok {
			blk.Predecessors = dedupe(p)
			info.Blocks[id] = blk
		}
	}

	info.EntryBlockID = ids[g.Start]
	if id, ok := ids[g.Exit]; ok {
		info.ExitBlockIDs = []string{id}
	}
	for _, b := range g.Unreachable {
		info.Unreachable = append(info.Unreachable, ids[b])
	}
	if g.Labels != nil && g.Labels.Len() > 0 {
		info.Labels = make(map[string]string, g.Labels.Len())
		for _, e := range g.Labels.Entries() {
			if id, ok := ids[e.Block]; ok {
				info.Labels[e.Name] = id
				if blk, ok := info.Blocks[id]; ok {
					blk.Label = e.Name
					info.Blocks[id] = blk
				}
			}
		}
	}
	return info
}

func exportBlock(id string, b Block) CFGBlock {
	blk := CFGBlock{
		ID:           id,
		Ordinal:      b.Ordinal(),
		StartLine:    b.Span().StartLine,
		EndLine:      b.Span().EndLine,
		Statements:   []string{},
		Predecessors: []string{},
	}
	switch b := b.(type) {
	case *StartBlock:
		blk.Type = BlockTypeEntry
	case *ExitBlock:
		blk.Type = BlockTypeExit
	case *CatchBlock:
		blk.Type = BlockTypeCatch
		if b.Variable != nil {
			blk.Statements = append(blk.Statements, fmt.Sprintf("catch (%v $%s)", b.Types, b.Variable.Name))
		} else {
			blk.Statements = append(blk.Statements, fmt.Sprintf("catch (%v)", b.Types))
		}
	case *CaseBlock:
		blk.Type = BlockTypeCase
		if b.IsDefault() {
			blk.Statements = append(blk.Statements, "default:")
		} else {
			blk.Statements = append(blk.Statements, "case "+bound.String(b.Value)+":")
		}
	default:
		blk.Type = BlockTypePlain
	}
	for _, s := range b.Stmts() {
		blk.Statements = append(blk.Statements, bound.String(s))
	}
	return blk
}

func exportEdges(from string, e Edge, ids map[Block]string) []CFGEdge {
	edge := func(to Block, t EdgeType, cond bound.Expr) CFGEdge {
		ce := CFGEdge{SourceID: from, TargetID: ids[to], EdgeType: t}
		if cond != nil {
			ce.Condition = bound.String(cond)
		}
		return ce
	}
	switch e := e.(type) {
	case *SimpleEdge:
		t := EdgeTypeUnconditional
		if e.Leave {
			t = EdgeTypeLeave
		}
		return []CFGEdge{edge(e.Target, t, nil)}
	case *ConditionalEdge:
		tr, fl := edge(e.True, EdgeTypeTrue, e.Cond), edge(e.False, EdgeTypeFalse, e.Cond)
		tr.Loop, fl.Loop = e.IsLoop, e.IsLoop
		return []CFGEdge{tr, fl}
	case *TryCatchEdge:
		out := []CFGEdge{edge(e.Body, EdgeTypeTry, nil)}
		for _, c := range e.Catches {
			out = append(out, edge(c, EdgeTypeCatch, nil))
		}
		if e.Finally != nil {
			out = append(out, edge(e.Finally, EdgeTypeFinally, nil))
		}
		return out
	case *ForeachEnumereeEdge:
		return []CFGEdge{edge(e.Target, EdgeTypeEnumerate, e.Enumeree)}
	case *ForeachMoveNextEdge:
		return []CFGEdge{edge(e.Body, EdgeTypeMoveNext, e.Value), edge(e.End, EdgeTypeLoopExit, nil)}
	case *SwitchEdge:
		out := make([]CFGEdge, 0, len(e.Cases))
		for _, c := range e.Cases {
			out = append(out, edge(c, EdgeTypeCase, e.Scrutinee))
		}
		return out
	}
	return nil
}

func dedupe(ids []string) []string {
	sort.Strings(ids)
	out := ids[:0]
	for i, id := range ids {
		if i == 0 || id != ids[i-1] {
			out = append(out, id)
		}
	}
	return out
}
