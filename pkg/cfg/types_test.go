package cfg

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"

	"github.com/l3aro/phpflow/pkg/ast"
)

func TestExportIfElse(t *testing.T) {
	g, _ := build(t, ifElse())
	info := Export(g)

	assert.Equal(t, "f", info.FunctionName)
	assert.Equal(t, "block_0", info.EntryBlockID)
	assert.Equal(t, []string{"block_1"}, info.ExitBlockIDs)
	assert.Equal(t, 2, info.CyclomaticComplexity)
	assert.Len(t, info.Blocks, 6)
	assert.Empty(t, info.Unreachable)

	assert.Equal(t, BlockTypeEntry, info.Blocks["block_0"].Type)
	assert.Equal(t, BlockTypeExit, info.Blocks["block_1"].Type)
	assert.Equal(t, []string{"block_4", "block_5"}, info.Blocks["block_3"].Predecessors)

	var kinds []EdgeType
	for _, e := range info.Edges {
		if e.SourceID == "block_2" {
			kinds = append(kinds, e.EdgeType)
			assert.Equal(t, "$a", e.Condition)
		}
	}
	assert.Equal(t, []EdgeType{EdgeTypeTrue, EdgeTypeFalse}, kinds)
}

func TestExportNamesDeadBlocks(t *testing.T) {
	g, _ := build(t, function(&ast.Return{}, do("never")))
	info := Export(g)

	require.Equal(t, []string{"dead_0"}, info.Unreachable)
	dead := info.Blocks["dead_0"]
	assert.Equal(t, DeadOrdinal, dead.Ordinal)
	assert.Contains(t, dead.Statements, "never();")
}

func TestExportSwitchAndLabels(t *testing.T) {
	g, _ := build(t, function(
		&ast.Label{Name: "again"},
		&ast.Switch{Scrutinee: variable("x"), Cases: []ast.SwitchCase{{Value: intLit(1)}}},
	))
	info := Export(g)

	require.Contains(t, info.Labels, "again")
	assert.Equal(t, "again", info.Blocks[info.Labels["again"]].Label)

	var cases int
	for _, e := range info.Edges {
		if e.EdgeType == EdgeTypeCase {
			cases++
		}
	}
	assert.Equal(t, 2, cases)
}

func TestEncodeFormats(t *testing.T) {
	g, _ := build(t, ifElse())
	info := Export(g)

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Encode(&buf, info, FormatJSON))
		var back CFGInfo
		require.NoError(t, json.Unmarshal(buf.Bytes(), &back))
		assert.Equal(t, info.EntryBlockID, back.EntryBlockID)
		assert.Len(t, back.Edges, len(info.Edges))
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Encode(&buf, info, FormatYAML))
		assert.Contains(t, buf.String(), "function_name: f")
		var back CFGInfo
		require.NoError(t, yaml.Unmarshal(buf.Bytes(), &back))
		assert.Equal(t, info.CyclomaticComplexity, back.CyclomaticComplexity)
	})

	t.Run("msgpack", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Encode(&buf, info, FormatMsgpack))
		var back CFGInfo
		require.NoError(t, msgpack.Unmarshal(buf.Bytes(), &back))
		assert.Equal(t, len(info.Blocks), len(back.Blocks))
	})

	t.Run("unknown", func(t *testing.T) {
		assert.Error(t, Encode(&bytes.Buffer{}, info, "xml"))
	})
}
