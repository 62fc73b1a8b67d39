package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icl-lang/iclc/core/graph"
	"github.com/icl-lang/iclc/core/ir"
	"github.com/icl-lang/iclc/core/lexer"
	"github.com/icl-lang/iclc/core/parser"
	"github.com/icl-lang/iclc/core/sema"
)

func buildGraphFor(t *testing.T, src string) *graph.Graph {
	t.Helper()
	toks, err := lexer.Lex("<t>", src)
	require.NoError(t, err)
	prog, err := parser.Parse(toks)
	require.NoError(t, err)
	types, err := sema.Analyze(prog)
	require.NoError(t, err)
	mod, _ := ir.Build(prog, types)
	return graph.Build(mod)
}

func TestDiffIdenticalGraphsIsEmpty(t *testing.T) {
	g := buildGraphFor(t, `x := 1 + 2;`)
	result := Diff(g, g)
	assert.Empty(t, result.Nodes)
	assert.Empty(t, result.Edges)
}

func TestDiffDetectsChangedNodeAttrs(t *testing.T) {
	before := buildGraphFor(t, `x := 1 + 2;`)
	after := buildGraphFor(t, `x := 1 - 2;`)
	result := Diff(before, after)
	var sawChanged bool
	for _, n := range result.Nodes {
		if n.Kind == ChangeChanged {
			sawChanged = true
			assert.Equal(t, "-", n.After.Attrs["op"])
		}
	}
	assert.True(t, sawChanged)
}

func TestDiffDetectsAddedNodesForLongerProgram(t *testing.T) {
	before := buildGraphFor(t, `x := 1;`)
	after := buildGraphFor(t, `x := 1; y := 2;`)
	result := Diff(before, after)
	var sawAdded bool
	for _, n := range result.Nodes {
		if n.Kind == ChangeAdded {
			sawAdded = true
		}
	}
	assert.True(t, sawAdded)
}

func TestEncodeGraphDecodeGraphRoundTrips(t *testing.T) {
	g := buildGraphFor(t, `x := 1 + 2;`)
	data, err := EncodeGraph(g)
	require.NoError(t, err)
	decoded, err := DecodeGraph(data)
	require.NoError(t, err)
	assert.Equal(t, g.RootID, decoded.RootID)
	assert.Len(t, decoded.Nodes, len(g.Nodes))
	assert.Len(t, decoded.Edges, len(g.Edges))
}
