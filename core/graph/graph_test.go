package graph

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icl-lang/iclc/core/ir"
	"github.com/icl-lang/iclc/core/lexer"
	"github.com/icl-lang/iclc/core/parser"
	"github.com/icl-lang/iclc/core/sema"
)

func buildGraph(t *testing.T, src string) *Graph {
	t.Helper()
	toks, err := lexer.Lex("<test>", src)
	require.NoError(t, err)
	prog, err := parser.Parse(toks)
	require.NoError(t, err)
	types, err := sema.Analyze(prog)
	require.NoError(t, err)
	mod, _ := ir.Build(prog, types)
	return Build(mod)
}

func TestBuildProducesModuleRoot(t *testing.T) {
	g := buildGraph(t, `x := 1 + 2;`)
	assert.Equal(t, g.RootID, g.Nodes[0].ID)
	assert.Equal(t, ModuleIntent, g.Nodes[0].Kind)
}

func TestBuildAssignmentAndOperationNodes(t *testing.T) {
	g := buildGraph(t, `x := 1 + 2;`)
	var sawAssignment, sawOperation bool
	for _, n := range g.Nodes {
		switch n.Kind {
		case AssignmentIntent:
			sawAssignment = true
			assert.Equal(t, "x", n.Attrs["name"])
		case OperationIntent:
			sawOperation = true
			assert.Equal(t, "+", n.Attrs["op"])
		}
	}
	assert.True(t, sawAssignment)
	assert.True(t, sawOperation)
}

func TestEdgeOrderIsGaplessPermutation(t *testing.T) {
	g := buildGraph(t, `a := 1; b := 2; c := 3;`)
	byTypeAndSource := map[string][]int{}
	for _, e := range g.Edges {
		key := fmt.Sprintf("%s|%d", e.Type, e.Source)
		byTypeAndSource[key] = append(byTypeAndSource[key], e.Order)
	}
	for key, orders := range byTypeAndSource {
		seen := make(map[int]bool, len(orders))
		for _, o := range orders {
			seen[o] = true
		}
		for i := 0; i < len(orders); i++ {
			assert.True(t, seen[i], "edge set %s must have order %d present (no gaps)", key, i)
		}
	}
}

func TestSortedOrderingIsDeterministic(t *testing.T) {
	g := buildGraph(t, `x := 1 + 2 * 3;`)
	first := g.Sorted()
	second := g.Sorted()
	assert.Equal(t, first, second)
	for i := 1; i < len(first); i++ {
		a, b := first[i-1], first[i]
		if a.Source != b.Source {
			assert.LessOrEqual(t, a.Source, b.Source)
			continue
		}
		if a.Type != b.Type {
			assert.LessOrEqual(t, a.Type, b.Type)
			continue
		}
		assert.LessOrEqual(t, a.Order, b.Order)
	}
}

func TestCallIntentPreservesArgumentOrder(t *testing.T) {
	g := buildGraph(t, `fn add(a:Num,b:Num):Num => a+b; x := @add(3,4);`)
	var callID int
	for _, n := range g.Nodes {
		if n.Kind == CallIntent {
			callID = n.ID
		}
	}
	require.NotZero(t, callID)
	var argEdges []Edge
	for _, e := range g.Edges {
		if e.Source == callID && e.Type == EdgeArg {
			argEdges = append(argEdges, e)
		}
	}
	require.Len(t, argEdges, 2)
	assert.Equal(t, 0, argEdges[0].Order)
	assert.Equal(t, 1, argEdges[1].Order)
}

func TestLoopIntentHasStartEndAndBodyEdges(t *testing.T) {
	g := buildGraph(t, `sum := 0; loop i in 0..3 { sum := sum + i; }`)
	var loopID int
	for _, n := range g.Nodes {
		if n.Kind == LoopIntent {
			loopID = n.ID
			assert.Equal(t, "i", n.Attrs["iterator"])
		}
	}
	require.NotZero(t, loopID)
	kinds := map[EdgeType]bool{}
	for _, e := range g.Edges {
		if e.Source == loopID {
			kinds[e.Type] = true
		}
	}
	assert.True(t, kinds[EdgeStart])
	assert.True(t, kinds[EdgeEnd])
	assert.True(t, kinds[EdgeContainsBody])
}
