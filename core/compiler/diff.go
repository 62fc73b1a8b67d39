package compiler

import (
	"fmt"
	"sort"

	"github.com/icl-lang/iclc/core/graph"
)

// ChangeKind classifies one diff entry.
type ChangeKind string

const (
	ChangeAdded   ChangeKind = "added"
	ChangeRemoved ChangeKind = "removed"
	ChangeChanged ChangeKind = "changed"
)

// NodeChange is one node-level diff entry between two intent graphs.
type NodeChange struct {
	ID     int         `json:"id"`
	Kind   ChangeKind  `json:"kind"`
	Before *graph.Node `json:"before,omitempty"`
	After  *graph.Node `json:"after,omitempty"`
}

// EdgeChange is one edge-level diff entry.
type EdgeChange struct {
	Kind ChangeKind `json:"kind"`
	Edge graph.Edge `json:"edge"`
}

// DiffResult is the structural diff between two intent graphs: which nodes were added, removed, or had their
// kind/attrs changed, and which edges were added or removed. Diffing by
// node id (not by content hash) matches the graph's own identity scheme —
// ids are assigned sequentially in a deterministic walk, so two parses of
// the same source get the same ids, but adding or removing a node
// renumbers every node after it. Diff is therefore only meaningful for two
// graphs whose id spaces line up (e.g. two builds of one source, or an edit
// that changes values without changing the tree's shape).
type DiffResult struct {
	Nodes []NodeChange `json:"nodes"`
	Edges []EdgeChange `json:"edges"`
}

// Diff computes the structural difference between two intent graphs.
func Diff(before, after *graph.Graph) DiffResult {
	var result DiffResult

	beforeNodes := indexNodes(before)
	afterNodes := indexNodes(after)

	ids := make(map[int]bool)
	for id := range beforeNodes {
		ids[id] = true
	}
	for id := range afterNodes {
		ids[id] = true
	}
	sortedIDs := make([]int, 0, len(ids))
	for id := range ids {
		sortedIDs = append(sortedIDs, id)
	}
	sort.Ints(sortedIDs)

	for _, id := range sortedIDs {
		b, bOK := beforeNodes[id]
		a, aOK := afterNodes[id]
		switch {
		case !bOK:
			n := a
			result.Nodes = append(result.Nodes, NodeChange{ID: id, Kind: ChangeAdded, After: &n})
		case !aOK:
			n := b
			result.Nodes = append(result.Nodes, NodeChange{ID: id, Kind: ChangeRemoved, Before: &n})
		case !nodeEqual(b, a):
			nb, na := b, a
			result.Nodes = append(result.Nodes, NodeChange{ID: id, Kind: ChangeChanged, Before: &nb, After: &na})
		}
	}

	beforeEdges := indexEdges(before)
	afterEdges := indexEdges(after)
	for key, e := range beforeEdges {
		if _, ok := afterEdges[key]; !ok {
			result.Edges = append(result.Edges, EdgeChange{Kind: ChangeRemoved, Edge: e})
		}
	}
	for key, e := range afterEdges {
		if _, ok := beforeEdges[key]; !ok {
			result.Edges = append(result.Edges, EdgeChange{Kind: ChangeAdded, Edge: e})
		}
	}
	sort.Slice(result.Edges, func(i, j int) bool {
		ei, ej := result.Edges[i].Edge, result.Edges[j].Edge
		if ei.Source != ej.Source {
			return ei.Source < ej.Source
		}
		if ei.Type != ej.Type {
			return ei.Type < ej.Type
		}
		if ei.Order != ej.Order {
			return ei.Order < ej.Order
		}
		if ei.Target != ej.Target {
			return ei.Target < ej.Target
		}
		return result.Edges[i].Kind < result.Edges[j].Kind
	})

	return result
}

func indexNodes(g *graph.Graph) map[int]graph.Node {
	out := make(map[int]graph.Node, len(g.Nodes))
	for _, n := range g.Nodes {
		out[n.ID] = n
	}
	return out
}

func edgeKey(e graph.Edge) string {
	return fmt.Sprintf("%d|%s|%d|%d", e.Source, e.Type, e.Order, e.Target)
}

func indexEdges(g *graph.Graph) map[string]graph.Edge {
	out := make(map[string]graph.Edge, len(g.Edges))
	for _, e := range g.Edges {
		out[edgeKey(e)] = e
	}
	return out
}

func nodeEqual(a, b graph.Node) bool {
	if a.Kind != b.Kind || len(a.Attrs) != len(b.Attrs) {
		return false
	}
	for k, v := range a.Attrs {
		if b.Attrs[k] != v {
			return false
		}
	}
	return true
}
