// Package graph projects a built IR module into the intent graph: a
// derived, acyclic, directed typed multigraph used by the `explain` and
// `diff` host operations. It is represented
// with indexed arenas rather than pointer-linked nodes — a flat node
// slice plus a flat edge slice sorted by (source, edge_type, order) — so
// no reference cycles or ownership questions arise.
package graph

import (
	"sort"

	"github.com/icl-lang/iclc/core/ir"
)

// NodeKind is one of the canonical intent-node names.
type NodeKind string

const (
	ModuleIntent     NodeKind = "ModuleIntent"
	AssignmentIntent NodeKind = "AssignmentIntent"
	OperationIntent  NodeKind = "OperationIntent"
	ControlIntent    NodeKind = "ControlIntent"
	LoopIntent       NodeKind = "LoopIntent"
	FuncIntent       NodeKind = "FuncIntent"
	CallIntent       NodeKind = "CallIntent"
	ReturnIntent     NodeKind = "ReturnIntent"
	LiteralIntent    NodeKind = "LiteralIntent"
	RefIntent        NodeKind = "RefIntent"
	// ExpansionIntent is reserved for a subtree produced by macro
	// expansion; the base projection below does not emit it because
	// core/macro does not currently tag expanded nodes with provenance.
	ExpansionIntent NodeKind = "ExpansionIntent"
)

// EdgeType is one of the canonical structural or data edge names from
// the fixed edge vocabulary.
type EdgeType string

const (
	EdgeContains     EdgeType = "contains"
	EdgeContainsThen EdgeType = "contains_then"
	EdgeContainsElse EdgeType = "contains_else"
	EdgeContainsBody EdgeType = "contains_body"
	EdgeValue        EdgeType = "value"
	EdgeExpr         EdgeType = "expr"
	EdgeCondition    EdgeType = "condition"
	EdgeStart        EdgeType = "start"
	EdgeEnd          EdgeType = "end"
	EdgeOperand      EdgeType = "operand"
	EdgeArg          EdgeType = "arg"
	EdgeReturnExpr   EdgeType = "return_expr"
)

// Node is one intent-graph node. Attrs carries kind-specific scalar data
// (names, operators, literal values) that isn't itself a subtree.
type Node struct {
	ID    int               `json:"id"`
	Kind  NodeKind          `json:"kind"`
	Attrs map[string]string `json:"attrs,omitempty"`
}

// Edge is one typed, ordered graph edge.
type Edge struct {
	Source int      `json:"source"`
	Target int      `json:"target"`
	Type   EdgeType `json:"edge_type"`
	Order  int      `json:"order"`
}

// Graph is the full projected intent graph.
type Graph struct {
	Nodes  []Node
	Edges  []Edge
	RootID int
}

// Sorted returns a copy of g.Edges ordered by (source, edge_type, order),
// in one flat arena.
func (g *Graph) Sorted() []Edge {
	edges := make([]Edge, len(g.Edges))
	copy(edges, g.Edges)
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Source != edges[j].Source {
			return edges[i].Source < edges[j].Source
		}
		if edges[i].Type != edges[j].Type {
			return edges[i].Type < edges[j].Type
		}
		return edges[i].Order < edges[j].Order
	})
	return edges
}

type builder struct {
	g *Graph
}

func (b *builder) addNode(id int, kind NodeKind, attrs map[string]string) {
	if attrs == nil {
		attrs = map[string]string{}
	}
	b.g.Nodes = append(b.g.Nodes, Node{ID: id, Kind: kind, Attrs: attrs})
}

func (b *builder) addOrdered(source int, edgeType EdgeType, targets []int) {
	for i, target := range targets {
		b.g.Edges = append(b.g.Edges, Edge{Source: source, Target: target, Type: edgeType, Order: i})
	}
}

// Build projects mod into its intent graph.
func Build(mod *ir.IRModule) *Graph {
	g := &Graph{RootID: mod.ID()}
	b := &builder{g: g}
	b.addNode(mod.ID(), ModuleIntent, nil)
	children := b.visitStmts(mod.Statements)
	b.addOrdered(mod.ID(), EdgeContains, children)
	g.Edges = g.Sorted()
	return g
}

// visitStmts projects a statement list into graph node ids, collapsing
// bare expression statements onto their wrapped expression's node so the
// graph only ever shows canonical intent kinds.
func (b *builder) visitStmts(stmts []ir.Stmt) []int {
	ids := make([]int, 0, len(stmts))
	for _, stmt := range stmts {
		ids = append(ids, b.visitStmt(stmt))
	}
	return ids
}

func (b *builder) visitStmt(stmt ir.Stmt) int {
	switch s := stmt.(type) {
	case *ir.IRAssignment:
		b.addNode(s.ID(), AssignmentIntent, map[string]string{"name": s.Name, "annotation": s.Annotation})
		valID := b.visitExpr(s.Value)
		b.addOrdered(s.ID(), EdgeValue, []int{valID})
		return s.ID()

	case *ir.IRFunction:
		b.addNode(s.ID(), FuncIntent, map[string]string{"name": s.Name, "return": s.Return})
		if s.ExprBody != nil {
			exprID := b.visitExpr(s.ExprBody)
			b.addOrdered(s.ID(), EdgeExpr, []int{exprID})
		} else {
			bodyIDs := b.visitStmts(s.Body)
			b.addOrdered(s.ID(), EdgeContainsBody, bodyIDs)
		}
		return s.ID()

	case *ir.IRIf:
		b.addNode(s.ID(), ControlIntent, nil)
		condID := b.visitExpr(s.Cond)
		b.addOrdered(s.ID(), EdgeCondition, []int{condID})
		thenIDs := b.visitStmts(s.Then)
		b.addOrdered(s.ID(), EdgeContainsThen, thenIDs)
		if s.Else != nil {
			elseIDs := b.visitStmts(s.Else)
			b.addOrdered(s.ID(), EdgeContainsElse, elseIDs)
		}
		return s.ID()

	case *ir.IRLoop:
		b.addNode(s.ID(), LoopIntent, map[string]string{"iterator": s.Iterator})
		startID := b.visitExpr(s.Start)
		endID := b.visitExpr(s.End)
		b.addOrdered(s.ID(), EdgeStart, []int{startID})
		b.addOrdered(s.ID(), EdgeEnd, []int{endID})
		bodyIDs := b.visitStmts(s.Body)
		b.addOrdered(s.ID(), EdgeContainsBody, bodyIDs)
		return s.ID()

	case *ir.IRReturn:
		b.addNode(s.ID(), ReturnIntent, nil)
		if s.Value != nil {
			valID := b.visitExpr(s.Value)
			b.addOrdered(s.ID(), EdgeReturnExpr, []int{valID})
		}
		return s.ID()

	case *ir.IRExpressionStmt:
		if s.Value == nil {
			b.addNode(s.ID(), ReturnIntent, map[string]string{"empty": "true"})
			return s.ID()
		}
		return b.visitExpr(s.Value)

	default:
		b.addNode(stmt.ID(), ModuleIntent, map[string]string{"unrecognized": "true"})
		return stmt.ID()
	}
}

func (b *builder) visitExpr(expr ir.Expr) int {
	switch e := expr.(type) {
	case *ir.IRLiteral:
		attrs := map[string]string{}
		switch e.Kind {
		case ir.LitNum:
			attrs["kind"] = "num"
			attrs["text"] = e.Text
		case ir.LitStr:
			attrs["kind"] = "str"
			attrs["value"] = e.Str
		case ir.LitBool:
			attrs["kind"] = "bool"
			if e.Bool {
				attrs["value"] = "true"
			} else {
				attrs["value"] = "false"
			}
		}
		b.addNode(e.ID(), LiteralIntent, attrs)
		return e.ID()

	case *ir.IRRef:
		b.addNode(e.ID(), RefIntent, map[string]string{"name": e.Name})
		return e.ID()

	case *ir.IRUnary:
		b.addNode(e.ID(), OperationIntent, map[string]string{"op": e.Op, "arity": "1"})
		operandID := b.visitExpr(e.Operand)
		b.addOrdered(e.ID(), EdgeOperand, []int{operandID})
		return e.ID()

	case *ir.IRBinary:
		b.addNode(e.ID(), OperationIntent, map[string]string{"op": e.Op, "arity": "2"})
		leftID := b.visitExpr(e.Left)
		rightID := b.visitExpr(e.Right)
		b.addOrdered(e.ID(), EdgeOperand, []int{leftID, rightID})
		return e.ID()

	case *ir.IRCall:
		// The callee is a name, not a subtree, so it rides on the node as
		// an attribute; a `callee` edge would need a node to point at.
		b.addNode(e.ID(), CallIntent, map[string]string{"callee": e.Callee})
		argIDs := make([]int, 0, len(e.Args))
		for _, arg := range e.Args {
			argIDs = append(argIDs, b.visitExpr(arg))
		}
		b.addOrdered(e.ID(), EdgeArg, argIDs)
		return e.ID()

	case *ir.IRLambda:
		b.addNode(e.ID(), FuncIntent, map[string]string{"anonymous": "true", "return": e.Return})
		bodyID := b.visitExpr(e.Body)
		b.addOrdered(e.ID(), EdgeExpr, []int{bodyID})
		return e.ID()

	default:
		b.addNode(expr.ID(), LiteralIntent, map[string]string{"unrecognized": "true"})
		return expr.ID()
	}
}
