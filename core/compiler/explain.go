package compiler

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/icl-lang/iclc/core/alias"
	"github.com/icl-lang/iclc/core/ast"
	"github.com/icl-lang/iclc/core/graph"
	"github.com/icl-lang/iclc/core/ir"
	"github.com/icl-lang/iclc/core/lower"
	"github.com/icl-lang/iclc/core/macro"
	"github.com/icl-lang/iclc/core/token"
)

// ExplainResult is the `explain` operation's output: the typed
// AST and IR node trees, the projected intent graph, the id→span source
// map, and (only when a target was requested) that target's lowered
// module. Lowered is nil whenever opts has no target pack resolved by the
// caller — Explain itself never needs a pack for the other fields.
type ExplainResult struct {
	Program    *ast.Program
	Module     *ir.IRModule
	Graph      *graph.Graph
	SourceMap  ir.SourceMap
	Lowered    *lower.LoweredModule
	AliasTrace []alias.Rewrite
}

// Explain runs the front end once and projects its IR into the intent
// graph. When both target and caps are given, the result also carries
// that target's lowered module, and a lowering failure (such as LOW001
// for an uncovered feature) surfaces as an error. Resolving target to
// caps is the caller's job; with no target or nil caps, Lowered stays
// nil. The alias trace is included only when opts.AliasTrace is set.
func Explain(file, source string, opts Options, macros *macro.Registry, target string, caps *lower.Capabilities) (*ExplainResult, error) {
	fe, err := RunFrontend(file, source, opts, macros)
	if err != nil {
		return nil, err
	}
	g := graph.Build(fe.Module)

	result := &ExplainResult{
		Program:   fe.Program,
		Module:    fe.Module,
		Graph:     g,
		SourceMap: fe.SourceMap,
	}
	if opts.AliasTrace {
		result.AliasTrace = fe.AliasTrace
	}

	if target != "" && caps != nil {
		nextID := maxSourceMapID(fe.SourceMap) + 1
		lowered, err := lower.Lower(fe.Module, *caps, fe.SourceMap, nextID)
		if err != nil {
			return nil, diagWrap(err)
		}
		result.Lowered = lowered
	}

	return result, nil
}

// ---- JSON encoding: the stable host-facing shapes ----

// explainDoc is the top-level `explain` JSON payload.
type explainDoc struct {
	AST        json.RawMessage    `json:"ast"`
	IR         json.RawMessage    `json:"ir"`
	Lowered    json.RawMessage    `json:"lowered,omitempty"`
	Graph      graphDoc           `json:"graph"`
	SourceMap  map[string]spanDoc `json:"source_map"`
	AliasTrace []aliasTraceDoc    `json:"alias_trace,omitempty"`
}

type spanDoc struct {
	File      string `json:"file"`
	Line      int    `json:"line"`
	Column    int    `json:"column"`
	EndLine   int    `json:"end_line"`
	EndColumn int    `json:"end_column"`
}

type aliasTraceDoc struct {
	From string  `json:"from"`
	To   string  `json:"to"`
	Span spanDoc `json:"span"`
}

// EncodeExplain renders r as the `explain` command's JSON payload.
func EncodeExplain(r *ExplainResult) ([]byte, error) {
	astDoc, err := encodeAST(r.Program)
	if err != nil {
		return nil, err
	}
	irDoc, err := encodeIRModule(r.Module)
	if err != nil {
		return nil, err
	}

	doc := explainDoc{
		AST:       astDoc,
		IR:        irDoc,
		SourceMap: encodeSourceMapDoc(r.SourceMap),
	}
	doc.Graph = buildGraphDoc(r.Graph)

	if r.Lowered != nil {
		loweredDoc, err := encodeLowered(r.Lowered)
		if err != nil {
			return nil, err
		}
		doc.Lowered = loweredDoc
	}
	for _, rw := range r.AliasTrace {
		doc.AliasTrace = append(doc.AliasTrace, aliasTraceDoc{From: rw.From, To: rw.To, Span: encodeSpan(rw.Span)})
	}

	return json.MarshalIndent(doc, "", "  ")
}

func encodeSpan(s token.Span) spanDoc {
	return spanDoc{File: s.File, Line: s.Start.Line, Column: s.Start.Column, EndLine: s.End.Line, EndColumn: s.End.Column}
}

func buildGraphDoc(g *graph.Graph) graphDoc {
	doc := graphDoc{RootID: g.RootID}
	for _, n := range g.Nodes {
		doc.Nodes = append(doc.Nodes, graphNodeDoc{ID: n.ID, Kind: string(n.Kind), Attrs: n.Attrs})
	}
	for _, e := range g.Sorted() {
		doc.Edges = append(doc.Edges, graphEdgeDoc{Source: e.Source, Target: e.Target, Type: string(e.Type), Order: e.Order})
	}
	return doc
}

// graphDoc is the JSON-friendly shape EncodeGraph serializes to and
// DecodeGraph reads back; a flat arena maps onto JSON as
// two parallel arrays rather than a nested tree, so a host consumer never
// needs to walk pointers to reconstruct a node's neighborhood.
type graphDoc struct {
	RootID int            `json:"root_id"`
	Nodes  []graphNodeDoc `json:"nodes"`
	Edges  []graphEdgeDoc `json:"edges"`
}

type graphNodeDoc struct {
	ID    int               `json:"id"`
	Kind  string            `json:"kind"`
	Attrs map[string]string `json:"attrs,omitempty"`
}

type graphEdgeDoc struct {
	Source int    `json:"source"`
	Target int    `json:"target"`
	Type   string `json:"edge_type"`
	Order  int    `json:"order"`
}

// EncodeGraph renders g as the `--emit-graph` JSON document.
func EncodeGraph(g *graph.Graph) ([]byte, error) {
	return json.MarshalIndent(buildGraphDoc(g), "", "  ")
}

// DecodeGraph parses a graph JSON document produced by EncodeGraph (or
// the `graph` key of an explain payload) back into a *graph.Graph, so
// the `diff` command can operate on two previously-serialized graphs
// without re-running the front end.
func DecodeGraph(data []byte) (*graph.Graph, error) {
	var doc graphDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	g := &graph.Graph{RootID: doc.RootID}
	for _, n := range doc.Nodes {
		g.Nodes = append(g.Nodes, graph.Node{ID: n.ID, Kind: graph.NodeKind(n.Kind), Attrs: n.Attrs})
	}
	for _, e := range doc.Edges {
		g.Edges = append(g.Edges, graph.Edge{Source: e.Source, Target: e.Target, Type: graph.EdgeType(e.Type), Order: e.Order})
	}
	return g, nil
}

// EncodeSourceMap renders sm as the `--emit-sourcemap` JSON document:
// `{id: {file, line, column, end_line, end_column}}` keyed by
// the IR node id rendered as a decimal string (JSON object keys are
// always strings).
func EncodeSourceMap(sm ir.SourceMap) ([]byte, error) {
	return json.MarshalIndent(encodeSourceMapDoc(sm), "", "  ")
}

func encodeSourceMapDoc(sm ir.SourceMap) map[string]spanDoc {
	out := make(map[string]spanDoc, len(sm))
	for id, span := range sm {
		out[strconv.Itoa(id)] = spanDoc{
			File:      span.File,
			Line:      span.Start.Line,
			Column:    span.Start.Column,
			EndLine:   span.End.Line,
			EndColumn: span.End.Column,
		}
	}
	return out
}

// ---- typed AST encoding ----

func encodeAST(prog *ast.Program) (json.RawMessage, error) {
	return json.Marshal(astNode(prog))
}

func astNode(n ast.Node) map[string]any {
	switch v := n.(type) {
	case *ast.Program:
		return map[string]any{"kind": "Program", "statements": astStmts(v.Statements)}
	case *ast.Assignment:
		return map[string]any{"kind": "Assignment", "name": v.Name, "annotation": v.Annotation, "value": astNode(v.Value)}
	case *ast.FuncDef:
		m := map[string]any{"kind": "FuncDef", "name": v.Name, "params": astParams(v.Params), "return": v.Return}
		if v.ExprBody != nil {
			m["expr_body"] = astNode(v.ExprBody)
		}
		if v.Body != nil {
			m["body"] = astStmts(v.Body.Statements)
		}
		return m
	case *ast.If:
		m := map[string]any{"kind": "If", "cond": astNode(v.Cond), "then": astStmts(v.Then.Statements)}
		if v.Else != nil {
			m["else"] = astStmts(v.Else.Statements)
		}
		return m
	case *ast.Loop:
		return map[string]any{"kind": "Loop", "iterator": v.Iterator, "start": astNode(v.Start), "end": astNode(v.End), "body": astStmts(v.Body.Statements)}
	case *ast.Return:
		m := map[string]any{"kind": "Return"}
		if v.Value != nil {
			m["value"] = astNode(v.Value)
		}
		return m
	case *ast.MacroInvocation:
		return map[string]any{"kind": "MacroInvocation", "name": v.Name, "args": astExprs(v.Args)}
	case *ast.ExprStmt:
		return map[string]any{"kind": "ExprStmt", "value": astNode(v.Value)}
	case *ast.NumberLit:
		return map[string]any{"kind": "NumberLit", "text": v.Text, "value": v.Value}
	case *ast.StringLit:
		return map[string]any{"kind": "StringLit", "value": v.Value}
	case *ast.BoolLit:
		return map[string]any{"kind": "BoolLit", "value": v.Value}
	case *ast.Ident:
		return map[string]any{"kind": "Ident", "name": v.Name}
	case *ast.UnaryOp:
		return map[string]any{"kind": "UnaryOp", "op": v.Op, "operand": astNode(v.Operand)}
	case *ast.BinaryOp:
		return map[string]any{"kind": "BinaryOp", "op": v.Op, "left": astNode(v.Left), "right": astNode(v.Right)}
	case *ast.Lambda:
		return map[string]any{"kind": "Lambda", "params": astParams(v.Params), "return": v.Return, "body": astNode(v.Body)}
	case *ast.Call:
		return map[string]any{"kind": "Call", "callee": v.Callee, "args": astExprs(v.Args), "at": v.At}
	case *ast.Group:
		return map[string]any{"kind": "Group", "inner": astNode(v.Inner)}
	default:
		return map[string]any{"kind": fmt.Sprintf("%T", n)}
	}
}

func astStmts(in []ast.Stmt) []map[string]any {
	out := make([]map[string]any, 0, len(in))
	for _, s := range in {
		out = append(out, astNode(s))
	}
	return out
}

func astExprs(in []ast.Expr) []map[string]any {
	out := make([]map[string]any, 0, len(in))
	for _, e := range in {
		out = append(out, astNode(e))
	}
	return out
}

func astParams(in []ast.Param) []map[string]any {
	out := make([]map[string]any, 0, len(in))
	for _, p := range in {
		out = append(out, map[string]any{"name": p.Name, "annotation": p.Annotation})
	}
	return out
}

// ---- typed IR encoding ----

func encodeIRModule(mod *ir.IRModule) (json.RawMessage, error) {
	return json.Marshal(irNode(mod))
}

func irNode(n ir.Node) map[string]any {
	base := map[string]any{"id": n.ID(), "type": n.Type().String()}
	switch v := n.(type) {
	case *ir.IRModule:
		base["kind"] = "IRModule"
		base["statements"] = irStmts(v.Statements)
	case *ir.IRFunction:
		base["kind"] = "IRFunction"
		base["name"] = v.Name
		base["params"] = irParams(v.Params)
		base["return"] = v.Return
		if v.ExprBody != nil {
			base["expr_body"] = irNode(v.ExprBody)
		}
		if v.Body != nil {
			base["body"] = irStmts(v.Body)
		}
	case *ir.IRAssignment:
		base["kind"] = "IRAssignment"
		base["name"] = v.Name
		base["annotation"] = v.Annotation
		base["value"] = irNode(v.Value)
	case *ir.IRIf:
		base["kind"] = "IRIf"
		base["cond"] = irNode(v.Cond)
		base["then"] = irStmts(v.Then)
		if v.Else != nil {
			base["else"] = irStmts(v.Else)
		}
	case *ir.IRLoop:
		base["kind"] = "IRLoop"
		base["iterator"] = v.Iterator
		base["start"] = irNode(v.Start)
		base["end"] = irNode(v.End)
		base["body"] = irStmts(v.Body)
	case *ir.IRReturn:
		base["kind"] = "IRReturn"
		if v.Value != nil {
			base["value"] = irNode(v.Value)
		}
	case *ir.IRExpressionStmt:
		base["kind"] = "IRExpressionStmt"
		if v.Value != nil {
			base["value"] = irNode(v.Value)
		}
	case *ir.IRBinary:
		base["kind"] = "IRBinary"
		base["op"] = v.Op
		base["left"] = irNode(v.Left)
		base["right"] = irNode(v.Right)
	case *ir.IRUnary:
		base["kind"] = "IRUnary"
		base["op"] = v.Op
		base["operand"] = irNode(v.Operand)
	case *ir.IRCall:
		base["kind"] = "IRCall"
		base["callee"] = v.Callee
		base["args"] = irExprs(v.Args)
		base["at"] = v.At
	case *ir.IRLambda:
		base["kind"] = "IRLambda"
		base["params"] = irParams(v.Params)
		base["return"] = v.Return
		base["body"] = irNode(v.Body)
	case *ir.IRRef:
		base["kind"] = "IRRef"
		base["name"] = v.Name
	case *ir.IRLiteral:
		base["kind"] = "IRLiteral"
		switch v.Kind {
		case ir.LitNum:
			base["literal_kind"] = "num"
			base["text"] = v.Text
			base["num"] = v.Num
		case ir.LitStr:
			base["literal_kind"] = "str"
			base["str"] = v.Str
		case ir.LitBool:
			base["literal_kind"] = "bool"
			base["bool"] = v.Bool
		}
	default:
		base["kind"] = fmt.Sprintf("%T", n)
	}
	return base
}

func irStmts(in []ir.Stmt) []map[string]any {
	out := make([]map[string]any, 0, len(in))
	for _, s := range in {
		out = append(out, irNode(s))
	}
	return out
}

func irExprs(in []ir.Expr) []map[string]any {
	out := make([]map[string]any, 0, len(in))
	for _, e := range in {
		out = append(out, irNode(e))
	}
	return out
}

func irParams(in []ir.Param) []map[string]any {
	out := make([]map[string]any, 0, len(in))
	for _, p := range in {
		out = append(out, map[string]any{"name": p.Name, "annotation": p.Annotation})
	}
	return out
}

func encodeLowered(mod *lower.LoweredModule) (json.RawMessage, error) {
	return json.Marshal(map[string]any{
		"target":     mod.Target,
		"statements": irStmts(mod.Statements),
		"helpers":    mod.Helpers,
	})
}
