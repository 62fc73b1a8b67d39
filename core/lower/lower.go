// Package lower implements the lowering stage: a
// target-parameterized transform from IR to a target-shaped "lowered"
// module, gated feature-by-feature against a pack's declared coverage.
// It intentionally has no dependency on core/pack — pack manifests are
// consumed through the small Capabilities view below so packs (which
// depend on lowered output) never need to import this package's caller.
package lower

import (
	"fmt"
	"sort"

	"github.com/icl-lang/iclc/core/diag"
	"github.com/icl-lang/iclc/core/ir"
	"github.com/icl-lang/iclc/core/token"
)

// Feature ids gate the IR constructs a pack may decline to support.
const (
	FeatureAssignment      = "assignment"
	FeatureTypedAnnotation = "typed_annotation"
	FeatureFunction        = "function"
	FeatureConditional     = "conditional"
	FeatureLoop            = "loop"
	FeatureReturn          = "return"
	FeatureCall            = "call"
	FeatureLambda          = "lambda"
	FeatureBinaryOp        = "binary_op"
	FeatureUnaryOp         = "unary_op"
	FeatureLiteral         = "literal"
	FeatureRef             = "ref"
)

// FeatureCoverage is the boolean matrix from a pack manifest:
// false (or absent) entries must fail lowering explicitly with LOW001.
type FeatureCoverage map[string]bool

// FallbackMode describes how a pack handles a feature it supports only
// approximately.
type FallbackMode int

const (
	FallbackNone FallbackMode = iota
	// FallbackWarn emits LOW002: lowering proceeds, using the node as-is,
	// but the pack warns the rendering may not be faithful.
	FallbackWarn
	// FallbackSubstitute emits LOW003: lowering proceeds after the pack
	// substitutes an approximate construct for the original.
	FallbackSubstitute
)

// Capabilities is the lowering-relevant slice of a pack manifest.
// Helpers is the manifest's runtime-helper inventory, keyed by the
// source-level callee name whose calls the pack must back with injected
// runtime code.
type Capabilities struct {
	Target    string
	Coverage  FeatureCoverage
	Fallbacks map[string]FallbackMode
	Helpers   []string
}

// LoweredModule is the lowering stage's frozen output: a normalized
// statement list plus the set of runtime helpers a pack must inject and
// any non-fatal fallback diagnostics collected along the way.
type LoweredModule struct {
	Target     string
	Statements []ir.Stmt
	Helpers    []string
	Warnings   diag.Diagnostics
}

type lowerer struct {
	caps      Capabilities
	spans     ir.SourceMap
	nextID    int
	fatal     *diag.Diagnostics
	warn      diag.Diagnostics
	helperSet map[string]bool
	helpers   map[string]bool
}

// Lower runs the full lowering pipeline over mod
// for one target. spans is the source map the IR builder produced for
// mod, used only to attach a real span to lowering diagnostics; nextID
// must be greater than every id already used by mod, since lowering
// allocates a fresh id for the one kind of node it synthesizes (the
// IRReturn introduced by expression-body normalization).
func Lower(mod *ir.IRModule, caps Capabilities, spans ir.SourceMap, nextID int) (*LoweredModule, error) {
	var fatal diag.Diagnostics
	helperSet := make(map[string]bool, len(caps.Helpers))
	for _, h := range caps.Helpers {
		helperSet[h] = true
	}
	l := &lowerer{caps: caps, spans: spans, nextID: nextID, fatal: &fatal, helperSet: helperSet, helpers: make(map[string]bool)}

	stmts, ok := l.lowerStmts(mod.Statements)
	if !ok {
		return nil, fatal.Err()
	}

	helperList := make([]string, 0, len(l.helpers))
	for h := range l.helpers {
		helperList = append(helperList, h)
	}
	sort.Strings(helperList)

	return &LoweredModule{
		Target:     caps.Target,
		Statements: stmts,
		Helpers:    helperList,
		Warnings:   l.warn,
	}, nil
}

func (l *lowerer) alloc() int {
	id := l.nextID
	l.nextID++
	return id
}

func (l *lowerer) spanOf(n ir.Node) token.Span {
	if sp, ok := l.spans[n.ID()]; ok {
		return sp
	}
	return token.Span{}
}

// gate enforces step 1 (feature gate) and records any declared-partial
// fallback (step 6) for a feature already known to be covered.
func (l *lowerer) gate(feature string, n ir.Node) bool {
	span := l.spanOf(n)
	if !l.caps.Coverage[feature] {
		l.fatal.Add(diag.New("LOW001",
			fmt.Sprintf("target %q does not support feature %q", l.caps.Target, feature), &span,
			"declare this feature in the pack manifest, or remove its use from the source"))
		return false
	}
	switch l.caps.Fallbacks[feature] {
	case FallbackWarn:
		l.warn.Add(diag.New("LOW002", fmt.Sprintf("target %q supports feature %q only approximately", l.caps.Target, feature), &span, ""))
	case FallbackSubstitute:
		l.warn.Add(diag.New("LOW003", fmt.Sprintf("target %q substituted an approximate form for feature %q", l.caps.Target, feature), &span, ""))
	}
	return true
}

func (l *lowerer) lowerStmts(in []ir.Stmt) ([]ir.Stmt, bool) {
	out := make([]ir.Stmt, 0, len(in))
	for _, s := range in {
		lowered, ok := l.lowerStmt(s)
		if !ok {
			return nil, false
		}
		out = append(out, lowered)
	}
	return out, true
}

func (l *lowerer) lowerStmt(stmt ir.Stmt) (ir.Stmt, bool) {
	switch s := stmt.(type) {
	case *ir.IRAssignment:
		if !l.gate(FeatureAssignment, s) {
			return nil, false
		}
		if s.Annotation != "" && !l.gate(FeatureTypedAnnotation, s) {
			return nil, false
		}
		val, ok := l.lowerExpr(s.Value)
		if !ok {
			return nil, false
		}
		return &ir.IRAssignment{Base: s.Base, Name: s.Name, Annotation: s.Annotation, Value: val}, true

	case *ir.IRFunction:
		if !l.gate(FeatureFunction, s) {
			return nil, false
		}
		needsAnnotation := s.Return != ""
		for _, p := range s.Params {
			if p.Annotation != "" {
				needsAnnotation = true
			}
		}
		if needsAnnotation && !l.gate(FeatureTypedAnnotation, s) {
			return nil, false
		}

		var body []ir.Stmt
		switch {
		case s.ExprBody != nil:
			// Step 2: expression-body normalization.
			lowered, ok := l.lowerExpr(s.ExprBody)
			if !ok {
				return nil, false
			}
			retBase := ir.Base{NodeID: l.alloc(), NodeType: lowered.Type()}
			body = []ir.Stmt{&ir.IRReturn{Base: retBase, Value: lowered}}
		case s.Body != nil:
			lowered, ok := l.lowerStmts(s.Body)
			if !ok {
				return nil, false
			}
			body = lowered
		}
		return &ir.IRFunction{Base: s.Base, Name: s.Name, Params: s.Params, Return: s.Return, Body: body}, true

	case *ir.IRIf:
		if !l.gate(FeatureConditional, s) {
			return nil, false
		}
		cond, ok := l.lowerExpr(s.Cond)
		if !ok {
			return nil, false
		}
		then, ok := l.lowerStmts(s.Then)
		if !ok {
			return nil, false
		}
		var els []ir.Stmt
		if s.Else != nil {
			els, ok = l.lowerStmts(s.Else)
			if !ok {
				return nil, false
			}
		}
		return &ir.IRIf{Base: s.Base, Cond: cond, Then: then, Else: els}, true

	case *ir.IRLoop:
		if !l.gate(FeatureLoop, s) {
			return nil, false
		}
		start, ok := l.lowerExpr(s.Start)
		if !ok {
			return nil, false
		}
		end, ok := l.lowerExpr(s.End)
		if !ok {
			return nil, false
		}
		body, ok := l.lowerStmts(s.Body)
		if !ok {
			return nil, false
		}
		return &ir.IRLoop{Base: s.Base, Iterator: s.Iterator, Start: start, End: end, Body: body}, true

	case *ir.IRReturn:
		if !l.gate(FeatureReturn, s) {
			return nil, false
		}
		if s.Value == nil {
			return &ir.IRReturn{Base: s.Base}, true
		}
		val, ok := l.lowerExpr(s.Value)
		if !ok {
			return nil, false
		}
		return &ir.IRReturn{Base: s.Base, Value: val}, true

	case *ir.IRExpressionStmt:
		if s.Value == nil {
			return &ir.IRExpressionStmt{Base: s.Base}, true
		}
		val, ok := l.lowerExpr(s.Value)
		if !ok {
			return nil, false
		}
		return &ir.IRExpressionStmt{Base: s.Base, Value: val}, true

	default:
		span := l.spanOf(stmt)
		l.fatal.Add(diag.New("LOW099", fmt.Sprintf("internal error: unrecognized IR statement %T", stmt), &span, ""))
		return nil, false
	}
}

func (l *lowerer) lowerExpr(expr ir.Expr) (ir.Expr, bool) {
	switch e := expr.(type) {
	case *ir.IRLiteral:
		if !l.gate(FeatureLiteral, e) {
			return nil, false
		}
		return e, true

	case *ir.IRRef:
		if !l.gate(FeatureRef, e) {
			return nil, false
		}
		return e, true

	case *ir.IRUnary:
		if !l.gate(FeatureUnaryOp, e) {
			return nil, false
		}
		operand, ok := l.lowerExpr(e.Operand)
		if !ok {
			return nil, false
		}
		return &ir.IRUnary{Base: e.Base, Op: e.Op, Operand: operand}, true

	case *ir.IRBinary:
		if !l.gate(FeatureBinaryOp, e) {
			return nil, false
		}
		left, ok := l.lowerExpr(e.Left)
		if !ok {
			return nil, false
		}
		right, ok := l.lowerExpr(e.Right)
		if !ok {
			return nil, false
		}
		return &ir.IRBinary{Base: e.Base, Op: e.Op, Left: left, Right: right}, true

	case *ir.IRCall:
		if !l.gate(FeatureCall, e) {
			return nil, false
		}
		// Step 5: only calls to the pack's declared runtime helpers are
		// recorded; ordinary user-defined callees need no injection.
		if l.helperSet[e.Callee] {
			l.helpers[e.Callee] = true
		}
		args := make([]ir.Expr, 0, len(e.Args))
		for _, arg := range e.Args {
			lowered, ok := l.lowerExpr(arg)
			if !ok {
				return nil, false
			}
			args = append(args, lowered)
		}
		// Step 3: call normalization drops the `@`-flag; At is always
		// false on the lowered tree regardless of the source form.
		return &ir.IRCall{Base: e.Base, Callee: e.Callee, Args: args, At: false}, true

	case *ir.IRLambda:
		if !l.gate(FeatureLambda, e) {
			return nil, false
		}
		needsAnnotation := e.Return != ""
		for _, p := range e.Params {
			if p.Annotation != "" {
				needsAnnotation = true
			}
		}
		if needsAnnotation && !l.gate(FeatureTypedAnnotation, e) {
			return nil, false
		}
		body, ok := l.lowerExpr(e.Body)
		if !ok {
			return nil, false
		}
		return &ir.IRLambda{Base: e.Base, Params: e.Params, Return: e.Return, Body: body}, true

	default:
		span := l.spanOf(expr)
		l.fatal.Add(diag.New("LOW099", fmt.Sprintf("internal error: unrecognized IR expression %T", expr), &span, ""))
		return nil, false
	}
}
