package ir

import (
	"github.com/icl-lang/iclc/core/ast"
	"github.com/icl-lang/iclc/core/sema"
	"github.com/icl-lang/iclc/core/token"
)

// SourceMap maps a stable IR node id to the source span it was built
// from.
type SourceMap map[int]token.Span

// Builder walks an AST producing IR with deterministic sequential ids
// starting at 1.
type Builder struct {
	nextID int
	spans  SourceMap
	types  *sema.Result
}

// NewBuilder creates a Builder. types may be nil, in which case every
// reference, operator and call expression is assigned sema.Any, while
// literals and lambdas keep their Num/Str/Bool/Fn type (useful for
// tooling that only needs structure, not inferred types).
func NewBuilder(types *sema.Result) *Builder {
	return &Builder{nextID: 1, spans: make(SourceMap), types: types}
}

// Build constructs the module and its source map from prog.
func Build(prog *ast.Program, types *sema.Result) (*IRModule, SourceMap) {
	b := NewBuilder(types)
	mod := b.buildModule(prog)
	return mod, b.spans
}

func (b *Builder) alloc(span token.Span) int {
	id := b.nextID
	b.nextID++
	b.spans[id] = span
	return id
}

func (b *Builder) typeOf(e ast.Expr) sema.Type {
	if b.types == nil {
		return sema.Any
	}
	return b.types.TypeOf(e)
}

func convertParams(in []ast.Param) []Param {
	out := make([]Param, len(in))
	for i, p := range in {
		out[i] = Param{Name: p.Name, Annotation: p.Annotation}
	}
	return out
}

func (b *Builder) buildModule(prog *ast.Program) *IRModule {
	stmts := b.buildStmts(prog.Statements)
	id := b.alloc(prog.SpanValue)
	return &IRModule{Base: Base{NodeID: id, NodeType: sema.Void}, Statements: stmts}
}

func (b *Builder) buildStmts(in []ast.Stmt) []Stmt {
	if len(in) == 0 {
		return nil
	}
	out := make([]Stmt, 0, len(in))
	for _, s := range in {
		out = append(out, b.buildStmt(s))
	}
	return out
}

func (b *Builder) buildStmt(stmt ast.Stmt) Stmt {
	switch s := stmt.(type) {
	case *ast.Assignment:
		val := b.buildExpr(s.Value)
		id := b.alloc(s.SpanValue)
		return &IRAssignment{Base: Base{NodeID: id, NodeType: val.Type()}, Name: s.Name, Annotation: s.Annotation, Value: val}

	case *ast.FuncDef:
		id := b.alloc(s.SpanValue)
		fn := &IRFunction{
			Base:   Base{NodeID: id, NodeType: sema.Fn},
			Name:   s.Name,
			Params: convertParams(s.Params),
			Return: s.Return,
		}
		switch {
		case s.ExprBody != nil:
			fn.ExprBody = b.buildExpr(s.ExprBody)
		case s.Body != nil:
			fn.Body = b.buildStmts(s.Body.Statements)
		}
		return fn

	case *ast.If:
		cond := b.buildExpr(s.Cond)
		then := b.buildStmts(s.Then.Statements)
		var els []Stmt
		if s.Else != nil {
			els = b.buildStmts(s.Else.Statements)
		}
		id := b.alloc(s.SpanValue)
		return &IRIf{Base: Base{NodeID: id, NodeType: sema.Void}, Cond: cond, Then: then, Else: els}

	case *ast.Loop:
		start := b.buildExpr(s.Start)
		end := b.buildExpr(s.End)
		var body []Stmt
		if s.Body != nil {
			body = b.buildStmts(s.Body.Statements)
		}
		id := b.alloc(s.SpanValue)
		return &IRLoop{Base: Base{NodeID: id, NodeType: sema.Void}, Iterator: s.Iterator, Start: start, End: end, Body: body}

	case *ast.Return:
		var val Expr
		if s.Value != nil {
			val = b.buildExpr(s.Value)
		}
		id := b.alloc(s.SpanValue)
		return &IRReturn{Base: Base{NodeID: id, NodeType: sema.Void}, Value: val}

	case *ast.ExprStmt:
		val := b.buildExpr(s.Value)
		id := b.alloc(s.SpanValue)
		return &IRExpressionStmt{Base: Base{NodeID: id, NodeType: val.Type()}, Value: val}

	default:
		// A MacroInvocation (or any other node) reaching IR building means
		// an earlier stage should have already failed (SEM010); build an
		// empty statement defensively rather than panicking.
		id := b.alloc(stmt.Span())
		return &IRExpressionStmt{Base: Base{NodeID: id, NodeType: sema.Void}}
	}
}

func (b *Builder) buildExpr(expr ast.Expr) Expr {
	switch e := expr.(type) {
	case *ast.NumberLit:
		id := b.alloc(e.SpanValue)
		return &IRLiteral{Base: Base{NodeID: id, NodeType: sema.Num}, Kind: LitNum, Text: e.Text, Num: e.Value}

	case *ast.StringLit:
		id := b.alloc(e.SpanValue)
		return &IRLiteral{Base: Base{NodeID: id, NodeType: sema.Str}, Kind: LitStr, Str: e.Value}

	case *ast.BoolLit:
		id := b.alloc(e.SpanValue)
		return &IRLiteral{Base: Base{NodeID: id, NodeType: sema.Bool}, Kind: LitBool, Bool: e.Value}

	case *ast.Ident:
		id := b.alloc(e.SpanValue)
		return &IRRef{Base: Base{NodeID: id, NodeType: b.typeOf(e)}, Name: e.Name}

	case *ast.Group:
		// Precedence is already unambiguous from tree shape; grouping has
		// no IR node of its own.
		return b.buildExpr(e.Inner)

	case *ast.UnaryOp:
		operand := b.buildExpr(e.Operand)
		id := b.alloc(e.SpanValue)
		return &IRUnary{Base: Base{NodeID: id, NodeType: b.typeOf(e)}, Op: e.Op, Operand: operand}

	case *ast.BinaryOp:
		left := b.buildExpr(e.Left)
		right := b.buildExpr(e.Right)
		id := b.alloc(e.SpanValue)
		return &IRBinary{Base: Base{NodeID: id, NodeType: b.typeOf(e)}, Op: e.Op, Left: left, Right: right}

	case *ast.Lambda:
		body := b.buildExpr(e.Body)
		id := b.alloc(e.SpanValue)
		return &IRLambda{Base: Base{NodeID: id, NodeType: sema.Fn}, Params: convertParams(e.Params), Return: e.Return, Body: body}

	case *ast.Call:
		args := make([]Expr, 0, len(e.Args))
		for _, arg := range e.Args {
			args = append(args, b.buildExpr(arg))
		}
		id := b.alloc(e.SpanValue)
		return &IRCall{Base: Base{NodeID: id, NodeType: b.typeOf(e)}, Callee: e.Callee, Args: args, At: e.At}

	default:
		id := b.alloc(expr.Span())
		return &IRLiteral{Base: Base{NodeID: id, NodeType: sema.Any}}
	}
}
