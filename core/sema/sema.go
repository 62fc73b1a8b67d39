// Package sema implements the semantic analyzer: a two-pass
// walk over the AST that builds a scope chain, infers the closed symbolic
// type lattice {Num, Str, Bool, Any, Fn, Void}, and enforces the operator
// and call-site typing rules. Diagnostics accumulate across the whole
// module; analysis never stops at the first mistake.
package sema

import (
	"fmt"

	"github.com/icl-lang/iclc/core/ast"
	"github.com/icl-lang/iclc/core/diag"
	"github.com/icl-lang/iclc/core/token"
)

// Type is one member of the closed symbolic type lattice.
type Type int

const (
	Num Type = iota
	Str
	Bool
	Any
	Fn
	Void
)

var typeNames = map[Type]string{
	Num:  "Num",
	Str:  "Str",
	Bool: "Bool",
	Any:  "Any",
	Fn:   "Fn",
	Void: "Void",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return "Unknown"
}

// ParseType maps an annotation identifier to its Type.
func ParseType(name string) (Type, bool) {
	for t, n := range typeNames {
		if n == name {
			return t, true
		}
	}
	return 0, false
}

// compatible reports whether two symbolic types are compatible:
// reflexive, Any symmetrically compatible with anything, otherwise
// equality.
func compatible(a, b Type) bool {
	return a == Any || b == Any || a == b
}

// SymbolKind classifies what a scope entry denotes.
type SymbolKind int

const (
	SymVariable SymbolKind = iota
	SymParameter
	SymFunction
	SymBuiltin
)

// Symbol is one scope entry: kind, symbolic type, optional callable arity.
type Symbol struct {
	Name       string
	Kind       SymbolKind
	Type       Type
	ReturnType Type // meaningful when Kind is SymFunction/SymBuiltin
	Arity      int
	HasArity   bool
	Span       token.Span
}

func (s *Symbol) callable() bool {
	return s.Kind == SymFunction || s.Kind == SymBuiltin || s.Type == Fn || s.Type == Any
}

// Scope is one node in the scope tree: module root, function,
// if-branch, or loop-body scope, each holding its own symbol mapping and a
// link to its parent for chained lookup.
type Scope struct {
	parent *Scope
	vars   map[string]*Symbol
}

func newScope(parent *Scope) *Scope {
	return &Scope{parent: parent, vars: make(map[string]*Symbol)}
}

func (s *Scope) define(sym *Symbol) { s.vars[sym.Name] = sym }

func (s *Scope) lookup(name string) (*Symbol, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if sym, ok := cur.vars[name]; ok {
			return sym, true
		}
	}
	return nil, false
}

// Result is the output of a successful (or partially successful) analysis:
// the module scope and an inferred type for every expression node, keyed
// by node identity, so later stages (principally the IR builder) do not
// need to re-infer types.
type Result struct {
	Module *Scope
	Types  map[ast.Expr]Type
}

// TypeOf returns the inferred type for an expression analyzed by this
// Result, or Any if the expression was never analyzed (should not happen
// for a tree that went through Analyze without prior structural errors).
func (r *Result) TypeOf(e ast.Expr) Type {
	if t, ok := r.Types[e]; ok {
		return t
	}
	return Any
}

type funcCtx struct {
	returnType    Type
	hasAnnotation bool
}

// Analyzer carries accumulation state across one module analysis.
type Analyzer struct {
	diags     diag.Diagnostics
	types     map[ast.Expr]Type
	funcStack []*funcCtx
}

// Analyze runs the two-pass semantic check over prog and returns the
// resulting scope/type information plus the aggregated diagnostics, if
// any.
func Analyze(prog *ast.Program) (*Result, error) {
	a := &Analyzer{types: make(map[ast.Expr]Type)}
	root := newScope(nil)
	a.defineBuiltins(root)

	for _, stmt := range prog.Statements {
		if fd, ok := stmt.(*ast.FuncDef); ok {
			a.registerFuncSignature(root, fd)
		}
	}
	for _, stmt := range prog.Statements {
		a.analyzeStmt(root, stmt)
	}

	return &Result{Module: root, Types: a.types}, a.diags.Err()
}

func (a *Analyzer) defineBuiltins(root *Scope) {
	root.define(&Symbol{Name: "print", Kind: SymBuiltin, Type: Fn, ReturnType: Void, Arity: 1, HasArity: true})
}

func (a *Analyzer) errorf(code string, span token.Span, hint, format string, args ...any) {
	a.diags.Add(diag.New(code, fmt.Sprintf(format, args...), &span, hint))
}

func (a *Analyzer) resolveAnnotation(name string, span token.Span) Type {
	if name == "" {
		return Any
	}
	t, ok := ParseType(name)
	if !ok {
		a.errorf("SEM020", span, "valid type annotations are Num, Str, Bool, Any, Fn, Void",
			"unknown type annotation %q", name)
		return Any
	}
	return t
}

func (a *Analyzer) registerFuncSignature(scope *Scope, fd *ast.FuncDef) {
	if _, exists := scope.vars[fd.Name]; exists {
		a.errorf("SEM098", fd.SpanValue, "rename one of the definitions",
			"%q is already defined in this scope", fd.Name)
		return
	}
	retType := a.resolveAnnotation(fd.Return, fd.SpanValue)
	scope.define(&Symbol{
		Name: fd.Name, Kind: SymFunction, Type: Fn, ReturnType: retType,
		Arity: len(fd.Params), HasArity: true, Span: fd.SpanValue,
	})
}

func (a *Analyzer) analyzeStmt(scope *Scope, stmt ast.Stmt) {
	switch s := stmt.(type) {
	case *ast.Assignment:
		valType := a.inferExpr(scope, s.Value)
		varType := valType
		if s.Annotation != "" {
			annType := a.resolveAnnotation(s.Annotation, s.SpanValue)
			if !compatible(annType, valType) {
				a.errorf("SEM002", s.SpanValue, "change the annotation or the assigned expression",
					"assignment of %q: annotation %s is incompatible with inferred type %s", s.Name, annType, valType)
			}
			varType = annType
		}
		scope.define(&Symbol{Name: s.Name, Kind: SymVariable, Type: varType, Span: s.SpanValue})
	case *ast.FuncDef:
		if _, exists := scope.vars[s.Name]; !exists {
			a.registerFuncSignature(scope, s)
		}
		a.analyzeFuncBody(scope, s)
	case *ast.If:
		a.analyzeIf(scope, s)
	case *ast.Loop:
		a.analyzeLoop(scope, s)
	case *ast.Return:
		a.analyzeReturn(scope, s)
	case *ast.MacroInvocation:
		a.errorf("SEM010", s.SpanValue, "run macro expansion before semantic analysis",
			"macro invocation %q was not expanded", s.Name)
	case *ast.ExprStmt:
		a.inferExpr(scope, s.Value)
	default:
		a.errorf("SEM099", stmt.Span(), "", "internal error: unrecognized statement node %T", stmt)
	}
}

func (a *Analyzer) analyzeFuncBody(scope *Scope, fd *ast.FuncDef) {
	fnScope := newScope(scope)
	for _, p := range fd.Params {
		fnScope.define(&Symbol{Name: p.Name, Kind: SymParameter, Type: a.resolveAnnotation(p.Annotation, p.SpanValue), Span: p.SpanValue})
	}

	hasAnnotation := fd.Return != ""
	retType := a.resolveAnnotation(fd.Return, fd.SpanValue)
	a.funcStack = append(a.funcStack, &funcCtx{returnType: retType, hasAnnotation: hasAnnotation})
	defer func() { a.funcStack = a.funcStack[:len(a.funcStack)-1] }()

	switch {
	case fd.ExprBody != nil:
		bodyType := a.inferExpr(fnScope, fd.ExprBody)
		if hasAnnotation && !compatible(retType, bodyType) {
			a.errorf("SEM006", fd.ExprBody.Span(), "the expression body's type must be compatible with the declared return",
				"function %q: expression body type %s is incompatible with declared return %s", fd.Name, bodyType, retType)
		}
	case fd.Body != nil:
		a.analyzeBlock(fnScope, fd.Body)
		if hasAnnotation && retType != Void && !blockReturns(fd.Body) {
			a.errorf("SEM005", fd.SpanValue, "add a return on every control-flow path",
				"function %q: not every path returns a value", fd.Name)
		}
	}
}

func (a *Analyzer) analyzeBlock(parent *Scope, block *ast.Block) {
	if block == nil {
		return
	}
	child := newScope(parent)
	for _, stmt := range block.Statements {
		a.analyzeStmt(child, stmt)
	}
}

func (a *Analyzer) analyzeIf(scope *Scope, node *ast.If) {
	condType := a.inferExpr(scope, node.Cond)
	if !compatible(Bool, condType) {
		a.errorf("SEM009", node.Cond.Span(), "the condition must be Bool or Any",
			"if condition has type %s, expected Bool", condType)
	}
	a.analyzeBlock(scope, node.Then)
	if node.Else != nil {
		a.analyzeBlock(scope, node.Else)
	}
}

func (a *Analyzer) analyzeLoop(scope *Scope, node *ast.Loop) {
	startType := a.inferExpr(scope, node.Start)
	if !compatible(Num, startType) {
		a.errorf("SEM012", node.Start.Span(), "loop bounds must be Num or Any", "loop start has type %s, expected Num", startType)
	}
	endType := a.inferExpr(scope, node.End)
	if !compatible(Num, endType) {
		a.errorf("SEM012", node.End.Span(), "loop bounds must be Num or Any", "loop end has type %s, expected Num", endType)
	}
	child := newScope(scope)
	child.define(&Symbol{Name: node.Iterator, Kind: SymVariable, Type: Num, Span: node.SpanValue})
	for _, stmt := range node.Body.Statements {
		a.analyzeStmt(child, stmt)
	}
}

func (a *Analyzer) analyzeReturn(scope *Scope, node *ast.Return) {
	if len(a.funcStack) == 0 {
		a.errorf("SEM008", node.SpanValue, "'ret' is only legal inside a function body", "return used outside a function scope")
		if node.Value != nil {
			a.inferExpr(scope, node.Value)
		}
		return
	}
	ctx := a.funcStack[len(a.funcStack)-1]
	valType := Void
	if node.Value != nil {
		valType = a.inferExpr(scope, node.Value)
	}
	if ctx.hasAnnotation && !compatible(ctx.returnType, valType) {
		a.errorf("SEM007", node.SpanValue, "the returned expression must be compatible with the declared return",
			"return type %s is incompatible with declared return %s", valType, ctx.returnType)
	}
}

func (a *Analyzer) inferExpr(scope *Scope, expr ast.Expr) Type {
	t := a.inferExprUncached(scope, expr)
	a.types[expr] = t
	return t
}

func (a *Analyzer) inferExprUncached(scope *Scope, expr ast.Expr) Type {
	switch e := expr.(type) {
	case *ast.NumberLit:
		return Num
	case *ast.StringLit:
		return Str
	case *ast.BoolLit:
		return Bool
	case *ast.Ident:
		sym, ok := scope.lookup(e.Name)
		if !ok {
			a.errorf("SEM001", e.SpanValue, "declare the identifier before using it", "undefined identifier %q", e.Name)
			return Any
		}
		return sym.Type
	case *ast.Group:
		return a.inferExpr(scope, e.Inner)
	case *ast.UnaryOp:
		return a.inferUnary(scope, e)
	case *ast.BinaryOp:
		return a.inferBinary(scope, e)
	case *ast.Lambda:
		return a.inferLambda(scope, e)
	case *ast.Call:
		return a.inferCall(scope, e)
	default:
		a.errorf("SEM099", expr.Span(), "", "internal error: unrecognized expression node %T", expr)
		return Any
	}
}

func (a *Analyzer) inferUnary(scope *Scope, u *ast.UnaryOp) Type {
	operand := a.inferExpr(scope, u.Operand)
	switch u.Op {
	case "!":
		if !compatible(Bool, operand) {
			a.errorf("SEM014", u.SpanValue, "unary '!' requires Bool or Any", "unary '!' operand has type %s, expected Bool", operand)
		}
		return Bool
	case "+", "-":
		if !compatible(Num, operand) {
			a.errorf("SEM014", u.SpanValue, "unary '+'/'-' requires Num or Any", "unary %q operand has type %s, expected Num", u.Op, operand)
		}
		return Num
	default:
		a.errorf("SEM099", u.SpanValue, "", "internal error: unrecognized unary operator %q", u.Op)
		return Any
	}
}

func (a *Analyzer) inferBinary(scope *Scope, b *ast.BinaryOp) Type {
	left := a.inferExpr(scope, b.Left)
	right := a.inferExpr(scope, b.Right)
	switch b.Op {
	case "+", "-", "*", "/", "%":
		if !compatible(Num, left) || !compatible(Num, right) {
			a.errorf("SEM015", b.SpanValue, "arithmetic operators require Num operands on both sides (string concatenation is not defined)",
				"arithmetic %q operands have types %s and %s, expected Num", b.Op, left, right)
		}
		return Num
	case "<", "<=", ">", ">=":
		if !compatible(Num, left) || !compatible(Num, right) {
			a.errorf("SEM016", b.SpanValue, "comparison operators require Num operands on both sides",
				"comparison %q operands have types %s and %s, expected Num", b.Op, left, right)
		}
		return Bool
	case "==", "!=":
		if !(left == Any || right == Any || left == right) {
			a.errorf("SEM017", b.SpanValue, "equality requires the same base type unless one side is Any",
				"equality %q operands have incompatible types %s and %s", b.Op, left, right)
		}
		return Bool
	case "&&", "||":
		if !compatible(Bool, left) || !compatible(Bool, right) {
			a.errorf("SEM019", b.SpanValue, "logical operators require Bool operands on both sides",
				"logical %q operands have types %s and %s, expected Bool", b.Op, left, right)
		}
		return Bool
	default:
		a.errorf("SEM099", b.SpanValue, "", "internal error: unrecognized binary operator %q", b.Op)
		return Any
	}
}

func (a *Analyzer) inferLambda(scope *Scope, l *ast.Lambda) Type {
	fnScope := newScope(scope)
	for _, p := range l.Params {
		fnScope.define(&Symbol{Name: p.Name, Kind: SymParameter, Type: a.resolveAnnotation(p.Annotation, p.SpanValue), Span: p.SpanValue})
	}
	hasAnnotation := l.Return != ""
	retType := a.resolveAnnotation(l.Return, l.SpanValue)
	bodyType := a.inferExpr(fnScope, l.Body)
	if hasAnnotation && !compatible(retType, bodyType) {
		a.errorf("SEM006", l.Body.Span(), "the lambda body's type must be compatible with the declared return",
			"lambda expression body type %s is incompatible with declared return %s", bodyType, retType)
	}
	return Fn
}

func (a *Analyzer) inferCall(scope *Scope, c *ast.Call) Type {
	sym, ok := scope.lookup(c.Callee)
	if !ok {
		a.errorf("SEM011", c.SpanValue, "define the function before calling it, or check the name", "undefined callee %q", c.Callee)
		for _, arg := range c.Args {
			a.inferExpr(scope, arg)
		}
		return Any
	}
	if !sym.callable() {
		a.errorf("SEM018", c.SpanValue, "only functions, lambdas, or Any-typed values can be called", "%q is not callable (type %s)", c.Callee, sym.Type)
		for _, arg := range c.Args {
			a.inferExpr(scope, arg)
		}
		return Any
	}
	if sym.HasArity && len(c.Args) != sym.Arity {
		a.errorf("SEM013", c.SpanValue, "", "call to %q passes %d argument(s), expected %d", c.Callee, len(c.Args), sym.Arity)
	}
	for _, arg := range c.Args {
		a.inferExpr(scope, arg)
	}
	if sym.Kind == SymFunction || sym.Kind == SymBuiltin {
		return sym.ReturnType
	}
	// An Any- or Fn-typed value carries no signature to consult.
	return Any
}

// blockReturns is a conservative structural check: a
// block definitively returns iff it directly contains a return statement,
// or it directly contains an if/else whose both arms definitively
// return. Loop bodies never count since a loop may execute zero times.
func blockReturns(b *ast.Block) bool {
	if b == nil {
		return false
	}
	for _, stmt := range b.Statements {
		switch s := stmt.(type) {
		case *ast.Return:
			return true
		case *ast.If:
			if s.Else != nil && blockReturns(s.Then) && blockReturns(s.Else) {
				return true
			}
		}
	}
	return false
}
