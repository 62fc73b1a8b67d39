// Package ir defines the target-agnostic intermediate representation: a
// tagged-variant tree parallel to core/ast but normalized and annotated
// with an inferred symbolic type and a stable integer id on every node,
// in the same sum-type-via-interface shape as core/ast.
package ir

import "github.com/icl-lang/iclc/core/sema"

// Node is implemented by every IR node.
type Node interface {
	ID() int
	Type() sema.Type
	node()
}

// Stmt is implemented by every IR statement variant.
type Stmt interface {
	Node
	stmt()
}

// Expr is implemented by every IR expression variant.
type Expr interface {
	Node
	expr()
}

// Base carries the id and inferred type every IR node has; it is exported
// so packages that synthesize IR nodes (core/lower) can construct them
// directly.
type Base struct {
	NodeID   int
	NodeType sema.Type
}

func (b Base) ID() int         { return b.NodeID }
func (b Base) Type() sema.Type { return b.NodeType }
func (Base) node()             {}

// Param is an IR function/lambda parameter.
type Param struct {
	Name       string
	Annotation string
}

// IRModule is the root of a built module: an ordered statement list
// (assignments, function definitions, control flow, and expression
// statements may all appear at module scope, interleaved in source
// order).
type IRModule struct {
	Base
	Statements []Stmt
}

// IRFunction is a function definition. Exactly one of ExprBody or Body is
// set; lowering's expression-body normalization step rewrites ExprBody
// functions into Body = [IRReturn(expr)].
type IRFunction struct {
	Base
	Name     string
	Params   []Param
	Return   string
	ExprBody Expr
	Body     []Stmt
}

func (f *IRFunction) stmt() {}

// IRAssignment is `name [:Type] := value`.
type IRAssignment struct {
	Base
	Name       string
	Annotation string
	Value      Expr
}

func (a *IRAssignment) stmt() {}

// IRIf is a conditional with an ordered then-body and optional else-body.
type IRIf struct {
	Base
	Cond Expr
	Then []Stmt
	Else []Stmt // nil if absent
}

func (i *IRIf) stmt() {}

// IRLoop is a bounded counting loop.
type IRLoop struct {
	Base
	Iterator string
	Start    Expr
	End      Expr
	Body     []Stmt
}

func (l *IRLoop) stmt() {}

// IRReturn is a return statement, with Value nil for a bare `ret`.
type IRReturn struct {
	Base
	Value Expr
}

func (r *IRReturn) stmt() {}

// IRExpressionStmt wraps an expression used as a statement.
type IRExpressionStmt struct {
	Base
	Value Expr
}

func (e *IRExpressionStmt) stmt() {}

// IRBinary is a binary operator application; Op is the canonical operator
// name (lowering and packs render it per target).
type IRBinary struct {
	Base
	Op    string
	Left  Expr
	Right Expr
}

func (b *IRBinary) expr() {}

// IRUnary is a unary operator application.
type IRUnary struct {
	Base
	Op      string
	Operand Expr
}

func (u *IRUnary) expr() {}

// IRCall is a function call. At records whether the source used the
// `@`-prefix form; it is metadata only and is dropped by
// lowering's call-normalization step.
type IRCall struct {
	Base
	Callee string
	Args   []Expr
	At     bool
}

func (c *IRCall) expr() {}

// IRLambda is an inline function value; its body is itself IR.
type IRLambda struct {
	Base
	Params []Param
	Return string
	Body   Expr
}

func (l *IRLambda) expr() {}

// IRRef is an identifier reference.
type IRRef struct {
	Base
	Name string
}

func (r *IRRef) expr() {}

// LiteralKind tags which field of IRLiteral holds the value.
type LiteralKind int

const (
	LitNum LiteralKind = iota
	LitStr
	LitBool
)

// IRLiteral is a tagged number/string/bool constant.
type IRLiteral struct {
	Base
	Kind LiteralKind
	Text string // original source text, for numbers
	Num  float64
	Str  string
	Bool bool
}

func (l *IRLiteral) expr() {}
