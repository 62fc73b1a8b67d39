// Package ast defines the ICL abstract syntax tree: a tagged
// variant tree where every statement and expression kind is its own Go
// type implementing a narrow interface. Adding a node kind forces an
// update in every stage that switches over the tree, so no stage can
// silently skip a construct.
package ast

import "github.com/icl-lang/iclc/core/token"

// Node is implemented by every AST node.
type Node interface {
	Span() token.Span
	node()
}

// Stmt is implemented by every statement variant.
type Stmt interface {
	Node
	stmt()
}

// Expr is implemented by every expression variant.
type Expr interface {
	Node
	expr()
}

// Program is the root of a parsed module: an ordered list of top-level
// statements.
type Program struct {
	Statements []Stmt
	SpanValue  token.Span
}

func (p *Program) Span() token.Span { return p.SpanValue }
func (p *Program) node()            {}

// Param is a function/lambda parameter with an optional type annotation
// identifier (one of the symbolic type names, or empty if unannotated).
type Param struct {
	Name       string
	Annotation string
	SpanValue  token.Span
}

// Block is an ordered, braced statement list.
type Block struct {
	Statements []Stmt
	SpanValue  token.Span
}

// ---- Statements ----

// Assignment is `name [:Type] := expr`.
type Assignment struct {
	Name       string
	Annotation string
	Value      Expr
	SpanValue  token.Span
}

func (a *Assignment) Span() token.Span { return a.SpanValue }
func (a *Assignment) node()            {}
func (a *Assignment) stmt()            {}

// FuncDef is `fn name(params) [:Type] => expr` or `fn name(params) [:Type] { ... }`.
type FuncDef struct {
	Name       string
	Params     []Param
	Return     string // "" if unannotated
	Body       *Block // non-nil for block bodies
	ExprBody   Expr   // non-nil for expression bodies
	SpanValue  token.Span
}

func (f *FuncDef) Span() token.Span { return f.SpanValue }
func (f *FuncDef) node()            {}
func (f *FuncDef) stmt()            {}

// If is `if cond ? { then } [: { else }]`.
type If struct {
	Cond      Expr
	Then      *Block
	Else      *Block // nil if absent
	SpanValue token.Span
}

func (i *If) Span() token.Span { return i.SpanValue }
func (i *If) node()            {}
func (i *If) stmt()            {}

// Loop is `loop ident in start .. end { body }`.
type Loop struct {
	Iterator  string
	Start     Expr
	End       Expr
	Body      *Block
	SpanValue token.Span
}

func (l *Loop) Span() token.Span { return l.SpanValue }
func (l *Loop) node()            {}
func (l *Loop) stmt()            {}

// Return is `ret [expr]`.
type Return struct {
	Value     Expr // nil if bare `ret`
	SpanValue token.Span
}

func (r *Return) Span() token.Span { return r.SpanValue }
func (r *Return) node()            {}
func (r *Return) stmt()            {}

// MacroInvocation is `#name(args)`, replaced by macro expansion before
// semantic analysis; surviving to that stage is a SEM010 error.
type MacroInvocation struct {
	Name      string
	Args      []Expr
	SpanValue token.Span
}

func (m *MacroInvocation) Span() token.Span { return m.SpanValue }
func (m *MacroInvocation) node()            {}
func (m *MacroInvocation) stmt()            {}

// ExprStmt wraps a bare expression used as a statement.
type ExprStmt struct {
	Value     Expr
	SpanValue token.Span
}

func (e *ExprStmt) Span() token.Span { return e.SpanValue }
func (e *ExprStmt) node()            {}
func (e *ExprStmt) stmt()            {}

// ---- Expressions ----

// NumberLit is an integer or single-decimal-point literal, kept as source
// text plus its parsed float64 value.
type NumberLit struct {
	Text      string
	Value     float64
	SpanValue token.Span
}

func (n *NumberLit) Span() token.Span { return n.SpanValue }
func (n *NumberLit) node()            {}
func (n *NumberLit) expr()            {}

// StringLit is a double-quoted string literal with escapes already resolved.
type StringLit struct {
	Value     string
	SpanValue token.Span
}

func (s *StringLit) Span() token.Span { return s.SpanValue }
func (s *StringLit) node()            {}
func (s *StringLit) expr()            {}

// BoolLit is `true` or `false`.
type BoolLit struct {
	Value     bool
	SpanValue token.Span
}

func (b *BoolLit) Span() token.Span { return b.SpanValue }
func (b *BoolLit) node()            {}
func (b *BoolLit) expr()            {}

// Ident is an identifier reference.
type Ident struct {
	Name      string
	SpanValue token.Span
}

func (i *Ident) Span() token.Span { return i.SpanValue }
func (i *Ident) node()            {}
func (i *Ident) expr()            {}

// UnaryOp is one of `! - +` applied to an operand.
type UnaryOp struct {
	Op        string
	Operand   Expr
	SpanValue token.Span
}

func (u *UnaryOp) Span() token.Span { return u.SpanValue }
func (u *UnaryOp) node()            {}
func (u *UnaryOp) expr()            {}

// BinaryOp is any of the binary operators in the precedence table.
type BinaryOp struct {
	Op        string
	Left      Expr
	Right     Expr
	SpanValue token.Span
}

func (b *BinaryOp) Span() token.Span { return b.SpanValue }
func (b *BinaryOp) node()            {}
func (b *BinaryOp) expr()            {}

// Lambda is `lam(params) [:Type] => expr`.
type Lambda struct {
	Params    []Param
	Return    string
	Body      Expr
	SpanValue token.Span
}

func (l *Lambda) Span() token.Span { return l.SpanValue }
func (l *Lambda) node()            {}
func (l *Lambda) expr()            {}

// Call is `name(args)` or `@name(args)`; At records whether the `@`-prefix
// form was used. The flag is telemetry only.
type Call struct {
	Callee    string
	Args      []Expr
	At        bool
	SpanValue token.Span
}

func (c *Call) Span() token.Span { return c.SpanValue }
func (c *Call) node()            {}
func (c *Call) expr()            {}

// Group is a parenthesized expression, kept so lowering can preserve
// explicit grouping when rendering target operator precedence.
type Group struct {
	Inner     Expr
	SpanValue token.Span
}

func (g *Group) Span() token.Span { return g.SpanValue }
func (g *Group) node()            {}
func (g *Group) expr()            {}
