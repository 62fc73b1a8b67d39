// Package macro implements the macro/syntax plug-in expansion stage: it
// rewrites `#name(args)` statements into ordinary statements
// before semantic analysis runs. A MacroInvocation node that survives past
// this stage is a semantic error (SEM010), not a macro error, so this
// package's job is to eliminate every one it recognizes and flag the rest.
package macro

import (
	"fmt"

	"github.com/icl-lang/iclc/core/ast"
	"github.com/icl-lang/iclc/core/diag"
)

// Expander rewrites one macro invocation into the statements it stands
// for.
type Expander func(call *ast.MacroInvocation) ([]ast.Stmt, error)

// Registry holds the macro expanders known to a compilation.
type Registry struct {
	expanders map[string]Expander
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{expanders: make(map[string]Expander)}
}

// Register adds or replaces the expander for name.
func (r *Registry) Register(name string, fn Expander) {
	r.expanders[name] = fn
}

// Modules lists the built-in expander sets a host `--plugin` specifier
// can select by module name; each entry installs its expanders into a
// registry. Plug-ins are registered at process start, never discovered
// at call time.
var Modules = map[string]func(*Registry){
	"echo": func(r *Registry) { r.Register("echo", expandEcho) },
}

// DefaultRegistry returns the registry with every built-in module
// installed: `#echo(expr)` expands to `print(expr)`.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, install := range Modules {
		install(r)
	}
	return r
}

func expandEcho(call *ast.MacroInvocation) ([]ast.Stmt, error) {
	if len(call.Args) != 1 {
		return nil, fmt.Errorf("echo takes exactly one argument, got %d", len(call.Args))
	}
	return []ast.Stmt{&ast.ExprStmt{
		Value: &ast.Call{
			Callee:    "print",
			Args:      call.Args,
			SpanValue: call.SpanValue,
		},
		SpanValue: call.SpanValue,
	}}, nil
}

// Expand rewrites every macro invocation reachable from prog using r,
// returning the aggregate of any PLG002 (unknown macro) or PLG003
// (expansion failure) diagnostics. Unresolvable invocations are left in
// place so a later semantic pass can still report SEM010 on them.
func Expand(r *Registry, prog *ast.Program) error {
	var diags diag.Diagnostics
	prog.Statements = r.expandStmts(prog.Statements, &diags)
	return diags.Err()
}

func (r *Registry) expandStmts(stmts []ast.Stmt, diags *diag.Diagnostics) []ast.Stmt {
	out := make([]ast.Stmt, 0, len(stmts))
	for _, stmt := range stmts {
		out = append(out, r.expandStmt(stmt, diags)...)
	}
	return out
}

func (r *Registry) expandStmt(stmt ast.Stmt, diags *diag.Diagnostics) []ast.Stmt {
	switch s := stmt.(type) {
	case *ast.MacroInvocation:
		expander, ok := r.expanders[s.Name]
		if !ok {
			span := s.SpanValue
			diags.Add(diag.New("PLG002",
				fmt.Sprintf("unknown macro %q", s.Name),
				&span, "register a macro expander for this name, or remove the invocation"))
			return []ast.Stmt{s}
		}
		expanded, err := expander(s)
		if err != nil {
			span := s.SpanValue
			diags.Add(diag.New("PLG003",
				fmt.Sprintf("macro %q failed to expand: %v", s.Name, err),
				&span, ""))
			return []ast.Stmt{s}
		}
		return r.expandStmts(expanded, diags)
	case *ast.If:
		s.Then = r.expandBlock(s.Then, diags)
		if s.Else != nil {
			s.Else = r.expandBlock(s.Else, diags)
		}
		return []ast.Stmt{s}
	case *ast.Loop:
		s.Body = r.expandBlock(s.Body, diags)
		return []ast.Stmt{s}
	case *ast.FuncDef:
		if s.Body != nil {
			s.Body = r.expandBlock(s.Body, diags)
		}
		return []ast.Stmt{s}
	default:
		return []ast.Stmt{s}
	}
}

func (r *Registry) expandBlock(b *ast.Block, diags *diag.Diagnostics) *ast.Block {
	if b == nil {
		return nil
	}
	b.Statements = r.expandStmts(b.Statements, diags)
	return b
}
