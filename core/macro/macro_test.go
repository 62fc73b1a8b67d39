package macro

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icl-lang/iclc/core/ast"
	"github.com/icl-lang/iclc/core/lexer"
	"github.com/icl-lang/iclc/core/parser"
)

func parseProg(t *testing.T, src string) *ast.Program {
	t.Helper()
	toks, err := lexer.Lex("<test>", src)
	require.NoError(t, err)
	prog, err := parser.Parse(toks)
	require.NoError(t, err)
	return prog
}

func TestExpandEchoBuiltin(t *testing.T) {
	prog := parseProg(t, `#echo(1);`)
	require.NoError(t, Expand(DefaultRegistry(), prog))
	require.Len(t, prog.Statements, 1)
	exprStmt, ok := prog.Statements[0].(*ast.ExprStmt)
	require.True(t, ok)
	call, ok := exprStmt.Value.(*ast.Call)
	require.True(t, ok)
	assert.Equal(t, "print", call.Callee)
}

func TestExpandUnknownMacroIsPLG002(t *testing.T) {
	prog := parseProg(t, `#mystery(1);`)
	err := Expand(DefaultRegistry(), prog)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PLG002")
}

func TestExpandFailureIsPLG003(t *testing.T) {
	prog := parseProg(t, `#echo(1, 2);`)
	err := Expand(DefaultRegistry(), prog)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PLG003")
}

func TestExpandRecursesIntoNestedBlocks(t *testing.T) {
	prog := parseProg(t, `if true ? { #echo(1); }`)
	require.NoError(t, Expand(DefaultRegistry(), prog))
	ifStmt := prog.Statements[0].(*ast.If)
	require.Len(t, ifStmt.Then.Statements, 1)
	_, isMacro := ifStmt.Then.Statements[0].(*ast.MacroInvocation)
	assert.False(t, isMacro, "macro inside a block should be expanded in place")
}

func TestCustomExpanderRegistration(t *testing.T) {
	reg := NewRegistry()
	reg.Register("twice", func(call *ast.MacroInvocation) ([]ast.Stmt, error) {
		stmt := &ast.ExprStmt{Value: call.Args[0], SpanValue: call.SpanValue}
		return []ast.Stmt{stmt, stmt}, nil
	})
	prog := parseProg(t, `#twice(5);`)
	require.NoError(t, Expand(reg, prog))
	require.Len(t, prog.Statements, 2)
	exprStmt := prog.Statements[0].(*ast.ExprStmt)
	_, ok := exprStmt.Value.(*ast.NumberLit)
	assert.True(t, ok)
}
