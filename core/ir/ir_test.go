package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icl-lang/iclc/core/lexer"
	"github.com/icl-lang/iclc/core/parser"
	"github.com/icl-lang/iclc/core/sema"
)

func buildFrom(t *testing.T, src string) (*IRModule, SourceMap) {
	t.Helper()
	toks, err := lexer.Lex("<test>", src)
	require.NoError(t, err)
	prog, err := parser.Parse(toks)
	require.NoError(t, err)
	types, err := sema.Analyze(prog)
	require.NoError(t, err)
	return Build(prog, types)
}

func TestBuildAssignsSequentialIDsStartingAtOne(t *testing.T) {
	_, spans := buildFrom(t, `x := 1 + 2;`)
	ids := make([]int, 0, len(spans))
	for id := range spans {
		ids = append(ids, id)
	}
	require.NotEmpty(t, ids)
	min, max := ids[0], ids[0]
	for _, id := range ids {
		if id < min {
			min = id
		}
		if id > max {
			max = id
		}
	}
	assert.Equal(t, 1, min)
	assert.Equal(t, len(ids), max, "ids must be a contiguous 1..n range with no gaps")
}

func TestBuildSourceMapSpansLieWithinSource(t *testing.T) {
	src := `x := 1 + 2;`
	_, spans := buildFrom(t, src)
	for id, span := range spans {
		assert.LessOrEqual(t, span.Start.Offset, len(src), "node %d span starts within source", id)
		assert.LessOrEqual(t, span.End.Offset, len(src), "node %d span ends within source", id)
	}
}

func TestBuildExpressionBodyFunctionKeepsExprBody(t *testing.T) {
	mod, _ := buildFrom(t, `fn add(a:Num,b:Num):Num => a+b;`)
	require.Len(t, mod.Statements, 1)
	fn, ok := mod.Statements[0].(*IRFunction)
	require.True(t, ok)
	assert.NotNil(t, fn.ExprBody)
	assert.Nil(t, fn.Body)
}

func TestBuildPreservesAtFlagAsMetadata(t *testing.T) {
	mod, _ := buildFrom(t, `x := @add(1,2); fn add(a:Num,b:Num):Num => a+b;`)
	assign := mod.Statements[0].(*IRAssignment)
	call, ok := assign.Value.(*IRCall)
	require.True(t, ok)
	assert.True(t, call.At)
}

func TestBuildPreservesStatementOrder(t *testing.T) {
	mod, _ := buildFrom(t, `a := 1; b := 2; c := 3;`)
	require.Len(t, mod.Statements, 3)
	names := []string{}
	for _, s := range mod.Statements {
		names = append(names, s.(*IRAssignment).Name)
	}
	assert.Equal(t, []string{"a", "b", "c"}, names)
}

func TestBuildGroupHasNoOwnIRNode(t *testing.T) {
	mod, _ := buildFrom(t, `x := (1 + 2) * 3;`)
	assign := mod.Statements[0].(*IRAssignment)
	top, ok := assign.Value.(*IRBinary)
	require.True(t, ok)
	assert.Equal(t, "*", top.Op)
	_, leftIsBinary := top.Left.(*IRBinary)
	assert.True(t, leftIsBinary, "the grouped sub-expression still lowers to its own binary node, just without a Group wrapper")
}

func TestBuildLiteralTypesAreTagged(t *testing.T) {
	mod, _ := buildFrom(t, `x := 1; y := "s"; z := true;`)
	assert.Equal(t, sema.Num, mod.Statements[0].(*IRAssignment).Value.Type())
	assert.Equal(t, sema.Str, mod.Statements[1].(*IRAssignment).Value.Type())
	assert.Equal(t, sema.Bool, mod.Statements[2].(*IRAssignment).Value.Type())
}

func TestOptimizeConstantFoldsArithmetic(t *testing.T) {
	mod, _ := buildFrom(t, `x := 1 + 2; print(x);`)
	folded := Optimize(mod.Statements)
	require.Len(t, folded, 2)
	assign := folded[0].(*IRAssignment)
	lit, ok := assign.Value.(*IRLiteral)
	require.True(t, ok, "constant arithmetic should fold to a literal")
	assert.Equal(t, 3.0, lit.Num)
}

func TestOptimizeRemovesDeadAssignments(t *testing.T) {
	mod, _ := buildFrom(t, `x := 1; y := 2; print(y);`)
	folded := Optimize(mod.Statements)
	for _, s := range folded {
		if a, ok := s.(*IRAssignment); ok {
			assert.NotEqual(t, "x", a.Name, "x is never referenced again and should be dropped")
		}
	}
	require.Len(t, folded, 2, "y's assignment and the print call survive")
}
