package sema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icl-lang/iclc/core/lexer"
	"github.com/icl-lang/iclc/core/parser"
)

func analyzeSrc(t *testing.T, src string) (*Result, error) {
	t.Helper()
	toks, err := lexer.Lex("<test>", src)
	require.NoError(t, err)
	prog, err := parser.Parse(toks)
	require.NoError(t, err)
	return Analyze(prog)
}

func TestAnalyzeArithmeticAssignment(t *testing.T) {
	_, err := analyzeSrc(t, `x := 1 + 2;`)
	require.NoError(t, err)
}

func TestAnalyzeForwardReferenceToLaterFunction(t *testing.T) {
	_, err := analyzeSrc(t, `x := @later(1); fn later(a:Num):Num => a;`)
	require.NoError(t, err, "top-level functions are pre-registered so forward calls do not fail SEM011")
}

func TestAnalyzeUndefinedIdentifierIsSEM001(t *testing.T) {
	_, err := analyzeSrc(t, `x := y + 1;`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SEM001")
}

func TestAnalyzeUndefinedCalleeIsSEM011(t *testing.T) {
	_, err := analyzeSrc(t, `x := @missing(1);`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SEM011")
}

func TestAnalyzeArityMismatchIsSEM013(t *testing.T) {
	_, err := analyzeSrc(t, `fn add(a:Num,b:Num):Num => a+b; x := @add(1);`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SEM013")
}

func TestAnalyzeExpressionBodyReturnMismatchIsSEM006(t *testing.T) {
	_, err := analyzeSrc(t, `fn f():Num => "x";`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SEM006")
}

func TestAnalyzeMissingReturnOnPathIsSEM005(t *testing.T) {
	_, err := analyzeSrc(t, `fn f():Num { if true ? { ret 1; } }`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SEM005")
}

func TestAnalyzeIfElseBothReturnIsOK(t *testing.T) {
	_, err := analyzeSrc(t, `fn f():Num { if true ? { ret 1; } : { ret 2; } }`)
	require.NoError(t, err)
}

func TestAnalyzeReturnOutsideFunctionIsSEM008(t *testing.T) {
	_, err := analyzeSrc(t, `ret 1;`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SEM008")
}

func TestAnalyzeConditionMustBeBoolIsSEM009(t *testing.T) {
	_, err := analyzeSrc(t, `if 1 ? { x := 1; }`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SEM009")
}

func TestAnalyzeLoopBoundsMustBeNumIsSEM012(t *testing.T) {
	_, err := analyzeSrc(t, `loop i in true..3 { }`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SEM012")
}

func TestAnalyzeNonCallableIsSEM018(t *testing.T) {
	_, err := analyzeSrc(t, `x := 1; y := @x(1);`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SEM018")
}

func TestAnalyzeArithmeticRequiresNumIsSEM015(t *testing.T) {
	_, err := analyzeSrc(t, `x := "a" + "b";`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SEM015")
}

func TestAnalyzeEqualityAcrossMixedBaseTypesIsSEM017(t *testing.T) {
	_, err := analyzeSrc(t, `x := 1 == "a";`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SEM017")
}

func TestAnalyzeEqualityWithAnySideIsOK(t *testing.T) {
	_, err := analyzeSrc(t, `fn id(x):Any => x; y := @id(1) == "a";`)
	require.NoError(t, err)
}

func TestAnalyzeLogicalRequiresBoolIsSEM019(t *testing.T) {
	_, err := analyzeSrc(t, `x := 1 && true;`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SEM019")
}

func TestAnalyzeBuiltinPrintArity(t *testing.T) {
	_, err := analyzeSrc(t, `print(1);`)
	require.NoError(t, err)

	_, err = analyzeSrc(t, `print(1, 2);`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SEM013")
}

func TestAnalyzeIfBranchAssignmentsAreNotExported(t *testing.T) {
	_, err := analyzeSrc(t, `if true ? { y := 1; } x := y;`)
	require.Error(t, err, "assignments made inside a branch scope must not leak to the enclosing scope")
	assert.Contains(t, err.Error(), "SEM001")
}

func TestAnalyzeMacroSurvivingToSemaIsSEM010(t *testing.T) {
	_, err := analyzeSrc(t, `#echo(1);`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SEM010")
}

func TestAnalyzeUnknownAnnotationIsSEM020(t *testing.T) {
	_, err := analyzeSrc(t, `x:Weird := 1;`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SEM020")
}
