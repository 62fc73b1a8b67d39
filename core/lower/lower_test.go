package lower

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icl-lang/iclc/core/ir"
	"github.com/icl-lang/iclc/core/lexer"
	"github.com/icl-lang/iclc/core/parser"
	"github.com/icl-lang/iclc/core/sema"
)

func buildModule(t *testing.T, src string) (*ir.IRModule, ir.SourceMap) {
	t.Helper()
	toks, err := lexer.Lex("<test>", src)
	require.NoError(t, err)
	prog, err := parser.Parse(toks)
	require.NoError(t, err)
	types, err := sema.Analyze(prog)
	require.NoError(t, err)
	return ir.Build(prog, types)
}

func fullCoverage() FeatureCoverage {
	return FeatureCoverage{
		FeatureAssignment: true, FeatureTypedAnnotation: true, FeatureFunction: true,
		FeatureConditional: true, FeatureLoop: true, FeatureReturn: true, FeatureCall: true,
		FeatureLambda: true, FeatureBinaryOp: true, FeatureUnaryOp: true, FeatureLiteral: true, FeatureRef: true,
	}
}

func TestLowerExpressionBodyNormalization(t *testing.T) {
	mod, spans := buildModule(t, `fn add(a:Num,b:Num):Num => a+b;`)
	lowered, err := Lower(mod, Capabilities{Target: "test", Coverage: fullCoverage()}, spans, 1000)
	require.NoError(t, err)
	fn := lowered.Statements[0].(*ir.IRFunction)
	require.Nil(t, fn.ExprBody, "expression body must be rewritten to a block body")
	require.Len(t, fn.Body, 1)
	_, isReturn := fn.Body[0].(*ir.IRReturn)
	assert.True(t, isReturn)
}

func TestLowerDropsAtFlag(t *testing.T) {
	mod, spans := buildModule(t, `fn add(a:Num,b:Num):Num => a+b; x := @add(1,2);`)
	lowered, err := Lower(mod, Capabilities{Target: "test", Coverage: fullCoverage()}, spans, 1000)
	require.NoError(t, err)
	assign := lowered.Statements[1].(*ir.IRAssignment)
	call := assign.Value.(*ir.IRCall)
	assert.False(t, call.At, "lowering normalizes @-calls to plain calls")
}

func TestLowerMissingFeatureFailsLOW001(t *testing.T) {
	mod, spans := buildModule(t, `loop i in 0..3 { print(i); }`)
	coverage := fullCoverage()
	coverage[FeatureLoop] = false
	_, err := Lower(mod, Capabilities{Target: "test", Coverage: coverage}, spans, 1000)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LOW001")
}

func TestLowerUndeclaredFeatureFailsLOW001(t *testing.T) {
	mod, spans := buildModule(t, `x := 1 + 2;`)
	// coverage that simply omits binary_op entirely (absent == false)
	coverage := FeatureCoverage{FeatureAssignment: true, FeatureLiteral: true}
	_, err := Lower(mod, Capabilities{Target: "test", Coverage: coverage}, spans, 1000)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LOW001")
}

func TestLowerFallbackWarnEmitsLOW002(t *testing.T) {
	mod, spans := buildModule(t, `x := 1 + 2;`)
	coverage := fullCoverage()
	lowered, err := Lower(mod, Capabilities{
		Target: "test", Coverage: coverage,
		Fallbacks: map[string]FallbackMode{FeatureBinaryOp: FallbackWarn},
	}, spans, 1000)
	require.NoError(t, err)
	require.NotEmpty(t, lowered.Warnings.Items)
	assert.Contains(t, lowered.Warnings.Items[0].Code, "LOW002")
}

func TestLowerFallbackSubstituteEmitsLOW003(t *testing.T) {
	mod, spans := buildModule(t, `x := 1 + 2;`)
	coverage := fullCoverage()
	lowered, err := Lower(mod, Capabilities{
		Target: "test", Coverage: coverage,
		Fallbacks: map[string]FallbackMode{FeatureBinaryOp: FallbackSubstitute},
	}, spans, 1000)
	require.NoError(t, err)
	require.NotEmpty(t, lowered.Warnings.Items)
	assert.Contains(t, lowered.Warnings.Items[0].Code, "LOW003")
}

func TestLowerDiscoversDeclaredCallHelpers(t *testing.T) {
	mod, spans := buildModule(t, `print(1);`)
	lowered, err := Lower(mod, Capabilities{Target: "test", Coverage: fullCoverage(), Helpers: []string{"print"}}, spans, 1000)
	require.NoError(t, err)
	assert.Contains(t, lowered.Helpers, "print")
}

func TestLowerIgnoresUndeclaredCallees(t *testing.T) {
	mod, spans := buildModule(t, `fn add(a:Num,b:Num):Num => a+b; x := add(1,2); print(x);`)
	lowered, err := Lower(mod, Capabilities{Target: "test", Coverage: fullCoverage(), Helpers: []string{"print"}}, spans, 1000)
	require.NoError(t, err)
	assert.Equal(t, []string{"print"}, lowered.Helpers, "user-defined callees need no runtime injection")
}

func TestLowerNoHelpersWithoutInventory(t *testing.T) {
	mod, spans := buildModule(t, `print(1);`)
	lowered, err := Lower(mod, Capabilities{Target: "test", Coverage: fullCoverage()}, spans, 1000)
	require.NoError(t, err)
	assert.Empty(t, lowered.Helpers, "a pack that declares no runtime helpers discovers none")
}
