package rust

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icl-lang/iclc/core/ir"
	"github.com/icl-lang/iclc/core/lexer"
	"github.com/icl-lang/iclc/core/lower"
	"github.com/icl-lang/iclc/core/pack"
	"github.com/icl-lang/iclc/core/parser"
	"github.com/icl-lang/iclc/core/sema"
)

func lowerSrc(t *testing.T, src string) *lower.LoweredModule {
	t.Helper()
	toks, err := lexer.Lex("<t>", src)
	require.NoError(t, err)
	prog, err := parser.Parse(toks)
	require.NoError(t, err)
	types, err := sema.Analyze(prog)
	require.NoError(t, err)
	mod, spans := ir.Build(prog, types)
	lowered, err := lower.Lower(mod, Pack{}.Manifest().Capabilities(), spans, len(spans)+1)
	require.NoError(t, err)
	return lowered
}

func TestManifestPassesValidation(t *testing.T) {
	require.NoError(t, pack.Validate(Pack{}.Manifest()))
}

func TestContractSuitePassesEveryCase(t *testing.T) {
	for _, r := range pack.RunContractTests(Pack{}, pack.RequiredCoreCases) {
		assert.True(t, r.Pass, "case %s: %s", r.Case, r.Error)
	}
}

func TestEmitWrapsTopLevelStatementsInMain(t *testing.T) {
	lowered := lowerSrc(t, `x := 1 + 2;`)
	out, err := Pack{}.Emit(lowered, pack.Context{})
	require.NoError(t, err)
	assert.Contains(t, out, "fn main() {")
	assert.Contains(t, out, "let mut x = (1_f64 + 2_f64);")
}

func TestEmitRebindingAssignsWithoutShadowing(t *testing.T) {
	lowered := lowerSrc(t, `sum := 0; loop i in 0..3 { sum := sum + i; }`)
	out, err := Pack{}.Emit(lowered, pack.Context{})
	require.NoError(t, err)
	assert.Contains(t, out, "let mut sum = 0_f64;")
	assert.Contains(t, out, "sum = (sum + i);")
	assert.NotContains(t, out, "let mut sum = (sum + i);")
}

func TestEmitFunctionsRenderOutsideMain(t *testing.T) {
	lowered := lowerSrc(t, `fn add(a:Num,b:Num):Num => a+b; x := @add(1,2);`)
	out, err := Pack{}.Emit(lowered, pack.Context{})
	require.NoError(t, err)
	assert.Contains(t, out, "fn add(a: f64, b: f64) -> f64 {")
}

func TestEmitPrintUsesPrintlnMacro(t *testing.T) {
	lowered := lowerSrc(t, `print(1);`)
	out, err := Pack{}.Emit(lowered, pack.Context{})
	require.NoError(t, err)
	assert.Contains(t, out, `println!(`)
}

func TestScaffoldProducesCargoProject(t *testing.T) {
	lowered := lowerSrc(t, `x := 1;`)
	emitted, err := Pack{}.Emit(lowered, pack.Context{})
	require.NoError(t, err)
	bundle, err := Pack{}.Scaffold(emitted, pack.Context{})
	require.NoError(t, err)
	assert.Equal(t, "src/main.rs", bundle.PrimaryPath)
	assert.Contains(t, string(bundle.Files["Cargo.toml"]), "[package]")
}
