package javascript

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

func TestEmitRendersLetAndConsoleLog(t *testing.T) {
	lowered := lowerSrc(t, `x := 1 + 2; print(x);`)
	out, err := Pack{}.Emit(lowered, pack.Context{})
	require.NoError(t, err)
	assert.Contains(t, out, "let x = ")
	assert.Contains(t, out, "console.log(x)")
}

func TestEmitDeclaresOncePerScope(t *testing.T) {
	lowered := lowerSrc(t, `sum := 0; loop i in 0..3 { sum := sum + i; }`)
	out, err := Pack{}.Emit(lowered, pack.Context{})
	require.NoError(t, err)
	assert.Contains(t, out, "let sum = 0;")
	assert.Contains(t, out, "sum = (sum + i);")
	assert.NotContains(t, out, "let sum = (sum + i);")

	lowered = lowerSrc(t, `if true ? { x := 1; } : { x := 2; }`)
	out, err = Pack{}.Emit(lowered, pack.Context{})
	require.NoError(t, err)
	assert.Contains(t, out, "let x = 1;")
	assert.Contains(t, out, "let x = 2;")
}

func TestEmitStrictEqualityForComparisons(t *testing.T) {
	lowered := lowerSrc(t, `fn id(x):Any => x; y := @id(1) == @id(2);`)
	out, err := Pack{}.Emit(lowered, pack.Context{})
	require.NoError(t, err)
	assert.Contains(t, out, "===")
}

func TestEmitIsDeterministic(t *testing.T) {
	lowered := lowerSrc(t, `x := 1 + 2 * 3; print(x);`)
	first, err := Pack{}.Emit(lowered, pack.Context{})
	require.NoError(t, err)
	second, err := Pack{}.Emit(lowered, pack.Context{})
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestScaffoldIncludesPackageJSON(t *testing.T) {
	lowered := lowerSrc(t, `x := 1;`)
	emitted, err := Pack{}.Emit(lowered, pack.Context{})
	require.NoError(t, err)
	bundle, err := Pack{}.Scaffold(emitted, pack.Context{})
	require.NoError(t, err)
	assert.Equal(t, "main.js", bundle.PrimaryPath)
	assert.Contains(t, string(bundle.Files["package.json"]), `"type": "module"`)
}
