package python

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

func TestEmitRendersTypeHintsFromAnnotation(t *testing.T) {
	lowered := lowerSrc(t, `fn add(a:Num,b:Num):Num => a+b;`)
	out, err := Pack{}.Emit(lowered, pack.Context{})
	require.NoError(t, err)
	assert.Contains(t, out, "def add(a: float, b: float) -> float:")
}

func TestEmitIndentsNestedBlocks(t *testing.T) {
	lowered := lowerSrc(t, `if true ? { x := 1; } : { x := 2; }`)
	out, err := Pack{}.Emit(lowered, pack.Context{})
	require.NoError(t, err)
	assert.Contains(t, out, "if True:\n    x = 1\nelse:\n    x = 2\n")
}

func TestEmitEmptyModuleIsPass(t *testing.T) {
	lowered := lowerSrc(t, ``)
	out, err := Pack{}.Emit(lowered, pack.Context{})
	require.NoError(t, err)
	assert.Equal(t, "pass\n", out)
}

func TestEmitIsDeterministic(t *testing.T) {
	lowered := lowerSrc(t, `x := 1 + 2 * 3; print(x);`)
	first, err := Pack{}.Emit(lowered, pack.Context{})
	require.NoError(t, err)
	second, err := Pack{}.Emit(lowered, pack.Context{})
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestScaffoldPrependsShebang(t *testing.T) {
	lowered := lowerSrc(t, `x := 1;`)
	emitted, err := Pack{}.Emit(lowered, pack.Context{})
	require.NoError(t, err)
	bundle, err := Pack{}.Scaffold(emitted, pack.Context{})
	require.NoError(t, err)
	assert.Equal(t, "main.py", bundle.PrimaryPath)
	assert.Contains(t, string(bundle.Files["main.py"]), "#!/usr/bin/env python3\n")
}
