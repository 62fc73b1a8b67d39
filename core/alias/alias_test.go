package alias

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icl-lang/iclc/core/lexer"
)

func relexOK(text string) error {
	_, err := lexer.Lex("<alias-test>", text)
	return err
}

func TestNormalizeCoreAliases(t *testing.T) {
	res, err := Normalize("<test>", `mkfn add(a:Num):Num => a; prnt(1);`, Core, relexOK)
	require.NoError(t, err)
	assert.Contains(t, res.Text, "fn add")
	assert.Contains(t, res.Text, "print(1)")
	require.Len(t, res.Trace, 2)
	assert.Equal(t, "mkfn", res.Trace[0].From)
	assert.Equal(t, "fn", res.Trace[0].To)
}

func TestNormalizeExtendedAliasesRequireExtendedMode(t *testing.T) {
	src := `x := yes and no;`

	core, err := Normalize("<test>", src, Core, relexOK)
	require.NoError(t, err)
	assert.Equal(t, src, core.Text, "extended aliases must not rewrite under core mode")

	ext, err := Normalize("<test>", src, Extended, relexOK)
	require.NoError(t, err)
	assert.Equal(t, `x := true && false;`, ext.Text)
}

func TestNormalizeLeavesStringLiteralsUntouched(t *testing.T) {
	res, err := Normalize("<test>", `x := "prnt and show";`, Extended, relexOK)
	require.NoError(t, err)
	assert.Equal(t, `x := "prnt and show";`, res.Text)
	assert.Empty(t, res.Trace)
}

func TestNormalizeLeavesLineCommentsUntouched(t *testing.T) {
	res, err := Normalize("<test>", "prnt(1); // prnt show and or\n", Extended, relexOK)
	require.NoError(t, err)
	assert.Contains(t, res.Text, "// prnt show and or")
	require.Len(t, res.Trace, 1, "only the live code prnt should be rewritten, not the comment")
}

func TestNormalizeWholeWordBoundary(t *testing.T) {
	res, err := Normalize("<test>", `prntx := 1;`, Core, relexOK)
	require.NoError(t, err)
	assert.Equal(t, `prntx := 1;`, res.Text, "prnt must not match inside a longer identifier")
	assert.Empty(t, res.Trace)
}

func TestNormalizeReportsALI001OnAmbiguousRewrite(t *testing.T) {
	failingRelex := func(string) error { return assert.AnError }
	_, err := Normalize("<test>", `prnt(1);`, Core, failingRelex)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ALI001")
}
