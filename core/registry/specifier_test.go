package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSpecifierModuleOnlyDefaultsSymbol(t *testing.T) {
	spec, err := ParseSpecifier("packs/python")
	require.NoError(t, err)
	assert.Equal(t, "packs/python", spec.Module)
	assert.Equal(t, DefaultSymbol, spec.Symbol)
}

func TestParseSpecifierModuleAndSymbol(t *testing.T) {
	spec, err := ParseSpecifier("packs/custom:MyPack")
	require.NoError(t, err)
	assert.Equal(t, "packs/custom", spec.Module)
	assert.Equal(t, "MyPack", spec.Symbol)
}

func TestParseSpecifierRejectsEmptyInput(t *testing.T) {
	_, err := ParseSpecifier("")
	require.Error(t, err)
}
