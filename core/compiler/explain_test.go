package compiler

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icl-lang/iclc/core/registry"
	"github.com/icl-lang/iclc/packs/python"
)

func TestExplainWithoutTargetOmitsLowered(t *testing.T) {
	result, err := Explain("<t>", `x := 1 + 2;`, Options{}, nil, "", nil)
	require.NoError(t, err)
	assert.Nil(t, result.Lowered)
	assert.NotNil(t, result.Graph)
}

func TestExplainWithTargetPopulatesLowered(t *testing.T) {
	caps := python.Pack{}.Manifest().Capabilities()
	result, err := Explain("<t>", `x := 1 + 2;`, Options{}, nil, "python", &caps)
	require.NoError(t, err)
	require.NotNil(t, result.Lowered)
	assert.Equal(t, "python", result.Lowered.Target)
}

func TestEncodeExplainProducesValidJSON(t *testing.T) {
	result, err := Explain("<t>", `x := 1 + 2;`, Options{}, nil, "", nil)
	require.NoError(t, err)
	data, err := EncodeExplain(result)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Contains(t, doc, "ast")
	assert.Contains(t, doc, "ir")
	assert.Contains(t, doc, "graph")
	assert.Contains(t, doc, "source_map")
}

func TestEncodeSourceMapKeysAreDecimalStrings(t *testing.T) {
	fe, err := RunFrontend("<t>", `x := 1;`, Options{}, nil)
	require.NoError(t, err)
	data, err := EncodeSourceMap(fe.SourceMap)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Len(t, doc, len(fe.SourceMap))
}

func TestExplainUncoveredFeatureSurfacesLOW001(t *testing.T) {
	reg := registry.New()
	require.NoError(t, reg.Register(python.Pack{}))
	caps := python.Pack{}.Manifest().Capabilities()
	caps.Coverage = nil // no features declared; any feature-bearing program fails LOW001
	_, err := Explain("<t>", `x := 1 + 2;`, Options{}, nil, "python", &caps)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LOW001")
}
