package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icl-lang/iclc/core/lower"
	"github.com/icl-lang/iclc/core/pack"
	"github.com/icl-lang/iclc/packs/python"
)

type fakePack struct {
	manifest pack.Manifest
}

func (f fakePack) Manifest() pack.Manifest { return f.manifest }
func (f fakePack) Emit(mod *lower.LoweredModule, ctx pack.Context) (string, error) {
	return "", nil
}
func (f fakePack) Scaffold(emitted string, ctx pack.Context) (pack.Bundle, error) {
	return pack.Bundle{PrimaryPath: "out", Files: map[string][]byte{"out": []byte(emitted)}}, nil
}

func newFake(id string, stability pack.Stability, aliases ...string) fakePack {
	return fakePack{manifest: pack.Manifest{
		PackID:          id,
		Target:          id,
		Aliases:         aliases,
		Stability:       stability,
		FeatureCoverage: lower.FeatureCoverage{},
		Scaffolding:     pack.Scaffolding{PrimaryFile: "out"},
	}}
}

func TestRegisterAndGetByIDAndAlias(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(newFake("demo", pack.Experimental, "d")))

	p, ok := r.Get("demo")
	require.True(t, ok)
	assert.Equal(t, "demo", p.Manifest().PackID)

	p, ok = r.Get("d")
	require.True(t, ok)
	assert.Equal(t, "demo", p.Manifest().PackID)

	_, ok = r.Get("missing")
	assert.False(t, ok)
}

func TestRegisterRejectsDuplicatePackID(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(newFake("demo", pack.Experimental)))
	err := r.Register(newFake("demo", pack.Experimental))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PACK002")
}

func TestRegisterRejectsConflictingAlias(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(newFake("demo", pack.Experimental, "shared")))
	err := r.Register(newFake("other", pack.Experimental, "shared"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PACK002")
}

func TestRegisterRejectsInvalidManifest(t *testing.T) {
	r := New()
	err := r.Register(newFake("", pack.Experimental))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PACK001")
}

func TestUnregisterRemovesPackAndAliases(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(newFake("demo", pack.Experimental, "d")))
	r.Unregister("demo")
	_, ok := r.Get("demo")
	assert.False(t, ok)
	_, ok = r.Get("d")
	assert.False(t, ok)
}

func TestListFiltersByStabilityAndSortsByID(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(newFake("zeta", pack.Stable)))
	require.NoError(t, r.Register(newFake("alpha", pack.Experimental)))
	require.NoError(t, r.Register(newFake("beta", pack.Stable)))

	all := r.List()
	require.Len(t, all, 3)
	assert.Equal(t, []string{"alpha", "beta", "zeta"}, []string{all[0].PackID, all[1].PackID, all[2].PackID})

	stableOnly := r.List(pack.Stable)
	require.Len(t, stableOnly, 2)
	assert.Equal(t, "beta", stableOnly[0].PackID)
	assert.Equal(t, "zeta", stableOnly[1].PackID)
}

func TestContractTestUnknownTargetIsPACK003(t *testing.T) {
	r := New()
	_, err := r.ContractTest([]string{"nope"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PACK003")
}

func TestContractTestStableGateHoldsWhenUndeclaredCasesFailExplicitly(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(newFake("demo", pack.Stable)))
	reports, err := r.ContractTest([]string{"demo"})
	require.NoError(t, err)
	require.Len(t, reports, 1)
	// demo declares no feature coverage, so every required case must be
	// rejected by the feature gate with LOW001, which satisfies the
	// declared-false contract.
	assert.True(t, reports[0].StableGate)
	assert.Empty(t, reports[0].FailedCases)
}

func TestContractTestAgainstRealPackPassesEveryCase(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(python.Pack{}))
	reports, err := r.ContractTest(nil)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.True(t, reports[0].StableGate)
	assert.Empty(t, reports[0].FailedCases)
}
