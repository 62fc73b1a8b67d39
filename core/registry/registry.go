package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/icl-lang/iclc/core/pack"
)

// Registry is process-wide pack state: an in-memory mapping from target
// id (and aliases) to pack, with no implicit discovery at call time
// — every pack reaches the registry through an explicit
// Register call, typically made by a host program's process-start
// wiring.
type Registry struct {
	mu      sync.RWMutex
	byID    map[string]pack.Pack
	aliases map[string]string // alias -> canonical pack_id
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{byID: make(map[string]pack.Pack), aliases: make(map[string]string)}
}

// Register adds p under its manifest's pack_id and aliases. Pack
// identifiers must be globally unique; registering a
// duplicate id is an error.
func (r *Registry) Register(p pack.Pack) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m := p.Manifest()
	if err := pack.Validate(m); err != nil {
		return fmt.Errorf("PACK001: %w", err)
	}
	if _, exists := r.byID[m.PackID]; exists {
		return fmt.Errorf("PACK002: pack id %q is already registered", m.PackID)
	}
	r.byID[m.PackID] = p
	for _, alias := range m.Aliases {
		if owner, exists := r.aliases[alias]; exists && owner != m.PackID {
			return fmt.Errorf("PACK002: alias %q already routes to %q", alias, owner)
		}
		r.aliases[alias] = m.PackID
	}
	return nil
}

// Unregister removes a pack and its aliases.
func (r *Registry) Unregister(packID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, packID)
	for alias, owner := range r.aliases {
		if owner == packID {
			delete(r.aliases, alias)
		}
	}
}

// Get resolves a target id or alias to its pack.
func (r *Registry) Get(target string) (pack.Pack, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.byID[target]; ok {
		return p, true
	}
	if canonical, ok := r.aliases[target]; ok {
		p, ok := r.byID[canonical]
		return p, ok
	}
	return nil, false
}

// List returns every registered pack's manifest whose stability is in
// filter, or every manifest if filter is empty, ordered by pack_id for
// deterministic output.
func (r *Registry) List(filter ...pack.Stability) []pack.Manifest {
	r.mu.RLock()
	defer r.mu.RUnlock()

	allowed := make(map[pack.Stability]bool, len(filter))
	for _, s := range filter {
		allowed[s] = true
	}

	ids := make([]string, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var out []pack.Manifest
	for _, id := range ids {
		m := r.byID[id].Manifest()
		if len(allowed) == 0 || allowed[m.Stability] {
			out = append(out, m)
		}
	}
	return out
}

// ContractReport is the result of running the fixed contract corpus
// against one pack.
type ContractReport struct {
	PackID      string
	StableGate  bool // false only when a stable pack has a failing case
	Results     []pack.CaseResult
	FailedCases []string
}

// ContractTest runs pack.RequiredCoreCases against every target in
// targets (or every registered pack if targets is empty) and asserts the
// stable-gate invariant: a `stable` pack must pass 100% of
// required-core cases for every feature it declares true.
func (r *Registry) ContractTest(targets []string) ([]ContractReport, error) {
	r.mu.RLock()
	ids := targets
	if len(ids) == 0 {
		for id := range r.byID {
			ids = append(ids, id)
		}
		sort.Strings(ids)
	}
	r.mu.RUnlock()

	var reports []ContractReport
	for _, id := range ids {
		p, ok := r.Get(id)
		if !ok {
			return nil, fmt.Errorf("PACK003: unknown target %q", id)
		}
		results := pack.RunContractTests(p, pack.RequiredCoreCases)
		report := ContractReport{PackID: p.Manifest().PackID, StableGate: true, Results: results}
		for _, res := range results {
			if !res.Pass {
				report.FailedCases = append(report.FailedCases, res.Case)
			}
		}
		if p.Manifest().Stability == pack.Stable && len(report.FailedCases) > 0 {
			report.StableGate = false
		}
		reports = append(reports, report)
	}
	return reports, nil
}
