// Package pack defines the language-pack contract: the
// `emit`/`scaffold` operations and the manifest shape packs must
// implement, plus content hashing so repeated output can be compared
// byte for byte.
package pack

import (
	"encoding/hex"

	"github.com/icl-lang/iclc/core/lower"
	"github.com/zeebo/blake3"
)

// Stability is the maturity level a pack declares for itself.
type Stability string

const (
	Experimental Stability = "experimental"
	Beta         Stability = "beta"
	Stable       Stability = "stable"
)

// BlockModel is how a target shapes statement blocks.
type BlockModel string

const (
	BlockIndent BlockModel = "indent"
	BlockBraces BlockModel = "braces"
	BlockTags   BlockModel = "tags"
	BlockOther  BlockModel = "other"
)

// StatementTermination is how a target ends a statement.
type StatementTermination string

const (
	TermNewline   StatementTermination = "newline"
	TermSemicolon StatementTermination = "semicolon"
	TermCustom    StatementTermination = "custom"
)

// TypeStrategy describes how a target's pack renders the symbolic type
// lattice (e.g. erased at runtime, or reified via a typed host language).
type TypeStrategy struct {
	Description string
	Erased      bool
}

// Scaffolding describes the file layout a pack's scaffold step produces.
type Scaffolding struct {
	PrimaryFile     string
	AdditionalFiles []string
	Entrypoint      string
}

// Manifest is the full pack manifest record.
type Manifest struct {
	PackID               string
	Version              string
	Target               string
	Aliases              []string
	Stability            Stability
	FileExtension        string
	BlockModel           BlockModel
	StatementTermination StatementTermination
	TypeStrategy         TypeStrategy
	RuntimeHelpers       []string
	Scaffolding          Scaffolding
	FeatureCoverage      lower.FeatureCoverage
	Fallbacks            map[string]lower.FallbackMode
}

// Capabilities projects the lowering-relevant slice of the manifest, the
// view core/lower actually consumes.
func (m Manifest) Capabilities() lower.Capabilities {
	return lower.Capabilities{Target: m.Target, Coverage: m.FeatureCoverage, Fallbacks: m.Fallbacks, Helpers: m.RuntimeHelpers}
}

// Context carries per-compilation parameters into emit/scaffold (e.g.
// whether `--optimize`/`--debug` were requested) without growing their
// function signatures every time a new flag is added.
type Context struct {
	Optimize bool
	Debug    bool
	Natural  bool
}

// Bundle is the scaffold step's output: a primary path plus
// zero or more additional files, each keyed by path.
type Bundle struct {
	PrimaryPath string
	Files       map[string][]byte
}

// Hash returns the deterministic blake3 content hash of a bundle's
// primary file, so two scaffolds' primary output can be compared byte
// for byte (the contract-test harness itself compares emitted text
// directly).
func (b Bundle) Hash() string {
	h := blake3.New()
	_, _ = h.Write(b.Files[b.PrimaryPath])
	return hex.EncodeToString(h.Sum(nil))
}

// Pack is the operation contract every language pack implements.
// Contracts: packs never read source text, tokens, or AST —
// only lowered IR; Emit must be deterministic and side-effect-free.
type Pack interface {
	Manifest() Manifest
	Emit(mod *lower.LoweredModule, ctx Context) (string, error)
	Scaffold(emitted string, ctx Context) (Bundle, error)
}
