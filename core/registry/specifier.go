// Package registry implements the pack registry: an
// in-memory map from target id (and aliases) to pack, with explicit
// register/unregister.
//
// The `module[:symbol]` loader specifier is small enough to express as a
// grammar rather than hand-rolled splitting, so it is parsed with
// participle/v2 rather than reusing core/lexer/core/parser — those exist
// for the ICL language itself, not for CLI flag syntax.
package registry

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Specifier is a parsed `module[:symbol]` loader reference.
// Symbol defaults to the conventional entry-point name when absent from
// the source text.
type Specifier struct {
	Module string `parser:"@Word"`
	Symbol string `parser:"( ':' @Word )?"`
}

// DefaultSymbol is the conventional pack entry-point symbol used when a
// specifier omits `:symbol`.
const DefaultSymbol = "Pack"

var specifierLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Word", Pattern: `[A-Za-z_][A-Za-z0-9_./\-]*`},
	{Name: "Colon", Pattern: `:`},
})

var specifierParser = participle.MustBuild[Specifier](
	participle.Lexer(specifierLexer),
	participle.Elide(),
)

// ParseSpecifier parses a `--pack`/`--plugin` flag value of the form
// `module[:symbol]`.
func ParseSpecifier(text string) (Specifier, error) {
	spec, err := specifierParser.ParseString("", text)
	if err != nil {
		return Specifier{}, err
	}
	if spec.Symbol == "" {
		spec.Symbol = DefaultSymbol
	}
	return *spec, nil
}
