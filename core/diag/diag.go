// Package diag provides the structured diagnostic type shared by every
// compiler stage, shaped around the {code, message, span, hint} contract
// required by the ICL host surface.
package diag

import (
	"errors"
	"fmt"
	"strings"

	"github.com/icl-lang/iclc/core/token"
)

// Family identifies which pipeline stage owns a diagnostic code.
type Family string

const (
	FamilyAlias    Family = "ALI"
	FamilyLex      Family = "LEX"
	FamilyParse    Family = "PAR"
	FamilyPlugin   Family = "PLG"
	FamilySemantic Family = "SEM"
	FamilyLowering Family = "LOW"
	FamilyPack     Family = "PACK"
	FamilyCLI      Family = "CLI"
	FamilyService  Family = "SRV"
)

// Sentinel errors so callers can classify a Diagnostic's stage with
// errors.Is without string-matching codes.
var (
	ErrAlias    = errors.New("alias normalization error")
	ErrLex      = errors.New("lexical error")
	ErrParse    = errors.New("parse error")
	ErrPlugin   = errors.New("macro/syntax plug-in error")
	ErrSemantic = errors.New("semantic error")
	ErrLowering = errors.New("lowering error")
	ErrPack     = errors.New("pack manifest/loader error")
	ErrCLI      = errors.New("CLI usage error")
	ErrService  = errors.New("service error")
)

var familySentinel = map[Family]error{
	FamilyAlias:    ErrAlias,
	FamilyLex:      ErrLex,
	FamilyParse:    ErrParse,
	FamilyPlugin:   ErrPlugin,
	FamilySemantic: ErrSemantic,
	FamilyLowering: ErrLowering,
	FamilyPack:     ErrPack,
	FamilyCLI:      ErrCLI,
	FamilyService:  ErrService,
}

// Diagnostic is one structured compiler error or warning: {code, message,
// span?, hint?} per the host explain/check/compile contract.
type Diagnostic struct {
	Code    string
	Message string
	Span    *token.Span
	Hint    string
}

func (d Diagnostic) family() Family {
	idx := strings.IndexFunc(d.Code, func(r rune) bool { return r >= '0' && r <= '9' })
	if idx <= 0 {
		return Family(d.Code)
	}
	return Family(d.Code[:idx])
}

// Error satisfies the error interface.
func (d Diagnostic) Error() string {
	var b strings.Builder
	b.WriteString(d.Code)
	if d.Span != nil {
		fmt.Fprintf(&b, " %s", d.Span)
	}
	b.WriteString(": ")
	b.WriteString(d.Message)
	if d.Hint != "" {
		fmt.Fprintf(&b, " (hint: %s)", d.Hint)
	}
	return b.String()
}

// Unwrap lets errors.Is(d, diag.ErrSemantic) classify a diagnostic by its
// owning stage without inspecting the code string directly.
func (d Diagnostic) Unwrap() error {
	if sentinel, ok := familySentinel[d.family()]; ok {
		return sentinel
	}
	return nil
}

// New constructs a Diagnostic with an optional span and hint.
func New(code, message string, span *token.Span, hint string) Diagnostic {
	return Diagnostic{Code: code, Message: message, Span: span, Hint: hint}
}

// Diagnostics aggregates diagnostics accumulated within a single stage
// (lexical and parse errors within one file; semantic errors within one
// module) while keeping every individual diagnostic inspectable.
type Diagnostics struct {
	Items []Diagnostic
}

// Add appends a diagnostic.
func (d *Diagnostics) Add(dg Diagnostic) {
	d.Items = append(d.Items, dg)
}

// HasErrors reports whether any diagnostic was recorded.
func (d *Diagnostics) HasErrors() bool {
	return len(d.Items) > 0
}

// Err returns the aggregate as an error, or nil if empty.
func (d *Diagnostics) Err() error {
	if len(d.Items) == 0 {
		return nil
	}
	return d
}

// Error renders every diagnostic, one per line.
func (d *Diagnostics) Error() string {
	lines := make([]string, len(d.Items))
	for i, item := range d.Items {
		lines[i] = item.Error()
	}
	return strings.Join(lines, "\n")
}

// Is lets a caller check whether the aggregate contains any diagnostic
// from a given family via errors.Is(diags, diag.ErrSemantic).
func (d *Diagnostics) Is(target error) bool {
	for _, item := range d.Items {
		if errors.Is(item, target) {
			return true
		}
	}
	return false
}
