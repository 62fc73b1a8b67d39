// Package rust implements a pack.Pack targeting Rust, the corpus's one
// statically typed, ahead-of-time compiled target — symbolic types are
// reified as concrete Rust types rather than erased or hinted.
package rust

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/icl-lang/iclc/core/ir"
	"github.com/icl-lang/iclc/core/lower"
	"github.com/icl-lang/iclc/core/pack"
)

// Pack is the Rust language pack.
type Pack struct{}

var binaryOps = map[string]string{
	"&&": "&&",
	"||": "||",
	"==": "==",
	"!=": "!=",
	"<":  "<",
	"<=": "<=",
	">":  ">",
	">=": ">=",
	"+":  "+",
	"-":  "-",
	"*":  "*",
	"/":  "/",
	"%":  "%",
}

var unaryOps = map[string]string{
	"!": "!",
	"-": "-",
	"+": "",
}

// Manifest describes the Rust target's capabilities. Num, Str, Bool and
// Void annotations map to f64, String, bool and (); any other annotation
// (including `Any`) leaves a `let` binding to Rust's type inference and
// renders a function parameter as f64. Typed annotations use a
// substitute-grade fallback, reported as LOW003 on the typed-annotation
// feature.
func (Pack) Manifest() pack.Manifest {
	return pack.Manifest{
		PackID:               "rust",
		Version:              "0.1.0",
		Target:               "rust",
		Aliases:              []string{"rs"},
		Stability:            pack.Beta,
		FileExtension:        ".rs",
		BlockModel:           pack.BlockBraces,
		StatementTermination: pack.TermSemicolon,
		TypeStrategy:         pack.TypeStrategy{Description: "symbolic types reify to concrete Rust types; Any substitutes inferred bindings", Erased: false},
		RuntimeHelpers:       nil,
		Scaffolding:          pack.Scaffolding{PrimaryFile: "src/main.rs", AdditionalFiles: []string{"Cargo.toml"}, Entrypoint: "src/main.rs"},
		FeatureCoverage: lower.FeatureCoverage{
			lower.FeatureAssignment:      true,
			lower.FeatureTypedAnnotation: true,
			lower.FeatureFunction:        true,
			lower.FeatureConditional:     true,
			lower.FeatureLoop:            true,
			lower.FeatureReturn:          true,
			lower.FeatureCall:            true,
			lower.FeatureLambda:          true,
			lower.FeatureBinaryOp:        true,
			lower.FeatureUnaryOp:         true,
			lower.FeatureLiteral:         true,
			lower.FeatureRef:             true,
		},
		Fallbacks: map[string]lower.FallbackMode{
			lower.FeatureTypedAnnotation: lower.FallbackSubstitute,
		},
	}
}

func rustType(annotation string) string {
	switch annotation {
	case "Num":
		return "f64"
	case "Str":
		return "String"
	case "Bool":
		return "bool"
	case "Void":
		return "()"
	default:
		return ""
	}
}

type emitter struct {
	b      strings.Builder
	indent int
	// scopes tracks names already bound with `let mut`, innermost last, so
	// a rebinding assigns instead of shadowing (shadowing inside a loop
	// body would drop the new value at the end of every iteration).
	scopes []map[string]bool
}

func (e *emitter) pushScope() { e.scopes = append(e.scopes, map[string]bool{}) }
func (e *emitter) popScope()  { e.scopes = e.scopes[:len(e.scopes)-1] }

func (e *emitter) declare(name string) bool {
	for _, scope := range e.scopes {
		if scope[name] {
			return false
		}
	}
	e.scopes[len(e.scopes)-1][name] = true
	return true
}

func (e *emitter) line(format string, args ...any) {
	e.b.WriteString(strings.Repeat("    ", e.indent))
	fmt.Fprintf(&e.b, format, args...)
	e.b.WriteByte('\n')
}

// Emit renders a lowered module as Rust source. Top-level assignments and
// expression statements are wrapped in a synthesized `main`, since Rust
// has no notion of module-scope executable statements outside a function.
func (Pack) Emit(mod *lower.LoweredModule, ctx pack.Context) (string, error) {
	e := &emitter{scopes: []map[string]bool{{}}}

	var fns []ir.Stmt
	var body []ir.Stmt
	for _, s := range mod.Statements {
		if _, ok := s.(*ir.IRFunction); ok {
			fns = append(fns, s)
		} else {
			body = append(body, s)
		}
	}

	for _, fn := range fns {
		e.emitStmt(fn)
		e.b.WriteByte('\n')
	}

	e.line("fn main() {")
	e.indent++
	e.emitStmts(body)
	e.indent--
	e.line("}")

	return e.b.String(), nil
}

func (e *emitter) emitStmts(stmts []ir.Stmt) {
	for _, s := range stmts {
		e.emitStmt(s)
	}
}

func (e *emitter) emitStmt(stmt ir.Stmt) {
	switch s := stmt.(type) {
	case *ir.IRAssignment:
		if !e.declare(s.Name) {
			e.line("%s = %s;", s.Name, e.expr(s.Value))
		} else if t := rustType(s.Annotation); t != "" {
			e.line("let mut %s: %s = %s;", s.Name, t, e.expr(s.Value))
		} else {
			e.line("let mut %s = %s;", s.Name, e.expr(s.Value))
		}

	case *ir.IRFunction:
		params := make([]string, 0, len(s.Params))
		for _, p := range s.Params {
			t := rustType(p.Annotation)
			if t == "" {
				t = "f64"
			}
			params = append(params, fmt.Sprintf("%s: %s", p.Name, t))
		}
		ret := rustType(s.Return)
		sig := fmt.Sprintf("fn %s(%s)", s.Name, strings.Join(params, ", "))
		if ret != "" && ret != "()" {
			sig += " -> " + ret
		}
		e.line("%s {", sig)
		e.indent++
		e.pushScope()
		for _, p := range s.Params {
			e.scopes[len(e.scopes)-1][p.Name] = true
		}
		e.emitStmts(s.Body)
		e.popScope()
		e.indent--
		e.line("}")

	case *ir.IRIf:
		e.line("if %s {", e.expr(s.Cond))
		e.indent++
		e.pushScope()
		e.emitStmts(s.Then)
		e.popScope()
		e.indent--
		if s.Else != nil {
			e.line("} else {")
			e.indent++
			e.pushScope()
			e.emitStmts(s.Else)
			e.popScope()
			e.indent--
		}
		e.line("}")

	case *ir.IRLoop:
		e.line("for %s in (%s as i64)..(%s as i64) {", s.Iterator, e.expr(s.Start), e.expr(s.End))
		e.indent++
		e.pushScope()
		e.scopes[len(e.scopes)-1][s.Iterator] = true
		// The range iterates i64; the body computes in f64.
		e.line("let %s = %s as f64;", s.Iterator, s.Iterator)
		e.emitStmts(s.Body)
		e.popScope()
		e.indent--
		e.line("}")

	case *ir.IRReturn:
		if s.Value == nil {
			e.line("return;")
		} else {
			e.line("return %s;", e.expr(s.Value))
		}

	case *ir.IRExpressionStmt:
		if s.Value != nil {
			e.line("%s;", e.expr(s.Value))
		}

	default:
		e.line("// unrecognized statement %T", stmt)
	}
}

func (e *emitter) expr(expr ir.Expr) string {
	switch x := expr.(type) {
	case *ir.IRLiteral:
		switch x.Kind {
		case ir.LitNum:
			return strconv.FormatFloat(x.Num, 'g', -1, 64) + "_f64"
		case ir.LitStr:
			return strconv.Quote(x.Str) + ".to_string()"
		case ir.LitBool:
			if x.Bool {
				return "true"
			}
			return "false"
		}
		return "()"

	case *ir.IRRef:
		return x.Name

	case *ir.IRUnary:
		return unaryOps[x.Op] + e.expr(x.Operand)

	case *ir.IRBinary:
		return fmt.Sprintf("(%s %s %s)", e.expr(x.Left), binaryOps[x.Op], e.expr(x.Right))

	case *ir.IRCall:
		args := make([]string, 0, len(x.Args))
		for _, a := range x.Args {
			args = append(args, e.expr(a))
		}
		if x.Callee == "print" {
			placeholders := strings.Repeat("{} ", len(args))
			return fmt.Sprintf(`println!("%s", %s)`, strings.TrimSpace(placeholders), strings.Join(args, ", "))
		}
		return fmt.Sprintf("%s(%s)", x.Callee, strings.Join(args, ", "))

	case *ir.IRLambda:
		params := make([]string, 0, len(x.Params))
		for _, p := range x.Params {
			params = append(params, p.Name)
		}
		return fmt.Sprintf("(|%s| %s)", strings.Join(params, ", "), e.expr(x.Body))

	default:
		return "()"
	}
}

// Scaffold wraps the emitted module in a minimal Cargo project.
func (Pack) Scaffold(emitted string, ctx pack.Context) (pack.Bundle, error) {
	cargoToml := `[package]
name = "icl-output"
version = "0.1.0"
edition = "2021"
`
	return pack.Bundle{
		PrimaryPath: "src/main.rs",
		Files: map[string][]byte{
			"src/main.rs": []byte(emitted),
			"Cargo.toml":  []byte(cargoToml),
		},
	}, nil
}
