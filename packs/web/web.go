// Package web implements a pack.Pack targeting a static web page: a
// compiled module becomes an ES module loaded by a minimal HTML shell,
// scaffolded as three files (index.html, app.js, styles.css).
package web

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/icl-lang/iclc/core/ir"
	"github.com/icl-lang/iclc/core/lower"
	"github.com/icl-lang/iclc/core/pack"
)

// Pack is the web language pack.
type Pack struct{}

var binaryOps = map[string]string{
	"&&": "&&", "||": "||", "==": "===", "!=": "!==",
	"<": "<", "<=": "<=", ">": ">", ">=": ">=",
	"+": "+", "-": "-", "*": "*", "/": "/", "%": "%",
}

var unaryOps = map[string]string{"!": "!", "-": "-", "+": "+"}

// Manifest describes the web target's capabilities, identical in feature
// coverage to the plain JavaScript target since the rendered script is
// itself JavaScript; only the scaffold differs.
func (Pack) Manifest() pack.Manifest {
	return pack.Manifest{
		PackID:               "web",
		Version:              "0.1.0",
		Target:               "web",
		Aliases:              []string{"html"},
		Stability:            pack.Beta,
		FileExtension:        ".html",
		BlockModel:           pack.BlockBraces,
		StatementTermination: pack.TermSemicolon,
		TypeStrategy:         pack.TypeStrategy{Description: "symbolic types are fully erased at emit time", Erased: true},
		RuntimeHelpers:       []string{"print"},
		Scaffolding: pack.Scaffolding{
			PrimaryFile:     "index.html",
			AdditionalFiles: []string{"app.js", "styles.css"},
			Entrypoint:      "index.html",
		},
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
			lower.FeatureTypedAnnotation: lower.FallbackWarn,
		},
	}
}

type emitter struct {
	b      strings.Builder
	indent int
	// scopes tracks names already declared with `let`, innermost last, so
	// a rebinding emits a plain assignment instead of redeclaring.
	scopes []map[string]bool
}

func (e *emitter) pushScope() { e.scopes = append(e.scopes, map[string]bool{}) }
func (e *emitter) popScope()  { e.scopes = e.scopes[:len(e.scopes)-1] }

// declare reports whether name needs a `let`, recording it in the
// innermost scope when it does.
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
	e.b.WriteString(strings.Repeat("  ", e.indent))
	fmt.Fprintf(&e.b, format, args...)
	e.b.WriteByte('\n')
}

// Emit renders a lowered module as the body of app.js. `print` calls
// route to the `icl_print` runtime helper, which the scaffold step
// defines to append a line to the page instead of a terminal, since a
// browser script has no console the end user will ever see.
func (Pack) Emit(mod *lower.LoweredModule, ctx pack.Context) (string, error) {
	e := &emitter{scopes: []map[string]bool{{}}}
	e.emitStmts(mod.Statements)
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
		if e.declare(s.Name) {
			e.line("let %s = %s;", s.Name, e.expr(s.Value))
		} else {
			e.line("%s = %s;", s.Name, e.expr(s.Value))
		}

	case *ir.IRFunction:
		params := make([]string, 0, len(s.Params))
		for _, p := range s.Params {
			params = append(params, p.Name)
		}
		e.line("function %s(%s) {", s.Name, strings.Join(params, ", "))
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
		e.line("if (%s) {", e.expr(s.Cond))
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
		e.line("for (let %s = %s; %s < %s; %s++) {", s.Iterator, e.expr(s.Start), s.Iterator, e.expr(s.End), s.Iterator)
		e.indent++
		e.pushScope()
		e.scopes[len(e.scopes)-1][s.Iterator] = true
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
			return strconv.FormatFloat(x.Num, 'g', -1, 64)
		case ir.LitStr:
			return strconv.Quote(x.Str)
		case ir.LitBool:
			if x.Bool {
				return "true"
			}
			return "false"
		}
		return "null"

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
		callee := x.Callee
		if callee == "print" {
			callee = "icl_print"
		}
		return fmt.Sprintf("%s(%s)", callee, strings.Join(args, ", "))

	case *ir.IRLambda:
		params := make([]string, 0, len(x.Params))
		for _, p := range x.Params {
			params = append(params, p.Name)
		}
		return fmt.Sprintf("((%s) => %s)", strings.Join(params, ", "), e.expr(x.Body))

	default:
		return "null"
	}
}

const stylesCSS = `body {
  font-family: system-ui, sans-serif;
  margin: 2rem;
}
#icl-output {
  white-space: pre-wrap;
  border: 1px solid #ccc;
  padding: 1rem;
}
`

const runtimePrelude = `function icl_print(...args) {
  const line = document.createElement("div");
  line.textContent = args.join(" ");
  document.getElementById("icl-output").appendChild(line);
}
`

// Scaffold assembles the index.html/app.js/styles.css bundle.
func (Pack) Scaffold(emitted string, ctx pack.Context) (pack.Bundle, error) {
	appJS := runtimePrelude + "\n" + emitted

	html := `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>ICL output</title>
  <link rel="stylesheet" href="styles.css">
</head>
<body>
  <div id="icl-output"></div>
  <script type="module" src="app.js"></script>
</body>
</html>
`

	return pack.Bundle{
		PrimaryPath: "index.html",
		Files: map[string][]byte{
			"index.html": []byte(html),
			"app.js":     []byte(appJS),
			"styles.css": []byte(stylesCSS),
		},
	}, nil
}
