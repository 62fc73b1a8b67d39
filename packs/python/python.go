// Package python implements a pack.Pack targeting Python 3: the
// reference "erased types, indentation blocks" target against which
// the other packs' structural fallbacks are most often compared.
package python

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/icl-lang/iclc/core/ir"
	"github.com/icl-lang/iclc/core/lower"
	"github.com/icl-lang/iclc/core/pack"
)

// Pack is the Python language pack.
type Pack struct{}

var binaryOps = map[string]string{
	"&&": "and",
	"||": "or",
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
	"!": "not ",
	"-": "-",
	"+": "+",
}

// Manifest describes the Python target's capabilities. Python's
// dynamic typing lets it express every construct directly; annotations
// become PEP 484 type hints rather than being erased outright.
func (Pack) Manifest() pack.Manifest {
	return pack.Manifest{
		PackID:               "python",
		Version:              "0.1.0",
		Target:               "python",
		Aliases:              []string{"py"},
		Stability:            pack.Stable,
		FileExtension:        ".py",
		BlockModel:           pack.BlockIndent,
		StatementTermination: pack.TermNewline,
		TypeStrategy:         pack.TypeStrategy{Description: "symbolic types render as PEP 484 type hints; Any becomes untyped", Erased: false},
		RuntimeHelpers:       nil,
		Scaffolding:          pack.Scaffolding{PrimaryFile: "main.py", Entrypoint: "main.py"},
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
	}
}

type emitter struct {
	b      strings.Builder
	indent int
}

func (e *emitter) line(format string, args ...any) {
	e.b.WriteString(strings.Repeat("    ", e.indent))
	fmt.Fprintf(&e.b, format, args...)
	e.b.WriteByte('\n')
}

// Emit renders a lowered module as Python source. Output is deterministic: identical input produces
// byte-identical text, since rendering carries no hidden state beyond the
// tree itself.
func (Pack) Emit(mod *lower.LoweredModule, ctx pack.Context) (string, error) {
	e := &emitter{}
	if len(mod.Statements) == 0 {
		e.line("pass")
	}
	e.emitStmts(mod.Statements)
	return e.b.String(), nil
}

func (e *emitter) emitStmts(stmts []ir.Stmt) {
	for _, s := range stmts {
		e.emitStmt(s)
	}
}

func pyType(annotation string) string {
	switch annotation {
	case "Num":
		return "float"
	case "Str":
		return "str"
	case "Bool":
		return "bool"
	case "Fn":
		return "Callable"
	case "Void":
		return "None"
	default:
		return ""
	}
}

func (e *emitter) emitStmt(stmt ir.Stmt) {
	switch s := stmt.(type) {
	case *ir.IRAssignment:
		hint := ""
		if s.Annotation != "" {
			if t := pyType(s.Annotation); t != "" {
				hint = ": " + t
			}
		}
		e.line("%s%s = %s", s.Name, hint, e.expr(s.Value))

	case *ir.IRFunction:
		params := make([]string, 0, len(s.Params))
		for _, p := range s.Params {
			if t := pyType(p.Annotation); t != "" {
				params = append(params, fmt.Sprintf("%s: %s", p.Name, t))
			} else {
				params = append(params, p.Name)
			}
		}
		ret := ""
		if t := pyType(s.Return); t != "" {
			ret = " -> " + t
		}
		e.line("def %s(%s)%s:", s.Name, strings.Join(params, ", "), ret)
		e.indent++
		if len(s.Body) == 0 {
			e.line("pass")
		}
		e.emitStmts(s.Body)
		e.indent--

	case *ir.IRIf:
		e.line("if %s:", e.expr(s.Cond))
		e.indent++
		if len(s.Then) == 0 {
			e.line("pass")
		}
		e.emitStmts(s.Then)
		e.indent--
		if s.Else != nil {
			e.line("else:")
			e.indent++
			if len(s.Else) == 0 {
				e.line("pass")
			}
			e.emitStmts(s.Else)
			e.indent--
		}

	case *ir.IRLoop:
		e.line("for %s in range(%s, %s):", s.Iterator, e.rangeBound(s.Start), e.rangeBound(s.End))
		e.indent++
		if len(s.Body) == 0 {
			e.line("pass")
		}
		e.emitStmts(s.Body)
		e.indent--

	case *ir.IRReturn:
		if s.Value == nil {
			e.line("return")
		} else {
			e.line("return %s", e.expr(s.Value))
		}

	case *ir.IRExpressionStmt:
		if s.Value != nil {
			e.line("%s", e.expr(s.Value))
		}

	default:
		e.line("# unrecognized statement %T", stmt)
	}
}

func (e *emitter) expr(expr ir.Expr) string {
	switch x := expr.(type) {
	case *ir.IRLiteral:
		switch x.Kind {
		case ir.LitNum:
			return formatNum(x.Num)
		case ir.LitStr:
			return strconv.Quote(x.Str)
		case ir.LitBool:
			if x.Bool {
				return "True"
			}
			return "False"
		}
		return "None"

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
		return fmt.Sprintf("%s(%s)", x.Callee, strings.Join(args, ", "))

	case *ir.IRLambda:
		params := make([]string, 0, len(x.Params))
		for _, p := range x.Params {
			params = append(params, p.Name)
		}
		return fmt.Sprintf("(lambda %s: %s)", strings.Join(params, ", "), e.expr(x.Body))

	default:
		return "None"
	}
}

func formatNum(n float64) string {
	return strconv.FormatFloat(n, 'g', -1, 64)
}

// rangeBound renders a loop bound for range(): integral literals render
// bare, anything else is coerced since range() rejects floats.
func (e *emitter) rangeBound(expr ir.Expr) string {
	if lit, ok := expr.(*ir.IRLiteral); ok && lit.Kind == ir.LitNum && lit.Num == float64(int64(lit.Num)) {
		return strconv.FormatInt(int64(lit.Num), 10)
	}
	return "int(" + e.expr(expr) + ")"
}

// Scaffold wraps the emitted module body in a runnable main.py.
func (Pack) Scaffold(emitted string, ctx pack.Context) (pack.Bundle, error) {
	var b strings.Builder
	b.WriteString("#!/usr/bin/env python3\n")
	b.WriteString(emitted)
	return pack.Bundle{
		PrimaryPath: "main.py",
		Files:       map[string][]byte{"main.py": []byte(b.String())},
	}, nil
}
