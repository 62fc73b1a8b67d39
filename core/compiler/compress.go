package compiler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/icl-lang/iclc/core/ast"
	"github.com/icl-lang/iclc/core/lexer"
	"github.com/icl-lang/iclc/core/macro"
	"github.com/icl-lang/iclc/core/parser"
)

// Compress renders source's canonical compact form: whitespace-minimal,
// every construct printed in its single canonical syntax (no aliasing),
// satisfying parse(Compress(parse(s))) ≡ parse(s) for any valid s. Macro
// invocations are expanded before printing, since a surviving `#name(...)`
// form is not itself canonical output — it is an input-only syntax.
func Compress(file, source string) (string, error) {
	toks, err := lexer.Lex(file, source)
	if err != nil {
		return "", err
	}
	prog, err := parser.Parse(toks)
	if err != nil {
		return "", err
	}
	if err := macro.Expand(macro.DefaultRegistry(), prog); err != nil {
		return "", err
	}

	var b strings.Builder
	printStmts(&b, prog.Statements)
	return b.String(), nil
}

func printStmts(b *strings.Builder, stmts []ast.Stmt) {
	for _, s := range stmts {
		printStmt(b, s)
	}
}

func printBlock(b *strings.Builder, blk *ast.Block) {
	b.WriteByte('{')
	if blk != nil {
		printStmts(b, blk.Statements)
	}
	b.WriteByte('}')
}

func printParams(b *strings.Builder, params []ast.Param) {
	b.WriteByte('(')
	for i, p := range params {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(p.Name)
		if p.Annotation != "" {
			b.WriteByte(':')
			b.WriteString(p.Annotation)
		}
	}
	b.WriteByte(')')
}

func printStmt(b *strings.Builder, stmt ast.Stmt) {
	switch s := stmt.(type) {
	case *ast.Assignment:
		b.WriteString(s.Name)
		if s.Annotation != "" {
			b.WriteByte(':')
			b.WriteString(s.Annotation)
		}
		b.WriteString(":=")
		printExpr(b, s.Value)
		b.WriteByte(';')

	case *ast.FuncDef:
		b.WriteString("fn ")
		b.WriteString(s.Name)
		printParams(b, s.Params)
		if s.Return != "" {
			b.WriteByte(':')
			b.WriteString(s.Return)
		}
		if s.ExprBody != nil {
			b.WriteString("=>")
			printExpr(b, s.ExprBody)
			b.WriteByte(';')
		} else {
			printBlock(b, s.Body)
		}

	case *ast.If:
		b.WriteString("if ")
		printExpr(b, s.Cond)
		b.WriteByte('?')
		printBlock(b, s.Then)
		if s.Else != nil {
			b.WriteByte(':')
			printBlock(b, s.Else)
		}

	case *ast.Loop:
		b.WriteString("loop ")
		b.WriteString(s.Iterator)
		b.WriteString(" in ")
		printExpr(b, s.Start)
		b.WriteString("..")
		printExpr(b, s.End)
		printBlock(b, s.Body)

	case *ast.Return:
		b.WriteString("ret")
		if s.Value != nil {
			b.WriteByte(' ')
			printExpr(b, s.Value)
		}
		b.WriteByte(';')

	case *ast.ExprStmt:
		printExpr(b, s.Value)
		b.WriteByte(';')

	case *ast.MacroInvocation:
		// Compress itself never reaches this case: macro.Expand reports
		// every invocation it cannot expand (PLG002/PLG003) and Compress
		// returns that error before printing. The case keeps printStmt
		// total over the statement types.
		fmt.Fprintf(b, "#%s(", s.Name)
		for i, a := range s.Args {
			if i > 0 {
				b.WriteByte(',')
			}
			printExpr(b, a)
		}
		b.WriteString(");")

	default:
		panic(fmt.Sprintf("compress: unhandled statement %T", stmt))
	}
}

func printExpr(b *strings.Builder, expr ast.Expr) {
	switch e := expr.(type) {
	case *ast.NumberLit:
		if e.Text != "" {
			b.WriteString(e.Text)
		} else {
			b.WriteString(strconv.FormatFloat(e.Value, 'g', -1, 64))
		}

	case *ast.StringLit:
		b.WriteByte('"')
		for _, r := range e.Value {
			switch r {
			case '\\':
				b.WriteString(`\\`)
			case '"':
				b.WriteString(`\"`)
			case '\n':
				b.WriteString(`\n`)
			case '\t':
				b.WriteString(`\t`)
			default:
				b.WriteRune(r)
			}
		}
		b.WriteByte('"')

	case *ast.BoolLit:
		if e.Value {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}

	case *ast.Ident:
		b.WriteString(e.Name)

	case *ast.UnaryOp:
		b.WriteString(e.Op)
		printExpr(b, e.Operand)

	case *ast.BinaryOp:
		printExpr(b, e.Left)
		b.WriteString(e.Op)
		printExpr(b, e.Right)

	case *ast.Lambda:
		b.WriteString("lam")
		printParams(b, e.Params)
		if e.Return != "" {
			b.WriteByte(':')
			b.WriteString(e.Return)
		}
		b.WriteString("=>")
		printExpr(b, e.Body)

	case *ast.Call:
		if e.At {
			b.WriteByte('@')
		}
		b.WriteString(e.Callee)
		b.WriteByte('(')
		for i, a := range e.Args {
			if i > 0 {
				b.WriteByte(',')
			}
			printExpr(b, a)
		}
		b.WriteByte(')')

	case *ast.Group:
		b.WriteByte('(')
		printExpr(b, e.Inner)
		b.WriteByte(')')

	default:
		panic(fmt.Sprintf("compress: unhandled expression %T", expr))
	}
}
