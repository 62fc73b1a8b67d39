// Package parser implements the ICL grammar: recursive-descent
// statements and blocks, Pratt-precedence expressions, with multi-error
// recovery so a single `check`/`compile` invocation reports every parse
// failure in a file rather than stopping at the first one.
package parser

import (
	"fmt"
	"strconv"

	"github.com/icl-lang/iclc/core/ast"
	"github.com/icl-lang/iclc/core/diag"
	"github.com/icl-lang/iclc/core/token"
)

// Parser consumes a token stream produced by core/lexer and builds an AST.
type Parser struct {
	toks  []token.Token
	pos   int
	diags diag.Diagnostics
}

// New creates a Parser over a token stream. toks must end with an EOF token.
func New(toks []token.Token) *Parser {
	return &Parser{toks: toks}
}

// Parse parses a full program, aggregating every recoverable error.
func Parse(toks []token.Token) (*ast.Program, error) {
	p := New(toks)
	prog := p.parseProgram()
	return prog, p.diags.Err()
}

// ---- token stream helpers ----

func (p *Parser) cur() token.Token {
	if p.pos >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos]
}

func (p *Parser) peekAt(n int) token.Token {
	idx := p.pos + n
	if idx >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[idx]
}

func (p *Parser) at(k token.Kind) bool { return p.cur().Kind == k }

func (p *Parser) advance() token.Token {
	t := p.cur()
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) mark() int   { return p.pos }
func (p *Parser) reset(m int) { p.pos = m }

func (p *Parser) errorf(code string, span token.Span, hint, format string, args ...any) {
	p.diags.Add(diag.New(code, fmt.Sprintf(format, args...), &span, hint))
}

func (p *Parser) expect(k token.Kind, code, hint string) (token.Token, bool) {
	if p.at(k) {
		return p.advance(), true
	}
	p.errorf(code, p.cur().Span, hint, "expected %s, found %s %q", k, p.cur().Kind, p.cur().Lexeme)
	return token.Token{}, false
}

// recover skips tokens until the next statement boundary: a semicolon
// (consumed) or a block-closing brace / EOF (left for the caller).
func (p *Parser) recover() {
	for !p.at(token.Semicolon) && !p.at(token.RBrace) && !p.at(token.EOF) {
		p.advance()
	}
	if p.at(token.Semicolon) {
		p.advance()
	}
}

func (p *Parser) skipSemicolons() {
	for p.at(token.Semicolon) {
		p.advance()
	}
}

// ---- program / blocks ----

func (p *Parser) parseProgram() *ast.Program {
	start := p.cur().Span
	prog := &ast.Program{}
	p.skipSemicolons()
	for !p.at(token.EOF) {
		stmt := p.parseStmt()
		if stmt != nil {
			prog.Statements = append(prog.Statements, stmt)
		}
		p.skipSemicolons()
	}
	end := p.cur().Span
	prog.SpanValue = token.Union(start, end)
	return prog
}

func (p *Parser) parseBlock() *ast.Block {
	start := p.cur().Span
	if _, ok := p.expect(token.LBrace, "PAR002", "blocks start with '{'"); !ok {
		p.recover()
		return &ast.Block{SpanValue: start}
	}
	block := &ast.Block{}
	p.skipSemicolons()
	for !p.at(token.RBrace) && !p.at(token.EOF) {
		before := p.mark()
		stmt := p.parseStmt()
		if stmt != nil {
			block.Statements = append(block.Statements, stmt)
		}
		if p.mark() == before {
			// parseStmt made no progress; force it to avoid an infinite loop.
			p.recover()
		}
		p.skipSemicolons()
	}
	endTok, _ := p.expect(token.RBrace, "PAR002", "blocks end with '}'")
	block.SpanValue = token.Union(start, endTok.Span)
	return block
}

// ---- statements ----

func (p *Parser) parseStmt() ast.Stmt {
	switch p.cur().Kind {
	case token.KwFn:
		return p.parseFuncDef()
	case token.KwIf:
		return p.parseIf()
	case token.KwLoop:
		return p.parseLoop()
	case token.KwRet:
		return p.parseReturn()
	case token.Hash:
		return p.parseMacro()
	case token.Ident:
		if stmt, ok := p.tryParseAssignment(); ok {
			return stmt
		}
		return p.parseExprStmt()
	default:
		return p.parseExprStmt()
	}
}

func (p *Parser) tryParseAssignment() (ast.Stmt, bool) {
	start := p.mark()
	nameTok := p.advance() // Ident
	annotation := ""
	if p.at(token.Colon) {
		p.advance()
		if p.at(token.Ident) {
			annotation = p.cur().Lexeme
			p.advance()
		} else {
			p.reset(start)
			return nil, false
		}
	}
	if !p.at(token.Assign) {
		p.reset(start)
		return nil, false
	}
	p.advance() // :=
	value := p.parseExpr(precLowest)
	return &ast.Assignment{
		Name:       nameTok.Lexeme,
		Annotation: annotation,
		Value:      value,
		SpanValue:  token.Union(nameTok.Span, value.Span()),
	}, true
}

func (p *Parser) parseExprStmt() ast.Stmt {
	start := p.cur().Span
	expr := p.parseExpr(precLowest)
	return &ast.ExprStmt{Value: expr, SpanValue: token.Union(start, expr.Span())}
}

func (p *Parser) parseFuncDef() ast.Stmt {
	start := p.advance().Span // 'fn'
	nameTok, _ := p.expect(token.Ident, "PAR002", "function definitions need a name")
	p.expect(token.LParen, "PAR002", "parameters start with '('")
	params := p.parseParams()
	p.expect(token.RParen, "PAR002", "parameters end with ')'")

	ret := ""
	if p.at(token.Colon) {
		p.advance()
		if p.at(token.Ident) {
			ret = p.cur().Lexeme
			p.advance()
		}
	}

	def := &ast.FuncDef{Name: nameTok.Lexeme, Params: params, Return: ret}
	switch {
	case p.at(token.Arrow):
		p.advance()
		def.ExprBody = p.parseExpr(precLowest)
		def.SpanValue = token.Union(start, def.ExprBody.Span())
	case p.at(token.LBrace):
		def.Body = p.parseBlock()
		def.SpanValue = token.Union(start, def.Body.SpanValue)
	default:
		p.errorf("PAR002", p.cur().Span, "function bodies are '=> expr' or '{ ... }'",
			"expected function body, found %s", p.cur().Kind)
		def.SpanValue = start
	}
	return def
}

func (p *Parser) parseParams() []ast.Param {
	var params []ast.Param
	for !p.at(token.RParen) && !p.at(token.EOF) {
		nameTok, ok := p.expect(token.Ident, "PAR001", "parameters are identifiers")
		if !ok {
			break
		}
		param := ast.Param{Name: nameTok.Lexeme, SpanValue: nameTok.Span}
		if p.at(token.Colon) {
			p.advance()
			if p.at(token.Ident) {
				param.Annotation = p.cur().Lexeme
				param.SpanValue = token.Union(param.SpanValue, p.cur().Span)
				p.advance()
			}
		}
		params = append(params, param)
		if p.at(token.Comma) {
			p.advance()
			continue
		}
		break
	}
	return params
}

func (p *Parser) parseIf() ast.Stmt {
	start := p.advance().Span // 'if'
	cond := p.parseExpr(precLowest)
	p.expect(token.Question, "PAR002", "the if condition is followed by '?'")
	then := p.parseBlock()
	node := &ast.If{Cond: cond, Then: then, SpanValue: token.Union(start, then.SpanValue)}
	if p.at(token.Colon) {
		p.advance()
		elseBlock := p.parseBlock()
		node.Else = elseBlock
		node.SpanValue = token.Union(start, elseBlock.SpanValue)
	}
	return node
}

func (p *Parser) parseLoop() ast.Stmt {
	start := p.advance().Span // 'loop'
	iterTok, _ := p.expect(token.Ident, "PAR002", "loops declare an iterator identifier")
	p.expect(token.KwIn, "PAR002", "loops use 'in' between the iterator and its range")
	from := p.parseExpr(precSum)
	p.expect(token.DotDot, "PAR002", "loop ranges are 'start .. end'")
	to := p.parseExpr(precSum)
	body := p.parseBlock()
	return &ast.Loop{
		Iterator:  iterTok.Lexeme,
		Start:     from,
		End:       to,
		Body:      body,
		SpanValue: token.Union(start, body.SpanValue),
	}
}

func (p *Parser) parseReturn() ast.Stmt {
	start := p.advance().Span // 'ret'
	if p.at(token.Semicolon) || p.at(token.RBrace) || p.at(token.EOF) {
		return &ast.Return{SpanValue: start}
	}
	value := p.parseExpr(precLowest)
	return &ast.Return{Value: value, SpanValue: token.Union(start, value.Span())}
}

func (p *Parser) parseMacro() ast.Stmt {
	start := p.advance().Span // '#'
	nameTok, _ := p.expect(token.Ident, "PAR002", "macro statements are '#name(args)'")
	p.expect(token.LParen, "PAR002", "macro arguments start with '('")
	var args []ast.Expr
	for !p.at(token.RParen) && !p.at(token.EOF) {
		args = append(args, p.parseExpr(precLowest))
		if p.at(token.Comma) {
			p.advance()
			continue
		}
		break
	}
	endTok, _ := p.expect(token.RParen, "PAR002", "macro arguments end with ')'")
	return &ast.MacroInvocation{Name: nameTok.Lexeme, Args: args, SpanValue: token.Union(start, endTok.Span)}
}

// ---- Pratt expressions ----

type precedence int

const (
	precLowest precedence = iota
	precOr
	precAnd
	precEquality
	precRelational
	precSum
	precProduct
	precUnary
	precCall
)

var binaryPrec = map[token.Kind]precedence{
	token.OrOr:    precOr,
	token.AndAnd:  precAnd,
	token.Eq:      precEquality,
	token.NotEq:   precEquality,
	token.Lt:      precRelational,
	token.LtEq:    precRelational,
	token.Gt:      precRelational,
	token.GtEq:    precRelational,
	token.Plus:    precSum,
	token.Minus:   precSum,
	token.Star:    precProduct,
	token.Slash:   precProduct,
	token.Percent: precProduct,
}

func (p *Parser) parseExpr(min precedence) ast.Expr {
	left := p.parseUnary()
	for {
		prec, ok := binaryPrec[p.cur().Kind]
		if !ok || prec < min {
			break
		}
		opTok := p.advance()
		// left-associative: parse the right side at prec+1
		right := p.parseExpr(prec + 1)
		left = &ast.BinaryOp{
			Op:        opTok.Lexeme,
			Left:      left,
			Right:     right,
			SpanValue: token.Union(left.Span(), right.Span()),
		}
	}
	return left
}

func (p *Parser) parseUnary() ast.Expr {
	switch p.cur().Kind {
	case token.Bang, token.Minus, token.Plus:
		opTok := p.advance()
		operand := p.parseUnary()
		return &ast.UnaryOp{Op: opTok.Lexeme, Operand: operand, SpanValue: token.Union(opTok.Span, operand.Span())}
	default:
		return p.parsePostfix()
	}
}

func (p *Parser) parsePostfix() ast.Expr {
	expr := p.parsePrimary()
	for p.at(token.LParen) {
		expr = p.parseCallTail(expr, false)
	}
	return expr
}

// parseCallTail parses `(args)` applied to a callee already parsed as an
// identifier expression, producing a Call node. The call data model
// carries a callee name, so a non-identifier target (a group, a prior
// call result) is rejected here rather than flowing an empty callee into
// analysis.
func (p *Parser) parseCallTail(callee ast.Expr, at bool) ast.Expr {
	name := ""
	if ident, ok := callee.(*ast.Ident); ok {
		name = ident.Name
	} else {
		p.errorf("PAR002", callee.Span(), "calls name their callee directly: name(args) or @name(args)",
			"call target must be an identifier")
	}
	start := p.advance().Span // '('
	var args []ast.Expr
	for !p.at(token.RParen) && !p.at(token.EOF) {
		args = append(args, p.parseExpr(precLowest))
		if p.at(token.Comma) {
			p.advance()
			continue
		}
		break
	}
	endTok, _ := p.expect(token.RParen, "PAR002", "call arguments end with ')'")
	return &ast.Call{
		Callee:    name,
		Args:      args,
		At:        at,
		SpanValue: token.Union(callee.Span(), token.Union(start, endTok.Span)),
	}
}

func (p *Parser) parsePrimary() ast.Expr {
	tok := p.cur()
	switch tok.Kind {
	case token.Number:
		p.advance()
		val, _ := strconv.ParseFloat(tok.Lexeme, 64)
		return &ast.NumberLit{Text: tok.Lexeme, Value: val, SpanValue: tok.Span}
	case token.String:
		p.advance()
		return &ast.StringLit{Value: tok.Lexeme, SpanValue: tok.Span}
	case token.KwTrue:
		p.advance()
		return &ast.BoolLit{Value: true, SpanValue: tok.Span}
	case token.KwFalse:
		p.advance()
		return &ast.BoolLit{Value: false, SpanValue: tok.Span}
	case token.At:
		p.advance()
		nameTok, _ := p.expect(token.Ident, "PAR001", "'@' must be followed by a call")
		ident := &ast.Ident{Name: nameTok.Lexeme, SpanValue: nameTok.Span}
		if p.at(token.LParen) {
			call := p.parseCallTail(ident, true)
			if c, ok := call.(*ast.Call); ok {
				c.SpanValue = token.Union(tok.Span, c.SpanValue)
			}
			return call
		}
		p.errorf("PAR001", p.cur().Span, "'@name' must be followed by '(' to form a call",
			"expected '(' after '@%s'", nameTok.Lexeme)
		return ident
	case token.KwLam:
		return p.parseLambda()
	case token.LParen:
		p.advance()
		inner := p.parseExpr(precLowest)
		endTok, _ := p.expect(token.RParen, "PAR002", "groups end with ')'")
		return &ast.Group{Inner: inner, SpanValue: token.Union(tok.Span, endTok.Span)}
	case token.Ident:
		p.advance()
		return &ast.Ident{Name: tok.Lexeme, SpanValue: tok.Span}
	default:
		p.errorf("PAR001", tok.Span, "expected a literal, identifier, '(', '@', or 'lam'",
			"unexpected token %s %q in expression", tok.Kind, tok.Lexeme)
		p.advance()
		return &ast.Ident{Name: "", SpanValue: tok.Span}
	}
}

func (p *Parser) parseLambda() ast.Expr {
	start := p.advance().Span // 'lam'
	p.expect(token.LParen, "PAR002", "lambda parameters start with '('")
	params := p.parseParams()
	p.expect(token.RParen, "PAR002", "lambda parameters end with ')'")
	ret := ""
	if p.at(token.Colon) {
		p.advance()
		if p.at(token.Ident) {
			ret = p.cur().Lexeme
			p.advance()
		}
	}
	p.expect(token.Arrow, "PAR002", "lambda bodies are '=> expr'")
	body := p.parseExpr(precLowest)
	return &ast.Lambda{Params: params, Return: ret, Body: body, SpanValue: token.Union(start, body.Span())}
}
