// Package alias implements the optional alias-normalizing preprocessing
// pass: it rewrites natural-language aliases into canonical
// ICL tokens outside string and comment regions, before the lexer ever
// runs.
package alias

import (
	"fmt"

	"github.com/icl-lang/iclc/core/diag"
	"github.com/icl-lang/iclc/core/token"
)

// Mode selects which alias table is active.
type Mode int

const (
	// Core covers function, lambda, return, if, loop/in, print.
	Core Mode = iota
	// Extended additionally covers boolean literals and logical operators.
	Extended
)

// coreTable maps aliases to their canonical token text.
var coreTable = map[string]string{
	"mkfn":     "fn",
	"function": "fn",
	"lambda":   "lam",
	"gives":    "ret",
	"return":   "ret",
	"when":     "if",
	"repeat":   "loop",
	"through":  "in",
	"prnt":     "print",
	"show":     "print",
}

// extendedTable is layered on top of coreTable when Mode is Extended.
var extendedTable = map[string]string{
	"yes": "true",
	"on":  "true",
	"no":  "false",
	"off": "false",
	"and": "&&",
	"or":  "||",
	"not": "!",
}

// Rewrite records one alias substitution in source order.
type Rewrite struct {
	From string
	To   string
	Span token.Span
}

// Result is the output of Normalize: the rewritten text and an ordered
// trace of every substitution performed.
type Result struct {
	Text  string
	Trace []Rewrite
}

func tableFor(mode Mode) map[string]string {
	if mode == Core {
		return coreTable
	}
	merged := make(map[string]string, len(coreTable)+len(extendedTable))
	for k, v := range coreTable {
		merged[k] = v
	}
	for k, v := range extendedTable {
		merged[k] = v
	}
	return merged
}

func isIdentStart(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isIdentPart(b byte) bool {
	return isIdentStart(b) || (b >= '0' && b <= '9')
}

// Normalize rewrites src according to mode, leaving string literals and
// line comments untouched, and returns the rewritten text plus an ordered
// rewrite trace. Relex is used to detect ambiguous rewrites (ALI001): it
// must return an error if the given text fails to lex.
func Normalize(file, src string, mode Mode, relex func(text string) error) (Result, error) {
	table := tableFor(mode)

	var out []byte
	var trace []Rewrite

	line, col := 1, 1
	advance := func(b byte) {
		if b == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	pos := func(offset int) token.Position {
		return token.Position{Line: line, Column: col, Offset: offset}
	}

	i := 0
	n := len(src)
	for i < n {
		b := src[i]

		switch {
		case b == '"':
			out = append(out, b)
			advance(b)
			i++
			for i < n && src[i] != '"' {
				if src[i] == '\\' && i+1 < n {
					out = append(out, src[i], src[i+1])
					advance(src[i])
					advance(src[i+1])
					i += 2
					continue
				}
				out = append(out, src[i])
				advance(src[i])
				i++
			}
			if i < n {
				out = append(out, src[i])
				advance(src[i])
				i++
			}

		case b == '/' && i+1 < n && src[i+1] == '/':
			for i < n && src[i] != '\n' {
				out = append(out, src[i])
				advance(src[i])
				i++
			}

		case isIdentStart(b):
			start := i
			startPos := pos(start)
			for i < n && isIdentPart(src[i]) {
				i++
			}
			word := src[start:i]
			for j := 0; j < len(word); j++ {
				advance(word[j])
			}
			if canonical, ok := table[word]; ok {
				out = append(out, canonical...)
				endPos := token.Position{Line: line, Column: col, Offset: i}
				trace = append(trace, Rewrite{
					From: word,
					To:   canonical,
					Span: token.Span{File: file, Start: startPos, End: endPos},
				})
			} else {
				out = append(out, word...)
			}

		default:
			out = append(out, b)
			advance(b)
			i++
		}
	}

	result := Result{Text: string(out), Trace: trace}

	if len(trace) > 0 && relex != nil {
		if err := relex(result.Text); err != nil {
			span := trace[len(trace)-1].Span
			return Result{}, diag.New("ALI001",
				fmt.Sprintf("alias rewrite produced an invalid token sequence: %v", err),
				&span, "rewrites must preserve lexical structure; rename the conflicting identifier")
		}
	}

	return result, nil
}
