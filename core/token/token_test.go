package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpanString(t *testing.T) {
	s := Span{File: "main.icl", Start: Position{Line: 3, Column: 5}}
	assert.Equal(t, "main.icl:3:5", s.String())

	anon := Span{Start: Position{Line: 1, Column: 1}}
	assert.Equal(t, "1:1", anon.String())
}

func TestUnionCoversBothSpans(t *testing.T) {
	a := Span{File: "f.icl", Start: Position{Offset: 5}, End: Position{Offset: 10}}
	b := Span{File: "f.icl", Start: Position{Offset: 2}, End: Position{Offset: 7}}

	u := Union(a, b)
	require.Equal(t, 2, u.Start.Offset)
	require.Equal(t, 10, u.End.Offset)
}

func TestKeywordsTableMatchesKindNames(t *testing.T) {
	for text, kind := range Keywords {
		assert.Equal(t, text, kind.String(), "keyword %q should stringify back to itself", text)
	}
}

func TestTokenString(t *testing.T) {
	tok := Token{Kind: Ident, Lexeme: "x", Span: Span{Start: Position{Line: 1, Column: 1}}}
	assert.Contains(t, tok.String(), "identifier")
	assert.Contains(t, tok.String(), `"x"`)
}
