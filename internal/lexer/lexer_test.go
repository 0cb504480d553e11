package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/funvibe/rcore/internal/token"
)

func TestNextToken(t *testing.T) {
	input := "x <- c(1L, 2.5, 3i) %% 2 # comment\ny[[\"a\"]] <<- .5e1 -> z"

	expected := []struct {
		typ    token.TokenType
		lexeme string
	}{
		{token.IDENT, "x"},
		{token.LEFT_ASSIGN, "<-"},
		{token.IDENT, "c"},
		{token.LPAREN, "("},
		{token.INTEGER, "1L"},
		{token.COMMA, ","},
		{token.NUMBER, "2.5"},
		{token.COMMA, ","},
		{token.COMPLEX, "3i"},
		{token.RPAREN, ")"},
		{token.SPECIAL, "%%"},
		{token.NUMBER, "2"},
		{token.NEWLINE, "\n"},
		{token.IDENT, "y"},
		{token.LBB, "[["},
		{token.STRING, "\"a\""},
		{token.RBRACKET, "]"},
		{token.RBRACKET, "]"},
		{token.SUPER_ASSIGN, "<<-"},
		{token.NUMBER, ".5e1"},
		{token.RIGHT_ASSIGN, "->"},
		{token.IDENT, "z"},
		{token.EOF, ""},
	}

	l := New(input)
	for i, want := range expected {
		tok := l.NextToken()
		assert.Equal(t, want.typ, tok.Type, "token %d", i)
		assert.Equal(t, want.lexeme, tok.Lexeme, "token %d", i)
	}
}

func TestLiterals(t *testing.T) {
	toks := New(`0x1F 1e-2 "a\tb" 'q' TRUE NA_integer_ ... .x`).Tokens()
	assert.Equal(t, 31.0, toks[0].Literal)
	assert.Equal(t, 0.01, toks[1].Literal)
	assert.Equal(t, "a\tb", toks[2].Literal)
	assert.Equal(t, "q", toks[3].Literal)
	assert.Equal(t, token.TRUE, toks[4].Type)
	assert.Equal(t, token.NA_INTEGER, toks[5].Type)
	assert.Equal(t, token.IDENT, toks[6].Type)
	assert.Equal(t, "...", toks[6].Literal)
	assert.Equal(t, token.IDENT, toks[7].Type)
}

func TestPositions(t *testing.T) {
	toks := New("a\n  bb <- 1").Tokens()
	assert.Equal(t, 1, toks[0].Line)
	assert.Equal(t, 1, toks[0].Column)
	assert.Equal(t, 2, toks[2].Line)
	assert.Equal(t, 3, toks[2].Column)
	assert.Equal(t, 6, toks[3].Column)
}

func TestIllegal(t *testing.T) {
	tok := New(`"open`).NextToken()
	assert.Equal(t, token.ILLEGAL, tok.Type)
	assert.Equal(t, "unterminated string", tok.Literal)

	tok = New("12abc").NextToken()
	assert.Equal(t, token.ILLEGAL, tok.Type)
	assert.Equal(t, "invalid number", tok.Literal)

	tok = New("`name with space`").NextToken()
	assert.Equal(t, token.IDENT, tok.Type)
	assert.Equal(t, "name with space", tok.Literal)
}
