package lexer

import (
	"math"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/funvibe/rcore/internal/token"
)

type Lexer struct {
	input        string
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           rune // current char under examination
	line         int  // current line number
	column       int  // current column number
}

func New(input string) *Lexer {
	l := &Lexer{input: input, line: 1, column: 0}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.column = 0
	}

	if l.readPosition >= len(l.input) {
		l.ch = 0
		l.position = l.readPosition
		l.readPosition++
		l.column++
		return
	}
	r, w := utf8.DecodeRuneInString(l.input[l.readPosition:])
	l.ch = r
	l.position = l.readPosition
	l.readPosition += w
	l.column++
}

// Tokens lexes the whole input, ending with an EOF token.
func (l *Lexer) Tokens() []token.Token {
	var out []token.Token
	for {
		tok := l.NextToken()
		out = append(out, tok)
		if tok.Type == token.EOF {
			return out
		}
	}
}

func (l *Lexer) NextToken() token.Token {
	l.skipWhitespace()

	line, col := l.line, l.column
	op := func(t token.TokenType, lexeme string) token.Token {
		for i := 1; i < utf8.RuneCountInString(lexeme); i++ {
			l.readChar()
		}
		l.readChar()
		return token.Token{Type: t, Lexeme: lexeme, Literal: lexeme, Line: line, Column: col}
	}

	switch l.ch {
	case 0:
		return token.Token{Type: token.EOF, Line: line, Column: col}
	case '\n':
		return op(token.NEWLINE, "\n")
	case '+':
		return op(token.PLUS, "+")
	case '*':
		return op(token.ASTERISK, "*")
	case '/':
		return op(token.SLASH, "/")
	case '^':
		return op(token.CARET, "^")
	case '~':
		return op(token.TILDE, "~")
	case '?':
		return op(token.QUESTION, "?")
	case '@':
		return op(token.AT, "@")
	case '$':
		return op(token.DOLLAR, "$")
	case ',':
		return op(token.COMMA, ",")
	case ';':
		return op(token.SEMICOLON, ";")
	case '(':
		return op(token.LPAREN, "(")
	case ')':
		return op(token.RPAREN, ")")
	case '{':
		return op(token.LBRACE, "{")
	case '}':
		return op(token.RBRACE, "}")
	case ']':
		return op(token.RBRACKET, "]")
	case '[':
		if l.peekChar() == '[' {
			return op(token.LBB, "[[")
		}
		return op(token.LBRACKET, "[")
	case '-':
		if l.peekChar() == '>' {
			return op(token.RIGHT_ASSIGN, "->")
		}
		return op(token.MINUS, "-")
	case '<':
		switch {
		case l.peekChar() == '<' && l.peekChar2() == '-':
			return op(token.SUPER_ASSIGN, "<<-")
		case l.peekChar() == '-':
			return op(token.LEFT_ASSIGN, "<-")
		case l.peekChar() == '=':
			return op(token.LE, "<=")
		}
		return op(token.LT, "<")
	case '>':
		if l.peekChar() == '=' {
			return op(token.GE, ">=")
		}
		return op(token.GT, ">")
	case '=':
		if l.peekChar() == '=' {
			return op(token.EQ, "==")
		}
		return op(token.EQ_ASSIGN, "=")
	case '!':
		if l.peekChar() == '=' {
			return op(token.NOT_EQ, "!=")
		}
		return op(token.BANG, "!")
	case '&':
		if l.peekChar() == '&' {
			return op(token.AND2, "&&")
		}
		return op(token.AND, "&")
	case '|':
		if l.peekChar() == '|' {
			return op(token.OR2, "||")
		}
		return op(token.OR, "|")
	case ':':
		if l.peekChar() == ':' {
			return op(token.DOUBLE_COLON, "::")
		}
		return op(token.COLON, ":")
	case '%':
		return l.readSpecial()
	case '"', '\'':
		return l.readString()
	case '`':
		return l.readBacktick()
	}

	if isDigit(l.ch) || (l.ch == '.' && isDigit(l.peekChar())) {
		return l.readNumber()
	}
	if isLetter(l.ch) || l.ch == '.' {
		ident := l.readIdentifier()
		return token.Token{Type: token.LookupIdent(ident), Lexeme: ident, Literal: ident, Line: line, Column: col}
	}
	ch := l.ch
	l.readChar()
	return token.Token{Type: token.ILLEGAL, Lexeme: string(ch), Literal: "unexpected input", Line: line, Column: col}
}

// readSpecial reads a %op% operator such as %% or %in%.
func (l *Lexer) readSpecial() token.Token {
	line, col := l.line, l.column
	start := l.position
	l.readChar()
	for l.ch != '%' {
		if l.ch == 0 || l.ch == '\n' {
			lexeme := l.input[start:l.position]
			return token.Token{Type: token.ILLEGAL, Lexeme: lexeme, Literal: "unexpected input", Line: line, Column: col}
		}
		l.readChar()
	}
	l.readChar()
	lexeme := l.input[start:l.position]
	return token.Token{Type: token.SPECIAL, Lexeme: lexeme, Literal: lexeme, Line: line, Column: col}
}

func (l *Lexer) readString() token.Token {
	line, col := l.line, l.column
	quote := l.ch
	start := l.position
	var sb strings.Builder
	for {
		l.readChar()
		switch l.ch {
		case 0:
			return token.Token{Type: token.ILLEGAL, Lexeme: l.input[start:min(l.position, len(l.input))], Literal: "unterminated string", Line: line, Column: col}
		case quote:
			l.readChar()
			return token.Token{Type: token.STRING, Lexeme: l.input[start:l.position], Literal: sb.String(), Line: line, Column: col}
		case '\\':
			l.readChar()
			l.readEscape(&sb)
		default:
			sb.WriteRune(l.ch)
		}
	}
}

func (l *Lexer) readEscape(sb *strings.Builder) {
	switch l.ch {
	case 'n':
		sb.WriteByte('\n')
	case 't':
		sb.WriteByte('\t')
	case 'r':
		sb.WriteByte('\r')
	case '0':
		sb.WriteByte(0)
	case 'a':
		sb.WriteByte('\a')
	case 'b':
		sb.WriteByte('\b')
	case 'f':
		sb.WriteByte('\f')
	case 'v':
		sb.WriteByte('\v')
	case 'x':
		if r, ok := l.readHexEscape(2); ok {
			sb.WriteByte(byte(r))
		}
	case 'u':
		if r, ok := l.readHexEscape(4); ok {
			sb.WriteRune(r)
		}
	case 0:
	default:
		// \\, \", \' and any other escaped character stand for themselves
		sb.WriteRune(l.ch)
	}
}

func (l *Lexer) readHexEscape(max int) (rune, bool) {
	var r rune
	n := 0
	for n < max && isHexDigit(l.peekChar()) {
		l.readChar()
		d, _ := strconv.ParseUint(string(l.ch), 16, 8)
		r = r*16 + rune(d)
		n++
	}
	return r, n > 0
}

func (l *Lexer) readBacktick() token.Token {
	line, col := l.line, l.column
	start := l.position
	l.readChar()
	nameStart := l.position
	for l.ch != '`' {
		if l.ch == 0 {
			return token.Token{Type: token.ILLEGAL, Lexeme: l.input[start:min(l.position, len(l.input))], Literal: "unterminated string", Line: line, Column: col}
		}
		l.readChar()
	}
	name := l.input[nameStart:l.position]
	l.readChar()
	return token.Token{Type: token.IDENT, Lexeme: l.input[start:l.position], Literal: name, Line: line, Column: col}
}

func (l *Lexer) readIdentifier() string {
	position := l.position
	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '.' {
		l.readChar()
	}
	return l.input[position:l.position]
}

// readNumber reads a numeric constant: decimal or hex, optional exponent and an L
// (integer) or i (imaginary) suffix.
func (l *Lexer) readNumber() token.Token {
	line, col := l.line, l.column
	position := l.position
	hex := false

	if l.ch == '0' && (l.peekChar() == 'x' || l.peekChar() == 'X') {
		hex = true
		l.readChar()
		l.readChar()
		for isHexDigit(l.ch) {
			l.readChar()
		}
	} else {
		for isDigit(l.ch) {
			l.readChar()
		}
		if l.ch == '.' {
			l.readChar()
			for isDigit(l.ch) {
				l.readChar()
			}
		}
		if l.ch == 'e' || l.ch == 'E' {
			l.readChar()
			if l.ch == '+' || l.ch == '-' {
				l.readChar()
			}
			if !isDigit(l.ch) {
				return l.badNumber(position, line, col)
			}
			for isDigit(l.ch) {
				l.readChar()
			}
		}
	}

	text := l.input[position:l.position]
	var val float64
	if hex {
		if len(text) <= 2 {
			return l.badNumber(position, line, col)
		}
		n, err := strconv.ParseUint(text[2:], 16, 64)
		if err != nil {
			return l.badNumber(position, line, col)
		}
		val = float64(n)
	} else {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil && !strings.Contains(err.Error(), "range") {
			return l.badNumber(position, line, col)
		}
		val = f
	}

	switch l.ch {
	case 'L':
		l.readChar()
		lexeme := l.input[position:l.position]
		if val == math.Trunc(val) && val <= math.MaxInt32 && val > math.MinInt32 {
			return token.Token{Type: token.INTEGER, Lexeme: lexeme, Literal: int64(val), Line: line, Column: col}
		}
		// non-integral or out of range L constants stay double
		return token.Token{Type: token.NUMBER, Lexeme: lexeme, Literal: val, Line: line, Column: col}
	case 'i':
		l.readChar()
		return token.Token{Type: token.COMPLEX, Lexeme: l.input[position:l.position], Literal: val, Line: line, Column: col}
	}
	if isLetter(l.ch) {
		for isLetter(l.ch) || isDigit(l.ch) {
			l.readChar()
		}
		return l.badNumber(position, line, col)
	}
	return token.Token{Type: token.NUMBER, Lexeme: text, Literal: val, Line: line, Column: col}
}

func (l *Lexer) badNumber(start, line, col int) token.Token {
	end := min(l.position, len(l.input))
	return token.Token{Type: token.ILLEGAL, Lexeme: l.input[start:end], Literal: "invalid number", Line: line, Column: col}
}

func isHexDigit(ch rune) bool {
	return isDigit(ch) || ('a' <= ch && ch <= 'f') || ('A' <= ch && ch <= 'F')
}

func isLetter(ch rune) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_' || (ch >= 0x80 && unicode.IsLetter(ch))
}

func isDigit(ch rune) bool {
	return '0' <= ch && ch <= '9'
}

func (l *Lexer) peekChar() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPosition:])
	return r
}

func (l *Lexer) peekChar2() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	_, w := utf8.DecodeRuneInString(l.input[l.readPosition:])
	pos2 := l.readPosition + w
	if pos2 >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[pos2:])
	return r
}

func (l *Lexer) skipWhitespace() {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\r' || l.ch == '\f' {
			l.readChar()
		}
		if l.ch == '#' {
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
			continue
		}
		break
	}
}
