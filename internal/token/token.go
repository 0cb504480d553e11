package token

type TokenType string

type Token struct {
	Type    TokenType
	Lexeme  string
	Literal interface{}
	Line    int
	Column  int
}

const (
	ILLEGAL TokenType = "ILLEGAL"
	EOF     TokenType = "EOF"
	NEWLINE TokenType = "NEWLINE"

	IDENT   TokenType = "IDENT"
	NUMBER  TokenType = "NUMBER"  // double literal: 1, 1.5, 1e3, 0x1F
	INTEGER TokenType = "INTEGER" // integer literal: 1L
	COMPLEX TokenType = "COMPLEX" // imaginary literal: 2i
	STRING  TokenType = "STRING"

	// Constants
	TRUE         TokenType = "TRUE"
	FALSE        TokenType = "FALSE"
	NULL         TokenType = "NULL"
	NA           TokenType = "NA"
	NA_INTEGER   TokenType = "NA_integer_"
	NA_REAL      TokenType = "NA_real_"
	NA_CHARACTER TokenType = "NA_character_"
	INF          TokenType = "Inf"
	NAN          TokenType = "NaN"

	// Keywords
	FUNCTION TokenType = "function"
	IF       TokenType = "if"
	ELSE     TokenType = "else"
	FOR      TokenType = "for"
	IN       TokenType = "in"
	WHILE    TokenType = "while"
	REPEAT   TokenType = "repeat"
	BREAK    TokenType = "break"
	NEXT     TokenType = "next"

	// Operators
	PLUS         TokenType = "+"
	MINUS        TokenType = "-"
	ASTERISK     TokenType = "*"
	SLASH        TokenType = "/"
	CARET        TokenType = "^"
	SPECIAL      TokenType = "%op%" // %%, %/%, %*%, %in%, user %x%
	LT           TokenType = "<"
	GT           TokenType = ">"
	LE           TokenType = "<="
	GE           TokenType = ">="
	EQ           TokenType = "=="
	NOT_EQ       TokenType = "!="
	BANG         TokenType = "!"
	AND          TokenType = "&"
	AND2         TokenType = "&&"
	OR           TokenType = "|"
	OR2          TokenType = "||"
	LEFT_ASSIGN  TokenType = "<-"
	SUPER_ASSIGN TokenType = "<<-"
	RIGHT_ASSIGN TokenType = "->"
	EQ_ASSIGN    TokenType = "="
	TILDE        TokenType = "~"
	COLON        TokenType = ":"
	DOUBLE_COLON TokenType = "::"
	DOLLAR       TokenType = "$"
	AT           TokenType = "@"
	QUESTION     TokenType = "?"

	// Delimiters
	COMMA     TokenType = ","
	SEMICOLON TokenType = ";"
	LPAREN    TokenType = "("
	RPAREN    TokenType = ")"
	LBRACE    TokenType = "{"
	RBRACE    TokenType = "}"
	LBRACKET  TokenType = "["
	RBRACKET  TokenType = "]"
	LBB       TokenType = "[["
)

var keywords = map[string]TokenType{
	"function":      FUNCTION,
	"if":            IF,
	"else":          ELSE,
	"for":           FOR,
	"in":            IN,
	"while":         WHILE,
	"repeat":        REPEAT,
	"break":         BREAK,
	"next":          NEXT,
	"TRUE":          TRUE,
	"FALSE":         FALSE,
	"NULL":          NULL,
	"NA":            NA,
	"NA_integer_":   NA_INTEGER,
	"NA_real_":      NA_REAL,
	"NA_character_": NA_CHARACTER,
	"Inf":           INF,
	"NaN":           NAN,
}

// LookupIdent classifies an identifier as keyword, constant or plain name.
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}
