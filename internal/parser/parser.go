package parser

import (
	"github.com/funvibe/rcore/internal/ast"
	"github.com/funvibe/rcore/internal/diagnostics"
	"github.com/funvibe/rcore/internal/lexer"
	"github.com/funvibe/rcore/internal/pipeline"
	"github.com/funvibe/rcore/internal/token"
)

// Operator precedence, lowest first.
const (
	_ int = iota
	LOWEST
	HELP         // ?
	EQ_ASSIGN    // =
	LEFT_ASSIGN  // <- <<-
	RIGHT_ASSIGN // ->
	TILDE        // ~
	OR           // | ||
	AND          // & &&
	NOT          // !
	COMPARE      // == != < > <= >=
	SUM          // + -
	PRODUCT      // * /
	SPECIAL      // %any%
	RANGE        // :
	UNARY        // unary + -
	POWER        // ^
	POSTFIX      // ( [ [[ $ @
	NAMESPACE    // ::
)

// MaxRecursionDepth bounds nesting so hostile input cannot overflow the stack.
const MaxRecursionDepth = 1000

var precedences = map[token.TokenType]int{
	token.QUESTION:     HELP,
	token.EQ_ASSIGN:    EQ_ASSIGN,
	token.LEFT_ASSIGN:  LEFT_ASSIGN,
	token.SUPER_ASSIGN: LEFT_ASSIGN,
	token.RIGHT_ASSIGN: RIGHT_ASSIGN,
	token.TILDE:        TILDE,
	token.OR:           OR,
	token.OR2:          OR,
	token.AND:          AND,
	token.AND2:         AND,
	token.EQ:           COMPARE,
	token.NOT_EQ:       COMPARE,
	token.LT:           COMPARE,
	token.GT:           COMPARE,
	token.LE:           COMPARE,
	token.GE:           COMPARE,
	token.PLUS:         SUM,
	token.MINUS:        SUM,
	token.ASTERISK:     PRODUCT,
	token.SLASH:        PRODUCT,
	token.SPECIAL:      SPECIAL,
	token.COLON:        RANGE,
	token.CARET:        POWER,
	token.LPAREN:       POSTFIX,
	token.LBRACKET:     POSTFIX,
	token.LBB:          POSTFIX,
	token.DOLLAR:       POSTFIX,
	token.AT:           POSTFIX,
	token.DOUBLE_COLON: NAMESPACE,
}

type (
	prefixParseFn func() ast.Expression
	infixParseFn  func(ast.Expression) ast.Expression
)

// Parser is a Pratt parser over a fully lexed token slice. Whether a newline ends an
// expression depends on the innermost open bracket: newlines are significant at top
// level and inside braces, and ignored inside parentheses and brackets.
type Parser struct {
	ctx    *pipeline.PipelineContext
	tokens []token.Token
	pos    int

	curToken token.Token

	newlines []bool
	braces   int
	depth    int
	failed   bool

	prefixParseFns map[token.TokenType]prefixParseFn
	infixParseFns  map[token.TokenType]infixParseFn
}

func New(tokens []token.Token, ctx *pipeline.PipelineContext) *Parser {
	p := &Parser{ctx: ctx, tokens: tokens, pos: -1, newlines: []bool{true}}
	if len(tokens) == 0 || tokens[len(tokens)-1].Type != token.EOF {
		p.tokens = append(p.tokens, token.Token{Type: token.EOF})
	}

	p.prefixParseFns = map[token.TokenType]prefixParseFn{
		token.IDENT:        p.parseIdentifier,
		token.NUMBER:       p.parseNumberLiteral,
		token.INTEGER:      p.parseIntegerLiteral,
		token.COMPLEX:      p.parseComplexLiteral,
		token.STRING:       p.parseStringLiteral,
		token.TRUE:         p.parseConstantLiteral,
		token.FALSE:        p.parseConstantLiteral,
		token.NULL:         p.parseConstantLiteral,
		token.NA:           p.parseConstantLiteral,
		token.NA_INTEGER:   p.parseConstantLiteral,
		token.NA_REAL:      p.parseConstantLiteral,
		token.NA_CHARACTER: p.parseConstantLiteral,
		token.INF:          p.parseConstantLiteral,
		token.NAN:          p.parseConstantLiteral,
		token.MINUS:        p.parseUnaryExpression,
		token.PLUS:         p.parseUnaryExpression,
		token.BANG:         p.parseNotExpression,
		token.TILDE:        p.parseFormulaPrefix,
		token.QUESTION:     p.parseFormulaPrefix,
		token.LPAREN:       p.parseParenExpression,
		token.LBRACE:       p.parseBlockExpression,
		token.FUNCTION:     p.parseFunctionLiteral,
		token.IF:           p.parseIfExpression,
		token.FOR:          p.parseForExpression,
		token.WHILE:        p.parseWhileExpression,
		token.REPEAT:       p.parseRepeatExpression,
		token.BREAK:        p.parseBreakExpression,
		token.NEXT:         p.parseBreakExpression,
	}

	p.infixParseFns = make(map[token.TokenType]infixParseFn)
	for _, t := range []token.TokenType{
		token.PLUS, token.MINUS, token.ASTERISK, token.SLASH, token.SPECIAL, token.COLON,
		token.EQ, token.NOT_EQ, token.LT, token.GT, token.LE, token.GE,
		token.AND, token.AND2, token.OR, token.OR2, token.TILDE, token.QUESTION,
	} {
		p.infixParseFns[t] = p.parseInfixExpression
	}
	p.infixParseFns[token.CARET] = p.parsePowerExpression
	p.infixParseFns[token.LEFT_ASSIGN] = p.parseAssignExpression
	p.infixParseFns[token.SUPER_ASSIGN] = p.parseAssignExpression
	p.infixParseFns[token.EQ_ASSIGN] = p.parseAssignExpression
	p.infixParseFns[token.RIGHT_ASSIGN] = p.parseRightAssignExpression
	p.infixParseFns[token.LPAREN] = p.parseCallExpression
	p.infixParseFns[token.LBRACKET] = p.parseIndexExpression
	p.infixParseFns[token.LBB] = p.parseIndexExpression
	p.infixParseFns[token.DOLLAR] = p.parseDollarExpression
	p.infixParseFns[token.AT] = p.parseDollarExpression
	p.infixParseFns[token.DOUBLE_COLON] = p.parseNamespaceExpression

	p.nextToken()
	return p
}

// Parse lexes and parses a complete source text.
func Parse(source string) (*ast.Program, error) {
	ctx := &pipeline.PipelineContext{SourceCode: source}
	p := New(lexer.New(source).Tokens(), ctx)
	prog := p.ParseProgram()
	if len(ctx.Errors) > 0 {
		return nil, ctx.Errors[0]
	}
	return prog, nil
}

// ParseProgram parses expressions separated by newlines or semicolons up to EOF. It
// stops at the first syntax error.
func (p *Parser) ParseProgram() *ast.Program {
	program := &ast.Program{}
	for !p.failed {
		p.skipSeparators()
		if p.curTokenIs(token.EOF) {
			break
		}
		expr := p.parseExpression(LOWEST)
		if p.failed {
			break
		}
		program.Expressions = append(program.Expressions, expr)
		if !p.expectSeparator() {
			break
		}
	}
	return program
}

func (p *Parser) significant() bool { return p.newlines[len(p.newlines)-1] }

func (p *Parser) pushNewlines(sig bool) { p.newlines = append(p.newlines, sig) }

func (p *Parser) popNewlines() { p.newlines = p.newlines[:len(p.newlines)-1] }

func (p *Parser) nextToken() {
	p.pos++
	if !p.significant() {
		for p.pos < len(p.tokens)-1 && p.tokens[p.pos].Type == token.NEWLINE {
			p.pos++
		}
	}
	if p.pos >= len(p.tokens) {
		p.pos = len(p.tokens) - 1
	}
	p.curToken = p.tokens[p.pos]
}

func (p *Parser) peekToken() token.Token {
	i := p.pos + 1
	if !p.significant() {
		for i < len(p.tokens)-1 && p.tokens[i].Type == token.NEWLINE {
			i++
		}
	}
	if i >= len(p.tokens) {
		i = len(p.tokens) - 1
	}
	return p.tokens[i]
}

// peekPastNewlines returns the first non-newline token after the current one.
func (p *Parser) peekPastNewlines() token.Token {
	i := p.pos + 1
	for i < len(p.tokens)-1 && p.tokens[i].Type == token.NEWLINE {
		i++
	}
	if i >= len(p.tokens) {
		i = len(p.tokens) - 1
	}
	return p.tokens[i]
}

func (p *Parser) curTokenIs(t token.TokenType) bool { return p.curToken.Type == t }

func (p *Parser) peekTokenIs(t token.TokenType) bool { return p.peekToken().Type == t }

func (p *Parser) skipNewlines() {
	for p.curTokenIs(token.NEWLINE) {
		p.nextToken()
	}
}

func (p *Parser) skipSeparators() {
	for p.curTokenIs(token.NEWLINE) || p.curTokenIs(token.SEMICOLON) {
		p.nextToken()
	}
}

// expectSeparator moves past the end of a complete expression: a newline, a semicolon
// or EOF (left as the current token).
func (p *Parser) expectSeparator() bool {
	next := p.peekToken()
	switch next.Type {
	case token.EOF:
		p.nextToken()
		return true
	case token.NEWLINE, token.SEMICOLON:
		p.nextToken()
		return true
	}
	p.nextToken()
	p.unexpected(p.curToken)
	return false
}

func (p *Parser) expectPeek(t token.TokenType) bool {
	if p.peekTokenIs(t) {
		p.nextToken()
		return true
	}
	p.nextToken()
	p.unexpected(p.curToken)
	return false
}

func (p *Parser) peekPrecedence() int {
	if pr, ok := precedences[p.peekToken().Type]; ok {
		return pr
	}
	return LOWEST
}

func (p *Parser) curPrecedence() int {
	if pr, ok := precedences[p.curToken.Type]; ok {
		return pr
	}
	return LOWEST
}

func (p *Parser) addError(code diagnostics.ErrorCode, tok token.Token, format string, args ...interface{}) {
	if p.failed {
		return
	}
	p.failed = true
	err := diagnostics.NewError(code, tok, format, args...)
	if p.ctx != nil {
		err.File = p.ctx.FilePath
		p.ctx.Errors = append(p.ctx.Errors, err)
	}
}

// unexpected reports tok as a syntax error, choosing the code from the token class.
func (p *Parser) unexpected(tok token.Token) {
	switch tok.Type {
	case token.EOF:
		p.addError(diagnostics.ErrP003, tok, "unexpected end of input")
	case token.ILLEGAL:
		msg, _ := tok.Literal.(string)
		switch msg {
		case "unterminated string":
			p.addError(diagnostics.ErrP002, tok, "unexpected INCOMPLETE_STRING")
		case "invalid number":
			p.addError(diagnostics.ErrP004, tok, "invalid number '%s'", tok.Lexeme)
		default:
			p.addError(diagnostics.ErrP001, tok, "unexpected input")
		}
	default:
		p.addError(diagnostics.ErrP001, tok, "unexpected %s", describeToken(tok))
	}
}

func describeToken(tok token.Token) string {
	switch tok.Type {
	case token.IDENT:
		return "symbol"
	case token.NUMBER, token.INTEGER, token.COMPLEX:
		return "numeric constant"
	case token.STRING:
		return "string constant"
	case token.NEWLINE:
		return "newline"
	case token.TRUE, token.FALSE, token.NULL, token.NA, token.NA_INTEGER, token.NA_REAL,
		token.NA_CHARACTER, token.INF, token.NAN:
		return "numeric constant"
	case token.SPECIAL:
		return "SPECIAL"
	case token.LEFT_ASSIGN, token.SUPER_ASSIGN, token.EQ_ASSIGN:
		return "assignment"
	}
	return "'" + tok.Lexeme + "'"
}
