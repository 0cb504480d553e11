package parser

import (
	"github.com/funvibe/rcore/internal/ast"
	"github.com/funvibe/rcore/internal/diagnostics"
	"github.com/funvibe/rcore/internal/token"
)

func (p *Parser) parseExpression(precedence int) ast.Expression {
	p.depth++
	defer func() { p.depth-- }()

	if p.depth > MaxRecursionDepth {
		p.addError(diagnostics.ErrP001, p.curToken, "contextstack overflow")
		return nil
	}

	// an operand may start on the line after an operator
	p.skipNewlines()

	prefix := p.prefixParseFns[p.curToken.Type]
	if prefix == nil {
		p.unexpected(p.curToken)
		return nil
	}
	leftExp := prefix()
	if p.failed {
		return nil
	}

	for precedence < p.peekPrecedence() {
		infix := p.infixParseFns[p.peekToken().Type]
		if infix == nil {
			return leftExp
		}
		p.nextToken()
		leftExp = infix(leftExp)
		if p.failed {
			return nil
		}
	}
	return leftExp
}

func (p *Parser) parseIdentifier() ast.Expression {
	name, _ := p.curToken.Literal.(string)
	return &ast.Identifier{Token: p.curToken, Value: name}
}

func (p *Parser) parseNumberLiteral() ast.Expression {
	return &ast.NumberLiteral{Token: p.curToken, Value: p.curToken.Literal.(float64)}
}

func (p *Parser) parseIntegerLiteral() ast.Expression {
	return &ast.IntegerLiteral{Token: p.curToken, Value: int32(p.curToken.Literal.(int64))}
}

func (p *Parser) parseComplexLiteral() ast.Expression {
	return &ast.ComplexLiteral{Token: p.curToken, Imag: p.curToken.Literal.(float64)}
}

func (p *Parser) parseStringLiteral() ast.Expression {
	return &ast.StringLiteral{Token: p.curToken, Value: p.curToken.Literal.(string)}
}

func (p *Parser) parseConstantLiteral() ast.Expression {
	return &ast.ConstantLiteral{Token: p.curToken}
}

func (p *Parser) parseUnaryExpression() ast.Expression {
	expression := &ast.PrefixExpression{Token: p.curToken, Operator: p.curToken.Lexeme}
	p.nextToken()
	expression.Right = p.parseExpression(UNARY)
	return expression
}

func (p *Parser) parseNotExpression() ast.Expression {
	expression := &ast.PrefixExpression{Token: p.curToken, Operator: "!"}
	p.nextToken()
	expression.Right = p.parseExpression(NOT)
	return expression
}

func (p *Parser) parseFormulaPrefix() ast.Expression {
	expression := &ast.PrefixExpression{Token: p.curToken, Operator: p.curToken.Lexeme}
	p.nextToken()
	expression.Right = p.parseExpression(p.curPrecedenceOf(expression.Token.Type))
	return expression
}

func (p *Parser) curPrecedenceOf(t token.TokenType) int {
	return precedences[t]
}

func (p *Parser) parseInfixExpression(left ast.Expression) ast.Expression {
	expression := &ast.InfixExpression{
		Token:    p.curToken,
		Operator: p.curToken.Lexeme,
		Left:     left,
	}
	precedence := p.curPrecedence()
	p.nextToken()
	expression.Right = p.parseExpression(precedence)
	return expression
}

// parsePowerExpression handles ^, which is right associative.
func (p *Parser) parsePowerExpression(left ast.Expression) ast.Expression {
	expression := &ast.InfixExpression{Token: p.curToken, Operator: "^", Left: left}
	p.nextToken()
	expression.Right = p.parseExpression(POWER - 1)
	return expression
}

func (p *Parser) parseAssignExpression(left ast.Expression) ast.Expression {
	expression := &ast.AssignExpression{Token: p.curToken, Operator: p.curToken.Lexeme, Target: left}
	precedence := p.curPrecedence()
	if !isAssignable(left) {
		p.addError(diagnostics.ErrP001, p.curToken, "invalid assignment target")
		return nil
	}
	p.nextToken()
	expression.Value = p.parseExpression(precedence - 1)
	return expression
}

// parseRightAssignExpression turns value -> target into target <- value.
func (p *Parser) parseRightAssignExpression(left ast.Expression) ast.Expression {
	expression := &ast.AssignExpression{Token: p.curToken, Operator: "<-", Value: left}
	p.nextToken()
	expression.Target = p.parseExpression(RIGHT_ASSIGN)
	if expression.Target != nil && !isAssignable(expression.Target) {
		p.addError(diagnostics.ErrP001, expression.Token, "invalid assignment target")
		return nil
	}
	return expression
}

func isAssignable(e ast.Expression) bool {
	switch t := e.(type) {
	case *ast.Identifier, *ast.StringLiteral:
		return true
	case *ast.IndexExpression:
		return isAssignable(t.Left)
	case *ast.DollarExpression:
		return isAssignable(t.Left)
	case *ast.CallExpression:
		// replacement calls: names(x) <- v, attr(x, "a") <- v
		return t.FunctionName() != "" && len(t.Arguments) > 0 && t.Arguments[0].Value != nil &&
			isAssignable(t.Arguments[0].Value)
	case *ast.ParenExpression:
		return false
	}
	return false
}

func (p *Parser) parseParenExpression() ast.Expression {
	expression := &ast.ParenExpression{Token: p.curToken}
	p.pushNewlines(false)
	defer p.popNewlines()
	p.nextToken()
	expression.Inner = p.parseExpression(LOWEST)
	if p.failed || !p.expectPeek(token.RPAREN) {
		return nil
	}
	return expression
}

func (p *Parser) parseBlockExpression() ast.Expression {
	block := &ast.BlockExpression{Token: p.curToken}
	p.braces++
	p.pushNewlines(true)
	defer func() {
		p.popNewlines()
		p.braces--
	}()

	p.nextToken()
	for {
		p.skipSeparators()
		if p.curTokenIs(token.RBRACE) {
			return block
		}
		if p.curTokenIs(token.EOF) {
			p.unexpected(p.curToken)
			return nil
		}
		expr := p.parseExpression(LOWEST)
		if p.failed {
			return nil
		}
		block.Expressions = append(block.Expressions, expr)
		switch p.peekToken().Type {
		case token.RBRACE:
			p.nextToken()
			return block
		case token.NEWLINE, token.SEMICOLON:
			p.nextToken()
		default:
			p.nextToken()
			p.unexpected(p.curToken)
			return nil
		}
	}
}

func (p *Parser) parseCallExpression(function ast.Expression) ast.Expression {
	switch function.(type) {
	case *ast.Identifier, *ast.StringLiteral, *ast.CallExpression, *ast.ParenExpression,
		*ast.IndexExpression, *ast.DollarExpression, *ast.NamespaceExpression, *ast.FunctionLiteral:
	default:
		p.unexpected(p.curToken)
		return nil
	}
	if s, ok := function.(*ast.StringLiteral); ok {
		// "f"(x) calls f
		function = &ast.Identifier{Token: s.Token, Value: s.Value}
	}
	call := &ast.CallExpression{Token: p.curToken, Function: function}
	call.Arguments = p.parseArguments(token.RPAREN)
	if p.failed {
		return nil
	}
	return call
}

func (p *Parser) parseIndexExpression(left ast.Expression) ast.Expression {
	expression := &ast.IndexExpression{Token: p.curToken, Left: left, Double: p.curTokenIs(token.LBB)}
	expression.Arguments = p.parseArguments(token.RBRACKET)
	if p.failed {
		return nil
	}
	if expression.Double {
		p.pushNewlines(false)
		ok := p.expectPeek(token.RBRACKET)
		p.popNewlines()
		if !ok {
			return nil
		}
	}
	return expression
}

// parseArguments parses a comma separated argument list up to the closing token end.
// The current token is the opening bracket. Arguments may be empty (x[, 1]) or named
// (f(a = 1)); on return the current token is end.
func (p *Parser) parseArguments(end token.TokenType) []*ast.Argument {
	p.pushNewlines(false)
	defer p.popNewlines()

	var args []*ast.Argument
	if p.peekTokenIs(end) {
		p.nextToken()
		return args
	}
	for {
		p.nextToken()
		if p.curTokenIs(token.COMMA) {
			args = append(args, &ast.Argument{Token: p.curToken})
			continue
		}
		if p.curTokenIs(end) {
			args = append(args, &ast.Argument{Token: p.curToken})
			return args
		}

		arg := &ast.Argument{Token: p.curToken}
		if p.isArgumentName() && p.peekTokenIs(token.EQ_ASSIGN) {
			arg.Name = argumentName(p.curToken)
			p.nextToken()
			if !p.peekTokenIs(token.COMMA) && !p.peekTokenIs(end) {
				p.nextToken()
				arg.Value = p.parseExpression(EQ_ASSIGN)
			}
		} else {
			arg.Value = p.parseExpression(EQ_ASSIGN)
		}
		if p.failed {
			return nil
		}
		args = append(args, arg)

		switch p.peekToken().Type {
		case token.COMMA:
			p.nextToken()
			if p.peekTokenIs(end) {
				p.nextToken()
				args = append(args, &ast.Argument{Token: p.curToken})
				return args
			}
		case end:
			p.nextToken()
			return args
		default:
			p.nextToken()
			p.unexpected(p.curToken)
			return nil
		}
	}
}

func (p *Parser) isArgumentName() bool {
	switch p.curToken.Type {
	case token.IDENT, token.STRING, token.NULL:
		return true
	}
	return false
}

func argumentName(tok token.Token) string {
	if s, ok := tok.Literal.(string); ok {
		return s
	}
	return tok.Lexeme
}

func (p *Parser) parseDollarExpression(left ast.Expression) ast.Expression {
	expression := &ast.DollarExpression{Token: p.curToken, Left: left, At: p.curTokenIs(token.AT)}
	p.nextToken()
	switch p.curToken.Type {
	case token.IDENT, token.STRING:
		expression.Name = argumentName(p.curToken)
	case token.LPAREN:
		// x$`f`() style is handled by IDENT; a parenthesized name is not valid
		p.unexpected(p.curToken)
		return nil
	default:
		if p.curToken.Type == token.EOF || p.curToken.Type == token.NEWLINE {
			p.unexpected(p.curToken)
			return nil
		}
		// keywords and constants are accepted as names after $
		expression.Name = p.curToken.Lexeme
	}
	return expression
}

func (p *Parser) parseNamespaceExpression(left ast.Expression) ast.Expression {
	pkg, ok := left.(*ast.Identifier)
	if !ok {
		p.unexpected(p.curToken)
		return nil
	}
	expression := &ast.NamespaceExpression{Token: p.curToken, Package: pkg.Value}
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	expression.Name = argumentName(p.curToken)
	return expression
}
