package parser

import (
	"github.com/funvibe/rcore/internal/ast"
	"github.com/funvibe/rcore/internal/diagnostics"
	"github.com/funvibe/rcore/internal/token"
)

func (p *Parser) parseFunctionLiteral() ast.Expression {
	fn := &ast.FunctionLiteral{Token: p.curToken}
	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	fn.Parameters = p.parseParameters()
	if p.failed {
		return nil
	}
	p.nextToken()
	fn.Body = p.parseExpression(LOWEST)
	if p.failed {
		return nil
	}
	return fn
}

// parseParameters parses the formal list; the current token is '(' and on return it is
// ')'.
func (p *Parser) parseParameters() []*ast.Parameter {
	p.pushNewlines(false)
	defer p.popNewlines()

	var params []*ast.Parameter
	seen := map[string]bool{}
	if p.peekTokenIs(token.RPAREN) {
		p.nextToken()
		return params
	}
	for {
		if !p.expectPeek(token.IDENT) {
			return nil
		}
		param := &ast.Parameter{Token: p.curToken, Name: argumentName(p.curToken)}
		if seen[param.Name] {
			p.addError(diagnostics.ErrP001, p.curToken, "repeated formal argument '%s'", param.Name)
			return nil
		}
		seen[param.Name] = true
		if p.peekTokenIs(token.EQ_ASSIGN) {
			p.nextToken()
			p.nextToken()
			param.Default = p.parseExpression(EQ_ASSIGN)
			if p.failed {
				return nil
			}
		}
		params = append(params, param)
		if p.peekTokenIs(token.COMMA) {
			p.nextToken()
			continue
		}
		if !p.expectPeek(token.RPAREN) {
			return nil
		}
		return params
	}
}

// parseCondition parses "(expr)" after if or while; on return the current token is ')'.
func (p *Parser) parseCondition() ast.Expression {
	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	p.pushNewlines(false)
	defer p.popNewlines()
	p.nextToken()
	cond := p.parseExpression(LOWEST)
	if p.failed || !p.expectPeek(token.RPAREN) {
		return nil
	}
	return cond
}

func (p *Parser) parseIfExpression() ast.Expression {
	expression := &ast.IfExpression{Token: p.curToken}
	expression.Condition = p.parseCondition()
	if p.failed {
		return nil
	}
	p.nextToken()
	expression.Consequence = p.parseExpression(LOWEST)
	if p.failed {
		return nil
	}

	// inside braces an else may follow on a later line; at top level the newline
	// completes the if
	if p.braces > 0 && p.significant() && p.peekTokenIs(token.NEWLINE) && p.peekPastNewlines().Type == token.ELSE {
		for !p.peekTokenIs(token.ELSE) {
			p.nextToken()
		}
	}
	if p.peekTokenIs(token.ELSE) {
		p.nextToken()
		p.nextToken()
		expression.Alternative = p.parseExpression(LOWEST)
		if p.failed {
			return nil
		}
	}
	return expression
}

func (p *Parser) parseForExpression() ast.Expression {
	expression := &ast.ForExpression{Token: p.curToken}
	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	p.pushNewlines(false)
	if !p.expectPeek(token.IDENT) {
		p.popNewlines()
		return nil
	}
	expression.Variable = &ast.Identifier{Token: p.curToken, Value: argumentName(p.curToken)}
	if !p.expectPeek(token.IN) {
		p.popNewlines()
		return nil
	}
	p.nextToken()
	expression.Sequence = p.parseExpression(LOWEST)
	if p.failed || !p.expectPeek(token.RPAREN) {
		p.popNewlines()
		return nil
	}
	p.popNewlines()

	p.nextToken()
	expression.Body = p.parseExpression(LOWEST)
	if p.failed {
		return nil
	}
	return expression
}

func (p *Parser) parseWhileExpression() ast.Expression {
	expression := &ast.WhileExpression{Token: p.curToken}
	expression.Condition = p.parseCondition()
	if p.failed {
		return nil
	}
	p.nextToken()
	expression.Body = p.parseExpression(LOWEST)
	if p.failed {
		return nil
	}
	return expression
}

func (p *Parser) parseRepeatExpression() ast.Expression {
	expression := &ast.RepeatExpression{Token: p.curToken}
	p.nextToken()
	expression.Body = p.parseExpression(LOWEST)
	if p.failed {
		return nil
	}
	return expression
}

func (p *Parser) parseBreakExpression() ast.Expression {
	return &ast.BreakExpression{Token: p.curToken, Next: p.curTokenIs(token.NEXT)}
}
