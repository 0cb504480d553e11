package ast

import (
	"github.com/funvibe/rcore/internal/token"
)

// IfExpression is if (cond) a else b. Alternative is nil without else.
type IfExpression struct {
	Token       token.Token // The 'if' token
	Condition   Expression
	Consequence Expression
	Alternative Expression
}

func (ie *IfExpression) Accept(v Visitor)      { v.VisitIfExpression(ie) }
func (ie *IfExpression) expressionNode()       {}
func (ie *IfExpression) TokenLiteral() string  { return ie.Token.Lexeme }
func (ie *IfExpression) GetToken() token.Token { return ie.Token }
func (ie *IfExpression) String() string        { return deparse(ie) }

// ForExpression is for (var in seq) body.
type ForExpression struct {
	Token    token.Token // The 'for' token
	Variable *Identifier
	Sequence Expression
	Body     Expression
}

func (fe *ForExpression) Accept(v Visitor)      { v.VisitForExpression(fe) }
func (fe *ForExpression) expressionNode()       {}
func (fe *ForExpression) TokenLiteral() string  { return fe.Token.Lexeme }
func (fe *ForExpression) GetToken() token.Token { return fe.Token }
func (fe *ForExpression) String() string        { return deparse(fe) }

type WhileExpression struct {
	Token     token.Token // The 'while' token
	Condition Expression
	Body      Expression
}

func (we *WhileExpression) Accept(v Visitor)      { v.VisitWhileExpression(we) }
func (we *WhileExpression) expressionNode()       {}
func (we *WhileExpression) TokenLiteral() string  { return we.Token.Lexeme }
func (we *WhileExpression) GetToken() token.Token { return we.Token }
func (we *WhileExpression) String() string        { return deparse(we) }

type RepeatExpression struct {
	Token token.Token // The 'repeat' token
	Body  Expression
}

func (re *RepeatExpression) Accept(v Visitor)      { v.VisitRepeatExpression(re) }
func (re *RepeatExpression) expressionNode()       {}
func (re *RepeatExpression) TokenLiteral() string  { return re.Token.Lexeme }
func (re *RepeatExpression) GetToken() token.Token { return re.Token }
func (re *RepeatExpression) String() string        { return deparse(re) }

// BreakExpression is break; with Next set it is next.
type BreakExpression struct {
	Token token.Token
	Next  bool
}

func (be *BreakExpression) Accept(v Visitor)      { v.VisitBreakExpression(be) }
func (be *BreakExpression) expressionNode()       {}
func (be *BreakExpression) TokenLiteral() string  { return be.Token.Lexeme }
func (be *BreakExpression) GetToken() token.Token { return be.Token }
func (be *BreakExpression) String() string        { return deparse(be) }
