package ast

import (
	"github.com/funvibe/rcore/internal/token"
)

// PrefixExpression is a unary operator application: -x, !x, ~x.
type PrefixExpression struct {
	Token    token.Token // The operator token
	Operator string
	Right    Expression
}

func (pe *PrefixExpression) Accept(v Visitor)      { v.VisitPrefixExpression(pe) }
func (pe *PrefixExpression) expressionNode()       {}
func (pe *PrefixExpression) TokenLiteral() string  { return pe.Token.Lexeme }
func (pe *PrefixExpression) GetToken() token.Token { return pe.Token }
func (pe *PrefixExpression) String() string        { return deparse(pe) }

// InfixExpression is a binary operator application: a + b, a %in% b, a && b, 1:n.
type InfixExpression struct {
	Token    token.Token // The operator token
	Left     Expression
	Operator string
	Right    Expression
}

func (ie *InfixExpression) Accept(v Visitor)      { v.VisitInfixExpression(ie) }
func (ie *InfixExpression) expressionNode()       {}
func (ie *InfixExpression) TokenLiteral() string  { return ie.Token.Lexeme }
func (ie *InfixExpression) GetToken() token.Token { return ie.Token }
func (ie *InfixExpression) String() string        { return deparse(ie) }

// AssignExpression covers <-, <<-, = and ->. For -> the parser swaps the operands so
// Target is always the assigned place.
type AssignExpression struct {
	Token    token.Token
	Operator string // "<-", "<<-" or "="
	Target   Expression
	Value    Expression
}

func (ae *AssignExpression) Accept(v Visitor)      { v.VisitAssignExpression(ae) }
func (ae *AssignExpression) expressionNode()       {}
func (ae *AssignExpression) TokenLiteral() string  { return ae.Token.Lexeme }
func (ae *AssignExpression) GetToken() token.Token { return ae.Token }
func (ae *AssignExpression) String() string        { return deparse(ae) }

// IsSuper reports whether the assignment targets an enclosing environment.
func (ae *AssignExpression) IsSuper() bool { return ae.Operator == "<<-" }

// Argument is one supplied argument of a call or index expression. Value is nil for
// an empty argument, as in x[, 1].
type Argument struct {
	Token token.Token
	Name  string
	Value Expression
}

// CallExpression is a function call f(a, b = 2).
type CallExpression struct {
	Token     token.Token // The '(' token
	Function  Expression
	Arguments []*Argument
}

func (ce *CallExpression) Accept(v Visitor)      { v.VisitCallExpression(ce) }
func (ce *CallExpression) expressionNode()       {}
func (ce *CallExpression) TokenLiteral() string  { return ce.Token.Lexeme }
func (ce *CallExpression) GetToken() token.Token { return ce.Token }
func (ce *CallExpression) String() string        { return deparse(ce) }

// FunctionName returns the called name when the callee is a plain identifier.
func (ce *CallExpression) FunctionName() string {
	if id, ok := ce.Function.(*Identifier); ok {
		return id.Value
	}
	return ""
}

// IndexExpression is x[i, j] or, with Double set, x[[i]].
type IndexExpression struct {
	Token     token.Token // The '[' or '[[' token
	Left      Expression
	Arguments []*Argument
	Double    bool
}

func (ie *IndexExpression) Accept(v Visitor)      { v.VisitIndexExpression(ie) }
func (ie *IndexExpression) expressionNode()       {}
func (ie *IndexExpression) TokenLiteral() string  { return ie.Token.Lexeme }
func (ie *IndexExpression) GetToken() token.Token { return ie.Token }
func (ie *IndexExpression) String() string        { return deparse(ie) }

// DollarExpression is x$name (or x@name when At is set).
type DollarExpression struct {
	Token token.Token
	Left  Expression
	Name  string
	At    bool
}

func (de *DollarExpression) Accept(v Visitor)      { v.VisitDollarExpression(de) }
func (de *DollarExpression) expressionNode()       {}
func (de *DollarExpression) TokenLiteral() string  { return de.Token.Lexeme }
func (de *DollarExpression) GetToken() token.Token { return de.Token }
func (de *DollarExpression) String() string        { return deparse(de) }

// NamespaceExpression is pkg::name. There are no packages, so it resolves name from
// the base environment.
type NamespaceExpression struct {
	Token   token.Token
	Package string
	Name    string
}

func (ne *NamespaceExpression) Accept(v Visitor)      { v.VisitNamespaceExpression(ne) }
func (ne *NamespaceExpression) expressionNode()       {}
func (ne *NamespaceExpression) TokenLiteral() string  { return ne.Token.Lexeme }
func (ne *NamespaceExpression) GetToken() token.Token { return ne.Token }
func (ne *NamespaceExpression) String() string        { return deparse(ne) }

// Parameter is one formal of a function literal.
type Parameter struct {
	Token   token.Token
	Name    string
	Default Expression // nil when absent
}

// FunctionLiteral is function(params) body.
type FunctionLiteral struct {
	Token      token.Token // The 'function' token
	Parameters []*Parameter
	Body       Expression
}

func (fl *FunctionLiteral) Accept(v Visitor)      { v.VisitFunctionLiteral(fl) }
func (fl *FunctionLiteral) expressionNode()       {}
func (fl *FunctionLiteral) TokenLiteral() string  { return fl.Token.Lexeme }
func (fl *FunctionLiteral) GetToken() token.Token { return fl.Token }
func (fl *FunctionLiteral) String() string        { return deparse(fl) }

// BlockExpression is { e1; e2; ... }; its value is the value of the last expression.
type BlockExpression struct {
	Token       token.Token // {
	Expressions []Expression
}

func (be *BlockExpression) Accept(v Visitor)      { v.VisitBlockExpression(be) }
func (be *BlockExpression) expressionNode()       {}
func (be *BlockExpression) TokenLiteral() string  { return be.Token.Lexeme }
func (be *BlockExpression) GetToken() token.Token { return be.Token }
func (be *BlockExpression) String() string        { return deparse(be) }

// ParenExpression is (e). It makes an invisible value visible again.
type ParenExpression struct {
	Token token.Token
	Inner Expression
}

func (pe *ParenExpression) Accept(v Visitor)      { v.VisitParenExpression(pe) }
func (pe *ParenExpression) expressionNode()       {}
func (pe *ParenExpression) TokenLiteral() string  { return pe.Token.Lexeme }
func (pe *ParenExpression) GetToken() token.Token { return pe.Token }
func (pe *ParenExpression) String() string        { return deparse(pe) }
