package ast

import (
	"github.com/funvibe/rcore/internal/token"
)

// TokenProvider is an interface for any AST node that can provide its primary token.
// This is useful for error reporting.
type TokenProvider interface {
	GetToken() token.Token
}

// Node is the base interface for all AST nodes.
type Node interface {
	TokenLiteral() string
	Accept(v Visitor)
	// String deparses the node back to source form.
	String() string
}

// Expression is a Node that produces a value. Every construct of the language is an
// expression, including loops and assignments.
type Expression interface {
	Node
	expressionNode()
	GetToken() token.Token
}

// Program is the root node of every AST our parser produces.
type Program struct {
	File        string // Source file path
	Expressions []Expression
}

func (p *Program) Accept(v Visitor) { v.VisitProgram(p) }
func (p *Program) TokenLiteral() string {
	if len(p.Expressions) > 0 {
		return p.Expressions[0].TokenLiteral()
	}
	return ""
}
func (p *Program) String() string { return deparse(p) }

// Identifier is a variable reference or a backquoted name.
type Identifier struct {
	Token token.Token
	Value string
}

func (i *Identifier) Accept(v Visitor)      { v.VisitIdentifier(i) }
func (i *Identifier) expressionNode()       {}
func (i *Identifier) TokenLiteral() string  { return i.Token.Lexeme }
func (i *Identifier) GetToken() token.Token { return i.Token }
func (i *Identifier) String() string        { return deparse(i) }

// IsDots reports whether the identifier is the "..." formal.
func (i *Identifier) IsDots() bool { return i.Value == "..." }

// NumberLiteral is a double constant: 1, 2.5, 1e3, 0xFF.
type NumberLiteral struct {
	Token token.Token
	Value float64
}

func (n *NumberLiteral) Accept(v Visitor)      { v.VisitNumberLiteral(n) }
func (n *NumberLiteral) expressionNode()       {}
func (n *NumberLiteral) TokenLiteral() string  { return n.Token.Lexeme }
func (n *NumberLiteral) GetToken() token.Token { return n.Token }
func (n *NumberLiteral) String() string        { return deparse(n) }

// IntegerLiteral is an L-suffixed constant.
type IntegerLiteral struct {
	Token token.Token
	Value int32
}

func (n *IntegerLiteral) Accept(v Visitor)      { v.VisitIntegerLiteral(n) }
func (n *IntegerLiteral) expressionNode()       {}
func (n *IntegerLiteral) TokenLiteral() string  { return n.Token.Lexeme }
func (n *IntegerLiteral) GetToken() token.Token { return n.Token }
func (n *IntegerLiteral) String() string        { return deparse(n) }

// ComplexLiteral is an imaginary constant such as 2i.
type ComplexLiteral struct {
	Token token.Token
	Imag  float64
}

func (n *ComplexLiteral) Accept(v Visitor)      { v.VisitComplexLiteral(n) }
func (n *ComplexLiteral) expressionNode()       {}
func (n *ComplexLiteral) TokenLiteral() string  { return n.Token.Lexeme }
func (n *ComplexLiteral) GetToken() token.Token { return n.Token }
func (n *ComplexLiteral) String() string        { return deparse(n) }

type StringLiteral struct {
	Token token.Token
	Value string
}

func (s *StringLiteral) Accept(v Visitor)      { v.VisitStringLiteral(s) }
func (s *StringLiteral) expressionNode()       {}
func (s *StringLiteral) TokenLiteral() string  { return s.Token.Lexeme }
func (s *StringLiteral) GetToken() token.Token { return s.Token }
func (s *StringLiteral) String() string        { return deparse(s) }

// ConstantLiteral is one of the reserved constants; Token.Type tells which
// (TRUE, FALSE, NULL, NA, NA_integer_, NA_real_, NA_character_, Inf, NaN).
type ConstantLiteral struct {
	Token token.Token
}

func (c *ConstantLiteral) Accept(v Visitor)      { v.VisitConstantLiteral(c) }
func (c *ConstantLiteral) expressionNode()       {}
func (c *ConstantLiteral) TokenLiteral() string  { return c.Token.Lexeme }
func (c *ConstantLiteral) GetToken() token.Token { return c.Token }
func (c *ConstantLiteral) String() string        { return deparse(c) }

// IsConstant reports whether e always evaluates to the same value, so an argument
// promise for it can be created already forced.
func IsConstant(e Expression) bool {
	switch e.(type) {
	case *NumberLiteral, *IntegerLiteral, *ComplexLiteral, *StringLiteral, *ConstantLiteral:
		return true
	}
	return false
}
