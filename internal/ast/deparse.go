package ast

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/funvibe/rcore/internal/token"
	"github.com/funvibe/rcore/internal/utils"
)

// deparser renders nodes back to source text in the canonical layout: spaces around
// binary operators except ^ : $ @, four-space indentation inside braces.
type deparser struct {
	buf    bytes.Buffer
	indent int
}

func deparse(n Node) string {
	d := &deparser{}
	n.Accept(d)
	return d.buf.String()
}

func (d *deparser) write(s string) { d.buf.WriteString(s) }

func (d *deparser) expr(e Expression) {
	if e != nil {
		e.Accept(d)
	}
}

func (d *deparser) newline() {
	d.buf.WriteByte('\n')
	d.write(strings.Repeat("    ", d.indent))
}

func (d *deparser) VisitProgram(p *Program) {
	for i, e := range p.Expressions {
		if i > 0 {
			d.buf.WriteByte('\n')
		}
		d.expr(e)
	}
}

func (d *deparser) VisitIdentifier(i *Identifier) { d.write(QuoteName(i.Value)) }

func (d *deparser) VisitNumberLiteral(n *NumberLiteral) { d.write(utils.FormatNumber(n.Value)) }

func (d *deparser) VisitIntegerLiteral(n *IntegerLiteral) {
	d.write(strconv.FormatInt(int64(n.Value), 10) + "L")
}

func (d *deparser) VisitComplexLiteral(n *ComplexLiteral) { d.write(utils.FormatNumber(n.Imag) + "i") }

func (d *deparser) VisitStringLiteral(s *StringLiteral) { d.write(utils.QuoteString(s.Value)) }

func (d *deparser) VisitConstantLiteral(c *ConstantLiteral) { d.write(string(c.Token.Type)) }

func (d *deparser) VisitPrefixExpression(pe *PrefixExpression) {
	d.write(pe.Operator)
	d.expr(pe.Right)
}

func (d *deparser) VisitInfixExpression(ie *InfixExpression) {
	d.expr(ie.Left)
	switch ie.Operator {
	case "^", ":":
		d.write(ie.Operator)
	default:
		d.write(" " + ie.Operator + " ")
	}
	d.expr(ie.Right)
}

func (d *deparser) VisitAssignExpression(ae *AssignExpression) {
	d.expr(ae.Target)
	d.write(" " + ae.Operator + " ")
	d.expr(ae.Value)
}

func (d *deparser) args(args []*Argument) {
	for i, a := range args {
		if i > 0 {
			d.write(", ")
		}
		if a.Name != "" {
			d.write(QuoteName(a.Name) + " = ")
		}
		d.expr(a.Value)
	}
}

func (d *deparser) VisitCallExpression(ce *CallExpression) {
	if fl, ok := ce.Function.(*FunctionLiteral); ok {
		d.write("(")
		d.VisitFunctionLiteral(fl)
		d.write(")")
	} else {
		d.expr(ce.Function)
	}
	d.write("(")
	d.args(ce.Arguments)
	d.write(")")
}

func (d *deparser) VisitIndexExpression(ie *IndexExpression) {
	d.expr(ie.Left)
	if ie.Double {
		d.write("[[")
	} else {
		d.write("[")
	}
	d.args(ie.Arguments)
	if ie.Double {
		d.write("]]")
	} else {
		d.write("]")
	}
}

func (d *deparser) VisitDollarExpression(de *DollarExpression) {
	d.expr(de.Left)
	if de.At {
		d.write("@")
	} else {
		d.write("$")
	}
	d.write(QuoteName(de.Name))
}

func (d *deparser) VisitNamespaceExpression(ne *NamespaceExpression) {
	d.write(ne.Package + "::" + QuoteName(ne.Name))
}

func (d *deparser) VisitFunctionLiteral(fl *FunctionLiteral) {
	d.write("function(")
	for i, p := range fl.Parameters {
		if i > 0 {
			d.write(", ")
		}
		d.write(QuoteName(p.Name))
		if p.Default != nil {
			d.write(" = ")
			d.expr(p.Default)
		}
	}
	d.write(") ")
	d.expr(fl.Body)
}

func (d *deparser) VisitBlockExpression(be *BlockExpression) {
	d.write("{")
	d.indent++
	for _, e := range be.Expressions {
		d.newline()
		d.expr(e)
	}
	d.indent--
	d.newline()
	d.write("}")
}

func (d *deparser) VisitParenExpression(pe *ParenExpression) {
	d.write("(")
	d.expr(pe.Inner)
	d.write(")")
}

func (d *deparser) VisitIfExpression(ie *IfExpression) {
	d.write("if (")
	d.expr(ie.Condition)
	d.write(") ")
	d.expr(ie.Consequence)
	if ie.Alternative != nil {
		d.write(" else ")
		d.expr(ie.Alternative)
	}
}

func (d *deparser) VisitForExpression(fe *ForExpression) {
	d.write("for (")
	d.expr(fe.Variable)
	d.write(" in ")
	d.expr(fe.Sequence)
	d.write(") ")
	d.expr(fe.Body)
}

func (d *deparser) VisitWhileExpression(we *WhileExpression) {
	d.write("while (")
	d.expr(we.Condition)
	d.write(") ")
	d.expr(we.Body)
}

func (d *deparser) VisitRepeatExpression(re *RepeatExpression) {
	d.write("repeat ")
	d.expr(re.Body)
}

func (d *deparser) VisitBreakExpression(be *BreakExpression) {
	if be.Next {
		d.write("next")
	} else {
		d.write("break")
	}
}

// QuoteName backquotes a name that is not syntactic.
func QuoteName(name string) string {
	if isSyntacticName(name) {
		return name
	}
	return "`" + name + "`"
}

func isSyntacticName(name string) bool {
	if name == "" {
		return false
	}
	if name == "..." {
		return true
	}
	if token.LookupIdent(name) != token.IDENT {
		return false
	}
	for i, r := range name {
		switch {
		case r == '.' || r == '_' && i > 0:
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
			if i == 1 && name[0] == '.' {
				return false
			}
		case r >= 0x80:
		default:
			return false
		}
	}
	return true
}
