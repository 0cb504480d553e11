package ast

// Visitor is implemented by passes that walk the tree (deparsing, site counting,
// instrumentation tagging).
type Visitor interface {
	VisitProgram(p *Program)
	VisitIdentifier(i *Identifier)
	VisitNumberLiteral(n *NumberLiteral)
	VisitIntegerLiteral(n *IntegerLiteral)
	VisitComplexLiteral(n *ComplexLiteral)
	VisitStringLiteral(s *StringLiteral)
	VisitConstantLiteral(c *ConstantLiteral)
	VisitPrefixExpression(pe *PrefixExpression)
	VisitInfixExpression(ie *InfixExpression)
	VisitAssignExpression(ae *AssignExpression)
	VisitCallExpression(ce *CallExpression)
	VisitIndexExpression(ie *IndexExpression)
	VisitDollarExpression(de *DollarExpression)
	VisitNamespaceExpression(ne *NamespaceExpression)
	VisitFunctionLiteral(fl *FunctionLiteral)
	VisitBlockExpression(be *BlockExpression)
	VisitParenExpression(pe *ParenExpression)
	VisitIfExpression(ie *IfExpression)
	VisitForExpression(fe *ForExpression)
	VisitWhileExpression(we *WhileExpression)
	VisitRepeatExpression(re *RepeatExpression)
	VisitBreakExpression(be *BreakExpression)
}

// Inspect calls fn for node and every descendant in source order, stopping the
// descent below a node when fn returns false.
func Inspect(node Node, fn func(Node) bool) {
	if node == nil || !fn(node) {
		return
	}
	visit := func(e Expression) {
		if e != nil {
			Inspect(e, fn)
		}
	}
	switch n := node.(type) {
	case *Program:
		for _, e := range n.Expressions {
			visit(e)
		}
	case *PrefixExpression:
		visit(n.Right)
	case *InfixExpression:
		visit(n.Left)
		visit(n.Right)
	case *AssignExpression:
		visit(n.Target)
		visit(n.Value)
	case *CallExpression:
		visit(n.Function)
		for _, a := range n.Arguments {
			visit(a.Value)
		}
	case *IndexExpression:
		visit(n.Left)
		for _, a := range n.Arguments {
			visit(a.Value)
		}
	case *DollarExpression:
		visit(n.Left)
	case *FunctionLiteral:
		for _, p := range n.Parameters {
			visit(p.Default)
		}
		visit(n.Body)
	case *BlockExpression:
		for _, e := range n.Expressions {
			visit(e)
		}
	case *ParenExpression:
		visit(n.Inner)
	case *IfExpression:
		visit(n.Condition)
		visit(n.Consequence)
		visit(n.Alternative)
	case *ForExpression:
		visit(n.Variable)
		visit(n.Sequence)
		visit(n.Body)
	case *WhileExpression:
		visit(n.Condition)
		visit(n.Body)
	case *RepeatExpression:
		visit(n.Body)
	}
}
