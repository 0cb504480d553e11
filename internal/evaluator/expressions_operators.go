package evaluator

import (
	"github.com/funvibe/rcore/internal/arith"
	"github.com/funvibe/rcore/internal/ast"
	"github.com/funvibe/rcore/internal/coerce"
	"github.com/funvibe/rcore/internal/diagnostics"
	"github.com/funvibe/rcore/internal/value"
)

func (e *Evaluator) evalPrefix(node *ast.PrefixExpression, env *value.Environment) (value.Value, error) {
	switch node.Operator {
	case "~":
		return &value.Language{Node: node}, nil
	case "?":
		return nil, diagnostics.Errorf(diagnostics.ErrR001, "help is not available")
	}
	op, ok := arith.LookupUnaryOp(node.Operator)
	if !ok {
		return nil, diagnostics.Internalf("unknown prefix operator %q", node.Operator)
	}
	right, err := e.Eval(node.Right, env)
	if err != nil {
		return nil, err
	}
	v, err := e.unarySite(node, op).Execute(right, e.warnerAt(node))
	if err != nil {
		return nil, callError(err, node)
	}
	e.visible = true
	return e.validate(v, node)
}

func (e *Evaluator) evalInfix(node *ast.InfixExpression, env *value.Environment) (value.Value, error) {
	switch node.Operator {
	case "&&", "||":
		return e.evalScalarLogic(node, env)
	case "~":
		return &value.Language{Node: node}, nil
	case "?":
		return nil, diagnostics.Errorf(diagnostics.ErrR001, "help is not available")
	}

	op, isArith := arith.LookupOp(node.Operator)
	if !isArith && node.Operator != ":" {
		// user-defined %op% or an operator implemented as a builtin such as %in%
		fn, err := e.lookupFunction(node.Operator, env)
		if err != nil {
			return nil, err
		}
		args := []*ast.Argument{{Value: node.Left}, {Value: node.Right}}
		return e.applyFunction(fn, node.Operator, node, args, env)
	}

	left, err := e.Eval(node.Left, env)
	if err != nil {
		return nil, err
	}
	right, err := e.Eval(node.Right, env)
	if err != nil {
		return nil, err
	}
	e.visible = true

	var v value.Value
	switch {
	case node.Operator == ":":
		v, err = colon(left, right, e.warnerAt(node))
	case op == arith.OpMatMul:
		v, err = arith.MatMul(left, right)
	default:
		v, err = e.binarySite(node, op).Execute(left, right, e.warnerAt(node))
	}
	if err != nil {
		return nil, callError(err, node)
	}
	return e.validate(v, node)
}

// evalScalarLogic implements && and ||: the right operand is evaluated only when the
// left one does not decide the result.
func (e *Evaluator) evalScalarLogic(node *ast.InfixExpression, env *value.Environment) (value.Value, error) {
	left, err := e.Eval(node.Left, env)
	if err != nil {
		return nil, err
	}
	l, err := scalarLogical(left, node.Operator, "x")
	if err != nil {
		return nil, callError(err, node)
	}
	and := node.Operator == "&&"
	if and && l == value.False {
		return value.Bool(false), nil
	}
	if !and && l == value.True {
		return value.Bool(true), nil
	}
	right, err := e.Eval(node.Right, env)
	if err != nil {
		return nil, err
	}
	e.visible = true
	r, err := scalarLogical(right, node.Operator, "y")
	if err != nil {
		return nil, callError(err, node)
	}
	switch {
	case and && r == value.False, !and && r == value.True:
		return value.NewLogicalScalar(r), nil
	case l == value.NALogical || r == value.NALogical:
		return value.NewLogicalScalar(value.NALogical), nil
	}
	return value.NewLogicalScalar(r), nil
}

func scalarLogical(v value.Value, op, side string) (value.Logical, error) {
	vec, ok := v.(value.Vector)
	if !ok || !(vec.Kind().IsNumeric() || vec.Kind() == value.KindCharacter) {
		return 0, diagnostics.Errorf(diagnostics.ErrR007, "invalid '%s' type in 'x %s y'", side, op)
	}
	if vec.Len() != 1 {
		return 0, diagnostics.Errorf(diagnostics.ErrR007, "'length = %d' in coercion to 'logical(1)'", vec.Len())
	}
	c, err := coerce.Cast(vec, value.KindLogical, nil)
	if err != nil {
		return 0, err
	}
	l := c.(*value.LogicalVector).At(0)
	if l == value.NALogical && vec.Kind() == value.KindCharacter && !vec.IsNA(0) {
		return 0, diagnostics.Errorf(diagnostics.ErrR007, "invalid '%s' type in 'x %s y'", side, op)
	}
	return l, nil
}

// callError attributes a language error without a call to node.
func callError(err error, node ast.Expression) error {
	if de, ok := err.(*diagnostics.Error); ok && de.Call == "" {
		de.Call = node.String()
	}
	return err
}
