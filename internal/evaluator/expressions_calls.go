package evaluator

import (
	"github.com/funvibe/rcore/internal/ast"
	"github.com/funvibe/rcore/internal/diagnostics"
	"github.com/funvibe/rcore/internal/value"
)

func (e *Evaluator) evalCall(node *ast.CallExpression, env *value.Environment) (value.Value, error) {
	var fn value.Value
	var name string
	switch f := node.Function.(type) {
	case *ast.Identifier:
		name = f.Value
		v, err := e.lookupFunction(name, env)
		if err != nil {
			return nil, callError(err, node)
		}
		fn = v
	case *ast.StringLiteral:
		name = f.Value
		v, err := e.lookupFunction(name, env)
		if err != nil {
			return nil, callError(err, node)
		}
		fn = v
	default:
		v, err := e.Eval(node.Function, env)
		if err != nil {
			return nil, err
		}
		fn = v
	}
	return e.applyFunction(fn, name, node, node.Arguments, env)
}

// quoteExpr returns the value of a quoted fragment: literals evaluate to themselves,
// symbols and calls become Symbol and Language values.
func quoteExpr(expr ast.Expression) (value.Value, error) {
	switch n := expr.(type) {
	case nil:
		return value.Missing, nil
	case *ast.Identifier:
		return value.Intern(n.Value), nil
	case *ast.NumberLiteral, *ast.IntegerLiteral, *ast.ComplexLiteral, *ast.StringLiteral, *ast.ConstantLiteral:
		return literalValue(n)
	}
	return &value.Language{Node: expr}, nil
}

// exprOf returns the AST an evaluable value stands for.
func exprOf(v value.Value) (ast.Expression, error) {
	switch x := v.(type) {
	case *value.Language:
		return x.Node, nil
	case *value.Symbol:
		return &ast.Identifier{Value: x.Name}, nil
	case *value.Promise:
		return x.Expr, nil
	}
	return nil, diagnostics.Errorf(diagnostics.ErrR007, "cannot evaluate a value of type '%s'", v.Kind())
}
