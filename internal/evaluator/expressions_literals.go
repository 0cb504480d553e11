package evaluator

import (
	"math"

	"github.com/funvibe/rcore/internal/ast"
	"github.com/funvibe/rcore/internal/diagnostics"
	"github.com/funvibe/rcore/internal/instrument"
	"github.com/funvibe/rcore/internal/token"
	"github.com/funvibe/rcore/internal/value"
)

func literalValue(node ast.Expression) (value.Value, error) {
	switch n := node.(type) {
	case *ast.NumberLiteral:
		return value.Dbl(n.Value), nil
	case *ast.IntegerLiteral:
		return value.NewIntegerScalar(n.Value), nil
	case *ast.ComplexLiteral:
		return value.NewComplexScalar(complex(0, n.Imag)), nil
	case *ast.StringLiteral:
		return value.Str(n.Value), nil
	case *ast.ConstantLiteral:
		return constantValue(n.Token.Type)
	}
	return nil, diagnostics.Internalf("not a literal: %T", node)
}

func constantValue(t token.TokenType) (value.Value, error) {
	switch t {
	case token.TRUE:
		return value.Bool(true), nil
	case token.FALSE:
		return value.Bool(false), nil
	case token.NULL:
		return value.Null, nil
	case token.NA:
		return value.NewLogicalScalar(value.NALogical), nil
	case token.NA_INTEGER:
		return value.NewIntegerScalar(value.NAInteger), nil
	case token.NA_REAL:
		return value.Dbl(value.NADouble), nil
	case token.NA_CHARACTER:
		return value.Str(value.NAString), nil
	case token.INF:
		return value.Dbl(math.Inf(1)), nil
	case token.NAN:
		return value.Dbl(math.NaN()), nil
	}
	return nil, diagnostics.Internalf("unknown constant %s", t)
}

func (e *Evaluator) evalFunctionLiteral(node *ast.FunctionLiteral, env *value.Environment) *value.Closure {
	formals := make([]value.Formal, len(node.Parameters))
	for i, p := range node.Parameters {
		formals[i] = value.Formal{Name: p.Name, Default: p.Default}
	}
	return &value.Closure{Formals: formals, Body: node.Body, Env: env}
}

func (e *Evaluator) evalBlock(node *ast.BlockExpression, env *value.Environment) (value.Value, error) {
	var result value.Value = value.Null
	e.visible = true
	for _, expr := range node.Expressions {
		e.emit(instrument.Statement, e.currentFunction(), expr)
		v, err := e.Eval(expr, env)
		if err != nil {
			return nil, err
		}
		result = v
	}
	return result, nil
}
