package evaluator

import (
	"github.com/funvibe/rcore/internal/ast"
	"github.com/funvibe/rcore/internal/diagnostics"
	"github.com/funvibe/rcore/internal/value"
)

// evalAssign handles <-, = and <<-. The result is the assigned value, invisible.
func (e *Evaluator) evalAssign(node *ast.AssignExpression, env *value.Environment) (value.Value, error) {
	rhs, err := e.Eval(node.Value, env)
	if err != nil {
		return nil, err
	}
	if fn, ok := rhs.(*value.Closure); ok && fn.Name == "" {
		if id, ok := node.Target.(*ast.Identifier); ok {
			fn.Name = id.Value
		}
	}
	if err := e.assignTo(node, node.Target, rhs, env, node.IsSuper()); err != nil {
		return nil, callError(err, node)
	}
	e.visible = false
	return rhs, nil
}

// assignTo stores rhs into the place described by target. Complex targets such as
// names(x)[2] are rewritten from the outside in: the current value of the inner place
// is fetched, modified, then assigned back.
func (e *Evaluator) assignTo(node *ast.AssignExpression, target ast.Expression, rhs value.Value, env *value.Environment, super bool) error {
	switch t := target.(type) {
	case *ast.Identifier:
		return e.bindVariable(t.Value, rhs, env, super)
	case *ast.StringLiteral:
		return e.bindVariable(t.Value, rhs, env, super)
	case *ast.IndexExpression:
		cur, err := e.targetValue(t.Left, env, super)
		if err != nil {
			return err
		}
		idx, _, err := e.indexArgs(t.Arguments, env)
		if err != nil {
			return err
		}
		if rhs == cur {
			value.MarkShared(cur)
		}
		var next value.Value
		if t.Double {
			next, err = e.assignSubset2(cur, idx, rhs, e.warnerAt(node))
		} else {
			next, err = assignSubset(cur, idx, rhs, e.warnerAt(node))
		}
		if err != nil {
			return err
		}
		return e.assignTo(node, t.Left, next, env, super)
	case *ast.DollarExpression:
		cur, err := e.targetValue(t.Left, env, super)
		if err != nil {
			return err
		}
		var next value.Value
		if t.At {
			next, err = setSlot(cur, t.Name, rhs)
		} else {
			next, err = e.assignDollar(cur, t.Name, rhs, e.warnerAt(node))
		}
		if err != nil {
			return err
		}
		return e.assignTo(node, t.Left, next, env, super)
	case *ast.CallExpression:
		return e.assignReplacement(node, t, rhs, env, super)
	}
	return diagnostics.Errorf(diagnostics.ErrR001, "invalid (do_set) left-hand side to assignment")
}

func (e *Evaluator) bindVariable(name string, v value.Value, env *value.Environment, super bool) error {
	if super {
		return env.AssignSuper(name, v, e.GlobalEnv)
	}
	return env.Bind(name, v)
}

// assignReplacement calls the replacement function `f<-` for a target f(x, ...) and
// assigns its result to x.
func (e *Evaluator) assignReplacement(node *ast.AssignExpression, call *ast.CallExpression, rhs value.Value, env *value.Environment, super bool) error {
	var name string
	switch f := call.Function.(type) {
	case *ast.Identifier:
		name = f.Value
	case *ast.StringLiteral:
		name = f.Value
	default:
		return diagnostics.Errorf(diagnostics.ErrR001, "invalid function in complex assignment")
	}
	if len(call.Arguments) == 0 || call.Arguments[0].Value == nil {
		return diagnostics.Errorf(diagnostics.ErrR001, "invalid assignment target")
	}
	inner := call.Arguments[0].Value
	fn, err := e.lookupFunction(name+"<-", env)
	if err != nil {
		return err
	}
	cur, err := e.targetValue(inner, env, super)
	if err != nil {
		return err
	}
	args := []Arg{{Value: cur, Expr: inner}}
	for _, a := range call.Arguments[1:] {
		if a.Value == nil {
			args = append(args, Arg{Name: a.Name, Value: value.Missing})
			continue
		}
		v, err := e.Eval(a.Value, env)
		if err != nil {
			return err
		}
		args = append(args, Arg{Name: a.Name, Value: v, Expr: a.Value})
	}
	args = append(args, Arg{Name: "value", Value: rhs, Expr: node.Value})
	replaceCall := syntheticCall(name+"<-", call.Token)
	replaceCall.Arguments = append([]*ast.Argument{}, call.Arguments...)
	replaceCall.Arguments = append(replaceCall.Arguments, &ast.Argument{Name: "value", Value: node.Value})
	next, err := e.CallFunction(fn, args, replaceCall, env)
	if err != nil {
		return err
	}
	return e.assignTo(node, inner, next, env, super)
}

// targetValue returns the current value of an assignment place. A variable found
// outside the assigning frame is marked shared so the modification produces a copy.
func (e *Evaluator) targetValue(expr ast.Expression, env *value.Environment, super bool) (value.Value, error) {
	var name string
	switch t := expr.(type) {
	case *ast.Identifier:
		name = t.Value
	case *ast.StringLiteral:
		name = t.Value
	case *ast.IndexExpression, *ast.DollarExpression, *ast.CallExpression:
		return e.Eval(expr, env)
	default:
		return nil, diagnostics.Errorf(diagnostics.ErrR001, "invalid assignment target")
	}
	start := env
	if super {
		start = env.Parent()
	}
	if start == nil {
		return nil, diagnostics.Errorf(diagnostics.ErrR002, "object '%s' not found", name)
	}
	v, found, ok := start.Lookup(name, true)
	if !ok {
		return nil, diagnostics.Errorf(diagnostics.ErrR002, "object '%s' not found", name)
	}
	v, err := e.bindingValue(name, v)
	if err != nil {
		return nil, err
	}
	if !super && found != env {
		value.MarkShared(v)
	}
	return v, nil
}

// setSlot implements x@name <- rhs as an attribute assignment.
func setSlot(x value.Value, name string, rhs value.Value) (value.Value, error) {
	vec, ok := x.(value.Vector)
	if !ok {
		return nil, diagnostics.Errorf(diagnostics.ErrR007, "no slot of name \"%s\" for this object of class \"%s\"", name, x.Kind())
	}
	vec = value.PrepareForMutation(vec)
	if err := value.SetAttr(vec, name, rhs); err != nil {
		return nil, err
	}
	return vec, nil
}
