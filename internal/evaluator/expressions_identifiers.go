package evaluator

import (
	"github.com/funvibe/rcore/internal/ast"
	"github.com/funvibe/rcore/internal/diagnostics"
	"github.com/funvibe/rcore/internal/value"
)

func (e *Evaluator) evalIdentifier(node *ast.Identifier, env *value.Environment) (value.Value, error) {
	if node.IsDots() {
		return nil, diagnostics.Errorf(diagnostics.ErrR001, "'...' used in an incorrect context")
	}
	return e.lookupVariable(node.Value, env)
}

// lookupVariable resolves name through the environment chain and forces promises.
func (e *Evaluator) lookupVariable(name string, env *value.Environment) (value.Value, error) {
	v, _, ok := env.Lookup(name, true)
	if !ok {
		return nil, diagnostics.Errorf(diagnostics.ErrR002, "object '%s' not found", name)
	}
	return e.bindingValue(name, v)
}

func (e *Evaluator) bindingValue(name string, v value.Value) (value.Value, error) {
	v, err := e.force(v)
	if err != nil {
		return nil, err
	}
	if value.IsMissing(v) {
		return nil, diagnostics.Errorf(diagnostics.ErrR009, "argument \"%s\" is missing, with no default", name)
	}
	if _, ok := v.(*value.Dots); ok {
		return nil, diagnostics.Errorf(diagnostics.ErrR001, "'...' used in an incorrect context")
	}
	return v, nil
}

// evalNamespace resolves pkg::name. There are no packages: every name lives in base or
// global.
func (e *Evaluator) evalNamespace(node *ast.NamespaceExpression) (value.Value, error) {
	if v, ok := e.BaseEnv.Get(node.Name); ok {
		return v, nil
	}
	if v, ok := e.GlobalEnv.Get(node.Name); ok {
		return e.bindingValue(node.Name, v)
	}
	return nil, diagnostics.Errorf(diagnostics.ErrR002, "'%s' is not an exported object from 'namespace:%s'", node.Name, node.Package)
}

// lookupFunction finds the function called by name.
func (e *Evaluator) lookupFunction(name string, env *value.Environment) (value.Value, error) {
	return env.LookupFunction(name, e.Eval)
}

// isMissingArg reports whether formal name of the frame env was not supplied.
func (e *Evaluator) isMissingArg(name string, env *value.Environment) (bool, error) {
	v, ok := env.Get(name)
	if !ok {
		return false, diagnostics.Errorf(diagnostics.ErrR001, "'missing' can only be used for arguments")
	}
	if value.IsMissing(v) {
		return true, nil
	}
	if d, ok := v.(*value.Dots); ok {
		return d.Len() == 0, nil
	}
	if p, ok := v.(*value.Promise); ok && p.Default {
		return true, nil
	}
	if p, ok := v.(*value.Promise); ok && !p.IsForced() {
		// an argument passed on from the caller is missing when the caller's is
		if id, ok := p.Expr.(*ast.Identifier); ok && p.Env != nil {
			if fr := e.frameOf(p.Env); fr != nil {
				if _, bound := p.Env.Get(id.Value); bound {
					return e.isMissingArg(id.Value, p.Env)
				}
			}
		}
	}
	return false, nil
}
