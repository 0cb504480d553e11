package value

import (
	"github.com/funvibe/rcore/internal/ast"
	"github.com/funvibe/rcore/internal/diagnostics"
)

// MsgPromiseCycle is raised when a promise is forced while it is already being forced.
const MsgPromiseCycle = "promise already under evaluation: recursive default argument reference or earlier problems?"

// Promise is a deferred, memoized computation.
type Promise struct {
	Expr ast.Expression
	Env  *Environment
	// Default marks the promise of a default argument; missing() is TRUE for it.
	Default bool
	value   Value
	forced  bool
	forcing bool
}

func NewPromise(expr ast.Expression, env *Environment) *Promise {
	return &Promise{Expr: expr, Env: env}
}

// NewForcedPromise wraps an already computed value, e.g. a constant argument.
func NewForcedPromise(expr ast.Expression, v Value) *Promise {
	return &Promise{Expr: expr, value: v, forced: true}
}

func (p *Promise) Kind() Kind { return KindPromise }

func (p *Promise) IsForced() bool { return p.forced }

// Value returns the memoized value, or nil before forcing.
func (p *Promise) Value() Value { return p.value }

// Evaluator computes the value of an expression in an environment.
type Evaluator func(expr ast.Expression, env *Environment) (Value, error)

// Force evaluates the promise at most once. A re-entrant call fails instead of
// recursing; the in-progress marker is cleared on every exit path.
func (p *Promise) Force(eval Evaluator) (Value, error) {
	if p.forced {
		return p.value, nil
	}
	if p.forcing {
		return nil, diagnostics.Errorf(diagnostics.ErrR006, MsgPromiseCycle)
	}
	p.forcing = true
	defer func() { p.forcing = false }()

	v, err := eval(p.Expr, p.Env)
	if err != nil {
		return nil, err
	}
	MarkBound(v)
	p.value = v
	p.forced = true
	// the environment is no longer needed once the value is known
	p.Env = nil
	return v, nil
}
