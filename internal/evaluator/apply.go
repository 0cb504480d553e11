package evaluator

import (
	"github.com/funvibe/rcore/internal/ast"
	"github.com/funvibe/rcore/internal/diagnostics"
	"github.com/funvibe/rcore/internal/instrument"
	"github.com/funvibe/rcore/internal/token"
	"github.com/funvibe/rcore/internal/value"
)

const msgTooDeep = "evaluation nested too deeply: infinite recursion / options(expressions=)?"

// promiseArgs turns the arguments of a call into promises evaluated in env. Constant
// arguments are created already forced, "..." splices the caller's dots and an empty
// argument is Missing.
func (e *Evaluator) promiseArgs(args []*ast.Argument, env *value.Environment) ([]Arg, error) {
	out := make([]Arg, 0, len(args))
	for _, a := range args {
		if id, ok := a.Value.(*ast.Identifier); ok && id.IsDots() {
			dots, err := e.lookupDots(env)
			if err != nil {
				return nil, err
			}
			for i, v := range dots.Values {
				out = append(out, Arg{Name: dots.Names[i], Value: v})
			}
			continue
		}
		switch {
		case a.Value == nil:
			out = append(out, Arg{Name: a.Name, Value: value.Missing})
		case ast.IsConstant(a.Value):
			v, err := literalValue(a.Value)
			if err != nil {
				return nil, err
			}
			value.MarkBound(v)
			out = append(out, Arg{Name: a.Name, Value: value.NewForcedPromise(a.Value, v), Expr: a.Value})
		default:
			out = append(out, Arg{Name: a.Name, Value: value.NewPromise(a.Value, env), Expr: a.Value})
		}
	}
	return out, nil
}

// evalArgs evaluates the arguments of an eager builtin call left to right.
func (e *Evaluator) evalArgs(args []*ast.Argument, env *value.Environment) ([]Arg, error) {
	out := make([]Arg, 0, len(args))
	for _, a := range args {
		if id, ok := a.Value.(*ast.Identifier); ok && id.IsDots() {
			dots, err := e.lookupDots(env)
			if err != nil {
				return nil, err
			}
			for i, p := range dots.Values {
				v, err := e.force(p)
				if err != nil {
					return nil, err
				}
				out = append(out, Arg{Name: dots.Names[i], Value: v})
			}
			continue
		}
		if a.Value == nil {
			out = append(out, Arg{Name: a.Name, Value: value.Missing})
			continue
		}
		v, err := e.Eval(a.Value, env)
		if err != nil {
			return nil, err
		}
		out = append(out, Arg{Name: a.Name, Value: v, Expr: a.Value})
	}
	return out, nil
}

// specialArgs keeps the argument expressions of a special builtin unevaluated. Dots
// are spliced as their promises.
func (e *Evaluator) specialArgs(args []*ast.Argument, env *value.Environment) ([]Arg, error) {
	out := make([]Arg, 0, len(args))
	for _, a := range args {
		if id, ok := a.Value.(*ast.Identifier); ok && id.IsDots() {
			dots, err := e.lookupDots(env)
			if err != nil {
				return nil, err
			}
			for i, p := range dots.Values {
				out = append(out, Arg{Name: dots.Names[i], Value: p})
			}
			continue
		}
		if a.Value == nil {
			out = append(out, Arg{Name: a.Name, Value: value.Missing})
			continue
		}
		out = append(out, Arg{Name: a.Name, Expr: a.Value})
	}
	return out, nil
}

func (e *Evaluator) lookupDots(env *value.Environment) (*value.Dots, error) {
	v, _, ok := env.Lookup("...", true)
	if !ok {
		return nil, diagnostics.Errorf(diagnostics.ErrR001, "'...' used in an incorrect context")
	}
	dots, ok := v.(*value.Dots)
	if !ok {
		return nil, diagnostics.Errorf(diagnostics.ErrR001, "'...' used in an incorrect context")
	}
	return dots, nil
}

// evalArg returns the value of an argument of a special builtin.
func (e *Evaluator) evalArg(a Arg, env *value.Environment) (value.Value, error) {
	if a.Expr != nil && a.Value == nil {
		return e.Eval(a.Expr, env)
	}
	return e.force(a.Value)
}

// applyFunction calls fn with the unevaluated arguments of a call site.
func (e *Evaluator) applyFunction(fn value.Value, name string, call ast.Expression, args []*ast.Argument, env *value.Environment) (value.Value, error) {
	switch f := fn.(type) {
	case *Builtin:
		var list []Arg
		var err error
		if f.Special {
			list, err = e.specialArgs(args, env)
		} else {
			list, err = e.evalArgs(args, env)
		}
		if err != nil {
			return nil, err
		}
		return e.callBuiltin(f, call, list, env)
	case *value.Closure:
		list, err := e.promiseArgs(args, env)
		if err != nil {
			return nil, err
		}
		return e.applyClosure(f, name, call, list, env)
	}
	return nil, callError(diagnostics.Errorf(diagnostics.ErrR007, "attempt to apply non-function"), call)
}

func (e *Evaluator) callBuiltin(b *Builtin, call ast.Expression, list []Arg, env *value.Environment) (value.Value, error) {
	v, err := b.Fn(e, &Args{Call: call, Env: env, List: list})
	if err != nil {
		return nil, callError(err, call)
	}
	if b.Invisible {
		e.visible = false
	} else if !b.Special {
		e.visible = true
	}
	if v == nil {
		v = value.Null
	}
	return v, nil
}

// applyClosure runs a closure call: match arguments, bind them in a new frame whose
// parent is the closure environment, evaluate the body, run on.exit hooks.
func (e *Evaluator) applyClosure(fn *value.Closure, name string, call ast.Expression, args []Arg, caller *value.Environment) (value.Value, error) {
	return e.applyMethod(fn, name, call, args, caller, nil)
}

// applyMethod is applyClosure for a method selected by UseMethod or NextMethod; disp
// is recorded in the frame for NextMethod and may be nil.
func (e *Evaluator) applyMethod(fn *value.Closure, name string, call ast.Expression, args []Arg, caller *value.Environment, disp *s3Dispatch) (result value.Value, err error) {
	if len(e.CallStack) >= e.Options.MaxDepth {
		return nil, diagnostics.Errorf(diagnostics.ErrR001, msgTooDeep)
	}
	if name == "" {
		name = fn.Name
	}
	formals := make([]string, len(fn.Formals))
	for i, f := range fn.Formals {
		formals[i] = f.Name
	}
	describe := func(i int) string { return (&Args{List: args}).describe(i) }
	idx, rest, err := matchArgs(formals, argNames(args), describe)
	if err != nil {
		return nil, callError(err, call)
	}

	frameEnv := value.NewEnvironment(fn.Env)
	for f, formal := range fn.Formals {
		if formal.Name == "..." {
			dots := &value.Dots{Values: make([]value.Value, len(rest)), Names: make([]string, len(rest))}
			for k, i := range rest {
				dots.Values[k] = args[i].Value
				dots.Names[k] = args[i].Name
			}
			_ = frameEnv.Bind("...", dots)
			continue
		}
		var v value.Value = value.Missing
		if i := idx[f]; i >= 0 && !value.IsMissing(args[i].Value) {
			v = args[i].Value
		} else if formal.Default != nil {
			p := value.NewPromise(formal.Default, frameEnv)
			p.Default = true
			v = p
		}
		_ = frameEnv.Bind(formal.Name, v)
	}

	if disp != nil {
		_ = frameEnv.Bind(".Generic", value.Str(disp.generic))
	}

	frame := &Frame{Name: name, Call: call, Fn: fn, Env: frameEnv, Caller: caller, Args: args, dispatch: disp}
	e.CallStack = append(e.CallStack, frame)
	defer func() {
		if exitErr := e.runOnExit(frame); exitErr != nil && err == nil {
			result, err = nil, exitErr
		}
		e.CallStack = e.CallStack[:len(e.CallStack)-1]
	}()
	e.emit(instrument.FunctionEntry, name, call)

	result, err = e.Eval(fn.Body, frameEnv)
	if err != nil {
		switch sig := err.(type) {
		case *ReturnSignal:
			if sig.Env == frameEnv {
				return sig.Value, nil
			}
		case BreakSignal, NextSignal:
			return nil, diagnostics.Errorf(diagnostics.ErrR005, "%s", sig.Error())
		}
		return nil, err
	}
	return result, nil
}

// runOnExit evaluates the on.exit expressions of frame in order. Visibility of the
// function result is preserved.
func (e *Evaluator) runOnExit(frame *Frame) error {
	if len(frame.onExit) == 0 {
		return nil
	}
	hooks := frame.onExit
	frame.onExit = nil
	visible := e.visible
	raised := e.raised
	e.raised = nil
	defer func() {
		e.visible = visible
		if e.raised == nil {
			e.raised = raised
		}
	}()
	for _, expr := range hooks {
		if _, err := e.Eval(expr, frame.Env); err != nil {
			return err
		}
	}
	return nil
}

// CallFunction calls fn with already evaluated arguments, as lapply and do.call do.
// call is the expression reported in errors and by sys.call; it may be nil.
func (e *Evaluator) CallFunction(fn value.Value, args []Arg, call ast.Expression, env *value.Environment) (value.Value, error) {
	if call == nil {
		call = syntheticCall("FUN", token.Token{})
	}
	switch f := fn.(type) {
	case *Builtin:
		if f.Special {
			list := make([]Arg, len(args))
			for i, a := range args {
				list[i] = Arg{Name: a.Name, Value: a.Value}
			}
			return e.callBuiltin(f, call, list, env)
		}
		list := make([]Arg, len(args))
		for i, a := range args {
			v, err := e.force(a.Value)
			if err != nil {
				return nil, err
			}
			list[i] = Arg{Name: a.Name, Value: v, Expr: a.Expr}
		}
		return e.callBuiltin(f, call, list, env)
	case *value.Closure:
		return e.applyClosure(f, "", call, closureArgs(args), env)
	}
	return nil, diagnostics.Errorf(diagnostics.ErrR007, "attempt to apply non-function")
}

// closureArgs wraps evaluated argument values as forced promises; promises and
// missing arguments are kept.
func closureArgs(args []Arg) []Arg {
	list := make([]Arg, len(args))
	for i, a := range args {
		v := a.Value
		if _, ok := v.(*value.Promise); !ok && !value.IsMissing(v) {
			value.MarkBound(v)
			v = value.NewForcedPromise(a.Expr, v)
		}
		list[i] = Arg{Name: a.Name, Value: v, Expr: a.Expr}
	}
	return list
}

func syntheticCall(name string, tok token.Token) *ast.CallExpression {
	return &ast.CallExpression{Token: tok, Function: &ast.Identifier{Token: tok, Value: name}}
}

// valueArgs wraps plain values as arguments.
func valueArgs(vals []value.Value, names []string) []Arg {
	out := make([]Arg, len(vals))
	for i, v := range vals {
		out[i].Value = v
		if i < len(names) {
			out[i].Name = names[i]
		}
	}
	return out
}
