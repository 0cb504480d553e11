// Package rcore embeds the interpreter in Go programs: evaluate source, exchange
// values and expose Go functions to scripts.
package rcore

import (
	"fmt"
	"os"
	"reflect"

	"github.com/funvibe/rcore/internal/config"
	"github.com/funvibe/rcore/internal/diagnostics"
	"github.com/funvibe/rcore/internal/evaluator"
	"github.com/funvibe/rcore/internal/session"
	"github.com/funvibe/rcore/internal/value"
)

// VM wraps one evaluation context and provides a high-level embedding API. A VM is
// not safe for concurrent use.
type VM struct {
	ctx        *session.Context
	marshaller *Marshaller
}

// New creates a VM configured from the RCORE_* environment variables.
func New() (*VM, error) {
	opts, err := config.FromEnv(os.Getenv)
	if err != nil {
		return nil, err
	}
	return NewWithSettings(session.Settings{Options: opts})
}

// NewWithSettings creates a VM with explicit settings.
func NewWithSettings(s session.Settings) (*VM, error) {
	ctx, err := session.New(s)
	if err != nil {
		return nil, err
	}
	return &VM{ctx: ctx, marshaller: NewMarshaller()}, nil
}

// Context exposes the underlying evaluation context.
func (v *VM) Context() *session.Context { return v.ctx }

// Close destroys the context.
func (v *VM) Close() error { return v.ctx.Destroy() }

// Bind makes a Go value available in the global environment. Functions become
// builtins: arguments are converted to the parameter types, the results back. A
// function whose last result is an error raises it as a language error.
func (v *VM) Bind(name string, val interface{}) error {
	fn := reflect.ValueOf(val)
	if fn.Kind() != reflect.Func {
		return v.Set(name, val)
	}
	b := &evaluator.Builtin{
		Name: name,
		Fn: func(e *evaluator.Evaluator, args *evaluator.Args) (value.Value, error) {
			return v.callHost(name, fn, args.Values())
		},
	}
	return v.ctx.Eval.GlobalEnv.Bind(name, b)
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

func (v *VM) callHost(name string, fn reflect.Value, args []value.Value) (value.Value, error) {
	fnType := fn.Type()
	numIn := fnType.NumIn()
	isVariadic := fnType.IsVariadic()

	if isVariadic {
		if len(args) < numIn-1 {
			return nil, diagnostics.Errorf(diagnostics.ErrR009, "%s expects at least %d arguments, got %d", name, numIn-1, len(args))
		}
	} else if len(args) != numIn {
		return nil, diagnostics.Errorf(diagnostics.ErrR009, "%s expects %d arguments, got %d", name, numIn, len(args))
	}

	goArgs := make([]reflect.Value, len(args))
	for i, arg := range args {
		var targetType reflect.Type
		if isVariadic && i >= numIn-1 {
			targetType = fnType.In(numIn - 1).Elem()
		} else {
			targetType = fnType.In(i)
		}
		x, err := v.marshaller.FromValue(arg, targetType)
		if err != nil {
			return nil, diagnostics.Errorf(diagnostics.ErrR007, "argument %d of %s: %v", i+1, name, err)
		}
		if x == nil {
			goArgs[i] = reflect.Zero(targetType)
		} else {
			goArgs[i] = reflect.ValueOf(x)
		}
	}

	results := fn.Call(goArgs)
	if n := len(results); n > 0 && fnType.Out(n-1) == errorType {
		if err, _ := results[n-1].Interface().(error); err != nil {
			return nil, diagnostics.Errorf(diagnostics.ErrR001, "%v", err)
		}
		results = results[:n-1]
	}

	switch len(results) {
	case 0:
		return value.Null, nil
	case 1:
		return v.hostValue(results[0])
	}
	elems := make([]value.Value, len(results))
	for i, res := range results {
		el, err := v.hostValue(res)
		if err != nil {
			return nil, err
		}
		elems[i] = el
	}
	return value.NewList(elems), nil
}

func (v *VM) hostValue(res reflect.Value) (value.Value, error) {
	out, err := v.marshaller.ToValue(res.Interface())
	if err != nil {
		return nil, diagnostics.Errorf(diagnostics.ErrR007, "%v", err)
	}
	return out, nil
}

// Set binds a Go value, converted, in the global environment.
func (v *VM) Set(name string, val interface{}) error {
	x, err := v.marshaller.ToValue(val)
	if err != nil {
		return err
	}
	return v.ctx.Eval.GlobalEnv.Bind(name, x)
}

// Get returns a global variable converted to Go.
func (v *VM) Get(name string) (interface{}, error) {
	x, ok := v.ctx.Eval.GlobalEnv.Get(name)
	if !ok {
		return nil, fmt.Errorf("variable '%s' not found", name)
	}
	return v.marshaller.FromValue(x, nil)
}

// GetValue returns a global variable without conversion.
func (v *VM) GetValue(name string) (value.Value, bool) {
	return v.ctx.Eval.GlobalEnv.Get(name)
}

// Call calls a function visible from the global environment by name.
func (v *VM) Call(funcName string, args ...interface{}) (interface{}, error) {
	fn, _, ok := v.ctx.Eval.GlobalEnv.Lookup(funcName, true)
	if !ok {
		return nil, fmt.Errorf("function '%s' not found", funcName)
	}
	if k := fn.Kind(); k != value.KindClosure && k != value.KindBuiltin {
		return nil, fmt.Errorf("'%s' is not a function", funcName)
	}
	list := make([]evaluator.Arg, len(args))
	for i, arg := range args {
		x, err := v.marshaller.ToValue(arg)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		list[i] = evaluator.Arg{Value: x}
	}
	result, err := v.ctx.Eval.CallFunction(fn, list, nil, v.ctx.Eval.GlobalEnv)
	if err != nil {
		return nil, err
	}
	return v.marshaller.FromValue(result, nil)
}

// Eval evaluates code in the global environment and returns the last value
// converted to Go.
func (v *VM) Eval(code string) (interface{}, error) {
	result, err := v.ctx.Evaluate(code)
	if err != nil {
		return nil, err
	}
	return v.marshaller.FromValue(result, nil)
}

// EvalValue is Eval without the conversion.
func (v *VM) EvalValue(code string) (value.Value, error) {
	return v.ctx.Evaluate(code)
}

// Warnings returns the warnings raised since the last call.
func (v *VM) Warnings() []diagnostics.Warning {
	return v.ctx.Warnings()
}

// LoadFile evaluates a source file in the global environment.
func (v *VM) LoadFile(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	_, err = v.ctx.EvaluateFile(string(content), path)
	return err
}
