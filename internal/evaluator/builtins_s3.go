package evaluator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/funvibe/rcore/internal/ast"
	"github.com/funvibe/rcore/internal/coerce"
	"github.com/funvibe/rcore/internal/diagnostics"
	"github.com/funvibe/rcore/internal/prettyprinter"
	"github.com/funvibe/rcore/internal/value"
)

// s3Dispatch records how the method running in a frame was selected.
type s3Dispatch struct {
	generic string
	// classes is the dispatch class vector of the object.
	classes []string
	// pos is the index in classes of the running method; len(classes) for the
	// default method.
	pos int
	// callEnv is where the generic was called, defEnv where it was defined. Methods
	// are looked up in both.
	callEnv *value.Environment
	defEnv  *value.Environment
}

// S3Builtins returns class-based method dispatch.
func S3Builtins() map[string]*Builtin {
	return map[string]*Builtin{
		"UseMethod":     {Fn: builtinUseMethod},
		"NextMethod":    {Fn: builtinNextMethod},
		"print.default": {Fn: builtinPrintDefault, Invisible: true},
	}
}

// dispatchClasses is the class vector methods are selected by: the class attribute,
// or the implicit class with the storage type before "numeric" for numbers.
func dispatchClasses(v value.Value) []string {
	if c := value.Class(v); len(c) > 0 {
		return c
	}
	var out []string
	if value.Dim(v) != nil {
		out = append(out, value.ImplicitClass(v)...)
	}
	switch v.Kind() {
	case value.KindInteger, value.KindDouble:
		return append(out, v.Kind().String(), "numeric")
	}
	if out != nil {
		return append(out, v.Kind().String())
	}
	return value.ImplicitClass(v)
}

// lookupMethod finds a function named name in the first of envs that has one.
func (e *Evaluator) lookupMethod(name string, envs ...*value.Environment) (value.Value, error) {
	for _, env := range envs {
		if env == nil {
			continue
		}
		fn, err := env.LookupFunction(name, e.Eval)
		if err == nil {
			return fn, nil
		}
		var de *diagnostics.Error
		if !errors.As(err, &de) || de.Code != diagnostics.ErrR002 {
			return nil, err
		}
	}
	return nil, nil
}

// findMethod tries generic.class for classes[from:], then generic.default when
// withDefault is set and from does not lie past the default. It returns a nil method
// when none exists.
func (e *Evaluator) findMethod(generic string, classes []string, from int, withDefault bool, envs ...*value.Environment) (method value.Value, pos int, name string, err error) {
	for i := from; i < len(classes); i++ {
		name = generic + "." + classes[i]
		if method, err = e.lookupMethod(name, envs...); method != nil || err != nil {
			return method, i, name, err
		}
	}
	if withDefault && from <= len(classes) {
		name = generic + ".default"
		if method, err = e.lookupMethod(name, envs...); method != nil || err != nil {
			return method, len(classes), name, err
		}
	}
	return nil, 0, "", nil
}

// callMethod runs a selected method with the arguments of the dispatching call.
func (e *Evaluator) callMethod(method value.Value, name string, call ast.Expression, args []Arg, disp *s3Dispatch) (value.Value, error) {
	if fn, ok := method.(*value.Closure); ok {
		return e.applyMethod(fn, name, call, closureArgs(args), disp.callEnv, disp)
	}
	return e.CallFunction(method, args, call, disp.callEnv)
}

// dispatchObject returns the value of the first argument of the frame's closure.
func (e *Evaluator) dispatchObject(fr *Frame) (value.Value, error) {
	if len(fr.Fn.Formals) == 0 {
		return value.Null, nil
	}
	first := fr.Fn.Formals[0].Name
	if first == "..." {
		dots, err := e.lookupDots(fr.Env)
		if err != nil || len(dots.Values) == 0 {
			return value.Null, nil
		}
		return e.force(dots.Values[0])
	}
	v, ok := fr.Env.Get(first)
	if !ok || value.IsMissing(v) {
		return value.Null, nil
	}
	return e.force(v)
}

func noMethodError(generic string, classes []string) error {
	cls := fmt.Sprintf("%q", strings.Join(classes, ""))
	if len(classes) > 1 {
		quoted := make([]string, len(classes))
		for i, c := range classes {
			quoted[i] = "'" + c + "'"
		}
		cls = fmt.Sprintf("\"c(%s)\"", strings.Join(quoted, ", "))
	}
	return diagnostics.Errorf(diagnostics.ErrR001, "no applicable method for '%s' applied to an object of class %s", generic, cls)
}

// builtinUseMethod selects the method for the class of the object (by default the
// first argument of the enclosing function) and calls it with that function's
// arguments. Its value becomes the value of the enclosing function.
func builtinUseMethod(e *Evaluator, args *Args) (value.Value, error) {
	m, _, err := args.Match("generic", "object")
	if err != nil {
		return nil, err
	}
	generic, err := coerce.AsStringScalar(argOr(m[0], value.Null), "generic")
	if err != nil {
		return nil, err
	}
	fr := e.frameOf(args.Env)
	if fr == nil || fr.Fn == nil {
		return nil, diagnostics.Errorf(diagnostics.ErrR001, "UseMethod called from outside a function")
	}
	obj := argOr(m[1], nil)
	if obj == nil {
		if obj, err = e.dispatchObject(fr); err != nil {
			return nil, err
		}
	}

	classes := dispatchClasses(obj)
	method, pos, name, err := e.findMethod(generic, classes, 0, true, fr.Caller, fr.Fn.Env)
	if err != nil {
		return nil, err
	}
	if method == nil {
		return nil, noMethodError(generic, classes)
	}
	disp := &s3Dispatch{generic: generic, classes: classes, pos: pos, callEnv: fr.Caller, defEnv: fr.Fn.Env}
	v, err := e.callMethod(method, name, fr.Call, fr.Args, disp)
	if err != nil {
		return nil, err
	}
	return nil, &ReturnSignal{Value: v, Env: fr.Env}
}

// builtinNextMethod calls the method for the next class of the running dispatch,
// then the default method, then a builtin of the generic's name. Extra arguments are
// appended to the original ones.
func builtinNextMethod(e *Evaluator, args *Args) (value.Value, error) {
	_, extra, err := args.Match("generic", "object", "...")
	if err != nil {
		return nil, err
	}
	fr := e.frameOf(args.Env)
	if fr == nil || fr.dispatch == nil {
		return nil, diagnostics.Errorf(diagnostics.ErrR001, "NextMethod called from outside a method dispatch")
	}
	d := fr.dispatch
	method, pos, name, err := e.findMethod(d.generic, d.classes, d.pos+1, true, d.callEnv, d.defEnv)
	if err != nil {
		return nil, err
	}
	if method == nil {
		if b, ok := e.BaseEnv.Get(d.generic); ok {
			if _, isBuiltin := b.(*Builtin); isBuiltin {
				method, pos, name = b, len(d.classes)+1, d.generic
			}
		}
	}
	if method == nil {
		return nil, diagnostics.Errorf(diagnostics.ErrR001, "no more methods for '%s'", d.generic)
	}
	next := &s3Dispatch{generic: d.generic, classes: d.classes, pos: pos, callEnv: d.callEnv, defEnv: d.defEnv}
	callArgs := append(append([]Arg{}, fr.Args...), extra...)
	return e.callMethod(method, name, fr.Call, callArgs, next)
}

// dispatchInternal lets a builtin generic hand a classed value to a user-defined
// method. ok is false when no method other than the default exists.
func (e *Evaluator) dispatchInternal(generic string, x value.Value, args []Arg, call ast.Expression, env *value.Environment) (v value.Value, ok bool, err error) {
	classes := value.Class(x)
	if len(classes) == 0 {
		return nil, false, nil
	}
	method, pos, name, err := e.findMethod(generic, classes, 0, false, env, e.GlobalEnv)
	if err != nil || method == nil {
		return nil, false, err
	}
	disp := &s3Dispatch{generic: generic, classes: classes, pos: pos, callEnv: env, defEnv: e.BaseEnv}
	v, err = e.callMethod(method, name, call, args, disp)
	return v, true, err
}

func builtinPrintDefault(e *Evaluator, args *Args) (value.Value, error) {
	m, _, err := args.Match("x", "...")
	if err != nil {
		return nil, err
	}
	x := argOr(m[0], value.Null)
	if err := prettyprinter.Fprint(e.Out, x); err != nil {
		return nil, diagnostics.Errorf(diagnostics.ErrR001, "%v", err)
	}
	return x, nil
}
