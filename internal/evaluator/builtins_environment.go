package evaluator

import (
	"regexp"

	"github.com/funvibe/rcore/internal/ast"
	"github.com/funvibe/rcore/internal/coerce"
	"github.com/funvibe/rcore/internal/diagnostics"
	"github.com/funvibe/rcore/internal/value"
)

// EnvironmentBuiltins returns the functions that inspect and modify environments.
func EnvironmentBuiltins() map[string]*Builtin {
	return map[string]*Builtin{
		"environment":         {Fn: builtinEnvironment},
		"environment<-":       {Fn: builtinSetEnvironment},
		"new.env":             {Fn: builtinNewEnv},
		"globalenv":           {Fn: func(e *Evaluator, _ *Args) (value.Value, error) { return e.GlobalEnv, nil }},
		"emptyenv":            {Fn: func(e *Evaluator, _ *Args) (value.Value, error) { return e.EmptyEnv, nil }},
		"baseenv":             {Fn: func(e *Evaluator, _ *Args) (value.Value, error) { return e.BaseEnv, nil }},
		"parent.frame":        {Fn: builtinParentFrame},
		"parent.env":          {Fn: builtinParentEnv},
		"parent.env<-":        {Fn: builtinSetParentEnv},
		"environmentName":     {Fn: builtinEnvironmentName},
		"sys.call":            {Fn: builtinSysCall},
		"sys.function":        {Fn: builtinSysFunction},
		"assign":              {Fn: builtinAssign, Invisible: true},
		"get":                 {Fn: builtinGet},
		"get0":                {Fn: builtinGet0},
		"exists":              {Fn: builtinExists},
		"rm":                  {Fn: builtinRm, Special: true, Invisible: true},
		"ls":                  {Fn: builtinLs},
		"lockEnvironment":     {Fn: builtinLockEnvironment, Invisible: true},
		"environmentIsLocked": {Fn: builtinEnvironmentIsLocked},
		"lockBinding":         {Fn: bindingLock(true), Invisible: true},
		"unlockBinding":       {Fn: bindingLock(false), Invisible: true},
		"bindingIsLocked":     {Fn: builtinBindingIsLocked},
	}
}

// envArg returns the environment argument v, or def when it was not supplied.
func envArg(v value.Value, name string, def *value.Environment) (*value.Environment, error) {
	if !supplied(v) {
		return def, nil
	}
	env, ok := v.(*value.Environment)
	if !ok {
		return nil, diagnostics.Errorf(diagnostics.ErrR007, "invalid '%s' argument", name)
	}
	return env, nil
}

// nameArg reads a variable name given as a string or symbol.
func nameArg(v value.Value, name string) (string, error) {
	if s, ok := v.(*value.Symbol); ok {
		return s.Name, nil
	}
	s, err := coerce.AsStringScalar(argOr(v, value.Null), name)
	if err != nil {
		return "", diagnostics.Errorf(diagnostics.ErrR007, "invalid '%s' argument", name)
	}
	return s, nil
}

func builtinEnvironment(e *Evaluator, args *Args) (value.Value, error) {
	m, _, err := args.Match("fun")
	if err != nil {
		return nil, err
	}
	switch f := argOr(m[0], value.Null).(type) {
	case *value.Closure:
		return f.Env, nil
	case *Builtin:
		return value.Null, nil
	default:
		if value.IsNull(f) {
			return args.Env, nil
		}
	}
	return value.Null, nil
}

func builtinSetEnvironment(e *Evaluator, args *Args) (value.Value, error) {
	m, _, err := args.Match("fun", "value")
	if err != nil {
		return nil, err
	}
	fn, ok := argOr(m[0], value.Null).(*value.Closure)
	if !ok {
		return nil, diagnostics.Errorf(diagnostics.ErrR007, "replacement object is not an environment")
	}
	env, ok := argOr(m[1], value.Null).(*value.Environment)
	if !ok {
		return nil, diagnostics.Errorf(diagnostics.ErrR007, "replacement object is not an environment")
	}
	out := *fn
	out.Env = env
	return &out, nil
}

func builtinNewEnv(e *Evaluator, args *Args) (value.Value, error) {
	m, _, err := args.Match("hash", "parent", "size")
	if err != nil {
		return nil, err
	}
	parent, err := envArg(m[1], "enclos", args.Env)
	if err != nil {
		return nil, err
	}
	return value.NewEnvironment(parent), nil
}

// callerOf returns the environment a function whose frame is env was called from.
// Environments that are not frames count as the top level.
func (e *Evaluator) callerOf(env *value.Environment) *value.Environment {
	if fr := e.frameOf(env); fr != nil && fr.Caller != nil {
		return fr.Caller
	}
	return e.GlobalEnv
}

func builtinParentFrame(e *Evaluator, args *Args) (value.Value, error) {
	m, _, err := args.Match("n")
	if err != nil {
		return nil, err
	}
	n := 1
	if supplied(m[0]) {
		if n, err = coerce.AsIntegerScalar(m[0], "n", e.warnerAt(args.Call)); err != nil {
			return nil, err
		}
		if n < 1 {
			return nil, diagnostics.Errorf(diagnostics.ErrR007, "invalid 'n' value")
		}
	}
	env := args.Env
	for i := 0; i < n; i++ {
		env = e.callerOf(env)
	}
	return env, nil
}

func builtinParentEnv(e *Evaluator, args *Args) (value.Value, error) {
	m, _, err := args.Match("env")
	if err != nil {
		return nil, err
	}
	env, ok := argOr(m[0], value.Null).(*value.Environment)
	if !ok {
		return nil, diagnostics.Errorf(diagnostics.ErrR007, "argument is not an environment")
	}
	if env.Parent() == nil {
		return nil, diagnostics.Errorf(diagnostics.ErrR007, "the empty environment has no parent")
	}
	return env.Parent(), nil
}

func builtinSetParentEnv(e *Evaluator, args *Args) (value.Value, error) {
	m, _, err := args.Match("env", "value")
	if err != nil {
		return nil, err
	}
	env, ok := argOr(m[0], value.Null).(*value.Environment)
	if !ok || env.IsEmpty() {
		return nil, diagnostics.Errorf(diagnostics.ErrR007, "argument is not an environment")
	}
	parent, ok := argOr(m[1], value.Null).(*value.Environment)
	if !ok {
		return nil, diagnostics.Errorf(diagnostics.ErrR007, "'parent' is not an environment")
	}
	env.SetParent(parent)
	return env, nil
}

func builtinEnvironmentName(e *Evaluator, args *Args) (value.Value, error) {
	m, _, err := args.Match("env")
	if err != nil {
		return nil, err
	}
	if env, ok := argOr(m[0], value.Null).(*value.Environment); ok {
		return value.Str(env.Name()), nil
	}
	return value.Str(""), nil
}

// frameAt returns the frame of the function that called sys.call or sys.function.
func (e *Evaluator) frameAt(env *value.Environment) (*Frame, error) {
	fr := e.frameOf(env)
	if fr == nil || fr.Fn == nil {
		return nil, diagnostics.Errorf(diagnostics.ErrR001, "not that many frames on the stack")
	}
	return fr, nil
}

func builtinSysCall(e *Evaluator, args *Args) (value.Value, error) {
	fr := e.frameOf(args.Env)
	if fr == nil || fr.Call == nil {
		return value.Null, nil
	}
	return quoteExpr(fr.Call)
}

func builtinSysFunction(e *Evaluator, args *Args) (value.Value, error) {
	fr, err := e.frameAt(args.Env)
	if err != nil {
		return nil, err
	}
	return fr.Fn, nil
}

func builtinAssign(e *Evaluator, args *Args) (value.Value, error) {
	m, _, err := args.Match("x", "value", "pos", "envir", "inherits")
	if err != nil {
		return nil, err
	}
	name, err := nameArg(m[0], "x")
	if err != nil {
		return nil, err
	}
	if err := requireArg(m[1], "value"); err != nil {
		return nil, err
	}
	env, err := envArg(argOr(m[3], argOr(m[2], nil)), "envir", args.Env)
	if err != nil {
		return nil, err
	}
	inherits, err := flagArg(m[4], "inherits", false)
	if err != nil {
		return nil, err
	}
	if inherits {
		if _, found, ok := env.Lookup(name, true); ok && !found.IsEmpty() {
			env = found
		}
	}
	if err := env.Bind(name, m[1]); err != nil {
		return nil, err
	}
	return m[1], nil
}

// lookupMode finds name starting at env. Mode "function" skips bindings that are not
// functions.
func (e *Evaluator) lookupMode(name string, env *value.Environment, mode string, inherits bool) (value.Value, bool, error) {
	if mode == "function" {
		if !inherits {
			v, ok := env.Get(name)
			if !ok {
				return nil, false, nil
			}
			v, err := e.force(v)
			if err != nil {
				return nil, false, err
			}
			return v, isFunction(v), nil
		}
		v, err := env.LookupFunction(name, e.Eval)
		if err != nil {
			return nil, false, nil
		}
		return v, true, nil
	}
	v, _, ok := env.Lookup(name, inherits)
	if !ok {
		return nil, false, nil
	}
	v, err := e.bindingValue(name, v)
	if err != nil {
		return nil, false, err
	}
	if mode != "any" {
		want, known := value.KindFromName(mode)
		if !known {
			return nil, false, diagnostics.Errorf(diagnostics.ErrR007, "invalid 'mode' argument")
		}
		if v.Kind() != want && !(want == value.KindDouble && isNumeric(v)) {
			return nil, false, nil
		}
	}
	return v, true, nil
}

// getArgs matches the arguments shared by get, get0 and exists.
func (e *Evaluator) getArgs(args *Args, extra ...string) (name string, env *value.Environment, mode string, inherits bool, m []value.Value, err error) {
	formals := append([]string{"x", "envir", "mode", "inherits"}, extra...)
	m, _, err = args.Match(formals...)
	if err != nil {
		return
	}
	if name, err = nameArg(m[0], "x"); err != nil {
		return
	}
	if env, err = envArg(m[1], "envir", args.Env); err != nil {
		return
	}
	mode = "any"
	if supplied(m[2]) {
		if mode, err = coerce.AsStringScalar(m[2], "mode"); err != nil {
			return
		}
	}
	inherits, err = flagArg(m[3], "inherits", true)
	return
}

func builtinGet(e *Evaluator, args *Args) (value.Value, error) {
	name, env, mode, inherits, _, err := e.getArgs(args)
	if err != nil {
		return nil, err
	}
	v, ok, err := e.lookupMode(name, env, mode, inherits)
	if err != nil {
		return nil, err
	}
	if !ok {
		if mode == "function" {
			return nil, diagnostics.Errorf(diagnostics.ErrR002, "object '%s' of mode 'function' was not found", name)
		}
		return nil, diagnostics.Errorf(diagnostics.ErrR002, "object '%s' not found", name)
	}
	return v, nil
}

func builtinGet0(e *Evaluator, args *Args) (value.Value, error) {
	name, env, mode, inherits, m, err := e.getArgs(args, "ifnotfound")
	if err != nil {
		return nil, err
	}
	v, ok, err := e.lookupMode(name, env, mode, inherits)
	if err != nil {
		return nil, err
	}
	if !ok {
		return argOr(m[4], value.Null), nil
	}
	return v, nil
}

func builtinExists(e *Evaluator, args *Args) (value.Value, error) {
	name, env, mode, inherits, _, err := e.getArgs(args)
	if err != nil {
		return nil, err
	}
	if mode == "any" {
		_, _, ok := env.Lookup(name, inherits)
		return value.Bool(ok), nil
	}
	_, ok, err := e.lookupMode(name, env, mode, inherits)
	if err != nil {
		return nil, err
	}
	return value.Bool(ok), nil
}

// builtinRm takes its names unevaluated: rm(x, "y", list = c("a", "b")).
func builtinRm(e *Evaluator, args *Args) (value.Value, error) {
	var names []string
	env := args.Env
	for _, a := range args.List {
		switch a.Name {
		case "list":
			v, err := e.evalArg(a, args.Env)
			if err != nil {
				return nil, err
			}
			strs, err := coerce.AsStrings(v)
			if err != nil {
				return nil, diagnostics.Errorf(diagnostics.ErrR007, "invalid first argument")
			}
			names = append(names, strs...)
			continue
		case "envir":
			v, err := e.evalArg(a, args.Env)
			if err != nil {
				return nil, err
			}
			if env, err = envArg(v, "envir", args.Env); err != nil {
				return nil, err
			}
			continue
		case "inherits", "pos":
			continue
		}
		switch x := a.Expr.(type) {
		case *ast.Identifier:
			names = append(names, x.Value)
		case *ast.StringLiteral:
			names = append(names, x.Value)
		default:
			return nil, diagnostics.Errorf(diagnostics.ErrR007, "... must contain names or character strings")
		}
	}
	for _, name := range names {
		if err := env.Unbind(name); err != nil {
			if de, ok := err.(*diagnostics.Error); ok && de.Code == diagnostics.ErrR008 {
				e.signalWarning(diagnostics.NewWarning(diagnostics.WarnW006, "object '%s' not found", name))
				continue
			}
			return nil, err
		}
	}
	return value.Null, nil
}

func builtinLs(e *Evaluator, args *Args) (value.Value, error) {
	m, _, err := args.Match("name", "envir", "all.names", "pattern", "sorted")
	if err != nil {
		return nil, err
	}
	env, err := envArg(argOr(m[1], argOr(m[0], nil)), "envir", args.Env)
	if err != nil {
		return nil, err
	}
	all, err := flagArg(m[2], "all.names", false)
	if err != nil {
		return nil, err
	}
	sorted, err := flagArg(m[4], "sorted", true)
	if err != nil {
		return nil, err
	}
	var pattern *regexp.Regexp
	if supplied(m[3]) {
		src, err := coerce.AsStringScalar(m[3], "pattern")
		if err != nil {
			return nil, err
		}
		if pattern, err = regexp.Compile(src); err != nil {
			return nil, diagnostics.Errorf(diagnostics.ErrR007, "invalid regular expression '%s'", src)
		}
	}
	return value.NewStrings(env.ListBindings(all, pattern, sorted)...), nil
}

func builtinLockEnvironment(e *Evaluator, args *Args) (value.Value, error) {
	m, _, err := args.Match("env", "bindings")
	if err != nil {
		return nil, err
	}
	env, ok := argOr(m[0], value.Null).(*value.Environment)
	if !ok {
		return nil, diagnostics.Errorf(diagnostics.ErrR007, "not an environment")
	}
	bindings, err := flagArg(m[1], "bindings", false)
	if err != nil {
		return nil, err
	}
	env.Lock(bindings)
	return value.Null, nil
}

func builtinEnvironmentIsLocked(e *Evaluator, args *Args) (value.Value, error) {
	m, _, err := args.Match("env")
	if err != nil {
		return nil, err
	}
	env, ok := argOr(m[0], value.Null).(*value.Environment)
	if !ok {
		return nil, diagnostics.Errorf(diagnostics.ErrR007, "not an environment")
	}
	return value.Bool(env.IsLocked()), nil
}

func bindingLock(lock bool) BuiltinFunction {
	return func(e *Evaluator, args *Args) (value.Value, error) {
		m, _, err := args.Match("sym", "env")
		if err != nil {
			return nil, err
		}
		name, err := nameArg(m[0], "sym")
		if err != nil {
			return nil, err
		}
		env, ok := argOr(m[1], value.Null).(*value.Environment)
		if !ok {
			return nil, diagnostics.Errorf(diagnostics.ErrR007, "not an environment")
		}
		if lock {
			return value.Null, env.LockBinding(name)
		}
		return value.Null, env.UnlockBinding(name)
	}
}

func builtinBindingIsLocked(e *Evaluator, args *Args) (value.Value, error) {
	m, _, err := args.Match("sym", "env")
	if err != nil {
		return nil, err
	}
	name, err := nameArg(m[0], "sym")
	if err != nil {
		return nil, err
	}
	env, ok := argOr(m[1], value.Null).(*value.Environment)
	if !ok {
		return nil, diagnostics.Errorf(diagnostics.ErrR007, "not an environment")
	}
	locked, err := env.BindingIsLocked(name)
	if err != nil {
		return nil, err
	}
	return value.Bool(locked), nil
}
