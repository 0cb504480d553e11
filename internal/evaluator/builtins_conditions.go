package evaluator

import (
	"github.com/funvibe/rcore/internal/ast"
	"github.com/funvibe/rcore/internal/coerce"
	"github.com/funvibe/rcore/internal/diagnostics"
	"github.com/funvibe/rcore/internal/value"
)

// ConditionBuiltins returns the functions that raise and handle conditions.
func ConditionBuiltins() map[string]*Builtin {
	return map[string]*Builtin{
		"return":           {Fn: builtinReturn},
		"stop":             {Fn: builtinStop},
		"warning":          {Fn: builtinWarning, Invisible: true},
		"stopifnot":        {Fn: builtinStopifnot, Invisible: true},
		"simpleError":      {Fn: conditionConstructor(errorClasses)},
		"simpleWarning":    {Fn: conditionConstructor(warningClasses)},
		"simpleCondition":  {Fn: conditionConstructor([]string{"simpleCondition", "condition"})},
		"conditionMessage": {Fn: builtinConditionMessage},
		"conditionCall":    {Fn: builtinConditionCall},
		"tryCatch":         {Fn: builtinTryCatch, Special: true},
		"try":              {Fn: builtinTry, Special: true},
		"suppressWarnings": {Fn: suppressBuiltin(muffleWarnings), Special: true},
		"suppressMessages": {Fn: suppressBuiltin(muffleMessages), Special: true},
		"on.exit":          {Fn: builtinOnExit, Special: true, Invisible: true},
		"geterrmessage":    {Fn: builtinGeterrmessage},
	}
}

func builtinReturn(e *Evaluator, args *Args) (value.Value, error) {
	m, _, err := args.Match("value")
	if err != nil {
		return nil, err
	}
	return nil, &ReturnSignal{Value: argOr(m[0], value.Null), Env: args.Env}
}

// messageParts converts the ... arguments of stop, warning and message to strings.
func messageParts(rest []Arg) ([]string, error) {
	parts := make([]string, 0, len(rest))
	for _, a := range rest {
		if value.IsNull(a.Value) {
			continue
		}
		if f, ok := a.Value.(*value.IntegerVector); ok && value.IsFactor(f) {
			labels, err := factorLabels(f)
			if err != nil {
				return nil, err
			}
			parts = append(parts, labels.Data()...)
			continue
		}
		strs, err := coerce.AsStrings(a.Value)
		if err != nil {
			return nil, err
		}
		for _, s := range strs {
			if s == value.NAString {
				s = "NA"
			}
			parts = append(parts, s)
		}
	}
	return parts, nil
}

// callerCall deparses the call of the function evaluating in env, or "" at top level.
func (e *Evaluator) callerCall(env *value.Environment) string {
	if fr := e.frameOf(env); fr != nil && fr.Call != nil {
		return fr.Call.String()
	}
	return ""
}

// conditionArgs splits the arguments of stop and warning into the message parts or
// condition object and the reported call.
func (e *Evaluator) conditionArgs(args *Args) (parts []string, obj value.Value, call string, err error) {
	m, rest, err := args.Match("...", "call.")
	if err != nil {
		return nil, nil, "", err
	}
	withCall, err := flagArg(m[1], "call.", true)
	if err != nil {
		return nil, nil, "", err
	}
	if withCall {
		call = e.callerCall(args.Env)
	}
	if len(rest) == 1 {
		if l, ok := rest[0].Value.(*value.List); ok && value.Inherits(l, "condition") {
			if c, ok := listElement(l, "call").(*value.Language); ok {
				call = c.Node.String()
			}
			return nil, l, call, nil
		}
	}
	parts, err = messageParts(rest)
	return parts, nil, call, err
}

func builtinStop(e *Evaluator, args *Args) (value.Value, error) {
	parts, obj, call, err := e.conditionArgs(args)
	if err != nil {
		return nil, err
	}
	return nil, conditionFromValue(parts, obj, call, errorClasses, diagnostics.ErrR001)
}

func builtinWarning(e *Evaluator, args *Args) (value.Value, error) {
	parts, obj, call, err := e.conditionArgs(args)
	if err != nil {
		return nil, err
	}
	c := conditionFromValue(parts, obj, call, warningClasses, diagnostics.ErrR001)
	e.signalWarning(diagnostics.Warning{Code: diagnostics.WarnW006, Message: c.Err.Message, Call: call})
	return value.Str(c.Err.Message), nil
}

// builtinStopifnot fails on the first argument that is not all TRUE.
func builtinStopifnot(e *Evaluator, args *Args) (value.Value, error) {
	for _, a := range args.List {
		ok := false
		if l, isLogical := a.Value.(*value.LogicalVector); isLogical {
			ok = true
			for _, x := range l.Data() {
				if x != value.True {
					ok = false
					break
				}
			}
		}
		if ok {
			continue
		}
		src := describeArg(a)
		msg := src + " is not TRUE"
		if value.Length(a.Value) > 1 {
			msg = src + " are not all TRUE"
		}
		err := diagnostics.Errorf(diagnostics.ErrR001, "%s", msg)
		err.Call = e.callerCall(args.Env)
		return nil, &Condition{Err: err, Classes: errorClasses}
	}
	return value.Null, nil
}

func conditionConstructor(classes []string) BuiltinFunction {
	return func(e *Evaluator, args *Args) (value.Value, error) {
		m, _, err := args.Match("message", "call")
		if err != nil {
			return nil, err
		}
		msg, err := coerce.AsStringScalar(argOr(m[0], value.Null), "message")
		if err != nil {
			return nil, err
		}
		obj := conditionObject(msg, "", classes)
		if supplied(m[1]) {
			obj.Set(1, m[1])
		}
		return obj, nil
	}
}

func conditionArg(args *Args) (*value.List, error) {
	m, _, err := args.Match("c")
	if err != nil {
		return nil, err
	}
	l, ok := argOr(m[0], value.Null).(*value.List)
	if !ok || !value.Inherits(l, "condition") {
		return nil, diagnostics.Errorf(diagnostics.ErrR007, "argument is not a condition object")
	}
	return l, nil
}

func builtinConditionMessage(e *Evaluator, args *Args) (value.Value, error) {
	l, err := conditionArg(args)
	if err != nil {
		return nil, err
	}
	return listElement(l, "message"), nil
}

func builtinConditionCall(e *Evaluator, args *Args) (value.Value, error) {
	l, err := conditionArg(args)
	if err != nil {
		return nil, err
	}
	c := listElement(l, "call")
	if s, ok := c.(*value.CharacterVector); ok && s.Len() == 1 {
		if prog, err := parseText(s.At(0)); err == nil && prog.Len() == 1 {
			return prog.At(0), nil
		}
	}
	return c, nil
}

type conditionHandler struct {
	class string
	fn    value.Value
}

// builtinTryCatch evaluates expr with exiting handlers. Handlers are matched by class
// in the order given; finally runs on every exit path. Control flow signals and
// internal failures pass through untouched.
func builtinTryCatch(e *Evaluator, args *Args) (result value.Value, err error) {
	var expr ast.Expression
	var finally ast.Expression
	var handlers []conditionHandler
	var kinds []handlerKind
	for _, a := range args.List {
		switch a.Name {
		case "", "expr":
			if expr == nil && a.Expr != nil {
				expr = a.Expr
				continue
			}
			if a.Name == "expr" {
				return nil, diagnostics.Errorf(diagnostics.ErrR009, "formal argument \"expr\" matched by multiple actual arguments")
			}
			continue
		case "finally":
			finally = a.Expr
			continue
		}
		fn, err := e.evalArg(a, args.Env)
		if err != nil {
			return nil, err
		}
		handlers = append(handlers, conditionHandler{class: a.Name, fn: fn})
		switch a.Name {
		case "warning", "simpleWarning":
			kinds = append(kinds, catchWarnings)
		case "message", "simpleMessage":
			kinds = append(kinds, catchMessages)
		case "condition":
			kinds = append(kinds, catchWarnings, catchMessages)
		}
	}
	if finally != nil {
		defer func() {
			visible := e.visible
			if _, ferr := e.Eval(finally, args.Env); ferr != nil {
				result, err = nil, ferr
				return
			}
			e.visible = visible
		}()
	}
	if expr == nil {
		return value.Null, nil
	}
	depth := len(e.CallStack)
	v, err := e.withHandlers(func() (value.Value, error) { return e.Eval(expr, args.Env) }, kinds...)
	if err == nil {
		return v, nil
	}
	if isControlSignal(err) {
		return nil, err
	}
	cond, ok := asCondition(err)
	if !ok {
		return nil, err
	}
	e.CallStack = e.CallStack[:depth]
	for _, h := range handlers {
		if !cond.HasClass(h.class) {
			continue
		}
		hv, herr := e.CallFunction(h.fn, valueArgs([]value.Value{cond.object()}, nil), syntheticCall("value[[3L]]", args.Call.GetToken()), args.Env)
		if herr != nil {
			return nil, herr
		}
		return hv, nil
	}
	return nil, err
}

// builtinTry returns an invisible "try-error" string instead of failing.
func builtinTry(e *Evaluator, args *Args) (value.Value, error) {
	m, _, err := args.MatchExprs("expr", "silent")
	if err != nil {
		return nil, err
	}
	silent := false
	if m[1] != nil {
		sv, err := e.Eval(m[1], args.Env)
		if err != nil {
			return nil, err
		}
		if silent, err = coerce.AsLogicalFlag(sv, "silent"); err != nil {
			return nil, err
		}
	}
	depth := len(e.CallStack)
	v, err := e.Eval(m[0], args.Env)
	if err == nil {
		return v, nil
	}
	if isControlSignal(err) {
		return nil, err
	}
	cond, ok := asCondition(err)
	if !ok || !cond.HasClass("error") {
		return nil, err
	}
	e.CallStack = e.CallStack[:depth]
	text := errorText(cond.Err)
	e.lastError = text
	if !silent {
		_, _ = e.ErrOut.Write([]byte(text))
	}
	out := value.Str(text)
	_ = value.SetAttr(out, value.AttrClass, value.Str("try-error"))
	_ = value.SetAttr(out, "condition", cond.object())
	e.visible = false
	return out, nil
}

// errorText formats an error the way it is reported at top level.
func errorText(err *diagnostics.Error) string {
	if err.Call != "" {
		return "Error in " + err.Call + " : " + err.Message + "\n"
	}
	return "Error : " + err.Message + "\n"
}

func builtinGeterrmessage(e *Evaluator, args *Args) (value.Value, error) {
	return value.Str(e.lastError), nil
}

func suppressBuiltin(kind handlerKind) BuiltinFunction {
	return func(e *Evaluator, args *Args) (value.Value, error) {
		m, _, err := args.MatchExprs("expr", "classes")
		if err != nil {
			return nil, err
		}
		return e.withHandlers(func() (value.Value, error) { return e.Eval(m[0], args.Env) }, kind)
	}
}

// builtinOnExit records an expression to run when the calling closure exits. It is
// ignored at top level.
func builtinOnExit(e *Evaluator, args *Args) (value.Value, error) {
	m, _, err := args.MatchExprs("expr", "add", "after")
	if err != nil {
		return nil, err
	}
	flag := func(x ast.Expression, name string, def bool) (bool, error) {
		if x == nil {
			return def, nil
		}
		v, err := e.Eval(x, args.Env)
		if err != nil {
			return false, err
		}
		return coerce.AsLogicalFlag(v, name)
	}
	add, err := flag(m[1], "add", false)
	if err != nil {
		return nil, err
	}
	after, err := flag(m[2], "after", true)
	if err != nil {
		return nil, err
	}
	fr := e.frameOf(args.Env)
	if fr == nil || fr.Fn == nil {
		return value.Null, nil
	}
	switch {
	case m[0] == nil:
		if !add {
			fr.onExit = nil
		}
	case !add:
		fr.onExit = []ast.Expression{m[0]}
	case after:
		fr.onExit = append(fr.onExit, m[0])
	default:
		fr.onExit = append([]ast.Expression{m[0]}, fr.onExit...)
	}
	return value.Null, nil
}
