package evaluator

import (
	"github.com/funvibe/rcore/internal/ast"
	"github.com/funvibe/rcore/internal/coerce"
	"github.com/funvibe/rcore/internal/diagnostics"
	"github.com/funvibe/rcore/internal/value"
)

// FPBuiltins returns the higher-order functions.
func FPBuiltins() map[string]*Builtin {
	return map[string]*Builtin{
		"force":     {Fn: builtinIdentity},
		"identity":  {Fn: builtinIdentity},
		"lapply":    {Fn: builtinLapply},
		"sapply":    {Fn: builtinSapply},
		"vapply":    {Fn: builtinVapply},
		"Map":       {Fn: builtinMap},
		"mapply":    {Fn: builtinMapply},
		"Reduce":    {Fn: builtinReduce},
		"Filter":    {Fn: builtinFilter},
		"do.call":   {Fn: builtinDoCall},
		"Recall":    {Fn: builtinRecall},
		"match.fun": {Fn: builtinMatchFun},
	}
}

func builtinIdentity(e *Evaluator, args *Args) (value.Value, error) {
	x, err := firstArg(args, "x")
	if err != nil {
		return nil, err
	}
	return x, nil
}

// matchFun resolves a function argument given as a function or its name.
func (e *Evaluator) matchFun(v value.Value, env *value.Environment) (value.Value, error) {
	if isFunction(v) {
		return v, nil
	}
	var name string
	switch x := v.(type) {
	case *value.Symbol:
		name = x.Name
	case *value.CharacterVector:
		if x.Len() != 1 || x.IsNA(0) {
			return nil, diagnostics.Errorf(diagnostics.ErrR007, "'%s' is not a function, character or symbol", deparseValue(v))
		}
		name = x.At(0)
	default:
		return nil, diagnostics.Errorf(diagnostics.ErrR007, "'%s' is not a function, character or symbol", deparseValue(v))
	}
	return e.lookupFunction(name, env)
}

func builtinMatchFun(e *Evaluator, args *Args) (value.Value, error) {
	x, err := firstArg(args, "FUN")
	if err != nil {
		return nil, err
	}
	return e.matchFun(x, args.Env)
}

// elements returns the elements of x as lapply visits them, with their names.
func elements(x value.Value) ([]value.Value, *value.CharacterVector, error) {
	if value.IsNull(x) {
		return nil, nil, nil
	}
	if env, ok := x.(*value.Environment); ok {
		l := envAsList(env)
		return l.Data(), value.Names(l), nil
	}
	if pl, ok := x.(*value.Pairlist); ok {
		x = pl.ToList()
	}
	vec, ok := x.(value.Vector)
	if !ok {
		return nil, nil, diagnostics.Errorf(diagnostics.ErrR007, "argument of type '%s' is not subsettable", x.Kind())
	}
	out := make([]value.Value, vec.Len())
	for i := range out {
		el := element(vec, i)
		if ev, ok := el.(value.Vector); ok && !value.IsFactor(ev) && vec.Kind() != value.KindList {
			el = stripped(ev)
		}
		out[i] = el
	}
	return out, value.Names(vec), nil
}

// applyEach calls fn on every element of xs followed by extra.
func (e *Evaluator) applyEach(fn value.Value, xs []value.Value, extra []Arg, call ast.Expression, env *value.Environment) ([]value.Value, error) {
	out := make([]value.Value, len(xs))
	fcall := syntheticCall("FUN", call.GetToken())
	for i, x := range xs {
		list := append([]Arg{{Value: x}}, extra...)
		v, err := e.CallFunction(fn, list, fcall, env)
		if err != nil {
			return nil, err
		}
		value.MarkShared(v)
		out[i] = v
	}
	return out, nil
}

// lapplyOver applies the FUN argument f to every element of x.
func (e *Evaluator) lapplyOver(x, f value.Value, extra []Arg, args *Args) ([]value.Value, *value.CharacterVector, error) {
	fn, err := e.matchFun(argOr(f, value.Null), args.Env)
	if err != nil {
		return nil, nil, err
	}
	xs, names, err := elements(argOr(x, value.Null))
	if err != nil {
		return nil, nil, err
	}
	res, err := e.applyEach(fn, xs, extra, args.Call, args.Env)
	if err != nil {
		return nil, nil, err
	}
	return res, names, nil
}

func resultList(res []value.Value, names *value.CharacterVector) *value.List {
	out := value.NewList(res)
	if names != nil {
		_ = value.SetAttr(out, value.AttrNames, names)
	}
	return out
}

func builtinLapply(e *Evaluator, args *Args) (value.Value, error) {
	m, rest, err := args.Match("X", "FUN", "...")
	if err != nil {
		return nil, err
	}
	res, names, err := e.lapplyOver(m[0], m[1], rest, args)
	if err != nil {
		return nil, err
	}
	return resultList(res, names), nil
}

// simplify turns a list of results into a vector when all have length one, or into
// a matrix with one column per result when all share another length.
func simplify(res []value.Value, names *value.CharacterVector, w diagnostics.Warner) (value.Value, error) {
	if len(res) == 0 {
		return value.NewList(nil), nil
	}
	common := -1
	for _, r := range res {
		vec, ok := r.(value.Vector)
		if !ok || (!vec.Kind().IsAtomic() && vec.Kind() != value.KindList) {
			return resultList(res, names), nil
		}
		if common == -1 {
			common = vec.Len()
		} else if common != vec.Len() {
			return resultList(res, names), nil
		}
	}
	if common < 1 {
		return resultList(res, names), nil
	}
	tags := make([]string, len(res))
	if common == 1 && names != nil {
		copy(tags, names.Data())
	}
	flat := make([]value.Value, len(res))
	for i, r := range res {
		vec := r.(value.Vector)
		if common > 1 {
			vec = stripped(vec)
		}
		flat[i] = vec
	}
	out, err := combine(flat, tags, w)
	if err != nil {
		return nil, err
	}
	vec, ok := out.(value.Vector)
	if !ok || common == 1 {
		return out, nil
	}
	vec = ownedCopy(vec)
	if err := value.SetAttr(vec, value.AttrDim, value.NewIntegers(int32(common), int32(len(res)))); err != nil {
		return nil, err
	}
	rowNames := value.Names(res[0])
	if rowNames != nil || names != nil {
		var rn, cn value.Value = value.Null, value.Null
		if rowNames != nil {
			rn = rowNames
		}
		if names != nil {
			cn = names
		}
		_ = value.SetAttr(vec, value.AttrDimNames, value.NewList([]value.Value{rn, cn}))
	}
	return vec, nil
}

// useNames gives the results of sapply over an unnamed character vector the input
// strings as names.
func useNames(x value.Value, names *value.CharacterVector) *value.CharacterVector {
	if names != nil {
		return names
	}
	if s, ok := x.(*value.CharacterVector); ok && !value.IsFactor(s) {
		return value.NewCharacter(append([]string(nil), s.Data()...), s.IsComplete())
	}
	return nil
}

func builtinSapply(e *Evaluator, args *Args) (value.Value, error) {
	m, rest, err := args.Match("X", "FUN", "...", "simplify", "USE.NAMES")
	if err != nil {
		return nil, err
	}
	res, names, err := e.lapplyOver(m[0], m[1], rest, args)
	if err != nil {
		return nil, err
	}
	keep, err := flagArg(m[4], "USE.NAMES", true)
	if err != nil {
		return nil, err
	}
	if keep {
		names = useNames(m[0], names)
	} else {
		names = nil
	}
	simp, err := flagArg(m[3], "simplify", true)
	if err != nil {
		return nil, err
	}
	if !simp {
		return resultList(res, names), nil
	}
	return simplify(res, names, e.warnerAt(args.Call))
}

func builtinVapply(e *Evaluator, args *Args) (value.Value, error) {
	m, rest, err := args.Match("X", "FUN", "FUN.VALUE", "...", "USE.NAMES")
	if err != nil {
		return nil, err
	}
	if err := requireArg(m[2], "FUN.VALUE"); err != nil {
		return nil, err
	}
	template, ok := m[2].(value.Vector)
	if !ok {
		return nil, diagnostics.Errorf(diagnostics.ErrR007, "'FUN.VALUE' must be a vector")
	}
	res, names, err := e.lapplyOver(m[0], m[1], rest, args)
	if err != nil {
		return nil, err
	}
	for i, r := range res {
		vec, ok := r.(value.Vector)
		if !ok || vec.Len() != template.Len() {
			return nil, diagnostics.Errorf(diagnostics.ErrR007, "values must be length %d,\n but FUN(X[[%d]]) result is length %d", template.Len(), i+1, value.Length(r))
		}
		if vec.Kind() != template.Kind() && !(template.Kind() == value.KindDouble && vec.Kind() == value.KindInteger) &&
			!(template.Kind() == value.KindInteger && vec.Kind() == value.KindLogical) {
			return nil, diagnostics.Errorf(diagnostics.ErrR007, "values must be type '%s',\n but FUN(X[[%d]]) result is type '%s'", template.Kind(), i+1, vec.Kind())
		}
	}
	keep, err := flagArg(m[4], "USE.NAMES", true)
	if err != nil {
		return nil, err
	}
	if keep {
		names = useNames(m[0], names)
	} else {
		names = nil
	}
	if len(res) == 0 {
		return value.NewVectorOfKind(template.Kind(), 0), nil
	}
	out, err := simplify(res, names, e.warnerAt(args.Call))
	if err != nil {
		return nil, err
	}
	if vec, ok := out.(value.Vector); ok && vec.Kind() != template.Kind() {
		return coerce.Cast(vec, template.Kind(), e.warnerAt(args.Call))
	}
	return out, nil
}

// mapply calls fn with the i-th element of every vector in rest, recycling shorter
// ones.
func (e *Evaluator) mapply(fn value.Value, rest []Arg, more []Arg, call ast.Expression, env *value.Environment) ([]value.Value, *value.CharacterVector, error) {
	cols := make([][]value.Value, len(rest))
	n := 0
	var names *value.CharacterVector
	for i, a := range rest {
		xs, nm, err := elements(a.Value)
		if err != nil {
			return nil, nil, err
		}
		cols[i] = xs
		if i == 0 {
			names = nm
			if names == nil {
				names = useNames(a.Value, nil)
			}
		}
		if len(xs) == 0 {
			return nil, nil, nil
		}
		n = max(n, len(xs))
	}
	out := make([]value.Value, n)
	fcall := syntheticCall("FUN", call.GetToken())
	for i := 0; i < n; i++ {
		list := make([]Arg, 0, len(rest)+len(more))
		for j, a := range rest {
			list = append(list, Arg{Name: a.Name, Value: cols[j][i%len(cols[j])]})
		}
		list = append(list, more...)
		v, err := e.CallFunction(fn, list, fcall, env)
		if err != nil {
			return nil, nil, err
		}
		value.MarkShared(v)
		out[i] = v
	}
	return out, names, nil
}

func builtinMap(e *Evaluator, args *Args) (value.Value, error) {
	m, rest, err := args.Match("f", "...")
	if err != nil {
		return nil, err
	}
	fn, err := e.matchFun(argOr(m[0], value.Null), args.Env)
	if err != nil {
		return nil, err
	}
	res, names, err := e.mapply(fn, rest, nil, args.Call, args.Env)
	if err != nil {
		return nil, err
	}
	return resultList(res, names), nil
}

func builtinMapply(e *Evaluator, args *Args) (value.Value, error) {
	m, rest, err := args.Match("FUN", "...", "MoreArgs", "SIMPLIFY", "USE.NAMES")
	if err != nil {
		return nil, err
	}
	fn, err := e.matchFun(argOr(m[0], value.Null), args.Env)
	if err != nil {
		return nil, err
	}
	var more []Arg
	if l, ok := argOr(m[2], value.Null).(*value.List); ok {
		names := value.Names(l)
		for i, v := range l.Data() {
			a := Arg{Value: v}
			if names != nil {
				a.Name = names.At(i)
			}
			more = append(more, a)
		}
	}
	res, names, err := e.mapply(fn, rest, more, args.Call, args.Env)
	if err != nil {
		return nil, err
	}
	keep, err := flagArg(m[4], "USE.NAMES", true)
	if err != nil {
		return nil, err
	}
	if !keep {
		names = nil
	}
	simp, err := flagArg(m[3], "SIMPLIFY", true)
	if err != nil {
		return nil, err
	}
	if !simp {
		return resultList(res, names), nil
	}
	return simplify(res, names, e.warnerAt(args.Call))
}

func builtinReduce(e *Evaluator, args *Args) (value.Value, error) {
	m, _, err := args.Match("f", "x", "init", "right", "accumulate")
	if err != nil {
		return nil, err
	}
	fn, err := e.matchFun(argOr(m[0], value.Null), args.Env)
	if err != nil {
		return nil, err
	}
	xs, _, err := elements(argOr(m[1], value.Null))
	if err != nil {
		return nil, err
	}
	right, err := flagArg(m[3], "right", false)
	if err != nil {
		return nil, err
	}
	accumulate, err := flagArg(m[4], "accumulate", false)
	if err != nil {
		return nil, err
	}
	if right {
		rev := make([]value.Value, len(xs))
		for i, x := range xs {
			rev[len(xs)-1-i] = x
		}
		xs = rev
	}
	if supplied(m[2]) {
		xs = append([]value.Value{m[2]}, xs...)
	}
	if len(xs) == 0 {
		return value.Null, nil
	}
	fcall := syntheticCall("f", args.Call.GetToken())
	acc := xs[0]
	steps := []value.Value{acc}
	for _, x := range xs[1:] {
		pair := []value.Value{acc, x}
		if right {
			pair = []value.Value{x, acc}
		}
		acc, err = e.CallFunction(fn, valueArgs(pair, nil), fcall, args.Env)
		if err != nil {
			return nil, err
		}
		value.MarkShared(acc)
		steps = append(steps, acc)
	}
	if !accumulate {
		return acc, nil
	}
	if right {
		for i, j := 0, len(steps)-1; i < j; i, j = i+1, j-1 {
			steps[i], steps[j] = steps[j], steps[i]
		}
	}
	return simplify(steps, nil, e.warnerAt(args.Call))
}

func builtinFilter(e *Evaluator, args *Args) (value.Value, error) {
	m, _, err := args.Match("f", "x")
	if err != nil {
		return nil, err
	}
	fn, err := e.matchFun(argOr(m[0], value.Null), args.Env)
	if err != nil {
		return nil, err
	}
	x := argOr(m[1], value.Null)
	xs, _, err := elements(x)
	if err != nil {
		return nil, err
	}
	res, err := e.applyEach(fn, xs, nil, args.Call, args.Env)
	if err != nil {
		return nil, err
	}
	var keep []int
	for i, r := range res {
		if ok, err := predicateTrue(r); err == nil && ok {
			keep = append(keep, i)
		}
	}
	vec, ok := x.(value.Vector)
	if !ok {
		return value.Null, nil
	}
	out := value.Subset(vec, keep)
	keepFactor(out, vec)
	return out, nil
}

// predicateTrue reads a Filter predicate result: TRUE keeps the element, FALSE and NA
// drop it.
func predicateTrue(v value.Value) (bool, error) {
	l, ok := v.(*value.LogicalVector)
	if !ok || l.Len() == 0 {
		return false, diagnostics.Errorf(diagnostics.ErrR007, "predicate must return a logical value")
	}
	return l.At(0) == value.True, nil
}

func builtinDoCall(e *Evaluator, args *Args) (value.Value, error) {
	m, _, err := args.Match("what", "args", "quote", "envir")
	if err != nil {
		return nil, err
	}
	env, err := envArg(m[3], "envir", args.Env)
	if err != nil {
		return nil, err
	}
	what := argOr(m[0], value.Null)
	fn, err := e.matchFun(what, env)
	if err != nil {
		return nil, err
	}
	name := "FUN"
	if s, ok := what.(*value.CharacterVector); ok {
		name = s.At(0)
	}
	var list []Arg
	switch a := argOr(m[1], value.NewList(nil)).(type) {
	case *value.List:
		names := value.Names(a)
		for i, v := range a.Data() {
			arg := Arg{Value: v}
			if names != nil {
				arg.Name = names.At(i)
			}
			arg.Expr, _ = valueExpr(v)
			list = append(list, arg)
		}
	default:
		return nil, diagnostics.Errorf(diagnostics.ErrR007, "second argument must be a list")
	}
	call := syntheticCall(name, args.Call.GetToken())
	for _, a := range list {
		x := a.Expr
		if x == nil {
			x = &ast.Identifier{Value: "..."}
		}
		call.Arguments = append(call.Arguments, &ast.Argument{Name: a.Name, Value: x})
	}
	return e.CallFunction(fn, list, call, env)
}

func builtinRecall(e *Evaluator, args *Args) (value.Value, error) {
	fr := e.frameOf(args.Env)
	if fr == nil || fr.Fn == nil {
		return nil, diagnostics.Errorf(diagnostics.ErrR001, "'Recall' called from outside a closure")
	}
	return e.CallFunction(fr.Fn, args.List, fr.Call, fr.Caller)
}
