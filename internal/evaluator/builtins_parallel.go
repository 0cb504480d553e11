package evaluator

import (
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/funvibe/rcore/internal/ast"
	"github.com/funvibe/rcore/internal/coerce"
	"github.com/funvibe/rcore/internal/diagnostics"
	"github.com/funvibe/rcore/internal/prettyprinter"
	"github.com/funvibe/rcore/internal/value"
)

// futureClass marks the handles returned by parallel.future.
const futureClass = "parallel.future"

// future is a map running in child contexts whose results have not been collected.
type future struct {
	ids   []string
	names *value.CharacterVector
}

// ParallelBuiltins returns map and reduce spread over child contexts. With more than
// one thread the function is rebuilt from its source in every child, so it only
// sees its arguments and the base environment; elements and results are copied.
func ParallelBuiltins() map[string]*Builtin {
	return map[string]*Builtin{
		"parallel.map":    {Fn: builtinParallelMap},
		"parallel.reduce": {Fn: builtinParallelReduce},
		"parallel.future": {Fn: builtinParallelFuture},
		"parallel.get":    {Fn: builtinParallelGet},
	}
}

func threadsArg(v value.Value) (int, error) {
	n, err := coerce.AsIntegerScalar(argOr(v, value.Int(1)), "threads", nil)
	if err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, diagnostics.Errorf(diagnostics.ErrR007, "invalid 'threads' argument")
	}
	return n, nil
}

// functionSource renders fn as text a child context can evaluate back to it.
func functionSource(fn value.Value) (string, error) {
	switch f := fn.(type) {
	case *value.Closure:
		return "(" + prettyprinter.Deparse(f) + ")", nil
	case *Builtin:
		return ast.QuoteName(f.Name), nil
	}
	return "", diagnostics.Errorf(diagnostics.ErrR007, "cannot run '%s' in parallel", fn.Kind())
}

// chunkBounds splits n items into at most parts contiguous ranges of near-equal size.
func chunkBounds(n, parts int) [][2]int {
	parts = min(parts, n)
	out := make([][2]int, 0, parts)
	lo := 0
	for p := 0; p < parts; p++ {
		hi := lo + (n-lo)/(parts-p)
		out = append(out, [2]int{lo, hi})
		lo = hi
	}
	return out
}

// mapNames are the names a map over x gives its result.
func mapNames(x value.Value) *value.CharacterVector {
	_, names, err := elements(x)
	if err != nil || names == nil {
		return useNames(x, nil)
	}
	return names
}

// startMap spawns one child per chunk of the recycled columns; every child runs
// Map over its share.
func (e *Evaluator) startMap(fn value.Value, cols []Arg, threads int) (*future, error) {
	src, err := functionSource(fn)
	if err != nil {
		return nil, err
	}
	data := make([][]value.Value, len(cols))
	n := 0
	for i, a := range cols {
		xs, _, err := elements(a.Value)
		if err != nil {
			return nil, err
		}
		if len(xs) == 0 {
			return &future{}, nil
		}
		data[i] = xs
		n = max(n, len(xs))
	}
	h, err := e.host()
	if err != nil {
		return nil, err
	}

	var call strings.Builder
	call.WriteString("Map(" + src)
	for i, a := range cols {
		call.WriteString(", ")
		if a.Name != "" {
			call.WriteString(ast.QuoteName(a.Name) + " = ")
		}
		fmt.Fprintf(&call, ".a%d", i+1)
	}
	call.WriteString(")")

	f := &future{names: mapNames(cols[0].Value)}
	for _, b := range chunkBounds(n, threads) {
		bindings := make(map[string]value.Value, len(cols))
		for i, xs := range data {
			part := make([]value.Value, 0, b[1]-b[0])
			for j := b[0]; j < b[1]; j++ {
				part = append(part, xs[j%len(xs)])
			}
			bindings[fmt.Sprintf(".a%d", i+1)] = value.NewList(part)
		}
		id, err := h.SpawnWith(call.String(), bindings)
		if err != nil {
			if len(f.ids) > 0 {
				_, _ = h.Join(f.ids)
			}
			return nil, err
		}
		f.ids = append(f.ids, id)
	}
	e.Logger.Debug().Int("items", n).Int("children", len(f.ids)).Msg("parallel map started")
	return f, nil
}

// collect joins the children of f and concatenates their results in order.
func (e *Evaluator) collect(f *future, call ast.Expression) (value.Value, error) {
	var res []value.Value
	if len(f.ids) > 0 {
		h, err := e.host()
		if err != nil {
			return nil, err
		}
		parts, err := h.Join(f.ids)
		if err != nil {
			return nil, err
		}
		for _, p := range parts {
			l, ok := p.(*value.List)
			if !ok {
				return nil, diagnostics.Internalf("parallel map returned %s", p.Kind())
			}
			res = append(res, l.Data()...)
		}
	}
	return simplify(res, f.names, e.warnerAt(call))
}

// builtinParallelMap calls f with the i-th element of x and of every further
// argument, recycling shorter ones, and simplifies the results like sapply. threads
// bounds the child contexts used; one thread runs in the calling context.
func builtinParallelMap(e *Evaluator, args *Args) (value.Value, error) {
	m, rest, err := args.Match("x", "f", "...", "threads")
	if err != nil {
		return nil, err
	}
	if err := requireArg(m[0], "x"); err != nil {
		return nil, err
	}
	fn, err := e.matchFun(argOr(m[1], value.Null), args.Env)
	if err != nil {
		return nil, err
	}
	threads, err := threadsArg(m[3])
	if err != nil {
		return nil, err
	}
	cols := append([]Arg{{Value: m[0]}}, rest...)
	if threads == 1 {
		res, names, err := e.mapply(fn, cols, nil, args.Call, args.Env)
		if err != nil {
			return nil, err
		}
		return simplify(res, names, e.warnerAt(args.Call))
	}
	f, err := e.startMap(fn, cols, threads)
	if err != nil {
		return nil, err
	}
	return e.collect(f, args.Call)
}

// builtinParallelFuture starts a parallel map and returns a handle without waiting.
func builtinParallelFuture(e *Evaluator, args *Args) (value.Value, error) {
	m, rest, err := args.Match("x", "f", "...", "threads")
	if err != nil {
		return nil, err
	}
	if err := requireArg(m[0], "x"); err != nil {
		return nil, err
	}
	fn, err := e.matchFun(argOr(m[1], value.Null), args.Env)
	if err != nil {
		return nil, err
	}
	threads, err := threadsArg(m[3])
	if err != nil {
		return nil, err
	}
	f, err := e.startMap(fn, append([]Arg{{Value: m[0]}}, rest...), threads)
	if err != nil {
		return nil, err
	}
	key := uuid.NewString()
	if e.futures == nil {
		e.futures = map[string]*future{}
	}
	e.futures[key] = f
	handle := value.NewStrings(key)
	_ = value.SetAttr(handle, value.AttrClass, value.NewStrings(futureClass))
	return handle, nil
}

// builtinParallelGet waits for a future and returns its value. A future is
// collected once.
func builtinParallelGet(e *Evaluator, args *Args) (value.Value, error) {
	x, err := firstArg(args, "future")
	if err != nil {
		return nil, err
	}
	h, ok := x.(*value.CharacterVector)
	if !ok || h.Len() != 1 || !slices.Contains(value.Class(x), futureClass) {
		return nil, diagnostics.Errorf(diagnostics.ErrR007, "'future' must be a value returned by parallel.future")
	}
	key := h.At(0)
	f, ok := e.futures[key]
	if !ok {
		return nil, diagnostics.Errorf(diagnostics.ErrR001, "future %s has already been collected", key)
	}
	delete(e.futures, key)
	return e.collect(f, args.Call)
}

// builtinParallelReduce folds x with f starting from init. With several threads
// every child folds a contiguous share from init and the partial results are folded
// in order, so init must be neutral and f associative.
func builtinParallelReduce(e *Evaluator, args *Args) (value.Value, error) {
	m, _, err := args.Match("x", "f", "init", "threads")
	if err != nil {
		return nil, err
	}
	for i, name := range []string{"x", "f", "init"} {
		if err := requireArg(m[i], name); err != nil {
			return nil, err
		}
	}
	fn, err := e.matchFun(m[1], args.Env)
	if err != nil {
		return nil, err
	}
	threads, err := threadsArg(m[3])
	if err != nil {
		return nil, err
	}
	xs, _, err := elements(m[0])
	if err != nil {
		return nil, err
	}
	init := m[2]
	if threads > 1 && len(xs) > 1 {
		if xs, err = e.reducePartials(fn, xs, init, threads); err != nil {
			return nil, err
		}
	}
	fcall := syntheticCall("f", args.Call.GetToken())
	acc := init
	for _, x := range xs {
		acc, err = e.CallFunction(fn, valueArgs([]value.Value{acc, x}, nil), fcall, args.Env)
		if err != nil {
			return nil, err
		}
		value.MarkShared(acc)
	}
	return acc, nil
}

// reducePartials folds every chunk of xs in its own child context.
func (e *Evaluator) reducePartials(fn value.Value, xs []value.Value, init value.Value, threads int) ([]value.Value, error) {
	src, err := functionSource(fn)
	if err != nil {
		return nil, err
	}
	h, err := e.host()
	if err != nil {
		return nil, err
	}
	source := "Reduce(" + src + ", .x, .init)"
	var ids []string
	for _, b := range chunkBounds(len(xs), threads) {
		id, err := h.SpawnWith(source, map[string]value.Value{
			".x":    value.NewList(slices.Clone(xs[b[0]:b[1]])),
			".init": init,
		})
		if err != nil {
			if len(ids) > 0 {
				_, _ = h.Join(ids)
			}
			return nil, err
		}
		ids = append(ids, id)
	}
	e.Logger.Debug().Int("items", len(xs)).Int("children", len(ids)).Msg("parallel reduce started")
	return h.Join(ids)
}
