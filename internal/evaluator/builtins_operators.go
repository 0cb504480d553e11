package evaluator

import (
	"github.com/funvibe/rcore/internal/arith"
	"github.com/funvibe/rcore/internal/coerce"
	"github.com/funvibe/rcore/internal/diagnostics"
	"github.com/funvibe/rcore/internal/value"
)

// OperatorBuiltins exposes the operators as functions so they can be passed to
// Reduce, sapply and do.call or called as `+`(1, 2).
func OperatorBuiltins() map[string]*Builtin {
	ops := map[string]*Builtin{
		":":   {Fn: builtinColon},
		"%*%": {Fn: builtinMatMul},
		"(":   {Fn: builtinParen},
		"[":   {Fn: builtinSubset},
		"[[":  {Fn: builtinSubset2},
	}
	for _, name := range []string{"+", "-", "*", "/", "^", "%%", "%/%", "==", "!=", "<", ">", "<=", ">=", "&", "|"} {
		op, _ := arith.LookupOp(name)
		ops[name] = &Builtin{Fn: operatorFunction(op, name)}
	}
	ops["!"] = &Builtin{Fn: builtinNot}
	return ops
}

// operatorFunction applies op to two arguments; + and - also accept one.
func operatorFunction(op arith.Op, name string) BuiltinFunction {
	return func(e *Evaluator, args *Args) (value.Value, error) {
		vals := args.Values()
		switch {
		case len(vals) == 1 && (op == arith.OpAdd || op == arith.OpSub):
			uop, _ := arith.LookupUnaryOp(name)
			return arith.Unary(uop, vals[0], e.warnerAt(args.Call))
		case len(vals) != 2:
			return nil, diagnostics.Errorf(diagnostics.ErrR009, "operator needs two arguments")
		}
		return arith.Binary(op, vals[0], vals[1], e.warnerAt(args.Call))
	}
}

func builtinNot(e *Evaluator, args *Args) (value.Value, error) {
	vals := args.Values()
	if len(vals) != 1 {
		return nil, diagnostics.Errorf(diagnostics.ErrR009, "%d arguments passed to '!' which requires 1", len(vals))
	}
	return arith.Unary(arith.UnaryNot, vals[0], e.warnerAt(args.Call))
}

func builtinColon(e *Evaluator, args *Args) (value.Value, error) {
	vals := args.Values()
	if len(vals) != 2 {
		return nil, diagnostics.Errorf(diagnostics.ErrR009, "operator needs two arguments")
	}
	return colon(vals[0], vals[1], e.warnerAt(args.Call))
}

func builtinMatMul(e *Evaluator, args *Args) (value.Value, error) {
	m, _, err := args.Match("x", "y")
	if err != nil {
		return nil, err
	}
	return arith.MatMul(argOr(m[0], value.Null), argOr(m[1], value.Null))
}

func builtinParen(e *Evaluator, args *Args) (value.Value, error) {
	vals := args.Values()
	if len(vals) != 1 {
		return nil, diagnostics.Errorf(diagnostics.ErrR009, "%d arguments passed to '(' which requires 1", len(vals))
	}
	return vals[0], nil
}

// subscripts splits the arguments of `[` and `[[` into the object, the indices and
// the drop flag.
func subscripts(args *Args) (x value.Value, idx []value.Value, drop bool, err error) {
	drop = true
	for _, a := range args.List {
		switch {
		case a.Name == "drop":
			if drop, err = coerce.AsLogicalFlag(a.Value, "drop"); err != nil {
				return nil, nil, false, err
			}
		case a.Name == "exact":
		case x == nil:
			x = a.Value
		default:
			idx = append(idx, a.Value)
		}
	}
	if x == nil {
		x = value.Null
	}
	return x, idx, drop, nil
}

func builtinSubset(e *Evaluator, args *Args) (value.Value, error) {
	x, idx, drop, err := subscripts(args)
	if err != nil {
		return nil, err
	}
	return subset(x, idx, drop)
}

func builtinSubset2(e *Evaluator, args *Args) (value.Value, error) {
	x, idx, _, err := subscripts(args)
	if err != nil {
		return nil, err
	}
	return subset2(x, idx)
}
