package arith

import (
	"github.com/funvibe/rcore/internal/coerce"
	"github.com/funvibe/rcore/internal/diagnostics"
	"github.com/funvibe/rcore/internal/value"
)

const msgInvalidUnary = "invalid argument to unary operator"

// unaryPlan is a prefix operation resolved for one operand kind.
type unaryPlan struct {
	op      UnaryOp
	operand value.Kind
	arg     value.Kind
	result  value.Kind
	fn      func(a, dst value.Vector) bool
}

func resolveUnary(op UnaryOp, k value.Kind) (*unaryPlan, error) {
	p := &unaryPlan{op: op, operand: k}
	switch op {
	case UnaryMinus, UnaryPlus:
		if !k.IsNumeric() {
			return nil, diagnostics.Errorf(diagnostics.ErrR007, msgInvalidUnary)
		}
		p.arg = coerce.MaxPrecedence(value.KindInteger, k)
		p.result = p.arg
		if op == UnaryPlus {
			p.fn = copyKernel
		} else {
			p.fn = negateKernel(p.arg)
		}
	case UnaryNot:
		switch {
		case k == value.KindRaw:
			p.arg, p.result = value.KindRaw, value.KindRaw
			p.fn = func(a, dst value.Vector) bool {
				out := raws(dst)
				for i, x := range raws(a) {
					out[i] = ^x
				}
				return true
			}
		case k.IsNumeric():
			p.arg, p.result = value.KindLogical, value.KindLogical
			p.fn = func(a, dst value.Vector) bool {
				out := logicals(dst)
				complete := true
				for i, x := range logicals(a) {
					switch x {
					case value.True:
						out[i] = value.False
					case value.False:
						out[i] = value.True
					default:
						out[i] = value.NALogical
						complete = false
					}
				}
				return complete
			}
		default:
			return nil, diagnostics.Errorf(diagnostics.ErrR007, msgInvalidUnary)
		}
	}
	return p, nil
}

func copyKernel(a, dst value.Vector) bool {
	if a == dst {
		return a.IsComplete()
	}
	for i := 0; i < a.Len(); i++ {
		value.CopyElement(dst, i, a, i)
	}
	return a.IsComplete()
}

func negateKernel(k value.Kind) func(a, dst value.Vector) bool {
	switch k {
	case value.KindInteger:
		return func(a, dst value.Vector) bool {
			out := ints(dst)
			complete := true
			for i, x := range ints(a) {
				if x == value.NAInteger {
					out[i] = x
					complete = false
					continue
				}
				out[i] = -x
			}
			return complete
		}
	case value.KindDouble:
		return func(a, dst value.Vector) bool {
			out := doubles(dst)
			complete := true
			for i, x := range doubles(a) {
				if value.IsNADouble(x) {
					out[i] = x
					complete = false
					continue
				}
				out[i] = -x
			}
			return complete
		}
	default:
		return func(a, dst value.Vector) bool {
			out := complexes(dst)
			complete := true
			for i, x := range complexes(a) {
				if value.IsNAComplex(x) {
					out[i] = x
					complete = false
					continue
				}
				out[i] = -x
			}
			return complete
		}
	}
}

func (p *unaryPlan) apply(v value.Vector) (value.Value, error) {
	a, err := coerce.Cast(v, p.arg, nil)
	if err != nil {
		return nil, err
	}
	var dst value.Vector
	if a.Kind() == p.result && value.IsTemporary(a) {
		dst = a
	} else {
		dst = value.NewVectorOfKind(p.result, a.Len())
	}
	complete := p.fn(a, dst)
	dst.(completer).SetComplete(complete)
	if dst != a {
		dst.SetAttrs(v.Attrs().Copy())
	}
	validateResult(dst)
	return dst, nil
}

// Unary evaluates a prefix operator on the generic path.
func Unary(op UnaryOp, v value.Value, w diagnostics.Warner) (value.Value, error) {
	var g unaryGeneric
	return g.execute(op, v, w)
}

type unaryGeneric struct {
	plan *unaryPlan
}

func (g *unaryGeneric) execute(op UnaryOp, v value.Value, w diagnostics.Warner) (value.Value, error) {
	if value.IsFactor(v) {
		if w != nil {
			w.Warn(diagnostics.NewWarning(diagnostics.WarnW003, diagnostics.MsgNotMeaningfulFctr, op))
		}
		return value.NewNAVector(value.KindLogical, value.Length(v)), nil
	}
	vec, ok := v.(value.Vector)
	if !ok || !vec.Kind().IsAtomic() {
		return nil, diagnostics.Errorf(diagnostics.ErrR007, msgInvalidUnary)
	}
	if g.plan == nil || g.plan.operand != vec.Kind() {
		p, err := resolveUnary(op, vec.Kind())
		if err != nil {
			return nil, err
		}
		g.plan = p
	}
	return g.plan.apply(vec)
}
