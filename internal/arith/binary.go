package arith

import (
	"github.com/funvibe/rcore/internal/coerce"
	"github.com/funvibe/rcore/internal/diagnostics"
	"github.com/funvibe/rcore/internal/value"
)

const (
	msgNonNumeric     = "non-numeric argument to binary operator"
	msgComplexOp      = "invalid operation on complex numbers"
	msgComplexCompare = "invalid comparison with complex values"
	msgLogicTypes     = "operations are possible only for numeric, logical or complex types"
	msgNonConformable = "non-conformable arrays"
)

// plan is an operation resolved for one pair of operand kinds.
type plan struct {
	op          Op
	left, right value.Kind
	arg, result value.Kind
	kern        kernel
}

// resolve picks the argument and result kinds for op over operands of kinds left and
// right, and the kernel from the dispatch table.
func resolve(op Op, left, right value.Kind) (*plan, error) {
	p := &plan{op: op, left: left, right: right}
	arg := coerce.MaxPrecedence(left, right)
	switch {
	case op.IsArithmetic():
		if !left.IsNumeric() || !right.IsNumeric() {
			return nil, diagnostics.Errorf(diagnostics.ErrR007, msgNonNumeric)
		}
		arg = coerce.MaxPrecedence(value.KindInteger, arg)
		if arg == value.KindComplex && (op == OpMod || op == OpIntDiv) {
			return nil, diagnostics.Errorf(diagnostics.ErrR007, msgComplexOp)
		}
		if arg == value.KindInteger && (op == OpDiv || op == OpPow) {
			arg = value.KindDouble
		}
		p.arg, p.result = arg, arg
	case op.IsComparison():
		if !left.IsAtomic() || !right.IsAtomic() {
			return nil, comparisonTypeError(op)
		}
		if arg == value.KindComplex && op != OpEq && op != OpNe {
			return nil, diagnostics.Errorf(diagnostics.ErrR007, msgComplexCompare)
		}
		p.arg, p.result = arg, value.KindLogical
	case op.IsLogic():
		if !logicOperand(left) || !logicOperand(right) {
			return nil, diagnostics.Errorf(diagnostics.ErrR007, msgLogicTypes)
		}
		if left == value.KindRaw && right == value.KindRaw {
			p.arg, p.result = value.KindRaw, value.KindRaw
		} else {
			p.arg, p.result = value.KindLogical, value.KindLogical
		}
	default:
		return nil, diagnostics.Internalf("operator %s has no vector plan", op)
	}
	p.kern = dispatch[op][p.arg]
	if p.kern == nil {
		return nil, diagnostics.Internalf("no kernel for %s on %s", op, p.arg)
	}
	return p, nil
}

func logicOperand(k value.Kind) bool { return k.IsNumeric() || k == value.KindRaw }

func comparisonTypeError(op Op) error {
	return diagnostics.Errorf(diagnostics.ErrR007, "comparison (%s) is possible only for atomic and list types", op)
}

type completer interface {
	SetComplete(bool)
}

// apply runs the plan over operands of the kinds it was resolved for. With attrs
// unset the operands are known to carry no attributes.
func (p *plan) apply(l, r value.Vector, w diagnostics.Warner, attrs bool) (value.Value, error) {
	m, k := l.Len(), r.Len()
	if m == 0 || k == 0 {
		return value.NewVectorOfKind(p.result, 0), nil
	}
	n := m
	if k > n {
		n = k
	}
	var out *value.Attributes
	if attrs {
		var err error
		if out, err = resultAttributes(p.op, l, r, n); err != nil {
			return nil, err
		}
	}
	if n%m != 0 || n%k != 0 {
		warn(w, diagnostics.WarnW002, diagnostics.MsgRecycle)
	}
	a, err := coerce.Cast(l, p.arg, w)
	if err != nil {
		return nil, err
	}
	b, err := coerce.Cast(r, p.arg, w)
	if err != nil {
		return nil, err
	}
	dst := p.destination(a, b, n)
	var f flags
	complete := p.kern(a, b, dst, &f)
	dst.(completer).SetComplete(complete)
	dst.SetAttrs(out)
	if f.overflow {
		warn(w, diagnostics.WarnW004, diagnostics.MsgIntegerOverflow)
	}
	validateResult(dst)
	return dst, nil
}

// destination reuses the storage of a temporary operand of the result kind and length,
// otherwise it allocates.
func (p *plan) destination(a, b value.Vector, n int) value.Vector {
	for _, c := range []value.Vector{a, b} {
		if c.Kind() == p.result && c.Len() == n && value.IsTemporary(c) {
			return c
		}
	}
	return value.NewVectorOfKind(p.result, n)
}

func warn(w diagnostics.Warner, code diagnostics.WarningCode, msg string) {
	if w != nil {
		w.Warn(diagnostics.NewWarning(code, "%s", msg))
	}
}

// validateResult checks the completeness flag of an operator result in debug mode.
func validateResult(v value.Vector) {
	if value.DebugValidation() && !v.Validate() {
		panic(diagnostics.Internalf("operator result of kind %s marked complete contains NA", v.Kind()))
	}
}

// Binary evaluates l op r on the generic path: operand kinds are resolved on every
// call.
func Binary(op Op, l, r value.Value, w diagnostics.Warner) (value.Value, error) {
	var g generic
	return g.execute(op, l, r, w)
}

// generic keeps the plan of the last operand kinds it saw and replaces it when they
// change.
type generic struct {
	plan *plan
}

func (g *generic) execute(op Op, l, r value.Value, w diagnostics.Warner) (value.Value, error) {
	if op == OpMatMul {
		return MatMul(l, r)
	}
	if v, done, err := special(op, l, r, w); done {
		return v, err
	}
	lv, rv := l.(value.Vector), r.(value.Vector)
	if g.plan == nil || g.plan.left != lv.Kind() || g.plan.right != rv.Kind() {
		p, err := resolve(op, lv.Kind(), rv.Kind())
		if err != nil {
			return nil, err
		}
		g.plan = p
	}
	return g.plan.apply(lv, rv, w, true)
}

func isAtomicVector(v value.Value) bool {
	_, ok := v.(value.Vector)
	return ok && v.Kind().IsAtomic()
}

// special handles the operands the vector plans do not: factors, NULL, empty vectors
// and non-atomic values. When done is false both operands are atomic vectors.
func special(op Op, l, r value.Value, w diagnostics.Warner) (v value.Value, done bool, err error) {
	lf, rf := value.IsFactor(l), value.IsFactor(r)
	if lf || rf {
		if op == OpEq || op == OpNe {
			v, err = Binary(op, factorLabels(l), factorLabels(r), w)
			return v, true, err
		}
		if w != nil {
			w.Warn(diagnostics.NewWarning(diagnostics.WarnW003, diagnostics.MsgNotMeaningfulFctr, op))
		}
		n := value.Length(l)
		if rn := value.Length(r); rn > n {
			n = rn
		}
		return value.NewNAVector(value.KindLogical, n), true, nil
	}

	lnull, rnull := value.IsNull(l), value.IsNull(r)
	la, ra := isAtomicVector(l), isAtomicVector(r)
	switch {
	case op.IsArithmetic():
		switch {
		case lnull && rnull:
			return value.NewDoubles(), true, nil
		case lnull && ra && r.Kind().IsNumeric():
			return emptyLike(r), true, nil
		case rnull && la && l.Kind().IsNumeric():
			return emptyLike(l), true, nil
		case !la || !ra:
			return nil, true, diagnostics.Errorf(diagnostics.ErrR007, msgNonNumeric)
		}
	case op.IsComparison():
		if (lnull || la) && (rnull || ra) {
			if lnull || rnull || value.Length(l) == 0 || value.Length(r) == 0 {
				return value.NewLogicals(), true, nil
			}
			return nil, false, nil
		}
		return nil, true, comparisonTypeError(op)
	case op.IsLogic():
		if l.Kind() == value.KindCharacter || r.Kind() == value.KindCharacter {
			return nil, true, diagnostics.Errorf(diagnostics.ErrR007, msgLogicTypes)
		}
		if (lnull || la) && (rnull || ra) {
			if lnull || rnull || value.Length(l) == 0 || value.Length(r) == 0 {
				return value.NewLogicals(), true, nil
			}
			return nil, false, nil
		}
		return nil, true, diagnostics.Errorf(diagnostics.ErrR007, msgLogicTypes)
	}
	return nil, false, nil
}

func emptyLike(v value.Value) value.Value {
	if v.Kind() == value.KindComplex {
		return value.NewComplexes()
	}
	return value.NewDoubles()
}

// factorLabels turns a factor into the character vector of its labels; other values
// are returned unchanged.
func factorLabels(v value.Value) value.Value {
	if !value.IsFactor(v) {
		return v
	}
	codes := v.(*value.IntegerVector)
	levels, _ := value.GetAttr(v, value.AttrLevels).(*value.CharacterVector)
	out := make([]string, codes.Len())
	for i, c := range codes.Data() {
		if c == value.NAInteger || levels == nil || int(c) < 1 || int(c) > levels.Len() {
			out[i] = value.NAString
			continue
		}
		out[i] = levels.At(int(c) - 1)
	}
	res := value.NewStrings(out...)
	if names := value.Names(v); names != nil {
		_ = value.SetAttr(res, value.AttrNames, names)
	}
	return res
}

// resultAttributes computes the attributes of an n-element result. dim and dimnames
// come from an operand of length n; names from the first such operand that has them.
// Other attributes are kept by arithmetic only: from both operands (left wins) when
// their lengths agree, otherwise from the longer one.
func resultAttributes(op Op, l, r value.Vector, n int) (*value.Attributes, error) {
	la, ra := l.Attrs(), r.Attrs()
	if la == nil && ra == nil {
		return nil, nil
	}
	ld, rd := value.Dim(l), value.Dim(r)
	if ld != nil && rd != nil && !sameDims(ld, rd) {
		return nil, diagnostics.Errorf(diagnostics.ErrR010, msgNonConformable)
	}
	out := value.NewAttributes()
	if names := value.Names(l); names != nil && l.Len() == n {
		out.Put(value.AttrNames, names)
	} else if names := value.Names(r); names != nil && r.Len() == n {
		out.Put(value.AttrNames, names)
	}
	var shape value.Vector
	if ld != nil && l.Len() == n {
		shape = l
	} else if rd != nil && r.Len() == n {
		shape = r
	}
	if shape != nil {
		out.Put(value.AttrDim, value.Dim(shape))
		if dn := value.GetAttr(shape, value.AttrDimNames); !value.IsNull(dn) {
			out.Put(value.AttrDimNames, dn)
		}
	}
	if op.IsArithmetic() {
		switch {
		case l.Len() == r.Len():
			copyPlain(out, ra)
			copyPlain(out, la)
		case l.Len() > r.Len():
			copyPlain(out, la)
		default:
			copyPlain(out, ra)
		}
	}
	if out.Len() == 0 {
		return nil, nil
	}
	for _, a := range out.Items() {
		value.MarkShared(a.Value)
	}
	return out, nil
}

func copyPlain(dst, src *value.Attributes) {
	for _, a := range src.Items() {
		if !value.IsStructural(a.Name) {
			dst.Put(a.Name, a.Value)
		}
	}
}

func sameDims(a, b *value.IntegerVector) bool {
	if a.Len() != b.Len() {
		return false
	}
	for i, d := range a.Data() {
		if b.At(i) != d {
			return false
		}
	}
	return true
}
