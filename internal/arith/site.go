package arith

import (
	"github.com/funvibe/rcore/internal/coerce"
	"github.com/funvibe/rcore/internal/diagnostics"
	"github.com/funvibe/rcore/internal/value"
)

// SiteState is the specialization state of one operator occurrence. Transitions only
// go forward: Empty, then Specialized, then Generic.
type SiteState uint8

const (
	SiteEmpty SiteState = iota
	SiteSpecialized
	SiteGeneric
)

func (s SiteState) String() string {
	switch s {
	case SiteEmpty:
		return "empty"
	case SiteSpecialized:
		return "specialized"
	default:
		return "generic"
	}
}

// Shape classifies an operand for specialization.
type Shape uint8

const (
	// ShapeScalar is a length-1 vector without attributes.
	ShapeScalar Shape = iota
	// ShapePlain is a vector without attributes.
	ShapePlain
	ShapeAttributed
)

// Signature is what a specialized site was built for.
type Signature struct {
	Left, Right           value.Kind
	LeftShape, RightShape Shape
}

func shapeOf(v value.Vector) Shape {
	switch {
	case v.Attrs() != nil:
		return ShapeAttributed
	case v.Len() == 1:
		return ShapeScalar
	default:
		return ShapePlain
	}
}

// plainAtomic returns v as a vector when it may take a specialized path: an atomic
// vector that is not a factor.
func plainAtomic(v value.Value) (value.Vector, bool) {
	vec, ok := v.(value.Vector)
	if !ok || !vec.Kind().IsAtomic() || value.IsFactor(vec) {
		return nil, false
	}
	return vec, true
}

type binaryFast func(l, r value.Vector, w diagnostics.Warner) (value.Value, error)

// BinarySite caches the dispatch decision of one binary operator occurrence. It is not
// safe for concurrent use; each evaluation context owns its own sites.
type BinarySite struct {
	Op Op

	state   SiteState
	sig     Signature
	fast    binaryFast
	generic generic
}

func NewBinarySite(op Op) *BinarySite {
	return &BinarySite{Op: op}
}

func (s *BinarySite) State() SiteState { return s.state }

// Signature returns the signature the site is specialized for; meaningful only in the
// Specialized state.
func (s *BinarySite) Signature() Signature { return s.sig }

// Execute evaluates l op r, specializing on the first call and falling back to the
// generic path for good once the operands stop matching.
func (s *BinarySite) Execute(l, r value.Value, w diagnostics.Warner) (value.Value, error) {
	switch s.state {
	case SiteSpecialized:
		if lv, rv, sig, ok := s.signature(l, r); ok && sig == s.sig {
			return s.fast(lv, rv, w)
		}
		s.toGeneric()
	case SiteEmpty:
		lv, rv, sig, ok := s.signature(l, r)
		if !ok {
			s.toGeneric()
			break
		}
		p, err := resolve(s.Op, sig.Left, sig.Right)
		if err != nil {
			return nil, err
		}
		s.sig = sig
		s.fast = specialize(p, sig)
		s.state = SiteSpecialized
		return s.fast(lv, rv, w)
	}
	return s.generic.execute(s.Op, l, r, w)
}

func (s *BinarySite) signature(l, r value.Value) (lv, rv value.Vector, sig Signature, ok bool) {
	if s.Op == OpMatMul {
		return nil, nil, sig, false
	}
	if lv, ok = plainAtomic(l); !ok {
		return
	}
	if rv, ok = plainAtomic(r); !ok {
		return
	}
	sig = Signature{Left: lv.Kind(), Right: rv.Kind(), LeftShape: shapeOf(lv), RightShape: shapeOf(rv)}
	return lv, rv, sig, true
}

func (s *BinarySite) toGeneric() {
	s.state = SiteGeneric
	s.fast = nil
}

// specialize builds the fast path for a signature. Scalar pairs skip recycling and
// attribute handling; plain operands skip attribute handling.
func specialize(p *plan, sig Signature) binaryFast {
	switch {
	case sig.LeftShape == ShapeScalar && sig.RightShape == ShapeScalar:
		return func(l, r value.Vector, w diagnostics.Warner) (value.Value, error) {
			return p.scalar(l, r, w)
		}
	case sig.LeftShape != ShapeAttributed && sig.RightShape != ShapeAttributed:
		return func(l, r value.Vector, w diagnostics.Warner) (value.Value, error) {
			return p.apply(l, r, w, false)
		}
	default:
		return func(l, r value.Vector, w diagnostics.Warner) (value.Value, error) {
			return p.apply(l, r, w, true)
		}
	}
}

// scalar applies the plan to two attribute-free length-1 operands.
func (p *plan) scalar(l, r value.Vector, w diagnostics.Warner) (value.Value, error) {
	a, err := coerce.Cast(l, p.arg, w)
	if err != nil {
		return nil, err
	}
	b, err := coerce.Cast(r, p.arg, w)
	if err != nil {
		return nil, err
	}
	dst := value.NewVectorOfKind(p.result, 1)
	var f flags
	complete := p.kern(a, b, dst, &f)
	dst.(completer).SetComplete(complete)
	if f.overflow {
		warn(w, diagnostics.WarnW004, diagnostics.MsgIntegerOverflow)
	}
	validateResult(dst)
	return dst, nil
}

type unaryFast func(v value.Vector) (value.Value, error)

// UnarySite is the prefix-operator counterpart of BinarySite.
type UnarySite struct {
	Op UnaryOp

	state   SiteState
	kind    value.Kind
	shape   Shape
	fast    unaryFast
	generic unaryGeneric
}

func NewUnarySite(op UnaryOp) *UnarySite {
	return &UnarySite{Op: op}
}

func (s *UnarySite) State() SiteState { return s.state }

func (s *UnarySite) Execute(v value.Value, w diagnostics.Warner) (value.Value, error) {
	switch s.state {
	case SiteSpecialized:
		if vec, ok := plainAtomic(v); ok && vec.Kind() == s.kind && shapeOf(vec) == s.shape {
			return s.fast(vec)
		}
		s.state, s.fast = SiteGeneric, nil
	case SiteEmpty:
		vec, ok := plainAtomic(v)
		if !ok {
			s.state = SiteGeneric
			break
		}
		p, err := resolveUnary(s.Op, vec.Kind())
		if err != nil {
			return nil, err
		}
		s.kind, s.shape = vec.Kind(), shapeOf(vec)
		s.fast = p.apply
		s.state = SiteSpecialized
		return s.fast(vec)
	}
	return s.generic.execute(s.Op, v, w)
}
