// Package coerce converts vectors between kinds following the implicit coercion
// hierarchy raw < logical < integer < double < complex < character < list < expression.
package coerce

import (
	"math"

	"github.com/funvibe/rcore/internal/diagnostics"
	"github.com/funvibe/rcore/internal/value"
)

var precedence = [value.NumKinds]int{
	value.KindNull:       -1,
	value.KindRaw:        0,
	value.KindLogical:    1,
	value.KindInteger:    2,
	value.KindDouble:     3,
	value.KindComplex:    4,
	value.KindCharacter:  5,
	value.KindList:       6,
	value.KindExpression: 7,
}

// Precedence returns the rank of k in the coercion hierarchy; non-vector kinds rank
// below every vector kind.
func Precedence(k value.Kind) int {
	if !k.IsVector() {
		return -1
	}
	return precedence[k]
}

// MaxPrecedence returns whichever of a and b ranks higher.
func MaxPrecedence(a, b value.Kind) value.Kind {
	if Precedence(b) > Precedence(a) {
		return b
	}
	return a
}

// warnings deduplicates the warnings of one cast: each message is reported once.
type warnings struct {
	w    diagnostics.Warner
	seen map[string]bool
}

func (ws *warnings) add(code diagnostics.WarningCode, msg string) {
	if ws.w == nil || ws.seen[msg] {
		return
	}
	if ws.seen == nil {
		ws.seen = map[string]bool{}
	}
	ws.seen[msg] = true
	ws.w.Warn(diagnostics.NewWarning(code, "%s", msg))
}

// Cast converts v to kind k. Same-kind input is returned unchanged; otherwise the
// result is a fresh vector carrying a copy of v's attributes. Lossy conversions
// report through w (which may be nil).
func Cast(v value.Vector, k value.Kind, w diagnostics.Warner) (value.Vector, error) {
	if v.Kind() == k {
		return v, nil
	}
	ws := &warnings{w: w}
	var out value.Vector
	var err error
	switch k {
	case value.KindLogical:
		out, err = toLogical(v, ws)
	case value.KindInteger:
		out, err = toInteger(v, ws)
	case value.KindDouble:
		out, err = toDouble(v, ws)
	case value.KindComplex:
		out, err = toComplex(v, ws)
	case value.KindCharacter:
		out, err = toCharacter(v)
	case value.KindRaw:
		out, err = toRaw(v, ws)
	case value.KindList:
		out = toList(v)
	case value.KindExpression:
		out = toExpression(v)
	default:
		return nil, diagnostics.Errorf(diagnostics.ErrR007, "cannot coerce type '%s' to vector of type '%s'", v.Kind(), k)
	}
	if err != nil {
		return nil, err
	}
	if k != value.KindList {
		out.SetAttrs(v.Attrs().Copy())
	}
	return out, nil
}

// CastToVector turns a language-level value into a vector: vectors are returned as
// they are, NULL becomes an empty list, pairlists become lists and symbols become
// character scalars.
func CastToVector(v value.Value) (value.Vector, error) {
	switch x := v.(type) {
	case value.Vector:
		return x, nil
	case *value.Pairlist:
		return x.ToList(), nil
	case *value.Symbol:
		return value.NewCharacterScalar(x.Name), nil
	}
	if value.IsNull(v) {
		return value.NewList(nil), nil
	}
	return nil, diagnostics.Errorf(diagnostics.ErrR007, "cannot coerce type '%s' to vector of type 'any'", v.Kind())
}

func listElementError(k value.Kind) error {
	return diagnostics.Errorf(diagnostics.ErrR007, "(list) object cannot be coerced to type '%s'", k)
}

// listScalars returns the elements of a list or expression vector as length-1 atomic
// vectors, failing if any element is not one.
func listScalars(v value.Vector, k value.Kind) ([]value.Vector, bool, error) {
	var elems []value.Value
	switch l := v.(type) {
	case *value.List:
		elems = l.Data()
	case *value.ExpressionVector:
		elems = l.Data()
	default:
		return nil, false, nil
	}
	out := make([]value.Vector, len(elems))
	for i, e := range elems {
		ev, ok := e.(value.Vector)
		if !ok || !ev.Kind().IsAtomic() || ev.Len() != 1 {
			return nil, true, listElementError(k)
		}
		out[i] = ev
	}
	return out, true, nil
}

func toLogical(v value.Vector, ws *warnings) (value.Vector, error) {
	n := v.Len()
	out := make([]value.Logical, n)
	complete := true
	switch x := v.(type) {
	case *value.IntegerVector:
		for i, e := range x.Data() {
			switch {
			case e == value.NAInteger:
				out[i] = value.NALogical
			default:
				out[i] = value.LogicalOf(e != 0)
			}
		}
	case *value.DoubleVector:
		for i, e := range x.Data() {
			out[i] = doubleToLogical(e)
		}
	case *value.ComplexVector:
		for i, e := range x.Data() {
			if value.IsNaNOrNAComplex(e) {
				out[i] = value.NALogical
				continue
			}
			out[i] = value.LogicalOf(e != 0)
		}
	case *value.CharacterVector:
		for i, e := range x.Data() {
			out[i] = stringToLogical(e, ws)
		}
	case *value.RawVector:
		for i, e := range x.Data() {
			out[i] = value.LogicalOf(e != 0)
		}
	default:
		elems, ok, err := listScalars(v, value.KindLogical)
		if !ok || err != nil {
			return nil, orTypeError(err, v, value.KindLogical)
		}
		for i, e := range elems {
			c, err := Cast(e, value.KindLogical, ws.w)
			if err != nil {
				return nil, err
			}
			out[i] = c.(*value.LogicalVector).At(0)
		}
	}
	for _, e := range out {
		if e == value.NALogical {
			complete = false
			break
		}
	}
	return value.NewLogical(out, complete), nil
}

func doubleToLogical(e float64) value.Logical {
	if math.IsNaN(e) {
		return value.NALogical
	}
	return value.LogicalOf(e != 0)
}

func toInteger(v value.Vector, ws *warnings) (value.Vector, error) {
	n := v.Len()
	out := make([]int32, n)
	switch x := v.(type) {
	case *value.IntegerVector:
		copy(out, x.Data())
	case *value.LogicalVector:
		for i, e := range x.Data() {
			if e == value.NALogical {
				out[i] = value.NAInteger
			} else {
				out[i] = int32(e)
			}
		}
	case *value.DoubleVector:
		for i, e := range x.Data() {
			out[i] = doubleToInteger(e, ws)
		}
	case *value.ComplexVector:
		for i, e := range x.Data() {
			if value.IsNAComplex(e) {
				out[i] = value.NAInteger
				continue
			}
			if imag(e) != 0 {
				ws.add(diagnostics.WarnW005, diagnostics.MsgImaginaryDropped)
			}
			out[i] = doubleToInteger(real(e), ws)
		}
	case *value.CharacterVector:
		for i, e := range x.Data() {
			d := stringToDouble(e, ws)
			if value.IsNADouble(d) {
				out[i] = value.NAInteger
				continue
			}
			out[i] = doubleToInteger(d, ws)
		}
	case *value.RawVector:
		for i, e := range x.Data() {
			out[i] = int32(e)
		}
	default:
		elems, ok, err := listScalars(v, value.KindInteger)
		if !ok || err != nil {
			return nil, orTypeError(err, v, value.KindInteger)
		}
		for i, e := range elems {
			c, err := Cast(e, value.KindInteger, ws.w)
			if err != nil {
				return nil, err
			}
			out[i] = c.(*value.IntegerVector).At(0)
		}
	}
	return value.NewIntegers(out...), nil
}

// doubleToInteger truncates toward zero. NaN and values outside the int32 range
// (NA itself excluded) give NA with a warning.
func doubleToInteger(e float64, ws *warnings) int32 {
	switch {
	case value.IsNADouble(e):
		return value.NAInteger
	case math.IsNaN(e):
		ws.add(diagnostics.WarnW001, diagnostics.MsgNAIntroduced)
		return value.NAInteger
	case e >= math.MaxInt32+1 || e <= math.MinInt32:
		ws.add(diagnostics.WarnW001, diagnostics.MsgNAIntegerRange)
		return value.NAInteger
	}
	return int32(e)
}

func toDouble(v value.Vector, ws *warnings) (value.Vector, error) {
	n := v.Len()
	out := make([]float64, n)
	switch x := v.(type) {
	case *value.DoubleVector:
		copy(out, x.Data())
	case *value.LogicalVector:
		for i, e := range x.Data() {
			if e == value.NALogical {
				out[i] = value.NADouble
			} else {
				out[i] = float64(e)
			}
		}
	case *value.IntegerVector:
		for i, e := range x.Data() {
			if e == value.NAInteger {
				out[i] = value.NADouble
			} else {
				out[i] = float64(e)
			}
		}
	case *value.ComplexVector:
		for i, e := range x.Data() {
			if value.IsNAComplex(e) {
				out[i] = value.NADouble
				continue
			}
			if imag(e) != 0 {
				ws.add(diagnostics.WarnW005, diagnostics.MsgImaginaryDropped)
			}
			out[i] = real(e)
		}
	case *value.CharacterVector:
		for i, e := range x.Data() {
			out[i] = stringToDouble(e, ws)
		}
	case *value.RawVector:
		for i, e := range x.Data() {
			out[i] = float64(e)
		}
	default:
		elems, ok, err := listScalars(v, value.KindDouble)
		if !ok || err != nil {
			return nil, orTypeError(err, v, value.KindDouble)
		}
		for i, e := range elems {
			c, err := Cast(e, value.KindDouble, ws.w)
			if err != nil {
				return nil, err
			}
			out[i] = c.(*value.DoubleVector).At(0)
		}
	}
	return value.NewDoubles(out...), nil
}

func toComplex(v value.Vector, ws *warnings) (value.Vector, error) {
	switch x := v.(type) {
	case *value.CharacterVector:
		out := make([]complex128, x.Len())
		for i, e := range x.Data() {
			out[i] = stringToComplex(e, ws)
		}
		return value.NewComplexes(out...), nil
	case *value.List, *value.ExpressionVector:
		elems, _, err := listScalars(v, value.KindComplex)
		if err != nil {
			return nil, err
		}
		out := make([]complex128, len(elems))
		for i, e := range elems {
			c, err := Cast(e, value.KindComplex, ws.w)
			if err != nil {
				return nil, err
			}
			out[i] = c.(*value.ComplexVector).At(0)
		}
		return value.NewComplexes(out...), nil
	}
	d, err := toDouble(v, ws)
	if err != nil {
		return nil, err
	}
	data := d.(*value.DoubleVector).Data()
	out := make([]complex128, len(data))
	for i, e := range data {
		if value.IsNADouble(e) {
			out[i] = value.NAComplex
		} else {
			out[i] = complex(e, 0)
		}
	}
	return value.NewComplexes(out...), nil
}

func toCharacter(v value.Vector) (value.Vector, error) {
	n := v.Len()
	out := make([]string, n)
	switch x := v.(type) {
	case *value.LogicalVector:
		for i, e := range x.Data() {
			out[i] = LogicalToString(e)
		}
	case *value.IntegerVector:
		for i, e := range x.Data() {
			out[i] = IntegerToString(e)
		}
	case *value.DoubleVector:
		for i, e := range x.Data() {
			out[i] = DoubleToString(e)
		}
	case *value.ComplexVector:
		for i, e := range x.Data() {
			out[i] = ComplexToString(e)
		}
	case *value.RawVector:
		for i, e := range x.Data() {
			out[i] = RawToString(e)
		}
	default:
		elems, ok, err := listScalars(v, value.KindCharacter)
		if !ok || err != nil {
			return nil, orTypeError(err, v, value.KindCharacter)
		}
		for i, e := range elems {
			c, err := Cast(e, value.KindCharacter, nil)
			if err != nil {
				return nil, err
			}
			out[i] = c.(*value.CharacterVector).At(0)
		}
	}
	return value.NewStrings(out...), nil
}

func toRaw(v value.Vector, ws *warnings) (value.Vector, error) {
	iv, err := toInteger(v, &warnings{})
	if err != nil {
		return nil, err
	}
	data := iv.(*value.IntegerVector).Data()
	out := make([]byte, len(data))
	for i, e := range data {
		if e == value.NAInteger || e < 0 || e > 255 {
			ws.add(diagnostics.WarnW001, diagnostics.MsgRawOutOfRange)
			continue
		}
		out[i] = byte(e)
	}
	return value.NewRaw(out), nil
}

func toList(v value.Vector) value.Vector {
	if e, ok := v.(*value.ExpressionVector); ok {
		data := make([]value.Value, e.Len())
		copy(data, e.Data())
		l := value.NewList(data)
		l.SetAttrs(e.Attrs().Copy())
		return l
	}
	n := v.Len()
	elems := make([]value.Value, n)
	for i := 0; i < n; i++ {
		elems[i] = v.Elem(i)
	}
	l := value.NewList(elems)
	if names := value.Names(v); names != nil {
		_ = value.SetAttr(l, value.AttrNames, names)
	}
	return l
}

func toExpression(v value.Vector) value.Vector {
	n := v.Len()
	elems := make([]value.Value, n)
	if l, ok := v.(*value.List); ok {
		copy(elems, l.Data())
	} else {
		for i := 0; i < n; i++ {
			elems[i] = v.Elem(i)
		}
	}
	return value.NewExpression(elems)
}

func orTypeError(err error, v value.Vector, k value.Kind) error {
	if err != nil {
		return err
	}
	return diagnostics.Errorf(diagnostics.ErrR007, "cannot coerce type '%s' to vector of type '%s'", v.Kind(), k)
}
