package value

import "github.com/funvibe/rcore/internal/diagnostics"

func NewLogicals(xs ...Logical) *LogicalVector {
	return NewLogical(xs, scanComplete(xs, IsNALogical))
}

func NewIntegers(xs ...int32) *IntegerVector {
	return NewInteger(xs, scanComplete(xs, IsNAInteger))
}

func NewDoubles(xs ...float64) *DoubleVector {
	return NewDouble(xs, scanComplete(xs, IsNADouble))
}

func NewComplexes(xs ...complex128) *ComplexVector {
	return NewComplex(xs, scanComplete(xs, IsNAComplex))
}

// NewVectorOfKind allocates a zero-filled vector of the given kind and length.
func NewVectorOfKind(k Kind, n int) Vector {
	switch k {
	case KindLogical:
		return NewLogical(make([]Logical, n), true)
	case KindInteger:
		return NewInteger(make([]int32, n), true)
	case KindDouble:
		return NewDouble(make([]float64, n), true)
	case KindComplex:
		return NewComplex(make([]complex128, n), true)
	case KindCharacter:
		return NewCharacter(make([]string, n), true)
	case KindRaw:
		return NewRaw(make([]byte, n))
	case KindList:
		elems := make([]Value, n)
		for i := range elems {
			elems[i] = Null
		}
		return NewList(elems)
	case KindExpression:
		elems := make([]Value, n)
		for i := range elems {
			elems[i] = Null
		}
		return NewExpression(elems)
	}
	panic(diagnostics.Internalf("cannot allocate a vector of kind %s", k))
}

// NewNAVector allocates a vector of the given kind filled with NA.
func NewNAVector(k Kind, n int) Vector {
	switch k {
	case KindLogical:
		d := make([]Logical, n)
		for i := range d {
			d[i] = NALogical
		}
		return NewLogical(d, n == 0)
	case KindInteger:
		d := make([]int32, n)
		for i := range d {
			d[i] = NAInteger
		}
		return NewInteger(d, n == 0)
	case KindDouble:
		d := make([]float64, n)
		for i := range d {
			d[i] = NADouble
		}
		return NewDouble(d, n == 0)
	case KindComplex:
		d := make([]complex128, n)
		for i := range d {
			d[i] = NAComplex
		}
		return NewComplex(d, n == 0)
	case KindCharacter:
		d := make([]string, n)
		for i := range d {
			d[i] = NAString
		}
		return NewCharacter(d, n == 0)
	}
	return NewVectorOfKind(k, n)
}

func Bool(b bool) *LogicalVector { return NewLogicalScalar(LogicalOf(b)) }

func Str(s string) *CharacterVector { return NewCharacterScalar(s) }

func Int(i int) *IntegerVector { return NewIntegerScalar(int32(i)) }

func Dbl(x float64) *DoubleVector { return NewDoubleScalar(x) }

// CopyElement copies src[si] into dst[di]; both vectors must have the same kind and
// dst must be prepared for mutation.
func CopyElement(dst Vector, di int, src Vector, si int) {
	switch d := dst.(type) {
	case *LogicalVector:
		d.Set(di, src.(*LogicalVector).data[si])
	case *IntegerVector:
		d.Set(di, src.(*IntegerVector).data[si])
	case *DoubleVector:
		d.Set(di, src.(*DoubleVector).data[si])
	case *ComplexVector:
		d.Set(di, src.(*ComplexVector).data[si])
	case *CharacterVector:
		d.Set(di, src.(*CharacterVector).data[si])
	case *RawVector:
		d.Set(di, src.(*RawVector).data[si])
	case *List:
		d.Set(di, src.(*List).data[si])
	case *ExpressionVector:
		mutationCheck(d.share)
		d.data[di] = src.(*ExpressionVector).data[si]
	default:
		panic(diagnostics.Internalf("CopyElement on %s", dst.Kind()))
	}
}

// SetNA stores the NA of dst's kind at index i (NULL for lists, 0 for raw).
func SetNA(dst Vector, i int) {
	switch d := dst.(type) {
	case *LogicalVector:
		d.Set(i, NALogical)
	case *IntegerVector:
		d.Set(i, NAInteger)
	case *DoubleVector:
		d.Set(i, NADouble)
	case *ComplexVector:
		d.Set(i, NAComplex)
	case *CharacterVector:
		d.Set(i, NAString)
	case *RawVector:
		d.Set(i, 0)
	case *List:
		d.Set(i, Null)
	}
}

// Subset selects elements by zero-based index; a negative index yields NA.
// Names are carried along; other attributes are dropped.
func Subset(v Vector, idx []int) Vector {
	out := NewVectorOfKind(v.Kind(), len(idx))
	for i, j := range idx {
		if j < 0 || j >= v.Len() {
			SetNA(out, i)
			continue
		}
		CopyElement(out, i, v, j)
	}
	if names := Names(v); names != nil {
		nn := make([]string, len(idx))
		for i, j := range idx {
			if j < 0 || j >= names.Len() {
				nn[i] = NAString
			} else {
				nn[i] = names.data[j]
			}
		}
		_ = SetAttr(out, AttrNames, NewStrings(nn...))
	}
	return out
}
