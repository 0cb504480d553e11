package arith

import (
	"cmp"
	"math"
	"math/cmplx"

	"github.com/funvibe/rcore/internal/value"
)

// flags collects conditions raised while mapping that are reported once per operation.
type flags struct {
	overflow bool
}

// kernel fills dst, whose length is the result length, from a and b, which are already
// of the argument kind. It reports whether dst is free of NA.
type kernel func(a, b, dst value.Vector, f *flags) bool

// dispatch is indexed by operator and argument kind; nil entries are unsupported.
var dispatch [numOps][value.NumKinds]kernel

func init() {
	for _, op := range []Op{OpAdd, OpSub, OpMul, OpDiv, OpPow, OpMod, OpIntDiv} {
		dispatch[op][value.KindInteger] = intArithKernel(op)
		dispatch[op][value.KindDouble] = doubleArithKernel(op)
		if op != OpMod && op != OpIntDiv {
			dispatch[op][value.KindComplex] = complexArithKernel(op)
		}
	}
	for _, op := range []Op{OpEq, OpNe, OpLt, OpGt, OpLe, OpGe} {
		dispatch[op][value.KindLogical] = compareKernel(op, logicals, value.IsNALogical)
		dispatch[op][value.KindInteger] = compareKernel(op, ints, value.IsNAInteger)
		dispatch[op][value.KindDouble] = compareKernel(op, doubles, value.IsNaNOrNA)
		dispatch[op][value.KindCharacter] = compareKernel(op, strs, value.IsNAString)
		dispatch[op][value.KindRaw] = compareKernel(op, raws, func(byte) bool { return false })
	}
	dispatch[OpEq][value.KindComplex] = complexEqualKernel(true)
	dispatch[OpNe][value.KindComplex] = complexEqualKernel(false)
	for _, op := range []Op{OpAnd, OpOr} {
		dispatch[op][value.KindLogical] = logicKernel(op)
		dispatch[op][value.KindRaw] = rawLogicKernel(op)
	}
}

func logicals(v value.Vector) []value.Logical { return v.(*value.LogicalVector).Data() }
func ints(v value.Vector) []int32             { return v.(*value.IntegerVector).Data() }
func doubles(v value.Vector) []float64        { return v.(*value.DoubleVector).Data() }
func complexes(v value.Vector) []complex128   { return v.(*value.ComplexVector).Data() }
func strs(v value.Vector) []string            { return v.(*value.CharacterVector).Data() }
func raws(v value.Vector) []byte              { return v.(*value.RawVector).Data() }

// mapRecycled computes out[i] = f(a[i % len(a)], b[i % len(b)]). out may alias a or b
// when it has the same length.
func mapRecycled[A, R any](a, b []A, out []R, f func(x, y A) R, isNA func(R) bool) bool {
	complete := true
	m, k := len(a), len(b)
	if m == 1 && k == 1 && len(out) == 1 {
		out[0] = f(a[0], b[0])
		return !isNA(out[0])
	}
	ia, ib := 0, 0
	for i := range out {
		r := f(a[ia], b[ib])
		out[i] = r
		if complete && isNA(r) {
			complete = false
		}
		if ia++; ia == m {
			ia = 0
		}
		if ib++; ib == k {
			ib = 0
		}
	}
	return complete
}

// Integer arithmetic. Results outside the int32 range (and the NA pattern itself) are
// overflow.

func checkedInt(r int64, f *flags) int32 {
	if r > math.MaxInt32 || r <= math.MinInt32 {
		f.overflow = true
		return value.NAInteger
	}
	return int32(r)
}

func intArithFn(op Op, f *flags) func(x, y int32) int32 {
	switch op {
	case OpAdd:
		return func(x, y int32) int32 {
			if x == value.NAInteger || y == value.NAInteger {
				return value.NAInteger
			}
			return checkedInt(int64(x)+int64(y), f)
		}
	case OpSub:
		return func(x, y int32) int32 {
			if x == value.NAInteger || y == value.NAInteger {
				return value.NAInteger
			}
			return checkedInt(int64(x)-int64(y), f)
		}
	case OpMul:
		return func(x, y int32) int32 {
			if x == value.NAInteger || y == value.NAInteger {
				return value.NAInteger
			}
			return checkedInt(int64(x)*int64(y), f)
		}
	case OpMod:
		return func(x, y int32) int32 {
			if x == value.NAInteger || y == value.NAInteger || y == 0 {
				return value.NAInteger
			}
			r := x % y
			if r != 0 && (r < 0) != (y < 0) {
				r += y
			}
			return r
		}
	case OpIntDiv:
		return func(x, y int32) int32 {
			if x == value.NAInteger || y == value.NAInteger || y == 0 {
				return value.NAInteger
			}
			return int32(math.Floor(float64(x) / float64(y)))
		}
	}
	return nil
}

func intArithKernel(op Op) kernel {
	if op == OpDiv || op == OpPow {
		// integer division and power are computed in double
		return nil
	}
	return func(a, b, dst value.Vector, f *flags) bool {
		return mapRecycled(ints(a), ints(b), ints(dst), intArithFn(op, f), value.IsNAInteger)
	}
}

// Double arithmetic. NA wins over NaN so that NA + NaN stays NA.

func doubleArithFn(op Op) func(x, y float64) float64 {
	switch op {
	case OpAdd:
		return func(x, y float64) float64 {
			if value.IsNADouble(x) || value.IsNADouble(y) {
				return value.NADouble
			}
			return x + y
		}
	case OpSub:
		return func(x, y float64) float64 {
			if value.IsNADouble(x) || value.IsNADouble(y) {
				return value.NADouble
			}
			return x - y
		}
	case OpMul:
		return func(x, y float64) float64 {
			if value.IsNADouble(x) || value.IsNADouble(y) {
				return value.NADouble
			}
			return x * y
		}
	case OpDiv:
		return func(x, y float64) float64 {
			if value.IsNADouble(x) || value.IsNADouble(y) {
				return value.NADouble
			}
			return x / y
		}
	case OpPow:
		return Pow
	case OpMod:
		return func(x, y float64) float64 {
			if value.IsNADouble(x) || value.IsNADouble(y) {
				return value.NADouble
			}
			return fmod(x, y)
		}
	case OpIntDiv:
		return func(x, y float64) float64 {
			if value.IsNADouble(x) || value.IsNADouble(y) {
				return value.NADouble
			}
			return math.Floor(x / y)
		}
	}
	return nil
}

// Pow is x^y with 1^y == 1 and x^0 == 1 for every x and y, NA included.
func Pow(x, y float64) float64 {
	if x == 1 || y == 0 {
		return 1
	}
	if value.IsNADouble(x) || value.IsNADouble(y) {
		return value.NADouble
	}
	return math.Pow(x, y)
}

// fmod is the modulus with the sign of the divisor.
func fmod(x, y float64) float64 {
	if y == 0 {
		return math.NaN()
	}
	if math.IsInf(y, 0) && !math.IsInf(x, 0) && !math.IsNaN(x) {
		if x == 0 || (x > 0) == (y > 0) {
			return x
		}
		return y
	}
	return x - math.Floor(x/y)*y
}

func doubleArithKernel(op Op) kernel {
	fn := doubleArithFn(op)
	return func(a, b, dst value.Vector, _ *flags) bool {
		return mapRecycled(doubles(a), doubles(b), doubles(dst), fn, value.IsNADouble)
	}
}

func complexArithKernel(op Op) kernel {
	var fn func(x, y complex128) complex128
	switch op {
	case OpAdd:
		fn = func(x, y complex128) complex128 { return x + y }
	case OpSub:
		fn = func(x, y complex128) complex128 { return x - y }
	case OpMul:
		fn = func(x, y complex128) complex128 { return x * y }
	case OpDiv:
		fn = func(x, y complex128) complex128 { return x / y }
	case OpPow:
		fn = func(x, y complex128) complex128 {
			if x == 1 || y == 0 {
				return 1
			}
			return cmplx.Pow(x, y)
		}
	}
	wrapped := func(x, y complex128) complex128 {
		if value.IsNAComplex(x) || value.IsNAComplex(y) {
			if op == OpPow && (x == 1 || y == 0) {
				return 1
			}
			return value.NAComplex
		}
		return fn(x, y)
	}
	return func(a, b, dst value.Vector, _ *flags) bool {
		return mapRecycled(complexes(a), complexes(b), complexes(dst), wrapped, value.IsNAComplex)
	}
}

// Comparison.

func compareOrdered[T cmp.Ordered](op Op, x, y T) bool {
	switch op {
	case OpEq:
		return x == y
	case OpNe:
		return x != y
	case OpLt:
		return x < y
	case OpGt:
		return x > y
	case OpLe:
		return x <= y
	default:
		return x >= y
	}
}

func compareKernel[T cmp.Ordered](op Op, data func(value.Vector) []T, isNA func(T) bool) kernel {
	fn := func(x, y T) value.Logical {
		if isNA(x) || isNA(y) {
			return value.NALogical
		}
		return value.LogicalOf(compareOrdered(op, x, y))
	}
	return func(a, b, dst value.Vector, _ *flags) bool {
		return mapRecycled(data(a), data(b), logicals(dst), fn, value.IsNALogical)
	}
}

func complexEqualKernel(eq bool) kernel {
	fn := func(x, y complex128) value.Logical {
		if value.IsNaNOrNAComplex(x) || value.IsNaNOrNAComplex(y) {
			return value.NALogical
		}
		return value.LogicalOf((x == y) == eq)
	}
	return func(a, b, dst value.Vector, _ *flags) bool {
		return mapRecycled(complexes(a), complexes(b), logicals(dst), fn, value.IsNALogical)
	}
}

// Logic. FALSE & NA is FALSE and TRUE | NA is TRUE.

func logicKernel(op Op) kernel {
	var fn func(x, y value.Logical) value.Logical
	if op == OpAnd {
		fn = func(x, y value.Logical) value.Logical {
			switch {
			case x == value.False || y == value.False:
				return value.False
			case x == value.NALogical || y == value.NALogical:
				return value.NALogical
			}
			return value.True
		}
	} else {
		fn = func(x, y value.Logical) value.Logical {
			switch {
			case x == value.True || y == value.True:
				return value.True
			case x == value.NALogical || y == value.NALogical:
				return value.NALogical
			}
			return value.False
		}
	}
	return func(a, b, dst value.Vector, _ *flags) bool {
		return mapRecycled(logicals(a), logicals(b), logicals(dst), fn, value.IsNALogical)
	}
}

func rawLogicKernel(op Op) kernel {
	fn := func(x, y byte) byte { return x & y }
	if op == OpOr {
		fn = func(x, y byte) byte { return x | y }
	}
	return func(a, b, dst value.Vector, _ *flags) bool {
		mapRecycled(raws(a), raws(b), raws(dst), fn, func(byte) bool { return false })
		return true
	}
}
