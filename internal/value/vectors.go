package value

import (
	"sync/atomic"

	"github.com/funvibe/rcore/internal/diagnostics"
)

var debugValidate atomic.Bool

// SetDebugValidation turns on eager completeness validation: every vector built with
// complete=true is scanned, and a lie is reported as an internal error.
func SetDebugValidation(on bool) { debugValidate.Store(on) }

func DebugValidation() bool { return debugValidate.Load() }

func scanComplete[T any](data []T, isNA func(T) bool) bool {
	for _, x := range data {
		if isNA(x) {
			return false
		}
	}
	return true
}

func checkComplete[T any](data []T, complete bool, isNA func(T) bool) {
	if complete && debugValidate.Load() && !scanComplete(data, isNA) {
		panic(diagnostics.Internalf("vector marked complete contains NA"))
	}
}

// LogicalVector

type LogicalVector struct{ vector[Logical] }

func NewLogical(data []Logical, complete bool) *LogicalVector {
	checkComplete(data, complete, IsNALogical)
	return &LogicalVector{vector[Logical]{data: data, complete: complete}}
}

func NewLogicalScalar(x Logical) *LogicalVector {
	return NewLogical([]Logical{x}, x != NALogical)
}

func (v *LogicalVector) Kind() Kind        { return KindLogical }
func (v *LogicalVector) At(i int) Logical  { return v.data[i] }
func (v *LogicalVector) IsNA(i int) bool   { return v.data[i] == NALogical }
func (v *LogicalVector) Elem(i int) Vector { return NewLogicalScalar(v.data[i]) }

func (v *LogicalVector) Set(i int, x Logical) {
	mutationCheck(v.share)
	v.data[i] = x
	if x == NALogical {
		v.complete = false
	}
}

func (v *LogicalVector) Validate() bool {
	actual := scanComplete(v.data, IsNALogical)
	ok := !v.complete || actual
	v.complete = actual
	return ok
}

func (v *LogicalVector) Copy() Vector {
	return &LogicalVector{vector[Logical]{data: v.copyData(), attrs: v.copyAttrs(), complete: v.complete}}
}

func (v *LogicalVector) ShallowCopy() Vector {
	v.share = Shared
	return &LogicalVector{vector[Logical]{data: v.data, attrs: v.copyAttrs(), complete: v.complete, share: Shared}}
}

func (v *LogicalVector) Resize(n int) Vector {
	return &LogicalVector{vector[Logical]{data: resized(v.data, n, NALogical), attrs: v.resizedAttrs(n), complete: v.complete && n <= len(v.data)}}
}

// IntegerVector

type IntegerVector struct{ vector[int32] }

func NewInteger(data []int32, complete bool) *IntegerVector {
	checkComplete(data, complete, IsNAInteger)
	return &IntegerVector{vector[int32]{data: data, complete: complete}}
}

func NewIntegerScalar(x int32) *IntegerVector {
	return NewInteger([]int32{x}, x != NAInteger)
}

func (v *IntegerVector) Kind() Kind        { return KindInteger }
func (v *IntegerVector) At(i int) int32    { return v.data[i] }
func (v *IntegerVector) IsNA(i int) bool   { return v.data[i] == NAInteger }
func (v *IntegerVector) Elem(i int) Vector { return NewIntegerScalar(v.data[i]) }

func (v *IntegerVector) Set(i int, x int32) {
	mutationCheck(v.share)
	v.data[i] = x
	if x == NAInteger {
		v.complete = false
	}
}

func (v *IntegerVector) Validate() bool {
	actual := scanComplete(v.data, IsNAInteger)
	ok := !v.complete || actual
	v.complete = actual
	return ok
}

func (v *IntegerVector) Copy() Vector {
	return &IntegerVector{vector[int32]{data: v.copyData(), attrs: v.copyAttrs(), complete: v.complete}}
}

func (v *IntegerVector) ShallowCopy() Vector {
	v.share = Shared
	return &IntegerVector{vector[int32]{data: v.data, attrs: v.copyAttrs(), complete: v.complete, share: Shared}}
}

func (v *IntegerVector) Resize(n int) Vector {
	return &IntegerVector{vector[int32]{data: resized(v.data, n, NAInteger), attrs: v.resizedAttrs(n), complete: v.complete && n <= len(v.data)}}
}

// DoubleVector

type DoubleVector struct{ vector[float64] }

func NewDouble(data []float64, complete bool) *DoubleVector {
	checkComplete(data, complete, IsNADouble)
	return &DoubleVector{vector[float64]{data: data, complete: complete}}
}

func NewDoubleScalar(x float64) *DoubleVector {
	return NewDouble([]float64{x}, !IsNADouble(x))
}

func (v *DoubleVector) Kind() Kind        { return KindDouble }
func (v *DoubleVector) At(i int) float64  { return v.data[i] }
func (v *DoubleVector) IsNA(i int) bool   { return IsNADouble(v.data[i]) }
func (v *DoubleVector) Elem(i int) Vector { return NewDoubleScalar(v.data[i]) }

func (v *DoubleVector) Set(i int, x float64) {
	mutationCheck(v.share)
	v.data[i] = x
	if IsNADouble(x) {
		v.complete = false
	}
}

func (v *DoubleVector) Validate() bool {
	actual := scanComplete(v.data, IsNADouble)
	ok := !v.complete || actual
	v.complete = actual
	return ok
}

func (v *DoubleVector) Copy() Vector {
	return &DoubleVector{vector[float64]{data: v.copyData(), attrs: v.copyAttrs(), complete: v.complete}}
}

func (v *DoubleVector) ShallowCopy() Vector {
	v.share = Shared
	return &DoubleVector{vector[float64]{data: v.data, attrs: v.copyAttrs(), complete: v.complete, share: Shared}}
}

func (v *DoubleVector) Resize(n int) Vector {
	return &DoubleVector{vector[float64]{data: resized(v.data, n, NADouble), attrs: v.resizedAttrs(n), complete: v.complete && n <= len(v.data)}}
}

// ComplexVector

type ComplexVector struct{ vector[complex128] }

func NewComplex(data []complex128, complete bool) *ComplexVector {
	checkComplete(data, complete, IsNAComplex)
	return &ComplexVector{vector[complex128]{data: data, complete: complete}}
}

func NewComplexScalar(x complex128) *ComplexVector {
	return NewComplex([]complex128{x}, !IsNAComplex(x))
}

func (v *ComplexVector) Kind() Kind          { return KindComplex }
func (v *ComplexVector) At(i int) complex128 { return v.data[i] }
func (v *ComplexVector) IsNA(i int) bool     { return IsNAComplex(v.data[i]) }
func (v *ComplexVector) Elem(i int) Vector   { return NewComplexScalar(v.data[i]) }

func (v *ComplexVector) Set(i int, x complex128) {
	mutationCheck(v.share)
	v.data[i] = x
	if IsNAComplex(x) {
		v.complete = false
	}
}

func (v *ComplexVector) Validate() bool {
	actual := scanComplete(v.data, IsNAComplex)
	ok := !v.complete || actual
	v.complete = actual
	return ok
}

func (v *ComplexVector) Copy() Vector {
	return &ComplexVector{vector[complex128]{data: v.copyData(), attrs: v.copyAttrs(), complete: v.complete}}
}

func (v *ComplexVector) ShallowCopy() Vector {
	v.share = Shared
	return &ComplexVector{vector[complex128]{data: v.data, attrs: v.copyAttrs(), complete: v.complete, share: Shared}}
}

func (v *ComplexVector) Resize(n int) Vector {
	return &ComplexVector{vector[complex128]{data: resized(v.data, n, NAComplex), attrs: v.resizedAttrs(n), complete: v.complete && n <= len(v.data)}}
}

// CharacterVector

type CharacterVector struct{ vector[string] }

func NewCharacter(data []string, complete bool) *CharacterVector {
	checkComplete(data, complete, IsNAString)
	return &CharacterVector{vector[string]{data: data, complete: complete}}
}

func NewCharacterScalar(x string) *CharacterVector {
	return NewCharacter([]string{x}, x != NAString)
}

// NewStrings builds a character vector and computes its completeness flag.
func NewStrings(data ...string) *CharacterVector {
	return NewCharacter(data, scanComplete(data, IsNAString))
}

func (v *CharacterVector) Kind() Kind        { return KindCharacter }
func (v *CharacterVector) At(i int) string   { return v.data[i] }
func (v *CharacterVector) IsNA(i int) bool   { return v.data[i] == NAString }
func (v *CharacterVector) Elem(i int) Vector { return NewCharacterScalar(v.data[i]) }

func (v *CharacterVector) Set(i int, x string) {
	mutationCheck(v.share)
	v.data[i] = x
	if x == NAString {
		v.complete = false
	}
}

func (v *CharacterVector) Validate() bool {
	actual := scanComplete(v.data, IsNAString)
	ok := !v.complete || actual
	v.complete = actual
	return ok
}

func (v *CharacterVector) Copy() Vector {
	return &CharacterVector{vector[string]{data: v.copyData(), attrs: v.copyAttrs(), complete: v.complete}}
}

func (v *CharacterVector) ShallowCopy() Vector {
	v.share = Shared
	return &CharacterVector{vector[string]{data: v.data, attrs: v.copyAttrs(), complete: v.complete, share: Shared}}
}

func (v *CharacterVector) Resize(n int) Vector {
	return &CharacterVector{vector[string]{data: resized(v.data, n, NAString), attrs: v.resizedAttrs(n), complete: v.complete && n <= len(v.data)}}
}

// RawVector has no NA; it is always complete.

type RawVector struct{ vector[byte] }

func NewRaw(data []byte) *RawVector {
	return &RawVector{vector[byte]{data: data, complete: true}}
}

func (v *RawVector) Kind() Kind        { return KindRaw }
func (v *RawVector) At(i int) byte     { return v.data[i] }
func (v *RawVector) IsNA(int) bool     { return false }
func (v *RawVector) Elem(i int) Vector { return NewRaw([]byte{v.data[i]}) }
func (v *RawVector) Validate() bool    { v.complete = true; return true }

func (v *RawVector) Set(i int, x byte) {
	mutationCheck(v.share)
	v.data[i] = x
}

func (v *RawVector) Copy() Vector {
	return &RawVector{vector[byte]{data: v.copyData(), attrs: v.copyAttrs(), complete: true}}
}

func (v *RawVector) ShallowCopy() Vector {
	v.share = Shared
	return &RawVector{vector[byte]{data: v.data, attrs: v.copyAttrs(), complete: true, share: Shared}}
}

func (v *RawVector) Resize(n int) Vector {
	return &RawVector{vector[byte]{data: resized(v.data, n, 0), attrs: v.resizedAttrs(n), complete: true}}
}
