package evaluator

import (
	"math"

	"github.com/funvibe/rcore/internal/coerce"
	"github.com/funvibe/rcore/internal/diagnostics"
	"github.com/funvibe/rcore/internal/value"
)

// colon implements from:to. The result is integer when from is integer-valued and
// every element fits in int32, double otherwise.
func colon(from, to value.Value, w diagnostics.Warner) (value.Value, error) {
	a, err := rangeEnd(from, w)
	if err != nil {
		return nil, err
	}
	b, err := rangeEnd(to, w)
	if err != nil {
		return nil, err
	}
	n := int(math.Floor(math.Abs(b-a)+1e-10)) + 1
	if n > math.MaxInt32 {
		return nil, diagnostics.Errorf(diagnostics.ErrR001, "result would be too long a vector")
	}
	step := 1.0
	if b < a {
		step = -1
	}
	last := a + step*float64(n-1)
	if a == math.Trunc(a) && inInt32(a) && inInt32(last) {
		out := make([]int32, n)
		for i := range out {
			out[i] = int32(a) + int32(step)*int32(i)
		}
		return value.NewInteger(out, true), nil
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = a + step*float64(i)
	}
	return value.NewDouble(out, true), nil
}

func inInt32(x float64) bool {
	return x > math.MinInt32 && x <= math.MaxInt32
}

func rangeEnd(v value.Value, w diagnostics.Warner) (float64, error) {
	vec, ok := v.(value.Vector)
	if !ok || vec.Len() == 0 {
		return 0, diagnostics.Errorf(diagnostics.ErrR007, "argument of length 0")
	}
	if vec.Len() > 1 && w != nil {
		w.Warn(diagnostics.NewWarning(diagnostics.WarnW002, "numerical expression has %d elements: only the first used", vec.Len()))
	}
	if value.IsFactor(vec) {
		return 0, diagnostics.Errorf(diagnostics.ErrR007, "factor operands are not supported by ':'")
	}
	if !vec.Kind().IsNumeric() && vec.Kind() != value.KindCharacter {
		return 0, diagnostics.Errorf(diagnostics.ErrR007, "NA/NaN argument")
	}
	c, err := coerce.Cast(vec.Elem(0), value.KindDouble, w)
	if err != nil {
		return 0, err
	}
	x := c.(*value.DoubleVector).At(0)
	if math.IsNaN(x) {
		return 0, diagnostics.Errorf(diagnostics.ErrR007, "NA/NaN argument")
	}
	return x, nil
}
