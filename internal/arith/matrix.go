package arith

import (
	"errors"

	"github.com/funvibe/rcore/internal/coerce"
	"github.com/funvibe/rcore/internal/diagnostics"
	"github.com/funvibe/rcore/internal/stats"
	"github.com/funvibe/rcore/internal/value"
)

// MatrixOperand returns the data of a numeric vector or matrix as doubles together
// with its dimensions. A plain vector of length n is reported as n x 1.
func MatrixOperand(v value.Value) (data []float64, rows, cols int, isMatrix bool, err error) {
	vec, ok := v.(value.Vector)
	if !ok || !vec.Kind().IsNumeric() || vec.Kind() == value.KindComplex {
		return nil, 0, 0, false, diagnostics.Errorf(diagnostics.ErrR007, "requires numeric/complex matrix/vector arguments")
	}
	d, err := coerce.Cast(vec, value.KindDouble, nil)
	if err != nil {
		return nil, 0, 0, false, err
	}
	data = d.(*value.DoubleVector).Data()
	if dim := value.Dim(vec); dim != nil && dim.Len() == 2 {
		return data, int(dim.At(0)), int(dim.At(1)), true, nil
	}
	return data, len(data), 1, false, nil
}

// MatMul implements %*%. A plain vector is taken as a row or a column, whichever
// makes the product conformable.
func MatMul(l, r value.Value) (value.Value, error) {
	a, ar, ac, am, err := MatrixOperand(l)
	if err != nil {
		return nil, err
	}
	b, br, bc, bm, err := MatrixOperand(r)
	if err != nil {
		return nil, err
	}
	switch {
	case !am && !bm:
		if len(a) == len(b) {
			ar, ac = 1, len(a)
		} else if len(a) == 1 {
			ar, ac = 1, 1
			br, bc = 1, len(b)
		}
	case !am:
		if len(a) == br {
			ar, ac = 1, len(a)
		} else if br == 1 {
			ar, ac = len(a), 1
		}
	case !bm:
		if len(b) == ac {
			br, bc = len(b), 1
		} else if ac == 1 {
			br, bc = 1, len(b)
		}
	}
	prod, err := stats.MatMul(a, ar, ac, b, br, bc)
	if errors.Is(err, stats.ErrNonConformable) {
		return nil, diagnostics.Errorf(diagnostics.ErrR010, "non-conformable arguments")
	}
	if err != nil {
		return nil, err
	}
	out := value.NewDoubles(prod...)
	if err := value.SetAttr(out, value.AttrDim, value.NewIntegers(int32(ar), int32(bc))); err != nil {
		return nil, err
	}
	return out, nil
}
