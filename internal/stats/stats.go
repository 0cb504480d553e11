// Package stats holds the numeric library calls used by the builtins. Inputs are plain
// float64 slices with NA already handled by the caller; matrices are column-major.
package stats

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// ErrNonConformable is returned when matrix dimensions do not line up.
var ErrNonConformable = errors.New("non-conformable arguments")

func Sum(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return floats.Sum(x)
}

func Prod(x []float64) float64 {
	if len(x) == 0 {
		return 1
	}
	return floats.Prod(x)
}

// Mean of an empty slice is NaN.
func Mean(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	return stat.Mean(x, nil)
}

// Variance is the unbiased sample variance; ok is false for fewer than two values.
func Variance(x []float64) (v float64, ok bool) {
	if len(x) < 2 {
		return 0, false
	}
	return stat.Variance(x, nil), true
}

func StdDev(x []float64) (float64, bool) {
	if len(x) < 2 {
		return 0, false
	}
	return stat.StdDev(x, nil), true
}

// Min and Max of an empty slice are +Inf and -Inf.
func Min(x []float64) float64 {
	if len(x) == 0 {
		return math.Inf(1)
	}
	return floats.Min(x)
}

func Max(x []float64) float64 {
	if len(x) == 0 {
		return math.Inf(-1)
	}
	return floats.Max(x)
}

func CumSum(x []float64) []float64 {
	out := make([]float64, len(x))
	if len(x) > 0 {
		floats.CumSum(out, x)
	}
	return out
}

// columnMajor wraps an r x c column-major buffer: the row-major view of the same
// buffer is the transpose.
func columnMajor(data []float64, r, c int) mat.Matrix {
	return mat.NewDense(c, r, data).T()
}

// toColumnMajor flattens m column by column.
func toColumnMajor(m mat.Matrix) []float64 {
	r, c := m.Dims()
	out := make([]float64, 0, r*c)
	for j := 0; j < c; j++ {
		for i := 0; i < r; i++ {
			out = append(out, m.At(i, j))
		}
	}
	return out
}

// MatMul returns the ar x bc product of an ar x ac and a br x bc matrix.
func MatMul(a []float64, ar, ac int, b []float64, br, bc int) ([]float64, error) {
	if ac != br {
		return nil, ErrNonConformable
	}
	if ar == 0 || bc == 0 {
		return []float64{}, nil
	}
	if ac == 0 {
		return make([]float64, ar*bc), nil
	}
	var prod mat.Dense
	prod.Mul(columnMajor(a, ar, ac), columnMajor(b, br, bc))
	return toColumnMajor(&prod), nil
}

// CrossProd returns t(a) %*% b, an ac x bc matrix.
func CrossProd(a []float64, ar, ac int, b []float64, br, bc int) ([]float64, error) {
	if ar != br {
		return nil, ErrNonConformable
	}
	if ac == 0 || bc == 0 {
		return []float64{}, nil
	}
	if ar == 0 {
		return make([]float64, ac*bc), nil
	}
	var prod mat.Dense
	prod.Mul(columnMajor(a, ar, ac).T(), columnMajor(b, br, bc))
	return toColumnMajor(&prod), nil
}

// Transpose returns the c x r transpose of an r x c matrix.
func Transpose(a []float64, r, c int) []float64 {
	if r == 0 || c == 0 {
		return []float64{}
	}
	return toColumnMajor(columnMajor(a, r, c).T())
}
