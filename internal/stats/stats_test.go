package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescriptive(t *testing.T) {
	x := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	assert.Equal(t, 40.0, Sum(x))
	assert.Equal(t, 5.0, Mean(x))
	v, ok := Variance(x)
	require.True(t, ok)
	assert.InDelta(t, 32.0/7, v, 1e-12)
	sd, ok := StdDev(x)
	require.True(t, ok)
	assert.InDelta(t, math.Sqrt(32.0/7), sd, 1e-12)
	assert.Equal(t, 2.0, Min(x))
	assert.Equal(t, 9.0, Max(x))
	assert.Equal(t, []float64{1, 3, 6}, CumSum([]float64{1, 2, 3}))
	assert.Equal(t, 24.0, Prod([]float64{2, 3, 4}))
}

func TestEmptyInputs(t *testing.T) {
	assert.Equal(t, 0.0, Sum(nil))
	assert.Equal(t, 1.0, Prod(nil))
	assert.True(t, math.IsNaN(Mean(nil)))
	assert.True(t, math.IsInf(Min(nil), 1))
	assert.True(t, math.IsInf(Max(nil), -1))
	_, ok := Variance([]float64{1})
	assert.False(t, ok)
}

func TestMatMulColumnMajor(t *testing.T) {
	// a = [1 3; 2 4], b = [5 7; 6 8] in column-major order
	a := []float64{1, 2, 3, 4}
	b := []float64{5, 6, 7, 8}
	got, err := MatMul(a, 2, 2, b, 2, 2)
	require.NoError(t, err)
	// [1*5+3*6 1*7+3*8; 2*5+4*6 2*7+4*8] = [23 31; 34 46]
	assert.Equal(t, []float64{23, 34, 31, 46}, got)

	_, err = MatMul(a, 2, 2, []float64{1, 2, 3}, 3, 1)
	assert.ErrorIs(t, err, ErrNonConformable)
}

func TestInnerProduct(t *testing.T) {
	got, err := MatMul([]float64{1, 2, 3}, 1, 3, []float64{4, 5, 6}, 3, 1)
	require.NoError(t, err)
	assert.Equal(t, []float64{32}, got)
}

func TestCrossProdAndTranspose(t *testing.T) {
	a := []float64{1, 2, 3, 4, 5, 6} // 2 x 3
	assert.Equal(t, []float64{1, 3, 5, 2, 4, 6}, Transpose(a, 2, 3))

	got, err := CrossProd(a, 2, 3, a, 2, 3)
	require.NoError(t, err)
	// t(a) %*% a for a = [1 3 5; 2 4 6]
	assert.Equal(t, []float64{5, 11, 17, 11, 25, 39, 17, 39, 61}, got)
}
