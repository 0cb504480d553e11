package arith

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funvibe/rcore/internal/diagnostics"
	"github.com/funvibe/rcore/internal/value"
)

func binary(t *testing.T, op Op, l, r value.Value) (value.Value, []diagnostics.Warning) {
	t.Helper()
	ws := &diagnostics.WarningList{}
	out, err := Binary(op, l, r, ws)
	require.NoError(t, err)
	return out, ws.Items
}

func TestIntegerArithmetic(t *testing.T) {
	out, ws := binary(t, OpAdd, value.NewIntegers(1, 2, 3), value.NewIntegers(10, 20, 30))
	assert.Empty(t, ws)
	assert.Equal(t, []int32{11, 22, 33}, out.(*value.IntegerVector).Data())
	assert.True(t, out.(value.Vector).IsComplete())

	out, _ = binary(t, OpDiv, value.NewIntegers(1), value.NewIntegers(2))
	assert.Equal(t, []float64{0.5}, out.(*value.DoubleVector).Data(), "integer division gives double")

	out, _ = binary(t, OpPow, value.NewIntegers(2), value.NewIntegers(3))
	assert.Equal(t, value.KindDouble, out.Kind())

	out, _ = binary(t, OpAdd, value.NewLogicals(value.True, value.False), value.NewLogicals(value.True, value.True))
	assert.Equal(t, []int32{2, 1}, out.(*value.IntegerVector).Data(), "logical arithmetic is integer")
}

func TestIntegerModAndIntDiv(t *testing.T) {
	out, _ := binary(t, OpMod, value.NewIntegers(5, -5, 5, 5), value.NewIntegers(3, 3, -3, 0))
	assert.Equal(t, []int32{2, 1, -1, value.NAInteger}, out.(*value.IntegerVector).Data())

	out, _ = binary(t, OpIntDiv, value.NewIntegers(5, -5, 1), value.NewIntegers(2, 2, 0))
	assert.Equal(t, []int32{2, -3, value.NAInteger}, out.(*value.IntegerVector).Data())
	assert.False(t, out.(value.Vector).IsComplete())
}

func TestDoubleModAndIntDiv(t *testing.T) {
	out, _ := binary(t, OpMod, value.NewDoubles(5.5, -5, 5, 5), value.NewDoubles(2, 3, math.Inf(1), 0))
	d := out.(*value.DoubleVector).Data()
	assert.Equal(t, 1.5, d[0])
	assert.Equal(t, 1.0, d[1])
	assert.Equal(t, 5.0, d[2])
	assert.True(t, math.IsNaN(d[3]))
	assert.False(t, value.IsNADouble(d[3]))

	out, _ = binary(t, OpIntDiv, value.NewDoubles(7), value.NewDoubles(2))
	assert.Equal(t, []float64{3}, out.(*value.DoubleVector).Data())
}

func TestIntegerOverflow(t *testing.T) {
	out, ws := binary(t, OpAdd, value.NewIntegers(math.MaxInt32, 1), value.NewIntegers(1, 1))
	assert.Equal(t, []int32{value.NAInteger, 2}, out.(*value.IntegerVector).Data())
	require.Len(t, ws, 1)
	assert.Equal(t, diagnostics.MsgIntegerOverflow, ws[0].Message)
	assert.Equal(t, diagnostics.WarnW004, ws[0].Code)

	out, ws = binary(t, OpMul, value.NewIntegers(100000), value.NewIntegers(100000))
	assert.Equal(t, []int32{value.NAInteger}, out.(*value.IntegerVector).Data())
	require.Len(t, ws, 1)
}

func TestNAPropagation(t *testing.T) {
	out, _ := binary(t, OpAdd, value.NewDoubles(1, value.NADouble), value.NewDoubles(1, 1))
	d := out.(*value.DoubleVector).Data()
	assert.Equal(t, 2.0, d[0])
	assert.True(t, value.IsNADouble(d[1]))
	assert.False(t, out.(value.Vector).IsComplete())

	out, _ = binary(t, OpAdd, value.NewIntegers(value.NAInteger), value.NewIntegers(1))
	assert.Equal(t, []int32{value.NAInteger}, out.(*value.IntegerVector).Data())

	// NA wins over NaN
	out, _ = binary(t, OpAdd, value.NewDoubles(math.NaN()), value.NewDoubles(value.NADouble))
	assert.True(t, value.IsNADouble(out.(*value.DoubleVector).At(0)))
}

func TestPowIdentities(t *testing.T) {
	out, _ := binary(t, OpPow, value.NewDoubles(value.NADouble, 1, 2), value.NewDoubles(0, value.NADouble, 10))
	assert.Equal(t, []float64{1, 1, 1024}, out.(*value.DoubleVector).Data())
	assert.True(t, out.(value.Vector).IsComplete())

	out, _ = binary(t, OpPow, value.NewIntegers(value.NAInteger), value.NewIntegers(0))
	assert.Equal(t, []float64{1}, out.(*value.DoubleVector).Data())
}

func TestRecycling(t *testing.T) {
	out, ws := binary(t, OpAdd, value.NewIntegers(1, 2, 3), value.NewDoubles(10, 20))
	assert.Equal(t, []float64{11, 22, 13}, out.(*value.DoubleVector).Data())
	require.Len(t, ws, 1)
	assert.Equal(t, diagnostics.MsgRecycle, ws[0].Message)

	out, ws = binary(t, OpMul, value.NewDoubles(1, 2, 3, 4), value.NewDoubles(10, 100))
	assert.Equal(t, []float64{10, 200, 30, 400}, out.(*value.DoubleVector).Data())
	assert.Empty(t, ws)
}

func TestEmptyOperands(t *testing.T) {
	out, ws := binary(t, OpAdd, value.NewDoubles(), value.NewDoubles(1, 2, 3))
	assert.Equal(t, 0, out.(value.Vector).Len())
	assert.Equal(t, value.KindDouble, out.Kind())
	assert.Empty(t, ws)

	out, _ = binary(t, OpEq, value.NewIntegers(), value.NewIntegers(1))
	assert.Equal(t, value.KindLogical, out.Kind())
	assert.Equal(t, 0, out.(value.Vector).Len())
}

func TestNullOperands(t *testing.T) {
	out, _ := binary(t, OpAdd, value.Null, value.NewIntegers(1))
	assert.Equal(t, value.KindDouble, out.Kind())
	assert.Equal(t, 0, out.(value.Vector).Len())

	out, _ = binary(t, OpMul, value.NewComplexes(1), value.Null)
	assert.Equal(t, value.KindComplex, out.Kind())

	out, _ = binary(t, OpAdd, value.Null, value.Null)
	assert.Equal(t, value.KindDouble, out.Kind())

	out, _ = binary(t, OpLt, value.Null, value.NewDoubles(1))
	assert.Equal(t, value.KindLogical, out.Kind())
	assert.Equal(t, 0, out.(value.Vector).Len())
}

func TestTypeErrors(t *testing.T) {
	cases := []struct {
		op   Op
		l, r value.Value
		msg  string
	}{
		{OpAdd, value.Str("a"), value.Dbl(1), "non-numeric argument to binary operator"},
		{OpAdd, value.NewRaw([]byte{1}), value.NewRaw([]byte{1}), "non-numeric argument to binary operator"},
		{OpAdd, value.NewList(nil), value.Dbl(1), "non-numeric argument to binary operator"},
		{OpMod, value.NewComplexes(1), value.Dbl(1), "invalid operation on complex numbers"},
		{OpLt, value.NewComplexes(1), value.Dbl(1), "invalid comparison with complex values"},
		{OpAnd, value.Str("a"), value.Bool(true), "operations are possible only for numeric, logical or complex types"},
	}
	for _, tc := range cases {
		t.Run(tc.op.String()+" "+tc.msg, func(t *testing.T) {
			_, err := Binary(tc.op, tc.l, tc.r, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.msg)
		})
	}
}

func TestComparison(t *testing.T) {
	out, _ := binary(t, OpLt, value.NewIntegers(1, 5, value.NAInteger), value.NewDoubles(2))
	assert.Equal(t, []value.Logical{value.True, value.False, value.NALogical}, out.(*value.LogicalVector).Data())

	out, _ = binary(t, OpEq, value.NewDoubles(1), value.Str("1"))
	assert.Equal(t, []value.Logical{value.True}, out.(*value.LogicalVector).Data(), "numbers compare as strings against character")

	out, _ = binary(t, OpLt, value.NewStrings("apple", "pear"), value.Str("banana"))
	assert.Equal(t, []value.Logical{value.True, value.False}, out.(*value.LogicalVector).Data())

	out, _ = binary(t, OpEq, value.NewComplexes(complex(1, 2)), value.NewComplexes(complex(1, 2)))
	assert.Equal(t, []value.Logical{value.True}, out.(*value.LogicalVector).Data())
}

func TestLogic(t *testing.T) {
	na := value.NALogical
	out, _ := binary(t, OpAnd,
		value.NewLogicals(na, na, value.True, value.True),
		value.NewLogicals(value.False, value.True, value.True, value.False))
	assert.Equal(t, []value.Logical{value.False, na, value.True, value.False}, out.(*value.LogicalVector).Data())

	out, _ = binary(t, OpOr, value.NewLogicals(na, na), value.NewLogicals(value.True, value.False))
	assert.Equal(t, []value.Logical{value.True, na}, out.(*value.LogicalVector).Data())

	out, _ = binary(t, OpAnd, value.NewRaw([]byte{0x0f}), value.NewRaw([]byte{0x3c}))
	assert.Equal(t, []byte{0x0c}, out.(*value.RawVector).Data())

	out, _ = binary(t, OpOr, value.NewDoubles(0, 2), value.NewIntegers(0))
	assert.Equal(t, []value.Logical{value.False, value.True}, out.(*value.LogicalVector).Data())
}

func TestAttributePolicy(t *testing.T) {
	named := value.NewDoubles(1, 2)
	require.NoError(t, value.SetAttr(named, value.AttrNames, value.NewStrings("a", "b")))
	require.NoError(t, value.SetAttr(named, "unit", value.Str("cm")))

	other := value.NewDoubles(3, 4)
	require.NoError(t, value.SetAttr(other, value.AttrNames, value.NewStrings("x", "y")))
	require.NoError(t, value.SetAttr(other, "unit", value.Str("m")))
	require.NoError(t, value.SetAttr(other, "note", value.Str("r")))

	out, _ := binary(t, OpAdd, named, other)
	assert.Equal(t, []string{"a", "b"}, value.Names(out).Data(), "left names win")
	assert.Equal(t, "cm", value.GetAttr(out, "unit").(*value.CharacterVector).At(0), "left wins on equal length")
	assert.Equal(t, "r", value.GetAttr(out, "note").(*value.CharacterVector).At(0))

	// comparison keeps structural attributes only
	out, _ = binary(t, OpGt, named, other)
	assert.Equal(t, []string{"a", "b"}, value.Names(out).Data())
	assert.True(t, value.IsNull(value.GetAttr(out, "unit")))

	// names only from an operand of the result length
	out, _ = binary(t, OpAdd, value.NewDoubles(1, 2, 3, 4), named)
	assert.Nil(t, value.Names(out))
	assert.True(t, value.IsNull(value.GetAttr(out, "unit")), "plain attributes only from a full-length operand")
}

func TestDimPolicy(t *testing.T) {
	m := value.NewDoubles(1, 2, 3, 4)
	require.NoError(t, value.SetAttr(m, value.AttrDim, value.NewIntegers(2, 2)))
	out, _ := binary(t, OpMul, m, value.NewDoubles(2))
	assert.Equal(t, []int32{2, 2}, value.Dim(out).Data())
	assert.Equal(t, []float64{2, 4, 6, 8}, out.(*value.DoubleVector).Data())

	other := value.NewDoubles(1, 2, 3, 4)
	require.NoError(t, value.SetAttr(other, value.AttrDim, value.NewIntegers(4, 1)))
	_, err := Binary(OpAdd, m, other, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-conformable arrays")
}

func TestFactorOperand(t *testing.T) {
	f := value.NewIntegers(1, 2, 1)
	require.NoError(t, value.SetAttr(f, value.AttrLevels, value.NewStrings("lo", "hi")))
	require.NoError(t, value.SetAttr(f, value.AttrClass, value.NewStrings("factor")))

	out, ws := binary(t, OpAdd, f, value.NewDoubles(1))
	assert.Equal(t, []value.Logical{value.NALogical, value.NALogical, value.NALogical}, out.(*value.LogicalVector).Data())
	require.Len(t, ws, 1)
	assert.Equal(t, "'+' not meaningful for factors", ws[0].Message)

	out, ws = binary(t, OpEq, f, value.Str("hi"))
	assert.Empty(t, ws)
	assert.Equal(t, []value.Logical{value.False, value.True, value.False}, out.(*value.LogicalVector).Data())
}

func TestTemporaryStorageReuse(t *testing.T) {
	tmp := value.NewDoubles(1, 2, 3)
	out, _ := binary(t, OpAdd, tmp, value.NewDoubles(1))
	assert.Same(t, tmp, out, "a temporary of the result kind and length is reused")
	assert.Equal(t, []float64{2, 3, 4}, tmp.Data())

	bound := value.NewDoubles(1, 2, 3)
	value.MarkBound(bound)
	out, _ = binary(t, OpAdd, bound, value.NewDoubles(1))
	assert.NotSame(t, bound, out)
	assert.Equal(t, []float64{1, 2, 3}, bound.Data())
}

func TestUnary(t *testing.T) {
	ws := &diagnostics.WarningList{}
	out, err := Unary(UnaryMinus, value.NewLogicals(value.True, value.NALogical), ws)
	require.NoError(t, err)
	assert.Equal(t, []int32{-1, value.NAInteger}, out.(*value.IntegerVector).Data())

	out, err = Unary(UnaryNot, value.NewDoubles(0, 3), ws)
	require.NoError(t, err)
	assert.Equal(t, []value.Logical{value.True, value.False}, out.(*value.LogicalVector).Data())

	out, err = Unary(UnaryNot, value.NewRaw([]byte{0x0f}), ws)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xf0}, out.(*value.RawVector).Data())

	named := value.NewDoubles(1)
	require.NoError(t, value.SetAttr(named, value.AttrNames, value.NewStrings("a")))
	value.MarkBound(named)
	out, err = Unary(UnaryMinus, named, ws)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, value.Names(out).Data())
	assert.Equal(t, []float64{1}, named.Data())

	_, err = Unary(UnaryMinus, value.Str("a"), ws)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid argument to unary operator")
	assert.Zero(t, ws.Len())
}

func TestMatMul(t *testing.T) {
	m := value.NewDoubles(1, 2, 3, 4)
	require.NoError(t, value.SetAttr(m, value.AttrDim, value.NewIntegers(2, 2)))
	out, err := Binary(OpMatMul, m, value.NewIntegers(1, 1), nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 6}, out.(*value.DoubleVector).Data())
	assert.Equal(t, []int32{2, 1}, value.Dim(out).Data())

	out, err = Binary(OpMatMul, value.NewDoubles(1, 2, 3), value.NewDoubles(4, 5, 6), nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{32}, out.(*value.DoubleVector).Data())

	_, err = Binary(OpMatMul, m, value.NewDoubles(1, 2, 3), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-conformable arguments")
}
