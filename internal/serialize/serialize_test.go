package serialize

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funvibe/rcore/internal/value"
)

func roundTrip(t *testing.T, v value.Value) value.Value {
	t.Helper()
	b, err := Marshal(v)
	require.NoError(t, err)
	out, err := Unmarshal(b)
	require.NoError(t, err)
	return out
}

func TestAtomicVectors(t *testing.T) {
	lg := roundTrip(t, value.NewLogicals(value.True, value.NALogical, value.False)).(*value.LogicalVector)
	assert.Equal(t, []value.Logical{value.True, value.NALogical, value.False}, lg.Data())
	assert.False(t, lg.IsComplete())

	in := roundTrip(t, value.NewIntegers(1, value.NAInteger, -7)).(*value.IntegerVector)
	assert.Equal(t, []int32{1, value.NAInteger, -7}, in.Data())

	cx := roundTrip(t, value.NewComplexes(complex(1, -2))).(*value.ComplexVector)
	assert.Equal(t, []complex128{complex(1, -2)}, cx.Data())
	assert.True(t, cx.IsComplete())

	raw := roundTrip(t, value.NewRaw([]byte{0, 0xff})).(*value.RawVector)
	assert.Equal(t, []byte{0, 0xff}, raw.Data())
}

func TestDoublesKeepNAAndNaN(t *testing.T) {
	d := roundTrip(t, value.NewDoubles(1.5, value.NADouble, math.NaN(), math.Inf(-1))).(*value.DoubleVector)
	assert.Equal(t, 1.5, d.At(0))
	assert.True(t, value.IsNADouble(d.At(1)))
	assert.True(t, value.IsNaNNotNA(d.At(2)))
	assert.True(t, math.IsInf(d.At(3), -1))
}

func TestCharacterNA(t *testing.T) {
	s := roundTrip(t, value.NewStrings("a", value.NAString, "")).(*value.CharacterVector)
	assert.Equal(t, "a", s.At(0))
	assert.True(t, s.IsNA(1))
	assert.Equal(t, "", s.At(2))
	assert.False(t, s.IsNA(2))
}

func TestListWithAttributes(t *testing.T) {
	inner := value.NewDoubles(1, 2, 3, 4)
	require.NoError(t, value.SetAttr(inner, value.AttrDim, value.NewIntegers(2, 2)))
	l := value.NewList([]value.Value{inner, value.Null, value.Str("x")})
	require.NoError(t, value.SetAttr(l, value.AttrNames, value.NewStrings("m", "n", "s")))

	out := roundTrip(t, l).(*value.List)
	require.Equal(t, 3, out.Len())
	assert.Equal(t, []string{"m", "n", "s"}, value.Names(out).Data())
	assert.Equal(t, []int32{2, 2}, value.Dim(out.At(0)).Data())
	assert.True(t, value.IsNull(out.At(1)))
	assert.True(t, value.IsTemporary(out))
}

func TestNull(t *testing.T) {
	assert.True(t, value.IsNull(roundTrip(t, value.Null)))
}

func TestRejectsNonData(t *testing.T) {
	for _, v := range []value.Value{
		value.NewEnvironment(nil),
		&value.Closure{},
		value.Intern("x"),
		value.NewList([]value.Value{value.NewEnvironment(nil)}),
	} {
		_, err := Marshal(v)
		require.Error(t, err, v.Kind().String())
		assert.Contains(t, err.Error(), "cannot serialize values of type")
	}
}

func TestCorruptInput(t *testing.T) {
	_, err := Unmarshal([]byte{0xff})
	assert.Error(t, err)

	b, err := Marshal(value.NewIntegers(1, 2))
	require.NoError(t, err)
	_, err = Unmarshal(b[:len(b)-2])
	assert.Error(t, err)

	_, err = Unmarshal(nil)
	assert.Error(t, err)
}
