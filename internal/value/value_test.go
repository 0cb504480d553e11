package value

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funvibe/rcore/internal/ast"
	"github.com/funvibe/rcore/internal/diagnostics"
)

func TestNASentinels(t *testing.T) {
	assert.True(t, IsNADouble(NADouble))
	assert.False(t, IsNADouble(math.NaN()))
	assert.True(t, IsNaNOrNA(NADouble))
	assert.True(t, IsNaNNotNA(math.NaN()))
	assert.False(t, IsNaNNotNA(NADouble))
	// arithmetic keeps the payload
	assert.True(t, IsNADouble(NADouble+1))
	assert.True(t, IsNAComplex(NAComplex))
	assert.Equal(t, int32(math.MinInt32), NAInteger)
}

func TestCompletenessFlag(t *testing.T) {
	v := NewDoubles(1, 2, 3)
	assert.True(t, v.IsComplete())
	v.Set(1, NADouble)
	assert.False(t, v.IsComplete())
	assert.True(t, v.IsNA(1))

	w := NewDoubles(1, NADouble)
	assert.False(t, w.IsComplete())

	s := NewStrings("a", NAString)
	assert.False(t, s.IsComplete())
}

func TestValidateRepairsFlag(t *testing.T) {
	v := NewInteger([]int32{1, 2}, false)
	assert.True(t, v.Validate(), "a false flag is always consistent")
	assert.True(t, v.IsComplete())

	data := []int32{1, NAInteger}
	bad := NewInteger(data, false)
	bad.SetComplete(true)
	assert.False(t, bad.Validate())
	assert.False(t, bad.IsComplete())
}

func TestDebugValidationPanics(t *testing.T) {
	SetDebugValidation(true)
	defer SetDebugValidation(false)

	assert.PanicsWithError(t, "internal error: vector marked complete contains NA", func() {
		NewDouble([]float64{1, NADouble}, true)
	})
	assert.NotPanics(t, func() { NewDouble([]float64{1, NADouble}, false) })
}

func TestCopyOnWrite(t *testing.T) {
	x := NewDoubles(1, 2, 3)
	MarkBound(x)
	MarkBound(x)
	require.Equal(t, Shared, x.Share())

	y := PrepareForMutation(x).(*DoubleVector)
	assert.NotSame(t, x, y)
	y.Set(0, 99)
	assert.Equal(t, []float64{1, 2, 3}, x.Data())
	assert.Equal(t, []float64{99, 2, 3}, y.Data())

	z := NewDoubles(4)
	MarkBound(z)
	assert.Same(t, z, PrepareForMutation(z))
}

func TestSetOnSharedVectorPanics(t *testing.T) {
	x := NewIntegers(1, 2)
	MarkShared(x)
	assert.Panics(t, func() { x.Set(0, 5) })
}

func TestShallowCopy(t *testing.T) {
	x := NewDoubles(1, 2)
	require.NoError(t, SetAttr(x, AttrNames, NewStrings("a", "b")))
	y := x.ShallowCopy()
	assert.Equal(t, Shared, x.Share())
	assert.Equal(t, Shared, y.Share())
	require.NoError(t, SetAttr(y, AttrClass, NewStrings("foo")))
	assert.Nil(t, Class(x))
	assert.Equal(t, []string{"foo"}, Class(y))
}

func TestAttributeValidation(t *testing.T) {
	x := NewDoubles(1, 2, 3, 4)

	require.NoError(t, SetAttr(x, AttrDim, NewIntegers(2, 2)))
	assert.Equal(t, []int32{2, 2}, Dim(x).Data())

	err := SetAttr(x, AttrDim, NewIntegers(3, 2))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dims [product 6] do not match the length of object [4]")

	err = SetAttr(x, AttrNames, NewStrings("a"))
	require.Error(t, err)
	assert.True(t, err.(*diagnostics.Error).Code == diagnostics.ErrR007)

	require.NoError(t, SetAttr(x, AttrClass, NewStrings("myclass")))
	assert.True(t, Inherits(x, "myclass"))
	assert.Equal(t, KindDouble, x.Kind(), "class does not change storage")

	require.NoError(t, SetAttr(x, AttrDim, Null))
	assert.Nil(t, Dim(x))
}

func TestAttributeOrder(t *testing.T) {
	x := NewDoubles(1)
	require.NoError(t, SetAttr(x, "b", Dbl(1)))
	require.NoError(t, SetAttr(x, "a", Dbl(2)))
	require.NoError(t, SetAttr(x, "b", Dbl(3)))
	items := x.Attrs().Items()
	require.Len(t, items, 2)
	assert.Equal(t, "b", items[0].Name)
	assert.Equal(t, "a", items[1].Name)
}

func TestSubset(t *testing.T) {
	x := NewStrings("a", "b", "c")
	require.NoError(t, SetAttr(x, AttrNames, NewStrings("x", "y", "z")))
	out := Subset(x, []int{2, 0, 5}).(*CharacterVector)
	assert.Equal(t, []string{"c", "a", NAString}, out.Data())
	assert.Equal(t, []string{"z", "x", NAString}, Names(out).Data())
	assert.False(t, out.IsComplete())
}

func TestResize(t *testing.T) {
	x := NewIntegers(1, 2)
	y := x.Resize(4).(*IntegerVector)
	assert.Equal(t, []int32{1, 2, NAInteger, NAInteger}, y.Data())
	assert.False(t, y.IsComplete())
	z := x.Resize(1).(*IntegerVector)
	assert.Equal(t, []int32{1}, z.Data())
	assert.True(t, z.IsComplete())
}

func TestInternSymbols(t *testing.T) {
	assert.Same(t, Intern("foo"), Intern("foo"))
	assert.NotSame(t, Intern("foo"), Intern("bar"))
}

func TestPromiseCycle(t *testing.T) {
	p := NewPromise(nil, NewEnvironment(nil))
	_, err := p.Force(func(ast.Expression, *Environment) (Value, error) {
		return p.Force(nil)
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), MsgPromiseCycle)
	assert.False(t, p.IsForced())

	// the marker is cleared: a later force succeeds
	v, err := p.Force(func(ast.Expression, *Environment) (Value, error) { return Dbl(1), nil })
	require.NoError(t, err)
	assert.Equal(t, 1.0, v.(*DoubleVector).At(0))
	assert.True(t, p.IsForced())
}

func TestPairlistRoundTrip(t *testing.T) {
	l := NewList([]Value{Dbl(1), Str("x")})
	require.NoError(t, SetAttr(l, AttrNames, NewStrings("a", "")))
	pl := PairlistFromList(l)
	require.Equal(t, 2, pl.Len())
	assert.Equal(t, "a", pl.Tag)
	back := pl.ToList()
	assert.Equal(t, []string{"a", ""}, Names(back).Data())
}

func TestImplicitClass(t *testing.T) {
	m := NewDoubles(1, 2, 3, 4)
	require.NoError(t, SetAttr(m, AttrDim, NewIntegers(2, 2)))
	assert.Equal(t, []string{"matrix", "array"}, ImplicitClass(m))
	assert.Equal(t, []string{"numeric"}, ImplicitClass(Dbl(1)))
	assert.Equal(t, []string{"integer"}, ImplicitClass(Int(1)))
	assert.Equal(t, []string{"function"}, ImplicitClass(&Closure{}))
}
