package arith

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funvibe/rcore/internal/coerce"
	"github.com/funvibe/rcore/internal/diagnostics"
	"github.com/funvibe/rcore/internal/value"
)

func TestSiteSpecializesThenGeneralizes(t *testing.T) {
	site := NewBinarySite(OpAdd)
	assert.Equal(t, SiteEmpty, site.State())

	out, err := site.Execute(value.Int(1), value.Int(2), nil)
	require.NoError(t, err)
	assert.Equal(t, []int32{3}, out.(*value.IntegerVector).Data())
	assert.Equal(t, SiteSpecialized, site.State())
	assert.Equal(t, Signature{
		Left: value.KindInteger, Right: value.KindInteger,
		LeftShape: ShapeScalar, RightShape: ShapeScalar,
	}, site.Signature())

	// same signature stays specialized
	_, err = site.Execute(value.Int(5), value.Int(6), nil)
	require.NoError(t, err)
	assert.Equal(t, SiteSpecialized, site.State())

	// a different kind moves the site to generic for good
	out, err = site.Execute(value.Dbl(1.5), value.Int(2), nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{3.5}, out.(*value.DoubleVector).Data())
	assert.Equal(t, SiteGeneric, site.State())

	_, err = site.Execute(value.Int(1), value.Int(2), nil)
	require.NoError(t, err)
	assert.Equal(t, SiteGeneric, site.State(), "never goes back")
}

func TestSiteShapeChangeGeneralizes(t *testing.T) {
	site := NewBinarySite(OpMul)
	_, err := site.Execute(value.Dbl(2), value.Dbl(3), nil)
	require.NoError(t, err)
	require.Equal(t, SiteSpecialized, site.State())

	out, err := site.Execute(value.NewDoubles(1, 2), value.Dbl(3), nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 6}, out.(*value.DoubleVector).Data())
	assert.Equal(t, SiteGeneric, site.State())
}

func TestSiteNonPlainOperandGoesGeneric(t *testing.T) {
	site := NewBinarySite(OpAdd)
	_, err := site.Execute(value.Null, value.Dbl(1), nil)
	require.NoError(t, err)
	assert.Equal(t, SiteGeneric, site.State())

	f := value.NewIntegers(1)
	require.NoError(t, value.SetAttr(f, value.AttrLevels, value.NewStrings("a")))
	require.NoError(t, value.SetAttr(f, value.AttrClass, value.NewStrings("factor")))
	site = NewBinarySite(OpAdd)
	_, err = site.Execute(f, value.Dbl(1), diagnostics.Discard)
	require.NoError(t, err)
	assert.Equal(t, SiteGeneric, site.State())
}

func TestSiteErrorKeepsState(t *testing.T) {
	site := NewBinarySite(OpAdd)
	_, err := site.Execute(value.Str("a"), value.Dbl(1), nil)
	require.Error(t, err)
	assert.Equal(t, SiteEmpty, site.State())
}

// assertSameVector compares through the character rendering so NaN payloads compare
// equal.
func assertSameVector(t *testing.T, want, got value.Value) {
	t.Helper()
	wv, gv := want.(value.Vector), got.(value.Vector)
	require.Equal(t, wv.Kind(), gv.Kind())
	require.Equal(t, wv.Len(), gv.Len())
	assert.Equal(t, wv.IsComplete(), gv.IsComplete())
	ws, err := coerce.Cast(wv, value.KindCharacter, nil)
	require.NoError(t, err)
	gs, err := coerce.Cast(gv, value.KindCharacter, nil)
	require.NoError(t, err)
	assert.Equal(t, ws.(*value.CharacterVector).Data(), gs.(*value.CharacterVector).Data())
	if wn := value.Names(wv); wn != nil {
		require.NotNil(t, value.Names(gv))
		assert.Equal(t, wn.Data(), value.Names(gv).Data())
	} else {
		assert.Nil(t, value.Names(gv))
	}
}

// Every fast path must agree with the generic path.
func TestFastAndGenericAgree(t *testing.T) {
	named := func(v value.Vector) value.Vector {
		n := make([]string, v.Len())
		for i := range n {
			n[i] = string(rune('a' + i))
		}
		require.NoError(t, value.SetAttr(v, value.AttrNames, value.NewStrings(n...)))
		return v
	}
	operands := []func() value.Vector{
		func() value.Vector { return value.Int(7) },
		func() value.Vector { return value.Dbl(2.5) },
		func() value.Vector { return value.NewLogicals(value.True, value.NALogical) },
		func() value.Vector { return value.NewIntegers(1, value.NAInteger, 3) },
		func() value.Vector { return value.NewDoubles(0.5, -1, value.NADouble, 4) },
		func() value.Vector { return value.NewComplexes(complex(1, 1)) },
		func() value.Vector { return named(value.NewDoubles(1, 2, 3)) },
	}
	ops := []Op{OpAdd, OpSub, OpMul, OpDiv, OpPow, OpEq, OpNe, OpAnd, OpOr}
	for _, op := range ops {
		for _, mkL := range operands {
			for _, mkR := range operands {
				site := NewBinarySite(op)
				fastWarn := &diagnostics.WarningList{}
				fast, ferr := site.Execute(mkL(), mkR(), fastWarn)
				genWarn := &diagnostics.WarningList{}
				gen, gerr := Binary(op, mkL(), mkR(), genWarn)
				if gerr != nil {
					require.Error(t, ferr)
					assert.Equal(t, gerr.Error(), ferr.Error())
					continue
				}
				require.NoError(t, ferr)
				assert.Equal(t, SiteSpecialized, site.State())
				assertSameVector(t, gen, fast)
				assert.Equal(t, genWarn.Items, fastWarn.Items)
			}
		}
	}
}

func TestUnarySite(t *testing.T) {
	site := NewUnarySite(UnaryMinus)
	out, err := site.Execute(value.Int(3), nil)
	require.NoError(t, err)
	assert.Equal(t, []int32{-3}, out.(*value.IntegerVector).Data())
	assert.Equal(t, SiteSpecialized, site.State())

	out, err = site.Execute(value.Dbl(3), nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{-3}, out.(*value.DoubleVector).Data())
	assert.Equal(t, SiteGeneric, site.State())
}
