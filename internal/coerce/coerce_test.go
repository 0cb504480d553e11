package coerce

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funvibe/rcore/internal/diagnostics"
	"github.com/funvibe/rcore/internal/value"
)

func TestPrecedenceOrder(t *testing.T) {
	order := []value.Kind{
		value.KindRaw, value.KindLogical, value.KindInteger, value.KindDouble,
		value.KindComplex, value.KindCharacter, value.KindList, value.KindExpression,
	}
	for i := 1; i < len(order); i++ {
		assert.Less(t, Precedence(order[i-1]), Precedence(order[i]), "%s < %s", order[i-1], order[i])
	}
	assert.Equal(t, value.KindDouble, MaxPrecedence(value.KindInteger, value.KindDouble))
	assert.Equal(t, value.KindCharacter, MaxPrecedence(value.KindCharacter, value.KindLogical))
	assert.Equal(t, value.KindInteger, MaxPrecedence(value.KindNull, value.KindInteger))
}

func TestCastSameKindIsIdentity(t *testing.T) {
	v := value.NewDoubles(1, 2)
	ws := &diagnostics.WarningList{}
	out, err := Cast(v, value.KindDouble, ws)
	require.NoError(t, err)
	assert.Same(t, v, out)
	assert.Zero(t, ws.Len())
}

func TestCastEmpty(t *testing.T) {
	ws := &diagnostics.WarningList{}
	out, err := Cast(value.NewStrings(), value.KindInteger, ws)
	require.NoError(t, err)
	assert.Equal(t, 0, out.Len())
	assert.Equal(t, value.KindInteger, out.Kind())
	assert.Zero(t, ws.Len())
}

func TestCharacterToNumeric(t *testing.T) {
	ws := &diagnostics.WarningList{}
	out, err := Cast(value.NewStrings("1.5", " 2 ", "abc", "NA", "Inf", "0x10", value.NAString), value.KindDouble, ws)
	require.NoError(t, err)
	d := out.(*value.DoubleVector).Data()
	assert.Equal(t, 1.5, d[0])
	assert.Equal(t, 2.0, d[1])
	assert.True(t, value.IsNADouble(d[2]))
	assert.True(t, value.IsNADouble(d[3]))
	assert.True(t, math.IsInf(d[4], 1))
	assert.Equal(t, 16.0, d[5])
	assert.True(t, value.IsNADouble(d[6]))
	assert.False(t, out.IsComplete())

	require.Equal(t, 1, ws.Len(), "warning reported once per cast")
	assert.Equal(t, diagnostics.MsgNAIntroduced, ws.Items[0].Message)
	assert.Equal(t, diagnostics.WarnW001, ws.Items[0].Code)
}

func TestCharacterToLogical(t *testing.T) {
	ws := &diagnostics.WarningList{}
	out, err := Cast(value.NewStrings("TRUE", "true", "T", "True", "FALSE", "false", "F", "False", "yes"), value.KindLogical, ws)
	require.NoError(t, err)
	assert.Equal(t, []value.Logical{
		value.True, value.True, value.True, value.True,
		value.False, value.False, value.False, value.False,
		value.NALogical,
	}, out.(*value.LogicalVector).Data())
	require.Equal(t, 1, ws.Len())
	assert.Equal(t, diagnostics.MsgNAIntroduced, ws.Items[0].Message)
}

func TestComplexDropsImaginary(t *testing.T) {
	ws := &diagnostics.WarningList{}
	out, err := Cast(value.NewComplexes(complex(1, 2), complex(3, 0)), value.KindDouble, ws)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 3}, out.(*value.DoubleVector).Data())
	require.Equal(t, 1, ws.Len())
	assert.Equal(t, diagnostics.MsgImaginaryDropped, ws.Items[0].Message)
}

func TestDoubleToInteger(t *testing.T) {
	cases := []struct {
		name string
		in   float64
		want int32
		warn string
	}{
		{"truncates", 2.9, 2, ""},
		{"negative truncates toward zero", -2.9, -2, ""},
		{"NA stays NA silently", value.NADouble, value.NAInteger, ""},
		{"NaN", math.NaN(), value.NAInteger, diagnostics.MsgNAIntroduced},
		{"Inf", math.Inf(1), value.NAInteger, diagnostics.MsgNAIntegerRange},
		{"too large", 3e9, value.NAInteger, diagnostics.MsgNAIntegerRange},
		{"min int32 is NA", math.MinInt32, value.NAInteger, diagnostics.MsgNAIntegerRange},
		{"max int32", math.MaxInt32, math.MaxInt32, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ws := &diagnostics.WarningList{}
			out, err := Cast(value.NewDoubleScalar(tc.in), value.KindInteger, ws)
			require.NoError(t, err)
			assert.Equal(t, tc.want, out.(*value.IntegerVector).At(0))
			if tc.warn == "" {
				assert.Zero(t, ws.Len())
			} else {
				require.Equal(t, 1, ws.Len())
				assert.Equal(t, tc.warn, ws.Items[0].Message)
			}
		})
	}
}

func TestToRaw(t *testing.T) {
	ws := &diagnostics.WarningList{}
	out, err := Cast(value.NewIntegers(1, 255, 256, -1, value.NAInteger), value.KindRaw, ws)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 255, 0, 0, 0}, out.(*value.RawVector).Data())
	require.Equal(t, 1, ws.Len())
	assert.Equal(t, diagnostics.MsgRawOutOfRange, ws.Items[0].Message)
}

func TestToCharacter(t *testing.T) {
	cases := []struct {
		in   value.Vector
		want []string
	}{
		{value.NewLogicals(value.True, value.False, value.NALogical), []string{"TRUE", "FALSE", value.NAString}},
		{value.NewIntegers(1, -7, value.NAInteger), []string{"1", "-7", value.NAString}},
		{value.NewDoubles(1, 0.5, 1e6, 1.0/3), []string{"1", "0.5", "1e+06", "0.333333333333333"}},
		{value.NewComplexes(complex(1, 2), complex(0, -1)), []string{"1+2i", "0-1i"}},
		{value.NewRaw([]byte{0x0a, 0xff}), []string{"0a", "ff"}},
	}
	for _, tc := range cases {
		out, err := Cast(tc.in, value.KindCharacter, nil)
		require.NoError(t, err)
		assert.Equal(t, tc.want, out.(*value.CharacterVector).Data())
	}
}

func TestRoundTripIsLossless(t *testing.T) {
	in := value.NewIntegers(1, 2, value.NAInteger, -40)
	d, err := Cast(in, value.KindDouble, nil)
	require.NoError(t, err)
	back, err := Cast(d, value.KindInteger, nil)
	require.NoError(t, err)
	assert.Equal(t, in.Data(), back.(*value.IntegerVector).Data())

	s, err := Cast(in, value.KindCharacter, nil)
	require.NoError(t, err)
	back, err = Cast(s, value.KindInteger, nil)
	require.NoError(t, err)
	assert.Equal(t, in.Data(), back.(*value.IntegerVector).Data())
}

func TestCastKeepsAttributes(t *testing.T) {
	in := value.NewIntegers(1, 2)
	require.NoError(t, value.SetAttr(in, value.AttrNames, value.NewStrings("a", "b")))
	out, err := Cast(in, value.KindDouble, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, value.Names(out).Data())
}

func TestListToAtomic(t *testing.T) {
	l := value.NewList([]value.Value{value.Int(1), value.Dbl(2.5), value.Bool(true)})
	out, err := Cast(l, value.KindDouble, nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2.5, 1}, out.(*value.DoubleVector).Data())

	bad := value.NewList([]value.Value{value.NewIntegers(1, 2)})
	_, err = Cast(bad, value.KindInteger, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "(list) object cannot be coerced to type 'integer'")
}

func TestToListKeepsNames(t *testing.T) {
	in := value.NewDoubles(1, 2)
	require.NoError(t, value.SetAttr(in, value.AttrNames, value.NewStrings("x", "y")))
	out, err := Cast(in, value.KindList, nil)
	require.NoError(t, err)
	l := out.(*value.List)
	require.Equal(t, 2, l.Len())
	assert.Equal(t, 2.0, l.At(1).(*value.DoubleVector).At(0))
	assert.Equal(t, []string{"x", "y"}, value.Names(l).Data())
}

func TestAsLogicalScalar(t *testing.T) {
	cases := []struct {
		name string
		in   value.Value
		want bool
		err  string
	}{
		{"true", value.Bool(true), true, ""},
		{"number", value.Dbl(2), true, ""},
		{"zero", value.Int(0), false, ""},
		{"string T", value.Str("T"), true, ""},
		{"empty", value.NewLogicals(), false, "argument is of length zero"},
		{"null", value.Null, false, "argument is of length zero"},
		{"NA", value.NewLogicalScalar(value.NALogical), false, "missing value where TRUE/FALSE needed"},
		{"junk string", value.Str("maybe"), false, "argument is not interpretable as logical"},
		{"too long", value.NewLogicals(value.True, value.False), false, "the condition has length > 1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := AsLogicalScalar(tc.in)
			if tc.err != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
