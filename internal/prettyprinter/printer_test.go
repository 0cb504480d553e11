package prettyprinter

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funvibe/rcore/internal/value"
)

func named(v value.Vector, names ...string) value.Vector {
	if err := value.SetAttr(v, value.AttrNames, value.NewStrings(names...)); err != nil {
		panic(err)
	}
	return v
}

func seq(n int) *value.IntegerVector {
	xs := make([]int32, n)
	for i := range xs {
		xs[i] = int32(i + 1)
	}
	return value.NewIntegers(xs...)
}

func TestFormatAtomic(t *testing.T) {
	tests := []struct {
		name string
		in   value.Value
		want string
	}{
		{"null", value.Null, "NULL"},
		{"double common decimals", value.NewDoubles(1, 2.5), "[1] 1.0 2.5"},
		{"scientific", value.Dbl(1e6), "[1] 1e+06"},
		{"seven digits", value.Dbl(math.Pi), "[1] 3.141593"},
		{"small fixed", value.Dbl(0.1 + 0.2), "[1] 0.3"},
		{"large fixed", value.Dbl(123456789), "[1] 123456789"},
		{"double specials", value.NewDoubles(value.NADouble, math.NaN(), math.Inf(-1)), "[1]   NA  NaN -Inf"},
		{"integers with NA", value.NewIntegers(1, 2, value.NAInteger), "[1]  1  2 NA"},
		{"logicals", value.NewLogicals(value.True, value.False, value.NALogical), "[1]  TRUE FALSE    NA"},
		{"strings", value.NewStrings("a", value.NAString), `[1] "a" NA`},
		{"complex", value.NewComplexes(complex(1, 2)), "[1] 1+2i"},
		{"raw", value.NewRaw([]byte{1, 255}), "[1] 01 ff"},
		{"empty double", value.NewDoubles(), "numeric(0)"},
		{"empty character", value.NewStrings(), "character(0)"},
		{"named", named(value.NewDoubles(1, 2), "a", "bb"), " a bb\n 1  2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(tt.in))
		})
	}
}

func TestFormatWraps(t *testing.T) {
	got := Format(seq(30))
	lines := bytes.Split([]byte(got), []byte("\n"))
	require.Len(t, lines, 2)
	assert.True(t, bytes.HasPrefix(lines[0], []byte(" [1]  1  2")))
	assert.True(t, bytes.HasPrefix(lines[1], []byte("[26] 26")))
}

func TestFormatMatrix(t *testing.T) {
	m := seq(6)
	require.NoError(t, value.SetAttr(m, value.AttrDim, value.NewIntegers(2, 3)))
	want := "     [,1] [,2] [,3]\n" +
		"[1,]    1    3    5\n" +
		"[2,]    2    4    6"
	assert.Equal(t, want, Format(m))
}

func TestFormatFactor(t *testing.T) {
	f := value.NewIntegers(1, 2, 1, value.NAInteger)
	require.NoError(t, value.SetAttr(f, value.AttrLevels, value.NewStrings("lo", "hi")))
	require.NoError(t, value.SetAttr(f, value.AttrClass, value.NewStrings("factor")))
	assert.Equal(t, "[1] lo   hi   lo   <NA>\nLevels: lo hi", Format(f))
}

func TestFormatList(t *testing.T) {
	l := value.NewList([]value.Value{value.Dbl(1), value.Str("x")})
	require.NoError(t, value.SetAttr(l, value.AttrNames, value.NewStrings("", "b")))
	assert.Equal(t, "[[1]]\n[1] 1\n\n$b\n[1] \"x\"\n", Format(l))

	assert.Equal(t, "list()", Format(value.NewList(nil)))
}

func TestFormatAttributes(t *testing.T) {
	v := value.NewDoubles(1)
	require.NoError(t, value.SetAttr(v, "unit", value.Str("cm")))
	assert.Equal(t, "[1] 1\nattr(,\"unit\")\n[1] \"cm\"", Format(v))
}

func TestFormatEnvironment(t *testing.T) {
	assert.Equal(t, "<environment: R_GlobalEnv>", Format(value.NewNamedEnvironment("R_GlobalEnv", nil)))
	assert.Equal(t, "<environment>", Format(value.NewEnvironment(nil)))
}

func TestFprint(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Fprint(&buf, value.Int(3)))
	assert.Equal(t, "[1] 3\n", buf.String())
}

func TestDeparse(t *testing.T) {
	tests := []struct {
		name string
		in   value.Value
		want string
	}{
		{"null", value.Null, "NULL"},
		{"double", value.Dbl(1.5), "1.5"},
		{"doubles", value.NewDoubles(1, 2), "c(1, 2)"},
		{"integer", value.Int(1), "1L"},
		{"integer run", seq(3), "1:3"},
		{"integers", value.NewIntegers(1, 5), "c(1L, 5L)"},
		{"NA integer", value.NewIntegers(value.NAInteger), "NA_integer_"},
		{"mixed NA", value.NewDoubles(1, value.NADouble), "c(1, NA)"},
		{"logical", value.NewLogicals(value.True, value.NALogical), "c(TRUE, NA)"},
		{"string", value.Str("a\"b"), `"a\"b"`},
		{"named", named(value.NewDoubles(1, 2), "a", "my name"), "c(a = 1, `my name` = 2)"},
		{"list", value.NewList([]value.Value{value.Dbl(1), value.Str("x")}), `list(1, "x")`},
		{"empty", value.NewLogicals(), "logical(0)"},
		{"raw", value.NewRaw([]byte{10}), "as.raw(c(0x0a))"},
		{"symbol", value.Intern("x"), "x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Deparse(tt.in))
		})
	}
}

func TestDeparseStructure(t *testing.T) {
	v := value.NewDoubles(1, 2)
	require.NoError(t, value.SetAttr(v, value.AttrClass, value.NewStrings("money")))
	assert.Equal(t, `structure(c(1, 2), class = "money")`, Deparse(v))
}

func TestCat(t *testing.T) {
	got, err := Cat(value.NewDoubles(1, 2.5, 1e6))
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2.5", "1e+06"}, got)

	got, err = Cat(value.NewStrings("a", value.NAString))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "NA"}, got)

	got, err = Cat(value.Null)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = Cat(value.NewList([]value.Value{value.NewDoubles(1, 2)}))
	assert.Error(t, err)
}
