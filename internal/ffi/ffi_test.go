package ffi

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funvibe/rcore/internal/diagnostics"
	"github.com/funvibe/rcore/internal/value"
)

func TestTags(t *testing.T) {
	cases := []struct {
		v   value.Value
		tag Tag
	}{
		{value.Null, NILSXP},
		{value.Intern("x"), SYMSXP},
		{value.NewLogicals(value.True), LGLSXP},
		{value.NewIntegers(1), INTSXP},
		{value.NewDoubles(1), REALSXP},
		{value.NewComplexes(1), CPLXSXP},
		{value.Str("a"), STRSXP},
		{value.NewList(nil), VECSXP},
		{value.NewRaw([]byte{1}), RAWSXP},
		{value.NewEnvironment(nil), ENVSXP},
	}
	for _, tc := range cases {
		tag, ok := TagOf(tc.v)
		require.True(t, ok, tc.v.Kind().String())
		assert.Equal(t, tc.tag, tag, tc.v.Kind().String())
	}
	_, ok := TagOf(value.NewPromise(nil, nil))
	assert.False(t, ok)
	_, ok = TagOf(value.Missing)
	assert.False(t, ok)
}

func TestCall(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("C_twice", 1, func(args []value.Value) (value.Value, error) {
		d := args[0].(*value.DoubleVector).Data()
		out := make([]float64, len(d))
		for i, x := range d {
			out[i] = 2 * x
		}
		return value.NewDoubles(out...), nil
	}))
	assert.Error(t, r.Register("C_twice", 1, func([]value.Value) (value.Value, error) { return nil, nil }))

	got, err := r.Call("C_twice", []value.Value{value.NewDoubles(1, 2)})
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 4}, got.(*value.DoubleVector).Data())

	_, err = r.Call("C_twice", nil)
	assert.ErrorIs(t, err, &diagnostics.Error{Code: diagnostics.ErrR009})

	_, err = r.Call("C_missing", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not in load table")

	assert.Equal(t, []string{"C_twice"}, r.Names())
}

func TestCallRejectsUntaggedValues(t *testing.T) {
	r := NewRegistry()
	called := false
	require.NoError(t, r.Register("C_id", Variadic, func(args []value.Value) (value.Value, error) {
		called = true
		return args[0], nil
	}))
	_, err := r.Call("C_id", []value.Value{value.NewPromise(nil, nil)})
	require.Error(t, err)
	assert.False(t, called)

	require.NoError(t, r.Register("C_bad", 0, func([]value.Value) (value.Value, error) {
		return value.NewPromise(nil, nil), nil
	}))
	_, err = r.Call("C_bad", nil)
	var ie *diagnostics.InternalError
	assert.True(t, errors.As(err, &ie))
}

func TestPanickingRoutine(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("C_panic", 0, func([]value.Value) (value.Value, error) {
		panic("native crash")
	}))
	_, err := r.Call("C_panic", nil)
	var ie *diagnostics.InternalError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, "native crash", ie.Message)
	assert.Equal(t, "C_panic", ie.Context["routine"])
}

func TestNilResultIsNull(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("C_void", 0, func([]value.Value) (value.Value, error) { return nil, nil }))
	got, err := r.Call("C_void", nil)
	require.NoError(t, err)
	assert.True(t, value.IsNull(got))
}
