package rcore_test

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funvibe/rcore/internal/diagnostics"
	"github.com/funvibe/rcore/internal/session"
	"github.com/funvibe/rcore/internal/value"
	rcore "github.com/funvibe/rcore/pkg/embed"
)

type User struct {
	Name  string
	Score int
}

func newVM(t *testing.T) *rcore.VM {
	t.Helper()
	vm, err := rcore.NewWithSettings(session.Settings{Out: &bytes.Buffer{}, ErrOut: &bytes.Buffer{}})
	require.NoError(t, err)
	t.Cleanup(func() { _ = vm.Close() })
	return vm
}

func TestEmbedAPI(t *testing.T) {
	vm := newVM(t)

	require.NoError(t, vm.Bind("double", func(x int) int { return x * 2 }))
	require.NoError(t, vm.Bind("greet", func(u map[string]interface{}) string {
		return fmt.Sprintf("%s has %v points", u["Name"], u["Score"])
	}))
	require.NoError(t, vm.Set("player", User{Name: "Alice", Score: 10}))

	res, err := vm.Eval(`list(doubled = double(21), name = player$Name, status = greet(player))`)
	require.NoError(t, err)
	m, ok := res.(map[string]interface{})
	require.True(t, ok, "got %T", res)
	assert.Equal(t, 42, m["doubled"])
	assert.Equal(t, "Alice", m["name"])
	assert.Equal(t, "Alice has 10 points", m["status"])
}

func TestBoundFunctionErrors(t *testing.T) {
	vm := newVM(t)
	require.NoError(t, vm.Bind("check", func(x float64) (float64, error) {
		if x < 0 {
			return 0, errors.New("negative input")
		}
		return x / 2, nil
	}))

	res, err := vm.Eval("check(5)")
	require.NoError(t, err)
	assert.Equal(t, 2.5, res)

	_, err = vm.Eval("check(-1)")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "negative input")

	_, err = vm.Eval("check(1, 2)")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expects 1 arguments")

	// The error is catchable by scripts.
	res, err = vm.Eval(`tryCatch(check(-1), error = function(e) "caught")`)
	require.NoError(t, err)
	assert.Equal(t, "caught", res)
}

func TestVariadicBinding(t *testing.T) {
	vm := newVM(t)
	require.NoError(t, vm.Bind("total", func(xs ...float64) float64 {
		s := 0.0
		for _, x := range xs {
			s += x
		}
		return s
	}))
	res, err := vm.Eval("total(1, 2, 3.5)")
	require.NoError(t, err)
	assert.Equal(t, 6.5, res)
}

func TestSetGetAndCall(t *testing.T) {
	vm := newVM(t)

	require.NoError(t, vm.Set("xs", []float64{1, 2, 3}))
	require.NoError(t, vm.Set("tags", []string{"a", "b"}))
	_, err := vm.Eval("f <- function(x, y) x * y")
	require.NoError(t, err)

	xs, err := vm.Get("xs")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, xs)

	tags, err := vm.Get("tags")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, tags)

	res, err := vm.Call("f", []int{1, 2}, 10)
	require.NoError(t, err)
	assert.Equal(t, []int{10, 20}, res)

	_, err = vm.Get("missing")
	require.Error(t, err)
	_, err = vm.Call("xs")
	require.Error(t, err)
}

func TestNAConversion(t *testing.T) {
	vm := newVM(t)

	res, err := vm.Eval("NA")
	require.NoError(t, err)
	assert.Nil(t, res)

	res, err = vm.Eval("c(1L, NA, 3L)")
	require.NoError(t, err)
	assert.Equal(t, []interface{}{1, nil, 3}, res)

	v, err := vm.EvalValue("1:3")
	require.NoError(t, err)
	assert.Equal(t, []int32{1, 2, 3}, v.(*value.IntegerVector).Data())
}

func TestLoadFile(t *testing.T) {
	vm := newVM(t)
	path := filepath.Join(t.TempDir(), "lib.R")
	require.NoError(t, os.WriteFile(path, []byte("square <- function(x) x^2\n"), 0o644))
	require.NoError(t, vm.LoadFile(path))

	res, err := vm.Call("square", 4)
	require.NoError(t, err)
	assert.Equal(t, 16.0, res)
}

func TestWarningsAreReported(t *testing.T) {
	vm := newVM(t)
	_, err := vm.Eval(`as.integer("x")`)
	require.NoError(t, err)
	ws := vm.Warnings()
	require.Len(t, ws, 1)
	assert.Contains(t, ws[0].Message, "NAs introduced by coercion")
}

func TestMarshallerRoundTrip(t *testing.T) {
	m := rcore.NewMarshaller()

	v, err := m.ToValue(map[string]int{"b": 2, "a": 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, value.Names(v).Data())

	back, err := m.FromValue(v, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"a": 1, "b": 2}, back)

	big, err := m.ToValue(int64(1) << 40)
	require.NoError(t, err)
	assert.Equal(t, value.KindDouble, big.Kind())

	mixed, err := m.ToValue([]interface{}{1, "a"})
	require.NoError(t, err)
	assert.Equal(t, value.KindList, mixed.Kind())

	_, err = m.ToValue(make(chan int))
	require.Error(t, err)
}

func TestInternalErrorsAreReturned(t *testing.T) {
	vm := newVM(t)
	require.NoError(t, vm.Bind("corrupt", func() int {
		var table map[string][]int
		return table["missing"][3]
	}))

	_, err := vm.Eval("x <- 1; corrupt()")
	var ie *diagnostics.InternalError
	require.ErrorAs(t, err, &ie)
	assert.Contains(t, ie.Message, "index out of range")
	assert.NotEmpty(t, ie.Stack)
	assert.Equal(t, vm.Context().ID, ie.Context["context"])

	got, err := vm.Eval("x + 1")
	require.NoError(t, err)
	assert.Equal(t, 2.0, got)
}
