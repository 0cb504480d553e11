package value

import (
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funvibe/rcore/internal/ast"
	"github.com/funvibe/rcore/internal/diagnostics"
)

func newTestChain() (empty, global, local *Environment) {
	empty = NewEmptyEnvironment()
	global = NewNamedEnvironment("R_GlobalEnv", empty)
	local = NewEnvironment(global)
	return
}

func TestLookupInherits(t *testing.T) {
	_, global, local := newTestChain()
	require.NoError(t, global.Bind("x", Dbl(1)))

	v, where, ok := local.Lookup("x", true)
	require.True(t, ok)
	assert.Same(t, global, where)
	assert.Equal(t, 1.0, v.(*DoubleVector).At(0))

	_, _, ok = local.Lookup("x", false)
	assert.False(t, ok)
}

func TestLookupFunctionSkipsValues(t *testing.T) {
	_, global, local := newTestChain()
	fn := &Closure{Env: global}
	require.NoError(t, global.Bind("f", fn))
	require.NoError(t, local.Bind("f", Dbl(3)))

	got, err := local.LookupFunction("f", nil)
	require.NoError(t, err)
	assert.Same(t, fn, got)

	_, err = local.LookupFunction("g", nil)
	require.Error(t, err)
	assert.Equal(t, `Error: could not find function "g"`, err.Error())
}

func TestLookupFunctionForcesPromise(t *testing.T) {
	_, global, local := newTestChain()
	fn := &Closure{Env: global}
	calls := 0
	eval := func(ast.Expression, *Environment) (Value, error) {
		calls++
		return fn, nil
	}
	require.NoError(t, local.Bind("f", NewPromise(nil, global)))
	got, err := local.LookupFunction("f", eval)
	require.NoError(t, err)
	assert.Same(t, fn, got)
	assert.Equal(t, 1, calls)
}

func TestEmptyEnvironmentRejectsBindings(t *testing.T) {
	empty, _, _ := newTestChain()
	err := empty.Bind("x", Dbl(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot assign values in the empty environment")
}

func TestLockedEnvironment(t *testing.T) {
	_, global, _ := newTestChain()
	require.NoError(t, global.Bind("a", Dbl(1)))
	global.Lock(false)

	err := global.Bind("b", Dbl(2))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot add bindings to a locked environment")

	// existing bindings stay writable
	require.NoError(t, global.Bind("a", Dbl(5)))

	err = global.Unbind("a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot remove bindings from a locked environment")
}

func TestLockedBinding(t *testing.T) {
	_, global, _ := newTestChain()
	require.NoError(t, global.Bind("a", Dbl(1)))
	require.NoError(t, global.LockBinding("a"))

	locked, err := global.BindingIsLocked("a")
	require.NoError(t, err)
	assert.True(t, locked)

	err = global.Bind("a", Dbl(2))
	require.Error(t, err)
	assert.True(t, errors.Is(err, &diagnostics.Error{Code: diagnostics.ErrR004}))
	assert.Contains(t, err.Error(), "cannot change value of locked binding for 'a'")

	require.NoError(t, global.UnlockBinding("a"))
	require.NoError(t, global.Bind("a", Dbl(2)))
}

func TestLockBindingOfUnboundName(t *testing.T) {
	_, global, _ := newTestChain()
	err := global.LockBinding("missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, &diagnostics.Error{Code: diagnostics.ErrR008}))
	assert.False(t, errors.Is(err, &diagnostics.Error{Code: diagnostics.ErrR004}))
	assert.Contains(t, err.Error(), `no binding for "missing"`)

	_, err = global.BindingIsLocked("missing")
	require.Error(t, err)
}

func TestUnbind(t *testing.T) {
	_, global, _ := newTestChain()
	require.NoError(t, global.Bind("a", Dbl(1)))
	require.NoError(t, global.Unbind("a"))
	assert.False(t, global.Has("a"))

	err := global.Unbind("a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "object 'a' not found")
}

func TestAssignSuper(t *testing.T) {
	_, global, outer := newTestChain()
	inner := NewEnvironment(outer)
	require.NoError(t, outer.Bind("n", Dbl(1)))

	require.NoError(t, inner.AssignSuper("n", Dbl(2), global))
	v, _ := outer.Get("n")
	assert.Equal(t, 2.0, v.(*DoubleVector).At(0))
	assert.False(t, inner.Has("n"))

	require.NoError(t, inner.AssignSuper("fresh", Dbl(3), global))
	assert.True(t, global.Has("fresh"))
}

func TestListBindings(t *testing.T) {
	_, global, _ := newTestChain()
	for _, n := range []string{"beta", "alpha", ".hidden", "gamma"} {
		require.NoError(t, global.Bind(n, Null))
	}
	assert.Equal(t, []string{"alpha", "beta", "gamma"}, global.ListBindings(false, nil, true))
	assert.Equal(t, []string{".hidden", "alpha", "beta", "gamma"}, global.ListBindings(true, nil, true))
	assert.Equal(t, []string{"alpha", "gamma"}, global.ListBindings(false, regexp.MustCompile("^[ag]"), true))
	assert.Equal(t, []string{"alpha", "beta", "gamma"}, global.ListBindings(false, regexp.MustCompile("a$"), true))
}

func TestBindMarksShared(t *testing.T) {
	_, global, _ := newTestChain()
	x := NewDoubles(1, 2, 3)
	assert.Equal(t, Unshared, x.Share())
	require.NoError(t, global.Bind("x", x))
	assert.Equal(t, MaybeShared, x.Share())
	require.NoError(t, global.Bind("y", x))
	assert.Equal(t, Shared, x.Share())

	// rebinding the same object does not count as a new owner
	y := NewDoubles(1)
	require.NoError(t, global.Bind("z", y))
	require.NoError(t, global.Bind("z", y))
	assert.Equal(t, MaybeShared, y.Share())
}
