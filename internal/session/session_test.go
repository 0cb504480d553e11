package session

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funvibe/rcore/internal/config"
	"github.com/funvibe/rcore/internal/diagnostics"
	"github.com/funvibe/rcore/internal/value"
)

func newTestContext(t *testing.T, opts *config.Options) (*Context, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	c, err := New(Settings{Options: opts, Out: &out, ErrOut: &out, LogOut: &bytes.Buffer{}})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Destroy() })
	return c, &out
}

func doubles(t *testing.T, v value.Value) []float64 {
	t.Helper()
	d, ok := v.(*value.DoubleVector)
	require.True(t, ok, "got %T", v)
	return d.Data()
}

func TestEvaluateKeepsGlobalState(t *testing.T) {
	c, out := newTestContext(t, nil)

	_, err := c.Evaluate("x <- 2")
	require.NoError(t, err)
	v, err := c.Evaluate("x * 21")
	require.NoError(t, err)
	assert.Equal(t, []float64{42}, doubles(t, v))
	assert.Empty(t, out.String())
}

func TestRunPrintsVisibleValues(t *testing.T) {
	c, out := newTestContext(t, nil)

	_, err := c.Run("y <- 1\n1 + 2\ninvisible(5)", "")
	require.NoError(t, err)
	assert.Equal(t, "[1] 3\n", out.String())
}

func TestEvaluateErrors(t *testing.T) {
	c, _ := newTestContext(t, nil)

	_, err := c.Evaluate(`stop("boom")`)
	var de *diagnostics.Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "boom", de.Message)

	_, err = c.Evaluate("1 +")
	require.ErrorAs(t, err, &de)
	assert.Equal(t, diagnostics.ErrorCode("P003"), de.Code)

	// The context stays usable after a failure.
	v, err := c.Evaluate("1")
	require.NoError(t, err)
	assert.Equal(t, []float64{1}, doubles(t, v))
}

func TestDeferredWarningsAreCollected(t *testing.T) {
	c, _ := newTestContext(t, nil)

	_, err := c.Evaluate(`warning("careful"); 1`)
	require.NoError(t, err)
	ws := c.Warnings()
	require.Len(t, ws, 1)
	assert.Equal(t, "careful", ws[0].Message)
	assert.Empty(t, c.Warnings())
}

func TestProfilesAreLoaded(t *testing.T) {
	dir := t.TempDir()
	profile := filepath.Join(dir, "profile.R")
	require.NoError(t, os.WriteFile(profile, []byte("answer <- 42\n"), 0o644))

	opts := config.Default()
	opts.Profiles = []string{profile}
	c, _ := newTestContext(t, opts)

	v, err := c.Evaluate("answer")
	require.NoError(t, err)
	assert.Equal(t, []float64{42}, doubles(t, v))
}

func TestMissingProfileFails(t *testing.T) {
	opts := config.Default()
	opts.Profiles = []string{filepath.Join(t.TempDir(), "missing.R")}
	_, err := New(Settings{Options: opts, Out: &bytes.Buffer{}, ErrOut: &bytes.Buffer{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.R")
}

func TestDestroyRunsHooksInReverse(t *testing.T) {
	c, _ := newTestContext(t, nil)

	var order []string
	c.AddCleanup("first", func() error { order = append(order, "first"); return nil })
	c.AddCleanup("second", func() error { order = append(order, "second"); return errors.New("disk gone") })
	c.AddCleanup("third", func() error { order = append(order, "third"); panic("bad hook") })

	err := c.Destroy()
	require.Error(t, err)
	assert.Equal(t, []string{"third", "second", "first"}, order)
	assert.Contains(t, err.Error(), "second: disk gone")
	assert.Contains(t, err.Error(), "third: panic: bad hook")

	assert.NoError(t, c.Destroy())
	assert.True(t, c.Destroyed())

	_, err = c.Evaluate("1")
	assert.ErrorIs(t, err, ErrDestroyed)
	_, err = c.Spawn([]string{"1"})
	assert.ErrorIs(t, err, ErrDestroyed)
}

func TestSpawnAndJoin(t *testing.T) {
	c, _ := newTestContext(t, nil)
	_, err := c.Evaluate("hidden <- 1")
	require.NoError(t, err)

	ids, err := c.Spawn([]string{"1 + 1", "x <- 3; x * 2", `exists("hidden")`})
	require.NoError(t, err)
	require.Len(t, ids, 3)
	assert.NotEqual(t, ids[0], ids[1])

	vals, err := c.Join(ids)
	require.NoError(t, err)
	assert.Equal(t, []float64{2}, doubles(t, vals[0]))
	assert.Equal(t, []float64{6}, doubles(t, vals[1]))
	assert.Equal(t, []value.Logical{value.False}, vals[2].(*value.LogicalVector).Data())

	// Joined children are forgotten.
	_, err = c.Join(ids[:1])
	require.Error(t, err)
}

func TestJoinReportsChildFailure(t *testing.T) {
	c, _ := newTestContext(t, nil)

	ids, err := c.Spawn([]string{"1", `stop("child failed")`})
	require.NoError(t, err)
	_, err = c.Join(ids)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "child failed")
	assert.Contains(t, err.Error(), ids[1])
}

func TestChannelsAreSharedWithChildren(t *testing.T) {
	c, _ := newTestContext(t, nil)

	v, err := c.Evaluate(strings.Join([]string{
		`ch <- channel.create("results")`,
		`ids <- context.spawn("channel.send(channel.get(\"results\"), 40 + 2)")`,
		`v <- channel.receive(ch)`,
		`context.join(ids)`,
		`v`,
	}, "\n"))
	require.NoError(t, err)
	assert.Equal(t, []float64{42}, doubles(t, v))
}

func TestEvalInUsesFreshChild(t *testing.T) {
	c, _ := newTestContext(t, nil)
	_, err := c.Evaluate("x <- 10")
	require.NoError(t, err)

	v, err := c.EvalIn(`exists("x")`)
	require.NoError(t, err)
	assert.Equal(t, []value.Logical{value.False}, v.(*value.LogicalVector).Data())

	v, err = c.Evaluate(`context.eval("2 * 21")`)
	require.NoError(t, err)
	assert.Equal(t, []float64{42}, doubles(t, v))
}

func TestChildResultsAreCopies(t *testing.T) {
	c, _ := newTestContext(t, nil)

	v, err := c.Evaluate(`x <- context.eval("c(a = 1, b = NA)"); x[1] <- 5; x`)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, value.Names(v).Data())
	assert.Equal(t, 5.0, doubles(t, v)[0])

	tests := []string{
		`context.eval("secret <- 42; function() { secret <<- secret + 1; secret }")`,
		`context.eval("environment()")`,
		`context.join(context.spawn("new.env()"))`,
		`context.eval("list(1, function() 2)")`,
	}
	for _, src := range tests {
		t.Run(src, func(t *testing.T) {
			_, err := c.Evaluate(src)
			var de *diagnostics.Error
			require.ErrorAs(t, err, &de)
			assert.Equal(t, diagnostics.ErrR007, de.Code)
			assert.Contains(t, de.Message, "cannot be transferred")
		})
	}

	v, err = c.EvalIn(`list(n = 1:2, s = "x")`)
	require.NoError(t, err)
	l, ok := v.(*value.List)
	require.True(t, ok, "got %T", v)
	assert.Equal(t, []int32{1, 2}, l.At(0).(*value.IntegerVector).Data())
}

func TestDestroyStopsUnjoinedChildren(t *testing.T) {
	c, _ := newTestContext(t, nil)
	_, err := c.Evaluate(`ch <- channel.create("never")`)
	require.NoError(t, err)

	ids, err := c.Spawn([]string{
		"repeat { x <- 1 }",
		`channel.receive(channel.get("never"))`,
	})
	require.NoError(t, err)
	require.Len(t, ids, 2)

	require.NoError(t, c.Destroy())
	assert.Error(t, c.Eval.Context.Err())
	assert.Empty(t, c.children)
}

func TestSpawnWithCopiesBindings(t *testing.T) {
	c, _ := newTestContext(t, nil)
	x := value.NewDoubles(1, 2, 3)

	id, err := c.SpawnWith("x[1] <- 10; sum(x)", map[string]value.Value{"x": x})
	require.NoError(t, err)
	vals, err := c.Join([]string{id})
	require.NoError(t, err)
	assert.Equal(t, []float64{15}, doubles(t, vals[0]))
	assert.Equal(t, []float64{1, 2, 3}, x.Data())

	_, err = c.Evaluate("f <- function() 1")
	require.NoError(t, err)
	f, _ := c.Eval.GlobalEnv.Get("f")
	_, err = c.SpawnWith("f()", map[string]value.Value{"f": f})
	var de *diagnostics.Error
	require.ErrorAs(t, err, &de)
	assert.Contains(t, de.Message, "binding 'f' cannot be transferred")
	assert.Empty(t, c.children)
}

func TestParallelMapAndReduce(t *testing.T) {
	c, _ := newTestContext(t, nil)

	v, err := c.Evaluate("parallel.map(1:10, function(x) x^2, threads = 3)")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 4, 9, 16, 25, 36, 49, 64, 81, 100}, doubles(t, v))

	v, err = c.Evaluate(`parallel.map(c(a = 1, b = 2, c = 3), function(x, k) x * k, 2:1, threads = 2)`)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 2, 6}, doubles(t, v))
	assert.Equal(t, []string{"a", "b", "c"}, value.Names(v).Data())

	v, err = c.Evaluate("parallel.map(c(4, 9), sqrt, threads = 4)")
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 3}, doubles(t, v))

	v, err = c.Evaluate("parallel.reduce(1:100, function(a, b) a + b, 0, threads = 4)")
	require.NoError(t, err)
	assert.Equal(t, []float64{5050}, doubles(t, v))

	v, err = c.Evaluate(`parallel.reduce(c("a", "b", "c", "d"), function(a, b) paste0(a, b), "", threads = 3)`)
	require.NoError(t, err)
	assert.Equal(t, []string{"abcd"}, v.(*value.CharacterVector).Data())
}

func TestParallelFutures(t *testing.T) {
	c, _ := newTestContext(t, nil)

	v, err := c.Evaluate(strings.Join([]string{
		`fut <- parallel.future(1:6, function(x) x + 1L, threads = 2)`,
		`before <- class(fut)`,
		`parallel.get(fut)`,
	}, "\n"))
	require.NoError(t, err)
	assert.Equal(t, []int32{2, 3, 4, 5, 6, 7}, v.(*value.IntegerVector).Data())
	cls, _ := c.Eval.GlobalEnv.Get("before")
	assert.Equal(t, []string{"parallel.future"}, cls.(*value.CharacterVector).Data())

	_, err = c.Evaluate("parallel.get(fut)")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already been collected")
}

func TestParallelMapErrors(t *testing.T) {
	c, _ := newTestContext(t, nil)

	_, err := c.Evaluate(`parallel.map(1:4, function(x) if (x == 3) stop("bad element") else x, threads = 2)`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad element")

	// Children only see what they are given.
	_, err = c.Evaluate(`offset <- 1; parallel.map(1:4, function(x) x + offset, threads = 2)`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "offset")
	assert.Empty(t, c.children)
}

func TestInterruptCancelsReceive(t *testing.T) {
	c, _ := newTestContext(t, nil)
	_, err := c.Evaluate(`ch <- channel.create("idle")`)
	require.NoError(t, err)

	c.Interrupt()
	_, err = c.Evaluate("channel.receive(ch)")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cancelled")
}

func TestInstrumentationBus(t *testing.T) {
	opts := config.Default()
	opts.Instrumentation = true
	c, _ := newTestContext(t, opts)
	assert.NotNil(t, c.Bus())

	plain, _ := newTestContext(t, nil)
	assert.Nil(t, plain.Bus())
}
