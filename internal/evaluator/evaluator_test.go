package evaluator

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funvibe/rcore/internal/diagnostics"
	"github.com/funvibe/rcore/internal/parser"
	"github.com/funvibe/rcore/internal/value"
)

func newTestEvaluator() (*Evaluator, *bytes.Buffer) {
	e := New(nil)
	var out bytes.Buffer
	e.Out = &out
	e.ErrOut = &out
	return e, &out
}

func run(t *testing.T, e *Evaluator, src string) (value.Value, error) {
	t.Helper()
	prog, err := parser.Parse(src)
	require.NoError(t, err)
	return e.EvalProgram(prog, false)
}

func eval(t *testing.T, src string) value.Value {
	t.Helper()
	e, _ := newTestEvaluator()
	v, err := run(t, e, src)
	require.NoError(t, err)
	return v
}

func evalErr(t *testing.T, src string) *diagnostics.Error {
	t.Helper()
	e, _ := newTestEvaluator()
	_, err := run(t, e, src)
	require.Error(t, err)
	var de *diagnostics.Error
	require.ErrorAs(t, err, &de)
	return de
}

func doublesOfValue(t *testing.T, v value.Value) []float64 {
	t.Helper()
	d, ok := v.(*value.DoubleVector)
	require.True(t, ok, "got %T", v)
	return d.Data()
}

func intsOfValue(t *testing.T, v value.Value) []int32 {
	t.Helper()
	d, ok := v.(*value.IntegerVector)
	require.True(t, ok, "got %T", v)
	return d.Data()
}

func stringsOfValue(t *testing.T, v value.Value) []string {
	t.Helper()
	d, ok := v.(*value.CharacterVector)
	require.True(t, ok, "got %T", v)
	return d.Data()
}

func logicalsOfValue(t *testing.T, v value.Value) []value.Logical {
	t.Helper()
	d, ok := v.(*value.LogicalVector)
	require.True(t, ok, "got %T", v)
	return d.Data()
}

func TestClosureOnIntegerNA(t *testing.T) {
	v := eval(t, "f <- function(x) x + 1; f(NA_integer_)")
	// Integer NA plus a double is double NA.
	d := doublesOfValue(t, v)
	require.Len(t, d, 1)
	assert.True(t, value.IsNADouble(d[0]))

	v = eval(t, "g <- function(x) x + 1L; g(NA_integer_)")
	assert.Equal(t, []int32{value.NAInteger}, intsOfValue(t, v))
}

func TestRecyclingWarns(t *testing.T) {
	e, _ := newTestEvaluator()
	v, err := run(t, e, "1:3 + c(10, 20)")
	require.NoError(t, err)
	assert.Equal(t, []float64{11, 22, 13}, doublesOfValue(t, v))

	ws := e.DrainWarnings()
	require.Len(t, ws, 1)
	assert.Equal(t, diagnostics.WarnW002, ws[0].Code)
	assert.Equal(t, diagnostics.MsgRecycle, ws[0].Message)
}

func TestCopyOnWrite(t *testing.T) {
	e, _ := newTestEvaluator()
	_, err := run(t, e, "x <- c(1, 2, 3); y <- x; y[1] <- 99")
	require.NoError(t, err)
	x, _ := e.GlobalEnv.Get("x")
	y, _ := e.GlobalEnv.Get("y")
	assert.Equal(t, []float64{1, 2, 3}, doublesOfValue(t, x))
	assert.Equal(t, []float64{99, 2, 3}, doublesOfValue(t, y))

	v := eval(t, "f <- function(v) { v[2] <- 0; v }; a <- c(5, 6); b <- f(a); c(a, b)")
	assert.Equal(t, []float64{5, 6, 5, 0}, doublesOfValue(t, v))
}

func TestLockBindingMissing(t *testing.T) {
	de := evalErr(t, `e <- new.env(); lockBinding("missing", e)`)
	assert.Equal(t, diagnostics.ErrR008, de.Code)
}

func TestLockedEnvironment(t *testing.T) {
	de := evalErr(t, `e <- new.env(); assign("a", 1, envir = e); lockEnvironment(e); assign("b", 2, envir = e)`)
	assert.Equal(t, diagnostics.ErrR003, de.Code)

	de = evalErr(t, `e <- new.env(); assign("a", 1, envir = e); lockBinding("a", e); assign("a", 2, envir = e)`)
	assert.Equal(t, diagnostics.ErrR004, de.Code)

	v := eval(t, `e <- new.env(); assign("a", 1, envir = e); lockEnvironment(e); assign("a", 5, envir = e); get("a", envir = e)`)
	assert.Equal(t, []float64{5}, doublesOfValue(t, v))
}

func TestUnboundVariable(t *testing.T) {
	de := evalErr(t, "nope + 1")
	assert.Equal(t, diagnostics.ErrR002, de.Code)
	assert.Contains(t, de.Message, "nope")
	assert.Equal(t, 1, de.Line)
}

func TestBreakOutsideLoop(t *testing.T) {
	de := evalErr(t, "break")
	assert.Equal(t, diagnostics.ErrR005, de.Code)
}

func TestLoops(t *testing.T) {
	v := eval(t, `
total <- 0
for (i in 1:10) {
  if (i %% 2 == 0) next
  if (i > 7) break
  total <- total + i
}
total`)
	assert.Equal(t, []float64{16}, doublesOfValue(t, v))

	v = eval(t, "n <- 0; while (n < 5) n <- n + 1; n")
	assert.Equal(t, []float64{5}, doublesOfValue(t, v))

	v = eval(t, "k <- 0; repeat { k <- k + 2; if (k >= 6) break }; k")
	assert.Equal(t, []float64{6}, doublesOfValue(t, v))
}

func TestLexicalScoping(t *testing.T) {
	v := eval(t, `
make_adder <- function(n) function(x) x + n
add2 <- make_adder(2)
add2(40)`)
	assert.Equal(t, []float64{42}, doublesOfValue(t, v))

	v = eval(t, `
counter <- local({ i <- 0; function() { i <<- i + 1; i } })
counter(); counter(); counter()`)
	assert.Equal(t, []float64{3}, doublesOfValue(t, v))
}

func TestDefaultAndMissingArguments(t *testing.T) {
	v := eval(t, "f <- function(x, y = x * 2) x + y; f(3)")
	assert.Equal(t, []float64{9}, doublesOfValue(t, v))

	v = eval(t, "f <- function(a, b) missing(b); f(1)")
	assert.Equal(t, []value.Logical{value.True}, logicalsOfValue(t, v))

	de := evalErr(t, "f <- function(x = x) x; f()")
	assert.Equal(t, diagnostics.ErrR006, de.Code)
}

func TestVisibility(t *testing.T) {
	e, out := newTestEvaluator()
	prog, err := parser.Parse("x <- 5\ninvisible(7)\nx\n(y <- 2)")
	require.NoError(t, err)
	_, err = e.EvalProgram(prog, true)
	require.NoError(t, err)
	assert.Equal(t, "[1] 5\n[1] 2\n", out.String())
}

func TestReturnAtTopLevelEndsProgram(t *testing.T) {
	v := eval(t, "f <- function() { return(1); 2 }; f()")
	assert.Equal(t, []float64{1}, doublesOfValue(t, v))
}

func TestCallDepthLimit(t *testing.T) {
	e, _ := newTestEvaluator()
	e.Options.MaxDepth = 50
	_, err := run(t, e, "f <- function(n) f(n + 1); f(1)")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nested too deeply")
}

func TestStateSurvivesErrors(t *testing.T) {
	e, _ := newTestEvaluator()
	_, err := run(t, e, "a <- 1; stop('x')")
	require.Error(t, err)
	assert.Empty(t, e.CallStack)
	v, err := run(t, e, "a + 1")
	require.NoError(t, err)
	assert.Equal(t, []float64{2}, doublesOfValue(t, v))
}

func TestScalarConnectives(t *testing.T) {
	tests := []struct {
		src  string
		want value.Logical
	}{
		{`FALSE && stop("not evaluated")`, value.False},
		{`TRUE || stop("not evaluated")`, value.True},
		{"TRUE && FALSE", value.False},
		{"FALSE || TRUE", value.True},
		{"NA && FALSE", value.False},
		{"NA || TRUE", value.True},
		{"NA && TRUE", value.NALogical},
		{"NA || FALSE", value.NALogical},
		{"TRUE && NA", value.NALogical},
		{"1 && 2", value.True},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			assert.Equal(t, []value.Logical{tt.want}, logicalsOfValue(t, eval(t, tt.src)))
		})
	}

	v := eval(t, "n <- 0; f <- function() { n <<- n + 1; TRUE }; FALSE && f(); TRUE || f(); n")
	assert.Equal(t, []float64{0}, doublesOfValue(t, v))

	de := evalErr(t, "c(TRUE, FALSE) && TRUE")
	assert.Equal(t, diagnostics.ErrR007, de.Code)
	assert.Contains(t, de.Message, "length = 2")

	de = evalErr(t, `TRUE && "yes"`)
	assert.Contains(t, de.Message, "invalid 'y' type")
}
