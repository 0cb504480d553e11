package evaluator

import (
	"errors"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funvibe/rcore/internal/diagnostics"
	"github.com/funvibe/rcore/internal/parser"
	"github.com/funvibe/rcore/internal/value"
)

func TestStatsBuiltins(t *testing.T) {
	tests := []struct {
		src  string
		want []float64
	}{
		{"mean(c(1, 2, 3, 4))", []float64{2.5}},
		{"var(c(1, 2, 3, 4))", []float64{5.0 / 3}},
		{"prod(1:5)", []float64{120}},
		{"range(c(3, 1, 2))", []float64{1, 3}},
		{"cumprod(c(1, 2, 3))", []float64{1, 2, 6}},
		{"sqrt(c(4, 9))", []float64{2, 3}},
		{"round(2.5)", []float64{2}},
		{"round(3.14159, 2)", []float64{3.14}},
		{"signif(123456, 2)", []float64{120000}},
		{"log(8, 2)", []float64{3}},
		{"abs(-2.5)", []float64{2.5}},
		{"rowSums(matrix(1:6, nrow = 2))", []float64{9, 12}},
		{"colMeans(matrix(1:6, nrow = 2))", []float64{1.5, 3.5, 5.5}},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			assert.InDeltaSlice(t, tt.want, doublesOfValue(t, eval(t, tt.src)), 1e-9)
		})
	}
}

func TestSumKeepsIntegers(t *testing.T) {
	assert.Equal(t, []int32{55}, intsOfValue(t, eval(t, "sum(1:10)")))
	assert.Equal(t, []int32{1, 3, 6}, intsOfValue(t, eval(t, "cumsum(1:3)")))
	assert.Equal(t, []int32{2}, intsOfValue(t, eval(t, "which.max(c(1, 5, 2))")))
	assert.Equal(t, []int32{3}, intsOfValue(t, eval(t, "abs(-3L)")))
}

func TestNAHandlingInSummaries(t *testing.T) {
	d := doublesOfValue(t, eval(t, "sum(c(1, NA, 3))"))
	assert.True(t, value.IsNADouble(d[0]))
	assert.Equal(t, []float64{4}, doublesOfValue(t, eval(t, "sum(c(1, NA, 3), na.rm = TRUE)")))
	assert.Equal(t, []float64{2}, doublesOfValue(t, eval(t, "mean(c(1, NA, 3), na.rm = TRUE)")))
}

func TestEmptyExtremumWarns(t *testing.T) {
	e, _ := newTestEvaluator()
	v, err := run(t, e, "max(numeric(0))")
	require.NoError(t, err)
	assert.Equal(t, []float64{math.Inf(-1)}, doublesOfValue(t, v))
	require.Len(t, e.DrainWarnings(), 1)
}

func TestSqrtOfNegativeWarns(t *testing.T) {
	e, _ := newTestEvaluator()
	v, err := run(t, e, "sqrt(-1)")
	require.NoError(t, err)
	assert.True(t, math.IsNaN(doublesOfValue(t, v)[0]))
	ws := e.DrainWarnings()
	require.Len(t, ws, 1)
	assert.Equal(t, diagnostics.WarnW007, ws[0].Code)
}

func TestMatrixBuiltins(t *testing.T) {
	e, _ := newTestEvaluator()
	v, err := run(t, e, "m <- matrix(1:6, nrow = 2, byrow = TRUE); m[2, 3]")
	require.NoError(t, err)
	assert.Equal(t, []int32{6}, intsOfValue(t, v))

	v, err = run(t, e, "dim(t(m))")
	require.NoError(t, err)
	assert.Equal(t, []int32{3, 2}, intsOfValue(t, v))

	v, err = run(t, e, "matrix(c(1, 2, 3, 4), 2) %*% c(1, 1)")
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 6}, doublesOfValue(t, v))

	v, err = run(t, e, "crossprod(matrix(c(1, 2, 3, 4), 2))")
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 11, 11, 25}, doublesOfValue(t, v))
}

func TestOperatorFunctions(t *testing.T) {
	assert.Equal(t, []float64{5}, doublesOfValue(t, eval(t, "`+`(2, 3)")))
	assert.Equal(t, []float64{-2}, doublesOfValue(t, eval(t, "`-`(2)")))
	assert.Equal(t, []int32{1, 2, 3}, intsOfValue(t, eval(t, "`:`(1, 3)")))
	assert.Equal(t, []float64{20}, doublesOfValue(t, eval(t, "`[`(c(10, 20, 30), 2)")))
	assert.Equal(t, []float64{6}, doublesOfValue(t, eval(t, "Reduce(`*`, 1:3, 1)")))
	assert.Equal(t, []value.Logical{value.False, value.True},
		logicalsOfValue(t, eval(t, "sapply(c(1, 5), `>`, 2)")))
}

func TestFormatBuiltins(t *testing.T) {
	tests := []struct {
		src  string
		want []string
	}{
		{`paste("a", 1:2, sep = "-")`, []string{"a-1", "a-2"}},
		{`paste0("x", c("a", "b"), collapse = "+")`, []string{"xa+xb"}},
		{`toupper("MiXed")`, []string{"MIXED"}},
		{`trimws("  pad  ")`, []string{"pad"}},
		{`substr("abcdef", 2, 4)`, []string{"bcd"}},
		{`sub("o", "0", "foo boo")`, []string{"f0o boo"}},
		{`gsub("o", "0", "foo boo")`, []string{"f00 b00"}},
		{`gsub("(\\w+)@(\\w+)", "\\2 at \\1", "user@example")`, []string{"example at user"}},
		{`gsub("(?<=a)b", "X", "abab", perl = TRUE)`, []string{"aXaX"}},
		{`gsub(".", "-", "a.b", fixed = TRUE)`, []string{"a-b"}},
		{`sprintf("%5.2f|%-3s|%d", 3.14159, "x", 7L)`, []string{" 3.14|x  |7"}},
		{`sprintf("%s is %d", c("a", "b"), 1:2)`, []string{"a is 1", "b is 2"}},
		{`format(3.14159, nsmall = 2)`, []string{"3.14159"}},
		{`format(c(1, 10, 100))`, []string{"  1", " 10", "100"}},
		{`toString(1:3)`, []string{"1, 2, 3"}},
		{`strsplit("a,b,c", ",")[[1]]`, []string{"a", "b", "c"}},
		{`grep("b", c("abc", "xyz", "b"), value = TRUE)`, []string{"abc", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			assert.Equal(t, tt.want, stringsOfValue(t, eval(t, tt.src)))
		})
	}
}

func TestStringPredicates(t *testing.T) {
	assert.Equal(t, []int32{3, 0, 2}, intsOfValue(t, eval(t, `nchar(c("abc", "", "de"))`)))
	assert.Equal(t, []value.Logical{value.True, value.False},
		logicalsOfValue(t, eval(t, `grepl("^a", c("apple", "banana"))`)))
	assert.Equal(t, []value.Logical{value.True, value.NALogical},
		logicalsOfValue(t, eval(t, `startsWith(c("prefix", NA), "pre")`)))
}

func TestConditions(t *testing.T) {
	assert.Equal(t, []string{"caught: boom"},
		stringsOfValue(t, eval(t, `tryCatch(stop("boom"), error = function(e) paste("caught:", conditionMessage(e)))`)))
	assert.Equal(t, []string{"careful"},
		stringsOfValue(t, eval(t, `tryCatch(warning("careful"), warning = function(w) conditionMessage(w))`)))
	assert.Equal(t, []float64{1},
		doublesOfValue(t, eval(t, `tryCatch(1, error = function(e) 2, finally = cat(""))`)))

	e, out := newTestEvaluator()
	_, err := run(t, e, `f <- function() { on.exit(cat("bye\n")); stop("inner") }; try(f(), silent = TRUE)`)
	require.NoError(t, err)
	assert.Equal(t, "bye\n", out.String())

	e, _ = newTestEvaluator()
	_, err = run(t, e, `suppressWarnings(as.integer("x"))`)
	require.NoError(t, err)
	assert.Empty(t, e.DrainWarnings())
}

func TestConditionMatchesByClassAndCode(t *testing.T) {
	cond := &Condition{
		Err:     diagnostics.Errorf(diagnostics.ErrR004, "cannot change value of locked binding for 'a'"),
		Classes: errorClasses,
	}
	assert.True(t, cond.HasClass("error"))
	assert.True(t, cond.HasClass("condition"))
	assert.False(t, cond.HasClass("warning"))
	assert.True(t, errors.Is(cond, &diagnostics.Error{Code: diagnostics.ErrR004}))
	assert.False(t, errors.Is(cond, &diagnostics.Error{Code: diagnostics.ErrR003}))
}

func TestSerializeRoundTrip(t *testing.T) {
	v := eval(t, `x <- c(a = 1.5, b = NA); identical(unserialize(serialize(x, NULL)), x)`)
	assert.Equal(t, []value.Logical{value.True}, logicalsOfValue(t, v))

	assert.Equal(t, []string{"hi"}, stringsOfValue(t, eval(t, `rawToChar(charToRaw("hi"))`)))

	de := evalErr(t, `serialize(function(x) x, NULL)`)
	assert.Equal(t, diagnostics.ErrR007, de.Code)
}

func TestChannelsWithinOneEvaluator(t *testing.T) {
	v := eval(t, `
id <- channel.create("q")
channel.send(id, list(a = 1))
channel.send(id, "second")
first <- channel.receive(id)
second <- channel.receive(channel.get("q"))
channel.close(id)
c(first$a, nchar(second))`)
	assert.Equal(t, []float64{1, 6}, doublesOfValue(t, v))

	de := evalErr(t, `channel.get("nothing")`)
	assert.NotEmpty(t, de.Message)
}

func TestContextBuiltinsNeedHost(t *testing.T) {
	de := evalErr(t, `context.spawn("1")`)
	assert.Equal(t, "no evaluation context is available", de.Message)
}

func TestArchiveBuiltins(t *testing.T) {
	file := filepath.Join(t.TempDir(), "store.db")
	e, _ := newTestEvaluator()
	t.Cleanup(func() { _ = e.Archives.CloseAll() })

	require.NoError(t, e.GlobalEnv.Bind("path", value.Str(file)))
	v, err := run(t, e, `
archive.save(c(x = 1, y = 2), "pair", path)
archive.save("hello", "greeting", path)
archive.delete("greeting", path)
got <- archive.load("pair", path)
list(names(got), archive.list(path))`)
	require.NoError(t, err)
	l := v.(*value.List)
	assert.Equal(t, []string{"x", "y"}, stringsOfValue(t, l.At(0)))
	assert.Equal(t, []string{"pair"}, stringsOfValue(t, l.At(1)))

	_, err = run(t, e, `archive.load("greeting", path)`)
	require.Error(t, err)
}

func TestNativeRoutines(t *testing.T) {
	ClearExtBuiltins()
	t.Cleanup(ClearExtBuiltins)
	RegisterExtBuiltins("mathx", map[string]NativeRoutine{
		"twice": {Arity: 1, Fn: func(args []value.Value) (value.Value, error) {
			d := args[0].(*value.DoubleVector).Data()
			out := make([]float64, len(d))
			for i, x := range d {
				out[i] = 2 * x
			}
			return value.NewDoubles(out...), nil
		}},
	})
	assert.Equal(t, []string{"mathx"}, GetAllExtModules())

	e, _ := newTestEvaluator()
	v, err := run(t, e, `.Call("twice", c(1, 2))`)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 4}, doublesOfValue(t, v))

	v, err = run(t, e, `c(is.loaded("twice"), is.loaded("thrice"))`)
	require.NoError(t, err)
	assert.Equal(t, []value.Logical{value.True, value.False}, logicalsOfValue(t, v))

	_, err = run(t, e, `.Call("twice", 1, 2)`)
	require.Error(t, err)
}

func TestExtBuiltinsAreCopied(t *testing.T) {
	ClearExtBuiltins()
	t.Cleanup(ClearExtBuiltins)
	one := func([]value.Value) (value.Value, error) { return value.Dbl(1), nil }
	routines := map[string]NativeRoutine{"one": {Arity: 0, Fn: one}}
	RegisterExtBuiltins("pkg", routines)

	routines["two"] = NativeRoutine{Arity: 0, Fn: one}
	got := GetExtBuiltins("pkg")
	assert.Len(t, got, 1)

	delete(got, "one")
	assert.Contains(t, GetExtBuiltins("pkg"), "one")
	assert.Nil(t, GetExtBuiltins("missing"))
}

func TestFFIRegistryIsPerEvaluator(t *testing.T) {
	e, _ := newTestEvaluator()
	require.NoError(t, e.FFI.Register("one", 0, func([]value.Value) (value.Value, error) { return value.Dbl(1), nil }))
	other, _ := newTestEvaluator()
	assert.NotContains(t, other.FFI.Names(), "one")
}

func TestS3Dispatch(t *testing.T) {
	e, out := newTestEvaluator()
	v, err := run(t, e, `
area <- function(shape, ...) UseMethod("area")
area.square <- function(shape, ...) shape$side^2
area.default <- function(shape, ...) -1
sq <- structure(list(side = 3), class = "square")
c(area(sq), area(42))`)
	require.NoError(t, err)
	assert.Equal(t, []float64{9, -1}, doublesOfValue(t, v))

	v, err = run(t, e, `
describe <- function(x) { UseMethod("describe"); "unreachable" }
describe.numeric <- function(x) "number"
describe.integer <- function(x) paste("integer then", NextMethod())
describe.character <- function(x) "text"
c(describe(1.5), describe(2L), describe("a"))`)
	require.NoError(t, err)
	assert.Equal(t, []string{"number", "integer then number", "text"}, stringsOfValue(t, v))

	v, err = run(t, e, `
speak <- function(x, ...) UseMethod("speak")
speak.animal <- function(x, ...) "..."
speak.dog <- function(x, loud = FALSE, ...) {
  base <- NextMethod()
  if (loud) paste0("WOOF", base) else paste0("woof", base)
}
d <- structure(list(), class = c("dog", "animal"))
c(speak(d), speak(d, loud = TRUE), inherits(d, "animal"))`)
	require.NoError(t, err)
	assert.Equal(t, []string{"woof...", "WOOF...", "TRUE"}, stringsOfValue(t, v))

	_, err = run(t, e, `
print.money <- function(x, ...) { cat("$", unclass(x), "\n"); invisible(x) }
m <- structure(5, class = "money")
print(m)
print.money2 <- function(x, ...) { cat("<money2>\n"); NextMethod() }
print(structure(7, class = "money2"))`)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out.String(), "$ 5 \n<money2>\n[1] 7"), out.String())
}

func TestS3DispatchErrors(t *testing.T) {
	de := evalErr(t, `f <- function(x) UseMethod("f"); f(structure(1, class = c("a", "b")))`)
	assert.Equal(t, `no applicable method for 'f' applied to an object of class "c('a', 'b')"`, de.Message)

	de = evalErr(t, `f <- function(x) UseMethod("f"); f("s")`)
	assert.Equal(t, `no applicable method for 'f' applied to an object of class "character"`, de.Message)

	de = evalErr(t, `UseMethod("f")`)
	assert.Contains(t, de.Message, "outside a function")

	de = evalErr(t, `g <- function() NextMethod(); g()`)
	assert.Contains(t, de.Message, "outside a method dispatch")
}

func TestAutoprintDispatchesOnClass(t *testing.T) {
	e, out := newTestEvaluator()
	prog, err := parser.Parse(`print.temp <- function(x, ...) cat(unclass(x), "degrees\n")
structure(21, class = "temp")
factor(c("a", "b"))`)
	require.NoError(t, err)
	_, err = e.EvalProgram(prog, true)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out.String(), "21 degrees\n"), out.String())
}

func TestParallelBuiltinsInOneThread(t *testing.T) {
	assert.Equal(t, []float64{2, 4, 6, 8}, doublesOfValue(t, eval(t, "parallel.map(1:4, function(x) x * 2)")))

	v := eval(t, "parallel.map(c(a = 1, b = 2), function(x, y) x + y, c(10, 20))")
	assert.Equal(t, []float64{11, 22}, doublesOfValue(t, v))
	assert.Equal(t, []string{"a", "b"}, value.Names(v).Data())

	v = eval(t, `offset <- 100; parallel.map(1:2, function(x) x + offset, threads = 1)`)
	assert.Equal(t, []float64{101, 102}, doublesOfValue(t, v))

	assert.Equal(t, []float64{15}, doublesOfValue(t, eval(t, "parallel.reduce(1:5, function(a, b) a + b, 0)")))
	assert.Equal(t, []float64{7}, doublesOfValue(t, eval(t, "parallel.reduce(integer(0), function(a, b) a + b, 7)")))
	_, ok := eval(t, "parallel.map(integer(0), function(x) x)").(*value.List)
	assert.True(t, ok)
}

func TestParallelBuiltinsErrors(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"parallel.map(1:3, function(x) x, threads = 0)", "invalid 'threads' argument"},
		{"parallel.map(1:3, function(x) x, threads = NA)", "invalid 'threads' argument"},
		{"parallel.map(1:3, function(x) x, threads = 2)", "no evaluation context is available"},
		{"parallel.reduce(1:3, function(a, b) a + b)", `argument "init" is missing`},
		{`parallel.get("abc")`, "'future' must be a value returned by parallel.future"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			assert.Contains(t, evalErr(t, tt.src).Message, tt.want)
		})
	}
}

func TestChunkBounds(t *testing.T) {
	assert.Equal(t, [][2]int{{0, 3}, {3, 6}, {6, 10}}, chunkBounds(10, 3))
	assert.Equal(t, [][2]int{{0, 1}, {1, 2}}, chunkBounds(2, 8))
	assert.Empty(t, chunkBounds(0, 4))
}
