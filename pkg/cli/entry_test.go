package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funvibe/rcore/internal/evaluator"
	"github.com/funvibe/rcore/internal/value"
)

func run(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	var out, errOut bytes.Buffer
	no := false
	code := Run(args, IO{
		Stdin:       strings.NewReader(stdin),
		Stdout:      &out,
		Stderr:      &errOut,
		Getenv:      func(string) string { return "" },
		Interactive: &no,
	})
	return code, out.String(), errOut.String()
}

func TestVersion(t *testing.T) {
	code, out, _ := run(t, "", "--version")
	assert.Equal(t, ExitOK, code)
	assert.True(t, strings.HasPrefix(out, "rcore "))
}

func TestEvalFlag(t *testing.T) {
	code, out, errOut := run(t, "", "-e", "x <- 1:3", "-e", "x * 2L")
	assert.Equal(t, ExitOK, code, errOut)
	assert.Equal(t, "[1] 2 4 6\n", out)
}

func TestLanguageErrorExitsWithOne(t *testing.T) {
	code, out, errOut := run(t, "", "-e", `1; stop("bad input")`)
	assert.Equal(t, ExitError, code)
	assert.Equal(t, "[1] 1\n", out)
	assert.Contains(t, errOut, "bad input")
}

func TestParseErrorExitsWithOne(t *testing.T) {
	code, out, errOut := run(t, "", "-e", "1 +")
	assert.Equal(t, ExitError, code)
	assert.Empty(t, out)
	assert.Contains(t, errOut, "unexpected end of input")
}

func TestRunFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "script.R")
	require.NoError(t, os.WriteFile(path, []byte("f <- function(x) x + 1\nf(41)\n"), 0o644))

	code, out, errOut := run(t, "", path)
	assert.Equal(t, ExitOK, code, errOut)
	assert.Equal(t, "[1] 42\n", out)

	code, _, errOut = run(t, "", filepath.Join(dir, "missing.R"))
	assert.Equal(t, ExitError, code)
	assert.Contains(t, errOut, "cannot open file")
}

func TestScriptFromStdin(t *testing.T) {
	code, out, _ := run(t, "y <- 5\ny + 1\n")
	assert.Equal(t, ExitOK, code)
	assert.Equal(t, "[1] 6\n", out)
}

func TestWarningsGoToStderr(t *testing.T) {
	code, out, errOut := run(t, "", "-e", "1:3 + c(10, 20)")
	assert.Equal(t, ExitOK, code)
	assert.Equal(t, "[1] 11 22 13\n", out)
	assert.Contains(t, errOut, "longer object length is not a multiple of shorter object length")
}

func TestREPLContinuesAfterErrors(t *testing.T) {
	var out, errOut bytes.Buffer
	ctx, err := newContext("", IO{Stdout: &out, Stderr: &errOut, Getenv: func(string) string { return "" }})
	require.NoError(t, err)
	defer ctx.Destroy()

	input := "f <- function(x) {\n  x * 2\n}\nstop('oops')\nf(21)\n"
	code := runREPL(ctx, IO{Stdin: strings.NewReader(input), Stdout: &out, Stderr: &errOut}, true)
	assert.Equal(t, ExitOK, code)
	assert.Contains(t, errOut.String(), "oops")
	assert.Equal(t, "> + + > > [1] 42\n> \n", out.String())
}

func TestIncomplete(t *testing.T) {
	assert.True(t, incomplete("f <- function(x) {\n"))
	assert.True(t, incomplete("x <- \"abc"))
	assert.False(t, incomplete("1 + 1\n"))
	assert.False(t, incomplete(") 1"))
}

func TestConfigFlag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rcore.yaml")
	require.NoError(t, os.WriteFile(path, []byte("warnings: sometimes\n"), 0o644))
	code, _, errOut := run(t, "", "-config", path, "-e", "1")
	assert.Equal(t, ExitError, code)
	assert.Contains(t, errOut, "sometimes")
}

func registerBrokenRoutine(t *testing.T) {
	t.Helper()
	evaluator.ClearExtBuiltins()
	t.Cleanup(evaluator.ClearExtBuiltins)
	evaluator.RegisterExtBuiltins("broken", map[string]evaluator.NativeRoutine{
		"explode": {Arity: 0, Fn: func([]value.Value) (value.Value, error) {
			panic("routine state corrupted")
		}},
	})
}

func TestInternalErrorExitsWithTwo(t *testing.T) {
	registerBrokenRoutine(t)

	code, out, errOut := run(t, "", "-e", `cat("start\n"); .Call("explode"); cat("unreachable\n")`)
	assert.Equal(t, ExitInternal, code)
	assert.Equal(t, "start\n", out)
	assert.Contains(t, errOut, "Internal error: routine state corrupted")
}

func TestREPLReportsInternalErrors(t *testing.T) {
	registerBrokenRoutine(t)

	var out, errOut bytes.Buffer
	ctx, err := newContext("", IO{Stdout: &out, Stderr: &errOut, Getenv: func(string) string { return "" }})
	require.NoError(t, err)
	defer ctx.Destroy()

	code := runREPL(ctx, IO{Stdin: strings.NewReader(".Call(\"explode\")\n1 + 1\n"), Stdout: &out, Stderr: &errOut}, false)
	assert.Equal(t, ExitInternal, code)
	assert.Contains(t, errOut.String(), "routine state corrupted")
	assert.Equal(t, "[1] 2\n", out.String())
}
