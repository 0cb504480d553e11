package evaluator

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/funvibe/rcore/internal/coerce"
	"github.com/funvibe/rcore/internal/diagnostics"
	"github.com/funvibe/rcore/internal/parser"
	"github.com/funvibe/rcore/internal/prettyprinter"
	"github.com/funvibe/rcore/internal/utils"
	"github.com/funvibe/rcore/internal/value"
)

// IOBuiltins returns printing, file and process environment functions.
func IOBuiltins() map[string]*Builtin {
	return map[string]*Builtin{
		"print":       {Fn: builtinPrint, Invisible: true},
		"cat":         {Fn: builtinCat, Invisible: true},
		"message":     {Fn: builtinMessage, Invisible: true},
		"invisible":   {Fn: builtinInvisible, Invisible: true},
		"source":      {Fn: builtinSource, Invisible: true},
		"interactive": {Fn: func(e *Evaluator, _ *Args) (value.Value, error) { return value.Bool(e.Interactive), nil }},
		"Sys.getenv":  {Fn: builtinSysGetenv},
		"Sys.setenv":  {Fn: builtinSysSetenv, Invisible: true},
		"readLines":   {Fn: builtinReadLines},
		"writeLines":  {Fn: builtinWriteLines, Invisible: true},
		"file.exists": {Fn: builtinFileExists},
	}
}

func builtinPrint(e *Evaluator, args *Args) (value.Value, error) {
	m, _, err := args.Match("x", "...")
	if err != nil {
		return nil, err
	}
	x := argOr(m[0], value.Null)
	if v, ok, err := e.dispatchInternal("print", x, args.List, args.Call, args.Env); ok || err != nil {
		return v, err
	}
	return builtinPrintDefault(e, args)
}

// resolvePath interprets a relative path against BaseDir.
func (e *Evaluator) resolvePath(path string) string {
	return utils.ResolveSourcePath(e.BaseDir, path)
}

// outputFile opens the file argument of cat and writeLines. The empty name is the
// evaluator's output.
func (e *Evaluator) outputFile(name string, appendTo bool) (io.Writer, func() error, error) {
	if name == "" {
		return e.Out, func() error { return nil }, nil
	}
	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if appendTo {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	f, err := os.OpenFile(e.resolvePath(name), flags, 0o644)
	if err != nil {
		return nil, nil, diagnostics.Errorf(diagnostics.ErrR001, "cannot open file '%s': %v", name, err)
	}
	return f, f.Close, nil
}

func builtinCat(e *Evaluator, args *Args) (value.Value, error) {
	m, rest, err := args.Match("...", "file", "sep", "fill", "append")
	if err != nil {
		return nil, err
	}
	sep := " "
	if supplied(m[2]) {
		if sep, err = coerce.AsStringScalar(m[2], "sep"); err != nil {
			return nil, err
		}
	}
	file := ""
	if supplied(m[1]) {
		if file, err = coerce.AsStringScalar(m[1], "file"); err != nil {
			return nil, err
		}
	}
	appendTo, err := flagArg(m[4], "append", false)
	if err != nil {
		return nil, err
	}
	var items []string
	for i, a := range rest {
		strs, err := catItems(a.Value)
		if err != nil {
			return nil, diagnostics.Errorf(diagnostics.ErrR007, "argument %d (type '%s') cannot be handled by 'cat'", i+1, a.Value.Kind())
		}
		items = append(items, strs...)
	}
	var sb strings.Builder
	for i, s := range items {
		if i > 0 {
			sb.WriteString(sep)
		}
		sb.WriteString(s)
	}
	fill, err := flagArg(m[3], "fill", false)
	if err != nil {
		return nil, err
	}
	if fill && sb.Len() > 0 && !strings.HasSuffix(sb.String(), "\n") {
		sb.WriteByte('\n')
	}
	w, closeFn, err := e.outputFile(file, appendTo)
	if err != nil {
		return nil, err
	}
	if _, err := io.WriteString(w, sb.String()); err != nil {
		_ = closeFn()
		return nil, diagnostics.Errorf(diagnostics.ErrR001, "%v", err)
	}
	if err := closeFn(); err != nil {
		return nil, diagnostics.Errorf(diagnostics.ErrR001, "%v", err)
	}
	return value.Null, nil
}

func catItems(v value.Value) ([]string, error) {
	if value.IsNull(v) {
		return nil, nil
	}
	if f, ok := v.(*value.IntegerVector); ok && value.IsFactor(f) {
		return prettyprinter.Cat(stripped(f))
	}
	return prettyprinter.Cat(v)
}

func builtinMessage(e *Evaluator, args *Args) (value.Value, error) {
	m, rest, err := args.Match("...", "domain", "appendLF")
	if err != nil {
		return nil, err
	}
	appendLF, err := flagArg(m[2], "appendLF", true)
	if err != nil {
		return nil, err
	}
	parts, err := messageParts(rest)
	if err != nil {
		return nil, err
	}
	text := strings.Join(parts, "")
	if appendLF {
		text += "\n"
	}
	e.signalMessage(text)
	return value.Null, nil
}

func builtinInvisible(e *Evaluator, args *Args) (value.Value, error) {
	m, _, err := args.Match("x")
	if err != nil {
		return nil, err
	}
	return argOr(m[0], value.Null), nil
}

// builtinSource evaluates a file in the global environment, or in the calling
// environment when local is TRUE.
func builtinSource(e *Evaluator, args *Args) (value.Value, error) {
	m, _, err := args.Match("file", "local", "echo")
	if err != nil {
		return nil, err
	}
	name, err := coerce.AsStringScalar(argOr(m[0], value.Null), "file")
	if err != nil {
		return nil, err
	}
	env := e.GlobalEnv
	switch l := argOr(m[1], value.Null).(type) {
	case *value.Environment:
		env = l
	case *value.LogicalVector:
		local, err := coerce.AsLogicalFlag(l, "local")
		if err != nil {
			return nil, err
		}
		if local {
			env = args.Env
		}
	}
	path := e.resolvePath(name)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, diagnostics.Errorf(diagnostics.ErrR001, "cannot open file '%s': No such file or directory", name)
	}
	prog, err := parser.Parse(string(data))
	if err != nil {
		if de, ok := err.(*diagnostics.Error); ok {
			de.File = path
		}
		return nil, err
	}
	e.Logger.Debug().Str("file", path).Int("expressions", len(prog.Expressions)).Msg("source")
	saved := e.CurrentFile
	e.CurrentFile = path
	defer func() { e.CurrentFile = saved }()
	var result value.Value = value.Null
	for _, expr := range prog.Expressions {
		if result, err = e.Eval(expr, env); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func builtinSysGetenv(e *Evaluator, args *Args) (value.Value, error) {
	m, _, err := args.Match("x", "unset")
	if err != nil {
		return nil, err
	}
	unset := ""
	if supplied(m[1]) {
		if unset, err = coerce.AsStringScalar(m[1], "unset"); err != nil {
			return nil, err
		}
	}
	if !supplied(m[0]) {
		env := os.Environ()
		names := make([]string, len(env))
		vals := make([]string, len(env))
		for i, kv := range env {
			names[i], vals[i], _ = strings.Cut(kv, "=")
		}
		out := value.NewStrings(vals...)
		_ = value.SetAttr(out, value.AttrNames, value.NewStrings(names...))
		return out, nil
	}
	keys, err := coerce.AsStrings(m[0])
	if err != nil {
		return nil, err
	}
	out := make([]string, len(keys))
	for i, k := range keys {
		v, ok := os.LookupEnv(k)
		if !ok {
			v = unset
		}
		out[i] = v
	}
	return value.NewStrings(out...), nil
}

func builtinSysSetenv(e *Evaluator, args *Args) (value.Value, error) {
	out := make([]value.Logical, len(args.List))
	for i, a := range args.List {
		if a.Name == "" {
			return nil, diagnostics.Errorf(diagnostics.ErrR007, "all arguments must be named")
		}
		v, err := coerce.AsStringScalar(a.Value, a.Name)
		if err != nil {
			return nil, err
		}
		out[i] = value.LogicalOf(os.Setenv(a.Name, v) == nil)
	}
	return value.NewLogical(out, true), nil
}

func builtinReadLines(e *Evaluator, args *Args) (value.Value, error) {
	m, _, err := args.Match("con", "n")
	if err != nil {
		return nil, err
	}
	name, err := coerce.AsStringScalar(argOr(m[0], value.Null), "con")
	if err != nil {
		return nil, err
	}
	n := -1
	if supplied(m[1]) {
		if n, err = coerce.AsIntegerScalar(m[1], "n", e.warnerAt(args.Call)); err != nil {
			return nil, err
		}
	}
	f, err := os.Open(e.resolvePath(name))
	if err != nil {
		return nil, diagnostics.Errorf(diagnostics.ErrR001, "cannot open file '%s': No such file or directory", name)
	}
	defer f.Close()
	var lines []string
	sc := bufio.NewScanner(f)
	for (n < 0 || len(lines) < n) && sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, diagnostics.Errorf(diagnostics.ErrR001, "reading '%s': %v", name, err)
	}
	return value.NewStrings(lines...), nil
}

func builtinWriteLines(e *Evaluator, args *Args) (value.Value, error) {
	m, _, err := args.Match("text", "con", "sep")
	if err != nil {
		return nil, err
	}
	lines, err := coerce.AsStrings(argOr(m[0], value.NewStrings()))
	if err != nil {
		return nil, err
	}
	sep := "\n"
	if supplied(m[2]) {
		if sep, err = coerce.AsStringScalar(m[2], "sep"); err != nil {
			return nil, err
		}
	}
	file := ""
	if supplied(m[1]) {
		if file, err = coerce.AsStringScalar(m[1], "con"); err != nil {
			return nil, err
		}
	}
	w, closeFn, err := e.outputFile(file, false)
	if err != nil {
		return nil, err
	}
	var sb strings.Builder
	for _, l := range lines {
		if l == value.NAString {
			l = "NA"
		}
		sb.WriteString(l)
		sb.WriteString(sep)
	}
	if _, err := io.WriteString(w, sb.String()); err != nil {
		_ = closeFn()
		return nil, diagnostics.Errorf(diagnostics.ErrR001, "%v", err)
	}
	if err := closeFn(); err != nil {
		return nil, diagnostics.Errorf(diagnostics.ErrR001, "%v", err)
	}
	return value.Null, nil
}

func builtinFileExists(e *Evaluator, args *Args) (value.Value, error) {
	var paths []string
	for _, a := range args.List {
		strs, err := coerce.AsStrings(a.Value)
		if err != nil {
			return nil, diagnostics.Errorf(diagnostics.ErrR007, "invalid 'file' argument")
		}
		paths = append(paths, strs...)
	}
	out := make([]value.Logical, len(paths))
	for i, p := range paths {
		_, err := os.Stat(e.resolvePath(p))
		out[i] = value.LogicalOf(err == nil)
	}
	return value.NewLogical(out, true), nil
}
