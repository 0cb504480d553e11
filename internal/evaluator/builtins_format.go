package evaluator

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/dlclark/regexp2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/funvibe/rcore/internal/coerce"
	"github.com/funvibe/rcore/internal/diagnostics"
	"github.com/funvibe/rcore/internal/prettyprinter"
	"github.com/funvibe/rcore/internal/value"
)

// FormatBuiltins returns the string functions.
func FormatBuiltins() map[string]*Builtin {
	return map[string]*Builtin{
		"paste":      {Fn: pasteBuiltin(true)},
		"paste0":     {Fn: pasteBuiltin(false)},
		"nchar":      {Fn: builtinNchar},
		"toupper":    {Fn: caseBuiltin(cases.Upper(language.Und))},
		"tolower":    {Fn: caseBuiltin(cases.Lower(language.Und))},
		"trimws":     {Fn: builtinTrimws},
		"substr":     {Fn: builtinSubstr},
		"strsplit":   {Fn: builtinStrsplit},
		"startsWith": {Fn: affixBuiltin(strings.HasPrefix)},
		"endsWith":   {Fn: affixBuiltin(strings.HasSuffix)},
		"grepl":      {Fn: grepBuiltin(true)},
		"grep":       {Fn: grepBuiltin(false)},
		"sub":        {Fn: substituteBuiltin(false)},
		"gsub":       {Fn: substituteBuiltin(true)},
		"sprintf":    {Fn: builtinSprintf},
		"format":     {Fn: builtinFormat},
		"toString":   {Fn: builtinToString},
	}
}

// stringsOf converts an argument to strings the way as.character does, with factor
// labels in place of codes. NA stays the NA sentinel.
func stringsOf(v value.Value) ([]string, error) {
	if f, ok := v.(*value.IntegerVector); ok && value.IsFactor(f) {
		labels, err := factorLabels(f)
		if err != nil {
			return nil, err
		}
		return labels.Data(), nil
	}
	if _, ok := v.(value.Vector); !ok && !value.IsNull(v) {
		if sym, ok := v.(*value.Symbol); ok {
			return []string{sym.Name}, nil
		}
		return nil, diagnostics.Errorf(diagnostics.ErrR007, "cannot coerce type '%s' to vector of type 'character'", v.Kind())
	}
	return coerce.AsStrings(v)
}

func naText(s string) string {
	if s == value.NAString {
		return "NA"
	}
	return s
}

// pasteBuiltin builds paste and paste0. Zero-length arguments are dropped; the rest
// are recycled to the longest.
func pasteBuiltin(withSep bool) BuiltinFunction {
	formals := []string{"...", "collapse"}
	if withSep {
		formals = []string{"...", "collapse", "sep"}
	}
	return func(e *Evaluator, args *Args) (value.Value, error) {
		m, rest, err := args.Match(formals...)
		if err != nil {
			return nil, err
		}
		sep := ""
		if withSep {
			sep = " "
			if supplied(m[2]) {
				if sep, err = coerce.AsStringScalar(m[2], "sep"); err != nil {
					return nil, err
				}
			}
		}
		var cols [][]string
		n := 0
		for _, a := range rest {
			strs, err := stringsOf(a.Value)
			if err != nil {
				return nil, err
			}
			if len(strs) == 0 {
				continue
			}
			cols = append(cols, strs)
			n = max(n, len(strs))
		}
		out := make([]string, n)
		parts := make([]string, len(cols))
		for i := range out {
			for j, c := range cols {
				parts[j] = naText(c[i%len(c)])
			}
			out[i] = strings.Join(parts, sep)
		}
		if supplied(m[1]) && !value.IsNull(m[1]) {
			collapse, err := coerce.AsStringScalar(m[1], "collapse")
			if err != nil {
				return nil, err
			}
			return value.Str(strings.Join(out, collapse)), nil
		}
		return value.NewStrings(out...), nil
	}
}

// keepShape copies names, dim and dimnames from src to dst.
func keepShape(dst value.Vector, src value.Value) value.Vector {
	for _, name := range []string{value.AttrNames, value.AttrDim, value.AttrDimNames} {
		if a := value.GetAttr(src, name); !value.IsNull(a) {
			_ = value.SetAttr(dst, name, a)
		}
	}
	return dst
}

// builtinNchar counts characters. NA strings give NA; other NA elements count as the
// two characters of "NA".
func builtinNchar(e *Evaluator, args *Args) (value.Value, error) {
	m, _, err := args.Match("x", "type")
	if err != nil {
		return nil, err
	}
	x := argOr(m[0], value.NewStrings())
	if value.IsFactor(x) {
		return nil, diagnostics.Errorf(diagnostics.ErrR007, "'nchar()' requires a character vector")
	}
	strs, err := stringsOf(x)
	if err != nil {
		return nil, err
	}
	bytes := false
	if supplied(m[1]) {
		t, err := coerce.AsStringScalar(m[1], "type")
		if err != nil {
			return nil, err
		}
		bytes = t == "bytes"
	}
	_, isChar := x.(*value.CharacterVector)
	out := make([]int32, len(strs))
	for i, s := range strs {
		switch {
		case s == value.NAString && isChar && !bytes:
			out[i] = value.NAInteger
		case s == value.NAString:
			out[i] = 2
		case bytes:
			out[i] = int32(len(s))
		default:
			out[i] = int32(utf8.RuneCountInString(s))
		}
	}
	return keepShape(value.NewInteger(out, !isChar || !containsNA(strs)), x), nil
}

func mapStrings(x value.Value, fn func(string) string) (value.Value, error) {
	strs, err := stringsOf(x)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(strs))
	complete := true
	for i, s := range strs {
		if s == value.NAString {
			out[i] = s
			complete = false
			continue
		}
		out[i] = fn(s)
	}
	return keepShape(value.NewCharacter(out, complete), x), nil
}

func caseBuiltin(c cases.Caser) BuiltinFunction {
	return func(e *Evaluator, args *Args) (value.Value, error) {
		x, err := firstArg(args, "x")
		if err != nil {
			return nil, err
		}
		return mapStrings(x, c.String)
	}
}

func builtinTrimws(e *Evaluator, args *Args) (value.Value, error) {
	m, _, err := args.Match("x", "which")
	if err != nil {
		return nil, err
	}
	which := "both"
	if supplied(m[1]) {
		if which, err = coerce.AsStringScalar(m[1], "which"); err != nil {
			return nil, err
		}
	}
	trim := strings.TrimSpace
	switch which {
	case "left":
		trim = func(s string) string { return strings.TrimLeft(s, " \t\r\n") }
	case "right":
		trim = func(s string) string { return strings.TrimRight(s, " \t\r\n") }
	case "both":
	default:
		return nil, diagnostics.Errorf(diagnostics.ErrR007, "'arg' should be one of \"both\", \"left\", \"right\"")
	}
	return mapStrings(argOr(m[0], value.NewStrings()), trim)
}

// builtinSubstr takes characters start..stop (1-based, inclusive) with start and stop
// recycled over x.
func builtinSubstr(e *Evaluator, args *Args) (value.Value, error) {
	m, _, err := args.Match("x", "start", "stop")
	if err != nil {
		return nil, err
	}
	for i, name := range []string{"x", "start", "stop"} {
		if err := requireArg(m[i], name); err != nil {
			return nil, err
		}
	}
	strs, err := stringsOf(m[0])
	if err != nil {
		return nil, err
	}
	starts, err := intsOf(m[1])
	if err != nil {
		return nil, err
	}
	stops, err := intsOf(m[2])
	if err != nil {
		return nil, err
	}
	if len(strs) > 0 && (len(starts) == 0 || len(stops) == 0) {
		return nil, diagnostics.Errorf(diagnostics.ErrR007, "invalid substring arguments")
	}
	out := make([]string, len(strs))
	complete := true
	for i, s := range strs {
		from, to := starts[i%len(starts)], stops[i%len(stops)]
		if s == value.NAString || from == value.NAInteger || to == value.NAInteger {
			out[i] = value.NAString
			complete = false
			continue
		}
		r := []rune(s)
		lo := max(int(from), 1) - 1
		hi := min(int(to), len(r))
		if lo >= hi {
			continue
		}
		out[i] = string(r[lo:hi])
	}
	return keepShape(value.NewCharacter(out, complete), m[0]), nil
}

func intsOf(v value.Value) ([]int32, error) {
	vec, err := coerce.CastToVector(v)
	if err != nil {
		return nil, err
	}
	c, err := coerce.Cast(vec, value.KindInteger, nil)
	if err != nil {
		return nil, err
	}
	return c.(*value.IntegerVector).Data(), nil
}

// pattern is a compiled regular expression or fixed string.
type pattern interface {
	MatchString(s string) (bool, error)
	// Replace substitutes the first or every match; repl uses \\1 for groups.
	Replace(s, repl string, all bool) (string, error)
	Split(s string) ([]string, error)
}

// compilePattern compiles p as an extended regular expression, a Perl-style one when
// perl is set, or a literal string when fixed is set.
func compilePattern(p string, fixed, perl, ignoreCase bool) (pattern, error) {
	switch {
	case fixed:
		return fixedPattern(p), nil
	case perl:
		opts := regexp2.None
		if ignoreCase {
			opts |= regexp2.IgnoreCase
		}
		re, err := regexp2.Compile(p, opts)
		if err != nil {
			return nil, diagnostics.Errorf(diagnostics.ErrR001, "invalid regular expression '%s': %v", p, err)
		}
		return perlPattern{re}, nil
	}
	if ignoreCase {
		p = "(?i)" + p
	}
	re, err := regexp.Compile(p)
	if err != nil {
		return nil, diagnostics.Errorf(diagnostics.ErrR001, "invalid regular expression '%s': %v", p, err)
	}
	return extendedPattern{re}, nil
}

var backref = regexp.MustCompile(`\\([0-9])`)

// goReplacement rewrites \\N group references to ${N} and escapes literal dollars.
func goReplacement(repl string) string {
	repl = strings.ReplaceAll(repl, "$", "$$")
	return backref.ReplaceAllString(repl, "$${$1}")
}

type fixedPattern string

func (p fixedPattern) MatchString(s string) (bool, error) {
	return strings.Contains(s, string(p)), nil
}

func (p fixedPattern) Replace(s, repl string, all bool) (string, error) {
	if all {
		return strings.ReplaceAll(s, string(p), repl), nil
	}
	return strings.Replace(s, string(p), repl, 1), nil
}

func (p fixedPattern) Split(s string) ([]string, error) {
	return splitEmpty(strings.Split(s, string(p)), string(p) == "", s), nil
}

type extendedPattern struct{ re *regexp.Regexp }

func (p extendedPattern) MatchString(s string) (bool, error) { return p.re.MatchString(s), nil }

func (p extendedPattern) Replace(s, repl string, all bool) (string, error) {
	repl = goReplacement(repl)
	if all {
		return p.re.ReplaceAllString(s, repl), nil
	}
	loc := p.re.FindStringSubmatchIndex(s)
	if loc == nil {
		return s, nil
	}
	var dst []byte
	dst = p.re.ExpandString(dst, repl, s, loc)
	return s[:loc[0]] + string(dst) + s[loc[1]:], nil
}

func (p extendedPattern) Split(s string) ([]string, error) {
	return splitEmpty(p.re.Split(s, -1), p.re.String() == "", s), nil
}

type perlPattern struct{ re *regexp2.Regexp }

func (p perlPattern) MatchString(s string) (bool, error) { return p.re.MatchString(s) }

func (p perlPattern) Replace(s, repl string, all bool) (string, error) {
	count := 1
	if all {
		count = -1
	}
	return p.re.Replace(s, goReplacement(repl), -1, count)
}

func (p perlPattern) Split(s string) ([]string, error) {
	var out []string
	last := 0
	// regexp2 reports rune offsets
	r := []rune(s)
	m, err := p.re.FindStringMatch(s)
	for ; m != nil && err == nil; m, err = p.re.FindNextMatch(m) {
		if m.Length == 0 {
			continue
		}
		start := len(string(r[:m.Index]))
		end := len(string(r[:m.Index+m.Length]))
		out = append(out, s[last:start])
		last = end
	}
	if err != nil {
		return nil, err
	}
	return append(out, s[last:]), nil
}

// splitEmpty turns a split on the empty pattern into single characters and drops the
// trailing empty piece left by a separator at the end of s.
func splitEmpty(parts []string, empty bool, s string) []string {
	if empty {
		out := make([]string, 0, len(s))
		for _, r := range s {
			out = append(out, string(r))
		}
		return out
	}
	if n := len(parts); n > 1 && parts[n-1] == "" {
		parts = parts[:n-1]
	}
	return parts
}

// patternArgs reads the pattern, fixed, perl and ignore.case arguments.
func patternArgs(p value.Value, fixed, perl, ignoreCase value.Value) (pattern, error) {
	src, err := coerce.AsStringScalar(argOr(p, value.Null), "pattern")
	if err != nil {
		return nil, err
	}
	isFixed, err := flagArg(fixed, "fixed", false)
	if err != nil {
		return nil, err
	}
	isPerl, err := flagArg(perl, "perl", false)
	if err != nil {
		return nil, err
	}
	ic, err := flagArg(ignoreCase, "ignore.case", false)
	if err != nil {
		return nil, err
	}
	return compilePattern(src, isFixed, isPerl, ic)
}

func builtinStrsplit(e *Evaluator, args *Args) (value.Value, error) {
	m, _, err := args.Match("x", "split", "fixed", "perl")
	if err != nil {
		return nil, err
	}
	x := argOr(m[0], value.Null)
	if _, ok := x.(*value.CharacterVector); !ok {
		return nil, diagnostics.Errorf(diagnostics.ErrR007, "non-character argument")
	}
	strs := x.(*value.CharacterVector).Data()
	p, err := patternArgs(argOr(m[1], value.Str("")), m[2], m[3], nil)
	if err != nil {
		return nil, err
	}
	out := make([]value.Value, len(strs))
	for i, s := range strs {
		if s == value.NAString {
			out[i] = value.Str(value.NAString)
			continue
		}
		parts, err := p.Split(s)
		if err != nil {
			return nil, diagnostics.Errorf(diagnostics.ErrR001, "%v", err)
		}
		out[i] = value.NewStrings(parts...)
	}
	res := value.NewList(out)
	if names := value.Names(x); names != nil {
		_ = value.SetAttr(res, value.AttrNames, names)
	}
	return res, nil
}

func affixBuiltin(test func(s, affix string) bool) BuiltinFunction {
	return func(e *Evaluator, args *Args) (value.Value, error) {
		m, _, err := args.Match("x", "prefix")
		if err != nil {
			return nil, err
		}
		xs, ok1 := argOr(m[0], value.Null).(*value.CharacterVector)
		as, ok2 := argOr(m[1], value.Null).(*value.CharacterVector)
		if !ok1 || !ok2 {
			return nil, diagnostics.Errorf(diagnostics.ErrR007, "non-character object(s)")
		}
		if xs.Len() == 0 || as.Len() == 0 {
			return value.NewLogical(nil, true), nil
		}
		n := max(xs.Len(), as.Len())
		out := make([]value.Logical, n)
		complete := true
		for i := range out {
			s, a := xs.At(i%xs.Len()), as.At(i%as.Len())
			if s == value.NAString || a == value.NAString {
				out[i] = value.NALogical
				complete = false
				continue
			}
			out[i] = value.LogicalOf(test(s, a))
		}
		return value.NewLogical(out, complete), nil
	}
}

// grepBuiltin builds grepl and grep. grep returns 1-based positions, or the matching
// elements with value = TRUE.
func grepBuiltin(logical bool) BuiltinFunction {
	return func(e *Evaluator, args *Args) (value.Value, error) {
		m, _, err := args.Match("pattern", "x", "ignore.case", "perl", "value", "fixed")
		if err != nil {
			return nil, err
		}
		p, err := patternArgs(m[0], m[5], m[3], m[2])
		if err != nil {
			return nil, err
		}
		strs, err := stringsOf(argOr(m[1], value.NewStrings()))
		if err != nil {
			return nil, err
		}
		wantValue, err := flagArg(m[4], "value", false)
		if err != nil {
			return nil, err
		}
		hits := make([]value.Logical, len(strs))
		var pos []int32
		var vals []string
		for i, s := range strs {
			if s == value.NAString {
				hits[i] = value.NALogical
				continue
			}
			ok, err := p.MatchString(s)
			if err != nil {
				return nil, diagnostics.Errorf(diagnostics.ErrR001, "%v", err)
			}
			hits[i] = value.LogicalOf(ok)
			if ok {
				pos = append(pos, int32(i+1))
				vals = append(vals, s)
			}
		}
		switch {
		case logical:
			return value.NewLogical(hits, false), nil
		case wantValue:
			return value.NewStrings(vals...), nil
		}
		return value.NewIntegers(pos...), nil
	}
}

func substituteBuiltin(all bool) BuiltinFunction {
	return func(e *Evaluator, args *Args) (value.Value, error) {
		m, _, err := args.Match("pattern", "replacement", "x", "ignore.case", "perl", "fixed")
		if err != nil {
			return nil, err
		}
		p, err := patternArgs(m[0], m[5], m[4], m[3])
		if err != nil {
			return nil, err
		}
		repl, err := coerce.AsStringScalar(argOr(m[1], value.Null), "replacement")
		if err != nil {
			return nil, err
		}
		return mapStringsErr(argOr(m[2], value.NewStrings()), func(s string) (string, error) {
			return p.Replace(s, repl, all)
		})
	}
}

func mapStringsErr(x value.Value, fn func(string) (string, error)) (value.Value, error) {
	var ferr error
	res, err := mapStrings(x, func(s string) string {
		out, err := fn(s)
		if err != nil && ferr == nil {
			ferr = diagnostics.Errorf(diagnostics.ErrR001, "%v", err)
		}
		return out
	})
	if err != nil {
		return nil, err
	}
	if ferr != nil {
		return nil, ferr
	}
	return res, nil
}

// formatSpec is one conversion of a sprintf format.
type formatSpec struct {
	literal string
	flags   string
	verb    byte
}

func parseFormat(f string) ([]formatSpec, error) {
	var specs []formatSpec
	var lit strings.Builder
	for i := 0; i < len(f); i++ {
		if f[i] != '%' {
			lit.WriteByte(f[i])
			continue
		}
		if i+1 < len(f) && f[i+1] == '%' {
			lit.WriteByte('%')
			i++
			continue
		}
		j := i + 1
		for j < len(f) && strings.IndexByte("-+ #0123456789.", f[j]) >= 0 {
			j++
		}
		if j >= len(f) || strings.IndexByte("dioxXfeEgGs", f[j]) < 0 {
			return nil, diagnostics.Errorf(diagnostics.ErrR001, "unrecognised format specification '%s'", f[i:])
		}
		specs = append(specs, formatSpec{literal: lit.String(), flags: f[i+1 : j], verb: f[j]})
		lit.Reset()
		i = j
	}
	return append(specs, formatSpec{literal: lit.String()}), nil
}

// formatOne renders one element for a conversion. NA renders as "NA" padded to the
// requested width.
func formatOne(s formatSpec, v value.Vector, i int) (string, error) {
	if v.IsNA(i) {
		rest := strings.TrimLeft(s.flags, "-+ #0")
		width, _, _ := strings.Cut(rest, ".")
		if strings.Contains(s.flags[:len(s.flags)-len(rest)], "-") {
			width = "-" + width
		}
		return fmt.Sprintf("%"+width+"s", "NA"), nil
	}
	verb := "%" + s.flags + string(s.verb)
	switch s.verb {
	case 'd', 'i', 'o', 'x', 'X':
		var n int64
		switch x := v.(type) {
		case *value.IntegerVector:
			n = int64(x.At(i))
		case *value.LogicalVector:
			n = int64(x.At(i))
		case *value.DoubleVector:
			d := x.At(i)
			if d != math.Trunc(d) {
				return "", diagnostics.Errorf(diagnostics.ErrR001, "invalid format '%s'; use format %%f, %%e, %%g or %%a for numeric objects", verb)
			}
			n = int64(d)
		default:
			return "", diagnostics.Errorf(diagnostics.ErrR001, "invalid format '%s'; use format %%s for character objects", verb)
		}
		if s.verb == 'i' {
			verb = verb[:len(verb)-1] + "d"
		}
		return fmt.Sprintf(verb, n), nil
	case 'f', 'e', 'E', 'g', 'G':
		var d float64
		switch x := v.(type) {
		case *value.DoubleVector:
			d = x.At(i)
		case *value.IntegerVector:
			d = float64(x.At(i))
		case *value.LogicalVector:
			d = float64(x.At(i))
		default:
			return "", diagnostics.Errorf(diagnostics.ErrR001, "invalid format '%s'; use format %%s for character objects", verb)
		}
		switch {
		case math.IsNaN(d):
			return "NaN", nil
		case math.IsInf(d, 1):
			return "Inf", nil
		case math.IsInf(d, -1):
			return "-Inf", nil
		}
		return fmt.Sprintf(verb, d), nil
	}
	var str string
	switch x := v.(type) {
	case *value.DoubleVector:
		str = coerce.DoubleToString(x.At(i))
	default:
		strs, err := stringsOf(v.Elem(i))
		if err != nil {
			return "", err
		}
		str = strs[0]
	}
	return fmt.Sprintf(verb, str), nil
}

// builtinSprintf is vectorized over fmt and the arguments; a zero-length argument
// gives character(0).
func builtinSprintf(e *Evaluator, args *Args) (value.Value, error) {
	m, rest, err := args.Match("fmt", "...")
	if err != nil {
		return nil, err
	}
	fmts, err := coerce.AsStrings(argOr(m[0], value.Null))
	if err != nil {
		return nil, err
	}
	vals := make([]value.Vector, len(rest))
	n := len(fmts)
	for i, a := range rest {
		v := a.Value
		if f, ok := v.(*value.IntegerVector); ok && value.IsFactor(f) {
			if v, err = factorLabels(f); err != nil {
				return nil, err
			}
		}
		vec, err := coerce.CastToVector(v)
		if err != nil {
			return nil, err
		}
		vals[i] = vec
		if vec.Len() == 0 {
			return value.NewStrings(), nil
		}
		n = max(n, vec.Len())
	}
	if len(fmts) == 0 {
		return value.NewStrings(), nil
	}
	out := make([]string, n)
	for i := range out {
		f := fmts[i%len(fmts)]
		if f == value.NAString {
			out[i] = value.NAString
			continue
		}
		specs, err := parseFormat(f)
		if err != nil {
			return nil, err
		}
		if len(specs)-1 > len(vals) {
			return nil, diagnostics.Errorf(diagnostics.ErrR001, "too few arguments")
		}
		var sb strings.Builder
		for k, s := range specs {
			sb.WriteString(s.literal)
			if s.verb == 0 {
				continue
			}
			v := vals[k]
			piece, err := formatOne(s, v, i%v.Len())
			if err != nil {
				return nil, err
			}
			sb.WriteString(piece)
		}
		out[i] = sb.String()
	}
	return value.NewStrings(out...), nil
}

// builtinFormat renders a vector with a common layout and width. Lists format each
// element on its own.
func builtinFormat(e *Evaluator, args *Args) (value.Value, error) {
	m, _, err := args.Match("x", "trim", "digits", "nsmall", "width", "...")
	if err != nil {
		return nil, err
	}
	x := argOr(m[0], value.Null)
	w := e.warnerAt(args.Call)
	digits, nsmall, width := prettyprinter.DefaultDigits, 0, 0
	for _, p := range []struct {
		v    value.Value
		name string
		dst  *int
	}{{m[2], "digits", &digits}, {m[3], "nsmall", &nsmall}, {m[4], "width", &width}} {
		if supplied(p.v) && !value.IsNull(p.v) {
			if *p.dst, err = coerce.AsIntegerScalar(p.v, p.name, w); err != nil {
				return nil, err
			}
		}
	}
	trim, err := flagArg(m[1], "trim", false)
	if err != nil {
		return nil, err
	}
	switch v := x.(type) {
	case *value.List:
		out := make([]string, v.Len())
		for i := 0; i < v.Len(); i++ {
			strs, err := prettyprinter.Cat(v.At(i))
			if err != nil {
				return nil, err
			}
			out[i] = strings.Join(strs, ", ")
		}
		return keepShape(value.NewStrings(out...), v), nil
	case value.Vector:
		if f, ok := v.(*value.IntegerVector); ok && value.IsFactor(f) {
			labels, err := factorLabels(f)
			if err != nil {
				return nil, err
			}
			v = stripped(labels)
		}
		out := prettyprinter.FormatCommon(v, digits, nsmall, width)
		if trim {
			for i := range out {
				out[i] = strings.TrimSpace(out[i])
			}
		}
		return keepShape(value.NewStrings(out...), x), nil
	}
	if value.IsNull(x) {
		return value.NewStrings(), nil
	}
	return value.Str(deparseValue(x)), nil
}

func builtinToString(e *Evaluator, args *Args) (value.Value, error) {
	m, _, err := args.Match("x", "sep")
	if err != nil {
		return nil, err
	}
	sep := ", "
	if supplied(m[1]) {
		if sep, err = coerce.AsStringScalar(m[1], "sep"); err != nil {
			return nil, err
		}
	}
	strs, err := stringsOf(argOr(m[0], value.Null))
	if err != nil {
		return nil, err
	}
	for i, s := range strs {
		strs[i] = naText(s)
	}
	return value.Str(strings.Join(strs, sep)), nil
}
