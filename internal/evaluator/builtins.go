package evaluator

import (
	"strings"

	"github.com/funvibe/rcore/internal/ast"
	"github.com/funvibe/rcore/internal/diagnostics"
	"github.com/funvibe/rcore/internal/value"
)

// BuiltinFunction implements a builtin. Eager builtins find their argument values
// in Args; special builtins get the unevaluated expressions instead.
type BuiltinFunction func(e *Evaluator, args *Args) (value.Value, error)

type Builtin struct {
	Name string
	Fn   BuiltinFunction
	// Special builtins receive their arguments unevaluated.
	Special bool
	// Invisible results are not printed at top level.
	Invisible bool
}

func (b *Builtin) Kind() value.Kind { return value.KindBuiltin }

func (b *Builtin) PrimitiveName() string { return b.Name }

// Arg is one supplied argument.
type Arg struct {
	Name  string
	Value value.Value
	// Expr is the source expression; nil for arguments that came through "...".
	Expr ast.Expression
}

// Args is the argument list of one builtin call.
type Args struct {
	Call ast.Expression
	// Env is the environment the call was evaluated in.
	Env  *value.Environment
	List []Arg
}

func (a *Args) Len() int { return len(a.List) }

// Values returns the argument values in call order.
func (a *Args) Values() []value.Value {
	out := make([]value.Value, len(a.List))
	for i, arg := range a.List {
		out[i] = arg.Value
	}
	return out
}

// Match binds the arguments to formals by exact name, unique partial prefix (for
// formals before "..."), then position. Unmatched formals are nil in the result.
// Arguments left over go to rest when formals contain "...", otherwise they are an
// error.
func (a *Args) Match(formals ...string) (matched []value.Value, rest []Arg, err error) {
	idx, restIdx, err := matchArgs(formals, argNames(a.List), a.describe)
	if err != nil {
		return nil, nil, err
	}
	matched = make([]value.Value, len(formals))
	for f, i := range idx {
		if i >= 0 {
			matched[f] = a.List[i].Value
		}
	}
	restArgs := make([]Arg, len(restIdx))
	for k, i := range restIdx {
		restArgs[k] = a.List[i]
	}
	return matched, restArgs, nil
}

// MatchExprs is Match for special builtins; it returns expressions.
func (a *Args) MatchExprs(formals ...string) (matched []ast.Expression, rest []Arg, err error) {
	idx, restIdx, err := matchArgs(formals, argNames(a.List), a.describe)
	if err != nil {
		return nil, nil, err
	}
	matched = make([]ast.Expression, len(formals))
	for f, i := range idx {
		if i >= 0 {
			matched[f] = a.List[i].Expr
		}
	}
	restArgs := make([]Arg, len(restIdx))
	for k, i := range restIdx {
		restArgs[k] = a.List[i]
	}
	return matched, restArgs, nil
}

func (a *Args) describe(i int) string {
	arg := a.List[i]
	src := "..."
	if arg.Expr != nil {
		src = arg.Expr.String()
	} else if arg.Value != nil {
		src = deparseShort(arg.Value)
	}
	if arg.Name != "" {
		return arg.Name + " = " + src
	}
	return src
}

func argNames(list []Arg) []string {
	names := make([]string, len(list))
	for i, a := range list {
		names[i] = a.Name
	}
	return names
}

// matchArgs implements argument matching over names only. idx[f] is the index of the
// argument matched to formal f or -1; rest lists the arguments collected by "...".
func matchArgs(formals []string, names []string, describe func(int) string) (idx []int, rest []int, err error) {
	idx = make([]int, len(formals))
	for i := range idx {
		idx[i] = -1
	}
	used := make([]bool, len(names))
	dots := -1
	for f, name := range formals {
		if name == "..." {
			dots = f
			break
		}
	}

	// exact names
	for i, name := range names {
		if name == "" {
			continue
		}
		for f, formal := range formals {
			if formal == "..." || formal != name {
				continue
			}
			if idx[f] >= 0 {
				return nil, nil, diagnostics.Errorf(diagnostics.ErrR009, "formal argument \"%s\" matched by multiple actual arguments", formal)
			}
			idx[f] = i
			used[i] = true
		}
	}

	// partial names, only for formals before "..."
	for i, name := range names {
		if name == "" || used[i] {
			continue
		}
		match := -1
		for f, formal := range formals {
			if formal == "..." {
				break
			}
			if idx[f] >= 0 || !strings.HasPrefix(formal, name) {
				continue
			}
			if match >= 0 {
				return nil, nil, diagnostics.Errorf(diagnostics.ErrR009, "argument %d matches multiple formal arguments", i+1)
			}
			match = f
		}
		if match >= 0 {
			idx[match] = i
			used[i] = true
		}
	}

	// positions
	f := 0
	for i, name := range names {
		if used[i] || name != "" {
			continue
		}
		for f < len(formals) && (idx[f] >= 0 || formals[f] == "...") {
			if formals[f] == "..." {
				break
			}
			f++
		}
		if f >= len(formals) || formals[f] == "..." {
			break
		}
		idx[f] = i
		used[i] = true
		f++
	}

	for i := range names {
		if used[i] {
			continue
		}
		if dots < 0 {
			return nil, nil, diagnostics.Errorf(diagnostics.ErrR009, "unused argument (%s)", describe(i))
		}
		rest = append(rest, i)
	}
	return idx, rest, nil
}

func deparseShort(v value.Value) string {
	s := deparseValue(v)
	if len(s) > 40 {
		s = s[:37] + "..."
	}
	return s
}

// Builtins returns every builtin, keyed by name.
func Builtins() map[string]*Builtin {
	all := map[string]*Builtin{}
	for _, group := range []map[string]*Builtin{
		VectorBuiltins(),
		ReflectionBuiltins(),
		EnvironmentBuiltins(),
		LanguageBuiltins(),
		ConditionBuiltins(),
		IOBuiltins(),
		FPBuiltins(),
		StatsBuiltins(),
		OperatorBuiltins(),
		FormatBuiltins(),
		BytesBuiltins(),
		ContextBuiltins(),
		ExtBuiltins(),
		S3Builtins(),
		ParallelBuiltins(),
	} {
		for name, b := range group {
			if _, dup := all[name]; dup {
				panic(diagnostics.Internalf("builtin %q registered twice", name))
			}
			all[name] = b
		}
	}
	return all
}

// RegisterBuiltins binds every builtin in env.
func RegisterBuiltins(env *value.Environment) {
	for name, b := range Builtins() {
		if b.Name == "" {
			b.Name = name
		}
		_ = env.Bind(name, b)
	}
}

func newBuiltin(fn BuiltinFunction) *Builtin {
	return &Builtin{Fn: fn}
}

func invisibleBuiltin(fn BuiltinFunction) *Builtin {
	return &Builtin{Fn: fn, Invisible: true}
}

func specialBuiltin(fn BuiltinFunction) *Builtin {
	return &Builtin{Fn: fn, Special: true}
}
