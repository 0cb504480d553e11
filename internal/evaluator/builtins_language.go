package evaluator

import (
	"strings"

	"github.com/funvibe/rcore/internal/ast"
	"github.com/funvibe/rcore/internal/coerce"
	"github.com/funvibe/rcore/internal/diagnostics"
	"github.com/funvibe/rcore/internal/parser"
	"github.com/funvibe/rcore/internal/token"
	"github.com/funvibe/rcore/internal/value"
)

// LanguageBuiltins returns the functions that work on unevaluated code.
func LanguageBuiltins() map[string]*Builtin {
	return map[string]*Builtin{
		"quote":      {Fn: builtinQuote, Special: true},
		"expression": {Fn: builtinExpression, Special: true},
		"substitute": {Fn: builtinSubstitute, Special: true},
		"missing":    {Fn: builtinMissing, Special: true},
		"switch":     {Fn: builtinSwitch, Special: true},
		"local":      {Fn: builtinLocal, Special: true},
		"evalq":      {Fn: builtinEvalq, Special: true},
		"eval":       {Fn: builtinEval},
		"parse":      {Fn: builtinParse},
		"deparse":    {Fn: builtinDeparse},
		"body":       {Fn: builtinBody},
		"formals":    {Fn: builtinFormals},
		"call":       {Fn: builtinMakeCall},
		"nargs":      {Fn: builtinNargs},
		"match.arg":  {Fn: builtinMatchArg},
	}
}

func builtinQuote(e *Evaluator, args *Args) (value.Value, error) {
	m, _, err := args.MatchExprs("expr")
	if err != nil {
		return nil, err
	}
	return quoteExpr(m[0])
}

func builtinExpression(e *Evaluator, args *Args) (value.Value, error) {
	elems := make([]value.Value, len(args.List))
	for i, a := range args.List {
		v, err := quoteExpr(a.Expr)
		if err != nil {
			return nil, err
		}
		elems[i] = v
	}
	return value.NewExpression(elems), nil
}

// valueExpr returns an expression that evaluates to v, for the values that have
// a source form.
func valueExpr(v value.Value) (ast.Expression, bool) {
	switch x := v.(type) {
	case *value.Language:
		return x.Node, true
	case *value.Symbol:
		return &ast.Identifier{Value: x.Name}, true
	case *value.Promise:
		if x.Expr != nil {
			return x.Expr, true
		}
		return valueExpr(x.Value())
	}
	if value.IsNull(v) {
		return &ast.ConstantLiteral{Token: token.Token{Type: token.NULL, Lexeme: "NULL"}}, true
	}
	vec, ok := v.(value.Vector)
	if !ok || vec.Len() != 1 || vec.Attrs().Len() > 0 {
		return nil, false
	}
	switch x := vec.(type) {
	case *value.DoubleVector:
		if !value.IsNaNOrNA(x.At(0)) {
			return &ast.NumberLiteral{Value: x.At(0)}, true
		}
	case *value.IntegerVector:
		if x.At(0) != value.NAInteger {
			return &ast.IntegerLiteral{Value: x.At(0)}, true
		}
	case *value.CharacterVector:
		if x.At(0) != value.NAString {
			return &ast.StringLiteral{Value: x.At(0)}, true
		}
	case *value.LogicalVector:
		switch x.At(0) {
		case value.True:
			return &ast.ConstantLiteral{Token: token.Token{Type: token.TRUE, Lexeme: "TRUE"}}, true
		case value.False:
			return &ast.ConstantLiteral{Token: token.Token{Type: token.FALSE, Lexeme: "FALSE"}}, true
		}
		return &ast.ConstantLiteral{Token: token.Token{Type: token.NA, Lexeme: "NA"}}, true
	}
	return nil, false
}

// substituteExpr rewrites expr, replacing every symbol bound in env: promises by
// their expression, other values by their source form when they have one.
func substituteExpr(expr ast.Expression, env *value.Environment) ast.Expression {
	sub := func(x ast.Expression) ast.Expression {
		if x == nil {
			return nil
		}
		return substituteExpr(x, env)
	}
	subArgs := func(in []*ast.Argument) []*ast.Argument {
		out := make([]*ast.Argument, 0, len(in))
		for _, a := range in {
			if id, ok := a.Value.(*ast.Identifier); ok && id.IsDots() {
				if d, ok := env.Get("..."); ok {
					if dots, ok := d.(*value.Dots); ok {
						for i, p := range dots.Values {
							x, ok := valueExpr(p)
							if !ok {
								x = a.Value
							}
							out = append(out, &ast.Argument{Token: a.Token, Name: dots.Names[i], Value: x})
						}
						continue
					}
				}
			}
			out = append(out, &ast.Argument{Token: a.Token, Name: a.Name, Value: sub(a.Value)})
		}
		return out
	}
	switch n := expr.(type) {
	case *ast.Identifier:
		v, ok := env.Get(n.Value)
		if !ok || value.IsMissing(v) {
			return n
		}
		if _, isDots := v.(*value.Dots); isDots {
			return n
		}
		if x, ok := valueExpr(v); ok {
			return x
		}
		return n
	case *ast.PrefixExpression:
		c := *n
		c.Right = sub(n.Right)
		return &c
	case *ast.InfixExpression:
		c := *n
		c.Left, c.Right = sub(n.Left), sub(n.Right)
		return &c
	case *ast.AssignExpression:
		c := *n
		c.Target, c.Value = sub(n.Target), sub(n.Value)
		return &c
	case *ast.CallExpression:
		c := *n
		c.Function = sub(n.Function)
		c.Arguments = subArgs(n.Arguments)
		return &c
	case *ast.IndexExpression:
		c := *n
		c.Left = sub(n.Left)
		c.Arguments = subArgs(n.Arguments)
		return &c
	case *ast.DollarExpression:
		c := *n
		c.Left = sub(n.Left)
		return &c
	case *ast.ParenExpression:
		c := *n
		c.Inner = sub(n.Inner)
		return &c
	case *ast.BlockExpression:
		c := *n
		c.Expressions = make([]ast.Expression, len(n.Expressions))
		for i, x := range n.Expressions {
			c.Expressions[i] = sub(x)
		}
		return &c
	case *ast.IfExpression:
		c := *n
		c.Condition, c.Consequence, c.Alternative = sub(n.Condition), sub(n.Consequence), sub(n.Alternative)
		return &c
	case *ast.WhileExpression:
		c := *n
		c.Condition, c.Body = sub(n.Condition), sub(n.Body)
		return &c
	case *ast.ForExpression:
		c := *n
		c.Sequence, c.Body = sub(n.Sequence), sub(n.Body)
		return &c
	case *ast.RepeatExpression:
		c := *n
		c.Body = sub(n.Body)
		return &c
	}
	return expr
}

func builtinSubstitute(e *Evaluator, args *Args) (value.Value, error) {
	m, _, err := args.MatchExprs("expr", "env")
	if err != nil {
		return nil, err
	}
	env := args.Env
	if m[1] != nil {
		v, err := e.Eval(m[1], args.Env)
		if err != nil {
			return nil, err
		}
		switch x := v.(type) {
		case *value.Environment:
			env = x
		case *value.List:
			env = listEnv(x, nil)
		default:
			return nil, diagnostics.Errorf(diagnostics.ErrR007, "invalid environment specified")
		}
	}
	if env == e.GlobalEnv {
		return quoteExpr(m[0])
	}
	return quoteExpr(substituteExpr(m[0], env))
}

func builtinMissing(e *Evaluator, args *Args) (value.Value, error) {
	m, _, err := args.MatchExprs("x")
	if err != nil {
		return nil, err
	}
	var name string
	switch x := m[0].(type) {
	case *ast.Identifier:
		name = x.Value
	case *ast.StringLiteral:
		name = x.Value
	default:
		return nil, diagnostics.Errorf(diagnostics.ErrR007, "invalid use of 'missing'")
	}
	missing, err := e.isMissingArg(name, args.Env)
	if err != nil {
		return nil, err
	}
	return value.Bool(missing), nil
}

// builtinSwitch evaluates only the selected alternative. Empty alternatives fall
// through to the next non-empty one.
func builtinSwitch(e *Evaluator, args *Args) (value.Value, error) {
	if len(args.List) == 0 {
		return nil, diagnostics.Errorf(diagnostics.ErrR009, "'EXPR' is missing")
	}
	sel, err := e.evalArg(args.List[0], args.Env)
	if err != nil {
		return nil, err
	}
	alts := args.List[1:]
	vec, ok := sel.(value.Vector)
	if !ok || vec.Len() != 1 {
		return nil, diagnostics.Errorf(diagnostics.ErrR007, "EXPR must be a length 1 vector")
	}
	pick := -1
	if s, ok := vec.(*value.CharacterVector); ok {
		key := s.At(0)
		dflt := -1
		for i, a := range alts {
			if a.Name == "" {
				if dflt >= 0 {
					return nil, diagnostics.Errorf(diagnostics.ErrR007, "duplicate 'switch' defaults: '%s' and '%s'", describeArg(alts[dflt]), describeArg(a))
				}
				dflt = i
				continue
			}
			if pick < 0 && key != value.NAString && a.Name == key {
				pick = i
			}
		}
		if pick < 0 {
			pick = dflt
		}
		for pick >= 0 && pick < len(alts) && emptyArg(alts[pick]) {
			pick++
		}
	} else {
		n, err := coerce.AsIntegerScalar(vec, "EXPR", e.warnerAt(args.Call))
		if err != nil {
			return nil, err
		}
		if n >= 1 && n <= len(alts) {
			pick = n - 1
		}
	}
	if pick < 0 || pick >= len(alts) {
		e.visible = false
		return value.Null, nil
	}
	v, err := e.evalArg(alts[pick], args.Env)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// emptyArg reports an alternative written as name = with no value.
func emptyArg(a Arg) bool {
	return a.Expr == nil && a.Value != nil && value.IsMissing(a.Value)
}

func describeArg(a Arg) string {
	if a.Expr != nil {
		return a.Expr.String()
	}
	return "..."
}

func builtinLocal(e *Evaluator, args *Args) (value.Value, error) {
	m, _, err := args.MatchExprs("expr", "envir")
	if err != nil {
		return nil, err
	}
	env := value.NewEnvironment(args.Env)
	if m[1] != nil {
		v, err := e.Eval(m[1], args.Env)
		if err != nil {
			return nil, err
		}
		if env, err = envArg(v, "envir", env); err != nil {
			return nil, err
		}
	}
	return e.Eval(m[0], env)
}

// listEnv makes an environment holding the elements of a named list.
func listEnv(l *value.List, parent *value.Environment) *value.Environment {
	env := value.NewEnvironment(parent)
	names := value.Names(l)
	if names == nil {
		return env
	}
	for i, n := range names.Data() {
		if n != "" && n != value.NAString {
			_ = env.Bind(n, l.At(i))
		}
	}
	return env
}

// evalEnv resolves the envir and enclos arguments of eval and evalq.
func evalEnv(envir, enclos value.Value, def *value.Environment) (*value.Environment, error) {
	parent, err := envArg(enclos, "enclos", def)
	if err != nil {
		return nil, err
	}
	switch x := argOr(envir, nil).(type) {
	case nil:
		return def, nil
	case *value.Environment:
		return x, nil
	case *value.List:
		return listEnv(x, parent), nil
	}
	if value.IsNull(envir) {
		return parent, nil
	}
	return nil, diagnostics.Errorf(diagnostics.ErrR007, "invalid 'envir' argument of type '%s'", envir.Kind())
}

// evalValue evaluates a quoted value in env. Values other than code evaluate to
// themselves.
func (e *Evaluator) evalValue(v value.Value, env *value.Environment) (value.Value, error) {
	switch x := v.(type) {
	case *value.Language:
		return e.Eval(x.Node, env)
	case *value.Symbol:
		return e.lookupVariable(x.Name, env)
	case *value.Promise:
		return e.force(x)
	case *value.ExpressionVector:
		var result value.Value = value.Null
		for i := 0; i < x.Len(); i++ {
			r, err := e.evalValue(x.At(i), env)
			if err != nil {
				return nil, err
			}
			result = r
		}
		return result, nil
	}
	return v, nil
}

func builtinEval(e *Evaluator, args *Args) (value.Value, error) {
	m, _, err := args.Match("expr", "envir", "enclos")
	if err != nil {
		return nil, err
	}
	env, err := evalEnv(m[1], m[2], args.Env)
	if err != nil {
		return nil, err
	}
	v, err := e.evalValue(argOr(m[0], value.Null), env)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func builtinEvalq(e *Evaluator, args *Args) (value.Value, error) {
	m, _, err := args.MatchExprs("expr", "envir", "enclos")
	if err != nil {
		return nil, err
	}
	var envir, enclos value.Value
	if m[1] != nil {
		if envir, err = e.Eval(m[1], args.Env); err != nil {
			return nil, err
		}
	}
	if m[2] != nil {
		if enclos, err = e.Eval(m[2], args.Env); err != nil {
			return nil, err
		}
	}
	env, err := evalEnv(envir, enclos, args.Env)
	if err != nil {
		return nil, err
	}
	return e.Eval(m[0], env)
}

// parseText parses source into an expression vector.
func parseText(source string) (*value.ExpressionVector, error) {
	prog, err := parser.Parse(source)
	if err != nil {
		return nil, err
	}
	elems := make([]value.Value, len(prog.Expressions))
	for i, x := range prog.Expressions {
		v, err := quoteExpr(x)
		if err != nil {
			return nil, err
		}
		elems[i] = v
	}
	return value.NewExpression(elems), nil
}

func builtinParse(e *Evaluator, args *Args) (value.Value, error) {
	m, _, err := args.Match("file", "n", "text")
	if err != nil {
		return nil, err
	}
	if !supplied(m[2]) {
		return nil, diagnostics.Errorf(diagnostics.ErrR007, "'text' must be supplied")
	}
	lines, err := coerce.AsStrings(m[2])
	if err != nil {
		return nil, err
	}
	return parseText(strings.Join(lines, "\n"))
}

func builtinDeparse(e *Evaluator, args *Args) (value.Value, error) {
	m, _, err := args.Match("expr", "width.cutoff")
	if err != nil {
		return nil, err
	}
	return value.NewStrings(strings.Split(deparseValue(argOr(m[0], value.Null)), "\n")...), nil
}

func closureArg(v value.Value) (*value.Closure, bool) {
	fn, ok := v.(*value.Closure)
	return fn, ok
}

func builtinBody(e *Evaluator, args *Args) (value.Value, error) {
	m, _, err := args.Match("fun")
	if err != nil {
		return nil, err
	}
	fn, ok := closureArg(argOr(m[0], value.Null))
	if !ok {
		return value.Null, nil
	}
	return quoteExpr(fn.Body)
}

// builtinFormals returns the defaults of a closure as a named list. Formals without a
// default hold the empty symbol.
func builtinFormals(e *Evaluator, args *Args) (value.Value, error) {
	m, _, err := args.Match("fun")
	if err != nil {
		return nil, err
	}
	fn, ok := closureArg(argOr(m[0], value.Null))
	if !ok || len(fn.Formals) == 0 {
		return value.Null, nil
	}
	names := make([]string, len(fn.Formals))
	elems := make([]value.Value, len(fn.Formals))
	for i, f := range fn.Formals {
		names[i] = f.Name
		if f.Default == nil {
			elems[i] = value.Intern("")
			continue
		}
		v, err := quoteExpr(f.Default)
		if err != nil {
			return nil, err
		}
		elems[i] = v
	}
	return namedList(names, elems), nil
}

func builtinMakeCall(e *Evaluator, args *Args) (value.Value, error) {
	m, rest, err := args.Match("name", "...")
	if err != nil {
		return nil, err
	}
	name, err := coerce.AsStringScalar(argOr(m[0], value.Null), "name")
	if err != nil {
		return nil, diagnostics.Errorf(diagnostics.ErrR007, "first argument must be a character string")
	}
	call := syntheticCall(name, token.Token{})
	for _, a := range rest {
		x, ok := valueExpr(a.Value)
		if !ok {
			return nil, diagnostics.Errorf(diagnostics.ErrR007, "cannot use a value of type '%s' in a call", a.Value.Kind())
		}
		call.Arguments = append(call.Arguments, &ast.Argument{Name: a.Name, Value: x})
	}
	return &value.Language{Node: call}, nil
}

func builtinNargs(e *Evaluator, args *Args) (value.Value, error) {
	fr := e.frameOf(args.Env)
	if fr == nil || fr.Fn == nil {
		return value.Int(0), nil
	}
	n := 0
	for _, a := range fr.Args {
		if !value.IsMissing(a.Value) {
			n++
		}
	}
	return value.Int(n), nil
}

// builtinMatchArg checks arg against choices, which default to the default value
// of the formal arg was passed as. A missing arg selects the first choice.
func builtinMatchArg(e *Evaluator, args *Args) (value.Value, error) {
	m, _, err := args.Match("arg", "choices", "several.ok")
	if err != nil {
		return nil, err
	}
	arg := argOr(m[0], value.Null)
	var formal string
	if len(args.List) > 0 {
		if id, ok := args.List[0].Expr.(*ast.Identifier); ok {
			formal = id.Value
		}
	}
	var choices []string
	if supplied(m[1]) {
		if choices, err = coerce.AsStrings(m[1]); err != nil {
			return nil, err
		}
	} else {
		fr := e.frameOf(args.Env)
		if fr == nil || fr.Fn == nil || formal == "" {
			return nil, diagnostics.Errorf(diagnostics.ErrR007, "'match.arg' without 'choices' needs a formal argument")
		}
		for _, f := range fr.Fn.Formals {
			if f.Name != formal || f.Default == nil {
				continue
			}
			d, err := e.Eval(f.Default, args.Env)
			if err != nil {
				return nil, err
			}
			if choices, err = coerce.AsStrings(d); err != nil {
				return nil, err
			}
		}
		if formal != "" {
			if missing, err := e.isMissingArg(formal, args.Env); err == nil && missing && len(choices) > 0 {
				return value.Str(choices[0]), nil
			}
		}
	}
	if value.IsNull(arg) && len(choices) > 0 {
		return value.Str(choices[0]), nil
	}
	vals, err := coerce.AsStrings(arg)
	if err != nil || len(vals) != 1 {
		return nil, diagnostics.Errorf(diagnostics.ErrR007, "'arg' must be of length 1")
	}
	hit := -1
	for i, c := range choices {
		if c == vals[0] {
			hit = i
			break
		}
		if strings.HasPrefix(c, vals[0]) {
			if hit >= 0 {
				hit = -2
				break
			}
			hit = i
		}
	}
	if hit < 0 {
		quoted := make([]string, len(choices))
		for i, c := range choices {
			quoted[i] = "“" + c + "”"
		}
		return nil, diagnostics.Errorf(diagnostics.ErrR007, "'arg' should be one of %s", strings.Join(quoted, ", "))
	}
	return value.Str(choices[hit]), nil
}
