package evaluator

import (
	"strings"

	"github.com/funvibe/rcore/internal/coerce"
	"github.com/funvibe/rcore/internal/diagnostics"
	"github.com/funvibe/rcore/internal/value"
)

// ReflectionBuiltins returns type queries, attribute accessors and casts.
func ReflectionBuiltins() map[string]*Builtin {
	return map[string]*Builtin{
		"typeof":         {Fn: builtinTypeof},
		"class":          {Fn: builtinClass},
		"class<-":        {Fn: builtinSetClass},
		"oldClass":       {Fn: builtinOldClass},
		"oldClass<-":     {Fn: builtinSetClass},
		"unclass":        {Fn: builtinUnclass},
		"inherits":       {Fn: builtinInherits},
		"names":          {Fn: builtinNames},
		"names<-":        {Fn: builtinSetNames},
		"attr":           {Fn: builtinAttr},
		"attr<-":         {Fn: builtinSetAttr},
		"attributes":     {Fn: builtinAttributes},
		"structure":      {Fn: builtinStructure},
		"dim":            {Fn: builtinDim},
		"dim<-":          {Fn: builtinSetDim},
		"dimnames":       {Fn: builtinDimnames},
		"dimnames<-":     {Fn: builtinSetDimnames},
		"nrow":           {Fn: dimExtent(0)},
		"ncol":           {Fn: dimExtent(1)},
		"is.na":          {Fn: builtinIsNA},
		"anyNA":          {Fn: builtinAnyNA},
		"is.null":        {Fn: kindPredicate(func(v value.Value) bool { return value.IsNull(v) })},
		"is.function":    {Fn: kindPredicate(isFunction)},
		"is.primitive":   {Fn: kindPredicate(func(v value.Value) bool { return v.Kind() == value.KindBuiltin })},
		"is.numeric":     {Fn: kindPredicate(isNumeric)},
		"is.character":   {Fn: kindPredicate(ofKind(value.KindCharacter))},
		"is.logical":     {Fn: kindPredicate(ofKind(value.KindLogical))},
		"is.integer":     {Fn: kindPredicate(ofKind(value.KindInteger))},
		"is.double":      {Fn: kindPredicate(ofKind(value.KindDouble))},
		"is.complex":     {Fn: kindPredicate(ofKind(value.KindComplex))},
		"is.raw":         {Fn: kindPredicate(ofKind(value.KindRaw))},
		"is.list":        {Fn: kindPredicate(isList)},
		"is.atomic":      {Fn: kindPredicate(func(v value.Value) bool { return v.Kind().IsAtomic() })},
		"is.vector":      {Fn: kindPredicate(isPlainVector)},
		"is.environment": {Fn: kindPredicate(ofKind(value.KindEnvironment))},
		"is.symbol":      {Fn: kindPredicate(ofKind(value.KindSymbol))},
		"is.name":        {Fn: kindPredicate(ofKind(value.KindSymbol))},
		"is.call":        {Fn: kindPredicate(ofKind(value.KindLanguage))},
		"is.factor":      {Fn: kindPredicate(value.IsFactor)},
		"is.matrix":      {Fn: kindPredicate(func(v value.Value) bool { d := value.Dim(v); return d != nil && d.Len() == 2 })},
		"as.logical":     {Fn: castBuiltin(value.KindLogical)},
		"as.integer":     {Fn: castBuiltin(value.KindInteger)},
		"as.double":      {Fn: castBuiltin(value.KindDouble)},
		"as.numeric":     {Fn: castBuiltin(value.KindDouble)},
		"as.complex":     {Fn: castBuiltin(value.KindComplex)},
		"as.character":   {Fn: castBuiltin(value.KindCharacter)},
		"as.raw":         {Fn: castBuiltin(value.KindRaw)},
		"as.list":        {Fn: builtinAsList},
		"as.vector":      {Fn: builtinAsVector},
		"as.name":        {Fn: builtinAsName},
		"as.symbol":      {Fn: builtinAsName},
	}
}

func firstArg(args *Args, name string) (value.Value, error) {
	m, _, err := args.Match(name)
	if err != nil {
		return nil, err
	}
	if err := requireArg(m[0], name); err != nil {
		return nil, err
	}
	return m[0], nil
}

func builtinTypeof(e *Evaluator, args *Args) (value.Value, error) {
	x, err := firstArg(args, "x")
	if err != nil {
		return nil, err
	}
	return value.Str(x.Kind().String()), nil
}

func builtinClass(e *Evaluator, args *Args) (value.Value, error) {
	x, err := firstArg(args, "x")
	if err != nil {
		return nil, err
	}
	return value.NewStrings(value.ImplicitClass(x)...), nil
}

func builtinOldClass(e *Evaluator, args *Args) (value.Value, error) {
	x, err := firstArg(args, "x")
	if err != nil {
		return nil, err
	}
	return value.GetAttr(x, value.AttrClass), nil
}

// attributeTarget returns a private copy of the first argument of a replacement
// function.
func attributeTarget(x value.Value) (value.Vector, error) {
	if value.IsNull(x) {
		return nil, diagnostics.Errorf(diagnostics.ErrR007, "attempt to set an attribute on NULL")
	}
	vec, ok := x.(value.Vector)
	if !ok {
		return nil, diagnostics.Errorf(diagnostics.ErrR007, "cannot set attributes on a value of type '%s'", x.Kind())
	}
	return ownedCopy(vec), nil
}

func builtinSetClass(e *Evaluator, args *Args) (value.Value, error) {
	m, _, err := args.Match("x", "value")
	if err != nil {
		return nil, err
	}
	vec, err := attributeTarget(m[0])
	if err != nil {
		return nil, err
	}
	cls := argOr(m[1], value.Null)
	if !value.IsNull(cls) {
		strs, err := coerce.AsStrings(cls)
		if err != nil {
			return nil, err
		}
		if len(strs) == 1 && implicitOnly(vec, strs[0]) {
			cls = value.Null
		} else {
			cls = value.NewStrings(strs...)
		}
	}
	if err := value.SetAttr(vec, value.AttrClass, cls); err != nil {
		return nil, err
	}
	return vec, nil
}

// implicitOnly reports whether class name is what vec already is without a class
// attribute, in which case assigning it removes the attribute.
func implicitOnly(vec value.Vector, name string) bool {
	saved := value.GetAttr(vec, value.AttrClass)
	_ = value.SetAttr(vec, value.AttrClass, value.Null)
	implicit := value.ImplicitClass(vec)
	if !value.IsNull(saved) {
		_ = value.SetAttr(vec, value.AttrClass, saved)
	}
	return len(implicit) == 1 && implicit[0] == name
}

func builtinUnclass(e *Evaluator, args *Args) (value.Value, error) {
	x, err := firstArg(args, "x")
	if err != nil {
		return nil, err
	}
	vec, ok := x.(value.Vector)
	if !ok || value.IsNull(value.GetAttr(vec, value.AttrClass)) {
		return x, nil
	}
	vec = ownedCopy(vec)
	_ = value.SetAttr(vec, value.AttrClass, value.Null)
	return vec, nil
}

func builtinInherits(e *Evaluator, args *Args) (value.Value, error) {
	m, _, err := args.Match("x", "what", "which")
	if err != nil {
		return nil, err
	}
	what, err := coerce.AsStrings(argOr(m[1], value.Null))
	if err != nil {
		return nil, err
	}
	classes := value.ImplicitClass(argOr(m[0], value.Null))
	for _, w := range what {
		for _, c := range classes {
			if c == w {
				return value.Bool(true), nil
			}
		}
	}
	return value.Bool(false), nil
}

func builtinNames(e *Evaluator, args *Args) (value.Value, error) {
	x, err := firstArg(args, "x")
	if err != nil {
		return nil, err
	}
	switch t := x.(type) {
	case *value.Environment:
		return value.NewStrings(t.ListBindings(true, nil, true)...), nil
	case *value.Pairlist:
		return value.GetAttr(t.ToList(), value.AttrNames), nil
	}
	return value.GetAttr(x, value.AttrNames), nil
}

// namesValue coerces the value of names<- to a character vector of length n,
// padding with NA.
func namesValue(v value.Value, n int) (value.Value, error) {
	if value.IsNull(v) {
		return value.Null, nil
	}
	if f, ok := v.(*value.IntegerVector); ok && value.IsFactor(f) {
		labels, err := factorLabels(f)
		if err != nil {
			return nil, err
		}
		v = labels
	}
	strs, err := coerce.AsStrings(v)
	if err != nil {
		return nil, err
	}
	if len(strs) > n {
		return nil, diagnostics.Errorf(diagnostics.ErrR007, "'names' attribute [%d] must be the same length as the vector [%d]", len(strs), n)
	}
	out := make([]string, n)
	copy(out, strs)
	for i := len(strs); i < n; i++ {
		out[i] = value.NAString
	}
	return value.NewCharacter(out, len(strs) == n && !containsNA(strs)), nil
}

func containsNA(strs []string) bool {
	for _, s := range strs {
		if s == value.NAString {
			return true
		}
	}
	return false
}

func builtinSetNames(e *Evaluator, args *Args) (value.Value, error) {
	m, _, err := args.Match("x", "value")
	if err != nil {
		return nil, err
	}
	if value.IsNull(m[0]) {
		return value.Null, nil
	}
	vec, err := attributeTarget(m[0])
	if err != nil {
		return nil, err
	}
	names, err := namesValue(argOr(m[1], value.Null), vec.Len())
	if err != nil {
		return nil, err
	}
	if err := value.SetAttr(vec, value.AttrNames, names); err != nil {
		return nil, err
	}
	return vec, nil
}

// findAttr resolves which against the attribute names of v: an exact match, else
// the only name it is a prefix of unless exact is set.
func findAttr(v value.Value, which string, exact bool) value.Value {
	vec, ok := v.(value.Vector)
	if !ok {
		return value.Null
	}
	attrs := vec.Attrs()
	if a, ok := attrs.Get(which); ok {
		return a
	}
	if exact {
		return value.Null
	}
	var found value.Value = value.Null
	n := 0
	for _, a := range attrs.Items() {
		if strings.HasPrefix(a.Name, which) {
			found = a.Value
			n++
		}
	}
	if n != 1 {
		return value.Null
	}
	return found
}

func builtinAttr(e *Evaluator, args *Args) (value.Value, error) {
	m, _, err := args.Match("x", "which", "exact")
	if err != nil {
		return nil, err
	}
	which, err := coerce.AsStringScalar(argOr(m[1], value.Null), "which")
	if err != nil {
		return nil, diagnostics.Errorf(diagnostics.ErrR007, "exactly one attribute 'which' must be given")
	}
	exact, err := flagArg(m[2], "exact", false)
	if err != nil {
		return nil, err
	}
	return findAttr(argOr(m[0], value.Null), which, exact), nil
}

// setAttribute stores one attribute on a private vector, coercing the structural
// attributes to their storage kinds.
func setAttribute(vec value.Vector, name string, v value.Value, w diagnostics.Warner) error {
	switch name {
	case value.AttrNames:
		names, err := namesValue(v, vec.Len())
		if err != nil {
			return err
		}
		return value.SetAttr(vec, name, names)
	case value.AttrDim:
		if value.IsNull(v) {
			return value.SetAttr(vec, name, v)
		}
		dv, ok := v.(value.Vector)
		if !ok || !dv.Kind().IsNumeric() {
			return diagnostics.Errorf(diagnostics.ErrR007, "invalid second argument, must be vector or NULL")
		}
		dim, err := coerce.Cast(stripped(dv), value.KindInteger, w)
		if err != nil {
			return err
		}
		if err := value.SetAttr(vec, name, dim); err != nil {
			return err
		}
		return value.SetAttr(vec, value.AttrNames, value.Null)
	case value.AttrDimNames:
		dn, err := dimnamesValue(v)
		if err != nil {
			return err
		}
		return value.SetAttr(vec, name, dn)
	case value.AttrClass, value.AttrLevels:
		if value.IsNull(v) {
			return value.SetAttr(vec, name, v)
		}
		strs, err := coerce.AsStrings(v)
		if err != nil {
			return err
		}
		return value.SetAttr(vec, name, value.NewStrings(strs...))
	}
	return value.SetAttr(vec, name, v)
}

// dimnamesValue coerces each component of a dimnames list to character.
func dimnamesValue(v value.Value) (value.Value, error) {
	if value.IsNull(v) {
		return value.Null, nil
	}
	l, ok := v.(*value.List)
	if !ok {
		return nil, diagnostics.Errorf(diagnostics.ErrR007, "'dimnames' must be a list")
	}
	elems := make([]value.Value, l.Len())
	for i, el := range l.Data() {
		if value.IsNull(el) {
			elems[i] = value.Null
			continue
		}
		strs, err := coerce.AsStrings(el)
		if err != nil {
			return nil, err
		}
		elems[i] = value.NewStrings(strs...)
	}
	out := value.NewList(elems)
	if names := value.Names(l); names != nil {
		_ = value.SetAttr(out, value.AttrNames, names)
	}
	return out, nil
}

func builtinSetAttr(e *Evaluator, args *Args) (value.Value, error) {
	m, _, err := args.Match("x", "which", "value")
	if err != nil {
		return nil, err
	}
	which, err := coerce.AsStringScalar(argOr(m[1], value.Null), "which")
	if err != nil {
		return nil, diagnostics.Errorf(diagnostics.ErrR007, "'name' must be non-null character string")
	}
	vec, err := attributeTarget(m[0])
	if err != nil {
		return nil, err
	}
	if err := setAttribute(vec, which, argOr(m[2], value.Null), e.warnerAt(args.Call)); err != nil {
		return nil, err
	}
	return vec, nil
}

func builtinAttributes(e *Evaluator, args *Args) (value.Value, error) {
	x, err := firstArg(args, "x")
	if err != nil {
		return nil, err
	}
	vec, ok := x.(value.Vector)
	if !ok || vec.Attrs().Len() == 0 {
		return value.Null, nil
	}
	items := vec.Attrs().Items()
	names := make([]string, len(items))
	elems := make([]value.Value, len(items))
	for i, a := range items {
		names[i] = a.Name
		elems[i] = a.Value
	}
	return namedList(names, elems), nil
}

func builtinStructure(e *Evaluator, args *Args) (value.Value, error) {
	m, rest, err := args.Match(".Data", "...")
	if err != nil {
		return nil, err
	}
	vec, err := attributeTarget(argOr(m[0], value.Null))
	if err != nil {
		return nil, err
	}
	w := e.warnerAt(args.Call)
	for _, a := range rest {
		name := a.Name
		switch name {
		case "":
			return nil, diagnostics.Errorf(diagnostics.ErrR007, "attributes must be named")
		case ".Names":
			name = value.AttrNames
		case ".Dim":
			name = value.AttrDim
		case ".Dimnames":
			name = value.AttrDimNames
		}
		if err := setAttribute(vec, name, a.Value, w); err != nil {
			return nil, err
		}
	}
	return vec, nil
}

func builtinDim(e *Evaluator, args *Args) (value.Value, error) {
	x, err := firstArg(args, "x")
	if err != nil {
		return nil, err
	}
	return value.GetAttr(x, value.AttrDim), nil
}

func builtinSetDim(e *Evaluator, args *Args) (value.Value, error) {
	m, _, err := args.Match("x", "value")
	if err != nil {
		return nil, err
	}
	vec, err := attributeTarget(m[0])
	if err != nil {
		return nil, err
	}
	if err := setAttribute(vec, value.AttrDim, argOr(m[1], value.Null), e.warnerAt(args.Call)); err != nil {
		return nil, err
	}
	return vec, nil
}

func builtinDimnames(e *Evaluator, args *Args) (value.Value, error) {
	x, err := firstArg(args, "x")
	if err != nil {
		return nil, err
	}
	return value.GetAttr(x, value.AttrDimNames), nil
}

func builtinSetDimnames(e *Evaluator, args *Args) (value.Value, error) {
	m, _, err := args.Match("x", "value")
	if err != nil {
		return nil, err
	}
	vec, err := attributeTarget(m[0])
	if err != nil {
		return nil, err
	}
	if err := setAttribute(vec, value.AttrDimNames, argOr(m[1], value.Null), e.warnerAt(args.Call)); err != nil {
		return nil, err
	}
	return vec, nil
}

// dimExtent builds nrow and ncol.
func dimExtent(axis int) BuiltinFunction {
	return func(e *Evaluator, args *Args) (value.Value, error) {
		x, err := firstArg(args, "x")
		if err != nil {
			return nil, err
		}
		dim := value.Dim(x)
		if dim == nil || dim.Len() <= axis {
			return value.Null, nil
		}
		return value.NewIntegerScalar(dim.At(axis)), nil
	}
}

// naMask returns is.na of every element of vec, keeping names and dimensions.
func naMask(vec value.Vector) *value.LogicalVector {
	out := make([]value.Logical, vec.Len())
	if !vec.IsComplete() {
		for i := range out {
			isNA := vec.IsNA(i)
			if d, ok := vec.(*value.DoubleVector); ok && !isNA {
				isNA = value.IsNaNOrNA(d.At(i))
			}
			out[i] = value.LogicalOf(isNA)
		}
	}
	res := value.NewLogical(out, true)
	for _, name := range []string{value.AttrNames, value.AttrDim, value.AttrDimNames} {
		if a := value.GetAttr(vec, name); !value.IsNull(a) {
			_ = value.SetAttr(res, name, a)
		}
	}
	return res
}

func builtinIsNA(e *Evaluator, args *Args) (value.Value, error) {
	x, err := firstArg(args, "x")
	if err != nil {
		return nil, err
	}
	vec, ok := x.(value.Vector)
	if !ok {
		if value.IsNull(x) {
			return value.NewLogical(nil, true), nil
		}
		e.signalWarning(diagnostics.Warning{Code: diagnostics.WarnW001,
			Message: "is.na() applied to non-(list or vector) of type '" + x.Kind().String() + "'"})
		return value.Bool(false), nil
	}
	return naMask(vec), nil
}

func builtinAnyNA(e *Evaluator, args *Args) (value.Value, error) {
	x, err := firstArg(args, "x")
	if err != nil {
		return nil, err
	}
	vec, ok := x.(value.Vector)
	if !ok || vec.IsComplete() {
		return value.Bool(false), nil
	}
	for _, l := range naMask(vec).Data() {
		if l == value.True {
			return value.Bool(true), nil
		}
	}
	return value.Bool(false), nil
}

func kindPredicate(pred func(value.Value) bool) BuiltinFunction {
	return func(e *Evaluator, args *Args) (value.Value, error) {
		x, err := firstArg(args, "x")
		if err != nil {
			return nil, err
		}
		return value.Bool(pred(x)), nil
	}
}

func ofKind(k value.Kind) func(value.Value) bool {
	return func(v value.Value) bool { return v.Kind() == k }
}

func isFunction(v value.Value) bool {
	k := v.Kind()
	return k == value.KindClosure || k == value.KindBuiltin
}

func isNumeric(v value.Value) bool {
	k := v.Kind()
	return (k == value.KindInteger || k == value.KindDouble) && !value.IsFactor(v)
}

func isList(v value.Value) bool {
	k := v.Kind()
	return k == value.KindList || k == value.KindPairlist
}

// isPlainVector is is.vector(x): an atomic vector or list with no attributes other
// than names.
func isPlainVector(v value.Value) bool {
	vec, ok := v.(value.Vector)
	if !ok {
		return false
	}
	for _, a := range vec.Attrs().Items() {
		if a.Name != value.AttrNames {
			return false
		}
	}
	return true
}

// castBuiltin builds the as.<kind> functions: the result carries no attributes.
func castBuiltin(k value.Kind) BuiltinFunction {
	return func(e *Evaluator, args *Args) (value.Value, error) {
		m, _, err := args.Match("x", "...")
		if err != nil {
			return nil, err
		}
		x := argOr(m[0], value.Null)
		if value.IsNull(x) {
			return value.NewVectorOfKind(k, 0), nil
		}
		return castValue(x, k, e.warnerAt(args.Call))
	}
}

func castValue(x value.Value, k value.Kind, w diagnostics.Warner) (value.Vector, error) {
	if f, ok := x.(*value.IntegerVector); ok && value.IsFactor(f) && k == value.KindCharacter {
		labels, err := factorLabels(f)
		if err != nil {
			return nil, err
		}
		return stripped(labels), nil
	}
	if env, ok := x.(*value.Environment); ok && k == value.KindList {
		return envAsList(env), nil
	}
	vec, err := coerce.CastToVector(x)
	if err != nil {
		return nil, err
	}
	out, err := coerce.Cast(vec, k, w)
	if err != nil {
		return nil, err
	}
	if k == value.KindList || k == value.KindExpression {
		return out, nil
	}
	if out == vec {
		return stripped(vec), nil
	}
	out.SetAttrs(nil)
	return out, nil
}

// envAsList returns the bindings of env as a named list, sorted by name.
func envAsList(env *value.Environment) *value.List {
	names := env.ListBindings(false, nil, true)
	elems := make([]value.Value, len(names))
	for i, n := range names {
		v, _ := env.Get(n)
		if p, ok := v.(*value.Promise); ok && p.IsForced() {
			v = p.Value()
		}
		elems[i] = v
	}
	return namedList(names, elems)
}

func builtinAsList(e *Evaluator, args *Args) (value.Value, error) {
	m, _, err := args.Match("x", "...")
	if err != nil {
		return nil, err
	}
	x := argOr(m[0], value.Null)
	if value.IsNull(x) {
		return value.NewList(nil), nil
	}
	if l, ok := x.(*value.List); ok {
		return l, nil
	}
	if _, ok := x.(*value.Environment); !ok {
		if vec, ok := x.(value.Vector); ok && value.IsFactor(vec) {
			labels, err := factorLabels(vec.(*value.IntegerVector))
			if err != nil {
				return nil, err
			}
			elems := make([]value.Value, labels.Len())
			for i := range elems {
				elems[i] = element(vec, i)
			}
			return value.NewList(elems), nil
		}
	}
	return castValue(x, value.KindList, e.warnerAt(args.Call))
}

func builtinAsVector(e *Evaluator, args *Args) (value.Value, error) {
	m, _, err := args.Match("x", "mode")
	if err != nil {
		return nil, err
	}
	x := argOr(m[0], value.Null)
	mode := "any"
	if supplied(m[1]) {
		if mode, err = coerce.AsStringScalar(m[1], "mode"); err != nil {
			return nil, err
		}
	}
	if mode == "any" {
		vec, ok := x.(value.Vector)
		if !ok {
			if value.IsNull(x) {
				return value.Null, nil
			}
			return nil, diagnostics.Errorf(diagnostics.ErrR007, "cannot coerce type '%s' to vector of type 'any'", x.Kind())
		}
		if value.IsFactor(vec) {
			return castValue(vec, value.KindCharacter, nil)
		}
		if vec.Kind().IsAtomic() {
			return stripped(vec), nil
		}
		return vec, nil
	}
	k, ok := value.KindFromName(mode)
	if !ok || !k.IsVector() {
		return nil, diagnostics.Errorf(diagnostics.ErrR007, "vector: cannot make a vector of mode '%s'.", mode)
	}
	if value.IsNull(x) {
		return value.NewVectorOfKind(k, 0), nil
	}
	return castValue(x, k, e.warnerAt(args.Call))
}

func builtinAsName(e *Evaluator, args *Args) (value.Value, error) {
	x, err := firstArg(args, "x")
	if err != nil {
		return nil, err
	}
	if s, ok := x.(*value.Symbol); ok {
		return s, nil
	}
	strs, err := coerce.AsStrings(x)
	if err != nil || len(strs) == 0 || strs[0] == "" {
		return nil, diagnostics.Errorf(diagnostics.ErrR007, "invalid type/length (symbol/%d) in vector allocation", len(strs))
	}
	return value.Intern(strs[0]), nil
}
