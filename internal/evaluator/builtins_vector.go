package evaluator

import (
	"cmp"
	"math"
	"slices"
	"strconv"

	"github.com/funvibe/rcore/internal/coerce"
	"github.com/funvibe/rcore/internal/diagnostics"
	"github.com/funvibe/rcore/internal/value"
)

// VectorBuiltins returns the constructors and generic vector utilities.
func VectorBuiltins() map[string]*Builtin {
	return map[string]*Builtin{
		"c":          {Fn: builtinC},
		"list":       {Fn: builtinList},
		"vector":     {Fn: builtinVector},
		"logical":    {Fn: kindConstructor(value.KindLogical)},
		"integer":    {Fn: kindConstructor(value.KindInteger)},
		"numeric":    {Fn: kindConstructor(value.KindDouble)},
		"double":     {Fn: kindConstructor(value.KindDouble)},
		"complex":    {Fn: kindConstructor(value.KindComplex)},
		"character":  {Fn: kindConstructor(value.KindCharacter)},
		"length":     {Fn: builtinLength},
		"length<-":   {Fn: builtinSetLength},
		"rev":        {Fn: builtinRev},
		"seq_len":    {Fn: builtinSeqLen},
		"seq_along":  {Fn: builtinSeqAlong},
		"seq":        {Fn: builtinSeq},
		"rep":        {Fn: builtinRep},
		"unlist":     {Fn: builtinUnlist},
		"which":      {Fn: builtinWhich},
		"any":        {Fn: builtinAny},
		"all":        {Fn: builtinAll},
		"match":      {Fn: builtinMatch},
		"%in%":       {Fn: builtinIn},
		"unique":     {Fn: builtinUnique},
		"duplicated": {Fn: builtinDuplicated},
		"sort":       {Fn: builtinSort},
		"order":      {Fn: builtinOrder},
		"identical":  {Fn: builtinIdentical},
		"factor":     {Fn: builtinFactor},
		"levels":     {Fn: builtinLevels},
		"levels<-":   {Fn: builtinSetLevels},
		"nlevels":    {Fn: builtinNlevels},
	}
}

func builtinC(e *Evaluator, args *Args) (value.Value, error) {
	vals := make([]value.Value, 0, len(args.List))
	tags := make([]string, 0, len(args.List))
	for _, a := range args.List {
		if a.Name == "recursive" || a.Name == "use.names" {
			continue
		}
		vals = append(vals, a.Value)
		tags = append(tags, a.Name)
	}
	return combine(vals, tags, e.warnerAt(args.Call))
}

// elementName is the name an element gets when its vector is combined under tag.
func elementName(tag string, names *value.CharacterVector, i, n int) string {
	nm := ""
	if names != nil {
		nm = names.At(i)
	}
	switch {
	case tag == "":
		return nm
	case nm != "":
		return tag + "." + nm
	case n == 1:
		return tag
	}
	return tag + strconv.Itoa(i+1)
}

// combine implements c(): the result kind is the highest kind among the arguments,
// lists are spliced one level and non-vector values make the result a list.
func combine(vals []value.Value, tags []string, w diagnostics.Warner) (value.Value, error) {
	kind := value.KindNull
	n := 0
	named := false
	factors, others := 0, 0
	for i, v := range vals {
		if value.IsNull(v) {
			continue
		}
		if tags[i] != "" {
			named = true
		}
		vec, ok := v.(value.Vector)
		if !ok {
			kind = value.KindList
			n++
			others++
			continue
		}
		if value.Names(vec) != nil {
			named = true
		}
		if value.IsFactor(vec) {
			factors++
		} else {
			others++
		}
		kind = coerce.MaxPrecedence(kind, vec.Kind())
		n += vec.Len()
	}
	if kind == value.KindNull {
		return value.Null, nil
	}
	if factors > 0 && others == 0 {
		return combineFactors(vals)
	}

	names := make([]string, 0, n)
	var out value.Vector
	if kind == value.KindList || kind == value.KindExpression {
		elems := make([]value.Value, 0, n)
		for i, v := range vals {
			switch x := v.(type) {
			case *value.List:
				for j, el := range x.Data() {
					elems = append(elems, el)
					names = append(names, elementName(tags[i], value.Names(x), j, x.Len()))
				}
			case *value.ExpressionVector:
				for j, el := range x.Data() {
					elems = append(elems, el)
					names = append(names, elementName(tags[i], value.Names(x), j, x.Len()))
				}
			case value.Vector:
				for j := 0; j < x.Len(); j++ {
					elems = append(elems, x.Elem(j))
					names = append(names, elementName(tags[i], value.Names(x), j, x.Len()))
				}
			default:
				if value.IsNull(v) {
					continue
				}
				elems = append(elems, v)
				names = append(names, tags[i])
			}
		}
		for _, el := range elems {
			value.MarkShared(el)
		}
		if kind == value.KindExpression {
			out = value.NewExpression(elems)
		} else {
			out = value.NewList(elems)
		}
	} else {
		out = value.NewVectorOfKind(kind, n)
		pos := 0
		for i, v := range vals {
			if value.IsNull(v) {
				continue
			}
			vec := v.(value.Vector)
			cv, err := coerce.Cast(vec, kind, w)
			if err != nil {
				return nil, err
			}
			for j := 0; j < cv.Len(); j++ {
				value.CopyElement(out, pos, cv, j)
				names = append(names, elementName(tags[i], value.Names(vec), j, vec.Len()))
				pos++
			}
		}
	}
	if named {
		if err := value.SetAttr(out, value.AttrNames, value.NewStrings(names...)); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// combineFactors concatenates factors into a factor over the union of their levels.
func combineFactors(vals []value.Value) (value.Value, error) {
	var labels []string
	var levels []string
	seen := map[string]bool{}
	for _, v := range vals {
		if value.IsNull(v) {
			continue
		}
		f := v.(*value.IntegerVector)
		lab, err := factorLabels(f)
		if err != nil {
			return nil, err
		}
		labels = append(labels, lab.Data()...)
		lv, _ := value.GetAttr(f, value.AttrLevels).(*value.CharacterVector)
		if lv == nil {
			continue
		}
		for _, l := range lv.Data() {
			if !seen[l] {
				seen[l] = true
				levels = append(levels, l)
			}
		}
	}
	return makeFactor(labels, levels)
}

// makeFactor encodes labels against levels; labels outside levels become NA.
func makeFactor(labels []string, levels []string) (*value.IntegerVector, error) {
	index := make(map[string]int32, len(levels))
	for i, l := range levels {
		if _, dup := index[l]; dup {
			return nil, diagnostics.Errorf(diagnostics.ErrR007, "factor level [%d] is duplicated", i+1)
		}
		index[l] = int32(i + 1)
	}
	codes := make([]int32, len(labels))
	complete := true
	for i, s := range labels {
		c, ok := index[s]
		if !ok || s == value.NAString {
			c = value.NAInteger
			complete = false
		}
		codes[i] = c
	}
	f := value.NewInteger(codes, complete)
	if err := value.SetAttr(f, value.AttrLevels, value.NewStrings(levels...)); err != nil {
		return nil, err
	}
	if err := value.SetAttr(f, value.AttrClass, value.NewStrings("factor")); err != nil {
		return nil, err
	}
	return f, nil
}

func builtinList(e *Evaluator, args *Args) (value.Value, error) {
	elems := make([]value.Value, len(args.List))
	names := make([]string, len(args.List))
	named := false
	for i, a := range args.List {
		elems[i] = a.Value
		names[i] = a.Name
		if a.Name != "" {
			named = true
		}
	}
	if named {
		return namedList(names, elems), nil
	}
	for _, el := range elems {
		value.MarkShared(el)
	}
	return value.NewList(elems), nil
}

func builtinVector(e *Evaluator, args *Args) (value.Value, error) {
	m, _, err := args.Match("mode", "length")
	if err != nil {
		return nil, err
	}
	mode := "logical"
	if supplied(m[0]) {
		if mode, err = coerce.AsStringScalar(m[0], "mode"); err != nil {
			return nil, err
		}
	}
	k, ok := value.KindFromName(mode)
	if !ok || !k.IsVector() {
		return nil, diagnostics.Errorf(diagnostics.ErrR007, "vector: cannot make a vector of mode '%s'.", mode)
	}
	n := 0
	if supplied(m[1]) {
		if n, err = lengthArg(m[1], "length", e.warnerAt(args.Call)); err != nil {
			return nil, err
		}
	}
	return value.NewVectorOfKind(k, n), nil
}

func lengthArg(v value.Value, name string, w diagnostics.Warner) (int, error) {
	n, err := coerce.AsIntegerScalar(v, name, w)
	if err != nil || n < 0 {
		return 0, diagnostics.Errorf(diagnostics.ErrR007, "invalid '%s' argument", name)
	}
	return n, nil
}

// kindConstructor builds logical(n), integer(n) and friends.
func kindConstructor(k value.Kind) BuiltinFunction {
	return func(e *Evaluator, args *Args) (value.Value, error) {
		m, _, err := args.Match("length")
		if err != nil {
			return nil, err
		}
		n := 0
		if supplied(m[0]) {
			if n, err = lengthArg(m[0], "length", e.warnerAt(args.Call)); err != nil {
				return nil, err
			}
		}
		return value.NewVectorOfKind(k, n), nil
	}
}

func builtinLength(e *Evaluator, args *Args) (value.Value, error) {
	m, _, err := args.Match("x")
	if err != nil {
		return nil, err
	}
	if err := requireArg(m[0], "x"); err != nil {
		return nil, err
	}
	return value.Int(value.Length(m[0])), nil
}

func builtinSetLength(e *Evaluator, args *Args) (value.Value, error) {
	m, _, err := args.Match("x", "value")
	if err != nil {
		return nil, err
	}
	n, err := lengthArg(m[1], "value", e.warnerAt(args.Call))
	if err != nil {
		return nil, err
	}
	if value.IsNull(m[0]) {
		if n == 0 {
			return value.Null, nil
		}
		return value.NewNAVector(value.KindLogical, n), nil
	}
	vec, ok := m[0].(value.Vector)
	if !ok {
		return nil, diagnostics.Errorf(diagnostics.ErrR007, "invalid argument")
	}
	out := vec.Resize(n)
	names := value.Names(out)
	out.SetAttrs(nil)
	if names != nil {
		_ = value.SetAttr(out, value.AttrNames, names)
	}
	return out, nil
}

func builtinRev(e *Evaluator, args *Args) (value.Value, error) {
	m, _, err := args.Match("x")
	if err != nil {
		return nil, err
	}
	if value.IsNull(m[0]) {
		return value.Null, nil
	}
	vec, ok := m[0].(value.Vector)
	if !ok {
		return nil, diagnostics.Errorf(diagnostics.ErrR007, "argument is not a vector")
	}
	idx := make([]int, vec.Len())
	for i := range idx {
		idx[i] = vec.Len() - 1 - i
	}
	out := value.Subset(vec, idx)
	keepFactor(out, vec)
	return out, nil
}

// intRange returns from, from+1, ..., from+n-1.
func intRange(from, n int) *value.IntegerVector {
	out := make([]int32, n)
	for i := range out {
		out[i] = int32(from + i)
	}
	return value.NewInteger(out, true)
}

func builtinSeqLen(e *Evaluator, args *Args) (value.Value, error) {
	m, _, err := args.Match("length.out")
	if err != nil {
		return nil, err
	}
	n, err := coerce.AsIntegerScalar(m[0], "length.out", e.warnerAt(args.Call))
	if err != nil || n < 0 {
		return nil, diagnostics.Errorf(diagnostics.ErrR007, "argument of length 0")
	}
	return intRange(1, n), nil
}

func builtinSeqAlong(e *Evaluator, args *Args) (value.Value, error) {
	m, _, err := args.Match("along.with")
	if err != nil {
		return nil, err
	}
	return intRange(1, value.Length(argOr(m[0], value.Null))), nil
}

// isWhole reports whether x is an integral double inside the int32 range.
func isWhole(x float64) bool {
	return x == math.Trunc(x) && inInt32(x)
}

func builtinSeq(e *Evaluator, args *Args) (value.Value, error) {
	m, _, err := args.Match("from", "to", "by", "length.out", "along.with")
	if err != nil {
		return nil, err
	}
	w := e.warnerAt(args.Call)
	from, to, by, lengthOut, along := m[0], m[1], m[2], m[3], m[4]
	if supplied(along) {
		return intRange(1, value.Length(along)), nil
	}
	if supplied(from) && !supplied(to) && !supplied(by) && !supplied(lengthOut) {
		if value.Length(from) == 1 {
			return colon(value.Int(1), from, w)
		}
		return intRange(1, value.Length(from)), nil
	}
	fromX, toX := 1.0, 1.0
	if supplied(from) {
		if fromX, err = coerce.AsDoubleScalar(from, "from", w); err != nil {
			return nil, err
		}
	}
	if supplied(to) {
		if toX, err = coerce.AsDoubleScalar(to, "to", w); err != nil {
			return nil, err
		}
	}
	if math.IsNaN(fromX) || math.IsNaN(toX) {
		return nil, diagnostics.Errorf(diagnostics.ErrR007, "'from' must be a finite number")
	}
	if supplied(lengthOut) {
		n, err := lengthArg(lengthOut, "length.out", w)
		if err != nil {
			return nil, err
		}
		out := make([]float64, n)
		switch {
		case supplied(by):
			step, err := coerce.AsDoubleScalar(by, "by", w)
			if err != nil {
				return nil, err
			}
			if !supplied(from) && supplied(to) {
				fromX = toX - float64(n-1)*step
			}
			for i := range out {
				out[i] = fromX + float64(i)*step
			}
		case !supplied(to):
			for i := range out {
				out[i] = fromX + float64(i)
			}
		case !supplied(from):
			for i := range out {
				out[i] = toX - float64(n-1-i)
			}
		case n == 1:
			out[0] = fromX
		default:
			step := (toX - fromX) / float64(n-1)
			for i := range out {
				out[i] = fromX + float64(i)*step
			}
		}
		return doublesOrInts(out, isIntegerArg(from) || !supplied(from)), nil
	}
	if !supplied(by) {
		return colon(argOr(from, value.Int(1)), argOr(to, value.Int(1)), w)
	}
	step, err := coerce.AsDoubleScalar(by, "by", w)
	if err != nil {
		return nil, err
	}
	if math.IsNaN(step) || step == 0 && fromX != toX {
		return nil, diagnostics.Errorf(diagnostics.ErrR007, "invalid '(to - from)/by' in seq(.)")
	}
	if fromX == toX {
		return doublesOrInts([]float64{fromX}, isIntegerArg(from)), nil
	}
	if (toX-fromX)/step < 0 {
		return nil, diagnostics.Errorf(diagnostics.ErrR007, "wrong sign in 'by' argument")
	}
	n := int(math.Floor((toX-fromX)/step+1e-10)) + 1
	out := make([]float64, n)
	for i := range out {
		out[i] = fromX + float64(i)*step
	}
	return doublesOrInts(out, isIntegerArg(from) && isIntegerArg(by)), nil
}

func isIntegerArg(v value.Value) bool {
	if v == nil {
		return false
	}
	k := v.Kind()
	return k == value.KindInteger || k == value.KindLogical
}

// doublesOrInts returns xs as integers when asInt is set and every value is whole.
func doublesOrInts(xs []float64, asInt bool) value.Vector {
	if asInt {
		ints := make([]int32, len(xs))
		for i, x := range xs {
			if !isWhole(x) {
				return value.NewDoubles(xs...)
			}
			ints[i] = int32(x)
		}
		return value.NewInteger(ints, true)
	}
	return value.NewDoubles(xs...)
}

func builtinRep(e *Evaluator, args *Args) (value.Value, error) {
	m, _, err := args.Match("x", "times", "each", "length.out")
	if err != nil {
		return nil, err
	}
	w := e.warnerAt(args.Call)
	if value.IsNull(m[0]) || !supplied(m[0]) {
		return value.Null, nil
	}
	vec, ok := m[0].(value.Vector)
	if !ok {
		return nil, diagnostics.Errorf(diagnostics.ErrR007, "attempt to replicate an object of type '%s'", m[0].Kind())
	}
	idx := make([]int, vec.Len())
	for i := range idx {
		idx[i] = i
	}
	if supplied(m[2]) {
		each, err := lengthArg(m[2], "each", w)
		if err != nil {
			return nil, err
		}
		expanded := make([]int, 0, len(idx)*each)
		for _, i := range idx {
			for k := 0; k < each; k++ {
				expanded = append(expanded, i)
			}
		}
		idx = expanded
	}
	if supplied(m[1]) && !supplied(m[3]) {
		times, ok := m[1].(value.Vector)
		if !ok || times.Len() == 0 {
			return nil, diagnostics.Errorf(diagnostics.ErrR007, "invalid 'times' argument")
		}
		tv, err := coerce.Cast(times, value.KindInteger, w)
		if err != nil {
			return nil, err
		}
		counts := tv.(*value.IntegerVector).Data()
		for _, c := range counts {
			if c == value.NAInteger || c < 0 {
				return nil, diagnostics.Errorf(diagnostics.ErrR007, "invalid 'times' argument")
			}
		}
		var expanded []int
		switch {
		case len(counts) == 1:
			for k := 0; k < int(counts[0]); k++ {
				expanded = append(expanded, idx...)
			}
		case len(counts) == len(idx):
			for j, i := range idx {
				for k := 0; k < int(counts[j]); k++ {
					expanded = append(expanded, i)
				}
			}
		default:
			return nil, diagnostics.Errorf(diagnostics.ErrR007, "invalid 'times' argument")
		}
		idx = expanded
	}
	if supplied(m[3]) {
		n, err := lengthArg(m[3], "length.out", w)
		if err != nil {
			return nil, err
		}
		if len(idx) == 0 && n > 0 {
			idx = []int{-1}
		}
		out := make([]int, n)
		for i := range out {
			out[i] = idx[i%len(idx)]
		}
		idx = out
	}
	out := value.Subset(vec, idx)
	keepFactor(out, vec)
	return out, nil
}

func builtinUnlist(e *Evaluator, args *Args) (value.Value, error) {
	m, _, err := args.Match("x", "recursive", "use.names")
	if err != nil {
		return nil, err
	}
	useNames, err := flagArg(m[2], "use.names", true)
	if err != nil {
		return nil, err
	}
	out, err := unlist(m[0], e.warnerAt(args.Call))
	if err != nil {
		return nil, err
	}
	if vec, ok := out.(value.Vector); ok && !useNames && value.Names(vec) != nil {
		vec = ownedCopy(vec)
		_ = value.SetAttr(vec, value.AttrNames, value.Null)
		return vec, nil
	}
	return out, nil
}

// unlist flattens nested lists into one atomic vector where possible.
func unlist(v value.Value, w diagnostics.Warner) (value.Value, error) {
	l, ok := v.(*value.List)
	if !ok {
		return v, nil
	}
	names := value.Names(l)
	vals := make([]value.Value, l.Len())
	tags := make([]string, l.Len())
	for i, el := range l.Data() {
		if _, nested := el.(*value.List); nested {
			flat, err := unlist(el, w)
			if err != nil {
				return nil, err
			}
			el = flat
		}
		vals[i] = el
		if names != nil {
			tags[i] = names.At(i)
		}
	}
	return combine(vals, tags, w)
}

func logicalArg(v value.Value, fname string) (*value.LogicalVector, error) {
	if l, ok := v.(*value.LogicalVector); ok {
		return l, nil
	}
	return nil, diagnostics.Errorf(diagnostics.ErrR007, "argument to '%s' is not logical", fname)
}

func builtinWhich(e *Evaluator, args *Args) (value.Value, error) {
	m, _, err := args.Match("x")
	if err != nil {
		return nil, err
	}
	l, err := logicalArg(m[0], "which")
	if err != nil {
		return nil, err
	}
	var idx []int32
	var names []string
	src := value.Names(l)
	for i, x := range l.Data() {
		if x == value.True {
			idx = append(idx, int32(i+1))
			if src != nil {
				names = append(names, src.At(i))
			}
		}
	}
	out := value.NewInteger(idx, true)
	if src != nil {
		_ = value.SetAttr(out, value.AttrNames, value.NewStrings(names...))
	}
	return out, nil
}

// logicalsOf casts the arguments of any() and all() to logical.
func logicalsOf(list []Arg, fname string, w diagnostics.Warner) ([]value.Logical, bool, error) {
	var out []value.Logical
	naRm := false
	for _, a := range list {
		if a.Name == "na.rm" {
			f, err := coerce.AsLogicalFlag(a.Value, "na.rm")
			if err != nil {
				return nil, false, err
			}
			naRm = f
			continue
		}
		if value.IsNull(a.Value) {
			continue
		}
		vec, ok := a.Value.(value.Vector)
		if !ok || !vec.Kind().IsNumeric() {
			return nil, false, diagnostics.Errorf(diagnostics.ErrR007, "invalid 'type' (%s) of argument", a.Value.Kind())
		}
		if vec.Kind() != value.KindLogical && vec.Kind() != value.KindInteger {
			w.Warn(diagnostics.NewWarning(diagnostics.WarnW001, "coercing argument of type '%s' to logical", vec.Kind()))
		}
		lv, err := coerce.Cast(vec, value.KindLogical, nil)
		if err != nil {
			return nil, false, err
		}
		out = append(out, lv.(*value.LogicalVector).Data()...)
	}
	return out, naRm, nil
}

func builtinAny(e *Evaluator, args *Args) (value.Value, error) {
	xs, naRm, err := logicalsOf(args.List, "any", e.warnerAt(args.Call))
	if err != nil {
		return nil, err
	}
	res := value.False
	for _, x := range xs {
		if x == value.True {
			return value.Bool(true), nil
		}
		if x == value.NALogical && !naRm {
			res = value.NALogical
		}
	}
	return value.NewLogicals(res), nil
}

func builtinAll(e *Evaluator, args *Args) (value.Value, error) {
	xs, naRm, err := logicalsOf(args.List, "all", e.warnerAt(args.Call))
	if err != nil {
		return nil, err
	}
	res := value.True
	for _, x := range xs {
		if x == value.False {
			return value.Bool(false), nil
		}
		if x == value.NALogical && !naRm {
			res = value.NALogical
		}
	}
	return value.NewLogicals(res), nil
}

type naKey struct{}

type nanKey struct{}

// matchKind is the kind both sides of a match are compared in.
func matchKind(a, b value.Vector) value.Kind {
	if value.IsFactor(a) || value.IsFactor(b) {
		return value.KindCharacter
	}
	k := coerce.MaxPrecedence(a.Kind(), b.Kind())
	switch k {
	case value.KindCharacter, value.KindComplex, value.KindList, value.KindExpression:
		return k
	}
	return value.KindDouble
}

// matchKeys maps each element of v to a comparable key in kind k. NA keys compare
// equal to each other.
func matchKeys(v value.Vector, k value.Kind) ([]any, error) {
	if value.IsFactor(v) {
		labels, err := factorLabels(v.(*value.IntegerVector))
		if err != nil {
			return nil, err
		}
		v = labels
	}
	keys := make([]any, v.Len())
	switch k {
	case value.KindList, value.KindExpression:
		for i := range keys {
			keys[i] = deparseValue(element(v, i))
		}
		return keys, nil
	}
	cv, err := coerce.Cast(v, k, nil)
	if err != nil {
		return nil, err
	}
	switch x := cv.(type) {
	case *value.CharacterVector:
		for i, s := range x.Data() {
			keys[i] = s
		}
	case *value.ComplexVector:
		for i, c := range x.Data() {
			if value.IsNAComplex(c) {
				keys[i] = naKey{}
			} else {
				keys[i] = c
			}
		}
	case *value.DoubleVector:
		for i, d := range x.Data() {
			switch {
			case value.IsNADouble(d):
				keys[i] = naKey{}
			case math.IsNaN(d):
				keys[i] = nanKey{}
			default:
				keys[i] = d
			}
		}
	}
	return keys, nil
}

func vectorArg(v value.Value, fname string) (value.Vector, error) {
	if value.IsNull(v) {
		return value.NewLogical(nil, true), nil
	}
	vec, ok := v.(value.Vector)
	if !ok {
		return nil, diagnostics.Errorf(diagnostics.ErrR007, "'%s' requires vector arguments", fname)
	}
	return vec, nil
}

// matchPositions returns, for each element of x, the 1-based position of its first
// occurrence in table or nomatch.
func matchPositions(x, table value.Vector, nomatch int32) ([]int32, error) {
	k := matchKind(x, table)
	xk, err := matchKeys(x, k)
	if err != nil {
		return nil, err
	}
	tk, err := matchKeys(table, k)
	if err != nil {
		return nil, err
	}
	first := make(map[any]int32, len(tk))
	for i, key := range tk {
		if _, ok := first[key]; !ok {
			first[key] = int32(i + 1)
		}
	}
	out := make([]int32, len(xk))
	for i, key := range xk {
		if p, ok := first[key]; ok {
			out[i] = p
		} else {
			out[i] = nomatch
		}
	}
	return out, nil
}

func builtinMatch(e *Evaluator, args *Args) (value.Value, error) {
	m, _, err := args.Match("x", "table", "nomatch")
	if err != nil {
		return nil, err
	}
	x, err := vectorArg(m[0], "match")
	if err != nil {
		return nil, err
	}
	table, err := vectorArg(m[1], "match")
	if err != nil {
		return nil, err
	}
	nomatch := value.NAInteger
	if supplied(m[2]) {
		nm, err := vectorArg(m[2], "match")
		if err != nil {
			return nil, err
		}
		n, err := coerce.Cast(nm, value.KindInteger, nil)
		if err != nil || n.Len() == 0 {
			return nil, diagnostics.Errorf(diagnostics.ErrR007, "invalid 'nomatch' argument")
		}
		nomatch = n.(*value.IntegerVector).At(0)
	}
	pos, err := matchPositions(x, table, nomatch)
	if err != nil {
		return nil, err
	}
	return value.NewIntegers(pos...), nil
}

func builtinIn(e *Evaluator, args *Args) (value.Value, error) {
	m, _, err := args.Match("x", "table")
	if err != nil {
		return nil, err
	}
	x, err := vectorArg(m[0], "match")
	if err != nil {
		return nil, err
	}
	table, err := vectorArg(m[1], "match")
	if err != nil {
		return nil, err
	}
	pos, err := matchPositions(x, table, 0)
	if err != nil {
		return nil, err
	}
	out := make([]value.Logical, len(pos))
	for i, p := range pos {
		out[i] = value.LogicalOf(p > 0)
	}
	return value.NewLogical(out, true), nil
}

// firstOccurrences reports for each element whether it is the first with its key.
func firstOccurrences(v value.Vector) ([]bool, error) {
	k := v.Kind()
	if !value.IsFactor(v) && k != value.KindCharacter && k != value.KindComplex && k != value.KindList && k != value.KindExpression {
		k = value.KindDouble
	} else if value.IsFactor(v) {
		k = value.KindCharacter
	}
	keys, err := matchKeys(v, k)
	if err != nil {
		return nil, err
	}
	seen := make(map[any]bool, len(keys))
	out := make([]bool, len(keys))
	for i, key := range keys {
		out[i] = !seen[key]
		seen[key] = true
	}
	return out, nil
}

func builtinUnique(e *Evaluator, args *Args) (value.Value, error) {
	m, _, err := args.Match("x")
	if err != nil {
		return nil, err
	}
	if value.IsNull(m[0]) {
		return value.Null, nil
	}
	vec, err := vectorArg(m[0], "unique")
	if err != nil {
		return nil, err
	}
	firsts, err := firstOccurrences(vec)
	if err != nil {
		return nil, err
	}
	var idx []int
	for i, f := range firsts {
		if f {
			idx = append(idx, i)
		}
	}
	out := value.Subset(vec, idx)
	_ = value.SetAttr(out, value.AttrNames, value.Null)
	keepFactor(out, vec)
	return out, nil
}

func builtinDuplicated(e *Evaluator, args *Args) (value.Value, error) {
	m, _, err := args.Match("x")
	if err != nil {
		return nil, err
	}
	vec, err := vectorArg(m[0], "duplicated")
	if err != nil {
		return nil, err
	}
	firsts, err := firstOccurrences(vec)
	if err != nil {
		return nil, err
	}
	out := make([]value.Logical, len(firsts))
	for i, f := range firsts {
		out[i] = value.LogicalOf(!f)
	}
	return value.NewLogical(out, true), nil
}

// sortedIndices returns the positions of the non-NA elements of v in ascending (or
// descending) order, and the positions of the NA elements. The sort is stable.
func sortedIndices(v value.Vector, decreasing bool) (ordered []int, nas []int, err error) {
	var compare func(a, b int) int
	switch x := v.(type) {
	case *value.LogicalVector, *value.IntegerVector, *value.DoubleVector:
		d, err := coerce.Cast(x, value.KindDouble, nil)
		if err != nil {
			return nil, nil, err
		}
		data := d.(*value.DoubleVector).Data()
		compare = func(a, b int) int { return cmp.Compare(data[a], data[b]) }
	case *value.CharacterVector:
		data := x.Data()
		compare = func(a, b int) int { return cmp.Compare(data[a], data[b]) }
	case *value.ComplexVector:
		data := x.Data()
		compare = func(a, b int) int {
			if c := cmp.Compare(real(data[a]), real(data[b])); c != 0 {
				return c
			}
			return cmp.Compare(imag(data[a]), imag(data[b]))
		}
	case *value.RawVector:
		data := x.Data()
		compare = func(a, b int) int { return cmp.Compare(data[a], data[b]) }
	default:
		return nil, nil, diagnostics.Errorf(diagnostics.ErrR007, "'x' must be atomic")
	}
	for i := 0; i < v.Len(); i++ {
		if v.IsNA(i) {
			nas = append(nas, i)
		} else {
			ordered = append(ordered, i)
		}
	}
	slices.SortStableFunc(ordered, func(a, b int) int {
		if decreasing {
			return compare(b, a)
		}
		return compare(a, b)
	})
	return ordered, nas, nil
}

func builtinSort(e *Evaluator, args *Args) (value.Value, error) {
	m, _, err := args.Match("x", "decreasing")
	if err != nil {
		return nil, err
	}
	if value.IsNull(m[0]) {
		return value.Null, nil
	}
	vec, err := vectorArg(m[0], "sort")
	if err != nil {
		return nil, err
	}
	decreasing, err := flagArg(m[1], "decreasing", false)
	if err != nil {
		return nil, err
	}
	idx, _, err := sortedIndices(vec, decreasing)
	if err != nil {
		return nil, err
	}
	out := value.Subset(vec, idx)
	keepFactor(out, vec)
	return out, nil
}

func builtinOrder(e *Evaluator, args *Args) (value.Value, error) {
	m, _, err := args.Match("x", "decreasing")
	if err != nil {
		return nil, err
	}
	vec, err := vectorArg(m[0], "order")
	if err != nil {
		return nil, err
	}
	decreasing, err := flagArg(m[1], "decreasing", false)
	if err != nil {
		return nil, err
	}
	idx, nas, err := sortedIndices(vec, decreasing)
	if err != nil {
		return nil, err
	}
	out := make([]int32, 0, vec.Len())
	for _, i := range append(idx, nas...) {
		out = append(out, int32(i+1))
	}
	return value.NewInteger(out, true), nil
}

func builtinIdentical(e *Evaluator, args *Args) (value.Value, error) {
	m, _, err := args.Match("x", "y")
	if err != nil {
		return nil, err
	}
	return value.Bool(identical(argOr(m[0], value.Null), argOr(m[1], value.Null))), nil
}

// identical compares two values structurally: same kind, elements and attributes.
// NA equals NA and NaN equals NaN.
func identical(a, b value.Value) bool {
	if value.IsNull(a) || value.IsNull(b) {
		return value.IsNull(a) && value.IsNull(b)
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch x := a.(type) {
	case value.Vector:
		y := b.(value.Vector)
		if x.Len() != y.Len() || !identicalAttrs(x.Attrs(), y.Attrs()) {
			return false
		}
		return identicalElements(x, y)
	case *value.Symbol:
		return x == b.(*value.Symbol)
	case *value.Language:
		return x.Node.String() == b.(*value.Language).Node.String()
	case *value.Closure:
		y := b.(*value.Closure)
		return x == y || (x.Env == y.Env && deparseValue(x) == deparseValue(y))
	case *value.Pairlist:
		return identical(x.ToList(), b.(*value.Pairlist).ToList())
	}
	return a == b
}

func identicalAttrs(a, b *value.Attributes) bool {
	if a.Len() != b.Len() {
		return false
	}
	for _, at := range a.Items() {
		other, ok := b.Get(at.Name)
		if !ok || !identical(at.Value, other) {
			return false
		}
	}
	return true
}

func identicalElements(x, y value.Vector) bool {
	switch xv := x.(type) {
	case *value.LogicalVector:
		return slices.Equal(xv.Data(), y.(*value.LogicalVector).Data())
	case *value.IntegerVector:
		return slices.Equal(xv.Data(), y.(*value.IntegerVector).Data())
	case *value.DoubleVector:
		yd := y.(*value.DoubleVector).Data()
		for i, d := range xv.Data() {
			if d == yd[i] {
				continue
			}
			if !math.IsNaN(d) || !math.IsNaN(yd[i]) || value.IsNADouble(d) != value.IsNADouble(yd[i]) {
				return false
			}
		}
		return true
	case *value.ComplexVector:
		yd := y.(*value.ComplexVector).Data()
		for i, c := range xv.Data() {
			if c != yd[i] && !(value.IsNaNOrNAComplex(c) && value.IsNaNOrNAComplex(yd[i])) {
				return false
			}
		}
		return true
	case *value.CharacterVector:
		return slices.Equal(xv.Data(), y.(*value.CharacterVector).Data())
	case *value.RawVector:
		return slices.Equal(xv.Data(), y.(*value.RawVector).Data())
	case *value.List:
		yd := y.(*value.List).Data()
		for i, el := range xv.Data() {
			if !identical(el, yd[i]) {
				return false
			}
		}
		return true
	case *value.ExpressionVector:
		yd := y.(*value.ExpressionVector).Data()
		for i, el := range xv.Data() {
			if !identical(el, yd[i]) {
				return false
			}
		}
		return true
	}
	return false
}

func builtinFactor(e *Evaluator, args *Args) (value.Value, error) {
	m, _, err := args.Match("x", "levels", "labels")
	if err != nil {
		return nil, err
	}
	x, err := atomicArg(argOr(m[0], value.Null), "x", true)
	if err != nil {
		return nil, err
	}
	labels, err := coerce.AsStrings(x)
	if err != nil {
		return nil, err
	}
	var levels []string
	if supplied(m[1]) {
		if levels, err = coerce.AsStrings(m[1]); err != nil {
			return nil, err
		}
	} else {
		idx, _, err := sortedIndices(x, false)
		if err != nil {
			return nil, err
		}
		seen := map[string]bool{}
		for _, i := range idx {
			if !seen[labels[i]] {
				seen[labels[i]] = true
				levels = append(levels, labels[i])
			}
		}
	}
	f, err := makeFactor(labels, levels)
	if err != nil {
		return nil, err
	}
	if supplied(m[2]) {
		newLabels, err := coerce.AsStrings(m[2])
		if err != nil {
			return nil, err
		}
		if len(newLabels) != len(levels) {
			return nil, diagnostics.Errorf(diagnostics.ErrR007, "invalid 'labels'; length %d should be 1 or %d", len(newLabels), len(levels))
		}
		if err := value.SetAttr(f, value.AttrLevels, value.NewStrings(newLabels...)); err != nil {
			return nil, err
		}
	}
	if names := value.Names(x); names != nil {
		_ = value.SetAttr(f, value.AttrNames, names)
	}
	return f, nil
}

func builtinLevels(e *Evaluator, args *Args) (value.Value, error) {
	m, _, err := args.Match("x")
	if err != nil {
		return nil, err
	}
	return value.GetAttr(argOr(m[0], value.Null), value.AttrLevels), nil
}

func builtinSetLevels(e *Evaluator, args *Args) (value.Value, error) {
	m, _, err := args.Match("x", "value")
	if err != nil {
		return nil, err
	}
	vec, ok := m[0].(value.Vector)
	if !ok {
		return nil, diagnostics.Errorf(diagnostics.ErrR007, "invalid first argument")
	}
	lv := argOr(m[1], value.Null)
	if !value.IsNull(lv) {
		strs, err := coerce.AsStrings(lv)
		if err != nil {
			return nil, err
		}
		lv = value.NewStrings(strs...)
	}
	vec = ownedCopy(vec)
	if err := value.SetAttr(vec, value.AttrLevels, lv); err != nil {
		return nil, err
	}
	return vec, nil
}

func builtinNlevels(e *Evaluator, args *Args) (value.Value, error) {
	m, _, err := args.Match("x")
	if err != nil {
		return nil, err
	}
	return value.Int(value.Length(value.GetAttr(argOr(m[0], value.Null), value.AttrLevels))), nil
}
