package evaluator

import (
	"math"
	"strconv"

	"github.com/funvibe/rcore/internal/coerce"
	"github.com/funvibe/rcore/internal/diagnostics"
	"github.com/funvibe/rcore/internal/stats"
	"github.com/funvibe/rcore/internal/value"
)

// StatsBuiltins returns the summaries, math functions and matrix helpers.
func StatsBuiltins() map[string]*Builtin {
	return map[string]*Builtin{
		"sum":         {Fn: builtinSum},
		"prod":        {Fn: builtinProd},
		"min":         {Fn: extremum(false)},
		"max":         {Fn: extremum(true)},
		"range":       {Fn: builtinRange},
		"mean":        {Fn: builtinMean},
		"var":         {Fn: spread(stats.Variance)},
		"sd":          {Fn: spread(stats.StdDev)},
		"cumsum":      {Fn: cumulative("cumsum")},
		"cumprod":     {Fn: cumulative("cumprod")},
		"cummax":      {Fn: cumulative("cummax")},
		"cummin":      {Fn: cumulative("cummin")},
		"abs":         {Fn: builtinAbs},
		"sqrt":        {Fn: mathFunction("sqrt", math.Sqrt)},
		"exp":         {Fn: mathFunction("exp", math.Exp)},
		"expm1":       {Fn: mathFunction("expm1", math.Expm1)},
		"log2":        {Fn: mathFunction("log2", math.Log2)},
		"log10":       {Fn: mathFunction("log10", math.Log10)},
		"log1p":       {Fn: mathFunction("log1p", math.Log1p)},
		"sin":         {Fn: mathFunction("sin", math.Sin)},
		"cos":         {Fn: mathFunction("cos", math.Cos)},
		"tan":         {Fn: mathFunction("tan", math.Tan)},
		"floor":       {Fn: mathFunction("floor", math.Floor)},
		"ceiling":     {Fn: mathFunction("ceiling", math.Ceil)},
		"trunc":       {Fn: mathFunction("trunc", math.Trunc)},
		"sign":        {Fn: mathFunction("sign", sign)},
		"log":         {Fn: builtinLog},
		"round":       {Fn: rounding(roundDigits, 0)},
		"signif":      {Fn: rounding(signifDigits, 6)},
		"is.nan":      {Fn: doublePredicate(value.IsNaNNotNA, false)},
		"is.finite":   {Fn: doublePredicate(func(x float64) bool { return !math.IsInf(x, 0) && x == x }, true)},
		"is.infinite": {Fn: doublePredicate(func(x float64) bool { return math.IsInf(x, 0) }, false)},
		"which.max":   {Fn: whichExtremum(true)},
		"which.min":   {Fn: whichExtremum(false)},
		"matrix":      {Fn: builtinMatrix},
		"t":           {Fn: builtinTranspose},
		"crossprod":   {Fn: builtinCrossprod},
		"rowSums":     {Fn: marginal(0, false)},
		"colSums":     {Fn: marginal(1, false)},
		"rowMeans":    {Fn: marginal(0, true)},
		"colMeans":    {Fn: marginal(1, true)},
	}
}

// summaryArgs gathers the ... arguments of sum, prod, min and max as doubles. kind
// is the result kind: Integer for logical and integer input, Double or Character.
// Integer NA becomes the double NA; with na.rm every NA and NaN is dropped.
func summaryArgs(args *Args, fname string, strings bool) (vals []float64, strs []string, kind value.Kind, err error) {
	m, rest, err := args.Match("...", "na.rm")
	if err != nil {
		return nil, nil, 0, err
	}
	naRm, err := flagArg(m[1], "na.rm", false)
	if err != nil {
		return nil, nil, 0, err
	}
	kind = value.KindInteger
	for _, a := range rest {
		if value.IsNull(a.Value) {
			continue
		}
		vec, ok := a.Value.(value.Vector)
		if !ok || !vec.Kind().IsAtomic() || vec.Kind() == value.KindRaw || vec.Kind() == value.KindComplex ||
			(vec.Kind() == value.KindCharacter && !strings) {
			return nil, nil, 0, diagnostics.Errorf(diagnostics.ErrR007, "invalid 'type' (%s) of argument", a.Value.Kind())
		}
		if value.IsFactor(vec) {
			return nil, nil, 0, diagnostics.Errorf(diagnostics.ErrR007, "'%s' not meaningful for factors", fname)
		}
		switch x := vec.(type) {
		case *value.CharacterVector:
			kind = value.KindCharacter
			for _, s := range x.Data() {
				if s == value.NAString && naRm {
					continue
				}
				strs = append(strs, s)
			}
			continue
		case *value.DoubleVector:
			if kind == value.KindInteger {
				kind = value.KindDouble
			}
			for _, d := range x.Data() {
				if naRm && d != d {
					continue
				}
				vals = append(vals, d)
			}
			continue
		}
		d, err := coerce.Cast(vec, value.KindDouble, nil)
		if err != nil {
			return nil, nil, 0, err
		}
		for _, x := range d.(*value.DoubleVector).Data() {
			if naRm && x != x {
				continue
			}
			vals = append(vals, x)
		}
	}
	if kind == value.KindCharacter {
		for _, x := range vals {
			strs = append(strs, coerce.DoubleToString(x))
		}
		vals = nil
	}
	return vals, strs, kind, nil
}

// naOf reports whether xs holds NA or NaN: NA wins over NaN.
func naOf(xs []float64) (float64, bool) {
	found, nan := false, false
	for _, x := range xs {
		if value.IsNADouble(x) {
			return value.NADouble, true
		}
		if x != x {
			found, nan = true, true
		}
	}
	if nan {
		return math.NaN(), found
	}
	return 0, false
}

func numberResult(x float64, kind value.Kind) value.Value {
	if kind == value.KindInteger {
		if value.IsNaNOrNA(x) {
			return value.NewIntegerScalar(value.NAInteger)
		}
		return value.NewIntegerScalar(int32(x))
	}
	return value.Dbl(x)
}

func builtinSum(e *Evaluator, args *Args) (value.Value, error) {
	vals, _, kind, err := summaryArgs(args, "sum", false)
	if err != nil {
		return nil, err
	}
	if na, ok := naOf(vals); ok {
		return numberResult(na, kind), nil
	}
	s := stats.Sum(vals)
	if kind == value.KindInteger && (s > math.MaxInt32 || s < -math.MaxInt32) {
		e.warnerAt(args.Call).Warn(diagnostics.NewWarning(diagnostics.WarnW004, "integer overflow - use sum(as.numeric(.))"))
		return value.NewIntegerScalar(value.NAInteger), nil
	}
	return numberResult(s, kind), nil
}

func builtinProd(e *Evaluator, args *Args) (value.Value, error) {
	vals, _, _, err := summaryArgs(args, "prod", false)
	if err != nil {
		return nil, err
	}
	if na, ok := naOf(vals); ok {
		return value.Dbl(na), nil
	}
	return value.Dbl(stats.Prod(vals)), nil
}

// extremum builds min and max. Character input compares in byte order.
func extremum(isMax bool) BuiltinFunction {
	name := "min"
	if isMax {
		name = "max"
	}
	return func(e *Evaluator, args *Args) (value.Value, error) {
		vals, strs, kind, err := summaryArgs(args, name, true)
		if err != nil {
			return nil, err
		}
		if kind == value.KindCharacter {
			if len(strs) == 0 {
				return nil, diagnostics.Errorf(diagnostics.ErrR007, "no non-missing arguments to %s", name)
			}
			best := strs[0]
			for _, s := range strs {
				if s == value.NAString {
					return value.Str(value.NAString), nil
				}
				if (isMax && s > best) || (!isMax && s < best) {
					best = s
				}
			}
			return value.Str(best), nil
		}
		if len(vals) == 0 {
			inf := math.Inf(1)
			if isMax {
				inf = math.Inf(-1)
			}
			e.warnerAt(args.Call).Warn(diagnostics.NewWarning(diagnostics.WarnW006, "no non-missing arguments to %s; returning %s", name, coerce.DoubleToString(inf)))
			return value.Dbl(inf), nil
		}
		if na, ok := naOf(vals); ok {
			return numberResult(na, kind), nil
		}
		if isMax {
			return numberResult(stats.Max(vals), kind), nil
		}
		return numberResult(stats.Min(vals), kind), nil
	}
}

func builtinRange(e *Evaluator, args *Args) (value.Value, error) {
	lo, err := extremum(false)(e, args)
	if err != nil {
		return nil, err
	}
	hi, err := extremum(true)(e, args)
	if err != nil {
		return nil, err
	}
	return combine([]value.Value{lo, hi}, []string{"", ""}, e.warnerAt(args.Call))
}

// numericX reads the x argument of mean, var and cumulative functions. ok is false
// for input that is not numeric or logical.
func numericX(v value.Value, naRm bool) (vals []float64, ok bool, err error) {
	vec, isVec := v.(value.Vector)
	if !isVec || value.IsFactor(vec) || !vec.Kind().IsNumeric() || vec.Kind() == value.KindComplex {
		return nil, false, nil
	}
	d, err := coerce.Cast(vec, value.KindDouble, nil)
	if err != nil {
		return nil, false, err
	}
	vals = d.(*value.DoubleVector).Data()
	if naRm {
		kept := make([]float64, 0, len(vals))
		for _, x := range vals {
			if x == x {
				kept = append(kept, x)
			}
		}
		vals = kept
	}
	return vals, true, nil
}

func builtinMean(e *Evaluator, args *Args) (value.Value, error) {
	m, _, err := args.Match("x", "...", "na.rm")
	if err != nil {
		return nil, err
	}
	naRm, err := flagArg(m[2], "na.rm", false)
	if err != nil {
		return nil, err
	}
	vals, ok, err := numericX(argOr(m[0], value.Null), naRm)
	if err != nil {
		return nil, err
	}
	if !ok {
		e.warnerAt(args.Call).Warn(diagnostics.NewWarning(diagnostics.WarnW006, "argument is not numeric or logical: returning NA"))
		return value.Dbl(value.NADouble), nil
	}
	if na, found := naOf(vals); found {
		return value.Dbl(na), nil
	}
	return value.Dbl(stats.Mean(vals)), nil
}

// spread builds var and sd; fewer than two values give NA.
func spread(fn func([]float64) (float64, bool)) BuiltinFunction {
	return func(e *Evaluator, args *Args) (value.Value, error) {
		m, _, err := args.Match("x", "y", "na.rm")
		if err != nil {
			return nil, err
		}
		naRm, err := flagArg(m[2], "na.rm", false)
		if err != nil {
			return nil, err
		}
		vals, ok, err := numericX(argOr(m[0], value.Null), naRm)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, diagnostics.Errorf(diagnostics.ErrR007, "is.atomic(x) is not TRUE")
		}
		if _, found := naOf(vals); found {
			return value.Dbl(value.NADouble), nil
		}
		v, ok := fn(vals)
		if !ok {
			return value.Dbl(value.NADouble), nil
		}
		return value.Dbl(v), nil
	}
}

// cumulative builds cumsum, cumprod, cummax and cummin. Once an NA is met every later
// element is NA. Integer input stays integer except for cumprod.
func cumulative(name string) BuiltinFunction {
	return func(e *Evaluator, args *Args) (value.Value, error) {
		x, err := firstArg(args, "x")
		if err != nil {
			return nil, err
		}
		vec, ok := x.(value.Vector)
		if value.IsNull(x) {
			return value.NewDoubles(), nil
		}
		if !ok || !vec.Kind().IsNumeric() || vec.Kind() == value.KindComplex || value.IsFactor(vec) {
			return nil, diagnostics.Errorf(diagnostics.ErrR007, "'%s' not defined for this type", name)
		}
		vals, _, err := numericX(vec, false)
		if err != nil {
			return nil, err
		}
		var out []float64
		if name == "cumsum" {
			out = stats.CumSum(vals)
		} else {
			out = make([]float64, len(vals))
			for i, v := range vals {
				if i == 0 {
					out[i] = v
					continue
				}
				switch name {
				case "cumprod":
					out[i] = out[i-1] * v
				case "cummax":
					out[i] = math.Max(out[i-1], v)
				case "cummin":
					out[i] = math.Min(out[i-1], v)
				}
			}
		}
		for i, v := range vals {
			if value.IsNaNOrNA(v) {
				for j := i; j < len(out); j++ {
					out[j] = v
				}
				break
			}
		}
		asInt := name != "cumprod" && vec.Kind() != value.KindDouble
		var res value.Vector
		if asInt {
			ints := make([]int32, len(out))
			overflow := false
			for i, v := range out {
				switch {
				case value.IsNaNOrNA(v) || overflow:
					ints[i] = value.NAInteger
				case v > math.MaxInt32 || v < -math.MaxInt32:
					overflow = true
					ints[i] = value.NAInteger
				default:
					ints[i] = int32(v)
				}
			}
			if overflow {
				e.warnerAt(args.Call).Warn(diagnostics.NewWarning(diagnostics.WarnW004, "integer overflow in '%s'; use '%s(as.numeric(.))'", name, name))
			}
			res = value.NewIntegers(ints...)
		} else {
			res = value.NewDoubles(out...)
		}
		if names := value.Names(vec); names != nil {
			_ = value.SetAttr(res, value.AttrNames, names)
		}
		return res, nil
	}
}

// mathInput checks the argument of a math function and returns it as doubles.
func mathInput(v value.Value, name string) (value.Vector, []float64, error) {
	vec, ok := v.(value.Vector)
	if !ok || !vec.Kind().IsNumeric() || vec.Kind() == value.KindComplex || value.IsFactor(vec) {
		if value.IsFactor(v) {
			return nil, nil, diagnostics.Errorf(diagnostics.ErrR007, "'%s' not meaningful for factors", name)
		}
		return nil, nil, diagnostics.Errorf(diagnostics.ErrR007, "non-numeric argument to mathematical function")
	}
	d, err := coerce.Cast(vec, value.KindDouble, nil)
	if err != nil {
		return nil, nil, err
	}
	return vec, d.(*value.DoubleVector).Data(), nil
}

// mathResult wraps out with the attributes of the input, warning once when a NaN was
// produced from a number.
func mathResult(e *Evaluator, args *Args, in value.Vector, xs, out []float64) value.Value {
	nan := false
	for i, y := range out {
		if value.IsNADouble(xs[i]) {
			out[i] = value.NADouble
			continue
		}
		if y != y && xs[i] == xs[i] {
			nan = true
		}
	}
	if nan {
		e.warnerAt(args.Call).Warn(diagnostics.NewWarning(diagnostics.WarnW007, diagnostics.MsgNaNProduced))
	}
	res := value.NewDoubles(out...)
	if a := in.Attrs(); a != nil && a.Len() > 0 {
		res.SetAttrs(a.Copy())
	}
	return res
}

func mathFunction(name string, fn func(float64) float64) BuiltinFunction {
	return func(e *Evaluator, args *Args) (value.Value, error) {
		x, err := firstArg(args, "x")
		if err != nil {
			return nil, err
		}
		vec, xs, err := mathInput(x, name)
		if err != nil {
			return nil, err
		}
		out := make([]float64, len(xs))
		for i, v := range xs {
			out[i] = fn(v)
		}
		return mathResult(e, args, vec, xs, out), nil
	}
}

func sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return x
}

// builtinAbs keeps integer input integer.
func builtinAbs(e *Evaluator, args *Args) (value.Value, error) {
	x, err := firstArg(args, "x")
	if err != nil {
		return nil, err
	}
	if iv, ok := x.(*value.IntegerVector); ok && !value.IsFactor(iv) {
		out := iv.Copy().(*value.IntegerVector)
		for i, v := range iv.Data() {
			if v != value.NAInteger && v < 0 {
				out.Set(i, -v)
			}
		}
		return out, nil
	}
	return mathFunction("abs", math.Abs)(e, args)
}

func builtinLog(e *Evaluator, args *Args) (value.Value, error) {
	m, _, err := args.Match("x", "base")
	if err != nil {
		return nil, err
	}
	if err := requireArg(m[0], "x"); err != nil {
		return nil, err
	}
	vec, xs, err := mathInput(m[0], "log")
	if err != nil {
		return nil, err
	}
	div := 1.0
	if supplied(m[1]) {
		base, err := coerce.AsDoubleScalar(m[1], "base", e.warnerAt(args.Call))
		if err != nil {
			return nil, err
		}
		div = math.Log(base)
	}
	out := make([]float64, len(xs))
	for i, v := range xs {
		out[i] = math.Log(v) / div
	}
	return mathResult(e, args, vec, xs, out), nil
}

// roundDigits rounds half to even at the given number of decimal places.
func roundDigits(x float64, digits int) float64 {
	if digits == 0 {
		return math.RoundToEven(x)
	}
	p := math.Pow(10, float64(digits))
	r := math.RoundToEven(x*p) / p
	if math.IsInf(r, 0) || r != r {
		return x
	}
	return r
}

func signifDigits(x float64, digits int) float64 {
	if digits < 1 {
		digits = 1
	}
	if x == 0 || math.IsInf(x, 0) || x != x {
		return x
	}
	r, err := strconv.ParseFloat(strconv.FormatFloat(x, 'g', digits, 64), 64)
	if err != nil {
		return x
	}
	return r
}

func rounding(fn func(float64, int) float64, defDigits int) BuiltinFunction {
	return func(e *Evaluator, args *Args) (value.Value, error) {
		m, _, err := args.Match("x", "digits")
		if err != nil {
			return nil, err
		}
		if err := requireArg(m[0], "x"); err != nil {
			return nil, err
		}
		digits := defDigits
		if supplied(m[1]) {
			if digits, err = coerce.AsIntegerScalar(m[1], "digits", e.warnerAt(args.Call)); err != nil {
				return nil, err
			}
		}
		if iv, ok := m[0].(*value.IntegerVector); ok && !value.IsFactor(iv) && digits >= 0 {
			return iv, nil
		}
		vec, xs, err := mathInput(m[0], "round")
		if err != nil {
			return nil, err
		}
		out := make([]float64, len(xs))
		for i, v := range xs {
			out[i] = fn(v, digits)
		}
		return mathResult(e, args, vec, xs, out), nil
	}
}

// doublePredicate builds is.nan, is.finite and is.infinite. Integer and logical
// elements are finite unless NA; other kinds give FALSE.
func doublePredicate(pred func(float64) bool, finite bool) BuiltinFunction {
	return func(e *Evaluator, args *Args) (value.Value, error) {
		x, err := firstArg(args, "x")
		if err != nil {
			return nil, err
		}
		vec, ok := x.(value.Vector)
		if !ok {
			return value.NewLogical(nil, true), nil
		}
		out := make([]value.Logical, vec.Len())
		switch v := vec.(type) {
		case *value.DoubleVector:
			for i, d := range v.Data() {
				out[i] = value.LogicalOf(pred(d))
			}
		case *value.ComplexVector:
			for i, c := range v.Data() {
				out[i] = value.LogicalOf(pred(real(c)) || pred(imag(c)))
				if finite {
					out[i] = value.LogicalOf(pred(real(c)) && pred(imag(c)))
				}
			}
		case *value.IntegerVector, *value.LogicalVector:
			if finite {
				for i := range out {
					out[i] = value.LogicalOf(!vec.IsNA(i))
				}
			}
		}
		res := value.NewLogical(out, true)
		for _, name := range []string{value.AttrNames, value.AttrDim, value.AttrDimNames} {
			if a := value.GetAttr(vec, name); !value.IsNull(a) {
				_ = value.SetAttr(res, name, a)
			}
		}
		return res, nil
	}
}

func whichExtremum(isMax bool) BuiltinFunction {
	return func(e *Evaluator, args *Args) (value.Value, error) {
		x, err := firstArg(args, "x")
		if err != nil {
			return nil, err
		}
		vec, xs, err := mathInput(x, "which")
		if err != nil {
			return nil, err
		}
		best := -1
		for i, v := range xs {
			if v != v {
				continue
			}
			if best < 0 || (isMax && v > xs[best]) || (!isMax && v < xs[best]) {
				best = i
			}
		}
		if best < 0 {
			return value.NewIntegers(), nil
		}
		out := value.Int(best + 1)
		if names := value.Names(vec); names != nil {
			_ = value.SetAttr(out, value.AttrNames, value.Str(names.At(best)))
		}
		return out, nil
	}
}

func builtinMatrix(e *Evaluator, args *Args) (value.Value, error) {
	m, _, err := args.Match("data", "nrow", "ncol", "byrow", "dimnames")
	if err != nil {
		return nil, err
	}
	w := e.warnerAt(args.Call)
	var data value.Vector = value.NewLogical([]value.Logical{value.NALogical}, false)
	if supplied(m[0]) {
		vec, ok := m[0].(value.Vector)
		if !ok {
			return nil, diagnostics.Errorf(diagnostics.ErrR007, "'data' must be of a vector type, was '%s'", m[0].Kind())
		}
		data = vec
	}
	n := data.Len()
	nrow, ncol := -1, -1
	if supplied(m[1]) {
		if nrow, err = lengthArg(m[1], "nrow", w); err != nil {
			return nil, err
		}
	}
	if supplied(m[2]) {
		if ncol, err = lengthArg(m[2], "ncol", w); err != nil {
			return nil, err
		}
	}
	switch {
	case nrow < 0 && ncol < 0:
		nrow, ncol = n, 1
	case nrow < 0:
		nrow = ceilDiv(n, ncol)
	case ncol < 0:
		ncol = ceilDiv(n, nrow)
	}
	total := nrow * ncol
	if n > 0 && total > 0 && (total%n != 0 && n%max(nrow, 1) != 0) {
		w.Warn(diagnostics.NewWarning(diagnostics.WarnW002, "data length [%d] is not a sub-multiple or multiple of the number of rows [%d]", n, nrow))
	}
	byrow, err := flagArg(m[3], "byrow", false)
	if err != nil {
		return nil, err
	}
	out := value.NewVectorOfKind(data.Kind(), total)
	if n == 0 && total > 0 {
		out = value.NewNAVector(data.Kind(), total)
	}
	for k := 0; k < total && n > 0; k++ {
		src := k
		if byrow {
			i, j := k%nrow, k/nrow
			src = i*ncol + j
		}
		value.CopyElement(out, k, data, src%n)
	}
	if err := value.SetAttr(out, value.AttrDim, value.NewIntegers(int32(nrow), int32(ncol))); err != nil {
		return nil, err
	}
	if supplied(m[4]) && !value.IsNull(m[4]) {
		dn, err := dimnamesValue(m[4])
		if err != nil {
			return nil, err
		}
		if err := value.SetAttr(out, value.AttrDimNames, dn); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func ceilDiv(a, b int) int {
	if b == 0 {
		return 0
	}
	return (a + b - 1) / b
}

// matrixShape returns the dimensions of x; a plain vector is a column.
func matrixShape(vec value.Vector) (rows, cols int) {
	if dim := value.Dim(vec); dim != nil && dim.Len() == 2 {
		return int(dim.At(0)), int(dim.At(1))
	}
	return vec.Len(), 1
}

// builtinTranspose works on any vector kind; a plain vector becomes a row.
func builtinTranspose(e *Evaluator, args *Args) (value.Value, error) {
	x, err := firstArg(args, "x")
	if err != nil {
		return nil, err
	}
	vec, ok := x.(value.Vector)
	if !ok {
		return nil, diagnostics.Errorf(diagnostics.ErrR007, "argument is not a matrix")
	}
	rows, cols := matrixShape(vec)
	out := value.NewVectorOfKind(vec.Kind(), rows*cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			value.CopyElement(out, j+i*cols, vec, i+j*rows)
		}
	}
	if err := value.SetAttr(out, value.AttrDim, value.NewIntegers(int32(cols), int32(rows))); err != nil {
		return nil, err
	}
	if dn, ok := value.GetAttr(vec, value.AttrDimNames).(*value.List); ok && dn.Len() == 2 {
		_ = value.SetAttr(out, value.AttrDimNames, value.NewList([]value.Value{dn.At(1), dn.At(0)}))
	} else if names := value.Names(vec); names != nil && value.Dim(vec) == nil {
		_ = value.SetAttr(out, value.AttrDimNames, value.NewList([]value.Value{value.Null, names}))
	}
	return out, nil
}

func builtinCrossprod(e *Evaluator, args *Args) (value.Value, error) {
	m, _, err := args.Match("x", "y")
	if err != nil {
		return nil, err
	}
	x := argOr(m[0], value.Null)
	y := argOr(m[1], x)
	if value.IsNull(y) {
		y = x
	}
	a, ar, ac, err := matrixData(x)
	if err != nil {
		return nil, err
	}
	b, br, bc, err := matrixData(y)
	if err != nil {
		return nil, err
	}
	prod, err := stats.CrossProd(a, ar, ac, b, br, bc)
	if err != nil {
		return nil, diagnostics.Errorf(diagnostics.ErrR010, "%v", err)
	}
	out := value.NewDoubles(prod...)
	_ = value.SetAttr(out, value.AttrDim, value.NewIntegers(int32(ac), int32(bc)))
	return out, nil
}

func matrixData(v value.Value) ([]float64, int, int, error) {
	vec, ok := v.(value.Vector)
	if !ok || !vec.Kind().IsNumeric() || vec.Kind() == value.KindComplex {
		return nil, 0, 0, diagnostics.Errorf(diagnostics.ErrR007, "requires numeric/complex matrix/vector arguments")
	}
	d, err := coerce.Cast(vec, value.KindDouble, nil)
	if err != nil {
		return nil, 0, 0, err
	}
	r, c := matrixShape(vec)
	return d.(*value.DoubleVector).Data(), r, c, nil
}

// marginal builds rowSums, colSums, rowMeans and colMeans.
func marginal(axis int, mean bool) BuiltinFunction {
	return func(e *Evaluator, args *Args) (value.Value, error) {
		m, _, err := args.Match("x", "na.rm")
		if err != nil {
			return nil, err
		}
		naRm, err := flagArg(m[1], "na.rm", false)
		if err != nil {
			return nil, err
		}
		x := argOr(m[0], value.Null)
		if value.Dim(x) == nil || value.Dim(x).Len() != 2 {
			return nil, diagnostics.Errorf(diagnostics.ErrR007, "'x' must be an array of at least two dimensions")
		}
		data, rows, cols, err := matrixData(x)
		if err != nil {
			return nil, err
		}
		n := rows
		if axis == 1 {
			n = cols
		}
		out := make([]float64, n)
		for k := 0; k < n; k++ {
			var group []float64
			if axis == 0 {
				for j := 0; j < cols; j++ {
					group = append(group, data[k+j*rows])
				}
			} else {
				group = data[k*rows : (k+1)*rows]
			}
			if naRm {
				kept := group[:0:0]
				for _, g := range group {
					if g == g {
						kept = append(kept, g)
					}
				}
				group = kept
			}
			if na, found := naOf(group); found {
				out[k] = na
				continue
			}
			if mean {
				out[k] = stats.Mean(group)
			} else {
				out[k] = stats.Sum(group)
			}
		}
		res := value.NewDoubles(out...)
		if dn, ok := value.GetAttr(x, value.AttrDimNames).(*value.List); ok && dn.Len() == 2 && !value.IsNull(dn.At(axis)) {
			_ = value.SetAttr(res, value.AttrNames, dn.At(axis))
		}
		return res, nil
	}
}
