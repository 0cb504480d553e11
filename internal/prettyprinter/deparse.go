package prettyprinter

import (
	"strconv"
	"strings"

	"github.com/funvibe/rcore/internal/ast"
	"github.com/funvibe/rcore/internal/coerce"
	"github.com/funvibe/rcore/internal/utils"
	"github.com/funvibe/rcore/internal/value"
)

// deparseDigits matches the precision used for numeric constants in source text.
const deparseDigits = 15

// Deparse renders v as source text that evaluates back to an equal value.
func Deparse(v value.Value) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case value.Vector:
		body := deparseVector(x)
		return wrapAttributes(x, body)
	case *value.Symbol:
		return ast.QuoteName(x.Name)
	case *value.Language:
		return x.Node.String()
	case *value.Closure:
		return deparseClosure(x)
	case Primitive:
		return ".Primitive(" + strconv.Quote(x.PrimitiveName()) + ")"
	case *value.Environment:
		return "<environment>"
	case *value.Pairlist:
		return "pairlist(" + strings.TrimSuffix(strings.TrimPrefix(deparseVector(x.ToList()), "list("), ")") + ")"
	}
	if value.IsNull(v) {
		return "NULL"
	}
	return "<" + v.Kind().String() + ">"
}

func deparseClosure(c *value.Closure) string {
	var sb strings.Builder
	sb.WriteString("function(")
	for i, f := range c.Formals {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(ast.QuoteName(f.Name))
		if f.Default != nil {
			sb.WriteString(" = " + f.Default.String())
		}
	}
	sb.WriteString(") ")
	if c.Body != nil {
		sb.WriteString(c.Body.String())
	} else {
		sb.WriteString("NULL")
	}
	return sb.String()
}

var typedNA = map[value.Kind]string{
	value.KindLogical:   "NA",
	value.KindInteger:   "NA_integer_",
	value.KindDouble:    "NA_real_",
	value.KindComplex:   "NA_complex_",
	value.KindCharacter: "NA_character_",
}

func allNA(v value.Vector) bool {
	for i := 0; i < v.Len(); i++ {
		if !v.IsNA(i) {
			return false
		}
	}
	return true
}

func deparseElements(v value.Vector) []string {
	out := make([]string, v.Len())
	na := "NA"
	if allNA(v) {
		na = typedNA[v.Kind()]
	}
	switch x := v.(type) {
	case *value.LogicalVector:
		for i, l := range x.Data() {
			out[i] = naOr(coerce.LogicalToString(l))
		}
	case *value.IntegerVector:
		for i, n := range x.Data() {
			if n == value.NAInteger {
				out[i] = na
			} else {
				out[i] = strconv.Itoa(int(n)) + "L"
			}
		}
	case *value.DoubleVector:
		for i, d := range x.Data() {
			if value.IsNADouble(d) {
				out[i] = na
			} else {
				out[i] = utils.FormatNumber(d)
			}
		}
	case *value.ComplexVector:
		for i, c := range x.Data() {
			if value.IsNAComplex(c) {
				out[i] = na
			} else {
				out[i] = formatComplex(c, deparseDigits)
			}
		}
	case *value.CharacterVector:
		for i, s := range x.Data() {
			if x.IsNA(i) {
				out[i] = na
			} else {
				out[i] = utils.QuoteString(s)
			}
		}
	case *value.RawVector:
		for i, b := range x.Data() {
			out[i] = "0x" + coerce.RawToString(b)
		}
	case *value.List:
		for i, e := range x.Data() {
			out[i] = Deparse(e)
		}
	case *value.ExpressionVector:
		for i, e := range x.Data() {
			out[i] = Deparse(e)
		}
	}
	return out
}

// intRun reports whether v is a run of consecutive integers without NA, which
// deparses as from:to.
func intRun(v value.Vector) (from, to int32, ok bool) {
	iv, isInt := v.(*value.IntegerVector)
	if !isInt || iv.Len() < 2 || !iv.IsComplete() {
		return 0, 0, false
	}
	d := iv.Data()
	step := d[1] - d[0]
	if step != 1 && step != -1 {
		return 0, 0, false
	}
	for i := 1; i < len(d); i++ {
		if d[i]-d[i-1] != step {
			return 0, 0, false
		}
	}
	return d[0], d[len(d)-1], true
}

func deparseVector(v value.Vector) string {
	names := value.Names(v)
	switch v.Kind() {
	case value.KindList:
		return "list(" + joinNamed(deparseElements(v), names) + ")"
	case value.KindExpression:
		return "expression(" + joinNamed(deparseElements(v), names) + ")"
	}
	if v.Len() == 0 {
		return emptyNames[v.Kind()]
	}
	if names == nil {
		if from, to, ok := intRun(v); ok {
			return strconv.Itoa(int(from)) + ":" + strconv.Itoa(int(to))
		}
	}
	elems := deparseElements(v)
	if v.Kind() == value.KindRaw {
		return "as.raw(c(" + strings.Join(elems, ", ") + "))"
	}
	if len(elems) == 1 && names == nil {
		return elems[0]
	}
	return "c(" + joinNamed(elems, names) + ")"
}

func joinNamed(elems []string, names *value.CharacterVector) string {
	if names == nil {
		return strings.Join(elems, ", ")
	}
	parts := make([]string, len(elems))
	for i, e := range elems {
		if names.IsNA(i) || names.At(i) == "" {
			parts[i] = e
			continue
		}
		parts[i] = ast.QuoteName(names.At(i)) + " = " + e
	}
	return strings.Join(parts, ", ")
}

// wrapAttributes adds the attributes other than names as structure() arguments.
func wrapAttributes(v value.Vector, body string) string {
	var extra []string
	for _, a := range v.Attrs().Items() {
		if a.Name == value.AttrNames {
			continue
		}
		name := a.Name
		switch name {
		case value.AttrDim:
			name = ".Dim"
		case value.AttrDimNames:
			name = ".Dimnames"
		}
		extra = append(extra, ast.QuoteName(name)+" = "+Deparse(a.Value))
	}
	if len(extra) == 0 {
		return body
	}
	return "structure(" + body + ", " + strings.Join(extra, ", ") + ")"
}
