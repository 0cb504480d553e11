// Package prettyprinter renders values the way the REPL prints them and deparses
// values back to source text.
package prettyprinter

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/funvibe/rcore/internal/value"
)

// DefaultWidth is the line width vectors are wrapped to.
const DefaultWidth = 80

// Primitive is implemented by builtin functions so they can be printed without this
// package depending on the evaluator.
type Primitive interface {
	value.Value
	PrimitiveName() string
}

// Printer holds the print options.
type Printer struct {
	Width  int
	Digits int
}

func New() *Printer {
	return &Printer{Width: DefaultWidth, Digits: DefaultDigits}
}

// Format renders v as print() shows it, without the trailing newline.
func Format(v value.Value) string {
	return New().Format(v)
}

// Fprint writes the printed form of v followed by a newline.
func Fprint(w io.Writer, v value.Value) error {
	_, err := io.WriteString(w, Format(v)+"\n")
	return err
}

func (p *Printer) Format(v value.Value) string {
	var lines []string
	p.value(&lines, v, "")
	return strings.Join(lines, "\n")
}

func (p *Printer) value(lines *[]string, v value.Value, prefix string) {
	switch x := v.(type) {
	case nil:
		*lines = append(*lines, "NULL")
	case *value.List:
		p.list(lines, x, x.Data(), prefix)
		p.attributes(lines, x, prefix)
	case *value.ExpressionVector:
		*lines = append(*lines, Deparse(x))
	case value.Vector:
		p.atomic(lines, x)
		p.attributes(lines, x, prefix)
	case *value.Closure:
		*lines = append(*lines, strings.Split(deparseClosure(x), "\n")...)
	case Primitive:
		*lines = append(*lines, fmt.Sprintf("function (...) .Primitive(%s)", strconv.Quote(x.PrimitiveName())))
	case *value.Environment:
		*lines = append(*lines, formatEnvironment(x))
	case *value.Symbol:
		*lines = append(*lines, x.Name)
	case *value.Language:
		*lines = append(*lines, strings.Split(x.Node.String(), "\n")...)
	case *value.Pairlist:
		p.list(lines, x, x.ToList().Data(), prefix)
	case *value.Promise:
		*lines = append(*lines, "<promise>")
	default:
		if value.IsNull(v) {
			*lines = append(*lines, "NULL")
			return
		}
		*lines = append(*lines, "<"+v.Kind().String()+">")
	}
}

func formatEnvironment(e *value.Environment) string {
	if e.Name() != "" {
		return "<environment: " + e.Name() + ">"
	}
	return "<environment>"
}

var emptyNames = map[value.Kind]string{
	value.KindLogical:   "logical(0)",
	value.KindInteger:   "integer(0)",
	value.KindDouble:    "numeric(0)",
	value.KindComplex:   "complex(0)",
	value.KindCharacter: "character(0)",
	value.KindRaw:       "raw(0)",
}

func (p *Printer) atomic(lines *[]string, v value.Vector) {
	if value.IsFactor(v) {
		p.factor(lines, v)
		return
	}
	if v.Len() == 0 {
		*lines = append(*lines, emptyNames[v.Kind()])
		return
	}
	if dim := value.Dim(v); dim != nil && dim.Len() == 2 {
		p.matrix(lines, v, int(dim.At(0)), int(dim.At(1)))
		return
	}
	elems := formatElements(v, true, p.Digits)
	if names := value.Names(v); names != nil {
		p.named(lines, elems, formatElements(names, false, p.Digits), v.Kind() == value.KindCharacter)
		return
	}
	p.indexed(lines, elems, v.Kind() == value.KindCharacter)
}

// indexed lays elements out in rows prefixed by the [i] index of their first element.
func (p *Printer) indexed(lines *[]string, elems []string, left bool) {
	w := maxWidth(elems)
	labw := len(strconv.Itoa(len(elems))) + 2
	perLine := max(1, (p.Width-labw)/(w+1))
	for start := 0; start < len(elems); start += perLine {
		var sb strings.Builder
		sb.WriteString(padLeft("["+strconv.Itoa(start+1)+"]", labw))
		for _, e := range elems[start:min(start+perLine, len(elems))] {
			sb.WriteByte(' ')
			if left {
				sb.WriteString(padRight(e, w))
			} else {
				sb.WriteString(padLeft(e, w))
			}
		}
		*lines = append(*lines, strings.TrimRight(sb.String(), " "))
	}
}

// named lays elements out under their names in a common column width.
func (p *Printer) named(lines *[]string, elems, names []string, left bool) {
	w := max(maxWidth(elems), maxWidth(names))
	perLine := max(1, p.Width/(w+1))
	for start := 0; start < len(elems); start += perLine {
		end := min(start+perLine, len(elems))
		var top, bottom strings.Builder
		for i := start; i < end; i++ {
			if i > start {
				top.WriteByte(' ')
				bottom.WriteByte(' ')
			}
			top.WriteString(padLeft(names[i], w))
			if left {
				bottom.WriteString(padRight(elems[i], w))
			} else {
				bottom.WriteString(padLeft(elems[i], w))
			}
		}
		*lines = append(*lines, strings.TrimRight(top.String(), " "), strings.TrimRight(bottom.String(), " "))
	}
}

func (p *Printer) factor(lines *[]string, v value.Vector) {
	codes, _ := v.(*value.IntegerVector)
	levels, _ := value.GetAttr(v, value.AttrLevels).(*value.CharacterVector)
	var labels []string
	if levels != nil {
		labels = levels.Data()
	}
	if codes == nil || codes.Len() == 0 {
		*lines = append(*lines, "factor(0)")
	} else {
		elems := make([]string, codes.Len())
		for i, c := range codes.Data() {
			if c == value.NAInteger || int(c) < 1 || int(c) > len(labels) {
				elems[i] = "<NA>"
			} else {
				elems[i] = labels[c-1]
			}
		}
		p.indexed(lines, elems, true)
	}
	*lines = append(*lines, "Levels: "+strings.Join(labels, " "))
}

func dimNames(v value.Vector, axis int) []string {
	dn, ok := value.GetAttr(v, value.AttrDimNames).(*value.List)
	if !ok || dn.Len() <= axis {
		return nil
	}
	names, ok := dn.At(axis).(*value.CharacterVector)
	if !ok {
		return nil
	}
	return names.Data()
}

func (p *Printer) matrix(lines *[]string, v value.Vector, nrow, ncol int) {
	rowLabels := make([]string, nrow)
	if rn := dimNames(v, 0); rn != nil {
		copy(rowLabels, rn)
	} else {
		for i := range rowLabels {
			rowLabels[i] = "[" + strconv.Itoa(i+1) + ",]"
		}
	}
	colNames := dimNames(v, 1)
	rw := maxWidth(rowLabels)
	header := strings.Repeat(" ", rw)
	rows := make([]string, nrow)
	for i := range rows {
		rows[i] = padRight(rowLabels[i], rw)
	}
	left := v.Kind() == value.KindCharacter
	for j := 0; j < ncol; j++ {
		idx := make([]int, nrow)
		for i := range idx {
			idx[i] = j*nrow + i
		}
		col := formatElements(value.Subset(v, idx), true, p.Digits)
		label := "[," + strconv.Itoa(j+1) + "]"
		if colNames != nil {
			label = colNames[j]
		}
		w := max(maxWidth(col), displayWidth(label))
		if left {
			header += " " + padRight(label, w)
		} else {
			header += " " + padLeft(label, w)
		}
		for i := range rows {
			if left {
				rows[i] += " " + padRight(col[i], w)
			} else {
				rows[i] += " " + padLeft(col[i], w)
			}
		}
	}
	*lines = append(*lines, strings.TrimRight(header, " "))
	for _, r := range rows {
		*lines = append(*lines, strings.TrimRight(r, " "))
	}
}

func (p *Printer) list(lines *[]string, v value.Value, elems []value.Value, prefix string) {
	if len(elems) == 0 {
		if value.Names(v) != nil {
			*lines = append(*lines, "named list()")
		} else {
			*lines = append(*lines, "list()")
		}
		return
	}
	names := value.Names(v)
	for i, e := range elems {
		tag := prefix + "[[" + strconv.Itoa(i+1) + "]]"
		if names != nil && !names.IsNA(i) && names.At(i) != "" {
			tag = prefix + "$" + quoteTag(names.At(i))
		}
		*lines = append(*lines, tag)
		p.value(lines, e, tag)
		*lines = append(*lines, "")
	}
}

func quoteTag(name string) string {
	for i, r := range name {
		ok := r == '.' || r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (i > 0 && r >= '0' && r <= '9')
		if !ok {
			return "`" + name + "`"
		}
	}
	return name
}

// attributes prints the attributes print() shows after the data.
func (p *Printer) attributes(lines *[]string, v value.Vector, prefix string) {
	factor := value.IsFactor(v)
	for _, a := range v.Attrs().Items() {
		switch a.Name {
		case value.AttrNames, value.AttrDim, value.AttrDimNames:
			continue
		case value.AttrLevels, value.AttrClass:
			if factor {
				continue
			}
		}
		*lines = append(*lines, "attr(,"+strconv.Quote(a.Name)+")")
		p.value(lines, a.Value, prefix)
	}
}

// Cat renders the elements of v the way cat() writes them: unquoted, each double
// formatted on its own.
func Cat(v value.Value) ([]string, error) {
	switch x := v.(type) {
	case *value.List:
		var out []string
		for i, e := range x.Data() {
			ev, ok := e.(value.Vector)
			if !value.IsNull(e) && (!ok || !ev.Kind().IsAtomic() || ev.Len() != 1) {
				return nil, fmt.Errorf("argument %d (type 'list') cannot be handled by 'cat'", i+1)
			}
			s, err := Cat(e)
			if err != nil {
				return nil, err
			}
			out = append(out, s...)
		}
		return out, nil
	case *value.DoubleVector:
		out := make([]string, x.Len())
		for i, d := range x.Data() {
			out[i] = FormatDouble(d)
		}
		return out, nil
	case *value.Symbol:
		return []string{x.Name}, nil
	case value.Vector:
		if !x.Kind().IsAtomic() {
			break
		}
		out := formatElements(x, false, DefaultDigits)
		if x.Kind() == value.KindCharacter {
			for i := range out {
				if x.IsNA(i) {
					out[i] = "NA"
				}
			}
		}
		return out, nil
	}
	if value.IsNull(v) {
		return nil, nil
	}
	return nil, fmt.Errorf("argument 1 (type '%s') cannot be handled by 'cat'", v.Kind())
}
