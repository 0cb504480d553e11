package prettyprinter

import (
	"math"
	"strconv"
	"strings"

	"github.com/funvibe/rcore/internal/coerce"
	"github.com/funvibe/rcore/internal/utils"
	"github.com/funvibe/rcore/internal/value"
)

// DefaultDigits is the number of significant digits used when printing doubles.
const DefaultDigits = 7

// sigDigits returns the significant digits needed to show |x| to the given precision
// and the decimal exponent of its leading digit.
func sigDigits(x float64, digits int) (nsig, kpower int) {
	s := strconv.FormatFloat(math.Abs(x), 'e', digits-1, 64)
	mant, exp, _ := strings.Cut(s, "e")
	kpower, _ = strconv.Atoi(exp)
	mant = strings.TrimRight(strings.ReplaceAll(mant, ".", ""), "0")
	nsig = len(mant)
	if nsig == 0 {
		nsig = 1
	}
	return nsig, kpower
}

// doubleLayout is the shared notation for a column of doubles.
type doubleLayout struct {
	sci      bool
	decimals int // fixed: digits after the point; sci: mantissa digits after the point
}

// layoutDoubles chooses fixed or scientific notation for xs, whichever is narrower,
// with enough digits for every element.
func layoutDoubles(xs []float64, digits int) doubleLayout {
	neg := 0
	maxLeft, maxRight, maxSig := 1, 0, 1
	minExp, maxExp := 0, 0
	finite := false
	for _, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			continue
		}
		if x < 0 {
			neg = 1
		}
		if x == 0 {
			continue
		}
		nsig, k := sigDigits(x, digits)
		if !finite {
			minExp, maxExp = k, k
			finite = true
		}
		minExp = min(minExp, k)
		maxExp = max(maxExp, k)
		maxLeft = max(maxLeft, k+1)
		maxRight = max(maxRight, nsig-k-1)
		maxSig = max(maxSig, nsig)
	}
	if !finite {
		return doubleLayout{}
	}
	fixedWidth := neg + maxLeft
	if maxRight > 0 {
		fixedWidth += maxRight + 1
	}
	sciWidth := neg + maxSig + 4
	if maxSig > 1 {
		sciWidth++
	}
	if maxExp >= 100 || minExp <= -100 {
		sciWidth++
	}
	if fixedWidth > sciWidth {
		return doubleLayout{sci: true, decimals: maxSig - 1}
	}
	return doubleLayout{decimals: maxRight}
}

func (l doubleLayout) format(x float64) string {
	switch {
	case value.IsNADouble(x):
		return "NA"
	case math.IsNaN(x):
		return "NaN"
	case math.IsInf(x, 1):
		return "Inf"
	case math.IsInf(x, -1):
		return "-Inf"
	case l.sci:
		return strconv.FormatFloat(x, 'e', l.decimals, 64)
	}
	return strconv.FormatFloat(x, 'f', l.decimals, 64)
}

// FormatDouble formats one double on its own, as cat does.
func FormatDouble(x float64) string {
	return layoutDoubles([]float64{x}, DefaultDigits).format(x)
}

func formatComplex(x complex128, digits int) string {
	if value.IsNAComplex(x) {
		return "NA"
	}
	re, im := real(x), imag(x)
	sign := "+"
	if im < 0 || (im == 0 && math.Signbit(im)) {
		sign = "-"
		im = -im
	}
	return formatSig(re, digits) + sign + formatSig(im, digits) + "i"
}

func formatSig(x float64, digits int) string {
	switch {
	case math.IsNaN(x):
		return "NaN"
	case math.IsInf(x, 0):
		return utils.FormatNumber(x)
	case x == 0:
		return "0"
	}
	return utils.FormatSignificant(x, digits)
}

// formatElements renders every element of an atomic vector with a common layout.
// Strings are quoted when quote is set; NA strings print as NA (or <NA> unquoted).
func formatElements(v value.Vector, quote bool, digits int) []string {
	out := make([]string, v.Len())
	switch x := v.(type) {
	case *value.LogicalVector:
		for i, l := range x.Data() {
			out[i] = naOr(coerce.LogicalToString(l))
		}
	case *value.IntegerVector:
		for i, n := range x.Data() {
			out[i] = naOr(coerce.IntegerToString(n))
		}
	case *value.DoubleVector:
		l := layoutDoubles(x.Data(), digits)
		for i, d := range x.Data() {
			out[i] = l.format(d)
		}
	case *value.ComplexVector:
		for i, c := range x.Data() {
			out[i] = formatComplex(c, digits)
		}
	case *value.CharacterVector:
		for i, s := range x.Data() {
			switch {
			case x.IsNA(i) && quote:
				out[i] = "NA"
			case x.IsNA(i):
				out[i] = "<NA>"
			case quote:
				out[i] = utils.QuoteString(s)
			default:
				out[i] = s
			}
		}
	case *value.RawVector:
		for i, b := range x.Data() {
			out[i] = coerce.RawToString(b)
		}
	}
	return out
}

// naOr replaces the NA string sentinel produced by the coercion helpers with "NA".
func naOr(s string) string {
	if value.IsNAString(s) {
		return "NA"
	}
	return s
}

func maxWidth(ss []string) int {
	w := 0
	for _, s := range ss {
		w = max(w, displayWidth(s))
	}
	return w
}

func displayWidth(s string) int {
	return len([]rune(s))
}

func padLeft(s string, w int) string {
	if n := w - displayWidth(s); n > 0 {
		return strings.Repeat(" ", n) + s
	}
	return s
}

func padRight(s string, w int) string {
	if n := w - displayWidth(s); n > 0 {
		return s + strings.Repeat(" ", n)
	}
	return s
}

// FormatCommon renders the elements of v the way format() does: one layout shared by
// all elements, padded to a common width of at least width. Numbers are right
// justified and strings left justified. Doubles in fixed notation get at least nsmall
// decimals.
func FormatCommon(v value.Vector, digits, nsmall, width int) []string {
	var out []string
	if d, ok := v.(*value.DoubleVector); ok {
		l := layoutDoubles(d.Data(), digits)
		if !l.sci {
			l.decimals = max(l.decimals, nsmall)
		}
		out = make([]string, d.Len())
		for i, x := range d.Data() {
			out[i] = l.format(x)
		}
	} else {
		out = formatElements(v, false, digits)
	}
	if c, ok := v.(*value.CharacterVector); ok {
		for i := range out {
			if c.IsNA(i) {
				out[i] = "NA"
			}
		}
	}
	w := max(maxWidth(out), width)
	for i, s := range out {
		if v.Kind() == value.KindCharacter {
			out[i] = padRight(s, w)
		} else {
			out[i] = padLeft(s, w)
		}
	}
	return out
}
