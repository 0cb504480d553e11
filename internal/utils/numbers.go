package utils

import (
	"math"
	"strconv"
	"strings"
)

// FormatNumber renders a double with up to 15 significant digits, choosing fixed or
// scientific notation by width the way constants are deparsed and printed.
func FormatNumber(x float64) string {
	switch {
	case math.IsInf(x, 1):
		return "Inf"
	case math.IsInf(x, -1):
		return "-Inf"
	case math.IsNaN(x):
		return "NaN"
	case x == 0:
		return "0"
	}
	return FormatSignificant(x, 15)
}

// FormatSignificant formats a finite x with at most digits significant digits.
func FormatSignificant(x float64, digits int) string {
	sci := strconv.FormatFloat(x, 'e', digits-1, 64)
	mant, exp, _ := strings.Cut(sci, "e")
	if strings.Contains(mant, ".") {
		mant = strings.TrimRight(strings.TrimRight(mant, "0"), ".")
	}
	sci = mant + "e" + exp
	e, _ := strconv.Atoi(exp)
	nd := len(strings.TrimPrefix(strings.ReplaceAll(mant, ".", ""), "-"))
	decimals := nd - 1 - e
	if decimals < 0 {
		decimals = 0
	}
	fixed := strconv.FormatFloat(x, 'f', decimals, 64)
	if len(fixed) > len(sci) {
		return sci
	}
	return fixed
}

// QuoteString renders a string constant with double quotes and escapes.
func QuoteString(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		case '\r':
			sb.WriteString(`\r`)
		case 0:
			sb.WriteString(`\0`)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}
