package coerce

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/funvibe/rcore/internal/diagnostics"
	"github.com/funvibe/rcore/internal/utils"
	"github.com/funvibe/rcore/internal/value"
)

func stringToLogical(s string, ws *warnings) value.Logical {
	if s == value.NAString {
		return value.NALogical
	}
	switch strings.TrimSpace(s) {
	case "TRUE", "true", "T", "True":
		return value.True
	case "FALSE", "false", "F", "False":
		return value.False
	case "NA":
		return value.NALogical
	}
	ws.add(diagnostics.WarnW001, diagnostics.MsgNAIntroduced)
	return value.NALogical
}

// ParseDouble parses a numeric string: decimal, scientific, hexadecimal, Inf, NaN and
// NA, with surrounding blanks ignored.
func ParseDouble(s string) (float64, bool) {
	t := strings.TrimSpace(s)
	switch t {
	case "NA":
		return value.NADouble, true
	case "":
		return 0, false
	}
	neg := false
	body := t
	if body[0] == '-' || body[0] == '+' {
		neg = body[0] == '-'
		body = body[1:]
	}
	if len(body) > 2 && body[0] == '0' && (body[1] == 'x' || body[1] == 'X') {
		n, err := strconv.ParseUint(body[2:], 16, 64)
		if err != nil {
			return 0, false
		}
		f := float64(n)
		if neg {
			f = -f
		}
		return f, true
	}
	f, err := strconv.ParseFloat(t, 64)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
			return f, true
		}
		return 0, false
	}
	return f, true
}

func stringToDouble(s string, ws *warnings) float64 {
	if s == value.NAString {
		return value.NADouble
	}
	f, ok := ParseDouble(s)
	if !ok {
		ws.add(diagnostics.WarnW001, diagnostics.MsgNAIntroduced)
		return value.NADouble
	}
	return f
}

func stringToComplex(s string, ws *warnings) complex128 {
	if s == value.NAString {
		return value.NAComplex
	}
	if f, ok := ParseDouble(s); ok {
		if value.IsNADouble(f) {
			return value.NAComplex
		}
		return complex(f, 0)
	}
	c, err := strconv.ParseComplex(strings.TrimSpace(s), 128)
	if err != nil {
		ws.add(diagnostics.WarnW001, diagnostics.MsgNAIntroduced)
		return value.NAComplex
	}
	return c
}

func LogicalToString(x value.Logical) string {
	switch x {
	case value.True:
		return "TRUE"
	case value.False:
		return "FALSE"
	}
	return value.NAString
}

func IntegerToString(x int32) string {
	if x == value.NAInteger {
		return value.NAString
	}
	return strconv.FormatInt(int64(x), 10)
}

// DoubleToString uses 15 significant digits.
func DoubleToString(x float64) string {
	if value.IsNADouble(x) {
		return value.NAString
	}
	return utils.FormatNumber(x)
}

func ComplexToString(x complex128) string {
	if value.IsNAComplex(x) {
		return value.NAString
	}
	re, im := real(x), imag(x)
	sign := "+"
	if im < 0 || math.Signbit(im) && im == 0 {
		sign = "-"
		im = -im
	}
	return utils.FormatNumber(re) + sign + utils.FormatNumber(im) + "i"
}

func RawToString(x byte) string {
	return fmt.Sprintf("%02x", x)
}
