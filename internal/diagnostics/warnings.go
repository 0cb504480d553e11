package diagnostics

import (
	"fmt"
	"strings"
)

// WarningCode identifies a class of warning.
type WarningCode string

const (
	WarnW001 WarningCode = "W001" // NAs introduced by coercion
	WarnW002 WarningCode = "W002" // recycling length mismatch
	WarnW003 WarningCode = "W003" // operation not meaningful for factors
	WarnW004 WarningCode = "W004" // integer overflow
	WarnW005 WarningCode = "W005" // imaginary parts discarded
	WarnW006 WarningCode = "W006" // user warning()
	WarnW007 WarningCode = "W007" // NaNs produced by a math function
)

// Common warning messages.
const (
	MsgNAIntroduced      = "NAs introduced by coercion"
	MsgNaNProduced       = "NaNs produced"
	MsgNAIntegerRange    = "NAs introduced by coercion to integer range"
	MsgRecycle           = "longer object length is not a multiple of shorter object length"
	MsgIntegerOverflow   = "NAs produced by integer overflow"
	MsgImaginaryDropped  = "imaginary parts discarded in coercion"
	MsgRawOutOfRange     = "out-of-range values treated as 0 in coercion to raw"
	MsgNotMeaningfulFctr = "'%s' not meaningful for factors"
)

// Warning is a non-fatal condition raised during evaluation.
type Warning struct {
	Code    WarningCode
	Message string
	Call    string
}

func NewWarning(code WarningCode, format string, args ...interface{}) Warning {
	return Warning{Code: code, Message: fmt.Sprintf(format, args...)}
}

func (w Warning) String() string {
	if w.Call != "" {
		return "In " + w.Call + " : " + w.Message
	}
	return w.Message
}

// Warner receives warnings raised by value operations.
type Warner interface {
	Warn(w Warning)
}

// WarningList is the simplest Warner: it records warnings in order.
type WarningList struct {
	Items []Warning
}

func (l *WarningList) Warn(w Warning) {
	l.Items = append(l.Items, w)
}

func (l *WarningList) Len() int {
	if l == nil {
		return 0
	}
	return len(l.Items)
}

// Drain returns the recorded warnings and clears the list.
func (l *WarningList) Drain() []Warning {
	items := l.Items
	l.Items = nil
	return items
}

// Discard drops every warning.
var Discard Warner = discard{}

type discard struct{}

func (discard) Warn(Warning) {}

// FormatWarnings renders warnings the way the REPL reports them after a top-level call.
func FormatWarnings(ws []Warning) string {
	if len(ws) == 0 {
		return ""
	}
	var sb strings.Builder
	if len(ws) == 1 {
		sb.WriteString("Warning message:\n")
		sb.WriteString(ws[0].String())
		return sb.String()
	}
	sb.WriteString("Warning messages:\n")
	for i, w := range ws {
		fmt.Fprintf(&sb, "%d: %s", i+1, w.String())
		if i < len(ws)-1 {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}
