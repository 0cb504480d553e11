package diagnostics

import (
	"fmt"

	"github.com/funvibe/rcore/internal/token"
)

// ErrorCode identifies a class of diagnostic.
type ErrorCode string

// Parse errors.
const (
	ErrP001 ErrorCode = "P001" // unexpected token
	ErrP002 ErrorCode = "P002" // unterminated string
	ErrP003 ErrorCode = "P003" // unexpected end of input
	ErrP004 ErrorCode = "P004" // invalid number
)

// Runtime (language-level) errors.
const (
	ErrR001 ErrorCode = "R001" // generic error, including stop()
	ErrR002 ErrorCode = "R002" // unbound variable or function
	ErrR003 ErrorCode = "R003" // locked environment
	ErrR004 ErrorCode = "R004" // locked binding
	ErrR005 ErrorCode = "R005" // no loop for break/next
	ErrR006 ErrorCode = "R006" // recursive default argument
	ErrR007 ErrorCode = "R007" // type error
	ErrR008 ErrorCode = "R008" // binding not found
	ErrR009 ErrorCode = "R009" // argument matching
	ErrR010 ErrorCode = "R010" // non-conformable operands
	ErrR011 ErrorCode = "R011" // invalid subscript
)

// Error is a recoverable, language-level diagnostic. It unwinds evaluation up to the
// nearest handler or the top level.
type Error struct {
	Code    ErrorCode
	Message string
	// Call is the deparsed call the error was raised in, if known.
	Call   string
	File   string
	Line   int
	Column int
	Token  string
}

func NewError(code ErrorCode, tok token.Token, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Line:    tok.Line,
		Column:  tok.Column,
		Token:   tok.Lexeme,
	}
}

// Errorf builds a runtime error without position; the evaluator fills it in.
func Errorf(code ErrorCode, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	prefix := "Error"
	if e.Call != "" {
		prefix = "Error in " + e.Call
	}
	if e.Line > 0 {
		if e.File != "" {
			return fmt.Sprintf("%s (%s:%d:%d): %s", prefix, e.File, e.Line, e.Column, e.Message)
		}
		return fmt.Sprintf("%s (%d:%d): %s", prefix, e.Line, e.Column, e.Message)
	}
	return prefix + ": " + e.Message
}

// Is reports whether target is an *Error with the same code, so sentinel values such
// as &Error{Code: ErrR003} work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code && (t.Message == "" || t.Message == e.Message)
}

// IsParseError reports whether the error came from the parser.
func (e *Error) IsParseError() bool {
	return len(e.Code) > 0 && e.Code[0] == 'P'
}

// WithPosition fills in a position if none was recorded yet.
func (e *Error) WithPosition(tok token.Token) *Error {
	if e.Line == 0 && tok.Line > 0 {
		e.Line = tok.Line
		e.Column = tok.Column
	}
	return e
}
