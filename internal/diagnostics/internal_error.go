package diagnostics

import (
	"fmt"
	"runtime/debug"
)

// InternalError is an implementation failure: an invariant violation, unreachable code,
// or a Go panic recovered at the top-level boundary. It is never a language error.
type InternalError struct {
	Message string
	Stack   string
	// Context holds diagnostic key/values (context id, node, operand kinds).
	Context map[string]string
	Cause   error
}

// Internalf builds an InternalError capturing the current stack.
func Internalf(format string, args ...interface{}) *InternalError {
	return &InternalError{
		Message: fmt.Sprintf(format, args...),
		Stack:   string(debug.Stack()),
		Context: map[string]string{},
	}
}

// FromPanic converts a recovered panic value.
func FromPanic(p interface{}, stack []byte) *InternalError {
	ie := &InternalError{Stack: string(stack), Context: map[string]string{}}
	switch v := p.(type) {
	case *InternalError:
		return v
	case error:
		ie.Message = v.Error()
		ie.Cause = v
	default:
		ie.Message = fmt.Sprint(v)
	}
	return ie
}

func (e *InternalError) Error() string {
	return "internal error: " + e.Message
}

func (e *InternalError) Unwrap() error { return e.Cause }

func (e *InternalError) With(key, val string) *InternalError {
	if e.Context == nil {
		e.Context = map[string]string{}
	}
	e.Context[key] = val
	return e
}
