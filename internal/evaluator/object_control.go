package evaluator

import (
	"slices"
	"strings"

	"github.com/funvibe/rcore/internal/diagnostics"
	"github.com/funvibe/rcore/internal/value"
)

// Control signals travel up the Go call chain as errors. They are not conditions:
// tryCatch never sees them.

// ReturnSignal is raised by return() and caught by the closure whose frame
// environment is Env.
type ReturnSignal struct {
	Value value.Value
	Env   *value.Environment
}

func (r *ReturnSignal) Error() string { return "no function to return from, jumping to top level" }

// BreakSignal is raised by break and caught by the innermost loop.
type BreakSignal struct{}

func (BreakSignal) Error() string { return "no loop for break/next, jumping to top level" }

// NextSignal is raised by next and caught by the innermost loop.
type NextSignal struct{}

func (NextSignal) Error() string { return "no loop for break/next, jumping to top level" }

func isControlSignal(err error) bool {
	switch err.(type) {
	case *ReturnSignal, BreakSignal, NextSignal:
		return true
	}
	return false
}

// Condition is a signalled condition object on its way to a tryCatch handler.
type Condition struct {
	Err *diagnostics.Error
	// Classes is the class vector of the condition, most specific first.
	Classes []string
	// Object is the condition list handed to handlers; built lazily from Err when nil.
	Object *value.List
}

func (c *Condition) Error() string { return c.Err.Error() }

func (c *Condition) Unwrap() error { return c.Err }

// HasClass reports whether class is in the condition's class vector.
func (c *Condition) HasClass(class string) bool {
	return slices.Contains(c.Classes, class)
}

var (
	errorClasses   = []string{"simpleError", "error", "condition"}
	warningClasses = []string{"simpleWarning", "warning", "condition"}
	messageClasses = []string{"simpleMessage", "message", "condition"}
)

// conditionObject builds the list(message=, call=) handed to handlers.
func conditionObject(msg, call string, classes []string) *value.List {
	var callValue value.Value = value.Null
	if call != "" {
		callValue = value.Str(call)
	}
	obj := value.NewList([]value.Value{value.Str(msg), callValue})
	_ = value.SetAttr(obj, value.AttrNames, value.NewStrings("message", "call"))
	_ = value.SetAttr(obj, value.AttrClass, value.NewStrings(classes...))
	return obj
}

// asCondition views a language error as a condition. Control signals and internal
// errors are not conditions.
func asCondition(err error) (*Condition, bool) {
	switch x := err.(type) {
	case *Condition:
		return x, true
	case *diagnostics.Error:
		return &Condition{Err: x, Classes: errorClasses}, true
	}
	return nil, false
}

func (c *Condition) object() *value.List {
	if c.Object == nil {
		c.Object = conditionObject(c.Err.Message, c.Err.Call, c.Classes)
	}
	return c.Object
}

// conditionFromValue turns the argument of stop() or warning() into a condition:
// either a condition object or message parts pasted together.
func conditionFromValue(parts []string, obj value.Value, call string, classes []string, code diagnostics.ErrorCode) *Condition {
	if l, ok := obj.(*value.List); ok && value.Inherits(l, "condition") {
		msg := ""
		if m, ok := listElement(l, "message").(*value.CharacterVector); ok && m.Len() > 0 {
			msg = m.At(0)
		}
		err := diagnostics.Errorf(code, "%s", msg)
		err.Call = call
		return &Condition{Err: err, Classes: value.Class(l), Object: l}
	}
	err := diagnostics.Errorf(code, "%s", strings.Join(parts, ""))
	err.Call = call
	return &Condition{Err: err, Classes: classes}
}

// listElement returns the element of l named name, or Null.
func listElement(l *value.List, name string) value.Value {
	names := value.Names(l)
	if names == nil {
		return value.Null
	}
	for i, n := range names.Data() {
		if n == name {
			return l.At(i)
		}
	}
	return value.Null
}
