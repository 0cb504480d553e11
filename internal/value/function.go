package value

import "github.com/funvibe/rcore/internal/ast"

// Formal is one declared parameter of a closure.
type Formal struct {
	Name    string
	Default ast.Expression // nil when the parameter has no default
}

// Closure is a user function: formals, body and the environment it was created in.
type Closure struct {
	Formals []Formal
	Body    ast.Expression
	Env     *Environment
	// Name is the binding the closure was first assigned to, for diagnostics.
	Name  string
	attrs *Attributes
}

func (c *Closure) Kind() Kind { return KindClosure }

func (c *Closure) Attrs() *Attributes { return c.attrs }

func (c *Closure) SetAttrs(a *Attributes) { c.attrs = a }

// HasDots reports whether the closure takes "...".
func (c *Closure) HasDots() bool {
	for _, f := range c.Formals {
		if f.Name == "..." {
			return true
		}
	}
	return false
}

// Dots carries the promises matched to "..." in a call frame.
type Dots struct {
	Values []Value
	Names  []string
}

func (d *Dots) Kind() Kind { return KindDots }

func (d *Dots) Len() int { return len(d.Values) }
