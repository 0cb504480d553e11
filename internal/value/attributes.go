package value

import (
	"github.com/funvibe/rcore/internal/diagnostics"
)

// Reserved attribute names.
const (
	AttrNames    = "names"
	AttrDim      = "dim"
	AttrDimNames = "dimnames"
	AttrClass    = "class"
	AttrRowNames = "row.names"
	AttrLevels   = "levels"
)

type Attribute struct {
	Name  string
	Value Value
}

// Attributes is an insertion-ordered name to value map.
type Attributes struct {
	items []Attribute
}

func NewAttributes() *Attributes { return &Attributes{} }

func (a *Attributes) Len() int {
	if a == nil {
		return 0
	}
	return len(a.items)
}

func (a *Attributes) Get(name string) (Value, bool) {
	if a == nil {
		return nil, false
	}
	for _, it := range a.items {
		if it.Name == name {
			return it.Value, true
		}
	}
	return nil, false
}

// Put replaces an existing attribute in place or appends a new one.
func (a *Attributes) Put(name string, v Value) {
	for i := range a.items {
		if a.items[i].Name == name {
			a.items[i].Value = v
			return
		}
	}
	a.items = append(a.items, Attribute{Name: name, Value: v})
}

func (a *Attributes) Remove(name string) bool {
	if a == nil {
		return false
	}
	for i := range a.items {
		if a.items[i].Name == name {
			a.items = append(a.items[:i], a.items[i+1:]...)
			return true
		}
	}
	return false
}

// Items returns the attributes in insertion order. The slice must not be modified.
func (a *Attributes) Items() []Attribute {
	if a == nil {
		return nil
	}
	return a.items
}

func (a *Attributes) Copy() *Attributes {
	if a == nil {
		return nil
	}
	out := &Attributes{items: make([]Attribute, len(a.items))}
	copy(out.items, a.items)
	for _, it := range out.items {
		MarkShared(it.Value)
	}
	return out
}

// IsStructural reports whether an attribute name shapes the vector rather than
// annotating it.
func IsStructural(name string) bool {
	switch name {
	case AttrNames, AttrDim, AttrDimNames:
		return true
	}
	return false
}

// GetAttr returns attribute name of v, or Null.
func GetAttr(v Value, name string) Value {
	vec, ok := v.(Vector)
	if !ok {
		return Null
	}
	if a, ok := vec.Attrs().Get(name); ok {
		return a
	}
	return Null
}

// SetAttr validates and stores an attribute on v, which must already be prepared for
// mutation. Assigning NULL removes the attribute. Callers coerce dim to integer and
// names to character before calling.
func SetAttr(v Vector, name string, val Value) error {
	if IsNull(val) {
		if a := v.Attrs(); a != nil {
			a.Remove(name)
			if name == AttrDim {
				a.Remove(AttrDimNames)
			}
		}
		return nil
	}
	switch name {
	case AttrDim:
		dim, ok := val.(*IntegerVector)
		if !ok {
			return diagnostics.Errorf(diagnostics.ErrR007, "invalid second argument, must be vector or NULL")
		}
		if dim.Len() == 0 {
			return diagnostics.Errorf(diagnostics.ErrR007, "length-0 dimension vector is invalid")
		}
		product := 1
		for _, d := range dim.data {
			if d == NAInteger || d < 0 {
				return diagnostics.Errorf(diagnostics.ErrR007, "the dims contain missing or negative values")
			}
			product *= int(d)
		}
		if product != v.Len() {
			return diagnostics.Errorf(diagnostics.ErrR007, "dims [product %d] do not match the length of object [%d]", product, v.Len())
		}
	case AttrNames:
		names, ok := val.(*CharacterVector)
		if !ok {
			return diagnostics.Errorf(diagnostics.ErrR007, "'names' attribute must be a character vector")
		}
		if names.Len() != v.Len() {
			return diagnostics.Errorf(diagnostics.ErrR007, "'names' attribute [%d] must be the same length as the vector [%d]", names.Len(), v.Len())
		}
	case AttrDimNames:
		dim := Dim(v)
		if dim == nil {
			return diagnostics.Errorf(diagnostics.ErrR007, "'dimnames' applied to non-array")
		}
		dn, ok := val.(*List)
		if !ok || dn.Len() != dim.Len() {
			return diagnostics.Errorf(diagnostics.ErrR007, "length of 'dimnames' [%d] must match that of 'dims' [%d]", Length(val), dim.Len())
		}
	case AttrClass:
		cls, ok := val.(*CharacterVector)
		if !ok {
			return diagnostics.Errorf(diagnostics.ErrR007, "attempt to set invalid 'class' attribute")
		}
		if cls.Len() == 0 {
			if a := v.Attrs(); a != nil {
				a.Remove(AttrClass)
			}
			return nil
		}
	}
	a := v.Attrs()
	if a == nil {
		a = NewAttributes()
		v.SetAttrs(a)
	}
	MarkShared(val)
	a.Put(name, val)
	return nil
}

// Names returns the names attribute, or nil.
func Names(v Value) *CharacterVector {
	n, _ := GetAttr(v, AttrNames).(*CharacterVector)
	return n
}

// Dim returns the dim attribute, or nil.
func Dim(v Value) *IntegerVector {
	d, _ := GetAttr(v, AttrDim).(*IntegerVector)
	return d
}

// Class returns the explicit class attribute as strings.
func Class(v Value) []string {
	c, ok := GetAttr(v, AttrClass).(*CharacterVector)
	if !ok {
		return nil
	}
	return c.data
}

func Inherits(v Value, class string) bool {
	for _, c := range Class(v) {
		if c == class {
			return true
		}
	}
	return false
}

func IsFactor(v Value) bool {
	return v.Kind() == KindInteger && Inherits(v, "factor")
}

// HasAttributes reports whether v is a vector carrying at least one attribute.
func HasAttributes(v Value) bool {
	vec, ok := v.(Vector)
	return ok && vec.Attrs().Len() > 0
}

// ImplicitClass returns the class() of a value without a class attribute.
func ImplicitClass(v Value) []string {
	if c := Class(v); len(c) > 0 {
		return c
	}
	if d := Dim(v); d != nil {
		if d.Len() == 2 {
			return []string{"matrix", "array"}
		}
		return []string{"array"}
	}
	switch v.Kind() {
	case KindInteger:
		return []string{"integer"}
	case KindDouble:
		return []string{"numeric"}
	case KindClosure, KindBuiltin:
		return []string{"function"}
	case KindSymbol:
		return []string{"name"}
	case KindLanguage:
		return []string{"call"}
	}
	return []string{v.Kind().String()}
}
