package value

// Value is the universal runtime datum.
type Value interface {
	Kind() Kind
}

// Vector is implemented by the atomic vectors, lists and expression vectors.
type Vector interface {
	Value
	Shareable
	Len() int
	// Attrs returns the attribute map, or nil when the vector has none.
	Attrs() *Attributes
	SetAttrs(a *Attributes)
	// IsComplete reports the completeness flag: true guarantees no element is NA.
	IsComplete() bool
	IsNA(i int) bool
	// Validate rescans the elements, repairs the completeness flag and reports whether
	// the flag was consistent.
	Validate() bool
	// Copy duplicates data and attributes; the copy is unshared.
	Copy() Vector
	// ShallowCopy gets a private attribute map but shares data with the receiver,
	// so both are marked shared.
	ShallowCopy() Vector
	// Elem returns element i as a length-1 vector without attributes.
	Elem(i int) Vector
	// Resize returns a copy of length n, truncated or padded with NA (or NULL).
	Resize(n int) Vector
}

type nullValue struct{}

func (nullValue) Kind() Kind { return KindNull }

type missingValue struct{}

func (missingValue) Kind() Kind { return KindMissing }

var (
	// Null is the singleton NULL value.
	Null Value = nullValue{}
	// Missing marks an argument that was not supplied.
	Missing Value = missingValue{}
)

func IsNull(v Value) bool { return v == nil || v.Kind() == KindNull }

func IsMissing(v Value) bool { return v != nil && v.Kind() == KindMissing }

// Length returns the vector length, 0 for NULL and 1 for other non-vector values.
func Length(v Value) int {
	switch x := v.(type) {
	case Vector:
		return x.Len()
	case *Pairlist:
		return x.Len()
	case *Environment:
		return x.Len()
	}
	if IsNull(v) {
		return 0
	}
	return 1
}
