package value

// vector is the storage shared by every vector kind.
type vector[T any] struct {
	data     []T
	attrs    *Attributes
	complete bool
	share    ShareState
}

func (v *vector[T]) Len() int { return len(v.data) }

// Data exposes the element buffer to specialized code paths. Callers that write to it
// must have gone through PrepareForMutation and must keep the completeness flag right.
func (v *vector[T]) Data() []T { return v.data }

func (v *vector[T]) Attrs() *Attributes {
	if v.attrs != nil && v.attrs.Len() == 0 {
		return nil
	}
	return v.attrs
}

func (v *vector[T]) SetAttrs(a *Attributes) { v.attrs = a }

func (v *vector[T]) IsComplete() bool { return v.complete }

// SetComplete overrides the completeness flag. Passing true is only legal when the
// caller has established that no element is NA.
func (v *vector[T]) SetComplete(c bool) { v.complete = c }

func (v *vector[T]) Share() ShareState { return v.share }

func (v *vector[T]) SetShare(s ShareState) { v.share = s }

func (v *vector[T]) copyData() []T {
	out := make([]T, len(v.data))
	copy(out, v.data)
	return out
}

func (v *vector[T]) copyAttrs() *Attributes {
	if v.attrs == nil {
		return nil
	}
	return v.attrs.Copy()
}

func resized[T any](data []T, n int, fill T) []T {
	out := make([]T, n)
	m := copy(out, data)
	for i := m; i < n; i++ {
		out[i] = fill
	}
	return out
}

// resizedAttrs keeps names (padded) and drops the structural shape attributes.
func (v *vector[T]) resizedAttrs(n int) *Attributes {
	if v.attrs == nil {
		return nil
	}
	out := NewAttributes()
	for _, a := range v.attrs.items {
		switch a.Name {
		case AttrDim, AttrDimNames:
			continue
		case AttrNames:
			if names, ok := a.Value.(*CharacterVector); ok {
				nn := resized(names.data, n, "")
				out.Put(AttrNames, NewCharacter(nn, true))
			}
		default:
			out.Put(a.Name, a.Value)
		}
	}
	return out
}
