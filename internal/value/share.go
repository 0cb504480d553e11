package value

import "github.com/funvibe/rcore/internal/diagnostics"

// ShareState is the copy-on-write marker carried by every vector.
type ShareState uint8

const (
	// Unshared values are temporaries with exactly one owner; they may be mutated in
	// place.
	Unshared ShareState = iota
	// MaybeShared values are bound to exactly one variable.
	MaybeShared
	// Shared values are reachable from more than one place and must be copied before
	// mutation.
	Shared
)

func (s ShareState) String() string {
	switch s {
	case Unshared:
		return "unshared"
	case MaybeShared:
		return "maybe-shared"
	default:
		return "shared"
	}
}

type Shareable interface {
	Share() ShareState
	SetShare(s ShareState)
}

// MarkBound records one more owner of v.
func MarkBound(v Value) {
	s, ok := v.(Shareable)
	if !ok {
		return
	}
	switch s.Share() {
	case Unshared:
		s.SetShare(MaybeShared)
	case MaybeShared:
		s.SetShare(Shared)
	}
}

// MarkShared makes v permanently shared.
func MarkShared(v Value) {
	if s, ok := v.(Shareable); ok {
		s.SetShare(Shared)
	}
}

// IsTemporary reports whether v has no owner yet.
func IsTemporary(v Value) bool {
	s, ok := v.(Shareable)
	return ok && s.Share() == Unshared
}

// PrepareForMutation is the only place that decides between in-place update and
// duplication: shared vectors are copied, anything else is returned as is.
func PrepareForMutation(v Vector) Vector {
	if v.Share() == Shared {
		return v.Copy()
	}
	return v
}

func mutationCheck(s ShareState) {
	if s == Shared {
		panic(diagnostics.Internalf("in-place mutation of a shared vector"))
	}
}
