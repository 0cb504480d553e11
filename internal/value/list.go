package value

// List is a heterogeneous vector; elements are individually owned values.
type List struct{ vector[Value] }

func NewList(elems []Value) *List {
	for i, e := range elems {
		if e == nil {
			elems[i] = Null
		}
	}
	return &List{vector[Value]{data: elems, complete: true}}
}

func (l *List) Kind() Kind        { return KindList }
func (l *List) At(i int) Value    { return l.data[i] }
func (l *List) Elem(i int) Vector { return NewList([]Value{l.data[i]}) }

// IsNA is true when element i is a length-1 atomic NA.
func (l *List) IsNA(i int) bool {
	v, ok := l.data[i].(Vector)
	return ok && v.Kind().IsAtomic() && v.Len() == 1 && v.IsNA(0)
}

func (l *List) Set(i int, x Value) {
	mutationCheck(l.share)
	if x == nil {
		x = Null
	}
	MarkShared(x)
	l.data[i] = x
}

// Validate always succeeds: lists carry no completeness promise about their elements.
func (l *List) Validate() bool { return true }

func (l *List) IsComplete() bool { return false }

func (l *List) Copy() Vector {
	data := l.copyData()
	for _, e := range data {
		MarkShared(e)
	}
	return &List{vector[Value]{data: data, attrs: l.copyAttrs(), complete: true}}
}

func (l *List) ShallowCopy() Vector {
	l.share = Shared
	return &List{vector[Value]{data: l.data, attrs: l.copyAttrs(), complete: true, share: Shared}}
}

func (l *List) Resize(n int) Vector {
	return &List{vector[Value]{data: resized(l.data, n, Null), attrs: l.resizedAttrs(n), complete: true}}
}

// ExpressionVector holds quoted, unevaluated fragments.
type ExpressionVector struct{ vector[Value] }

func NewExpression(elems []Value) *ExpressionVector {
	return &ExpressionVector{vector[Value]{data: elems, complete: true}}
}

func (e *ExpressionVector) Kind() Kind        { return KindExpression }
func (e *ExpressionVector) At(i int) Value    { return e.data[i] }
func (e *ExpressionVector) IsNA(int) bool     { return false }
func (e *ExpressionVector) Validate() bool    { return true }
func (e *ExpressionVector) Elem(i int) Vector { return NewExpression([]Value{e.data[i]}) }

func (e *ExpressionVector) Copy() Vector {
	return &ExpressionVector{vector[Value]{data: e.copyData(), attrs: e.copyAttrs(), complete: true}}
}

func (e *ExpressionVector) ShallowCopy() Vector {
	e.share = Shared
	return &ExpressionVector{vector[Value]{data: e.data, attrs: e.copyAttrs(), complete: true, share: Shared}}
}

func (e *ExpressionVector) Resize(n int) Vector {
	return &ExpressionVector{vector[Value]{data: resized(e.data, n, Null), attrs: e.resizedAttrs(n), complete: true}}
}
