package evaluator

import (
	"github.com/funvibe/rcore/internal/coerce"
	"github.com/funvibe/rcore/internal/diagnostics"
	"github.com/funvibe/rcore/internal/value"
)

const msgNotMultiple = "number of items to replace is not a multiple of replacement length"

// replacementTarget prepares x for an element assignment of rhs: NULL becomes an
// empty vector, kinds are promoted to a common kind and shared values are copied.
func replacementTarget(x value.Value, rhs value.Value, w diagnostics.Warner) (value.Vector, value.Vector, error) {
	var rv value.Vector
	if value.IsNull(rhs) {
		rv = value.NewList(nil)
	} else {
		v, err := coerce.CastToVector(rhs)
		if err != nil {
			if _, isVec := rhs.(value.Vector); !isVec {
				// functions and environments are stored as list elements
				rv = value.NewList([]value.Value{rhs})
			} else {
				return nil, nil, err
			}
		} else {
			rv = v
		}
	}

	var xv value.Vector
	switch t := x.(type) {
	case value.Vector:
		xv = t
	default:
		if !value.IsNull(x) {
			return nil, nil, diagnostics.Errorf(diagnostics.ErrR007, "object of type '%s' is not subsettable", x.Kind())
		}
		xv = value.NewVectorOfKind(rv.Kind(), 0)
	}

	if value.IsFactor(xv) {
		codes, err := factorCodes(xv, rv, w)
		if err != nil {
			return nil, nil, err
		}
		return value.PrepareForMutation(xv), codes, nil
	}

	k := coerce.MaxPrecedence(xv.Kind(), rv.Kind())
	if xv.Kind() != k {
		c, err := coerce.Cast(xv, k, w)
		if err != nil {
			return nil, nil, err
		}
		xv = c
	} else {
		xv = value.PrepareForMutation(xv)
	}
	if rv.Kind() != k {
		c, err := coerce.Cast(rv, k, w)
		if err != nil {
			return nil, nil, err
		}
		rv = c
	}
	return xv, rv, nil
}

// factorCodes maps replacement labels to the level codes of factor f.
func factorCodes(f value.Vector, rv value.Vector, w diagnostics.Warner) (value.Vector, error) {
	if value.IsFactor(rv) {
		labels, err := factorLabels(rv.(*value.IntegerVector))
		if err != nil {
			return nil, err
		}
		rv = labels
	}
	strs, err := coerce.AsStrings(rv)
	if err != nil {
		return nil, err
	}
	levels, _ := value.GetAttr(f, value.AttrLevels).(*value.CharacterVector)
	codes := make([]int32, len(strs))
	warned := false
	for i, s := range strs {
		codes[i] = value.NAInteger
		if s == value.NAString {
			continue
		}
		if j := matchName(levels, s, false); j >= 0 {
			codes[i] = int32(j + 1)
		} else if !warned {
			warned = true
			w.Warn(diagnostics.NewWarning(diagnostics.WarnW003, "invalid factor level, NA generated"))
		}
	}
	return value.NewInteger(codes, false), nil
}

// extend grows xv so that position maxPos exists, naming new elements from added.
func extend(xv value.Vector, maxPos int, added []string) (value.Vector, error) {
	n := xv.Len()
	if maxPos >= n {
		xv = xv.Resize(maxPos + 1)
	}
	if len(added) == 0 {
		return xv, nil
	}
	names := make([]string, xv.Len())
	if old := value.Names(xv); old != nil {
		copy(names, old.Data())
	}
	for i, s := range added {
		names[n+i] = s
	}
	if err := value.SetAttr(xv, value.AttrNames, value.NewStrings(names...)); err != nil {
		return nil, err
	}
	return xv, nil
}

// assignElements stores rv into xv at pos, recycling rv.
func assignElements(xv, rv value.Vector, pos []int, w diagnostics.Warner) (value.Vector, error) {
	if len(pos) == 0 {
		return xv, nil
	}
	if rv.Len() == 0 {
		return nil, diagnostics.Errorf(diagnostics.ErrR007, "replacement has length zero")
	}
	maxPos := -1
	hasNA := false
	for _, p := range pos {
		if p < 0 {
			hasNA = true
		}
		maxPos = max(maxPos, p)
	}
	if hasNA && rv.Len() > 1 {
		return nil, diagnostics.Errorf(diagnostics.ErrR011, "NAs are not allowed in subscripted assignments")
	}
	if len(pos)%rv.Len() != 0 {
		w.Warn(diagnostics.NewWarning(diagnostics.WarnW002, msgNotMultiple))
	}
	if maxPos >= xv.Len() {
		xv = xv.Resize(maxPos + 1)
	}
	for i, p := range pos {
		if p < 0 {
			continue
		}
		value.CopyElement(xv, p, rv, i%rv.Len())
	}
	return xv, nil
}

// deleteElements removes the list elements at pos.
func deleteElements(l value.Vector, pos []int) value.Vector {
	drop := make(map[int]bool, len(pos))
	for _, p := range pos {
		if p >= 0 {
			drop[p] = true
		}
	}
	keep := make([]int, 0, l.Len())
	for i := 0; i < l.Len(); i++ {
		if !drop[i] {
			keep = append(keep, i)
		}
	}
	out := value.Subset(l, keep)
	for _, a := range l.Attrs().Items() {
		if !value.IsStructural(a.Name) {
			_ = value.SetAttr(out, a.Name, a.Value)
		}
	}
	return out
}

// assignSubset implements x[...] <- rhs.
func assignSubset(x value.Value, idx []value.Value, rhs value.Value, w diagnostics.Warner) (value.Value, error) {
	if l, ok := x.(*value.List); ok && value.IsNull(rhs) && len(idx) == 1 {
		pos, _, err := positions(idx[0], l.Len(), value.Names(l), false)
		if err != nil {
			return nil, err
		}
		return deleteElements(l, pos), nil
	}
	if value.IsNull(rhs) {
		if value.IsNull(x) {
			return value.Null, nil
		}
		return nil, diagnostics.Errorf(diagnostics.ErrR007, "replacement has length zero")
	}
	xv, rv, err := replacementTarget(x, rhs, w)
	if err != nil {
		return nil, err
	}
	switch len(idx) {
	case 0:
		idx = []value.Value{value.Missing}
		fallthrough
	case 1:
		pos, added, err := positions(idx[0], xv.Len(), value.Names(xv), true)
		if err != nil {
			return nil, err
		}
		maxPos := -1
		for _, p := range pos {
			maxPos = max(maxPos, p)
		}
		if xv, err = extend(xv, maxPos, added); err != nil {
			return nil, err
		}
		return assignElements(xv, rv, pos, w)
	case 2:
		dim := value.Dim(xv)
		if dim == nil || dim.Len() != 2 {
			return nil, diagnostics.Errorf(diagnostics.ErrR011, "incorrect number of subscripts on matrix")
		}
		nrow := int(dim.At(0))
		rows, cols, err := matrixPositions(xv, nrow, int(dim.At(1)), idx[0], idx[1])
		if err != nil {
			return nil, err
		}
		pos := make([]int, 0, len(rows)*len(cols))
		for _, c := range cols {
			for _, r := range rows {
				pos = append(pos, c*nrow+r)
			}
		}
		return assignElements(xv, rv, pos, w)
	}
	return nil, diagnostics.Errorf(diagnostics.ErrR011, "incorrect number of subscripts")
}

// assignSubset2 implements x[[...]] <- rhs.
func (e *Evaluator) assignSubset2(x value.Value, idx []value.Value, rhs value.Value, w diagnostics.Warner) (value.Value, error) {
	if env, ok := x.(*value.Environment); ok {
		if len(idx) != 1 {
			return nil, diagnostics.Errorf(diagnostics.ErrR011, "wrong args for environment subassignment")
		}
		name, err := coerce.AsStringScalar(idx[0], "name")
		if err != nil {
			return nil, diagnostics.Errorf(diagnostics.ErrR011, "wrong args for environment subassignment")
		}
		if err := env.Bind(name, rhs); err != nil {
			return nil, err
		}
		return env, nil
	}
	if len(idx) == 2 {
		if vec, ok := rhs.(value.Vector); !ok || vec.Len() != 1 {
			return nil, diagnostics.Errorf(diagnostics.ErrR007, "more elements supplied than there are to replace")
		}
		return assignSubset(x, idx, rhs, w)
	}
	if len(idx) != 1 {
		return nil, diagnostics.Errorf(diagnostics.ErrR011, "incorrect number of subscripts")
	}
	if sub, ok := idx[0].(value.Vector); !ok || sub.Len() != 1 {
		if ok && sub.Len() > 1 {
			return nil, diagnostics.Errorf(diagnostics.ErrR011, "more than one element selected by [[<-")
		}
		return nil, diagnostics.Errorf(diagnostics.ErrR011, "[[ ]] with missing subscript")
	}

	list, isList := x.(*value.List)
	rvec, rIsVec := rhs.(value.Vector)
	atomicScalar := rIsVec && rvec.Kind().IsAtomic() && rvec.Len() == 1
	if !isList && (value.IsNull(x) || value.Length(x) == 0) && !atomicScalar && !value.IsNull(rhs) {
		list, isList = value.NewList(nil), true
	}
	if !isList {
		xv, ok := x.(value.Vector)
		if value.IsNull(x) || (ok && xv.Kind().IsAtomic()) {
			if value.IsNull(rhs) {
				return nil, diagnostics.Errorf(diagnostics.ErrR007, "replacement has length zero")
			}
			if !atomicScalar {
				if !rIsVec || rvec.Len() != 1 {
					return nil, diagnostics.Errorf(diagnostics.ErrR007, "more elements supplied than there are to replace")
				}
			}
			return assignSubset(x, idx, rhs, w)
		}
		return nil, diagnostics.Errorf(diagnostics.ErrR007, "object of type '%s' is not subsettable", x.Kind())
	}

	pos, added, err := positions(idx[0], list.Len(), value.Names(list), true)
	if err != nil {
		return nil, err
	}
	if len(pos) != 1 || pos[0] < 0 {
		return nil, outOfBounds()
	}
	if value.IsNull(rhs) {
		if pos[0] >= list.Len() {
			return list, nil
		}
		return deleteElements(list, pos), nil
	}
	lv, err := extend(value.PrepareForMutation(list), pos[0], added)
	if err != nil {
		return nil, err
	}
	lv.(*value.List).Set(pos[0], rhs)
	return lv, nil
}

// assignDollar implements x$name <- rhs.
func (e *Evaluator) assignDollar(x value.Value, name string, rhs value.Value, w diagnostics.Warner) (value.Value, error) {
	switch t := x.(type) {
	case *value.Environment:
		if err := t.Bind(name, rhs); err != nil {
			return nil, err
		}
		return t, nil
	case *value.List:
	case value.Vector:
		if t.Len() > 0 {
			w.Warn(diagnostics.NewWarning(diagnostics.WarnW001, "Coercing LHS to a list"))
		}
		l, err := coerce.Cast(t, value.KindList, w)
		if err != nil {
			return nil, err
		}
		x = l
	default:
		if !value.IsNull(x) {
			return nil, diagnostics.Errorf(diagnostics.ErrR007, "invalid type for $ assignment: '%s'", x.Kind())
		}
		x = value.NewList(nil)
	}
	return e.assignSubset2(x, []value.Value{value.Str(name)}, rhs, w)
}
