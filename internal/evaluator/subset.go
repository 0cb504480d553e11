package evaluator

import (
	"math"
	"strings"

	"github.com/funvibe/rcore/internal/ast"
	"github.com/funvibe/rcore/internal/coerce"
	"github.com/funvibe/rcore/internal/diagnostics"
	"github.com/funvibe/rcore/internal/value"
)

func outOfBounds() error {
	return diagnostics.Errorf(diagnostics.ErrR011, "subscript out of bounds")
}

// indexArgs evaluates the subscripts of x[...] and splits off the named drop= and
// exact= arguments.
func (e *Evaluator) indexArgs(args []*ast.Argument, env *value.Environment) (idx []value.Value, drop bool, err error) {
	drop = true
	for _, a := range args {
		if a.Value == nil {
			idx = append(idx, value.Missing)
			continue
		}
		v, err := e.Eval(a.Value, env)
		if err != nil {
			return nil, false, err
		}
		switch a.Name {
		case "drop":
			if drop, err = coerce.AsLogicalFlag(v, "drop"); err != nil {
				return nil, false, err
			}
			continue
		case "exact":
			continue
		}
		idx = append(idx, v)
	}
	return idx, drop, nil
}

func (e *Evaluator) evalIndex(node *ast.IndexExpression, env *value.Environment) (value.Value, error) {
	x, err := e.Eval(node.Left, env)
	if err != nil {
		return nil, err
	}
	idx, drop, err := e.indexArgs(node.Arguments, env)
	if err != nil {
		return nil, err
	}
	e.visible = true
	var v value.Value
	if node.Double {
		v, err = subset2(x, idx)
	} else {
		v, err = subset(x, idx, drop)
	}
	if err != nil {
		return nil, callError(err, node)
	}
	return v, nil
}

func (e *Evaluator) evalDollar(node *ast.DollarExpression, env *value.Environment) (value.Value, error) {
	x, err := e.Eval(node.Left, env)
	if err != nil {
		return nil, err
	}
	if node.At {
		return value.GetAttr(x, node.Name), nil
	}
	v, err := e.dollar(x, node.Name)
	if err != nil {
		return nil, callError(err, node)
	}
	return v, nil
}

// dollar implements x$name: partial matching on lists, exact lookup in environments.
func (e *Evaluator) dollar(x value.Value, name string) (value.Value, error) {
	switch t := x.(type) {
	case *value.List:
		i := matchName(value.Names(t), name, true)
		if i < 0 {
			return value.Null, nil
		}
		el := t.At(i)
		value.MarkShared(el)
		return el, nil
	case *value.Environment:
		v, ok := t.Get(name)
		if !ok {
			return value.Null, nil
		}
		return e.force(v)
	case value.Vector:
		return nil, diagnostics.Errorf(diagnostics.ErrR007, "$ operator is invalid for atomic vectors")
	}
	if value.IsNull(x) {
		return value.Null, nil
	}
	return nil, diagnostics.Errorf(diagnostics.ErrR007, "object of type '%s' is not subsettable", x.Kind())
}

// matchName finds name among names: an exact match first, then, when partial is set,
// the only name that has it as prefix.
func matchName(names *value.CharacterVector, name string, partial bool) int {
	if names == nil {
		return -1
	}
	for i, n := range names.Data() {
		if n == name && !names.IsNA(i) {
			return i
		}
	}
	if !partial {
		return -1
	}
	found := -1
	for i, n := range names.Data() {
		if !names.IsNA(i) && strings.HasPrefix(n, name) {
			if found >= 0 {
				return -1
			}
			found = i
		}
	}
	return found
}

// positions resolves one subscript against an extent of n elements. Reading yields -1
// for NA and for character names that do not match. When assign is set, unmatched
// names get new positions past the end and are returned in added.
func positions(idx value.Value, n int, names *value.CharacterVector, assign bool) (pos []int, added []string, err error) {
	if value.IsMissing(idx) {
		pos = make([]int, n)
		for i := range pos {
			pos[i] = i
		}
		return pos, nil, nil
	}
	if value.IsNull(idx) {
		return []int{}, nil, nil
	}
	switch x := idx.(type) {
	case *value.LogicalVector:
		m := max(n, x.Len())
		if x.Len() == 0 {
			return []int{}, nil, nil
		}
		for i := 0; i < m; i++ {
			switch x.At(i % x.Len()) {
			case value.True:
				pos = append(pos, i)
			case value.NALogical:
				pos = append(pos, -1)
			}
		}
		return pos, nil, nil
	case *value.CharacterVector:
		pending := map[string]int{}
		for i, s := range x.Data() {
			if x.IsNA(i) {
				pos = append(pos, -1)
				continue
			}
			j := matchName(names, s, false)
			if j >= 0 {
				pos = append(pos, j)
				continue
			}
			if !assign {
				pos = append(pos, -1)
				continue
			}
			if k, ok := pending[s]; ok {
				pos = append(pos, k)
				continue
			}
			k := n + len(added)
			pending[s] = k
			added = append(added, s)
			pos = append(pos, k)
		}
		return pos, added, nil
	case *value.IntegerVector, *value.DoubleVector:
		return numericPositions(x.(value.Vector), n)
	case value.Vector:
		return nil, nil, diagnostics.Errorf(diagnostics.ErrR011, "invalid subscript type '%s'", x.Kind())
	}
	return nil, nil, diagnostics.Errorf(diagnostics.ErrR011, "invalid subscript type '%s'", idx.Kind())
}

func numericPositions(v value.Vector, n int) ([]int, []string, error) {
	d, err := coerce.Cast(v, value.KindDouble, nil)
	if err != nil {
		return nil, nil, err
	}
	data := d.(*value.DoubleVector).Data()
	var neg, pos bool
	for _, x := range data {
		switch {
		case math.IsNaN(x):
		case x <= -1:
			neg = true
		case x >= 1:
			pos = true
		}
	}
	if neg {
		if pos {
			return nil, nil, diagnostics.Errorf(diagnostics.ErrR011, "can't mix positive and negative subscripts")
		}
		drop := make([]bool, n)
		for _, x := range data {
			if math.IsNaN(x) {
				return nil, nil, diagnostics.Errorf(diagnostics.ErrR011, "can't mix NAs and negative subscripts")
			}
			if k := int(-x); k >= 1 && k <= n {
				drop[k-1] = true
			}
		}
		out := make([]int, 0, n)
		for i, skip := range drop {
			if !skip {
				out = append(out, i)
			}
		}
		return out, nil, nil
	}
	out := make([]int, 0, len(data))
	for _, x := range data {
		switch {
		case math.IsNaN(x):
			out = append(out, -1)
		case x >= 1:
			out = append(out, int(x)-1)
		}
	}
	return out, nil, nil
}

// keepFactor copies the attributes that make a subset of a factor a factor again.
func keepFactor(dst value.Vector, src value.Vector) {
	if !value.IsFactor(src) {
		return
	}
	_ = value.SetAttr(dst, value.AttrLevels, value.GetAttr(src, value.AttrLevels))
	_ = value.SetAttr(dst, value.AttrClass, value.GetAttr(src, value.AttrClass))
}

// subset implements x[...].
func subset(x value.Value, idx []value.Value, drop bool) (value.Value, error) {
	if value.IsNull(x) {
		return value.Null, nil
	}
	vec, ok := x.(value.Vector)
	if !ok {
		if pl, isPairlist := x.(*value.Pairlist); isPairlist {
			return subset(pl.ToList(), idx, drop)
		}
		return nil, diagnostics.Errorf(diagnostics.ErrR007, "object of type '%s' is not subsettable", x.Kind())
	}
	switch len(idx) {
	case 0:
		return vec, nil
	case 1:
		if value.IsMissing(idx[0]) {
			return vec, nil
		}
		pos, _, err := positions(idx[0], vec.Len(), value.Names(vec), false)
		if err != nil {
			return nil, err
		}
		out := value.Subset(vec, pos)
		keepFactor(out, vec)
		return out, nil
	case 2:
		dim := value.Dim(vec)
		if dim == nil || dim.Len() != 2 {
			return nil, diagnostics.Errorf(diagnostics.ErrR011, "incorrect number of dimensions")
		}
		return matrixSubset(vec, int(dim.At(0)), int(dim.At(1)), idx[0], idx[1], drop)
	}
	return nil, diagnostics.Errorf(diagnostics.ErrR011, "incorrect number of dimensions")
}

func dimNamesAt(v value.Vector, axis int) *value.CharacterVector {
	dn, ok := value.GetAttr(v, value.AttrDimNames).(*value.List)
	if !ok || dn.Len() <= axis {
		return nil
	}
	names, _ := dn.At(axis).(*value.CharacterVector)
	return names
}

// matrixPositions resolves the row and column subscripts of a matrix.
func matrixPositions(vec value.Vector, nrow, ncol int, i, j value.Value) (rows, cols []int, err error) {
	rows, _, err = positions(i, nrow, dimNamesAt(vec, 0), false)
	if err != nil {
		return nil, nil, err
	}
	cols, _, err = positions(j, ncol, dimNamesAt(vec, 1), false)
	if err != nil {
		return nil, nil, err
	}
	for _, r := range rows {
		if r < 0 || r >= nrow {
			return nil, nil, outOfBounds()
		}
	}
	for _, c := range cols {
		if c < 0 || c >= ncol {
			return nil, nil, outOfBounds()
		}
	}
	return rows, cols, nil
}

func matrixSubset(vec value.Vector, nrow, ncol int, i, j value.Value, drop bool) (value.Value, error) {
	rows, cols, err := matrixPositions(vec, nrow, ncol, i, j)
	if err != nil {
		return nil, err
	}
	idx := make([]int, 0, len(rows)*len(cols))
	for _, c := range cols {
		for _, r := range rows {
			idx = append(idx, c*nrow+r)
		}
	}
	out := value.Subset(vec, idx)
	out.SetAttrs(nil)

	rowNames, colNames := dimNamesAt(vec, 0), dimNamesAt(vec, 1)
	pick := func(names *value.CharacterVector, at []int) value.Value {
		if names == nil {
			return value.Null
		}
		return value.Subset(names, at)
	}
	if drop && (len(rows) == 1 || len(cols) == 1) {
		switch {
		case len(rows) == 1 && len(cols) > 1 && colNames != nil:
			_ = value.SetAttr(out, value.AttrNames, pick(colNames, cols))
		case len(cols) == 1 && len(rows) > 1 && rowNames != nil:
			_ = value.SetAttr(out, value.AttrNames, pick(rowNames, rows))
		}
		return out, nil
	}
	if err := value.SetAttr(out, value.AttrDim, value.NewIntegers(int32(len(rows)), int32(len(cols)))); err != nil {
		return nil, err
	}
	if rowNames != nil || colNames != nil {
		dn := value.NewList([]value.Value{pick(rowNames, rows), pick(colNames, cols)})
		if err := value.SetAttr(out, value.AttrDimNames, dn); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// subset2 implements x[[...]]: a single element, recursively for a list subscript
// vector.
func subset2(x value.Value, idx []value.Value) (value.Value, error) {
	if env, ok := x.(*value.Environment); ok {
		if len(idx) != 1 {
			return nil, diagnostics.Errorf(diagnostics.ErrR011, "wrong arguments for subsetting an environment")
		}
		name, err := coerce.AsStringScalar(idx[0], "name")
		if err != nil {
			return nil, diagnostics.Errorf(diagnostics.ErrR011, "wrong arguments for subsetting an environment")
		}
		v, ok := env.Get(name)
		if !ok {
			return value.Null, nil
		}
		return v, nil
	}
	if value.IsNull(x) {
		return value.Null, nil
	}
	vec, ok := x.(value.Vector)
	if !ok {
		return nil, diagnostics.Errorf(diagnostics.ErrR007, "object of type '%s' is not subsettable", x.Kind())
	}
	switch len(idx) {
	case 1:
	case 2:
		dim := value.Dim(vec)
		if dim == nil || dim.Len() != 2 {
			return nil, diagnostics.Errorf(diagnostics.ErrR011, "incorrect number of subscripts")
		}
		rows, cols, err := matrixPositions(vec, int(dim.At(0)), int(dim.At(1)), idx[0], idx[1])
		if err != nil {
			return nil, err
		}
		if len(rows) != 1 || len(cols) != 1 {
			return nil, outOfBounds()
		}
		return element(vec, cols[0]*int(dim.At(0))+rows[0]), nil
	default:
		return nil, diagnostics.Errorf(diagnostics.ErrR011, "incorrect number of subscripts")
	}

	sub, ok := idx[0].(value.Vector)
	if !ok || value.IsMissing(idx[0]) {
		return nil, diagnostics.Errorf(diagnostics.ErrR011, "invalid subscript type '%s'", idx[0].Kind())
	}
	if sub.Len() == 0 {
		return nil, diagnostics.Errorf(diagnostics.ErrR011, "subscript of length 0")
	}
	if sub.Len() > 1 {
		if vec.Kind() != value.KindList {
			return nil, diagnostics.Errorf(diagnostics.ErrR011, "attempt to select more than one element in vectorIndex")
		}
		cur := value.Value(vec)
		for i := 0; i < sub.Len(); i++ {
			next, err := subset2(cur, []value.Value{sub.Elem(i)})
			if err != nil {
				return nil, err
			}
			cur = next
		}
		return cur, nil
	}

	if s, isChar := sub.(*value.CharacterVector); isChar {
		i := matchName(value.Names(vec), s.At(0), false)
		if i < 0 {
			if vec.Kind() == value.KindList {
				return value.Null, nil
			}
			return nil, outOfBounds()
		}
		return element(vec, i), nil
	}
	pos, _, err := positions(sub, vec.Len(), nil, false)
	if err != nil {
		return nil, err
	}
	if len(pos) != 1 {
		if len(pos) == 0 {
			return nil, diagnostics.Errorf(diagnostics.ErrR011, "attempt to select less than one element")
		}
		return nil, diagnostics.Errorf(diagnostics.ErrR011, "attempt to select more than one element")
	}
	if pos[0] < 0 || pos[0] >= vec.Len() {
		return nil, outOfBounds()
	}
	return element(vec, pos[0]), nil
}

// element extracts element i of vec. List elements are marked shared since the list
// keeps referencing them.
func element(vec value.Vector, i int) value.Value {
	switch l := vec.(type) {
	case *value.List:
		el := l.At(i)
		value.MarkShared(el)
		return el
	case *value.ExpressionVector:
		return l.At(i)
	}
	out := vec.Elem(i)
	keepFactor(out, vec)
	return out
}
