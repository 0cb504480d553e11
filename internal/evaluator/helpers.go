package evaluator

import (
	"github.com/funvibe/rcore/internal/coerce"
	"github.com/funvibe/rcore/internal/diagnostics"
	"github.com/funvibe/rcore/internal/prettyprinter"
	"github.com/funvibe/rcore/internal/value"
)

// factorLabels returns the level label of every code of factor f.
func factorLabels(f *value.IntegerVector) (*value.CharacterVector, error) {
	levels, ok := value.GetAttr(f, value.AttrLevels).(*value.CharacterVector)
	if !ok {
		return nil, diagnostics.Errorf(diagnostics.ErrR007, "malformed factor")
	}
	out := make([]string, f.Len())
	complete := true
	for i, c := range f.Data() {
		if c == value.NAInteger || int(c) > levels.Len() || c < 1 {
			out[i] = value.NAString
			complete = false
			continue
		}
		out[i] = levels.At(int(c) - 1)
		if out[i] == value.NAString {
			complete = false
		}
	}
	labels := value.NewCharacter(out, complete)
	if names := value.Names(f); names != nil {
		_ = value.SetAttr(labels, value.AttrNames, names)
	}
	return labels, nil
}

// deparseValue renders v as source text. Unforced promises show their expression.
func deparseValue(v value.Value) string {
	if p, ok := v.(*value.Promise); ok {
		if p.Expr != nil {
			return p.Expr.String()
		}
		return prettyprinter.Deparse(p.Value())
	}
	return prettyprinter.Deparse(v)
}

// argOr returns v, or def when the argument was not supplied.
func argOr(v value.Value, def value.Value) value.Value {
	if v == nil || value.IsMissing(v) {
		return def
	}
	return v
}

// supplied reports whether a matched argument was given.
func supplied(v value.Value) bool {
	return v != nil && !value.IsMissing(v)
}

// requireArg fails with the usual message when argument name was not supplied.
func requireArg(v value.Value, name string) error {
	if !supplied(v) {
		return diagnostics.Errorf(diagnostics.ErrR009, "argument \"%s\" is missing, with no default", name)
	}
	return nil
}

// flagArg reads an optional logical flag.
func flagArg(v value.Value, name string, def bool) (bool, error) {
	if !supplied(v) {
		return def, nil
	}
	return coerce.AsLogicalFlag(v, name)
}

// atomicArg returns v as an atomic vector; factors are returned as their labels
// when labels is set.
func atomicArg(v value.Value, name string, labels bool) (value.Vector, error) {
	if value.IsNull(v) {
		return value.NewLogical(nil, true), nil
	}
	vec, ok := v.(value.Vector)
	if !ok || !vec.Kind().IsAtomic() {
		return nil, diagnostics.Errorf(diagnostics.ErrR007, "invalid '%s' argument", name)
	}
	if labels && value.IsFactor(vec) {
		return factorLabels(vec.(*value.IntegerVector))
	}
	return vec, nil
}

// doublesOf casts an atomic argument to doubles for numeric builtins. Character
// input is rejected.
func doublesOf(v value.Value, fname string, w diagnostics.Warner) ([]float64, error) {
	if value.IsNull(v) {
		return nil, nil
	}
	vec, ok := v.(value.Vector)
	if !ok || !vec.Kind().IsNumeric() || value.IsFactor(vec) {
		kind := v.Kind().String()
		if value.IsFactor(v) {
			kind = "factor"
		}
		return nil, diagnostics.Errorf(diagnostics.ErrR007, "invalid 'type' (%s) of argument to %s", kind, fname)
	}
	d, err := coerce.Cast(vec, value.KindDouble, w)
	if err != nil {
		return nil, err
	}
	return d.(*value.DoubleVector).Data(), nil
}

// stripped returns v without attributes, copying when v has any.
func stripped(v value.Vector) value.Vector {
	if v.Attrs().Len() == 0 {
		return v
	}
	c := v.Copy()
	c.SetAttrs(nil)
	return c
}

// namedList builds a list with names.
func namedList(names []string, elems []value.Value) *value.List {
	l := value.NewList(elems)
	for _, el := range elems {
		value.MarkShared(el)
	}
	_ = value.SetAttr(l, value.AttrNames, value.NewStrings(names...))
	return l
}

// ownedCopy returns v when it is a temporary and a copy otherwise. Replacement
// functions called directly must not change the caller's value.
func ownedCopy(v value.Vector) value.Vector {
	if value.IsTemporary(v) {
		return v
	}
	return v.Copy()
}
