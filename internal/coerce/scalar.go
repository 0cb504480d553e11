package coerce

import (
	"github.com/funvibe/rcore/internal/diagnostics"
	"github.com/funvibe/rcore/internal/value"
)

// AsLogicalScalar interprets v as the condition of if or while.
func AsLogicalScalar(v value.Value) (bool, error) {
	vec, ok := v.(value.Vector)
	if !ok || !vec.Kind().IsAtomic() {
		if value.IsNull(v) {
			return false, diagnostics.Errorf(diagnostics.ErrR007, "argument is of length zero")
		}
		return false, diagnostics.Errorf(diagnostics.ErrR007, "argument is not interpretable as logical")
	}
	switch {
	case vec.Len() == 0:
		return false, diagnostics.Errorf(diagnostics.ErrR007, "argument is of length zero")
	case vec.Len() > 1:
		return false, diagnostics.Errorf(diagnostics.ErrR007, "the condition has length > 1")
	}
	c, err := Cast(vec, value.KindLogical, nil)
	if err != nil {
		return false, err
	}
	l := c.(*value.LogicalVector).At(0)
	if l == value.NALogical {
		if vec.Kind() == value.KindCharacter && !vec.IsNA(0) {
			return false, diagnostics.Errorf(diagnostics.ErrR007, "argument is not interpretable as logical")
		}
		return false, diagnostics.Errorf(diagnostics.ErrR007, "missing value where TRUE/FALSE needed")
	}
	return l == value.True, nil
}

// AsLogicalFlag reads a length-1 logical argument such as inherits= or all.names=;
// anything unusable is reported against the argument name.
func AsLogicalFlag(v value.Value, arg string) (bool, error) {
	vec, ok := v.(value.Vector)
	if ok && vec.Kind().IsAtomic() && vec.Len() >= 1 {
		c, err := Cast(vec.Elem(0), value.KindLogical, nil)
		if err == nil {
			if l := c.(*value.LogicalVector).At(0); l != value.NALogical {
				return l == value.True, nil
			}
		}
	}
	return false, diagnostics.Errorf(diagnostics.ErrR007, "invalid '%s' argument", arg)
}

// AsIntegerScalar returns the first element of v as an int; NA and empty input fail.
func AsIntegerScalar(v value.Value, arg string, w diagnostics.Warner) (int, error) {
	vec, ok := v.(value.Vector)
	if !ok || !vec.Kind().IsNumeric() || vec.Len() == 0 {
		return 0, diagnostics.Errorf(diagnostics.ErrR007, "invalid '%s' argument", arg)
	}
	c, err := Cast(vec.Elem(0), value.KindInteger, w)
	if err != nil {
		return 0, err
	}
	i := c.(*value.IntegerVector).At(0)
	if i == value.NAInteger {
		return 0, diagnostics.Errorf(diagnostics.ErrR007, "invalid '%s' argument", arg)
	}
	return int(i), nil
}

// AsDoubleScalar returns the first element of v as a float64; NA is passed through.
func AsDoubleScalar(v value.Value, arg string, w diagnostics.Warner) (float64, error) {
	vec, ok := v.(value.Vector)
	if !ok || !vec.Kind().IsNumeric() || vec.Len() == 0 {
		return 0, diagnostics.Errorf(diagnostics.ErrR007, "invalid '%s' argument", arg)
	}
	c, err := Cast(vec.Elem(0), value.KindDouble, w)
	if err != nil {
		return 0, err
	}
	return c.(*value.DoubleVector).At(0), nil
}

// AsStringScalar returns a non-NA length-1 character argument.
func AsStringScalar(v value.Value, arg string) (string, error) {
	if s, ok := v.(*value.CharacterVector); ok && s.Len() >= 1 && !s.IsNA(0) {
		return s.At(0), nil
	}
	if sym, ok := v.(*value.Symbol); ok {
		return sym.Name, nil
	}
	return "", diagnostics.Errorf(diagnostics.ErrR007, "invalid '%s' argument", arg)
}

// AsStrings casts any atomic vector to its character representation.
func AsStrings(v value.Value) ([]string, error) {
	if value.IsNull(v) {
		return nil, nil
	}
	vec, err := CastToVector(v)
	if err != nil {
		return nil, err
	}
	c, err := Cast(vec, value.KindCharacter, nil)
	if err != nil {
		return nil, err
	}
	return c.(*value.CharacterVector).Data(), nil
}
