package evaluator

import (
	"github.com/funvibe/rcore/internal/diagnostics"
	"github.com/funvibe/rcore/internal/serialize"
	"github.com/funvibe/rcore/internal/value"
)

// BytesBuiltins returns the raw vector conversions and the value serializer.
func BytesBuiltins() map[string]*Builtin {
	return map[string]*Builtin{
		"serialize":   {Fn: builtinSerialize},
		"unserialize": {Fn: builtinUnserialize},
		"charToRaw":   {Fn: builtinCharToRaw},
		"rawToChar":   {Fn: builtinRawToChar},
	}
}

func builtinSerialize(e *Evaluator, args *Args) (value.Value, error) {
	m, _, err := args.Match("object", "connection")
	if err != nil {
		return nil, err
	}
	if err := requireArg(m[0], "object"); err != nil {
		return nil, err
	}
	if supplied(m[1]) && !value.IsNull(m[1]) {
		return nil, diagnostics.Errorf(diagnostics.ErrR001, "only serialization to a raw vector is supported")
	}
	data, err := serialize.Marshal(m[0])
	if err != nil {
		return nil, diagnostics.Errorf(diagnostics.ErrR007, "%v", err)
	}
	return value.NewRaw(data), nil
}

func builtinUnserialize(e *Evaluator, args *Args) (value.Value, error) {
	x, err := firstArg(args, "connection")
	if err != nil {
		return nil, err
	}
	raw, ok := x.(*value.RawVector)
	if !ok {
		return nil, diagnostics.Errorf(diagnostics.ErrR007, "'connection' must be a raw vector")
	}
	v, err := serialize.Unmarshal(raw.Data())
	if err != nil {
		return nil, diagnostics.Errorf(diagnostics.ErrR001, "%v", err)
	}
	return v, nil
}

func builtinCharToRaw(e *Evaluator, args *Args) (value.Value, error) {
	x, err := firstArg(args, "x")
	if err != nil {
		return nil, err
	}
	s, ok := x.(*value.CharacterVector)
	if !ok {
		return nil, diagnostics.Errorf(diagnostics.ErrR007, "argument must be a character vector of length 1")
	}
	if s.Len() == 0 || s.IsNA(0) {
		return value.NewRaw(nil), nil
	}
	if s.Len() > 1 {
		e.warnerAt(args.Call).Warn(diagnostics.NewWarning(diagnostics.WarnW006, "argument should be a character vector of length 1\nall but the first element will be ignored"))
	}
	return value.NewRaw([]byte(s.At(0))), nil
}

func builtinRawToChar(e *Evaluator, args *Args) (value.Value, error) {
	x, err := firstArg(args, "x")
	if err != nil {
		return nil, err
	}
	raw, ok := x.(*value.RawVector)
	if !ok {
		return nil, diagnostics.Errorf(diagnostics.ErrR007, "argument 'x' must be a raw vector")
	}
	for _, b := range raw.Data() {
		if b == 0 {
			return nil, diagnostics.Errorf(diagnostics.ErrR001, "embedded nul in string")
		}
	}
	return value.Str(string(raw.Data())), nil
}
