// Package serialize encodes values as versioned protobuf wire messages. Only NULL,
// atomic vectors and lists (with attributes) can be encoded; functions, environments
// and language objects are rejected.
//
// Layout (field numbers):
//
//	Envelope  1 version (varint)   2 value (Value)
//	Value     1 kind   2 length   3 logical bytes   4 packed fixed32 integers
//	          5 packed fixed64 doubles (complex: re, im pairs)
//	          6 string element (repeated)   7 NA string index (repeated varint)
//	          8 raw bytes   9 list element (repeated Value)
//	          10 attribute (repeated Attribute)   11 complete flag
//	Attribute 1 name   2 value (Value)
package serialize

import (
	"encoding/binary"
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/funvibe/rcore/internal/diagnostics"
	"github.com/funvibe/rcore/internal/value"
)

// Version is the current format version; Unmarshal rejects newer ones.
const Version = 1

const (
	fieldVersion protowire.Number = 1
	fieldValue   protowire.Number = 2
)

const (
	fieldKind protowire.Number = iota + 1
	fieldLength
	fieldLogical
	fieldInteger
	fieldDouble
	fieldString
	fieldNAIndex
	fieldRaw
	fieldElement
	fieldAttribute
	fieldComplete
)

const (
	fieldAttrName  protowire.Number = 1
	fieldAttrValue protowire.Number = 2
)

// Marshal encodes v.
func Marshal(v value.Value) ([]byte, error) {
	body, err := appendValue(nil, v)
	if err != nil {
		return nil, err
	}
	b := protowire.AppendTag(nil, fieldVersion, protowire.VarintType)
	b = protowire.AppendVarint(b, Version)
	b = protowire.AppendTag(b, fieldValue, protowire.BytesType)
	return protowire.AppendBytes(b, body), nil
}

func unsupported(k value.Kind) error {
	return diagnostics.Errorf(diagnostics.ErrR007, "cannot serialize values of type '%s'", k)
}

func appendValue(b []byte, v value.Value) ([]byte, error) {
	if value.IsNull(v) {
		b = protowire.AppendTag(b, fieldKind, protowire.VarintType)
		return protowire.AppendVarint(b, uint64(value.KindNull)), nil
	}
	vec, ok := v.(value.Vector)
	if !ok || vec.Kind() == value.KindExpression {
		return nil, unsupported(v.Kind())
	}
	b = protowire.AppendTag(b, fieldKind, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(vec.Kind()))
	b = protowire.AppendTag(b, fieldLength, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(vec.Len()))

	var err error
	switch x := vec.(type) {
	case *value.LogicalVector:
		raw := make([]byte, x.Len())
		for i, l := range x.Data() {
			raw[i] = byte(l)
		}
		b = appendBytesField(b, fieldLogical, raw)
	case *value.IntegerVector:
		raw := make([]byte, 0, 4*x.Len())
		for _, i := range x.Data() {
			raw = binary.LittleEndian.AppendUint32(raw, uint32(i))
		}
		b = appendBytesField(b, fieldInteger, raw)
	case *value.DoubleVector:
		b = appendBytesField(b, fieldDouble, packDoubles(x.Data()))
	case *value.ComplexVector:
		parts := make([]float64, 0, 2*x.Len())
		for _, c := range x.Data() {
			parts = append(parts, real(c), imag(c))
		}
		b = appendBytesField(b, fieldDouble, packDoubles(parts))
	case *value.CharacterVector:
		for i, s := range x.Data() {
			if x.IsNA(i) {
				b = protowire.AppendTag(b, fieldNAIndex, protowire.VarintType)
				b = protowire.AppendVarint(b, uint64(i))
				s = ""
			}
			b = appendBytesField(b, fieldString, []byte(s))
		}
	case *value.RawVector:
		b = appendBytesField(b, fieldRaw, x.Data())
	case *value.List:
		for _, e := range x.Data() {
			var elem []byte
			if elem, err = appendValue(nil, e); err != nil {
				return nil, err
			}
			b = appendBytesField(b, fieldElement, elem)
		}
	default:
		return nil, unsupported(vec.Kind())
	}

	for _, a := range vec.Attrs().Items() {
		var attr []byte
		attr = protowire.AppendTag(attr, fieldAttrName, protowire.BytesType)
		attr = protowire.AppendString(attr, a.Name)
		var av []byte
		if av, err = appendValue(nil, a.Value); err != nil {
			return nil, fmt.Errorf("attribute %q: %w", a.Name, err)
		}
		attr = appendBytesField(attr, fieldAttrValue, av)
		b = appendBytesField(b, fieldAttribute, attr)
	}
	if vec.IsComplete() {
		b = protowire.AppendTag(b, fieldComplete, protowire.VarintType)
		b = protowire.AppendVarint(b, 1)
	}
	return b, nil
}

func appendBytesField(b []byte, num protowire.Number, data []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, data)
}

// packDoubles keeps the exact bit pattern so NA and NaN survive.
func packDoubles(xs []float64) []byte {
	raw := make([]byte, 0, 8*len(xs))
	for _, x := range xs {
		raw = binary.LittleEndian.AppendUint64(raw, math.Float64bits(x))
	}
	return raw
}

func unpackDoubles(raw []byte) ([]float64, error) {
	if len(raw)%8 != 0 {
		return nil, corrupt("double payload of %d bytes", len(raw))
	}
	out := make([]float64, len(raw)/8)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw[8*i:]))
	}
	return out, nil
}

func corrupt(format string, args ...interface{}) error {
	return diagnostics.Errorf(diagnostics.ErrR001, "corrupt serialized value: "+format, args...)
}

// Unmarshal decodes data produced by Marshal. The result is a fresh, unshared value.
func Unmarshal(data []byte) (value.Value, error) {
	var version uint64
	var body []byte
	haveBody := false
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, corrupt("%v", protowire.ParseError(n))
		}
		data = data[n:]
		switch {
		case num == fieldVersion && typ == protowire.VarintType:
			version, n = protowire.ConsumeVarint(data)
		case num == fieldValue && typ == protowire.BytesType:
			body, n = protowire.ConsumeBytes(data)
			haveBody = true
		default:
			n = protowire.ConsumeFieldValue(num, typ, data)
		}
		if n < 0 {
			return nil, corrupt("%v", protowire.ParseError(n))
		}
		data = data[n:]
	}
	if version == 0 || version > Version {
		return nil, corrupt("unsupported format version %d", version)
	}
	if !haveBody {
		return nil, corrupt("missing value")
	}
	return decodeValue(body)
}

type attrField struct {
	name  string
	value value.Value
}

type fields struct {
	kind     value.Kind
	length   int
	logical  []byte
	integer  []byte
	double   []byte
	strs     []string
	na       []int
	raw      []byte
	elems    []value.Value
	attrs    []attrField
	complete bool
}

func decodeValue(data []byte) (value.Value, error) {
	f := fields{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, corrupt("%v", protowire.ParseError(n))
		}
		data = data[n:]
		if typ == protowire.VarintType {
			var x uint64
			if x, n = protowire.ConsumeVarint(data); n < 0 {
				return nil, corrupt("%v", protowire.ParseError(n))
			}
			data = data[n:]
			switch num {
			case fieldKind:
				f.kind = value.Kind(x)
			case fieldLength:
				f.length = int(x)
			case fieldNAIndex:
				f.na = append(f.na, int(x))
			case fieldComplete:
				f.complete = x != 0
			}
			continue
		}
		if typ != protowire.BytesType {
			if n = protowire.ConsumeFieldValue(num, typ, data); n < 0 {
				return nil, corrupt("%v", protowire.ParseError(n))
			}
			data = data[n:]
			continue
		}
		var payload []byte
		if payload, n = protowire.ConsumeBytes(data); n < 0 {
			return nil, corrupt("%v", protowire.ParseError(n))
		}
		data = data[n:]
		switch num {
		case fieldLogical:
			f.logical = payload
		case fieldInteger:
			f.integer = payload
		case fieldDouble:
			f.double = payload
		case fieldString:
			f.strs = append(f.strs, string(payload))
		case fieldRaw:
			f.raw = append([]byte(nil), payload...)
		case fieldElement:
			e, err := decodeValue(payload)
			if err != nil {
				return nil, err
			}
			f.elems = append(f.elems, e)
		case fieldAttribute:
			a, err := decodeAttribute(payload)
			if err != nil {
				return nil, err
			}
			f.attrs = append(f.attrs, a)
		}
	}
	return f.build()
}

func decodeAttribute(data []byte) (attrField, error) {
	var a attrField
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 || typ != protowire.BytesType {
			return a, corrupt("bad attribute")
		}
		data = data[n:]
		payload, n := protowire.ConsumeBytes(data)
		if n < 0 {
			return a, corrupt("%v", protowire.ParseError(n))
		}
		data = data[n:]
		switch num {
		case fieldAttrName:
			a.name = string(payload)
		case fieldAttrValue:
			v, err := decodeValue(payload)
			if err != nil {
				return a, err
			}
			a.value = v
		}
	}
	if a.name == "" || a.value == nil {
		return a, corrupt("incomplete attribute")
	}
	return a, nil
}

func (f *fields) build() (value.Value, error) {
	var vec value.Vector
	switch f.kind {
	case value.KindNull:
		return value.Null, nil
	case value.KindLogical:
		if len(f.logical) != f.length {
			return nil, corrupt("logical length %d, want %d", len(f.logical), f.length)
		}
		data := make([]value.Logical, f.length)
		for i, b := range f.logical {
			if b > byte(value.NALogical) {
				return nil, corrupt("logical value %d", b)
			}
			data[i] = value.Logical(b)
		}
		vec = value.NewLogicals(data...)
	case value.KindInteger:
		if len(f.integer) != 4*f.length {
			return nil, corrupt("integer payload of %d bytes, want %d", len(f.integer), 4*f.length)
		}
		data := make([]int32, f.length)
		for i := range data {
			data[i] = int32(binary.LittleEndian.Uint32(f.integer[4*i:]))
		}
		vec = value.NewIntegers(data...)
	case value.KindDouble:
		data, err := unpackDoubles(f.double)
		if err != nil {
			return nil, err
		}
		if len(data) != f.length {
			return nil, corrupt("double length %d, want %d", len(data), f.length)
		}
		vec = value.NewDoubles(data...)
	case value.KindComplex:
		parts, err := unpackDoubles(f.double)
		if err != nil {
			return nil, err
		}
		if len(parts) != 2*f.length {
			return nil, corrupt("complex length %d, want %d", len(parts)/2, f.length)
		}
		data := make([]complex128, f.length)
		for i := range data {
			data[i] = complex(parts[2*i], parts[2*i+1])
		}
		vec = value.NewComplexes(data...)
	case value.KindCharacter:
		if len(f.strs) != f.length {
			return nil, corrupt("character length %d, want %d", len(f.strs), f.length)
		}
		for _, i := range f.na {
			if i < 0 || i >= f.length {
				return nil, corrupt("NA index %d out of range", i)
			}
			f.strs[i] = value.NAString
		}
		vec = value.NewStrings(f.strs...)
	case value.KindRaw:
		if len(f.raw) != f.length {
			return nil, corrupt("raw length %d, want %d", len(f.raw), f.length)
		}
		vec = value.NewRaw(f.raw)
	case value.KindList:
		if len(f.elems) != f.length {
			return nil, corrupt("list length %d, want %d", len(f.elems), f.length)
		}
		vec = value.NewList(f.elems)
	default:
		return nil, corrupt("unknown kind %d", f.kind)
	}
	if f.complete && vec.Kind().IsAtomic() && !vec.IsComplete() {
		return nil, corrupt("%s vector marked complete contains NA", vec.Kind())
	}
	for _, a := range f.attrs {
		if err := value.SetAttr(vec, a.name, a.value); err != nil {
			return nil, fmt.Errorf("attribute %q: %w", a.name, err)
		}
	}
	return vec, nil
}
