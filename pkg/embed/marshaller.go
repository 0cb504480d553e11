package rcore

import (
	"fmt"
	"math"
	"reflect"
	"sort"

	"github.com/funvibe/rcore/internal/value"
)

// Marshaller handles conversion between Go and interpreter values.
type Marshaller struct{}

func NewMarshaller() *Marshaller {
	return &Marshaller{}
}

var valueType = reflect.TypeOf((*value.Value)(nil)).Elem()

// ToValue converts a Go value to an interpreter value. Integers that do not fit in
// 32 bits become doubles; maps and structs become named lists.
func (m *Marshaller) ToValue(val interface{}) (value.Value, error) {
	if val == nil {
		return value.Null, nil
	}
	if v, ok := val.(value.Value); ok {
		return v, nil
	}
	v := reflect.ValueOf(val)
	if v.Kind() == reflect.Interface || v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return value.Null, nil
		}
		return m.ToValue(v.Elem().Interface())
	}

	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return intValue(v.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if v.Uint() > math.MaxInt32 {
			return value.Dbl(float64(v.Uint())), nil
		}
		return value.Int(int(v.Uint())), nil
	case reflect.Float32, reflect.Float64:
		return value.Dbl(v.Float()), nil
	case reflect.Bool:
		return value.Bool(v.Bool()), nil
	case reflect.String:
		return value.Str(v.String()), nil
	case reflect.Slice, reflect.Array:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			data := make([]byte, v.Len())
			reflect.Copy(reflect.ValueOf(data), v)
			return value.NewRaw(data), nil
		}
		return m.sliceToVector(v)
	case reflect.Map:
		return m.mapToList(v)
	case reflect.Struct:
		return m.structToList(v)
	default:
		return nil, fmt.Errorf("unsupported Go type %s", v.Type())
	}
}

func intValue(i int64) value.Value {
	if i > math.MaxInt32 || i <= math.MinInt32 {
		return value.Dbl(float64(i))
	}
	return value.Int(int(i))
}

// sliceToVector builds an atomic vector when every element converts to a scalar of
// the same kind, and a list otherwise.
func (m *Marshaller) sliceToVector(v reflect.Value) (value.Value, error) {
	elems := make([]value.Value, v.Len())
	for i := range elems {
		el, err := m.ToValue(v.Index(i).Interface())
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		elems[i] = el
	}
	if len(elems) == 0 {
		return value.NewList(nil), nil
	}
	kind := elems[0].Kind()
	for _, el := range elems {
		vec, ok := el.(value.Vector)
		if !ok || el.Kind() != kind || !kind.IsAtomic() || vec.Len() != 1 || vec.Attrs() != nil {
			return value.NewList(elems), nil
		}
	}
	out := value.NewVectorOfKind(kind, len(elems))
	for i, el := range elems {
		value.CopyElement(out, i, el.(value.Vector), 0)
	}
	return out, nil
}

func (m *Marshaller) mapToList(v reflect.Value) (value.Value, error) {
	if v.Type().Key().Kind() != reflect.String {
		return nil, fmt.Errorf("map keys must be strings, not %s", v.Type().Key())
	}
	keys := make([]string, 0, v.Len())
	for _, k := range v.MapKeys() {
		keys = append(keys, k.String())
	}
	sort.Strings(keys)
	elems := make([]value.Value, len(keys))
	for i, k := range keys {
		el, err := m.ToValue(v.MapIndex(reflect.ValueOf(k).Convert(v.Type().Key())).Interface())
		if err != nil {
			return nil, fmt.Errorf("map value %q: %w", k, err)
		}
		elems[i] = el
	}
	return named(keys, elems), nil
}

func (m *Marshaller) structToList(v reflect.Value) (value.Value, error) {
	var names []string
	var elems []value.Value
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := t.Field(i)
		if field.PkgPath != "" {
			continue
		}
		el, err := m.ToValue(v.Field(i).Interface())
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", field.Name, err)
		}
		names = append(names, field.Name)
		elems = append(elems, el)
	}
	return named(names, elems), nil
}

func named(names []string, elems []value.Value) *value.List {
	l := value.NewList(elems)
	if len(names) > 0 {
		_ = value.SetAttr(l, value.AttrNames, value.NewStrings(names...))
	}
	return l
}

// FromValue converts an interpreter value to Go. targetType is optional; when given
// the result is converted to it. Without a target, length-one atomic vectors become
// scalars (NA becomes nil), longer ones typed slices, named lists maps and other
// lists []interface{}. Functions and environments are returned unchanged.
func (m *Marshaller) FromValue(v value.Value, targetType reflect.Type) (interface{}, error) {
	if targetType != nil && targetType == valueType {
		return v, nil
	}
	if value.IsNull(v) {
		return nil, nil
	}
	if targetType != nil && (targetType.Kind() == reflect.Slice || targetType.Kind() == reflect.Array) &&
		targetType.Elem().Kind() != reflect.Uint8 {
		return m.toSlice(v, targetType)
	}
	if targetType != nil && targetType.Kind() == reflect.Map {
		return m.toMap(v, targetType)
	}

	var out interface{}
	switch x := v.(type) {
	case *value.List:
		if names := value.Names(x); names != nil && !containsEmpty(names.Data()) {
			return m.listToMap(x, names.Data())
		}
		items := make([]interface{}, x.Len())
		for i := range items {
			el, err := m.FromValue(x.At(i), nil)
			if err != nil {
				return nil, err
			}
			items[i] = el
		}
		out = items
	case *value.RawVector:
		out = append([]byte(nil), x.Data()...)
	case *value.LogicalVector:
		out = atomicOut(x.Data(), value.IsNALogical, func(l value.Logical) bool { return l == value.True })
	case *value.IntegerVector:
		out = atomicOut(x.Data(), value.IsNAInteger, func(i int32) int { return int(i) })
	case *value.DoubleVector:
		out = atomicOut(x.Data(), value.IsNADouble, func(f float64) float64 { return f })
	case *value.ComplexVector:
		out = atomicOut(x.Data(), value.IsNAComplex, func(c complex128) complex128 { return c })
	case *value.CharacterVector:
		out = atomicOut(x.Data(), value.IsNAString, func(s string) string { return s })
	default:
		return v, nil
	}
	if targetType == nil || out == nil {
		return out, nil
	}
	rv := reflect.ValueOf(out)
	if rv.Type().AssignableTo(targetType) {
		return out, nil
	}
	if rv.Type().ConvertibleTo(targetType) {
		return rv.Convert(targetType).Interface(), nil
	}
	return nil, fmt.Errorf("cannot convert %s to %s", v.Kind(), targetType)
}

// atomicOut returns a scalar for length one, a typed slice for a complete vector and
// []interface{} with nil for NA otherwise.
func atomicOut[T any, G any](data []T, isNA func(T) bool, conv func(T) G) interface{} {
	if len(data) == 1 {
		if isNA(data[0]) {
			return nil
		}
		return conv(data[0])
	}
	typed := make([]G, len(data))
	loose := make([]interface{}, len(data))
	complete := true
	for i, x := range data {
		if isNA(x) {
			complete = false
			continue
		}
		typed[i] = conv(x)
		loose[i] = typed[i]
	}
	if complete {
		return typed
	}
	return loose
}

func containsEmpty(xs []string) bool {
	for _, x := range xs {
		if x == "" || value.IsNAString(x) {
			return true
		}
	}
	return false
}

func (m *Marshaller) listToMap(l *value.List, names []string) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(names))
	for i, name := range names {
		el, err := m.FromValue(l.At(i), nil)
		if err != nil {
			return nil, fmt.Errorf("element %q: %w", name, err)
		}
		out[name] = el
	}
	return out, nil
}

// elements splits a vector or list into length-one values.
func elements(v value.Value) ([]value.Value, error) {
	switch x := v.(type) {
	case *value.List:
		out := make([]value.Value, x.Len())
		for i := range out {
			out[i] = x.At(i)
		}
		return out, nil
	case value.Vector:
		out := make([]value.Value, x.Len())
		for i := range out {
			out[i] = x.Elem(i)
		}
		return out, nil
	}
	return nil, fmt.Errorf("cannot convert %s to a slice", v.Kind())
}

func (m *Marshaller) toSlice(v value.Value, targetType reflect.Type) (interface{}, error) {
	elemType := targetType.Elem()
	els, err := elements(v)
	if err != nil {
		return nil, err
	}
	slice := reflect.MakeSlice(reflect.SliceOf(elemType), 0, len(els))
	for i, el := range els {
		x, err := m.FromValue(el, elemType)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		if x == nil {
			slice = reflect.Append(slice, reflect.Zero(elemType))
			continue
		}
		slice = reflect.Append(slice, reflect.ValueOf(x))
	}
	if targetType.Kind() == reflect.Array {
		arr := reflect.New(targetType).Elem()
		reflect.Copy(arr, slice)
		return arr.Interface(), nil
	}
	return slice.Interface(), nil
}

func (m *Marshaller) toMap(v value.Value, targetType reflect.Type) (interface{}, error) {
	if targetType.Key().Kind() != reflect.String {
		return nil, fmt.Errorf("map keys must be strings, not %s", targetType.Key())
	}
	names := value.Names(v)
	if names == nil {
		return nil, fmt.Errorf("cannot convert an unnamed %s to a map", v.Kind())
	}
	els, err := elements(v)
	if err != nil {
		return nil, err
	}
	out := reflect.MakeMapWithSize(targetType, len(els))
	for i, el := range els {
		x, err := m.FromValue(el, targetType.Elem())
		if err != nil {
			return nil, fmt.Errorf("element %q: %w", names.At(i), err)
		}
		xv := reflect.Zero(targetType.Elem())
		if x != nil {
			xv = reflect.ValueOf(x)
		}
		out.SetMapIndex(reflect.ValueOf(names.At(i)).Convert(targetType.Key()), xv)
	}
	return out.Interface(), nil
}
