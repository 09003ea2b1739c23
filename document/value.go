package document

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// Kind identifies the concrete type stored in a Value.
type Kind uint8

const (
	// KindNull represents a null value. It is the zero Kind.
	KindNull Kind = iota
	// KindInt represents an integer value.
	KindInt
	// KindFloat represents a float value.
	KindFloat
	// KindString represents a string value.
	KindString
	// KindBool represents a boolean value.
	KindBool
	// KindArray represents an array value.
	KindArray
	// KindObject represents a nested object value.
	KindObject
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "invalid"
	}
}

// Value is a typed attribute value.
//
// The zero Value is null. Values held by a collection are treated as
// immutable; use Clone before mutating arrays or objects.
type Value struct {
	Kind Kind
	I64  int64
	F64  float64
	S    string
	B    bool
	A    []Value
	O    Record
}

// Null returns a null Value.
func Null() Value { return Value{Kind: KindNull} }

// Int returns an int64 Value.
func Int(v int64) Value { return Value{Kind: KindInt, I64: v} }

// Float returns a float64 Value.
func Float(v float64) Value { return Value{Kind: KindFloat, F64: v} }

// String returns a string Value.
func String(v string) Value { return Value{Kind: KindString, S: v} }

// Bool returns a boolean Value.
func Bool(v bool) Value { return Value{Kind: KindBool, B: v} }

// Array returns an array Value.
func Array(v []Value) Value {
	if v == nil {
		v = []Value{}
	}
	return Value{Kind: KindArray, A: v}
}

// Object returns a nested object Value.
func Object(v Record) Value {
	if v == nil {
		v = Record{}
	}
	return Value{Kind: KindObject, O: v}
}

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.Kind == KindNull }

// IsNumeric reports whether v is an int or a float.
func (v Value) IsNumeric() bool { return v.Kind == KindInt || v.Kind == KindFloat }

// IsEmptyArray reports whether v is an array without elements.
func (v Value) IsEmptyArray() bool { return v.Kind == KindArray && len(v.A) == 0 }

// AsInt64 returns the int64 value if Kind is KindInt.
func (v Value) AsInt64() (int64, bool) {
	if v.Kind != KindInt {
		return 0, false
	}
	return v.I64, true
}

// AsFloat64 returns the numeric value as float64 for ints and floats.
func (v Value) AsFloat64() (float64, bool) {
	switch v.Kind {
	case KindInt:
		return float64(v.I64), true
	case KindFloat:
		return v.F64, true
	default:
		return 0, false
	}
}

// AsString returns the string value if Kind is KindString.
func (v Value) AsString() (string, bool) {
	if v.Kind != KindString {
		return "", false
	}
	return v.S, true
}

// AsBool returns the boolean value if Kind is KindBool.
func (v Value) AsBool() (bool, bool) {
	if v.Kind != KindBool {
		return false, false
	}
	return v.B, true
}

// AsArray returns the array value if Kind is KindArray.
func (v Value) AsArray() ([]Value, bool) {
	if v.Kind != KindArray {
		return nil, false
	}
	return v.A, true
}

// AsObject returns the object value if Kind is KindObject.
func (v Value) AsObject() (Record, bool) {
	if v.Kind != KindObject {
		return nil, false
	}
	return v.O, true
}

// Clone returns a deep copy of v.
func (v Value) Clone() Value {
	switch v.Kind {
	case KindArray:
		arr := make([]Value, len(v.A))
		for i := range v.A {
			arr[i] = v.A[i].Clone()
		}
		return Value{Kind: KindArray, A: arr}
	case KindObject:
		return Value{Kind: KindObject, O: v.O.Clone()}
	default:
		return v
	}
}

// Key returns a stable string representation for use as a map key.
//
// Values that are Equal produce the same key, so an integral float and the
// matching int share a key.
func (v Value) Key() string {
	return string(v.appendKey(nil))
}

// appendKey writes a self-delimiting encoding of v: strings and object field
// names are length-prefixed and every other form has a terminator, so no key
// is a prefix of another and concatenated keys stay unambiguous.
func (v Value) appendKey(dst []byte) []byte {
	switch v.Kind {
	case KindNull:
		return append(dst, "z;"...)
	case KindInt:
		dst = append(dst, "n:"...)
		dst = strconv.AppendInt(dst, v.I64, 10)
		return append(dst, ';')
	case KindFloat:
		dst = append(dst, "n:"...)
		if i, ok := integral(v.F64); ok {
			dst = strconv.AppendInt(dst, i, 10)
		} else {
			dst = strconv.AppendFloat(dst, v.F64, 'g', -1, 64)
		}
		return append(dst, ';')
	case KindString:
		return appendLenPrefixed(append(dst, 's'), v.S)
	case KindBool:
		if v.B {
			return append(dst, "b:1;"...)
		}
		return append(dst, "b:0;"...)
	case KindArray:
		dst = append(dst, 'a')
		dst = strconv.AppendInt(dst, int64(len(v.A)), 10)
		dst = append(dst, '[')
		for i := range v.A {
			dst = v.A[i].appendKey(dst)
		}
		return append(dst, ']')
	case KindObject:
		keys := v.O.Keys()
		dst = append(dst, 'o')
		dst = strconv.AppendInt(dst, int64(len(keys)), 10)
		dst = append(dst, '{')
		for _, k := range keys {
			dst = appendLenPrefixed(dst, k)
			dst = v.O[k].appendKey(dst)
		}
		return append(dst, '}')
	default:
		return append(dst, "invalid;"...)
	}
}

func appendLenPrefixed(dst []byte, s string) []byte {
	dst = strconv.AppendInt(dst, int64(len(s)), 10)
	dst = append(dst, ':')
	return append(dst, s...)
}

// String returns a human readable form of v, used in error messages.
func (v Value) String() string {
	switch v.Kind {
	case KindNull:
		return "null"
	case KindInt:
		return strconv.FormatInt(v.I64, 10)
	case KindFloat:
		return strconv.FormatFloat(v.F64, 'g', -1, 64)
	case KindString:
		return strconv.Quote(v.S)
	case KindBool:
		return strconv.FormatBool(v.B)
	case KindArray:
		parts := make([]string, len(v.A))
		for i := range v.A {
			parts[i] = v.A[i].String()
		}
		return "[" + strings.Join(parts, ",") + "]"
	case KindObject:
		keys := v.O.Keys()
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = strconv.Quote(k) + ":" + v.O[k].String()
		}
		return "{" + strings.Join(parts, ",") + "}"
	default:
		return "invalid"
	}
}

// Interface converts v into plain Go data (nil, int64, float64, string,
// bool, []any, map[string]any).
func (v Value) Interface() any {
	switch v.Kind {
	case KindInt:
		return v.I64
	case KindFloat:
		return v.F64
	case KindString:
		return v.S
	case KindBool:
		return v.B
	case KindArray:
		out := make([]any, len(v.A))
		for i := range v.A {
			out[i] = v.A[i].Interface()
		}
		return out
	case KindObject:
		return v.O.Map()
	default:
		return nil
	}
}

// integral reports whether f holds an exact int64.
func integral(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

// Record is a single stored document.
type Record map[string]Value

// Clone creates a deep copy of the record.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	clone := make(Record, len(r))
	for k, v := range r {
		clone[k] = v.Clone()
	}
	return clone
}

// Merge returns a copy of r with every field of changes written over it.
// Fields absent from changes keep their previous value.
func (r Record) Merge(changes Record) Record {
	merged := make(Record, len(r)+len(changes))
	for k, v := range r {
		merged[k] = v.Clone()
	}
	for k, v := range changes {
		merged[k] = v.Clone()
	}
	return merged
}

// Project returns a copy containing only the given fields. Fields missing
// from r are omitted.
func (r Record) Project(fields []string) Record {
	out := make(Record, len(fields))
	for _, f := range fields {
		if v, ok := r[f]; ok {
			out[f] = v.Clone()
		}
	}
	return out
}

// Keys returns the field names of r in sorted order.
func (r Record) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Map converts the record into a plain map[string]any.
func (r Record) Map() map[string]any {
	out := make(map[string]any, len(r))
	for k, v := range r {
		out[k] = v.Interface()
	}
	return out
}
