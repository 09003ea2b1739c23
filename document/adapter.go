package document

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FromAny converts a Go value into a typed Value.
//
// This exists as an adapter layer for user input and decoded JSON.
func FromAny(v any) (Value, error) {
	switch x := v.(type) {
	case nil:
		return Null(), nil
	case Value:
		return x, nil
	case Record:
		return Object(x), nil
	case bool:
		return Bool(x), nil
	case string:
		return String(x), nil
	case float64:
		return Float(x), nil
	case float32:
		return Float(float64(x)), nil
	case int:
		return Int(int64(x)), nil
	case int8:
		return Int(int64(x)), nil
	case int16:
		return Int(int64(x)), nil
	case int32:
		return Int(int64(x)), nil
	case int64:
		return Int(x), nil
	case uint:
		return fromUint(uint64(x))
	case uint8:
		return Int(int64(x)), nil
	case uint16:
		return Int(int64(x)), nil
	case uint32:
		return Int(int64(x)), nil
	case uint64:
		return fromUint(x)
	case json.Number:
		return fromNumber(string(x))
	case []Value:
		return Array(x), nil
	case []any:
		arr := make([]Value, len(x))
		for i := range x {
			vv, err := FromAny(x[i])
			if err != nil {
				return Value{}, err
			}
			arr[i] = vv
		}
		return Array(arr), nil
	case []string:
		arr := make([]Value, len(x))
		for i := range x {
			arr[i] = String(x[i])
		}
		return Array(arr), nil
	case []int:
		arr := make([]Value, len(x))
		for i := range x {
			arr[i] = Int(int64(x[i]))
		}
		return Array(arr), nil
	case []int64:
		arr := make([]Value, len(x))
		for i := range x {
			arr[i] = Int(x[i])
		}
		return Array(arr), nil
	case []float64:
		arr := make([]Value, len(x))
		for i := range x {
			arr[i] = Float(x[i])
		}
		return Array(arr), nil
	case map[string]any:
		r, err := RecordFromMap(x)
		if err != nil {
			return Value{}, err
		}
		return Object(r), nil
	case map[string]Value:
		return Object(Record(x)), nil
	default:
		return Value{}, fmt.Errorf("document: unsupported value type %T", v)
	}
}

// RecordFromMap converts a plain map[string]any into a typed Record.
func RecordFromMap(m map[string]any) (Record, error) {
	r := make(Record, len(m))
	for k, v := range m {
		vv, err := FromAny(v)
		if err != nil {
			return nil, fmt.Errorf("document: field %q: %w", k, err)
		}
		r[k] = vv
	}
	return r, nil
}

// MustRecord is like RecordFromMap but panics on error. Intended for tests and
// literals.
func MustRecord(m map[string]any) Record {
	r, err := RecordFromMap(m)
	if err != nil {
		panic(err)
	}
	return r
}

func fromUint(x uint64) (Value, error) {
	if x > math.MaxInt64 {
		return Value{}, fmt.Errorf("document: uint64 out of range: %d", x)
	}
	return Int(int64(x)), nil
}

// fromNumber parses a JSON number literal. Literals without a fraction or
// exponent that fit into int64 become ints.
func fromNumber(s string) (Value, error) {
	if !strings.ContainsAny(s, ".eE") {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return Int(i), nil
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Value{}, fmt.Errorf("document: invalid number %q: %w", s, err)
	}
	return Float(f), nil
}
