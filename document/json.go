package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MarshalJSON implements json.Marshaler.
//
// Values encode as plain JSON. Integral floats keep a trailing ".0" so that
// they decode back into floats.
func (v Value) MarshalJSON() ([]byte, error) {
	return appendJSON(nil, v)
}

// UnmarshalJSON implements json.Unmarshaler.
//
// Numbers without a fraction or exponent decode into ints, all other numbers
// into floats.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	decoded, err := FromAny(raw)
	if err != nil {
		return err
	}
	*v = decoded
	return nil
}

func appendJSON(dst []byte, v Value) ([]byte, error) {
	switch v.Kind {
	case KindNull:
		return append(dst, "null"...), nil
	case KindInt:
		return strconv.AppendInt(dst, v.I64, 10), nil
	case KindFloat:
		if math.IsNaN(v.F64) || math.IsInf(v.F64, 0) {
			return nil, fmt.Errorf("document: unsupported float value %v", v.F64)
		}
		s := strconv.FormatFloat(v.F64, 'g', -1, 64)
		dst = append(dst, s...)
		if !strings.ContainsAny(s, ".eE") {
			dst = append(dst, ".0"...)
		}
		return dst, nil
	case KindString:
		return appendString(dst, v.S)
	case KindBool:
		return strconv.AppendBool(dst, v.B), nil
	case KindArray:
		dst = append(dst, '[')
		for i := range v.A {
			if i > 0 {
				dst = append(dst, ',')
			}
			var err error
			if dst, err = appendJSON(dst, v.A[i]); err != nil {
				return nil, err
			}
		}
		return append(dst, ']'), nil
	case KindObject:
		dst = append(dst, '{')
		for i, k := range v.O.Keys() {
			if i > 0 {
				dst = append(dst, ',')
			}
			var err error
			if dst, err = appendString(dst, k); err != nil {
				return nil, err
			}
			dst = append(dst, ':')
			if dst, err = appendJSON(dst, v.O[k]); err != nil {
				return nil, err
			}
		}
		return append(dst, '}'), nil
	default:
		return nil, fmt.Errorf("document: invalid kind %d", v.Kind)
	}
}

func appendString(dst []byte, s string) ([]byte, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return append(dst, b...), nil
}
