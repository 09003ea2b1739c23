package schema

import "github.com/hupe1980/diskstore/document"

// Type is the declared type of an attribute.
type Type string

// Attribute types understood by CheckRecord. Empty and unrecognized types
// accept any value.
const (
	TypeAny     Type = ""
	TypeString  Type = "string"
	TypeText    Type = "text"
	TypeNumber  Type = "number"
	TypeInteger Type = "integer"
	TypeFloat   Type = "float"
	TypeBoolean Type = "boolean"
	TypeArray   Type = "array"
	TypeJSON    Type = "json"
	TypeRef     Type = "ref"
)

// Accepts reports whether v may be stored in an attribute of type t.
func (t Type) Accepts(v document.Value) bool {
	if v.Kind == document.KindNull {
		return true
	}
	switch t {
	case TypeString, TypeText:
		return v.Kind == document.KindString
	case TypeNumber, TypeFloat:
		return v.IsNumeric()
	case TypeInteger:
		if v.Kind == document.KindInt {
			return true
		}
		f, ok := v.AsFloat64()
		return ok && f == float64(int64(f))
	case TypeBoolean:
		return v.Kind == document.KindBool
	case TypeArray:
		return v.Kind == document.KindArray
	default:
		return true
	}
}
