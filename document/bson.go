package document

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"
)

// MarshalBSONValue implements bson.ValueMarshaler.
func (v Value) MarshalBSONValue() (bsontype.Type, []byte, error) {
	switch v.Kind {
	case KindNull:
		return bsontype.Null, nil, nil
	case KindInt:
		return bsontype.Int64, bsoncore.AppendInt64(nil, v.I64), nil
	case KindFloat:
		return bsontype.Double, bsoncore.AppendDouble(nil, v.F64), nil
	case KindString:
		return bsontype.String, bsoncore.AppendString(nil, v.S), nil
	case KindBool:
		return bsontype.Boolean, bsoncore.AppendBoolean(nil, v.B), nil
	default:
		return bson.MarshalValue(v.Interface())
	}
}

// UnmarshalBSONValue implements bson.ValueUnmarshaler.
func (v *Value) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	decoded, err := fromRawValue(bson.RawValue{Type: t, Value: data})
	if err != nil {
		return err
	}
	*v = decoded
	return nil
}

func fromRawValue(rv bson.RawValue) (Value, error) {
	switch rv.Type {
	case bsontype.Null, bsontype.Undefined:
		return Null(), nil
	case bsontype.Int32:
		return Int(int64(rv.Int32())), nil
	case bsontype.Int64:
		return Int(rv.Int64()), nil
	case bsontype.DateTime:
		return Int(rv.DateTime()), nil
	case bsontype.Double:
		return Float(rv.Double()), nil
	case bsontype.String:
		return String(rv.StringValue()), nil
	case bsontype.Boolean:
		return Bool(rv.Boolean()), nil
	case bsontype.Array:
		values, err := rv.Array().Values()
		if err != nil {
			return Value{}, err
		}
		arr := make([]Value, len(values))
		for i := range values {
			if arr[i], err = fromRawValue(values[i]); err != nil {
				return Value{}, err
			}
		}
		return Array(arr), nil
	case bsontype.EmbeddedDocument:
		elems, err := rv.Document().Elements()
		if err != nil {
			return Value{}, err
		}
		obj := make(Record, len(elems))
		for _, e := range elems {
			vv, err := fromRawValue(e.Value())
			if err != nil {
				return Value{}, err
			}
			obj[e.Key()] = vv
		}
		return Object(obj), nil
	default:
		return Value{}, fmt.Errorf("document: unsupported bson type %s", rv.Type)
	}
}
