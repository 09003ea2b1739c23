package document

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestRecordCloneIsDeep(t *testing.T) {
	orig := Record{
		"tags": Array([]Value{String("a"), String("b")}),
		"meta": Object(Record{"n": Int(1)}),
	}
	clone := orig.Clone()
	clone["tags"].A[0] = String("changed")
	clone["meta"].O["n"] = Int(2)

	assert.Equal(t, "a", orig["tags"].A[0].S)
	assert.Equal(t, int64(1), orig["meta"].O["n"].I64)
}

func TestRecordMerge(t *testing.T) {
	base := Record{"id": Int(1), "name": String("a"), "age": Int(3)}
	merged := base.Merge(Record{"name": String("b"), "extra": Bool(true)})

	assert.Equal(t, Record{"id": Int(1), "name": String("b"), "age": Int(3), "extra": Bool(true)}, merged)
	assert.Equal(t, "a", base["name"].S, "merge must not touch the receiver")
}

func TestRecordProject(t *testing.T) {
	r := Record{"id": Int(1), "name": String("a"), "age": Int(3)}
	assert.Equal(t, Record{"name": String("a")}, r.Project([]string{"name", "missing"}))
}

func TestKeyMatchesEquality(t *testing.T) {
	assert.Equal(t, Int(2).Key(), Float(2).Key())
	assert.NotEqual(t, Int(2).Key(), String("2").Key())
	assert.NotEqual(t, Float(2.5).Key(), Int(2).Key())
	assert.Equal(t,
		Object(Record{"a": Int(1), "b": Int(2)}).Key(),
		Object(Record{"b": Int(2), "a": Int(1)}).Key(),
	)
}

func TestKeyUnambiguous(t *testing.T) {
	cases := []struct {
		name string
		a, b Value
	}{
		{"separator inside array element",
			Array([]Value{String("a\x1fs:b")}),
			Array([]Value{String("a"), String("b")})},
		{"separator inside object field",
			Object(Record{"a": String("1\x1fb=s:2")}),
			Object(Record{"a": String("1"), "b": String("2")})},
		{"equals sign in field name",
			Object(Record{"a=s:x": Null()}),
			Object(Record{"a": String("x")})},
		{"nested array boundary",
			Array([]Value{Array([]Value{Int(1)}), Int(2)}),
			Array([]Value{Array([]Value{Int(1), Int(2)})})},
		{"null string",
			String("null"),
			Null()},
		{"empty array and array of empty string",
			Array(nil),
			Array([]Value{String("")})},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.NotEqual(t, tc.a.Key(), tc.b.Key())
		})
	}

	// Concatenated keys stay distinct, so composite keys need no separator.
	assert.NotEqual(t,
		String("a\x00s1:b").Key()+String("c").Key(),
		String("a").Key()+String("b\x00s1:c").Key(),
	)
}

func TestFromAny(t *testing.T) {
	v, err := FromAny(map[string]any{
		"n":    json.Number("7"),
		"f":    json.Number("1.5"),
		"list": []any{"x", 1},
		"nil":  nil,
	})
	require.NoError(t, err)
	require.Equal(t, KindObject, v.Kind)
	assert.Equal(t, Int(7), v.O["n"])
	assert.Equal(t, Float(1.5), v.O["f"])
	assert.Equal(t, Array([]Value{String("x"), Int(1)}), v.O["list"])
	assert.True(t, v.O["nil"].IsNull())

	_, err = FromAny(struct{}{})
	assert.Error(t, err)

	_, err = FromAny(uint64(1 << 63))
	assert.Error(t, err)
}

func TestInterfaceRoundTrip(t *testing.T) {
	r := MustRecord(map[string]any{
		"id":    int64(1),
		"score": 2.5,
		"tags":  []any{"a"},
		"addr":  map[string]any{"city": "x"},
	})
	assert.Equal(t, map[string]any{
		"id":    int64(1),
		"score": 2.5,
		"tags":  []any{"a"},
		"addr":  map[string]any{"city": "x"},
	}, r.Map())
}

func TestJSON(t *testing.T) {
	r := Record{
		"id":    Int(1),
		"ratio": Float(2),
		"half":  Float(0.5),
		"name":  String("a\"b"),
		"ok":    Bool(true),
		"none":  Null(),
		"tags":  Array([]Value{Int(1), String("x")}),
		"meta":  Object(Record{"k": Array(nil)}),
	}

	data, err := json.Marshal(r)
	require.NoError(t, err)

	var got Record
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, r, got)
	assert.Equal(t, KindFloat, got["ratio"].Kind)

	t.Run("plain json", func(t *testing.T) {
		var rec Record
		require.NoError(t, json.Unmarshal([]byte(`{"id":3,"price":9.99,"big":1e3}`), &rec))
		assert.Equal(t, Int(3), rec["id"])
		assert.Equal(t, Float(9.99), rec["price"])
		assert.Equal(t, Float(1000), rec["big"])
	})
}

func TestBSON(t *testing.T) {
	type wrapper struct {
		R Record `bson:"r"`
	}
	in := wrapper{R: Record{
		"id":   Int(1),
		"f":    Float(1.25),
		"s":    String("x"),
		"b":    Bool(false),
		"n":    Null(),
		"tags": Array([]Value{Int(1), Int(2)}),
		"obj":  Object(Record{"k": String("v")}),
	}}

	data, err := bson.Marshal(in)
	require.NoError(t, err)

	var out wrapper
	require.NoError(t, bson.Unmarshal(data, &out))
	assert.Equal(t, in.R, out.R)
}
