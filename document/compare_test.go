package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"int int", Int(1), Int(1), true},
		{"int float", Int(1), Float(1), true},
		{"int float fraction", Int(1), Float(1.5), false},
		{"string", String("a"), String("a"), true},
		{"string vs int", String("1"), Int(1), false},
		{"null null", Null(), Null(), true},
		{"null vs empty string", Null(), String(""), false},
		{"bool", Bool(true), Bool(false), false},
		{"arrays", Array([]Value{Int(1), String("a")}), Array([]Value{Float(1), String("a")}), true},
		{"arrays length", Array([]Value{Int(1)}), Array(nil), false},
		{"objects", Object(Record{"a": Int(1)}), Object(Record{"a": Int(1)}), true},
		{"objects differ", Object(Record{"a": Int(1)}), Object(Record{"b": Int(1)}), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Equal(tt.a, tt.b))
			assert.Equal(t, tt.want, Equal(tt.b, tt.a))
		})
	}
}

func TestCompare(t *testing.T) {
	ordered := []Value{
		Null(),
		Int(-1),
		Float(0.5),
		Int(2),
		String("a"),
		String("b"),
		Object(Record{"a": Int(1)}),
		Array([]Value{Int(1)}),
		Array([]Value{Int(1), Int(0)}),
		Bool(false),
		Bool(true),
	}
	for i := range ordered {
		for j := range ordered {
			got := Compare(ordered[i], ordered[j])
			switch {
			case i < j:
				assert.Equal(t, -1, got, "%s < %s", ordered[i], ordered[j])
			case i > j:
				assert.Equal(t, 1, got, "%s > %s", ordered[i], ordered[j])
			default:
				assert.Equal(t, 0, got)
			}
		}
	}

	assert.Equal(t, 0, Compare(Int(3), Float(3)))
}
