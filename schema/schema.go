// Package schema describes the attributes of a collection and the constraints
// diskstore enforces for them.
package schema

import (
	"errors"
	"fmt"
	"sort"

	"github.com/hupe1980/diskstore/document"
)

// ErrInvalidSchema is returned when a schema violates a registration rule.
var ErrInvalidSchema = errors.New("invalid schema")

// Attribute describes a single collection attribute.
type Attribute struct {
	Type          Type `json:"type,omitempty" bson:"type,omitempty"`
	Required      bool `json:"required,omitempty" bson:"required,omitempty"`
	Unique        bool `json:"unique,omitempty" bson:"unique,omitempty"`
	AutoIncrement bool `json:"autoIncrement,omitempty" bson:"autoIncrement,omitempty"`
	PrimaryKey    bool `json:"primaryKey,omitempty" bson:"primaryKey,omitempty"`
}

// Schema maps attribute names to their descriptors.
type Schema map[string]Attribute

// Validate checks the registration rules: exactly one primary key, and every
// unique attribute other than the primary key must be required.
func (s Schema) Validate() error {
	var pks []string
	for name, attr := range s {
		if attr.PrimaryKey {
			pks = append(pks, name)
		}
		if attr.Unique && !attr.PrimaryKey && !attr.Required {
			return fmt.Errorf("%w: unique attribute %q must be required", ErrInvalidSchema, name)
		}
	}
	switch len(pks) {
	case 1:
		return nil
	case 0:
		return fmt.Errorf("%w: no primary key", ErrInvalidSchema)
	default:
		sort.Strings(pks)
		return fmt.Errorf("%w: multiple primary keys %v", ErrInvalidSchema, pks)
	}
}

// PrimaryKey returns the name of the primary key attribute, or "" if none.
func (s Schema) PrimaryKey() string {
	for name, attr := range s {
		if attr.PrimaryKey {
			return name
		}
	}
	return ""
}

// UniqueAttributes returns the attributes that must hold distinct values,
// sorted by name. The primary key is always included.
func (s Schema) UniqueAttributes() []string {
	var out []string
	for name, attr := range s {
		if attr.Unique || attr.PrimaryKey {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// AutoIncrementAttributes returns the auto-increment attributes, sorted by name.
func (s Schema) AutoIncrementAttributes() []string {
	var out []string
	for name, attr := range s {
		if attr.AutoIncrement {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Clone returns a copy of the schema.
func (s Schema) Clone() Schema {
	if s == nil {
		return nil
	}
	out := make(Schema, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// CheckRecord checks that the values in r conform to the declared attribute
// types. Null values and attributes without a declared type always pass.
func (s Schema) CheckRecord(r document.Record) error {
	for field, v := range r {
		attr, ok := s[field]
		if !ok {
			continue
		}
		if !attr.Type.Accepts(v) {
			return fmt.Errorf("field %q has invalid type %s, expected %s", field, v.Kind, attr.Type)
		}
	}
	return nil
}
