// Package criteria describes queries against a collection and compiles their
// filter trees into predicates.
//
// A Where clause is a tree of Conditions joined by And / Or nodes. Normalize
// turns a clause into a Predicate that can be evaluated against a single
// document.Record:
//
//	where := criteria.And{
//	    criteria.Gte("age", document.Int(30)),
//	    criteria.Like("name", "jo%"),
//	}
//	pred, err := criteria.Normalize(where, criteria.DefaultOptions())
//
// Untyped input (decoded JSON) can be converted with Parse and ParseWhere.
package criteria

import "github.com/hupe1980/diskstore/document"

// Operator is a comparison operator of a Condition.
type Operator string

const (
	// OpEqual is the implicit operator of a bare value leaf.
	OpEqual Operator = ""
	// OpLessThan matches values strictly lower than the operand.
	OpLessThan Operator = "<"
	// OpLessEqual matches values lower than or equal to the operand.
	OpLessEqual Operator = "<="
	// OpGreaterThan matches values strictly greater than the operand.
	OpGreaterThan Operator = ">"
	// OpGreaterEqual matches values greater than or equal to the operand.
	OpGreaterEqual Operator = ">="
	// OpNotEqual matches values different from the operand.
	OpNotEqual Operator = "!="
	// OpIn matches values contained in the operand array.
	OpIn Operator = "in"
	// OpNotIn matches values not contained in the operand array.
	OpNotIn Operator = "notIn"
	// OpLike matches strings against a pattern where % is a wildcard.
	OpLike Operator = "like"
)

// Clause is a node of a where tree: a Condition, And or Or.
type Clause interface {
	isClause()
}

// Condition compares a single field against an operand.
type Condition struct {
	Field string
	Op    Operator
	Value document.Value
}

// And matches when every child clause matches. An empty And matches everything.
type And []Clause

// Or matches when at least one child clause matches. An empty Or matches nothing.
type Or []Clause

func (Condition) isClause() {}
func (And) isClause()       {}
func (Or) isClause()        {}

// Eq returns an equality condition.
func Eq(field string, v document.Value) Condition {
	return Condition{Field: field, Op: OpEqual, Value: v}
}

// Ne returns a != condition.
func Ne(field string, v document.Value) Condition {
	return Condition{Field: field, Op: OpNotEqual, Value: v}
}

// Lt returns a < condition.
func Lt(field string, v document.Value) Condition {
	return Condition{Field: field, Op: OpLessThan, Value: v}
}

// Lte returns a <= condition.
func Lte(field string, v document.Value) Condition {
	return Condition{Field: field, Op: OpLessEqual, Value: v}
}

// Gt returns a > condition.
func Gt(field string, v document.Value) Condition {
	return Condition{Field: field, Op: OpGreaterThan, Value: v}
}

// Gte returns a >= condition.
func Gte(field string, v document.Value) Condition {
	return Condition{Field: field, Op: OpGreaterEqual, Value: v}
}

// In returns an in condition.
func In(field string, values ...document.Value) Condition {
	return Condition{Field: field, Op: OpIn, Value: document.Array(values)}
}

// NotIn returns a notIn condition.
func NotIn(field string, values ...document.Value) Condition {
	return Condition{Field: field, Op: OpNotIn, Value: document.Array(values)}
}

// Like returns a like condition.
func Like(field, pattern string) Condition {
	return Condition{Field: field, Op: OpLike, Value: document.String(pattern)}
}

// Direction is the order of a sort key.
type Direction int

const (
	// Asc sorts in ascending order.
	Asc Direction = 1
	// Desc sorts in descending order.
	Desc Direction = -1
)

// String returns "asc" or "desc".
func (d Direction) String() string {
	if d == Desc {
		return "desc"
	}
	return "asc"
}

// SortKey is one key of a multi-key sort.
type SortKey struct {
	Field     string
	Direction Direction
}

// Criteria describes filtering, sorting, pagination and projection.
type Criteria struct {
	// Where filters records. Nil matches every record.
	Where Clause
	// Sort keys, applied in order.
	Sort []SortKey
	// Limit caps the number of returned records. Zero or negative means no limit.
	Limit int
	// Skip drops the first records after sorting.
	Skip int
	// Select lists the returned fields. Nil returns every field.
	Select []string
}

// WithWhere returns a copy of c whose where clause is the conjunction of c.Where
// and clause.
func (c Criteria) WithWhere(clause Clause) Criteria {
	switch {
	case clause == nil:
	case c.Where == nil:
		c.Where = clause
	default:
		c.Where = And{c.Where, clause}
	}
	return c
}
