// Package constraint enforces schema constraints on candidate records:
// uniqueness of unique and primary key attributes, and auto-increment
// sequencing.
package constraint

import (
	"sort"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/diskstore/document"
	"github.com/hupe1980/diskstore/schema"
)

// Violation is a single uniqueness conflict.
type Violation struct {
	Attribute string
	Value     document.Value
}

// Exclusion reports whether the existing record at pos must be skipped by a
// uniqueness check. Used to exclude the record being updated.
type Exclusion func(pos int, r document.Record) bool

// ExcludePosition skips the existing record at pos.
func ExcludePosition(pos int) Exclusion {
	return func(p int, _ document.Record) bool {
		return p == pos
	}
}

// CheckUniqueness compares candidate against every existing record for each
// unique attribute of s (the primary key included). Candidate values that are
// missing or null never conflict.
func CheckUniqueness(s schema.Schema, existing []document.Record, candidate document.Record, exclude Exclusion) []Violation {
	var violations []Violation
	for _, attr := range s.UniqueAttributes() {
		want, ok := candidate[attr]
		if !ok || want.IsNull() {
			continue
		}
		for pos, r := range existing {
			if exclude != nil && exclude(pos, r) {
				continue
			}
			if have, ok := r[attr]; ok && document.Equal(have, want) {
				violations = append(violations, Violation{Attribute: attr, Value: want})
				break
			}
		}
	}
	return violations
}

// CheckBatch checks each candidate against existing and against the
// candidates before it in the batch.
func CheckBatch(s schema.Schema, existing []document.Record, candidates []document.Record) []Violation {
	var violations []Violation
	for i, c := range candidates {
		violations = append(violations, CheckUniqueness(s, existing, c, nil)...)
		violations = append(violations, CheckUniqueness(s, candidates[:i], c, nil)...)
	}
	return violations
}

// CheckUpdated checks the records at the updated positions of records against
// every other record. Only the attributes listed in fields are checked, so an
// update that leaves unique attributes untouched never conflicts.
func CheckUpdated(s schema.Schema, records []document.Record, updated *roaring.Bitmap, fields []string) []Violation {
	var violations []Violation
	it := updated.Iterator()
	for it.HasNext() {
		pos := int(it.Next())
		candidate := records[pos].Project(fields)
		violations = append(violations, CheckUniqueness(s, records, candidate, ExcludePosition(pos))...)
	}
	return violations
}

// Group collects violations by attribute, dropping duplicate values. Values
// keep their first-seen order.
func Group(violations []Violation) map[string][]document.Value {
	if len(violations) == 0 {
		return nil
	}
	out := make(map[string][]document.Value)
	seen := make(map[string]struct{})
	for _, v := range violations {
		key := document.String(v.Attribute).Key() + v.Value.Key()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out[v.Attribute] = append(out[v.Attribute], v.Value)
	}
	return out
}

// Attributes returns the sorted attribute names of grouped violations.
func Attributes(grouped map[string][]document.Value) []string {
	out := make([]string, 0, len(grouped))
	for k := range grouped {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ApplyAutoIncrement assigns auto-increment attributes of r using counters.
//
// A supplied integer greater than the counter advances the counter and is
// kept; otherwise the counter is incremented and its new value assigned.
// counters is updated in place and the returned record is a copy.
func ApplyAutoIncrement(s schema.Schema, counters map[string]int64, r document.Record) document.Record {
	out := r.Clone()
	if out == nil {
		out = document.Record{}
	}
	for _, attr := range s.AutoIncrementAttributes() {
		if supplied, ok := advance(counters, attr, out[attr]); ok {
			out[attr] = document.Int(supplied)
			continue
		}
		counters[attr]++
		out[attr] = document.Int(counters[attr])
	}
	return out
}

// AdvanceCounters raises the counter of every auto-increment attribute that r
// sets to an integer above it, so later assignments never reuse the value.
// counters is updated in place. It reports whether any counter moved.
func AdvanceCounters(s schema.Schema, counters map[string]int64, r document.Record) bool {
	moved := false
	for _, attr := range s.AutoIncrementAttributes() {
		v, ok := r[attr]
		if !ok {
			continue
		}
		if _, ok := advance(counters, attr, v); ok {
			moved = true
		}
	}
	return moved
}

// advance moves the counter of attr to v when v is an integer above it.
func advance(counters map[string]int64, attr string, v document.Value) (int64, bool) {
	supplied, ok := suppliedInt(v)
	if !ok || supplied <= counters[attr] {
		return 0, false
	}
	counters[attr] = supplied
	return supplied, true
}

func suppliedInt(v document.Value) (int64, bool) {
	switch v.Kind {
	case document.KindInt:
		return v.I64, true
	case document.KindFloat:
		i := int64(v.F64)
		if float64(i) == v.F64 {
			return i, true
		}
	}
	return 0, false
}
