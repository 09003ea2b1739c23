// Package query evaluates criteria against the records of a collection.
//
// Execute filters records in storage order, sorts matches with a stable
// multi-key comparison, applies skip and limit, and projects the selected
// fields last. The positions of every match are reported alongside the
// results so that update and destroy can address the stored records.
package query

import (
	"sort"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/diskstore/criteria"
	"github.com/hupe1980/diskstore/document"
)

// Result is the outcome of Execute.
type Result struct {
	// Records are copies of the matching records after sort, skip, limit
	// and projection.
	Records []document.Record

	// Indices are the storage positions of all matching records in storage
	// order, before pagination.
	Indices []int
}

// IndexSet returns Indices as a bitmap.
func (r Result) IndexSet() *roaring.Bitmap {
	bm := roaring.New()
	for _, i := range r.Indices {
		bm.Add(uint32(i))
	}
	return bm
}

type match struct {
	pos    int
	record document.Record
}

// Execute runs c against records.
func Execute(records []document.Record, c criteria.Criteria, opts criteria.Options) (Result, error) {
	pred, err := criteria.Normalize(c.Where, opts)
	if err != nil {
		return Result{}, err
	}

	matches := filter(records, pred)

	indices := make([]int, len(matches))
	for i, m := range matches {
		indices[i] = m.pos
	}

	if len(c.Sort) > 0 {
		sortMatches(matches, c.Sort)
	}

	matches = paginate(matches, c.Skip, c.Limit)

	out := make([]document.Record, len(matches))
	for i, m := range matches {
		if c.Select != nil {
			out[i] = m.record.Project(c.Select)
		} else {
			out[i] = m.record.Clone()
		}
	}

	return Result{Records: out, Indices: indices}, nil
}

func filter(records []document.Record, pred criteria.Predicate) []match {
	var matches []match
	for pos, r := range records {
		if pred(r) {
			matches = append(matches, match{pos: pos, record: r})
		}
	}
	return matches
}

func sortMatches(matches []match, keys []criteria.SortKey) {
	sort.SliceStable(matches, func(i, j int) bool {
		return compareByKeys(matches[i].record, matches[j].record, keys) < 0
	})
}

func compareByKeys(a, b document.Record, keys []criteria.SortKey) int {
	for _, k := range keys {
		c := document.Compare(criteria.Lookup(a, k.Field), criteria.Lookup(b, k.Field))
		if c == 0 {
			continue
		}
		if k.Direction == criteria.Desc {
			return -c
		}
		return c
	}
	return 0
}

func paginate(matches []match, skip, limit int) []match {
	if skip > 0 {
		if skip >= len(matches) {
			return nil
		}
		matches = matches[skip:]
	}
	if limit > 0 && limit < len(matches) {
		matches = matches[:limit]
	}
	return matches
}
