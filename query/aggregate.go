package query

import (
	"github.com/hupe1980/diskstore/criteria"
	"github.com/hupe1980/diskstore/document"
)

// Summary describes the records matching a where clause.
type Summary struct {
	// Matches is the number of matching records.
	Matches int
	// Numeric is the number of matches holding a numeric value in the field.
	Numeric int
	// Sum adds up those numeric values.
	Sum float64
}

// Avg returns the mean of the numeric values, or 0 if there were none.
func (s Summary) Avg() float64 {
	if s.Numeric == 0 {
		return 0
	}
	return s.Sum / float64(s.Numeric)
}

// Summarize scans records once, counting matches of where and adding up the
// numeric values of field. An empty field only counts.
func Summarize(records []document.Record, where criteria.Clause, field string, opts criteria.Options) (Summary, error) {
	pred, err := criteria.Normalize(where, opts)
	if err != nil {
		return Summary{}, err
	}
	var s Summary
	for _, r := range records {
		if !pred(r) {
			continue
		}
		s.Matches++
		if field == "" {
			continue
		}
		if f, ok := criteria.Lookup(r, field).AsFloat64(); ok {
			s.Sum += f
			s.Numeric++
		}
	}
	return s, nil
}

// Count returns the number of records matching where.
func Count(records []document.Record, where criteria.Clause, opts criteria.Options) (int, error) {
	s, err := Summarize(records, where, "", opts)
	return s.Matches, err
}

// Sum adds up the numeric values of field over every record matching where.
// Non-numeric and missing values are skipped.
func Sum(records []document.Record, where criteria.Clause, field string, opts criteria.Options) (float64, error) {
	s, err := Summarize(records, where, field, opts)
	return s.Sum, err
}

// Avg returns the mean of the numeric values of field over every record
// matching where. It returns 0 when no numeric value matched.
func Avg(records []document.Record, where criteria.Clause, field string, opts criteria.Options) (float64, error) {
	s, err := Summarize(records, where, field, opts)
	return s.Avg(), err
}
