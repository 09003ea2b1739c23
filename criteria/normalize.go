package criteria

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/hupe1980/diskstore/document"
)

// Predicate reports whether a record matches a where clause.
type Predicate func(document.Record) bool

// MatchAll is the predicate of an empty where clause.
func MatchAll(document.Record) bool { return true }

// Options configures how where clauses are compiled.
type Options struct {
	// EmptyArrayMatchesNotNull makes {field: {"!=": null}} match fields holding
	// an empty array. When false an empty array is treated like null for that
	// comparison.
	EmptyArrayMatchesNotNull bool

	// CaseInsensitiveLike compiles like patterns case-insensitively.
	CaseInsensitiveLike bool
}

// DefaultOptions returns the default normalization options.
func DefaultOptions() Options {
	return Options{EmptyArrayMatchesNotNull: true}
}

// Normalize compiles a where clause into a Predicate. A nil clause matches
// every record. The clause is not modified.
func Normalize(where Clause, opts Options) (Predicate, error) {
	if where == nil {
		return MatchAll, nil
	}
	return compile(where, opts)
}

func compile(c Clause, opts Options) (Predicate, error) {
	switch n := c.(type) {
	case And:
		preds, err := compileAll(n, opts)
		if err != nil {
			return nil, err
		}
		return func(r document.Record) bool {
			for _, p := range preds {
				if !p(r) {
					return false
				}
			}
			return true
		}, nil
	case Or:
		preds, err := compileAll(n, opts)
		if err != nil {
			return nil, err
		}
		return func(r document.Record) bool {
			for _, p := range preds {
				if p(r) {
					return true
				}
			}
			return false
		}, nil
	case Condition:
		return compileCondition(n, opts)
	case *Condition:
		if n == nil {
			return nil, fmt.Errorf("%w: nil condition", ErrInvalidCriteria)
		}
		return compileCondition(*n, opts)
	case nil:
		return MatchAll, nil
	default:
		return nil, fmt.Errorf("%w: unsupported clause %T", ErrInvalidCriteria, c)
	}
}

func compileAll(clauses []Clause, opts Options) ([]Predicate, error) {
	preds := make([]Predicate, 0, len(clauses))
	for _, c := range clauses {
		p, err := compile(c, opts)
		if err != nil {
			return nil, err
		}
		preds = append(preds, p)
	}
	return preds, nil
}

func compileCondition(c Condition, opts Options) (Predicate, error) {
	field, operand := c.Field, c.Value

	switch c.Op {
	case OpEqual:
		return func(r document.Record) bool {
			return document.Equal(Lookup(r, field), operand)
		}, nil

	case OpNotEqual:
		if operand.IsNull() {
			emptyMatches := opts.EmptyArrayMatchesNotNull
			return func(r document.Record) bool {
				v := Lookup(r, field)
				if v.IsEmptyArray() {
					return emptyMatches
				}
				return !v.IsNull()
			}, nil
		}
		return func(r document.Record) bool {
			return !document.Equal(Lookup(r, field), operand)
		}, nil

	case OpLessThan, OpLessEqual, OpGreaterThan, OpGreaterEqual:
		op := c.Op
		return func(r document.Record) bool {
			v := Lookup(r, field)
			if !orderable(v, operand) {
				return false
			}
			cmp := document.Compare(v, operand)
			switch op {
			case OpLessThan:
				return cmp < 0
			case OpLessEqual:
				return cmp <= 0
			case OpGreaterThan:
				return cmp > 0
			default:
				return cmp >= 0
			}
		}, nil

	case OpIn, OpNotIn:
		list, ok := operand.AsArray()
		if !ok {
			return nil, fmt.Errorf("%w: operator %q on field %q requires an array", ErrInvalidCriteria, c.Op, field)
		}
		want := c.Op == OpIn
		return func(r document.Record) bool {
			v := Lookup(r, field)
			for _, candidate := range list {
				if document.Equal(v, candidate) {
					return want
				}
			}
			return !want
		}, nil

	case OpLike:
		pattern, ok := operand.AsString()
		if !ok {
			return nil, fmt.Errorf("%w: operator like on field %q requires a string", ErrInvalidCriteria, field)
		}
		re, err := CompileLike(pattern, opts.CaseInsensitiveLike)
		if err != nil {
			return nil, err
		}
		return func(r document.Record) bool {
			s, ok := Lookup(r, field).AsString()
			return ok && re.MatchString(s)
		}, nil

	default:
		return nil, &InvalidOperatorError{Field: field, Operator: string(c.Op)}
	}
}

// orderable reports whether v and operand can be ordered by a range
// operator. Only numbers, strings and booleans of matching kind compare;
// null and missing values never match.
func orderable(v, operand document.Value) bool {
	if v.IsNumeric() && operand.IsNumeric() {
		return true
	}
	if v.Kind != operand.Kind {
		return false
	}
	return v.Kind == document.KindString || v.Kind == document.KindBool
}

// CompileLike compiles a like pattern into an anchored regular expression.
// % matches any sequence of characters, \% matches a literal percent sign
// and every other character matches itself.
func CompileLike(pattern string, caseInsensitive bool) (*regexp.Regexp, error) {
	var b strings.Builder
	if caseInsensitive {
		b.WriteString("(?i)")
	}
	b.WriteString("(?s)^")
	runes := []rune(pattern)
	for i := 0; i < len(runes); i++ {
		switch {
		case runes[i] == '\\' && i+1 < len(runes) && runes[i+1] == '%':
			b.WriteString("%")
			i++
		case runes[i] == '%':
			b.WriteString(".*")
		default:
			b.WriteString(regexp.QuoteMeta(string(runes[i])))
		}
	}
	b.WriteString("$")
	return regexp.Compile(b.String())
}

// Lookup returns the value of field in r. Dotted paths descend into nested
// objects when r has no field with the literal name. Missing fields are null.
func Lookup(r document.Record, field string) document.Value {
	if v, ok := r[field]; ok {
		return v
	}
	if !strings.Contains(field, ".") {
		return document.Null()
	}
	cur := r
	parts := strings.Split(field, ".")
	for i, p := range parts {
		v, ok := cur[p]
		if !ok {
			return document.Null()
		}
		if i == len(parts)-1 {
			return v
		}
		obj, ok := v.AsObject()
		if !ok {
			return document.Null()
		}
		cur = obj
	}
	return document.Null()
}
