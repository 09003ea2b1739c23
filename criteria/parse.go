package criteria

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/hupe1980/diskstore/document"
)

// operatorAliases maps accepted spellings to operators.
var operatorAliases = map[string]Operator{
	"<":     OpLessThan,
	"<=":    OpLessEqual,
	">":     OpGreaterThan,
	">=":    OpGreaterEqual,
	"!=":    OpNotEqual,
	"in":    OpIn,
	"notIn": OpNotIn,
	"nin":   OpNotIn,
	"like":  OpLike,
}

// Parse converts untyped criteria (for example decoded JSON) into Criteria.
//
// Recognized keys are where, sort, limit, skip and select.
func Parse(m map[string]any) (Criteria, error) {
	var c Criteria
	for key, raw := range m {
		var err error
		switch key {
		case "where":
			if raw == nil {
				continue
			}
			w, ok := raw.(map[string]any)
			if !ok {
				return Criteria{}, fmt.Errorf("%w: where must be an object, got %T", ErrInvalidCriteria, raw)
			}
			c.Where, err = ParseWhere(w)
		case "sort":
			c.Sort, err = ParseSort(raw)
		case "limit":
			c.Limit, err = parseInt(key, raw)
		case "skip":
			c.Skip, err = parseInt(key, raw)
		case "select":
			c.Select, err = parseSelect(raw)
		default:
			err = fmt.Errorf("%w: unknown key %q", ErrInvalidCriteria, key)
		}
		if err != nil {
			return Criteria{}, err
		}
	}
	return c, nil
}

// ParseWhere converts an untyped where tree into a Clause.
//
// Leaves are {field: value} for equality or {field: {operator: operand}};
// and / or keys hold arrays of subtrees. Sibling keys are combined with And.
func ParseWhere(m map[string]any) (Clause, error) {
	if len(m) == 0 {
		return nil, nil
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var clauses And
	for _, key := range keys {
		raw := m[key]
		switch key {
		case "and", "or":
			list, ok := raw.([]any)
			if !ok {
				return nil, fmt.Errorf("%w: %s must be an array, got %T", ErrInvalidCriteria, key, raw)
			}
			children := make([]Clause, 0, len(list))
			for _, item := range list {
				sub, ok := item.(map[string]any)
				if !ok {
					return nil, fmt.Errorf("%w: %s entries must be objects, got %T", ErrInvalidCriteria, key, item)
				}
				child, err := ParseWhere(sub)
				if err != nil {
					return nil, err
				}
				if child == nil {
					child = And{}
				}
				children = append(children, child)
			}
			if key == "and" {
				clauses = append(clauses, And(children))
			} else {
				clauses = append(clauses, Or(children))
			}
		default:
			cond, err := parseField(key, raw)
			if err != nil {
				return nil, err
			}
			clauses = append(clauses, cond)
		}
	}

	if len(clauses) == 1 {
		return clauses[0], nil
	}
	return clauses, nil
}

func parseField(field string, raw any) (Clause, error) {
	mods, ok := raw.(map[string]any)
	if !ok {
		v, err := document.FromAny(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: field %q: %w", ErrInvalidCriteria, field, err)
		}
		return Eq(field, v), nil
	}

	if len(mods) == 0 {
		return nil, fmt.Errorf("%w: field %q has an empty modifier object", ErrInvalidCriteria, field)
	}

	ops := make([]string, 0, len(mods))
	for k := range mods {
		ops = append(ops, k)
	}
	sort.Strings(ops)

	var conds And
	for _, name := range ops {
		op, ok := operatorAliases[name]
		if !ok {
			return nil, &InvalidOperatorError{Field: field, Operator: name}
		}
		v, err := document.FromAny(mods[name])
		if err != nil {
			return nil, fmt.Errorf("%w: field %q: %w", ErrInvalidCriteria, field, err)
		}
		conds = append(conds, Condition{Field: field, Op: op, Value: v})
	}
	if len(conds) == 1 {
		return conds[0], nil
	}
	return conds, nil
}

// ParseSort converts an untyped sort description into sort keys.
//
// Accepted forms: "age desc", []any{"age desc", map[string]any{"name": "asc"}},
// and map[string]any{"age": -1}. A map with several keys is sorted by key name
// to stay deterministic; use the list form when order matters.
func ParseSort(raw any) ([]SortKey, error) {
	switch s := raw.(type) {
	case nil:
		return nil, nil
	case string:
		k, err := parseSortString(s)
		if err != nil {
			return nil, err
		}
		return []SortKey{k}, nil
	case []any:
		var out []SortKey
		for _, item := range s {
			keys, err := ParseSort(item)
			if err != nil {
				return nil, err
			}
			out = append(out, keys...)
		}
		return out, nil
	case []string:
		out := make([]SortKey, 0, len(s))
		for _, item := range s {
			k, err := parseSortString(item)
			if err != nil {
				return nil, err
			}
			out = append(out, k)
		}
		return out, nil
	case map[string]any:
		fields := make([]string, 0, len(s))
		for f := range s {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		out := make([]SortKey, 0, len(fields))
		for _, f := range fields {
			d, err := parseDirection(s[f])
			if err != nil {
				return nil, fmt.Errorf("%w: sort field %q: %w", ErrInvalidCriteria, f, err)
			}
			out = append(out, SortKey{Field: f, Direction: d})
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: unsupported sort type %T", ErrInvalidCriteria, raw)
	}
}

func parseSortString(s string) (SortKey, error) {
	parts := strings.Fields(s)
	switch len(parts) {
	case 1:
		return SortKey{Field: parts[0], Direction: Asc}, nil
	case 2:
		d, err := parseDirection(parts[1])
		if err != nil {
			return SortKey{}, fmt.Errorf("%w: sort %q: %w", ErrInvalidCriteria, s, err)
		}
		return SortKey{Field: parts[0], Direction: d}, nil
	default:
		return SortKey{}, fmt.Errorf("%w: malformed sort %q", ErrInvalidCriteria, s)
	}
}

func parseDirection(raw any) (Direction, error) {
	switch d := raw.(type) {
	case string:
		switch strings.ToLower(d) {
		case "asc", "ascending", "1":
			return Asc, nil
		case "desc", "descending", "-1":
			return Desc, nil
		}
	case int:
		return directionFromInt(int64(d))
	case int64:
		return directionFromInt(d)
	case float64:
		return directionFromInt(int64(d))
	case json.Number:
		i, err := d.Int64()
		if err == nil {
			return directionFromInt(i)
		}
	}
	return 0, fmt.Errorf("unknown direction %v", raw)
}

func directionFromInt(i int64) (Direction, error) {
	switch i {
	case 1:
		return Asc, nil
	case -1:
		return Desc, nil
	default:
		return 0, fmt.Errorf("unknown direction %d", i)
	}
}

func parseInt(key string, raw any) (int, error) {
	switch v := raw.(type) {
	case nil:
		return 0, nil
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	case json.Number:
		i, err := strconv.Atoi(v.String())
		if err != nil {
			return 0, fmt.Errorf("%w: %s: %w", ErrInvalidCriteria, key, err)
		}
		return i, nil
	default:
		return 0, fmt.Errorf("%w: %s must be a number, got %T", ErrInvalidCriteria, key, raw)
	}
}

func parseSelect(raw any) ([]string, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case []string:
		return append([]string(nil), v...), nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%w: select entries must be strings, got %T", ErrInvalidCriteria, item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: select must be an array, got %T", ErrInvalidCriteria, raw)
	}
}
