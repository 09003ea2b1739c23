package document

import (
	"cmp"
	"strings"
)

// rank orders kinds for Compare: null < numbers < strings < objects < arrays < booleans.
func rank(k Kind) int {
	switch k {
	case KindNull:
		return 0
	case KindInt, KindFloat:
		return 1
	case KindString:
		return 2
	case KindObject:
		return 3
	case KindArray:
		return 4
	case KindBool:
		return 5
	default:
		return 6
	}
}

// Equal reports whether a and b hold the same value.
//
// Ints and floats compare numerically; every other kind must match exactly.
func Equal(a, b Value) bool {
	if a.IsNumeric() && b.IsNumeric() {
		return compareNumbers(a, b) == 0
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindNull:
		return true
	case KindString:
		return a.S == b.S
	case KindBool:
		return a.B == b.B
	case KindArray:
		if len(a.A) != len(b.A) {
			return false
		}
		for i := range a.A {
			if !Equal(a.A[i], b.A[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(a.O) != len(b.O) {
			return false
		}
		for k, av := range a.O {
			bv, ok := b.O[k]
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Compare returns -1, 0 or +1 depending on whether a sorts before, equal to,
// or after b. Values of different kinds are ordered by kind.
func Compare(a, b Value) int {
	ra, rb := rank(a.Kind), rank(b.Kind)
	if ra != rb {
		return cmp.Compare(ra, rb)
	}
	switch a.Kind {
	case KindNull:
		return 0
	case KindInt, KindFloat:
		return compareNumbers(a, b)
	case KindString:
		return strings.Compare(a.S, b.S)
	case KindBool:
		switch {
		case a.B == b.B:
			return 0
		case !a.B:
			return -1
		default:
			return 1
		}
	case KindArray:
		for i := 0; i < len(a.A) && i < len(b.A); i++ {
			if c := Compare(a.A[i], b.A[i]); c != 0 {
				return c
			}
		}
		return cmp.Compare(len(a.A), len(b.A))
	case KindObject:
		ak, bk := a.O.Keys(), b.O.Keys()
		for i := 0; i < len(ak) && i < len(bk); i++ {
			if c := strings.Compare(ak[i], bk[i]); c != 0 {
				return c
			}
			if c := Compare(a.O[ak[i]], b.O[bk[i]]); c != 0 {
				return c
			}
		}
		return cmp.Compare(len(ak), len(bk))
	default:
		return 0
	}
}

// compareNumbers compares two numeric values, staying in int64 when both are ints.
func compareNumbers(a, b Value) int {
	if a.Kind == KindInt && b.Kind == KindInt {
		return cmp.Compare(a.I64, b.I64)
	}
	af, _ := a.AsFloat64()
	bf, _ := b.AsFloat64()
	return cmp.Compare(af, bf)
}
