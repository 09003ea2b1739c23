package criteria

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidOperator is the sentinel wrapped by InvalidOperatorError.
	ErrInvalidOperator = errors.New("invalid criteria operator")

	// ErrInvalidCriteria is returned for malformed criteria, such as an in
	// operand that is not an array.
	ErrInvalidCriteria = errors.New("invalid criteria")
)

// InvalidOperatorError indicates a where clause used an operator outside the
// recognized set.
type InvalidOperatorError struct {
	Field    string
	Operator string
}

func (e *InvalidOperatorError) Error() string {
	return fmt.Sprintf("invalid criteria operator %q on field %q", e.Operator, e.Field)
}

// Unwrap returns ErrInvalidOperator.
func (e *InvalidOperatorError) Unwrap() error { return ErrInvalidOperator }
