package diskstore

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hupe1980/diskstore/criteria"
	"github.com/hupe1980/diskstore/document"
	"github.com/hupe1980/diskstore/internal/constraint"
	"github.com/hupe1980/diskstore/internal/store"
	"github.com/hupe1980/diskstore/join"
	"github.com/hupe1980/diskstore/persistence"
	"github.com/hupe1980/diskstore/schema"
)

var (
	// ErrCollectionNotFound is returned for operations on unregistered collections.
	ErrCollectionNotFound = store.ErrCollectionNotFound

	// ErrDatastoreNotRegistered is returned by Registry for unknown identities.
	ErrDatastoreNotRegistered = errors.New("datastore not registered")

	// ErrDatastoreExists is returned when an identity is registered twice.
	ErrDatastoreExists = errors.New("datastore already registered")

	// ErrPersistenceCorrupt is returned when the snapshot cannot be read.
	ErrPersistenceCorrupt = persistence.ErrCorrupt

	// ErrUniqueConstraint is the sentinel matched by *UniqueConstraintViolation.
	ErrUniqueConstraint = errors.New("unique constraint violation")

	// ErrUnknownAssociationStrategy is returned for join instructions that
	// describe no supported association.
	ErrUnknownAssociationStrategy = join.ErrUnknownAssociationStrategy

	// ErrInvalidCriteriaOperator is the sentinel matched by
	// *criteria.InvalidOperatorError.
	ErrInvalidCriteriaOperator = criteria.ErrInvalidOperator

	// ErrInvalidSchema is returned when a schema violates a registration rule.
	ErrInvalidSchema = schema.ErrInvalidSchema

	// ErrInvalidRecord is returned when a record does not match the declared
	// attribute types.
	ErrInvalidRecord = errors.New("invalid record")

	// ErrPrimaryKeyImmutable is returned when an update changes the primary
	// key while WithPrimaryKeyUpdates is disabled.
	ErrPrimaryKeyImmutable = errors.New("primary key is immutable")

	// ErrClosed is returned by operations on a closed datastore.
	ErrClosed = errors.New("datastore is closed")
)

// UniqueConstraintViolation reports the values that conflicted with existing
// records, grouped by attribute.
//
// errors.Is(err, ErrUniqueConstraint) reports true.
type UniqueConstraintViolation struct {
	Collection string
	Values     map[string][]document.Value
}

func newUniqueConstraintViolation(collection string, violations []constraint.Violation) *UniqueConstraintViolation {
	return &UniqueConstraintViolation{
		Collection: collection,
		Values:     constraint.Group(violations),
	}
}

// Attributes returns the names of the violated attributes, sorted.
func (e *UniqueConstraintViolation) Attributes() []string {
	return constraint.Attributes(e.Values)
}

func (e *UniqueConstraintViolation) Error() string {
	parts := make([]string, 0, len(e.Values))
	for _, attr := range e.Attributes() {
		vals := make([]string, len(e.Values[attr]))
		for i, v := range e.Values[attr] {
			vals[i] = v.String()
		}
		parts = append(parts, fmt.Sprintf("%s [%s]", attr, strings.Join(vals, ", ")))
	}
	return fmt.Sprintf("%s in %s: %s", ErrUniqueConstraint, e.Collection, strings.Join(parts, "; "))
}

// Is matches ErrUniqueConstraint.
func (e *UniqueConstraintViolation) Is(target error) bool {
	return target == ErrUniqueConstraint
}
