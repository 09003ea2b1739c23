// Package store holds the in-memory collections of a datastore.
//
// State is immutable once published. Mutations run inside a Tx that copies
// each touched collection on first write; Commit returns the successor state,
// which the caller publishes only after it has been persisted.
package store

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/diskstore/document"
	"github.com/hupe1980/diskstore/persistence"
	"github.com/hupe1980/diskstore/schema"
)

// ErrCollectionNotFound is returned for operations on unregistered collections.
var ErrCollectionNotFound = errors.New("collection not found")

// Normalize returns the canonical (lower-cased) collection name.
func Normalize(name string) string { return strings.ToLower(name) }

// Collection is one named set of records sharing a schema.
type Collection struct {
	name       string
	schema     schema.Schema
	records    []document.Record
	counters   map[string]int64
	primaryKey string
}

// Name returns the collection name.
func (c *Collection) Name() string { return c.name }

// Schema returns the collection schema. Callers must not modify it.
func (c *Collection) Schema() schema.Schema { return c.schema }

// PrimaryKey returns the cached primary key attribute name.
func (c *Collection) PrimaryKey() string { return c.primaryKey }

// Records returns the stored records in storage order. The slice and the
// records are shared with the state and must not be modified.
func (c *Collection) Records() []document.Record { return c.records }

// Len returns the number of records.
func (c *Collection) Len() int { return len(c.records) }

// Counters returns a copy of the auto-increment counters.
func (c *Collection) Counters() map[string]int64 {
	out := make(map[string]int64, len(c.counters))
	for k, v := range c.counters {
		out[k] = v
	}
	return out
}

func (c *Collection) clone() *Collection {
	return &Collection{
		name:       c.name,
		schema:     c.schema,
		records:    append([]document.Record(nil), c.records...),
		counters:   c.Counters(),
		primaryKey: c.primaryKey,
	}
}

// State is an immutable set of collections.
type State struct {
	collections map[string]*Collection
}

// NewState returns an empty state.
func NewState() *State {
	return &State{collections: make(map[string]*Collection)}
}

// Collection returns the named collection.
func (s *State) Collection(name string) (*Collection, error) {
	c, ok := s.collections[Normalize(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	return c, nil
}

// Names returns the sorted collection names.
func (s *State) Names() []string {
	out := make([]string, 0, len(s.collections))
	for name := range s.collections {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Scan returns the records of a collection together with their positions,
// which are the slice indices.
func (s *State) Scan(name string) ([]document.Record, error) {
	c, err := s.Collection(name)
	if err != nil {
		return nil, err
	}
	return c.records, nil
}

// Snapshot converts the state into its persisted form. Records are shared,
// not copied, which is safe because published states are immutable.
func (s *State) Snapshot() *persistence.Snapshot {
	snap := persistence.NewSnapshot()
	for name, c := range s.collections {
		records := c.records
		if records == nil {
			records = []document.Record{}
		}
		snap.Data[name] = records
		snap.Schema[name] = c.schema
		snap.Counters[name] = c.Counters()
	}
	return snap
}

// FromSnapshot rebuilds a state from a persisted snapshot. Collections that
// only appear in data are restored without a schema.
func FromSnapshot(snap *persistence.Snapshot) *State {
	s := NewState()
	if snap == nil {
		return s
	}
	names := make(map[string]struct{})
	for name := range snap.Data {
		names[name] = struct{}{}
	}
	for name := range snap.Schema {
		names[name] = struct{}{}
	}
	for name := range snap.Counters {
		names[name] = struct{}{}
	}
	for name := range names {
		sc := snap.Schema[name]
		counters := make(map[string]int64, len(snap.Counters[name]))
		for k, v := range snap.Counters[name] {
			counters[k] = v
		}
		key := Normalize(name)
		s.collections[key] = &Collection{
			name:       key,
			schema:     sc,
			records:    snap.Data[name],
			counters:   counters,
			primaryKey: sc.PrimaryKey(),
		}
	}
	return s
}

// Begin starts a transaction on top of s.
func (s *State) Begin() *Tx {
	cols := make(map[string]*Collection, len(s.collections))
	for k, v := range s.collections {
		cols[k] = v
	}
	return &Tx{collections: cols, touched: make(map[string]bool)}
}

// Tx accumulates mutations against a state.
type Tx struct {
	collections map[string]*Collection
	touched     map[string]bool
}

func (tx *Tx) writable(name string) (*Collection, error) {
	key := Normalize(name)
	c, ok := tx.collections[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	if !tx.touched[key] {
		c = c.clone()
		tx.collections[key] = c
		tx.touched[key] = true
	}
	return c, nil
}

// Collection returns the current view of a collection inside the transaction.
func (tx *Tx) Collection(name string) (*Collection, error) {
	c, ok := tx.collections[Normalize(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	return c, nil
}

// Register defines a collection. An existing collection keeps its records and
// counters and gets the new schema.
func (tx *Tx) Register(name string, sc schema.Schema) {
	key := Normalize(name)
	c, ok := tx.collections[key]
	if !ok {
		c = &Collection{name: key, counters: make(map[string]int64)}
	} else {
		c = c.clone()
	}
	c.schema = sc.Clone()
	c.primaryKey = sc.PrimaryKey()
	tx.collections[key] = c
	tx.touched[key] = true
}

// Insert appends records to a collection.
func (tx *Tx) Insert(name string, records ...document.Record) error {
	c, err := tx.writable(name)
	if err != nil {
		return err
	}
	c.records = append(c.records, records...)
	return nil
}

// ReplaceAt replaces the record at index.
func (tx *Tx) ReplaceAt(name string, index int, r document.Record) error {
	c, err := tx.writable(name)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(c.records) {
		return fmt.Errorf("store: index %d out of range [0,%d)", index, len(c.records))
	}
	c.records[index] = r
	return nil
}

// RemoveIndices removes the records at the given positions.
func (tx *Tx) RemoveIndices(name string, indices *roaring.Bitmap) error {
	c, err := tx.writable(name)
	if err != nil {
		return err
	}
	kept := make([]document.Record, 0, len(c.records))
	for i, r := range c.records {
		if !indices.Contains(uint32(i)) {
			kept = append(kept, r)
		}
	}
	c.records = kept
	return nil
}

// SetCounters replaces the auto-increment counters of a collection.
func (tx *Tx) SetCounters(name string, counters map[string]int64) error {
	c, err := tx.writable(name)
	if err != nil {
		return err
	}
	c.counters = counters
	return nil
}

// Drop removes a collection.
func (tx *Tx) Drop(name string) error {
	key := Normalize(name)
	if _, ok := tx.collections[key]; !ok {
		return fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	delete(tx.collections, key)
	delete(tx.touched, key)
	return nil
}

// Commit returns the successor state.
func (tx *Tx) Commit() *State {
	return &State{collections: tx.collections}
}

// Store publishes the current state.
type Store struct {
	current atomic.Pointer[State]
}

// New returns a store holding initial.
func New(initial *State) *Store {
	if initial == nil {
		initial = NewState()
	}
	s := &Store{}
	s.current.Store(initial)
	return s
}

// Load returns the current state.
func (s *Store) Load() *State { return s.current.Load() }

// Publish makes next the current state.
func (s *Store) Publish(next *State) { s.current.Store(next) }
