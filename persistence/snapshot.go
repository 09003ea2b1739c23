package persistence

import (
	"github.com/hupe1980/diskstore/document"
	"github.com/hupe1980/diskstore/schema"
)

// Snapshot is the persisted state of a datastore.
//
// Field names and nesting are part of the on-disk format:
//
//	{"data": {collection: [record...]}, "schema": {collection: schema}, "counters": {collection: {attribute: n}}}
type Snapshot struct {
	Data     map[string][]document.Record `json:"data" bson:"data"`
	Schema   map[string]schema.Schema     `json:"schema" bson:"schema"`
	Counters map[string]map[string]int64  `json:"counters" bson:"counters"`
}

// NewSnapshot returns an empty snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Data:     make(map[string][]document.Record),
		Schema:   make(map[string]schema.Schema),
		Counters: make(map[string]map[string]int64),
	}
}

// normalize replaces nil sections with empty maps.
func (s *Snapshot) normalize() {
	if s.Data == nil {
		s.Data = make(map[string][]document.Record)
	}
	if s.Schema == nil {
		s.Schema = make(map[string]schema.Schema)
	}
	if s.Counters == nil {
		s.Counters = make(map[string]map[string]int64)
	}
}
