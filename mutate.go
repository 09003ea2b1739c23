package diskstore

import (
	"context"
	"fmt"
	"time"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/diskstore/criteria"
	"github.com/hupe1980/diskstore/document"
	"github.com/hupe1980/diskstore/internal/constraint"
	"github.com/hupe1980/diskstore/internal/store"
	"github.com/hupe1980/diskstore/query"
)

// Insert adds one record and returns it as stored, with auto-increment
// attributes assigned.
func (ds *Datastore) Insert(ctx context.Context, name string, record document.Record) (document.Record, error) {
	out, err := ds.InsertEach(ctx, name, []document.Record{record})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// InsertEach adds records as one batch. Either every record is inserted or,
// on a constraint violation or write failure, none is.
func (ds *Datastore) InsertEach(ctx context.Context, name string, records []document.Record) ([]document.Record, error) {
	start := time.Now()
	var created []document.Record
	err := ds.mutate(ctx, func(tx *store.Tx) error {
		c, err := tx.Collection(name)
		if err != nil {
			return err
		}
		sc := c.Schema()
		counters := c.Counters()

		candidates := make([]document.Record, len(records))
		for i, r := range records {
			if err := sc.CheckRecord(r); err != nil {
				return fmt.Errorf("%w: %s: %v", ErrInvalidRecord, name, err)
			}
			candidates[i] = constraint.ApplyAutoIncrement(sc, counters, r)
		}

		if v := constraint.CheckBatch(sc, c.Records(), candidates); len(v) > 0 {
			return newUniqueConstraintViolation(c.Name(), v)
		}

		if err := tx.Insert(name, candidates...); err != nil {
			return err
		}
		if err := tx.SetCounters(name, counters); err != nil {
			return err
		}
		created = candidates
		return nil
	})
	if err != nil {
		created = nil
	}

	ds.metrics.RecordInsert(len(records), time.Since(start), err)
	ds.logger.LogInsert(ctx, name, len(records), err)
	if err != nil {
		return nil, err
	}
	return cloneAll(created), nil
}

// Update merges changes into every record matching the where clause of c and
// returns the updated records. Fields not present in changes are kept.
//
// Changing the primary key requires WithPrimaryKeyUpdates. Updates are
// checked for uniqueness against the collection as it would be after the
// update, so two records updated to the same unique value fail. An integer
// written to an auto-increment attribute raises its counter when it is
// above it.
func (ds *Datastore) Update(ctx context.Context, name string, c criteria.Criteria, changes document.Record) ([]document.Record, error) {
	start := time.Now()
	var updated []document.Record
	err := ds.mutate(ctx, func(tx *store.Tx) error {
		col, err := tx.Collection(name)
		if err != nil {
			return err
		}
		sc := col.Schema()
		if err := sc.CheckRecord(changes); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidRecord, name, err)
		}

		res, err := query.Execute(col.Records(), criteria.Criteria{Where: c.Where}, ds.opts.criteria)
		if err != nil {
			return err
		}
		if len(res.Indices) == 0 {
			return nil
		}

		records := append([]document.Record(nil), col.Records()...)
		if pk := col.PrimaryKey(); pk != "" && !ds.opts.pkUpdates {
			if next, ok := changes[pk]; ok {
				for _, i := range res.Indices {
					if !document.Equal(records[i][pk], next) {
						return fmt.Errorf("%w: %s.%s", ErrPrimaryKeyImmutable, col.Name(), pk)
					}
				}
			}
		}

		positions := roaring.New()
		for _, i := range res.Indices {
			records[i] = records[i].Merge(changes)
			positions.Add(uint32(i))
		}
		if v := constraint.CheckUpdated(sc, records, positions, changes.Keys()); len(v) > 0 {
			return newUniqueConstraintViolation(col.Name(), v)
		}

		counters := col.Counters()
		if constraint.AdvanceCounters(sc, counters, changes) {
			if err := tx.SetCounters(name, counters); err != nil {
				return err
			}
		}

		updated = make([]document.Record, 0, len(res.Indices))
		for _, i := range res.Indices {
			if err := tx.ReplaceAt(name, i, records[i]); err != nil {
				return err
			}
			updated = append(updated, records[i])
		}
		return nil
	})
	if err != nil {
		updated = nil
	}

	ds.metrics.RecordUpdate(len(updated), time.Since(start), err)
	ds.logger.LogUpdate(ctx, name, len(updated), err)
	if err != nil {
		return nil, err
	}
	return cloneAll(updated), nil
}

// Destroy removes every record matching the where clause of c and returns
// the removed records.
func (ds *Datastore) Destroy(ctx context.Context, name string, c criteria.Criteria) ([]document.Record, error) {
	start := time.Now()
	var destroyed []document.Record
	err := ds.mutate(ctx, func(tx *store.Tx) error {
		col, err := tx.Collection(name)
		if err != nil {
			return err
		}
		res, err := query.Execute(col.Records(), criteria.Criteria{Where: c.Where}, ds.opts.criteria)
		if err != nil {
			return err
		}
		if len(res.Indices) == 0 {
			return nil
		}

		destroyed = make([]document.Record, 0, len(res.Indices))
		for _, i := range res.Indices {
			destroyed = append(destroyed, col.Records()[i])
		}
		return tx.RemoveIndices(name, res.IndexSet())
	})
	if err != nil {
		destroyed = nil
	}

	ds.metrics.RecordDestroy(len(destroyed), time.Since(start), err)
	ds.logger.LogDestroy(ctx, name, len(destroyed), err)
	if err != nil {
		return nil, err
	}
	return cloneAll(destroyed), nil
}

func cloneAll(records []document.Record) []document.Record {
	out := make([]document.Record, len(records))
	for i, r := range records {
		out[i] = r.Clone()
	}
	return out
}
