package diskstore

import (
	"context"
	"time"

	"github.com/hupe1980/diskstore/criteria"
	"github.com/hupe1980/diskstore/document"
	"github.com/hupe1980/diskstore/internal/store"
	"github.com/hupe1980/diskstore/join"
	"github.com/hupe1980/diskstore/query"
)

// Find returns copies of the records of a collection matching c, sorted,
// paginated and projected as c describes.
func (ds *Datastore) Find(ctx context.Context, name string, c criteria.Criteria) ([]document.Record, error) {
	start := time.Now()
	records, err := ds.find(ctx, name, c)
	ds.metrics.RecordFind(len(records), time.Since(start), err)
	ds.logger.LogFind(ctx, name, len(records), err)
	return records, err
}

func (ds *Datastore) find(ctx context.Context, name string, c criteria.Criteria) ([]document.Record, error) {
	s, err := ds.view(ctx)
	if err != nil {
		return nil, err
	}
	return stateFinder{state: s, opts: ds.opts.criteria}.Find(ctx, name, c)
}

// Count returns the number of records matching the where clause of c.
// Sort, skip, limit and select are ignored.
func (ds *Datastore) Count(ctx context.Context, name string, c criteria.Criteria) (int, error) {
	s, err := ds.aggregate(ctx, "count", name, c, "")
	return s.Matches, err
}

// Sum adds up the numeric values of field over all records matching the
// where clause of c. Non-numeric values are skipped.
func (ds *Datastore) Sum(ctx context.Context, name string, c criteria.Criteria, field string) (float64, error) {
	s, err := ds.aggregate(ctx, "sum", name, c, field)
	return s.Sum, err
}

// Avg averages the numeric values of field over all records matching the
// where clause of c. It returns 0 if no numeric value matched.
func (ds *Datastore) Avg(ctx context.Context, name string, c criteria.Criteria, field string) (float64, error) {
	s, err := ds.aggregate(ctx, "avg", name, c, field)
	return s.Avg(), err
}

func (ds *Datastore) aggregate(ctx context.Context, op, name string, c criteria.Criteria, field string) (query.Summary, error) {
	start := time.Now()
	s, err := ds.summarize(ctx, name, c, field)
	if err != nil {
		s = query.Summary{}
	}
	ds.metrics.RecordAggregate(op, s.Matches, time.Since(start), err)
	ds.logger.LogAggregate(ctx, op, name, s.Matches, err)
	return s, err
}

func (ds *Datastore) summarize(ctx context.Context, name string, c criteria.Criteria, field string) (query.Summary, error) {
	st, err := ds.view(ctx)
	if err != nil {
		return query.Summary{}, err
	}
	records, err := st.Scan(name)
	if err != nil {
		return query.Summary{}, err
	}
	return query.Summarize(records, c.Where, field, ds.opts.criteria)
}

// Populate attaches the associations described by instructions to parents,
// which are modified in place. All child queries read the same state. On
// error no parent is modified.
func (ds *Datastore) Populate(ctx context.Context, parents []document.Record, instructions []join.Instruction) error {
	s, err := ds.view(ctx)
	if err != nil {
		return err
	}
	return ds.populate(ctx, s, parents, instructions)
}

func (ds *Datastore) populate(ctx context.Context, s *store.State, parents []document.Record, instructions []join.Instruction) error {
	start := time.Now()
	r := join.NewResolver(stateFinder{state: s, opts: ds.opts.criteria}, ds.resources)
	stats, err := r.Populate(ctx, parents, instructions)
	ds.metrics.RecordPopulate(stats.Queries, time.Since(start), err)
	ds.logger.LogPopulate(ctx, len(parents), stats.Queries, err)
	return err
}

// Join finds the records of a collection matching c and populates them.
// The find and every child query read the same state.
func (ds *Datastore) Join(ctx context.Context, name string, c criteria.Criteria, instructions []join.Instruction) ([]document.Record, error) {
	s, err := ds.view(ctx)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	parents, err := stateFinder{state: s, opts: ds.opts.criteria}.Find(ctx, name, c)
	ds.metrics.RecordFind(len(parents), time.Since(start), err)
	ds.logger.LogFind(ctx, name, len(parents), err)
	if err != nil {
		return nil, err
	}
	if err := ds.populate(ctx, s, parents, instructions); err != nil {
		return nil, err
	}
	return parents, nil
}

// stateFinder answers queries against one state.
type stateFinder struct {
	state *store.State
	opts  criteria.Options
}

func (f stateFinder) Find(ctx context.Context, name string, c criteria.Criteria) ([]document.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	records, err := f.state.Scan(name)
	if err != nil {
		return nil, err
	}
	res, err := query.Execute(records, c, f.opts)
	if err != nil {
		return nil, err
	}
	return res.Records, nil
}

func (f stateFinder) PrimaryKey(name string) (string, error) {
	c, err := f.state.Collection(name)
	if err != nil {
		return "", err
	}
	return c.PrimaryKey(), nil
}
