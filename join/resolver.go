package join

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/diskstore/criteria"
	"github.com/hupe1980/diskstore/document"
	"github.com/hupe1980/diskstore/resource"
)

// Finder runs child queries for a Resolver.
type Finder interface {
	// Find returns the records of collection matching c.
	Find(ctx context.Context, collection string, c criteria.Criteria) ([]document.Record, error)
	// PrimaryKey returns the primary key attribute of collection.
	PrimaryKey(collection string) (string, error)
}

// Resolver populates parent records with their associations.
type Resolver struct {
	finder    Finder
	resources *resource.Controller
}

// NewResolver creates a resolver. rc bounds the number of concurrent child
// queries; nil uses resource.DefaultWorkers.
func NewResolver(f Finder, rc *resource.Controller) *Resolver {
	return &Resolver{finder: f, resources: rc}
}

// Stats describes a completed populate.
type Stats struct {
	Associations int
	Queries      int
}

// buffer collects the children of all parents sharing a lookup key.
type buffer struct {
	assoc    *Association
	lookup   document.Value
	children []document.Record
}

// Populate attaches every association described by instructions to each
// record of parents. Records are modified in place. On error no parent is
// modified.
func (r *Resolver) Populate(ctx context.Context, parents []document.Record, instructions []Instruction) (Stats, error) {
	assocs, err := Group(instructions, r.finder.PrimaryKey)
	if err != nil {
		return Stats{}, err
	}
	if len(assocs) == 0 {
		return Stats{}, nil
	}

	pks := make(map[string]string, len(assocs))
	for _, a := range assocs {
		if _, ok := pks[a.Parent]; ok {
			continue
		}
		pk, err := r.finder.PrimaryKey(a.Parent)
		if err != nil {
			return Stats{}, err
		}
		pks[a.Parent] = pk
	}

	// index[a][i] is the buffer of parent i for association a, nil when the
	// parent has no lookup value.
	index := make([][]*buffer, len(assocs))
	var buffers []*buffer
	for ai := range assocs {
		a := &assocs[ai]
		index[ai] = make([]*buffer, len(parents))
		byKey := make(map[string]*buffer)

		for pi, parent := range parents {
			lookup, ok := parent[a.Strategy.lookupKey()]
			if !ok || lookup.IsNull() {
				continue
			}
			// Keys are self-delimiting, so concatenation is unambiguous.
			key := parent[pks[a.Parent]].Key()
			if _, hasFK := a.Strategy.(HasFK); hasFK {
				key += lookup.Key()
			}
			b, ok := byKey[key]
			if !ok {
				b = &buffer{assoc: a, lookup: lookup}
				byKey[key] = b
				buffers = append(buffers, b)
			}
			index[ai][pi] = b
		}
	}

	if err := r.fetch(ctx, buffers); err != nil {
		return Stats{}, err
	}

	for ai := range assocs {
		a := &assocs[ai]
		many := a.Strategy.many()
		for pi, parent := range parents {
			b := index[ai][pi]
			parent[a.Alias] = splice(b, many)
		}
	}

	return Stats{Associations: len(assocs), Queries: len(buffers)}, nil
}

func splice(b *buffer, many bool) document.Value {
	if !many {
		if b == nil || len(b.children) == 0 {
			return document.Null()
		}
		return document.Object(b.children[0].Clone())
	}
	items := make([]document.Value, 0)
	if b != nil {
		for _, c := range b.children {
			items = append(items, document.Object(c.Clone()))
		}
	}
	return document.Array(items)
}

// fetch fills every buffer concurrently. The first failure cancels the
// remaining queries.
func (r *Resolver) fetch(ctx context.Context, buffers []*buffer) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.resources.Workers())

	for _, b := range buffers {
		g.Go(func() error {
			if err := r.resources.AcquireWorker(gctx); err != nil {
				return err
			}
			defer r.resources.ReleaseWorker()

			children, err := r.children(gctx, b)
			if err != nil {
				return fmt.Errorf("populate %s: %w", b.assoc.Alias, err)
			}
			b.children = children
			return nil
		})
	}
	return g.Wait()
}

func (r *Resolver) children(ctx context.Context, b *buffer) ([]document.Record, error) {
	c := b.assoc.Criteria
	switch s := b.assoc.Strategy.(type) {
	case HasFK:
		c = c.WithWhere(criteria.Eq(s.ChildKey, b.lookup))
		c.Skip = 0
		c.Limit = 1
		return r.finder.Find(ctx, s.Child, c)
	case ViaFK:
		return r.finder.Find(ctx, s.Child, c.WithWhere(criteria.Eq(s.ChildKey, b.lookup)))
	case ViaJunctor:
		rows, err := r.finder.Find(ctx, s.Junction, criteria.Criteria{
			Where: criteria.Eq(s.JunctionParentKey, b.lookup),
		})
		if err != nil {
			return nil, err
		}
		keys := junctionKeys(rows, s.JunctionChildKey)
		if len(keys) == 0 {
			return nil, nil
		}
		return r.finder.Find(ctx, s.Child, c.WithWhere(criteria.In(s.ChildKey, keys...)))
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownAssociationStrategy, s)
	}
}

// junctionKeys returns the distinct non-null values of field in junction
// order.
func junctionKeys(rows []document.Record, field string) []document.Value {
	seen := make(map[string]struct{}, len(rows))
	keys := make([]document.Value, 0, len(rows))
	for _, row := range rows {
		v, ok := row[field]
		if !ok || v.IsNull() {
			continue
		}
		k := v.Key()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, v)
	}
	return keys
}
