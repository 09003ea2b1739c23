package join

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/diskstore/criteria"
	"github.com/hupe1980/diskstore/document"
	"github.com/hupe1980/diskstore/query"
	"github.com/hupe1980/diskstore/resource"
)

type memFinder struct {
	collections map[string][]document.Record
	pks         map[string]string
	failOn      string

	mu      sync.Mutex
	queries map[string]int
}

func newMemFinder() *memFinder {
	return &memFinder{
		collections: make(map[string][]document.Record),
		pks:         make(map[string]string),
		queries:     make(map[string]int),
	}
}

func (f *memFinder) add(name, pk string, records ...map[string]any) {
	f.pks[name] = pk
	for _, r := range records {
		f.collections[name] = append(f.collections[name], document.MustRecord(r))
	}
}

func (f *memFinder) Find(ctx context.Context, collection string, c criteria.Criteria) ([]document.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.queries[collection]++
	f.mu.Unlock()
	if collection == f.failOn {
		return nil, errors.New("boom")
	}
	res, err := query.Execute(f.collections[collection], c, criteria.DefaultOptions())
	if err != nil {
		return nil, err
	}
	return res.Records, nil
}

func (f *memFinder) PrimaryKey(collection string) (string, error) {
	pk, ok := f.pks[collection]
	if !ok {
		return "", errors.New("no collection " + collection)
	}
	return pk, nil
}

func records(in ...map[string]any) []document.Record {
	out := make([]document.Record, len(in))
	for i, r := range in {
		out[i] = document.MustRecord(r)
	}
	return out
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name         string
		instructions []Instruction
		want         Strategy
		wantErr      bool
	}{
		{
			name: "has fk",
			instructions: []Instruction{
				{Alias: "profile", Parent: "user", ParentKey: "profileId", Child: "profile", ChildKey: "id"},
			},
			want: HasFK{Child: "profile", ParentKey: "profileId", ChildKey: "id"},
		},
		{
			name: "via fk",
			instructions: []Instruction{
				{Alias: "pets", Parent: "user", ParentKey: "id", Child: "pet", ChildKey: "owner"},
			},
			want: ViaFK{Child: "pet", ParentKey: "id", ChildKey: "owner"},
		},
		{
			name: "via junctor",
			instructions: []Instruction{
				{Alias: "tags", Parent: "post", ParentKey: "id", Child: "post_tags", ChildKey: "post"},
				{Alias: "tags", Parent: "post_tags", ParentKey: "tag", Child: "tag", ChildKey: "id"},
			},
			want: ViaJunctor{
				ParentKey:         "id",
				Junction:          "post_tags",
				JunctionParentKey: "post",
				JunctionChildKey:  "tag",
				Child:             "tag",
				ChildKey:          "id",
			},
		},
		{
			name:    "no instructions",
			wantErr: true,
		},
		{
			name: "three instructions",
			instructions: []Instruction{
				{Alias: "a", Parent: "x", ParentKey: "id", Child: "y", ChildKey: "x"},
				{Alias: "a", Parent: "y", ParentKey: "id", Child: "z", ChildKey: "y"},
				{Alias: "a", Parent: "z", ParentKey: "id", Child: "w", ChildKey: "z"},
			},
			wantErr: true,
		},
		{
			name: "broken chain",
			instructions: []Instruction{
				{Alias: "tags", Parent: "post", ParentKey: "id", Child: "post_tags", ChildKey: "post"},
				{Alias: "tags", Parent: "other", ParentKey: "tag", Child: "tag", ChildKey: "id"},
			},
			wantErr: true,
		},
		{
			name: "missing key",
			instructions: []Instruction{
				{Alias: "pets", Parent: "user", Child: "pet", ChildKey: "owner"},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Classify(tt.instructions, "id")
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnknownAssociationStrategy)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGroupKeepsAliasOrder(t *testing.T) {
	f := newMemFinder()
	f.add("post", "id")
	f.add("post_tags", "id")

	assocs, err := Group([]Instruction{
		{Alias: "author", Parent: "post", ParentKey: "authorId", Child: "user", ChildKey: "id"},
		{Alias: "tags", Parent: "post", ParentKey: "id", Child: "post_tags", ChildKey: "post"},
		{Alias: "tags", Parent: "post_tags", ParentKey: "tag", Child: "tag", ChildKey: "id",
			Criteria: criteria.Criteria{Limit: 3}},
	}, f.PrimaryKey)
	require.NoError(t, err)
	require.Len(t, assocs, 2)

	assert.Equal(t, "author", assocs[0].Alias)
	assert.Equal(t, "hasFK", assocs[0].Strategy.Name())
	assert.Equal(t, "tags", assocs[1].Alias)
	assert.Equal(t, "viaJunctor", assocs[1].Strategy.Name())
	assert.Equal(t, 3, assocs[1].Criteria.Limit)
}

func TestPopulateHasFK(t *testing.T) {
	f := newMemFinder()
	f.add("user", "id")
	f.add("profile", "id",
		map[string]any{"id": 9, "bio": "x"},
		map[string]any{"id": 10, "bio": "y"},
	)

	parents := records(
		map[string]any{"id": 1, "profileId": 9},
		map[string]any{"id": 2, "profileId": 42},
		map[string]any{"id": 3},
	)

	r := NewResolver(f, nil)
	_, err := r.Populate(context.Background(), parents, []Instruction{
		{Alias: "profile", Parent: "user", ParentKey: "profileId", Child: "profile", ChildKey: "id"},
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"id":        int64(1),
		"profileId": int64(9),
		"profile":   map[string]any{"id": int64(9), "bio": "x"},
	}, parents[0].Map())
	assert.True(t, parents[1]["profile"].IsNull())
	assert.True(t, parents[2]["profile"].IsNull())
	assert.Equal(t, 2, f.queries["profile"])
}

func TestPopulateHasFKDistinctStringKeys(t *testing.T) {
	f := newMemFinder()
	f.add("user", "id")
	f.add("profile", "id",
		map[string]any{"id": "c", "bio": "x"},
		map[string]any{"id": "b\x00s:c", "bio": "y"},
	)

	parents := records(
		map[string]any{"id": "a\x00s:b", "profileId": "c"},
		map[string]any{"id": "a", "profileId": "b\x00s:c"},
	)

	r := NewResolver(f, nil)
	_, err := r.Populate(context.Background(), parents, []Instruction{
		{Alias: "profile", Parent: "user", ParentKey: "profileId", Child: "profile", ChildKey: "id"},
	})
	require.NoError(t, err)

	assert.Equal(t, "x", parents[0]["profile"].O["bio"].S)
	assert.Equal(t, "y", parents[1]["profile"].O["bio"].S)
	assert.Equal(t, 2, f.queries["profile"])
}

func TestPopulateViaFK(t *testing.T) {
	f := newMemFinder()
	f.add("user", "id")
	f.add("pet", "id",
		map[string]any{"id": 1, "owner": 1, "name": "rex"},
		map[string]any{"id": 2, "owner": 2, "name": "tom"},
		map[string]any{"id": 3, "owner": 1, "name": "ada"},
		map[string]any{"id": 4, "owner": 1, "name": "bo"},
	)

	parents := records(
		map[string]any{"id": 1},
		map[string]any{"id": 2},
		map[string]any{"id": 3},
	)

	r := NewResolver(f, nil)
	_, err := r.Populate(context.Background(), parents, []Instruction{
		{
			Alias: "pets", Parent: "user", ParentKey: "id", Child: "pet", ChildKey: "owner",
			Criteria: criteria.Criteria{
				Sort:   []criteria.SortKey{{Field: "name", Direction: criteria.Asc}},
				Limit:  2,
				Select: []string{"name"},
			},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []any{
		map[string]any{"name": "ada"},
		map[string]any{"name": "bo"},
	}, parents[0]["pets"].Interface())
	assert.Equal(t, []any{map[string]any{"name": "tom"}}, parents[1]["pets"].Interface())

	pets, ok := parents[2]["pets"].AsArray()
	require.True(t, ok)
	assert.Empty(t, pets)
}

func TestPopulateViaJunctorPerParentLimit(t *testing.T) {
	f := newMemFinder()
	f.add("post", "id")
	f.add("post_tags", "id",
		map[string]any{"id": 1, "post": 1, "tag": 10},
		map[string]any{"id": 2, "post": 1, "tag": 11},
		map[string]any{"id": 3, "post": 1, "tag": 12},
		map[string]any{"id": 4, "post": 2, "tag": 12},
		map[string]any{"id": 5, "post": 2, "tag": 12},
	)
	f.add("tag", "id",
		map[string]any{"id": 10, "label": "go"},
		map[string]any{"id": 11, "label": "db"},
		map[string]any{"id": 12, "label": "cli"},
	)

	parents := records(
		map[string]any{"id": 1, "title": "a"},
		map[string]any{"id": 2, "title": "b"},
		map[string]any{"id": 3, "title": "c"},
	)

	r := NewResolver(f, resource.NewController(resource.Config{MaxWorkers: 2}))
	stats, err := r.Populate(context.Background(), parents, []Instruction{
		{Alias: "tags", Parent: "post", ParentKey: "id", Child: "post_tags", ChildKey: "post"},
		{
			Alias: "tags", Parent: "post_tags", ParentKey: "tag", Child: "tag", ChildKey: "id",
			Criteria: criteria.Criteria{
				Sort:  []criteria.SortKey{{Field: "label", Direction: criteria.Desc}},
				Limit: 2,
			},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, Stats{Associations: 1, Queries: 3}, stats)

	assert.Equal(t, []any{
		map[string]any{"id": int64(10), "label": "go"},
		map[string]any{"id": int64(11), "label": "db"},
	}, parents[0]["tags"].Interface())
	assert.Equal(t, []any{
		map[string]any{"id": int64(12), "label": "cli"},
	}, parents[1]["tags"].Interface())
	assert.Equal(t, []any{}, parents[2]["tags"].Interface())

	// parent 3 has no junction rows, so no child query was issued for it
	assert.Equal(t, 2, f.queries["tag"])
}

func TestPopulateSharedChildrenAreIndependent(t *testing.T) {
	f := newMemFinder()
	f.add("user", "id")
	f.add("team", "id", map[string]any{"id": 7, "name": "core"})

	parents := records(
		map[string]any{"id": 1, "teamId": 7},
		map[string]any{"id": 2, "teamId": 7},
	)

	r := NewResolver(f, nil)
	_, err := r.Populate(context.Background(), parents, []Instruction{
		{Alias: "team", Parent: "user", ParentKey: "teamId", Child: "team", ChildKey: "id"},
	})
	require.NoError(t, err)

	team, ok := parents[0]["team"].AsObject()
	require.True(t, ok)
	team["name"] = document.String("changed")

	other, ok := parents[1]["team"].AsObject()
	require.True(t, ok)
	assert.Equal(t, "core", other["name"].S)
}

func TestPopulateFailureLeavesParentsUntouched(t *testing.T) {
	f := newMemFinder()
	f.add("user", "id")
	f.add("pet", "id", map[string]any{"id": 1, "owner": 1})
	f.add("profile", "id", map[string]any{"id": 9})
	f.failOn = "pet"

	parents := records(
		map[string]any{"id": 1, "profileId": 9},
		map[string]any{"id": 2, "profileId": 9},
	)

	r := NewResolver(f, nil)
	_, err := r.Populate(context.Background(), parents, []Instruction{
		{Alias: "profile", Parent: "user", ParentKey: "profileId", Child: "profile", ChildKey: "id"},
		{Alias: "pets", Parent: "user", ParentKey: "id", Child: "pet", ChildKey: "owner"},
	})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "populate pets"))

	for _, p := range parents {
		assert.NotContains(t, p, "profile")
		assert.NotContains(t, p, "pets")
	}
}

func TestPopulateUnknownStrategy(t *testing.T) {
	f := newMemFinder()
	f.add("user", "id")

	parents := records(map[string]any{"id": 1})
	_, err := NewResolver(f, nil).Populate(context.Background(), parents, []Instruction{
		{Alias: "x", Parent: "user", ParentKey: "id", Child: "a", ChildKey: "user"},
		{Alias: "x", Parent: "b", ParentKey: "id", Child: "c", ChildKey: "id"},
	})
	require.ErrorIs(t, err, ErrUnknownAssociationStrategy)
	assert.NotContains(t, parents[0], "x")
}

type countingFinder struct {
	*memFinder
	active, peak atomic.Int32
}

func (f *countingFinder) Find(ctx context.Context, collection string, c criteria.Criteria) ([]document.Record, error) {
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	return f.memFinder.Find(ctx, collection, c)
}

func TestPopulateRespectsWorkerLimit(t *testing.T) {
	mf := newMemFinder()
	mf.add("user", "id")
	mf.add("pet", "id")

	var parents []document.Record
	for i := 0; i < 50; i++ {
		parents = append(parents, document.Record{"id": document.Int(int64(i))})
	}

	f := &countingFinder{memFinder: mf}
	r := NewResolver(f, resource.NewController(resource.Config{MaxWorkers: 3}))
	stats, err := r.Populate(context.Background(), parents, []Instruction{
		{Alias: "pets", Parent: "user", ParentKey: "id", Child: "pet", ChildKey: "owner"},
	})
	require.NoError(t, err)
	assert.Equal(t, 50, stats.Queries)
	assert.LessOrEqual(t, f.peak.Load(), int32(3))
}

func TestPopulateCanceledContext(t *testing.T) {
	f := newMemFinder()
	f.add("user", "id")
	f.add("pet", "id")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	parents := records(map[string]any{"id": 1})
	_, err := NewResolver(f, nil).Populate(ctx, parents, []Instruction{
		{Alias: "pets", Parent: "user", ParentKey: "id", Child: "pet", ChildKey: "owner"},
	})
	require.ErrorIs(t, err, context.Canceled)
}
