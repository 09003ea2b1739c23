package persistence

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hupe1980/diskstore/blobstore"
	"github.com/hupe1980/diskstore/codec"
	"github.com/hupe1980/diskstore/document"
	"github.com/hupe1980/diskstore/internal/fs"
	"github.com/hupe1980/diskstore/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withName(name string) func(*ManagerOptions) {
	return func(o *ManagerOptions) { o.Name = name }
}

func TestManagerLoadInitializesMissingSnapshot(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	m, err := NewManager(ctx, store, withName("app.db"))
	require.NoError(t, err)
	defer m.Close()

	snap, err := m.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, NewSnapshot(), snap)

	data, err := store.Get(ctx, "app.db")
	require.NoError(t, err)
	assert.JSONEq(t, `{"data":{},"schema":{},"counters":{}}`, string(data))
}

func TestManagerSaveLoad(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewLocalStore(t.TempDir())

	m, err := NewManager(ctx, store, withName("app.db"), func(o *ManagerOptions) {
		o.Format = Format{Codec: codec.BSON{}, Compression: CompressionZSTD}
		o.Resources = resource.NewController(resource.Config{IOLimitBytesPerSec: 1 << 20})
	})
	require.NoError(t, err)

	res, err := m.Save(ctx, sampleSnapshot())
	require.NoError(t, err)
	assert.Greater(t, res.Bytes, 0)
	require.NoError(t, m.Close())

	// A manager configured with a different format still reads it.
	m2, err := NewManager(ctx, store, withName("app.db"))
	require.NoError(t, err)
	defer m2.Close()

	snap, err := m2.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleSnapshot(), snap)
}

func TestManagerLoadCorrupt(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	require.NoError(t, store.Put(ctx, "app.db", []byte("{broken")))

	m, err := NewManager(ctx, store, withName("app.db"))
	require.NoError(t, err)
	defer m.Close()

	_, err = m.Load(ctx)
	assert.ErrorIs(t, err, ErrCorrupt)

	data, err := store.Get(ctx, "app.db")
	require.NoError(t, err)
	assert.Equal(t, "{broken", string(data), "a corrupt snapshot is never overwritten by Load")
}

func TestManagerLoadEmptyBlob(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	require.NoError(t, store.Put(ctx, "app.db", nil))

	m, err := NewManager(ctx, store, withName("app.db"))
	require.NoError(t, err)
	defer m.Close()

	snap, err := m.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.Data)
}

func TestManagerWriteFailureSurfaces(t *testing.T) {
	ctx := context.Background()
	ffs := fs.NewFaultyFS(nil)
	store := blobstore.NewLocalStore(t.TempDir(), blobstore.WithFileSystem(ffs))

	m, err := NewManager(ctx, store, withName("app.db"))
	require.NoError(t, err)
	defer m.Close()

	_, err = m.Save(ctx, sampleSnapshot())
	require.NoError(t, err)

	ffs.AddRule(fs.TempSuffix, fs.Fault{FailOnSync: true, FailAfterBytes: -1})
	next := sampleSnapshot()
	next.Data["users"] = append(next.Data["users"], document.Record{"id": document.Int(3)})
	_, err = m.Save(ctx, next)
	assert.ErrorIs(t, err, fs.ErrInjected)

	ffs.Reset()
	snap, err := m.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.Data["users"], 2, "the failed write left the previous snapshot in place")
}

// countingStore records the order in which Puts happen and checks that they
// never overlap.
type countingStore struct {
	*blobstore.MemoryStore
	active  atomic.Int32
	overlap atomic.Bool
	mu      sync.Mutex
	order   []int
}

func (s *countingStore) Put(ctx context.Context, name string, data []byte) error {
	if s.active.Add(1) > 1 {
		s.overlap.Store(true)
	}
	defer s.active.Add(-1)
	time.Sleep(time.Millisecond)

	snap, err := Decode(data, nil)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.order = append(s.order, int(snap.Counters["seq"]["n"]))
	s.mu.Unlock()
	return s.MemoryStore.Put(ctx, name, data)
}

func TestManagerSerializesWrites(t *testing.T) {
	ctx := context.Background()
	store := &countingStore{MemoryStore: blobstore.NewMemoryStore()}
	m, err := NewManager(ctx, store, withName("app.db"))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			snap := NewSnapshot()
			snap.Counters["seq"] = map[string]int64{"n": int64(n)}
			_, err := m.Save(ctx, snap)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()
	require.NoError(t, m.Close())

	assert.False(t, store.overlap.Load(), "writes must not run concurrently")
	assert.Len(t, store.order, 20)
}

func TestManagerClosed(t *testing.T) {
	ctx := context.Background()
	m, err := NewManager(ctx, blobstore.NewMemoryStore(), withName("app.db"))
	require.NoError(t, err)
	require.NoError(t, m.Close())
	require.NoError(t, m.Close())

	_, err = m.Save(ctx, NewSnapshot())
	assert.ErrorIs(t, err, ErrManagerClosed)
}

func TestManagerExclusive(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	exclusive := func(o *ManagerOptions) { o.Exclusive = true }

	m1, err := NewManager(ctx, store, withName("app.db"), exclusive)
	require.NoError(t, err)

	_, err = NewManager(ctx, store, withName("app.db"), exclusive)
	assert.ErrorIs(t, err, blobstore.ErrLocked)

	require.NoError(t, m1.Close())
	m2, err := NewManager(ctx, store, withName("app.db"), exclusive)
	require.NoError(t, err)
	require.NoError(t, m2.Destroy(ctx))

	_, err = store.Get(ctx, "app.db")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestNewManagerValidates(t *testing.T) {
	ctx := context.Background()
	_, err := NewManager(ctx, blobstore.NewMemoryStore())
	assert.Error(t, err)

	_, err = NewManager(ctx, blobstore.NewMemoryStore(), withName("x"), func(o *ManagerOptions) {
		o.Format.Key = []byte("short")
	})
	assert.Error(t, err)
}
