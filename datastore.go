package diskstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/diskstore/blobstore"
	"github.com/hupe1980/diskstore/internal/store"
	"github.com/hupe1980/diskstore/persistence"
	"github.com/hupe1980/diskstore/resource"
	"github.com/hupe1980/diskstore/schema"
)

// Datastore is one embedded document store backed by a single snapshot blob.
//
// Reads work on an immutable state and never wait for I/O. Mutations are
// serialized; each one builds the successor state, writes its snapshot and
// publishes the state only after the write succeeded.
//
// A Datastore is safe for concurrent use.
type Datastore struct {
	identity  string
	opts      options
	persist   *persistence.Manager
	state     *store.Store
	resources *resource.Controller
	metrics   MetricsCollector
	logger    *Logger

	mu     sync.Mutex // serializes mutations
	closed atomic.Bool
}

// Open loads the snapshot of the datastore identity, creating an empty one if
// none exists.
//
// Without WithBlobStore or WithDir the snapshot lives in memory.
func Open(ctx context.Context, identity string, optFns ...Option) (*Datastore, error) {
	if identity == "" {
		return nil, errors.New("diskstore: identity is required")
	}
	opts := applyOptions(optFns)

	blobs := opts.store
	switch {
	case blobs != nil:
	case opts.dir != "":
		blobs = blobstore.NewLocalStore(opts.dir)
	default:
		blobs = blobstore.NewMemoryStore()
	}

	name := opts.snapshotName
	if name == "" {
		name = identity + ".db"
	}

	rc := opts.resources()
	logger := opts.logger.WithIdentity(identity)

	m, err := persistence.NewManager(ctx, blobs, func(o *persistence.ManagerOptions) {
		o.Name = name
		o.Format = opts.format()
		o.Resources = rc
		o.Exclusive = opts.exclusive
		o.QueueSize = opts.queueSize
	})
	if err != nil {
		return nil, fmt.Errorf("diskstore: open %s: %w", identity, err)
	}

	snap, err := m.Load(ctx)
	if err != nil {
		logger.LogRecovery(ctx, name, 0, 0, err)
		_ = m.Close()
		return nil, fmt.Errorf("diskstore: open %s: %w", identity, err)
	}

	initial := store.FromSnapshot(snap)
	logger.LogRecovery(ctx, name, len(initial.Names()), countRecords(initial), nil)

	return &Datastore{
		identity:  identity,
		opts:      opts,
		persist:   m,
		state:     store.New(initial),
		resources: rc,
		metrics:   opts.metricsCollector,
		logger:    logger,
	}, nil
}

func countRecords(s *store.State) int {
	n := 0
	for _, name := range s.Names() {
		c, _ := s.Collection(name)
		n += c.Len()
	}
	return n
}

// Identity returns the identity the datastore was opened with.
func (ds *Datastore) Identity() string { return ds.identity }

// SnapshotName returns the blob name of the snapshot.
func (ds *Datastore) SnapshotName() string { return ds.persist.Name() }

// RegisterCollection defines a collection. Registering an existing collection
// replaces its schema and keeps its records and counters.
func (ds *Datastore) RegisterCollection(ctx context.Context, name string, sc schema.Schema) error {
	if err := sc.Validate(); err != nil {
		return fmt.Errorf("diskstore: register %s: %w", name, err)
	}
	return ds.mutate(ctx, func(tx *store.Tx) error {
		tx.Register(name, sc)
		return nil
	})
}

// Describe returns a copy of the schema of a collection.
func (ds *Datastore) Describe(name string) (schema.Schema, error) {
	if ds.closed.Load() {
		return nil, ErrClosed
	}
	c, err := ds.state.Load().Collection(name)
	if err != nil {
		return nil, err
	}
	return c.Schema().Clone(), nil
}

// Counters returns the auto-increment counters of a collection.
func (ds *Datastore) Counters(name string) (map[string]int64, error) {
	if ds.closed.Load() {
		return nil, ErrClosed
	}
	c, err := ds.state.Load().Collection(name)
	if err != nil {
		return nil, err
	}
	return c.Counters(), nil
}

// Collections returns the names of all collections, sorted.
func (ds *Datastore) Collections() []string {
	return ds.state.Load().Names()
}

// DropCollection removes a collection with its records, schema and counters.
func (ds *Datastore) DropCollection(ctx context.Context, name string) error {
	return ds.mutate(ctx, func(tx *store.Tx) error {
		return tx.Drop(name)
	})
}

// Close waits for pending snapshot writes and releases the snapshot lock.
// Further operations fail with ErrClosed.
func (ds *Datastore) Close() error {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	if ds.closed.Swap(true) {
		return nil
	}
	return ds.persist.Close()
}

// mutate runs fn on a transaction over the current state, persists the
// result and publishes it. Nothing is published if fn or the write fails.
func (ds *Datastore) mutate(ctx context.Context, fn func(tx *store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ds.mu.Lock()
	defer ds.mu.Unlock()
	if ds.closed.Load() {
		return ErrClosed
	}

	tx := ds.state.Load().Begin()
	if err := fn(tx); err != nil {
		return err
	}
	next := tx.Commit()

	res, err := ds.persist.Save(ctx, next.Snapshot())
	ds.metrics.RecordSnapshot(res.Bytes, res.Duration, err)
	ds.logger.LogSnapshot(ctx, ds.persist.Name(), res.Bytes, res.Duration, err)
	if err != nil {
		return fmt.Errorf("diskstore: persist: %w", err)
	}

	ds.state.Publish(next)
	return nil
}

// view returns the current state for a read.
func (ds *Datastore) view(ctx context.Context) (*store.State, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if ds.closed.Load() {
		return nil, ErrClosed
	}
	return ds.state.Load(), nil
}
