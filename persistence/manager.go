package persistence

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/hupe1980/diskstore/blobstore"
	"github.com/hupe1980/diskstore/resource"
)

var (
	// ErrManagerClosed is returned when operations are attempted on a closed manager.
	ErrManagerClosed = errors.New("persistence manager is closed")
)

// ManagerOptions configures the persistence manager.
type ManagerOptions struct {
	// Name is the blob the snapshot is stored in.
	Name string

	// Format controls codec, compression and encryption of written snapshots.
	// Reads detect the format from the blob.
	Format Format

	// Resources bounds write throughput. Nil means unlimited.
	Resources *resource.Controller

	// Exclusive takes the store's lock on Name for the lifetime of the
	// manager, if the store implements blobstore.Locker.
	Exclusive bool

	// QueueSize is the number of writes that may wait for the worker.
	QueueSize int
}

// WriteResult describes a completed snapshot write.
type WriteResult struct {
	Bytes    int
	Duration time.Duration
}

type writeRequest struct {
	ctx  context.Context
	snap *Snapshot
	done chan writeResponse
}

type writeResponse struct {
	result WriteResult
	err    error
}

// Manager loads and saves the snapshot of one datastore.
//
// Writes are executed one at a time, in submission order, by a single worker
// goroutine. Save blocks until its own write has finished, so a caller that
// gets nil back knows the snapshot containing its change is durable.
//
// The Manager is safe for concurrent use.
type Manager struct {
	store blobstore.BlobStore
	opts  ManagerOptions
	lock  io.Closer

	mu     sync.RWMutex
	closed bool
	queue  chan *writeRequest
	wg     sync.WaitGroup
}

// NewManager creates a manager and starts its write worker.
func NewManager(ctx context.Context, store blobstore.BlobStore, optFns ...func(*ManagerOptions)) (*Manager, error) {
	opts := ManagerOptions{QueueSize: 64}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Name == "" {
		return nil, errors.New("snapshot name is required")
	}
	if err := opts.Format.Validate(); err != nil {
		return nil, err
	}
	if opts.QueueSize < 0 {
		opts.QueueSize = 0
	}

	m := &Manager{
		store: store,
		opts:  opts,
		queue: make(chan *writeRequest, opts.QueueSize),
	}

	if opts.Exclusive {
		if locker, ok := store.(blobstore.Locker); ok {
			lock, err := locker.Lock(ctx, opts.Name)
			if err != nil {
				return nil, err
			}
			m.lock = lock
		}
	}

	m.wg.Add(1)
	go m.run()
	return m, nil
}

// Name returns the snapshot blob name.
func (m *Manager) Name() string { return m.opts.Name }

// Load reads the snapshot. A missing blob is initialized with an empty
// snapshot, which is written before Load returns.
func (m *Manager) Load(ctx context.Context) (*Snapshot, error) {
	data, err := m.store.Get(ctx, m.opts.Name)
	if errors.Is(err, blobstore.ErrNotFound) {
		snap := NewSnapshot()
		if _, err := m.Save(ctx, snap); err != nil {
			return nil, fmt.Errorf("initialize snapshot %s: %w", m.opts.Name, err)
		}
		return snap, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", m.opts.Name, err)
	}
	snap, err := Decode(data, m.opts.Format.Key)
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", m.opts.Name, err)
	}
	return snap, nil
}

// Save enqueues a write of snap and waits for it. Once enqueued, a write is
// not abandoned on context cancellation; the caller still gets its result.
func (m *Manager) Save(ctx context.Context, snap *Snapshot) (WriteResult, error) {
	req := &writeRequest{ctx: ctx, snap: snap, done: make(chan writeResponse, 1)}

	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return WriteResult{}, ErrManagerClosed
	}
	select {
	case m.queue <- req:
	case <-ctx.Done():
		m.mu.RUnlock()
		return WriteResult{}, ctx.Err()
	}
	m.mu.RUnlock()

	resp := <-req.done
	return resp.result, resp.err
}

func (m *Manager) run() {
	defer m.wg.Done()
	for req := range m.queue {
		res, err := m.write(req.ctx, req.snap)
		req.done <- writeResponse{result: res, err: err}
	}
}

func (m *Manager) write(ctx context.Context, snap *Snapshot) (WriteResult, error) {
	if err := ctx.Err(); err != nil {
		return WriteResult{}, err
	}
	start := time.Now()

	data, err := Encode(snap, m.opts.Format)
	if err != nil {
		return WriteResult{}, err
	}
	if err := m.opts.Resources.AcquireIO(ctx, len(data)); err != nil {
		return WriteResult{}, err
	}
	if err := m.store.Put(ctx, m.opts.Name, data); err != nil {
		return WriteResult{}, fmt.Errorf("write snapshot %s: %w", m.opts.Name, err)
	}
	return WriteResult{Bytes: len(data), Duration: time.Since(start)}, nil
}

// Close waits for queued writes to finish and releases the lock, if any.
// Further calls to Save fail with ErrManagerClosed.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	close(m.queue)
	m.mu.Unlock()

	m.wg.Wait()

	if m.lock != nil {
		return m.lock.Close()
	}
	return nil
}

// Destroy closes the manager and deletes the snapshot blob.
func (m *Manager) Destroy(ctx context.Context) error {
	if err := m.Close(); err != nil {
		return err
	}
	return m.store.Delete(ctx, m.opts.Name)
}
