package blobstore

import (
	"context"
	"io"
	"sort"
	"strings"
	"sync"
)

// MemoryStore is an in-memory BlobStore implementation for tests and
// ephemeral datastores.
type MemoryStore struct {
	mu     sync.RWMutex
	blobs  map[string][]byte
	locked map[string]bool
}

// NewMemoryStore creates a new in-memory blob store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		blobs:  make(map[string][]byte),
		locked: make(map[string]bool),
	}
}

// Get returns a copy of the blob.
func (m *MemoryStore) Get(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.blobs[name]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

// Put stores a copy of data.
func (m *MemoryStore) Put(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.blobs[name] = append([]byte(nil), data...)
	return nil
}

// Delete removes a blob.
func (m *MemoryStore) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.blobs, name)
	return nil
}

// List returns all blobs matching the prefix.
func (m *MemoryStore) List(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.blobs))
	for name := range m.blobs {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Lock marks name as owned until the returned closer is closed.
func (m *MemoryStore) Lock(_ context.Context, name string) (io.Closer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.locked[name] {
		return nil, ErrLocked
	}
	m.locked[name] = true
	return &memoryLock{store: m, name: name}, nil
}

type memoryLock struct {
	once  sync.Once
	store *MemoryStore
	name  string
}

func (l *memoryLock) Close() error {
	l.once.Do(func() {
		l.store.mu.Lock()
		delete(l.store.locked, l.name)
		l.store.mu.Unlock()
	})
	return nil
}
