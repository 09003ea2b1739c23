package blobstore

import (
	"context"
	"errors"
	"io"
	"os"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations should return an error that satisfies `errors.Is(err, ErrNotFound)`.
// The default maps to `os.ErrNotExist`.
var ErrNotFound = os.ErrNotExist

// ErrLocked is returned by Locker.Lock when another holder owns the lock.
var ErrLocked = errors.New("blob is locked by another process")

// BlobStore reads and atomically replaces whole blobs.
type BlobStore interface {
	// Get returns the content of a blob.
	Get(ctx context.Context, name string) ([]byte, error)
	// Put replaces the content of a blob atomically.
	Put(ctx context.Context, name string, data []byte) error
	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error
	// List returns the sorted names of blobs with the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Locker is implemented by stores that support exclusive ownership of a blob.
type Locker interface {
	// Lock acquires exclusive ownership of name. It fails with ErrLocked if
	// another holder owns it. Closing the returned io.Closer releases it.
	Lock(ctx context.Context, name string) (io.Closer, error)
}

// Exists reports whether a blob exists.
func Exists(ctx context.Context, s BlobStore, name string) (bool, error) {
	_, err := s.Get(ctx, name)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}
