// Package flock provides advisory file locks that keep two processes from
// writing the same snapshot.
package flock

import (
	"errors"
	"os"
)

// ErrLocked is returned by TryLock when another holder owns the lock.
var ErrLocked = errors.New("flock: file is locked")

// Lock is a held lock. It must be released with Unlock.
type Lock struct {
	f *os.File
}

// TryLock acquires an exclusive lock on path without blocking. The file is
// created if it does not exist.
func TryLock(path string) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, err
	}
	if err := tryLock(f); err != nil {
		_ = f.Close()
		return nil, err
	}
	return &Lock{f: f}, nil
}

// Unlock releases the lock and closes the lock file. The file itself is left
// in place.
func (l *Lock) Unlock() error {
	if l == nil || l.f == nil {
		return nil
	}
	err := unlock(l.f)
	if cerr := l.f.Close(); err == nil {
		err = cerr
	}
	l.f = nil
	return err
}

// Close implements io.Closer.
func (l *Lock) Close() error { return l.Unlock() }
