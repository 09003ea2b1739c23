package fs

import (
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// File represents an open file.
type File interface {
	io.ReadWriteCloser
	Sync() error
	Stat() (os.FileInfo, error)
}

// FileSystem abstracts file system operations for testability.
type FileSystem interface {
	OpenFile(name string, flag int, perm os.FileMode) (File, error)
	Remove(name string) error
	Rename(oldpath, newpath string) error
	Stat(name string) (os.FileInfo, error)
	MkdirAll(path string, perm os.FileMode) error
	ReadDir(name string) ([]os.DirEntry, error)
}

// LocalFS implements FileSystem using the local os package.
type LocalFS struct{}

func (LocalFS) OpenFile(name string, flag int, perm os.FileMode) (File, error) {
	return os.OpenFile(name, flag, perm)
}

func (LocalFS) Remove(name string) error              { return os.Remove(name) }
func (LocalFS) Rename(oldpath, newpath string) error  { return os.Rename(oldpath, newpath) }
func (LocalFS) Stat(name string) (os.FileInfo, error) { return os.Stat(name) }
func (LocalFS) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}
func (LocalFS) ReadDir(name string) ([]os.DirEntry, error) { return os.ReadDir(name) }

// Default is the default local file system.
var Default FileSystem = LocalFS{}

// TempSuffix marks files written by WriteFileAtomic that have not been
// renamed yet.
const TempSuffix = ".tmp"

// ReadFile reads the whole named file.
func ReadFile(fsys FileSystem, name string) ([]byte, error) {
	f, err := fsys.OpenFile(name, os.O_RDONLY, 0)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// WriteFileAtomic replaces name with data. On error the previous content of
// name is left untouched and the temp file is removed.
func WriteFileAtomic(fsys FileSystem, name string, data []byte, perm os.FileMode) (err error) {
	dir := filepath.Dir(name)
	tmpName := filepath.Join(dir, "."+filepath.Base(name)+"-"+uuid.NewString()+TempSuffix)

	tmp, err := fsys.OpenFile(tmpName, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = fsys.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		_ = fsys.Remove(tmpName)
		return err
	}
	if err = fsys.Rename(tmpName, name); err != nil {
		_ = fsys.Remove(tmpName)
		return err
	}

	// Best-effort: fsync the directory so the rename is durable on POSIX.
	if d, derr := fsys.OpenFile(dir, os.O_RDONLY, 0); derr == nil {
		_ = d.Sync()
		_ = d.Close()
	}
	return nil
}
