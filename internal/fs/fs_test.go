package fs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "data.db")

	require.NoError(t, WriteFileAtomic(Default, name, []byte("v1"), 0o644))
	require.NoError(t, WriteFileAtomic(Default, name, []byte("v2"), 0o644))

	data, err := ReadFile(Default, name)
	require.NoError(t, err)
	assert.Equal(t, "v2", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestWriteFileAtomicKeepsOldContentOnFailure(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "data.db")
	require.NoError(t, WriteFileAtomic(Default, name, []byte("old"), 0o644))

	cases := map[string]Fault{
		"write":  {FailAfterBytes: 0},
		"sync":   {FailAfterBytes: -1, FailOnSync: true},
		"close":  {FailAfterBytes: -1, FailOnClose: true},
		"rename": {FailAfterBytes: -1, FailOnRename: true},
	}
	for label, fault := range cases {
		t.Run(label, func(t *testing.T) {
			ffs := NewFaultyFS(nil)
			pattern := TempSuffix
			if fault.FailOnRename {
				pattern = "data.db"
			}
			ffs.AddRule(pattern, fault)

			err := WriteFileAtomic(ffs, name, []byte("new"), 0o644)
			assert.ErrorIs(t, err, ErrInjected)

			data, err := ReadFile(Default, name)
			require.NoError(t, err)
			assert.Equal(t, "old", string(data))

			entries, err := os.ReadDir(dir)
			require.NoError(t, err)
			for _, e := range entries {
				assert.False(t, strings.HasSuffix(e.Name(), TempSuffix), "leftover %s", e.Name())
			}
		})
	}
}

func TestFaultyFS(t *testing.T) {
	tmp := t.TempDir()
	ffs := NewFaultyFS(LocalFS{})
	ffs.AddRule("faulty", Fault{FailAfterBytes: 5})

	f, err := ffs.OpenFile(filepath.Join(tmp, "faulty.txt"), os.O_CREATE|os.O_RDWR, 0o644)
	require.NoError(t, err)
	defer f.Close()

	n, err := f.Write([]byte("hello"))
	assert.NoError(t, err)
	assert.Equal(t, 5, n)

	n, err = f.Write([]byte("!"))
	assert.ErrorIs(t, err, ErrInjected)
	assert.Equal(t, 0, n)
	assert.Equal(t, int64(5), ffs.Written())

	ffs.AddRule("closed", Fault{FailOnOpen: true})
	_, err = ffs.OpenFile(filepath.Join(tmp, "closed.txt"), os.O_CREATE|os.O_RDWR, 0o644)
	assert.ErrorIs(t, err, ErrInjected)

	ffs.Reset()
	g, err := ffs.OpenFile(filepath.Join(tmp, "closed.txt"), os.O_CREATE|os.O_RDWR, 0o644)
	require.NoError(t, err)
	require.NoError(t, g.Close())
}
