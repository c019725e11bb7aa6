package boltcap

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgavlin/capfs/capability"
	"github.com/pgavlin/capfs/capability/capabilitytest"
)

func openStore(t *testing.T, path string, options *Options) *Store {
	s, err := Open(path, options)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore(t *testing.T) {
	capabilitytest.Run(t, func(t *testing.T) capability.Directory {
		return openStore(t, filepath.Join(t.TempDir(), "fs.db"), nil).Root()
	})
}

func TestPersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fs.db")
	mtime := time.Unix(0, 1234567890)

	s, err := Open(path, &Options{Now: func() time.Time { return mtime }})
	require.NoError(t, err)
	capabilitytest.WriteFile(t, s.Root(), "a/b/c.txt", []byte("persisted"))
	require.NoError(t, s.Close())

	root := openStore(t, path, nil).Root()
	assert.Equal(t, "persisted", string(capabilitytest.ReadFile(t, root, "a/b/c.txt")))

	b := capabilitytest.MkdirAll(t, root, "a/b")
	f, err := b.GetFile(context.Background(), "c.txt", capability.GetOptions{})
	require.NoError(t, err)
	blob, err := f.Snapshot(context.Background())
	require.NoError(t, err)
	assert.True(t, mtime.Equal(blob.LastModified))
}

func TestEmptyFileIsNotDirectory(t *testing.T) {
	root := openStore(t, filepath.Join(t.TempDir(), "fs.db"), nil).Root()
	capabilitytest.WriteFile(t, root, "empty", nil)

	_, err := root.GetDirectory(context.Background(), "empty", capability.GetOptions{})
	assert.ErrorIs(t, err, capability.ErrTypeMismatch)
	assert.Empty(t, capabilitytest.ReadFile(t, root, "empty"))
}

func TestMismatchedIntermediate(t *testing.T) {
	root := openStore(t, filepath.Join(t.TempDir(), "fs.db"), nil).Root()
	capabilitytest.WriteFile(t, root, "f", []byte("x"))

	// A directory handle whose path runs through a file.
	d := &directory{s: root.(*directory).s, path: []string{"f"}}
	_, err := d.GetFile(context.Background(), "x", capability.GetOptions{})
	assert.ErrorIs(t, err, capability.ErrTypeMismatch)
}

func TestEntriesPaged(t *testing.T) {
	root := openStore(t, filepath.Join(t.TempDir(), "fs.db"), nil).Root()

	var want []string
	for i := 0; i < pageSize*2+1; i++ {
		name := fmt.Sprintf("f%03d", i)
		capabilitytest.WriteFile(t, root, name, nil)
		want = append(want, name)
	}
	capabilitytest.MkdirAll(t, root, "zdir")
	want = append(want, "zdir")

	assert.Equal(t, want, capabilitytest.Names(t, root))
}
