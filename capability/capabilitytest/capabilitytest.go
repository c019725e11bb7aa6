// Package capabilitytest holds helpers and a shared behavioral suite for
// capability stores.
package capabilitytest

import (
	"context"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgavlin/capfs/capability"
)

// MkdirAll creates every directory along slash-separated path.
func MkdirAll(t testing.TB, root capability.Directory, path string) capability.Directory {
	t.Helper()

	ctx := context.Background()
	dir := root
	for _, name := range strings.Split(path, "/") {
		if name == "" {
			continue
		}
		next, err := dir.GetDirectory(ctx, name, capability.GetOptions{Create: true})
		require.NoError(t, err)
		dir = next
	}
	return dir
}

// WriteFile creates path, along with its parent directories, and replaces its
// content with data.
func WriteFile(t testing.TB, root capability.Directory, path string, data []byte) capability.File {
	t.Helper()

	ctx := context.Background()
	parent, name := root, path
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		parent, name = MkdirAll(t, root, path[:i]), path[i+1:]
	}

	f, err := parent.GetFile(ctx, name, capability.GetOptions{Create: true})
	require.NoError(t, err)

	w, err := f.CreateWritable(ctx, capability.WritableOptions{})
	require.NoError(t, err)
	require.NoError(t, w.Write(ctx, 0, data))
	require.NoError(t, w.Close(ctx))
	return f
}

// ReadFile returns the content of the file at path.
func ReadFile(t testing.TB, root capability.Directory, path string) []byte {
	t.Helper()

	ctx := context.Background()
	parent, name := root, path
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		parent, name = MkdirAll(t, root, path[:i]), path[i+1:]
	}

	f, err := parent.GetFile(ctx, name, capability.GetOptions{})
	require.NoError(t, err)
	blob, err := f.Snapshot(ctx)
	require.NoError(t, err)
	return blob.Bytes()
}

// Names drains dir's entries and returns them sorted.
func Names(t testing.TB, dir capability.Directory) []string {
	t.Helper()

	var names []string
	for name, err := range dir.Entries(context.Background()) {
		require.NoError(t, err)
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run exercises the behavior every capability store must share. newRoot must
// return an empty root directory.
func Run(t *testing.T, newRoot func(t *testing.T) capability.Directory) {
	ctx := context.Background()

	t.Run("get missing without create", func(t *testing.T) {
		root := newRoot(t)

		_, err := root.GetFile(ctx, "missing", capability.GetOptions{})
		assert.ErrorIs(t, err, capability.ErrNotFound)
		_, err = root.GetDirectory(ctx, "missing", capability.GetOptions{})
		assert.ErrorIs(t, err, capability.ErrNotFound)
	})

	t.Run("create file", func(t *testing.T) {
		root := newRoot(t)

		f, err := root.GetFile(ctx, "a.txt", capability.GetOptions{Create: true})
		require.NoError(t, err)
		assert.Equal(t, "a.txt", f.Name())
		assert.Equal(t, capability.KindFile, f.Kind())

		blob, err := f.Snapshot(ctx)
		require.NoError(t, err)
		assert.Zero(t, blob.Size)
		assert.Empty(t, blob.Bytes())

		again, err := root.GetFile(ctx, "a.txt", capability.GetOptions{Create: true})
		require.NoError(t, err)
		assert.Equal(t, "a.txt", again.Name())
	})

	t.Run("create directory", func(t *testing.T) {
		root := newRoot(t)

		d, err := root.GetDirectory(ctx, "sub", capability.GetOptions{Create: true})
		require.NoError(t, err)
		assert.Equal(t, "sub", d.Name())
		assert.Equal(t, capability.KindDirectory, d.Kind())

		_, err = root.GetDirectory(ctx, "sub", capability.GetOptions{})
		require.NoError(t, err)
	})

	t.Run("type mismatch", func(t *testing.T) {
		root := newRoot(t)
		WriteFile(t, root, "file", []byte("x"))
		MkdirAll(t, root, "dir")

		_, err := root.GetFile(ctx, "dir", capability.GetOptions{})
		assert.ErrorIs(t, err, capability.ErrTypeMismatch)
		_, err = root.GetFile(ctx, "dir", capability.GetOptions{Create: true})
		assert.ErrorIs(t, err, capability.ErrTypeMismatch)
		_, err = root.GetDirectory(ctx, "file", capability.GetOptions{})
		assert.ErrorIs(t, err, capability.ErrTypeMismatch)
		_, err = root.GetDirectory(ctx, "file", capability.GetOptions{Create: true})
		assert.ErrorIs(t, err, capability.ErrTypeMismatch)
	})

	t.Run("invalid names", func(t *testing.T) {
		root := newRoot(t)

		for _, name := range []string{"", ".", "..", "a/b"} {
			_, err := root.GetFile(ctx, name, capability.GetOptions{Create: true})
			assert.ErrorIs(t, err, capability.ErrInvalidName, name)
			_, err = root.GetDirectory(ctx, name, capability.GetOptions{Create: true})
			assert.ErrorIs(t, err, capability.ErrInvalidName, name)
		}
	})

	t.Run("writable commits on close", func(t *testing.T) {
		root := newRoot(t)
		f := WriteFile(t, root, "f", []byte("hello"))

		w, err := f.CreateWritable(ctx, capability.WritableOptions{KeepExistingData: true})
		require.NoError(t, err)
		require.NoError(t, w.Write(ctx, 5, []byte(" world")))

		blob, err := f.Snapshot(ctx)
		require.NoError(t, err)
		assert.Equal(t, "hello", string(blob.Bytes()))

		require.NoError(t, w.Close(ctx))

		blob, err = f.Snapshot(ctx)
		require.NoError(t, err)
		assert.Equal(t, "hello world", string(blob.Bytes()))
		assert.Equal(t, int64(11), blob.Size)
		assert.False(t, blob.LastModified.IsZero())
	})

	t.Run("writable without keep replaces content", func(t *testing.T) {
		root := newRoot(t)
		f := WriteFile(t, root, "f", []byte("hello"))

		w, err := f.CreateWritable(ctx, capability.WritableOptions{})
		require.NoError(t, err)
		require.NoError(t, w.Write(ctx, 0, []byte("hi")))
		require.NoError(t, w.Close(ctx))

		assert.Equal(t, "hi", string(ReadFile(t, root, "f")))
	})

	t.Run("writable sparse write zero fills", func(t *testing.T) {
		root := newRoot(t)
		f := WriteFile(t, root, "f", nil)

		w, err := f.CreateWritable(ctx, capability.WritableOptions{})
		require.NoError(t, err)
		require.NoError(t, w.Write(ctx, 3, []byte("x")))
		require.NoError(t, w.Close(ctx))

		assert.Equal(t, []byte{0, 0, 0, 'x'}, ReadFile(t, root, "f"))
	})

	t.Run("writable abort discards", func(t *testing.T) {
		root := newRoot(t)
		f := WriteFile(t, root, "f", []byte("keep"))

		w, err := f.CreateWritable(ctx, capability.WritableOptions{})
		require.NoError(t, err)
		require.NoError(t, w.Write(ctx, 0, []byte("discard me")))
		require.NoError(t, w.Abort(ctx))

		assert.Equal(t, "keep", string(ReadFile(t, root, "f")))
	})

	t.Run("entries", func(t *testing.T) {
		root := newRoot(t)
		WriteFile(t, root, "a.txt", []byte("a"))
		MkdirAll(t, root, "sub")
		WriteFile(t, root, "sub/nested.txt", []byte("n"))

		assert.Equal(t, []string{"a.txt", "sub"}, Names(t, root))

		sub, err := root.GetDirectory(ctx, "sub", capability.GetOptions{})
		require.NoError(t, err)
		assert.Equal(t, []string{"nested.txt"}, Names(t, sub))
	})

	t.Run("entries is single use", func(t *testing.T) {
		root := newRoot(t)
		WriteFile(t, root, "a.txt", []byte("a"))

		seq := root.Entries(ctx)
		count := 0
		for _, err := range seq {
			require.NoError(t, err)
			count++
		}
		assert.Equal(t, 1, count)

		for range seq {
			t.Fatal("second iteration yielded an entry")
		}
	})

	t.Run("entries stop early", func(t *testing.T) {
		root := newRoot(t)
		for _, name := range []string{"a", "b", "c"} {
			WriteFile(t, root, name, nil)
		}

		count := 0
		for range root.Entries(ctx) {
			count++
			break
		}
		assert.Equal(t, 1, count)
	})

	t.Run("snapshot is stable", func(t *testing.T) {
		root := newRoot(t)
		f := WriteFile(t, root, "f", []byte("before"))

		blob, err := f.Snapshot(ctx)
		require.NoError(t, err)

		WriteFile(t, root, "f", []byte("after"))
		assert.Equal(t, "before", string(blob.Bytes()))
	})
}
