package aferocap

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgavlin/capfs/capability"
	"github.com/pgavlin/capfs/capability/capabilitytest"
)

func TestMemMapFs(t *testing.T) {
	capabilitytest.Run(t, func(t *testing.T) capability.Directory {
		return New(afero.NewMemMapFs())
	})
}

func TestOsFs(t *testing.T) {
	capabilitytest.Run(t, func(t *testing.T) capability.Directory {
		root, err := NewOS(t.TempDir())
		require.NoError(t, err)
		return root
	})
}

func TestNewOSRejectsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	_, err := NewOS(path)
	assert.Error(t, err)

	_, err = NewOS(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestNewOSRelative(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	rel, err := filepath.Rel(wd, dir)
	require.NoError(t, err)
	require.False(t, filepath.IsAbs(rel))

	root, err := NewOS(rel)
	require.NoError(t, err)

	capabilitytest.WriteFile(t, root, "sub/x.txt", []byte("hi"))
	assert.Equal(t, "hi", string(capabilitytest.ReadFile(t, root, "sub/x.txt")))

	data, err := os.ReadFile(filepath.Join(dir, "sub", "x.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hi", string(data))
}

func TestHostVisible(t *testing.T) {
	dir := t.TempDir()
	root, err := NewOS(dir)
	require.NoError(t, err)

	capabilitytest.WriteFile(t, root, "sub/hello.txt", []byte("hi"))

	data, err := os.ReadFile(filepath.Join(dir, "sub", "hello.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hi", string(data))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "host.txt"), []byte("from host"), 0o644))
	assert.Equal(t, "from host", string(capabilitytest.ReadFile(t, root, "host.txt")))
}

func TestScopedToBase(t *testing.T) {
	parent := t.TempDir()
	base := filepath.Join(parent, "base")
	require.NoError(t, os.Mkdir(base, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(parent, "secret"), []byte("s"), 0o644))

	root, err := NewOS(base)
	require.NoError(t, err)

	_, err = root.GetFile(context.Background(), "..", capability.GetOptions{})
	assert.ErrorIs(t, err, capability.ErrInvalidName)
	_, err = root.GetFile(context.Background(), "secret", capability.GetOptions{})
	assert.ErrorIs(t, err, capability.ErrNotFound)
}

func TestHostError(t *testing.T) {
	cases := []struct {
		err  error
		want error
	}{
		{&os.PathError{Op: "stat", Path: "x", Err: os.ErrNotExist}, capability.ErrNotFound},
		{&os.PathError{Op: "open", Path: "x", Err: os.ErrPermission}, capability.ErrNotAllowed},
	}
	for _, c := range cases {
		assert.ErrorIs(t, hostError(c.err), c.want)
	}
	assert.NoError(t, hostError(nil))
}
