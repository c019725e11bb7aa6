package session

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgavlin/capfs/capability"
)

func TestMountSet(t *testing.T) {
	cases := []struct {
		in   string
		want Mount
		err  bool
	}{
		{in: "dir:.", want: Mount{Kind: "dir", Arg: "."}},
		{in: "dir:/a:b", want: Mount{Kind: "dir", Arg: "/a:b"}},
		{in: "bolt:fs.db", want: Mount{Kind: "bolt", Arg: "fs.db"}},
		{in: "mem:", want: Mount{Kind: "mem"}},
		{in: "mem", err: true},
		{in: "mem:x", err: true},
		{in: "bolt:", err: true},
		{in: "s3:bucket", err: true},
	}
	for _, c := range cases {
		t.Run(c.in, func(t *testing.T) {
			var m Mount
			err := m.Set(c.in)
			if c.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, c.want, m)
			assert.Equal(t, c.in, m.String())
		})
	}
}

func TestMountOpen(t *testing.T) {
	dir := t.TempDir()
	for _, m := range []Mount{
		{Kind: "dir", Arg: dir},
		{Kind: "bolt", Arg: filepath.Join(dir, "fs.db")},
		{Kind: "mem"},
	} {
		t.Run(m.Kind, func(t *testing.T) {
			root, closer, err := m.Open()
			require.NoError(t, err)
			defer closer.Close()

			_, err = root.GetFile(context.Background(), "f", capability.GetOptions{Create: true})
			assert.NoError(t, err)
		})
	}
}

func TestSessionTrace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.csv")
	config := &Config{Mount: Mount{Kind: "mem"}, Trace: path}

	s, err := config.Open()
	require.NoError(t, err)
	_, err = s.FS.Stat(context.Background(), "/")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	assert.FileExists(t, path)
}
