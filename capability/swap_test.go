package capability

import (
	"context"
	"errors"
	"io"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSwapCommitsOnClose(t *testing.T) {
	ctx := context.Background()

	var committed []byte
	commits := 0
	s := NewSwap([]byte("hello"), func(_ context.Context, data []byte) error {
		committed, commits = data, commits+1
		return nil
	})

	require.NoError(t, s.Write(ctx, 5, []byte(" world")))
	assert.Zero(t, commits)

	require.NoError(t, s.Close(ctx))
	assert.Equal(t, 1, commits)
	assert.Equal(t, "hello world", string(committed))

	assert.ErrorIs(t, s.Close(ctx), ErrNotAllowed)
	assert.ErrorIs(t, s.Write(ctx, 0, []byte("x")), ErrNotAllowed)
}

func TestSwapDoesNotAliasInitial(t *testing.T) {
	initial := []byte("abc")
	s := NewSwap(initial, func(context.Context, []byte) error { return nil })
	require.NoError(t, s.Write(context.Background(), 0, []byte("X")))
	assert.Equal(t, "abc", string(initial))
}

func TestSwapZeroFillsGap(t *testing.T) {
	ctx := context.Background()

	var committed []byte
	s := NewSwap([]byte("ab"), func(_ context.Context, data []byte) error {
		committed = data
		return nil
	})
	require.NoError(t, s.Write(ctx, 4, []byte("z")))
	require.NoError(t, s.Close(ctx))
	assert.Equal(t, []byte{'a', 'b', 0, 0, 'z'}, committed)
}

func TestSwapTruncate(t *testing.T) {
	ctx := context.Background()

	var committed []byte
	s := NewSwap([]byte("abcdef"), func(_ context.Context, data []byte) error {
		committed = data
		return nil
	})
	require.NoError(t, s.Truncate(ctx, 2))
	require.NoError(t, s.Write(ctx, 3, []byte("q")))
	require.NoError(t, s.Truncate(ctx, 6))
	require.NoError(t, s.Close(ctx))
	assert.Equal(t, []byte{'a', 'b', 0, 'q', 0, 0}, committed)

	assert.Error(t, NewSwap(nil, nil).Truncate(ctx, -1))
}

func TestSwapAbortSkipsCommit(t *testing.T) {
	ctx := context.Background()

	s := NewSwap(nil, func(context.Context, []byte) error {
		return errors.New("unexpected commit")
	})
	require.NoError(t, s.Write(ctx, 0, []byte("data")))
	require.NoError(t, s.Abort(ctx))
	assert.ErrorIs(t, s.Close(ctx), ErrNotAllowed)
}

func TestBlobReadAt(t *testing.T) {
	b := NewBlob("f", []byte("content"), time.Unix(10, 0))
	assert.Equal(t, int64(7), b.Size)

	buf := make([]byte, 4)
	n, err := b.ReadAt(buf, 3)
	require.NoError(t, err)
	assert.Equal(t, "tent", string(buf[:n]))

	n, err = b.ReadAt(buf, 5)
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, "nt", string(buf[:n]))

	_, err = b.ReadAt(buf, 7)
	assert.Equal(t, io.EOF, err)
}

func TestValidateName(t *testing.T) {
	for _, name := range []string{"a", "a.txt", "...", ".hidden"} {
		assert.NoError(t, ValidateName(name), name)
	}
	for _, name := range []string{"", ".", "..", "a/b", "/", "nul\x00"} {
		assert.ErrorIs(t, ValidateName(name), ErrInvalidName, name)
	}
}

func TestSwapTooLarge(t *testing.T) {
	ctx := context.Background()

	commits := 0
	s := NewSwap([]byte("abc"), func(context.Context, []byte) error {
		commits++
		return nil
	})

	for _, position := range []int64{math.MaxInt64, math.MaxInt64 - 1, MaxFileSize} {
		assert.ErrorIs(t, s.Write(ctx, position, []byte("x")), ErrTooLarge)
	}
	assert.ErrorIs(t, s.Truncate(ctx, MaxFileSize+1), ErrTooLarge)

	require.NoError(t, s.Close(ctx))
	assert.Equal(t, 1, commits)
}
