package shim

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/pgavlin/capfs/capability"
)

// Read reads from fd into p. A non-negative position reads from that offset
// without consulting or changing the descriptor's state.
func (fs *FS) Read(ctx context.Context, fd int, p []byte, position int64) (n int, err error) {
	defer func(start time.Time) {
		fs.observe("read", fd, "", start, int64(n), err)
	}(time.Now())

	if isStdio(fd) {
		return fs.readStdio(fd, p)
	}

	h, ok := fs.lookup(fd)
	if !ok {
		return 0, newError(BadDescriptor, "read", "", nil)
	}
	if h.dir != nil {
		return 0, newError(IsADirectory, "read", h.path, nil)
	}

	blob, err := h.file.Snapshot(ctx)
	if err != nil {
		return 0, ioError("read", h.path, err)
	}

	if position >= 0 {
		return readAt(blob, p, position), nil
	}

	if fs.readMode == ReadStream {
		n = readAt(blob, p, h.cursor)
		h.cursor += int64(n)
		return n, nil
	}

	if h.eofPending {
		h.eofPending = false
		return 0, nil
	}
	n = readAt(blob, p, h.cursor)
	h.eofPending = true
	return n, nil
}

func readAt(blob *capability.Blob, p []byte, off int64) int {
	n, _ := blob.ReadAt(p, off)
	return n
}

func (fs *FS) readStdio(fd int, p []byte) (int, error) {
	if fd != FdStdin {
		return 0, newError(BadDescriptor, "read", "", nil)
	}
	if fs.stdin == nil || len(p) == 0 {
		return 0, nil
	}

	n, err := fs.stdin.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		return n, newError(BadDescriptor, "read", "", err)
	}
	return n, nil
}

// Write writes p to fd. A non-negative position writes at that offset and
// leaves the cursor alone; otherwise p lands at the cursor, which then
// advances past it.
//
// The first cursor write through a descriptor opened without O_APPEND
// replaces the file's content; later writes keep it. On an O_APPEND
// descriptor a positioned write lands at the end of the file.
func (fs *FS) Write(ctx context.Context, fd int, p []byte, position int64) (n int, err error) {
	defer func(start time.Time) {
		fs.observe("write", fd, "", start, int64(n), err)
	}(time.Now())

	if isStdio(fd) {
		return fs.writeStdio(fd, p)
	}

	h, ok := fs.lookup(fd)
	if !ok {
		return 0, newError(BadDescriptor, "write", "", nil)
	}
	if h.dir != nil {
		return 0, newError(IsADirectory, "write", h.path, nil)
	}
	if !h.flags.Writable() {
		return 0, newError(BadDescriptor, "write", h.path, nil)
	}
	if len(p) == 0 {
		return 0, nil
	}

	explicit := position >= 0
	offset := h.cursor
	switch {
	case explicit && h.flags.Has(OpenAppend):
		// Appends never overlap existing content, positioned or not.
		blob, err := h.file.Snapshot(ctx)
		if err != nil {
			return 0, ioError("write", h.path, err)
		}
		offset = blob.Size
	case explicit:
		offset = position
	}

	keep := h.flags.Has(OpenAppend) || h.written || explicit
	if err := writeAt(ctx, h.file, p, offset, keep); err != nil {
		return 0, ioError("write", h.path, err)
	}

	h.written = true
	if !explicit {
		h.cursor += int64(len(p))
	}
	return len(p), nil
}

// writeAt commits p at offset through a fresh writable. The writable is
// aborted if the write fails.
func writeAt(ctx context.Context, f capability.File, p []byte, offset int64, keep bool) (err error) {
	w, err := f.CreateWritable(ctx, capability.WritableOptions{KeepExistingData: keep})
	if err != nil {
		return err
	}

	committed := false
	defer func() {
		if !committed {
			w.Abort(ctx)
		}
	}()

	if err := w.Write(ctx, offset, p); err != nil {
		return err
	}
	committed = true
	return w.Close(ctx)
}

func (fs *FS) writeStdio(fd int, p []byte) (int, error) {
	var w io.Writer
	switch fd {
	case FdStdout:
		w = fs.stdout
	case FdStderr:
		w = fs.stderr
	default:
		return 0, newError(BadDescriptor, "write", "", nil)
	}

	n, err := w.Write(p)
	if err != nil {
		return n, newError(BadDescriptor, "write", "", err)
	}
	return n, nil
}

// Readdir returns the names of the entries in the directory at path. The
// order is the store's.
func (fs *FS) Readdir(ctx context.Context, path string) (names []string, err error) {
	defer func(start time.Time) {
		fs.observe("readdir", -1, path, start, int64(len(names)), err)
	}(time.Now())

	fd, err := fs.open(ctx, "readdir", path, OpenReadOnly)
	if err != nil {
		return nil, err
	}
	defer fs.table.Delete(fd)

	h, _ := fs.lookup(fd)
	if h.dir == nil {
		return nil, newError(NotADirectory, "readdir", path, nil)
	}

	seen := map[string]bool{}
	names = []string{}
	for name, err := range h.dir.Entries(ctx) {
		if err != nil {
			return nil, resolveError("readdir", path, err)
		}
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names, nil
}
