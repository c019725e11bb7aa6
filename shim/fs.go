// Package shim emulates the POSIX file calls a GOOS=js program makes on top of
// a capability store.
//
// A program sees small integer descriptors and slash-separated paths. The
// store sees only handle derivation: every path is walked one segment at a
// time from the root capability, which is pre-opened as descriptor FdRoot.
package shim

import (
	"context"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/pgavlin/capfs/capability"
	"github.com/pgavlin/capfs/descriptor"
)

const (
	FdStdin  = 0
	FdStdout = 1
	FdStderr = 2

	// FdRoot is the pre-opened root directory. It sits directly above stdio
	// so that the first descriptor handed out by Open is 4, matching a
	// runtime with exactly one pre-opened directory.
	FdRoot = 3

	firstFD = FdRoot + 1
)

// ReadMode selects how Read treats the descriptor's cursor.
type ReadMode int

const (
	// ReadAlternate returns everything from the cursor onward on one call and
	// 0 on the next, alternating. The cursor never advances.
	ReadAlternate ReadMode = iota
	// ReadStream returns successive chunks, advancing the cursor, and 0 once
	// the cursor reaches the end of the file.
	ReadStream
)

func (m ReadMode) String() string {
	if m == ReadStream {
		return "stream"
	}
	return "alternate"
}

type Options struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	ReadMode ReadMode

	// Logger receives a debug entry per call. Defaults to zap.NewNop().
	Logger *zap.Logger

	// Observer, if non-nil, is notified after every call.
	Observer Observer
}

// handle is an open descriptor. Exactly one of dir or file is non-nil.
type handle struct {
	path string
	dir  capability.Directory
	file capability.File

	flags  OpenFlags
	cursor int64

	eofPending bool
	written    bool
}

// FS is one emulated filesystem. Independent FS values share no state.
//
// An FS expects at most one call in flight per descriptor; callers that issue
// calls from several goroutines must order them.
type FS struct {
	root  capability.Directory
	table *descriptor.Table[*handle]

	stdin    io.Reader
	stdout   io.Writer
	stderr   io.Writer
	readMode ReadMode

	log      *zap.Logger
	observer Observer
}

// New returns an FS whose root capability is bound to FdRoot.
func New(root capability.Directory, options *Options) *FS {
	if options == nil {
		options = &Options{}
	}

	fs := &FS{
		root:     root,
		table:    descriptor.NewTable[*handle](firstFD),
		stdin:    options.Stdin,
		stdout:   options.Stdout,
		stderr:   options.Stderr,
		readMode: options.ReadMode,
		log:      options.Logger,
		observer: options.Observer,
	}
	if fs.stdout == nil {
		fs.stdout = io.Discard
	}
	if fs.stderr == nil {
		fs.stderr = io.Discard
	}
	if fs.log == nil {
		fs.log = zap.NewNop()
	}
	fs.bindRoot()
	return fs
}

func (fs *FS) bindRoot() {
	fs.table.InsertAt(FdRoot, &handle{path: "/", dir: fs.root})
}

// Root returns the root capability.
func (fs *FS) Root() capability.Directory {
	return fs.root
}

func (fs *FS) lookup(fd int) (*handle, bool) {
	return fs.table.Lookup(fd)
}

func isStdio(fd int) bool {
	return fd >= FdStdin && fd <= FdStderr
}

// Open resolves path from the root and returns a new descriptor for it.
// O_EXCL is accepted but has no effect.
func (fs *FS) Open(ctx context.Context, path string, flags OpenFlags) (fd int, err error) {
	defer func(start time.Time) {
		fs.observe("open", -1, path, start, int64(fd), err)
	}(time.Now())

	return fs.open(ctx, "open", path, flags)
}

func (fs *FS) open(ctx context.Context, op, path string, flags OpenFlags) (int, error) {
	h, err := fs.resolve(ctx, op, path, flags)
	if err != nil {
		return -1, err
	}
	return fs.table.Insert(h), nil
}

// Close releases fd. It always succeeds; the root and stdio descriptors are
// never released.
func (fs *FS) Close(ctx context.Context, fd int) (err error) {
	defer func(start time.Time) {
		fs.observe("close", fd, "", start, 0, err)
	}(time.Now())

	if fd >= firstFD {
		fs.table.Delete(fd)
	}
	return nil
}

// Fsync always succeeds: every write is committed before Write returns.
func (fs *FS) Fsync(ctx context.Context, fd int) (err error) {
	defer func(start time.Time) {
		fs.observe("fsync", fd, "", start, 0, err)
	}(time.Now())

	return nil
}

// Fstat returns the metadata of the entry open as fd.
func (fs *FS) Fstat(ctx context.Context, fd int) (st *Stat, err error) {
	defer func(start time.Time) {
		fs.observe("fstat", fd, "", start, statSize(st), err)
	}(time.Now())

	return fs.fstat(ctx, "fstat", fd)
}

func (fs *FS) fstat(ctx context.Context, op string, fd int) (*Stat, error) {
	if isStdio(fd) {
		return deviceStat(), nil
	}

	h, ok := fs.lookup(fd)
	if !ok {
		return nil, newError(BadDescriptor, op, "", nil)
	}
	if h.dir != nil {
		return directoryStat(), nil
	}
	return fileStat(ctx, op, h.path, h.file)
}

// Stat returns the metadata of the entry at path.
func (fs *FS) Stat(ctx context.Context, path string) (st *Stat, err error) {
	defer func(start time.Time) {
		fs.observe("stat", -1, path, start, statSize(st), err)
	}(time.Now())

	return fs.stat(ctx, "stat", path)
}

// Lstat is Stat: there are no symbolic links.
func (fs *FS) Lstat(ctx context.Context, path string) (st *Stat, err error) {
	defer func(start time.Time) {
		fs.observe("lstat", -1, path, start, statSize(st), err)
	}(time.Now())

	return fs.stat(ctx, "lstat", path)
}

func (fs *FS) stat(ctx context.Context, op, path string) (*Stat, error) {
	fd, err := fs.open(ctx, op, path, OpenReadOnly)
	if err != nil {
		return nil, err
	}
	defer fs.table.Delete(fd)

	return fs.fstat(ctx, op, fd)
}

func statSize(st *Stat) int64 {
	if st == nil {
		return 0
	}
	return st.Size
}

// CloseAll releases every descriptor above the root.
func (fs *FS) CloseAll() {
	fs.table.Reset()
	fs.bindRoot()
}

// DescriptorInfo describes an open descriptor.
type DescriptorInfo struct {
	FD     int
	Path   string
	Kind   capability.Kind
	Flags  OpenFlags
	Cursor int64
}

// Descriptors lists the open descriptors, including the root, in ascending
// order.
func (fs *FS) Descriptors() []DescriptorInfo {
	var infos []DescriptorInfo
	fs.table.Range(func(fd int, h *handle) bool {
		kind := capability.KindFile
		if h.dir != nil {
			kind = capability.KindDirectory
		}
		infos = append(infos, DescriptorInfo{FD: fd, Path: h.path, Kind: kind, Flags: h.flags, Cursor: h.cursor})
		return true
	})
	return infos
}
