// Package aferocap is a capability store over an afero filesystem.
//
// NewOS scopes a host directory with afero.NewBasePathFs, so no handle derived
// from the returned root can reach outside that directory.
package aferocap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"path"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/pgavlin/capfs/capability"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644

	readdirBatch = 64
)

// New returns the root directory of fs.
func New(fs afero.Fs) capability.Directory {
	return &directory{fs: fs, path: "/"}
}

// NewOS returns a root capability for the host directory dir. A relative dir
// is resolved against the working directory once, here.
func NewOS(dir string) (capability.Directory, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%v is not a directory", dir)
	}
	return New(afero.NewBasePathFs(afero.NewOsFs(), dir)), nil
}

// hostError maps afero and host errors onto the capability sentinels.
func hostError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("%w: %v", capability.ErrNotFound, err)
	case isNotDir(err), isDir(err):
		return fmt.Errorf("%w: %v", capability.ErrTypeMismatch, err)
	case isNameTooLong(err):
		return fmt.Errorf("%w: %v", capability.ErrInvalidName, err)
	case errors.Is(err, os.ErrPermission):
		return fmt.Errorf("%w: %v", capability.ErrNotAllowed, err)
	default:
		return err
	}
}

type directory struct {
	fs   afero.Fs
	path string
}

func (d *directory) Kind() capability.Kind {
	return capability.KindDirectory
}

func (d *directory) Name() string {
	if d.path == "/" {
		return ""
	}
	return path.Base(d.path)
}

// lookup stats the named child. A nil info and nil error means the child does
// not exist.
func (d *directory) lookup(name string) (string, os.FileInfo, error) {
	if err := capability.ValidateName(name); err != nil {
		return "", nil, err
	}

	p := path.Join(d.path, name)
	info, err := d.fs.Stat(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return p, nil, nil
		}
		return "", nil, hostError(err)
	}
	return p, info, nil
}

func (d *directory) GetDirectory(_ context.Context, name string, options capability.GetOptions) (capability.Directory, error) {
	p, info, err := d.lookup(name)
	switch {
	case err != nil:
		return nil, err
	case info == nil && !options.Create:
		return nil, capability.ErrNotFound
	case info == nil:
		if err := d.fs.Mkdir(p, dirPerm); err != nil {
			return nil, hostError(err)
		}
	case !info.IsDir():
		return nil, capability.ErrTypeMismatch
	}
	return &directory{fs: d.fs, path: p}, nil
}

func (d *directory) GetFile(_ context.Context, name string, options capability.GetOptions) (capability.File, error) {
	p, info, err := d.lookup(name)
	switch {
	case err != nil:
		return nil, err
	case info == nil && !options.Create:
		return nil, capability.ErrNotFound
	case info == nil:
		f, err := d.fs.OpenFile(p, os.O_WRONLY|os.O_CREATE, filePerm)
		if err != nil {
			return nil, hostError(err)
		}
		if err := f.Close(); err != nil {
			return nil, hostError(err)
		}
	case info.IsDir():
		return nil, capability.ErrTypeMismatch
	}
	return &file{fs: d.fs, path: p}, nil
}

func (d *directory) Entries(context.Context) iter.Seq2[string, error] {
	return capability.SingleUse(func(yield func(string, error) bool) {
		f, err := d.fs.Open(d.path)
		if err != nil {
			yield("", hostError(err))
			return
		}
		defer f.Close()

		for {
			names, err := f.Readdirnames(readdirBatch)
			for _, name := range names {
				if !yield(name, nil) {
					return
				}
			}
			if err == io.EOF || (err == nil && len(names) == 0) {
				return
			}
			if err != nil {
				yield("", hostError(err))
				return
			}
		}
	})
}

type file struct {
	fs   afero.Fs
	path string
}

func (f *file) Kind() capability.Kind {
	return capability.KindFile
}

func (f *file) Name() string {
	return path.Base(f.path)
}

func (f *file) Snapshot(context.Context) (*capability.Blob, error) {
	info, err := f.fs.Stat(f.path)
	if err != nil {
		return nil, hostError(err)
	}
	if info.IsDir() {
		return nil, capability.ErrTypeMismatch
	}
	data, err := afero.ReadFile(f.fs, f.path)
	if err != nil {
		return nil, hostError(err)
	}
	return capability.NewBlob(f.Name(), data, info.ModTime()), nil
}

func (f *file) CreateWritable(ctx context.Context, options capability.WritableOptions) (capability.Writable, error) {
	var initial []byte
	if options.KeepExistingData {
		blob, err := f.Snapshot(ctx)
		if err != nil {
			return nil, err
		}
		initial = blob.Bytes()
	} else if _, err := f.fs.Stat(f.path); err != nil {
		return nil, hostError(err)
	}
	return capability.NewSwap(initial, f.commit), nil
}

// commit replaces the file's content. Unlike the host API's swap files this
// is not atomic with respect to crashes.
func (f *file) commit(_ context.Context, data []byte) error {
	return hostError(afero.WriteFile(f.fs, f.path, data, filePerm))
}
