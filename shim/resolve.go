package shim

import (
	"context"
	"errors"
	"strings"

	"github.com/pgavlin/capfs/capability"
)

// splitPath returns the segments of path with "." dropped and ".." applied.
// ".." at the root stays at the root.
func splitPath(path string) []string {
	var segments []string
	for _, s := range strings.Split(path, "/") {
		switch s {
		case "", ".":
		case "..":
			if len(segments) > 0 {
				segments = segments[:len(segments)-1]
			}
		default:
			segments = append(segments, s)
		}
	}
	return segments
}

// resolve walks path from the root and returns a handle for the entry it
// names. Nothing is cached: every call starts over at the root.
func (fs *FS) resolve(ctx context.Context, op, path string, flags OpenFlags) (*handle, error) {
	segments := splitPath(path)
	if len(segments) == 0 {
		return &handle{path: "/", dir: fs.root, flags: flags}, nil
	}

	dir := fs.root
	for _, name := range segments[:len(segments)-1] {
		next, err := dir.GetDirectory(ctx, name, capability.GetOptions{})
		if err != nil {
			return nil, resolveError(op, path, err)
		}
		dir = next
	}

	name := segments[len(segments)-1]
	clean := "/" + strings.Join(segments, "/")

	if flags.Has(OpenDirectory) {
		d, err := dir.GetDirectory(ctx, name, capability.GetOptions{})
		if err != nil {
			return nil, resolveError(op, path, err)
		}
		return &handle{path: clean, dir: d, flags: flags}, nil
	}

	f, err := dir.GetFile(ctx, name, capability.GetOptions{Create: flags.Has(OpenCreate)})
	if err != nil {
		if !errors.Is(err, capability.ErrTypeMismatch) {
			return nil, newError(NotFound, op, path, err)
		}
		d, err := dir.GetDirectory(ctx, name, capability.GetOptions{})
		if err != nil {
			return nil, newError(NotFound, op, path, err)
		}
		return &handle{path: clean, dir: d, flags: flags}, nil
	}

	h := &handle{path: clean, file: f, flags: flags}
	if flags.Has(OpenTruncate) {
		if err := truncate(ctx, f); err != nil {
			return nil, ioError(op, path, err)
		}
	}
	if flags.Has(OpenAppend) {
		blob, err := f.Snapshot(ctx)
		if err != nil {
			return nil, ioError(op, path, err)
		}
		h.cursor = blob.Size
	}
	return h, nil
}

// truncate empties f by committing an empty swap copy.
func truncate(ctx context.Context, f capability.File) error {
	w, err := f.CreateWritable(ctx, capability.WritableOptions{})
	if err != nil {
		return err
	}
	return w.Close(ctx)
}
