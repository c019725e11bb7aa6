// Package capability defines the handle-based storage API consumed by the shim.
//
// There is no ambient path lookup: every Directory and File is derived from a
// previously obtained Directory, starting at a pre-opened root. Children are
// reached one name at a time via GetDirectory and GetFile, which optionally
// create the child. File content is only ever observed as a whole through
// Snapshot, and only ever changed through a Writable, whose writes land in a
// swap copy that replaces the file's content when the Writable is closed.
package capability

import (
	"context"
	"errors"
	"iter"
	"strings"
)

var (
	// ErrNotFound is returned when a requested child does not exist and was
	// not asked to be created, or when a handle's entry was removed.
	ErrNotFound = errors.New("capability: entry not found")

	// ErrTypeMismatch is returned when a child exists but is of the other
	// kind, e.g. GetFile on a directory.
	ErrTypeMismatch = errors.New("capability: entry type mismatch")

	// ErrNotAllowed is returned when the host refuses the operation.
	ErrNotAllowed = errors.New("capability: operation not allowed")

	// ErrInvalidName is returned for names that are empty, "." or "..", or
	// that contain a path separator.
	ErrInvalidName = errors.New("capability: invalid entry name")
)

// Kind distinguishes file handles from directory handles.
type Kind int

const (
	KindFile Kind = iota
	KindDirectory
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDirectory:
		return "directory"
	default:
		return "unknown"
	}
}

// Handle is implemented by every capability.
type Handle interface {
	Kind() Kind
	Name() string
}

type GetOptions struct {
	// Create requests that a missing child be created.
	Create bool
}

type WritableOptions struct {
	// KeepExistingData seeds the swap copy with the file's current content.
	// When false the swap copy starts out empty.
	KeepExistingData bool
}

// Directory is a capability for one directory.
type Directory interface {
	Handle

	GetDirectory(ctx context.Context, name string, options GetOptions) (Directory, error)
	GetFile(ctx context.Context, name string, options GetOptions) (File, error)

	// Entries enumerates the names of the directory's immediate children.
	// The sequence is lazy and single-use: iterating it a second time yields
	// nothing. Files and directories are not distinguished.
	Entries(ctx context.Context) iter.Seq2[string, error]
}

// File is a capability for one regular file.
type File interface {
	Handle

	// Snapshot returns the file's content and metadata as of the call.
	Snapshot(ctx context.Context) (*Blob, error)

	CreateWritable(ctx context.Context, options WritableOptions) (Writable, error)
}

// Writable is an open writer against a swap copy of a file.
//
// Exactly one of Close or Abort must be called. Close commits the swap copy
// as the file's new content; Abort discards it.
type Writable interface {
	// Write places p at position, zero-filling any gap past the current end.
	Write(ctx context.Context, position int64, p []byte) error
	Truncate(ctx context.Context, size int64) error
	Close(ctx context.Context) error
	Abort(ctx context.Context) error
}

// ValidateName checks that name names a single child entry.
func ValidateName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, "/\x00") {
		return ErrInvalidName
	}
	return nil
}
