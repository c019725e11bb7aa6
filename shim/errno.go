package shim

import (
	"errors"

	"github.com/pgavlin/capfs/capability"
)

// Kind is the class of a failed call. Each kind corresponds to the errno code
// the GOOS=js runtime maps to a syscall.Errno.
type Kind int

const (
	NotImplemented Kind = iota + 1
	NotFound
	IsADirectory
	BadDescriptor
	NotADirectory
)

// Code returns the errno name for k.
func (k Kind) Code() string {
	switch k {
	case NotImplemented:
		return "ENOSYS"
	case NotFound:
		return "ENOENT"
	case IsADirectory:
		return "EISDIR"
	case BadDescriptor:
		return "EBADF"
	case NotADirectory:
		return "ENOTDIR"
	default:
		return "EINVAL"
	}
}

func (k Kind) String() string {
	switch k {
	case NotImplemented:
		return "function not implemented"
	case NotFound:
		return "no such file or directory"
	case IsADirectory:
		return "is a directory"
	case BadDescriptor:
		return "bad file descriptor"
	case NotADirectory:
		return "not a directory"
	default:
		return "invalid argument"
	}
}

// Error is the only error type returned by FS operations.
type Error struct {
	Kind Kind
	Op   string
	Path string
	Err  error
}

var (
	ErrNotImplemented = &Error{Kind: NotImplemented}
	ErrNotFound       = &Error{Kind: NotFound}
	ErrIsADirectory   = &Error{Kind: IsADirectory}
	ErrBadDescriptor  = &Error{Kind: BadDescriptor}
	ErrNotADirectory  = &Error{Kind: NotADirectory}
)

func (e *Error) Error() string {
	msg := e.Kind.String()
	switch {
	case e.Op == "":
		return msg
	case e.Path == "":
		return e.Op + ": " + msg
	default:
		return e.Op + " " + e.Path + ": " + msg
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Code returns the errno name for e's kind.
func (e *Error) Code() string {
	return e.Kind.Code()
}

// KindOf returns the kind of err, or 0 if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func newError(kind Kind, op, path string, err error) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

// resolveError translates a host failure during path resolution.
func resolveError(op, path string, err error) error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	if errors.Is(err, capability.ErrTypeMismatch) {
		return newError(NotADirectory, op, path, err)
	}
	return newError(NotFound, op, path, err)
}

// ioError translates a host failure inside an I/O adapter.
func ioError(op, path string, err error) error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	switch {
	case errors.Is(err, capability.ErrNotFound):
		return newError(NotFound, op, path, err)
	case errors.Is(err, capability.ErrTypeMismatch):
		return newError(IsADirectory, op, path, err)
	case errors.Is(err, capability.ErrTooLarge):
		return newError(BadDescriptor, op, path, err)
	default:
		return newError(BadDescriptor, op, path, err)
	}
}
