//go:build unix

package aferocap

import (
	"errors"

	"golang.org/x/sys/unix"
)

func isNotDir(err error) bool {
	return errors.Is(err, unix.ENOTDIR)
}

func isDir(err error) bool {
	return errors.Is(err, unix.EISDIR)
}

// isNameTooLong reports host name limits. A symlink loop is treated the same:
// the name cannot be resolved to an entry.
func isNameTooLong(err error) bool {
	return errors.Is(err, unix.ENAMETOOLONG) || errors.Is(err, unix.ELOOP)
}
