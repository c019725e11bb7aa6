//go:build !unix

package aferocap

import (
	"errors"
	"syscall"
)

func isNotDir(err error) bool {
	return errors.Is(err, syscall.ENOTDIR)
}

func isDir(err error) bool {
	return errors.Is(err, syscall.EISDIR)
}

func isNameTooLong(error) bool {
	return false
}
