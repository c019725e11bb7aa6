package shim

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pgavlin/capfs/capability"
)

func TestKindCodes(t *testing.T) {
	cases := []struct {
		kind Kind
		code string
	}{
		{NotImplemented, "ENOSYS"},
		{NotFound, "ENOENT"},
		{IsADirectory, "EISDIR"},
		{BadDescriptor, "EBADF"},
		{NotADirectory, "ENOTDIR"},
	}
	for _, c := range cases {
		assert.Equal(t, c.code, c.kind.Code())
	}
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "open /a/b: no such file or directory", newError(NotFound, "open", "/a/b", nil).Error())
	assert.Equal(t, "read: bad file descriptor", newError(BadDescriptor, "read", "", nil).Error())
	assert.Equal(t, "not a directory", ErrNotADirectory.Error())
}

func TestErrorIs(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", newError(IsADirectory, "write", "/d", capability.ErrTypeMismatch))

	assert.ErrorIs(t, err, ErrIsADirectory)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, capability.ErrTypeMismatch)
	assert.Equal(t, IsADirectory, KindOf(err))
	assert.Equal(t, Kind(0), KindOf(errors.New("other")))
}

func TestTranslate(t *testing.T) {
	hostFailure := errors.New("host exploded")

	cases := []struct {
		name      string
		translate func(op, path string, err error) error
		err       error
		want      Kind
	}{
		{"resolve not found", resolveError, capability.ErrNotFound, NotFound},
		{"resolve mismatch", resolveError, capability.ErrTypeMismatch, NotADirectory},
		{"resolve invalid name", resolveError, capability.ErrInvalidName, NotFound},
		{"resolve unknown", resolveError, hostFailure, NotFound},
		{"io not found", ioError, capability.ErrNotFound, NotFound},
		{"io mismatch", ioError, capability.ErrTypeMismatch, IsADirectory},
		{"io not allowed", ioError, capability.ErrNotAllowed, BadDescriptor},
		{"io unknown", ioError, hostFailure, BadDescriptor},
		{"io too large", ioError, capability.ErrTooLarge, BadDescriptor},
		{"already translated", ioError, ErrNotImplemented, NotImplemented},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := c.translate("op", "/p", c.err)
			assert.Equal(t, c.want, KindOf(err))
		})
	}
}
