package capability

import (
	"context"
	"errors"
	"fmt"
)

// MaxFileSize bounds the content a Swap will hold.
const MaxFileSize = 1 << 31

// ErrTooLarge is returned by writes and truncations that would grow a file
// past MaxFileSize.
var ErrTooLarge = errors.New("capability: file too large")

var errWritableClosed = fmt.Errorf("writable already closed: %w", ErrNotAllowed)

// CommitFunc stores data as a file's new content.
type CommitFunc func(ctx context.Context, data []byte) error

// Swap is a Writable over an in-memory swap copy. Stores use it to implement
// CreateWritable: the swap copy is handed to commit on Close.
type Swap struct {
	buf    []byte
	commit CommitFunc
	closed bool
}

// NewSwap returns a Swap seeded with a copy of initial.
func NewSwap(initial []byte, commit CommitFunc) *Swap {
	return &Swap{
		buf:    append([]byte(nil), initial...),
		commit: commit,
	}
}

func (s *Swap) Write(_ context.Context, position int64, p []byte) error {
	if s.closed {
		return errWritableClosed
	}
	if position < 0 {
		return errors.New("capability: negative write position")
	}

	if position > MaxFileSize-int64(len(p)) {
		return ErrTooLarge
	}

	end := position + int64(len(p))
	if end > int64(len(s.buf)) {
		s.grow(end)
	}
	copy(s.buf[position:], p)
	return nil
}

func (s *Swap) Truncate(_ context.Context, size int64) error {
	if s.closed {
		return errWritableClosed
	}
	if size < 0 {
		return errors.New("capability: negative truncate size")
	}
	if size > MaxFileSize {
		return ErrTooLarge
	}

	if size > int64(len(s.buf)) {
		s.grow(size)
	} else {
		s.buf = s.buf[:size]
	}
	return nil
}

func (s *Swap) grow(size int64) {
	if size <= int64(cap(s.buf)) {
		tail := s.buf[len(s.buf):size]
		for i := range tail {
			tail[i] = 0
		}
		s.buf = s.buf[:size]
		return
	}
	buf := make([]byte, size, size+size/4)
	copy(buf, s.buf)
	s.buf = buf
}

func (s *Swap) Close(ctx context.Context) error {
	if s.closed {
		return errWritableClosed
	}
	s.closed = true
	return s.commit(ctx, s.buf)
}

func (s *Swap) Abort(context.Context) error {
	if s.closed {
		return errWritableClosed
	}
	s.closed, s.buf = true, nil
	return nil
}
