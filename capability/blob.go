package capability

import (
	"io"
	"time"
)

// Blob is an immutable snapshot of a file.
type Blob struct {
	Name         string
	Size         int64
	LastModified time.Time

	data []byte
}

// NewBlob returns a blob over data. The caller must not modify data afterwards.
func NewBlob(name string, data []byte, lastModified time.Time) *Blob {
	return &Blob{
		Name:         name,
		Size:         int64(len(data)),
		LastModified: lastModified,
		data:         data,
	}
}

// Bytes returns the blob's content. The result must not be modified.
func (b *Blob) Bytes() []byte {
	return b.data
}

func (b *Blob) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, io.ErrUnexpectedEOF
	}
	if off >= int64(len(b.data)) {
		return 0, io.EOF
	}
	n := copy(p, b.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}
