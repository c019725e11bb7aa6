package shim

import (
	"context"
	"time"
)

// UnsupportedOps lists the calls that always fail with NotImplemented.
var UnsupportedOps = []string{
	"chmod",
	"chown",
	"fchmod",
	"fchown",
	"lchown",
	"link",
	"mkdir",
	"readlink",
	"rename",
	"rmdir",
	"symlink",
	"truncate",
	"unlink",
	"utimes",
	"ftruncate",
}

// Unsupported records a call to op and fails with NotImplemented. It never
// touches the store.
func (fs *FS) Unsupported(ctx context.Context, op, path string) (err error) {
	defer func(start time.Time) {
		fs.observe(op, -1, path, start, 0, err)
	}(time.Now())

	return newError(NotImplemented, op, path, nil)
}
