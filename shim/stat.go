package shim

import (
	"context"
	"time"

	"github.com/pgavlin/capfs/capability"
)

const (
	ModeType       = 0o170000
	ModeDir        = 0o040000
	ModeRegular    = 0o100000
	ModeCharDevice = 0o020000

	filePerm   = 0o755
	devicePerm = 0o620

	// ownerID is reported as the owner and group of every entry.
	ownerID = 1000

	blockSize = 512
)

// Stat is a synthesized POSIX stat record. Fields the host has no notion of
// are zero.
type Stat struct {
	Dev     uint64
	Ino     uint64
	Mode    uint32
	Nlink   uint32
	UID     uint32
	GID     uint32
	Rdev    uint64
	Size    int64
	Blksize int64
	Blocks  int64
	ModTime time.Time
}

func (s *Stat) IsDir() bool {
	return s.Mode&ModeType == ModeDir
}

func newStat(mode uint32, size int64, modTime time.Time) *Stat {
	return &Stat{
		Mode:    mode,
		UID:     ownerID,
		GID:     ownerID,
		Size:    size,
		Blksize: blockSize,
		Blocks:  (size + blockSize - 1) / blockSize,
		ModTime: modTime,
	}
}

func directoryStat() *Stat {
	return newStat(ModeDir|filePerm, 0, time.Time{})
}

func deviceStat() *Stat {
	return newStat(ModeCharDevice|devicePerm, 0, time.Time{})
}

// fileStat takes a fresh snapshot of f. A resolved file that can no longer be
// read was removed out from under us.
func fileStat(ctx context.Context, op, path string, f capability.File) (*Stat, error) {
	blob, err := f.Snapshot(ctx)
	if err != nil {
		return nil, newError(NotFound, op, path, err)
	}
	return newStat(ModeRegular|filePerm, blob.Size, blob.LastModified), nil
}
