package shim

import (
	"time"

	"go.uber.org/zap"
)

// Call describes one completed FS operation.
type Call struct {
	Op string
	// FD is the descriptor operated on, or -1 for path operations.
	FD   int
	Path string
	// Result is the descriptor, byte count or entry count returned by the
	// operation.
	Result   int64
	Err      error
	Start    time.Time
	Duration time.Duration
}

// An Observer is notified after every FS operation.
type Observer interface {
	ObserveCall(c Call)
}

type ObserverFunc func(c Call)

func (f ObserverFunc) ObserveCall(c Call) {
	f(c)
}

func (fs *FS) observe(op string, fd int, path string, start time.Time, result int64, err error) {
	c := Call{
		Op:       op,
		FD:       fd,
		Path:     path,
		Result:   result,
		Err:      err,
		Start:    start,
		Duration: time.Since(start),
	}

	if ce := fs.log.Check(zap.DebugLevel, "fs call"); ce != nil {
		fields := []zap.Field{zap.String("op", op)}
		if fd >= 0 {
			fields = append(fields, zap.Int("fd", fd))
		}
		if path != "" {
			fields = append(fields, zap.String("path", path))
		}
		fields = append(fields, zap.Int64("result", result), zap.Duration("elapsed", c.Duration))
		if err != nil {
			fields = append(fields, zap.String("code", KindOf(err).Code()), zap.Error(err))
		}
		ce.Write(fields...)
	}

	if fs.observer != nil {
		fs.observer.ObserveCall(c)
	}
}
