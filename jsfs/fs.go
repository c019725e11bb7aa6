// Package jsfs exposes a shim.FS as the globalThis.fs object a GOOS=js
// program calls into.
//
// Asynchronous calls take a callback as their last argument. The callback is
// invoked exactly once with an undefined receiver followed by (err, result),
// where err is null on success or an Error whose code property holds the
// errno name.
package jsfs

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/pgavlin/capfs/shim"
)

type Options struct {
	// Context is passed to every store call. Defaults to context.Background().
	Context context.Context

	// Logger defaults to zap.NewNop().
	Logger *zap.Logger

	// Dispatcher, if non-nil, runs calls on its worker goroutine. Otherwise
	// calls complete, callback included, before returning to the guest.
	Dispatcher *Dispatcher
}

type fsObject struct {
	*mapObject

	fs         *shim.FS
	ctx        context.Context
	log        *zap.Logger
	dispatcher *Dispatcher
}

// Constants returns the fs.constants object.
func Constants() Value {
	return ValueOf(map[string]Value{
		"O_WRONLY":    ValueOf(int(shim.OpenWriteOnly)),
		"O_RDWR":      ValueOf(int(shim.OpenReadWrite)),
		"O_CREAT":     ValueOf(int(shim.OpenCreate)),
		"O_EXCL":      ValueOf(int(shim.OpenExclusive)),
		"O_TRUNC":     ValueOf(int(shim.OpenTruncate)),
		"O_APPEND":    ValueOf(int(shim.OpenAppend)),
		"O_DIRECTORY": ValueOf(int(shim.OpenDirectory)),
	})
}

// NewFS returns the fs object for fs.
func NewFS(fs *shim.FS, options *Options) Value {
	if options == nil {
		options = &Options{}
	}

	o := &fsObject{
		fs:         fs,
		ctx:        options.Context,
		log:        options.Logger,
		dispatcher: options.Dispatcher,
	}
	if o.ctx == nil {
		o.ctx = context.Background()
	}
	if o.log == nil {
		o.log = zap.NewNop()
	}

	props := map[string]Value{
		"constants": Constants(),
		"writeSync": ValueOf(o.writeSync),
		"open":      o.async("open", o.open),
		"read":      o.async("read", o.read),
		"write":     o.async("write", o.write),
		"close":     o.async("close", o.close),
		"fsync":     o.async("fsync", o.fsync),
		"fstat":     o.async("fstat", o.fstat),
		"stat":      o.async("stat", o.stat(o.fs.Stat)),
		"lstat":     o.async("lstat", o.stat(o.fs.Lstat)),
		"readdir":   o.async("readdir", o.readdir),
	}
	for _, op := range shim.UnsupportedOps {
		props[op] = o.async(op, o.unsupported(op))
	}
	o.mapObject = &mapObject{props: props}
	return ValueOf(o)
}

type call func(ctx context.Context, args []Value) (Value, error)

// async wraps c as a callback-style function. The callback is the last
// argument and is not passed to c.
func (o *fsObject) async(op string, c call) Value {
	return ValueOf(func(args []Value) (Value, error) {
		if len(args) == 0 {
			return Undefined(), fmt.Errorf("%v: missing callback", op)
		}
		cb, ok := args[len(args)-1].Function()
		if !ok {
			return Undefined(), fmt.Errorf("%v: callback is not a function", op)
		}
		args = args[:len(args)-1]

		task := func() {
			result, err := o.run(op, c, args)
			if _, err := cb.Invoke([]Value{Undefined(), callbackError(err), result}); err != nil {
				o.log.Warn("fs callback failed", zap.String("op", op), zap.Error(err))
			}
		}

		if o.dispatcher == nil {
			task()
			return Undefined(), nil
		}
		return Undefined(), o.dispatcher.Submit(task)
	})
}

// run calls c, converting a panic into an error so that the callback still
// fires.
func (o *fsObject) run(op string, c call, args []Value) (result Value, err error) {
	defer func() {
		if x := recover(); x != nil {
			o.log.Error("fs call panicked", zap.String("op", op), zap.Any("panic", x))
			result, err = Undefined(), panicError(op, x)
		}
	}()

	return c(o.ctx, args)
}

// position decodes a read or write position; null and undefined mean the
// descriptor's cursor.
func position(v Value) int64 {
	if v.Type() != TypeNumber {
		return -1
	}
	return int64(v.Int())
}

// buffer returns the slice of a Uint8Array selected by offset and length.
func buffer(buf, offset, length Value) []byte {
	b, ok := buf.Uint8Array()
	if !ok {
		panic(fmt.Errorf("expected a Uint8Array, got %v", buf.Type()))
	}
	start, n := offset.Int(), length.Int()
	return b[start : start+n]
}

// open(path, flags, mode, callback)
func (o *fsObject) open(ctx context.Context, args []Value) (Value, error) {
	fd, err := o.fs.Open(ctx, args[0].String(), shim.OpenFlags(args[1].Int()))
	if err != nil {
		return Undefined(), err
	}
	return ValueOf(fd), nil
}

// read(fd, buffer, offset, length, position, callback)
func (o *fsObject) read(ctx context.Context, args []Value) (Value, error) {
	n, err := o.fs.Read(ctx, args[0].Int(), buffer(args[1], args[2], args[3]), position(args[4]))
	return ValueOf(n), err
}

// write(fd, buffer, offset, length, position, callback)
func (o *fsObject) write(ctx context.Context, args []Value) (Value, error) {
	n, err := o.fs.Write(ctx, args[0].Int(), buffer(args[1], args[2], args[3]), position(args[4]))
	return ValueOf(n), err
}

// writeSync(fd, buffer) is used by the runtime for console output.
func (o *fsObject) writeSync(args []Value) (Value, error) {
	b, ok := args[1].Uint8Array()
	if !ok {
		return Undefined(), fmt.Errorf("writeSync: expected a Uint8Array, got %v", args[1].Type())
	}
	n, err := o.fs.Write(o.ctx, args[0].Int(), b, -1)
	if err != nil {
		return Undefined(), err
	}
	return ValueOf(n), nil
}

// close(fd, callback)
func (o *fsObject) close(ctx context.Context, args []Value) (Value, error) {
	return Undefined(), o.fs.Close(ctx, args[0].Int())
}

// fsync(fd, callback)
func (o *fsObject) fsync(ctx context.Context, args []Value) (Value, error) {
	return Undefined(), o.fs.Fsync(ctx, args[0].Int())
}

// fstat(fd, callback)
func (o *fsObject) fstat(ctx context.Context, args []Value) (Value, error) {
	st, err := o.fs.Fstat(ctx, args[0].Int())
	if err != nil {
		return Undefined(), err
	}
	return ValueOf(&statObject{st: st}), nil
}

// stat(path, callback) and lstat(path, callback)
func (o *fsObject) stat(f func(context.Context, string) (*shim.Stat, error)) call {
	return func(ctx context.Context, args []Value) (Value, error) {
		st, err := f(ctx, args[0].String())
		if err != nil {
			return Undefined(), err
		}
		return ValueOf(&statObject{st: st}), nil
	}
}

// readdir(path, callback)
func (o *fsObject) readdir(ctx context.Context, args []Value) (Value, error) {
	names, err := o.fs.Readdir(ctx, args[0].String())
	if err != nil {
		return Undefined(), err
	}
	return ValueOf(names), nil
}

func (o *fsObject) unsupported(op string) call {
	return func(ctx context.Context, args []Value) (Value, error) {
		path := ""
		if len(args) > 0 && args[0].Type() == TypeString {
			path = args[0].String()
		}
		return Undefined(), o.fs.Unsupported(ctx, op, path)
	}
}
