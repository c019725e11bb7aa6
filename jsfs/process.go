package jsfs

import (
	"os"

	"github.com/pgavlin/capfs/shim"
)

const (
	ownerID = 1000
	umask   = 0o022
)

func constant(v int) Value {
	return ValueOf(func(_ []Value) (Value, error) {
		return ValueOf(v), nil
	})
}

// NewProcess returns the process object. Its identity matches the owner
// reported by stat, and its working directory is always the root.
func NewProcess() Value {
	return ValueOf(map[string]Value{
		"getuid":  constant(ownerID),
		"getgid":  constant(ownerID),
		"geteuid": constant(ownerID),
		"getegid": constant(ownerID),
		"getgroups": ValueOf(func(_ []Value) (Value, error) {
			return ValueOf([]Value{ValueOf(ownerID)}), nil
		}),
		"pid":  ValueOf(os.Getpid()),
		"ppid": ValueOf(os.Getppid()),
		"cwd": ValueOf(func(_ []Value) (Value, error) {
			return ValueOf("/"), nil
		}),
		"umask": constant(umask),
		"chdir": ValueOf(func(args []Value) (Value, error) {
			path := ""
			if len(args) > 0 {
				path = args[0].String()
			}
			return Undefined(), &shim.Error{Kind: shim.NotImplemented, Op: "chdir", Path: path}
		}),
	})
}
