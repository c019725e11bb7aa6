package jsfs

import (
	"fmt"

	"github.com/pgavlin/capfs/shim"
)

// statObject is the object passed to stat callbacks. The GOOS=js runtime reads
// its fields by name and calls isDirectory.
type statObject struct {
	st *shim.Stat
}

func (o *statObject) Get(property string) Value {
	st := o.st
	switch property {
	case "dev":
		return ValueOf(st.Dev)
	case "ino":
		return ValueOf(st.Ino)
	case "mode":
		return ValueOf(st.Mode)
	case "nlink":
		return ValueOf(st.Nlink)
	case "uid":
		return ValueOf(st.UID)
	case "gid":
		return ValueOf(st.GID)
	case "rdev":
		return ValueOf(st.Rdev)
	case "size":
		return ValueOf(st.Size)
	case "blksize":
		return ValueOf(st.Blksize)
	case "blocks":
		return ValueOf(st.Blocks)
	case "mtimeMs":
		if st.ModTime.IsZero() {
			return ValueOf(0)
		}
		return ValueOf(st.ModTime.UnixMilli())
	case "atimeMs", "ctimeMs":
		return ValueOf(0)
	default:
		return Undefined()
	}
}

func (o *statObject) Set(property string, value Value) {
}

func (o *statObject) Call(method string, args []Value) (Value, error) {
	if method == "isDirectory" {
		return ValueOf(o.st.IsDir()), nil
	}
	return Undefined(), fmt.Errorf("stat has no method %v", method)
}
