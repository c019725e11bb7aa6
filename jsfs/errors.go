package jsfs

import (
	"errors"
	"fmt"

	"github.com/pgavlin/capfs/shim"
)

var errDispatcherClosed = errors.New("dispatcher is closed")

// errorCode returns the errno name carried by err, if any.
func errorCode(err error) string {
	if kind := shim.KindOf(err); kind != 0 {
		return kind.Code()
	}
	return ""
}

// callbackError converts the outcome of a call into the callback's first
// argument.
func callbackError(err error) Value {
	if err == nil {
		return Null()
	}
	return ValueOf(err)
}

// panicError reports a recovered panic as a bad descriptor, which the guest
// already knows how to surface.
func panicError(op string, x interface{}) error {
	return &shim.Error{Kind: shim.BadDescriptor, Op: op, Err: fmt.Errorf("panic: %v", x)}
}
