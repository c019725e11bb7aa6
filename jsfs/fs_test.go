package jsfs

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgavlin/capfs/capability"
	"github.com/pgavlin/capfs/capability/capabilitytest"
	"github.com/pgavlin/capfs/capability/memcap"
	"github.com/pgavlin/capfs/shim"
)

// result is one callback invocation.
type result struct {
	err   Value
	value Value
}

// recorder collects callback invocations.
type recorder struct {
	m       sync.Mutex
	results []result
	done    chan struct{}
}

func newRecorder() *recorder {
	return &recorder{done: make(chan struct{}, 64)}
}

func (r *recorder) callback() Value {
	return ValueOf(func(args []Value) (Value, error) {
		r.m.Lock()
		r.results = append(r.results, result{err: args[1], value: args[2]})
		r.m.Unlock()
		r.done <- struct{}{}
		return Undefined(), nil
	})
}

// invoke calls method on fs and returns the single callback invocation.
func invoke(t *testing.T, fs Value, method string, args ...Value) result {
	t.Helper()

	r := newRecorder()
	_, err := fs.Call(method, append(args, r.callback()))
	require.NoError(t, err)
	<-r.done

	r.m.Lock()
	defer r.m.Unlock()
	require.Len(t, r.results, 1)
	return r.results[0]
}

func errorCodeOf(r result) string {
	if r.err.IsNull() {
		return ""
	}
	return r.err.Get("code").String()
}

func newTestFS(t *testing.T, options *Options) (Value, capability.Directory, *bytes.Buffer) {
	var stdout bytes.Buffer
	root := memcap.New(nil)
	fs := shim.New(root, &shim.Options{Stdout: &stdout})
	return NewFS(fs, options), root, &stdout
}

func TestConstants(t *testing.T) {
	fs, _, _ := newTestFS(t, nil)
	constants := fs.Get("constants")

	want := map[string]int{
		"O_WRONLY":    1,
		"O_RDWR":      2,
		"O_CREAT":     64,
		"O_EXCL":      128,
		"O_TRUNC":     512,
		"O_APPEND":    1024,
		"O_DIRECTORY": 65536,
	}
	for name, v := range want {
		assert.Equal(t, v, constants.Get(name).Int(), name)
	}
}

func TestOpenWriteReadClose(t *testing.T) {
	fs, root, _ := newTestFS(t, nil)

	r := invoke(t, fs, "open", ValueOf("/hello.txt"), ValueOf(64|512|1), ValueOf(0o644))
	require.True(t, r.err.IsNull())
	fd := r.value
	assert.Equal(t, 4, fd.Int())

	// Only "ll" is written: offset 2, length 2.
	r = invoke(t, fs, "write", fd, ValueOf([]byte("hello")), ValueOf(2), ValueOf(2), Null())
	require.True(t, r.err.IsNull())
	assert.Equal(t, 2, r.value.Int())
	assert.Equal(t, "ll", string(capabilitytest.ReadFile(t, root, "hello.txt")))

	r = invoke(t, fs, "close", fd)
	assert.True(t, r.err.IsNull())

	r = invoke(t, fs, "open", ValueOf("/hello.txt"), ValueOf(0), ValueOf(0))
	require.True(t, r.err.IsNull())
	fd = r.value

	buf := make([]byte, 8)
	r = invoke(t, fs, "read", fd, ValueOf(buf), ValueOf(1), ValueOf(4), Null())
	require.True(t, r.err.IsNull())
	assert.Equal(t, 2, r.value.Int())
	assert.Equal(t, []byte{0, 'l', 'l', 0, 0, 0, 0, 0}, buf)

	r = invoke(t, fs, "read", fd, ValueOf(buf), ValueOf(0), ValueOf(8), Null())
	require.True(t, r.err.IsNull())
	assert.Zero(t, r.value.Int())

	r = invoke(t, fs, "read", fd, ValueOf(buf), ValueOf(0), ValueOf(8), ValueOf(1))
	require.True(t, r.err.IsNull())
	assert.Equal(t, 1, r.value.Int())
	assert.Equal(t, byte('l'), buf[0])
}

func TestErrorCodes(t *testing.T) {
	fs, root, _ := newTestFS(t, nil)
	capabilitytest.WriteFile(t, root, "file", []byte("x"))

	cases := []struct {
		method string
		args   []Value
		code   string
	}{
		{"open", []Value{ValueOf("/missing"), ValueOf(0), ValueOf(0)}, "ENOENT"},
		{"stat", []Value{ValueOf("/file/child")}, "ENOTDIR"},
		{"lstat", []Value{ValueOf("/missing")}, "ENOENT"},
		{"readdir", []Value{ValueOf("/file")}, "ENOTDIR"},
		{"fstat", []Value{ValueOf(99)}, "EBADF"},
		{"read", []Value{ValueOf(3), ValueOf(make([]byte, 4)), ValueOf(0), ValueOf(4), Null()}, "EISDIR"},
		{"mkdir", []Value{ValueOf("/dir"), ValueOf(0o755)}, "ENOSYS"},
		{"rename", []Value{ValueOf("/file"), ValueOf("/other")}, "ENOSYS"},
		{"ftruncate", []Value{ValueOf(4), ValueOf(0)}, "ENOSYS"},
		{"fsync", []Value{ValueOf(99)}, ""},
		{"close", []Value{ValueOf(99)}, ""},
	}
	for _, c := range cases {
		t.Run(c.method, func(t *testing.T) {
			r := invoke(t, fs, c.method, c.args...)
			assert.Equal(t, c.code, errorCodeOf(r))
			if c.code != "" {
				assert.NotEmpty(t, r.err.Get("message").String())
			}
		})
	}
}

func TestStatObject(t *testing.T) {
	fs, root, _ := newTestFS(t, nil)
	capabilitytest.WriteFile(t, root, "f", []byte("12345"))
	capabilitytest.MkdirAll(t, root, "d")

	r := invoke(t, fs, "stat", ValueOf("/f"))
	require.True(t, r.err.IsNull())
	st := r.value
	assert.Equal(t, 5, st.Get("size").Int())
	assert.Equal(t, shim.ModeRegular|0o755, st.Get("mode").Int())
	assert.Equal(t, 1000, st.Get("uid").Int())
	assert.Equal(t, 512, st.Get("blksize").Int())
	assert.Equal(t, 1, st.Get("blocks").Int())
	assert.Zero(t, st.Get("atimeMs").Int())
	assert.NotZero(t, st.Get("mtimeMs").Int())
	isDir, err := st.Call("isDirectory", nil)
	require.NoError(t, err)
	assert.False(t, isDir.Bool())

	r = invoke(t, fs, "fstat", ValueOf(3))
	require.True(t, r.err.IsNull())
	isDir, err = r.value.Call("isDirectory", nil)
	require.NoError(t, err)
	assert.True(t, isDir.Bool())
	assert.Zero(t, r.value.Get("mtimeMs").Int())
}

func TestReaddir(t *testing.T) {
	fs, root, _ := newTestFS(t, nil)
	capabilitytest.WriteFile(t, root, "a.txt", nil)
	capabilitytest.MkdirAll(t, root, "sub")

	r := invoke(t, fs, "readdir", ValueOf("/"))
	require.True(t, r.err.IsNull())

	entries, ok := r.value.Array()
	require.True(t, ok)
	var names []string
	for _, e := range entries {
		names = append(names, e.String())
	}
	assert.ElementsMatch(t, []string{"a.txt", "sub"}, names)
}

func TestWriteSync(t *testing.T) {
	fs, _, stdout := newTestFS(t, nil)

	n, err := fs.Call("writeSync", []Value{ValueOf(1), ValueOf([]byte("console"))})
	require.NoError(t, err)
	assert.Equal(t, 7, n.Int())
	assert.Equal(t, "console", stdout.String())
}

func TestPanicStillCallsBack(t *testing.T) {
	fs, _, _ := newTestFS(t, nil)

	// read with too few arguments panics inside the call.
	r := invoke(t, fs, "read", ValueOf(4))
	assert.Equal(t, "EBADF", errorCodeOf(r))

	// A buffer range past the end of the array.
	r = invoke(t, fs, "read", ValueOf(3), ValueOf(make([]byte, 2)), ValueOf(0), ValueOf(8), Null())
	assert.Equal(t, "EBADF", errorCodeOf(r))
}

func TestMissingCallback(t *testing.T) {
	fs, _, _ := newTestFS(t, nil)

	_, err := fs.Call("open", nil)
	assert.Error(t, err)
	_, err = fs.Call("open", []Value{ValueOf("/x"), ValueOf(0), ValueOf(0)})
	assert.Error(t, err)
}

func TestDispatcherOrdering(t *testing.T) {
	d := NewDispatcher(16)
	fs, root, _ := newTestFS(t, &Options{Dispatcher: d, Context: context.Background()})
	capabilitytest.WriteFile(t, root, "f", nil)

	r := newRecorder()
	var order []int
	var m sync.Mutex
	for i := 0; i < 10; i++ {
		i := i
		cb := ValueOf(func(args []Value) (Value, error) {
			m.Lock()
			order = append(order, i)
			m.Unlock()
			return r.callback().Invoke(args)
		})
		_, err := fs.Call("stat", []Value{ValueOf("/f"), cb})
		require.NoError(t, err)
	}
	require.NoError(t, d.Close())

	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, order)
	assert.Len(t, r.results, 10)
	for _, res := range r.results {
		assert.True(t, res.err.IsNull())
	}

	_, err := fs.Call("stat", []Value{ValueOf("/f"), r.callback()})
	assert.ErrorIs(t, err, errDispatcherClosed)
}

func TestDispatcherCallbackSubmits(t *testing.T) {
	d := NewDispatcher(0)
	fs, root, _ := newTestFS(t, &Options{Dispatcher: d, Context: context.Background()})
	capabilitytest.WriteFile(t, root, "f", []byte("abc"))

	r := newRecorder()
	first := ValueOf(func(args []Value) (Value, error) {
		// The next call is issued from the worker goroutine.
		return fs.Call("stat", []Value{ValueOf("/f"), r.callback()})
	})
	_, err := fs.Call("stat", []Value{ValueOf("/f"), first})
	require.NoError(t, err)

	<-r.done
	require.NoError(t, d.Close())

	require.Len(t, r.results, 1)
	assert.True(t, r.results[0].err.IsNull())
}

func TestProcess(t *testing.T) {
	process := NewProcess()

	for _, method := range []string{"getuid", "getgid", "geteuid", "getegid"} {
		v, err := process.Call(method, nil)
		require.NoError(t, err)
		assert.Equal(t, 1000, v.Int(), method)
	}

	cwd, err := process.Call("cwd", nil)
	require.NoError(t, err)
	assert.Equal(t, "/", cwd.String())

	_, err = process.Call("chdir", []Value{ValueOf("/tmp")})
	assert.ErrorIs(t, err, shim.ErrNotImplemented)

	assert.Equal(t, TypeNumber, process.Get("pid").Type())
}

func TestGlobal(t *testing.T) {
	fs, _, _ := newTestFS(t, nil)
	global := ValueOf(NewGlobal(fs, NewProcess()))

	assert.Equal(t, TypeObject, global.Get("fs").Type())
	assert.Equal(t, TypeObject, global.Get("process").Type())

	arr, err := global.Get("Uint8Array").Invoke([]Value{ValueOf(4)})
	require.NoError(t, err)
	assert.Equal(t, 4, arr.Length())
}
