// Package memcap is an in-memory capability store.
package memcap

import (
	"context"
	"iter"
	"sort"
	"sync"
	"time"

	"github.com/pgavlin/capfs/capability"
)

const pageSize = 64

type Options struct {
	// Now supplies modification times. Defaults to time.Now.
	Now func() time.Time
}

type tree struct {
	mu  sync.RWMutex
	now func() time.Time
}

type node struct {
	name     string
	parent   *node
	children map[string]*node // nil for files

	data    []byte
	modTime time.Time
}

func (n *node) isDir() bool {
	return n.children != nil
}

// New returns the root of a new, empty in-memory tree.
func New(options *Options) capability.Directory {
	if options == nil {
		options = &Options{}
	}
	now := options.Now
	if now == nil {
		now = time.Now
	}

	t := &tree{now: now}
	return &directory{t: t, n: &node{children: map[string]*node{}, modTime: now()}}
}

type directory struct {
	t *tree
	n *node
}

func (d *directory) Kind() capability.Kind {
	return capability.KindDirectory
}

func (d *directory) Name() string {
	return d.n.name
}

func (d *directory) child(name string, wantDir, create bool) (*node, error) {
	if err := capability.ValidateName(name); err != nil {
		return nil, err
	}

	if !create {
		d.t.mu.RLock()
		defer d.t.mu.RUnlock()
	} else {
		d.t.mu.Lock()
		defer d.t.mu.Unlock()
	}

	if c, ok := d.n.children[name]; ok {
		if c.isDir() != wantDir {
			return nil, capability.ErrTypeMismatch
		}
		return c, nil
	}
	if !create {
		return nil, capability.ErrNotFound
	}

	c := &node{name: name, parent: d.n, modTime: d.t.now()}
	if wantDir {
		c.children = map[string]*node{}
	}
	d.n.children[name] = c
	d.n.modTime = c.modTime
	return c, nil
}

func (d *directory) GetDirectory(_ context.Context, name string, options capability.GetOptions) (capability.Directory, error) {
	c, err := d.child(name, true, options.Create)
	if err != nil {
		return nil, err
	}
	return &directory{t: d.t, n: c}, nil
}

func (d *directory) GetFile(_ context.Context, name string, options capability.GetOptions) (capability.File, error) {
	c, err := d.child(name, false, options.Create)
	if err != nil {
		return nil, err
	}
	return &file{t: d.t, n: c}, nil
}

func (d *directory) Entries(context.Context) iter.Seq2[string, error] {
	return capability.Paged(func(after string) ([]string, error) {
		d.t.mu.RLock()
		defer d.t.mu.RUnlock()

		var names []string
		for name := range d.n.children {
			if name > after {
				names = append(names, name)
			}
		}
		sort.Strings(names)
		if len(names) > pageSize {
			names = names[:pageSize]
		}
		return names, nil
	})
}

type file struct {
	t *tree
	n *node
}

func (f *file) Kind() capability.Kind {
	return capability.KindFile
}

func (f *file) Name() string {
	return f.n.name
}

// attached reports whether f's node is still reachable from the root.
func (f *file) attached() bool {
	p := f.n.parent
	return p != nil && p.children[f.n.name] == f.n
}

func (f *file) Snapshot(context.Context) (*capability.Blob, error) {
	f.t.mu.RLock()
	defer f.t.mu.RUnlock()

	if !f.attached() {
		return nil, capability.ErrNotFound
	}
	return capability.NewBlob(f.n.name, f.n.data, f.n.modTime), nil
}

func (f *file) CreateWritable(_ context.Context, options capability.WritableOptions) (capability.Writable, error) {
	f.t.mu.RLock()
	defer f.t.mu.RUnlock()

	if !f.attached() {
		return nil, capability.ErrNotFound
	}

	var initial []byte
	if options.KeepExistingData {
		initial = f.n.data
	}
	return capability.NewSwap(initial, f.commit), nil
}

func (f *file) commit(_ context.Context, data []byte) error {
	f.t.mu.Lock()
	defer f.t.mu.Unlock()

	if !f.attached() {
		return capability.ErrNotFound
	}
	f.n.data, f.n.modTime = data, f.t.now()
	return nil
}
