// Package boltcap is a capability store persisted in a single bbolt database.
//
// Directories are nested buckets under a top-level "root" bucket. Files are
// keys whose value is an 8-byte big-endian modification time, in Unix
// nanoseconds, followed by the file's content.
package boltcap

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"iter"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/pgavlin/capfs/capability"
)

const (
	headerSize = 8
	pageSize   = 64
)

var rootBucket = []byte("root")

type Options struct {
	// Timeout bounds the wait for the database file lock. Zero waits forever.
	Timeout time.Duration
	// Now supplies modification times. Defaults to time.Now.
	Now func() time.Time
}

// Store owns an open database.
type Store struct {
	db  *bolt.DB
	now func() time.Time
}

// Open opens or creates the database at path.
func Open(path string, options *Options) (*Store, error) {
	if options == nil {
		options = &Options{}
	}
	now := options.Now
	if now == nil {
		now = time.Now
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: options.Timeout})
	if err != nil {
		return nil, fmt.Errorf("opening %v: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(rootBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing %v: %w", path, err)
	}
	return &Store{db: db, now: now}, nil
}

// Root returns the root directory capability.
func (s *Store) Root() capability.Directory {
	return &directory{s: s}
}

func (s *Store) Close() error {
	return s.db.Close()
}

// bucket walks path from the root bucket.
func bucket(tx *bolt.Tx, path []string) (*bolt.Bucket, error) {
	b := tx.Bucket(rootBucket)
	for _, name := range path {
		next := b.Bucket([]byte(name))
		if next == nil {
			if b.Get([]byte(name)) != nil {
				return nil, capability.ErrTypeMismatch
			}
			return nil, capability.ErrNotFound
		}
		b = next
	}
	return b, nil
}

func encode(data []byte, mtime time.Time) []byte {
	v := make([]byte, headerSize+len(data))
	binary.BigEndian.PutUint64(v, uint64(mtime.UnixNano()))
	copy(v[headerSize:], data)
	return v
}

func child(path []string, name string) []string {
	p := make([]string, len(path)+1)
	copy(p, path)
	p[len(path)] = name
	return p
}

type directory struct {
	s    *Store
	path []string
}

func (d *directory) Kind() capability.Kind {
	return capability.KindDirectory
}

func (d *directory) Name() string {
	if len(d.path) == 0 {
		return ""
	}
	return d.path[len(d.path)-1]
}

func (d *directory) GetDirectory(_ context.Context, name string, options capability.GetOptions) (capability.Directory, error) {
	if err := capability.ValidateName(name); err != nil {
		return nil, err
	}

	lookup := func(tx *bolt.Tx) error {
		_, err := bucket(tx, child(d.path, name))
		return err
	}

	var err error
	if !options.Create {
		err = d.s.db.View(lookup)
	} else {
		err = d.s.db.Update(func(tx *bolt.Tx) error {
			parent, err := bucket(tx, d.path)
			if err != nil {
				return err
			}
			_, err = parent.CreateBucketIfNotExists([]byte(name))
			if errors.Is(err, bolt.ErrIncompatibleValue) {
				return capability.ErrTypeMismatch
			}
			return err
		})
	}
	if err != nil {
		return nil, err
	}
	return &directory{s: d.s, path: child(d.path, name)}, nil
}

func (d *directory) GetFile(_ context.Context, name string, options capability.GetOptions) (capability.File, error) {
	if err := capability.ValidateName(name); err != nil {
		return nil, err
	}

	key := []byte(name)
	lookup := func(tx *bolt.Tx) (*bolt.Bucket, bool, error) {
		parent, err := bucket(tx, d.path)
		if err != nil {
			return nil, false, err
		}
		if parent.Bucket(key) != nil {
			return nil, false, capability.ErrTypeMismatch
		}
		return parent, parent.Get(key) != nil, nil
	}

	var err error
	if !options.Create {
		err = d.s.db.View(func(tx *bolt.Tx) error {
			_, ok, err := lookup(tx)
			if err == nil && !ok {
				err = capability.ErrNotFound
			}
			return err
		})
	} else {
		err = d.s.db.Update(func(tx *bolt.Tx) error {
			parent, ok, err := lookup(tx)
			if err != nil || ok {
				return err
			}
			return parent.Put(key, encode(nil, d.s.now()))
		})
	}
	if err != nil {
		return nil, err
	}
	return &file{s: d.s, dir: d.path, name: name}, nil
}

func (d *directory) Entries(context.Context) iter.Seq2[string, error] {
	return capability.Paged(func(after string) ([]string, error) {
		var names []string
		err := d.s.db.View(func(tx *bolt.Tx) error {
			b, err := bucket(tx, d.path)
			if err != nil {
				return err
			}

			c := b.Cursor()
			var k []byte
			if after == "" {
				k, _ = c.First()
			} else if k, _ = c.Seek([]byte(after)); bytes.Equal(k, []byte(after)) {
				k, _ = c.Next()
			}
			for ; k != nil && len(names) < pageSize; k, _ = c.Next() {
				names = append(names, string(k))
			}
			return nil
		})
		return names, err
	})
}

type file struct {
	s    *Store
	dir  []string
	name string
}

func (f *file) Kind() capability.Kind {
	return capability.KindFile
}

func (f *file) Name() string {
	return f.name
}

// value returns f's raw record. The slice is only valid for the life of tx.
func (f *file) value(tx *bolt.Tx) (*bolt.Bucket, []byte, error) {
	parent, err := bucket(tx, f.dir)
	if err != nil {
		return nil, nil, err
	}
	key := []byte(f.name)
	if parent.Bucket(key) != nil {
		return nil, nil, capability.ErrTypeMismatch
	}
	v := parent.Get(key)
	if v == nil {
		return nil, nil, capability.ErrNotFound
	}
	if len(v) < headerSize {
		return nil, nil, fmt.Errorf("corrupt record for %q", f.name)
	}
	return parent, v, nil
}

func (f *file) Snapshot(context.Context) (*capability.Blob, error) {
	var blob *capability.Blob
	err := f.s.db.View(func(tx *bolt.Tx) error {
		_, v, err := f.value(tx)
		if err != nil {
			return err
		}
		mtime := time.Unix(0, int64(binary.BigEndian.Uint64(v)))
		blob = capability.NewBlob(f.name, append([]byte(nil), v[headerSize:]...), mtime)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return blob, nil
}

func (f *file) CreateWritable(ctx context.Context, options capability.WritableOptions) (capability.Writable, error) {
	var initial []byte
	err := f.s.db.View(func(tx *bolt.Tx) error {
		_, v, err := f.value(tx)
		if err != nil {
			return err
		}
		if options.KeepExistingData {
			initial = append([]byte(nil), v[headerSize:]...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return capability.NewSwap(initial, f.commit), nil
}

func (f *file) commit(_ context.Context, data []byte) error {
	return f.s.db.Update(func(tx *bolt.Tx) error {
		parent, _, err := f.value(tx)
		if err != nil {
			return err
		}
		return parent.Put([]byte(f.name), encode(data, f.s.now()))
	})
}
