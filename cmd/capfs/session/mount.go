package session

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/pflag"

	"github.com/pgavlin/capfs/capability"
	"github.com/pgavlin/capfs/capability/aferocap"
	"github.com/pgavlin/capfs/capability/boltcap"
	"github.com/pgavlin/capfs/capability/memcap"
)

// Mount selects the store bound as the root capability. It is a pflag.Value
// of the form kind:arg.
type Mount struct {
	Kind string
	Arg  string
}

var _ pflag.Value = (*Mount)(nil)

// DefaultMount mounts the working directory.
var DefaultMount = Mount{Kind: "dir", Arg: "."}

func (m *Mount) String() string {
	return m.Kind + ":" + m.Arg
}

func (m *Mount) Set(s string) error {
	kind, arg, ok := strings.Cut(s, ":")
	if !ok {
		return fmt.Errorf("malformed mount '%v': mounts must be of the form kind:arg", s)
	}

	switch kind {
	case "dir", "bolt":
		if arg == "" {
			return fmt.Errorf("malformed mount '%v': %v mounts require a path", s, kind)
		}
	case "mem":
		if arg != "" {
			return fmt.Errorf("malformed mount '%v': mem mounts take no argument", s)
		}
	default:
		return fmt.Errorf("unknown mount kind '%v'", kind)
	}

	m.Kind, m.Arg = kind, arg
	return nil
}

func (m *Mount) Type() string {
	return "mount"
}

type nopCloser struct{}

func (nopCloser) Close() error {
	return nil
}

// Open opens the mounted store. The returned closer releases it.
func (m *Mount) Open() (capability.Directory, io.Closer, error) {
	switch m.Kind {
	case "dir":
		root, err := aferocap.NewOS(m.Arg)
		if err != nil {
			return nil, nil, err
		}
		return root, nopCloser{}, nil
	case "bolt":
		store, err := boltcap.Open(m.Arg, nil)
		if err != nil {
			return nil, nil, err
		}
		return store.Root(), store, nil
	case "mem":
		return memcap.New(nil), nopCloser{}, nil
	default:
		return nil, nil, fmt.Errorf("unknown mount kind '%v'", m.Kind)
	}
}
