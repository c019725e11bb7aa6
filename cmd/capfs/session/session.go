// Package session holds the state shared by capfs commands: the mounted
// store, the FS over it, the logger and the optional call trace.
package session

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/pgavlin/capfs/shim"
	"github.com/pgavlin/capfs/trace"
)

// Config is populated from the persistent flags.
type Config struct {
	Mount  Mount
	Debug  bool
	Trace  string
	Stream bool

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Session is an FS over an open store.
type Session struct {
	FS  *shim.FS
	Log *zap.Logger

	store    io.Closer
	recorder *trace.Recorder
	trace    string
}

func newLogger(debug bool) (*zap.Logger, error) {
	if !debug {
		return zap.NewNop(), nil
	}
	if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		return zap.NewDevelopment()
	}
	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	return config.Build()
}

// Open mounts the configured store and returns a session over it.
func (c *Config) Open() (*Session, error) {
	log, err := newLogger(c.Debug)
	if err != nil {
		return nil, err
	}

	root, store, err := c.Mount.Open()
	if err != nil {
		return nil, err
	}
	log.Debug("mounted store", zap.Stringer("mount", &c.Mount))

	s := &Session{Log: log, store: store, trace: c.Trace}

	options := &shim.Options{
		Stdin:  c.Stdin,
		Stdout: c.Stdout,
		Stderr: c.Stderr,
		Logger: log,
	}
	if c.Stream {
		options.ReadMode = shim.ReadStream
	}
	if c.Trace != "" {
		s.recorder = &trace.Recorder{}
		options.Observer = s.recorder
	}
	s.FS = shim.New(root, options)
	return s, nil
}

// Close releases every descriptor, writes the trace if one was requested and
// closes the store.
func (s *Session) Close() error {
	s.FS.CloseAll()

	var err error
	if s.recorder != nil {
		err = multierr.Append(err, s.writeTrace())
	}
	err = multierr.Append(err, s.store.Close())
	s.Log.Sync()
	return err
}

func (s *Session) writeTrace() (err error) {
	f, err := os.Create(s.trace)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, f.Close())
	}()

	return s.recorder.WriteCSV(f)
}
