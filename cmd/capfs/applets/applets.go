// Package applets implements the capfs subcommands. Each applet talks to the
// mounted store only through the descriptor-based shim.
package applets

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pgavlin/capfs/cmd/capfs/session"
	"github.com/pgavlin/capfs/shim"
)

// command wraps run with a session opened from config.
func command(config *session.Config, c *cobra.Command, run func(ctx context.Context, cmd *cobra.Command, s *session.Session, args []string) error) *cobra.Command {
	c.RunE = func(cmd *cobra.Command, args []string) (err error) {
		config.Stdin = cmd.InOrStdin()
		config.Stdout = cmd.OutOrStdout()
		config.Stderr = cmd.ErrOrStderr()

		s, err := config.Open()
		if err != nil {
			return err
		}
		defer func() {
			if cerr := s.Close(); err == nil {
				err = cerr
			}
		}()

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		return run(ctx, cmd, s, args)
	}
	return c
}

// Commands returns every applet.
func Commands(config *session.Config) []*cobra.Command {
	return []*cobra.Command{
		lsCommand(config),
		catCommand(config),
		statCommand(config),
		headCommand(config),
		wcCommand(config),
		sha256sumCommand(config),
		writeCommand(config, "write", shim.OpenCreate|shim.OpenTruncate|shim.OpenWriteOnly),
		writeCommand(config, "append", shim.OpenCreate|shim.OpenAppend|shim.OpenWriteOnly),
		demoCommand(config),
	}
}

// readFile reads the whole file at p.
func readFile(ctx context.Context, fs *shim.FS, p string) ([]byte, error) {
	fd, err := fs.Open(ctx, p, shim.OpenReadOnly)
	if err != nil {
		return nil, err
	}
	defer fs.Close(ctx, fd)

	st, err := fs.Fstat(ctx, fd)
	if err != nil {
		return nil, err
	}

	var data []byte
	buf := make([]byte, st.Size+512)
	for {
		n, err := fs.Read(ctx, fd, buf, -1)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return data, nil
		}
		data = append(data, buf[:n]...)
	}
}

// writeFile writes data to p, which is opened with flags.
func writeFile(ctx context.Context, fs *shim.FS, p string, flags shim.OpenFlags, data []byte) error {
	fd, err := fs.Open(ctx, p, flags)
	if err != nil {
		return err
	}
	defer fs.Close(ctx, fd)

	_, err = fs.Write(ctx, fd, data, -1)
	return err
}

// listDir returns the sorted entries of dir, with directories suffixed by "/".
func listDir(ctx context.Context, fs *shim.FS, dir string) ([]string, error) {
	names, err := fs.Readdir(ctx, dir)
	if err != nil {
		return nil, err
	}
	sort.Strings(names)

	for i, name := range names {
		st, err := fs.Stat(ctx, path.Join(dir, name))
		if err != nil {
			return nil, err
		}
		if st.IsDir() {
			names[i] = name + "/"
		}
	}
	return names, nil
}

func lsCommand(config *session.Config) *cobra.Command {
	return command(config, &cobra.Command{
		Use:   "ls [path]",
		Short: "List a directory",
		Args:  cobra.MaximumNArgs(1),
	}, func(ctx context.Context, cmd *cobra.Command, s *session.Session, args []string) error {
		dir := "/"
		if len(args) == 1 {
			dir = args[0]
		}

		names, err := listDir(ctx, s.FS, dir)
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	})
}

func catCommand(config *session.Config) *cobra.Command {
	return command(config, &cobra.Command{
		Use:   "cat [path]...",
		Short: "Print files",
		Args:  cobra.MinimumNArgs(1),
	}, func(ctx context.Context, cmd *cobra.Command, s *session.Session, args []string) error {
		for _, p := range args {
			data, err := readFile(ctx, s.FS, p)
			if err != nil {
				return err
			}
			if _, err := s.FS.Write(ctx, shim.FdStdout, data, -1); err != nil {
				return err
			}
		}
		return nil
	})
}

func headCommand(config *session.Config) *cobra.Command {
	var count int
	c := command(config, &cobra.Command{
		Use:   "head [path]...",
		Short: "Print the first bytes of files",
		Args:  cobra.MinimumNArgs(1),
	}, func(ctx context.Context, cmd *cobra.Command, s *session.Session, args []string) error {
		if count < 0 {
			return fmt.Errorf("invalid byte count %v", count)
		}
		buf := make([]byte, count)
		for _, p := range args {
			fd, err := s.FS.Open(ctx, p, shim.OpenReadOnly)
			if err != nil {
				return err
			}
			n, err := s.FS.Read(ctx, fd, buf, -1)
			s.FS.Close(ctx, fd)
			if err != nil {
				return err
			}
			if _, err := s.FS.Write(ctx, shim.FdStdout, buf[:n], -1); err != nil {
				return err
			}
		}
		return nil
	})
	c.Flags().IntVarP(&count, "bytes", "c", 512, "the number of bytes to print")
	return c
}

func wcCommand(config *session.Config) *cobra.Command {
	return command(config, &cobra.Command{
		Use:   "wc [path]...",
		Short: "Count lines, words and bytes",
		Args:  cobra.MinimumNArgs(1),
	}, func(ctx context.Context, cmd *cobra.Command, s *session.Session, args []string) error {
		for _, p := range args {
			data, err := readFile(ctx, s.FS, p)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d %d %d %v\n", bytes.Count(data, []byte("\n")), len(bytes.Fields(data)), len(data), p)
		}
		return nil
	})
}

func sha256sumCommand(config *session.Config) *cobra.Command {
	return command(config, &cobra.Command{
		Use:   "sha256sum [path]...",
		Short: "Print SHA-256 checksums",
		Args:  cobra.MinimumNArgs(1),
	}, func(ctx context.Context, cmd *cobra.Command, s *session.Session, args []string) error {
		for _, p := range args {
			data, err := readFile(ctx, s.FS, p)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%x  %v\n", sha256.Sum256(data), p)
		}
		return nil
	})
}

func statCommand(config *session.Config) *cobra.Command {
	return command(config, &cobra.Command{
		Use:   "stat [path]...",
		Short: "Print file metadata",
		Args:  cobra.MinimumNArgs(1),
	}, func(ctx context.Context, cmd *cobra.Command, s *session.Session, args []string) error {
		for _, p := range args {
			st, err := s.FS.Stat(ctx, p)
			if err != nil {
				return err
			}

			kind := "file"
			if st.IsDir() {
				kind = "directory"
			}
			modified := "-"
			if !st.ModTime.IsZero() {
				modified = st.ModTime.UTC().Format("2006-01-02T15:04:05Z")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%v: %v size=%d blocks=%d mode=%o uid=%d gid=%d modified=%v\n",
				p, kind, st.Size, st.Blocks, st.Mode, st.UID, st.GID, modified)
		}
		return nil
	})
}

func writeCommand(config *session.Config, use string, flags shim.OpenFlags) *cobra.Command {
	return command(config, &cobra.Command{
		Use:   use + " [path] [text]",
		Short: fmt.Sprintf("Open a file with %v and write text to it", flags),
		Args:  cobra.MinimumNArgs(2),
	}, func(ctx context.Context, cmd *cobra.Command, s *session.Session, args []string) error {
		return writeFile(ctx, s.FS, args[0], flags, []byte(strings.Join(args[1:], " ")))
	})
}

func demoCommand(config *session.Config) *cobra.Command {
	return command(config, &cobra.Command{
		Use:   "demo",
		Short: "Write, overwrite and append to hello.txt, then list the root",
		Args:  cobra.NoArgs,
	}, func(ctx context.Context, cmd *cobra.Command, s *session.Session, args []string) error {
		create := shim.OpenCreate | shim.OpenTruncate | shim.OpenWriteOnly
		appendFlags := shim.OpenCreate | shim.OpenAppend | shim.OpenWriteOnly

		steps := []struct {
			flags shim.OpenFlags
			text  string
		}{
			{create, "test"},
			{create, "hi"},
			{appendFlags, "a"},
			{appendFlags, "b"},
		}
		for _, step := range steps {
			if err := writeFile(ctx, s.FS, "hello.txt", step.flags, []byte(step.text)); err != nil {
				return err
			}
		}

		data, err := readFile(ctx, s.FS, "hello.txt")
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "File contents: %q\n", data)

		names, err := listDir(ctx, s.FS, "/")
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Directory listing: %v\n", strings.Join(names, " "))
		return nil
	})
}
