package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pgavlin/capfs/cmd/capfs/applets"
	"github.com/pgavlin/capfs/cmd/capfs/session"
	"github.com/pgavlin/capfs/shim"
)

var version = "<unknown>"

func configureCLI() *cobra.Command {
	config := &session.Config{Mount: session.DefaultMount}

	rootCommand := &cobra.Command{
		Use:           "capfs",
		Short:         "capfs capability filesystem shim",
		Long:          "capfs - run POSIX-style file operations against a capability-scoped store",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	for _, c := range applets.Commands(config) {
		rootCommand.AddCommand(c)
	}

	rootCommand.PersistentFlags().VarP(&config.Mount, "mount", "m", "the store to mount as the root: dir:PATH, bolt:FILE or mem:")
	rootCommand.PersistentFlags().BoolVarP(&config.Debug, "debug", "d", false, "log every file operation")
	rootCommand.PersistentFlags().StringVarP(&config.Trace, "trace", "t", "", "write a CSV trace of every file operation to the specified file")
	rootCommand.PersistentFlags().BoolVar(&config.Stream, "stream", false, "read files in cursor-relative chunks")

	return rootCommand
}

func main() {
	rootCommand := configureCLI()

	if err := rootCommand.ExecuteContext(context.Background()); err != nil {
		var fsErr *shim.Error
		if errors.As(err, &fsErr) {
			fmt.Fprintf(os.Stderr, "%v (%v)\n", fsErr, fsErr.Code())
			os.Exit(1)
		}

		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	}
}
