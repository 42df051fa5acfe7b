package main

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/walteh/archivrc/cmd/archivrc/commands"
)

// addRootFlags adds shared flags to the root command and wires the log level
// before any subcommand runs.
func addRootFlags(cmd *cobra.Command) *commands.Opts {
	opts := &commands.Opts{}

	cmd.PersistentFlags().StringVarP(&opts.ConfigFile, "config", "c", "config.yaml", "config file path")
	cmd.PersistentFlags().BoolVarP(&opts.Debug, "debug", "d", false, "enable debug logging")

	cmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if opts.Debug {
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
		} else {
			zerolog.SetGlobalLevel(zerolog.InfoLevel)
		}
	}

	return opts
}
