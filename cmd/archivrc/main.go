package main

import (
	"context"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/walteh/archivrc/cmd/archivrc/commands"
)

func main() {
	ctx := log.Logger.WithContext(context.Background())

	rootCmd := &cobra.Command{
		Use:   "archivrc",
		Short: "A tool for verified, eligibility-gated archival of directory trees",
		Long: `archivrc moves data from a source tree into timestamped destination
namespaces, verifying every transferred file by checksum before the source
may be deleted. It also reconciles checksum manifests of independently
materialized copies of the same tree.`,
	}

	opts := addRootFlags(rootCmd)

	rootCmd.AddCommand(
		commands.NewBackupCmd(opts),
		commands.NewReconcileCmd(opts),
		commands.NewMirrorCmd(opts),
	)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
