package commands

import (
	"os"
	"path/filepath"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/archivrc/pkg/remote"
	"github.com/walteh/archivrc/pkg/remote/sftp"
)

// NewMirrorCmd creates the mirror command: download a remote dataset twice
// and prove both copies identical by checksum reconciliation. The SFTP
// connection is acquired and released around this one run.
func NewMirrorCmd(opts *Opts) *cobra.Command {
	var (
		host          string
		port          int
		user          string
		password      string
		remoteRoot    string
		destDir       string
		outDir        string
		skipFetch     bool
		digestWorkers int
	)

	cmd := &cobra.Command{
		Use:   "mirror",
		Short: "Download a remote tree twice and verify the copies against each other",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			copyA := filepath.Join(destDir, "copy_a")
			copyB := filepath.Join(destDir, "copy_b")

			if !skipFetch {
				if password == "" {
					password = os.Getenv("ARCHIVRC_SFTP_PASSWORD")
				}
				client, err := sftp.Dial(ctx, sftp.Options{
					Host:     host,
					Port:     port,
					User:     user,
					Password: password,
				})
				if err != nil {
					return errors.Errorf("connecting: %w", err)
				}
				defer client.Close()

				for _, local := range []string{copyA, copyB} {
					if err := remote.Download(ctx, client, remoteRoot, local); err != nil {
						return errors.Errorf("downloading into %s: %w", local, err)
					}
				}
			}

			rec, err := remote.VerifyPair(ctx, copyA, copyB, outDir, digestWorkers)
			if err != nil {
				return err
			}
			if !rec.Pass() {
				pterm.Error.Printfln("Mirror verification failed: %d mismatch(es), see %s", len(rec.Mismatches()), outDir)
				return errors.Errorf("%d mismatched path(s)", len(rec.Mismatches()))
			}
			pterm.Success.Println("Mirror verification passed, both copies are identical")
			return nil
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "sftp host")
	cmd.Flags().IntVar(&port, "port", 22, "sftp port")
	cmd.Flags().StringVar(&user, "user", "", "sftp user")
	cmd.Flags().StringVar(&password, "password", "", "sftp password (or ARCHIVRC_SFTP_PASSWORD)")
	cmd.Flags().StringVar(&remoteRoot, "remote", "", "remote root to mirror")
	cmd.Flags().StringVar(&destDir, "dest", "", "local directory receiving copy_a and copy_b")
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "directory for manifests and reconciliation CSVs")
	cmd.Flags().BoolVar(&skipFetch, "skip-fetch", false, "verify an existing copy_a/copy_b pair without downloading")
	cmd.Flags().IntVar(&digestWorkers, "digest-workers", 4, "bounded parallelism for tree digesting")

	_ = cmd.MarkFlagRequired("dest")

	return cmd
}
