package commands

import (
	"context"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/archivrc/pkg/manifest"
)

// NewReconcileCmd creates the reconcile command: an outer-join comparison of
// the checksum inventories of two trees (or two already-written manifest
// files).
func NewReconcileCmd(opts *Opts) *cobra.Command {
	var (
		outDir        string
		fromManifests bool
		digestWorkers int
	)

	cmd := &cobra.Command{
		Use:   "reconcile <a> <b>",
		Short: "Compare the checksum inventories of two trees",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := loadSide(ctx, args[0], fromManifests, digestWorkers)
			if err != nil {
				return err
			}
			b, err := loadSide(ctx, args[1], fromManifests, digestWorkers)
			if err != nil {
				return err
			}

			rec := manifest.Reconcile(a, b)
			if err := rec.WriteReport(outDir); err != nil {
				return err
			}

			if !rec.Pass() {
				pterm.Error.Printfln("Integrity test failed: %d mismatch(es), see %s", len(rec.Mismatches()), outDir)
				return errors.Errorf("%d mismatched path(s)", len(rec.Mismatches()))
			}
			pterm.Success.Println("Integrity test passed, all checksums match")
			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "directory for the comparison table and mismatch CSVs")
	cmd.Flags().BoolVar(&fromManifests, "manifests", false, "treat arguments as manifest files instead of trees")
	cmd.Flags().IntVar(&digestWorkers, "digest-workers", 4, "bounded parallelism for tree digesting")

	return cmd
}

// loadSide turns one argument into a manifest, digesting the tree unless the
// argument already is a manifest file.
func loadSide(ctx context.Context, arg string, fromManifest bool, workers int) (manifest.Manifest, error) {
	if fromManifest {
		m, err := manifest.ReadFile(arg)
		if err != nil {
			return nil, errors.Errorf("reading manifest %s: %w", arg, err)
		}
		return m, nil
	}

	if _, err := os.Stat(arg); err != nil {
		return nil, errors.Errorf("statting %s: %w", arg, err)
	}
	m, err := manifest.Build(ctx, arg, workers)
	if err != nil {
		return nil, errors.Errorf("digesting %s: %w", arg, err)
	}
	return m, nil
}
