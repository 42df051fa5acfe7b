package commands

import (
	"os"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/archivrc/pkg/backup"
	"github.com/walteh/archivrc/pkg/config"
	"github.com/walteh/archivrc/pkg/log"
	"github.com/walteh/archivrc/pkg/status"
)

// NewBackupCmd creates the backup command: one full scan→copy→verify→delete
// run against the configured source tree.
func NewBackupCmd(opts *Opts) *cobra.Command {
	var (
		src          string
		dst          string
		noVerify     bool
		deleteSource bool
		excludes     []string
		ageDays      int
		granularity  string
		concurrency  int
	)

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Run one verified backup of the source tree",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			policy, err := config.Load(ctx, opts.ConfigFile)
			if err != nil {
				return errors.Errorf("loading config: %w", err)
			}

			// Flags override the file, then the merged policy is validated
			// exactly once.
			flags := cmd.Flags()
			if flags.Changed("src") {
				policy.SrcDir = src
			}
			if flags.Changed("dst") {
				policy.DstDir = dst
			}
			if noVerify {
				verify := false
				policy.VerifyCopy = &verify
			}
			if deleteSource {
				policy.DeleteSource = true
			}
			if flags.Changed("exclude") {
				policy.ExcludedPatterns = excludes
			}
			if flags.Changed("backup-age-days") {
				policy.BackupAgeDays = &ageDays
			}
			if flags.Changed("granularity") {
				policy.Granularity = config.Granularity(granularity)
			}
			if flags.Changed("concurrency") {
				policy.Concurrency = concurrency
			}
			if err := policy.Validate(); err != nil {
				return errors.Errorf("validating config: %w", err)
			}

			run := backup.NewRunContext(clockwork.NewRealClock())

			level := zerolog.InfoLevel
			if opts.Debug {
				level = zerolog.DebugLevel
			}
			runLogger, err := log.NewRunLogger(os.Stdout, policy.LogDir, run.Stamp, level)
			if err != nil {
				return errors.Errorf("creating run logger: %w", err)
			}
			defer runLogger.Close()
			ctx = runLogger.Zerolog().WithContext(ctx)

			runLogger.Header("backup run " + run.Stamp)
			runLogger.Info(policy.String())

			orch, err := backup.New(backup.Options{
				Policy:   policy,
				Reporter: status.NewConsoleReporter(),
				Run:      &run,
			})
			if err != nil {
				return err
			}

			report, err := orch.Run(ctx)
			if err != nil {
				return errors.Errorf("backup run: %w", err)
			}

			// Per-item failures are enumerated in the report, not fatal:
			// the run itself completed and a human can re-run selectively.
			if failed := report.Failed(); len(failed) > 0 {
				runLogger.Warningf("%d candidate(s) failed, see report", len(failed))
			} else {
				runLogger.Success("backup completed")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&src, "src", "", "source directory (overrides config)")
	cmd.Flags().StringVar(&dst, "dst", "", "destination directory (overrides config)")
	cmd.Flags().BoolVar(&noVerify, "no-verify", false, "skip post-copy verification")
	cmd.Flags().BoolVar(&deleteSource, "delete-source", false, "delete source items after verified transfer")
	cmd.Flags().StringArrayVar(&excludes, "exclude", nil, "exclusion pattern, repeatable (overrides config)")
	cmd.Flags().IntVar(&ageDays, "backup-age-days", config.DefaultBackupAgeDays, "minimum unmodified age in days")
	cmd.Flags().StringVar(&granularity, "granularity", string(config.GranularitySubfolder), "transfer unit: whole-subfolder or per-file")
	cmd.Flags().IntVar(&concurrency, "concurrency", 1, "candidate worker pool size")

	return cmd
}
