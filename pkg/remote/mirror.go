package remote

import (
	"context"
	"path"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/archivrc/pkg/manifest"
)

// Download fetches the whole remote tree under remoteRoot into localRoot,
// preserving the relative layout. A single failed fetch is logged and
// skipped so one unreadable file does not lose the rest of the dataset; the
// downstream reconciliation will flag it as missing.
func Download(ctx context.Context, c Client, remoteRoot, localRoot string) error {
	logger := zerolog.Ctx(ctx)

	files, err := c.ListFiles(ctx, remoteRoot)
	if err != nil {
		return errors.Errorf("listing remote files: %w", err)
	}
	logger.Info().Int("files", len(files)).Str("root", remoteRoot).Msg("found remote files")

	for _, remotePath := range files {
		rel := strings.TrimPrefix(remotePath, remoteRoot)
		rel = strings.TrimPrefix(rel, "/")
		if rel == "" {
			rel = path.Base(remotePath)
		}
		localPath := filepath.Join(localRoot, filepath.FromSlash(rel))
		if err := c.Fetch(ctx, remotePath, localPath); err != nil {
			if ctx.Err() != nil {
				return err
			}
			logger.Error().Str("remote", remotePath).Err(err).Msg("fetch failed, file will show as missing")
		}
	}

	return nil
}

// VerifyPair digests two independently materialized copies of a tree and
// reconciles them. Manifests for both sides and the reconciliation CSVs are
// written into outDir so a human can investigate any mismatch.
func VerifyPair(ctx context.Context, copyA, copyB, outDir string, digestWorkers int) (*manifest.Reconciliation, error) {
	logger := zerolog.Ctx(ctx)

	manifestA, err := manifest.Build(ctx, copyA, digestWorkers)
	if err != nil {
		return nil, errors.Errorf("building manifest for %s: %w", copyA, err)
	}
	manifestB, err := manifest.Build(ctx, copyB, digestWorkers)
	if err != nil {
		return nil, errors.Errorf("building manifest for %s: %w", copyB, err)
	}

	if err := manifestA.WriteFile(filepath.Join(outDir, "manifest_a.txt")); err != nil {
		return nil, err
	}
	if err := manifestB.WriteFile(filepath.Join(outDir, "manifest_b.txt")); err != nil {
		return nil, err
	}

	rec := manifest.Reconcile(manifestA, manifestB)
	if err := rec.WriteReport(outDir); err != nil {
		return nil, err
	}

	if rec.Pass() {
		logger.Info().Msg("integrity test passed, all checksums match")
	} else {
		for _, row := range rec.Mismatches() {
			logger.Error().Str("file", row.Path).Msg("checksums do not match")
		}
	}

	return rec, nil
}
