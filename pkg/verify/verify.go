// Package verify re-checksums transferred files and confirms the
// destination copy is byte-identical to its source.
package verify

import (
	"context"
	"path/filepath"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/archivrc/pkg/checksum"
)

// ErrMismatch marks a destination copy whose digest differs from its source.
// It surfaces only after the copy pass is fully complete, so it points at
// copy or storage corruption rather than an in-flight write.
var ErrMismatch = errors.New("checksum mismatch between source and destination")

// Verifier digests matched source/destination pairs under two roots.
type Verifier struct {
	srcRoot string
	runRoot string
}

// NewVerifier creates a verifier over the source root and the run-scoped
// destination subtree.
func NewVerifier(srcRoot, runRoot string) *Verifier {
	return &Verifier{srcRoot: srcRoot, runRoot: runRoot}
}

// Verify digests both copies of every listed file and fails on the first
// pair that differs or cannot be digested. Paths are source-relative.
// Cancellation is observed between files.
func (v *Verifier) Verify(ctx context.Context, files []string) error {
	logger := zerolog.Ctx(ctx)

	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return errors.Errorf("verification cancelled: %w", err)
		}

		srcDigest, err := checksum.File(filepath.Join(v.srcRoot, filepath.FromSlash(rel)))
		if err != nil {
			return errors.Errorf("digesting source %s: %w", rel, err)
		}
		dstDigest, err := checksum.File(filepath.Join(v.runRoot, filepath.FromSlash(rel)))
		if err != nil {
			return errors.Errorf("digesting destination %s: %w", rel, err)
		}

		if !checksum.Equal(srcDigest, dstDigest) {
			logger.Error().Str("file", rel).Str("src", srcDigest).Str("dst", dstDigest).Msg("verification failed")
			return errors.Errorf("verifying %s: %w", rel, ErrMismatch)
		}
		logger.Debug().Str("file", rel).Msg("verified")
	}

	return nil
}
