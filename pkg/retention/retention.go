// Package retention removes source copies after a verified transfer. It is
// the only component that ever deletes under the source root, and it only
// runs for candidates whose outcome is a success.
package retention

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/archivrc/pkg/scan"
)

// Enforcer deletes candidate sources when the policy enables it.
type Enforcer struct {
	srcRoot string
	enabled bool
}

// NewEnforcer creates an enforcer over the source root. When enabled is
// false, Delete is a no-op.
func NewEnforcer(srcRoot string, enabled bool) *Enforcer {
	return &Enforcer{srcRoot: srcRoot, enabled: enabled}
}

// Enabled reports whether the policy allows source deletion.
func (e *Enforcer) Enabled() bool {
	return e.enabled
}

// Delete removes the candidate's source: recursively for a subfolder, a
// single removal for a file. Callers invoke this only for candidates whose
// transfer succeeded (and verified, when verification is on); a failure here
// is reported but must never downgrade that success.
func (e *Enforcer) Delete(ctx context.Context, cand scan.Candidate) error {
	if !e.enabled {
		return nil
	}

	logger := zerolog.Ctx(ctx)
	path := filepath.Join(e.srcRoot, filepath.FromSlash(cand.RelPath))

	var err error
	if cand.IsDir {
		err = os.RemoveAll(path)
	} else {
		err = os.Remove(path)
	}
	if err != nil {
		logger.Error().Str("item", cand.RelPath).Err(err).Msg("source deletion failed")
		return errors.Errorf("deleting source %s: %w", cand.RelPath, err)
	}

	logger.Info().Str("item", cand.RelPath).Msg("source deleted")
	return nil
}
