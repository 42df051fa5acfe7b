// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package scan walks the source tree and decides which items are eligible
// for transfer in this run.
package scan

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/archivrc/pkg/config"
)

// Candidate is one transferable unit under the source root: a regular file
// or an immediate child directory, depending on the policy granularity.
// Candidates are immutable once emitted; outcome tracking lives in the
// orchestrator's ledger, not here.
type Candidate struct {
	// RelPath is the path relative to the source root, slash-separated.
	RelPath string
	// IsDir marks whole-subfolder candidates.
	IsDir bool
	// Excluded is set when the item name matches an exclusion pattern.
	Excluded bool
	// Eligible is set when the item passes the age gate. Excluded items are
	// never eligible regardless of age.
	Eligible bool
}

// Scanner applies the policy's granularity, exclusion patterns and
// eligibility window to the source tree.
type Scanner struct {
	policy *config.Policy
	clock  clockwork.Clock
}

// NewScanner creates a scanner using the real clock.
func NewScanner(policy *config.Policy) *Scanner {
	return &Scanner{policy: policy, clock: clockwork.NewRealClock()}
}

// NewScannerWithClock creates a scanner with an injected clock, so tests can
// move time instead of sleeping through eligibility windows.
func NewScannerWithClock(policy *config.Policy, clock clockwork.Clock) *Scanner {
	return &Scanner{policy: policy, clock: clock}
}

// Scan produces the candidate set in the order items are encountered during
// the walk. The order is stable only up to filesystem iteration order;
// callers must not depend on it across runs.
func (s *Scanner) Scan(ctx context.Context) ([]Candidate, error) {
	switch s.policy.Granularity {
	case config.GranularityPerFile:
		return s.scanFiles(ctx)
	default:
		return s.scanSubfolders(ctx)
	}
}

// scanSubfolders considers only immediate child directories of the source
// root. A subfolder is eligible only if every regular file anywhere inside
// it is older than the window; one recent file disqualifies the whole
// subfolder for this run.
func (s *Scanner) scanSubfolders(ctx context.Context) ([]Candidate, error) {
	logger := zerolog.Ctx(ctx)

	entries, err := os.ReadDir(s.policy.SrcDir)
	if err != nil {
		return nil, errors.Errorf("reading source root: %w", err)
	}

	var candidates []Candidate
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		cand := Candidate{RelPath: entry.Name(), IsDir: true}
		if s.excluded(ctx, entry.Name()) {
			cand.Excluded = true
			logger.Debug().Str("subfolder", entry.Name()).Msg("subfolder excluded by pattern")
		} else {
			cand.Eligible = s.subfolderQuiescent(ctx, filepath.Join(s.policy.SrcDir, entry.Name()))
		}
		candidates = append(candidates, cand)
	}

	return candidates, nil
}

// scanFiles considers every regular file under the source root. The age gate
// applies only when the policy asks for it; otherwise existence is enough.
func (s *Scanner) scanFiles(ctx context.Context) ([]Candidate, error) {
	logger := zerolog.Ctx(ctx)
	cutoff := s.clock.Now().Add(-s.policy.Window())

	var candidates []Candidate
	err := filepath.WalkDir(s.policy.SrcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(s.policy.SrcDir, path)
		if err != nil {
			return errors.Errorf("relativizing %s: %w", path, err)
		}
		rel = filepath.ToSlash(rel)

		cand := Candidate{RelPath: rel}
		switch {
		case s.excluded(ctx, d.Name()):
			cand.Excluded = true
			logger.Debug().Str("file", rel).Msg("file excluded by pattern")
		case !s.policy.AgeGatePerFile:
			cand.Eligible = true
		default:
			info, err := d.Info()
			if err != nil {
				// Fail closed: an unprobeable file is not eligible, but the
				// scan of its siblings continues.
				logger.Error().Str("file", rel).Err(err).Msg("mtime probe failed, skipping file")
			} else {
				cand.Eligible = info.ModTime().Before(cutoff)
			}
		}
		candidates = append(candidates, cand)
		return nil
	})
	if err != nil {
		return nil, errors.Errorf("walking source root: %w", err)
	}

	return candidates, nil
}

// subfolderQuiescent reports whether every regular file under dir (at any
// depth) was last modified before the eligibility window. An empty subfolder
// is vacuously quiescent. Probe failures disqualify the subfolder without
// aborting the scan of its siblings.
func (s *Scanner) subfolderQuiescent(ctx context.Context, dir string) bool {
	logger := zerolog.Ctx(ctx)
	cutoff := s.clock.Now().Add(-s.policy.Window())

	quiescent := true
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if !info.ModTime().Before(cutoff) {
			logger.Info().Str("subfolder", dir).Str("file", path).Msg("skipping subfolder, recent changes detected")
			quiescent = false
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		logger.Error().Str("subfolder", dir).Err(err).Msg("eligibility probe failed, skipping subfolder")
		return false
	}

	return quiescent
}

// excluded matches the item name (never the full path) against each
// configured pattern. Matching is case-sensitive; any single match excludes.
func (s *Scanner) excluded(ctx context.Context, name string) bool {
	logger := zerolog.Ctx(ctx)

	for _, pattern := range s.policy.ExcludedPatterns {
		matched, err := doublestar.Match(pattern, name)
		if err != nil {
			logger.Debug().Str("pattern", pattern).Str("name", name).Err(err).Msg("error matching pattern")
			continue
		}
		if matched {
			return true
		}
	}
	return false
}

// Transferable filters a candidate set down to the items a run should copy.
func Transferable(candidates []Candidate) []Candidate {
	var out []Candidate
	for _, c := range candidates {
		if c.Eligible && !c.Excluded {
			out = append(out, c)
		}
	}
	return out
}
