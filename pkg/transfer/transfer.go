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

// Package transfer copies candidates into the run-scoped destination
// subtree, preserving relative structure and file metadata.
package transfer

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/archivrc/pkg/scan"
)

// FileResult records the outcome of copying one file of a candidate.
type FileResult struct {
	// RelPath is relative to the source root, slash-separated.
	RelPath string
	Err     error
}

// Executor copies candidate items from the source root into a run namespace
// under the destination root. Destination writes are always additive: the
// run namespace is unique per invocation and never reused.
type Executor struct {
	srcRoot  string
	runRoot  string
	progress func()
}

// NewExecutor creates an executor writing under runRoot, the already
// timestamp-namespaced destination subtree for this run.
func NewExecutor(srcRoot, runRoot string) *Executor {
	return &Executor{srcRoot: srcRoot, runRoot: runRoot}
}

// WithProgress registers a callback invoked after each successfully copied
// file, for progress display.
func (e *Executor) WithProgress(fn func()) *Executor {
	e.progress = fn
	return e
}

// Files lists the source-relative paths of every regular file belonging to
// the candidate: the file itself, or all files under the subfolder.
func (e *Executor) Files(cand scan.Candidate) ([]string, error) {
	if !cand.IsDir {
		return []string{cand.RelPath}, nil
	}

	var files []string
	root := filepath.Join(e.srcRoot, filepath.FromSlash(cand.RelPath))
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(e.srcRoot, path)
		if err != nil {
			return errors.Errorf("relativizing %s: %w", path, err)
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, errors.Errorf("listing candidate files: %w", err)
	}
	return files, nil
}

// Transfer copies all files of the candidate. It returns one result per
// attempted file; the first failure stops the candidate (already-copied
// files are left in place under the run namespace) and is also returned as
// the error. Cancellation is observed between files, never mid-file.
func (e *Executor) Transfer(ctx context.Context, cand scan.Candidate) ([]FileResult, error) {
	logger := zerolog.Ctx(ctx)

	files, err := e.Files(cand)
	if err != nil {
		return nil, err
	}

	// An empty subfolder still materializes at the destination.
	if cand.IsDir {
		dst := filepath.Join(e.runRoot, filepath.FromSlash(cand.RelPath))
		if err := os.MkdirAll(dst, 0755); err != nil {
			return nil, errors.Errorf("creating destination subfolder: %w", err)
		}
	}

	results := make([]FileResult, 0, len(files))
	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return results, errors.Errorf("transfer cancelled: %w", err)
		}

		src := filepath.Join(e.srcRoot, filepath.FromSlash(rel))
		dst := filepath.Join(e.runRoot, filepath.FromSlash(rel))
		err := copyFile(src, dst)
		results = append(results, FileResult{RelPath: rel, Err: err})
		if err != nil {
			logger.Error().Str("file", rel).Err(err).Msg("copy failed")
			return results, errors.Errorf("copying %s: %w", rel, err)
		}
		logger.Debug().Str("file", rel).Msg("copied")
		if e.progress != nil {
			e.progress()
		}
	}

	return results, nil
}

// copyFile copies src to dst, creating parent directories and mirroring the
// source's mode and modification time. Timestamps are mirrored, not
// re-stamped, so age and checksum logic downstream stays meaningful.
func copyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return errors.Errorf("statting source: %w", err)
	}

	in, err := os.Open(src)
	if err != nil {
		return errors.Errorf("opening source: %w", err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return errors.Errorf("creating parent directories: %w", err)
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return errors.Errorf("creating destination: %w", err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return errors.Errorf("copying content: %w", err)
	}
	if err := out.Close(); err != nil {
		return errors.Errorf("closing destination: %w", err)
	}

	if err := os.Chtimes(dst, info.ModTime(), info.ModTime()); err != nil {
		return errors.Errorf("mirroring timestamps: %w", err)
	}

	return nil
}
