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

// Package manifest builds, serializes and reconciles path-to-digest
// inventories of directory trees.
package manifest

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"

	"github.com/walteh/archivrc/pkg/checksum"
)

// Manifest maps a slash-separated path relative to a tree root to the md5
// digest of the file at that path. Two manifests built from different roots
// are directly comparable by key.
type Manifest map[string]string

// separator between digest and path in the serialized form. Matches md5sum
// output, so existing inventories round-trip.
const separator = "  "

// Build walks the tree rooted at root and digests every regular file,
// bounded by limit concurrent digest workers (limit <= 0 means sequential).
// A file whose digest cannot be computed is logged and left out of the
// manifest; a failed walk aborts the build.
func Build(ctx context.Context, root string, limit int) (Manifest, error) {
	logger := zerolog.Ctx(ctx)

	info, err := os.Stat(root)
	if err != nil {
		return nil, errors.Errorf("statting root: %w", err)
	}

	// A single file is a one-entry manifest keyed by its base name.
	if !info.IsDir() {
		digest, err := checksum.File(root)
		if err != nil {
			return nil, errors.Errorf("digesting %s: %w", root, err)
		}
		return Manifest{filepath.Base(root): digest}, nil
	}

	var paths []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, errors.Errorf("walking %s: %w", root, err)
	}

	if limit <= 0 {
		limit = 1
	}

	m := make(Manifest, len(paths))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, path := range paths {
		path := path
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return errors.Errorf("relativizing %s: %w", path, err)
			}
			rel = filepath.ToSlash(rel)

			digest, err := checksum.File(path)
			if err != nil {
				logger.Error().Str("file", rel).Err(err).Msg("digest failed, file left out of manifest")
				return nil
			}

			mu.Lock()
			m[rel] = digest
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Errorf("digesting tree: %w", err)
	}

	return m, nil
}

// Write serializes the manifest as one "<digest>  <path>" line per entry,
// sorted by path. Write and Read round-trip exactly, including paths that
// contain spaces.
func (m Manifest) Write(w io.Writer) error {
	paths := make([]string, 0, len(m))
	for path := range m {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	bw := bufio.NewWriter(w)
	for _, path := range paths {
		if _, err := fmt.Fprintf(bw, "%s%s%s\n", m[path], separator, path); err != nil {
			return errors.Errorf("writing entry: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return errors.Errorf("flushing: %w", err)
	}
	return nil
}

// WriteFile writes the manifest to path, creating parent directories.
func (m Manifest) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Errorf("creating parent directories: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Errorf("creating manifest file: %w", err)
	}
	defer f.Close()

	if err := m.Write(f); err != nil {
		return err
	}
	return nil
}

// Read parses manifest lines written by Write. Each line splits on the first
// two-space separator, everything after it is the path.
func Read(r io.Reader) (Manifest, error) {
	m := make(Manifest)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}
		digest, path, found := strings.Cut(text, separator)
		if !found || digest == "" || path == "" {
			return nil, errors.Errorf("malformed manifest line %d: %q", line, text)
		}
		m[path] = digest
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Errorf("reading manifest: %w", err)
	}
	return m, nil
}

// ReadFile reads a manifest from path.
func ReadFile(path string) (Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Errorf("opening manifest file: %w", err)
	}
	defer f.Close()

	return Read(f)
}
