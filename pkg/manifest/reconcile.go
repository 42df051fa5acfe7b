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

package manifest

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"sort"

	"gitlab.com/tozd/go/errors"
)

// Row is one entry of a reconciliation: a path and the digest each side holds
// for it. An empty digest means the path is absent from that side, which is
// never considered a match.
type Row struct {
	Path    string
	DigestA string
	DigestB string
}

// Matching reports whether both sides hold the same digest for this path.
func (r Row) Matching() bool {
	return r.DigestA != "" && r.DigestA == r.DigestB
}

// Reconciliation is the full outer join of two manifests, keyed by path.
// Every path present in either manifest appears in exactly one row.
type Reconciliation struct {
	Rows []Row
}

// Reconcile joins manifests a and b on path. Rows are sorted by path so the
// result is deterministic regardless of map iteration order.
func Reconcile(a, b Manifest) *Reconciliation {
	paths := make(map[string]struct{}, len(a)+len(b))
	for path := range a {
		paths[path] = struct{}{}
	}
	for path := range b {
		paths[path] = struct{}{}
	}

	rows := make([]Row, 0, len(paths))
	for path := range paths {
		rows = append(rows, Row{Path: path, DigestA: a[path], DigestB: b[path]})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Path < rows[j].Path })

	return &Reconciliation{Rows: rows}
}

// Mismatches returns the rows whose digests differ, including rows where one
// side is absent.
func (r *Reconciliation) Mismatches() []Row {
	var out []Row
	for _, row := range r.Rows {
		if !row.Matching() {
			out = append(out, row)
		}
	}
	return out
}

// Pass reports whether the two manifests describe identical trees.
func (r *Reconciliation) Pass() bool {
	return len(r.Mismatches()) == 0
}

// WriteTable writes every row as CSV (path,digest_a,digest_b) with a header.
func (r *Reconciliation) WriteTable(w io.Writer) error {
	return writeRows(w, r.Rows)
}

// WriteMismatches writes only the mismatched rows as CSV.
func (r *Reconciliation) WriteMismatches(w io.Writer) error {
	return writeRows(w, r.Mismatches())
}

// WriteReport writes the full table and the mismatch subset into dir as
// reconcile.csv and reconcile_diff.csv.
func (r *Reconciliation) WriteReport(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Errorf("creating report directory: %w", err)
	}

	write := func(name string, rows []Row) error {
		f, err := os.Create(filepath.Join(dir, name))
		if err != nil {
			return errors.Errorf("creating %s: %w", name, err)
		}
		defer f.Close()
		return writeRows(f, rows)
	}

	if err := write("reconcile.csv", r.Rows); err != nil {
		return err
	}
	if err := write("reconcile_diff.csv", r.Mismatches()); err != nil {
		return err
	}
	return nil
}

func writeRows(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"path", "digest_a", "digest_b"}); err != nil {
		return errors.Errorf("writing header: %w", err)
	}
	for _, row := range rows {
		if err := cw.Write([]string{row.Path, row.DigestA, row.DigestB}); err != nil {
			return errors.Errorf("writing row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.Errorf("flushing csv: %w", err)
	}
	return nil
}
