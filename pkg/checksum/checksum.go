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

// Package checksum computes streaming content digests for corruption
// detection. The digest is md5 so manifests stay line-compatible with the
// md5sum tooling that produced the inventories we reconcile against.
package checksum

import (
	"crypto/md5"
	"encoding/hex"
	"io"
	"os"

	"gitlab.com/tozd/go/errors"
)

const bufferSize = 64 * 1024 // 64KB chunks, files are never buffered whole

// File computes the md5 digest of the file at path, returned as lowercase hex.
func File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Errorf("opening file: %w", err)
	}
	defer f.Close()

	return Reader(f)
}

// Reader computes the md5 digest of everything read from r.
func Reader(r io.Reader) (string, error) {
	h := md5.New()
	buf := make([]byte, bufferSize)

	for {
		n, err := r.Read(buf)
		if n > 0 {
			if _, werr := h.Write(buf[:n]); werr != nil {
				return "", errors.Errorf("writing to hash: %w", werr)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", errors.Errorf("reading: %w", err)
		}
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// Equal reports whether two digests match. Both sides must be non-empty, an
// absent digest never equals anything.
func Equal(a, b string) bool {
	return a != "" && a == b
}
