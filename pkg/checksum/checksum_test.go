package checksum_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walteh/archivrc/pkg/checksum"
)

// 🧪 TestReader tests digesting from a reader
func TestReader(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected string
	}{
		{
			name:     "empty",
			content:  "",
			expected: "d41d8cd98f00b204e9800998ecf8427e",
		},
		{
			name:     "hello_world",
			content:  "hello world",
			expected: "5eb63bbbe01eeed093cb22bb8f5acdc3",
		},
		{
			name:     "multiline",
			content:  "line one\nline two\n",
			expected: "987929d61c9b69f0c6406b840aa77fd8",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			digest, err := checksum.Reader(strings.NewReader(tt.content))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, digest)
		})
	}
}

// 🧪 TestFile tests digesting a file on disk
func TestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello world"), 0644))

	digest, err := checksum.File(path)
	require.NoError(t, err)
	assert.Equal(t, "5eb63bbbe01eeed093cb22bb8f5acdc3", digest)
}

// 🧪 TestFile_LargerThanBuffer exercises the chunked read path
func TestFile_LargerThanBuffer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.bin")
	content := strings.Repeat("archivrc", 32*1024) // 256KB, several chunks
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	fromFile, err := checksum.File(path)
	require.NoError(t, err)

	fromReader, err := checksum.Reader(strings.NewReader(content))
	require.NoError(t, err)

	assert.Equal(t, fromReader, fromFile)
}

// 🧪 TestFile_Missing tests the error path
func TestFile_Missing(t *testing.T) {
	_, err := checksum.File(filepath.Join(t.TempDir(), "nope.txt"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "opening file")
}

// 🧪 TestEqual tests digest comparison
func TestEqual(t *testing.T) {
	assert.True(t, checksum.Equal("abc", "abc"))
	assert.False(t, checksum.Equal("abc", "abd"))
	// An absent digest never equals anything, not even another absence.
	assert.False(t, checksum.Equal("", ""))
	assert.False(t, checksum.Equal("abc", ""))
}
