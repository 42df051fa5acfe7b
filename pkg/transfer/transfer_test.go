package transfer_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walteh/archivrc/pkg/scan"
	"github.com/walteh/archivrc/pkg/transfer"
)

func testContext(t *testing.T) context.Context {
	logger := zerolog.New(zerolog.NewTestWriter(t))
	return logger.WithContext(context.Background())
}

// 🧪 TestFiles tests candidate file listing
func TestFiles(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "sub", "deep"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "sub", "a.txt"), []byte("a"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "sub", "deep", "b.txt"), []byte("b"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "loose.txt"), []byte("c"), 0644))

	executor := transfer.NewExecutor(src, t.TempDir())

	t.Run("subfolder", func(t *testing.T) {
		files, err := executor.Files(scan.Candidate{RelPath: "sub", IsDir: true})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"sub/a.txt", "sub/deep/b.txt"}, files)
	})

	t.Run("single_file", func(t *testing.T) {
		files, err := executor.Files(scan.Candidate{RelPath: "loose.txt"})
		require.NoError(t, err)
		assert.Equal(t, []string{"loose.txt"}, files)
	})

	t.Run("missing_subfolder", func(t *testing.T) {
		_, err := executor.Files(scan.Candidate{RelPath: "vanished", IsDir: true})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "listing candidate files")
	})
}

// 🧪 TestTransfer_Subfolder tests copying a whole subfolder
func TestTransfer_Subfolder(t *testing.T) {
	src := t.TempDir()
	runRoot := filepath.Join(t.TempDir(), "20260831_120000")
	require.NoError(t, os.MkdirAll(filepath.Join(src, "sub", "deep"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "sub", "a.txt"), []byte("hello world"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(src, "sub", "deep", "b.txt"), []byte("bb"), 0644))

	mtime := time.Date(2026, 1, 15, 9, 30, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(filepath.Join(src, "sub", "a.txt"), mtime, mtime))

	var ticks int
	executor := transfer.NewExecutor(src, runRoot).WithProgress(func() { ticks++ })

	results, err := executor.Transfer(testContext(t), scan.Candidate{RelPath: "sub", IsDir: true})
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.NoError(t, r.Err)
	}
	assert.Equal(t, 2, ticks)

	content, err := os.ReadFile(filepath.Join(runRoot, "sub", "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(content))

	content, err = os.ReadFile(filepath.Join(runRoot, "sub", "deep", "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "bb", string(content))

	// Mode and mtime follow the source.
	info, err := os.Stat(filepath.Join(runRoot, "sub", "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	assert.True(t, info.ModTime().Equal(mtime))

	// Source is untouched.
	_, err = os.Stat(filepath.Join(src, "sub", "a.txt"))
	assert.NoError(t, err)
}

// 🧪 TestTransfer_EmptySubfolder tests that an empty subfolder materializes
func TestTransfer_EmptySubfolder(t *testing.T) {
	src := t.TempDir()
	runRoot := filepath.Join(t.TempDir(), "run")
	require.NoError(t, os.MkdirAll(filepath.Join(src, "empty"), 0755))

	executor := transfer.NewExecutor(src, runRoot)
	results, err := executor.Transfer(testContext(t), scan.Candidate{RelPath: "empty", IsDir: true})
	require.NoError(t, err)
	assert.Empty(t, results)

	info, err := os.Stat(filepath.Join(runRoot, "empty"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

// 🧪 TestTransfer_SingleFile tests the per-file path
func TestTransfer_SingleFile(t *testing.T) {
	src := t.TempDir()
	runRoot := filepath.Join(t.TempDir(), "run")
	require.NoError(t, os.MkdirAll(filepath.Join(src, "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "sub", "a.txt"), []byte("hello world"), 0644))

	executor := transfer.NewExecutor(src, runRoot)
	results, err := executor.Transfer(testContext(t), scan.Candidate{RelPath: "sub/a.txt"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "sub/a.txt", results[0].RelPath)

	content, err := os.ReadFile(filepath.Join(runRoot, "sub", "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(content))
}

// 🧪 TestTransfer_FailureStopsCandidate tests first-failure semantics
func TestTransfer_FailureStopsCandidate(t *testing.T) {
	src := t.TempDir()
	runRoot := filepath.Join(t.TempDir(), "run")
	executor := transfer.NewExecutor(src, runRoot)

	// The candidate names a file that is gone by copy time.
	results, err := executor.Transfer(testContext(t), scan.Candidate{RelPath: "vanished.txt"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "copying vanished.txt")
	require.Len(t, results, 1)
	assert.Error(t, results[0].Err)
}

// 🧪 TestTransfer_Cancelled tests that cancellation stops between files
func TestTransfer_Cancelled(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "sub", "a.txt"), []byte("a"), 0644))

	ctx, cancel := context.WithCancel(testContext(t))
	cancel()

	executor := transfer.NewExecutor(src, filepath.Join(t.TempDir(), "run"))
	results, err := executor.Transfer(ctx, scan.Candidate{RelPath: "sub", IsDir: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transfer cancelled")
	assert.Empty(t, results)
}
