package retention_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walteh/archivrc/pkg/retention"
	"github.com/walteh/archivrc/pkg/scan"
)

func testContext(t *testing.T) context.Context {
	logger := zerolog.New(zerolog.NewTestWriter(t))
	return logger.WithContext(context.Background())
}

// 🧪 TestDelete_Subfolder tests recursive removal of a subfolder source
func TestDelete_Subfolder(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "sub", "deep"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "sub", "deep", "a.txt"), []byte("a"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "keep.txt"), []byte("k"), 0644))

	enforcer := retention.NewEnforcer(src, true)
	require.True(t, enforcer.Enabled())

	require.NoError(t, enforcer.Delete(testContext(t), scan.Candidate{RelPath: "sub", IsDir: true}))

	_, err := os.Stat(filepath.Join(src, "sub"))
	assert.True(t, os.IsNotExist(err))
	// Siblings outside the candidate are untouched.
	_, err = os.Stat(filepath.Join(src, "keep.txt"))
	assert.NoError(t, err)
}

// 🧪 TestDelete_File tests single-file removal
func TestDelete_File(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.txt"), []byte("a"), 0644))

	enforcer := retention.NewEnforcer(src, true)
	require.NoError(t, enforcer.Delete(testContext(t), scan.Candidate{RelPath: "a.txt"}))

	_, err := os.Stat(filepath.Join(src, "a.txt"))
	assert.True(t, os.IsNotExist(err))
}

// 🧪 TestDelete_Disabled tests that a disabled enforcer never deletes
func TestDelete_Disabled(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.txt"), []byte("a"), 0644))

	enforcer := retention.NewEnforcer(src, false)
	require.False(t, enforcer.Enabled())

	require.NoError(t, enforcer.Delete(testContext(t), scan.Candidate{RelPath: "a.txt"}))

	_, err := os.Stat(filepath.Join(src, "a.txt"))
	assert.NoError(t, err)
}

// 🧪 TestDelete_MissingFile tests the failure path
func TestDelete_MissingFile(t *testing.T) {
	enforcer := retention.NewEnforcer(t.TempDir(), true)

	err := enforcer.Delete(testContext(t), scan.Candidate{RelPath: "vanished.txt"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deleting source vanished.txt")
}
