package remote_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/archivrc/pkg/remote"
)

func testContext(t *testing.T) context.Context {
	logger := zerolog.New(zerolog.NewTestWriter(t))
	return logger.WithContext(context.Background())
}

// fakeClient serves an in-memory tree keyed by full remote path.
type fakeClient struct {
	files    map[string]string
	failures map[string]error
}

func (c *fakeClient) ListFiles(ctx context.Context, root string) ([]string, error) {
	var out []string
	for path := range c.files {
		out = append(out, path)
	}
	return out, nil
}

func (c *fakeClient) Fetch(ctx context.Context, remotePath, localPath string) error {
	if err := c.failures[remotePath]; err != nil {
		return err
	}
	content, ok := c.files[remotePath]
	if !ok {
		return errors.Errorf("no such remote file: %s", remotePath)
	}
	if err := os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return err
	}
	return os.WriteFile(localPath, []byte(content), 0644)
}

func (c *fakeClient) Close() error {
	return nil
}

// 🧪 TestDownload tests fetching a remote tree with layout preserved
func TestDownload(t *testing.T) {
	client := &fakeClient{files: map[string]string{
		"/export/run1/a.txt":      "alpha",
		"/export/run1/deep/b.txt": "bravo",
	}}
	local := filepath.Join(t.TempDir(), "copy_a")

	require.NoError(t, remote.Download(testContext(t), client, "/export/run1", local))

	content, err := os.ReadFile(filepath.Join(local, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "alpha", string(content))

	content, err = os.ReadFile(filepath.Join(local, "deep", "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "bravo", string(content))
}

// 🧪 TestDownload_FetchFailureSkips tests that one bad file is skipped
func TestDownload_FetchFailureSkips(t *testing.T) {
	client := &fakeClient{
		files: map[string]string{
			"/export/a.txt": "alpha",
			"/export/b.txt": "bravo",
		},
		failures: map[string]error{
			"/export/b.txt": errors.New("permission denied"),
		},
	}
	local := filepath.Join(t.TempDir(), "copy_a")

	require.NoError(t, remote.Download(testContext(t), client, "/export", local))

	_, err := os.Stat(filepath.Join(local, "a.txt"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(local, "b.txt"))
	assert.True(t, os.IsNotExist(err))
}

// 🧪 TestVerifyPair tests the double-download reconciliation
func TestVerifyPair(t *testing.T) {
	client := &fakeClient{files: map[string]string{
		"/export/a.txt":     "alpha",
		"/export/sub/b.txt": "bravo",
	}}

	dest := t.TempDir()
	outDir := filepath.Join(dest, "out")
	copyA := filepath.Join(dest, "copy_a")
	copyB := filepath.Join(dest, "copy_b")
	require.NoError(t, remote.Download(testContext(t), client, "/export", copyA))
	require.NoError(t, remote.Download(testContext(t), client, "/export", copyB))

	rec, err := remote.VerifyPair(testContext(t), copyA, copyB, outDir, 2)
	require.NoError(t, err)
	assert.True(t, rec.Pass())

	// Both manifests and both CSVs land in the output directory.
	for _, name := range []string{"manifest_a.txt", "manifest_b.txt", "reconcile.csv", "reconcile_diff.csv"} {
		_, err := os.Stat(filepath.Join(outDir, name))
		assert.NoError(t, err, name)
	}
}

// 🧪 TestVerifyPair_Mismatch tests that a diverged copy fails the pair
func TestVerifyPair_Mismatch(t *testing.T) {
	dest := t.TempDir()
	copyA := filepath.Join(dest, "copy_a")
	copyB := filepath.Join(dest, "copy_b")

	require.NoError(t, os.MkdirAll(copyA, 0755))
	require.NoError(t, os.MkdirAll(copyB, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(copyA, "a.txt"), []byte("alpha"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(copyB, "a.txt"), []byte("alpha!"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(copyA, "only_a.txt"), []byte("x"), 0644))

	rec, err := remote.VerifyPair(testContext(t), copyA, copyB, filepath.Join(dest, "out"), 1)
	require.NoError(t, err)

	assert.False(t, rec.Pass())
	require.Len(t, rec.Mismatches(), 2)
	assert.Equal(t, "a.txt", rec.Mismatches()[0].Path)
	assert.Equal(t, "only_a.txt", rec.Mismatches()[1].Path)
}
