package fsys

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dexerrors "github.com/docdexhq/docdex/internal/errors"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func testTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "a.md", "alpha")
	writeFile(t, root, "sub/b.md", "beta beta")
	writeFile(t, root, "sub/deep/c.md", "gamma")
	return root
}

func TestOSFS_ScanDirectory(t *testing.T) {
	root := testTree(t)
	osfs := NewOSFS()

	files, err := osfs.ScanDirectory(context.Background(), root, 0)
	require.NoError(t, err)
	require.Len(t, files, 3)

	// WalkDir yields lexical order.
	assert.Equal(t, "a.md", files[0].Path)
	assert.Equal(t, filepath.Join("sub", "b.md"), files[1].Path)
	assert.Equal(t, filepath.Join("sub", "deep", "c.md"), files[2].Path)

	assert.Equal(t, int64(5), files[0].Size)
	assert.Equal(t, int64(9), files[1].Size)
}

func TestOSFS_ScanDirectoryDepthBound(t *testing.T) {
	root := testTree(t)
	osfs := NewOSFS()

	t.Run("depth 1 sees only root files", func(t *testing.T) {
		files, err := osfs.ScanDirectory(context.Background(), root, 1)
		require.NoError(t, err)
		require.Len(t, files, 1)
		assert.Equal(t, "a.md", files[0].Path)
	})

	t.Run("depth 2 sees one level down", func(t *testing.T) {
		files, err := osfs.ScanDirectory(context.Background(), root, 2)
		require.NoError(t, err)
		require.Len(t, files, 2)
		assert.Equal(t, filepath.Join("sub", "b.md"), files[1].Path)
	})
}

func TestOSFS_ScanDirectorySkipsSymlinks(t *testing.T) {
	root := testTree(t)
	require.NoError(t, os.Symlink(filepath.Join(root, "a.md"), filepath.Join(root, "link.md")))

	files, err := NewOSFS().ScanDirectory(context.Background(), root, 0)
	require.NoError(t, err)

	for _, f := range files {
		assert.NotEqual(t, "link.md", f.Path)
	}
}

func TestOSFS_ScanDirectoryMissingRoot(t *testing.T) {
	_, err := NewOSFS().ScanDirectory(context.Background(), filepath.Join(t.TempDir(), "absent"), 0)
	require.Error(t, err)
	assert.Equal(t, dexerrors.ErrCodeScanFailed, dexerrors.GetCode(err))
}

func TestOSFS_ScanDirectoryRootIsFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "f.md", "x")

	_, err := NewOSFS().ScanDirectory(context.Background(), filepath.Join(root, "f.md"), 0)
	require.Error(t, err)
	assert.Equal(t, dexerrors.ErrCodeScanFailed, dexerrors.GetCode(err))
}

func TestOSFS_ScanDirectoryCancellation(t *testing.T) {
	root := testTree(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewOSFS().ScanDirectory(ctx, root, 0)
	require.Error(t, err)
}

func TestOSFS_ReadFile(t *testing.T) {
	root := testTree(t)
	osfs := NewOSFS()

	content, err := osfs.ReadFile(context.Background(), filepath.Join(root, "sub", "b.md"))
	require.NoError(t, err)
	assert.Equal(t, "beta beta", content)

	_, err = osfs.ReadFile(context.Background(), filepath.Join(root, "missing.md"))
	require.Error(t, err)
	assert.Equal(t, dexerrors.ErrCodeFileNotFound, dexerrors.GetCode(err))
}

func TestOSFS_ListFiles(t *testing.T) {
	root := testTree(t)

	files, err := NewOSFS().ListFiles(context.Background(), root, 0)
	require.NoError(t, err)
	require.Len(t, files, 3)

	for _, f := range files {
		assert.False(t, f.ModTime.IsZero())
		assert.Greater(t, f.Size, int64(0))
	}
}
