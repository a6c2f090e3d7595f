package preserve

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreservePermissions(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0600))
	require.NoError(t, os.WriteFile(dst, []byte("x"), 0644))

	require.NoError(t, Preserve(context.Background(), src, dst))

	fi, err := os.Stat(dst)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), fi.Mode().Perm())
}

func TestPreserveSkipsSymlinks(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "target")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0644))
	link := filepath.Join(dir, "link")
	require.NoError(t, os.Symlink(target, link))

	assert.NoError(t, Preserve(context.Background(), link, link))
}

func TestReconstructSpecialSymlink(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "target")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0644))
	src := filepath.Join(dir, "srclink")
	require.NoError(t, os.Symlink(target, src))
	dst := filepath.Join(dir, "dstlink")

	require.NoError(t, ReconstructSpecial(context.Background(), src, dst))

	got, err := os.Readlink(dst)
	require.NoError(t, err)
	assert.Equal(t, target, got)
}

func TestReconstructSpecialRejectsRegularFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "regular")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0644))

	err := ReconstructSpecial(context.Background(), src, filepath.Join(dir, "dst"))
	assert.Error(t, err)
}

func TestReconstructSpecialSkipsSocketWithoutError(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "sock")

	l, err := net.Listen("unix", src)
	require.NoError(t, err)
	defer l.Close()

	assert.NoError(t, ReconstructSpecial(context.Background(), src, filepath.Join(dir, "dst")))
}

func TestRemoveRecursiveDepthFirst(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(nested, "f.txt"), []byte("x"), 0644))

	require.NoError(t, Remove(filepath.Join(dir, "a")))

	_, err := os.Stat(filepath.Join(dir, "a"))
	assert.True(t, os.IsNotExist(err))
}
