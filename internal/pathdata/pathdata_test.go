package pathdata

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatAndPhantom(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	existing := filepath.Join(dir, "exists.txt")
	require.NoError(t, os.WriteFile(existing, []byte("hello"), 0644))

	present := New(existing)
	meta, ok, err := present.Stat()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(5), meta.Size)
	assert.False(t, present.IsPhantom())

	missing := New(filepath.Join(dir, "absent.txt"))
	assert.True(t, missing.IsPhantom())
}

func TestKeyDedupe(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")
	require.NoError(t, os.WriteFile(a, []byte("same"), 0644))
	require.NoError(t, os.WriteFile(b, []byte("same"), 0644))

	sameTime := mustStat(t, a).ModTime()
	require.NoError(t, os.Chtimes(b, sameTime, sameTime))

	pa, pb := New(a), New(b)
	pa.Stat()
	pb.Stat()

	assert.Equal(t, pa.Key(), pb.Key())
}

func TestLess(t *testing.T) {
	t.Parallel()

	a := New("/a")
	b := New("/b")
	assert.True(t, Less(a, b))
	assert.False(t, Less(b, a))
}

func TestIsDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.Mkdir(sub, 0755))

	assert.True(t, IsDir(sub))
	assert.False(t, IsDir(filepath.Join(dir, "missing")))
}

func mustStat(t *testing.T, path string) os.FileInfo {
	t.Helper()
	fi, err := os.Stat(path)
	require.NoError(t, err)
	return fi
}
