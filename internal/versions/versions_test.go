package versions

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kimono-koans/httm/internal/herr"
	"github.com/kimono-koans/httm/internal/mounts"
	"github.com/kimono-koans/httm/internal/snaps"
)

func TestNewDedupesAndOrders(t *testing.T) {
	root := t.TempDir()
	mount := filepath.Join(root, "mount")
	live := filepath.Join(mount, "file.txt")
	require.NoError(t, os.MkdirAll(mount, 0755))
	require.NoError(t, os.WriteFile(live, []byte("live"), 0644))

	snap1 := filepath.Join(root, "snap1")
	snap2 := filepath.Join(root, "snap2")
	snap3 := filepath.Join(root, "snap3")
	for _, s := range []string{snap1, snap2, snap3} {
		require.NoError(t, os.MkdirAll(s, 0755))
	}

	oldTime := time.Now().Add(-2 * time.Hour)
	midTime := time.Now().Add(-1 * time.Hour)

	writeWithTime(t, filepath.Join(snap1, "file.txt"), "old", oldTime)
	writeWithTime(t, filepath.Join(snap2, "file.txt"), "old", oldTime) // duplicate (mtime,size)
	writeWithTime(t, filepath.Join(snap3, "file.txt"), "mid!", midTime)

	cfg := Config{
		Datasets: mounts.MapOfDatasets{mount: {Source: "tank/pool", FSType: mounts.Zfs}},
		Snaps:    snaps.MapOfSnaps{mount: {snap1, snap2, snap3}},
	}

	got, err := New(context.Background(), []string{live}, cfg)
	require.NoError(t, err)

	candidates := got[live]
	require.Len(t, candidates, 2)
	assert.True(t, candidates[0].Key().ModTimeNanos < candidates[1].Key().ModTimeNanos)
}

func TestNewFailsWithNoVersionsFound(t *testing.T) {
	root := t.TempDir()
	mount := filepath.Join(root, "mount")
	require.NoError(t, os.MkdirAll(mount, 0755))

	cfg := Config{
		Datasets: mounts.MapOfDatasets{mount: {Source: "tank/pool", FSType: mounts.Zfs}},
		Snaps:    snaps.MapOfSnaps{},
	}

	_, err := New(context.Background(), []string{filepath.Join(mount, "missing.txt")}, cfg)
	require.Error(t, err)
	assert.True(t, herr.Is(err, herr.NoVersionsFound))
}

func writeWithTime(t *testing.T, path, content string, mtime time.Time) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}
