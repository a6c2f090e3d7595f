package mounts

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyExcludesSnapshotPseudoMountsAndMissingTargets(t *testing.T) {
	root := t.TempDir()
	live := filepath.Join(root, "pool")
	require.NoError(t, os.MkdirAll(live, 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(live, "bind"), 0755))

	raw := []rawMount{
		{Source: "tank/pool", Target: live, FSType: "zfs"},
		{Source: "tank/pool@snap", Target: filepath.Join(live, ".zfs", "snapshot", "snap1"), FSType: "zfs"},
		{Source: "tank/missing", Target: filepath.Join(root, "nonexistent"), FSType: "zfs"},
		{Source: "tank/pool", Target: filepath.Join(live, "bind"), FSType: "zfs", bind: true},
	}

	datasets, filter := classify(context.Background(), raw)

	require.Contains(t, datasets, live)
	assert.Equal(t, Zfs, datasets[live].FSType)
	assert.NotContains(t, datasets, filepath.Join(live, ".zfs", "snapshot", "snap1"))
	assert.NotContains(t, datasets, filepath.Join(root, "nonexistent"))
	assert.True(t, filter[filepath.Join(live, "bind")])
}

func TestClassifyOneBtrfsSubvol(t *testing.T) {
	t.Parallel()

	dm, ok := classifyOne(rawMount{Source: "/dev/sda1", FSType: "btrfs", Options: []string{"subvol=/home"}})
	require.True(t, ok)
	assert.Equal(t, Btrfs, dm.FSType)
	assert.Equal(t, "/home", dm.BtrfsData)
	assert.Equal(t, "/dev/sda1:/home", dm.Source)
}

func TestClassifyOneUnknownFSType(t *testing.T) {
	t.Parallel()

	_, ok := classifyOne(rawMount{Source: "tmpfs", FSType: "tmpfs"})
	assert.False(t, ok)
}

func TestTransportOf(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Network, transportOf(rawMount{Source: "server:/export"}))
	assert.Equal(t, Network, transportOf(rawMount{Source: "/dev/sda1", Options: []string{"nfs"}}))
	assert.Equal(t, Local, transportOf(rawMount{Source: "/dev/sda1"}))
}

func TestIsSnapshotPseudoMount(t *testing.T) {
	t.Parallel()

	assert.True(t, isSnapshotPseudoMount("/pool/.zfs/snapshot/daily"))
	assert.True(t, isSnapshotPseudoMount("/pool/.snapshots/42/snapshot"))
	assert.False(t, isSnapshotPseudoMount("/pool/home"))
}
