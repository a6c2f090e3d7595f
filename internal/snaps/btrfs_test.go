package snaps

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseBtrfsSnapshotBlock(t *testing.T) {
	t.Parallel()

	output := `Name: 			home
UUID: 			abc-123
Parent UUID: 		-
Creation time: 		2024-01-01 00:00:00 +0000
Snapshot(s):
              <FS_TREE>/snapshots/daily
              <FS_TREE>/snapshots/weekly
Quota group: 		0/261
`
	got := parseBtrfsSnapshotBlock(output, "/mnt/pool")
	assert.Equal(t, []string{
		"/mnt/pool/snapshots/daily",
		"/mnt/pool/snapshots/weekly",
	}, got)
}

func TestResolveBtrfsSnapshotPath(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "/mnt/pool/snapshots/daily", resolveBtrfsSnapshotPath("<FS_TREE>/snapshots/daily", "/mnt/pool"))
	assert.Equal(t, "/mnt/pool/snapshot-name", resolveBtrfsSnapshotPath("home/snapshot-name", "/mnt/pool"))
}
