package snaps

import (
	"context"
	"os"
	"path/filepath"
)

// HasRecognizableLayout reports whether path itself looks like the root of
// a snapshot-bearing dataset, independent of the mount table: used by the
// Alias Map (spec §4.4) to validate a user-supplied remote directory that
// isn't itself a known dataset mount.
func HasRecognizableLayout(ctx context.Context, path string) bool {
	if fi, err := os.Stat(filepath.Join(path, ".zfs", "snapshot")); err == nil && fi.IsDir() {
		return true
	}

	if matches, err := filepath.Glob(filepath.Join(path, ".snapshots", "*", "snapshot")); err == nil && len(matches) > 0 {
		return true
	}

	if roots, err := btrfsSubvolumeShowRoots(ctx, path); err == nil && len(roots) > 0 {
		return true
	}

	return false
}
