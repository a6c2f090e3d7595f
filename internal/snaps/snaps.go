// Package snaps implements the Snap Locator (spec §4.2): for each dataset
// mount, it enumerates the existing directories whose contents mirror
// that dataset at some past instant.
package snaps

import (
	"context"
	"os"
	"path/filepath"

	"github.com/kimono-koans/httm/internal/herr"
	"github.com/kimono-koans/httm/internal/i18n"
	"github.com/kimono-koans/httm/internal/log"
	"github.com/kimono-koans/httm/internal/mounts"
)

// MapOfSnaps is the dataset_mount -> [snapshot_root_path] mapping (spec §3).
type MapOfSnaps map[string][]string

// New builds MapOfSnaps for every dataset mount. Failure of one dataset's
// lookup does not fail the whole map (spec §4.2): that dataset simply has
// no snapshots. The overall call fails only if every dataset yielded
// nothing and at least one dataset was scanned.
func New(ctx context.Context, datasets mounts.MapOfDatasets) (MapOfSnaps, error) {
	out := make(MapOfSnaps, len(datasets))

	warnOnMissingBtrfs(ctx, datasets)

	for mount, d := range datasets {
		roots, err := locate(ctx, mount, d)
		if err != nil {
			log.Debugf(ctx, i18n.G("snaps: %s: %v"), mount, err)
			continue
		}
		if len(roots) == 0 {
			continue
		}
		out[mount] = roots
	}

	if len(out) == 0 && len(datasets) > 0 {
		return nil, herr.New(herr.Other, i18n.G("snaps: no snapshots found on any of %d dataset(s)"), len(datasets))
	}

	return out, nil
}

func locate(ctx context.Context, mount string, d mounts.DatasetMetadata) ([]string, error) {
	switch d.FSType {
	case mounts.Zfs:
		return zfsSnapshotRoots(mount)
	case mounts.Btrfs:
		if d.MountType == mounts.Network {
			return snapperConventionRoots(mount)
		}
		roots, err := btrfsSubvolumeShowRoots(ctx, mount)
		if err != nil {
			// Network transports aren't the only place Snapper shows up:
			// fall back to the same directory convention if the CLI call fails.
			if fallback, ferr := snapperConventionRoots(mount); ferr == nil && len(fallback) > 0 {
				return fallback, nil
			}
			return nil, err
		}
		return roots, nil
	case mounts.Nilfs2:
		return mounts.Checkpoints(d.Source)
	case mounts.Apfs:
		return timeMachineRoots(mount)
	default:
		return nil, nil
	}
}

// zfsSnapshotRoots enumerates the immediate entries of <mount>/.zfs/snapshot/.
func zfsSnapshotRoots(mount string) ([]string, error) {
	dir := filepath.Join(mount, ".zfs", "snapshot")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	roots := make([]string, 0, len(entries))
	for _, e := range entries {
		roots = append(roots, filepath.Join(dir, e.Name()))
	}
	return roots, nil
}

// snapperConventionRoots enumerates mount/.snapshots/*/snapshot (spec §4.2,
// Btrfs network / Snapper convention).
func snapperConventionRoots(mount string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(mount, ".snapshots", "*", "snapshot"))
	if err != nil {
		return nil, err
	}

	var roots []string
	for _, m := range matches {
		if fi, err := os.Stat(m); err == nil && fi.IsDir() {
			roots = append(roots, m)
		}
	}
	return roots, nil
}

// timeMachineRoots enumerates the immediate entries of the conventional
// Time Machine mount, treating each as a candidate snapshot root (spec
// §4.2, APFS Time Machine).
func timeMachineRoots(mount string) ([]string, error) {
	entries, err := os.ReadDir(mount)
	if err != nil {
		return nil, err
	}

	roots := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		roots = append(roots, filepath.Join(mount, e.Name()))
	}
	return roots, nil
}
