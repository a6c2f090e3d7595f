package snaps

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/kimono-koans/httm/internal/herr"
	"github.com/kimono-koans/httm/internal/i18n"
	"github.com/kimono-koans/httm/internal/log"
	"github.com/kimono-koans/httm/internal/mounts"
)

// btrfsSubvolumeShowRoots invokes "btrfs subvolume show <mount>" and parses
// the "Snapshot(s):" block (spec §4.2, §6). Paths prefixed "<FS_TREE>/" are
// rooted at the mount directly; otherwise the first path component (the
// subvol name) is stripped and the remainder joined to the mount.
func btrfsSubvolumeShowRoots(ctx context.Context, mount string) ([]string, error) {
	runCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "btrfs", "subvolume", "show", mount)
	var stderr strings.Builder
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if stderr.Len() > 0 {
			return nil, herr.Wrap(herr.SubprocessError, err, i18n.G("btrfs subvolume show %s: %s"), mount, stderr.String())
		}
		return nil, herr.Wrap(herr.SubprocessError, err, i18n.G("btrfs subvolume show %s"), mount)
	}

	return parseBtrfsSnapshotBlock(string(out), mount), nil
}

// parseBtrfsSnapshotBlock pulls the indented paths following a
// "Snapshot(s):" header out of btrfs subvolume show's output.
func parseBtrfsSnapshotBlock(output, mount string) []string {
	var roots []string
	inBlock := false

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "Snapshot(s):") {
			inBlock = true
			continue
		}
		if !inBlock {
			continue
		}
		// The block ends at the next top-level (unindented) field or blank line.
		if trimmed == "" || (!strings.HasPrefix(line, " ") && !strings.HasPrefix(line, "\t")) {
			break
		}

		roots = append(roots, resolveBtrfsSnapshotPath(trimmed, mount))
	}

	return roots
}

func resolveBtrfsSnapshotPath(path, mount string) string {
	if rest, ok := strings.CutPrefix(path, "<FS_TREE>/"); ok {
		return filepath.Join(mount, rest)
	}

	parts := strings.SplitN(path, "/", 2)
	if len(parts) == 2 {
		return filepath.Join(mount, parts[1])
	}
	return mount
}

// btrfsVersionProbe is used to fail fast when the btrfs tool isn't
// installed, mirroring the "zfs -V" version probe in spec §6.
func btrfsVersionProbe(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, "btrfs", "version")
	if err := cmd.Run(); err != nil {
		return fmt.Errorf(i18n.G("btrfs tool not available: %v"), err)
	}
	return nil
}

// warnOnMissingBtrfs probes the btrfs CLI once up front when any dataset
// needs it, so a missing tool surfaces as one clear warning rather than a
// per-mount subprocess error repeated for every local Btrfs dataset.
func warnOnMissingBtrfs(ctx context.Context, datasets mounts.MapOfDatasets) {
	needsBtrfs := false
	for _, d := range datasets {
		if d.FSType == mounts.Btrfs && d.MountType == mounts.Local {
			needsBtrfs = true
			break
		}
	}
	if !needsBtrfs {
		return
	}
	if err := btrfsVersionProbe(ctx); err != nil {
		log.Warningf(ctx, i18n.G("snaps: %v"), err)
	}
}
