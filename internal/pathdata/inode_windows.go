//go:build windows

package pathdata

import "os"

// inodeOf has no portable equivalent on Windows; the snapshot sources this
// tool targets (ZFS, Btrfs, NILFS2, APFS) are not Windows filesystems, so
// this is a stub kept only so the package builds there.
func inodeOf(fi os.FileInfo) uint64 {
	return 0
}
