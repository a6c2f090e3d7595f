//go:build !windows

package pathdata

import (
	"os"
	"syscall"
)

// inodeOf extracts the inode number from a FileInfo on platforms that
// expose *syscall.Stat_t (Linux, macOS, the BSDs).
func inodeOf(fi os.FileInfo) uint64 {
	st, ok := fi.Sys().(*syscall.Stat_t)
	if !ok {
		return 0
	}
	return uint64(st.Ino)
}
