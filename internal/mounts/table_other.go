//go:build !linux

package mounts

// readMountTable falls back to the "mount" utility on BSD/macOS, where
// there is no single kernel-exposed mount list analogous to Linux's
// /proc/self/mountinfo (spec §4.1).
func readMountTable() ([]rawMount, error) {
	return fallbackMountCommand()
}
