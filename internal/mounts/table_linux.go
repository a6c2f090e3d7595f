//go:build linux

package mounts

import (
	"github.com/moby/sys/mountinfo"
)

// readMountTable consults the kernel's mount list directly via
// /proc/self/mountinfo, the preferred source on Linux (spec §4.1).
func readMountTable() ([]rawMount, error) {
	infos, err := mountinfo.GetMounts(nil)
	if err != nil {
		return fallbackMountCommand()
	}

	raw := make([]rawMount, 0, len(infos))
	for _, info := range infos {
		raw = append(raw, rawMount{
			Source:  info.Source,
			Target:  info.Mountpoint,
			FSType:  info.FSType,
			Options: splitOptions(info.VFSOptions + "," + info.Options),
			// A non-root Root means this mount exposes only a subtree of its
			// filesystem: the classic shape of a bind mount (spec §4.1: "filter_dirs
			// holds non-dataset mounts to be ignored during traversal"). Btrfs
			// subvolume mounts also report the subvolume path as Root, so they
			// are left for classify to handle via their subvol= option.
			bind: info.FSType != "btrfs" && info.Root != "" && info.Root != "/",
		})
	}
	return raw, nil
}
