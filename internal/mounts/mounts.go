// Package mounts implements the Mount Inventory (spec §4.1): it parses the
// host's mount table into a map of dataset mounts, classifying each by
// filesystem type and transport, and sets aside bind/nested mounts that
// should be ignored during traversal.
package mounts

import (
	"context"
	"os"
	"runtime"
	"strings"

	"github.com/kimono-koans/httm/internal/config"
	"github.com/kimono-koans/httm/internal/herr"
	"github.com/kimono-koans/httm/internal/i18n"
	"github.com/kimono-koans/httm/internal/log"
)

// FilesystemType is the closed enumeration of dataset filesystems this
// tool understands (spec §3).
type FilesystemType int

// Recognized filesystem types.
const (
	FilesystemUnknown FilesystemType = iota
	Zfs
	Btrfs
	Nilfs2
	Apfs
)

func (t FilesystemType) String() string {
	switch t {
	case Zfs:
		return "zfs"
	case Btrfs:
		return "btrfs"
	case Nilfs2:
		return "nilfs2"
	case Apfs:
		return "apfs"
	default:
		return "unknown"
	}
}

// MountType distinguishes a dataset mounted locally from one reached over
// the network (spec §3).
type MountType int

// Recognized mount transports.
const (
	Local MountType = iota
	Network
)

func (t MountType) String() string {
	if t == Network {
		return "network"
	}
	return "local"
}

// DatasetMetadata describes one dataset mount (spec §3).
type DatasetMetadata struct {
	Source    string
	FSType    FilesystemType
	MountType MountType
	// BtrfsData carries the parsed subvol= option for Btrfs mounts, the
	// Btrfs(opt_data) payload spec §3 describes; empty for other filesystems.
	BtrfsData string `json:",omitempty"`
}

// MapOfDatasets is the mount_path -> DatasetMetadata mapping (spec §3).
// Keys are canonical absolute paths; no two keys name the same inode.
type MapOfDatasets map[string]DatasetMetadata

// FilterDirs holds mounts that are bind mounts or nested non-dataset
// mounts: present in the host's mount table but not to be treated as
// dataset roots during traversal (spec §4.1).
type FilterDirs map[string]bool

// rawMount is the platform-neutral shape both the Linux (mountinfo) and
// fallback (mount(8) parser) backends produce.
type rawMount struct {
	Source  string
	Target  string
	FSType  string
	Options []string
	// bind reports whether the platform parser already knows this entry
	// is a bind/nested mount of a subtree, independent of the options-based
	// heuristic in classify.
	bind bool
}

// New parses the host's mount table and returns the dataset map and the
// filter-out list (spec §4.1).
func New(ctx context.Context) (MapOfDatasets, FilterDirs, error) {
	log.Debug(ctx, i18n.G("mounts: scanning mount table"))

	raw, err := readMountTable()
	if err != nil {
		return nil, nil, herr.Wrap(herr.Other, err, i18n.G("couldn't read mount table"))
	}

	datasets, filter := classify(ctx, raw)

	if len(datasets) == 0 {
		if runtime.GOOS == "darwin" {
			if d, ok := timeMachineFallback(); ok {
				return d, filter, nil
			}
		}
		return nil, nil, herr.New(herr.NoDatasets, i18n.G("mount parsing succeeded but found no supported filesystems"))
	}

	return datasets, filter, nil
}

// classify turns the raw mount list into a dataset map plus a filter-out
// set, applying the exclusions in spec §4.1 (edge cases a, b).
func classify(ctx context.Context, raw []rawMount) (MapOfDatasets, FilterDirs) {
	datasets := make(MapOfDatasets)
	filter := make(FilterDirs)

	for _, m := range raw {
		// (a) Snapshot pseudo-mounts are excluded from the dataset map.
		if isSnapshotPseudoMount(m.Target) {
			continue
		}
		// (b) Mounts whose target does not exist on the live filesystem are discarded.
		if _, err := os.Stat(m.Target); err != nil {
			continue
		}

		if m.bind || hasOption(m.Options, "bind") {
			filter[m.Target] = true
			continue
		}

		dm, ok := classifyOne(m)
		if !ok {
			continue
		}
		log.Debugf(ctx, i18n.G("mounts: %s -> %s (%s, %s)"), m.Target, dm.Source, dm.FSType, dm.MountType)
		datasets[m.Target] = dm
	}

	return datasets, filter
}

// classifyOne maps a single raw mount entry to DatasetMetadata, or reports
// ok=false when the filesystem type is not one this tool understands
// (spec §4.1: "fstype unknown ... fall through").
func classifyOne(m rawMount) (DatasetMetadata, bool) {
	switch strings.ToLower(m.FSType) {
	case "zfs":
		return DatasetMetadata{Source: m.Source, FSType: Zfs, MountType: transportOf(m)}, true
	case "btrfs":
		subvol := parseSubvolOption(m.Options)
		source := m.Source
		if subvol != "" {
			source = m.Source + ":" + subvol
		}
		return DatasetMetadata{Source: source, FSType: Btrfs, MountType: transportOf(m), BtrfsData: subvol}, true
	case "nilfs2":
		return DatasetMetadata{Source: m.Source, FSType: Nilfs2, MountType: Local}, true
	default:
		return DatasetMetadata{}, false
	}
}

// transportOf classifies a mount as Local or Network based on the shape
// of its source (a "host:/path" or "//host/path" source is a network
// mount) and the presence of known network-transport options.
func transportOf(m rawMount) MountType {
	if strings.Contains(m.Source, ":") || strings.HasPrefix(m.Source, "//") {
		return Network
	}
	for _, opt := range m.Options {
		switch strings.ToLower(opt) {
		case "nfs", "cifs", "smb":
			return Network
		}
	}
	return Local
}

func hasOption(options []string, name string) bool {
	for _, opt := range options {
		if opt == name {
			return true
		}
	}
	return false
}

// parseSubvolOption extracts the value of a subvol= mount option.
func parseSubvolOption(options []string) string {
	for _, opt := range options {
		if v, ok := strings.CutPrefix(opt, "subvol="); ok {
			return v
		}
	}
	return ""
}

// isSnapshotPseudoMount reports whether target names a path inside a
// snapshot view rather than a live dataset root (spec §4.1 edge case a).
func isSnapshotPseudoMount(target string) bool {
	if strings.Contains(target, "/.zfs/snapshot/") {
		return true
	}
	if strings.Contains(target, "/.snapshots/") && strings.HasSuffix(target, "/snapshot") {
		return true
	}
	return false
}

// timeMachineFallback auto-enables APFS alt-store mode on macOS when no
// datasets were otherwise discovered and the conventional Time Machine
// mounts exist (spec §4.1 edge case c).
func timeMachineFallback() (MapOfDatasets, bool) {
	datasets := make(MapOfDatasets)
	found := false

	for _, p := range []string{config.TimeMachineLocalMount, config.TimeMachineRemoteMount} {
		if fi, err := os.Stat(p); err == nil && fi.IsDir() {
			datasets[p] = DatasetMetadata{Source: p, FSType: Apfs, MountType: Local}
			found = true
		}
	}
	if !found {
		return nil, false
	}
	return datasets, true
}
