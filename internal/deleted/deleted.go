// Package deleted implements the Deleted Engine (spec §4.7): given a live
// directory, it surfaces entries that still exist in some snapshot of that
// directory but have since been removed from the live listing.
package deleted

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/kimono-koans/httm/internal/pathdata"
	"github.com/kimono-koans/httm/internal/resolver"
	"github.com/kimono-koans/httm/internal/versions"
)

// Entry is one surfaced deleted name: the most recent surviving witness
// across every snapshot that recorded it (spec §4.7 step 3).
type Entry struct {
	Name string
	Data *pathdata.PathData
}

// New computes the deleted entries of live directory dir (spec §4.7,
// "given a live directory D, return dir-entry records for names that exist
// under some snapshot of D but not in the live listing of D").
func New(ctx context.Context, dir string, cfg versions.Config) ([]Entry, error) {
	liveNames, err := readLiveNames(dir)
	if err != nil {
		return nil, err
	}

	proximate, err := resolver.ProximateOf(dir, cfg.Aliases, cfg.Datasets)
	if err != nil {
		return nil, err
	}

	datasetsOfInterest := []string{proximate.Mount}
	if cfg.AltReplicated {
		datasetsOfInterest = append(datasetsOfInterest, cfg.Alts[proximate.Mount]...)
	}

	latest := make(map[string]*pathdata.PathData)

	for _, d := range datasetsOfInterest {
		for _, s := range cfg.Snaps[d] {
			snapDir := filepath.Join(s, proximate.Relative)
			entries, err := os.ReadDir(snapDir)
			if err != nil {
				continue
			}
			for _, e := range entries {
				pd := pathdata.New(filepath.Join(snapDir, e.Name()))
				meta, ok, err := pd.Stat()
				if err != nil || !ok {
					continue
				}
				existing, seen := latest[e.Name()]
				if !seen {
					latest[e.Name()] = pd
					continue
				}
				existingMeta, _, _ := existing.Stat()
				if meta.ModTime.After(existingMeta.ModTime) {
					latest[e.Name()] = pd
				}
			}
		}
	}

	out := make([]Entry, 0, len(latest))
	for name, pd := range latest {
		if liveNames[name] {
			continue
		}
		out = append(out, Entry{Name: name, Data: pd})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func readLiveNames(dir string) (map[string]bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make(map[string]bool, len(entries))
	for _, e := range entries {
		names[e.Name()] = true
	}
	return names, nil
}
