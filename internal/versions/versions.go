// Package versions implements the Versions Engine (spec §4.6): for each
// live path it collects the unique, chronologically ordered set of
// snapshot candidates that share its dataset history.
package versions

import (
	"context"
	"path/filepath"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/kimono-koans/httm/internal/alts"
	"github.com/kimono-koans/httm/internal/aliases"
	"github.com/kimono-koans/httm/internal/herr"
	"github.com/kimono-koans/httm/internal/i18n"
	"github.com/kimono-koans/httm/internal/mounts"
	"github.com/kimono-koans/httm/internal/pathdata"
	"github.com/kimono-koans/httm/internal/resolver"
	"github.com/kimono-koans/httm/internal/snaps"
)

// Config bundles the discovered inventory the engine resolves paths
// against, plus the alt-replicated search toggle (spec §4.6 step 2).
type Config struct {
	Datasets      mounts.MapOfDatasets
	Aliases       aliases.MapOfAliases
	Snaps         snaps.MapOfSnaps
	Alts          alts.MapOfAlts
	AltReplicated bool
}

// MapOfVersions is the live_path -> [snapshot_candidate] mapping (spec §3, §4.6).
type MapOfVersions map[string][]*pathdata.PathData

// New computes MapOfVersions for every path in paths (spec §4.6,
// "VersionsMap::new(paths)"). Each path is resolved independently and in
// parallel. If any path fails, New waits for the other workers and then
// returns a nil map and the first error; later errors are not reported.
func New(ctx context.Context, paths []string, cfg Config) (MapOfVersions, error) {
	out := make(MapOfVersions, len(paths))
	results := make([][]*pathdata.PathData, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range paths {
		i, p := i, p
		g.Go(func() error {
			candidates, err := versionsOf(gctx, p, cfg)
			if err != nil {
				return err
			}
			results[i] = candidates
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, p := range paths {
		out[p] = results[i]
	}
	return out, nil
}

// versionsOf runs the per-path algorithm of spec §4.6 steps 1-5.
func versionsOf(ctx context.Context, p string, cfg Config) ([]*pathdata.PathData, error) {
	proximate, err := resolver.ProximateOf(p, cfg.Aliases, cfg.Datasets)
	if err != nil {
		return nil, err
	}

	datasetsOfInterest := []string{proximate.Mount}
	if cfg.AltReplicated {
		datasetsOfInterest = append(datasetsOfInterest, cfg.Alts[proximate.Mount]...)
	}

	byKey := make(map[pathdata.Key]*pathdata.PathData)
	var order []pathdata.Key

	for _, d := range datasetsOfInterest {
		for _, s := range cfg.Snaps[d] {
			candidate := filepath.Join(s, proximate.Relative)
			pd := pathdata.New(candidate)
			if _, ok, err := pd.Stat(); err != nil || !ok {
				continue
			}
			key := pd.Key()
			if _, seen := byKey[key]; seen {
				continue
			}
			byKey[key] = pd
			order = append(order, key)
		}
	}

	sort.Slice(order, func(i, j int) bool {
		if order[i].ModTimeNanos != order[j].ModTimeNanos {
			return order[i].ModTimeNanos < order[j].ModTimeNanos
		}
		return order[i].Size < order[j].Size
	})

	candidates := make([]*pathdata.PathData, 0, len(order))
	for _, k := range order {
		candidates = append(candidates, byKey[k])
	}

	live := pathdata.New(p)
	if live.IsPhantom() && len(candidates) == 0 {
		return nil, herr.New(herr.NoVersionsFound, i18n.G("%q has no metadata and no snapshot candidates were found"), p)
	}

	return candidates, nil
}
