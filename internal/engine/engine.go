// Package engine composes the Mount Inventory, Snap Locator,
// Alt-Replicated Map, Alias Map, Path Resolver, Versions Engine, Deleted
// Engine, Diff Copy, Preserve, Snap Guard, and Roll-Forward packages
// behind the three small interfaces external collaborators consume
// (spec §1, §6): VersionsMap::new(paths), MountsForFiles::new(paths), and
// Restore::execute(snap, live).
package engine

import (
	"context"
	"os"

	"github.com/kimono-koans/httm/internal/aliases"
	"github.com/kimono-koans/httm/internal/alts"
	"github.com/kimono-koans/httm/internal/deleted"
	"github.com/kimono-koans/httm/internal/diffcopy"
	"github.com/kimono-koans/httm/internal/guard"
	"github.com/kimono-koans/httm/internal/herr"
	"github.com/kimono-koans/httm/internal/i18n"
	"github.com/kimono-koans/httm/internal/mounts"
	"github.com/kimono-koans/httm/internal/preserve"
	"github.com/kimono-koans/httm/internal/resolver"
	"github.com/kimono-koans/httm/internal/snaps"
	"github.com/kimono-koans/httm/internal/versions"
)

// Engine holds the frozen mount/snap/alt/alias inventory every operation
// resolves paths against (spec §5: "the mount/snap/alt/alias maps are
// frozen after construction and never mutated").
type Engine struct {
	Datasets      mounts.MapOfDatasets
	Filter        mounts.FilterDirs
	Snaps         snaps.MapOfSnaps
	Alts          alts.MapOfAlts
	Aliases       aliases.MapOfAliases
	AltReplicated bool
}

// New discovers the host's mount table, snapshot roots, alt-replicated
// peers, and alias map once, up front (spec §4.1-§4.4).
func New(ctx context.Context, cliAliases []string, altReplicated bool) (*Engine, error) {
	datasets, filter, err := mounts.New(ctx)
	if err != nil {
		return nil, err
	}

	snapMap, err := snaps.New(ctx, datasets)
	if err != nil {
		return nil, err
	}

	aliasMap, err := aliases.New(ctx, cliAliases, datasets)
	if err != nil {
		return nil, err
	}

	return &Engine{
		Datasets:      datasets,
		Filter:        filter,
		Snaps:         snapMap,
		Alts:          alts.New(datasets),
		Aliases:       aliasMap,
		AltReplicated: altReplicated,
	}, nil
}

func (e *Engine) versionsConfig() versions.Config {
	return versions.Config{
		Datasets:      e.Datasets,
		Aliases:       e.Aliases,
		Snaps:         e.Snaps,
		Alts:          e.Alts,
		AltReplicated: e.AltReplicated,
	}
}

// VersionsMap implements VersionsMap::new(paths) (spec §4.6, §6): for each
// live path, the ordered, deduplicated set of snapshot candidates.
func (e *Engine) VersionsMap(ctx context.Context, paths []string) (versions.MapOfVersions, error) {
	return versions.New(ctx, paths, e.versionsConfig())
}

// DeletedIn implements the Deleted Engine's contract (spec §4.7) for one
// live directory: names present in some snapshot but absent live.
func (e *Engine) DeletedIn(ctx context.Context, dir string) ([]deleted.Entry, error) {
	return deleted.New(ctx, dir, e.versionsConfig())
}

// MountForFile is one entry of MountsForFiles::new(paths)'s result: the
// dataset (or alias) a live path resolves to, plus its alt-replicated
// peers when alt-replicated search is enabled.
type MountForFile struct {
	Path      string
	Proximate resolver.Proximate
	Alts      []string
}

// MountsForFiles implements MountsForFiles::new(paths) (spec §6): for
// each live path, the dataset mount that contains it. A path that
// resolves to no known dataset is omitted rather than aborting the whole
// batch, matching the read-only engines' flatten-and-ignore error policy
// (spec §7). If none of the given paths resolves, the call fails with
// NoProximateDataset.
func (e *Engine) MountsForFiles(ctx context.Context, paths []string) ([]MountForFile, error) {
	out := make([]MountForFile, 0, len(paths))
	for _, p := range paths {
		proximate, err := resolver.ProximateOf(p, e.Aliases, e.Datasets)
		if err != nil {
			continue
		}
		entry := MountForFile{Path: p, Proximate: proximate}
		if e.AltReplicated {
			entry.Alts = e.Alts[proximate.Mount]
		}
		out = append(out, entry)
	}

	if len(out) == 0 && len(paths) > 0 {
		return nil, herr.New(herr.NoProximateDataset, i18n.G("none of the %d given paths resolved to a known dataset or alias"), len(paths))
	}
	return out, nil
}

// Restore implements Restore::execute(snap, live) (spec §4.8, §4.9,
// §4.10, §6): a guarded copy of one file from a snapshot path back onto
// its live counterpart. Regular files go through diff-copy plus
// preserve; symlinks, devices, FIFOs, and sockets are routed through
// preserve.ReconstructSpecial per the special-file table. dataset
// identifies the live dataset the guard snapshots; on any failure after
// the pre-snapshot is taken, Restore rolls the dataset back to the
// pre-snapshot itself, and on success it takes the post-snapshot.
func (e *Engine) Restore(ctx context.Context, dataset, snap, live string) (err error) {
	g, err := guard.New(ctx, dataset, guard.Restore)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			if rbErr := g.Rollback(ctx); rbErr != nil {
				err = herr.Wrap(herr.Other, err, i18n.G("restore failed and rollback also failed: %v"), rbErr)
			}
			return
		}
		err = g.Commit(ctx)
	}()

	fi, statErr := os.Lstat(snap)
	if statErr != nil {
		err = herr.Wrap(herr.Other, statErr, i18n.G("restore: stat %q"), snap)
		return err
	}

	if fi.Mode().IsRegular() {
		if err = diffcopy.Copy(ctx, snap, live); err != nil {
			return err
		}
		if err = preserve.Preserve(ctx, snap, live); err != nil {
			return err
		}
		return nil
	}

	err = preserve.ReconstructSpecial(ctx, snap, live)
	return err
}
