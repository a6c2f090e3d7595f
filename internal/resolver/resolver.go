// Package resolver implements the Path Resolver (spec §4.5): given a live
// path, it finds the most-proximate dataset by longest matching ancestor,
// honoring the alias map first.
package resolver

import (
	"os"
	"path/filepath"

	"github.com/kimono-koans/httm/internal/aliases"
	"github.com/kimono-koans/httm/internal/herr"
	"github.com/kimono-koans/httm/internal/i18n"
	"github.com/kimono-koans/httm/internal/mounts"
)

// Proximate is the result of resolving a live path: the dataset mount (or
// alias remote) that contains it, and the path relative to that root.
type Proximate struct {
	Mount    string
	Relative string
	// FromAlias reports whether Mount came from the alias map rather than
	// the mount inventory. FSType is the alias's or the dataset's
	// filesystem type. The Versions and Deleted engines read neither field.
	FromAlias bool
	FSType    mounts.FilesystemType
}

// ProximateOf resolves path to its proximate dataset (spec §4.5).
//
// Tie-break: alias hits win over mount hits at the same ancestor depth;
// among mount hits, the deepest ancestor wins (longest prefix) — spec §4.5.
func ProximateOf(path string, aliasMap aliases.MapOfAliases, datasets mounts.MapOfDatasets) (Proximate, error) {
	canon, err := canonicalize(path)
	if err != nil {
		return Proximate{}, herr.Wrap(herr.Other, err, i18n.G("can't resolve %q"), path)
	}

	for _, ancestor := range ancestorsDeepestFirst(canon) {
		if alias, ok := aliasMap[ancestor]; ok {
			rel, err := filepath.Rel(ancestor, canon)
			if err != nil {
				return Proximate{}, herr.Wrap(herr.Other, err, i18n.G("can't compute relative path for %q"), path)
			}
			return Proximate{Mount: alias.Remote, Relative: rel, FromAlias: true, FSType: alias.FSType}, nil
		}
		if d, ok := datasets[ancestor]; ok {
			rel, err := filepath.Rel(ancestor, canon)
			if err != nil {
				return Proximate{}, herr.Wrap(herr.Other, err, i18n.G("can't compute relative path for %q"), path)
			}
			return Proximate{Mount: ancestor, Relative: rel, FSType: d.FSType}, nil
		}
	}

	return Proximate{}, herr.New(herr.NoProximateDataset, i18n.G("%q is not under any known dataset or alias"), path)
}

// canonicalize resolves path to an absolute path (spec §4.5 step 1). If the
// path exists, symlinks are resolved too; if it does not exist, it is only
// joined to the working directory so it still names a potential
// snapshot-relative location.
func canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}

	if _, err := os.Lstat(abs); err != nil {
		return abs, nil
	}

	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	return abs, nil
}

// ancestorsDeepestFirst returns path and each of its ancestors, deepest first.
func ancestorsDeepestFirst(path string) []string {
	ancestors := []string{path}
	cur := path
	for {
		parent := filepath.Dir(cur)
		if parent == cur {
			break
		}
		ancestors = append(ancestors, parent)
		cur = parent
	}
	return ancestors
}
