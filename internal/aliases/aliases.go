// Package aliases implements the Alias Map (spec §4.4): user-supplied
// local:remote routing that lets a non-snapshot-aware local path be
// treated as a view into a remote snapshot-bearing filesystem.
package aliases

import (
	"context"
	"os"
	"strings"

	"github.com/kimono-koans/httm/internal/config"
	"github.com/kimono-koans/httm/internal/herr"
	"github.com/kimono-koans/httm/internal/i18n"
	"github.com/kimono-koans/httm/internal/log"
	"github.com/kimono-koans/httm/internal/mounts"
	"github.com/kimono-koans/httm/internal/snaps"
)

// Alias is one local_dir -> {remote_dir, fs_type} entry (spec §3).
type Alias struct {
	Remote string
	FSType mounts.FilesystemType
}

// MapOfAliases is the local_dir -> Alias mapping (spec §3).
type MapOfAliases map[string]Alias

// New builds MapOfAliases from, in priority order (spec §4.4):
//  1. HTTM_MAP_ALIASES (overrides CLI aliases entirely if set)
//  2. the CLI alias list, parsed the same way
//  3. the implicit single alias from HTTM_REMOTE_DIR/HTTM_SNAP_POINT + HTTM_LOCAL_DIR
//
// Each produced alias is kept only if its remote side resolves to a known
// dataset mount or a path with a recognizable snapshot layout (spec §4.4,
// and the Open Question resolved in DESIGN.md); otherwise it is dropped
// with a logged warning.
func New(ctx context.Context, cliAliases []string, datasets mounts.MapOfDatasets) (MapOfAliases, error) {
	pairs, err := rawPairs(cliAliases)
	if err != nil {
		return nil, err
	}

	out := make(MapOfAliases, len(pairs))
	for local, remote := range pairs {
		fsType, ok := validateRemote(ctx, remote, datasets)
		if !ok {
			log.Warningf(ctx, i18n.G("aliases: dropping %q -> %q: remote is not a known dataset and has no recognizable snapshot layout"), local, remote)
			continue
		}
		out[local] = Alias{Remote: remote, FSType: fsType}
	}

	return out, nil
}

// rawPairs resolves the three input sources into local -> remote pairs,
// without yet validating against the mount table.
func rawPairs(cliAliases []string) (map[string]string, error) {
	if env, ok := os.LookupEnv(config.EnvMapAliases); ok && env != "" {
		return parseList(env)
	}

	if len(cliAliases) > 0 {
		return parseList(strings.Join(cliAliases, ","))
	}

	remote := os.Getenv(config.EnvRemoteDir)
	if remote == "" {
		remote = os.Getenv(config.EnvSnapPoint)
	}
	if remote == "" {
		return map[string]string{}, nil
	}

	local := os.Getenv(config.EnvLocalDir)
	if local == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, herr.Wrap(herr.Other, err, i18n.G("can't determine working directory for implicit alias"))
		}
		local = wd
	}

	return map[string]string{local: remote}, nil
}

// parseList parses a comma-separated list of "local:remote" pairs (spec §4.4, §6).
func parseList(s string) (map[string]string, error) {
	out := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		local, remote, ok := strings.Cut(pair, ":")
		if !ok {
			return nil, herr.New(herr.BadAliasSyntax, i18n.G("alias %q lacks a ':' delimiter"), pair)
		}
		out[local] = remote
	}
	return out, nil
}

// validateRemote applies the decided policy (DESIGN.md Open Questions):
// a remote is accepted if it is itself a known dataset mount, or if a
// snapshot-root probe finds a recognizable layout underneath it.
func validateRemote(ctx context.Context, remote string, datasets mounts.MapOfDatasets) (mounts.FilesystemType, bool) {
	if d, ok := datasets[remote]; ok {
		return d.FSType, true
	}
	if snaps.HasRecognizableLayout(ctx, remote) {
		return mounts.FilesystemUnknown, true
	}
	return mounts.FilesystemUnknown, false
}
