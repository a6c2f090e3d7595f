// Package alts implements the Alt-Replicated Map (spec §4.3): for each
// dataset, the peer datasets presumed to be cross-pool replicas because
// their source name ends with this dataset's source.
package alts

import (
	"sort"
	"strings"

	"github.com/kimono-koans/httm/internal/mounts"
)

// MapOfAlts is the dataset_mount -> [peer_mount] mapping (spec §3), sorted
// ascending by the peer's source-name length so the "most local" replica
// comes first.
type MapOfAlts map[string][]string

// New computes MapOfAlts from the dataset map (spec §4.3). Emptiness for a
// given dataset is not an error: it simply suppresses alt-replica search
// for that dataset.
func New(datasets mounts.MapOfDatasets) MapOfAlts {
	alts := make(MapOfAlts, len(datasets))

	for mount, d := range datasets {
		var peers []string
		for peerMount, peer := range datasets {
			if peerMount == mount {
				continue
			}
			if peer.Source == d.Source {
				continue
			}
			if strings.HasSuffix(peer.Source, d.Source) {
				peers = append(peers, peerMount)
			}
		}
		if len(peers) == 0 {
			continue
		}

		sort.Slice(peers, func(i, j int) bool {
			return len(datasets[peers[i]].Source) < len(datasets[peers[j]].Source)
		})
		alts[mount] = peers
	}

	return alts
}
