// Package guard implements the Snap Guard (spec §4.10): the core's only
// mutation barrier. Every restore or roll-forward takes a precautionary
// snapshot before touching the live dataset, so a failed or partial
// mutation is recoverable with a single rollback.
package guard

import (
	"context"
	"fmt"
	"os/exec"
	"os/user"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"github.com/kimono-koans/httm/internal/config"
	"github.com/kimono-koans/httm/internal/herr"
	"github.com/kimono-koans/httm/internal/i18n"
	"github.com/kimono-koans/httm/internal/log"
)

// Kind distinguishes the two operations a Guard brackets (spec §4.10).
type Kind int

const (
	Restore Kind = iota
	RollForward
)

func (k Kind) suffix() string {
	if k == RollForward {
		return config.SnapRollForwardSuffix
	}
	return config.SnapRestoreSuffix
}

func (k Kind) String() string {
	if k == RollForward {
		return "rollforward"
	}
	return "restore"
}

// State is the guard's lifecycle position (spec §4.10: "Fresh ->
// Executed(pre) -> {Executed(post) | RolledBack}").
type State int

const (
	Fresh State = iota
	ExecutedPre
	ExecutedPost
	RolledBack
)

// requiredVerbs are the zfs allow sub-verbs a delegated (non-root) user
// must hold on dataset to operate a Guard (spec §4.10, §6).
var requiredVerbs = []string{"snapshot", "rollback", "destroy"}

// Guard is the mutation barrier around one dataset (spec §4.10).
type Guard struct {
	Dataset string
	Kind    Kind
	State   State

	PreSnap  string
	PostSnap string
}

// New creates the pre-mutation snapshot and returns a Guard in state
// ExecutedPre (spec §4.10: "Guard::new(dataset, kind) -> Guard"). It
// requires effective root or zfs allow delegation for snapshot, rollback,
// and destroy on dataset.
func New(ctx context.Context, dataset string, kind Kind) (*Guard, error) {
	if err := checkPrivilege(ctx, dataset); err != nil {
		return nil, err
	}

	name := snapshotName(dataset, kind)
	if err := runZFS(ctx, "snapshot", name); err != nil {
		return nil, err
	}

	log.Infof(ctx, i18n.G("guard: created pre-snapshot %s"), name)
	return &Guard{Dataset: dataset, Kind: kind, State: ExecutedPre, PreSnap: name}, nil
}

// Commit takes the post-mutation snapshot, moving the guard to
// ExecutedPost (spec §4.10).
func (g *Guard) Commit(ctx context.Context) error {
	if g.State != ExecutedPre {
		return herr.New(herr.Other, i18n.G("guard: commit called from state %d, expected ExecutedPre"), g.State)
	}
	name := snapshotName(g.Dataset, g.Kind)
	if err := runZFS(ctx, "snapshot", name); err != nil {
		return err
	}
	g.PostSnap = name
	g.State = ExecutedPost
	log.Infof(ctx, i18n.G("guard: created post-snapshot %s"), name)
	return nil
}

// Rollback replays the pre-mutation snapshot onto the live dataset (spec
// §4.10: "exposes rollback(), which replays the snapshot onto the live
// dataset"). The guard does not auto-rollback on drop; this is always an
// explicit caller action.
func (g *Guard) Rollback(ctx context.Context) error {
	if g.PreSnap == "" {
		return herr.New(herr.Other, i18n.G("guard: no pre-snapshot to roll back to"))
	}
	if err := runZFS(ctx, "rollback", "-r", g.PreSnap); err != nil {
		return err
	}
	g.State = RolledBack
	log.Warningf(ctx, i18n.G("guard: rolled back %s to %s"), g.Dataset, g.PreSnap)
	return nil
}

// Destroy removes both guard snapshots once the caller no longer needs
// them for recovery. It is safe to call with either snapshot unset.
func (g *Guard) Destroy(ctx context.Context) error {
	for _, snap := range []string{g.PreSnap, g.PostSnap} {
		if snap == "" {
			continue
		}
		if err := runZFS(ctx, "destroy", "-r", snap); err != nil {
			return err
		}
	}
	return nil
}

func snapshotName(dataset string, kind Kind) string {
	ts := time.Now().UTC().Format("20060102T150405Z")
	return fmt.Sprintf("%s@snap_%s_%s_%s", dataset, kind.suffix(), ts, uuid.NewString()[:8])
}

// checkPrivilege enforces spec §4.10/§5: effective root first, falling
// back to zfs allow delegation for the verbs a Guard needs.
func checkPrivilege(ctx context.Context, dataset string) error {
	if unix.Geteuid() == 0 {
		return nil
	}

	u, err := user.Current()
	if err != nil {
		return herr.Wrap(herr.PrivilegeRequired, err, i18n.G("guard: can't determine calling user"))
	}

	cmd := exec.CommandContext(ctx, "zfs", "allow", dataset)
	out, err := cmd.Output()
	if err != nil {
		return herr.Wrap(herr.PrivilegeRequired, err, i18n.G("guard: not root and zfs allow %s failed"), dataset)
	}

	allowed := string(out)
	if !strings.Contains(allowed, u.Username) {
		return herr.New(herr.PrivilegeRequired, i18n.G("guard: %s is not listed in zfs allow %s"), u.Username, dataset)
	}
	for _, verb := range requiredVerbs {
		if !strings.Contains(allowed, verb) {
			return herr.New(herr.PrivilegeRequired, i18n.G("guard: %s lacks delegated verb %q on %s"), u.Username, verb, dataset)
		}
	}
	return nil
}

func runZFS(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, "zfs", args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if stderr.Len() > 0 {
			return herr.Wrap(herr.SubprocessError, err, i18n.G("zfs %s: %s"), strings.Join(args, " "), stderr.String())
		}
		return herr.Wrap(herr.SubprocessError, err, i18n.G("zfs %s"), strings.Join(args, " "))
	}
	return nil
}
