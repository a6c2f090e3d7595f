// Package rollforward implements Roll-Forward (spec §4.11): replaying a
// zfs diff stream in timestamp order, bracketed by a pre- and
// post-mutation Snap Guard snapshot.
package rollforward

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/kimono-koans/httm/internal/diffcopy"
	"github.com/kimono-koans/httm/internal/guard"
	"github.com/kimono-koans/httm/internal/herr"
	"github.com/kimono-koans/httm/internal/i18n"
	"github.com/kimono-koans/httm/internal/log"
	"github.com/kimono-koans/httm/internal/preserve"
)

// Op is one of the four event kinds zfs diff reports (spec §4.11).
type Op byte

const (
	Removed  Op = '-'
	Created  Op = '+'
	Modified Op = 'M'
	Renamed  Op = 'R'
)

// Event is one ordered record from the diff stream (spec §4.11).
type Event struct {
	Secs    int64
	Nanos   int64
	Op      Op
	Path    string
	NewPath string
}

// Execute replays snap onto the live dataset mounted at liveMount,
// bracketing the replay with pre- and post-mutation guard snapshots
// (spec §4.11: "a pre-guard snapshot and a post-guard snapshot bracket
// the replay").
func Execute(ctx context.Context, dataset, snap, snapMount, liveMount string) error {
	g, err := guard.New(ctx, dataset, guard.RollForward)
	if err != nil {
		return err
	}

	if err := replay(ctx, snap, snapMount, liveMount); err != nil {
		return err
	}

	return g.Commit(ctx)
}

func replay(ctx context.Context, snap, snapMount, liveMount string) error {
	events, err := diffEvents(ctx, snap)
	if err != nil {
		return err
	}

	sortEvents(events)

	for _, e := range events {
		if err := applyEvent(ctx, e, snapMount, liveMount); err != nil {
			return err
		}
	}
	return nil
}

// sortEvents orders events ascending by (secs, nanos), the total order
// roll-forward replays in (spec §4.11, §5).
func sortEvents(events []Event) {
	sort.Slice(events, func(i, j int) bool {
		if events[i].Secs != events[j].Secs {
			return events[i].Secs < events[j].Secs
		}
		return events[i].Nanos < events[j].Nanos
	})
}

func applyEvent(ctx context.Context, e Event, snapMount, liveMount string) error {
	livePath := filepath.Join(liveMount, e.Path)

	switch e.Op {
	case Renamed:
		newLivePath := filepath.Join(liveMount, e.NewPath)
		log.Debugf(ctx, i18n.G("rollforward: rename %s -> %s"), livePath, newLivePath)
		return os.Rename(livePath, newLivePath)

	case Removed:
		log.Debugf(ctx, i18n.G("rollforward: delete %s"), livePath)
		if err := preserve.Remove(livePath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		return nil

	case Created, Modified:
		snapPath := filepath.Join(snapMount, e.Path)
		log.Debugf(ctx, i18n.G("rollforward: copy %s -> %s"), snapPath, livePath)
		return copyFromSnapshot(ctx, snapPath, livePath)

	default:
		return herr.New(herr.Other, i18n.G("rollforward: unrecognized op %q"), string(rune(e.Op)))
	}
}

// copyFromSnapshot reproduces snapPath at livePath, routing non-regular
// sources (symlinks, devices, FIFOs, sockets) through the special-file
// table instead of the diff-copy/preserve path meant for regular files
// (spec §4.9).
func copyFromSnapshot(ctx context.Context, snapPath, livePath string) error {
	fi, err := os.Lstat(snapPath)
	if err != nil {
		return herr.Wrap(herr.Other, err, i18n.G("rollforward: stat %q"), snapPath)
	}

	if fi.Mode().IsRegular() {
		if err := diffcopy.Copy(ctx, snapPath, livePath); err != nil {
			return err
		}
		return preserve.Preserve(ctx, snapPath, livePath)
	}

	return preserve.ReconstructSpecial(ctx, snapPath, livePath)
}

// diffEvents runs "zfs diff -H -t -h <snap>" and parses the stream (spec
// §4.11, §6).
func diffEvents(ctx context.Context, snap string) ([]Event, error) {
	cmd := exec.CommandContext(ctx, "zfs", "diff", "-H", "-t", "-h", snap)
	var stderr strings.Builder
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if stderr.Len() > 0 {
			return nil, herr.Wrap(herr.SubprocessError, err, i18n.G("zfs diff %s: %s"), snap, stderr.String())
		}
		return nil, herr.Wrap(herr.SubprocessError, err, i18n.G("zfs diff %s"), snap)
	}

	var events []Event
	for i, line := range strings.Split(strings.TrimRight(string(out), "\n"), "\n") {
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		ev, err := parseEvent(fields)
		if err != nil {
			return nil, herr.Wrap(herr.Other, err, i18n.G("rollforward: parsing zfs diff line %d"), i)
		}
		events = append(events, ev)
	}
	return events, nil
}

// parseEvent parses one tab-separated zfs diff record of the form
// "secs.nanos\top\tpath[\tnew_path]" (spec §4.11).
func parseEvent(fields []string) (Event, error) {
	if len(fields) < 3 {
		return Event{}, fmt.Errorf("expected at least 3 fields, got %d", len(fields))
	}

	secs, nanos, err := parseTimestamp(fields[0])
	if err != nil {
		return Event{}, err
	}

	path, err := unescapeFilepath(fields[2])
	if err != nil {
		return Event{}, fmt.Errorf("failed to parse filename: %v", err)
	}

	ev := Event{Secs: secs, Nanos: nanos, Op: Op(fields[1][0]), Path: path}

	if ev.Op == Renamed {
		if len(fields) < 4 {
			return Event{}, fmt.Errorf("rename record missing new path")
		}
		newPath, err := unescapeFilepath(fields[3])
		if err != nil {
			return Event{}, fmt.Errorf("failed to parse new filename: %v", err)
		}
		ev.NewPath = newPath
	}

	return ev, nil
}

func parseTimestamp(field string) (secs, nanos int64, err error) {
	whole, frac, ok := strings.Cut(field, ".")
	if !ok {
		whole = field
		frac = "0"
	}
	secs, err = strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid timestamp %q: %v", field, err)
	}
	nanos, err = strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid timestamp %q: %v", field, err)
	}
	return secs, nanos, nil
}

// unescapeFilepath decodes the \NNN octal escapes zfs diff uses for
// non-printable bytes in paths.
func unescapeFilepath(path string) (string, error) {
	buf := make([]byte, 0, len(path))
	n := len(path)
	for i := 0; i < n; {
		if path[i] == '\\' && i+4 <= n {
			octal := path[i+1 : i+4]
			val, err := strconv.ParseUint(octal, 8, 8)
			if err == nil {
				buf = append(buf, byte(val))
				i += 4
				continue
			}
		}
		buf = append(buf, path[i])
		i++
	}
	return string(buf), nil
}
