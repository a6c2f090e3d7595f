package mounts

import (
	"context"
	"os/exec"
	"regexp"
	"strings"
	"time"
)

// splitOptions turns a comma-separated option string into a slice,
// dropping empties produced by concatenating two possibly-empty sources.
func splitOptions(raw string) []string {
	fields := strings.Split(raw, ",")
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f == "" {
			continue
		}
		out = append(out, f)
	}
	return out
}

// gnuMountLine matches GNU/util-linux style: "source on target type fstype (opt1,opt2)"
var gnuMountLine = regexp.MustCompile(`^(\S+) on (\S+) type (\S+) \(([^)]*)\)$`)

// bsdMountLine matches BSD/BusyBox style: "source on target (fstype, opt1, opt2)"
var bsdMountLine = regexp.MustCompile(`^(\S+) on (\S+) \(([^)]*)\)$`)

// fallbackMountCommand shells out to the "mount" utility and parses both
// the GNU/util-linux and BSD/BusyBox textual formats (spec §4.1, §6).
func fallbackMountCommand() ([]rawMount, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, "mount").Output()
	if err != nil {
		return nil, err
	}

	return parseMountOutput(string(out)), nil
}

// parseMountOutput parses the textual output of the "mount" utility,
// handling both the GNU/util-linux and BSD/BusyBox formats (spec §6).
func parseMountOutput(out string) []rawMount {
	var raw []rawMount
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if m := gnuMountLine.FindStringSubmatch(line); m != nil {
			raw = append(raw, rawMount{
				Source:  m[1],
				Target:  m[2],
				FSType:  m[3],
				Options: splitOptions(strings.ReplaceAll(m[4], " ", "")),
			})
			continue
		}

		if m := bsdMountLine.FindStringSubmatch(line); m != nil {
			fields := splitOptions(strings.ReplaceAll(m[3], " ", ""))
			if len(fields) == 0 {
				continue
			}
			raw = append(raw, rawMount{
				Source:  m[1],
				Target:  m[2],
				FSType:  fields[0],
				Options: fields[1:],
			})
			continue
		}
	}

	return raw
}
