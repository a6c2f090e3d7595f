package mounts

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseMountOutputGNU(t *testing.T) {
	t.Parallel()

	out := "tank/pool on /pool type zfs (rw,relatime,xattr,noacl)\n" +
		"proc on /proc type proc (rw,nosuid,nodev,noexec)\n"

	got := parseMountOutput(out)
	require := []rawMount{
		{Source: "tank/pool", Target: "/pool", FSType: "zfs", Options: []string{"rw", "relatime", "xattr", "noacl"}},
		{Source: "proc", Target: "/proc", FSType: "proc", Options: []string{"rw", "nosuid", "nodev", "noexec"}},
	}
	assert.Equal(t, require, got)
}

func TestParseMountOutputBSD(t *testing.T) {
	t.Parallel()

	out := "/dev/disk1s1 on / (apfs, local, journaled)\n"

	got := parseMountOutput(out)
	assert.Equal(t, []rawMount{
		{Source: "/dev/disk1s1", Target: "/", FSType: "apfs", Options: []string{"local", "journaled"}},
	}, got)
}

func TestParseMountOutputIgnoresUnmatched(t *testing.T) {
	t.Parallel()

	got := parseMountOutput("not a mount line at all\n")
	assert.Empty(t, got)
}

func TestSplitOptions(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"rw", "noatime"}, splitOptions("rw,noatime"))
	assert.Empty(t, splitOptions(""))
}
