package guard

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kimono-koans/httm/internal/config"
)

func TestKindSuffix(t *testing.T) {
	t.Parallel()

	assert.Equal(t, config.SnapRestoreSuffix, Restore.suffix())
	assert.Equal(t, config.SnapRollForwardSuffix, RollForward.suffix())
}

func TestSnapshotNameShape(t *testing.T) {
	t.Parallel()

	name := snapshotName("tank/pool", Restore)
	re := regexp.MustCompile(`^tank/pool@snap_httmSnapRestore_\d{8}T\d{6}Z_[0-9a-f]{8}$`)
	assert.Regexp(t, re, name)
}
