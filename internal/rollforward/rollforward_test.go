package rollforward

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnescapeFilepath(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		in   string
		want string
	}{
		"no escapes":       {in: "plain/path.txt", want: "plain/path.txt"},
		"octal escape":     {in: `weird\040name`, want: "weird name"},
		"trailing literal": {in: `name\`, want: `name\`},
	}

	for name, tc := range tests {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			got, err := unescapeFilepath(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseEvent(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		fields  []string
		wantOp  Op
		wantErr bool
	}{
		"created":  {fields: []string{"1000.5", "+", "a/b.txt"}, wantOp: Created},
		"removed":  {fields: []string{"1000.5", "-", "a/b.txt"}, wantOp: Removed},
		"modified": {fields: []string{"1000.5", "M", "a/b.txt"}, wantOp: Modified},
		"renamed":  {fields: []string{"1000.5", "R", "a/old.txt", "a/new.txt"}, wantOp: Renamed},
		"rename missing new path fails": {fields: []string{"1000.5", "R", "a/old.txt"}, wantErr: true},
		"too few fields fails":          {fields: []string{"1000.5", "+"}, wantErr: true},
	}

	for name, tc := range tests {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			ev, err := parseEvent(tc.fields)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantOp, ev.Op)
			assert.Equal(t, int64(1000), ev.Secs)
			assert.Equal(t, int64(5), ev.Nanos)
		})
	}
}

func TestEventsSortByTimestamp(t *testing.T) {
	t.Parallel()

	events := []Event{
		{Secs: 2, Nanos: 0},
		{Secs: 1, Nanos: 500},
		{Secs: 1, Nanos: 100},
	}

	sortEvents(events)

	assert.Equal(t, []Event{
		{Secs: 1, Nanos: 100},
		{Secs: 1, Nanos: 500},
		{Secs: 2, Nanos: 0},
	}, events)
}

func TestCopyFromSnapshotReconstructsSymlink(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "target")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0644))
	snapPath := filepath.Join(dir, "snaplink")
	require.NoError(t, os.Symlink(target, snapPath))
	livePath := filepath.Join(dir, "livelink")

	require.NoError(t, copyFromSnapshot(context.Background(), snapPath, livePath))

	got, err := os.Readlink(livePath)
	require.NoError(t, err)
	assert.Equal(t, target, got)
}

func TestCopyFromSnapshotCopiesRegularFile(t *testing.T) {
	dir := t.TempDir()
	snapPath := filepath.Join(dir, "snapfile")
	require.NoError(t, os.WriteFile(snapPath, []byte("content"), 0644))
	livePath := filepath.Join(dir, "livefile")

	require.NoError(t, copyFromSnapshot(context.Background(), snapPath, livePath))

	got, err := os.ReadFile(livePath)
	require.NoError(t, err)
	assert.Equal(t, "content", string(got))
}
