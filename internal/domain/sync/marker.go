package sync

import (
	"strings"
	"time"
)

// MarkerKey is the remote store key and local filename of the sync marker.
const MarkerKey = ".last-sync"

// ParseMarker parses a sync marker string as an ISO-8601 timestamp.
//
// Policy: a missing or unparsable marker is treated as epoch zero. Applied to
// both sides of the staleness comparison this biases toward restoring from
// any parseable remote marker, which is the desired first-run behavior (a
// fresh container has no local marker and must pick up whatever the store
// has).
func ParseMarker(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

// FormatMarker renders a marker timestamp as a newline-terminated ISO-8601
// string, the form persisted both locally and in the remote store.
func FormatMarker(t time.Time) string {
	return t.UTC().Format(time.RFC3339) + "\n"
}

// ShouldRestore reports whether a restore should proceed: the remote marker
// must be strictly newer than the local one. Equal markers mean the local
// tree already reflects the last push.
func ShouldRestore(local, remote time.Time) bool {
	return remote.After(local)
}
