package sync

import (
	"testing"
	"time"
)

func TestParseMarker(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want time.Time
	}{
		{
			name: "valid RFC3339",
			raw:  "2026-01-27T12:00:00Z",
			want: time.Date(2026, 1, 27, 12, 0, 0, 0, time.UTC),
		},
		{
			name: "newline terminated",
			raw:  "2026-01-27T12:00:00Z\n",
			want: time.Date(2026, 1, 27, 12, 0, 0, 0, time.UTC),
		},
		{
			name: "offset normalized to UTC",
			raw:  "2026-01-27T14:00:00+02:00",
			want: time.Date(2026, 1, 27, 12, 0, 0, 0, time.UTC),
		},
		{
			name: "empty treated as epoch zero",
			raw:  "",
			want: time.Time{},
		},
		{
			name: "garbage treated as epoch zero",
			raw:  "not-a-timestamp",
			want: time.Time{},
		},
		{
			name: "whitespace only treated as epoch zero",
			raw:  "  \n",
			want: time.Time{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseMarker(tt.raw); !got.Equal(tt.want) {
				t.Errorf("ParseMarker(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestFormatMarker_RoundTrip(t *testing.T) {
	ts := time.Date(2026, 1, 27, 12, 0, 0, 0, time.UTC)
	raw := FormatMarker(ts)

	if raw[len(raw)-1] != '\n' {
		t.Error("marker must be newline-terminated")
	}
	if got := ParseMarker(raw); !got.Equal(ts) {
		t.Errorf("round trip = %v, want %v", got, ts)
	}
}

func TestShouldRestore(t *testing.T) {
	earlier := time.Date(2026, 1, 27, 11, 0, 0, 0, time.UTC)
	later := time.Date(2026, 1, 27, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name          string
		local, remote time.Time
		want          bool
	}{
		{"remote newer", earlier, later, true},
		{"remote older", later, earlier, false},
		{"equal markers", later, later, false},
		{"no local marker, remote present", time.Time{}, later, true},
		{"no remote marker", earlier, time.Time{}, false},
		{"both unparsable", time.Time{}, time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldRestore(tt.local, tt.remote); got != tt.want {
				t.Errorf("ShouldRestore(%v, %v) = %v, want %v", tt.local, tt.remote, got, tt.want)
			}
		})
	}
}
