package unitctl

import (
	"errors"
	"testing"
	"time"
)

func TestUnitName(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]string{
		"":                 "swasthai.service",
		"swasthai":         "swasthai.service",
		" healthd ":        "healthd.service",
		"swasthai.service": "swasthai.service",
		"swasthai.timer":   "swasthai.timer",
	} {
		if got := unitName(in); got != want {
			t.Fatalf("unitName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFromProps(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	since := now.Add(-90 * time.Minute)
	st := fromProps("swasthai.service", map[string]any{
		"ActiveState":          "active",
		"SubState":             "running",
		"LoadState":            "loaded",
		"Description":          "health reminders",
		"ActiveEnterTimestamp": uint64(since.UnixMicro()),
		"MemoryCurrent":        ^uint64(0),
	}, now)

	if !st.Found() {
		t.Fatalf("Found() = false for a loaded unit")
	}
	if st.SubState != "running" {
		t.Fatalf("SubState = %q, want running", st.SubState)
	}
	if st.Uptime != 90*time.Minute {
		t.Fatalf("Uptime = %v, want 1h30m", st.Uptime)
	}
	if st.Memory != 0 {
		t.Fatalf("Memory = %d, want 0 for the unset sentinel", st.Memory)
	}
}

func TestFromPropsNotFound(t *testing.T) {
	t.Parallel()

	st := fromProps("x.service", map[string]any{"LoadState": "not-found", "ActiveState": "inactive"}, time.Now())
	if st.Found() {
		t.Fatalf("Found() = true for a not-found unit")
	}
	if st.Active != "unknown" {
		t.Fatalf("Active = %q, want unknown", st.Active)
	}
}

func TestIsNoSuchUnit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want bool
	}{
		{errors.New("org.freedesktop.systemd1.NoSuchUnit: Unit x not loaded"), true},
		{errors.New("permission denied"), false},
		{nil, false},
	}
	for _, tt := range tests {
		if got := isNoSuchUnit(tt.err); got != tt.want {
			t.Fatalf("isNoSuchUnit(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
