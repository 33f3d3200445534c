package logx

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{" WARN ", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"nope", zerolog.InfoLevel},
	}
	for _, tc := range cases {
		if got := parseLevel(tc.in); got != tc.want {
			t.Fatalf("parseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestLoggerWithFields(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	base := standalone(&buf, "debug").With(String("comp", "test"))
	log := base.With(String("req", "a"))
	_ = base.With(String("req", "b"))
	log.Info("hello", Int("n", 3), Err(errors.New("boom")), Err(nil))

	var m map[string]any
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("unmarshal: %v (%s)", err, buf.String())
	}
	if m["comp"] != "test" || m["req"] != "a" || m["message"] != "hello" || m["err"] != "boom" {
		t.Fatalf("unexpected line: %v", m)
	}
	if m["n"].(float64) != 3 {
		t.Fatalf("n = %v", m["n"])
	}
	if c, _ := m["caller"].(string); !strings.HasPrefix(c, "logging_test.go:") {
		t.Fatalf("caller = %v, want the logging call site", m["caller"])
	}
}

func TestZeroLoggerIsNoop(t *testing.T) {
	t.Parallel()

	var l Logger
	if !l.IsZero() {
		t.Fatalf("zero logger should report IsZero")
	}
	l.Info("dropped")
	if Nop().IsZero() {
		t.Fatalf("Nop() should not be zero")
	}
}

func TestValidLevel(t *testing.T) {
	t.Parallel()

	if !ValidLevel("info") || !ValidLevel("") {
		t.Fatalf("expected valid")
	}
	if ValidLevel("loud") {
		t.Fatalf("expected invalid")
	}
}

func TestServiceApplyFileSink(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "healthd.log")
	svc, log := New(Config{Level: "warn", File: FileConfig{Enabled: true, Path: path}, Console: false})
	log.Info("quiet")
	log.Warn("loud")
	if log.Enabled(LevelDebug) {
		t.Fatalf("debug enabled at warn level")
	}

	svc.Apply(Config{Level: "debug", Console: true, Format: "json"})
	if !log.Enabled(LevelDebug) {
		t.Fatalf("Apply did not reach an existing logger")
	}
	if err := svc.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(b), "quiet") || !strings.Contains(string(b), "loud") {
		t.Fatalf("file log = %q", b)
	}
}
