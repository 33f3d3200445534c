package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"swasthai/internal/config"
	"swasthai/internal/reminder"
)

func writeConfig(t *testing.T, webhookURL string) string {
	t.Helper()
	dir := t.TempDir()
	raw := `{
  "logging": {"level": "error", "console": true},
  "http": {"addr": "127.0.0.1:0"},
  "scheduler": {"enabled": true, "timezone": "UTC"},
  "scan": {"at": "08:00", "window_days": 7},
  "storage": {"driver": "file", "path": "` + filepath.ToSlash(filepath.Join(dir, "data")) + `"},
  "dispatch": {
    "rate_per_sec": 50,
    "retry_max": 0,
    "email": {"enabled": false},
    "webhook": {"enabled": true, "url": "` + webhookURL + `"}
  }
}`
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestMapDispatchConfig(t *testing.T) {
	t.Parallel()

	cfg := config.Defaults()
	cfg.Dispatch.RetryBase = "1s"
	cfg.Dispatch.Webhook = config.WebhookConfig{Enabled: true, URL: "http://x"}
	dc, err := MapDispatchConfig(&cfg)
	if err != nil {
		t.Fatalf("MapDispatchConfig() error = %v", err)
	}
	if dc.RetryBase != time.Second || dc.Timeout != 20*time.Second || !dc.Webhook.Enabled {
		t.Fatalf("mapped = %+v", dc)
	}

	cfg.Dispatch.Timeout = "soon"
	if _, err := MapDispatchConfig(&cfg); err == nil || !strings.Contains(err.Error(), "dispatch.timeout") {
		t.Fatalf("MapDispatchConfig(bad timeout) error = %v", err)
	}
}

func TestMapStorageConfig(t *testing.T) {
	t.Parallel()

	cfg := config.Defaults()
	cfg.Storage.Driver = " SQLite "
	cfg.Storage.BusyTimeout = ""
	sc, err := MapStorageConfig(&cfg)
	if err != nil {
		t.Fatalf("MapStorageConfig() error = %v", err)
	}
	if sc.Driver != "sqlite" || sc.BusyTimeout != 5*time.Second {
		t.Fatalf("mapped driver = %q busy = %v", sc.Driver, sc.BusyTimeout)
	}
}

func TestScanTimeoutFallsBack(t *testing.T) {
	t.Parallel()

	cfg := config.Defaults()
	cfg.Scan.Timeout = "bogus"
	if got := scanTimeout(&cfg); got != 5*time.Minute {
		t.Fatalf("scanTimeout(bogus) = %v, want 5m", got)
	}
	cfg.Scan.Timeout = "30s"
	if got := scanTimeout(&cfg); got != 30*time.Second {
		t.Fatalf("scanTimeout(30s) = %v", got)
	}
}

func TestAppLifecycle(t *testing.T) {
	var hooks atomic.Int32
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hooks.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer hook.Close()

	a, err := New(writeConfig(t, hook.URL))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := a.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer func() {
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()
		if err := a.Stop(sctx, StopAppStop); err != nil {
			t.Errorf("Stop() error = %v", err)
		}
	}()

	base := "http://" + a.HTTPAddr()

	resp, err := http.Get(base + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /healthz = %d", resp.StatusCode)
	}

	// replay a past day so the result does not depend on the wall clock
	past := time.Now().UTC().AddDate(0, 0, -30)
	today := past.Format(reminder.DateLayout)
	event := past.AddDate(0, 0, 4).Format(reminder.DateLayout)

	member := `{"name":"Asha","upcomingEvents":[{"title":"Dentist","date":"` + event + `"}]}`
	resp, err = http.Post(base+"/api/family-members", "application/json", strings.NewReader(member))
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST member = %d", resp.StatusCode)
	}

	resp, err = http.Post(base+"/api/notifications/scan?today="+today, "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	var rep reminder.Report
	err = json.NewDecoder(resp.Body).Decode(&rep)
	_ = resp.Body.Close()
	if err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if rep.Selected != 1 || rep.Sent != 1 || hooks.Load() != 1 {
		t.Fatalf("Selected = %d Sent = %d webhooks = %d, want 1 each", rep.Selected, rep.Sent, hooks.Load())
	}

	resp, err = http.Get(base + "/api/status")
	if err != nil {
		t.Fatal(err)
	}
	var st Status
	err = json.NewDecoder(resp.Body).Decode(&st)
	_ = resp.Body.Close()
	if err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if !slices.Equal(st.Channels, []string{"webhook"}) {
		t.Fatalf("Channels = %v, want [webhook]", st.Channels)
	}
	if st.Scheduler.Timezone != "UTC" {
		t.Fatalf("Timezone = %q", st.Scheduler.Timezone)
	}
	if len(st.Scheduler.Schedules) != 1 || st.Scheduler.Schedules[0].Name != scanJobName {
		t.Fatalf("Schedules = %+v, want only %s", st.Scheduler.Schedules, scanJobName)
	}
	if st.Assistant {
		t.Fatalf("Assistant = true without an api key")
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"scan":{"at":"25:99"}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := New(path); err == nil {
		t.Fatalf("New(invalid) error = nil")
	}
}
