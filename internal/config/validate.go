package config

import (
	"errors"
	"fmt"
	"maps"
	"net"
	"net/url"
	"slices"
	"strings"
	"time"

	"swasthai/internal/task/scheduler"
	logx "swasthai/pkg/logx"
)

// Validate reports every problem in cfg joined into one error.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	var errs []error
	add := func(format string, args ...any) { errs = append(errs, fmt.Errorf(format, args...)) }

	if !logx.ValidLevel(cfg.Logging.Level) {
		add("logging.level: unknown level %q", cfg.Logging.Level)
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Logging.Format)) {
	case "", "console", "json":
	default:
		add("logging.format: must be console or json")
	}
	if cfg.Logging.File.Enabled && strings.TrimSpace(cfg.Logging.File.Path) == "" {
		add("logging.file.path: required when file logging is enabled")
	}

	if strings.TrimSpace(cfg.HTTP.Addr) == "" {
		add("http.addr: required")
	} else if _, _, err := net.SplitHostPort(cfg.HTTP.Addr); err != nil {
		add("http.addr: %v", err)
	}

	if cfg.Pprof.Enabled && !cfg.Pprof.AllowInsecure && strings.TrimSpace(cfg.Pprof.Token) == "" {
		addr := strings.TrimSpace(cfg.Pprof.Addr)
		if addr != "" && !isLoopback(addr) {
			add("pprof.addr: non-loopback address %q needs pprof.token or pprof.allow_insecure", addr)
		}
	}

	if tz := strings.TrimSpace(cfg.Scheduler.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			add("scheduler.timezone: %v", err)
		}
	}
	if strings.TrimSpace(cfg.Scan.Schedule) != "" {
		if ps, err := scheduler.ParseSchedule(cfg.Scan.Schedule); err != nil {
			add("scan.schedule: %v", err)
		} else if ps.Kind == scheduler.SpecCron {
			if _, err := scheduler.ParseCron(ps.Cron); err != nil {
				add("scan.schedule: %v", err)
			}
		}
	} else if !scheduler.ValidTime(cfg.Scan.At) {
		add("scan.at: invalid time %q, expected HH:MM", cfg.Scan.At)
	}
	if cfg.Scan.WindowDays < 0 {
		add("scan.window_days: must be >= 0")
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Storage.Driver)) {
	case "file", "json", "sqlite", "sqlite3", "badger":
		if strings.TrimSpace(cfg.Storage.Path) == "" {
			add("storage.path: required for driver %q", cfg.Storage.Driver)
		}
	case "postgres", "postgresql", "pgx":
		if strings.TrimSpace(cfg.Storage.DSN) == "" {
			add("storage.dsn: required for driver %q", cfg.Storage.Driver)
		}
	default:
		add("storage.driver: unknown driver %q", cfg.Storage.Driver)
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Storage.IDStrategy)) {
	case "", "timestamp", "uuid":
	default:
		add("storage.id_strategy: must be timestamp or uuid")
	}

	d := cfg.Dispatch
	if d.RatePerSec < 0 {
		add("dispatch.rate_per_sec: must be >= 0")
	}
	if d.RetryMax < 0 {
		add("dispatch.retry_max: must be >= 0")
	}
	if d.Email.Enabled && (d.Email.Port < 0 || d.Email.Port > 65535) {
		add("dispatch.email.port: out of range")
	}
	if d.Telegram.Enabled {
		if strings.TrimSpace(d.Telegram.Token) == "" {
			add("dispatch.telegram.token: required when telegram is enabled")
		}
		if d.Telegram.ChatID == 0 {
			add("dispatch.telegram.chat_id: required when telegram is enabled")
		}
	}
	if d.Webhook.Enabled {
		if err := validURL(d.Webhook.URL); err != nil {
			add("dispatch.webhook.url: %v", err)
		}
	}

	a := cfg.Assistant
	if err := validURL(a.ModelsURL); err != nil {
		add("assistant.models_url: %v", err)
	}
	if err := validURL(a.AgentsURL); err != nil {
		add("assistant.agents_url: %v", err)
	}

	for _, path := range slices.Sorted(maps.Keys(durationFields)) {
		if _, err := cfg.Duration(path); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func validURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return errors.New("required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("missing host")
	}
	return nil
}

func isLoopback(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// Redacted returns a copy of cfg with secrets masked, for display.
func (c Config) Redacted() Config {
	mask := func(s string) string {
		if strings.TrimSpace(s) == "" {
			return ""
		}
		return "***"
	}
	out := c
	out.HTTP.Token = mask(c.HTTP.Token)
	out.Pprof.Token = mask(c.Pprof.Token)
	out.Storage.DSN = mask(c.Storage.DSN)
	out.Dispatch.Email.Password = mask(c.Dispatch.Email.Password)
	out.Dispatch.Telegram.Token = mask(c.Dispatch.Telegram.Token)
	out.Assistant.APIKey = mask(c.Assistant.APIKey)
	if len(c.Dispatch.Webhook.Headers) > 0 {
		h := make(map[string]string, len(c.Dispatch.Webhook.Headers))
		for k := range c.Dispatch.Webhook.Headers {
			h[k] = "***"
		}
		out.Dispatch.Webhook.Headers = h
	}
	return out
}
