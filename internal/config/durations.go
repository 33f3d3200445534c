package config

import (
	"fmt"
	"strings"
	"time"
)

type durationField struct {
	get func(*Config) string
	def time.Duration
}

// durationFields are the duration-valued settings keyed by config path.
// An empty or zero value means def.
var durationFields = map[string]durationField{
	"http.read_timeout":        {func(c *Config) string { return c.HTTP.ReadTimeout }, 15 * time.Second},
	"http.write_timeout":       {func(c *Config) string { return c.HTTP.WriteTimeout }, 120 * time.Second},
	"http.idle_timeout":        {func(c *Config) string { return c.HTTP.IdleTimeout }, 60 * time.Second},
	"scan.timeout":             {func(c *Config) string { return c.Scan.Timeout }, 5 * time.Minute},
	"storage.busy_timeout":     {func(c *Config) string { return c.Storage.BusyTimeout }, 5 * time.Second},
	"dispatch.retry_base":      {func(c *Config) string { return c.Dispatch.RetryBase }, 500 * time.Millisecond},
	"dispatch.retry_max_delay": {func(c *Config) string { return c.Dispatch.RetryMaxDelay }, 10 * time.Second},
	"dispatch.timeout":         {func(c *Config) string { return c.Dispatch.Timeout }, 20 * time.Second},
	"assistant.timeout":        {func(c *Config) string { return c.Assistant.Timeout }, 120 * time.Second},
	"assistant.poll_interval":  {func(c *Config) string { return c.Assistant.PollInterval }, 2 * time.Second},
}

// Duration returns the setting at path, or its default when unset.
func (c *Config) Duration(path string) (time.Duration, error) {
	f, ok := durationFields[path]
	if !ok {
		return 0, fmt.Errorf("%s: not a duration setting", path)
	}
	raw := strings.TrimSpace(f.get(c))
	if raw == "" {
		return f.def, nil
	}
	d, err := time.ParseDuration(raw)
	switch {
	case err != nil:
		return 0, fmt.Errorf("%s: invalid duration %q", path, raw)
	case d < 0:
		return 0, fmt.Errorf("%s: must not be negative", path)
	case d == 0:
		return f.def, nil
	}
	return d, nil
}

// MustDuration is Duration for configs that already passed Validate.
func (c *Config) MustDuration(path string) time.Duration {
	d, err := c.Duration(path)
	if err != nil {
		return durationFields[path].def
	}
	return d
}
