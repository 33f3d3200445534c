package config

import (
	"reflect"
	"strings"

	logx "swasthai/pkg/logx"
)

// Change summarizes the difference between two configs.
type Change struct {
	// Sections lists changed top-level sections in declaration order.
	Sections []string
	// Attrs are safe log fields; secrets are reported only as *_set flags.
	Attrs []logx.Field
	// RestartRequired lists changed sections that only take effect on restart.
	RestartRequired []string
}

func (c Change) Has(section string) bool {
	for _, s := range c.Sections {
		if s == section {
			return true
		}
	}
	return false
}

// Summarize compares oldCfg and newCfg.
func Summarize(oldCfg, newCfg *Config) Change {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}
	var ch Change
	mark := func(section string, restart bool, attrs ...logx.Field) {
		ch.Sections = append(ch.Sections, section)
		ch.Attrs = append(ch.Attrs, attrs...)
		if restart {
			ch.RestartRequired = append(ch.RestartRequired, section)
		}
	}
	set := func(s string) bool { return strings.TrimSpace(s) != "" }

	if !reflect.DeepEqual(oldCfg.Logging, newCfg.Logging) {
		n := newCfg.Logging
		mark("logging", false,
			logx.String("logging.level", n.Level),
			logx.Bool("logging.console", n.Console),
			logx.Bool("logging.file_enabled", n.File.Enabled),
		)
	}
	if !reflect.DeepEqual(oldCfg.HTTP, newCfg.HTTP) {
		mark("http", true,
			logx.String("http.addr", newCfg.HTTP.Addr),
			logx.Bool("http.token_set", set(newCfg.HTTP.Token)),
		)
	}
	if !reflect.DeepEqual(oldCfg.Pprof, newCfg.Pprof) {
		mark("pprof", false,
			logx.Bool("pprof.enabled", newCfg.Pprof.Enabled),
			logx.String("pprof.addr", newCfg.Pprof.Addr),
			logx.Bool("pprof.token_set", set(newCfg.Pprof.Token)),
		)
	}
	if oldCfg.Scheduler != newCfg.Scheduler {
		mark("scheduler", false,
			logx.Bool("scheduler.enabled", newCfg.Scheduler.Enabled),
			logx.String("scheduler.timezone", newCfg.Scheduler.Timezone),
		)
	}
	if oldCfg.Scan != newCfg.Scan {
		mark("scan", false,
			logx.String("scan.at", newCfg.Scan.At),
			logx.String("scan.schedule", newCfg.Scan.Schedule),
			logx.Int("scan.window_days", newCfg.Scan.WindowDays),
		)
	}
	if oldCfg.Storage != newCfg.Storage {
		mark("storage", true,
			logx.String("storage.driver", newCfg.Storage.Driver),
			logx.String("storage.path", newCfg.Storage.Path),
			logx.Bool("storage.dsn_set", set(newCfg.Storage.DSN)),
		)
	}
	if !reflect.DeepEqual(oldCfg.Dispatch, newCfg.Dispatch) {
		d := newCfg.Dispatch
		mark("dispatch", false,
			logx.Bool("dispatch.email", d.Email.Enabled),
			logx.Bool("dispatch.email_password_set", set(d.Email.Password)),
			logx.Bool("dispatch.telegram", d.Telegram.Enabled),
			logx.Bool("dispatch.telegram_token_set", set(d.Telegram.Token)),
			logx.Bool("dispatch.webhook", d.Webhook.Enabled),
			logx.Int("dispatch.retry_max", d.RetryMax),
		)
	}
	if oldCfg.Assistant != newCfg.Assistant {
		a := newCfg.Assistant
		mark("assistant", false,
			logx.String("assistant.agent_id", a.AgentID),
			logx.Bool("assistant.api_key_set", set(a.APIKey)),
		)
	}
	return ch
}
