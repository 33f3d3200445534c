package app

import (
	"strings"
	"time"

	"swasthai/internal/assistant"
	"swasthai/internal/config"
	"swasthai/internal/dispatch"
	"swasthai/internal/httpapi"
	"swasthai/internal/observability/pprof"
	"swasthai/internal/storage"
	"swasthai/internal/task/scheduler"
	logx "swasthai/pkg/logx"
)

const scanJobName = "reminder.scan"

func mapLogConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		Format:  cfg.Logging.Format,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

// MapStorageConfig converts the storage section.
func MapStorageConfig(cfg *config.Config) (storage.Config, error) {
	busy, err := cfg.Duration("storage.busy_timeout")
	if err != nil {
		return storage.Config{}, err
	}
	return storage.Config{
		Driver:      strings.ToLower(strings.TrimSpace(cfg.Storage.Driver)),
		Path:        strings.TrimSpace(cfg.Storage.Path),
		DSN:         strings.TrimSpace(cfg.Storage.DSN),
		BusyTimeout: busy,
		IDStrategy:  cfg.Storage.IDStrategy,
	}, nil
}

// MapDispatchConfig converts the dispatch section.
func MapDispatchConfig(cfg *config.Config) (dispatch.Config, error) {
	d := cfg.Dispatch
	base, err := cfg.Duration("dispatch.retry_base")
	if err != nil {
		return dispatch.Config{}, err
	}
	maxDelay, err := cfg.Duration("dispatch.retry_max_delay")
	if err != nil {
		return dispatch.Config{}, err
	}
	timeout, err := cfg.Duration("dispatch.timeout")
	if err != nil {
		return dispatch.Config{}, err
	}
	return dispatch.Config{
		RatePerSec:    d.RatePerSec,
		RetryMax:      d.RetryMax,
		RetryBase:     base,
		RetryMaxDelay: maxDelay,
		Timeout:       timeout,
		Email: dispatch.EmailConfig{
			Enabled:   d.Email.Enabled,
			Host:      d.Email.Host,
			Port:      d.Email.Port,
			Sender:    d.Email.Sender,
			Password:  d.Email.Password,
			Recipient: d.Email.Recipient,
		},
		Telegram: dispatch.TelegramConfig{
			Enabled:  d.Telegram.Enabled,
			Token:    d.Telegram.Token,
			ChatID:   d.Telegram.ChatID,
			ThreadID: d.Telegram.ThreadID,
			APIURL:   d.Telegram.APIURL,
		},
		Webhook: dispatch.WebhookConfig{
			Enabled: d.Webhook.Enabled,
			URL:     d.Webhook.URL,
			Headers: d.Webhook.Headers,
		},
	}, nil
}

func mapAssistantConfig(cfg *config.Config) (assistant.Config, error) {
	a := cfg.Assistant
	timeout, err := cfg.Duration("assistant.timeout")
	if err != nil {
		return assistant.Config{}, err
	}
	poll, err := cfg.Duration("assistant.poll_interval")
	if err != nil {
		return assistant.Config{}, err
	}
	return assistant.Config{
		ModelsURL:      a.ModelsURL,
		AgentsURL:      a.AgentsURL,
		APIKey:         a.APIKey,
		AgentID:        a.AgentID,
		SummaryModelID: a.SummaryModelID,
		DoctorModelID:  a.DoctorModelID,
		Timeout:        timeout,
		PollInterval:   poll,
	}, nil
}

func mapHTTPConfig(cfg *config.Config) (httpapi.Config, error) {
	h := cfg.HTTP
	read, err := cfg.Duration("http.read_timeout")
	if err != nil {
		return httpapi.Config{}, err
	}
	write, err := cfg.Duration("http.write_timeout")
	if err != nil {
		return httpapi.Config{}, err
	}
	idle, err := cfg.Duration("http.idle_timeout")
	if err != nil {
		return httpapi.Config{}, err
	}
	return httpapi.Config{
		Addr:         h.Addr,
		Token:        h.Token,
		AllowOrigin:  h.AllowOrigin,
		ReadTimeout:  read,
		WriteTimeout: write,
		IdleTimeout:  idle,
	}, nil
}

func mapPprofConfig(cfg *config.Config) pprof.Config {
	p := cfg.Pprof
	return pprof.Config{
		Enabled:       p.Enabled,
		Addr:          p.Addr,
		Prefix:        p.Prefix,
		Token:         p.Token,
		AllowInsecure: p.AllowInsecure,
	}
}

func mapSchedulerConfig(cfg *config.Config) scheduler.Config {
	return scheduler.Config{Enabled: cfg.Scheduler.Enabled, Timezone: cfg.Scheduler.Timezone}
}

func scanTimeout(cfg *config.Config) time.Duration {
	return cfg.MustDuration("scan.timeout")
}
