package config

import (
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix namespaces environment overrides. Each variable is read as
// SWASTHAI_<NAME> first and then as the bare <NAME>, so deployments that
// export EMAIL_SENDER or TEAM_API_KEY keep working.
const EnvPrefix = "SWASTHAI"

// envOverrides lists the environment variables that overlay the file config.
// Unset variables leave the file value alone.
type envOverrides struct {
	LogLevel *string `envconfig:"LOG_LEVEL"`

	HTTPAddr  *string `envconfig:"HTTP_ADDR"`
	HTTPToken *string `envconfig:"HTTP_TOKEN"`

	Timezone *string `envconfig:"TIMEZONE"`
	ScanAt   *string `envconfig:"SCAN_AT"`
	ScanDays *int    `envconfig:"SCAN_WINDOW_DAYS"`

	StorageDriver *string `envconfig:"STORAGE_DRIVER"`
	StoragePath   *string `envconfig:"STORAGE_PATH"`
	DatabaseURL   *string `envconfig:"DATABASE_URL"`

	EmailSender    *string `envconfig:"EMAIL_SENDER"`
	EmailPassword  *string `envconfig:"EMAIL_PASSWORD"`
	EmailRecipient *string `envconfig:"EMAIL_RECIPIENT"`

	TelegramToken  *string `envconfig:"TELEGRAM_TOKEN"`
	TelegramChatID *int64  `envconfig:"TELEGRAM_CHAT_ID"`

	WebhookURL *string `envconfig:"WEBHOOK_URL"`

	APIKey         *string `envconfig:"TEAM_API_KEY"`
	AgentID        *string `envconfig:"AGENT_MODEL_ID"`
	SummaryModelID *string `envconfig:"SUMM_MODEL_ID"`
	DoctorModelID  *string `envconfig:"DOC_MODEL_ID"`
}

// ApplyEnv overlays environment variables onto cfg.
func ApplyEnv(cfg *Config) error {
	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("env: %w", err)
	}
	env.apply(cfg)
	return nil
}

func (e envOverrides) apply(cfg *Config) {
	setStr(&cfg.Logging.Level, e.LogLevel)
	setStr(&cfg.HTTP.Addr, e.HTTPAddr)
	setStr(&cfg.HTTP.Token, e.HTTPToken)
	setStr(&cfg.Scheduler.Timezone, e.Timezone)
	setStr(&cfg.Scan.At, e.ScanAt)
	if e.ScanDays != nil {
		cfg.Scan.WindowDays = *e.ScanDays
	}
	setStr(&cfg.Storage.Driver, e.StorageDriver)
	setStr(&cfg.Storage.Path, e.StoragePath)
	setStr(&cfg.Storage.DSN, e.DatabaseURL)
	setStr(&cfg.Dispatch.Email.Sender, e.EmailSender)
	setStr(&cfg.Dispatch.Email.Password, e.EmailPassword)
	setStr(&cfg.Dispatch.Email.Recipient, e.EmailRecipient)
	setStr(&cfg.Dispatch.Telegram.Token, e.TelegramToken)
	if e.TelegramChatID != nil {
		cfg.Dispatch.Telegram.ChatID = *e.TelegramChatID
	}
	setStr(&cfg.Dispatch.Webhook.URL, e.WebhookURL)
	setStr(&cfg.Assistant.APIKey, e.APIKey)
	setStr(&cfg.Assistant.AgentID, e.AgentID)
	setStr(&cfg.Assistant.SummaryModelID, e.SummaryModelID)
	setStr(&cfg.Assistant.DoctorModelID, e.DoctorModelID)
}

func setStr(dst *string, v *string) {
	if v == nil {
		return
	}
	if s := strings.TrimSpace(*v); s != "" {
		*dst = s
	}
}
