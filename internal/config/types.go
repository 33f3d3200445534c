package config

// Config is the daemon configuration. All durations are Go duration strings
// ("500ms", "20s", "2m").
type Config struct {
	Logging   LoggingConfig   `json:"logging"`
	HTTP      HTTPConfig      `json:"http"`
	Pprof     PprofConfig     `json:"pprof,omitempty"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Scan      ScanConfig      `json:"scan"`
	Storage   StorageConfig   `json:"storage"`
	Dispatch  DispatchConfig  `json:"dispatch"`
	Assistant AssistantConfig `json:"assistant"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	Format  string      `json:"format,omitempty"` // "console" (default) or "json"
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// HTTPConfig controls the API server.
//
// Token, when set, is required as a bearer token on every route except
// /healthz. It is never logged.
type HTTPConfig struct {
	Addr         string `json:"addr"`
	Token        string `json:"token,omitempty"`
	AllowOrigin  string `json:"allow_origin,omitempty"`
	ReadTimeout  string `json:"read_timeout,omitempty"`
	WriteTimeout string `json:"write_timeout,omitempty"`
	IdleTimeout  string `json:"idle_timeout,omitempty"`
}

// PprofConfig controls the optional pprof HTTP server.
//
// Prefer binding to localhost. A non-loopback address needs a token or
// allow_insecure.
type PprofConfig struct {
	Enabled       bool   `json:"enabled"`
	Addr          string `json:"addr,omitempty"`   // default: "127.0.0.1:6060"
	Prefix        string `json:"prefix,omitempty"` // default: "/debug/pprof/"
	Token         string `json:"token,omitempty"`
	AllowInsecure bool   `json:"allow_insecure,omitempty"`
}

type SchedulerConfig struct {
	Enabled  bool   `json:"enabled"`
	Timezone string `json:"timezone,omitempty"`
}

// ScanConfig controls the reminder scan.
//
// Schedule, when set, overrides At with a cron spec or interval
// ("0 8 * * *", "@every 6h", "6h").
type ScanConfig struct {
	At         string `json:"at"`
	Schedule   string `json:"schedule,omitempty"`
	WindowDays int    `json:"window_days"`
	RunOnStart bool   `json:"run_on_start"`
	Timeout    string `json:"timeout,omitempty"`
}

type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	DSN         string `json:"dsn,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // sqlite
	IDStrategy  string `json:"id_strategy,omitempty"`  // "timestamp" | "uuid"
}

type DispatchConfig struct {
	RatePerSec    int    `json:"rate_per_sec"`
	RetryMax      int    `json:"retry_max"`
	RetryBase     string `json:"retry_base"`
	RetryMaxDelay string `json:"retry_max_delay"`
	Timeout       string `json:"timeout"`

	Email    EmailConfig    `json:"email"`
	Telegram TelegramConfig `json:"telegram"`
	Webhook  WebhookConfig  `json:"webhook"`
}

type EmailConfig struct {
	Enabled   bool   `json:"enabled"`
	Host      string `json:"host"`
	Port      int    `json:"port"`
	Sender    string `json:"sender,omitempty"`
	Password  string `json:"password,omitempty"`
	Recipient string `json:"recipient,omitempty"`
}

type TelegramConfig struct {
	Enabled  bool   `json:"enabled"`
	Token    string `json:"token,omitempty"`
	ChatID   int64  `json:"chat_id,omitempty"`
	ThreadID int    `json:"thread_id,omitempty"`
	APIURL   string `json:"api_url,omitempty"`
}

type WebhookConfig struct {
	Enabled bool              `json:"enabled"`
	URL     string            `json:"url,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
}

// AssistantConfig controls the hosted AI platform client. Without an API key
// the /ask and /doctors routes answer 503.
type AssistantConfig struct {
	ModelsURL      string `json:"models_url"`
	AgentsURL      string `json:"agents_url"`
	APIKey         string `json:"api_key,omitempty"`
	AgentID        string `json:"agent_id"`
	SummaryModelID string `json:"summary_model_id"`
	DoctorModelID  string `json:"doctor_model_id"`
	Timeout        string `json:"timeout"`
	PollInterval   string `json:"poll_interval"`
}

// Defaults returns the configuration used for omitted keys.
func Defaults() Config {
	return Config{
		Logging:   LoggingConfig{Level: "info", Console: true},
		HTTP:      HTTPConfig{Addr: "0.0.0.0:5000", AllowOrigin: "*", ReadTimeout: "15s", WriteTimeout: "120s", IdleTimeout: "60s"},
		Scheduler: SchedulerConfig{Enabled: true},
		Scan:      ScanConfig{At: "08:00", WindowDays: 7, Timeout: "5m"},
		Storage:   StorageConfig{Driver: "file", Path: "./data", BusyTimeout: "5s", IDStrategy: "timestamp"},
		Dispatch: DispatchConfig{
			RatePerSec:    3,
			RetryMax:      2,
			RetryBase:     "500ms",
			RetryMaxDelay: "10s",
			Timeout:       "20s",
			Email:         EmailConfig{Enabled: true, Host: "smtp.gmail.com", Port: 587},
		},
		Assistant: AssistantConfig{
			ModelsURL:      "https://models.aixplain.com/api/v1/execute",
			AgentsURL:      "https://platform-api.aixplain.com/sdk/agents",
			AgentID:        "67a1cd61f3e3f6c52370a36c",
			SummaryModelID: "67a1cccff3e3f6c52370a36b",
			DoctorModelID:  "67a220feb6353d81be0f0f2f",
			Timeout:        "120s",
			PollInterval:   "2s",
		},
	}
}
