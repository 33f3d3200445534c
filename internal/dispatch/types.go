package dispatch

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNoChannels is returned by Deliver when no channel is configured.
	ErrNoChannels = errors.New("no dispatch channels configured")
	// ErrIncomplete marks a channel whose configuration is missing required values.
	ErrIncomplete = errors.New("channel configuration incomplete")
)

// Config controls delivery of reminder messages.
type Config struct {
	RatePerSec    int
	RetryMax      int
	RetryBase     time.Duration
	RetryMaxDelay time.Duration
	// Timeout bounds one send attempt on one channel.
	Timeout time.Duration

	Email    EmailConfig
	Telegram TelegramConfig
	Webhook  WebhookConfig
}

type EmailConfig struct {
	Enabled   bool
	Host      string
	Port      int
	Sender    string
	Password  string
	Recipient string
}

type TelegramConfig struct {
	Enabled  bool
	Token    string
	ChatID   int64
	ThreadID int
	// APIURL overrides the Bot API endpoint.
	APIURL string
}

type WebhookConfig struct {
	Enabled bool
	URL     string
	Headers map[string]string
}

// Message is one reminder to deliver.
type Message struct {
	Subject string
	Body    string
	At      time.Time
}

// Channel delivers a message over one transport.
type Channel interface {
	Name() string
	Send(ctx context.Context, m Message) error
}

type HistoryItem struct {
	At       time.Time
	Channel  string
	Subject  string
	Attempts int
	Error    string
}

// DispatchEvent is published on the event bus after each channel outcome.
type DispatchEvent struct {
	Channel  string    `json:"channel"`
	Subject  string    `json:"subject"`
	Attempts int       `json:"attempts"`
	At       time.Time `json:"at"`
	Error    string    `json:"error,omitempty"`
}

// permanentError stops retries for a channel.
type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

func isPermanent(err error) bool {
	var p permanentError
	return errors.As(err, &p)
}
