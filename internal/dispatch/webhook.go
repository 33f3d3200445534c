package dispatch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Webhook posts reminders as JSON to an HTTP endpoint.
type Webhook struct {
	url    string
	client *resty.Client
}

type webhookPayload struct {
	Subject string    `json:"subject"`
	Body    string    `json:"body"`
	SentAt  time.Time `json:"sentAt"`
}

func NewWebhook(cfg WebhookConfig, timeout time.Duration) *Webhook {
	c := resty.New().
		SetHeader("Content-Type", "application/json").
		SetHeaders(cfg.Headers)
	if timeout > 0 {
		c.SetTimeout(timeout)
	}
	return &Webhook{url: strings.TrimSpace(cfg.URL), client: c}
}

func (w *Webhook) Name() string { return "webhook" }

func (w *Webhook) Send(ctx context.Context, m Message) error {
	if w.url == "" {
		return Permanent(fmt.Errorf("webhook: %w", ErrIncomplete))
	}
	at := m.At
	if at.IsZero() {
		at = time.Now()
	}
	resp, err := w.client.R().
		SetContext(ctx).
		SetBody(&webhookPayload{Subject: m.Subject, Body: m.Body, SentAt: at.UTC()}).
		Post(w.url)
	if err != nil {
		return fmt.Errorf("webhook request: %w", err)
	}
	code := resp.StatusCode()
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusTooManyRequests || code >= 500:
		return fmt.Errorf("webhook status %d: %s", code, resp.String())
	default:
		return Permanent(errors.New("webhook status " + resp.Status()))
	}
}
