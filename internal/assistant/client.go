package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	logx "swasthai/pkg/logx"
)

var (
	// ErrDisabled is returned when no API key is configured.
	ErrDisabled = errors.New("assistant disabled: no api key")
	// ErrTimeout is returned when an async run does not complete in time.
	ErrTimeout = errors.New("assistant run timed out")
)

type Config struct {
	ModelsURL      string
	AgentsURL      string
	APIKey         string
	AgentID        string
	SummaryModelID string
	DoctorModelID  string
	Timeout        time.Duration
	PollInterval   time.Duration
}

// Answer is the reply to a user question.
type Answer struct {
	Response string `json:"response"`
	Summary  string `json:"summary"`
	Language string `json:"language,omitempty"`
}

// PlatformError carries a non-2xx response or a failed run.
type PlatformError struct {
	Status  int
	Message string
}

func (e *PlatformError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("platform status %d: %s", e.Status, e.Message)
	}
	return "platform run failed: " + e.Message
}

// Client talks to the hosted agent/model platform. Apply swaps settings at
// runtime; in-flight calls keep the settings they started with.
type Client struct {
	mu   sync.RWMutex
	cfg  Config
	http *resty.Client
	log  logx.Logger
}

func New(cfg Config, log logx.Logger) *Client {
	if log.IsZero() {
		log = logx.Nop()
	}
	c := &Client{log: log}
	c.Apply(cfg)
	return c
}

func (c *Client) Apply(cfg Config) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	cfg.ModelsURL = strings.TrimRight(strings.TrimSpace(cfg.ModelsURL), "/")
	cfg.AgentsURL = strings.TrimRight(strings.TrimSpace(cfg.AgentsURL), "/")
	hc := resty.New().
		SetHeader("Content-Type", "application/json").
		SetHeader("x-api-key", cfg.APIKey).
		SetTimeout(cfg.Timeout)

	c.mu.Lock()
	c.cfg = cfg
	c.http = hc
	c.mu.Unlock()
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return strings.TrimSpace(c.cfg.APIKey) != ""
}

func (c *Client) snapshot() (Config, *resty.Client, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return Config{}, nil, ErrDisabled
	}
	return c.cfg, c.http, nil
}

// Ask runs the agent on question, cleans the answer and asks the summary
// model for a summary. An empty language is detected from the question.
func (c *Client) Ask(ctx context.Context, question, language string) (Answer, error) {
	cfg, hc, err := c.snapshot()
	if err != nil {
		return Answer{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	lang := strings.TrimSpace(language)
	if lang == "" {
		lang = DetectLanguage(question)
	}

	query := fmt.Sprintf("%s Response in %s", question, lang)
	data, err := c.run(ctx, hc, cfg, cfg.AgentsURL+"/"+cfg.AgentID+"/run", map[string]any{"query": query})
	if err != nil {
		return Answer{}, fmt.Errorf("agent: %w", err)
	}
	var out struct {
		Output json.RawMessage `json:"output"`
	}
	if err := json.Unmarshal(data, &out); err != nil || len(out.Output) == 0 {
		return Answer{}, &PlatformError{Message: "agent returned no output"}
	}
	raw := asText(out.Output)

	sdata, err := c.run(ctx, hc, cfg, cfg.ModelsURL+"/"+cfg.SummaryModelID, map[string]any{
		"question": question,
		"response": raw,
		"language": lang,
	})
	if err != nil {
		return Answer{}, fmt.Errorf("summary: %w", err)
	}

	return Answer{
		Response: FormatParagraphs(RemoveMarkdown(raw)),
		Summary:  FormatParagraphs(RemoveMarkdown(RepairLatin1(asText(sdata)))),
		Language: lang,
	}, nil
}

// Doctors asks the doctor model for practitioners treating condition near
// location and returns the model output untouched.
func (c *Client) Doctors(ctx context.Context, condition, location string) (json.RawMessage, error) {
	cfg, hc, err := c.snapshot()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	data, err := c.run(ctx, hc, cfg, cfg.ModelsURL+"/"+cfg.DoctorModelID, map[string]any{
		"condition": condition,
		"location":  location,
	})
	if err != nil {
		return nil, fmt.Errorf("doctors: %w", err)
	}
	return data, nil
}

// envelope is the platform's response wrapper for both sync and async runs.
type envelope struct {
	Completed     *bool           `json:"completed"`
	Status        string          `json:"status"`
	Data          json.RawMessage `json:"data"`
	Error         string          `json:"error"`
	SupplierError string          `json:"supplierError"`
}

func (e envelope) failed() string {
	if strings.EqualFold(e.Status, "FAILED") || e.Error != "" || e.SupplierError != "" {
		msg := strings.TrimSpace(e.Error + " " + e.SupplierError)
		if msg == "" {
			msg = "status FAILED"
		}
		return msg
	}
	return ""
}

// pollURL returns the URL to poll when the run is asynchronous.
func (e envelope) pollURL() (string, bool) {
	if e.Completed != nil && *e.Completed {
		return "", false
	}
	var s string
	if err := json.Unmarshal(e.Data, &s); err != nil {
		return "", false
	}
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		return s, true
	}
	return "", false
}

func (c *Client) run(ctx context.Context, hc *resty.Client, cfg Config, url string, body any) (json.RawMessage, error) {
	start := time.Now()
	env, err := c.call(ctx, hc.R().SetContext(ctx).SetBody(body), "POST", url)
	if err != nil {
		return nil, err
	}
	poll, async := env.pollURL()
	for async {
		t := time.NewTimer(cfg.PollInterval)
		select {
		case <-ctx.Done():
			t.Stop()
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, ErrTimeout
			}
			return nil, ctx.Err()
		case <-t.C:
		}
		env, err = c.call(ctx, hc.R().SetContext(ctx), "GET", poll)
		if err != nil {
			return nil, err
		}
		if env.Completed != nil && *env.Completed {
			break
		}
	}
	c.log.Debug("platform run done", logx.String("url", url), logx.Duration("took", time.Since(start)))
	return env.Data, nil
}

func (c *Client) call(ctx context.Context, req *resty.Request, method, url string) (envelope, error) {
	resp, err := req.Execute(method, url)
	if err != nil {
		if ctx.Err() != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return envelope{}, ErrTimeout
		}
		return envelope{}, err
	}
	if resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		return envelope{}, &PlatformError{Status: resp.StatusCode(), Message: truncate(resp.String(), 300)}
	}
	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return envelope{}, fmt.Errorf("decode platform response: %w", err)
	}
	if msg := env.failed(); msg != "" {
		return envelope{}, &PlatformError{Message: msg}
	}
	return env, nil
}

// asText unwraps a JSON string; other JSON values are returned verbatim.
func asText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(raw))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
