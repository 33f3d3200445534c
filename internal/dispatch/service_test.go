package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"swasthai/internal/eventbus"
	logx "swasthai/pkg/logx"
)

type fakeChannel struct {
	name string
	mu   sync.Mutex
	errs []error // consumed per call; nil entries succeed
	sent []Message
}

func (f *fakeChannel) Name() string { return f.name }

func (f *fakeChannel) Send(_ context.Context, m Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var err error
	if len(f.errs) > 0 {
		err, f.errs = f.errs[0], f.errs[1:]
	}
	if err == nil {
		f.sent = append(f.sent, m)
	}
	return err
}

func fastConfig() Config {
	return Config{RatePerSec: 1000, RetryMax: 2, RetryBase: time.Millisecond, RetryMaxDelay: 2 * time.Millisecond, Timeout: time.Second}
}

func TestSendSucceedsWhenAnyChannelDelivers(t *testing.T) {
	t.Parallel()

	bad := &fakeChannel{name: "bad", errs: []error{Permanent(errors.New("nope"))}}
	good := &fakeChannel{name: "good"}
	bus := eventbus.New()
	events, unsub := bus.Subscribe(8, "dispatch.")
	defer unsub()

	s := New(fastConfig(), logx.Nop(), WithChannels(bad, good), WithBus(bus))
	if !s.Send(context.Background(), "Health Reminder: Checkup for Asha", "body") {
		t.Fatalf("Send() = false with one working channel")
	}
	if len(good.sent) != 1 || good.sent[0].Body != "body" {
		t.Fatalf("good channel got %+v", good.sent)
	}

	if got := (<-events).Type; got != eventbus.DispatchFailed {
		t.Fatalf("first event = %s, want %s", got, eventbus.DispatchFailed)
	}
	if got := (<-events).Type; got != eventbus.DispatchSent {
		t.Fatalf("second event = %s, want %s", got, eventbus.DispatchSent)
	}

	h := s.History()
	if len(h) != 2 {
		t.Fatalf("History() = %d entries, want 2", len(h))
	}
	// permanent errors are not retried
	if h[0].Attempts != 1 {
		t.Fatalf("Attempts = %d, want 1", h[0].Attempts)
	}
}

func TestSendRetriesTransientErrors(t *testing.T) {
	t.Parallel()

	ch := &fakeChannel{name: "flaky", errs: []error{errors.New("timeout"), errors.New("timeout")}}
	s := New(fastConfig(), logx.Nop(), WithChannels(ch))
	if !s.Send(context.Background(), "s", "b") {
		t.Fatalf("Send() = false, want success on the third attempt")
	}
	if got := s.History()[0].Attempts; got != 3 {
		t.Fatalf("Attempts = %d, want 3", got)
	}
}

func TestSendFailsAfterRetries(t *testing.T) {
	t.Parallel()

	fail := errors.New("down")
	ch := &fakeChannel{name: "down", errs: []error{fail, fail, fail, fail}}
	s := New(fastConfig(), logx.Nop(), WithChannels(ch))
	if err := s.Deliver(context.Background(), Message{Subject: "s"}); !errors.Is(err, fail) {
		t.Fatalf("Deliver() error = %v, want %v", err, fail)
	}
	if s.Send(context.Background(), "s", "b") {
		t.Fatalf("Send() = true on a dead channel")
	}
}

func TestSendWithoutChannels(t *testing.T) {
	t.Parallel()

	s := New(Config{}, logx.Nop())
	if got := s.Channels(); len(got) != 0 {
		t.Fatalf("Channels() = %v, want none", got)
	}
	if err := s.Deliver(context.Background(), Message{}); !errors.Is(err, ErrNoChannels) {
		t.Fatalf("Deliver() error = %v, want ErrNoChannels", err)
	}
	if s.Send(context.Background(), "s", "b") {
		t.Fatalf("Send() = true without channels")
	}
}

func TestEmailIncompleteConfigFailsWithoutDialing(t *testing.T) {
	t.Parallel()

	for _, cfg := range []EmailConfig{
		{Enabled: true},
		{Enabled: true, Sender: "a@example.com", Password: "pw"},
		{Enabled: true, Sender: "a@example.com", Recipient: "b@example.com"},
	} {
		e := NewEmail(cfg)
		if e.Complete() {
			t.Fatalf("Complete() = true for %+v", cfg)
		}
		err := e.Send(context.Background(), Message{Subject: "s"})
		if !errors.Is(err, ErrIncomplete) || !isPermanent(err) {
			t.Fatalf("Send() error = %v, want permanent ErrIncomplete", err)
		}
	}

	e := NewEmail(EmailConfig{})
	if e.cfg.Host != "smtp.gmail.com" || e.cfg.Port != 587 {
		t.Fatalf("defaults = %s:%d", e.cfg.Host, e.cfg.Port)
	}
}

func TestComposeMail(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 6, 5, 8, 0, 0, 0, time.UTC)
	raw := string(composeMail("a@example.com", "b@example.com", Message{Subject: "Health Reminder", Body: "Hello,\n\nBye\n", At: at}))
	for _, want := range []string{
		"From: a@example.com\r\n",
		"Subject: Health Reminder\r\n",
		"Content-Type: text/plain; charset=utf-8\r\n",
	} {
		if !strings.Contains(raw, want) {
			t.Fatalf("mail missing %q:\n%s", want, raw)
		}
	}
	if !strings.HasSuffix(raw, "\r\n\r\nHello,\r\n\r\nBye\r\n") {
		t.Fatalf("body not CRLF normalised: %q", raw)
	}
}

func TestWebhook(t *testing.T) {
	t.Parallel()

	var (
		calls   atomic.Int32
		badReq  atomic.Value
		subject atomic.Value
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		if r.Header.Get("X-Token") != "secret" {
			badReq.Store("missing X-Token")
		}
		var p webhookPayload
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			badReq.Store(err.Error())
		}
		subject.Store(p.Subject)
		if n == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	cfg := fastConfig()
	cfg.Webhook = WebhookConfig{Enabled: true, URL: srv.URL, Headers: map[string]string{"X-Token": "secret"}}
	s := New(cfg, logx.Nop())
	if got := s.Channels(); !slices.Equal(got, []string{"webhook"}) {
		t.Fatalf("Channels() = %v", got)
	}
	if !s.Send(context.Background(), "Health Reminder", "body") {
		t.Fatalf("Send() = false, want success after a 503")
	}
	if v := badReq.Load(); v != nil {
		t.Fatalf("bad request: %v", v)
	}
	if got := subject.Load(); got != "Health Reminder" {
		t.Fatalf("payload subject = %v", got)
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("calls = %d, want 2", got)
	}
}

func TestWebhookClientErrorIsPermanent(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	err := NewWebhook(WebhookConfig{URL: srv.URL}, time.Second).Send(context.Background(), Message{Subject: "s"})
	if err == nil || !isPermanent(err) {
		t.Fatalf("Send() error = %v, want permanent", err)
	}
}

func TestTelegram(t *testing.T) {
	t.Parallel()

	var (
		mu   sync.Mutex
		got  map[string]any
		path string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		path = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&got)
		mu.Unlock()
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":7,"date":0,"chat":{"id":42,"type":"private"},"text":"x"}}`))
	}))
	defer srv.Close()

	tg, err := NewTelegram(TelegramConfig{Token: "123:abc", ChatID: 42, APIURL: srv.URL}, time.Second)
	if err != nil {
		t.Fatalf("NewTelegram() error = %v", err)
	}
	if err := tg.Send(context.Background(), Message{Subject: "Health Reminder", Body: "body"}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if !strings.HasSuffix(path, "/sendMessage") {
		t.Fatalf("path = %q, want sendMessage", path)
	}
	if got["text"] != "Health Reminder\n\nbody" {
		t.Fatalf("text = %q", got["text"])
	}

	if _, err := NewTelegram(TelegramConfig{Token: "123:abc"}, time.Second); err == nil {
		t.Fatalf("NewTelegram() without chat id error = nil")
	}
}

func TestSplitText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want []string
	}{
		{"short", []string{"short"}},
		{strings.Repeat("a", 6) + "\n" + strings.Repeat("b", 6), []string{"aaaaaa", "bbbbbb"}},
	}
	for _, tt := range tests {
		if got := splitText(tt.in, 10); !slices.Equal(got, tt.want) {
			t.Fatalf("splitText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if got := splitText(strings.Repeat("x", 25), 10); len(got) != 3 {
		t.Fatalf("splitText(25 chars) = %d parts, want 3", len(got))
	}
}

func TestRetryDelayBounds(t *testing.T) {
	t.Parallel()

	cfg := Config{RetryBase: 100 * time.Millisecond, RetryMaxDelay: time.Second}
	for attempt := 1; attempt <= 8; attempt++ {
		if d := retryDelay(cfg, attempt); d < 70*time.Millisecond || d > time.Second {
			t.Fatalf("retryDelay(%d) = %v, want within [70ms, 1s]", attempt, d)
		}
	}
}
