package dispatch

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"swasthai/internal/eventbus"
	logx "swasthai/pkg/logx"
)

const historyLimit = 300

// Service delivers reminders to every enabled channel with rate limiting and
// per-channel retry. Send reports success when at least one channel delivered.
//
// It is safe for concurrent use.
type Service struct {
	mu sync.Mutex

	log logx.Logger
	bus eventbus.Bus

	cfg      Config
	limiter  *rate.Limiter
	channels []Channel
	fixed    bool // channels supplied by WithChannels; Apply keeps them

	hmu     sync.Mutex
	history []HistoryItem
}

type Option func(*Service)

// WithChannels replaces the channels built from Config.
func WithChannels(ch ...Channel) Option {
	return func(s *Service) {
		s.channels = append([]Channel(nil), ch...)
		s.fixed = true
	}
}

func WithBus(bus eventbus.Bus) Option {
	return func(s *Service) { s.bus = bus }
}

func New(cfg Config, log logx.Logger, opts ...Option) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Service{log: log}
	for _, o := range opts {
		o(s)
	}
	s.applyLocked(cfg)
	return s
}

// Apply swaps the configuration. In-flight sends keep their snapshot.
func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	s.applyLocked(cfg)
	s.mu.Unlock()
}

func (s *Service) applyLocked(cfg Config) {
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 3
	}
	if cfg.RetryMax < 0 {
		cfg.RetryMax = 0
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 500 * time.Millisecond
	}
	if cfg.RetryMaxDelay <= 0 {
		cfg.RetryMaxDelay = 10 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	s.cfg = cfg
	s.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec)
	if !s.fixed {
		s.channels = buildChannels(cfg, s.log)
	}
}

func buildChannels(cfg Config, log logx.Logger) []Channel {
	var out []Channel
	if cfg.Email.Enabled {
		out = append(out, NewEmail(cfg.Email))
	}
	if cfg.Telegram.Enabled {
		tg, err := NewTelegram(cfg.Telegram, cfg.Timeout)
		if err != nil {
			log.Warn("telegram channel disabled", logx.Err(err))
		} else {
			out = append(out, tg)
		}
	}
	if cfg.Webhook.Enabled {
		out = append(out, NewWebhook(cfg.Webhook, cfg.Timeout))
	}
	return out
}

// Channels lists the active channel names.
func (s *Service) Channels() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.channels))
	for _, c := range s.channels {
		out = append(out, c.Name())
	}
	return out
}

// Send implements the reminder dispatcher contract.
func (s *Service) Send(ctx context.Context, subject, body string) bool {
	err := s.Deliver(ctx, Message{Subject: subject, Body: body, At: time.Now()})
	if err != nil {
		s.log.Warn("reminder not delivered", logx.String("subject", subject), logx.Err(err))
		return false
	}
	return true
}

// Deliver sends m on every channel and returns nil if any channel succeeded.
func (s *Service) Deliver(ctx context.Context, m Message) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	chans := append([]Channel(nil), s.channels...)
	s.mu.Unlock()

	if len(chans) == 0 {
		return ErrNoChannels
	}

	var (
		ok   bool
		errs []error
	)
	for _, ch := range chans {
		if err := s.sendWithRetry(ctx, ch, m); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", ch.Name(), err))
			continue
		}
		ok = true
	}
	if ok {
		return nil
	}
	return errors.Join(errs...)
}

func (s *Service) sendWithRetry(ctx context.Context, ch Channel, m Message) error {
	s.mu.Lock()
	cfg := s.cfg
	lim := s.limiter
	log := s.log
	s.mu.Unlock()

	maxAttempts := 1 + cfg.RetryMax

	var (
		lastErr  error
		attempts int
	)
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		attempts = attempt
		if err := lim.Wait(ctx); err != nil {
			lastErr = err
			break
		}

		callCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		err := ch.Send(callCtx, m)
		cancel()
		if err == nil {
			s.record(ch.Name(), m.Subject, attempt, nil)
			return nil
		}
		lastErr = err
		log.Debug("dispatch send failed", logx.String("channel", ch.Name()), logx.Err(err),
			logx.Int("attempt", attempt), logx.Int("max", maxAttempts))

		if isPermanent(err) || attempt >= maxAttempts {
			break
		}

		t := time.NewTimer(retryDelay(cfg, attempt))
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			s.record(ch.Name(), m.Subject, attempts, ctx.Err())
			return ctx.Err()
		}
	}

	s.record(ch.Name(), m.Subject, attempts, lastErr)
	return lastErr
}

func (s *Service) record(channel, subject string, attempts int, err error) {
	now := time.Now()
	item := HistoryItem{At: now, Channel: channel, Subject: subject, Attempts: attempts}
	ev := DispatchEvent{Channel: channel, Subject: subject, Attempts: attempts, At: now}
	typ := eventbus.DispatchSent
	if err != nil {
		item.Error = err.Error()
		ev.Error = err.Error()
		typ = eventbus.DispatchFailed
	}

	s.hmu.Lock()
	s.history = append(s.history, item)
	if len(s.history) > historyLimit {
		s.history = s.history[len(s.history)-historyLimit:]
	}
	s.hmu.Unlock()

	if s.bus != nil {
		s.bus.Publish(eventbus.Event{Type: typ, Time: now, Data: ev})
	}
}

// History returns recent channel outcomes, oldest first.
func (s *Service) History() []HistoryItem {
	s.hmu.Lock()
	out := append([]HistoryItem(nil), s.history...)
	s.hmu.Unlock()
	return out
}

func retryDelay(cfg Config, attempt int) time.Duration {
	// attempt starts at 1; the delay is for the next attempt.
	d := cfg.RetryBase
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= cfg.RetryMaxDelay {
			d = cfg.RetryMaxDelay
			break
		}
	}
	// Jitter 0.7..1.3
	j := 0.7 + rand.Float64()*0.6
	d = time.Duration(float64(d) * j)
	if d < 0 {
		return 0
	}
	if d > cfg.RetryMaxDelay {
		d = cfg.RetryMaxDelay
	}
	return d
}
