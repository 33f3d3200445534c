package dispatch

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"
)

const telegramTextLimit = 4000

// Telegram sends reminders to one chat through the Bot API.
type Telegram struct {
	bot      *tele.Bot
	chat     *tele.Chat
	threadID int
}

// NewTelegram builds the channel without contacting the Bot API.
func NewTelegram(cfg TelegramConfig, timeout time.Duration) (*Telegram, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if cfg.ChatID == 0 {
		return nil, errors.New("telegram chat_id is empty")
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	b, err := tele.NewBot(tele.Settings{
		Token:   cfg.Token,
		URL:     strings.TrimSpace(cfg.APIURL),
		Client:  &http.Client{Timeout: timeout},
		Offline: true,
	})
	if err != nil {
		return nil, err
	}
	return &Telegram{bot: b, chat: &tele.Chat{ID: cfg.ChatID}, threadID: cfg.ThreadID}, nil
}

func (t *Telegram) Name() string { return "telegram" }

func (t *Telegram) Send(ctx context.Context, m Message) error {
	text := m.Subject + "\n\n" + m.Body
	for _, chunk := range splitText(text, telegramTextLimit) {
		if err := ctx.Err(); err != nil {
			return err
		}
		_, err := t.bot.Send(t.chat, chunk, &tele.SendOptions{ThreadID: t.threadID, DisableWebPagePreview: true})
		if err != nil {
			return telegramError(err)
		}
	}
	return nil
}

// telegramError marks client-side Bot API failures (bad chat, bad token) as permanent.
func telegramError(err error) error {
	var apiErr *tele.Error
	if errors.As(err, &apiErr) && apiErr.Code >= 400 && apiErr.Code < 500 && apiErr.Code != http.StatusTooManyRequests {
		return Permanent(err)
	}
	return err
}

// splitText cuts s into chunks of at most limit runes, preferring newlines.
func splitText(s string, limit int) []string {
	rs := []rune(s)
	if len(rs) <= limit {
		return []string{s}
	}
	var out []string
	for start := 0; start < len(rs); {
		end := start + limit
		if end >= len(rs) {
			out = append(out, string(rs[start:]))
			break
		}
		for i := end - 1; i > start+limit/3; i-- {
			if rs[i] == '\n' {
				end = i + 1
				break
			}
		}
		out = append(out, strings.TrimRight(string(rs[start:end]), "\n"))
		start = end
	}
	return out
}
