package dispatch

import (
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"
)

const (
	defaultSMTPHost = "smtp.gmail.com"
	defaultSMTPPort = 587
)

// Email sends plain-text mail over SMTP, upgrading with STARTTLS.
type Email struct {
	cfg EmailConfig
}

func NewEmail(cfg EmailConfig) *Email {
	if strings.TrimSpace(cfg.Host) == "" {
		cfg.Host = defaultSMTPHost
	}
	if cfg.Port <= 0 {
		cfg.Port = defaultSMTPPort
	}
	return &Email{cfg: cfg}
}

func (e *Email) Name() string { return "email" }

// Complete reports whether sender, password and recipient are all set.
func (e *Email) Complete() bool {
	return strings.TrimSpace(e.cfg.Sender) != "" &&
		e.cfg.Password != "" &&
		strings.TrimSpace(e.cfg.Recipient) != ""
}

func (e *Email) Send(ctx context.Context, m Message) error {
	if !e.Complete() {
		return Permanent(fmt.Errorf("email: %w", ErrIncomplete))
	}
	addr := net.JoinHostPort(e.cfg.Host, strconv.Itoa(e.cfg.Port))

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
	}

	c, err := smtp.NewClient(conn, e.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return err
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: e.cfg.Host, MinVersion: tls.VersionTLS12}); err != nil {
			return err
		}
	}
	if err := c.Auth(smtp.PlainAuth("", e.cfg.Sender, e.cfg.Password, e.cfg.Host)); err != nil {
		return Permanent(fmt.Errorf("smtp auth: %w", err))
	}
	if err := c.Mail(e.cfg.Sender); err != nil {
		return err
	}
	for _, rcpt := range recipients(e.cfg.Recipient) {
		if err := c.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(composeMail(e.cfg.Sender, e.cfg.Recipient, m)); err != nil {
		_ = w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}

func recipients(s string) []string {
	var out []string
	for _, r := range strings.Split(s, ",") {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}

func composeMail(from, to string, m Message) []byte {
	at := m.At
	if at.IsZero() {
		at = time.Now()
	}
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", m.Subject) + "\r\n")
	b.WriteString("Date: " + at.Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(strings.ReplaceAll(m.Body, "\r\n", "\n"), "\n", "\r\n"))
	return []byte(b.String())
}
