package storage

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"swasthai/internal/reminder"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
	ErrClosed    = errors.New("storage closed")
)

// Config configures storage.
//
// Driver values:
//   - "file": JSON files under Path (family_members.json, notifications.json)
//   - "sqlite": SQLite database file at Path
//   - "badger": Badger directory at Path ("" or ":memory:" keeps it in memory)
//   - "postgres": PostgreSQL at DSN
type Config struct {
	Driver      string
	Path        string
	DSN         string
	BusyTimeout time.Duration // sqlite only; 0 means default
	// IDStrategy picks member ids on create: "timestamp" (default) or "uuid".
	IDStrategy string
}

// Store persists the member roster and the notification log.
//
// Members keep insertion order; Update replaces a record wholesale.
type Store interface {
	List(ctx context.Context) ([]reminder.Member, error)
	Get(ctx context.Context, id string) (reminder.Member, error)
	Create(ctx context.Context, m reminder.Member) (reminder.Member, error)
	Update(ctx context.Context, id string, m reminder.Member) (reminder.Member, error)
	Delete(ctx context.Context, id string) error

	ListNotifications(ctx context.Context) ([]reminder.Notification, error)
	AppendNotification(ctx context.Context, n reminder.Notification) error

	Close() error
}

// IDFunc returns the id generator for strategy.
func IDFunc(strategy string) func() string {
	if strings.EqualFold(strings.TrimSpace(strategy), "uuid") {
		return func() string { return uuid.NewString() }
	}
	// Millisecond timestamp, not collision-proof under concurrent creates.
	return func() string { return strconv.FormatInt(time.Now().UnixMilli(), 10) }
}

// prepareCreate fills the id of a new member.
func prepareCreate(m reminder.Member, newID func() string) reminder.Member {
	m.ID = strings.TrimSpace(m.ID)
	if m.ID == "" {
		m.ID = newID()
	}
	return m
}

func cloneMembers(in []reminder.Member) []reminder.Member {
	if in == nil {
		return []reminder.Member{}
	}
	return append([]reminder.Member(nil), in...)
}
