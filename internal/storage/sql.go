package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"swasthai/internal/reminder"
	logx "swasthai/pkg/logx"
)

//go:embed migrations_sqlite.sql migrations_postgres.sql
var migrationsFS embed.FS

// dialect carries the differences between the SQL backends.
type dialect struct {
	name       string
	migrations string
	numbered   bool   // $1 placeholders instead of ?
	docParam   string // placeholder expression for the member document
}

var (
	sqliteDialect   = dialect{name: "sqlite", migrations: "migrations_sqlite.sql", docParam: "?"}
	postgresDialect = dialect{name: "postgres", migrations: "migrations_postgres.sql", numbered: true, docParam: "?::jsonb"}
)

// bind rewrites ? placeholders for dialects that number them.
func (d dialect) bind(q string) string {
	if !d.numbered {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// sqlStore implements Store on database/sql for sqlite and postgres.
// Members are stored as one JSON document per row; seq keeps insertion order.
type sqlStore struct {
	db    *sql.DB
	d     dialect
	log   logx.Logger
	newID func() string
}

func (s *sqlStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile(s.d.migrations)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqlStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqlStore) List(ctx context.Context) ([]reminder.Member, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT doc FROM members ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []reminder.Member{}
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var m reminder.Member
		if err := json.Unmarshal([]byte(doc), &m); err != nil {
			return nil, fmt.Errorf("decode member: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *sqlStore) Get(ctx context.Context, id string) (reminder.Member, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, s.d.bind(`SELECT doc FROM members WHERE id = ?`), id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return reminder.Member{}, ErrNotFound
	}
	if err != nil {
		return reminder.Member{}, err
	}
	var m reminder.Member
	if err := json.Unmarshal([]byte(doc), &m); err != nil {
		return reminder.Member{}, fmt.Errorf("decode member %s: %w", id, err)
	}
	return m, nil
}

func (s *sqlStore) Create(ctx context.Context, m reminder.Member) (reminder.Member, error) {
	m = prepareCreate(m, s.newID)
	doc, err := json.Marshal(m)
	if err != nil {
		return reminder.Member{}, err
	}
	q := `INSERT INTO members(id, doc) VALUES(?, ` + s.d.docParam + `) ON CONFLICT(id) DO NOTHING`
	res, err := s.db.ExecContext(ctx, s.d.bind(q), m.ID, string(doc))
	if err != nil {
		return reminder.Member{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return reminder.Member{}, fmt.Errorf("member %s: %w", m.ID, ErrDuplicate)
	}
	return m, nil
}

func (s *sqlStore) Update(ctx context.Context, id string, m reminder.Member) (reminder.Member, error) {
	m.ID = id
	doc, err := json.Marshal(m)
	if err != nil {
		return reminder.Member{}, err
	}
	q := `UPDATE members SET doc = ` + s.d.docParam + ` WHERE id = ?`
	res, err := s.db.ExecContext(ctx, s.d.bind(q), string(doc), id)
	if err != nil {
		return reminder.Member{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return reminder.Member{}, ErrNotFound
	}
	return m, nil
}

func (s *sqlStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.d.bind(`DELETE FROM members WHERE id = ?`), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *sqlStore) ListNotifications(ctx context.Context) ([]reminder.Notification, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, member_id, member_name, event_title, event_date, days_until, notified_at, status
		 FROM notifications ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []reminder.Notification{}
	for rows.Next() {
		var (
			n      reminder.Notification
			at     string
			status string
		)
		if err := rows.Scan(&n.ID, &n.MemberID, &n.MemberName, &n.EventTitle, &n.EventDate, &n.DaysUntil, &at, &status); err != nil {
			return nil, err
		}
		n.Status = reminder.Status(status)
		if n.NotifiedAt, err = time.Parse(time.RFC3339Nano, at); err != nil {
			return nil, fmt.Errorf("notification %s: bad notified_at: %w", n.ID, err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *sqlStore) AppendNotification(ctx context.Context, n reminder.Notification) error {
	res, err := s.db.ExecContext(ctx, s.d.bind(
		`INSERT INTO notifications(id, member_id, member_name, event_title, event_date, days_until, notified_at, status)
		 VALUES(?,?,?,?,?,?,?,?) ON CONFLICT(id) DO NOTHING`),
		n.ID, n.MemberID, n.MemberName, n.EventTitle, n.EventDate, n.DaysUntil,
		n.NotifiedAt.Format(time.RFC3339Nano), string(n.Status),
	)
	if err != nil {
		return err
	}
	if c, _ := res.RowsAffected(); c == 0 {
		return fmt.Errorf("notification %s: %w", n.ID, ErrDuplicate)
	}
	return nil
}
