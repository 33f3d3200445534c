package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"swasthai/internal/reminder"
	logx "swasthai/pkg/logx"
)

const (
	membersFile       = "family_members.json"
	notificationsFile = "notifications.json"
)

// fileStore keeps each collection as one JSON array under a directory.
//
// Files:
//   - <dir>/family_members.json
//   - <dir>/notifications.json
//
// Every operation reads the file and writes replace it atomically (temp file
// plus rename). A missing or empty file reads as an empty collection.
type fileStore struct {
	log   logx.Logger
	newID func() string

	mu        sync.Mutex
	closed    bool
	members   string
	notifPath string
}

func openFile(cfg Config, newID func() string, log logx.Logger) (Store, error) {
	dir := strings.TrimSpace(cfg.Path)
	if dir == "" {
		return nil, errors.New("storage.path is required for file driver")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &fileStore{
		log:       log,
		newID:     newID,
		members:   filepath.Join(dir, membersFile),
		notifPath: filepath.Join(dir, notificationsFile),
	}, nil
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *fileStore) List(ctx context.Context) ([]reminder.Member, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	var out []reminder.Member
	if err := readJSON(s.members, &out); err != nil {
		return nil, err
	}
	return cloneMembers(out), nil
}

func (s *fileStore) Get(ctx context.Context, id string) (reminder.Member, error) {
	all, err := s.List(ctx)
	if err != nil {
		return reminder.Member{}, err
	}
	for _, m := range all {
		if m.ID == id {
			return m, nil
		}
	}
	return reminder.Member{}, ErrNotFound
}

func (s *fileStore) Create(ctx context.Context, m reminder.Member) (reminder.Member, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return reminder.Member{}, ErrClosed
	}
	var all []reminder.Member
	if err := readJSON(s.members, &all); err != nil {
		return reminder.Member{}, err
	}
	m = prepareCreate(m, s.newID)
	for _, cur := range all {
		if cur.ID == m.ID {
			return reminder.Member{}, fmt.Errorf("member %s: %w", m.ID, ErrDuplicate)
		}
	}
	all = append(all, m)
	if err := writeJSON(s.members, all); err != nil {
		return reminder.Member{}, err
	}
	return m, nil
}

func (s *fileStore) Update(ctx context.Context, id string, m reminder.Member) (reminder.Member, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return reminder.Member{}, ErrClosed
	}
	var all []reminder.Member
	if err := readJSON(s.members, &all); err != nil {
		return reminder.Member{}, err
	}
	m.ID = id
	for i := range all {
		if all[i].ID != id {
			continue
		}
		all[i] = m
		if err := writeJSON(s.members, all); err != nil {
			return reminder.Member{}, err
		}
		return m, nil
	}
	return reminder.Member{}, ErrNotFound
}

func (s *fileStore) Delete(ctx context.Context, id string) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	var all []reminder.Member
	if err := readJSON(s.members, &all); err != nil {
		return err
	}
	kept := all[:0]
	for _, m := range all {
		if m.ID != id {
			kept = append(kept, m)
		}
	}
	if len(kept) == len(all) {
		return ErrNotFound
	}
	return writeJSON(s.members, kept)
}

func (s *fileStore) ListNotifications(ctx context.Context) ([]reminder.Notification, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	out := []reminder.Notification{}
	if err := readJSON(s.notifPath, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []reminder.Notification{}
	}
	return out, nil
}

func (s *fileStore) AppendNotification(ctx context.Context, n reminder.Notification) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	var all []reminder.Notification
	if err := readJSON(s.notifPath, &all); err != nil {
		return err
	}
	for _, cur := range all {
		if cur.ID == n.ID {
			return fmt.Errorf("notification %s: %w", n.ID, ErrDuplicate)
		}
	}
	return writeJSON(s.notifPath, append(all, n))
}

func readJSON(path string, v any) error {
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return nil
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(append(b, '\n')); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
