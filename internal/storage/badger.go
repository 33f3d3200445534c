package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"swasthai/internal/reminder"
	logx "swasthai/pkg/logx"
)

const (
	memberPrefix       = "member:"
	notificationPrefix = "notification:"
	seqKey             = "meta:seq"
)

// badgerStore keeps members and notifications under key prefixes.
// Values are wrapped with a sequence number so listings keep insertion order.
type badgerStore struct {
	db  *badger.DB
	seq *badger.Sequence
	log logx.Logger

	newID func() string
}

type badgerMember struct {
	Seq    uint64          `json:"seq"`
	Member reminder.Member `json:"member"`
}

type badgerNotification struct {
	Seq          uint64                `json:"seq"`
	Notification reminder.Notification `json:"notification"`
}

func openBadger(cfg Config, newID func() string, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)

	var opts badger.Options
	if path == "" || path == ":memory:" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, fmt.Errorf("create badger dir: %w", err)
		}
		opts = badger.DefaultOptions(path)
	}
	opts = opts.WithLoggingLevel(badger.ERROR)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	seq, err := db.GetSequence([]byte(seqKey), 64)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &badgerStore{db: db, seq: seq, log: log, newID: newID}, nil
}

func (s *badgerStore) Close() error {
	if s.seq != nil {
		_ = s.seq.Release()
	}
	return s.db.Close()
}

func (s *badgerStore) List(ctx context.Context) ([]reminder.Member, error) {
	_ = ctx
	var recs []badgerMember
	err := s.scan(memberPrefix, func(val []byte) error {
		var r badgerMember
		if err := json.Unmarshal(val, &r); err != nil {
			return err
		}
		recs = append(recs, r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].Seq < recs[j].Seq })
	out := make([]reminder.Member, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.Member)
	}
	return out, nil
}

func (s *badgerStore) Get(ctx context.Context, id string) (reminder.Member, error) {
	_ = ctx
	var r badgerMember
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, memberPrefix+id, &r)
	})
	return r.Member, err
}

func (s *badgerStore) Create(ctx context.Context, m reminder.Member) (reminder.Member, error) {
	_ = ctx
	m = prepareCreate(m, s.newID)
	n, err := s.seq.Next()
	if err != nil {
		return reminder.Member{}, err
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		key := []byte(memberPrefix + m.ID)
		if _, err := txn.Get(key); err == nil {
			return fmt.Errorf("member %s: %w", m.ID, ErrDuplicate)
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return setJSON(txn, key, badgerMember{Seq: n, Member: m})
	})
	if err != nil {
		return reminder.Member{}, err
	}
	return m, nil
}

func (s *badgerStore) Update(ctx context.Context, id string, m reminder.Member) (reminder.Member, error) {
	_ = ctx
	m.ID = id
	err := s.db.Update(func(txn *badger.Txn) error {
		var cur badgerMember
		if err := getJSON(txn, memberPrefix+id, &cur); err != nil {
			return err
		}
		return setJSON(txn, []byte(memberPrefix+id), badgerMember{Seq: cur.Seq, Member: m})
	})
	if err != nil {
		return reminder.Member{}, err
	}
	return m, nil
}

func (s *badgerStore) Delete(ctx context.Context, id string) error {
	_ = ctx
	return s.db.Update(func(txn *badger.Txn) error {
		key := []byte(memberPrefix + id)
		if _, err := txn.Get(key); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNotFound
			}
			return err
		}
		return txn.Delete(key)
	})
}

func (s *badgerStore) ListNotifications(ctx context.Context) ([]reminder.Notification, error) {
	_ = ctx
	var recs []badgerNotification
	err := s.scan(notificationPrefix, func(val []byte) error {
		var r badgerNotification
		if err := json.Unmarshal(val, &r); err != nil {
			return err
		}
		recs = append(recs, r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].Seq < recs[j].Seq })
	out := make([]reminder.Notification, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.Notification)
	}
	return out, nil
}

func (s *badgerStore) AppendNotification(ctx context.Context, n reminder.Notification) error {
	_ = ctx
	seq, err := s.seq.Next()
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		key := []byte(notificationPrefix + n.ID)
		if _, err := txn.Get(key); err == nil {
			return fmt.Errorf("notification %s: %w", n.ID, ErrDuplicate)
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return setJSON(txn, key, badgerNotification{Seq: seq, Notification: n})
	})
}

func (s *badgerStore) scan(prefix string, fn func(val []byte) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchSize = 100
		it := txn.NewIterator(opts)
		defer it.Close()

		p := []byte(prefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			if err := it.Item().Value(fn); err != nil {
				return err
			}
		}
		return nil
	})
}

func getJSON(txn *badger.Txn, key string, v any) error {
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error { return json.Unmarshal(val, v) })
}

func setJSON(txn *badger.Txn, key []byte, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return txn.Set(key, b)
}
