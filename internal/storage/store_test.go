package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swasthai/internal/reminder"
	logx "swasthai/pkg/logx"
)

func openers(t *testing.T) map[string]func(t *testing.T) Store {
	t.Helper()
	m := map[string]func(t *testing.T) Store{
		"file": func(t *testing.T) Store {
			return mustOpen(t, Config{Driver: "file", Path: t.TempDir()})
		},
		"sqlite": func(t *testing.T) Store {
			return mustOpen(t, Config{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "health.db"), BusyTimeout: time.Second})
		},
		"badger": func(t *testing.T) Store {
			return mustOpen(t, Config{Driver: "badger", Path: ":memory:"})
		},
	}
	if dsn := os.Getenv("SWASTHAI_TEST_POSTGRES_DSN"); dsn != "" {
		m["postgres"] = func(t *testing.T) Store {
			st := mustOpen(t, Config{Driver: "postgres", DSN: dsn})
			db := st.(*sqlStore).db
			_, err := db.Exec(`TRUNCATE members, notifications`)
			require.NoError(t, err)
			return st
		}
	}
	return m
}

func mustOpen(t *testing.T, cfg Config) Store {
	t.Helper()
	st, err := Open(cfg, logx.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestStoreConformance(t *testing.T) {
	t.Parallel()

	for name, open := range openers(t) {
		name, open := name, open
		t.Run(name, func(t *testing.T) {
			t.Run("members", func(t *testing.T) { testMembers(t, open(t)) })
			t.Run("notifications", func(t *testing.T) { testNotifications(t, open(t)) })
		})
	}
}

func testMembers(t *testing.T, st Store) {
	ctx := context.Background()

	list, err := st.List(ctx)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)

	a, err := st.Create(ctx, reminder.Member{
		ID:             "a",
		Name:           "Asha",
		Allergies:      reminder.List{"Peanuts"},
		UpcomingEvents: []reminder.Event{{Title: "Checkup", Date: "2024-06-10"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "a", a.ID)

	b, err := st.Create(ctx, reminder.Member{Name: "Ravi"})
	require.NoError(t, err)
	assert.NotEmpty(t, b.ID)

	_, err = st.Create(ctx, reminder.Member{ID: "a", Name: "Again"})
	assert.ErrorIs(t, err, ErrDuplicate)

	list, err = st.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, []string{"a", b.ID}, []string{list[0].ID, list[1].ID})
	assert.Equal(t, reminder.List{"Peanuts"}, list[0].Allergies)
	assert.Equal(t, "2024-06-10", list[0].UpcomingEvents[0].Date)

	// Update replaces wholesale and the path id wins.
	up, err := st.Update(ctx, "a", reminder.Member{ID: "zzz", Name: "Asha K"})
	require.NoError(t, err)
	assert.Equal(t, "a", up.ID)
	got, err := st.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "Asha K", got.Name)
	assert.Empty(t, got.UpcomingEvents)

	list, err = st.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", list[0].ID, "update keeps position")

	_, err = st.Update(ctx, "missing", reminder.Member{Name: "X"})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = st.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, st.Delete(ctx, "a"))
	assert.ErrorIs(t, st.Delete(ctx, "a"), ErrNotFound)
	list, err = st.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, b.ID, list[0].ID)
}

func testNotifications(t *testing.T, st Store) {
	ctx := context.Background()

	list, err := st.ListNotifications(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	at := time.Date(2024, 6, 5, 8, 0, 0, 0, time.UTC)
	first := reminder.Notification{
		ID: reminder.Key("1", "Checkup", "2024-06-10"), MemberID: "1", MemberName: "Asha",
		EventTitle: "Checkup", EventDate: "2024-06-10", DaysUntil: 5, NotifiedAt: at, Status: reminder.StatusSent,
	}
	second := first
	second.ID = reminder.Key("1", "Dentist", "2024-06-06")
	second.EventTitle, second.EventDate, second.DaysUntil, second.Status = "Dentist", "2024-06-06", 1, reminder.StatusPending

	require.NoError(t, st.AppendNotification(ctx, first))
	require.NoError(t, st.AppendNotification(ctx, second))
	assert.ErrorIs(t, st.AppendNotification(ctx, first), ErrDuplicate)

	list, err = st.ListNotifications(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)
	assert.True(t, at.Equal(list[0].NotifiedAt))
	assert.Equal(t, reminder.StatusPending, list[1].Status)
	assert.Equal(t, 1, list[1].DaysUntil)
}

func TestOpenUnknownDriver(t *testing.T) {
	t.Parallel()

	_, err := Open(Config{Driver: "mongo"}, logx.Nop())
	require.Error(t, err)
}

func TestFileStoreReadsLegacyFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	// Allergies stored as a comma string; notification timestamps without zone.
	members := `[{"id":"1700000000000","name":"Asha","relation":"Mother","allergies":"Dust, Pollen","upcomingEvents":[{"title":"Checkup","date":"2024-06-10"}]}]`
	notifs := `[{"id":"1700000000000_Checkup_2024-06-10","memberId":"1700000000000","memberName":"Asha","eventTitle":"Checkup","eventDate":"2024-06-10","daysUntil":5,"notifiedAt":"2024-06-05T08:00:00.123456","status":"sent"}]`
	require.NoError(t, os.WriteFile(filepath.Join(dir, membersFile), []byte(members), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, notificationsFile), []byte(notifs), 0o600))

	st := mustOpen(t, Config{Driver: "file", Path: dir})
	list, err := st.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, reminder.List{"Dust", "Pollen"}, list[0].Allergies)

	ns, err := st.ListNotifications(context.Background())
	require.NoError(t, err)
	require.Len(t, ns, 1)
	assert.Equal(t, time.Date(2024, 6, 5, 8, 0, 0, 123456000, time.UTC), ns[0].NotifiedAt)
}

func TestIDFunc(t *testing.T) {
	t.Parallel()

	assert.Len(t, IDFunc("uuid")(), 36)
	assert.Regexp(t, `^\d{13}$`, IDFunc("")())
}
