package assistant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logx "swasthai/pkg/logx"
)

func TestRemoveMarkdownAndFormat(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in, want string
	}{
		{"**Title** Hello\n- drink water\n\nRest", "Hello\n\ndrink water\n\nRest"},
		{"# Heading\n* item [link](x)", "Heading\n\nitem linkx"},
		{"  plain  ", "plain"},
		{"", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, FormatParagraphs(RemoveMarkdown(tc.in)), tc.in)
	}
}

func TestRepairLatin1(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "café", RepairLatin1("cafÃ©"))
	assert.Equal(t, "plain ascii", RepairLatin1("plain ascii"))
	// already proper UTF-8 outside Latin-1 stays as is
	assert.Equal(t, "नमस्ते", RepairLatin1("नमस्ते"))
	// Latin-1 text that is not mojibake stays as is
	assert.Equal(t, "café", RepairLatin1("café"))
}

func TestDetectLanguage(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"What should I eat with diabetes?":      "en",
		"मुझे सिर दर्द है":                      "hi",
		"எனக்கு காய்ச்சல் உள்ளது":              "ta",
		"¿Qué debo comer para la diabetes?":     "es",
		"J'ai mal à la tête, que faire pour ça": "fr",
		"頭が痛いです":                              "ja",
		"У меня болит голова":                   "ru",
		"12345 ???":                             "en",
	}
	for in, want := range cases {
		assert.Equal(t, want, DetectLanguage(in), in)
	}
}

type fakePlatform struct {
	srv      *httptest.Server
	polls    atomic.Int32
	lastBody atomic.Value
}

func newFakePlatform(t *testing.T) *fakePlatform {
	t.Helper()
	f := &fakePlatform{}
	mux := http.NewServeMux()
	mux.HandleFunc("/agents/A1/run", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": f.srv.URL + "/poll/1", "requestId": "r1"})
	})
	mux.HandleFunc("/poll/1", func(w http.ResponseWriter, r *http.Request) {
		if f.polls.Add(1) < 2 {
			_, _ = w.Write([]byte(`{"completed":false,"status":"IN_PROGRESS"}`))
			return
		}
		_, _ = w.Write([]byte(`{"completed":true,"data":{"output":"**Title** Hello\n- drink water\n\nRest"}}`))
	})
	mux.HandleFunc("/models/S1", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.lastBody.Store(body)
		_, _ = w.Write([]byte(`{"completed":true,"status":"SUCCESS","data":"Summary cafÃ©"}`))
	})
	mux.HandleFunc("/models/D1", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"completed":true,"data":[{"name":"Dr A","city":"Pune"}]}`))
	})
	mux.HandleFunc("/models/BAD", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"completed":true,"status":"FAILED","error":"boom"}`))
	})
	mux.HandleFunc("/models/SLOW", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"completed": false, "data": f.srv.URL + "/poll/never"})
	})
	mux.HandleFunc("/poll/never", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"completed":false}`))
	})
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakePlatform) config() Config {
	return Config{
		ModelsURL:      f.srv.URL + "/models",
		AgentsURL:      f.srv.URL + "/agents/",
		APIKey:         "key",
		AgentID:        "A1",
		SummaryModelID: "S1",
		DoctorModelID:  "D1",
		Timeout:        5 * time.Second,
		PollInterval:   10 * time.Millisecond,
	}
}

func TestAskPollsAgentAndSummarizes(t *testing.T) {
	t.Parallel()

	f := newFakePlatform(t)
	c := New(f.config(), logx.Nop())

	ans, err := c.Ask(context.Background(), "What should I eat with diabetes?", "")
	require.NoError(t, err)
	assert.Equal(t, "Hello\n\ndrink water\n\nRest", ans.Response)
	assert.Equal(t, "Summary café", ans.Summary)
	assert.Equal(t, "en", ans.Language)
	assert.GreaterOrEqual(t, f.polls.Load(), int32(2))

	body := f.lastBody.Load().(map[string]any)
	assert.Equal(t, "en", body["language"])
	assert.Equal(t, "What should I eat with diabetes?", body["question"])
	// the summary model receives the raw agent output
	assert.Contains(t, body["response"], "**Title**")
}

func TestAskExplicitLanguage(t *testing.T) {
	t.Parallel()

	f := newFakePlatform(t)
	c := New(f.config(), logx.Nop())
	ans, err := c.Ask(context.Background(), "What should I eat?", "hi")
	require.NoError(t, err)
	assert.Equal(t, "hi", ans.Language)
}

func TestDoctorsReturnsRawData(t *testing.T) {
	t.Parallel()

	f := newFakePlatform(t)
	c := New(f.config(), logx.Nop())
	data, err := c.Doctors(context.Background(), "asthma", "Pune")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"name":"Dr A","city":"Pune"}]`, string(data))
}

func TestPlatformErrors(t *testing.T) {
	t.Parallel()

	f := newFakePlatform(t)

	cfg := f.config()
	cfg.DoctorModelID = "BAD"
	_, err := New(cfg, logx.Nop()).Doctors(context.Background(), "x", "y")
	var pe *PlatformError
	require.ErrorAs(t, err, &pe)
	assert.Contains(t, pe.Message, "boom")

	cfg = f.config()
	cfg.DoctorModelID = "MISSING"
	_, err = New(cfg, logx.Nop()).Doctors(context.Background(), "x", "y")
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, http.StatusNotFound, pe.Status)

	cfg = f.config()
	cfg.APIKey = "wrong"
	_, err = New(cfg, logx.Nop()).Ask(context.Background(), "hello", "en")
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, http.StatusUnauthorized, pe.Status)
}

func TestAsyncRunTimesOut(t *testing.T) {
	t.Parallel()

	f := newFakePlatform(t)
	cfg := f.config()
	cfg.DoctorModelID = "SLOW"
	cfg.Timeout = 200 * time.Millisecond
	_, err := New(cfg, logx.Nop()).Doctors(context.Background(), "x", "y")
	require.ErrorIs(t, err, ErrTimeout)
}

func TestDisabledWithoutKey(t *testing.T) {
	t.Parallel()

	c := New(Config{}, logx.Nop())
	assert.False(t, c.Enabled())
	_, err := c.Ask(context.Background(), "q", "")
	require.ErrorIs(t, err, ErrDisabled)
	_, err = c.Doctors(context.Background(), "a", "b")
	require.ErrorIs(t, err, ErrDisabled)

	c.Apply(Config{APIKey: "k"})
	assert.True(t, c.Enabled())
}
