package notify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jobradar/jobradar/internal/radar"
)

type recordingChannel struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (c *recordingChannel) Notify(context.Context, []radar.Job) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return c.err
}

func sampleJobs() []radar.Job {
	return []radar.Job{
		{Title: "Support Engineer", Company: "Acme & Co", URL: "https://e.com/1", Source: "remoteok", Score: 5, Categories: []string{"customer_support"}},
		{Title: "Care Agent", URL: "https://e.com/2", Source: "weworkremotely"},
	}
}

func TestMultiDeliversToAllChannels(t *testing.T) {
	t.Parallel()

	a := &recordingChannel{}
	b := &recordingChannel{}
	m := NewMulti(zap.NewNop(), a, nil, b)

	require.NoError(t, m.Notify(context.Background(), sampleJobs()))
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 1, b.calls)
}

func TestMultiContinuesPastFailures(t *testing.T) {
	t.Parallel()

	a := &recordingChannel{err: errors.New("telegram down")}
	b := &recordingChannel{}
	m := NewMulti(zap.NewNop(), a, b)

	err := m.Notify(context.Background(), sampleJobs())
	require.Error(t, err)
	assert.Equal(t, 1, b.calls, "later channels still run")
}

func TestMultiSkipsEmptyBatch(t *testing.T) {
	t.Parallel()

	a := &recordingChannel{}
	m := NewMulti(zap.NewNop(), a)
	require.NoError(t, m.Notify(context.Background(), nil))
	assert.Zero(t, a.calls)
}

func TestLogNotifierNeverFails(t *testing.T) {
	t.Parallel()

	l := NewLog(zap.NewNop())
	assert.NoError(t, l.Notify(context.Background(), sampleJobs()))
}

func TestTelegramSendsDigest(t *testing.T) {
	t.Parallel()

	var (
		mu       sync.Mutex
		requests []string
		bodies   []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		mu.Lock()
		requests = append(requests, r.URL.Path)
		bodies = append(bodies, r.PostForm.Get("text"))
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tg := NewTelegram("123:token", "42")
	tg.baseURL = srv.URL

	require.NoError(t, tg.Notify(context.Background(), sampleJobs()))

	require.Len(t, requests, 1)
	assert.Equal(t, "/bot123:token/sendMessage", requests[0])
	assert.Contains(t, bodies[0], "2 new job(s)")
	assert.Contains(t, bodies[0], "<b>Support Engineer</b>")
	assert.Contains(t, bodies[0], "Acme &amp; Co", "HTML special characters escaped")
	assert.Contains(t, bodies[0], "https://e.com/2")
}

func TestTelegramBatchesLongRuns(t *testing.T) {
	t.Parallel()

	var (
		mu    sync.Mutex
		calls int
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tg := NewTelegram("t", "c")
	tg.baseURL = srv.URL

	jobs := make([]radar.Job, 23)
	for i := range jobs {
		jobs[i] = radar.Job{Title: "Job", URL: "https://e.com", Source: "x"}
	}
	require.NoError(t, tg.Notify(context.Background(), jobs))
	assert.Equal(t, 3, calls)
}

func TestTelegramReportsAPIErrors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"ok":false,"description":"chat not found"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	tg := NewTelegram("t", "c")
	tg.baseURL = srv.URL

	err := tg.Notify(context.Background(), sampleJobs())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
	assert.Contains(t, err.Error(), "chat not found")
}
