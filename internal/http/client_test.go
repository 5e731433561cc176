package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/handiism/multitok/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noSleep(context.Context, time.Duration) error { return nil }

func newTestClient(maxAttempts int) *Client {
	c := NewClient(Options{MaxAttempts: maxAttempts})
	c.httpClient.Transport.(*RetryTransport).Sleep = noSleep
	return c
}

func TestRetryTransport_RecoversAfterTransientFailures(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) <= 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	body, err := newTestClient(10).Get(context.Background(), srv.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.EqualValues(t, 4, hits.Load())
}

func TestRetryTransport_DoesNotRetryClientErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestClient(10).Get(context.Background(), srv.URL, nil)
	require.Error(t, err)
	assert.EqualValues(t, 1, hits.Load())

	var terr *model.TransportError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, http.StatusNotFound, terr.StatusCode)
}

func TestRetryTransport_ExhaustsBudget(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestClient(10).Get(context.Background(), srv.URL, nil)
	require.Error(t, err)
	assert.EqualValues(t, 10, hits.Load())
	assert.True(t, errors.Is(err, model.ErrTransport))
	assert.Equal(t, model.KindTransport, model.Classify(err))

	var terr *model.TransportError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, 10, terr.Attempts)
	assert.Equal(t, http.StatusTooManyRequests, terr.StatusCode)
}

func TestRetryTransport_ReplaysFormBody(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.PostForm.Get("token") != "abc" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte("posted"))
	}))
	defer srv.Close()

	body, err := newTestClient(3).PostForm(context.Background(), srv.URL, nil, url.Values{"token": {"abc"}})
	require.NoError(t, err)
	assert.Equal(t, "posted", string(body))
	assert.EqualValues(t, 2, hits.Load())
}

func TestRetryTransport_RetriesConnectionErrors(t *testing.T) {
	var calls int
	rt := &RetryTransport{
		MaxAttempts: 3,
		Sleep:       noSleep,
		Base: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			calls++
			return nil, errors.New("connection reset by peer")
		}),
	}

	req := httptest.NewRequest(http.MethodGet, "http://mirror.invalid/", nil)
	_, err := rt.RoundTrip(req)
	require.Error(t, err)
	assert.Equal(t, 3, calls)

	var terr *model.TransportError
	require.True(t, errors.As(err, &terr))
	assert.Zero(t, terr.StatusCode)
}

func TestRetryTransport_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	rt := &RetryTransport{
		MaxAttempts: 10,
		Sleep: func(ctx context.Context, d time.Duration) error {
			cancel()
			return ctx.Err()
		},
		Base: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			return nil, errors.New("dial tcp: connection refused")
		}),
	}

	req := httptest.NewRequest(http.MethodGet, "http://mirror.invalid/", nil).WithContext(ctx)
	_, err := rt.RoundTrip(req)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetryTransport_Backoff(t *testing.T) {
	rt := &RetryTransport{BackoffFactor: 1}
	assert.Equal(t, 1*time.Second, rt.backoff(1))
	assert.Equal(t, 2*time.Second, rt.backoff(2))
	assert.Equal(t, 8*time.Second, rt.backoff(4))
	assert.Equal(t, maxBackoff, rt.backoff(9))

	assert.Zero(t, (&RetryTransport{}).backoff(3))
}

func TestClient_SetsUserAgent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(r.UserAgent()))
	}))
	defer srv.Close()

	c := newTestClient(1)
	ua, err := c.GetString(context.Background(), srv.URL, nil)
	require.NoError(t, err)
	assert.Contains(t, desktopUserAgents, ua)

	ua, err = c.GetString(context.Background(), srv.URL, http.Header{"User-Agent": {"custom"}})
	require.NoError(t, err)
	assert.Equal(t, "custom", ua)
}

func TestClient_Resolve(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/short", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/@alice/video/7301", http.StatusFound)
	})
	mux.HandleFunc("/@alice/video/7301", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("page"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	final, err := newTestClient(1).Resolve(context.Background(), srv.URL+"/short", nil)
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/@alice/video/7301", final)
}

func TestClient_SessionKeepsCookies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			http.SetCookie(w, &http.Cookie{Name: "session", Value: "s1"})
			return
		}
		c, err := r.Cookie("session")
		if err != nil {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Write([]byte(c.Value))
	}))
	defer srv.Close()

	sess := newTestClient(1).Session()
	_, err := sess.Get(context.Background(), srv.URL+"/", nil)
	require.NoError(t, err)

	got, err := sess.GetString(context.Background(), srv.URL+"/next", nil)
	require.NoError(t, err)
	assert.Equal(t, "s1", got)
}

func TestProgressWriter(t *testing.T) {
	var calls []int64
	var sink discard
	pw := &ProgressWriter{Writer: &sink, Total: 6, OnUpdate: func(written, total int64) {
		calls = append(calls, written)
		assert.EqualValues(t, 6, total)
	}}

	pw.Write([]byte("abc"))
	pw.Write([]byte("def"))
	assert.Equal(t, []int64{3, 6}, calls)
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }
