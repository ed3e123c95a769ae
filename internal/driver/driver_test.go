package driver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rqlitec/rqlitec/internal/rqliteerr"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestDoSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	d := New(2*time.Second, 2*time.Second)
	defer d.Close()
	res, err := d.Do(context.Background(), http.MethodGet, srv.URL, nil, nil)
	require.NoError(t, err)
	require.Equal(t, Success, res.Outcome)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.JSONEq(t, `{"ok":true}`, string(res.Body))
}

func TestDoStreamDeliversBodyInChunks(t *testing.T) {
	payload := make([]byte, 3*bodyChunkSize)
	for i := range payload {
		payload[i] = byte(i % 251)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	d := New(2*time.Second, 2*time.Second)
	defer d.Close()

	var sink writeRecorder
	res, err := d.DoStream(context.Background(), http.MethodGet, srv.URL, nil, &sink)
	require.NoError(t, err)
	require.Equal(t, Success, res.Outcome)
	require.Nil(t, res.Body)
	require.Equal(t, payload, sink.data)
	require.Greater(t, sink.writes, 1, "a body larger than one chunk must arrive across multiple writes")
}

// writeRecorder captures both the bytes written and how many Write calls
// delivered them.
type writeRecorder struct {
	data   []byte
	writes int
}

func (w *writeRecorder) Write(p []byte) (int, error) {
	w.data = append(w.data, p...)
	w.writes++
	return len(p), nil
}

func TestDoRedirectIsNotFollowed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "http://leader.example:4001/db/execute")
		w.WriteHeader(http.StatusMovedPermanently)
	}))
	defer srv.Close()

	d := New(2*time.Second, 2*time.Second)
	defer d.Close()
	res, err := d.Do(context.Background(), http.MethodPost, srv.URL, nil, nil)
	require.NoError(t, err)
	require.Equal(t, Redirect, res.Outcome)
	require.Equal(t, "http://leader.example:4001/db/execute", res.RedirectLocation)
}

func TestDoServerErrorIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	d := New(2*time.Second, 2*time.Second)
	defer d.Close()
	res, err := d.Do(context.Background(), http.MethodGet, srv.URL, nil, nil)
	require.NoError(t, err)
	require.Equal(t, Failure, res.Outcome)
	require.Equal(t, http.StatusInternalServerError, res.StatusCode)
}

func TestDoCancellation(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer func() {
		close(block)
		srv.Close()
	}()

	d := New(2*time.Second, 2*time.Second)
	defer d.Close()
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := d.Do(ctx, http.MethodGet, srv.URL, nil, nil)
	var canceled *rqliteerr.Canceled
	require.ErrorAs(t, err, &canceled)
}

// TestDoHonorsConnectTimeoutBeforeHeadersArrive: a host that never sends so
// much as a status line must be caught by the connect timeout, not the
// (much longer) response timeout.
func TestDoHonorsConnectTimeoutBeforeHeadersArrive(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer func() {
		close(block)
		srv.Close()
	}()

	d := New(30*time.Millisecond, 2*time.Second)
	defer d.Close()

	start := time.Now()
	res, err := d.Do(context.Background(), http.MethodGet, srv.URL, nil, nil)
	elapsed := time.Since(start)

	require.NoError(t, err)
	require.Equal(t, Failure, res.Outcome)
	require.Equal(t, FailureConnectTimeout, res.FailureKind)
	require.Less(t, elapsed, 500*time.Millisecond, "connect timeout should fire long before the 2s response timeout would")
}

// TestDoHonorsResponseTimeoutAfterHeadersArrive: a host that sends headers
// promptly but stalls on the body must be caught by the response timeout,
// armed fresh once headers arrive, not the connect timeout.
func TestDoHonorsResponseTimeoutAfterHeadersArrive(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-block
	}))
	defer func() {
		close(block)
		srv.Close()
	}()

	d := New(2*time.Second, 30*time.Millisecond)
	defer d.Close()

	start := time.Now()
	res, err := d.Do(context.Background(), http.MethodGet, srv.URL, nil, nil)
	elapsed := time.Since(start)

	require.NoError(t, err)
	require.Equal(t, Failure, res.Outcome)
	require.Equal(t, FailureReadTimeout, res.FailureKind)
	require.Less(t, elapsed, 500*time.Millisecond, "response timeout should fire quickly once headers have already arrived")
}
