package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/khasanovbi/tretyakov-backend/internal/catalog"
)

func TestFetchReturnsBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>ok</html>"))
	}))
	defer srv.Close()

	f := NewColly(Config{UserAgent: "test-agent", Timeout: time.Second}, zap.NewNop())
	body, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, []byte("<html>ok</html>"), body)
}

func TestFetchNonSuccessStatusIsFetchError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewColly(Config{Timeout: time.Second}, zap.NewNop())
	_, err := f.Fetch(context.Background(), srv.URL)

	var fetchErr *catalog.FetchError
	require.True(t, errors.As(err, &fetchErr))
	require.Equal(t, http.StatusNotFound, fetchErr.StatusCode)
	require.Equal(t, srv.URL, fetchErr.URL)
}

func TestFetchTimeoutIsFetchError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(500 * time.Millisecond)
		_, _ = w.Write([]byte("late"))
	}))
	defer srv.Close()

	f := NewColly(Config{Timeout: 50 * time.Millisecond}, zap.NewNop())
	_, err := f.Fetch(context.Background(), srv.URL)

	var fetchErr *catalog.FetchError
	require.True(t, errors.As(err, &fetchErr))
}

func TestFetchReturnsPromptlyOnCancel(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
		_, _ = w.Write([]byte("late"))
	}))
	defer srv.Close()
	defer close(release)

	// Long request timeout; cancellation must not wait for it.
	f := NewColly(Config{Timeout: time.Minute}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := f.Fetch(ctx, srv.URL)
	elapsed := time.Since(start)

	var fetchErr *catalog.FetchError
	require.True(t, errors.As(err, &fetchErr))
	require.ErrorIs(t, err, context.Canceled)
	require.Less(t, elapsed, 5*time.Second)
}

func TestFetchUnreachableHostIsFetchError(t *testing.T) {
	t.Parallel()

	// Reserved port on localhost with nothing listening.
	f := NewColly(Config{Timeout: time.Second}, zap.NewNop())
	_, err := f.Fetch(context.Background(), "http://127.0.0.1:1")

	var fetchErr *catalog.FetchError
	require.True(t, errors.As(err, &fetchErr))
}

func TestFetchConcurrentCallsAreIndependent(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(r.URL.Path))
	}))
	defer srv.Close()

	f := NewColly(Config{Timeout: time.Second}, zap.NewNop())

	const n = 8
	results := make(chan string, n)
	for i := 0; i < n; i++ {
		go func(i int) {
			body, err := f.Fetch(context.Background(), srv.URL+"/page")
			if err != nil {
				results <- err.Error()
				return
			}
			results <- string(body)
		}(i)
	}
	for i := 0; i < n; i++ {
		require.Equal(t, "/page", <-results)
	}
}
