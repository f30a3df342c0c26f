package marketplace

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sellerhub/backend/internal/pkg/errors"
)

func noSleep(ctx context.Context, d time.Duration) error { return nil }

func newTestClient(url string) *Client {
	return New(Options{
		BaseURL: url,
		Token:   "test-token",
		Retry:   RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, NoRetryStatuses: DefaultRetryPolicy().NoRetryStatuses},
		Sleep:   noSleep,
	})
}

func TestClient_RetriesTransientThenSucceeds(t *testing.T) {
	var calls int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt64(&calls, 1)
		if n < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	payload, err := client.Request(context.Background(), http.MethodGet, "/users/me", nil)
	if err != nil {
		t.Fatalf("Request() error = %v", err)
	}
	if string(payload) != `{"ok":true}` {
		t.Errorf("payload = %s", payload)
	}
	if got := atomic.LoadInt64(&calls); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
}

func TestClient_ExhaustsRetries(t *testing.T) {
	var calls int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	_, err := client.Request(context.Background(), http.MethodGet, "/users/me", nil)
	if !errors.IsTransient(err) {
		t.Fatalf("error = %v, want transient", err)
	}
	if got := atomic.LoadInt64(&calls); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
}

func TestClient_RateLimitedFailsImmediately(t *testing.T) {
	var calls int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	_, err := client.Request(context.Background(), http.MethodGet, "/users/me", nil)
	if !errors.IsRateLimited(err) {
		t.Fatalf("error = %v, want rate limited", err)
	}
	if got := atomic.LoadInt64(&calls); got != 1 {
		t.Errorf("calls = %d, want 1 (429 is never retried)", got)
	}
}

func TestClient_UnauthorizedClassifiedAsAuthExpired(t *testing.T) {
	var calls int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	_, err := client.Request(context.Background(), http.MethodGet, "/users/me", nil)
	if !errors.IsAuthExpired(err) {
		t.Fatalf("error = %v, want auth expired", err)
	}
	if got := atomic.LoadInt64(&calls); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
}

func TestClient_NotFoundNotRetried(t *testing.T) {
	var calls int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	_, err := client.Request(context.Background(), http.MethodGet, "/users/me", nil)
	if err == nil {
		t.Fatal("Request() succeeded on 404")
	}
	if errors.IsTransient(err) {
		t.Errorf("404 classified as transient: %v", err)
	}
	if got := atomic.LoadInt64(&calls); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
}

func TestClient_BearerTokenAttached(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	if _, err := client.Request(context.Background(), http.MethodGet, "/users/me", nil); err != nil {
		t.Fatalf("Request() error = %v", err)
	}
	if auth != "Bearer test-token" {
		t.Errorf("Authorization = %q", auth)
	}
}

func TestClient_GetCachedWithinTTL(t *testing.T) {
	var calls int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		w.Write([]byte(`{"n":1}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	ctx := context.Background()

	first, err := client.Request(ctx, http.MethodGet, "/users/me/summary", nil)
	if err != nil {
		t.Fatalf("first Request() error = %v", err)
	}
	second, err := client.Request(ctx, http.MethodGet, "/users/me/summary", nil)
	if err != nil {
		t.Fatalf("second Request() error = %v", err)
	}
	if string(first) != string(second) {
		t.Errorf("cached payload differs: %s vs %s", first, second)
	}
	if got := atomic.LoadInt64(&calls); got != 1 {
		t.Errorf("network calls = %d, want 1 (second served from cache)", got)
	}

	// A different path is a different cache entry
	if _, err := client.Request(ctx, http.MethodGet, "/users/me", nil); err != nil {
		t.Fatalf("Request() error = %v", err)
	}
	if got := atomic.LoadInt64(&calls); got != 2 {
		t.Errorf("network calls = %d, want 2", got)
	}
	if client.CacheSize() != 2 {
		t.Errorf("cache size = %d, want 2", client.CacheSize())
	}
}

func TestClient_CacheExpires(t *testing.T) {
	var calls int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := New(Options{
		BaseURL:  srv.URL,
		Token:    "test-token",
		CacheTTL: 10 * time.Millisecond,
		Sleep:    noSleep,
	})
	ctx := context.Background()

	if _, err := client.Request(ctx, http.MethodGet, "/users/me", nil); err != nil {
		t.Fatalf("Request() error = %v", err)
	}
	time.Sleep(25 * time.Millisecond)
	if _, err := client.Request(ctx, http.MethodGet, "/users/me", nil); err != nil {
		t.Fatalf("Request() error = %v", err)
	}
	if got := atomic.LoadInt64(&calls); got != 2 {
		t.Errorf("network calls = %d, want 2 after TTL expiry", got)
	}
}

func TestClient_MutationClearsCache(t *testing.T) {
	var calls int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	ctx := context.Background()

	if _, err := client.Request(ctx, http.MethodGet, "/users/me/items", nil); err != nil {
		t.Fatalf("GET error = %v", err)
	}
	if client.CacheSize() != 1 {
		t.Fatalf("cache size = %d, want 1", client.CacheSize())
	}

	if _, err := client.Request(ctx, http.MethodPost, "/items", map[string]string{"title": "new"}); err != nil {
		t.Fatalf("POST error = %v", err)
	}
	if client.CacheSize() != 0 {
		t.Errorf("cache size = %d after mutation, want 0", client.CacheSize())
	}

	// Next GET goes back to the network
	if _, err := client.Request(ctx, http.MethodGet, "/users/me/items", nil); err != nil {
		t.Fatalf("GET error = %v", err)
	}
	if got := atomic.LoadInt64(&calls); got != 3 {
		t.Errorf("network calls = %d, want 3", got)
	}
}

func TestClient_FailedMutationKeepsCache(t *testing.T) {
	var calls int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	ctx := context.Background()

	if _, err := client.Request(ctx, http.MethodGet, "/users/me/items", nil); err != nil {
		t.Fatalf("GET error = %v", err)
	}
	if _, err := client.Request(ctx, http.MethodPost, "/items", nil); err == nil {
		t.Fatal("POST succeeded, want 400")
	}
	if client.CacheSize() != 1 {
		t.Errorf("cache size = %d, want 1 (failed mutation must not invalidate)", client.CacheSize())
	}
}

func TestClient_ContextCancelledDuringBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := New(Options{
		BaseURL: srv.URL,
		Token:   "test-token",
		Retry:   RetryPolicy{MaxAttempts: 3, BaseDelay: time.Hour, NoRetryStatuses: DefaultRetryPolicy().NoRetryStatuses},
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := client.Request(ctx, http.MethodGet, "/users/me", nil)
		done <- err
	}()
	cancel()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("Request() succeeded, want cancellation error")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Request() did not return after cancellation")
	}
}

func TestDefaultRetryPolicy(t *testing.T) {
	p := DefaultRetryPolicy()
	if p.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", p.MaxAttempts)
	}
	if p.BaseDelay != time.Second {
		t.Errorf("BaseDelay = %v, want 1s", p.BaseDelay)
	}
	for _, status := range []int{401, 403, 404, 429} {
		if p.retryable(status) {
			t.Errorf("status %d retryable, want blocked", status)
		}
	}
	for _, status := range []int{500, 502, 503} {
		if !p.retryable(status) {
			t.Errorf("status %d not retryable", status)
		}
	}
}
