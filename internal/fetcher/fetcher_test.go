package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

// withNoSleep swaps out the package's sleep hook for one that records the
// requested delay instead of blocking, and returns a func reporting the
// running total so callers can assert on it (spec.md §8's retry-exhaustion
// law pins the total backoff, not just the attempt count).
func withNoSleep(t *testing.T) func() time.Duration {
	t.Helper()
	orig := sleep
	var total time.Duration
	sleep = func(d time.Duration) {
		total += d
	}
	t.Cleanup(func() {
		sleep = orig
	})
	return func() time.Duration { return total }
}

func TestFetch_SuccessOnFirstAttempt(t *testing.T) {
	withNoSleep(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("hello"))
	}))
	defer srv.Close()

	c := NewClient(MaxAttempts)
	res, err := c.Fetch(context.Background(), srv.URL, "", map[string]string{"User-Agent": "x"}, time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Body != "hello" {
		t.Errorf("body = %q, want hello", res.Body)
	}
	if res.Status != 200 {
		t.Errorf("status = %d, want 200", res.Status)
	}
}

func TestFetch_RetriesOnRetryableStatusThenSucceeds(t *testing.T) {
	withNoSleep(t)
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := NewClient(MaxAttempts)
	res, err := c.Fetch(context.Background(), srv.URL, "", nil, time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Body != "ok" {
		t.Errorf("body = %q, want ok", res.Body)
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestFetch_ExhaustsRetriesAndFails(t *testing.T) {
	totalSleep := withNoSleep(t)
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(MaxAttempts)
	_, err := c.Fetch(context.Background(), srv.URL, "", nil, time.Second)
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if atomic.LoadInt32(&calls) != MaxAttempts {
		t.Errorf("calls = %d, want %d", calls, MaxAttempts)
	}
	// spec.md §8: 0.5+1.0+1.5+2.0+2.5 = 7.5s of sleep across all 5 attempts.
	if want := 7500 * time.Millisecond; totalSleep() != want {
		t.Errorf("total sleep = %v, want %v", totalSleep(), want)
	}
}

func TestFetch_RetryLimitOverridesDefault(t *testing.T) {
	totalSleep := withNoSleep(t)
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(2)
	_, err := c.Fetch(context.Background(), srv.URL, "", nil, time.Second)
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Errorf("calls = %d, want 2 (RETRY_LIMIT overrides MaxAttempts)", calls)
	}
	// 0.5s after attempt 1 plus 1.0s after attempt 2.
	if want := 1500 * time.Millisecond; totalSleep() != want {
		t.Errorf("total sleep = %v, want %v", totalSleep(), want)
	}
}

func TestFetch_NonPositiveRetryLimitFallsBackToDefault(t *testing.T) {
	withNoSleep(t)
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(0)
	_, err := c.Fetch(context.Background(), srv.URL, "", nil, time.Second)
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if atomic.LoadInt32(&calls) != MaxAttempts {
		t.Errorf("calls = %d, want %d (fallback to MaxAttempts)", calls, MaxAttempts)
	}
}

func TestFetch_PermanentStatusFailsImmediately(t *testing.T) {
	withNoSleep(t)
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(MaxAttempts)
	_, err := c.Fetch(context.Background(), srv.URL, "", nil, time.Second)
	if err == nil {
		t.Fatal("expected error for 404")
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("calls = %d, want 1 (no retry on permanent 4xx)", calls)
	}
}

func TestFetch_SendsProvidedHeaders(t *testing.T) {
	withNoSleep(t)
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := NewClient(MaxAttempts)
	_, err := c.Fetch(context.Background(), srv.URL, "", map[string]string{"User-Agent": "test-agent/1.0"}, time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotUA != "test-agent/1.0" {
		t.Errorf("User-Agent = %q, want test-agent/1.0", gotUA)
	}
}
