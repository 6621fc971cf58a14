package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/anisync/internal/shared"
	tu "github.com/desertthunder/anisync/internal/testing"
)

func newTestExecutor(client *http.Client) *Executor {
	return NewExecutor(ExecutorOpts{
		Client:           client,
		RateLimitBackoff: 10 * time.Millisecond,
		TransientDelay:   5 * time.Millisecond,
	})
}

func getFactory(url string) RequestFactory {
	return func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	}
}

func TestExecutor(t *testing.T) {
	t.Run("NewExecutor defaults", func(t *testing.T) {
		e := NewExecutor(ExecutorOpts{})
		if e.backoff != DefaultRateLimitBackoff {
			t.Errorf("expected backoff %v, got %v", DefaultRateLimitBackoff, e.backoff)
		}
		if e.client != http.DefaultClient {
			t.Error("expected http.DefaultClient to be used")
		}
	})

	t.Run("success on first attempt", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.Write([]byte(`{"ok":true}`))
		}))
		defer server.Close()

		resp, err := newTestExecutor(nil).Do(context.Background(), getFactory(server.URL))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if string(resp.Body) != `{"ok":true}` {
			t.Errorf("unexpected body %s", resp.Body)
		}
		if calls.Load() != 1 {
			t.Errorf("expected 1 call, got %d", calls.Load())
		}
	})

	t.Run("retries once after 429", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			w.Write([]byte(`{"ok":true}`))
		}))
		defer server.Close()

		start := time.Now()
		if _, err := newTestExecutor(nil).Do(context.Background(), getFactory(server.URL)); err != nil {
			t.Fatalf("expected success on retry, got %v", err)
		}
		if calls.Load() != 2 {
			t.Errorf("expected 2 calls, got %d", calls.Load())
		}
		if time.Since(start) < 10*time.Millisecond {
			t.Error("expected the backoff to elapse before the retry")
		}
	})

	t.Run("second 429 fails", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte("slow down"))
		}))
		defer server.Close()

		_, err := newTestExecutor(nil).Do(context.Background(), getFactory(server.URL))
		if !errors.Is(err, shared.ErrRemoteFailure) || !errors.Is(err, shared.ErrRateLimited) {
			t.Fatalf("expected remote failure wrapping rate limit, got %v", err)
		}

		var remote *RemoteError
		if !errors.As(err, &remote) {
			t.Fatalf("expected *RemoteError, got %T", err)
		}
		if remote.StatusCode != http.StatusTooManyRequests || remote.Attempts != 2 || string(remote.Body) != "slow down" {
			t.Errorf("unexpected remote error %+v", remote)
		}
		if calls.Load() != 2 {
			t.Errorf("expected exactly 2 calls, got %d", calls.Load())
		}
	})

	t.Run("non-429 errors are not retried", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		_, err := newTestExecutor(nil).Do(context.Background(), getFactory(server.URL))
		var remote *RemoteError
		if !errors.As(err, &remote) || remote.StatusCode != http.StatusInternalServerError {
			t.Fatalf("expected 500 remote error, got %v", err)
		}
		if errors.Is(err, shared.ErrRateLimited) {
			t.Error("500 should not be reported as rate limited")
		}
		if calls.Load() != 1 {
			t.Errorf("expected 1 call, got %d", calls.Load())
		}
	})

	t.Run("transport error retried once", func(t *testing.T) {
		rt := tu.NewMockRoundTripper(nil, errors.New("connection reset"))
		_, err := newTestExecutor(&http.Client{Transport: rt}).Do(context.Background(), getFactory("http://catalog.invalid"))

		if !errors.Is(err, shared.ErrTransientIO) || !errors.Is(err, shared.ErrRemoteFailure) {
			t.Fatalf("expected transient remote failure, got %v", err)
		}
		var remote *RemoteError
		if errors.As(err, &remote) && remote.StatusCode != 0 {
			t.Errorf("expected status 0 for transport failure, got %d", remote.StatusCode)
		}
		if rt.Calls != 2 {
			t.Errorf("expected 2 transport calls, got %d", rt.Calls)
		}
	})

	t.Run("unreadable body counts as transport failure", func(t *testing.T) {
		var calls int
		rt := tu.RoundTripFunc(func(r *http.Request) (*http.Response, error) {
			calls++
			return &http.Response{StatusCode: http.StatusOK, Body: &tu.FCloser{}, Header: http.Header{}, Request: r}, nil
		})
		_, err := newTestExecutor(&http.Client{Transport: rt}).Do(context.Background(), getFactory("http://catalog.invalid"))

		if !errors.Is(err, shared.ErrTransientIO) {
			t.Fatalf("expected transient failure, got %v", err)
		}
		if calls != 2 {
			t.Errorf("expected 2 attempts, got %d", calls)
		}
	})

	t.Run("request is rebuilt per attempt", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusTooManyRequests)
			}
		}))
		defer server.Close()

		var built int
		factory := func(ctx context.Context) (*http.Request, error) {
			built++
			return http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
		}
		if _, err := newTestExecutor(nil).Do(context.Background(), factory); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if built != 2 {
			t.Errorf("expected factory to be called twice, got %d", built)
		}
	})

	t.Run("cancellation aborts backoff", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		e := NewExecutor(ExecutorOpts{RateLimitBackoff: time.Minute})
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		start := time.Now()
		_, err := e.Do(ctx, getFactory(server.URL))
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("expected deadline exceeded, got %v", err)
		}
		if time.Since(start) > 5*time.Second {
			t.Error("backoff was not interrupted by cancellation")
		}
	})

	t.Run("limiter gates attempts", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		defer server.Close()

		e := NewExecutor(ExecutorOpts{Limiter: NewRequestLimiter(1)})
		if _, err := e.Do(context.Background(), getFactory(server.URL)); err != nil {
			t.Fatalf("first call should pass the limiter: %v", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		if _, err := e.Do(ctx, getFactory(server.URL)); err == nil {
			t.Error("second call should be held by the limiter past the deadline")
		}
	})

	t.Run("NewRequestLimiter disabled", func(t *testing.T) {
		if NewRequestLimiter(0) != nil {
			t.Error("expected nil limiter for 0 requests per minute")
		}
	})
}
