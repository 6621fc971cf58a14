package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/anisync/internal/shared"
	"golang.org/x/time/rate"
)

const (
	// DefaultRateLimitBackoff is the fixed wait before retrying a 429.
	DefaultRateLimitBackoff = 10 * time.Second
	// DefaultTransientDelay is the wait before retrying a transport failure.
	DefaultTransientDelay = time.Second

	maxAttempts    = 2
	maxBodyInError = 512
)

// RequestFactory builds a fresh request for each attempt; bodies cannot be replayed.
type RequestFactory func(ctx context.Context) (*http.Request, error)

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// RemoteError is a failed outbound call: a non-2xx status, a second 429, or a transport failure after retry.
type RemoteError struct {
	StatusCode int
	Body       []byte
	Attempts   int
	Err        error
}

func (e *RemoteError) Error() string {
	msg := fmt.Sprintf("%v after %d attempt(s)", shared.ErrRemoteFailure, e.Attempts)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(": status %d", e.StatusCode)
	}
	if len(e.Body) > 0 {
		body := e.Body
		if len(body) > maxBodyInError {
			body = body[:maxBodyInError]
		}
		msg += fmt.Sprintf(" - %s", body)
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

// Unwrap exposes [shared.ErrRemoteFailure] and the underlying cause to errors.Is / errors.As.
func (e *RemoteError) Unwrap() []error {
	errs := []error{shared.ErrRemoteFailure}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// IsRateLimited reports whether the call failed because the retry was also rate limited.
func (e *RemoteError) IsRateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// ExecutorOpts configures an [Executor]. Zero values pick the defaults.
type ExecutorOpts struct {
	Client           *http.Client
	Limiter          *rate.Limiter
	RateLimitBackoff time.Duration
	TransientDelay   time.Duration
	Logger           *log.Logger
}

// Executor performs one outbound call, retrying exactly once on HTTP 429 or a transport failure.
//
// There is no exponential backoff and no jitter: the first attempt is followed by at most one sleep and one retry.
type Executor struct {
	client         *http.Client
	limiter        *rate.Limiter
	backoff        time.Duration
	transientDelay time.Duration
	logger         *log.Logger
}

// NewExecutor creates an [Executor].
func NewExecutor(opts ExecutorOpts) *Executor {
	e := &Executor{
		client:         opts.Client,
		limiter:        opts.Limiter,
		backoff:        opts.RateLimitBackoff,
		transientDelay: opts.TransientDelay,
		logger:         opts.Logger,
	}
	if e.client == nil {
		e.client = http.DefaultClient
	}
	if e.backoff <= 0 {
		e.backoff = DefaultRateLimitBackoff
	}
	if e.transientDelay <= 0 {
		e.transientDelay = DefaultTransientDelay
	}
	if e.logger == nil {
		e.logger = shared.NewLogger(io.Discard)
	}
	return e
}

// NewRequestLimiter returns a limiter allowing perMinute requests, or nil when perMinute is 0.
func NewRequestLimiter(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
}

// Do executes the request built by build.
//
// A 2xx response is returned as is. A 429 sleeps for the backoff and retries once; a transport error sleeps
// for the transient delay and retries once. Everything else, and any failure on the retry, is a [*RemoteError].
func (e *Executor) Do(ctx context.Context, build RequestFactory) (*Response, error) {
	for attempt := 1; ; attempt++ {
		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				return nil, &RemoteError{Attempts: attempt - 1, Err: err}
			}
		}

		req, err := build(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		resp, err := e.send(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, &RemoteError{Attempts: attempt, Err: ctx.Err()}
			}
			if attempt >= maxAttempts {
				return nil, &RemoteError{Attempts: attempt, Err: errors.Join(shared.ErrTransientIO, err)}
			}
			e.logger.Warn("transport failure, retrying", "url", req.URL.String(), "delay", e.transientDelay, "error", err)
			if err := shared.SleepContext(ctx, e.transientDelay); err != nil {
				return nil, &RemoteError{Attempts: attempt, Err: err}
			}
			continue
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			if attempt >= maxAttempts {
				return nil, &RemoteError{StatusCode: resp.StatusCode, Body: resp.Body, Attempts: attempt, Err: shared.ErrRateLimited}
			}
			e.logger.Warn("rate limited, waiting before retry", "url", req.URL.String(), "delay", e.backoff)
			if err := shared.SleepContext(ctx, e.backoff); err != nil {
				return nil, &RemoteError{StatusCode: resp.StatusCode, Body: resp.Body, Attempts: attempt, Err: err}
			}
			continue
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			return nil, &RemoteError{StatusCode: resp.StatusCode, Body: resp.Body, Attempts: attempt}
		}

		return resp, nil
	}
}

func (e *Executor) send(req *http.Request) (*Response, error) {
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}, nil
}
