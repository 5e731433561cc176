package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/handiism/multitok/internal/model"
)

const (
	// DefaultMaxAttempts is the number of attempts made per request.
	DefaultMaxAttempts = 10

	// DefaultBackoffFactor is the base of the exponential backoff in seconds.
	DefaultBackoffFactor = 1.0

	maxBackoff = 120 * time.Second
)

// retryStatuses are the transient status codes worth another attempt.
var retryStatuses = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// IsRetryableStatus reports whether a response status triggers a retry.
func IsRetryableStatus(code int) bool {
	return retryStatuses[code]
}

// RetryTransport is an http.RoundTripper that retries transient failures.
//
// A request is attempted at most MaxAttempts times. Between attempts it
// sleeps BackoffFactor * 2^(attempt-1) seconds. Responses with a status
// outside the retry set, including 4xx answers a mirror uses to say a post
// is gone, are returned on the first attempt.
type RetryTransport struct {
	// Base performs the actual requests. Defaults to http.DefaultTransport.
	Base http.RoundTripper

	// MaxAttempts is the total attempt budget. Values below 1 mean
	// DefaultMaxAttempts.
	MaxAttempts int

	// BackoffFactor scales the exponential backoff. Zero disables waiting.
	BackoffFactor float64

	// Sleep waits between attempts. Defaults to a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error

	// Logger receives one debug record per retry. May be nil.
	Logger *slog.Logger
}

// RoundTrip implements http.RoundTripper.
func (t *RetryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	maxAttempts := t.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}

	var (
		lastErr    error
		lastStatus int
	)

	for attempt := 1; ; attempt++ {
		r, err := rewind(req, attempt)
		if err != nil {
			return nil, err
		}

		resp, err := t.base().RoundTrip(r)
		if err == nil && !IsRetryableStatus(resp.StatusCode) {
			return resp, nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			if resp != nil {
				resp.Body.Close()
			}
			return nil, ctxErr
		}

		if err != nil {
			lastErr, lastStatus = err, 0
		} else {
			lastErr, lastStatus = nil, resp.StatusCode
			// Drain so the connection can be reused
			io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
			resp.Body.Close()
		}

		if attempt >= maxAttempts {
			return nil, &model.TransportError{
				URL:        req.URL.String(),
				Attempts:   attempt,
				StatusCode: lastStatus,
				Err:        lastErr,
			}
		}

		if !canRewind(req) {
			return nil, &model.TransportError{
				URL:        req.URL.String(),
				Attempts:   attempt,
				StatusCode: lastStatus,
				Err:        errors.Join(lastErr, errors.New("request body cannot be replayed")),
			}
		}

		wait := t.backoff(attempt)
		if t.Logger != nil {
			t.Logger.Debug("Retrying request",
				slog.String("url", req.URL.Redacted()),
				slog.Int("attempt", attempt),
				slog.Int("status", lastStatus),
				slog.Duration("wait", wait),
				slog.Any("error", lastErr))
		}

		if err := t.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
}

func (t *RetryTransport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *RetryTransport) backoff(attempt int) time.Duration {
	if t.BackoffFactor <= 0 {
		return 0
	}
	seconds := t.BackoffFactor * math.Pow(2, float64(attempt-1))
	d := time.Duration(seconds * float64(time.Second))
	if d > maxBackoff || d < 0 {
		return maxBackoff
	}
	return d
}

func (t *RetryTransport) sleep(ctx context.Context, d time.Duration) error {
	if t.Sleep != nil {
		return t.Sleep(ctx, d)
	}
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func canRewind(req *http.Request) bool {
	return req.Body == nil || req.Body == http.NoBody || req.GetBody != nil
}

// rewind returns the request to send for the given attempt. The first
// attempt uses the original; later ones get a fresh body.
func rewind(req *http.Request, attempt int) (*http.Request, error) {
	if attempt == 1 || req.Body == nil || req.Body == http.NoBody {
		return req, nil
	}

	body, err := req.GetBody()
	if err != nil {
		return nil, err
	}
	r := req.Clone(req.Context())
	r.Body = body
	return r, nil
}
