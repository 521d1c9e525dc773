package tmdb

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/mmcdole/marquee/internal/domain"
)

const (
	// defaultBaseDelay is the starting backoff interval (before jitter).
	defaultBaseDelay = 500 * time.Millisecond

	// defaultMaxDelay caps the backoff interval.
	defaultMaxDelay = 5 * time.Second
)

// retryPolicy bounds how a request is retried
type retryPolicy struct {
	attempts  uint // total tries, at least 1
	baseDelay time.Duration
	maxDelay  time.Duration
}

// statusError is a non-2xx response
type statusError struct {
	Code    int
	Message string
}

func (e *statusError) Error() string {
	if e.Message != "" {
		return "unexpected status code: " + strconv.Itoa(e.Code) + ": " + e.Message
	}
	return "unexpected status code: " + strconv.Itoa(e.Code)
}

// retryable reports whether a failed status is worth another try
func (e *statusError) retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// withRetry runs op with exponential backoff and jitter. Only transient
// failures (network errors, 429 and 5xx) are retried.
func withRetry[T any](ctx context.Context, p retryPolicy, logger *slog.Logger, op func() (T, error)) (T, error) {
	attempts := p.attempts
	if attempts == 0 {
		attempts = 1
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.baseDelay
	b.MaxInterval = p.maxDelay

	return backoff.Retry(ctx, func() (T, error) {
		v, err := op()
		if err == nil {
			return v, nil
		}
		if ctx.Err() != nil || errors.Is(err, domain.ErrAuthFailed) {
			return v, backoff.Permanent(err)
		}

		var se *statusError
		if errors.As(err, &se) && !se.retryable() {
			return v, backoff.Permanent(err)
		}
		return v, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(attempts),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.Warn("tmdb request failed, retrying", "error", err, "in", next)
		}),
	)
}
