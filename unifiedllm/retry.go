package unifiedllm

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// RetryPolicy describes exponential backoff between completion attempts.
type RetryPolicy struct {
	// MaxRetries counts attempts after the first one.
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64
	// Jitter scales each delay by a random factor in [0.5, 1.5).
	Jitter  bool
	OnRetry func(err error, attempt int, delay time.Duration)
}

// DefaultRetryPolicy allows two retries, starting at one second and doubling.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 2,
		BaseDelay:  time.Second,
		MaxDelay:   time.Minute,
		Multiplier: 2,
		Jitter:     true,
	}
}

// Delay returns the wait before retry n, counting from zero.
func (p RetryPolicy) Delay(n int) time.Duration {
	d := float64(p.BaseDelay)
	for i := 0; i < n; i++ {
		d *= p.Multiplier
		if p.MaxDelay > 0 && d >= float64(p.MaxDelay) {
			break
		}
	}
	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		d = float64(p.MaxDelay)
	}
	if p.Jitter {
		d *= 0.5 + rand.Float64()
	}
	return time.Duration(d)
}

// wait picks the delay for retry n given the failure, and reports false when
// the server asked for longer than MaxDelay.
func (p RetryPolicy) wait(n int, err error) (time.Duration, bool) {
	var e *Error
	if errors.As(err, &e) && e.Kind == KindRateLimit && e.RetryAfter > 0 {
		if p.MaxDelay > 0 && e.RetryAfter > p.MaxDelay {
			return 0, false
		}
		return e.RetryAfter, true
	}
	return p.Delay(n), true
}

// Retry calls fn until it succeeds, returns a permanent error, or the policy
// runs out of retries.
func Retry[T any](ctx context.Context, p RetryPolicy, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	for n := 0; ; n++ {
		out, err := fn(ctx)
		if err == nil {
			return out, nil
		}
		if n >= p.MaxRetries || !IsRetryable(err) {
			return zero, err
		}
		delay, ok := p.wait(n, err)
		if !ok {
			return zero, err
		}
		if p.OnRetry != nil {
			p.OnRetry(err, n+1, delay)
		}
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return zero, newError(KindAborted, "cancelled while waiting to retry", ctx.Err())
		case <-t.C:
		}
	}
}

// RetryMiddleware wraps each completion call in Retry.
func RetryMiddleware(p RetryPolicy) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, req Request) (*Response, error) {
			return Retry(ctx, p, func(ctx context.Context) (*Response, error) {
				return next(ctx, req)
			})
		}
	}
}
