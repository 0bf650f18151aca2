package unifiedllm

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimitMiddleware holds each call until limiter admits it. A nil
// limiter passes calls straight through.
func RateLimitMiddleware(limiter *rate.Limiter) Middleware {
	return func(next Handler) Handler {
		if limiter == nil {
			return next
		}
		return func(ctx context.Context, req Request) (*Response, error) {
			if err := limiter.Wait(ctx); err != nil {
				return nil, newError(KindAborted, "rate limit wait aborted", err)
			}
			return next(ctx, req)
		}
	}
}

// NewRateLimiter returns a token bucket refilling rpm tokens per minute, or
// nil when rpm is not positive.
func NewRateLimiter(rpm, burst int) *rate.Limiter {
	if rpm <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(float64(rpm)/60), max(burst, 1))
}
