package relay

import (
	"context"
	"errors"

	"golang.org/x/time/rate"
)

// RateLimitConfig configures the RateLimit middleware.
type RateLimitConfig struct {
	// RequestsPerSecond is the maximum sustained attempt rate. Zero or
	// negative disables limiting.
	RequestsPerSecond float64

	// Burst allows brief spikes above the rate limit. Values below one
	// are raised to one.
	Burst int

	// WaitOnLimit determines behavior when the limit is hit. True waits
	// for a token (respecting the call's deadline); false fails fast
	// with ErrRateLimited.
	WaitOnLimit bool
}

// DefaultRateLimitConfig returns 100 attempts per second with a burst
// of 10, waiting when the limit is hit.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 100,
		Burst:             10,
		WaitOnLimit:       true,
	}
}

// ErrRateLimited is returned when an attempt is rejected by the
// RateLimit middleware. It carries no status code and is never retried.
var ErrRateLimited = errors.New("rate limit exceeded")

// RateLimit returns middleware that throttles attempts with a token
// bucket. Each attempt of a retried call consumes a token, so retry
// storms are shaped along with first attempts.
func RateLimit(cfg RateLimitConfig) Middleware {
	if cfg.RequestsPerSecond <= 0 {
		return func(_ *Context, next Next) error { return next() }
	}

	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)

	return func(c *Context, next Next) error {
		if cfg.WaitOnLimit {
			if err := limiter.Wait(c.Context()); err != nil {
				if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
					return err
				}
				return ErrRateLimited
			}
		} else if !limiter.Allow() {
			return ErrRateLimited
		}
		return next()
	}
}
