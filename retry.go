package relay

import (
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryPolicy controls re-attempts beyond the first call.
//
// The first call is the zeroth attempt and is not counted against the
// budget: Max == 2 means up to three transport entries.
type RetryPolicy struct {
	// Max is the retry budget: the number of re-attempts allowed beyond
	// the first. Zero disables retries entirely and suppresses Delay.
	Max int

	// Delay is the fixed wait between attempts. No exponential growth,
	// no jitter. A zero Delay with Max > 0 retries back-to-back.
	Delay time.Duration
}

// DefaultRetryDelay is the inter-attempt delay used when none is
// configured.
const DefaultRetryDelay = 100 * time.Millisecond

// DefaultRetryPolicy returns the library defaults: retries disabled.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Max: 0, Delay: DefaultRetryDelay}
}

// fixedBackOff waits the same interval before every re-attempt.
type fixedBackOff struct {
	interval time.Duration
}

var _ backoff.BackOff = (*fixedBackOff)(nil)

// NextBackOff returns the fixed interval.
func (b *fixedBackOff) NextBackOff() time.Duration { return b.interval }

// Reset is a no-op; there is no state.
func (b *fixedBackOff) Reset() {}

// retryable reports whether the engine should re-attempt after err.
// Only transport timeouts and failures carrying a server-class status
// qualify; client-class statuses, plain transport failures, and decode
// failures are terminal.
//
// Classification is based on what middleware surfaces as a failure, not
// on raw HTTP: a 500 response only triggers a retry if some middleware
// (such as ToError) converts it into an error tagged with that status.
func retryable(err error) bool {
	if IsTimeout(err) {
		return true
	}
	return ErrorStatusCode(err) >= 500
}

// runRetry drives the composed chain under c.Policy. Each failed
// attempt that classifies as retryable is recorded in c.Retries, the
// response view is cleared, and the chain is re-invoked after the fixed
// delay until the budget is spent. The returned error is the last
// attempt's failure.
func runRetry(c *Context, chain func(*Context) error) error {
	tries := c.Policy.Max
	if tries < 0 {
		tries = 0
	}

	op := func() (struct{}, error) {
		if err := chain(c); err != nil {
			if !retryable(err) {
				return struct{}{}, backoff.Permanent(err)
			}
			return struct{}{}, err
		}
		return struct{}{}, nil
	}

	opts := []backoff.RetryOption{
		backoff.WithBackOff(&fixedBackOff{interval: c.Policy.Delay}),
		// The initial attempt counts as a try.
		backoff.WithMaxTries(uint(tries) + 1),
		// Fires only when a re-attempt is actually scheduled, so the
		// final failure is never recorded as a retry.
		backoff.WithNotify(func(err error, _ time.Duration) {
			c.Retries = append(c.Retries, Attempt{
				StatusCode: ErrorStatusCode(err),
				Reason:     err.Error(),
			})
			c.Res = nil
		}),
	}

	_, err := backoff.Retry(c.Context(), op, opts...)
	return err
}
