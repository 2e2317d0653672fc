package relay

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimit(t *testing.T) {
	t.Run("given fail-fast and an empty bucket, then attempts are rejected", func(t *testing.T) {
		transport := NewMockTransport()
		client := NewClientBuilder().
			Transport(transport).
			Use(RateLimit(RateLimitConfig{
				RequestsPerSecond: 0.5,
				Burst:             1,
				WaitOnLimit:       false,
			})).
			Build()

		_, err := client.Get("http://example.test/").Send(context.Background())
		require.NoError(t, err)

		_, err = client.Get("http://example.test/").Send(context.Background())
		assert.ErrorIs(t, err, ErrRateLimited)
		assert.Equal(t, 1, transport.Calls())
	})

	t.Run("given wait mode, then attempts queue for a token", func(t *testing.T) {
		transport := NewMockTransport()
		client := NewClientBuilder().
			Transport(transport).
			Use(RateLimit(RateLimitConfig{
				RequestsPerSecond: 50,
				Burst:             1,
				WaitOnLimit:       true,
			})).
			Build()

		start := time.Now()
		for i := 0; i < 3; i++ {
			_, err := client.Get("http://example.test/").Send(context.Background())
			require.NoError(t, err)
		}

		// Two of the three attempts had to wait ~20ms each.
		assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
		assert.Equal(t, 3, transport.Calls())
	})

	t.Run("given wait mode and a hopeless deadline, then the attempt is rejected", func(t *testing.T) {
		client := NewClientBuilder().
			Transport(NewMockTransport()).
			Use(RateLimit(RateLimitConfig{
				RequestsPerSecond: 0.001,
				Burst:             1,
				WaitOnLimit:       true,
			})).
			Build()

		// Drain the single burst token.
		_, err := client.Get("http://example.test/").Send(context.Background())
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		_, err = client.Get("http://example.test/").Send(ctx)

		// The limiter reports that the wait would exceed the deadline.
		assert.ErrorIs(t, err, ErrRateLimited)
	})

	t.Run("given a zero rate, then limiting is disabled", func(t *testing.T) {
		transport := NewMockTransport()
		client := NewClientBuilder().
			Transport(transport).
			Use(RateLimit(RateLimitConfig{RequestsPerSecond: 0})).
			Build()

		for i := 0; i < 5; i++ {
			_, err := client.Get("http://example.test/").Send(context.Background())
			require.NoError(t, err)
		}
		assert.Equal(t, 5, transport.Calls())
	})
}

func TestDefaultRateLimitConfig(t *testing.T) {
	cfg := DefaultRateLimitConfig()

	assert.Equal(t, float64(100), cfg.RequestsPerSecond)
	assert.Equal(t, 10, cfg.Burst)
	assert.True(t, cfg.WaitOnLimit)
}
