package relay

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetProperty(t *testing.T) {
	t.Run("given the opts path, then the whole bag is replaced", func(t *testing.T) {
		transport := NewMockTransport()
		client := NewClientBuilder().
			Transport(transport).
			Use(SetProperty(map[string]any{"time": false, "verbose": true}, "opts")).
			Build()

		c, err := client.Get("http://example.test/").Send(context.Background())

		require.NoError(t, err)
		assert.Equal(t, map[string]any{"time": false, "verbose": true}, c.Opts)
	})

	t.Run("given a nested opts path, then the key is set in place", func(t *testing.T) {
		transport := NewMockTransport()
		client := NewClientBuilder().
			Transport(transport).
			Use(SetProperty(false, "opts.time")).
			Build()

		c, err := client.Get("http://example.test/").Send(context.Background())

		require.NoError(t, err)
		assert.Equal(t, false, c.Opts["time"])
		assert.False(t, c.TimeEnabled())
		// Disabled capture keeps the transport from recording Elapsed.
		assert.Equal(t, time.Duration(0), c.Res.Elapsed)
	})

	t.Run("given a missing intermediate, then nested maps are created", func(t *testing.T) {
		transport := NewMockTransport()
		client := NewClientBuilder().
			Transport(transport).
			Use(SetProperty(300, "opts.cache.ttl")).
			Build()

		c, err := client.Get("http://example.test/").Send(context.Background())

		require.NoError(t, err)
		cache, ok := c.Opts["cache"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, 300, cache["ttl"])
	})

	t.Run("given a request field path, then the struct field is set", func(t *testing.T) {
		transport := NewMockTransport()
		client := NewClientBuilder().
			Transport(transport).
			Use(SetProperty(50*time.Millisecond, "req.timeout")).
			Build()

		_, err := client.Get("http://example.test/").Send(context.Background())

		require.NoError(t, err)
		assert.Equal(t, 50*time.Millisecond, transport.Requests()[0].Timeout)
	})

	t.Run("given an unknown field, then the call fails", func(t *testing.T) {
		client := NewClientBuilder().
			Transport(NewMockTransport()).
			Use(SetProperty(1, "req.bogus")).
			Build()

		_, err := client.Get("http://example.test/").Send(context.Background())

		require.Error(t, err)
		assert.Contains(t, err.Error(), "bogus")
	})

	t.Run("given an incompatible value, then the call fails", func(t *testing.T) {
		client := NewClientBuilder().
			Transport(NewMockTransport()).
			Use(SetProperty([]string{"nope"}, "req.method")).
			Build()

		_, err := client.Get("http://example.test/").Send(context.Background())

		assert.Error(t, err)
	})
}

func TestSetPath_CaseInsensitiveFields(t *testing.T) {
	c := &Context{Req: &Request{}, Opts: map[string]any{}}

	require.NoError(t, setPath(c, []string{"Req", "TIMEOUT"}, time.Second))

	assert.Equal(t, time.Second, c.Req.Timeout)
}
