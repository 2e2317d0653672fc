package relay

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gateTransport signals when an attempt enters and blocks it until
// released, so tests can line up overlapping calls deterministically.
type gateTransport struct {
	mu      sync.Mutex
	entered chan struct{}
	release chan struct{}
	calls   int
}

func newGateTransport() *gateTransport {
	return &gateTransport{
		entered: make(chan struct{}, 16),
		release: make(chan struct{}),
	}
}

func (g *gateTransport) Execute(c *Context) error {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()

	g.entered <- struct{}{}
	<-g.release

	c.Res = &Response{
		StatusCode: 200,
		Header:     make(http.Header),
		Body:       "shared",
	}
	return nil
}

func (g *gateTransport) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func TestCoalesce_SharesInFlightGets(t *testing.T) {
	transport := newGateTransport()
	client := NewClientBuilder().
		Transport(transport).
		Use(Coalesce()).
		Build()

	results := make(chan *Context, 2)
	errs := make(chan error, 2)

	call := func() {
		c, err := client.Get("http://example.test/hot").Send(context.Background())
		results <- c
		errs <- err
	}

	go call()
	// Wait for the leader to occupy the flight, then add a follower.
	<-transport.entered
	go call()
	time.Sleep(50 * time.Millisecond)
	close(transport.release)

	first := <-results
	second := <-results
	require.NoError(t, <-errs)
	require.NoError(t, <-errs)

	assert.Equal(t, 1, transport.Calls())
	assert.Equal(t, "shared", first.Res.Body)
	assert.Equal(t, "shared", second.Res.Body)
	// Each call owns its own response view.
	assert.NotSame(t, first.Res, second.Res)
}

func TestCoalesce_DistinctRequestsDoNotShare(t *testing.T) {
	transport := NewMockTransport().StubResponse(200, "ok")
	client := NewClientBuilder().
		Transport(transport).
		Use(Coalesce()).
		Build()

	_, err := client.Get("http://example.test/a").Send(context.Background())
	require.NoError(t, err)
	_, err = client.Get("http://example.test/b").Send(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, transport.Calls())
}

func TestCoalesce_WritesPassThrough(t *testing.T) {
	transport := NewMockTransport().StubResponse(201, "created")
	client := NewClientBuilder().
		Transport(transport).
		Use(Coalesce()).
		Build()

	for i := 0; i < 3; i++ {
		_, err := client.Post("http://example.test/items", "payload").Send(context.Background())
		require.NoError(t, err)
	}

	assert.Equal(t, 3, transport.Calls())
}

func TestCoalesceKey(t *testing.T) {
	base := &Request{Method: "GET", URL: "http://example.test/a"}

	t.Run("given identical requests, then keys match", func(t *testing.T) {
		other := &Request{Method: "GET", URL: "http://example.test/a"}
		assert.Equal(t, coalesceKey(base), coalesceKey(other))
	})

	t.Run("given differing query order, then keys still match", func(t *testing.T) {
		a := &Request{Method: "GET", URL: "http://example.test/a",
			Query: map[string][]string{"x": {"1"}, "y": {"2"}}}
		b := &Request{Method: "GET", URL: "http://example.test/a",
			Query: map[string][]string{"y": {"2"}, "x": {"1"}}}
		assert.Equal(t, coalesceKey(a), coalesceKey(b))
	})

	t.Run("given different URLs, then keys differ", func(t *testing.T) {
		other := &Request{Method: "GET", URL: "http://example.test/b"}
		assert.NotEqual(t, coalesceKey(base), coalesceKey(other))
	})

	t.Run("given different methods, then keys differ", func(t *testing.T) {
		other := &Request{Method: "HEAD", URL: "http://example.test/a"}
		assert.NotEqual(t, coalesceKey(base), coalesceKey(other))
	})
}
