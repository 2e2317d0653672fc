package relay

import (
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
)

// ClientBuilder accumulates client-wide defaults and produces a Client.
//
//	client := relay.NewClientBuilder().
//	    UserAgent("billing-service/2.1").
//	    Use(relay.ToError()).
//	    Retries(2).
//	    RetryDelay(250 * time.Millisecond).
//	    Build()
type ClientBuilder struct {
	transport  Transport
	userAgent  string
	middleware []Middleware
	policy     RetryPolicy
	config     Config
	debug      bool
	logger     zerolog.Logger
}

// NewClientBuilder returns a builder seeded with the library defaults:
// the net/http transport adapter, the relay-go User-Agent, no global
// middleware, and retries disabled.
func NewClientBuilder() *ClientBuilder {
	return &ClientBuilder{
		userAgent: DefaultUserAgent,
		policy:    DefaultRetryPolicy(),
		config:    DefaultConfig(),
		logger:    stdLogger,
	}
}

// Transport replaces the transport adapter. The adapter must be safe
// for concurrent use.
func (b *ClientBuilder) Transport(t Transport) *ClientBuilder {
	b.transport = t
	return b
}

// UserAgent sets the default User-Agent header for every request.
// Callers may still override it per request via Headers.
func (b *ClientBuilder) UserAgent(ua string) *ClientBuilder {
	b.userAgent = ua
	return b
}

// Use appends a global middleware. Global middleware run outside
// per-request middleware, in registration order. Registering a nil
// middleware panics with a KindInvalidPlugin error.
func (b *ClientBuilder) Use(mw Middleware) *ClientBuilder {
	mustValidPlugin(mw)
	b.middleware = append(b.middleware, mw)
	return b
}

// Retries sets the client-wide retry budget.
func (b *ClientBuilder) Retries(n int) *ClientBuilder {
	b.policy.Max = n
	return b
}

// RetryDelay sets the client-wide inter-attempt delay.
func (b *ClientBuilder) RetryDelay(d time.Duration) *ClientBuilder {
	b.policy.Delay = d
	return b
}

// Config sets the connection pool configuration for the default
// transport adapter. Ignored when Transport was called.
func (b *ClientBuilder) Config(cfg Config) *ClientBuilder {
	b.config = cfg
	return b
}

// Debug enables request/response logging on the default transport
// adapter.
func (b *ClientBuilder) Debug(enabled bool) *ClientBuilder {
	b.debug = enabled
	return b
}

// Logger sets the sink for transport debug logging.
func (b *ClientBuilder) Logger(logger zerolog.Logger) *ClientBuilder {
	b.logger = logger
	return b
}

// Build produces the Client. The builder may be reused afterwards;
// clients built earlier are unaffected.
func (b *ClientBuilder) Build() *Client {
	transport := b.transport
	if transport == nil {
		transport = newNetTransport(b.config, b.debug, b.logger)
	}

	middleware := make([]Middleware, len(b.middleware))
	copy(middleware, b.middleware)

	return &Client{
		transport:  transport,
		userAgent:  b.userAgent,
		middleware: middleware,
		policy:     b.policy,
	}
}

// New returns a client with library defaults. Shorthand for
// NewClientBuilder().Build().
func New() *Client {
	return NewClientBuilder().Build()
}

// Client holds immutable call defaults and spawns request builders.
// Configuration is frozen at Build; a Client is safe for concurrent
// use.
type Client struct {
	transport  Transport
	userAgent  string
	middleware []Middleware
	policy     RetryPolicy
}

// Get starts a GET request to url.
func (c *Client) Get(url string) *RequestBuilder {
	return c.newRequest().Get(url)
}

// Post starts a POST request to url with an optional body.
func (c *Client) Post(url string, body ...any) *RequestBuilder {
	return c.newRequest().Post(url, body...)
}

// Put starts a PUT request to url with an optional body.
func (c *Client) Put(url string, body ...any) *RequestBuilder {
	return c.newRequest().Put(url, body...)
}

// Patch starts a PATCH request to url with an optional body.
func (c *Client) Patch(url string, body ...any) *RequestBuilder {
	return c.newRequest().Patch(url, body...)
}

// Delete starts a DELETE request to url with an optional body.
func (c *Client) Delete(url string, body ...any) *RequestBuilder {
	return c.newRequest().Delete(url, body...)
}

// Head starts a HEAD request to url.
func (c *Client) Head(url string) *RequestBuilder {
	return c.newRequest().Head(url)
}

// Use returns a request builder without a verb set, with mw appended to
// its per-request chain. Enables client.Use(mw).Get(url) chains.
func (c *Client) Use(mw Middleware) *RequestBuilder {
	return c.newRequest().Use(mw)
}

func (c *Client) newRequest() *RequestBuilder {
	return &RequestBuilder{
		client: c,
		header: make(http.Header),
		query:  make(url.Values),
		policy: c.policy,
	}
}
