package relay

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"
)

// RequestBuilder accumulates per-request configuration. Every setter
// returns the builder; setters and the verb may be called in any order.
// A terminal call (Send, AsResponse, AsBody) freezes the builder: later
// setter or terminal calls panic.
//
//	body, err := client.Get("https://api.example.com/users").
//	    Query("page", "1").
//	    Retry(2).
//	    AsBody(ctx)
type RequestBuilder struct {
	client     *Client
	method     string
	url        string
	header     http.Header
	query      url.Values
	body       any
	timeout    time.Duration
	policy     RetryPolicy
	middleware []Middleware
	frozen     bool
}

// errNoMethod is returned when a terminal call runs without a verb set.
var errNoMethod = errors.New("relay: no request method set")

func (rb *RequestBuilder) checkMutable() {
	if rb.frozen {
		panic("relay: request builder used after a terminal call")
	}
}

// Header sets a single request header. Keys compare case-insensitively;
// the last assignment wins.
func (rb *RequestBuilder) Header(key, value string) *RequestBuilder {
	rb.checkMutable()
	rb.header.Set(key, value)
	return rb
}

// Headers merges the given headers into the request. An empty map is a
// no-op.
func (rb *RequestBuilder) Headers(headers map[string]string) *RequestBuilder {
	rb.checkMutable()
	for k, v := range headers {
		rb.header.Set(k, v)
	}
	return rb
}

// Query appends a single query parameter.
func (rb *RequestBuilder) Query(key, value string) *RequestBuilder {
	rb.checkMutable()
	rb.query.Add(key, value)
	return rb
}

// Queries appends multiple query parameters. An empty map is a no-op.
func (rb *RequestBuilder) Queries(params map[string]string) *RequestBuilder {
	rb.checkMutable()
	for k, v := range params {
		rb.query.Add(k, v)
	}
	return rb
}

// Timeout sets the per-request socket timeout enforced by the
// transport adapter.
func (rb *RequestBuilder) Timeout(d time.Duration) *RequestBuilder {
	rb.checkMutable()
	rb.timeout = d
	return rb
}

// Retry overrides the retry budget for this request.
func (rb *RequestBuilder) Retry(n int) *RequestBuilder {
	rb.checkMutable()
	rb.policy.Max = n
	return rb
}

// RetryDelay overrides the inter-attempt delay for this request.
func (rb *RequestBuilder) RetryDelay(d time.Duration) *RequestBuilder {
	rb.checkMutable()
	rb.policy.Delay = d
	return rb
}

// Use appends a middleware to the per-request chain. Per-request
// middleware run inside the client's global middleware. Registering a
// nil middleware panics with a KindInvalidPlugin error.
func (rb *RequestBuilder) Use(mw Middleware) *RequestBuilder {
	rb.checkMutable()
	mustValidPlugin(mw)
	rb.middleware = append(rb.middleware, mw)
	return rb
}

// Get sets the method to GET and the request URL.
func (rb *RequestBuilder) Get(url string) *RequestBuilder {
	return rb.verb(http.MethodGet, url)
}

// Post sets the method to POST, the request URL, and an optional body.
func (rb *RequestBuilder) Post(url string, body ...any) *RequestBuilder {
	return rb.verb(http.MethodPost, url, body...)
}

// Put sets the method to PUT, the request URL, and an optional body.
func (rb *RequestBuilder) Put(url string, body ...any) *RequestBuilder {
	return rb.verb(http.MethodPut, url, body...)
}

// Patch sets the method to PATCH, the request URL, and an optional body.
func (rb *RequestBuilder) Patch(url string, body ...any) *RequestBuilder {
	return rb.verb(http.MethodPatch, url, body...)
}

// Delete sets the method to DELETE, the request URL, and an optional
// body.
func (rb *RequestBuilder) Delete(url string, body ...any) *RequestBuilder {
	return rb.verb(http.MethodDelete, url, body...)
}

// Head sets the method to HEAD and the request URL.
func (rb *RequestBuilder) Head(url string) *RequestBuilder {
	return rb.verb(http.MethodHead, url)
}

func (rb *RequestBuilder) verb(method, url string, body ...any) *RequestBuilder {
	rb.checkMutable()
	rb.method = method
	rb.url = url
	if len(body) > 0 {
		rb.body = body[0]
	}
	return rb
}

// Send runs the pipeline and retry engine without a projection step and
// returns the call Context. The Context is returned even when the call
// fails so callers can inspect the recorded attempts; it is nil only
// when no verb was set.
func (rb *RequestBuilder) Send(ctx context.Context) (*Context, error) {
	return rb.execute(ctx)
}

// AsResponse runs the call and returns the full response view.
func (rb *RequestBuilder) AsResponse(ctx context.Context) (*Response, error) {
	c, err := rb.execute(ctx)
	if err != nil {
		return nil, err
	}
	return c.Res, nil
}

// AsBody runs the call and returns only the response body.
func (rb *RequestBuilder) AsBody(ctx context.Context) (any, error) {
	c, err := rb.execute(ctx)
	if err != nil {
		return nil, err
	}
	return c.Res.Body, nil
}

// execute freezes the builder, assembles the call Context and the
// composed chain, and hands both to the retry engine.
func (rb *RequestBuilder) execute(ctx context.Context) (*Context, error) {
	rb.checkMutable()
	rb.frozen = true

	if rb.method == "" {
		return nil, errNoMethod
	}

	header := rb.header.Clone()
	if header == nil {
		header = make(http.Header)
	}
	if header.Get("User-Agent") == "" {
		header.Set("User-Agent", rb.client.userAgent)
	}

	query := make(url.Values, len(rb.query))
	for k, vs := range rb.query {
		query[k] = append([]string(nil), vs...)
	}

	c := &Context{
		Req: &Request{
			Method:  rb.method,
			URL:     rb.url,
			Header:  header,
			Query:   query,
			Body:    rb.body,
			Timeout: rb.timeout,
		},
		Policy: rb.policy,
		Opts:   make(map[string]any),
		ctx:    ctx,
	}

	mws := make([]Middleware, 0, len(rb.client.middleware)+len(rb.middleware))
	mws = append(mws, rb.client.middleware...)
	mws = append(mws, rb.middleware...)

	chain := compose(mws, rb.client.transport.Execute)

	if err := runRetry(c, chain); err != nil {
		return c, err
	}
	return c, nil
}
