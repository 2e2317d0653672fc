package relay

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// Transport executes one HTTP exchange for a populated Context.
//
// Contract:
//   - read c.Req (method, URL, headers, query, body, timeout),
//   - perform one exchange,
//   - on success populate c.Res, including Elapsed unless
//     Opts["time"] is false,
//   - on a socket timeout fail with a KindTimeout error whose message
//     is "Request failed for <METHOD> <URL>: ESOCKETTIMEDOUT",
//   - on any other transport-level failure fail with a KindTransport
//     error whose message begins "Request failed for <METHOD> <URL>: ".
//
// A Transport is shared by every call on a client and must be safe for
// concurrent use; it must not retain per-call state outside the Context.
type Transport interface {
	Execute(c *Context) error
}

// Config holds the connection pool and timeout settings for the default
// transport adapter. Use DefaultConfig() as a starting point and adjust
// fields as needed.
type Config struct {
	// Timeout limits the entire exchange when the request carries no
	// per-call timeout. Zero means no limit.
	Timeout time.Duration

	// MaxIdleConns caps idle keep-alive connections across all hosts.
	MaxIdleConns int

	// MaxIdleConnsPerHost caps idle connections kept per host.
	MaxIdleConnsPerHost int

	// MaxConnsPerHost caps total connections per host. Zero means
	// unlimited.
	MaxConnsPerHost int

	// IdleConnTimeout is how long an idle connection stays pooled.
	IdleConnTimeout time.Duration

	// TLSHandshakeTimeout caps the TLS handshake.
	TLSHandshakeTimeout time.Duration

	// ExpectContinueTimeout is the wait for a "100 Continue" response.
	ExpectContinueTimeout time.Duration

	// DialTimeout caps TCP connection establishment.
	DialTimeout time.Duration

	// KeepAlive is the TCP keep-alive probe interval.
	KeepAlive time.Duration

	// DisableKeepAlives forces a new connection per request.
	DisableKeepAlives bool

	// DisableCompression disables transparent gzip.
	DisableCompression bool
}

// DefaultConfig returns balanced settings for general-purpose use.
func DefaultConfig() Config {
	return Config{
		Timeout:               15 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   20,
		MaxConnsPerHost:       100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		DialTimeout:           5 * time.Second,
		KeepAlive:             30 * time.Second,
		DisableCompression:    true,
	}
}

// ConservativeConfig returns resource-conscious settings for constrained
// environments such as serverless functions or sidecars.
func ConservativeConfig() Config {
	return Config{
		Timeout:               10 * time.Second,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   5,
		MaxConnsPerHost:       20,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		DialTimeout:           5 * time.Second,
		KeepAlive:             30 * time.Second,
		DisableCompression:    true,
	}
}

// netTransport is the default adapter over net/http. One instance
// serves every call on a client; all per-call state lives on the
// Context.
type netTransport struct {
	client *http.Client
	debug  bool
	logger zerolog.Logger
}

// NewTransport builds the default transport adapter from cfg.
func NewTransport(cfg Config) Transport {
	return newNetTransport(cfg, false, stdLogger)
}

func newNetTransport(cfg Config, debug bool, logger zerolog.Logger) *netTransport {
	dialer := &net.Dialer{
		Timeout:   cfg.DialTimeout,
		KeepAlive: cfg.KeepAlive,
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		MaxIdleConns:          cfg.MaxIdleConns,
		MaxIdleConnsPerHost:   cfg.MaxIdleConnsPerHost,
		MaxConnsPerHost:       cfg.MaxConnsPerHost,
		IdleConnTimeout:       cfg.IdleConnTimeout,
		TLSHandshakeTimeout:   cfg.TLSHandshakeTimeout,
		ExpectContinueTimeout: cfg.ExpectContinueTimeout,
		DisableKeepAlives:     cfg.DisableKeepAlives,
		DisableCompression:    cfg.DisableCompression,
	}

	return &netTransport{
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		debug:  debug,
		logger: logger,
	}
}

// Execute implements Transport.
func (t *netTransport) Execute(c *Context) error {
	method := c.Req.Method
	target := c.Req.URL

	fullURL, err := buildURL(target, c.Req.Query)
	if err != nil {
		return newTransportError(method, target, err)
	}

	body, contentType, err := encodeBody(c.Req.Body)
	if err != nil {
		return newTransportError(method, target, err)
	}

	ctx := c.Context()
	if c.Req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Req.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return newTransportError(method, target, err)
	}

	for k, vs := range c.Req.Header {
		req.Header[k] = vs
	}
	if contentType != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", contentType)
	}

	if t.debug {
		logRequest(t.logger, req)
	}

	client := t.client
	if c.Req.Timeout > 0 {
		// The per-call timeout replaces the configured client-wide limit.
		perCall := *t.client
		perCall.Timeout = 0
		client = &perCall
	}

	start := time.Now()

	resp, err := client.Do(req)
	if err != nil {
		if isTimeoutError(err) {
			return newTimeoutError(method, target)
		}
		return newTransportError(method, target, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeoutError(err) {
			return newTimeoutError(method, target)
		}
		return newTransportError(method, target, err)
	}

	elapsed := time.Since(start)

	res := &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       string(raw),
	}
	if c.TimeEnabled() {
		res.Elapsed = elapsed
	}
	c.Res = res

	if t.debug {
		logResponse(t.logger, resp, elapsed)
	}

	return nil
}

// buildURL appends the accumulated query parameters to the target URL.
func buildURL(target string, query url.Values) (string, error) {
	if len(query) == 0 {
		return target, nil
	}

	u, err := url.Parse(target)
	if err != nil {
		return "", err
	}

	q := u.Query()
	for k, vs := range query {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// encodeBody turns the opaque request body into a reader plus the
// content type it implies. Structured values are serialized as JSON.
func encodeBody(v any) (io.Reader, string, error) {
	if v == nil {
		return nil, "", nil
	}

	switch body := v.(type) {
	case string:
		return strings.NewReader(body), "text/plain; charset=utf-8", nil
	case []byte:
		return bytes.NewReader(body), "application/octet-stream", nil
	case io.Reader:
		return body, "", nil
	case url.Values:
		return strings.NewReader(body.Encode()), "application/x-www-form-urlencoded", nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, "", err
		}
		return bytes.NewReader(data), "application/json", nil
	}
}

// isTimeoutError reports whether err is a socket timeout rather than a
// general transport failure.
func isTimeoutError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// logRequest logs the outgoing request using zerolog.
func logRequest(logger zerolog.Logger, req *http.Request) {
	logger.Debug().
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Str("host", req.Host).
		Msg("HTTP request")
}

// logResponse logs the received response using zerolog.
func logResponse(logger zerolog.Logger, resp *http.Response, elapsed time.Duration) {
	logger.Debug().
		Int("status", resp.StatusCode).
		Str("status_text", resp.Status).
		Dur("duration_ms", elapsed).
		Int64("content_length", resp.ContentLength).
		Msg("HTTP response")
}
