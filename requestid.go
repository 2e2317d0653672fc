package relay

import "github.com/google/uuid"

// DefaultRequestIDHeader is the header stamped by RequestID when no
// name is given.
const DefaultRequestIDHeader = "X-Request-Id"

// RequestID returns middleware that stamps a correlation ID on requests
// that do not already carry one. The same ID is reused across the
// attempts of a single call, tying retries together downstream.
func RequestID(header ...string) Middleware {
	name := DefaultRequestIDHeader
	if len(header) > 0 && header[0] != "" {
		name = header[0]
	}

	return func(c *Context, next Next) error {
		if c.Req.Header.Get(name) == "" {
			c.Req.Header.Set(name, uuid.NewString())
		}
		return next()
	}
}
