package relay

import (
	"strings"

	json "github.com/goccy/go-json"
)

// DecodeJSON returns middleware that parses JSON response bodies.
//
// Post-phase: when the response carries a JSON content type and its
// body is still the raw string, the body is replaced with the parsed
// value. Malformed JSON surfaces as a KindDecode error.
func DecodeJSON() Middleware {
	return func(c *Context, next Next) error {
		if err := next(); err != nil {
			return err
		}
		if c.Res == nil {
			return nil
		}

		contentType := c.Res.Header.Get("Content-Type")
		if !strings.Contains(contentType, "application/json") {
			return nil
		}

		raw, ok := c.Res.Body.(string)
		if !ok || raw == "" {
			return nil
		}

		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return newDecodeError(err)
		}
		c.Res.Body = v
		return nil
	}
}

// DecodeJSONInto returns middleware that parses JSON response bodies
// into the given target, for callers that want a typed value instead of
// the generic replacement DecodeJSON performs.
func DecodeJSONInto(target any) Middleware {
	return func(c *Context, next Next) error {
		if err := next(); err != nil {
			return err
		}
		if c.Res == nil {
			return nil
		}

		raw, ok := c.Res.Body.(string)
		if !ok || raw == "" {
			return nil
		}

		if err := json.Unmarshal([]byte(raw), target); err != nil {
			return newDecodeError(err)
		}
		return nil
	}
}
