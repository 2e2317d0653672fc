package relay

import "fmt"

// ToError returns middleware that converts error-class responses into
// KindHTTPStatus failures.
//
// Post-phase: a populated response with status >= 400 becomes an error
// carrying the status code and headers. This is the opt-in that makes
// server-class responses visible to the retry engine: without it (or an
// equivalent), a 500 response is a successful call.
func ToError() Middleware {
	return func(c *Context, next Next) error {
		if err := next(); err != nil {
			return err
		}
		if c.Res == nil || c.Res.StatusCode < 400 {
			return nil
		}
		return NewHTTPStatusError(c.Res.StatusCode, c.Res.Header,
			fmt.Sprintf("%s %s responded with status %d",
				c.Req.Method, c.Req.URL, c.Res.StatusCode))
	}
}
