package relay

// Next resumes the remainder of the pipeline, including the transport
// call. It returns once the inner layers have finished mutating the
// Context.
type Next func() error

// Middleware wraps one call. Work done before invoking next is the
// pre-phase; work done after it returns is the post-phase. A middleware
// that returns without invoking next short-circuits the call: the
// transport is not entered and inner middleware do not run.
//
// Errors returned by inner layers propagate outward through next's
// return value; an outer middleware may inspect and recover from them.
type Middleware func(c *Context, next Next) error

// compose folds the ordered middleware list over the transport leaf so
// that mws[0] wraps mws[1] wraps ... wraps leaf. Pre-phases therefore
// run in registration order and post-phases in reverse.
func compose(mws []Middleware, leaf func(*Context) error) func(*Context) error {
	run := leaf
	for i := len(mws) - 1; i >= 0; i-- {
		mw := mws[i]
		inner := run
		run = func(c *Context) error {
			return mw(c, func() error { return inner(c) })
		}
	}
	return run
}

// mustValidPlugin rejects nil middleware at registration time. A nil
// Middleware is the Go spelling of a non-callable plugin.
func mustValidPlugin(mw Middleware) {
	if mw == nil {
		panic(newInvalidPluginError())
	}
}
