// Package relay provides a composable HTTP client built around a
// middleware pipeline, a retry engine, and a fluent per-request
// builder. The HTTP exchange itself is delegated to a transport
// adapter; relay owns the orchestration around it.
//
// # Features
//
//   - Onion-style middleware with symmetric pre/post access to one call
//   - Retry engine with fixed delays and attempt accounting
//   - Fluent request builder composing with client-wide defaults
//   - Pluggable transport adapter (net/http by default)
//   - Bundled plugins: JSON decoding, context property setter, logging,
//     error synthesis, request IDs, circuit breaking, rate limiting,
//     request coalescing, OpenTelemetry tracing and metrics
//
// # Quick Start
//
//	client := relay.NewClientBuilder().
//	    Use(relay.ToError()).
//	    Retries(2).
//	    Build()
//
//	res, err := client.Get("https://api.example.com/users").
//	    Query("page", "1").
//	    AsResponse(ctx)
//
//	body, err := client.Post("https://api.example.com/users", user).
//	    Header("Idempotency-Key", key).
//	    AsBody(ctx)
//
// # Middleware
//
// A middleware is a func(*relay.Context, relay.Next) error. Work before
// next() is the pre-phase, work after is the post-phase; skipping
// next() short-circuits the call. Global middleware (ClientBuilder.Use)
// wrap per-request middleware (RequestBuilder.Use); pre-phases run in
// registration order, post-phases in reverse.
//
//	logged := client.Use(relay.Logger()).Get(url)
//
// # Retries
//
// The retry engine sits above the pipeline, so middleware observe every
// attempt. An attempt is re-run when it fails with a transport timeout
// or an error carrying a server-class status; everything else is
// terminal. Classification follows what middleware surfaces: without
// ToError (or equivalent), a 500 response is a successful call.
//
//	res, err := client.Get(url).
//	    Retry(3).
//	    RetryDelay(250 * time.Millisecond).
//	    AsResponse(ctx)
//
// Prior attempts are recorded on the call Context:
//
//	c, err := client.Get(url).Retry(3).Send(ctx)
//	for _, attempt := range c.Retries {
//	    log.Printf("failed with %d: %s", attempt.StatusCode, attempt.Reason)
//	}
//
// # Resilience Plugins
//
//	client := relay.NewClientBuilder().
//	    Use(relay.Breaker(relay.DefaultBreakerConfig())).
//	    Use(relay.RateLimit(relay.DefaultRateLimitConfig())).
//	    Use(relay.Coalesce()).
//	    Build()
//
// Circuit state can be shared across processes through Redis:
//
//	cfg := relay.DefaultBreakerConfig()
//	cfg.Store = relay.NewRedisStore(rdb)
//
// # Observability
//
// Trace and Meter record one span and one set of instruments per
// attempt, using the global OpenTelemetry providers unless overridden:
//
//	client := relay.NewClientBuilder().
//	    Use(relay.Trace(relay.WithServiceName("billing"))).
//	    Use(relay.Meter()).
//	    Build()
package relay
