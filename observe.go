package relay

import (
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// scope is the instrumentation scope name for OpenTelemetry.
const scope = "github.com/meridian-labs/relay-go"

// ObserveOption configures the Trace and Meter middleware.
type ObserveOption func(*observeConfig)

type observeConfig struct {
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	serviceName    string
}

// WithTracerProvider overrides the tracer provider. Defaults to the
// global provider.
func WithTracerProvider(tp trace.TracerProvider) ObserveOption {
	return func(cfg *observeConfig) {
		if tp != nil {
			cfg.tracerProvider = tp
		}
	}
}

// WithMeterProvider overrides the meter provider. Defaults to the
// global provider.
func WithMeterProvider(mp metric.MeterProvider) ObserveOption {
	return func(cfg *observeConfig) {
		if mp != nil {
			cfg.meterProvider = mp
		}
	}
}

// WithServiceName identifies this client in spans and metrics via the
// "http.client.name" attribute.
func WithServiceName(name string) ObserveOption {
	return func(cfg *observeConfig) {
		cfg.serviceName = name
	}
}

func newObserveConfig(opts []ObserveOption) *observeConfig {
	cfg := &observeConfig{
		tracerProvider: otel.GetTracerProvider(),
		meterProvider:  otel.GetMeterProvider(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

func (cfg *observeConfig) baseAttributes(c *Context) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("http.request.method", c.Req.Method),
	}
	if cfg.serviceName != "" {
		attrs = append(attrs, attribute.String("http.client.name", cfg.serviceName))
	}
	return attrs
}

// Trace returns middleware that records one client span per attempt.
// The span carries method, URL, and the count of prior retries, plus the
// status code once the transport has responded. Failures are recorded
// on the span and set its status.
//
// The span's context is attached to the call Context for the duration
// of the attempt, so inner middleware and the transport observe it.
func Trace(opts ...ObserveOption) Middleware {
	cfg := newObserveConfig(opts)
	tracer := cfg.tracerProvider.Tracer(scope)

	return func(c *Context, next Next) error {
		ctx, span := tracer.Start(c.Context(), "HTTP "+c.Req.Method,
			trace.WithSpanKind(trace.SpanKindClient))
		defer span.End()

		prev := c.ctx
		c.ctx = ctx
		err := next()
		c.ctx = prev

		attrs := append(cfg.baseAttributes(c),
			attribute.String("url.full", c.Req.URL),
			attribute.Int("http.retry_count", len(c.Retries)),
		)
		if c.Res != nil {
			attrs = append(attrs,
				attribute.Int("http.response.status_code", c.Res.StatusCode))
		}
		span.SetAttributes(attrs...)

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return err
	}
}

// Meter returns middleware that records per-attempt instruments:
//
//   - http.client.attempt.duration (histogram, seconds)
//   - http.client.retry.attempts (counter; re-attempts only)
//   - http.client.attempt.errors (counter, by error kind)
func Meter(opts ...ObserveOption) Middleware {
	cfg := newObserveConfig(opts)
	meter := cfg.meterProvider.Meter(scope)

	duration, _ := meter.Float64Histogram(
		"http.client.attempt.duration",
		metric.WithDescription("Duration of HTTP client attempts in seconds"),
		metric.WithUnit("s"),
	)
	retries, _ := meter.Int64Counter(
		"http.client.retry.attempts",
		metric.WithDescription("Number of HTTP client re-attempts"),
		metric.WithUnit("{attempt}"),
	)
	failures, _ := meter.Int64Counter(
		"http.client.attempt.errors",
		metric.WithDescription("Number of failed HTTP client attempts"),
		metric.WithUnit("{error}"),
	)

	return func(c *Context, next Next) error {
		start := time.Now()
		err := next()

		ctx := c.Context()
		attrs := cfg.baseAttributes(c)
		if c.Res != nil {
			attrs = append(attrs,
				attribute.Int("http.response.status_code", c.Res.StatusCode))
		}
		attrSet := metric.WithAttributes(attrs...)

		duration.Record(ctx, time.Since(start).Seconds(), attrSet)
		if len(c.Retries) > 0 {
			retries.Add(ctx, 1, attrSet)
		}
		if err != nil {
			failures.Add(ctx, 1, metric.WithAttributes(append(attrs,
				attribute.String("error.kind", ErrorKind(err).String()))...))
		}
		return err
	}
}
