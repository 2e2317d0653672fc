package relay

import (
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	gobreaker "github.com/sony/gobreaker/v2"
	gobreakerredis "github.com/sony/gobreaker/v2/redis"
)

// CircuitBreaker is the execution interface used by the Breaker
// middleware. It matches the gobreaker signature, so both local and
// distributed breakers satisfy it.
type CircuitBreaker interface {
	Execute(req func() (any, error)) (any, error)
}

// BreakerClassifier determines whether an attempt outcome counts as a
// failure toward tripping the circuit.
type BreakerClassifier func(c *Context, err error) bool

// BreakerConfig configures the Breaker middleware.
//
// States: Closed (normal), Open (attempts rejected immediately with
// gobreaker.ErrOpenState), Half-Open (limited probes allowed).
type BreakerConfig struct {
	// Name identifies the breaker in state-change callbacks.
	// Defaults to the library name.
	Name string

	// MaxRequests is the number of probes allowed while half-open.
	MaxRequests uint32

	// Interval is the cyclic period over which closed-state counts are
	// cleared. Zero keeps counts indefinitely.
	Interval time.Duration

	// Timeout is the open-state period before moving to half-open.
	Timeout time.Duration

	// FailureThreshold is the minimum number of attempts before the
	// failure ratio can trip the circuit.
	FailureThreshold uint32

	// FailureRatio trips the circuit when the failure rate reaches it.
	FailureRatio float64

	// ConsecutiveFailures trips the circuit after that many failures in
	// a row. Zero disables the rule.
	ConsecutiveFailures uint32

	// Store enables distributed circuit breaking when set; see
	// NewRedisStore. Nil keeps the breaker local to the process.
	Store gobreaker.SharedDataStore

	// Classifier decides which outcomes count as failures.
	// Defaults to DefaultBreakerClassifier.
	Classifier BreakerClassifier

	// OnStateChange is invoked when the breaker changes state.
	OnStateChange func(name string, from, to gobreaker.State)
}

// DefaultBreakerConfig returns a safe local configuration: counts clear
// every 10s, the circuit stays open for 10s, and it trips at a 50%
// failure ratio over at least 20 attempts or after 5 consecutive
// failures.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:                Name,
		MaxRequests:         1,
		Interval:            10 * time.Second,
		Timeout:             10 * time.Second,
		FailureThreshold:    20,
		FailureRatio:        0.5,
		ConsecutiveFailures: 5,
		Classifier:          DefaultBreakerClassifier,
	}
}

// NewRedisStore creates a SharedDataStore backed by Redis so multiple
// processes share one circuit state. When one instance trips the
// breaker, all instances stop sending.
func NewRedisStore(client redis.UniversalClient) gobreaker.SharedDataStore {
	return gobreakerredis.NewStoreFromClient(client)
}

// DefaultBreakerClassifier counts timeouts, plain transport failures,
// and server-class statuses as breaker failures. Client-class failures
// are the caller's problem and do not trip the circuit.
func DefaultBreakerClassifier(c *Context, err error) bool {
	if err != nil {
		switch ErrorKind(err) {
		case KindTimeout, KindTransport:
			return true
		}
		return ErrorStatusCode(err) >= 500
	}
	return c.Res != nil && c.Res.StatusCode >= 500
}

// errSyntheticFailure signals the breaker that an attempt failed (a
// server-class response) even though the chain returned no error. It is
// dropped before returning, so the pipeline sees the call succeed.
var errSyntheticFailure = errors.New("synthetic failure")

// Breaker returns middleware that sheds attempts while the circuit is
// open. Rejections surface gobreaker.ErrOpenState, which carries no
// status code and is never retried.
func Breaker(cfg BreakerConfig) Middleware {
	classifier := cfg.Classifier
	if classifier == nil {
		classifier = DefaultBreakerClassifier
	}

	name := cfg.Name
	if name == "" {
		name = Name
	}

	st := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if cfg.ConsecutiveFailures > 0 &&
				counts.ConsecutiveFailures >= cfg.ConsecutiveFailures {
				return true
			}
			if cfg.FailureThreshold > 0 && counts.Requests < cfg.FailureThreshold {
				return false
			}
			if cfg.FailureRatio > 0 && counts.TotalFailures > 0 {
				ratio := float64(counts.TotalFailures) / float64(counts.Requests)
				return ratio >= cfg.FailureRatio
			}
			return false
		},
		OnStateChange: cfg.OnStateChange,
	}

	var cb CircuitBreaker
	if cfg.Store != nil {
		dcb, err := gobreaker.NewDistributedCircuitBreaker[any](cfg.Store, st)
		if err != nil {
			// A local breaker still protects this process; better than
			// no breaker when the store cannot be reached at setup.
			cb = gobreaker.NewCircuitBreaker[any](st)
		} else {
			cb = dcb
		}
	} else {
		cb = gobreaker.NewCircuitBreaker[any](st)
	}

	return func(c *Context, next Next) error {
		res, err := cb.Execute(func() (any, error) {
			innerErr := next()
			if classifier(c, innerErr) {
				if innerErr != nil {
					return nil, innerErr
				}
				return nil, errSyntheticFailure
			}
			// Non-failure outcomes, including errors the classifier
			// ignores, count as breaker successes but still propagate.
			return innerErr, nil
		})
		if err != nil {
			if errors.Is(err, errSyntheticFailure) {
				return nil
			}
			return err
		}
		if passthrough, ok := res.(error); ok {
			return passthrough
		}
		return nil
	}
}
