package relay

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
)

// stdLogger is the package-level zerolog logger used when no sink is
// configured.
var stdLogger = zerolog.New(os.Stdout).With().Timestamp().Logger()

// Logger returns middleware that logs the outcome of every attempt.
//
// On success it emits an info line:
//
//	<METHOD> <URL> <status> <elapsed> ms
//
// with the elapsed part omitted when Opts["time"] is false. On a
// failure the retry engine will re-attempt, it emits a warn line:
//
//	Attempt <k> <METHOD> <URL> <status> <elapsed> ms
//
// Terminal failures are left to the caller; the middleware stays quiet
// so errors are not reported twice.
//
// Register Logger before error-synthesizing middleware such as ToError
// so its post-phase observes the surfaced failure.
func Logger(logger ...*zerolog.Logger) Middleware {
	log := stdLogger
	if len(logger) > 0 && logger[0] != nil {
		log = *logger[0]
	}

	return func(c *Context, next Next) error {
		err := next()
		if err == nil {
			if c.Res != nil {
				log.Info().Msg(successLine(c))
			}
			return nil
		}

		if retryable(err) && len(c.Retries) < c.Policy.Max {
			log.Warn().Msg(attemptLine(c, err))
		}
		return err
	}
}

func successLine(c *Context) string {
	if !c.TimeEnabled() {
		return fmt.Sprintf("%s %s %d", c.Req.Method, c.Req.URL, c.Res.StatusCode)
	}
	return fmt.Sprintf("%s %s %d %d ms",
		c.Req.Method, c.Req.URL, c.Res.StatusCode, c.Res.Elapsed.Milliseconds())
}

func attemptLine(c *Context, err error) string {
	// Prior retries are recorded after this post-phase runs, so the
	// current attempt number is one past the recorded count.
	attempt := len(c.Retries) + 1

	status := ErrorStatusCode(err)
	var elapsed int64
	if c.Res != nil {
		if status == 0 {
			status = c.Res.StatusCode
		}
		elapsed = c.Res.Elapsed.Milliseconds()
	}

	if !c.TimeEnabled() {
		return fmt.Sprintf("Attempt %d %s %s %d", attempt, c.Req.Method, c.Req.URL, status)
	}
	return fmt.Sprintf("Attempt %d %s %s %d %d ms",
		attempt, c.Req.Method, c.Req.URL, status, elapsed)
}
