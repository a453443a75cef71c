// Package retry implements the bounded wait-for-database loop shared by the
// initializer Lambdas. A Policy is a small value object so each call site can
// tune attempts, delay, and backoff without duplicating the loop.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"
)

// Policy controls one polling loop. Multiplier <= 1 keeps the delay constant;
// a larger multiplier grows it geometrically up to MaxDelay. Jitter, when set,
// adds up to that much extra sleep per attempt.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
	Multiplier  float64
	MaxDelay    time.Duration
	Jitter      time.Duration

	// Sleep is swapped out in tests. Defaults to time.Sleep.
	Sleep func(time.Duration)
}

// PermanentError marks a probe failure that must not be retried, such as an
// authentication error. Wait unwraps it and returns the cause immediately.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err so Wait stops retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// ExhaustedError reports a retry budget spent without a successful probe.
type ExhaustedError struct {
	Target   string
	Attempts int
	Waited   time.Duration
	LastErr  error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s did not become available after %s (%d attempts), last error: %v",
		e.Target, e.Waited, e.Attempts, e.LastErr)
}

func (e *ExhaustedError) Unwrap() error { return e.LastErr }

// Wait runs probe until it succeeds, fails permanently, or the attempt budget
// is exhausted. The probe must open its own short-lived connection and close
// it before returning; Wait never holds a connection across attempts.
func (p Policy) Wait(ctx context.Context, logger *logrus.Logger, target string, probe func(context.Context) error) error {
	sleep := p.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	delay := p.Delay
	var waited time.Duration
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		err := probe(ctx)
		if err == nil {
			logger.WithFields(logrus.Fields{
				"target":  target,
				"attempt": attempt,
			}).Info("Database is available")
			return nil
		}

		var perm *PermanentError
		if errors.As(err, &perm) {
			logger.WithFields(logrus.Fields{
				"target": target,
				"error":  perm.Err.Error(),
			}).Error("Giving up immediately, error is not retryable")
			return perm.Err
		}
		lastErr = err

		logger.WithFields(logrus.Fields{
			"target":       target,
			"attempt":      attempt,
			"max_attempts": attempts,
			"error":        err.Error(),
		}).Info("Waiting for database")

		if attempt == attempts {
			break
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		d := delay
		if p.Jitter > 0 {
			d += time.Duration(rand.Int63n(int64(p.Jitter)))
		}
		sleep(d)
		waited += d

		if p.Multiplier > 1 {
			delay = time.Duration(float64(delay) * p.Multiplier)
			if p.MaxDelay > 0 && delay > p.MaxDelay {
				delay = p.MaxDelay
			}
		}
	}

	return &ExhaustedError{Target: target, Attempts: attempts, Waited: waited, LastErr: lastErr}
}
