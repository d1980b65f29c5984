package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// ErrRetriesExhausted is matched by every *ExhaustedError.
var ErrRetriesExhausted = errors.New("retry attempts exhausted")

// ExhaustedError reports that an operation failed on every attempt.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("failed after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Is(target error) bool {
	return target == ErrRetriesExhausted
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

// Permanent marks err as not worth retrying. Do returns it after the first
// attempt, unwrapped. Permanent(nil) is nil.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var perm *backoff.PermanentError
	return errors.As(err, &perm)
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Policy bounds the attempts of one operation. The wait after failed attempt
// i (counting from zero) is 2^i seconds; there is no wait after the last.
type Policy struct {
	Name        string
	MaxAttempts int
	Sleep       Sleeper
}

func (p Policy) sleeper() Sleeper {
	if p.Sleep != nil {
		return p.Sleep
	}
	return SleepContext
}

func newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = time.Duration(math.MaxInt64)
	b.Reset()
	return b
}

// Do runs op until it succeeds or p.MaxAttempts attempts have failed.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	attempts := max(p.MaxAttempts, 1)
	b := newBackOff()
	sleep := p.sleeper()

	var last error
	for attempt := 0; attempt < attempts; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}

		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			slog.Warn("Attempt failed permanently",
				"operation", p.Name,
				"attempt", attempt+1,
				"error", perm.Err,
			)
			return zero, perm.Err
		}
		last = err

		slog.Warn("Attempt failed",
			"operation", p.Name,
			"attempt", attempt+1,
			"of", attempts,
			"error", err,
		)

		if attempt == attempts-1 {
			break
		}
		if err := sleep(ctx, b.NextBackOff()); err != nil {
			return zero, err
		}
	}

	return zero, &ExhaustedError{Attempts: attempts, Last: last}
}

// SleepContext blocks for d, returning early with ctx.Err() on cancellation.
func SleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
