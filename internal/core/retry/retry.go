// Package retry re-invokes fallible operations with exponential backoff
// and jitter, honoring the retry classification carried on taxonomy errors.
package retry

import (
	"context"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/minhdang/bpagent/internal/core/errs"
	"github.com/minhdang/bpagent/internal/metrics"
)

// rateLimitDelay is the fixed extra wait imposed before retrying a 429
// response, on top of the exponential backoff.
const rateLimitDelay = 2 * time.Second

// Policy defines retry behavior. The zero value is not useful; start from
// DefaultPolicy and override per call site.
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration
	Jitter     float64
	RetryOn    []errs.Kind
	Logger     *slog.Logger
}

// DefaultPolicy provides the domain defaults: the original call plus three
// retries, one second base delay, network and generic-retryable kinds.
var DefaultPolicy = Policy{
	MaxRetries: 3,
	BaseDelay:  1 * time.Second,
	Jitter:     0.1,
	RetryOn:    []errs.Kind{errs.KindNetwork, errs.KindRetryable},
}

// Do runs op up to MaxRetries+1 times. Errors outside RetryOn, and errors
// whose RetryPossible flag is false, propagate immediately without a sleep.
// On exhaustion the final error is annotated with the attempt count. Both
// the backoff sleep and op observe ctx; cancellation surfaces as a
// non-retryable canceled error.
func (p Policy) Do(ctx context.Context, op func(context.Context) error) error {
	log := p.Logger
	if log == nil {
		log = slog.Default()
	}

	for attempt := 0; ; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}

		e, ok := errs.As(err)
		if !ok || !p.retryableKind(e.Kind) {
			log.Error("error (not retrying)", "error", errs.FormatForLog(err))
			return err
		}
		// Deliberate short-circuit: the error itself says another attempt
		// cannot succeed (auth failures, exhausted retry budgets).
		if !e.RetryPossible {
			log.Error("error marked not retryable", "error", e.LogMessage())
			return err
		}

		if attempt >= p.MaxRetries {
			e.WithDetail("attempts", attempt+1)
			log.Error("retries exhausted", "attempts", attempt+1, "error", e.LogMessage())
			return err
		}

		delay := p.delay(attempt)
		if e.StatusCode == 429 {
			delay += rateLimitDelay
		}
		metrics.RetryAttempts.Inc()
		log.Warn("attempt failed, retrying",
			"attempt", attempt+1,
			"delay", delay.Round(time.Millisecond),
			"error", e.Message)

		select {
		case <-ctx.Done():
			return errs.Canceled(ctx.Err())
		case <-time.After(delay):
		}
	}
}

// DoValue is Do for operations returning a value.
func DoValue[T any](ctx context.Context, p Policy, op func(context.Context) (T, error)) (T, error) {
	var result T
	err := p.Do(ctx, func(ctx context.Context) error {
		var opErr error
		result, opErr = op(ctx)
		return opErr
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

// delay computes BaseDelay * 2^attempt plus uniform jitter scaled to the
// same exponential.
func (p Policy) delay(attempt int) time.Duration {
	base := float64(p.BaseDelay) * math.Pow(2, float64(attempt))
	jitter := rand.Float64() * p.Jitter * base
	return time.Duration(base + jitter)
}

func (p Policy) retryableKind(k errs.Kind) bool {
	for _, rk := range p.RetryOn {
		if rk == k {
			return true
		}
	}
	return false
}
