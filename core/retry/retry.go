package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// Policy controls how an operation is retried.
type Policy struct {
	// MaxRetries is the number of re-attempts after the first failure.
	MaxRetries int
	// BaseDelay is the sleep before the first retry.
	BaseDelay time.Duration
	// Factor is the backoff multiplier applied per attempt.
	Factor float64
	// MaxJitter bounds the random jitter added to each sleep.
	MaxJitter time.Duration
	// Retryable classifies errors; only errors it accepts are retried.
	// A nil Retryable retries nothing.
	Retryable func(error) bool
}

// backoff returns the sleep before retry attempt n (1-based).
func (p Policy) backoff(attempt int) time.Duration {
	delay := time.Duration(float64(p.BaseDelay) * math.Pow(p.Factor, float64(attempt-1)))
	if p.MaxJitter > 0 {
		delay += time.Duration(rand.Int63n(int64(p.MaxJitter)))
	}
	return delay
}

// Do runs op, retrying on errors the policy classifies as transient.
// The underlying operation is invoked at most MaxRetries+1 times; the last
// error is returned unchanged once the budget is exhausted. A context
// cancellation during backoff returns the context error.
func Do(ctx context.Context, l *zap.Logger, p Policy, name string, op func() error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = op()
		if err == nil {
			return nil
		}
		if p.Retryable == nil || !p.Retryable(err) {
			return err
		}
		if attempt >= p.MaxRetries {
			l.Warn("Retries exhausted",
				zap.String("operation", name),
				zap.Int("attempts", attempt+1),
				zap.Error(err),
			)
			return err
		}

		sleep := p.backoff(attempt + 1)
		l.Warn("Transient failure, backing off",
			zap.String("operation", name),
			zap.Int("attempt", attempt+1),
			zap.Duration("sleep", sleep),
			zap.Error(err),
		)

		select {
		case <-time.After(sleep):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
