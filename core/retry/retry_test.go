package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func fastPolicy(retryable func(error) bool) Policy {
	return Policy{
		MaxRetries: 3,
		BaseDelay:  time.Millisecond,
		Factor:     2,
		MaxJitter:  0,
		Retryable:  retryable,
	}
}

func TestDo_Success(t *testing.T) {
	calls := 0
	err := Do(context.Background(), zap.NewNop(), fastPolicy(func(error) bool { return true }), "op", func() error {
		calls++
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_TransientExhaustsBudget(t *testing.T) {
	transient := errors.New("connection reset")
	calls := 0
	err := Do(context.Background(), zap.NewNop(), fastPolicy(func(error) bool { return true }), "op", func() error {
		calls++
		return transient
	})
	// max_retries+1 invocations, last error returned unchanged
	assert.Equal(t, 4, calls)
	assert.Same(t, transient, err)
}

func TestDo_NonTransientNotRetried(t *testing.T) {
	logic := errors.New("unknown manifest column")
	calls := 0
	err := Do(context.Background(), zap.NewNop(), fastPolicy(func(error) bool { return false }), "op", func() error {
		calls++
		return logic
	})
	assert.Equal(t, 1, calls)
	assert.Same(t, logic, err)
}

func TestDo_RecoversMidway(t *testing.T) {
	calls := 0
	err := Do(context.Background(), zap.NewNop(), fastPolicy(func(error) bool { return true }), "op", func() error {
		calls++
		if calls < 3 {
			return errors.New("lock wait timeout")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	policy := Policy{
		MaxRetries: 3,
		BaseDelay:  time.Hour, // force a long sleep
		Factor:     2,
		Retryable:  func(error) bool { return true },
	}

	done := make(chan error, 1)
	go func() {
		done <- Do(ctx, zap.NewNop(), policy, "op", func() error {
			return errors.New("timeout")
		})
	}()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Do did not return after context cancellation")
	}
}

func TestPolicy_Backoff(t *testing.T) {
	p := Policy{BaseDelay: time.Second, Factor: 2}

	assert.Equal(t, time.Second, p.backoff(1))
	assert.Equal(t, 2*time.Second, p.backoff(2))
	assert.Equal(t, 4*time.Second, p.backoff(3))
}

func TestPolicy_BackoffJitterBounded(t *testing.T) {
	p := Policy{BaseDelay: time.Second, Factor: 2, MaxJitter: time.Second}

	for i := 0; i < 100; i++ {
		d := p.backoff(1)
		assert.GreaterOrEqual(t, d, time.Second)
		assert.Less(t, d, 2*time.Second)
	}
}

func TestConfig_Policy(t *testing.T) {
	cfg := Config{MaxRetries: 2, BaseDelaySeconds: 1, Factor: 2, MaxJitterSeconds: 1}
	p := cfg.Policy(func(error) bool { return true })

	assert.Equal(t, 2, p.MaxRetries)
	assert.Equal(t, time.Second, p.BaseDelay)
	assert.Equal(t, 2.0, p.Factor)
	assert.Equal(t, time.Second, p.MaxJitter)

	// Zero values fall back to the canonical defaults
	p = Config{}.Policy(nil)
	assert.Equal(t, 3, p.MaxRetries)
	assert.Equal(t, time.Second, p.BaseDelay)
	assert.Equal(t, 2.0, p.Factor)
}
