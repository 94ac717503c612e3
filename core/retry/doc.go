// Package retry provides bounded retry with exponential backoff and jitter
// for operations against the relational store.
//
// Only transient (operational) errors are retried; the Policy carries a
// Retryable predicate that classifies errors, typically database.IsTransient.
// Logic and validation errors propagate immediately, and on exhausting the
// attempt budget the last error is returned unchanged.
//
// # Backoff
//
// Sleep before attempt n (1-based) is base * factor^(n-1), plus up to
// MaxJitter of random jitter so that concurrent retries do not synchronize.
//
// # Usage
//
//	policy := retry.Policy{MaxRetries: 3, BaseDelay: time.Second, Factor: 2,
//	    MaxJitter: time.Second, Retryable: database.IsTransient}
//
//	err := retry.Do(ctx, logger, policy, "insert job", func() error {
//	    return db.WithContext(ctx).Create(&job).Error
//	})
package retry
