package retry

import "time"

// Config holds configuration for the retry executor.
type Config struct {
	// MaxRetries is the number of re-attempts after the first failure.
	MaxRetries int `mapstructure:"max_retries" default:"3"`
	// BaseDelaySeconds is the first backoff sleep in seconds.
	BaseDelaySeconds int `mapstructure:"base_delay_seconds" default:"1"`
	// Factor is the backoff multiplier applied per attempt.
	Factor float64 `mapstructure:"factor" default:"2"`
	// MaxJitterSeconds bounds the random jitter added to each sleep.
	MaxJitterSeconds int `mapstructure:"max_jitter_seconds" default:"1"`
}

// Policy builds a runtime Policy from the configuration. The Retryable
// predicate is left for the caller to supply.
func (c Config) Policy(retryable func(error) bool) Policy {
	p := Policy{
		MaxRetries: c.MaxRetries,
		BaseDelay:  time.Duration(c.BaseDelaySeconds) * time.Second,
		Factor:     c.Factor,
		MaxJitter:  time.Duration(c.MaxJitterSeconds) * time.Second,
		Retryable:  retryable,
	}
	if p.MaxRetries <= 0 {
		p.MaxRetries = 3
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = time.Second
	}
	if p.Factor <= 1 {
		p.Factor = 2
	}
	return p
}
