package request

import "time"

// Backoff determines how long to wait between request attempts.
type Backoff func(n int) time.Duration

// DefaultBackoff is a default strategy for backoff after a retryable request failure.
func DefaultBackoff() Backoff {
	return LinearBackoff(100*time.Millisecond, time.Second)
}

// LinearBackoff applies increasing linear delays with a maximum limit.
func LinearBackoff(base, maxDelay time.Duration) Backoff {
	return func(n int) time.Duration {
		d := base * time.Duration(n)
		if d > maxDelay {
			return maxDelay
		}
		return d
	}
}
