package request

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// Const here define individual functionality sub types for rate limiting
const (
	Unset EndpointLimit = iota
	Auth
	UnAuth
)

var (
	// ErrDelayNotAllowed is returned when a rate limit delay is required but
	// the request context forbids waiting
	ErrDelayNotAllowed = errors.New("delay not allowed")

	errRateLimiterAlreadyDisabled = errors.New("rate limiter already disabled")
	errRateLimiterAlreadyEnabled  = errors.New("rate limiter already enabled")
	errLimiterNotFound            = errors.New("rate limiter not found for endpoint")
)

// EndpointLimit defines individual endpoint rate limits that are set when
// New is called.
type EndpointLimit int

// Limiter interface groups rate limit functionality defined in the REST
// wrapper for extended rate limiting configuration
type Limiter interface {
	Limit(context.Context, EndpointLimit) error
}

// RateLimitDefinitions maps endpoint classes to their limiters
type RateLimitDefinitions map[EndpointLimit]*rate.Limiter

// Limit waits on the limiter registered for the endpoint class
func (r RateLimitDefinitions) Limit(ctx context.Context, e EndpointLimit) error {
	rl, ok := r[e]
	if !ok {
		return fmt.Errorf("%w %d", errLimiterNotFound, e)
	}
	return wait(ctx, rl)
}

// BasicLimit denotes basic rate limit that implements the Limiter interface
// does not need to set endpoint functionality.
type BasicLimit struct {
	r *rate.Limiter
}

// Limit executes a single rate limit set by NewRateLimit
func (b *BasicLimit) Limit(ctx context.Context, _ EndpointLimit) error {
	return wait(ctx, b.r)
}

// NewBasicRateLimit returns an object that implements the limiter interface
// for basic rate limit
func NewBasicRateLimit(interval time.Duration, actions int) *BasicLimit {
	return &BasicLimit{NewRateLimit(interval, actions)}
}

// NewRateLimit creates a new RateLimit based of time interval and how many
// actions allowed and breaks it down to an actions-per-second basis -- Burst
// rate is kept as one as this is not supported for out-bound requests.
func NewRateLimit(interval time.Duration, actions int) *rate.Limiter {
	if actions <= 0 || interval <= 0 {
		// Returns an un-restricted rate limiter
		return rate.NewLimiter(rate.Inf, 1)
	}

	i := 1 / interval.Seconds()
	rps := i * float64(actions)
	return rate.NewLimiter(rate.Limit(rps), 1)
}

func wait(ctx context.Context, rl *rate.Limiter) error {
	reservation := rl.Reserve()
	delay := reservation.Delay()
	if delay == 0 {
		return nil
	}

	if hasDelayNotAllowed(ctx) {
		reservation.Cancel()
		return fmt.Errorf("%w: %s", ErrDelayNotAllowed, delay)
	}

	if dl, ok := ctx.Deadline(); ok && time.Until(dl) < delay {
		reservation.Cancel()
		return fmt.Errorf("rate limit delay of %s will exceed deadline: %w", delay, context.DeadlineExceeded)
	}

	tick := time.NewTimer(delay)
	defer tick.Stop()
	select {
	case <-tick.C:
		return nil
	case <-ctx.Done():
		reservation.Cancel()
		return ctx.Err()
	}
}

// InitiateRateLimit sleeps for designated end point rate limits
func (r *Requester) InitiateRateLimit(ctx context.Context, e EndpointLimit) error {
	if r == nil {
		return errRequestSystemIsNil
	}
	if atomic.LoadInt32(&r.disableRateLimiter) == 1 {
		return nil
	}
	if r.limiter == nil {
		return nil
	}
	return r.limiter.Limit(ctx, e)
}

// DisableRateLimiter disables the rate limiting system for the exchange
func (r *Requester) DisableRateLimiter() error {
	if r == nil {
		return errRequestSystemIsNil
	}
	if !atomic.CompareAndSwapInt32(&r.disableRateLimiter, 0, 1) {
		return errRateLimiterAlreadyDisabled
	}
	return nil
}

// EnableRateLimiter enables the rate limiting system for the exchange
func (r *Requester) EnableRateLimiter() error {
	if r == nil {
		return errRequestSystemIsNil
	}
	if !atomic.CompareAndSwapInt32(&r.disableRateLimiter, 1, 0) {
		return errRateLimiterAlreadyEnabled
	}
	return nil
}
