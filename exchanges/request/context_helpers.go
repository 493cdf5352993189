package request

import "context"

type contextKey int

const (
	verboseKey contextKey = iota
	delayNotAllowedKey
	retryNotAllowedKey
)

// WithVerbose adds verbosity to a request context so that specific requests
// can have distinct verbosity without impacting all requests.
func WithVerbose(ctx context.Context) context.Context {
	return context.WithValue(ctx, verboseKey, true)
}

// IsVerbose checks main verbosity first then checks context verbose values
// for specific request verbosity.
func IsVerbose(ctx context.Context, verbose bool) bool {
	if !verbose {
		verbose, _ = ctx.Value(verboseKey).(bool)
	}
	return verbose
}

// WithDelayNotAllowed marks a request as failing instead of waiting on the
// rate limiter.
func WithDelayNotAllowed(ctx context.Context) context.Context {
	return context.WithValue(ctx, delayNotAllowedKey, true)
}

func hasDelayNotAllowed(ctx context.Context) bool {
	v, _ := ctx.Value(delayNotAllowedKey).(bool)
	return v
}

// WithRetryNotAllowed marks a request as single shot. Withdrawals use this
// as they are not idempotent.
func WithRetryNotAllowed(ctx context.Context) context.Context {
	return context.WithValue(ctx, retryNotAllowedKey, true)
}

// IsRetryNotAllowed reports whether the request context forbids retries
func IsRetryNotAllowed(ctx context.Context) bool {
	v, _ := ctx.Value(retryNotAllowedKey).(bool)
	return v
}
