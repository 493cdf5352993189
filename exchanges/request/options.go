package request

// WithLimiter configures the rate limiter for a Requester.
func WithLimiter(l Limiter) RequesterOption {
	return func(r *Requester) {
		r.limiter = l
	}
}

// WithBackoff configures the backoff strategy for a Requester.
func WithBackoff(b Backoff) RequesterOption {
	return func(r *Requester) {
		r.backoff = b
	}
}

// WithRetryPolicy configures the retry policy for a Requester.
func WithRetryPolicy(p RetryPolicy) RequesterOption {
	return func(r *Requester) {
		r.retryPolicy = p
	}
}

// WithMaxRetries sets how many times a retryable request is re-attempted
func WithMaxRetries(n int) RequesterOption {
	return func(r *Requester) {
		if n >= 0 {
			r.maxRetries = n
		}
	}
}

// WithUserAgent sets the User-Agent header added to every request
func WithUserAgent(ua string) RequesterOption {
	return func(r *Requester) {
		r.UserAgent = ua
	}
}
