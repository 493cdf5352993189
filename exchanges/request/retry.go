package request

import (
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"
)

const headerRetryAfter = "Retry-After"

// RetryPolicy determines whether the request should be retried, implemented
// with a default strategy.
type RetryPolicy func(resp *http.Response, err error) (bool, error)

// DefaultRetryPolicy determines whether the request should be retried. Timeouts,
// 429 responses and responses carrying a Retry-After header are retried.
func DefaultRetryPolicy(resp *http.Response, err error) (bool, error) {
	if err != nil {
		if timeoutErr(err) {
			return true, nil
		}
		return false, err
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return true, nil
	}

	if resp.Header.Get(headerRetryAfter) != "" {
		return true, nil
	}

	return false, nil
}

// RetryAfter parses the Retry-After header in the response to determine the
// minimum duration needed to wait before retrying.
func RetryAfter(resp *http.Response, now time.Time) time.Duration {
	if resp == nil {
		return 0
	}

	after := resp.Header.Get(headerRetryAfter)
	if after == "" {
		return 0
	}

	if sec, err := strconv.ParseInt(after, 10, 32); err == nil {
		return time.Duration(sec) * time.Second
	}

	if when, err := time.Parse(time.RFC1123, after); err == nil {
		return when.Sub(now)
	}

	return 0
}

func timeoutErr(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
