package request

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Const vars for rate limiter and request handling
const (
	DefaultMaxRetryAttempts = 3
	MaxRequestJobs          = 50
	drainBodyLimit          = 100000
	proxyTLSTimeout         = 15 * time.Second
	userAgent               = "User-Agent"
)

var (
	// ErrUnsuccessfulHTTPStatus is wrapped by HTTPError for any non 2xx
	// response
	ErrUnsuccessfulHTTPStatus = errors.New("unsuccessful HTTP status code")

	errRequestSystemIsNil   = errors.New("request system is nil")
	errMaxRequestJobs       = errors.New("max request jobs reached")
	errRequestFunctionIsNil = errors.New("request function is nil")
	errServiceNameUnset     = errors.New("service name unset")
	errRequestItemNil       = errors.New("request item is nil")
	errInvalidPath          = errors.New("invalid path")
	errHTTPClientIsNil      = errors.New("http client is nil")
	errFailedToRetryRequest = errors.New("failed to retry request")
	errNoProxyURL           = errors.New("no proxy URL supplied")
	errTransportNotSet      = errors.New("transport not set, cannot set proxy")
)

// Requester struct for the request client
type Requester struct {
	HTTPClient         *http.Client
	Name               string
	UserAgent          string
	limiter            Limiter
	backoff            Backoff
	retryPolicy        RetryPolicy
	maxRetries         int
	jobs               int32
	disableRateLimiter int32
}

// Item is a temp item for requests
type Item struct {
	Method         string
	Path           string
	Headers        map[string]string
	Body           io.Reader
	Result         any
	Verbose        bool
	HTTPDebugging  bool
	HeaderResponse *http.Header
}

// Generate defines a closure for functionality outside the requester to
// generate a new *http.Request on every attempt. This minimises the chance of
// being outbid by a stale timestamp or signature on retry.
type Generate func() (*Item, error)

// RequesterOption is a function option that can be applied to configure a
// Requester when creating it.
type RequesterOption func(*Requester)

// HTTPError is returned for a response outside of the 2xx range and carries
// the raw body so exchanges can decode their own error payloads
type HTTPError struct {
	Service    string
	StatusCode int
	Body       []byte
}

// Error implements the error interface
func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s %s: %d raw response: %s",
		e.Service,
		ErrUnsuccessfulHTTPStatus,
		e.StatusCode,
		e.Body)
}

// Unwrap allows errors.Is against ErrUnsuccessfulHTTPStatus
func (e *HTTPError) Unwrap() error {
	return ErrUnsuccessfulHTTPStatus
}
