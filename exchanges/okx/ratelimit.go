package okx

import (
	"time"

	"github.com/thrasher-corp/gctwithdraw/exchanges/request"
)

const (
	// Public market and system endpoints allow 20 requests per 2 seconds
	publicInterval    = 2 * time.Second
	publicRequestRate = 20
	// Funding endpoints allow 6 requests per second per user id
	fundingInterval    = time.Second
	fundingRequestRate = 6
)

// SetRateLimit returns the rate limit for the exchange
func SetRateLimit() request.RateLimitDefinitions {
	return request.RateLimitDefinitions{
		request.UnAuth: request.NewRateLimit(publicInterval, publicRequestRate),
		request.Auth:   request.NewRateLimit(fundingInterval, fundingRequestRate),
	}
}
