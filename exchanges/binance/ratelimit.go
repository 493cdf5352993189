package binance

import (
	"time"

	"github.com/thrasher-corp/gctwithdraw/exchanges/request"
)

const (
	// Binance limit rates
	// Global dictates the max rate limit for general request items which is
	// 6000 request weight per minute
	spotInterval    = time.Minute
	spotRequestRate = 6000
	// SAPI wallet endpoints are limited per IP and UID separately, withdraw
	// apply and coin config are heavy weight endpoints
	sapiInterval    = time.Minute
	sapiRequestRate = 1200
)

// SetRateLimit returns the rate limit for the exchange
func SetRateLimit() request.RateLimitDefinitions {
	return request.RateLimitDefinitions{
		request.UnAuth: request.NewRateLimit(spotInterval, spotRequestRate),
		request.Auth:   request.NewRateLimit(sapiInterval, sapiRequestRate),
	}
}
