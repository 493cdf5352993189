package exchange

import (
	"errors"
	"sync"
	"time"

	"github.com/thrasher-corp/gctwithdraw/common/cache"
	"github.com/thrasher-corp/gctwithdraw/exchanges/account"
	"github.com/thrasher-corp/gctwithdraw/exchanges/request"
)

// Endpoint keys
const (
	RestSpot = "RestSpotURL"
)

const (
	// DefaultHTTPTimeout is the default HTTP/HTTPS Timeout for exchange requests
	DefaultHTTPTimeout = time.Second * 15
	// DefaultCacheTTL is the default lifetime of cached coin info and prices
	DefaultCacheTTL = time.Minute * 5
	// DefaultRecvWindow is the window an exchange accepts a signed timestamp in
	DefaultRecvWindow = time.Second * 5
)

var (
	// ErrTimestampDesync is returned when an exchange rejects a signed request
	// because the local clock is outside of its receive window
	ErrTimestampDesync = errors.New("timestamp desynchronised with exchange server")
	// ErrCredentialsAreEmpty is returned when an authenticated call is made
	// without API credentials
	ErrCredentialsAreEmpty = errors.New("credentials are empty")
	// ErrAuthenticationSupportNotEnabled is returned when authenticated
	// support is disabled for the exchange
	ErrAuthenticationSupportNotEnabled = errors.New("authenticated API support not enabled")
	// ErrCoinNotFound is returned when an exchange does not list a coin
	ErrCoinNotFound = errors.New("coin not found")
	// ErrNetworkNotFound is returned when a coin cannot be withdrawn on a
	// network
	ErrNetworkNotFound = errors.New("network not found")
	// ErrWithdrawalsDisabled is returned when withdrawals are suspended for
	// a coin network
	ErrWithdrawalsDisabled = errors.New("withdrawals disabled")
	// ErrPriceUnavailable is returned when no USD price exists for a coin
	ErrPriceUnavailable = errors.New("price unavailable")
	// ErrPrecisionUnavailable is returned when a precision cannot be derived
	ErrPrecisionUnavailable = errors.New("precision unavailable")
	// ErrNilExchangeConfig is returned when Setup is passed a nil config
	ErrNilExchangeConfig = errors.New("exchange config is nil")

	errEndpointStringNotFound = errors.New("endpoint string not found")
	errNameMismatch           = errors.New("exchange config name does not match exchange")
)

// Base stores the individual exchange information
type Base struct {
	Name          string
	Enabled       bool
	Verbose       bool
	HTTPDebugging bool
	Simulated     bool
	HTTPTimeout   time.Duration
	HTTPUserAgent string

	API       API
	Requester *request.Requester
	Cache     *cache.Cache

	timeOffset time.Duration
	mtx        sync.RWMutex
}

// API stores the exchange API settings
type API struct {
	AuthenticatedSupport bool
	Endpoints            map[string]string

	credentials account.Credentials
}
