package exchange

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/thrasher-corp/gctwithdraw/common/cache"
	"github.com/thrasher-corp/gctwithdraw/config"
	"github.com/thrasher-corp/gctwithdraw/exchanges/account"
	"github.com/thrasher-corp/gctwithdraw/exchanges/request"
	"github.com/thrasher-corp/gctwithdraw/log"
)

// SetupDefaults sets the exchange settings based on the supplied config
func (b *Base) SetupDefaults(exch *config.ExchangeConfig) error {
	if exch == nil {
		return ErrNilExchangeConfig
	}
	if !strings.EqualFold(exch.Name, b.Name) {
		return fmt.Errorf("%w: %s != %s", errNameMismatch, exch.Name, b.Name)
	}

	b.Enabled = exch.Enabled
	b.Verbose = exch.Verbose
	b.HTTPDebugging = exch.HTTPDebugging
	b.Simulated = exch.Simulated
	b.HTTPUserAgent = exch.HTTPUserAgent
	b.HTTPTimeout = exch.HTTPTimeout
	if b.HTTPTimeout <= 0 {
		b.HTTPTimeout = DefaultHTTPTimeout
	}

	b.API.AuthenticatedSupport = exch.API.AuthenticatedSupport
	if b.API.AuthenticatedSupport {
		b.SetCredentials(exch.API.Credentials.Key,
			exch.API.Credentials.Secret,
			exch.API.Credentials.ClientID)
	}

	for k, v := range exch.API.Endpoints {
		if err := b.SetAPIURL(k, v); err != nil {
			return err
		}
	}

	if b.Cache == nil {
		b.Cache = cache.New(DefaultCacheTTL, 0)
	} else {
		b.Cache.Purge()
	}

	if b.Verbose {
		log.Debugf(log.ExchangeSys, "%s setup complete. Authenticated support: %t simulated: %t",
			b.Name, b.API.AuthenticatedSupport, b.Simulated)
	}
	return nil
}

// SetupRequester creates the HTTP requester for the exchange. Rate limit
// overrides from the config replace the supplied default limiter.
func (b *Base) SetupRequester(defaultLimiter request.Limiter, overrides *config.RateLimitConfig) error {
	limiter := defaultLimiter
	if overrides != nil {
		limiter = request.RateLimitDefinitions{
			request.Auth:   request.NewRateLimit(overrides.Auth.Interval, overrides.Auth.Requests),
			request.UnAuth: request.NewRateLimit(overrides.UnAuth.Interval, overrides.UnAuth.Requests),
		}
	}

	opts := []request.RequesterOption{request.WithLimiter(limiter)}
	if b.HTTPUserAgent != "" {
		opts = append(opts, request.WithUserAgent(b.HTTPUserAgent))
	}
	timeout := b.HTTPTimeout
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}
	r, err := request.New(b.Name,
		&http.Client{Timeout: timeout, Transport: new(http.Transport)},
		opts...)
	if err != nil {
		return err
	}
	b.Requester = r
	return nil
}

// GetName is a method that returns the name of the exchange base
func (b *Base) GetName() string {
	return b.Name
}

// IsEnabled is a method that returns if the current exchange is enabled
func (b *Base) IsEnabled() bool {
	if b == nil {
		return false
	}
	return b.Enabled
}

// SetEnabled is a method that sets if the exchange is enabled
func (b *Base) SetEnabled(enabled bool) {
	b.Enabled = enabled
}

// SetCredentials sets the API credentials used for authenticated requests
func (b *Base) SetCredentials(apiKey, apiSecret, clientID string) {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	b.API.credentials = account.Credentials{
		Key:      apiKey,
		Secret:   apiSecret,
		ClientID: clientID,
	}
}

// GetCredentials returns the credentials for an authenticated request.
// Credentials deployed to the context take precedence over configured ones.
func (b *Base) GetCredentials(ctx context.Context) (*account.Credentials, error) {
	if creds, ok := account.CredentialsFromContext(ctx); ok {
		return creds, nil
	}
	if !b.API.AuthenticatedSupport {
		return nil, fmt.Errorf("%s %w", b.Name, ErrAuthenticationSupportNotEnabled)
	}
	b.mtx.RLock()
	creds := b.API.credentials
	b.mtx.RUnlock()
	if creds.Key == "" || creds.Secret == "" {
		return nil, fmt.Errorf("%s %w", b.Name, ErrCredentialsAreEmpty)
	}
	return &creds, nil
}

// AreCredentialsValid returns if the supplied credentials are usable for an
// authenticated request
func (b *Base) AreCredentialsValid(ctx context.Context) bool {
	_, err := b.GetCredentials(ctx)
	return err == nil
}

// SetAPIURL sets an endpoint URL for the supplied key
func (b *Base) SetAPIURL(key, url string) error {
	if key == "" {
		return errEndpointStringNotFound
	}
	b.mtx.Lock()
	defer b.mtx.Unlock()
	if b.API.Endpoints == nil {
		b.API.Endpoints = make(map[string]string)
	}
	b.API.Endpoints[key] = strings.TrimSuffix(url, "/")
	return nil
}

// GetAPIURL returns the endpoint URL for the supplied key
func (b *Base) GetAPIURL(key string) (string, error) {
	b.mtx.RLock()
	defer b.mtx.RUnlock()
	u, ok := b.API.Endpoints[key]
	if !ok || u == "" {
		return "", fmt.Errorf("%w: %s", errEndpointStringNotFound, key)
	}
	return u, nil
}

// SetServerTimeOffset records the difference between the exchange server clock
// and the local clock using the midpoint of the request round trip
func (b *Base) SetServerTimeOffset(serverTime, sent, received time.Time) time.Duration {
	midpoint := sent.Add(received.Sub(sent) / 2)
	offset := serverTime.Sub(midpoint)
	b.mtx.Lock()
	b.timeOffset = offset
	b.mtx.Unlock()
	if b.Verbose {
		log.Debugf(log.TimeMgr, "%s server time offset set to %s", b.Name, offset)
	}
	return offset
}

// GetServerTimeOffset returns the last recorded server time offset
func (b *Base) GetServerTimeOffset() time.Duration {
	b.mtx.RLock()
	defer b.mtx.RUnlock()
	return b.timeOffset
}

// ServerTime returns the local time adjusted by the server time offset
func (b *Base) ServerTime() time.Time {
	return time.Now().Add(b.GetServerTimeOffset())
}

// SetCacheTTL replaces the exchange cache with one of the supplied lifetime
func (b *Base) SetCacheTTL(ttl time.Duration) {
	b.Cache = cache.New(ttl, 0)
}

// PurgeCache drops all cached coin info, networks and prices
func (b *Base) PurgeCache() {
	if b.Cache != nil {
		b.Cache.Purge()
	}
}

// IsTimestampMessage reports whether an exchange error message describes a
// rejected request timestamp
func IsTimestampMessage(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "timestamp") ||
		strings.Contains(msg, "recvwindow") ||
		strings.Contains(msg, "ahead of server") ||
		strings.Contains(msg, "behind server")
}
