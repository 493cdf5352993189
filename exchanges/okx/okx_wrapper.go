package okx

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/gctwithdraw/common/cache"
	"github.com/thrasher-corp/gctwithdraw/common/convert"
	"github.com/thrasher-corp/gctwithdraw/config"
	exchange "github.com/thrasher-corp/gctwithdraw/exchanges"
	"github.com/thrasher-corp/gctwithdraw/log"
	"github.com/thrasher-corp/gctwithdraw/portfolio/withdraw"
)

const (
	currenciesCacheKey = "currencies"
	priceCachePrefix   = "price:"
	usdQuote           = "USDT"
	withdrawSubmitted  = "submitted"
)

// GetDefaultConfig returns a default exchange config
func (ok *Okx) GetDefaultConfig() *config.ExchangeConfig {
	ok.SetDefaults()
	return &config.ExchangeConfig{
		Name:        ok.Name,
		Enabled:     true,
		HTTPTimeout: exchange.DefaultHTTPTimeout,
		API: config.APIConfig{
			Credentials: config.APICredentialsConfig{
				Key:      config.DefaultAPIKey,
				Secret:   config.DefaultAPISecret,
				ClientID: config.DefaultAPIClientID,
			},
		},
	}
}

// SetDefaults sets the basic defaults for OKX
func (ok *Okx) SetDefaults() {
	ok.Name = config.OKX
	ok.Enabled = true
	ok.Verbose = false
	ok.API.AuthenticatedSupport = false
	if err := ok.SetAPIURL(exchange.RestSpot, apiURL); err != nil {
		log.Errorln(log.ExchangeSys, err)
	}
	ok.Cache = cache.New(exchange.DefaultCacheTTL, 0)
	if err := ok.SetupRequester(SetRateLimit(), nil); err != nil {
		log.Errorln(log.ExchangeSys, err)
	}
}

// Setup takes in the supplied exchange configuration details and sets params
func (ok *Okx) Setup(exch *config.ExchangeConfig) error {
	if exch == nil {
		return exchange.ErrNilExchangeConfig
	}
	if !exch.Enabled {
		ok.SetEnabled(false)
		return nil
	}
	if err := ok.SetupDefaults(exch); err != nil {
		return err
	}
	return ok.SetupRequester(SetRateLimit(), exch.RateLimits)
}

// SyncServerTime refreshes the offset between the local and server clocks
func (ok *Okx) SyncServerTime(ctx context.Context) error {
	sent := time.Now()
	st, err := ok.GetSystemTime(ctx)
	if err != nil {
		return err
	}
	offset := ok.SetServerTimeOffset(st, sent, time.Now())
	log.Infof(log.TimeMgr, "%s server time offset: %s", ok.Name, offset)
	return nil
}

// EncodeAddress joins a destination tag to the address. EVM addresses carry
// no tag and are returned unchanged.
func (ok *Okx) EncodeAddress(address, label string) string {
	return withdraw.EncodeAddressWithLabel(address, label)
}

// GetWithdrawableCoins returns coins with at least one chain open for
// withdrawal
func (ok *Okx) GetWithdrawableCoins(ctx context.Context) ([]string, error) {
	currencies, err := ok.getCurrencies(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	resp := make([]string, 0, len(currencies))
	for i := range currencies {
		if !currencies[i].CanWithdraw {
			continue
		}
		if _, exists := seen[currencies[i].Currency]; exists {
			continue
		}
		seen[currencies[i].Currency] = struct{}{}
		resp = append(resp, currencies[i].Currency)
	}
	sort.Strings(resp)
	return resp, nil
}

// GetBalance returns the available funding account balance of an asset
func (ok *Okx) GetBalance(ctx context.Context, asset string) (decimal.Decimal, error) {
	asset = strings.ToUpper(asset)
	balances, err := ok.GetFundingBalances(ctx, asset)
	if err != nil {
		return decimal.Zero, err
	}
	for i := range balances {
		if balances[i].Currency != asset {
			continue
		}
		return convert.DecimalFromString(balances[i].AvailBal)
	}
	if ok.Verbose {
		log.Debugf(log.ExchangeSys, "%s no funding balance for %s, assuming 0", ok.Name, asset)
	}
	return decimal.Zero, nil
}

// GetNetworks returns the chains a coin can be withdrawn on with the coin
// prefix removed, "USDT-TRC20" is returned as "TRC20"
func (ok *Okx) GetNetworks(ctx context.Context, coin string) ([]string, error) {
	chains, err := ok.getCoinChains(ctx, coin)
	if err != nil {
		return nil, err
	}
	networks := make([]string, 0, len(chains))
	for i := range chains {
		if chains[i].CanWithdraw {
			networks = append(networks, normaliseChain(chains[i].Currency, chains[i].Chain))
		}
	}
	return networks, nil
}

// GetWithdrawalFee returns the minimum withdrawal fee of a coin on a chain
func (ok *Okx) GetWithdrawalFee(ctx context.Context, coin, network string) (decimal.Decimal, error) {
	c, err := ok.getWithdrawableChain(ctx, coin, network)
	if err != nil {
		return decimal.Zero, err
	}
	return convert.DecimalFromString(c.MinFee)
}

// GetWithdrawPrecision returns the number of fractional digits accepted for a
// withdrawal, derived from the minimum withdrawal then the withdrawal tick
// size
func (ok *Okx) GetWithdrawPrecision(ctx context.Context, coin, network string) (int, error) {
	c, err := ok.getWithdrawableChain(ctx, coin, network)
	if err != nil {
		return 0, err
	}
	return chainPrecision(c)
}

// chainPrecision counts every written digit of minWd, so "0.0010" allows
// four places
func chainPrecision(c *CurrencyResponse) (int, error) {
	if strings.Contains(c.MinWithdrawal, ".") {
		return convert.FractionDigits(c.MinWithdrawal), nil
	}
	if tick, err := strconv.Atoi(strings.TrimSpace(c.WithdrawalTickSize)); err == nil && tick >= 0 {
		return tick, nil
	}
	if _, err := decimal.NewFromString(strings.TrimSpace(c.MinWithdrawal)); err == nil {
		return 0, nil
	}
	return 0, fmt.Errorf("%w: %s", exchange.ErrPrecisionUnavailable, c.Chain)
}

// Withdraw submits a crypto withdrawal request on the full chain name with
// the chain fee attached
func (ok *Okx) Withdraw(ctx context.Context, r *withdraw.Request) (*withdraw.Response, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	c, err := ok.getWithdrawableChain(ctx, r.Coin, r.Network)
	if err != nil {
		return nil, err
	}
	fee := r.Fee
	if fee.IsZero() {
		if fee, err = convert.DecimalFromString(c.MinFee); err != nil {
			return nil, err
		}
	}
	resp, err := ok.Withdrawal(ctx, &WithdrawalInput{
		Amount:                r.AmountString(),
		TransactionFee:        fee.String(),
		WithdrawalDestination: onChainWithdrawal,
		Currency:              c.Currency,
		ChainName:             c.Chain,
		ToAddress:             r.Address,
		ClientID:              r.ClientOrderID,
	})
	if err != nil {
		return nil, err
	}
	localID, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	return &withdraw.Response{
		ID:             localID,
		Exchange:       ok.Name,
		ExchangeID:     resp.WithdrawalID,
		Status:         withdrawSubmitted,
		RequestDetails: *r,
		CreatedAt:      time.Now(),
	}, nil
}

// GetPrice returns the USD price of a coin using the last price of its USDT
// market
func (ok *Okx) GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	symbol = strings.ToUpper(symbol)
	if symbol == usdQuote {
		return decimal.NewFromInt(1), nil
	}
	key := priceCachePrefix + symbol
	if ok.Cache != nil {
		if v, found := ok.Cache.Get(key); found {
			if price, isDecimal := v.(decimal.Decimal); isDecimal {
				return price, nil
			}
		}
	}
	ticker, err := ok.GetTicker(ctx, symbol+"-"+usdQuote)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s: %w", exchange.ErrPriceUnavailable, symbol, err)
	}
	price, err := convert.DecimalFromString(ticker.LastPrice)
	if err != nil {
		return decimal.Zero, err
	}
	if !price.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s", exchange.ErrPriceUnavailable, symbol)
	}
	if ok.Cache != nil {
		ok.Cache.Add(key, price)
	}
	return price, nil
}

// GetWithdrawalHistory returns recent withdrawals, an empty coin returns all
func (ok *Okx) GetWithdrawalHistory(ctx context.Context, coin string) ([]withdraw.HistoryItem, error) {
	history, err := ok.GetWithdrawals(ctx, coin, 0)
	if err != nil {
		return nil, err
	}
	resp := make([]withdraw.HistoryItem, 0, len(history))
	for i := range history {
		amount, err := convert.DecimalFromString(history[i].Amount)
		if err != nil {
			return nil, err
		}
		fee, err := convert.DecimalFromString(history[i].WithdrawalFee)
		if err != nil {
			return nil, err
		}
		ts, err := convert.TimeFromUnixMilliString(history[i].Timestamp)
		if err != nil {
			return nil, err
		}
		status, found := withdrawalStateNames[history[i].StateOfWithdrawal]
		if !found {
			status = "unknown (" + history[i].StateOfWithdrawal + ")"
		}
		resp = append(resp, withdraw.HistoryItem{
			ID:      history[i].WithdrawalID,
			Coin:    history[i].Currency,
			Network: normaliseChain(history[i].Currency, history[i].ChainName),
			Amount:  amount,
			Fee:     fee,
			Address: history[i].ToReceivingAddress,
			TxID:    history[i].TransactionID,
			Status:  status,
			Time:    ts.UTC(),
		})
	}
	return resp, nil
}

// normaliseChain strips the currency prefix from a chain name
func normaliseChain(ccy, chain string) string {
	return strings.TrimPrefix(chain, ccy+"-")
}

// getCurrencies returns the cached currency chains or fetches them
func (ok *Okx) getCurrencies(ctx context.Context) ([]CurrencyResponse, error) {
	if ok.Cache != nil {
		if v, found := ok.Cache.Get(currenciesCacheKey); found {
			if currencies, isSlice := v.([]CurrencyResponse); isSlice {
				return currencies, nil
			}
		}
	}
	currencies, err := ok.GetCurrencies(ctx, "")
	if err != nil {
		return nil, err
	}
	if ok.Cache != nil {
		ok.Cache.Add(currenciesCacheKey, currencies)
	}
	return currencies, nil
}

func (ok *Okx) getCoinChains(ctx context.Context, coin string) ([]CurrencyResponse, error) {
	currencies, err := ok.getCurrencies(ctx)
	if err != nil {
		return nil, err
	}
	coin = strings.ToUpper(coin)
	var chains []CurrencyResponse
	for i := range currencies {
		if currencies[i].Currency == coin {
			chains = append(chains, currencies[i])
		}
	}
	if len(chains) == 0 {
		return nil, fmt.Errorf("%s %w: %s", ok.Name, exchange.ErrCoinNotFound, coin)
	}
	return chains, nil
}

func (ok *Okx) getWithdrawableChain(ctx context.Context, coin, network string) (*CurrencyResponse, error) {
	chains, err := ok.getCoinChains(ctx, coin)
	if err != nil {
		return nil, err
	}
	for i := range chains {
		if !strings.EqualFold(normaliseChain(chains[i].Currency, chains[i].Chain), network) &&
			!strings.EqualFold(chains[i].Chain, network) {
			continue
		}
		if !chains[i].CanWithdraw {
			return nil, fmt.Errorf("%s %w: %s", ok.Name, exchange.ErrWithdrawalsDisabled, chains[i].Chain)
		}
		return &chains[i], nil
	}
	return nil, fmt.Errorf("%s %w: %s %s", ok.Name, exchange.ErrNetworkNotFound, strings.ToUpper(coin), network)
}

var (
	_ exchange.Gateway        = (*Okx)(nil)
	_ exchange.AddressEncoder = (*Okx)(nil)
)
