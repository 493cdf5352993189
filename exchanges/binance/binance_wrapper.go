package binance

import (
	"context"
	"fmt"
	"sort"
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
	coinsInfoCacheKey = "coinsInfo"
	priceCachePrefix  = "price:"
	usdQuote          = "USDT"
	withdrawSubmitted = "submitted"
)

// GetDefaultConfig returns a default exchange config
func (b *Binance) GetDefaultConfig() *config.ExchangeConfig {
	b.SetDefaults()
	return &config.ExchangeConfig{
		Name:        b.Name,
		Enabled:     true,
		HTTPTimeout: exchange.DefaultHTTPTimeout,
		API: config.APIConfig{
			Credentials: config.APICredentialsConfig{
				Key:    config.DefaultAPIKey,
				Secret: config.DefaultAPISecret,
			},
		},
	}
}

// SetDefaults sets the basic defaults for Binance
func (b *Binance) SetDefaults() {
	b.Name = config.Binance
	b.Enabled = true
	b.Verbose = false
	b.API.AuthenticatedSupport = false
	if err := b.SetAPIURL(exchange.RestSpot, apiURL); err != nil {
		log.Errorln(log.ExchangeSys, err)
	}
	b.Cache = cache.New(exchange.DefaultCacheTTL, 0)
	if err := b.SetupRequester(SetRateLimit(), nil); err != nil {
		log.Errorln(log.ExchangeSys, err)
	}
}

// Setup takes in the supplied exchange configuration details and sets params
func (b *Binance) Setup(exch *config.ExchangeConfig) error {
	if exch == nil {
		return exchange.ErrNilExchangeConfig
	}
	if !exch.Enabled {
		b.SetEnabled(false)
		return nil
	}
	if err := b.SetupDefaults(exch); err != nil {
		return err
	}
	return b.SetupRequester(SetRateLimit(), exch.RateLimits)
}

// SyncServerTime refreshes the offset between the local and server clocks
func (b *Binance) SyncServerTime(ctx context.Context) error {
	sent := time.Now()
	st, err := b.GetServerTime(ctx)
	if err != nil {
		return err
	}
	offset := b.SetServerTimeOffset(st, sent, time.Now())
	log.Infof(log.TimeMgr, "%s server time offset: %s", b.Name, offset)
	return nil
}

// GetWithdrawableCoins returns coins with at least one network open for
// withdrawal
func (b *Binance) GetWithdrawableCoins(ctx context.Context) ([]string, error) {
	coins, err := b.getCoinsInfo(ctx)
	if err != nil {
		return nil, err
	}
	resp := make([]string, 0, len(coins))
	for i := range coins {
		for j := range coins[i].NetworkList {
			if coins[i].NetworkList[j].WithdrawEnable {
				resp = append(resp, coins[i].Coin)
				break
			}
		}
	}
	sort.Strings(resp)
	return resp, nil
}

// GetBalance returns the free balance of an asset across the spot and
// funding wallets. A funding wallet failure is logged and counted as zero.
func (b *Binance) GetBalance(ctx context.Context, asset string) (decimal.Decimal, error) {
	asset = strings.ToUpper(asset)
	acc, err := b.GetAccount(ctx)
	if err != nil {
		return decimal.Zero, err
	}

	spot := decimal.Zero
	for i := range acc.Balances {
		if acc.Balances[i].Asset != asset {
			continue
		}
		spot, err = convert.DecimalFromString(acc.Balances[i].Free)
		if err != nil {
			return decimal.Zero, err
		}
		break
	}

	funding := decimal.Zero
	fundingAssets, err := b.GetFundingAsset(ctx, asset)
	if err != nil {
		log.Warnf(log.ExchangeSys, "%s unable to fetch funding wallet balance for %s, assuming 0: %v", b.Name, asset, err)
	} else {
		for i := range fundingAssets {
			if fundingAssets[i].Asset != asset {
				continue
			}
			funding, err = convert.DecimalFromString(fundingAssets[i].Free)
			if err != nil {
				return decimal.Zero, err
			}
			break
		}
	}

	total := spot.Add(funding)
	if b.Verbose {
		log.Debugf(log.ExchangeSys, "%s %s balance spot: %s funding: %s total: %s", b.Name, asset, spot, funding, total)
	}
	return total, nil
}

// GetNetworks returns the networks a coin can be withdrawn on
func (b *Binance) GetNetworks(ctx context.Context, coin string) ([]string, error) {
	info, err := b.getCoinInfo(ctx, coin)
	if err != nil {
		return nil, err
	}
	networks := make([]string, 0, len(info.NetworkList))
	for i := range info.NetworkList {
		if info.NetworkList[i].WithdrawEnable {
			networks = append(networks, info.NetworkList[i].Network)
		}
	}
	return networks, nil
}

// GetWithdrawalFee returns the withdrawal fee of a coin on a network
func (b *Binance) GetWithdrawalFee(ctx context.Context, coin, network string) (decimal.Decimal, error) {
	n, err := b.getWithdrawableNetwork(ctx, coin, network)
	if err != nil {
		return decimal.Zero, err
	}
	return convert.DecimalFromString(n.WithdrawFee)
}

// GetWithdrawPrecision returns the number of fractional digits accepted for a
// withdrawal. The withdrawal multiple is preferred, falling back to the
// decimals of the minimum withdrawal then the fee.
func (b *Binance) GetWithdrawPrecision(ctx context.Context, coin, network string) (int, error) {
	n, err := b.getNetwork(ctx, coin, network)
	if err != nil {
		return 0, err
	}
	return networkPrecision(n)
}

func networkPrecision(n *NetworkInfo) (int, error) {
	if multiple, err := decimal.NewFromString(strings.TrimSpace(n.WithdrawIntegerMultiple)); err == nil && multiple.IsPositive() {
		return convert.DecimalPlaces(n.WithdrawIntegerMultiple), nil
	}
	for _, field := range []string{n.WithdrawMin, n.WithdrawFee} {
		if strings.Contains(field, ".") {
			return convert.DecimalPlaces(field), nil
		}
	}
	return 0, fmt.Errorf("%w: %s %s", exchange.ErrPrecisionUnavailable, n.Coin, n.Network)
}

// Withdraw submits a crypto withdrawal request
func (b *Binance) Withdraw(ctx context.Context, r *withdraw.Request) (*withdraw.Response, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	id, err := b.WithdrawCrypto(ctx,
		r.Coin,
		r.ClientOrderID,
		r.Network,
		r.Address,
		r.AddressTag,
		r.AmountString())
	if err != nil {
		return nil, err
	}
	localID, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	return &withdraw.Response{
		ID:             localID,
		Exchange:       b.Name,
		ExchangeID:     id,
		Status:         withdrawSubmitted,
		RequestDetails: *r,
		CreatedAt:      time.Now(),
	}, nil
}

// GetPrice returns the USD price of a coin using its USDT market
func (b *Binance) GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	symbol = strings.ToUpper(symbol)
	if symbol == usdQuote {
		return decimal.NewFromInt(1), nil
	}
	key := priceCachePrefix + symbol
	if b.Cache != nil {
		if v, ok := b.Cache.Get(key); ok {
			if price, ok := v.(decimal.Decimal); ok {
				return price, nil
			}
		}
	}
	resp, err := b.GetSymbolPrice(ctx, symbol+usdQuote)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s: %w", exchange.ErrPriceUnavailable, symbol, err)
	}
	price, err := convert.DecimalFromString(resp.Price)
	if err != nil {
		return decimal.Zero, err
	}
	if !price.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s", exchange.ErrPriceUnavailable, symbol)
	}
	if b.Cache != nil {
		b.Cache.Add(key, price)
	}
	return price, nil
}

// GetWithdrawalHistory returns recent withdrawals, an empty coin returns all
func (b *Binance) GetWithdrawalHistory(ctx context.Context, coin string) ([]withdraw.HistoryItem, error) {
	history, err := b.WithdrawHistory(ctx, coin, "", time.Time{}, time.Time{}, 0, 0)
	if err != nil {
		return nil, err
	}
	resp := make([]withdraw.HistoryItem, 0, len(history))
	for i := range history {
		amount, err := convert.DecimalFromString(history[i].Amount)
		if err != nil {
			return nil, err
		}
		fee, err := convert.DecimalFromString(history[i].TransactionFee)
		if err != nil {
			return nil, err
		}
		var applied time.Time
		if history[i].ApplyTime != "" {
			applied, err = time.ParseInLocation(time.DateTime, history[i].ApplyTime, time.UTC)
			if err != nil {
				return nil, err
			}
		}
		status, ok := withdrawStatusNames[history[i].Status]
		if !ok {
			status = fmt.Sprintf("unknown (%d)", history[i].Status)
		}
		resp = append(resp, withdraw.HistoryItem{
			ID:      history[i].ID,
			Coin:    history[i].Coin,
			Network: history[i].Network,
			Amount:  amount,
			Fee:     fee,
			Address: history[i].Address,
			TxID:    history[i].TransactionID,
			Status:  status,
			Time:    applied,
		})
	}
	return resp, nil
}

// getCoinsInfo returns the cached coin configuration or fetches it
func (b *Binance) getCoinsInfo(ctx context.Context) ([]CoinInfo, error) {
	if b.Cache != nil {
		if v, ok := b.Cache.Get(coinsInfoCacheKey); ok {
			if coins, ok := v.([]CoinInfo); ok {
				return coins, nil
			}
		}
	}
	coins, err := b.GetAllCoinsInfo(ctx)
	if err != nil {
		return nil, err
	}
	if b.Cache != nil {
		b.Cache.Add(coinsInfoCacheKey, coins)
	}
	return coins, nil
}

func (b *Binance) getCoinInfo(ctx context.Context, coin string) (*CoinInfo, error) {
	coins, err := b.getCoinsInfo(ctx)
	if err != nil {
		return nil, err
	}
	coin = strings.ToUpper(coin)
	for i := range coins {
		if coins[i].Coin == coin {
			return &coins[i], nil
		}
	}
	return nil, fmt.Errorf("%s %w: %s", b.Name, exchange.ErrCoinNotFound, coin)
}

func (b *Binance) getNetwork(ctx context.Context, coin, network string) (*NetworkInfo, error) {
	info, err := b.getCoinInfo(ctx, coin)
	if err != nil {
		return nil, err
	}
	network = strings.ToUpper(network)
	for i := range info.NetworkList {
		if info.NetworkList[i].Network == network {
			return &info.NetworkList[i], nil
		}
	}
	return nil, fmt.Errorf("%s %w: %s %s", b.Name, exchange.ErrNetworkNotFound, info.Coin, network)
}

func (b *Binance) getWithdrawableNetwork(ctx context.Context, coin, network string) (*NetworkInfo, error) {
	n, err := b.getNetwork(ctx, coin, network)
	if err != nil {
		return nil, err
	}
	if !n.WithdrawEnable {
		return nil, fmt.Errorf("%s %w: %s %s", b.Name, exchange.ErrWithdrawalsDisabled, n.Coin, n.Network)
	}
	return n, nil
}

var _ exchange.Gateway = (*Binance)(nil)
