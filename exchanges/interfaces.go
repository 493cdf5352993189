package exchange

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/gctwithdraw/config"
	"github.com/thrasher-corp/gctwithdraw/portfolio/withdraw"
)

// Gateway enforces the withdrawal functions for all supported exchanges
type Gateway interface {
	SetDefaults()
	Setup(exch *config.ExchangeConfig) error
	GetName() string
	IsEnabled() bool

	// SyncServerTime refreshes the local to server clock offset
	SyncServerTime(ctx context.Context) error
	// GetWithdrawableCoins returns coins with at least one network open for
	// withdrawal
	GetWithdrawableCoins(ctx context.Context) ([]string, error)
	GetBalance(ctx context.Context, asset string) (decimal.Decimal, error)
	GetNetworks(ctx context.Context, coin string) ([]string, error)
	GetWithdrawalFee(ctx context.Context, coin, network string) (decimal.Decimal, error)
	GetWithdrawPrecision(ctx context.Context, coin, network string) (int, error)
	Withdraw(ctx context.Context, r *withdraw.Request) (*withdraw.Response, error)
	// GetPrice returns the USD price of a coin
	GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
	GetWithdrawalHistory(ctx context.Context, coin string) ([]withdraw.HistoryItem, error)
	PurgeCache()
}

// AddressEncoder is implemented by exchanges which require a destination tag
// to be joined to the address
type AddressEncoder interface {
	EncodeAddress(address, label string) string
}
