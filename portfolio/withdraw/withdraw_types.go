package withdraw

import (
	"errors"
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

// MaxIntervalSeconds is the longest allowed pause between two withdrawals
const MaxIntervalSeconds = 24 * 60 * 60

var (
	// ErrRequestCannotBeNil message to return when a request is nil
	ErrRequestCannotBeNil = errors.New("request cannot be nil")
	// ErrExchangeNameUnset is returned when a request names no exchange
	ErrExchangeNameUnset = errors.New("exchange name unset")
	// ErrNoCurrencySet is returned when no coin is set
	ErrNoCurrencySet = errors.New("currency not set")
	// ErrNetworkNotSet is returned when no network is set
	ErrNetworkNotSet = errors.New("network not set")
	// ErrAddressNotSet is returned when the destination address is empty
	ErrAddressNotSet = errors.New("address cannot be empty")
	// ErrAmountMustBeGreaterThanZero is returned for zero or negative amounts
	ErrAmountMustBeGreaterThanZero = errors.New("amount must be greater than 0")
	// ErrFeeCannotBeNegative is returned for negative fees
	ErrFeeCannotBeNegative = errors.New("fee amount cannot be negative")
	// ErrInvalidAmountRange is returned when min amount exceeds max amount
	ErrInvalidAmountRange = errors.New("min amount must not exceed max amount")
	// ErrInvalidAddressRange is returned when the address range is outside
	// of the loaded address list
	ErrInvalidAddressRange = errors.New("invalid address range")
	// ErrInvalidIntervalRange is returned for negative or inverted intervals
	ErrInvalidIntervalRange = errors.New("invalid interval range")
	// ErrIntervalTooLarge is returned when the max interval exceeds
	// MaxIntervalSeconds
	ErrIntervalTooLarge = errors.New("interval exceeds the allowed maximum")
	// ErrNoAddresses is returned when no addresses are loaded
	ErrNoAddresses = errors.New("no addresses loaded")
	// ErrInvalidPrecision is returned for a negative precision
	ErrInvalidPrecision = errors.New("precision cannot be negative")
)

// AddressRecord is a single destination from an imported address list
type AddressRecord struct {
	Address string `json:"address"`
	Label   string `json:"label,omitempty"`
}

// BatchParameters defines a batch run. Indices are 0-based and inclusive,
// intervals are seconds
type BatchParameters struct {
	Coin        string          `json:"coin"`
	Network     string          `json:"network"`
	MinAmount   decimal.Decimal `json:"minAmount"`
	MaxAmount   decimal.Decimal `json:"maxAmount"`
	StartIndex  int             `json:"startIndex"`
	EndIndex    int             `json:"endIndex"`
	MinInterval int             `json:"minInterval"`
	MaxInterval int             `json:"maxInterval"`
}

// Plan is the transient per address withdrawal plan
type Plan struct {
	Index     int
	Address   string
	Label     string
	RawAmount decimal.Decimal
	Amount    decimal.Decimal
	Precision int
	Fee       decimal.Decimal
}

// RunState is the mutable state of a batch run
type RunState struct {
	Running       bool
	Processed     int
	Total         int
	UsedAddresses map[string]struct{}
}

// ConfirmationRequest asks the operator to approve a withdrawal
type ConfirmationRequest struct {
	ID       uuid.UUID       `json:"id"`
	Coin     string          `json:"coin"`
	Network  string          `json:"network"`
	Amount   decimal.Decimal `json:"amount"`
	Address  string          `json:"address"`
	Memo     string          `json:"memo,omitempty"`
	IsLarge  bool            `json:"isLarge"`
	USDValue decimal.Decimal `json:"usdValue"`
}

// ConfirmationResponse is the operator decision for a ConfirmationRequest.
// ConfirmAll skips the gate for the rest of the run
type ConfirmationResponse struct {
	ID         uuid.UUID `json:"id"`
	Confirmed  bool      `json:"confirmed"`
	ConfirmAll bool      `json:"confirmAll"`
}

// Request holds complete details for a crypto withdrawal request
type Request struct {
	Exchange      string          `json:"exchange"`
	Coin          string          `json:"coin"`
	Network       string          `json:"network"`
	Address       string          `json:"address"`
	AddressTag    string          `json:"addressTag,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Precision     int             `json:"precision"`
	Fee           decimal.Decimal `json:"fee"`
	ClientOrderID string          `json:"clientID,omitempty"`
}

// Response holds complete details for a submitted withdrawal
type Response struct {
	ID             uuid.UUID `json:"id"`
	Exchange       string    `json:"exchange"`
	ExchangeID     string    `json:"exchangeID"`
	Status         string    `json:"status"`
	RequestDetails Request   `json:"requestDetails"`
	CreatedAt      time.Time `json:"createdAt"`
}

// HistoryItem is a withdrawal as reported by an exchange
type HistoryItem struct {
	ID      string          `json:"id"`
	Coin    string          `json:"coin"`
	Network string          `json:"network"`
	Amount  decimal.Decimal `json:"amount"`
	Fee     decimal.Decimal `json:"fee"`
	Address string          `json:"address"`
	TxID    string          `json:"txID"`
	Status  string          `json:"status"`
	Time    time.Time       `json:"time"`
}
