package okx

// withdrawalStateNames maps withdrawal history states to a readable status
var withdrawalStateNames = map[string]string{
	"-3": "cancelling",
	"-2": "cancelled",
	"-1": "failed",
	"0":  "waiting withdrawal",
	"1":  "broadcasting",
	"2":  "completed",
	"7":  "approved",
	"8":  "waiting transfer",
	"10": "waiting transfer",
	"12": "pending validation",
}

// ServerTime holds the exchange system time in unix milliseconds
type ServerTime struct {
	Timestamp string `json:"ts"`
}

// CurrencyResponse represents a currency on a single chain
type CurrencyResponse struct {
	CanDeposit         bool   `json:"canDep"`
	CanWithdraw        bool   `json:"canWd"`
	Currency           string `json:"ccy"`
	Chain              string `json:"chain"`
	MainNet            bool   `json:"mainNet"`
	MaxFee             string `json:"maxFee"`
	MinFee             string `json:"minFee"`
	MinWithdrawal      string `json:"minWd"`
	MaxWithdrawal      string `json:"maxWd"`
	WithdrawalTickSize string `json:"wdTickSz"`
	Name               string `json:"name"`
}

// AssetBalance represents a funding account balance
type AssetBalance struct {
	AvailBal      string `json:"availBal"`
	Balance       string `json:"bal"`
	Currency      string `json:"ccy"`
	FrozenBalance string `json:"frozenBal"`
}

// WithdrawalInput is an on chain withdrawal request
type WithdrawalInput struct {
	Amount                string `json:"amt"`
	TransactionFee        string `json:"fee"`
	WithdrawalDestination string `json:"dest"`
	Currency              string `json:"ccy"`
	ChainName             string `json:"chain"`
	ToAddress             string `json:"toAddr"`
	ClientID              string `json:"clientId,omitempty"`
}

// WithdrawalResponse is returned for an accepted withdrawal
type WithdrawalResponse struct {
	Amount       string `json:"amt"`
	WithdrawalID string `json:"wdId"`
	Currency     string `json:"ccy"`
	ClientID     string `json:"clientId"`
	Chain        string `json:"chain"`
}

// WithdrawalHistoryResponse represents a historic withdrawal
type WithdrawalHistoryResponse struct {
	ChainName          string `json:"chain"`
	WithdrawalFee      string `json:"fee"`
	Currency           string `json:"ccy"`
	ClientID           string `json:"clientId"`
	Amount             string `json:"amt"`
	TransactionID      string `json:"txId"`
	ToReceivingAddress string `json:"to"`
	StateOfWithdrawal  string `json:"state"`
	Timestamp          string `json:"ts"`
	WithdrawalID       string `json:"wdId"`
}

// TickerResponse holds the last traded price of an instrument
type TickerResponse struct {
	InstrumentID string `json:"instId"`
	LastPrice    string `json:"last"`
	Timestamp    string `json:"ts"`
}
