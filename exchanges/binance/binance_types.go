package binance

// Withdrawal statuses returned by the withdraw history endpoint
const (
	EmailSent = iota
	Cancelled
	AwaitingApproval
	Rejected
	Processing
	Failure
	Completed
)

var withdrawStatusNames = map[int]string{
	EmailSent:        "email sent",
	Cancelled:        "cancelled",
	AwaitingApproval: "awaiting approval",
	Rejected:         "rejected",
	Processing:       "processing",
	Failure:          "failure",
	Completed:        "completed",
}

// ServerTime holds the exchange server time
type ServerTime struct {
	ServerTime int64 `json:"serverTime"`
}

// CoinInfo stores information about all supported coins
type CoinInfo struct {
	Coin              string        `json:"coin"`
	DepositAllEnable  bool          `json:"depositAllEnable"`
	WithdrawAllEnable bool          `json:"withdrawAllEnable"`
	Free              string        `json:"free"`
	Locked            string        `json:"locked"`
	Name              string        `json:"name"`
	Trading           bool          `json:"trading"`
	NetworkList       []NetworkInfo `json:"networkList"`
}

// NetworkInfo stores the withdrawal rules of a coin on a network
type NetworkInfo struct {
	AddressRegex            string `json:"addressRegex"`
	Coin                    string `json:"coin"`
	DepositEnable           bool   `json:"depositEnable"`
	IsDefault               bool   `json:"isDefault"`
	MemoRegex               string `json:"memoRegex"`
	MinConfirm              int64  `json:"minConfirm"`
	Name                    string `json:"name"`
	Network                 string `json:"network"`
	SpecialTips             string `json:"specialTips"`
	WithdrawEnable          bool   `json:"withdrawEnable"`
	WithdrawFee             string `json:"withdrawFee"`
	WithdrawIntegerMultiple string `json:"withdrawIntegerMultiple"`
	WithdrawMax             string `json:"withdrawMax"`
	WithdrawMin             string `json:"withdrawMin"`
	SameAddress             bool   `json:"sameAddress"`
}

// Account holds the spot account data
type Account struct {
	CanTrade    bool      `json:"canTrade"`
	CanWithdraw bool      `json:"canWithdraw"`
	CanDeposit  bool      `json:"canDeposit"`
	UpdateTime  int64     `json:"updateTime"`
	AccountType string    `json:"accountType"`
	Balances    []Balance `json:"balances"`
}

// Balance holds a spot asset balance
type Balance struct {
	Asset  string `json:"asset"`
	Free   string `json:"free"`
	Locked string `json:"locked"`
}

// FundingAsset holds a funding wallet asset balance
type FundingAsset struct {
	Asset        string `json:"asset"`
	Free         string `json:"free"`
	Locked       string `json:"locked"`
	Freeze       string `json:"freeze"`
	Withdrawing  string `json:"withdrawing"`
	BtcValuation string `json:"btcValuation"`
}

// WithdrawResponse contains status of withdrawal request
type WithdrawResponse struct {
	ID string `json:"id"`
}

// WithdrawStatusResponse defines a withdrawal status response
type WithdrawStatusResponse struct {
	ID              string `json:"id"`
	Amount          string `json:"amount"`
	TransactionFee  string `json:"transactionFee"`
	Coin            string `json:"coin"`
	Status          int    `json:"status"`
	Address         string `json:"address"`
	AddressTag      string `json:"addressTag"`
	TransactionID   string `json:"txId"`
	ApplyTime       string `json:"applyTime"`
	Network         string `json:"network"`
	TransferType    int64  `json:"transferType"`
	WithdrawOrderID string `json:"withdrawOrderId"`
	Info            string `json:"info"`
	ConfirmNo       int64  `json:"confirmNo"`
}

// SymbolPrice holds a basic symbol price
type SymbolPrice struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}
