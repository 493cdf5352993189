package withdraw

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	evmAddress    = "0x1234567890abcdef1234567890ABCDEF12345678"
	suiAddress    = "0x2f8c5b1e4d6a7f9032c1b4e5d6a7f8091a2b3c4d5e6f708192a3b4c5d6e7f809"
	solanaAddress = "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"
)

func validRequest() *Request {
	return &Request{
		Exchange:  "Binance",
		Coin:      "USDT",
		Network:   "TRX",
		Address:   "TQrY8tryqsYVCYS3MFbtffiPp2ccyn4STm",
		Amount:    decimal.RequireFromString("1.5"),
		Precision: 6,
		Fee:       decimal.RequireFromString("1"),
	}
}

func TestRequestValidate(t *testing.T) {
	t.Parallel()
	var nilRequest *Request
	require.ErrorIs(t, nilRequest.Validate(), ErrRequestCannotBeNil)

	require.NoError(t, validRequest().Validate())

	r := validRequest()
	r.Exchange = ""
	r.Coin = ""
	r.Network = ""
	r.Address = ""
	r.Amount = decimal.Zero
	r.Fee = decimal.NewFromInt(-1)
	r.Precision = -1
	err := r.Validate()
	for _, e := range []error{
		ErrExchangeNameUnset,
		ErrNoCurrencySet,
		ErrNetworkNotSet,
		ErrAddressNotSet,
		ErrAmountMustBeGreaterThanZero,
		ErrFeeCannotBeNegative,
		ErrInvalidPrecision,
	} {
		assert.ErrorIs(t, err, e)
	}
}

func TestAmountString(t *testing.T) {
	t.Parallel()
	r := validRequest()
	r.Amount = decimal.RequireFromString("1.2345")
	assert.Equal(t, "1.234500", r.AmountString())
	r.Precision = 2
	r.Amount = decimal.NewFromInt(1)
	assert.Equal(t, "1.00", r.AmountString())
	r.Amount = decimal.RequireFromString("1.999")
	assert.Equal(t, "1.99", r.AmountString(), "amounts are never rounded up")
	r.Precision = 0
	r.Amount = decimal.NewFromInt(3)
	assert.Equal(t, "3", r.AmountString())
}

func TestBatchParametersValidate(t *testing.T) {
	t.Parallel()
	valid := BatchParameters{
		Coin:        "USDT",
		Network:     "TRX",
		MinAmount:   decimal.NewFromInt(1),
		MaxAmount:   decimal.NewFromInt(2),
		StartIndex:  0,
		EndIndex:    2,
		MinInterval: 0,
		MaxInterval: 5,
	}
	require.NoError(t, valid.Validate(3))
	assert.Equal(t, 3, valid.Total())

	var nilParams *BatchParameters
	require.ErrorIs(t, nilParams.Validate(1), ErrRequestCannotBeNil)

	for _, tc := range []struct {
		name   string
		mutate func(p *BatchParameters)
		count  int
		err    error
	}{
		{"no coin", func(p *BatchParameters) { p.Coin = "" }, 3, ErrNoCurrencySet},
		{"no network", func(p *BatchParameters) { p.Network = "" }, 3, ErrNetworkNotSet},
		{"zero min", func(p *BatchParameters) { p.MinAmount = decimal.Zero }, 3, ErrAmountMustBeGreaterThanZero},
		{"negative max", func(p *BatchParameters) { p.MaxAmount = decimal.NewFromInt(-1) }, 3, ErrAmountMustBeGreaterThanZero},
		{"min above max", func(p *BatchParameters) { p.MinAmount = decimal.NewFromInt(5) }, 3, ErrInvalidAmountRange},
		{"no addresses", func(*BatchParameters) {}, 0, ErrNoAddresses},
		{"end out of range", func(*BatchParameters) {}, 2, ErrInvalidAddressRange},
		{"negative start", func(p *BatchParameters) { p.StartIndex = -1 }, 3, ErrInvalidAddressRange},
		{"start after end", func(p *BatchParameters) { p.StartIndex = 2; p.EndIndex = 1 }, 3, ErrInvalidAddressRange},
		{"interval inverted", func(p *BatchParameters) { p.MinInterval = 10 }, 3, ErrInvalidIntervalRange},
		{"negative interval", func(p *BatchParameters) { p.MinInterval = -1 }, 3, ErrInvalidIntervalRange},
		{"interval too large", func(p *BatchParameters) { p.MaxInterval = math.MaxInt }, 3, ErrIntervalTooLarge},
		{"interval just above cap", func(p *BatchParameters) { p.MaxInterval = MaxIntervalSeconds + 1 }, 3, ErrIntervalTooLarge},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			p := valid
			tc.mutate(&p)
			assert.ErrorIs(t, p.Validate(tc.count), tc.err)
		})
	}
}

func TestDisplayRangeToIndex(t *testing.T) {
	t.Parallel()
	start, end, err := DisplayRangeToIndex(1, 3, 3)
	require.NoError(t, err)
	assert.Equal(t, 0, start)
	assert.Equal(t, 2, end)

	_, _, err = DisplayRangeToIndex(1, 1, 0)
	assert.ErrorIs(t, err, ErrNoAddresses)
	_, _, err = DisplayRangeToIndex(0, 2, 3)
	assert.ErrorIs(t, err, ErrInvalidAddressRange)
	_, _, err = DisplayRangeToIndex(3, 2, 3)
	assert.ErrorIs(t, err, ErrInvalidAddressRange)
	_, _, err = DisplayRangeToIndex(1, 4, 3)
	assert.ErrorIs(t, err, ErrInvalidAddressRange)
}

func TestIsEVMAddress(t *testing.T) {
	t.Parallel()
	assert.True(t, IsEVMAddress(evmAddress))
	assert.False(t, IsEVMAddress("1234567890abcdef1234567890abcdef12345678"), "missing prefix")
	assert.False(t, IsEVMAddress("0x1234567890abcdef1234567890abcdef1234567"), "short")
	assert.False(t, IsEVMAddress("0x1234567890abcdef1234567890abcdef1234567g"), "non hex")
	assert.False(t, IsEVMAddress(suiAddress))
	assert.False(t, IsEVMAddress(solanaAddress))
}

func TestEncodeAddressWithLabel(t *testing.T) {
	t.Parallel()
	assert.Equal(t, evmAddress, EncodeAddressWithLabel(evmAddress, "x"))
	assert.Equal(t, evmAddress, EncodeAddressWithLabel(evmAddress, ""))
	assert.Equal(t, solanaAddress+":tag", EncodeAddressWithLabel(solanaAddress, "tag"))
	assert.Equal(t, solanaAddress, EncodeAddressWithLabel(solanaAddress, ""))
	assert.Equal(t, suiAddress+":memo", EncodeAddressWithLabel(suiAddress, "memo"))
}

func TestMaskAddress(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "0x123456...345678", MaskAddress(evmAddress))
	assert.Equal(t, "short", MaskAddress("short"))
	assert.Equal(t, "12345678901234", MaskAddress("12345678901234"))
	assert.Equal(t, "12345678...012345", MaskAddress("123456789012345"))
}
