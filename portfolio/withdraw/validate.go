package withdraw

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	gctcommon "github.com/thrasher-corp/gctwithdraw/common"
)

const (
	maskPrefixLength = 8
	maskSuffixLength = 6
	evmAddressLength = 42
)

// Validate takes interface and passes to asset type to check the request meets
// requirements to submit
func (r *Request) Validate() error {
	if r == nil {
		return ErrRequestCannotBeNil
	}

	var err error
	if r.Exchange == "" {
		err = gctcommon.AppendError(err, ErrExchangeNameUnset)
	}
	if r.Coin == "" {
		err = gctcommon.AppendError(err, ErrNoCurrencySet)
	}
	if r.Network == "" {
		err = gctcommon.AppendError(err, ErrNetworkNotSet)
	}
	if r.Address == "" {
		err = gctcommon.AppendError(err, ErrAddressNotSet)
	}
	if !r.Amount.IsPositive() {
		err = gctcommon.AppendError(err, ErrAmountMustBeGreaterThanZero)
	}
	if r.Fee.IsNegative() {
		err = gctcommon.AppendError(err, ErrFeeCannotBeNegative)
	}
	if r.Precision < 0 {
		err = gctcommon.AppendError(err, ErrInvalidPrecision)
	}
	return err
}

// AmountString returns the amount truncated to the request precision as a
// fixed point string
func (r *Request) AmountString() string {
	p := int32(r.Precision)
	return r.Amount.Truncate(p).StringFixed(p)
}

// Validate checks the batch parameters against the number of loaded addresses
func (p *BatchParameters) Validate(addressCount int) error {
	if p == nil {
		return ErrRequestCannotBeNil
	}

	var err error
	if p.Coin == "" {
		err = gctcommon.AppendError(err, ErrNoCurrencySet)
	}
	if p.Network == "" {
		err = gctcommon.AppendError(err, ErrNetworkNotSet)
	}
	if !p.MinAmount.IsPositive() || !p.MaxAmount.IsPositive() {
		err = gctcommon.AppendError(err, ErrAmountMustBeGreaterThanZero)
	} else if p.MinAmount.GreaterThan(p.MaxAmount) {
		err = gctcommon.AppendError(err, fmt.Errorf("%w: %s > %s", ErrInvalidAmountRange, p.MinAmount, p.MaxAmount))
	}
	if addressCount <= 0 {
		err = gctcommon.AppendError(err, ErrNoAddresses)
	} else if p.StartIndex < 0 || p.StartIndex > p.EndIndex || p.EndIndex >= addressCount {
		err = gctcommon.AppendError(err, fmt.Errorf("%w: [%d, %d] of %d addresses", ErrInvalidAddressRange, p.StartIndex+1, p.EndIndex+1, addressCount))
	}
	if p.MinInterval < 0 || p.MinInterval > p.MaxInterval {
		err = gctcommon.AppendError(err, fmt.Errorf("%w: [%d, %d]", ErrInvalidIntervalRange, p.MinInterval, p.MaxInterval))
	}
	if p.MaxInterval > MaxIntervalSeconds {
		err = gctcommon.AppendError(err, fmt.Errorf("%w: %d > %d seconds", ErrIntervalTooLarge, p.MaxInterval, MaxIntervalSeconds))
	}
	return err
}

// Total returns the number of addresses covered by the range
func (p *BatchParameters) Total() int {
	return p.EndIndex - p.StartIndex + 1
}

// DisplayRangeToIndex converts a user facing 1-based inclusive range into
// 0-based indices and checks it against the address count
func DisplayRangeToIndex(start, end, addressCount int) (startIdx, endIdx int, err error) {
	if addressCount <= 0 {
		return 0, 0, ErrNoAddresses
	}
	if start < 1 || end < start || end > addressCount {
		return 0, 0, fmt.Errorf("%w: %d to %d must be within 1 to %d", ErrInvalidAddressRange, start, end, addressCount)
	}
	return start - 1, end - 1, nil
}

// IsEVMAddress reports whether the address has the 0x prefixed 40 hex
// character shape
func IsEVMAddress(address string) bool {
	return len(address) == evmAddressLength &&
		strings.HasPrefix(address, "0x") &&
		common.IsHexAddress(address)
}

// EncodeAddressWithLabel returns the address token submitted to exchanges
// which require tags to be joined to the address. EVM addresses are always
// submitted bare.
func EncodeAddressWithLabel(address, label string) string {
	if IsEVMAddress(address) || label == "" {
		return address
	}
	return address + ":" + label
}

// MaskAddress shortens an address for log output
func MaskAddress(address string) string {
	if len(address) <= maskPrefixLength+maskSuffixLength {
		return address
	}
	return address[:maskPrefixLength] + "..." + address[len(address)-maskSuffixLength:]
}
