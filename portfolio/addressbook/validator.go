package addressbook

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/thrasher-corp/gctwithdraw/portfolio/withdraw"
)

var suiAddress = regexp.MustCompile(suiAddressPattern)

// ValidatorForCoin returns the address validator for a coin. Coins without a
// known address format only require a non-empty address.
func ValidatorForCoin(coin string) Validator {
	switch strings.ToUpper(strings.TrimSpace(coin)) {
	case "ETH", "USDT", "USDC", "G":
		return ValidatorFunc(ValidateEVMAddress)
	case "SUI":
		return ValidatorFunc(ValidateSUIAddress)
	case "SOL":
		return ValidatorFunc(ValidateSolanaAddress)
	case "BTC":
		return ValidatorFunc(ValidateBitcoinAddress)
	default:
		return ValidatorFunc(validateNotEmpty)
	}
}

// ValidateAddress trims and validates an address for a coin
func ValidateAddress(coin, address string) error {
	return ValidatorForCoin(coin).Validate(strings.TrimSpace(address))
}

// ValidateBatch validates each record for the coin and returns the invalid
// entries with 1-based indices
func ValidateBatch(coin string, records []withdraw.AddressRecord) []Invalid {
	v := ValidatorForCoin(coin)
	var invalid []Invalid
	for i := range records {
		if err := v.Validate(strings.TrimSpace(records[i].Address)); err != nil {
			invalid = append(invalid, Invalid{
				Index:   i + 1,
				Address: records[i].Address,
				Reason:  err.Error(),
			})
		}
	}
	return invalid
}

// ValidateEVMAddress checks for a 0x prefixed 20 byte hex address
func ValidateEVMAddress(address string) error {
	if !withdraw.IsEVMAddress(address) {
		return fmt.Errorf("%w: EVM addresses must be 42 hex characters including the 0x prefix", ErrInvalidAddress)
	}
	return nil
}

// ValidateSUIAddress checks for a 0x prefixed 32 byte hex address
func ValidateSUIAddress(address string) error {
	if !suiAddress.MatchString(address) {
		return fmt.Errorf("%w: SUI addresses must be 0x followed by 64 hex characters", ErrInvalidAddress)
	}
	return nil
}

// ValidateSolanaAddress checks for a base58 encoded 32 byte public key
func ValidateSolanaAddress(address string) error {
	if strings.HasPrefix(address, "0x") ||
		len(address) < solanaMinLength ||
		len(address) > solanaMaxLength {
		return fmt.Errorf("%w: SOL address has an invalid format", ErrInvalidAddress)
	}
	if decoded := base58.Decode(address); len(decoded) != solanaKeyLength {
		return fmt.Errorf("%w: SOL address does not decode to a 32 byte key", ErrInvalidAddress)
	}
	return nil
}

// ValidateBitcoinAddress checks for a mainnet bitcoin address
func ValidateBitcoinAddress(address string) error {
	addr, err := btcutil.DecodeAddress(address, &chaincfg.MainNetParams)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if !addr.IsForNet(&chaincfg.MainNetParams) {
		return fmt.Errorf("%w: address is not for mainnet", ErrInvalidAddress)
	}
	return nil
}

func validateNotEmpty(address string) error {
	if address == "" {
		return fmt.Errorf("%w: %w", ErrInvalidAddress, errEmptyAddress)
	}
	return nil
}
