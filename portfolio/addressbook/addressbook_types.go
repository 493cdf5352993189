package addressbook

import (
	"errors"
	"sync"

	"github.com/thrasher-corp/gctwithdraw/portfolio/withdraw"
)

const (
	addressColumn = "address"
	labelColumn   = "label"

	suiAddressPattern = `^0x[0-9a-fA-F]{64}$`
	solanaMinLength   = 32
	solanaMaxLength   = 44
	solanaKeyLength   = 32
)

var (
	// ErrAddressColumnMissing is returned when an import has no address column
	ErrAddressColumnMissing = errors.New("address column not found")
	// ErrInvalidAddress is returned when an address fails validation
	ErrInvalidAddress = errors.New("invalid address")
	// ErrUnsupportedFileFormat is returned for imports other than csv or txt
	ErrUnsupportedFileFormat = errors.New("unsupported file format")
	// ErrIndexOutOfRange is returned when accessing an address outside the book
	ErrIndexOutOfRange = errors.New("address index out of range")

	errEmptyAddress = errors.New("address cannot be empty")
)

// Validator checks an address for a coin
type Validator interface {
	Validate(address string) error
}

// ValidatorFunc adapts a function to the Validator interface
type ValidatorFunc func(address string) error

// Validate calls f(address)
func (f ValidatorFunc) Validate(address string) error {
	return f(address)
}

// Invalid describes an address which failed validation. Index is 1-based
type Invalid struct {
	Index   int    `json:"index"`
	Address string `json:"address"`
	Reason  string `json:"reason"`
}

// Book holds an imported, ordered address list
type Book struct {
	mtx     sync.RWMutex
	records []withdraw.AddressRecord
	source  string
}
