package withdraw

import (
	"errors"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null"
)

// Record statuses
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

var (
	errNilRecord     = errors.New("withdrawal record is nil")
	errInvalidLimit  = errors.New("limit must be greater than zero")
	errRunIDRequired = errors.New("run id must be set")
)

// Record is a single persisted withdrawal attempt
type Record struct {
	ID           uuid.UUID       `db:"id"`
	RunID        uuid.UUID       `db:"run_id"`
	Exchange     string          `db:"exchange"`
	Coin         string          `db:"coin"`
	Network      string          `db:"network"`
	Address      string          `db:"address"`
	Label        null.String     `db:"label"`
	AddressIndex int             `db:"address_index"`
	Amount       decimal.Decimal `db:"amount"`
	Fee          decimal.Decimal `db:"fee"`
	Status       string          `db:"status"`
	ExchangeID   null.String     `db:"exchange_id"`
	Error        null.String     `db:"error_message"`
	CreatedAt    time.Time       `db:"created_at"`
}

// Repository stores withdrawal attempts in the configured database
type Repository struct {
	db *sqlx.DB
}
