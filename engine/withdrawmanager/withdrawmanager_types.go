package withdrawmanager

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	dbwithdraw "github.com/thrasher-corp/gctwithdraw/database/repository/withdraw"
	"github.com/thrasher-corp/gctwithdraw/dispatch"
	exchange "github.com/thrasher-corp/gctwithdraw/exchanges"
	"github.com/thrasher-corp/gctwithdraw/portfolio/withdraw"
)

const (
	// DefaultPrecision is used when an exchange cannot supply a withdrawal
	// precision
	DefaultPrecision = 6
	// DryRunID is the exchange withdrawal ID reported in dry run mode
	DryRunID = "dryrun"

	defaultPollInterval = 500 * time.Millisecond
	defaultTickInterval = time.Second
)

// State is the batch controller state
type State int32

// Batch controller states
const (
	StateIdle State = iota
	StateRunning
	StateStopping
	StateFinished
)

// EventType names an event emitted by the manager
type EventType string

// Event types
const (
	EventProgress              EventType = "progress"
	EventWaitTick              EventType = "wait_tick"
	EventLog                   EventType = "log"
	EventBatchFinished         EventType = "batch_finished"
	EventConfirmationRequested EventType = "confirmation_requested"
	EventConfirmationResolved  EventType = "confirmation_resolved"
)

// Severity is the level of a log event
type Severity string

// Log event severities
const (
	SeverityDebug   Severity = "debug"
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarn    Severity = "warn"
	SeverityError   Severity = "error"
)

var (
	// ErrNilSubsystem is returned when a nil manager is used
	ErrNilSubsystem = errors.New("withdraw manager is nil")
	// ErrNilConfig is returned when the manager is set up without a config
	ErrNilConfig = errors.New("withdrawal config is nil")
	// ErrNilGateway is returned when a batch is started without a gateway
	ErrNilGateway = errors.New("exchange gateway not set")
	// ErrBatchAlreadyRunning is returned when a batch is started while one is
	// running
	ErrBatchAlreadyRunning = errors.New("batch already running")
	// ErrGatewayInUse is returned when the gateway is replaced during a batch
	ErrGatewayInUse = errors.New("exchange gateway in use by running batch")
	// ErrUnknownConfirmation is returned when resolving an ID which is not
	// awaiting a decision
	ErrUnknownConfirmation = errors.New("unknown confirmation")
	// ErrConfirmationAlreadyResolved is returned when resolving an ID twice
	ErrConfirmationAlreadyResolved = errors.New("confirmation already resolved")
	// ErrConfirmationCancelled is returned to a waiting worker when the batch
	// is stopped
	ErrConfirmationCancelled = errors.New("confirmation cancelled")

	errUnexpectedFailure = errors.New("unexpected batch failure")
)

// Recorder persists withdrawal attempts
type Recorder interface {
	Event(ctx context.Context, rec *dbwithdraw.Record) error
}

// Event is published to every subscriber of the manager
type Event struct {
	Type  EventType `json:"event"`
	RunID uuid.UUID `json:"runID"`
	Time  time.Time `json:"time"`
	Data  any       `json:"data"`
}

// Progress reports the number of processed addresses
type Progress struct {
	Processed int `json:"processed"`
	Total     int `json:"total"`
}

// WaitTick reports the time left before the next withdrawal
type WaitTick struct {
	Remaining time.Duration `json:"remaining"`
	Seconds   int           `json:"seconds"`
}

// LogMessage is a human readable progress line
type LogMessage struct {
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// Summary is the outcome of a finished batch
type Summary struct {
	RunID     uuid.UUID `json:"runID"`
	Processed int       `json:"processed"`
	Total     int       `json:"total"`
	Succeeded int       `json:"succeeded"`
	Skipped   int       `json:"skipped"`
	Failed    int       `json:"failed"`
	Cancelled bool      `json:"cancelled"`
	Err       error     `json:"-"`
	Error     string    `json:"error,omitempty"`
}

// Snapshot is a point in time view of the manager
type Snapshot struct {
	State         string                         `json:"state"`
	RunID         uuid.UUID                      `json:"runID"`
	Running       bool                           `json:"running"`
	Processed     int                            `json:"processed"`
	Total         int                            `json:"total"`
	Exchange      string                         `json:"exchange,omitempty"`
	Params        *withdraw.BatchParameters      `json:"params,omitempty"`
	Addresses     int                            `json:"addresses"`
	UsedAddresses []string                       `json:"usedAddresses"`
	ConfirmAll    bool                           `json:"confirmAll"`
	Pending       []withdraw.ConfirmationRequest `json:"pending,omitempty"`
	LastSummary   *Summary                       `json:"lastSummary,omitempty"`
}

// Manager runs batch withdrawals against a single exchange gateway
type Manager struct {
	mtx         sync.Mutex
	gateway     exchange.Gateway
	addresses   []withdraw.AddressRecord
	state       State
	runState    withdraw.RunState
	running     atomic.Bool
	runID       uuid.UUID
	params      *withdraw.BatchParameters
	lastSummary *Summary
	done        chan struct{}
	cancelWait  context.CancelFunc

	warningThresholdUSD decimal.Decimal
	enableWarning       bool
	defaultPrecision    int
	isDryRun            bool

	planner  *Planner
	gate     *Gate
	mux      *dispatch.Mux
	recorder Recorder

	pollInterval time.Duration
	tickInterval time.Duration
	intervalUnit time.Duration
}

// Planner draws randomised withdrawal amounts and intervals
type Planner struct {
	mtx sync.Mutex
	rnd *rand.Rand
}

// Gate is a one shot rendezvous between the batch worker and the operator
// for large withdrawals
type Gate struct {
	mtx        sync.Mutex
	pending    map[uuid.UUID]*pendingConfirmation
	resolved   map[uuid.UUID]struct{}
	confirmAll bool
	notify     func(EventType, any)
}

type pendingConfirmation struct {
	req  withdraw.ConfirmationRequest
	resp chan withdraw.ConfirmationResponse
}

// outcome is the result of processing a single address
type outcome int

const (
	outcomeSucceeded outcome = iota
	outcomeSkipped
	outcomeFailed
)

// runPlan holds values resolved once before the address loop
type runPlan struct {
	runID     uuid.UUID
	gateway   exchange.Gateway
	params    withdraw.BatchParameters
	addresses []withdraw.AddressRecord
	precision int
	fee       decimal.Decimal
	price     decimal.Decimal
	hasPrice  bool
}
