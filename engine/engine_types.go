package engine

import (
	"errors"
	"sync"
	"time"

	"github.com/thrasher-corp/gctwithdraw/config"
	"github.com/thrasher-corp/gctwithdraw/engine/subsystem"
	"github.com/thrasher-corp/gctwithdraw/engine/withdrawmanager"
)

// Settings stores engine params
type Settings struct {
	ConfigFile   string
	DataDir      string
	Exchange     string
	MigrationDir string

	// Core Settings
	EnableDryRun          bool
	EnableDatabaseManager bool
	EnableNTPClient       bool
	EnableRemoteControl   bool
	Verbose               bool

	// Exchange tuning settings
	EnableExchangeVerbose       bool
	EnableExchangeHTTPDebugging bool
	ExchangePurgeCredentials    bool

	// Global HTTP related settings
	GlobalHTTPTimeout time.Duration
}

// Engine contains configuration, the exchange gateways and the withdraw
// manager and is the overarching type across this code base.
type Engine struct {
	Config          *config.Config
	Settings        Settings
	WithdrawManager *withdrawmanager.Manager
	DatabaseManager *DatabaseConnectionManager
	NTPManager      *ntpManager
	ExchangeManager *ExchangeManager
	apiServer       *apiServerManager
	Uptime          time.Time
	ServicesWG      sync.WaitGroup
}

var (
	// ErrNilSubsystem is returned when a subsystem method is called on nil
	ErrNilSubsystem = errors.New("subsystem is nil")
	// ErrSubSystemAlreadyStarted is returned when a subsystem is started twice
	ErrSubSystemAlreadyStarted = subsystem.ErrAlreadyStarted
	// ErrSubSystemNotStarted is returned when a subsystem is used before Start
	ErrSubSystemNotStarted = subsystem.ErrNotStarted
	// ErrNoExchangeSelected is returned when no exchange gateway can be
	// selected
	ErrNoExchangeSelected = errors.New("no exchange selected")

	errNilConfig          = errors.New("received nil config")
	errNilSettings        = errors.New("engine settings is nil")
	errNilEngine          = errors.New("engine instance is nil")
	errNilNTPConfigValues = errors.New("nil allowed time differences received")
	errNTPManagerDisabled = errors.New("NTP manager disabled")
)
